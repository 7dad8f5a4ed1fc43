package native

import (
	"github.com/NethermindEth/starksim/core/crypto"
	"github.com/NethermindEth/starksim/core/felt"
)

var (
	balanceVariable = crypto.Selector("balance")
	depositedEvent  = crypto.Selector("Deposited")
)

// stepsPerSpin is what a single iteration of spin costs.
const stepsPerSpin = 1_000

// HelloStarknet keeps a balance that can be increased by transactions and
// by deposits from L1.
func HelloStarknet() *Contract {
	return &Contract{
		Name: "HelloStarknet",
		External: map[string]EntryPoint{
			"increase_balance": helloIncreaseBalance,
			"get_balance":      helloGetBalance,
			"fail":             helloFail,
			"spin":             helloSpin,
			"send_message":     helloSendMessage,
		},
		L1Handler: map[string]EntryPoint{
			"deposit": helloDeposit,
		},
	}
}

func addToBalance(ctx *Context, amount *felt.Felt) error {
	balance, err := ctx.StorageRead(balanceVariable)
	if err != nil {
		return err
	}
	ctx.RangeCheck(1)
	return ctx.StorageWrite(balanceVariable, balance.Add(balance, amount))
}

func helloIncreaseBalance(ctx *Context, calldata []*felt.Felt) ([]*felt.Felt, error) {
	if len(calldata) != 1 {
		return nil, trap("increase_balance expects an amount")
	}
	if calldata[0].IsZero() {
		return nil, trap("Amount cannot be 0")
	}
	return nil, addToBalance(ctx, calldata[0])
}

func helloGetBalance(ctx *Context, _ []*felt.Felt) ([]*felt.Felt, error) {
	balance, err := ctx.StorageRead(balanceVariable)
	if err != nil {
		return nil, err
	}
	return []*felt.Felt{balance}, nil
}

// helloFail writes to storage and then fails, so a revert has something to undo.
func helloFail(ctx *Context, _ []*felt.Felt) ([]*felt.Felt, error) {
	if err := addToBalance(ctx, new(felt.Felt).SetUint64(1)); err != nil {
		return nil, err
	}
	return nil, trap("fail")
}

func helloSpin(ctx *Context, calldata []*felt.Felt) ([]*felt.Felt, error) {
	if len(calldata) != 1 || !calldata[0].IsUint64() {
		return nil, trap("spin expects an iteration count")
	}
	for range calldata[0].Uint64() {
		if err := ctx.ConsumeSteps(stepsPerSpin); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// helloSendMessage sends [to_address, payload...] to L1.
func helloSendMessage(ctx *Context, calldata []*felt.Felt) ([]*felt.Felt, error) {
	if len(calldata) == 0 {
		return nil, trap("send_message expects an L1 address")
	}
	return nil, ctx.SendMessageToL1(calldata[0], calldata[1:])
}

// helloDeposit handles [from_address, amount] sent from L1.
func helloDeposit(ctx *Context, calldata []*felt.Felt) ([]*felt.Felt, error) {
	if len(calldata) != 2 {
		return nil, trap("deposit expects the L1 sender and an amount")
	}
	if err := addToBalance(ctx, calldata[1]); err != nil {
		return nil, err
	}
	return nil, ctx.EmitEvent([]*felt.Felt{depositedEvent}, []*felt.Felt{calldata[0].Clone(), calldata[1].Clone()})
}

// Builtins returns every contract shipped with the engine.
func Builtins() []*Contract {
	return []*Contract{Account(), ERC20(), HelloStarknet()}
}
