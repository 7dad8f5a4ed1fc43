package native

import (
	"github.com/NethermindEth/starksim/core/crypto"
	"github.com/NethermindEth/starksim/core/felt"
	"github.com/NethermindEth/starksim/vm"
	"github.com/holiman/uint256"
)

var transferEvent = crypto.Selector("Transfer")

// ERC20 is a fungible token using the fee token storage layout, so the
// executor's fee transfers and the token's own transfers see the same balances.
func ERC20() *Contract {
	return &Contract{
		Name:        "ERC20",
		Constructor: erc20Constructor,
		External: map[string]EntryPoint{
			"balanceOf": erc20BalanceOf,
			"transfer":  erc20Transfer,
		},
	}
}

// erc20Constructor mints [low, high] to recipient.
func erc20Constructor(ctx *Context, calldata []*felt.Felt) ([]*felt.Felt, error) {
	if len(calldata) != 3 {
		return nil, trap("constructor expects recipient and initial supply")
	}
	supply, err := readUint256(ctx, calldata[1], calldata[2])
	if err != nil {
		return nil, err
	}
	return nil, writeBalance(ctx, calldata[0], supply)
}

func erc20BalanceOf(ctx *Context, calldata []*felt.Felt) ([]*felt.Felt, error) {
	if len(calldata) != 1 {
		return nil, trap("balanceOf expects an account")
	}
	balance, err := readBalance(ctx, calldata[0])
	if err != nil {
		return nil, err
	}
	low, high := vm.SplitUint256(balance)
	return []*felt.Felt{low, high}, nil
}

func erc20Transfer(ctx *Context, calldata []*felt.Felt) ([]*felt.Felt, error) {
	if len(calldata) != 3 {
		return nil, trap("transfer expects recipient and amount")
	}
	recipient := calldata[0]
	amount, err := readUint256(ctx, calldata[1], calldata[2])
	if err != nil {
		return nil, err
	}

	sender := ctx.CallerAddress()
	senderBalance, err := readBalance(ctx, sender)
	if err != nil {
		return nil, err
	}
	ctx.RangeCheck(2)
	if senderBalance.Lt(amount) {
		return nil, trap("ERC20: transfer amount exceeds balance")
	}
	if err = writeBalance(ctx, sender, senderBalance.Sub(senderBalance, amount)); err != nil {
		return nil, err
	}

	recipientBalance, err := readBalance(ctx, recipient)
	if err != nil {
		return nil, err
	}
	newBalance, overflow := recipientBalance.AddOverflow(recipientBalance, amount)
	if overflow {
		return nil, trap("ERC20: balance overflow")
	}
	if err = writeBalance(ctx, recipient, newBalance); err != nil {
		return nil, err
	}

	if err = ctx.EmitEvent(
		[]*felt.Felt{transferEvent},
		[]*felt.Felt{sender.Clone(), recipient.Clone(), calldata[1].Clone(), calldata[2].Clone()},
	); err != nil {
		return nil, err
	}
	return []*felt.Felt{new(felt.Felt).SetUint64(1)}, nil
}

var max128 = new(uint256.Int).Rsh(new(uint256.Int).SetAllOne(), 128)

func readUint256(ctx *Context, low, high *felt.Felt) (*uint256.Int, error) {
	ctx.RangeCheck(2)
	lowInt, highInt := vm.FeltToUint256(low), vm.FeltToUint256(high)
	if lowInt.Gt(max128) || highInt.Gt(max128) {
		return nil, trap("invalid uint256")
	}
	value := new(uint256.Int).Lsh(highInt, 128)
	return value.Or(value, lowInt), nil
}

func readBalance(ctx *Context, account *felt.Felt) (*uint256.Int, error) {
	lowKey := vm.BalanceKey(account)
	low, err := ctx.StorageRead(lowKey)
	if err != nil {
		return nil, err
	}
	high, err := ctx.StorageRead(new(felt.Felt).Add(lowKey, &felt.One))
	if err != nil {
		return nil, err
	}
	return readUint256(ctx, low, high)
}

func writeBalance(ctx *Context, account *felt.Felt, balance *uint256.Int) error {
	low, high := vm.SplitUint256(balance)
	lowKey := vm.BalanceKey(account)
	if err := ctx.StorageWrite(lowKey, low); err != nil {
		return err
	}
	return ctx.StorageWrite(new(felt.Felt).Add(lowKey, &felt.One), high)
}
