package vm

import (
	"fmt"

	"github.com/NethermindEth/starksim/core"
	"github.com/NethermindEth/starksim/core/crypto"
	"github.com/NethermindEth/starksim/core/felt"
	"github.com/holiman/uint256"
)

var (
	balancesVariable = crypto.Selector("ERC20_balances")
	transferSelector = crypto.Selector("transfer")
	transferEvent    = crypto.Selector("Transfer")
)

// BalanceKey is the storage slot of the low half of addr's fee token
// balance. The high half lives in the next slot.
func BalanceKey(addr *felt.Felt) *felt.Felt {
	return crypto.Pedersen(balancesVariable, addr)
}

// ReadBalance returns the balance of addr on token.
func ReadBalance(state core.StateReader, token, addr *felt.Felt) (*uint256.Int, error) {
	lowKey := BalanceKey(addr)
	low, err := state.ContractStorage(token, lowKey)
	if err != nil {
		return nil, err
	}
	high, err := state.ContractStorage(token, new(felt.Felt).Add(lowKey, &felt.One))
	if err != nil {
		return nil, err
	}

	balance := new(uint256.Int).Lsh(FeltToUint256(high), 128)
	return balance.Or(balance, FeltToUint256(low)), nil
}

// WriteBalance sets the balance of addr on token.
func WriteBalance(state core.StateWriter, token, addr *felt.Felt, balance *uint256.Int) error {
	low, high := SplitUint256(balance)
	lowKey := BalanceKey(addr)
	if err := state.SetStorage(token, lowKey, low); err != nil {
		return err
	}
	return state.SetStorage(token, new(felt.Felt).Add(lowKey, &felt.One), high)
}

// SplitUint256 returns the low and high 128 bits of u.
func SplitUint256(u *uint256.Int) (low, high *felt.Felt) {
	lowMask := new(uint256.Int).Rsh(maxUint256, 128)
	lowBytes := new(uint256.Int).And(u, lowMask).Bytes32()
	highBytes := new(uint256.Int).Rsh(u, 128).Bytes32()
	return new(felt.Felt).SetBytes(lowBytes[:]), new(felt.Felt).SetBytes(highBytes[:])
}

// transferFee moves amount from sender to recipient on the fee token and
// returns the invocation describing the transfer.
func transferFee(state core.StateReadWriter, token, sender, recipient *felt.Felt, amount *uint256.Int) (*FunctionInvocation, error) {
	senderBalance, err := ReadBalance(state, token, sender)
	if err != nil {
		return nil, fmt.Errorf("read sender balance: %w", err)
	}
	if senderBalance.Lt(amount) {
		return nil, &ValidationError{
			Failure: InsufficientBalance,
			Details: fmt.Sprintf("balance %s, fee %s", senderBalance.Dec(), amount.Dec()),
		}
	}
	if err = WriteBalance(state, token, sender, new(uint256.Int).Sub(senderBalance, amount)); err != nil {
		return nil, fmt.Errorf("write sender balance: %w", err)
	}

	recipientBalance, err := ReadBalance(state, token, recipient)
	if err != nil {
		return nil, fmt.Errorf("read recipient balance: %w", err)
	}
	if err = WriteBalance(state, token, recipient, SaturatingAdd(recipientBalance, amount)); err != nil {
		return nil, fmt.Errorf("write recipient balance: %w", err)
	}

	low, high := SplitUint256(amount)
	return &FunctionInvocation{
		ContractAddress:    *token,
		EntryPointSelector: transferSelector,
		Calldata:           []felt.Felt{*recipient, *low, *high},
		CallerAddress:      *sender,
		EntryPointType:     External,
		CallType:           CallTypeCall,
		Result:             []felt.Felt{felt.One},
		Calls:              []FunctionInvocation{},
		Events: []OrderedEvent{{
			Keys: []*felt.Felt{transferEvent},
			Data: []*felt.Felt{sender.Clone(), recipient.Clone(), low, high},
		}},
		Messages: []OrderedL2toL1Message{},
	}, nil
}
