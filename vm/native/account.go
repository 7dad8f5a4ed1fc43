package native

import (
	"fmt"

	"github.com/NethermindEth/starksim/core/crypto"
	"github.com/NethermindEth/starksim/core/felt"
	"github.com/NethermindEth/starksim/vm"
)

var publicKeyVariable = crypto.Selector("Account_public_key")

// validated is the magic value validation entry points return on success.
var validated = new(felt.Felt).SetBytes([]byte("VALID"))

// Account is an account contract owned by a single key. A transaction is
// signed with the single felt pedersen(public key, transaction hash).
func Account() *Contract {
	return &Contract{
		Name:        "Account",
		Constructor: accountConstructor,
		External: map[string]EntryPoint{
			"__validate__":         accountValidate,
			"__validate_declare__": accountValidate,
			"__validate_deploy__":  accountValidate,
			"__execute__":          accountExecute,
			"get_public_key":       accountPublicKey,
		},
	}
}

// AccountSignature signs txHash for the account owned by publicKey.
func AccountSignature(publicKey, txHash *felt.Felt) []*felt.Felt {
	return []*felt.Felt{crypto.Pedersen(publicKey, txHash)}
}

func accountConstructor(ctx *Context, calldata []*felt.Felt) ([]*felt.Felt, error) {
	if len(calldata) != 1 {
		return nil, trap("constructor expects the public key")
	}
	return nil, ctx.StorageWrite(publicKeyVariable, calldata[0])
}

func accountPublicKey(ctx *Context, _ []*felt.Felt) ([]*felt.Felt, error) {
	publicKey, err := ctx.StorageRead(publicKeyVariable)
	if err != nil {
		return nil, err
	}
	return []*felt.Felt{publicKey}, nil
}

func accountValidate(ctx *Context, _ []*felt.Felt) ([]*felt.Felt, error) {
	publicKey, err := ctx.StorageRead(publicKeyVariable)
	if err != nil {
		return nil, err
	}

	tx := ctx.TxInfo()
	signature := tx.Signature
	if len(signature) != 1 || !ctx.Pedersen(publicKey, tx.Hash).Equal(signature[0]) {
		return nil, trap("invalid signature")
	}
	return []*felt.Felt{validated}, nil
}

// accountExecute runs a multicall encoded as
// [calls_len, (to, selector, calldata_len, calldata...)...]
// and returns the concatenated results.
func accountExecute(ctx *Context, calldata []*felt.Felt) ([]*felt.Felt, error) {
	if !ctx.CallerAddress().IsZero() {
		return nil, trap("invalid caller")
	}

	calls, rest, err := readLength(calldata)
	if err != nil {
		return nil, err
	}

	var results []*felt.Felt
	for idx := range calls {
		if len(rest) < 3 {
			return nil, trap(fmt.Sprintf("call %d is truncated", idx))
		}
		to, selector := rest[0], rest[1]
		var args, result []*felt.Felt
		if args, rest, err = readArray(rest[2:]); err != nil {
			return nil, err
		}

		ctx.RangeCheck(1)
		if result, err = ctx.CallContract(to, selector, args); err != nil {
			return nil, err
		}
		results = append(results, result...)
	}
	return results, nil
}

func readLength(calldata []*felt.Felt) (uint64, []*felt.Felt, error) {
	if len(calldata) == 0 || !calldata[0].IsUint64() {
		return 0, nil, trap("invalid array length")
	}
	length := calldata[0].Uint64()
	return length, calldata[1:], nil
}

// readArray decodes a length prefixed array.
func readArray(calldata []*felt.Felt) ([]*felt.Felt, []*felt.Felt, error) {
	length, rest, err := readLength(calldata)
	if err != nil {
		return nil, nil, err
	}
	if uint64(len(rest)) < length {
		return nil, nil, trap("array is truncated")
	}
	return rest[:length], rest[length:], nil
}

func trap(reason string) *vm.TrapError {
	return &vm.TrapError{
		Reason: reason,
		Data:   []*felt.Felt{new(felt.Felt).SetBytes([]byte(reason))},
	}
}
