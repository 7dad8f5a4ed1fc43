package vm

import (
	"errors"
	"fmt"

	"github.com/NethermindEth/starksim/core/felt"
)

var (
	ErrEntryPointNotFound        = errors.New("entry point not found")
	ErrStepLimitExceeded         = errors.New("step limit exceeded")
	ErrCompiledClassHashMismatch = errors.New("compiled class hash mismatch")
	ErrMaxFeeExceeded            = errors.New("actual fee exceeds max fee")
	ErrUnsupportedTransaction    = errors.New("unsupported transaction")
	ErrMissingGasPrice           = errors.New("missing gas price")
)

// TrapError is a failure raised by contract code, such as a failed assertion.
type TrapError struct {
	Reason string
	Data   []*felt.Felt
}

func (e *TrapError) Error() string {
	return "execution trapped: " + e.Reason
}

// IsExecutionFailure reports whether err was raised by contract execution,
// as opposed to a failure of the node itself.
func IsExecutionFailure(err error) bool {
	var trap *TrapError
	return errors.Is(err, ErrEntryPointNotFound) ||
		errors.Is(err, ErrStepLimitExceeded) ||
		errors.As(err, &trap)
}

type ValidationFailure uint8

const (
	InvalidNonce ValidationFailure = iota + 1
	MaxFeeTooLow
	InsufficientBalance
	ClassAlreadyDeclared
	InvalidContractAddress
	ValidateEntryPointFailed
	InvalidClassHash
)

func (f ValidationFailure) String() string {
	switch f {
	case InvalidNonce:
		return "invalid transaction nonce"
	case MaxFeeTooLow:
		return "max fee is smaller than the minimal transaction cost"
	case InsufficientBalance:
		return "account balance is smaller than the transaction's max fee"
	case ClassAlreadyDeclared:
		return "class already declared"
	case InvalidContractAddress:
		return "contract address does not match the deployment parameters"
	case ValidateEntryPointFailed:
		return "account validation failed"
	case InvalidClassHash:
		return "class hash does not match the class definition"
	default:
		return fmt.Sprintf("ValidationFailure(%d)", uint8(f))
	}
}

// ValidationError is returned when a transaction is rejected before it
// executes. Validation errors are never charged.
type ValidationError struct {
	Failure ValidationFailure
	Details string
	Err     error
}

func (e *ValidationError) Error() string {
	msg := e.Failure.String()
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ClassHashMismatchError reports a declare transaction whose compiled class
// hash differs from the hash derived from its compiled class.
type ClassHashMismatchError struct {
	ClassHash *felt.Felt
	Declared  *felt.Felt
	Derived   *felt.Felt
}

func (e *ClassHashMismatchError) Error() string {
	return fmt.Sprintf("%s for class %s: declared %s, derived %s",
		ErrCompiledClassHashMismatch, e.ClassHash, e.Declared, e.Derived)
}

func (e *ClassHashMismatchError) Unwrap() error {
	return ErrCompiledClassHashMismatch
}
