package simulation

import (
	"errors"
	"fmt"

	"github.com/NethermindEth/starksim/core"
	"github.com/NethermindEth/starksim/fee"
	"github.com/NethermindEth/starksim/vm"
)

var ErrTransactionReverted = errors.New("transaction reverted")

// TransactionExecutionError identifies the transaction of a batch that
// failed. Replayed is set when the transaction was part of the history
// replayed before tracing.
type TransactionExecutionError struct {
	Index    int
	Replayed bool
	Cause    error
}

func (e *TransactionExecutionError) Error() string {
	if e.Replayed {
		return fmt.Sprintf("replaying transaction %d: %v", e.Index, e.Cause)
	}
	return fmt.Sprintf("transaction %d: %v", e.Index, e.Cause)
}

func (e *TransactionExecutionError) Unwrap() error {
	return e.Cause
}

type ErrorKind uint8

const (
	KindNone ErrorKind = iota
	KindExecution
	KindValidation
	KindClassHashMismatch
	KindFeeComputation
	KindCommit
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindExecution:
		return "execution"
	case KindValidation:
		return "validation"
	case KindClassHashMismatch:
		return "class_hash_mismatch"
	case KindFeeComputation:
		return "fee_computation"
	case KindCommit:
		return "commit"
	default:
		return "internal"
	}
}

func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Classify maps err to the category reported to users.
func Classify(err error) ErrorKind {
	var (
		validationErr *vm.ValidationError
		mismatchErr   *vm.ClassHashMismatchError
	)
	switch {
	case err == nil:
		return KindNone
	case errors.As(err, &mismatchErr), errors.Is(err, vm.ErrCompiledClassHashMismatch):
		return KindClassHashMismatch
	case errors.As(err, &validationErr), errors.Is(err, vm.ErrUnsupportedTransaction):
		return KindValidation
	case errors.Is(err, fee.ErrFeeComputation), errors.Is(err, vm.ErrMissingGasPrice):
		return KindFeeComputation
	case errors.Is(err, core.ErrStateCommit):
		return KindCommit
	case vm.IsExecutionFailure(err), errors.Is(err, vm.ErrMaxFeeExceeded), errors.Is(err, ErrTransactionReverted):
		return KindExecution
	default:
		return KindInternal
	}
}
