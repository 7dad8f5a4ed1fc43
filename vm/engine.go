package vm

import (
	"fmt"

	"github.com/NethermindEth/starksim/core"
	"github.com/NethermindEth/starksim/core/felt"
)

type EntryPointType uint8

const (
	External EntryPointType = iota
	L1Handler
	Constructor
)

func (t EntryPointType) String() string {
	switch t {
	case External:
		return "EXTERNAL"
	case L1Handler:
		return "L1_HANDLER"
	case Constructor:
		return "CONSTRUCTOR"
	default:
		return fmt.Sprintf("EntryPointType(%d)", uint8(t))
	}
}

func (t EntryPointType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

type CallType uint8

const (
	CallTypeCall CallType = iota
	CallTypeDelegate
)

func (t CallType) String() string {
	if t == CallTypeDelegate {
		return "DELEGATE"
	}
	return "CALL"
}

func (t CallType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// CallInfo describes a single entry point invocation.
type CallInfo struct {
	ContractAddress *felt.Felt
	// ClassHash overrides the class deployed at ContractAddress. Constructor
	// calls and library calls set it.
	ClassHash      *felt.Felt
	Selector       *felt.Felt
	Calldata       []*felt.Felt
	CallerAddress  *felt.Felt
	EntryPointType EntryPointType
	CallType       CallType
}

// StepBudget bounds the number of steps a transaction phase may consume. It
// is shared by every nested call of the phase.
type StepBudget struct {
	limit uint64
	used  uint64
}

func NewStepBudget(limit uint64) *StepBudget {
	return &StepBudget{limit: limit}
}

// Consume charges steps against the budget. Running out exhausts the budget
// and returns ErrStepLimitExceeded.
func (b *StepBudget) Consume(steps uint64) error {
	if steps > b.Remaining() {
		b.used = b.limit
		return fmt.Errorf("%w: limit %d", ErrStepLimitExceeded, b.limit)
	}
	b.used += steps
	return nil
}

func (b *StepBudget) Used() uint64 {
	return b.used
}

func (b *StepBudget) Remaining() uint64 {
	return b.limit - b.used
}

// TxContext exposes the executing transaction to contracts.
type TxContext struct {
	Hash          *felt.Felt
	Version       *core.TransactionVersion
	SenderAddress *felt.Felt
	Signature     []*felt.Felt
	Nonce         *felt.Felt
	MaxFee        *felt.Felt
	ChainID       *felt.Felt
	Header        *core.Header
}

// Engine runs contract code.
//
//go:generate mockgen -destination=../mocks/mock_engine.go -package=mocks github.com/NethermindEth/starksim/vm Engine
type Engine interface {
	// Call executes call against state. All writes go through state, and the
	// steps spent are charged to budget. A failing call returns one of
	// ErrEntryPointNotFound, ErrStepLimitExceeded or a *TrapError.
	Call(call *CallInfo, state core.StateReadWriter, budget *StepBudget, txCtx *TxContext) (*FunctionInvocation, error)
}
