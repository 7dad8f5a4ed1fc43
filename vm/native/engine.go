package native

import (
	"errors"
	"fmt"
	"sync"

	"github.com/NethermindEth/starksim/core"
	"github.com/NethermindEth/starksim/core/felt"
	"github.com/NethermindEth/starksim/vm"
)

// Step costs of the operations contracts perform.
const (
	callSteps         = 100
	calldataFeltSteps = 5
	storageReadSteps  = 50
	storageWriteSteps = 100
	emitEventSteps    = 50
	sendMessageSteps  = 50
)

type implementation struct {
	contract   *Contract
	external   map[felt.Felt]EntryPoint
	l1Handlers map[felt.Felt]EntryPoint
}

var _ vm.Engine = (*Engine)(nil)

// Engine executes contracts implemented in Go. Contracts are found through
// the class hash of the called address.
type Engine struct {
	mu              sync.RWMutex
	implementations map[felt.Felt]*implementation
	byName          map[string]*Contract
}

// New returns an engine that knows contracts.
func New(contracts ...*Contract) (*Engine, error) {
	e := &Engine{
		implementations: make(map[felt.Felt]*implementation),
		byName:          make(map[string]*Contract),
	}
	for _, contract := range contracts {
		if err := e.Register(contract); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Register makes both classes of contract executable.
func (e *Engine) Register(contract *Contract) error {
	sierraHash, err := contract.Class().Hash()
	if err != nil {
		return fmt.Errorf("class hash of %s: %w", contract.Name, err)
	}
	legacyHash, err := contract.LegacyClass().Hash()
	if err != nil {
		return fmt.Errorf("legacy class hash of %s: %w", contract.Name, err)
	}

	impl := &implementation{
		contract:   contract,
		external:   contract.entryPoints(externalTable),
		l1Handlers: contract.entryPoints(l1HandlerTable),
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.byName[contract.Name]; ok {
		return fmt.Errorf("contract %s already registered", contract.Name)
	}
	e.byName[contract.Name] = contract
	e.implementations[*sierraHash] = impl
	e.implementations[*legacyHash] = impl
	return nil
}

// Contract returns the registered contract called name.
func (e *Engine) Contract(name string) (*Contract, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	contract, ok := e.byName[name]
	return contract, ok
}

func (e *Engine) implementation(classHash *felt.Felt) (*implementation, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	impl, ok := e.implementations[*classHash]
	return impl, ok
}

func (e *Engine) Call(call *vm.CallInfo, state core.StateReadWriter, budget *vm.StepBudget,
	txCtx *vm.TxContext,
) (*vm.FunctionInvocation, error) {
	return e.call(call, state, budget, txCtx, new(ordering))
}

// ordering numbers the events and messages of a call tree.
type ordering struct {
	events   uint64
	messages uint64
}

func (e *Engine) call(call *vm.CallInfo, state core.StateReadWriter, budget *vm.StepBudget,
	txCtx *vm.TxContext, order *ordering,
) (*vm.FunctionInvocation, error) {
	stepsBefore := budget.Used()
	if err := budget.Consume(callSteps + calldataFeltSteps*uint64(len(call.Calldata))); err != nil {
		return nil, err
	}

	classHash := call.ClassHash
	if classHash == nil {
		var err error
		if classHash, err = state.ContractClassHash(call.ContractAddress); err != nil {
			if errors.Is(err, core.ErrContractNotDeployed) {
				return nil, &vm.TrapError{Reason: fmt.Sprintf("requested contract address %s is not deployed", call.ContractAddress)}
			}
			return nil, err
		}
	}

	impl, ok := e.implementation(classHash)
	if !ok {
		return nil, &vm.TrapError{Reason: fmt.Sprintf("class %s has no native implementation", classHash)}
	}

	var entryPoint EntryPoint
	switch call.EntryPointType {
	case vm.External:
		entryPoint = impl.external[*call.Selector]
	case vm.L1Handler:
		entryPoint = impl.l1Handlers[*call.Selector]
	case vm.Constructor:
		entryPoint = impl.contract.Constructor
		if entryPoint == nil && len(call.Calldata) == 0 {
			entryPoint = func(*Context, []*felt.Felt) ([]*felt.Felt, error) { return nil, nil }
		}
	}
	if entryPoint == nil {
		return nil, fmt.Errorf("%w: %s selector %s in class %s (%s)",
			vm.ErrEntryPointNotFound, call.EntryPointType, call.Selector, classHash, impl.contract.Name)
	}

	ctx := &Context{
		engine:  e,
		order:   order,
		state:   state,
		budget:  budget,
		txCtx:   txCtx,
		address: call.ContractAddress,
		caller:  call.CallerAddress,
		invocation: &vm.FunctionInvocation{
			ContractAddress:    *call.ContractAddress,
			EntryPointSelector: call.Selector,
			Calldata:           derefAll(call.Calldata),
			CallerAddress:      *call.CallerAddress,
			ClassHash:          classHash,
			EntryPointType:     call.EntryPointType,
			CallType:           call.CallType,
			Calls:              []vm.FunctionInvocation{},
			Events:             []vm.OrderedEvent{},
			Messages:           []vm.OrderedL2toL1Message{},
		},
	}
	result, err := entryPoint(ctx, call.Calldata)
	if err != nil {
		return nil, err
	}

	ctx.invocation.Result = derefAll(result)
	ctx.resources.Steps = budget.Used() - stepsBefore
	ctx.invocation.ExecutionResources = &ctx.resources
	return ctx.invocation, nil
}

func derefAll(felts []*felt.Felt) []felt.Felt {
	values := make([]felt.Felt, len(felts))
	for idx, f := range felts {
		values[idx] = *f
	}
	return values
}
