package native

import (
	"github.com/NethermindEth/starksim/core"
	"github.com/NethermindEth/starksim/core/crypto"
	"github.com/NethermindEth/starksim/core/felt"
	"github.com/NethermindEth/starksim/vm"
)

// Context is the view a running entry point has of the chain. Every
// operation is charged to the call's step budget.
type Context struct {
	engine  *Engine
	order   *ordering
	state   core.StateReadWriter
	budget  *vm.StepBudget
	txCtx   *vm.TxContext
	address *felt.Felt
	caller  *felt.Felt

	invocation *vm.FunctionInvocation
	resources  vm.ComputationResources
}

func (c *Context) ContractAddress() *felt.Felt {
	return c.address
}

func (c *Context) CallerAddress() *felt.Felt {
	return c.caller
}

func (c *Context) TxInfo() *vm.TxContext {
	return c.txCtx
}

func (c *Context) ConsumeSteps(steps uint64) error {
	return c.budget.Consume(steps)
}

func (c *Context) StorageRead(key *felt.Felt) (*felt.Felt, error) {
	if err := c.budget.Consume(storageReadSteps); err != nil {
		return nil, err
	}
	return c.state.ContractStorage(c.address, key)
}

func (c *Context) StorageWrite(key, value *felt.Felt) error {
	if err := c.budget.Consume(storageWriteSteps); err != nil {
		return err
	}
	return c.state.SetStorage(c.address, key, value)
}

// CallContract calls selector on the contract at addr with the current
// contract as caller. A failing callee fails the caller too.
func (c *Context) CallContract(addr, selector *felt.Felt, calldata []*felt.Felt) ([]*felt.Felt, error) {
	invocation, err := c.engine.call(&vm.CallInfo{
		ContractAddress: addr,
		Selector:        selector,
		Calldata:        calldata,
		CallerAddress:   c.address,
		EntryPointType:  vm.External,
		CallType:        vm.CallTypeCall,
	}, c.state, c.budget, c.txCtx, c.order)
	if err != nil {
		return nil, err
	}

	c.invocation.Calls = append(c.invocation.Calls, *invocation)
	nested := *invocation.ExecutionResources
	// steps of the callee are already part of the caller's budget delta
	nested.Steps = 0
	c.resources.Add(&nested)

	result := make([]*felt.Felt, len(invocation.Result))
	for idx := range invocation.Result {
		result[idx] = invocation.Result[idx].Clone()
	}
	return result, nil
}

func (c *Context) EmitEvent(keys, data []*felt.Felt) error {
	if err := c.budget.Consume(emitEventSteps); err != nil {
		return err
	}
	c.invocation.Events = append(c.invocation.Events, vm.OrderedEvent{
		Order: c.order.events,
		Keys:  keys,
		Data:  data,
	})
	c.order.events++
	return nil
}

func (c *Context) SendMessageToL1(to *felt.Felt, payload []*felt.Felt) error {
	if err := c.budget.Consume(sendMessageSteps); err != nil {
		return err
	}
	c.invocation.Messages = append(c.invocation.Messages, vm.OrderedL2toL1Message{
		Order:   c.order.messages,
		To:      to,
		Payload: payload,
	})
	c.order.messages++
	return nil
}

// Pedersen hashes a and b using the pedersen builtin.
func (c *Context) Pedersen(a, b *felt.Felt) *felt.Felt {
	c.resources.Pedersen++
	return crypto.Pedersen(a, b)
}

// RangeCheck records n uses of the range check builtin.
func (c *Context) RangeCheck(n uint64) {
	c.resources.RangeCheck += n
}
