package vm

import (
	"encoding/json"
	"errors"
	"slices"

	"github.com/NethermindEth/starksim/core"
	"github.com/NethermindEth/starksim/core/felt"
	"github.com/NethermindEth/starksim/utils"
)

type TransactionType uint8

const (
	Invalid TransactionType = iota
	TxnDeclare
	TxnDeployAccount
	TxnInvoke
	TxnL1Handler
)

func (t TransactionType) String() string {
	switch t {
	case TxnDeclare:
		return "DECLARE"
	case TxnDeployAccount:
		return "DEPLOY_ACCOUNT"
	case TxnInvoke:
		return "INVOKE"
	case TxnL1Handler:
		return "L1_HANDLER"
	default:
		return "<unknown>"
	}
}

func (t TransactionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TransactionType) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"DECLARE"`:
		*t = TxnDeclare
	case `"DEPLOY_ACCOUNT"`:
		*t = TxnDeployAccount
	case `"INVOKE"`, `"INVOKE_FUNCTION"`:
		*t = TxnInvoke
	case `"L1_HANDLER"`:
		*t = TxnL1Handler
	default:
		return errors.New("unknown TransactionType")
	}
	return nil
}

func transactionTypeOf(txn core.Transaction) TransactionType {
	switch txn.(type) {
	case *core.DeclareTransaction:
		return TxnDeclare
	case *core.DeployAccountTransaction:
		return TxnDeployAccount
	case *core.InvokeTransaction:
		return TxnInvoke
	case *core.L1HandlerTransaction:
		return TxnL1Handler
	default:
		return Invalid
	}
}

// ExecutionInfo is the outcome of executing a single transaction. A reverted
// transaction still consumed resources and was charged; hard failures never
// produce an ExecutionInfo.
type ExecutionInfo struct {
	Type                  TransactionType     `json:"type,omitempty"`
	ValidateInvocation    *FunctionInvocation `json:"validate_invocation,omitempty"`
	ExecuteInvocation     *ExecuteInvocation  `json:"execute_invocation,omitempty"`
	FeeTransferInvocation *FunctionInvocation `json:"fee_transfer_invocation,omitempty"`
	ConstructorInvocation *FunctionInvocation `json:"constructor_invocation,omitempty"`
	FunctionInvocation    *FunctionInvocation `json:"function_invocation,omitempty"`

	ActualFee        *felt.Felt           `json:"actual_fee"`
	FeeUnit          core.FeeUnit         `json:"fee_unit"`
	GasConsumed      GasVector            `json:"gas_consumed"`
	DataAvailability GasVector            `json:"data_availability"`
	Resources        ComputationResources `json:"execution_resources"`
}

func (e *ExecutionInfo) RevertReason() string {
	if e.ExecuteInvocation == nil {
		return ""
	}
	return e.ExecuteInvocation.RevertReason
}

func (e *ExecutionInfo) IsReverted() bool {
	return e.RevertReason() != ""
}

func (e *ExecutionInfo) allInvocations() []*FunctionInvocation {
	var executeInvocation *FunctionInvocation
	if e.ExecuteInvocation != nil {
		executeInvocation = e.ExecuteInvocation.FunctionInvocation
	}
	return slices.DeleteFunc([]*FunctionInvocation{
		e.ConstructorInvocation,
		e.ValidateInvocation,
		executeInvocation,
		e.FeeTransferInvocation,
		e.FunctionInvocation,
	}, func(i *FunctionInvocation) bool { return i == nil })
}

// AllEvents returns the events of every invocation, renumbered in the order
// they were emitted.
func (e *ExecutionInfo) AllEvents() []OrderedEvent {
	events := make([]OrderedEvent, 0)
	globalOrder := 0

	addEvents := func(invocation *FunctionInvocation) {
		if invocation != nil {
			allEvents := invocation.allEvents()
			for _, event := range allEvents {
				event.Order += uint64(globalOrder)
				events = append(events, event)
			}
			globalOrder += len(allEvents)
		}
	}

	var executeInvocation *FunctionInvocation
	if e.ExecuteInvocation != nil {
		executeInvocation = e.ExecuteInvocation.FunctionInvocation
	}
	if e.Type == TxnDeployAccount {
		addEvents(e.ConstructorInvocation)
		addEvents(e.ValidateInvocation)
	} else {
		addEvents(e.ValidateInvocation)
		addEvents(executeInvocation)
	}
	addEvents(e.FunctionInvocation)
	addEvents(e.FeeTransferInvocation)

	return events
}

func (e *ExecutionInfo) AllMessages() []OrderedL2toL1Message {
	messages := make([]OrderedL2toL1Message, 0)
	for _, invocation := range e.allInvocations() {
		messages = append(messages, invocation.allMessages()...)
	}
	return messages
}

type FunctionInvocation struct {
	ContractAddress    felt.Felt              `json:"contract_address"`
	EntryPointSelector *felt.Felt             `json:"entry_point_selector,omitempty"`
	Calldata           []felt.Felt            `json:"calldata"`
	CallerAddress      felt.Felt              `json:"caller_address"`
	ClassHash          *felt.Felt             `json:"class_hash,omitempty"`
	EntryPointType     EntryPointType         `json:"entry_point_type"`
	CallType           CallType               `json:"call_type"`
	Result             []felt.Felt            `json:"result"`
	Calls              []FunctionInvocation   `json:"calls"`
	Events             []OrderedEvent         `json:"events"`
	Messages           []OrderedL2toL1Message `json:"messages"`
	ExecutionResources *ComputationResources  `json:"execution_resources,omitempty"`
}

func (invocation *FunctionInvocation) allEvents() []OrderedEvent {
	events := make([]OrderedEvent, 0)
	for i := range invocation.Calls {
		events = append(events, invocation.Calls[i].allEvents()...)
	}
	return append(events, utils.Map(invocation.Events, func(e OrderedEvent) OrderedEvent {
		e.From = &invocation.ContractAddress
		return e
	})...)
}

func (invocation *FunctionInvocation) allMessages() []OrderedL2toL1Message {
	messages := make([]OrderedL2toL1Message, 0)
	for i := range invocation.Calls {
		messages = append(messages, invocation.Calls[i].allMessages()...)
	}
	return append(messages, utils.Map(invocation.Messages, func(m OrderedL2toL1Message) OrderedL2toL1Message {
		m.From = &invocation.ContractAddress
		return m
	})...)
}

type ExecuteInvocation struct {
	RevertReason        string `json:"revert_reason"`
	*FunctionInvocation `json:",omitempty"`
}

func (e ExecuteInvocation) MarshalJSON() ([]byte, error) {
	if e.FunctionInvocation != nil {
		return json.Marshal(e.FunctionInvocation)
	}
	type alias ExecuteInvocation
	return json.Marshal(alias(e))
}

type OrderedEvent struct {
	Order uint64       `json:"order"`
	From  *felt.Felt   `json:"from_address,omitempty"`
	Keys  []*felt.Felt `json:"keys"`
	Data  []*felt.Felt `json:"data"`
}

type OrderedL2toL1Message struct {
	Order   uint64       `json:"order"`
	From    *felt.Felt   `json:"from_address,omitempty"`
	To      *felt.Felt   `json:"to_address"`
	Payload []*felt.Felt `json:"payload"`
}

type ComputationResources struct {
	Steps       uint64 `json:"steps"`
	MemoryHoles uint64 `json:"memory_holes,omitempty"`
	Pedersen    uint64 `json:"pedersen_builtin_applications,omitempty"`
	RangeCheck  uint64 `json:"range_check_builtin_applications,omitempty"`
	Bitwise     uint64 `json:"bitwise_builtin_applications,omitempty"`
	Ecdsa       uint64 `json:"ecdsa_builtin_applications,omitempty"`
	EcOp        uint64 `json:"ec_op_builtin_applications,omitempty"`
	Keccak      uint64 `json:"keccak_builtin_applications,omitempty"`
	Poseidon    uint64 `json:"poseidon_builtin_applications,omitempty"`
}

// Add accumulates other into r.
func (r *ComputationResources) Add(other *ComputationResources) {
	if other == nil {
		return
	}
	r.Steps += other.Steps
	r.MemoryHoles += other.MemoryHoles
	r.Pedersen += other.Pedersen
	r.RangeCheck += other.RangeCheck
	r.Bitwise += other.Bitwise
	r.Ecdsa += other.Ecdsa
	r.EcOp += other.EcOp
	r.Keccak += other.Keccak
	r.Poseidon += other.Poseidon
}

// GasVector is an amount of both L1 cost dimensions.
type GasVector struct {
	L1Gas     uint64 `json:"l1_gas"`
	L1DataGas uint64 `json:"l1_data_gas"`
}

// Add returns the componentwise sum, saturating at the maximum uint64.
func (g GasVector) Add(other GasVector) GasVector {
	return GasVector{
		L1Gas:     saturatingAdd(g.L1Gas, other.L1Gas),
		L1DataGas: saturatingAdd(g.L1DataGas, other.L1DataGas),
	}
}

func saturatingAdd(a, b uint64) uint64 {
	if sum := a + b; sum >= a {
		return sum
	}
	return ^uint64(0)
}

func saturatingMul(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	if product := a * b; product/b == a {
		return product
	}
	return ^uint64(0)
}
