package vm

import (
	"errors"
	"fmt"
	"slices"

	"github.com/NethermindEth/starksim/core"
	"github.com/NethermindEth/starksim/core/crypto"
	"github.com/NethermindEth/starksim/core/felt"
	"github.com/NethermindEth/starksim/utils"
	"github.com/holiman/uint256"
)

const (
	insufficientMaxFeeReason  = "Insufficient max fee"
	insufficientBalanceReason = "Insufficient fee token balance"
)

var (
	executeSelector         = crypto.Selector("__execute__")
	validateSelector        = crypto.Selector("__validate__")
	validateDeclareSelector = crypto.Selector("__validate_declare__")
	validateDeploySelector  = crypto.Selector("__validate_deploy__")
	constructorSelector     = crypto.Selector("constructor")
)

var supportedVersions = map[TransactionType][]uint64{
	TxnInvoke:        {0, 1, 3},
	TxnDeclare:       {0, 1, 2, 3},
	TxnDeployAccount: {1, 3},
	TxnL1Handler:     {0},
}

type SimulationFlags struct {
	Validate  bool `json:"validate" yaml:"validate"`
	ChargeFee bool `json:"charge_fee" yaml:"charge_fee"`
}

type FeeTokenAddresses struct {
	EthAddress  *felt.Felt
	StrkAddress *felt.Felt
}

// For returns the token fees in unit are paid with.
func (t FeeTokenAddresses) For(unit core.FeeUnit) *felt.Felt {
	if unit == core.FRI {
		return t.StrkAddress
	}
	return t.EthAddress
}

// BlockContext is the block transactions are executed in.
type BlockContext struct {
	Header    *core.Header
	ChainID   *felt.Felt
	FeeTokens FeeTokenAddresses
}

// Executor runs transactions against a state. It holds no state of its own
// between calls.
type Executor struct {
	engine    Engine
	blockCtx  BlockContext
	constants *VersionedConstants
	log       utils.SimpleLogger
}

func NewExecutor(engine Engine, blockCtx *BlockContext, log utils.SimpleLogger) (*Executor, error) {
	if blockCtx == nil || blockCtx.Header == nil {
		return nil, errors.New("block context requires a header")
	}
	constants, err := VersionedConstantsFor(blockCtx.Header.ProtocolVersion)
	if err != nil {
		return nil, err
	}

	header := *blockCtx.Header
	if header.SequencerAddress == nil {
		header.SequencerAddress = &felt.Zero
	}
	ctx := *blockCtx
	ctx.Header = &header
	return &Executor{
		engine:    engine,
		blockCtx:  ctx,
		constants: constants,
		log:       log,
	}, nil
}

// WithGasPrices returns a copy of the executor that prices gas at prices.
func (e *Executor) WithGasPrices(prices core.GasPrices) *Executor {
	header := *e.blockCtx.Header
	header.GasPrices = prices

	clone := *e
	clone.blockCtx.Header = &header
	return &clone
}

func (e *Executor) BlockContext() BlockContext {
	return e.blockCtx
}

func (e *Executor) Constants() *VersionedConstants {
	return e.constants
}

// Execute runs txn against state. On success every write of txn has been
// committed to state. On error state is left untouched.
func (e *Executor) Execute(txn core.Transaction, state core.StateReadWriter, flags SimulationFlags) (*ExecutionInfo, error) {
	if err := checkVersion(txn); err != nil {
		return nil, err
	}

	txState := core.NewTransactionalState(state)
	var (
		info *ExecutionInfo
		err  error
	)
	switch t := txn.(type) {
	case *core.L1HandlerTransaction:
		info, err = e.executeL1Handler(t, txState)
	case *core.InvokeTransaction, *core.DeclareTransaction, *core.DeployAccountTransaction:
		info, err = e.executeAccountTransaction(newAccountTxn(txn, e.blockCtx), state, txState, flags)
	default:
		err = fmt.Errorf("%w: %T", ErrUnsupportedTransaction, txn)
	}
	if err != nil {
		txState.Discard()
		return nil, err
	}

	if err = txState.Commit(); err != nil {
		return nil, err
	}
	return info, nil
}

func checkVersion(txn core.Transaction) error {
	typ := transactionTypeOf(txn)
	if typ == Invalid {
		return fmt.Errorf("%w: %T", ErrUnsupportedTransaction, txn)
	}
	version := txn.TxVersion()
	if version == nil {
		return fmt.Errorf("%w: %s without version", ErrUnsupportedTransaction, typ)
	}
	plain := version.WithoutQueryBit()
	if plain.AsFelt().IsUint64() && slices.Contains(supportedVersions[typ], version.Uint64()) {
		return nil
	}
	return fmt.Errorf("%w: %s version %s", ErrUnsupportedTransaction, typ, version)
}

// checksNonce reports whether txn carries a nonce that has to match the sender's.
func checksNonce(txn core.Transaction) bool {
	switch t := txn.(type) {
	case *core.InvokeTransaction:
		return !t.Version.Is(0)
	case *core.DeclareTransaction:
		return !t.Version.Is(0)
	case *core.DeployAccountTransaction:
		return true
	default:
		return false
	}
}

// accountTxn is an account transaction together with the values derived
// from it that the execution phases share.
type accountTxn struct {
	txn        core.Transaction
	typ        TransactionType
	sender     *felt.Felt
	nonce      *felt.Felt
	unit       core.FeeUnit
	maxFee     *uint256.Int
	enforceFee bool
	revertible bool
	txCtx      *TxContext
}

func newAccountTxn(txn core.Transaction, blockCtx BlockContext) *accountTxn {
	sender := core.SenderAddress(txn)
	if deployAccount, ok := txn.(*core.DeployAccountTransaction); ok && sender == nil {
		sender = core.ContractAddress(&felt.Zero, deployAccount.ClassHash,
			deployAccount.ContractAddressSalt, deployAccount.ConstructorCallData)
	}
	nonce := core.TransactionNonce(txn)
	if nonce == nil {
		nonce = &felt.Zero
	}

	maxFee, overflow := uint256.FromBig(core.MaxFeeOf(txn))
	if overflow {
		maxFee = maxUint256.Clone()
	}

	invoke, isInvoke := txn.(*core.InvokeTransaction)
	return &accountTxn{
		txn:        txn,
		typ:        transactionTypeOf(txn),
		sender:     sender,
		nonce:      nonce,
		unit:       core.FeeUnitOf(txn),
		maxFee:     maxFee,
		enforceFee: !maxFee.IsZero(),
		revertible: isInvoke && !invoke.Version.Is(0),
		txCtx: &TxContext{
			Hash:          txn.Hash(),
			Version:       txn.TxVersion(),
			SenderAddress: sender,
			Signature:     txn.Signature(),
			Nonce:         nonce,
			MaxFee:        Uint256ToFelt(maxFee),
			ChainID:       blockCtx.ChainID,
			Header:        blockCtx.Header,
		},
	}
}

func (e *Executor) executeAccountTransaction(tx *accountTxn, state core.StateReadWriter,
	txState *core.TransactionalState, flags SimulationFlags,
) (*ExecutionInfo, error) {
	info := &ExecutionInfo{Type: tx.typ, FeeUnit: tx.unit}
	feeToken := e.blockCtx.FeeTokens.For(tx.unit)
	if feeToken == nil {
		return nil, fmt.Errorf("no fee token configured for %s", tx.unit)
	}

	if declare, ok := tx.txn.(*core.DeclareTransaction); ok {
		if err := checkDeclare(declare, txState); err != nil {
			return nil, err
		}
	}
	if err := e.handleNonce(tx, txState); err != nil {
		return nil, err
	}
	if flags.ChargeFee && tx.enforceFee {
		if err := e.checkFeeBounds(tx, txState, feeToken); err != nil {
			return nil, err
		}
	}

	budget := NewStepBudget(e.constants.InvokeTxMaxSteps)
	if deployAccount, ok := tx.txn.(*core.DeployAccountTransaction); ok {
		constructor, err := e.deployAccount(deployAccount, tx, txState, budget)
		if err != nil {
			return nil, err
		}
		info.ConstructorInvocation = constructor
	}

	if flags.Validate {
		validate, err := e.validate(tx, txState)
		if err != nil {
			return nil, err
		}
		info.ValidateInvocation = validate
	}

	// execLayer holds the writes of a revertible execution until the fee
	// checks decide whether they are kept.
	var (
		execLayer     *core.TransactionalState
		revertedSteps uint64
	)
	switch t := tx.txn.(type) {
	case *core.DeclareTransaction:
		if err := declareClass(t, txState); err != nil {
			return nil, err
		}
	case *core.InvokeTransaction:
		call := &CallInfo{
			ContractAddress: tx.sender,
			Selector:        executeSelector,
			Calldata:        t.CallData,
			CallerAddress:   &felt.Zero,
			EntryPointType:  External,
		}
		if !tx.revertible {
			call.Selector = t.EntryPointSelector
			invocation, err := e.engine.Call(call, txState, budget, tx.txCtx)
			if err != nil {
				return nil, fmt.Errorf("execute: %w", err)
			}
			info.ExecuteInvocation = &ExecuteInvocation{FunctionInvocation: invocation}
			break
		}

		execLayer = core.NewTransactionalState(txState)
		invocation, err := e.engine.Call(call, execLayer, budget, tx.txCtx)
		switch {
		case err == nil:
			info.ExecuteInvocation = &ExecuteInvocation{FunctionInvocation: invocation}
		case IsExecutionFailure(err):
			execLayer.Discard()
			execLayer = nil
			revertedSteps = budget.Used()
			info.ExecuteInvocation = &ExecuteInvocation{RevertReason: err.Error()}
			e.log.Debugw("Transaction reverted", "hash", tx.txn.Hash(), "reason", err.Error())
		default:
			execLayer.Discard()
			return nil, fmt.Errorf("execute: %w", err)
		}
	}

	info.Resources = e.accountResources(info, revertedSteps)
	diffLayer := txState
	if execLayer != nil {
		diffLayer = execLayer
	}
	if err := e.measureGas(info, diffLayer, state, feeToken, tx.sender, 0); err != nil {
		return nil, err
	}

	actualFee, err := info.GasConsumed.Cost(e.blockCtx.Header.GasPrices, tx.unit)
	if err != nil {
		return nil, err
	}
	if flags.ChargeFee && tx.enforceFee && tx.maxFee.Lt(actualFee) {
		if !tx.revertible {
			return nil, fmt.Errorf("%w: max fee %s, actual fee %s", ErrMaxFeeExceeded, tx.maxFee.Dec(), actualFee.Dec())
		}
		if execLayer != nil {
			execLayer.Discard()
			execLayer = nil
			if err = e.revertExecution(tx, info, txState, state, feeToken, insufficientMaxFeeReason); err != nil {
				return nil, err
			}
		}
		actualFee = tx.maxFee.Clone()
	}

	if flags.ChargeFee && tx.enforceFee && execLayer != nil {
		balance, err := ReadBalance(execLayer, feeToken, tx.sender)
		if err != nil {
			return nil, fmt.Errorf("read balance: %w", err)
		}
		if balance.Lt(actualFee) {
			execLayer.Discard()
			execLayer = nil
			if err = e.revertExecution(tx, info, txState, state, feeToken, insufficientBalanceReason); err != nil {
				return nil, err
			}
			if actualFee, err = info.GasConsumed.Cost(e.blockCtx.Header.GasPrices, tx.unit); err != nil {
				return nil, err
			}
			if tx.maxFee.Lt(actualFee) {
				actualFee = tx.maxFee.Clone()
			}
			if balance, err = ReadBalance(txState, feeToken, tx.sender); err != nil {
				return nil, fmt.Errorf("read balance: %w", err)
			}
			if balance.Lt(actualFee) {
				actualFee = balance
			}
		}
	}

	if execLayer != nil {
		if err = execLayer.Commit(); err != nil {
			return nil, err
		}
	}

	if flags.ChargeFee && tx.enforceFee && !actualFee.IsZero() {
		info.FeeTransferInvocation, err = transferFee(txState, feeToken, tx.sender, e.blockCtx.Header.SequencerAddress, actualFee)
		if err != nil {
			return nil, err
		}
	}
	info.ActualFee = Uint256ToFelt(actualFee)
	return info, nil
}

// revertExecution drops the execute call of a revertible transaction,
// keeping its resources, and re-measures gas against txState.
func (e *Executor) revertExecution(tx *accountTxn, info *ExecutionInfo, txState *core.TransactionalState,
	state core.StateReader, feeToken *felt.Felt, reason string,
) error {
	info.ExecuteInvocation = &ExecuteInvocation{RevertReason: reason}
	e.log.Debugw("Transaction reverted", "hash", tx.txn.Hash(), "reason", reason)
	return e.measureGas(info, txState, state, feeToken, tx.sender, 0)
}

// accountResources sums the resources of the transaction's calls and the
// operating system overhead.
func (e *Executor) accountResources(info *ExecutionInfo, revertedSteps uint64) ComputationResources {
	resources := ComputationResources{Steps: e.constants.OSSteps[info.Type]}
	for _, invocation := range []*FunctionInvocation{info.ConstructorInvocation, info.ValidateInvocation} {
		if invocation != nil {
			resources.Add(invocation.ExecutionResources)
		}
	}
	if info.ExecuteInvocation != nil && info.ExecuteInvocation.FunctionInvocation != nil {
		resources.Add(info.ExecuteInvocation.ExecutionResources)
	}
	resources.Steps = saturatingAdd(resources.Steps, revertedSteps)
	return resources
}

// measureGas fills the gas vectors of info from its resources and the
// cumulative diff of layer relative to base.
func (e *Executor) measureGas(info *ExecutionInfo, layer *core.TransactionalState, base core.StateReader,
	feeToken, sender *felt.Felt, extraL1Gas uint64,
) error {
	diff, err := layer.CumulativeStateDiff(base)
	if err != nil {
		return fmt.Errorf("state diff: %w", err)
	}

	changes := StateChangesOf(diff)
	if sender != nil {
		changes = changes.withFeeTransfer(diff, feeToken, sender)
	}
	info.DataAvailability = e.constants.DataAvailabilityGas(changes.DataFelts(), e.blockCtx.Header.L1DAMode)

	l1Gas := e.constants.ComputationGas(&info.Resources)
	l1Gas = saturatingAdd(l1Gas, e.constants.MessagesGas(info.AllMessages()))
	l1Gas = saturatingAdd(l1Gas, extraL1Gas)
	info.GasConsumed = GasVector{L1Gas: l1Gas}.Add(info.DataAvailability)
	return nil
}

func (e *Executor) handleNonce(tx *accountTxn, state *core.TransactionalState) error {
	if !checksNonce(tx.txn) {
		return nil
	}

	current, err := state.ContractNonce(tx.sender)
	if err != nil {
		return fmt.Errorf("get nonce: %w", err)
	}
	if !current.Equal(tx.nonce) {
		return &ValidationError{
			Failure: InvalidNonce,
			Details: fmt.Sprintf("account %s expected nonce %s, got %s", tx.sender, current, tx.nonce),
		}
	}
	return state.IncrementNonce(tx.sender)
}

func (e *Executor) checkFeeBounds(tx *accountTxn, state core.StateReader, feeToken *felt.Felt) error {
	prices := e.blockCtx.Header.GasPrices
	minimalFee, err := MinimalGasVector(tx.txn, e.constants, e.blockCtx.Header.L1DAMode).Cost(prices, tx.unit)
	if err != nil {
		return err
	}
	if tx.maxFee.Lt(minimalFee) {
		return &ValidationError{
			Failure: MaxFeeTooLow,
			Details: fmt.Sprintf("max fee %s, minimal fee %s", tx.maxFee.Dec(), minimalFee.Dec()),
		}
	}

	if bounds, ok := core.ResourceBoundsOf(tx.txn)[core.ResourceL1Gas]; ok && prices.L1Gas.PriceInFri != nil {
		maxPrice := &felt.Zero
		if bounds.MaxPricePerUnit != nil {
			maxPrice = bounds.MaxPricePerUnit
		}
		if maxPrice.Cmp(prices.L1Gas.PriceInFri) < 0 {
			return &ValidationError{
				Failure: MaxFeeTooLow,
				Details: fmt.Sprintf("max l1 gas price %s, actual %s", maxPrice, prices.L1Gas.PriceInFri),
			}
		}
	}

	balance, err := ReadBalance(state, feeToken, tx.sender)
	if err != nil {
		return fmt.Errorf("read balance: %w", err)
	}
	if balance.Lt(tx.maxFee) {
		return &ValidationError{
			Failure: InsufficientBalance,
			Details: fmt.Sprintf("balance %s, max fee %s", balance.Dec(), tx.maxFee.Dec()),
		}
	}
	return nil
}

func (e *Executor) deployAccount(t *core.DeployAccountTransaction, tx *accountTxn, state *core.TransactionalState,
	budget *StepBudget,
) (*FunctionInvocation, error) {
	if t.ContractAddress != nil {
		expected := core.ContractAddress(&felt.Zero, t.ClassHash, t.ContractAddressSalt, t.ConstructorCallData)
		if !expected.Equal(t.ContractAddress) {
			return nil, &ValidationError{
				Failure: InvalidContractAddress,
				Details: fmt.Sprintf("expected %s, got %s", expected, t.ContractAddress),
			}
		}
	}

	deployed, err := core.IsDeployed(state, tx.sender)
	if err != nil {
		return nil, err
	}
	if deployed {
		return nil, &ValidationError{
			Failure: InvalidContractAddress,
			Details: fmt.Sprintf("contract already deployed at %s", tx.sender),
		}
	}
	if _, err = state.Class(t.ClassHash); err != nil {
		return nil, fmt.Errorf("deploy account class %s: %w", t.ClassHash, err)
	}
	if err = state.SetClassHash(tx.sender, t.ClassHash); err != nil {
		return nil, err
	}

	invocation, err := e.engine.Call(&CallInfo{
		ContractAddress: tx.sender,
		ClassHash:       t.ClassHash,
		Selector:        constructorSelector,
		Calldata:        t.ConstructorCallData,
		CallerAddress:   &felt.Zero,
		EntryPointType:  Constructor,
	}, state, budget, tx.txCtx)
	if err != nil {
		return nil, fmt.Errorf("constructor: %w", err)
	}
	return invocation, nil
}

func (e *Executor) validate(tx *accountTxn, state core.StateReadWriter) (*FunctionInvocation, error) {
	call := &CallInfo{
		ContractAddress: tx.sender,
		CallerAddress:   &felt.Zero,
		EntryPointType:  External,
	}
	switch t := tx.txn.(type) {
	case *core.InvokeTransaction:
		if t.Version.Is(0) {
			return nil, nil
		}
		call.Selector = validateSelector
		call.Calldata = t.CallData
	case *core.DeclareTransaction:
		if t.Version.Is(0) {
			return nil, nil
		}
		call.Selector = validateDeclareSelector
		call.Calldata = []*felt.Felt{t.ClassHash}
	case *core.DeployAccountTransaction:
		call.Selector = validateDeploySelector
		call.Calldata = append([]*felt.Felt{t.ClassHash, t.ContractAddressSalt}, t.ConstructorCallData...)
	}

	invocation, err := e.engine.Call(call, state, NewStepBudget(e.constants.ValidateMaxSteps), tx.txCtx)
	if err != nil {
		if IsExecutionFailure(err) {
			return nil, &ValidationError{
				Failure: ValidateEntryPointFailed,
				Details: "signature [" + utils.FeltArrToString(tx.txCtx.Signature) + "]",
				Err:     err,
			}
		}
		return nil, fmt.Errorf("validate: %w", err)
	}
	return invocation, nil
}

// checkDeclare rejects a declare transaction before it runs when its class
// is already declared or either of its hashes does not match the class.
func checkDeclare(t *core.DeclareTransaction, state core.StateReader) error {
	if t.Class == nil {
		return fmt.Errorf("%w: declare transaction without class", ErrUnsupportedTransaction)
	}
	classHash, err := t.Class.Hash()
	if err != nil {
		return fmt.Errorf("class hash: %w", err)
	}
	if t.ClassHash == nil || !classHash.Equal(t.ClassHash) {
		return &ValidationError{
			Failure: InvalidClassHash,
			Details: fmt.Sprintf("expected %s, got %s", classHash, t.ClassHash),
		}
	}

	if _, err := state.Class(t.ClassHash); err == nil {
		return &ValidationError{Failure: ClassAlreadyDeclared, Details: t.ClassHash.String()}
	} else if !errors.Is(err, core.ErrClassNotDeclared) {
		return fmt.Errorf("get class: %w", err)
	}

	if t.Version.Uint64() < 2 {
		return nil
	}
	sierra, ok := t.Class.(*core.SierraClass)
	if !ok {
		return fmt.Errorf("%w: declare v%d requires a sierra class", ErrUnsupportedTransaction, t.Version.Uint64())
	}
	derived, err := sierra.Compiled.Hash()
	if err != nil {
		return fmt.Errorf("compiled class hash: %w", err)
	}
	if t.CompiledClassHash == nil || !derived.Equal(t.CompiledClassHash) {
		return &ClassHashMismatchError{ClassHash: t.ClassHash, Declared: t.CompiledClassHash, Derived: derived}
	}
	return nil
}

func declareClass(t *core.DeclareTransaction, state core.StateWriter) error {
	if err := state.SetContractClass(t.ClassHash, t.Class); err != nil {
		return fmt.Errorf("declare class: %w", err)
	}
	if t.Version.Uint64() >= 2 {
		if err := state.SetCompiledClassHash(t.ClassHash, t.CompiledClassHash); err != nil {
			return fmt.Errorf("set compiled class hash: %w", err)
		}
	}
	return nil
}

// executeL1Handler runs a message from L1. There is no account to validate
// or charge, so any failure is a hard error.
func (e *Executor) executeL1Handler(t *core.L1HandlerTransaction, txState *core.TransactionalState) (*ExecutionInfo, error) {
	txCtx := &TxContext{
		Hash:      t.Hash(),
		Version:   t.Version,
		Signature: t.Signature(),
		Nonce:     t.Nonce,
		MaxFee:    &felt.Zero,
		ChainID:   e.blockCtx.ChainID,
		Header:    e.blockCtx.Header,
	}
	invocation, err := e.engine.Call(&CallInfo{
		ContractAddress: t.ContractAddress,
		Selector:        t.EntryPointSelector,
		Calldata:        t.CallData,
		CallerAddress:   &felt.Zero,
		EntryPointType:  L1Handler,
	}, txState, NewStepBudget(e.constants.InvokeTxMaxSteps), txCtx)
	if err != nil {
		return nil, fmt.Errorf("l1 handler: %w", err)
	}

	info := &ExecutionInfo{
		Type:               TxnL1Handler,
		FunctionInvocation: invocation,
		ActualFee:          &felt.Zero,
		FeeUnit:            core.WEI,
	}
	info.Resources = ComputationResources{Steps: e.constants.OSSteps[TxnL1Handler]}
	info.Resources.Add(invocation.ExecutionResources)
	if err = e.measureGas(info, txState, txState.Parent(), nil, nil,
		e.constants.L1HandlerGas(len(t.CallData))); err != nil {
		return nil, err
	}
	return info, nil
}
