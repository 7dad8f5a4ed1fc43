package simulation

import (
	"fmt"
	"time"

	"github.com/NethermindEth/starksim/core"
	"github.com/NethermindEth/starksim/fee"
	"github.com/NethermindEth/starksim/utils"
	"github.com/NethermindEth/starksim/vm"
)

// GasPriceSource supplies the gas prices fees are estimated with.
//
//go:generate mockgen -destination=../mocks/mock_gas_price_source.go -package=mocks github.com/NethermindEth/starksim/simulation GasPriceSource
type GasPriceSource interface {
	GasPrices() (core.GasPrices, error)
}

// StaticGasPrices always returns the same prices.
type StaticGasPrices core.GasPrices

func (p StaticGasPrices) GasPrices() (core.GasPrices, error) {
	return core.GasPrices(p), nil
}

type Config struct {
	// DisableFee turns off fee charging for traced transactions.
	DisableFee bool `mapstructure:"disable-fee" json:"disable_fee" yaml:"disable_fee"`
}

// SimulatedTransaction is the outcome of one transaction of a simulated
// batch. Err is set when the transaction failed; StateDiff is then empty.
type SimulatedTransaction struct {
	Info      *vm.ExecutionInfo `json:"execution_info,omitempty"`
	StateDiff *core.StateDiff   `json:"state_diff"`
	Err       error             `json:"-"`
}

type TracedTransaction struct {
	Info      *vm.ExecutionInfo `json:"execution_info"`
	StateDiff *core.StateDiff   `json:"state_diff,omitempty"`
}

// Simulator runs batches of transactions against a state without ever
// persisting their effects.
//
// A call needs exclusive access to the state it is given for its duration.
// Calls sharing a state are safe only while nothing else writes to it, since
// a call itself never writes to the state it is handed.
type Simulator struct {
	executor *vm.Executor
	prices   GasPriceSource
	log      utils.SimpleLogger
	cfg      Config
}

func New(executor *vm.Executor, prices GasPriceSource, log utils.SimpleLogger, cfg Config) *Simulator {
	return &Simulator{
		executor: executor,
		prices:   prices,
		log:      log,
		cfg:      cfg,
	}
}

// WithRollback runs fn against a layer over state and discards the layer on
// every exit path, so state is never modified.
func WithRollback[T any](state core.StateReadWriter, fn func(scope core.StateReadWriter) (T, error)) (T, error) {
	scope := core.NewTransactionalState(state)
	defer scope.Discard()
	return fn(scope)
}

// pricedExecutor returns the current gas prices and an executor using them.
func (s *Simulator) pricedExecutor() (*vm.Executor, core.GasPrices, error) {
	prices, err := s.prices.GasPrices()
	if err != nil {
		return nil, core.GasPrices{}, fmt.Errorf("gas prices: %w", err)
	}
	return s.executor.WithGasPrices(prices), prices, nil
}

func observe(operation string) func() {
	start := time.Now()
	return func() {
		batchDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

func countExecution(operation string, info *vm.ExecutionInfo, err error) {
	if err == nil && info.IsReverted() {
		transactionsCounter.WithLabelValues(operation, outcomeReverted).Inc()
		return
	}
	countTransaction(operation, err)
}

// EstimateFee executes txns in order and estimates the fee of each. Writes
// accumulate across the batch. Any failed or reverted transaction aborts the
// whole batch.
func (s *Simulator) EstimateFee(state core.StateReadWriter, txns []core.Transaction,
	flags vm.SimulationFlags,
) ([]*fee.FeeEstimate, error) {
	defer observe(opEstimateFee)()

	executor, prices, err := s.pricedExecutor()
	if err != nil {
		return nil, err
	}
	header := executor.BlockContext().Header

	return WithRollback(state, func(scope core.StateReadWriter) ([]*fee.FeeEstimate, error) {
		estimates := make([]*fee.FeeEstimate, 0, len(txns))
		for idx, txn := range txns {
			info, err := executor.Execute(txn, scope, flags)
			countExecution(opEstimateFee, info, err)
			if err != nil {
				s.log.Debugw("Transaction execution failed during fee estimation", "index", idx, "err", err)
				return nil, &TransactionExecutionError{Index: idx, Cause: err}
			}
			if info.IsReverted() {
				s.log.Debugw("Transaction execution reverted during fee estimation", "index", idx,
					"reason", info.RevertReason())
				return nil, &TransactionExecutionError{
					Index: idx,
					Cause: fmt.Errorf("%w: %s", ErrTransactionReverted, info.RevertReason()),
				}
			}

			var minimal *vm.GasVector
			if _, isL1Handler := txn.(*core.L1HandlerTransaction); !isL1Handler {
				minimal = utils.HeapPtr(vm.MinimalGasVector(txn, executor.Constants(), header.L1DAMode))
			}
			estimate, err := fee.Estimate(info, prices, core.FeeUnitOf(txn), minimal)
			if err != nil {
				s.log.Debugw("Failed to calculate transaction fee", "index", idx, "err", err)
				return nil, &TransactionExecutionError{Index: idx, Cause: err}
			}
			estimates = append(estimates, estimate)
		}
		return estimates, nil
	})
}

// EstimateMessageFee estimates the fee of consuming an L1 message. The
// message is never charged during execution, so its fee is priced from the
// resources it used.
func (s *Simulator) EstimateMessageFee(state core.StateReadWriter, message *core.L1HandlerTransaction) (*fee.FeeEstimate, error) {
	defer observe(opEstimateMessageFee)()

	executor, prices, err := s.pricedExecutor()
	if err != nil {
		return nil, err
	}

	return WithRollback(state, func(scope core.StateReadWriter) (*fee.FeeEstimate, error) {
		info, err := executor.Execute(message, scope, vm.SimulationFlags{Validate: true, ChargeFee: true})
		countExecution(opEstimateMessageFee, info, err)
		if err != nil {
			s.log.Debugw("Transaction execution failed during fee estimation", "err", err)
			return nil, &TransactionExecutionError{Cause: err}
		}
		if info.IsReverted() {
			s.log.Debugw("Transaction execution reverted during fee estimation", "reason", info.RevertReason())
			return nil, &TransactionExecutionError{
				Cause: fmt.Errorf("%w: %s", ErrTransactionReverted, info.RevertReason()),
			}
		}

		estimate, err := fee.Estimate(info, prices, core.FeeUnitOf(message), nil)
		if err != nil {
			s.log.Debugw("Failed to calculate transaction fee", "err", err)
			return nil, &TransactionExecutionError{Cause: err}
		}
		return estimate, nil
	})
}

// SimulateTransactions executes each transaction in its own layer and
// reports its diff. A failed transaction does not stop the batch; later
// transactions see the committed effects of earlier ones.
func (s *Simulator) SimulateTransactions(state core.StateReadWriter, txns []core.Transaction,
	flags vm.SimulationFlags,
) ([]SimulatedTransaction, error) {
	defer observe(opSimulate)()

	executor, _, err := s.pricedExecutor()
	if err != nil {
		return nil, err
	}

	return WithRollback(state, func(scope core.StateReadWriter) ([]SimulatedTransaction, error) {
		results := make([]SimulatedTransaction, 0, len(txns))
		for idx, txn := range txns {
			txState := core.NewTransactionalState(scope)
			info, execErr := executor.Execute(txn, txState, flags)
			countExecution(opSimulate, info, execErr)

			diff, err := txState.StateDiff()
			if err != nil {
				txState.Discard()
				return nil, &TransactionExecutionError{Index: idx, Cause: err}
			}
			// Later transactions are simulated on top of this one
			if err = txState.Commit(); err != nil {
				s.log.Errorw("Failed to commit state changes", "index", idx, "err", err)
				return nil, &TransactionExecutionError{Index: idx, Cause: err}
			}

			result := SimulatedTransaction{Info: info, StateDiff: diff}
			if execErr != nil {
				s.log.Debugw("Transaction execution failed during simulation", "index", idx, "err", execErr)
				result.Err = &TransactionExecutionError{Index: idx, Cause: execErr}
			}
			results = append(results, result)
		}
		return results, nil
	})
}

// SimulateMessage executes a single L1 message.
func (s *Simulator) SimulateMessage(state core.StateReadWriter, message *core.L1HandlerTransaction,
	flags vm.SimulationFlags,
) (*vm.ExecutionInfo, error) {
	defer observe(opSimulateMessage)()

	executor, _, err := s.pricedExecutor()
	if err != nil {
		return nil, err
	}

	return WithRollback(state, func(scope core.StateReadWriter) (*vm.ExecutionInfo, error) {
		info, err := executor.Execute(message, scope, flags)
		countExecution(opSimulateMessage, info, err)
		if err != nil {
			s.log.Debugw("Transaction execution failed during simulation", "err", err)
			return nil, &TransactionExecutionError{Cause: err}
		}
		return info, nil
	})
}

// ReExecuteTransactions replays before to rebuild the state toTrace ran on,
// then executes each of toTrace in its own layer. A failure anywhere aborts
// the call, since it means the history is inconsistent.
func (s *Simulator) ReExecuteTransactions(state core.StateReadWriter, before, toTrace []core.Transaction,
	withStateDiff bool,
) ([]TracedTransaction, error) {
	defer observe(opReExecute)()

	executor, _, err := s.pricedExecutor()
	if err != nil {
		return nil, err
	}

	return WithRollback(state, func(scope core.StateReadWriter) ([]TracedTransaction, error) {
		for idx, txn := range before {
			if _, err := executor.Execute(txn, scope, vm.SimulationFlags{}); err != nil {
				s.log.Errorw("Failed to reexecute a tx", "index", idx, "err", err)
				return nil, &TransactionExecutionError{Index: idx, Replayed: true, Cause: err}
			}
		}

		flags := vm.SimulationFlags{Validate: true, ChargeFee: !s.cfg.DisableFee}
		traces := make([]TracedTransaction, 0, len(toTrace))
		for idx, txn := range toTrace {
			txState := core.NewTransactionalState(scope)
			info, err := executor.Execute(txn, txState, flags)
			countExecution(opReExecute, info, err)
			if err != nil {
				txState.Discard()
				s.log.Errorw("Failed to reexecute a tx", "index", idx, "err", err)
				return nil, &TransactionExecutionError{Index: idx, Cause: err}
			}

			trace := TracedTransaction{Info: info}
			if withStateDiff {
				if trace.StateDiff, err = txState.StateDiff(); err != nil {
					txState.Discard()
					return nil, &TransactionExecutionError{Index: idx, Cause: err}
				}
			}
			if err = txState.Commit(); err != nil {
				s.log.Errorw("Failed to commit state changes", "index", idx, "err", err)
				return nil, &TransactionExecutionError{Index: idx, Cause: err}
			}
			traces = append(traces, trace)
		}
		return traces, nil
	})
}
