package main

import (
	"errors"
	"fmt"

	"github.com/NethermindEth/starksim/batch"
	"github.com/NethermindEth/starksim/core"
	"github.com/NethermindEth/starksim/fee"
	"github.com/NethermindEth/starksim/node"
	"github.com/NethermindEth/starksim/simulation"
	"github.com/NethermindEth/starksim/utils"
	"github.com/NethermindEth/starksim/vm"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"
)

const (
	skipValidateF  = "skip-validate"
	skipFeeChargeF = "skip-fee-charge"
	beforeF        = "before"
	stateDiffF     = "with-state-diff"

	skipValidateUsage  = "Skips the validate entry point of the sender account."
	skipFeeChargeUsage = "Skips the fee transfer and the balance check."
	beforeUsage        = "Batch file replayed, without validation or fees, before the traced transactions."
	stateDiffUsage     = "Reports the state diff of every traced transaction."
)

var errMissingMessage = errors.New("batch has no message")

// batchResult is the outcome of running one batch file. Error is set when
// the operation failed as a whole.
type batchResult struct {
	File        string                         `json:"file"`
	Estimates   []*fee.FeeEstimate             `json:"fee_estimates,omitempty"`
	Simulations []simulatedTransaction         `json:"simulated_transactions,omitempty"`
	Traces      []simulation.TracedTransaction `json:"traces,omitempty"`
	Execution   *vm.ExecutionInfo              `json:"execution_info,omitempty"`
	Error       *batchError                    `json:"error,omitempty"`
}

type simulatedTransaction struct {
	Info      *vm.ExecutionInfo `json:"execution_info,omitempty"`
	StateDiff *core.StateDiff   `json:"state_diff"`
	Error     *batchError       `json:"error,omitempty"`
}

type batchError struct {
	Kind    simulation.ErrorKind `json:"kind"`
	Index   *int                 `json:"index,omitempty"`
	Message string               `json:"message"`
}

func newBatchError(err error) *batchError {
	if err == nil {
		return nil
	}
	result := &batchError{Kind: simulation.Classify(err), Message: err.Error()}
	var txnErr *simulation.TransactionExecutionError
	if errors.As(err, &txnErr) {
		result.Index = &txnErr.Index
	}
	return result
}

// invalidBatch marks a batch file that could not be read or adapted.
type invalidBatch struct {
	err error
}

func (e *invalidBatch) Error() string { return e.err.Error() }
func (e *invalidBatch) Unwrap() error { return e.err }

// runFn runs the operation of a command against one adapted batch.
type runFn func(n *node.Node, txns []core.Transaction, message *core.L1HandlerTransaction, result *batchResult) error

func simulationFlags(cmd *cobra.Command) (vm.SimulationFlags, error) {
	skipValidate, err := cmd.Flags().GetBool(skipValidateF)
	if err != nil {
		return vm.SimulationFlags{}, err
	}
	skipFeeCharge, err := cmd.Flags().GetBool(skipFeeChargeF)
	if err != nil {
		return vm.SimulationFlags{}, err
	}
	return vm.SimulationFlags{Validate: !skipValidate, ChargeFee: !skipFeeCharge}, nil
}

func addSimulationFlags(cmd *cobra.Command) {
	cmd.Flags().Bool(skipValidateF, false, skipValidateUsage)
	cmd.Flags().Bool(skipFeeChargeF, false, skipFeeChargeUsage)
}

func EstimateFeeCmd(newNodeFn NewNodeFn) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate-fee FILE...",
		Short: "Estimate the fee of every transaction of each batch",
		Long: `This subcommand executes the transactions of each batch in order, ` +
			`each on top of the previous ones, and estimates their fees. ` +
			`A failed or reverted transaction fails the whole batch.`,
		Args: cobra.MinimumNArgs(1),
	}
	addSimulationFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		flags, err := simulationFlags(cmd)
		if err != nil {
			return err
		}
		return runBatches(cmd, args, newNodeFn, func(n *node.Node, txns []core.Transaction,
			_ *core.L1HandlerTransaction, result *batchResult,
		) error {
			estimates, err := n.Simulator().EstimateFee(n.State(), txns, flags)
			result.Estimates = estimates
			return err
		})
	}
	return cmd
}

func EstimateMessageFeeCmd(newNodeFn NewNodeFn) *cobra.Command {
	return &cobra.Command{
		Use:   "estimate-message-fee FILE...",
		Short: "Estimate the fee of consuming the L1 message of each batch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatches(cmd, args, newNodeFn, func(n *node.Node, _ []core.Transaction,
				message *core.L1HandlerTransaction, result *batchResult,
			) error {
				if message == nil {
					return &invalidBatch{errMissingMessage}
				}
				estimate, err := n.Simulator().EstimateMessageFee(n.State(), message)
				if estimate != nil {
					result.Estimates = []*fee.FeeEstimate{estimate}
				}
				return err
			})
		},
	}
}

func SimulateCmd(newNodeFn NewNodeFn) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate FILE...",
		Short: "Simulate the transactions of each batch",
		Long: `This subcommand executes the transactions of each batch in order and reports ` +
			`the trace and state diff of each. A failed transaction does not stop the batch.`,
		Args: cobra.MinimumNArgs(1),
	}
	addSimulationFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		flags, err := simulationFlags(cmd)
		if err != nil {
			return err
		}
		return runBatches(cmd, args, newNodeFn, func(n *node.Node, txns []core.Transaction,
			_ *core.L1HandlerTransaction, result *batchResult,
		) error {
			simulated, err := n.Simulator().SimulateTransactions(n.State(), txns, flags)
			if err != nil {
				return err
			}
			result.Simulations = make([]simulatedTransaction, 0, len(simulated))
			for _, txn := range simulated {
				result.Simulations = append(result.Simulations, simulatedTransaction{
					Info:      txn.Info,
					StateDiff: txn.StateDiff,
					Error:     newBatchError(txn.Err),
				})
			}
			return nil
		})
	}
	return cmd
}

func SimulateMessageCmd(newNodeFn NewNodeFn) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate-message FILE...",
		Short: "Simulate consuming the L1 message of each batch",
		Args:  cobra.MinimumNArgs(1),
	}
	addSimulationFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		flags, err := simulationFlags(cmd)
		if err != nil {
			return err
		}
		return runBatches(cmd, args, newNodeFn, func(n *node.Node, _ []core.Transaction,
			message *core.L1HandlerTransaction, result *batchResult,
		) error {
			if message == nil {
				return &invalidBatch{errMissingMessage}
			}
			info, err := n.Simulator().SimulateMessage(n.State(), message, flags)
			result.Execution = info
			return err
		})
	}
	return cmd
}

func TraceCmd(newNodeFn NewNodeFn) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace FILE...",
		Short: "Re-execute the transactions of each batch and trace them",
		Long: `This subcommand replays the transactions of the --before batch, then executes ` +
			`the transactions of each batch on top of them and reports their traces. ` +
			`Any failure fails the whole batch.`,
		Args: cobra.MinimumNArgs(1),
	}
	cmd.Flags().String(beforeF, "", beforeUsage)
	cmd.Flags().Bool(stateDiffF, false, stateDiffUsage)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		beforePath, err := cmd.Flags().GetString(beforeF)
		if err != nil {
			return err
		}
		withStateDiff, err := cmd.Flags().GetBool(stateDiffF)
		if err != nil {
			return err
		}
		return runBatches(cmd, args, newNodeFn, func(n *node.Node, txns []core.Transaction,
			_ *core.L1HandlerTransaction, result *batchResult,
		) error {
			var before []core.Transaction
			if beforePath != "" {
				var err error
				if before, _, err = readBatch(n, beforePath); err != nil {
					return err
				}
			}
			traces, err := n.Simulator().ReExecuteTransactions(n.State(), before, txns, withStateDiff)
			result.Traces = traces
			return err
		})
	}
	return cmd
}

func readBatch(n *node.Node, path string) ([]core.Transaction, *core.L1HandlerTransaction, error) {
	file, err := batch.Read(path)
	if err != nil {
		return nil, nil, &invalidBatch{err}
	}
	txns, message, err := file.Adapt(n.ChainID(), n.Contracts())
	if err != nil {
		return nil, nil, &invalidBatch{fmt.Errorf("%s: %w", path, err)}
	}
	return txns, message, nil
}

// runBatches runs fn for every batch file, up to the configured number of
// files at a time, and renders the results in the order of paths.
func runBatches(cmd *cobra.Command, paths []string, newNodeFn NewNodeFn, fn runFn) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString(outputF)
	if err != nil {
		return err
	}
	render, err := rendererFor(format)
	if err != nil {
		return err
	}

	n, err := newNodeFn(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := n.Close(); closeErr != nil {
			n.Log().Errorw("Error while closing the node", "err", closeErr)
		}
	}()

	results := make([]batchResult, len(paths))
	p := pool.New().WithMaxGoroutines(int(cfg.Parallel))
	for idx, path := range paths {
		p.Go(func() {
			results[idx] = runBatch(n, path, fn)
		})
	}
	p.Wait()

	if err = render(cmd.OutOrStdout(), results); err != nil {
		return err
	}

	failed := utils.Filter(results, func(result batchResult) bool { return result.Error != nil })
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d batches failed", len(failed), len(results))
	}
	return nil
}

func runBatch(n *node.Node, path string, fn runFn) batchResult {
	result := batchResult{File: path}
	txns, message, err := readBatch(n, path)
	if err == nil {
		err = fn(n, txns, message, &result)
	}
	if err != nil {
		n.Log().Debugw("Batch failed", "file", path, "err", err)
		result.Error = newBatchError(err)
		var invalid *invalidBatch
		if errors.As(err, &invalid) {
			result.Error.Kind = simulation.KindValidation
		}
	}
	return result
}
