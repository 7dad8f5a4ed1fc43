package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/NethermindEth/starksim/core/felt"
	"github.com/NethermindEth/starksim/fee"
	"github.com/NethermindEth/starksim/vm"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

type renderer func(w io.Writer, results []batchResult) error

func rendererFor(format string) (renderer, error) {
	switch format {
	case "json":
		return renderJSON, nil
	case "yaml":
		return renderYAML, nil
	case "table":
		return renderTable, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (known: json, yaml, table)", format)
	}
}

func renderJSON(w io.Writer, results []batchResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

// renderYAML goes through JSON so both formats share the same field names.
func renderYAML(w io.Writer, results []batchResult) error {
	data, err := json.Marshal(results)
	if err != nil {
		return err
	}
	var generic any
	if err = yaml.Unmarshal(data, &generic); err != nil {
		return err
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err = encoder.Encode(generic); err != nil {
		return err
	}
	return encoder.Close()
}

func renderTable(w io.Writer, results []batchResult) error {
	var estimates, executions [][]string
	for idx := range results {
		result := &results[idx]
		for i, estimate := range result.Estimates {
			estimates = append(estimates, estimateRow(result.File, i, estimate))
		}
		for i, simulated := range result.Simulations {
			row := executionRow(result.File, i, simulated.Info)
			if simulated.Error != nil {
				row[3] = "FAILED: " + simulated.Error.Message
			}
			executions = append(executions, row)
		}
		for i, trace := range result.Traces {
			executions = append(executions, executionRow(result.File, i, trace.Info))
		}
		if result.Execution != nil {
			executions = append(executions, executionRow(result.File, 0, result.Execution))
		}
		if result.Error != nil {
			index := "-"
			if result.Error.Index != nil {
				index = strconv.Itoa(*result.Error.Index)
			}
			executions = append(executions, []string{
				result.File, index, "-", "FAILED (" + result.Error.Kind.String() + "): " + result.Error.Message,
				"-", "-", "-", "-", "-",
			})
		}
	}

	if len(estimates) > 0 {
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"File", "Index", "Gas consumed", "Gas price", "Data gas consumed",
			"Data gas price", "Overall fee", "Unit"})
		table.AppendBulk(estimates)
		table.Render()
	}
	if len(executions) > 0 {
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"File", "Index", "Type", "Status", "Actual fee", "Unit", "Steps",
			"Events", "Messages"})
		table.AppendBulk(executions)
		table.Render()
	}
	return nil
}

func estimateRow(file string, index int, estimate *fee.FeeEstimate) []string {
	return []string{
		file,
		strconv.Itoa(index),
		estimate.GasConsumed.Dec(),
		estimate.GasPrice.Dec(),
		estimate.DataGasConsumed.Dec(),
		estimate.DataGasPrice.Dec(),
		estimate.OverallFee.Dec(),
		estimate.Unit.String(),
	}
}

func executionRow(file string, index int, info *vm.ExecutionInfo) []string {
	if info == nil {
		return []string{file, strconv.Itoa(index), "-", "-", "-", "-", "-", "-", "-"}
	}

	status := "SUCCEEDED"
	if info.IsReverted() {
		status = "REVERTED: " + info.RevertReason()
	}
	return []string{
		file,
		strconv.Itoa(index),
		info.Type.String(),
		status,
		feltText(info.ActualFee),
		info.FeeUnit.String(),
		strconv.FormatUint(info.Resources.Steps, 10),
		strconv.Itoa(len(info.AllEvents())),
		strconv.Itoa(len(info.AllMessages())),
	}
}

func feltText(f *felt.Felt) string {
	if f == nil {
		return "0"
	}
	return f.Text(felt.Base10)
}
