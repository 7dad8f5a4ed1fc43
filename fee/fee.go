package fee

import (
	"errors"
	"fmt"

	"github.com/NethermindEth/starksim/core"
	"github.com/NethermindEth/starksim/core/felt"
	"github.com/NethermindEth/starksim/vm"
	"github.com/holiman/uint256"
)

var ErrFeeComputation = errors.New("fee computation failed")

// ComputationError is returned when a transaction ran but could not be priced.
type ComputationError struct {
	Err error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("%s: %v", ErrFeeComputation, e.Err)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}

func (e *ComputationError) Is(target error) bool {
	return target == ErrFeeComputation
}

type FeeEstimate struct {
	GasConsumed     *uint256.Int `json:"gas_consumed" yaml:"gas_consumed"`
	GasPrice        *uint256.Int `json:"gas_price" yaml:"gas_price"`
	DataGasConsumed *uint256.Int `json:"data_gas_consumed" yaml:"data_gas_consumed"`
	DataGasPrice    *uint256.Int `json:"data_gas_price" yaml:"data_gas_price"`
	OverallFee      *uint256.Int `json:"overall_fee" yaml:"overall_fee"`
	Unit            core.FeeUnit `json:"unit" yaml:"unit"`
}

// CalculateTxFee prices gas in unit using the resource model.
func CalculateTxFee(gas vm.GasVector, prices core.GasPrices, unit core.FeeUnit) (*uint256.Int, error) {
	fee, err := gas.Cost(prices, unit)
	if err != nil {
		return nil, &ComputationError{Err: err}
	}
	return fee, nil
}

// Estimate derives a fee estimate from an execution. The computation gas is
// recovered from the actual fee once the data gas fee is taken out. When
// minimal is set both gas amounts are floored at it before the overall fee
// is recomputed, so the overall fee may exceed the actual fee.
func Estimate(info *vm.ExecutionInfo, prices core.GasPrices, unit core.FeeUnit, minimal *vm.GasVector) (*FeeEstimate, error) {
	if info == nil {
		return nil, &ComputationError{Err: errors.New("no execution info")}
	}

	gasPrice := prices.L1Gas.In(unit)
	if gasPrice == nil {
		return nil, &ComputationError{Err: fmt.Errorf("%w: l1 gas in %s", vm.ErrMissingGasPrice, unit)}
	}
	dataGasPrice := prices.L1DataGas.In(unit)
	if dataGasPrice == nil {
		dataGasPrice = &felt.Zero
	}
	gasPriceInt := vm.FeltToUint256(gasPrice)
	dataGasPriceInt := vm.FeltToUint256(dataGasPrice)

	actualFee := new(uint256.Int)
	if info.ActualFee != nil {
		actualFee = vm.FeltToUint256(info.ActualFee)
	}
	if actualFee.IsZero() {
		// l1 handlers and unenforced transactions are not charged, so
		// price their resources directly
		var err error
		if actualFee, err = CalculateTxFee(info.GasConsumed, prices, unit); err != nil {
			return nil, err
		}
	}

	dataGasConsumed := uint256.NewInt(info.DataAvailability.L1DataGas)
	dataGasFee := vm.SaturatingMul(dataGasConsumed, dataGasPriceInt)
	gasConsumed := SaturatingSub(actualFee, dataGasFee)
	gasConsumed.Div(gasConsumed, maxOne(gasPriceInt))

	if minimal != nil {
		gasConsumed = maxInt(gasConsumed, uint256.NewInt(minimal.L1Gas))
		dataGasConsumed = maxInt(dataGasConsumed, uint256.NewInt(minimal.L1DataGas))
	}

	overallFee := vm.SaturatingAdd(
		vm.SaturatingMul(gasConsumed, gasPriceInt),
		vm.SaturatingMul(dataGasConsumed, dataGasPriceInt),
	)
	return &FeeEstimate{
		GasConsumed:     gasConsumed,
		GasPrice:        gasPriceInt,
		DataGasConsumed: dataGasConsumed,
		DataGasPrice:    dataGasPriceInt,
		OverallFee:      overallFee,
		Unit:            unit,
	}, nil
}

// SaturatingSub returns x-y, or zero when y is larger.
func SaturatingSub(x, y *uint256.Int) *uint256.Int {
	diff, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return new(uint256.Int)
	}
	return diff
}

func maxOne(x *uint256.Int) *uint256.Int {
	if x.IsZero() {
		return uint256.NewInt(1)
	}
	return x
}

func maxInt(x, y *uint256.Int) *uint256.Int {
	if x.Lt(y) {
		return y
	}
	return x
}
