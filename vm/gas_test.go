package vm_test

import (
	"testing"

	"github.com/NethermindEth/starksim/core"
	"github.com/NethermindEth/starksim/core/felt"
	"github.com/NethermindEth/starksim/vm"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionedConstantsFor(t *testing.T) {
	tests := map[string]struct {
		protocolVersion string
		want            string
	}{
		"empty selects the latest":    {protocolVersion: "", want: "0.13.2"},
		"exact match":                 {protocolVersion: "0.13.0", want: "0.13.0"},
		"four digit version":          {protocolVersion: "0.13.1.1", want: "0.13.1"},
		"between versions":            {protocolVersion: "0.13.1.9", want: "0.13.1"},
		"older than the oldest":       {protocolVersion: "0.12.3", want: "0.13.0"},
		"newer than the newest known": {protocolVersion: "0.14.0", want: "0.13.2"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			constants, err := vm.VersionedConstantsFor(test.protocolVersion)
			require.NoError(t, err)
			assert.Equal(t, test.want, constants.Version.String())
		})
	}

	t.Run("invalid version", func(t *testing.T) {
		_, err := vm.VersionedConstantsFor("not.a.version")
		require.Error(t, err)
	})
}

func TestRatioMulCeil(t *testing.T) {
	assert.Equal(t, uint64(4), vm.Ratio{Num: 1, Den: 3}.MulCeil(10))
	assert.Equal(t, uint64(8), vm.Ratio{Num: 25, Den: 10000}.MulCeil(3005))
	assert.Equal(t, uint64(0), vm.Ratio{Num: 1, Den: 0}.MulCeil(10))
	assert.Equal(t, uint64(0), vm.Ratio{Num: 1, Den: 3}.MulCeil(0))
	assert.Equal(t, ^uint64(0), vm.Ratio{Num: ^uint64(0), Den: 1}.MulCeil(2))
}

func constantsFor(t *testing.T, version string) *vm.VersionedConstants {
	t.Helper()
	constants, err := vm.VersionedConstantsFor(version)
	require.NoError(t, err)
	return constants
}

func TestComputationGas(t *testing.T) {
	constants := constantsFor(t, "0.13.1")

	t.Run("steps dominate", func(t *testing.T) {
		assert.Equal(t, uint64(25), constants.ComputationGas(&vm.ComputationResources{Steps: 10_000, Pedersen: 10}))
	})
	t.Run("builtin dominates", func(t *testing.T) {
		assert.Equal(t, uint64(80), constants.ComputationGas(&vm.ComputationResources{Steps: 10_000, Pedersen: 1_000}))
	})
	t.Run("memory holes count as steps", func(t *testing.T) {
		assert.Equal(t, uint64(50), constants.ComputationGas(&vm.ComputationResources{Steps: 10_000, MemoryHoles: 10_000}))
	})
	t.Run("no resources", func(t *testing.T) {
		assert.Zero(t, constants.ComputationGas(&vm.ComputationResources{}))
	})
}

func TestDataAvailabilityGas(t *testing.T) {
	constants := constantsFor(t, "0.13.1")
	assert.Equal(t, vm.GasVector{L1Gas: 5510}, constants.DataAvailabilityGas(10, core.Calldata))
	assert.Equal(t, vm.GasVector{L1DataGas: 320}, constants.DataAvailabilityGas(10, core.Blob))
	assert.Equal(t, vm.GasVector{L1Gas: ^uint64(0)}, constants.DataAvailabilityGas(^uint64(0), core.Calldata))
}

func TestMessagesGas(t *testing.T) {
	constants := constantsFor(t, "0.13.1")
	assert.Equal(t, uint64(1356), constants.L1HandlerGas(0))
	assert.Equal(t, uint64(1868), constants.L1HandlerGas(3))

	messages := []vm.OrderedL2toL1Message{
		{Payload: []*felt.Felt{&felt.One, &felt.One}},
		{},
	}
	assert.Equal(t, uint64(2*20_000+2*612), constants.MessagesGas(messages))
}

func TestStateChanges(t *testing.T) {
	one := new(felt.Felt).SetUint64(1)
	two := new(felt.Felt).SetUint64(2)
	diff := core.EmptyStateDiff()
	diff.StorageDiffs[*one] = map[felt.Felt]*felt.Felt{*one: one, *two: two}
	diff.Nonces[*one] = one
	diff.DeployedContracts[*two] = one
	diff.DeclaredV1Classes[*one] = two

	changes := vm.StateChangesOf(diff)
	assert.Equal(t, vm.StateChanges{
		StorageUpdates:           2,
		ModifiedContracts:        2,
		ClassHashUpdates:         1,
		CompiledClassHashUpdates: 1,
	}, changes)
	assert.Equal(t, uint64(4+4+1+2), changes.DataFelts())
}

func TestMinimalGasVector(t *testing.T) {
	constants := constantsFor(t, "0.13.1")
	v1 := new(core.TransactionVersion).SetUint64(1)
	v2 := new(core.TransactionVersion).SetUint64(2)

	tests := map[string]struct {
		txn      core.Transaction
		mode     core.L1DAMode
		expected vm.GasVector
	}{
		"invoke v1": {
			txn:      &core.InvokeTransaction{Version: v1},
			expected: vm.GasVector{L1Gas: 8 + 6*551},
		},
		"invoke v1 in blob mode": {
			txn:      &core.InvokeTransaction{Version: v1},
			mode:     core.Blob,
			expected: vm.GasVector{L1Gas: 8, L1DataGas: 6 * 32},
		},
		"invoke v0 has no nonce": {
			txn:      &core.InvokeTransaction{Version: new(core.TransactionVersion)},
			expected: vm.GasVector{L1Gas: 8 + 4*551},
		},
		"deploy account sets a class hash": {
			txn:      &core.DeployAccountTransaction{DeployTransaction: core.DeployTransaction{Version: v1}},
			expected: vm.GasVector{L1Gas: 10 + 7*551},
		},
		"declare v2 sets a compiled class hash": {
			txn:      &core.DeclareTransaction{Version: v2},
			expected: vm.GasVector{L1Gas: 8 + 8*551},
		},
		"l1 handler": {
			txn:      &core.L1HandlerTransaction{Version: new(core.TransactionVersion)},
			expected: vm.GasVector{},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expected, vm.MinimalGasVector(test.txn, constants, test.mode))
		})
	}
}

func TestGasVectorCost(t *testing.T) {
	prices := core.GasPrices{
		L1Gas:     core.GasPrice{PriceInWei: new(felt.Felt).SetUint64(3)},
		L1DataGas: core.GasPrice{PriceInWei: new(felt.Felt).SetUint64(2)},
	}

	t.Run("prices both dimensions", func(t *testing.T) {
		cost, err := vm.GasVector{L1Gas: 10, L1DataGas: 5}.Cost(prices, core.WEI)
		require.NoError(t, err)
		assert.Equal(t, uint256.NewInt(40), cost)
	})

	t.Run("missing l1 gas price", func(t *testing.T) {
		_, err := vm.GasVector{L1Gas: 10}.Cost(prices, core.FRI)
		require.ErrorIs(t, err, vm.ErrMissingGasPrice)
	})

	t.Run("missing data gas price", func(t *testing.T) {
		withoutData := core.GasPrices{L1Gas: prices.L1Gas}
		cost, err := vm.GasVector{L1Gas: 10}.Cost(withoutData, core.WEI)
		require.NoError(t, err)
		assert.Equal(t, uint256.NewInt(30), cost)

		_, err = vm.GasVector{L1Gas: 10, L1DataGas: 1}.Cost(withoutData, core.WEI)
		require.ErrorIs(t, err, vm.ErrMissingGasPrice)
	})

	t.Run("saturates", func(t *testing.T) {
		maxFelt := new(felt.Felt).Sub(&felt.Zero, &felt.One)
		huge := core.GasPrices{
			L1Gas:     core.GasPrice{PriceInWei: maxFelt},
			L1DataGas: core.GasPrice{PriceInWei: maxFelt},
		}
		cost, err := vm.GasVector{L1Gas: ^uint64(0), L1DataGas: ^uint64(0)}.Cost(huge, core.WEI)
		require.NoError(t, err)
		assert.Equal(t, new(uint256.Int).SetAllOne(), cost)
	})
}

func TestSaturatingArithmetic(t *testing.T) {
	maxUint256 := new(uint256.Int).SetAllOne()
	assert.Equal(t, maxUint256, vm.SaturatingMul(maxUint256, uint256.NewInt(2)))
	assert.Equal(t, uint256.NewInt(6), vm.SaturatingMul(uint256.NewInt(2), uint256.NewInt(3)))
	assert.Equal(t, maxUint256, vm.SaturatingAdd(maxUint256, uint256.NewInt(1)))
	assert.Equal(t, uint256.NewInt(5), vm.SaturatingAdd(uint256.NewInt(2), uint256.NewInt(3)))
}

func TestFeltConversions(t *testing.T) {
	maxFelt := new(felt.Felt).Sub(&felt.Zero, &felt.One)
	assert.Equal(t, maxFelt, vm.Uint256ToFelt(new(uint256.Int).SetAllOne()))
	assert.Equal(t, new(felt.Felt).SetUint64(42), vm.Uint256ToFelt(uint256.NewInt(42)))
	assert.Equal(t, uint256.NewInt(42), vm.FeltToUint256(new(felt.Felt).SetUint64(42)))

	big := new(uint256.Int).Lsh(uint256.NewInt(1), 200)
	assert.Equal(t, big, vm.FeltToUint256(vm.Uint256ToFelt(big)))
}

func TestBalances(t *testing.T) {
	balance := new(uint256.Int).Lsh(uint256.NewInt(3), 128)
	balance.AddUint64(balance, 7)
	low, high := vm.SplitUint256(balance)
	assert.Equal(t, new(felt.Felt).SetUint64(7), low)
	assert.Equal(t, new(felt.Felt).SetUint64(3), high)
}

func TestStepBudget(t *testing.T) {
	budget := vm.NewStepBudget(100)
	require.NoError(t, budget.Consume(60))
	assert.Equal(t, uint64(40), budget.Remaining())

	require.ErrorIs(t, budget.Consume(41), vm.ErrStepLimitExceeded)
	assert.Equal(t, uint64(100), budget.Used())
	assert.Zero(t, budget.Remaining())
}
