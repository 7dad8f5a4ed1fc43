package core_test

import (
	"testing"

	"github.com/NethermindEth/starksim/core"
	"github.com/NethermindEth/starksim/core/felt"
	"github.com/NethermindEth/starksim/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSierraClass(t *testing.T) *core.SierraClass {
	t.Helper()
	class := &core.SierraClass{
		SemanticVersion: "0.1.0",
		Abi:             `[{"type":"function","name":"get_balance"}]`,
		Program:         []*felt.Felt{utils.HexToFelt(t, "0x1")},
		Compiled: &core.CompiledClass{
			Bytecode: []*felt.Felt{utils.HexToFelt(t, "0x2")},
			External: []core.CompiledEntryPoint{{Offset: 0, Selector: utils.HexToFelt(t, "0x3"), Builtins: []string{"range_check"}}},
		},
	}
	class.EntryPoints.External = []core.SierraEntryPoint{{Index: 0, Selector: utils.HexToFelt(t, "0x3")}}
	return class
}

func TestSierraClassHash(t *testing.T) {
	class := sampleSierraClass(t)
	hash, err := class.Hash()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), class.Version())

	again, err := sampleSierraClass(t).Hash()
	require.NoError(t, err)
	assert.Equal(t, hash, again)

	changed := sampleSierraClass(t)
	changed.EntryPoints.External[0].Index = 1
	changedHash, err := changed.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, hash, changedHash)
}

func TestCompiledClassHash(t *testing.T) {
	class := sampleSierraClass(t)
	hash, err := class.Compiled.Hash()
	require.NoError(t, err)

	class.Compiled.Bytecode = append(class.Compiled.Bytecode, &felt.One)
	changed, err := class.Compiled.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, hash, changed)

	var missing *core.CompiledClass
	_, err = missing.Hash()
	require.Error(t, err)
}

func TestDeprecatedCairoClassHash(t *testing.T) {
	class := &core.DeprecatedCairoClass{
		Abi:       "[]",
		Externals: []core.DeprecatedEntryPoint{{Selector: utils.HexToFelt(t, "0x1"), Offset: utils.HexToFelt(t, "0x0")}},
		Builtins:  []string{"pedersen", "range_check"},
		Program:   []*felt.Felt{utils.HexToFelt(t, "0x2")},
	}
	hash, err := class.Hash()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), class.Version())

	class.Builtins = class.Builtins[:1]
	changed, err := class.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, hash, changed)
}

func TestFeeUnitText(t *testing.T) {
	for _, unit := range []core.FeeUnit{core.WEI, core.FRI} {
		text, err := unit.MarshalText()
		require.NoError(t, err)

		var decoded core.FeeUnit
		require.NoError(t, decoded.UnmarshalText(text))
		assert.Equal(t, unit, decoded)
	}
	_, err := core.FeeUnit(7).MarshalText()
	require.Error(t, err)
}

func TestGasPriceIn(t *testing.T) {
	price := core.GasPrice{PriceInWei: utils.HexToFelt(t, "0x1"), PriceInFri: utils.HexToFelt(t, "0x2")}
	assert.Equal(t, price.PriceInWei, price.In(core.WEI))
	assert.Equal(t, price.PriceInFri, price.In(core.FRI))
	assert.Nil(t, price.In(core.FeeUnit(9)))
}
