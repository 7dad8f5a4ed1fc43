package state_test

import (
	"testing"

	"github.com/NethermindEth/starksim/core"
	"github.com/NethermindEth/starksim/core/felt"
	"github.com/NethermindEth/starksim/core/state"
	"github.com/NethermindEth/starksim/db/memory"
	"github.com/NethermindEth/starksim/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	s := state.New(memory.New())
	addr := utils.HexToFelt(t, "0x1")

	nonce, err := s.ContractNonce(addr)
	require.NoError(t, err)
	assert.True(t, nonce.IsZero())

	value, err := s.ContractStorage(addr, addr)
	require.NoError(t, err)
	assert.True(t, value.IsZero())

	_, err = s.ContractClassHash(addr)
	require.ErrorIs(t, err, core.ErrContractNotDeployed)

	_, err = s.Class(addr)
	require.ErrorIs(t, err, core.ErrClassNotDeclared)

	_, err = s.CompiledClassHash(addr)
	require.ErrorIs(t, err, core.ErrClassNotDeclared)
}

func TestWrites(t *testing.T) {
	s := state.New(memory.New())
	addr := utils.HexToFelt(t, "0x1")
	key := utils.HexToFelt(t, "0x2")
	value := utils.HexToFelt(t, "0x3")

	require.NoError(t, s.SetStorage(addr, key, value))
	got, err := s.ContractStorage(addr, key)
	require.NoError(t, err)
	assert.Equal(t, value, got)

	require.NoError(t, s.SetNonce(addr, value))
	got, err = s.ContractNonce(addr)
	require.NoError(t, err)
	assert.Equal(t, value, got)

	require.NoError(t, s.SetClassHash(addr, key))
	got, err = s.ContractClassHash(addr)
	require.NoError(t, err)
	assert.Equal(t, key, got)

	require.NoError(t, s.SetCompiledClassHash(key, value))
	got, err = s.CompiledClassHash(key)
	require.NoError(t, err)
	assert.Equal(t, value, got)
}

func TestClasses(t *testing.T) {
	kv := memory.New()
	sierra := &core.SierraClass{
		SemanticVersion: "0.1.0",
		Abi:             "[]",
		Program:         []*felt.Felt{utils.HexToFelt(t, "0x1"), utils.HexToFelt(t, "0x2")},
		Compiled: &core.CompiledClass{
			Bytecode:        []*felt.Felt{utils.HexToFelt(t, "0x3")},
			CompilerVersion: "2.6.0",
		},
	}
	sierra.EntryPoints.External = []core.SierraEntryPoint{{Index: 0, Selector: utils.HexToFelt(t, "0x4")}}
	deprecated := &core.DeprecatedCairoClass{
		Abi:       "[]",
		Externals: []core.DeprecatedEntryPoint{{Selector: utils.HexToFelt(t, "0x5"), Offset: utils.HexToFelt(t, "0x6")}},
		Builtins:  []string{"pedersen"},
		Program:   []*felt.Felt{utils.HexToFelt(t, "0x7")},
	}

	s := state.New(kv)
	sierraHash := utils.HexToFelt(t, "0xa")
	deprecatedHash := utils.HexToFelt(t, "0xb")
	require.NoError(t, s.SetContractClass(sierraHash, sierra))
	require.NoError(t, s.SetContractClass(deprecatedHash, deprecated))
	require.ErrorIs(t, s.SetContractClass(sierraHash, sierra), core.ErrClassAlreadyDeclared)

	t.Run("classes survive a fresh cache", func(t *testing.T) {
		fresh := state.New(kv)

		got, err := fresh.Class(sierraHash)
		require.NoError(t, err)
		assert.Equal(t, sierra, got)

		got, err = fresh.Class(deprecatedHash)
		require.NoError(t, err)
		assert.Equal(t, deprecated, got)
	})
}
