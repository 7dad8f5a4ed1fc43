package node_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/NethermindEth/starksim/core"
	"github.com/NethermindEth/starksim/genesis"
	"github.com/NethermindEth/starksim/node"
	"github.com/NethermindEth/starksim/utils"
	"github.com/NethermindEth/starksim/vm"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *node.Config {
	return &node.Config{
		LogLevel:        utils.ERROR,
		Network:         utils.Devnet,
		ProtocolVersion: "0.13.1",
		L1GasPriceWei:   10,
		L1GasPriceFri:   20,
		Parallel:        1,
	}
}

func TestNew(t *testing.T) {
	n, err := node.New(testConfig())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, n.Close()) })

	deployed, err := core.IsDeployed(n.State(), &genesis.HelloStarknetAddress)
	require.NoError(t, err)
	assert.True(t, deployed)

	_, ok := n.Contracts().Contract("HelloStarknet")
	assert.True(t, ok)
	assert.Equal(t, utils.Devnet.ChainID(), n.ChainID())
	assert.Equal(t, *testConfig(), n.Config())
	assert.NotNil(t, n.Simulator())
}

func TestGenesisAppliedOnce(t *testing.T) {
	cfg := testConfig()
	cfg.DatabasePath = t.TempDir()
	eth, _ := cfg.Network.FeeTokenAddresses()
	account := &genesis.Accounts()[0].Address

	n, err := node.New(cfg)
	require.NoError(t, err)
	require.NoError(t, vm.WriteBalance(n.State(), eth, account, uint256.NewInt(7)))
	require.NoError(t, n.Close())

	n, err = node.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, n.Close()) })

	balance, err := vm.ReadBalance(n.State(), eth, account)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), balance.Uint64())
}

func TestInvalidConfig(t *testing.T) {
	tests := map[string]func(cfg *node.Config){
		"zero gas price":           func(cfg *node.Config) { cfg.L1GasPriceFri = 0 },
		"no parallelism":           func(cfg *node.Config) { cfg.Parallel = 0 },
		"missing genesis file":     func(cfg *node.Config) { cfg.GenesisPath = filepath.Join(t.TempDir(), "genesis.json") },
		"bad sequencer address":    func(cfg *node.Config) { cfg.SequencerAddress = "sequencer" },
		"unknown protocol version": func(cfg *node.Config) { cfg.ProtocolVersion = "latest" },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			mutate(cfg)
			_, err := node.New(cfg)
			require.Error(t, err)
		})
	}
}

func TestMetricsFile(t *testing.T) {
	cfg := testConfig()
	cfg.MetricsFile = filepath.Join(t.TempDir(), "starksim.prom")

	n, err := node.New(cfg)
	require.NoError(t, err)
	require.NoError(t, n.Close())

	_, err = os.Stat(cfg.MetricsFile)
	require.NoError(t, err)
}
