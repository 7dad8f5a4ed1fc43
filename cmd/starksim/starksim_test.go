package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	starksim "github.com/NethermindEth/starksim/cmd/starksim"
	"github.com/NethermindEth/starksim/node"
	"github.com/NethermindEth/starksim/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const invokeBatch = `{
	"transactions": [{
		"type": "INVOKE",
		"version": "0x1",
		"nonce": "0x0",
		"max_fee": "0x2386f26fc10000",
		"sender_address": "0x101",
		"calldata": ["0x1", "0x4e110", "0x362398bec32bc0ebb411203221a35a0301193a96f317ebe5e40be9f60d15320", "0x1", "0x3"],
		"sign_with": "0x16d03d341717ab11083a481f53278d8e54f610af815cbdab4035b2df283fcc0"
	}]
}`

const messageBatch = `{
	"message": {
		"from_address": "0x000000000000000000000000000000000000abcd",
		"to_address": "0x4e110",
		"entry_point": "deposit",
		"payload": ["0x5"]
	}
}`

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

type spyNode struct {
	cfg *node.Config
}

func (s *spyNode) newNode(cfg *node.Config) (*node.Node, error) {
	s.cfg = cfg
	return node.New(cfg)
}

func execute(t *testing.T, spy *spyNode, args ...string) (string, error) {
	t.Helper()
	b := new(bytes.Buffer)
	cmd := starksim.NewCmd(spy.newNode)
	cmd.SetOut(b)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return b.String(), err
}

func defaultConfig() node.Config {
	return node.Config{
		LogLevel:          utils.ERROR,
		Colour:            true,
		Network:           utils.Devnet,
		ProtocolVersion:   "0.13.2",
		L1GasPriceWei:     1_000_000_000,
		L1GasPriceFri:     100_000_000_000,
		L1DataGasPriceWei: 1,
		L1DataGasPriceFri: 1,
		Parallel:          1,
	}
}

func TestConfigPrecedence(t *testing.T) {
	batchPath := writeFile(t, "batch.json", invokeBatch)

	tests := map[string]struct {
		cfgFileContents string
		env             map[string]string
		inputArgs       []string
		expectedConfig  func(cfg *node.Config)
	}{
		"default config with no flags": {
			expectedConfig: func(*node.Config) {},
		},
		"config file overrides defaults": {
			cfgFileContents: `network: sepolia
l1-gas-price-wei: 42
blob-da: true
parallel: 2
`,
			expectedConfig: func(cfg *node.Config) {
				cfg.Network = utils.Sepolia
				cfg.L1GasPriceWei = 42
				cfg.BlobDA = true
				cfg.Parallel = 2
			},
		},
		"flags override config file": {
			cfgFileContents: `protocol-version: 0.13.0
l1-gas-price-wei: 42
`,
			inputArgs: []string{"--l1-gas-price-wei", "7", "--disable-fee"},
			expectedConfig: func(cfg *node.Config) {
				cfg.ProtocolVersion = "0.13.0"
				cfg.L1GasPriceWei = 7
				cfg.DisableFee = true
			},
		},
		"environment overrides config file": {
			cfgFileContents: "block-number: 5\n",
			env:             map[string]string{"STARKSIM_BLOCK_NUMBER": "9", "STARKSIM_SEQUENCER_ADDRESS": "0x5e9"},
			expectedConfig: func(cfg *node.Config) {
				cfg.BlockNumber = 9
				cfg.SequencerAddress = "0x5e9"
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			for key, value := range tc.env {
				t.Setenv(key, value)
			}
			args := []string{"estimate-fee", "--log-level", "error", batchPath}
			if tc.cfgFileContents != "" {
				args = append(args, "--config", writeFile(t, "config.yaml", tc.cfgFileContents))
			}
			args = append(args, tc.inputArgs...)

			spy := new(spyNode)
			_, err := execute(t, spy, args...)
			require.NoError(t, err)

			expected := defaultConfig()
			tc.expectedConfig(&expected)
			assert.Equal(t, &expected, spy.cfg)
		})
	}

	t.Run("config file doesn't exist", func(t *testing.T) {
		_, err := execute(t, new(spyNode), "estimate-fee", batchPath, "--config", "config-file-test.yaml")
		require.Error(t, err)
	})

	t.Run("unknown network", func(t *testing.T) {
		_, err := execute(t, new(spyNode), "estimate-fee", batchPath, "--network", "goerli")
		require.Error(t, err)
	})
}

func TestEstimateFee(t *testing.T) {
	batchPath := writeFile(t, "batch.json", invokeBatch)

	out, err := execute(t, new(spyNode), "estimate-fee", "--log-level", "error", "--parallel", "2", batchPath, batchPath)
	require.NoError(t, err)

	var results []struct {
		File      string `json:"file"`
		Estimates []struct {
			OverallFee string `json:"overall_fee"`
			Unit       string `json:"unit"`
		} `json:"fee_estimates"`
		Error any `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	for _, result := range results {
		assert.Equal(t, batchPath, result.File)
		assert.Nil(t, result.Error)
		require.Len(t, result.Estimates, 1)
		assert.Equal(t, "WEI", result.Estimates[0].Unit)
		assert.NotEqual(t, "0", result.Estimates[0].OverallFee)
	}
	// both batches saw the same untouched state
	assert.Equal(t, results[0].Estimates, results[1].Estimates)
}

func TestSimulate(t *testing.T) {
	batchPath := writeFile(t, "batch.json", invokeBatch)

	out, err := execute(t, new(spyNode), "simulate", "--log-level", "error", "--output", "table", batchPath)
	require.NoError(t, err)
	assert.Contains(t, out, "SUCCEEDED")
	assert.Contains(t, out, "INVOKE")

	out, err = execute(t, new(spyNode), "simulate", "--log-level", "error", "--output", "yaml", "--skip-validate", batchPath)
	require.NoError(t, err)
	var results []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Contains(t, results[0], "simulated_transactions")
}

func TestMessages(t *testing.T) {
	messagePath := writeFile(t, "message.json", messageBatch)
	invokePath := writeFile(t, "batch.json", invokeBatch)

	out, err := execute(t, new(spyNode), "estimate-message-fee", "--log-level", "error", messagePath)
	require.NoError(t, err)
	assert.Contains(t, out, "overall_fee")

	out, err = execute(t, new(spyNode), "simulate-message", "--log-level", "error", "--output", "table", messagePath)
	require.NoError(t, err)
	assert.Contains(t, out, "L1_HANDLER")

	out, err = execute(t, new(spyNode), "estimate-message-fee", "--log-level", "error", invokePath)
	require.EqualError(t, err, "1 of 1 batches failed")
	assert.Contains(t, out, `"kind": "validation"`)
}

func TestTrace(t *testing.T) {
	batchPath := writeFile(t, "batch.json", invokeBatch)

	out, err := execute(t, new(spyNode), "trace", "--log-level", "error", "--with-state-diff", batchPath)
	require.NoError(t, err)
	assert.Contains(t, out, "state_diff")

	// the replayed invoke consumes nonce 0, so tracing it again fails
	out, err = execute(t, new(spyNode), "trace", "--log-level", "error", "--before", batchPath, batchPath)
	require.Error(t, err)
	assert.Contains(t, out, `"kind": "validation"`)
}

func TestUnknownOutput(t *testing.T) {
	batchPath := writeFile(t, "batch.json", invokeBatch)
	_, err := execute(t, new(spyNode), "simulate", "--output", "xml", batchPath)
	require.ErrorContains(t, err, "unknown output format")
}
