package main

import (
	"strings"

	"github.com/NethermindEth/starksim/node"
	"github.com/NethermindEth/starksim/utils"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Version string

const (
	configF            = "config"
	logLevelF          = "log-level"
	colourF            = "colour"
	networkF           = "network"
	dbPathF            = "db-path"
	genesisF           = "genesis"
	protocolVersionF   = "protocol-version"
	blockNumberF       = "block-number"
	blockTimestampF    = "block-timestamp"
	sequencerAddressF  = "sequencer-address"
	l1GasPriceWeiF     = "l1-gas-price-wei"
	l1GasPriceFriF     = "l1-gas-price-fri"
	l1DataGasPriceWeiF = "l1-data-gas-price-wei"
	l1DataGasPriceFriF = "l1-data-gas-price-fri"
	blobDAF            = "blob-da"
	disableFeeF        = "disable-fee"
	parallelF          = "parallel"
	metricsFileF       = "metrics-file"
	outputF            = "output"

	defaultConfig            = ""
	defaultColour            = true
	defaultDBPath            = ""
	defaultGenesis           = ""
	defaultProtocolVersion   = "0.13.2"
	defaultBlockNumber       = uint64(0)
	defaultBlockTimestamp    = uint64(0)
	defaultSequencerAddress  = ""
	defaultL1GasPriceWei     = uint64(1_000_000_000)
	defaultL1GasPriceFri     = uint64(100_000_000_000)
	defaultL1DataGasPriceWei = uint64(1)
	defaultL1DataGasPriceFri = uint64(1)
	defaultBlobDA            = false
	defaultDisableFee        = false
	defaultParallel          = uint(1)
	defaultMetricsFile       = ""
	defaultOutput            = "json"

	configFlagUsage   = "The YAML configuration file."
	logLevelFlagUsage = "Options: debug, info, warn, error."
	colourUsage       = "Uses --colour=false command to disable colourized outputs (ANSI Escape Codes)."
	networkUsage      = "Options: mainnet, sepolia, sepolia-integration, devnet. " +
		"Selects the chain ID and the fee token addresses."
	dbPathUsage = "Location of the database files. " +
		"If unset the state is kept in memory and discarded on exit."
	genesisUsage = "Genesis file used to bootstrap an empty database. " +
		"If unset the default genesis with two funded accounts and a sample contract is used."
	protocolVersionUsage   = "Starknet protocol version of the simulated block. Selects the versioned constants."
	blockNumberUsage       = "Number of the simulated block."
	blockTimestampUsage    = "Timestamp of the simulated block."
	sequencerAddressUsage  = "Sequencer address of the simulated block. Fees are transferred to it."
	l1GasPriceWeiUsage     = "L1 gas price in wei."
	l1GasPriceFriUsage     = "L1 gas price in fri."
	l1DataGasPriceWeiUsage = "L1 data gas price in wei."
	l1DataGasPriceFriUsage = "L1 data gas price in fri."
	blobDAUsage            = "Publishes state diffs as blobs, which prices data availability in data gas."
	disableFeeUsage        = "Disables fee charging when tracing transactions."
	parallelUsage          = "Number of batch files processed concurrently."
	metricsFileUsage       = "Writes Prometheus metrics in the text exposition format to this file on exit."
	outputUsage            = "Output format. Options: json, yaml, table."
)

// NewNodeFn creates the node commands run against.
type NewNodeFn func(cfg *node.Config) (*node.Node, error)

func NewCmd(newNodeFn NewNodeFn) *cobra.Command {
	starksimCmd := &cobra.Command{
		Use:           "starksim [command]",
		Short:         "Speculative execution and fee estimation of Starknet transactions.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultNetwork := utils.Devnet

	flags := starksimCmd.PersistentFlags()
	flags.String(configF, defaultConfig, configFlagUsage)
	flags.Var(utils.NewLogLevel(utils.INFO), logLevelF, logLevelFlagUsage)
	flags.Bool(colourF, defaultColour, colourUsage)
	flags.Var(&defaultNetwork, networkF, networkUsage)
	flags.String(dbPathF, defaultDBPath, dbPathUsage)
	flags.String(genesisF, defaultGenesis, genesisUsage)
	flags.String(protocolVersionF, defaultProtocolVersion, protocolVersionUsage)
	flags.Uint64(blockNumberF, defaultBlockNumber, blockNumberUsage)
	flags.Uint64(blockTimestampF, defaultBlockTimestamp, blockTimestampUsage)
	flags.String(sequencerAddressF, defaultSequencerAddress, sequencerAddressUsage)
	flags.Uint64(l1GasPriceWeiF, defaultL1GasPriceWei, l1GasPriceWeiUsage)
	flags.Uint64(l1GasPriceFriF, defaultL1GasPriceFri, l1GasPriceFriUsage)
	flags.Uint64(l1DataGasPriceWeiF, defaultL1DataGasPriceWei, l1DataGasPriceWeiUsage)
	flags.Uint64(l1DataGasPriceFriF, defaultL1DataGasPriceFri, l1DataGasPriceFriUsage)
	flags.Bool(blobDAF, defaultBlobDA, blobDAUsage)
	flags.Bool(disableFeeF, defaultDisableFee, disableFeeUsage)
	flags.Uint(parallelF, defaultParallel, parallelUsage)
	flags.String(metricsFileF, defaultMetricsFile, metricsFileUsage)
	flags.String(outputF, defaultOutput, outputUsage)

	starksimCmd.AddCommand(
		EstimateFeeCmd(newNodeFn),
		EstimateMessageFeeCmd(newNodeFn),
		SimulateCmd(newNodeFn),
		SimulateMessageCmd(newNodeFn),
		TraceCmd(newNodeFn),
	)
	return starksimCmd
}

// loadConfig merges, from lowest to highest precedence, the flag defaults,
// the config file, STARKSIM_ environment variables and the flags set on the
// command line.
func loadConfig(cmd *cobra.Command) (*node.Config, error) {
	v := viper.New()
	cfgFile, err := cmd.Flags().GetString(configF)
	if err != nil {
		return nil, err
	}
	if cfgFile != "" {
		v.SetConfigType("yaml")
		v.SetConfigFile(cfgFile)
		if err = v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix("STARKSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err = v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	cfg := new(node.Config)
	if err = v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, err
	}
	return cfg, nil
}
