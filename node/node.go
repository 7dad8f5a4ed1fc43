package node

import (
	"errors"
	"fmt"

	"github.com/NethermindEth/starksim/core"
	"github.com/NethermindEth/starksim/core/felt"
	"github.com/NethermindEth/starksim/core/state"
	"github.com/NethermindEth/starksim/db"
	"github.com/NethermindEth/starksim/db/memory"
	"github.com/NethermindEth/starksim/db/pebble"
	"github.com/NethermindEth/starksim/simulation"
	"github.com/NethermindEth/starksim/utils"
	"github.com/NethermindEth/starksim/validator"
	"github.com/NethermindEth/starksim/vm"
	"github.com/NethermindEth/starksim/vm/native"
)

// Config is the top-level starksim configuration.
type Config struct {
	LogLevel     utils.LogLevel `mapstructure:"log-level" validate:"oneof=debug info warn error"`
	Colour       bool           `mapstructure:"colour"`
	Network      utils.Network  `mapstructure:"network" validate:"oneof=mainnet sepolia sepolia-integration devnet"`
	DatabasePath string         `mapstructure:"db-path"`
	GenesisPath  string         `mapstructure:"genesis" validate:"omitempty,file"`

	ProtocolVersion   string `mapstructure:"protocol-version"`
	BlockNumber       uint64 `mapstructure:"block-number"`
	BlockTimestamp    uint64 `mapstructure:"block-timestamp"`
	SequencerAddress  string `mapstructure:"sequencer-address" validate:"omitempty,hexadecimal"`
	L1GasPriceWei     uint64 `mapstructure:"l1-gas-price-wei" validate:"gt=0"`
	L1GasPriceFri     uint64 `mapstructure:"l1-gas-price-fri" validate:"gt=0"`
	L1DataGasPriceWei uint64 `mapstructure:"l1-data-gas-price-wei"`
	L1DataGasPriceFri uint64 `mapstructure:"l1-data-gas-price-fri"`
	BlobDA            bool   `mapstructure:"blob-da"`

	DisableFee  bool   `mapstructure:"disable-fee"`
	Parallel    uint   `mapstructure:"parallel" validate:"gte=1"`
	MetricsFile string `mapstructure:"metrics-file"`
}

// Node owns the durable state simulations run against.
type Node struct {
	cfg       *Config
	log       utils.Logger
	db        db.KeyValueStore
	state     *state.State
	engine    *native.Engine
	simulator *simulation.Simulator
	chainID   *felt.Felt
}

// New opens the database and bootstraps it from genesis if it was never
// bootstrapped. An empty DatabasePath keeps everything in memory.
func New(cfg *Config) (*Node, error) {
	if err := validator.Validator().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log, err := utils.NewZapLogger(cfg.LogLevel, cfg.Colour)
	if err != nil {
		return nil, err
	}

	database, err := openDB(cfg, log)
	if err != nil {
		return nil, err
	}

	n, err := newNode(cfg, log, database)
	if err != nil {
		if closeErr := database.Close(); closeErr != nil {
			log.Errorw("Error while closing the DB", "err", closeErr)
		}
		return nil, err
	}
	return n, nil
}

func openDB(cfg *Config, log utils.Logger) (db.KeyValueStore, error) {
	if cfg.DatabasePath == "" {
		log.Debugw("No database path set, state is kept in memory")
		return memory.New(), nil
	}

	dbLog, err := utils.NewZapLogger(utils.ERROR, cfg.Colour)
	if err != nil {
		return nil, fmt.Errorf("create DB logger: %w", err)
	}
	database, err := pebble.New(cfg.DatabasePath, dbLog)
	if err != nil {
		return nil, fmt.Errorf("open DB: %w", err)
	}
	return database, nil
}

func newNode(cfg *Config, log utils.Logger, database db.KeyValueStore) (*Node, error) {
	engine, err := native.New(native.Builtins()...)
	if err != nil {
		return nil, err
	}

	blockCtx, err := cfg.blockContext()
	if err != nil {
		return nil, err
	}
	executor, err := vm.NewExecutor(engine, blockCtx, log)
	if err != nil {
		return nil, err
	}

	durable := state.New(database)
	if err = buildGenesis(cfg.GenesisPath, engine, blockCtx, durable, log); err != nil {
		return nil, fmt.Errorf("build genesis: %w", err)
	}

	simulator := simulation.New(executor, simulation.StaticGasPrices(cfg.gasPrices()), log,
		simulation.Config{DisableFee: cfg.DisableFee})
	return &Node{
		cfg:       cfg,
		log:       log,
		db:        database,
		state:     durable,
		engine:    engine,
		simulator: simulator,
		chainID:   blockCtx.ChainID,
	}, nil
}

func (c *Config) blockContext() (*vm.BlockContext, error) {
	sequencer := &felt.Zero
	if c.SequencerAddress != "" {
		var err error
		if sequencer, err = new(felt.Felt).SetString(c.SequencerAddress); err != nil {
			return nil, fmt.Errorf("sequencer address: %w", err)
		}
	}

	daMode := core.Calldata
	if c.BlobDA {
		daMode = core.Blob
	}

	eth, strk := c.Network.FeeTokenAddresses()
	return &vm.BlockContext{
		Header: &core.Header{
			Number:           c.BlockNumber,
			Timestamp:        c.BlockTimestamp,
			SequencerAddress: sequencer,
			ProtocolVersion:  c.ProtocolVersion,
			GasPrices:        c.gasPrices(),
			L1DAMode:         daMode,
		},
		ChainID:   c.Network.ChainID(),
		FeeTokens: vm.FeeTokenAddresses{EthAddress: eth, StrkAddress: strk},
	}, nil
}

func (c *Config) gasPrices() core.GasPrices {
	return core.GasPrices{
		L1Gas: core.GasPrice{
			PriceInWei: new(felt.Felt).SetUint64(c.L1GasPriceWei),
			PriceInFri: new(felt.Felt).SetUint64(c.L1GasPriceFri),
		},
		L1DataGas: core.GasPrice{
			PriceInWei: new(felt.Felt).SetUint64(c.L1DataGasPriceWei),
			PriceInFri: new(felt.Felt).SetUint64(c.L1DataGasPriceFri),
		},
	}
}

func (n *Node) Config() Config {
	return *n.cfg
}

func (n *Node) Log() utils.SimpleLogger {
	return n.log
}

// State is the durable state. Simulations never write to it.
func (n *Node) State() core.StateReadWriter {
	return n.state
}

// Contracts resolves the builtin contracts batch files may declare.
func (n *Node) Contracts() *native.Engine {
	return n.engine
}

func (n *Node) Simulator() *simulation.Simulator {
	return n.simulator
}

func (n *Node) ChainID() *felt.Felt {
	return n.chainID
}

// Close flushes the metrics file, if one is configured, and closes the DB.
func (n *Node) Close() error {
	var metricsErr error
	if n.cfg.MetricsFile != "" {
		metricsErr = writeMetrics(n.cfg.MetricsFile)
	}
	return errors.Join(metricsErr, n.db.Close())
}

// bootstrapped reports whether the fee tokens have been deployed, which
// every genesis does first.
func bootstrapped(durable core.StateReader, feeTokens vm.FeeTokenAddresses) (bool, error) {
	if feeTokens.EthAddress == nil {
		return false, nil
	}
	return core.IsDeployed(durable, feeTokens.EthAddress)
}
