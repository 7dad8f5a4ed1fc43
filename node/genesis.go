package node

import (
	"github.com/NethermindEth/starksim/core"
	"github.com/NethermindEth/starksim/genesis"
	"github.com/NethermindEth/starksim/utils"
	"github.com/NethermindEth/starksim/vm"
	"github.com/NethermindEth/starksim/vm/native"
)

// buildGenesis applies the genesis at genesisPath, or the default one when
// the path is empty, unless durable has already been bootstrapped.
func buildGenesis(genesisPath string, engine *native.Engine, blockCtx *vm.BlockContext,
	durable core.StateReadWriter, log utils.SimpleLogger,
) error {
	done, err := bootstrapped(durable, blockCtx.FeeTokens)
	if err != nil || done {
		return err
	}

	config := genesis.Default(blockCtx.FeeTokens)
	if genesisPath != "" {
		if config, err = genesis.Read(genesisPath); err != nil {
			return err
		}
	}

	log.Infow("Applying genesis", "path", genesisPath, "classes", len(config.Classes),
		"contracts", len(config.Contracts), "accounts", len(config.BootstrapAccounts))
	return genesis.Apply(config, engine, blockCtx, durable)
}
