package genesis

import (
	"github.com/NethermindEth/starksim/core/felt"
	"github.com/NethermindEth/starksim/vm"
	"github.com/NethermindEth/starksim/vm/native"
)

// DefaultBalance is what each bootstrap account holds of every fee token, 1000 tokens with 18 decimals.
const DefaultBalance = "1000000000000000000000"

var strToFelt = func(feltStr string) felt.Felt {
	felt, _ := new(felt.Felt).SetString(feltStr)
	return *felt
}

// HelloStarknetAddress is where Default deploys the sample contract.
var HelloStarknetAddress = strToFelt("0x4e110")

func Accounts() []Account {
	return []Account{
		{
			Address:   strToFelt("0x101"),
			PublicKey: strToFelt("0x16d03d341717ab11083a481f53278d8e54f610af815cbdab4035b2df283fcc0"),
			Balance:   DefaultBalance,
		},
		{
			Address:   strToFelt("0x102"),
			PublicKey: strToFelt("0x3bc7ab4ca475e24a0053db47c3e5a2a53264a30639d8b2bd0a08407da3ca0c"),
			Balance:   DefaultBalance,
		},
	}
}

// Default declares every builtin contract, deploys an ERC20 at each fee
// token address and the sample contract, and funds the bootstrap accounts.
func Default(feeTokens vm.FeeTokenAddresses) *GenesisConfig {
	config := &GenesisConfig{
		Contracts:         make(map[felt.Felt]GenesisContractData),
		BootstrapAccounts: Accounts(),
	}
	for _, contract := range native.Builtins() {
		config.Classes = append(config.Classes, contract.Name)
	}

	noSupply := []felt.Felt{felt.Zero, felt.Zero, felt.Zero}
	for _, token := range []*felt.Felt{feeTokens.EthAddress, feeTokens.StrkAddress} {
		if token != nil {
			config.Contracts[*token] = GenesisContractData{Class: native.ERC20().Name, ConstructorArgs: noSupply}
		}
	}
	config.Contracts[HelloStarknetAddress] = GenesisContractData{Class: native.HelloStarknet().Name}
	return config
}
