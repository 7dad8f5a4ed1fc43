package utils

import (
	"encoding"
	"encoding/json"
	"errors"

	"github.com/NethermindEth/starksim/core/felt"
	"github.com/spf13/pflag"
)

var ErrUnknownNetwork = errors.New("unknown network (known: mainnet, sepolia, sepolia-integration, devnet)")

type Network int

// The following are necessary for Cobra and Viper, respectively, to unmarshal network
// CLI/config parameters properly.
var (
	_ pflag.Value              = (*Network)(nil)
	_ encoding.TextUnmarshaler = (*Network)(nil)
)

const (
	Mainnet Network = iota + 1
	Sepolia
	SepoliaIntegration
	Devnet
)

func (n Network) String() string {
	switch n {
	case Mainnet:
		return "mainnet"
	case Sepolia:
		return "sepolia"
	case SepoliaIntegration:
		return "sepolia-integration"
	case Devnet:
		return "devnet"
	default:
		// Should not happen.
		panic(ErrUnknownNetwork)
	}
}

func (n Network) MarshalYAML() (interface{}, error) {
	return n.String(), nil
}

func (n *Network) MarshalJSON() ([]byte, error) {
	return json.RawMessage(`"` + n.String() + `"`), nil
}

func (n *Network) Set(s string) error {
	switch s {
	case "MAINNET", "mainnet":
		*n = Mainnet
	case "SEPOLIA", "sepolia":
		*n = Sepolia
	case "SEPOLIA_INTEGRATION", "sepolia-integration":
		*n = SepoliaIntegration
	case "DEVNET", "devnet":
		*n = Devnet
	default:
		return ErrUnknownNetwork
	}
	return nil
}

func (n *Network) Type() string {
	return "Network"
}

func (n *Network) UnmarshalText(text []byte) error {
	return n.Set(string(text))
}

func (n Network) ChainIDString() string {
	switch n {
	case Mainnet:
		return "SN_MAIN"
	case Sepolia:
		return "SN_SEPOLIA"
	case SepoliaIntegration:
		return "SN_INTEGRATION_SEPOLIA"
	case Devnet:
		return "SN_DEVNET"
	default:
		// Should not happen.
		panic(ErrUnknownNetwork)
	}
}

func (n Network) ChainID() *felt.Felt {
	return new(felt.Felt).SetBytes([]byte(n.ChainIDString()))
}

// The fee token contracts share the same address on every public network.
var (
	ethFeeTokenAddress, _  = new(felt.Felt).SetString("0x49d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7")
	strkFeeTokenAddress, _ = new(felt.Felt).SetString("0x4718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d")
)

// FeeTokenAddresses returns the ETH and STRK fee token contract addresses.
func (n Network) FeeTokenAddresses() (eth, strk *felt.Felt) {
	return ethFeeTokenAddress.Clone(), strkFeeTokenAddress.Clone()
}
