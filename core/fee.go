package core

import (
	"fmt"

	"github.com/NethermindEth/starksim/core/felt"
)

// FeeUnit is the token a fee is denominated in.
type FeeUnit byte

const (
	WEI FeeUnit = iota
	FRI
)

func (u FeeUnit) String() string {
	switch u {
	case WEI:
		return "WEI"
	case FRI:
		return "FRI"
	default:
		return fmt.Sprintf("FeeUnit(%d)", byte(u))
	}
}

func (u FeeUnit) MarshalText() ([]byte, error) {
	switch u {
	case WEI, FRI:
		return []byte(u.String()), nil
	default:
		return nil, fmt.Errorf("unknown FeeUnit %v", byte(u))
	}
}

func (u *FeeUnit) UnmarshalText(data []byte) error {
	switch string(data) {
	case "WEI", "wei":
		*u = WEI
	case "FRI", "fri":
		*u = FRI
	default:
		return fmt.Errorf("unknown FeeUnit %q", data)
	}
	return nil
}

type GasPrice struct {
	PriceInWei *felt.Felt
	PriceInFri *felt.Felt
}

// In returns the price denominated in unit, nil when it is unknown.
func (p GasPrice) In(unit FeeUnit) *felt.Felt {
	switch unit {
	case WEI:
		return p.PriceInWei
	case FRI:
		return p.PriceInFri
	default:
		return nil
	}
}

// GasPrices holds the current unit prices of both L1 cost dimensions.
type GasPrices struct {
	L1Gas     GasPrice
	L1DataGas GasPrice
}

type L1DAMode uint

const (
	Calldata L1DAMode = iota
	Blob
)

func (m L1DAMode) String() string {
	if m == Blob {
		return "blob"
	}
	return "calldata"
}

// Header carries the block level context transactions execute in.
type Header struct {
	Number           uint64
	Timestamp        uint64
	SequencerAddress *felt.Felt
	ProtocolVersion  string
	GasPrices        GasPrices
	L1DAMode         L1DAMode
}
