package utils

import (
	"testing"

	"github.com/NethermindEth/starksim/core/felt"
	"github.com/stretchr/testify/require"
)

func HexToFelt(t testing.TB, hex string) *felt.Felt {
	t.Helper()
	f, err := new(felt.Felt).SetString(hex)
	require.NoError(t, err)
	return f
}

func HexArrToFelt(t testing.TB, hexArr []string) []*felt.Felt {
	t.Helper()
	res := make([]*felt.Felt, len(hexArr))
	for i, hex := range hexArr {
		res[i] = HexToFelt(t, hex)
	}
	return res
}
