package crypto

import "github.com/NethermindEth/starksim/core/felt"

type Digest interface {
	Update(...*felt.Felt) Digest
	Finish() *felt.Felt
}
