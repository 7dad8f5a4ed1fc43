package validator_test

import (
	"testing"

	"github.com/NethermindEth/starksim/core/felt"
	"github.com/NethermindEth/starksim/utils"
	"github.com/NethermindEth/starksim/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type boundedTxn struct {
	Version        uint64
	ResourceBounds map[string]uint64 `validate:"resource_bounds_required"`
}

func (t boundedTxn) IsV3() bool {
	return t.Version == 3
}

type unbounded struct {
	ResourceBounds map[string]uint64 `validate:"resource_bounds_required"`
}

func TestResourceBoundsRequired(t *testing.T) {
	v := validator.Validator()

	require.NoError(t, v.Struct(boundedTxn{Version: 1}))
	require.NoError(t, v.Struct(boundedTxn{Version: 3, ResourceBounds: map[string]uint64{"l1_gas": 1}}))
	require.Error(t, v.Struct(boundedTxn{Version: 3}))
	require.Error(t, v.Struct(unbounded{ResourceBounds: map[string]uint64{"l1_gas": 1}}))
}

func TestCustomTypes(t *testing.T) {
	type config struct {
		Address  *felt.Felt     `validate:"required"`
		Network  utils.Network  `validate:"oneof=mainnet sepolia sepolia-integration devnet"`
		LogLevel utils.LogLevel `validate:"oneof=debug info warn error"`
	}
	v := validator.Validator()

	require.NoError(t, v.Struct(config{Address: &felt.One, Network: utils.Devnet, LogLevel: utils.INFO}))
	assert.Error(t, v.Struct(config{Network: utils.Devnet, LogLevel: utils.INFO}))
	assert.Same(t, v, validator.Validator())
}
