package core_test

import (
	"math/big"
	"testing"

	"github.com/NethermindEth/starksim/core"
	"github.com/NethermindEth/starksim/core/felt"
	"github.com/NethermindEth/starksim/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func version(v uint64) *core.TransactionVersion {
	return new(core.TransactionVersion).SetUint64(v)
}

func TestTransactionVersion(t *testing.T) {
	plain := version(1)
	assert.False(t, plain.HasQueryBit())
	assert.True(t, plain.Is(1))

	query := plain.WithQueryBit()
	assert.True(t, query.HasQueryBit())
	assert.True(t, query.Is(1))
	assert.False(t, query.Is(0))
	assert.Equal(t, uint64(1), query.Uint64())
	assert.False(t, query.AsFelt().Equal(plain.AsFelt()))

	stripped := query.WithoutQueryBit()
	assert.Equal(t, *plain, stripped)

	t.Run("json", func(t *testing.T) {
		b, err := query.MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, `"0x100000000000000000000000000000001"`, string(b))

		var decoded core.TransactionVersion
		require.NoError(t, decoded.UnmarshalJSON(b))
		assert.Equal(t, query, decoded)
	})
}

func TestFeeUnitOf(t *testing.T) {
	tests := map[string]struct {
		txn  core.Transaction
		unit core.FeeUnit
	}{
		"invoke v1":        {&core.InvokeTransaction{Version: version(1)}, core.WEI},
		"invoke v3":        {&core.InvokeTransaction{Version: version(3)}, core.FRI},
		"query invoke v3":  {&core.InvokeTransaction{Version: utils.HeapPtr(version(3).WithQueryBit())}, core.FRI},
		"declare v2":       {&core.DeclareTransaction{Version: version(2)}, core.WEI},
		"deploy account 3": {&core.DeployAccountTransaction{DeployTransaction: core.DeployTransaction{Version: version(3)}}, core.FRI},
		"l1 handler":       {&core.L1HandlerTransaction{Version: version(0)}, core.WEI},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.unit, core.FeeUnitOf(test.txn))
		})
	}
}

func TestMaxFeeOf(t *testing.T) {
	t.Run("max fee field", func(t *testing.T) {
		txn := &core.InvokeTransaction{Version: version(1), MaxFee: utils.HexToFelt(t, "0x64")}
		assert.Equal(t, big.NewInt(100), core.MaxFeeOf(txn))
	})
	t.Run("missing max fee", func(t *testing.T) {
		txn := &core.DeclareTransaction{Version: version(1)}
		assert.Equal(t, 0, core.MaxFeeOf(txn).Sign())
	})
	t.Run("resource bounds", func(t *testing.T) {
		txn := &core.InvokeTransaction{
			Version: version(3),
			ResourceBounds: map[core.Resource]core.ResourceBounds{
				core.ResourceL1Gas: {MaxAmount: 10, MaxPricePerUnit: utils.HexToFelt(t, "0x3")},
				core.ResourceL2Gas: {MaxAmount: 1000, MaxPricePerUnit: utils.HexToFelt(t, "0x3")},
			},
		}
		assert.Equal(t, big.NewInt(30), core.MaxFeeOf(txn))
	})
}

func TestTransactionHash(t *testing.T) {
	chainID := utils.Sepolia.ChainID()
	invoke := &core.InvokeTransaction{
		Version:              version(1),
		SenderAddress:        utils.HexToFelt(t, "0x1"),
		CallData:             []*felt.Felt{utils.HexToFelt(t, "0x2")},
		MaxFee:               utils.HexToFelt(t, "0x3"),
		Nonce:                utils.HexToFelt(t, "0x4"),
		TransactionSignature: []*felt.Felt{utils.HexToFelt(t, "0x5")},
	}

	hash, err := core.TransactionHash(invoke, chainID)
	require.NoError(t, err)

	t.Run("deterministic", func(t *testing.T) {
		again, err := core.TransactionHash(invoke, chainID)
		require.NoError(t, err)
		assert.Equal(t, hash, again)
	})

	t.Run("bound to the chain", func(t *testing.T) {
		other, err := core.TransactionHash(invoke, utils.Mainnet.ChainID())
		require.NoError(t, err)
		assert.NotEqual(t, hash, other)
	})

	t.Run("query version hashes differently", func(t *testing.T) {
		query := *invoke
		query.Version = utils.HeapPtr(invoke.Version.WithQueryBit())
		other, err := core.TransactionHash(&query, chainID)
		require.NoError(t, err)
		assert.NotEqual(t, hash, other)
	})

	t.Run("signature is not hashed", func(t *testing.T) {
		unsigned := *invoke
		unsigned.TransactionSignature = nil
		other, err := core.TransactionHash(&unsigned, chainID)
		require.NoError(t, err)
		assert.Equal(t, hash, other)
	})

	t.Run("unsupported versions", func(t *testing.T) {
		_, err := core.TransactionHash(&core.InvokeTransaction{Version: version(2)}, chainID)
		require.ErrorContains(t, err, "invalid Transaction")
		_, err = core.TransactionHash(&core.L1HandlerTransaction{Version: version(1)}, chainID)
		require.Error(t, err)
		_, err = core.TransactionHash(&core.DeployAccountTransaction{
			DeployTransaction: core.DeployTransaction{Version: version(0)},
		}, chainID)
		require.Error(t, err)
	})

	t.Run("every supported kind", func(t *testing.T) {
		bounds := map[core.Resource]core.ResourceBounds{
			core.ResourceL1Gas: {MaxAmount: 1, MaxPricePerUnit: utils.HexToFelt(t, "0x1")},
		}
		txns := []core.Transaction{
			&core.InvokeTransaction{Version: version(0), ContractAddress: invoke.SenderAddress, EntryPointSelector: &felt.One, MaxFee: &felt.Zero},
			&core.InvokeTransaction{Version: version(3), SenderAddress: invoke.SenderAddress, Nonce: &felt.Zero, ResourceBounds: bounds},
			&core.DeclareTransaction{Version: version(0), SenderAddress: invoke.SenderAddress, ClassHash: &felt.One, MaxFee: &felt.Zero},
			&core.DeclareTransaction{Version: version(1), SenderAddress: invoke.SenderAddress, ClassHash: &felt.One, MaxFee: &felt.Zero, Nonce: &felt.Zero},
			&core.DeclareTransaction{Version: version(2), SenderAddress: invoke.SenderAddress, ClassHash: &felt.One, MaxFee: &felt.Zero, Nonce: &felt.Zero, CompiledClassHash: &felt.One},
			&core.DeclareTransaction{Version: version(3), SenderAddress: invoke.SenderAddress, ClassHash: &felt.One, Nonce: &felt.Zero, CompiledClassHash: &felt.One, ResourceBounds: bounds},
			&core.DeployAccountTransaction{
				DeployTransaction: core.DeployTransaction{Version: version(1), ContractAddress: &felt.One, ClassHash: &felt.One, ContractAddressSalt: &felt.Zero},
				MaxFee:            &felt.Zero,
				Nonce:             &felt.Zero,
			},
			&core.DeployAccountTransaction{
				DeployTransaction: core.DeployTransaction{Version: version(3), ContractAddress: &felt.One, ClassHash: &felt.One, ContractAddressSalt: &felt.Zero},
				Nonce:             &felt.Zero,
				ResourceBounds:    bounds,
			},
			&core.L1HandlerTransaction{Version: version(0), ContractAddress: &felt.One, EntryPointSelector: &felt.One, Nonce: &felt.Zero},
		}
		seen := make(map[felt.Felt]struct{})
		for _, txn := range txns {
			h, err := core.TransactionHash(txn, chainID)
			require.NoError(t, err)
			seen[*h] = struct{}{}
		}
		assert.Len(t, seen, len(txns))
	})
}

func TestL1ToL2MessageAsTransaction(t *testing.T) {
	msg := &core.L1ToL2Message{
		From:     common.HexToAddress("0xc662c410C0ECf747543f5bA90660f6ABeBD9C8c4"),
		Payload:  []*felt.Felt{utils.HexToFelt(t, "0x7")},
		Selector: utils.HexToFelt(t, "0x8"),
		To:       utils.HexToFelt(t, "0x9"),
	}
	txn, err := msg.AsTransaction(utils.Sepolia.ChainID())
	require.NoError(t, err)

	assert.Equal(t, msg.To, txn.ContractAddress)
	assert.Equal(t, msg.Selector, txn.EntryPointSelector)
	require.Len(t, txn.CallData, 2)
	assert.Equal(t, utils.HexToFelt(t, "0xc662c410C0ECf747543f5bA90660f6ABeBD9C8c4"), txn.CallData[0])
	assert.True(t, txn.Nonce.IsZero())
	assert.NotNil(t, txn.Hash())
	assert.Empty(t, txn.Signature())
}

func TestContractAddress(t *testing.T) {
	// https://docs.starknet.io/architecture-and-concepts/smart-contracts/contract-address/
	address := core.ContractAddress(
		&felt.Zero,
		utils.HexToFelt(t, "0x0439218681f9108b470d2379cf589ef47e60dc5888ee49ec70071671d74ca9c6"),
		utils.HexToFelt(t, "0x5bebda1b28ba6daa824126577b9fbc984033e8b18360f5e1ef694cb172c7aa5"),
		nil,
	)
	assert.Equal(t, utils.HexToFelt(t, "0x43c6817e70b3fd99a4f120790b2e82c6843df62b573fdadf9e2d677b60ac5eb"), address)
}

func TestSenderAddress(t *testing.T) {
	account := utils.HexToFelt(t, "0x1")
	assert.Equal(t, account, core.SenderAddress(&core.InvokeTransaction{Version: version(0), ContractAddress: account}))
	assert.Equal(t, account, core.SenderAddress(&core.InvokeTransaction{Version: version(1), SenderAddress: account}))
	assert.Equal(t, account, core.SenderAddress(&core.DeployAccountTransaction{
		DeployTransaction: core.DeployTransaction{ContractAddress: account, Version: version(1)},
	}))
	assert.Nil(t, core.SenderAddress(&core.L1HandlerTransaction{Version: version(0)}))
}

func TestParseBlockVersion(t *testing.T) {
	for version, expected := range map[string]string{
		"":         "0.0.0",
		"0.13.1":   "0.13.1",
		"0.13.1.1": "0.13.1",
		"0.14":     "0.14.0",
	} {
		t.Run(version, func(t *testing.T) {
			parsed, err := core.ParseBlockVersion(version)
			require.NoError(t, err)
			assert.Equal(t, expected, parsed.String())
		})
	}
}
