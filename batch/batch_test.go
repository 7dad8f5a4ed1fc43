package batch_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/NethermindEth/starksim/batch"
	"github.com/NethermindEth/starksim/core"
	"github.com/NethermindEth/starksim/core/crypto"
	"github.com/NethermindEth/starksim/core/felt"
	"github.com/NethermindEth/starksim/utils"
	"github.com/NethermindEth/starksim/vm/native"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonBatch = `{
	"transactions": [
		{
			"type": "INVOKE",
			"version": "0x1",
			"nonce": "0x0",
			"max_fee": "0x2386f26fc10000",
			"sender_address": "0x101",
			"calldata": ["0x1", "0x4e110", "0x362398bec32bc0ebb411203221a35a0301193a96f317ebe5e40be9f60d15320", "0x1", "0x3"],
			"sign_with": "0x16d03d341717ab11083a481f53278d8e54f610af815cbdab4035b2df283fcc0"
		},
		{
			"type": "DECLARE",
			"version": "0x2",
			"nonce": "0x1",
			"max_fee": "0x2386f26fc10000",
			"sender_address": "0x101",
			"contract_class": "HelloStarknet",
			"signature": ["0x1", "0x2"]
		},
		{
			"type": "DEPLOY_ACCOUNT",
			"version": "0x3",
			"nonce": "0x0",
			"class_hash": "0x1234",
			"contract_address_salt": "0x2a",
			"constructor_calldata": ["0xabc"],
			"resource_bounds": {
				"l1_gas": {"max_amount": 100000, "max_price_per_unit": "0x14"}
			},
			"nonce_data_availability_mode": "L1",
			"fee_data_availability_mode": "L2"
		}
	],
	"message": {
		"from_address": "0x000000000000000000000000000000000000abcd",
		"to_address": "0x4e110",
		"entry_point": "deposit",
		"payload": ["0x5"]
	}
}`

const yamlBatch = `
transactions:
  - type: INVOKE
    version: 0x1
    nonce: 0x0
    max_fee: 0x2386f26fc10000
    sender_address: 0x101
    calldata: [0x1, 0x4e110, 0x362398bec32bc0ebb411203221a35a0301193a96f317ebe5e40be9f60d15320, 0x1, 0x3]
    sign_with: 0x16d03d341717ab11083a481f53278d8e54f610af815cbdab4035b2df283fcc0
  - type: DECLARE
    version: 0x2
    nonce: 0x1
    max_fee: 0x2386f26fc10000
    sender_address: 0x101
    contract_class: HelloStarknet
    signature: [0x1, 0x2]
  - type: DEPLOY_ACCOUNT
    version: 0x3
    nonce: 0x0
    class_hash: 0x1234
    contract_address_salt: 0x2a
    constructor_calldata: [0xabc]
    resource_bounds:
      l1_gas:
        max_amount: 100000
        max_price_per_unit: 0x14
    nonce_data_availability_mode: L1
    fee_data_availability_mode: L2
message:
  from_address: "0x000000000000000000000000000000000000abcd"
  to_address: 0x4e110
  entry_point: deposit
  payload: [0x5]
`

func TestDecode(t *testing.T) {
	fromJSON, err := batch.Decode(strings.NewReader(jsonBatch), batch.JSON)
	require.NoError(t, err)
	fromYAML, err := batch.Decode(strings.NewReader(yamlBatch), batch.YAML)
	require.NoError(t, err)
	assert.Equal(t, fromJSON, fromYAML)

	require.Len(t, fromJSON.Transactions, 3)
	assert.Equal(t, batch.TxnDeclare, fromJSON.Transactions[1].Type)
	assert.True(t, fromJSON.Transactions[2].IsV3())
	assert.Equal(t, uint64(100000), fromJSON.Transactions[2].ResourceBounds.L1Gas.MaxAmount)
	require.NotNil(t, fromJSON.Message)
	assert.Equal(t, common.HexToAddress("0xabcd"), fromJSON.Message.From)
}

func TestDecodeInvalid(t *testing.T) {
	tests := map[string]string{
		"unknown field":   `{"transactions": [], "extra": 1}`,
		"unknown type":    `{"transactions": [{"type": "DEPLOY", "version": "0x0"}]}`,
		"missing version": `{"transactions": [{"type": "INVOKE", "nonce": "0x0"}]}`,
		"missing nonce":   `{"transactions": [{"type": "INVOKE", "version": "0x1"}]}`,
		"v3 without resource bounds": `{"transactions": [
			{"type": "INVOKE", "version": "0x3", "nonce": "0x0", "sender_address": "0x1"}
		]}`,
		"declare without class": `{"transactions": [
			{"type": "DECLARE", "version": "0x2", "nonce": "0x0", "sender_address": "0x1"}
		]}`,
		"deploy account without salt": `{"transactions": [
			{"type": "DEPLOY_ACCOUNT", "version": "0x1", "nonce": "0x0", "class_hash": "0x1"}
		]}`,
		"signature and signing key": `{"transactions": [
			{"type": "INVOKE", "version": "0x1", "nonce": "0x0", "signature": ["0x1"], "sign_with": "0x2"}
		]}`,
		"unknown data availability mode": `{"transactions": [
			{"type": "INVOKE", "version": "0x1", "nonce": "0x0", "fee_data_availability_mode": "L3"}
		]}`,
		"message without selector": `{"message": {"from_address": "0x000000000000000000000000000000000000abcd", "to_address": "0x1"}}`,
		"short l1 address":         `{"message": {"from_address": "0xabcd", "to_address": "0x1", "entry_point": "deposit"}}`,
		"not a felt":               `{"transactions": [{"type": "INVOKE", "version": "one", "nonce": "0x0"}]}`,
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := batch.Decode(strings.NewReader(input), batch.JSON)
			require.Error(t, err)
		})
	}
}

func TestAdapt(t *testing.T) {
	engine, err := native.New(native.Builtins()...)
	require.NoError(t, err)
	chainID := utils.Devnet.ChainID()

	file, err := batch.Decode(strings.NewReader(jsonBatch), batch.JSON)
	require.NoError(t, err)
	txns, message, err := file.Adapt(chainID, engine)
	require.NoError(t, err)
	require.Len(t, txns, 3)

	t.Run("invoke is hashed and signed", func(t *testing.T) {
		invoke, ok := txns[0].(*core.InvokeTransaction)
		require.True(t, ok)
		hash, err := core.TransactionHash(invoke, chainID)
		require.NoError(t, err)
		assert.Equal(t, hash, invoke.Hash())

		publicKey := utils.HexToFelt(t, "0x16d03d341717ab11083a481f53278d8e54f610af815cbdab4035b2df283fcc0")
		assert.Equal(t, native.AccountSignature(publicKey, hash), invoke.Signature())
		assert.Equal(t, crypto.Selector("increase_balance"), invoke.CallData[2])
	})

	t.Run("declare carries the named class", func(t *testing.T) {
		declare, ok := txns[1].(*core.DeclareTransaction)
		require.True(t, ok)
		class := native.HelloStarknet().Class()
		classHash, err := class.Hash()
		require.NoError(t, err)
		compiledClassHash, err := class.Compiled.Hash()
		require.NoError(t, err)

		assert.Equal(t, classHash, declare.ClassHash)
		assert.Equal(t, compiledClassHash, declare.CompiledClassHash)
		assert.Equal(t, []*felt.Felt{new(felt.Felt).SetUint64(1), new(felt.Felt).SetUint64(2)}, declare.Signature())
		assert.NotNil(t, declare.Hash())
	})

	t.Run("deploy account address is derived", func(t *testing.T) {
		deployAccount, ok := txns[2].(*core.DeployAccountTransaction)
		require.True(t, ok)
		expected := core.ContractAddress(&felt.Zero, deployAccount.ClassHash,
			deployAccount.ContractAddressSalt, deployAccount.ConstructorCallData)
		assert.Equal(t, expected, deployAccount.ContractAddress)
		assert.Equal(t, core.DAModeL2, deployAccount.FeeDAMode)
		assert.Equal(t, core.FRI, core.FeeUnitOf(deployAccount))
		assert.Equal(t, uint64(100000), deployAccount.ResourceBounds[core.ResourceL1Gas].MaxAmount)
	})

	t.Run("message becomes an l1 handler", func(t *testing.T) {
		require.NotNil(t, message)
		assert.Equal(t, crypto.Selector("deposit"), message.EntryPointSelector)
		assert.Equal(t, []*felt.Felt{new(felt.Felt).SetUint64(0xabcd), new(felt.Felt).SetUint64(5)}, message.CallData)
		assert.Equal(t, &felt.Zero, message.Nonce)
		assert.NotNil(t, message.Hash())
	})

	t.Run("unknown contract", func(t *testing.T) {
		unknown := &batch.File{Transactions: []batch.Transaction{{
			Type:          batch.TxnDeclare,
			Version:       new(felt.Felt).SetUint64(2),
			Nonce:         &felt.Zero,
			SenderAddress: &felt.One,
			ContractClass: "Missing",
		}}}
		_, _, err := unknown.Adapt(chainID, engine)
		require.ErrorContains(t, err, "transaction 0")
		require.ErrorContains(t, err, "Missing")
	})

	t.Run("legacy declare", func(t *testing.T) {
		legacy := batch.Transaction{
			Type:          batch.TxnDeclare,
			Version:       new(felt.Felt).SetUint64(1),
			Nonce:         &felt.Zero,
			SenderAddress: &felt.One,
			ContractClass: native.HelloStarknet().Name,
		}
		txn, err := legacy.Adapt(chainID, engine)
		require.NoError(t, err)
		declare := txn.(*core.DeclareTransaction)
		_, isLegacy := declare.Class.(*core.DeprecatedCairoClass)
		assert.True(t, isLegacy)
		assert.Nil(t, declare.CompiledClassHash)
		assert.Equal(t, &felt.Zero, declare.MaxFee)
	})
}

func TestRead(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "batch.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlBatch), 0o600))

	file, err := batch.Read(yamlPath)
	require.NoError(t, err)
	assert.Len(t, file.Transactions, 3)

	_, err = batch.Read(filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)

	assert.Equal(t, batch.YAML, batch.FormatOf("a/b.YAML"))
	assert.Equal(t, batch.JSON, batch.FormatOf("b.json"))
	assert.Equal(t, batch.JSON, batch.FormatOf("batch"))
}
