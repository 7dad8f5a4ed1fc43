package batch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/NethermindEth/starksim/core"
	"github.com/NethermindEth/starksim/core/crypto"
	"github.com/NethermindEth/starksim/core/felt"
	"github.com/NethermindEth/starksim/validator"
	"github.com/NethermindEth/starksim/vm/native"
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

type TransactionType string

const (
	TxnInvoke        TransactionType = "INVOKE"
	TxnDeclare       TransactionType = "DECLARE"
	TxnDeployAccount TransactionType = "DEPLOY_ACCOUNT"
)

type ResourceBounds struct {
	MaxAmount       uint64     `json:"max_amount" yaml:"max_amount"`
	MaxPricePerUnit *felt.Felt `json:"max_price_per_unit" yaml:"max_price_per_unit" validate:"required"`
}

type ResourceBoundsMap struct {
	L1Gas     *ResourceBounds `json:"l1_gas" yaml:"l1_gas" validate:"required"`
	L2Gas     *ResourceBounds `json:"l2_gas,omitempty" yaml:"l2_gas,omitempty"`
	L1DataGas *ResourceBounds `json:"l1_data_gas,omitempty" yaml:"l1_data_gas,omitempty"`
}

// Transaction is an account transaction as written in a batch file. Declare
// transactions name the builtin contract whose class they declare.
type Transaction struct {
	Type                  TransactionType    `json:"type" yaml:"type" validate:"required,oneof=INVOKE DECLARE DEPLOY_ACCOUNT"`
	Version               *felt.Felt         `json:"version" yaml:"version" validate:"required"`
	Nonce                 *felt.Felt         `json:"nonce,omitempty" yaml:"nonce,omitempty" validate:"required_unless=Version 0x0"`
	MaxFee                *felt.Felt         `json:"max_fee,omitempty" yaml:"max_fee,omitempty"`
	ContractAddress       *felt.Felt         `json:"contract_address,omitempty" yaml:"contract_address,omitempty"`
	ContractAddressSalt   *felt.Felt         `json:"contract_address_salt,omitempty" yaml:"contract_address_salt,omitempty" validate:"required_if=Type DEPLOY_ACCOUNT"`
	ClassHash             *felt.Felt         `json:"class_hash,omitempty" yaml:"class_hash,omitempty" validate:"required_if=Type DEPLOY_ACCOUNT"`
	ConstructorCallData   []*felt.Felt       `json:"constructor_calldata,omitempty" yaml:"constructor_calldata,omitempty"`
	SenderAddress         *felt.Felt         `json:"sender_address,omitempty" yaml:"sender_address,omitempty" validate:"required_if=Type DECLARE"`
	Signature             []*felt.Felt       `json:"signature,omitempty" yaml:"signature,omitempty"`
	CallData              []*felt.Felt       `json:"calldata,omitempty" yaml:"calldata,omitempty"`
	EntryPointSelector    *felt.Felt         `json:"entry_point_selector,omitempty" yaml:"entry_point_selector,omitempty"`
	CompiledClassHash     *felt.Felt         `json:"compiled_class_hash,omitempty" yaml:"compiled_class_hash,omitempty"`
	ResourceBounds        *ResourceBoundsMap `json:"resource_bounds,omitempty" yaml:"resource_bounds,omitempty" validate:"resource_bounds_required"`
	Tip                   uint64             `json:"tip,omitempty" yaml:"tip,omitempty"`
	PaymasterData         []*felt.Felt       `json:"paymaster_data,omitempty" yaml:"paymaster_data,omitempty"`
	AccountDeploymentData []*felt.Felt       `json:"account_deployment_data,omitempty" yaml:"account_deployment_data,omitempty"`
	NonceDAMode           string             `json:"nonce_data_availability_mode,omitempty" yaml:"nonce_data_availability_mode,omitempty" validate:"omitempty,oneof=L1 L2"`
	FeeDAMode             string             `json:"fee_data_availability_mode,omitempty" yaml:"fee_data_availability_mode,omitempty" validate:"omitempty,oneof=L1 L2"`

	// ContractClass names the builtin contract a declare transaction declares.
	ContractClass string `json:"contract_class,omitempty" yaml:"contract_class,omitempty" validate:"required_if=Type DECLARE"`
	// SignWith signs the transaction for the account owning this public key
	// once its hash is known. Signature must then be empty.
	SignWith *felt.Felt `json:"sign_with,omitempty" yaml:"sign_with,omitempty" validate:"excluded_with=Signature"`
}

func (t Transaction) IsV3() bool {
	return t.Version != nil && t.Version.Equal(new(felt.Felt).SetUint64(3))
}

// Message is a message sent from L1 to a contract on L2.
type Message struct {
	From common.Address `json:"from_address" yaml:"from_address"`
	To   *felt.Felt     `json:"to_address" yaml:"to_address" validate:"required"`
	// Selector and EntryPoint are alternatives; EntryPoint is the name of the
	// L1 handler.
	Selector   *felt.Felt   `json:"entry_point_selector,omitempty" yaml:"entry_point_selector,omitempty" validate:"required_without=EntryPoint"`
	EntryPoint string       `json:"entry_point,omitempty" yaml:"entry_point,omitempty"`
	Payload    []*felt.Felt `json:"payload" yaml:"payload"`
	Nonce      *felt.Felt   `json:"nonce,omitempty" yaml:"nonce,omitempty"`
}

// File is a batch of transactions, an L1 message, or both.
type File struct {
	Transactions []Transaction `json:"transactions" yaml:"transactions" validate:"dive"`
	Message      *Message      `json:"message,omitempty" yaml:"message,omitempty" validate:"omitempty"`
}

type Format uint8

const (
	JSON Format = iota
	YAML
)

// FormatOf picks the format from the file extension, JSON unless it is a YAML one.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return JSON
	}
}

// Decode reads and validates a batch file.
func Decode(r io.Reader, format Format) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var file File
	switch format {
	case YAML:
		err = yaml.Unmarshal(data, &file)
	default:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		err = decoder.Decode(&file)
	}
	if err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}

	if err = validator.Validator().Struct(file); err != nil {
		return nil, fmt.Errorf("invalid batch: %w", err)
	}
	return &file, nil
}

func Read(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, FormatOf(path))
}

// ContractResolver finds builtin contracts by name.
type ContractResolver interface {
	Contract(name string) (*native.Contract, bool)
}

// Adapt converts the batch to core transactions with hashes for chainID.
// The message, if any, is returned as an L1 handler transaction.
func (f *File) Adapt(chainID *felt.Felt, contracts ContractResolver) ([]core.Transaction, *core.L1HandlerTransaction, error) {
	txns := make([]core.Transaction, 0, len(f.Transactions))
	for idx := range f.Transactions {
		txn, err := f.Transactions[idx].Adapt(chainID, contracts)
		if err != nil {
			return nil, nil, fmt.Errorf("transaction %d: %w", idx, err)
		}
		txns = append(txns, txn)
	}

	if f.Message == nil {
		return txns, nil, nil
	}
	message, err := f.Message.Adapt(chainID)
	if err != nil {
		return nil, nil, fmt.Errorf("message: %w", err)
	}
	return txns, message, nil
}

func (m *Message) Adapt(chainID *felt.Felt) (*core.L1HandlerTransaction, error) {
	selector := m.Selector
	if selector == nil {
		selector = crypto.Selector(m.EntryPoint)
	}
	msg := core.L1ToL2Message{
		From:     m.From,
		Nonce:    m.Nonce,
		Payload:  m.Payload,
		Selector: selector,
		To:       m.To,
	}
	return msg.AsTransaction(chainID)
}

// Adapt converts t to a core transaction, computes its hash for chainID and
// signs it when SignWith is set.
func (t *Transaction) Adapt(chainID *felt.Felt, contracts ContractResolver) (core.Transaction, error) {
	version := (*core.TransactionVersion)(t.Version)
	nonceDAMode, err := adaptDAMode(t.NonceDAMode)
	if err != nil {
		return nil, err
	}
	feeDAMode, err := adaptDAMode(t.FeeDAMode)
	if err != nil {
		return nil, err
	}
	resourceBounds, err := t.ResourceBounds.adapt()
	if err != nil {
		return nil, err
	}

	var txn core.Transaction
	switch t.Type {
	case TxnInvoke:
		txn = &core.InvokeTransaction{
			Version:               version,
			Nonce:                 t.Nonce,
			MaxFee:                feltOrZero(t.MaxFee),
			ContractAddress:       t.ContractAddress,
			SenderAddress:         t.SenderAddress,
			EntryPointSelector:    t.EntryPointSelector,
			CallData:              t.CallData,
			TransactionSignature:  t.Signature,
			ResourceBounds:        resourceBounds,
			Tip:                   t.Tip,
			PaymasterData:         t.PaymasterData,
			AccountDeploymentData: t.AccountDeploymentData,
			NonceDAMode:           nonceDAMode,
			FeeDAMode:             feeDAMode,
		}
	case TxnDeployAccount:
		txn = &core.DeployAccountTransaction{
			DeployTransaction: core.DeployTransaction{
				ContractAddressSalt: t.ContractAddressSalt,
				ContractAddress:     t.ContractAddress,
				ClassHash:           t.ClassHash,
				ConstructorCallData: t.ConstructorCallData,
				Version:             version,
			},
			MaxFee:               feltOrZero(t.MaxFee),
			TransactionSignature: t.Signature,
			Nonce:                t.Nonce,
			ResourceBounds:       resourceBounds,
			Tip:                  t.Tip,
			PaymasterData:        t.PaymasterData,
			NonceDAMode:          nonceDAMode,
			FeeDAMode:            feeDAMode,
		}
	case TxnDeclare:
		declare := &core.DeclareTransaction{
			SenderAddress:         t.SenderAddress,
			MaxFee:                feltOrZero(t.MaxFee),
			TransactionSignature:  t.Signature,
			Nonce:                 t.Nonce,
			Version:               version,
			CompiledClassHash:     t.CompiledClassHash,
			ResourceBounds:        resourceBounds,
			Tip:                   t.Tip,
			PaymasterData:         t.PaymasterData,
			AccountDeploymentData: t.AccountDeploymentData,
			NonceDAMode:           nonceDAMode,
			FeeDAMode:             feeDAMode,
		}
		if err = setClass(declare, t.ContractClass, contracts); err != nil {
			return nil, err
		}
		txn = declare
	default:
		return nil, fmt.Errorf("unsupported transaction type %q", t.Type)
	}

	if deployAccount, ok := txn.(*core.DeployAccountTransaction); ok && deployAccount.ContractAddress == nil {
		deployAccount.ContractAddress = core.ContractAddress(&felt.Zero, deployAccount.ClassHash,
			deployAccount.ContractAddressSalt, deployAccount.ConstructorCallData)
	}

	hash, err := core.TransactionHash(txn, chainID)
	if err != nil {
		return nil, err
	}
	var signature []*felt.Felt
	if t.SignWith != nil {
		signature = native.AccountSignature(t.SignWith, hash)
	}
	setHashAndSignature(txn, hash, signature)
	return txn, nil
}

// setClass attaches the class of the named contract and derives its hash.
// Versions before 2 declare the Cairo 0 form of the class. A missing
// compiled class hash is derived from the compiled class.
func setClass(declare *core.DeclareTransaction, name string, contracts ContractResolver) error {
	contract, ok := contracts.Contract(name)
	if !ok {
		return fmt.Errorf("unknown contract %q", name)
	}

	var (
		class     core.Class
		classHash *felt.Felt
		err       error
	)
	if declare.Version.Uint64() < 2 {
		legacy := contract.LegacyClass()
		class = legacy
		classHash, err = legacy.Hash()
	} else {
		sierra := contract.Class()
		class = sierra
		if classHash, err = sierra.Hash(); err == nil && declare.CompiledClassHash == nil {
			declare.CompiledClassHash, err = sierra.Compiled.Hash()
		}
	}
	if err != nil {
		return fmt.Errorf("class hash of %s: %w", name, err)
	}
	declare.Class, declare.ClassHash = class, classHash
	return nil
}

func (b *ResourceBoundsMap) adapt() (map[core.Resource]core.ResourceBounds, error) {
	if b == nil {
		return nil, nil
	}
	bounds := make(map[core.Resource]core.ResourceBounds, 3)
	for resource, bound := range map[core.Resource]*ResourceBounds{
		core.ResourceL1Gas:     b.L1Gas,
		core.ResourceL2Gas:     b.L2Gas,
		core.ResourceL1DataGas: b.L1DataGas,
	} {
		if bound != nil {
			bounds[resource] = core.ResourceBounds{MaxAmount: bound.MaxAmount, MaxPricePerUnit: bound.MaxPricePerUnit}
		}
	}
	return bounds, nil
}

func adaptDAMode(mode string) (core.DataAvailabilityMode, error) {
	switch mode {
	case "", "L1":
		return core.DAModeL1, nil
	case "L2":
		return core.DAModeL2, nil
	default:
		return 0, errors.New("unknown data availability mode " + mode)
	}
}

func feltOrZero(f *felt.Felt) *felt.Felt {
	if f == nil {
		return &felt.Zero
	}
	return f
}

func setHashAndSignature(txn core.Transaction, hash *felt.Felt, signature []*felt.Felt) {
	switch t := txn.(type) {
	case *core.InvokeTransaction:
		t.TransactionHash = hash
		if signature != nil {
			t.TransactionSignature = signature
		}
	case *core.DeclareTransaction:
		t.TransactionHash = hash
		if signature != nil {
			t.TransactionSignature = signature
		}
	case *core.DeployAccountTransaction:
		t.TransactionHash = hash
		if signature != nil {
			t.TransactionSignature = signature
		}
	}
}
