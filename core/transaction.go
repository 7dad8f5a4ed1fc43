package core

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/NethermindEth/starksim/core/crypto"
	"github.com/NethermindEth/starksim/core/felt"
	"github.com/ethereum/go-ethereum/common"
)

type Event struct {
	Data []*felt.Felt
	From *felt.Felt
	Keys []*felt.Felt
}

type L1ToL2Message struct {
	From     common.Address
	Nonce    *felt.Felt
	Payload  []*felt.Felt
	Selector *felt.Felt
	To       *felt.Felt
}

// AsTransaction builds the L1 handler transaction that consumes the message on L2.
// The L1 sender is passed as the first calldata element.
func (m *L1ToL2Message) AsTransaction(chainID *felt.Felt) (*L1HandlerTransaction, error) {
	callData := make([]*felt.Felt, 0, len(m.Payload)+1)
	callData = append(callData, new(felt.Felt).SetBytes(m.From.Bytes()))
	callData = append(callData, m.Payload...)

	nonce := m.Nonce
	if nonce == nil {
		nonce = &felt.Zero
	}

	txn := &L1HandlerTransaction{
		ContractAddress:    m.To,
		EntryPointSelector: m.Selector,
		Nonce:              nonce,
		CallData:           callData,
		Version:            new(TransactionVersion),
	}
	hash, err := TransactionHash(txn, chainID)
	if err != nil {
		return nil, err
	}
	txn.TransactionHash = hash
	return txn, nil
}

type L2ToL1Message struct {
	From    *felt.Felt
	Payload []*felt.Felt
	To      common.Address
}

type Resource uint32

const (
	ResourceL1Gas Resource = iota + 1
	ResourceL2Gas
	ResourceL1DataGas
)

func (r Resource) String() string {
	switch r {
	case ResourceL1Gas:
		return "L1_GAS"
	case ResourceL2Gas:
		return "L2_GAS"
	case ResourceL1DataGas:
		return "L1_DATA"
	default:
		return ""
	}
}

func (r Resource) MarshalText() ([]byte, error) {
	s := r.String()
	if s == "" {
		return nil, fmt.Errorf("unknown resource %d", uint32(r))
	}
	return []byte(s), nil
}

func (r *Resource) UnmarshalText(data []byte) error {
	switch string(data) {
	case "L1_GAS", "l1_gas":
		*r = ResourceL1Gas
	case "L2_GAS", "l2_gas":
		*r = ResourceL2Gas
	case "L1_DATA", "L1_DATA_GAS", "l1_data_gas":
		*r = ResourceL1DataGas
	default:
		return fmt.Errorf("unknown resource %q", data)
	}
	return nil
}

type ResourceBounds struct {
	MaxAmount       uint64
	MaxPricePerUnit *felt.Felt
}

// MaxFee is the most a transaction bounded by rb can be charged.
func (rb ResourceBounds) MaxFee() *big.Int {
	price := new(big.Int)
	if rb.MaxPricePerUnit != nil {
		rb.MaxPricePerUnit.BigInt(price)
	}
	return price.Mul(price, new(big.Int).SetUint64(rb.MaxAmount))
}

type DataAvailabilityMode uint32

const (
	DAModeL1 DataAvailabilityMode = iota
	DAModeL2
)

// TransactionVersion is a 256 bit integer, not a field element. Versions
// used for fee estimation carry the query bit (2^128) so they can never be
// replayed as real transactions.
type TransactionVersion felt.Felt

var queryBit = new(felt.Felt).SetBigInt(new(big.Int).Lsh(big.NewInt(1), 128))

func (v *TransactionVersion) SetUint64(u64 uint64) *TransactionVersion {
	v.AsFelt().SetUint64(u64)
	return v
}

func (v *TransactionVersion) AsFelt() *felt.Felt {
	return (*felt.Felt)(v)
}

func (v *TransactionVersion) HasQueryBit() bool {
	return v.AsFelt().Cmp(queryBit) >= 0
}

// Is checks the version against u64 ignoring the query bit
func (v *TransactionVersion) Is(u64 uint64) bool {
	plain := v.WithoutQueryBit()
	return plain.AsFelt().Equal(new(felt.Felt).SetUint64(u64))
}

// Uint64 returns the version without the query bit
func (v *TransactionVersion) Uint64() uint64 {
	plain := v.WithoutQueryBit()
	return plain.AsFelt().Uint64()
}

func (v *TransactionVersion) WithoutQueryBit() TransactionVersion {
	vFelt := *v.AsFelt()
	if v.HasQueryBit() {
		vFelt.Sub(&vFelt, queryBit)
	}
	return TransactionVersion(vFelt)
}

// WithQueryBit returns the estimation-only counterpart of v
func (v *TransactionVersion) WithQueryBit() TransactionVersion {
	vFelt := *v.AsFelt()
	if !v.HasQueryBit() {
		vFelt.Add(&vFelt, queryBit)
	}
	return TransactionVersion(vFelt)
}

func (v *TransactionVersion) String() string {
	return v.AsFelt().String()
}

func (v *TransactionVersion) MarshalJSON() ([]byte, error) {
	return v.AsFelt().MarshalJSON()
}

func (v *TransactionVersion) UnmarshalJSON(data []byte) error {
	return v.AsFelt().UnmarshalJSON(data)
}

// Transaction is the closed set of transaction kinds the executor understands.
type Transaction interface {
	Hash() *felt.Felt
	Signature() []*felt.Felt
	TxVersion() *TransactionVersion
	transaction()
}

var (
	_ Transaction = (*DeployAccountTransaction)(nil)
	_ Transaction = (*DeclareTransaction)(nil)
	_ Transaction = (*InvokeTransaction)(nil)
	_ Transaction = (*L1HandlerTransaction)(nil)
)

// DeployTransaction holds the fields shared with deploy account transactions.
// Plain deploy transactions were removed from the protocol and are not executable.
type DeployTransaction struct {
	TransactionHash *felt.Felt
	// A random number used to distinguish between different instances of the contract.
	ContractAddressSalt *felt.Felt
	// The address of the contract.
	ContractAddress *felt.Felt
	// The hash of the class which defines the contract’s functionality.
	ClassHash *felt.Felt
	// The arguments passed to the constructor during deployment.
	ConstructorCallData []*felt.Felt
	Version             *TransactionVersion
}

type DeployAccountTransaction struct {
	DeployTransaction
	// The maximum fee that the sender is willing to pay for the transaction.
	MaxFee *felt.Felt
	// Additional information given by the sender, used to validate the transaction.
	TransactionSignature []*felt.Felt
	// The transaction nonce.
	Nonce *felt.Felt

	// Version 3 fields
	ResourceBounds map[Resource]ResourceBounds
	Tip            uint64
	PaymasterData  []*felt.Felt
	NonceDAMode    DataAvailabilityMode
	FeeDAMode      DataAvailabilityMode
}

func (d *DeployAccountTransaction) Hash() *felt.Felt {
	return d.TransactionHash
}

func (d *DeployAccountTransaction) Signature() []*felt.Felt {
	return d.TransactionSignature
}

func (d *DeployAccountTransaction) TxVersion() *TransactionVersion {
	return d.Version
}

func (d *DeployAccountTransaction) transaction() {}

type InvokeTransaction struct {
	TransactionHash *felt.Felt
	// The arguments that are passed to the validated and execute functions.
	CallData []*felt.Felt
	// Additional information given by the sender, used to validate the transaction.
	TransactionSignature []*felt.Felt
	// The maximum fee that the sender is willing to pay for the transaction
	MaxFee *felt.Felt
	// The address of the contract invoked by this transaction.
	ContractAddress *felt.Felt
	// When the fields that comprise a transaction change,
	// either with the addition of a new field or the removal of an existing field,
	// then the transaction version increases.
	Version *TransactionVersion

	// Version 0 fields
	// The encoding of the selector for the function invoked (the entry point in the contract)
	EntryPointSelector *felt.Felt

	// Version 1 fields
	// The transaction nonce.
	Nonce *felt.Felt
	// The address of the sender of this transaction
	SenderAddress *felt.Felt

	// Version 3 fields
	ResourceBounds        map[Resource]ResourceBounds
	Tip                   uint64
	PaymasterData         []*felt.Felt
	AccountDeploymentData []*felt.Felt
	NonceDAMode           DataAvailabilityMode
	FeeDAMode             DataAvailabilityMode
}

func (i *InvokeTransaction) Hash() *felt.Felt {
	return i.TransactionHash
}

func (i *InvokeTransaction) Signature() []*felt.Felt {
	return i.TransactionSignature
}

func (i *InvokeTransaction) TxVersion() *TransactionVersion {
	return i.Version
}

func (i *InvokeTransaction) transaction() {}

type DeclareTransaction struct {
	TransactionHash *felt.Felt
	// The class hash
	ClassHash *felt.Felt
	// The address of the account initiating the transaction.
	SenderAddress *felt.Felt
	// The maximum fee that the sender is willing to pay for the transaction.
	MaxFee *felt.Felt
	// Additional information given by the sender, used to validate the transaction.
	TransactionSignature []*felt.Felt
	// The transaction nonce.
	Nonce *felt.Felt
	// Transaction version 0 is deprecated and will be removed in a future version of Starknet.
	Version *TransactionVersion
	// The class being declared
	Class Class

	// Version 2 fields
	CompiledClassHash *felt.Felt

	// Version 3 fields
	ResourceBounds        map[Resource]ResourceBounds
	Tip                   uint64
	PaymasterData         []*felt.Felt
	AccountDeploymentData []*felt.Felt
	NonceDAMode           DataAvailabilityMode
	FeeDAMode             DataAvailabilityMode
}

func (d *DeclareTransaction) Hash() *felt.Felt {
	return d.TransactionHash
}

func (d *DeclareTransaction) Signature() []*felt.Felt {
	return d.TransactionSignature
}

func (d *DeclareTransaction) TxVersion() *TransactionVersion {
	return d.Version
}

func (d *DeclareTransaction) transaction() {}

type L1HandlerTransaction struct {
	TransactionHash *felt.Felt
	// The address of the contract.
	ContractAddress *felt.Felt
	// The encoding of the selector for the function invoked (the entry point in the contract)
	EntryPointSelector *felt.Felt
	// The transaction nonce.
	Nonce *felt.Felt
	// The arguments that are passed to the handler. The first element is the L1 sender.
	CallData []*felt.Felt
	Version  *TransactionVersion
}

func (l *L1HandlerTransaction) Hash() *felt.Felt {
	return l.TransactionHash
}

func (l *L1HandlerTransaction) Signature() []*felt.Felt {
	return make([]*felt.Felt, 0)
}

func (l *L1HandlerTransaction) TxVersion() *TransactionVersion {
	return l.Version
}

func (l *L1HandlerTransaction) transaction() {}

// SenderAddress returns the account paying for txn. L1 handlers have no sender.
func SenderAddress(txn Transaction) *felt.Felt {
	switch t := txn.(type) {
	case *InvokeTransaction:
		if t.Version.Is(0) {
			return t.ContractAddress
		}
		return t.SenderAddress
	case *DeclareTransaction:
		return t.SenderAddress
	case *DeployAccountTransaction:
		return t.ContractAddress
	default:
		return nil
	}
}

// TransactionNonce returns the nonce of txn, or nil when it carries none.
func TransactionNonce(txn Transaction) *felt.Felt {
	switch t := txn.(type) {
	case *InvokeTransaction:
		return t.Nonce
	case *DeclareTransaction:
		return t.Nonce
	case *DeployAccountTransaction:
		return t.Nonce
	case *L1HandlerTransaction:
		return t.Nonce
	default:
		return nil
	}
}

// ResourceBoundsOf returns the v3 resource bounds of txn, nil for older versions.
func ResourceBoundsOf(txn Transaction) map[Resource]ResourceBounds {
	switch t := txn.(type) {
	case *InvokeTransaction:
		return t.ResourceBounds
	case *DeclareTransaction:
		return t.ResourceBounds
	case *DeployAccountTransaction:
		return t.ResourceBounds
	default:
		return nil
	}
}

// MaxFeeOf returns the fee bound of txn. For v3 transactions the bound is
// derived from the L1 gas resource bounds.
func MaxFeeOf(txn Transaction) *big.Int {
	if txn.TxVersion().Is(3) {
		bounds := ResourceBoundsOf(txn)
		total := new(big.Int)
		for _, r := range []Resource{ResourceL1Gas, ResourceL1DataGas} {
			if rb, ok := bounds[r]; ok {
				total.Add(total, rb.MaxFee())
			}
		}
		return total
	}

	var maxFee *felt.Felt
	switch t := txn.(type) {
	case *InvokeTransaction:
		maxFee = t.MaxFee
	case *DeclareTransaction:
		maxFee = t.MaxFee
	case *DeployAccountTransaction:
		maxFee = t.MaxFee
	}
	if maxFee == nil {
		return new(big.Int)
	}
	return maxFee.BigInt(new(big.Int))
}

// FeeUnitOf returns the token txn pays its fee in.
func FeeUnitOf(txn Transaction) FeeUnit {
	if _, ok := txn.(*L1HandlerTransaction); !ok && txn.TxVersion().Is(3) {
		return FRI
	}
	return WEI
}

var (
	invokeFelt        = new(felt.Felt).SetBytes([]byte("invoke"))
	declareFelt       = new(felt.Felt).SetBytes([]byte("declare"))
	l1HandlerFelt     = new(felt.Felt).SetBytes([]byte("l1_handler"))
	deployAccountFelt = new(felt.Felt).SetBytes([]byte("deploy_account"))
)

var errUnknownTransaction = errors.New("unknown transaction")

func errInvalidTransactionVersion(t Transaction, version *TransactionVersion) error {
	return fmt.Errorf("invalid Transaction (type: %T) version: %v", t, version.AsFelt().Text(felt.Base10))
}

// TransactionHash computes the hash of txn on the chain identified by chainID.
func TransactionHash(transaction Transaction, chainID *felt.Felt) (*felt.Felt, error) {
	switch t := transaction.(type) {
	case *DeclareTransaction:
		return declareTransactionHash(t, chainID)
	case *InvokeTransaction:
		return invokeTransactionHash(t, chainID)
	case *L1HandlerTransaction:
		return l1HandlerTransactionHash(t, chainID)
	case *DeployAccountTransaction:
		return deployAccountTransactionHash(t, chainID)
	default:
		return nil, errUnknownTransaction
	}
}

func invokeTransactionHash(i *InvokeTransaction, chainID *felt.Felt) (*felt.Felt, error) {
	switch {
	case i.Version.Is(0):
		return crypto.PedersenArray(
			invokeFelt,
			i.Version.AsFelt(),
			i.ContractAddress,
			i.EntryPointSelector,
			crypto.PedersenArray(i.CallData...),
			i.MaxFee,
			chainID,
		), nil
	case i.Version.Is(1):
		return crypto.PedersenArray(
			invokeFelt,
			i.Version.AsFelt(),
			i.SenderAddress,
			&felt.Zero,
			crypto.PedersenArray(i.CallData...),
			i.MaxFee,
			chainID,
			i.Nonce,
		), nil
	case i.Version.Is(3):
		return crypto.PedersenArray(
			invokeFelt,
			i.Version.AsFelt(),
			i.SenderAddress,
			tipAndResourcesHash(i.Tip, i.ResourceBounds),
			crypto.PedersenArray(i.PaymasterData...),
			chainID,
			i.Nonce,
			dataAvailabilityMode(i.FeeDAMode, i.NonceDAMode),
			crypto.PedersenArray(i.AccountDeploymentData...),
			crypto.PedersenArray(i.CallData...),
		), nil
	default:
		return nil, errInvalidTransactionVersion(i, i.Version)
	}
}

func declareTransactionHash(d *DeclareTransaction, chainID *felt.Felt) (*felt.Felt, error) {
	switch {
	case d.Version.Is(0):
		return crypto.PedersenArray(
			declareFelt,
			d.Version.AsFelt(),
			d.SenderAddress,
			&felt.Zero,
			crypto.PedersenArray(),
			d.MaxFee,
			chainID,
			d.ClassHash,
		), nil
	case d.Version.Is(1):
		return crypto.PedersenArray(
			declareFelt,
			d.Version.AsFelt(),
			d.SenderAddress,
			&felt.Zero,
			crypto.PedersenArray(d.ClassHash),
			d.MaxFee,
			chainID,
			d.Nonce,
		), nil
	case d.Version.Is(2):
		return crypto.PedersenArray(
			declareFelt,
			d.Version.AsFelt(),
			d.SenderAddress,
			&felt.Zero,
			crypto.PedersenArray(d.ClassHash),
			d.MaxFee,
			chainID,
			d.Nonce,
			d.CompiledClassHash,
		), nil
	case d.Version.Is(3):
		return crypto.PedersenArray(
			declareFelt,
			d.Version.AsFelt(),
			d.SenderAddress,
			tipAndResourcesHash(d.Tip, d.ResourceBounds),
			crypto.PedersenArray(d.PaymasterData...),
			chainID,
			d.Nonce,
			dataAvailabilityMode(d.FeeDAMode, d.NonceDAMode),
			crypto.PedersenArray(d.AccountDeploymentData...),
			d.ClassHash,
			d.CompiledClassHash,
		), nil
	default:
		return nil, errInvalidTransactionVersion(d, d.Version)
	}
}

func l1HandlerTransactionHash(l *L1HandlerTransaction, chainID *felt.Felt) (*felt.Felt, error) {
	if !l.Version.Is(0) {
		return nil, errInvalidTransactionVersion(l, l.Version)
	}
	return crypto.PedersenArray(
		l1HandlerFelt,
		l.Version.AsFelt(),
		l.ContractAddress,
		l.EntryPointSelector,
		crypto.PedersenArray(l.CallData...),
		&felt.Zero,
		chainID,
		l.Nonce,
	), nil
}

func deployAccountTransactionHash(d *DeployAccountTransaction, chainID *felt.Felt) (*felt.Felt, error) {
	switch {
	// There is no version 0 for deploy account
	case d.Version.Is(1):
		callData := []*felt.Felt{d.ClassHash, d.ContractAddressSalt}
		callData = append(callData, d.ConstructorCallData...)
		return crypto.PedersenArray(
			deployAccountFelt,
			d.Version.AsFelt(),
			d.ContractAddress,
			&felt.Zero,
			crypto.PedersenArray(callData...),
			d.MaxFee,
			chainID,
			d.Nonce,
		), nil
	case d.Version.Is(3):
		return crypto.PedersenArray(
			deployAccountFelt,
			d.Version.AsFelt(),
			d.ContractAddress,
			tipAndResourcesHash(d.Tip, d.ResourceBounds),
			crypto.PedersenArray(d.PaymasterData...),
			chainID,
			d.Nonce,
			dataAvailabilityMode(d.FeeDAMode, d.NonceDAMode),
			crypto.PedersenArray(d.ConstructorCallData...),
			d.ClassHash,
			d.ContractAddressSalt,
		), nil
	default:
		return nil, errInvalidTransactionVersion(d, d.Version)
	}
}

func tipAndResourcesHash(tip uint64, resourceBounds map[Resource]ResourceBounds) *felt.Felt {
	l1Bounds := new(felt.Felt).SetBytes(resourceBoundsBytes(ResourceL1Gas, resourceBounds[ResourceL1Gas]))
	l2Bounds := new(felt.Felt).SetBytes(resourceBoundsBytes(ResourceL2Gas, resourceBounds[ResourceL2Gas]))
	return crypto.PedersenArray(new(felt.Felt).SetUint64(tip), l1Bounds, l2Bounds)
}

// resourceBoundsBytes packs the resource name (60 bits), max amount (64 bits)
// and max price per unit (128 bits) into one word.
func resourceBoundsBytes(resource Resource, bounds ResourceBounds) []byte {
	packed := new(big.Int).SetBytes([]byte(resource.String()))
	packed.Lsh(packed, 64)
	packed.Or(packed, new(big.Int).SetUint64(bounds.MaxAmount))
	packed.Lsh(packed, 128)
	if bounds.MaxPricePerUnit != nil {
		packed.Or(packed, bounds.MaxPricePerUnit.BigInt(new(big.Int)))
	}
	return packed.Bytes()
}

func dataAvailabilityMode(feeDAMode, nonceDAMode DataAvailabilityMode) *felt.Felt {
	const dataAvailabilityModeBits = 32
	return new(felt.Felt).SetUint64(uint64(feeDAMode) + uint64(nonceDAMode)<<dataAvailabilityModeBits)
}

var contractAddressPrefix = new(felt.Felt).SetBytes([]byte("STARKNET_CONTRACT_ADDRESS"))

// ContractAddress computes the address of a Starknet contract.
func ContractAddress(callerAddress, classHash, salt *felt.Felt, constructorCallData []*felt.Felt) *felt.Felt {
	return crypto.PedersenArray(
		contractAddressPrefix,
		callerAddress,
		salt,
		classHash,
		crypto.PedersenArray(constructorCallData...),
	)
}
