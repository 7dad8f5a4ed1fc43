package vm

import (
	"fmt"

	"github.com/NethermindEth/starksim/core"
	"github.com/NethermindEth/starksim/core/felt"
	"github.com/holiman/uint256"
)

// ComputationGas converts resources to L1 gas. The resource with the highest
// weighted usage determines the cost.
func (c *VersionedConstants) ComputationGas(r *ComputationResources) uint64 {
	w := c.Weights
	return max(
		w.Steps.MulCeil(saturatingAdd(r.Steps, r.MemoryHoles)),
		w.Pedersen.MulCeil(r.Pedersen),
		w.RangeCheck.MulCeil(r.RangeCheck),
		w.Bitwise.MulCeil(r.Bitwise),
		w.Ecdsa.MulCeil(r.Ecdsa),
		w.EcOp.MulCeil(r.EcOp),
		w.Keccak.MulCeil(r.Keccak),
		w.Poseidon.MulCeil(r.Poseidon),
	)
}

// DataAvailabilityGas prices publishing dataFelts felts of state diff. Blob
// mode pays in L1 data gas, calldata mode in L1 gas.
func (c *VersionedConstants) DataAvailabilityGas(dataFelts uint64, mode core.L1DAMode) GasVector {
	if mode == core.Blob {
		return GasVector{L1DataGas: saturatingMul(dataFelts, c.DataGasPerFelt)}
	}
	return GasVector{L1Gas: saturatingMul(dataFelts, c.L1GasPerDataFelt)}
}

// MessagesGas prices the L2 to L1 messages sent by a transaction.
func (c *VersionedConstants) MessagesGas(messages []OrderedL2toL1Message) uint64 {
	var gas uint64
	for _, msg := range messages {
		gas = saturatingAdd(gas, c.Messages.L2ToL1Message)
		gas = saturatingAdd(gas, saturatingMul(uint64(len(msg.Payload)), c.Messages.L2ToL1PayloadFelt))
	}
	return gas
}

// L1HandlerGas prices consuming an L1 to L2 message with payloadLen felts.
func (c *VersionedConstants) L1HandlerGas(payloadLen int) uint64 {
	felts := max(uint64(payloadLen), c.Messages.L1HandlerPayloadMinimum)
	return saturatingAdd(c.Messages.L1ToL2Message, saturatingMul(felts, c.Messages.L1ToL2PayloadFelt))
}

// StateChanges summarises a state diff for data availability pricing.
type StateChanges struct {
	StorageUpdates           uint64
	ModifiedContracts        uint64
	ClassHashUpdates         uint64
	CompiledClassHashUpdates uint64
}

func StateChangesOf(diff *core.StateDiff) StateChanges {
	return StateChanges{
		StorageUpdates:           diff.StorageUpdates(),
		ModifiedContracts:        diff.ModifiedContracts(),
		ClassHashUpdates:         uint64(len(diff.DeployedContracts) + len(diff.ReplacedClasses)),
		CompiledClassHashUpdates: uint64(len(diff.DeclaredV1Classes)),
	}
}

// DataFelts is the number of felts the changes occupy in the published state diff.
func (s StateChanges) DataFelts() uint64 {
	felts := saturatingMul(2, s.StorageUpdates)
	felts = saturatingAdd(felts, saturatingMul(2, s.ModifiedContracts))
	felts = saturatingAdd(felts, s.ClassHashUpdates)
	return saturatingAdd(felts, saturatingMul(2, s.CompiledClassHashUpdates))
}

// withFeeTransfer accounts for the fee transfer, which writes the sender's
// balance on the fee token after the diff was taken.
func (s StateChanges) withFeeTransfer(diff *core.StateDiff, feeToken, sender *felt.Felt) StateChanges {
	balanceKey := BalanceKey(sender)
	tokenStorage, tokenModified := diff.StorageDiffs[*feeToken]
	if _, ok := tokenStorage[*balanceKey]; !ok {
		s.StorageUpdates++
	}
	if !tokenModified {
		_, nonceChanged := diff.Nonces[*feeToken]
		_, deployed := diff.DeployedContracts[*feeToken]
		_, replaced := diff.ReplacedClasses[*feeToken]
		if !nonceChanged && !deployed && !replaced {
			s.ModifiedContracts++
		}
	}
	return s
}

// MinimalGasVector is the least an account transaction can cost under the
// protocol: the operating system overhead and the state changes every such
// transaction makes. L1 handlers have no minimum.
func MinimalGasVector(txn core.Transaction, constants *VersionedConstants, daMode core.L1DAMode) GasVector {
	typ := transactionTypeOf(txn)
	if typ == TxnL1Handler || typ == Invalid {
		return GasVector{}
	}

	// fee token balance of the sender
	changes := StateChanges{StorageUpdates: 1, ModifiedContracts: 1}
	if checksNonce(txn) {
		changes.ModifiedContracts++
	}
	switch t := txn.(type) {
	case *core.DeployAccountTransaction:
		changes.ClassHashUpdates++
	case *core.DeclareTransaction:
		if t.Version.Uint64() >= 2 {
			changes.CompiledClassHashUpdates++
		}
	}

	gas := GasVector{L1Gas: constants.ComputationGas(&ComputationResources{Steps: constants.OSSteps[typ]})}
	return gas.Add(constants.DataAvailabilityGas(changes.DataFelts(), daMode))
}

// Cost prices g in unit, saturating at the maximum uint256 value.
func (g GasVector) Cost(prices core.GasPrices, unit core.FeeUnit) (*uint256.Int, error) {
	gasPrice := prices.L1Gas.In(unit)
	if gasPrice == nil {
		return nil, fmt.Errorf("%w: l1 gas in %s", ErrMissingGasPrice, unit)
	}
	dataGasPrice := prices.L1DataGas.In(unit)
	if dataGasPrice == nil {
		if g.L1DataGas != 0 {
			return nil, fmt.Errorf("%w: l1 data gas in %s", ErrMissingGasPrice, unit)
		}
		dataGasPrice = &felt.Zero
	}

	gasFee := SaturatingMul(uint256.NewInt(g.L1Gas), FeltToUint256(gasPrice))
	dataGasFee := SaturatingMul(uint256.NewInt(g.L1DataGas), FeltToUint256(dataGasPrice))
	return SaturatingAdd(gasFee, dataGasFee), nil
}

var maxUint256 = new(uint256.Int).SetAllOne()

func SaturatingMul(x, y *uint256.Int) *uint256.Int {
	product, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return maxUint256.Clone()
	}
	return product
}

func SaturatingAdd(x, y *uint256.Int) *uint256.Int {
	sum, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return maxUint256.Clone()
	}
	return sum
}

func FeltToUint256(f *felt.Felt) *uint256.Int {
	b := f.Bytes()
	return new(uint256.Int).SetBytes32(b[:])
}

// maxFelt is the largest field element, P-1.
var maxFelt = new(felt.Felt).Sub(&felt.Zero, &felt.One)

// Uint256ToFelt converts u to a felt, saturating at the largest field element.
func Uint256ToFelt(u *uint256.Int) *felt.Felt {
	if FeltToUint256(maxFelt).Lt(u) {
		return maxFelt.Clone()
	}
	b := u.Bytes32()
	return new(felt.Felt).SetBytes(b[:])
}
