package vm

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/NethermindEth/starksim/core"
	"github.com/holiman/uint256"
)

// Ratio is a non-negative rational number.
type Ratio struct {
	Num uint64
	Den uint64
}

// MulCeil returns ceil(n * r), saturating at the maximum uint64.
func (r Ratio) MulCeil(n uint64) uint64 {
	if r.Den == 0 || r.Num == 0 || n == 0 {
		return 0
	}
	product, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(n), uint256.NewInt(r.Num))
	if overflow {
		return ^uint64(0)
	}
	den := uint256.NewInt(r.Den)
	product.Add(product, den).SubUint64(product, 1)
	product.Div(product, den)
	if !product.IsUint64() {
		return ^uint64(0)
	}
	return product.Uint64()
}

// ResourceWeights converts computation resources to L1 gas.
type ResourceWeights struct {
	Steps      Ratio
	Pedersen   Ratio
	RangeCheck Ratio
	Bitwise    Ratio
	Ecdsa      Ratio
	EcOp       Ratio
	Keccak     Ratio
	Poseidon   Ratio
}

// MessageCosts prices messages exchanged with L1 in L1 gas.
type MessageCosts struct {
	L2ToL1Message           uint64
	L2ToL1PayloadFelt       uint64
	L1ToL2Message           uint64
	L1ToL2PayloadFelt       uint64
	L1HandlerPayloadMinimum uint64
}

// VersionedConstants are the execution parameters of a Starknet protocol version.
type VersionedConstants struct {
	Version          *semver.Version
	InvokeTxMaxSteps uint64
	ValidateMaxSteps uint64
	Weights          ResourceWeights
	// L1GasPerDataFelt is the cost of publishing a felt of state diff as calldata.
	L1GasPerDataFelt uint64
	// DataGasPerFelt is the cost of publishing a felt of state diff in a blob.
	DataGasPerFelt uint64
	Messages       MessageCosts
	// OSSteps are the steps the operating system spends around a transaction
	// of each type, on top of the contract calls.
	OSSteps map[TransactionType]uint64
}

var (
	weightsV0_13_0 = ResourceWeights{
		Steps:      Ratio{Num: 5, Den: 1000},
		Pedersen:   Ratio{Num: 16, Den: 100},
		RangeCheck: Ratio{Num: 8, Den: 100},
		Bitwise:    Ratio{Num: 32, Den: 100},
		Ecdsa:      Ratio{Num: 1024, Den: 100},
		EcOp:       Ratio{Num: 512, Den: 100},
		Keccak:     Ratio{Num: 1024, Den: 100},
		Poseidon:   Ratio{Num: 16, Den: 100},
	}
	weightsV0_13_1 = ResourceWeights{
		Steps:      Ratio{Num: 25, Den: 10000},
		Pedersen:   Ratio{Num: 8, Den: 100},
		RangeCheck: Ratio{Num: 4, Den: 100},
		Bitwise:    Ratio{Num: 16, Den: 100},
		Ecdsa:      Ratio{Num: 512, Den: 100},
		EcOp:       Ratio{Num: 256, Den: 100},
		Keccak:     Ratio{Num: 512, Den: 100},
		Poseidon:   Ratio{Num: 8, Den: 100},
	}

	messagesV0_13 = MessageCosts{
		L2ToL1Message:           20_000,
		L2ToL1PayloadFelt:       612,
		L1ToL2Message:           1_100,
		L1ToL2PayloadFelt:       256,
		L1HandlerPayloadMinimum: 1,
	}

	osStepsV0_13 = map[TransactionType]uint64{
		TxnDeclare:       2_839,
		TxnDeployAccount: 3_612,
		TxnInvoke:        3_005,
		TxnL1Handler:     1_068,
	}
)

// versionedConstants is sorted by version, oldest first.
var versionedConstants = []*VersionedConstants{
	{
		Version:          semver.MustParse("0.13.0"),
		InvokeTxMaxSteps: 3_000_000,
		ValidateMaxSteps: 1_000_000,
		Weights:          weightsV0_13_0,
		L1GasPerDataFelt: 612,
		DataGasPerFelt:   32,
		Messages:         messagesV0_13,
		OSSteps:          osStepsV0_13,
	},
	{
		Version:          semver.MustParse("0.13.1"),
		InvokeTxMaxSteps: 4_000_000,
		ValidateMaxSteps: 1_000_000,
		Weights:          weightsV0_13_1,
		L1GasPerDataFelt: 551,
		DataGasPerFelt:   32,
		Messages:         messagesV0_13,
		OSSteps:          osStepsV0_13,
	},
	{
		Version:          semver.MustParse("0.13.2"),
		InvokeTxMaxSteps: 10_000_000,
		ValidateMaxSteps: 1_000_000,
		Weights:          weightsV0_13_1,
		L1GasPerDataFelt: 551,
		DataGasPerFelt:   32,
		Messages:         messagesV0_13,
		OSSteps:          osStepsV0_13,
	},
}

// LatestVersionedConstants returns the constants of the newest supported protocol version.
func LatestVersionedConstants() *VersionedConstants {
	return versionedConstants[len(versionedConstants)-1]
}

// VersionedConstantsFor returns the constants in effect for protocolVersion.
// An empty version selects the latest constants; versions older than the
// oldest supported one use the oldest constants.
func VersionedConstantsFor(protocolVersion string) (*VersionedConstants, error) {
	if protocolVersion == "" {
		return LatestVersionedConstants(), nil
	}

	version, err := core.ParseBlockVersion(protocolVersion)
	if err != nil {
		return nil, fmt.Errorf("parse protocol version %q: %w", protocolVersion, err)
	}

	selected := versionedConstants[0]
	for _, constants := range versionedConstants {
		if version.LessThan(constants.Version) {
			break
		}
		selected = constants
	}
	return selected, nil
}
