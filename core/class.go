package core

import (
	"encoding/hex"
	"errors"

	"github.com/NethermindEth/starksim/core/crypto"
	"github.com/NethermindEth/starksim/core/felt"
)

// Class unambiguously defines a Contract's semantics.
type Class interface {
	Version() uint64
	Hash() (*felt.Felt, error)
}

var (
	_ Class = (*DeprecatedCairoClass)(nil)
	_ Class = (*SierraClass)(nil)
)

// DeprecatedCairoClass is the legacy (Cairo 0) class representation.
type DeprecatedCairoClass struct {
	Abi string
	// External functions defined in the class.
	Externals []DeprecatedEntryPoint
	// Functions that receive L1 messages. See
	// https://www.cairo-lang.org/docs/hello_starknet/l1l2.html#receiving-a-message-from-l1
	L1Handlers []DeprecatedEntryPoint
	// Constructors for the class. Currently, only one is allowed.
	Constructors []DeprecatedEntryPoint
	// An ascii-encoded array of builtin names imported by the class.
	Builtins []string
	// The program data.
	Program []*felt.Felt
}

type DeprecatedEntryPoint struct {
	// starknet_keccak hash of the function signature.
	Selector *felt.Felt
	// The offset of the instruction in the class's bytecode.
	Offset *felt.Felt
}

func (c *DeprecatedCairoClass) Version() uint64 {
	return 0
}

func (c *DeprecatedCairoClass) Hash() (*felt.Felt, error) {
	builtins := make([]*felt.Felt, 0, len(c.Builtins))
	for _, builtin := range c.Builtins {
		builtinFelt, err := new(felt.Felt).SetString("0x" + hex.EncodeToString([]byte(builtin)))
		if err != nil {
			return nil, err
		}
		builtins = append(builtins, builtinFelt)
	}

	abiHash, err := crypto.StarknetKeccak([]byte(c.Abi))
	if err != nil {
		return nil, err
	}

	return crypto.PedersenArray(
		&felt.Zero,
		flattenDeprecatedEntryPoints(c.Externals),
		flattenDeprecatedEntryPoints(c.L1Handlers),
		flattenDeprecatedEntryPoints(c.Constructors),
		crypto.PedersenArray(builtins...),
		abiHash,
		crypto.PedersenArray(c.Program...),
	), nil
}

func flattenDeprecatedEntryPoints(entryPoints []DeprecatedEntryPoint) *felt.Felt {
	result := make([]*felt.Felt, 0, len(entryPoints)*2)
	for _, entryPoint := range entryPoints {
		result = append(result, entryPoint.Selector, entryPoint.Offset)
	}
	return crypto.PedersenArray(result...)
}

// SierraClass is the Cairo 1 class representation. Compiled carries the
// CASM form the class was compiled to.
type SierraClass struct {
	SemanticVersion string
	Abi             string
	EntryPoints     struct {
		Constructor []SierraEntryPoint
		External    []SierraEntryPoint
		L1Handler   []SierraEntryPoint
	}
	Program  []*felt.Felt
	Compiled *CompiledClass
}

type SierraEntryPoint struct {
	Index    uint64
	Selector *felt.Felt
}

func (c *SierraClass) Version() uint64 {
	return 1
}

var (
	sierraClassPrefix   = new(felt.Felt).SetBytes([]byte("CONTRACT_CLASS_V" + "0.1.0"))
	compiledClassPrefix = new(felt.Felt).SetBytes([]byte("COMPILED_CLASS_V1"))
)

func (c *SierraClass) Hash() (*felt.Felt, error) {
	abiHash, err := crypto.StarknetKeccak([]byte(c.Abi))
	if err != nil {
		return nil, err
	}

	return crypto.PedersenArray(
		sierraClassPrefix,
		flattenSierraEntryPoints(c.EntryPoints.External),
		flattenSierraEntryPoints(c.EntryPoints.L1Handler),
		flattenSierraEntryPoints(c.EntryPoints.Constructor),
		abiHash,
		crypto.PedersenArray(c.Program...),
	), nil
}

func flattenSierraEntryPoints(entryPoints []SierraEntryPoint) *felt.Felt {
	result := make([]*felt.Felt, 0, len(entryPoints)*2)
	for _, entryPoint := range entryPoints {
		// Note: the order of the selector and index is reversed compared to
		// deprecated entry points.
		result = append(result, entryPoint.Selector, new(felt.Felt).SetUint64(entryPoint.Index))
	}
	return crypto.PedersenArray(result...)
}

type CompiledClass struct {
	Bytecode        []*felt.Felt
	CompilerVersion string
	External        []CompiledEntryPoint
	L1Handler       []CompiledEntryPoint
	Constructor     []CompiledEntryPoint
}

type CompiledEntryPoint struct {
	Offset   uint64
	Builtins []string
	Selector *felt.Felt
}

var errMissingCompiledClass = errors.New("sierra class has no compiled class")

// Hash derives the compiled class hash a declare transaction has to commit to.
func (c *CompiledClass) Hash() (*felt.Felt, error) {
	if c == nil {
		return nil, errMissingCompiledClass
	}

	return crypto.PedersenArray(
		compiledClassPrefix,
		flattenCompiledEntryPoints(c.External),
		flattenCompiledEntryPoints(c.L1Handler),
		flattenCompiledEntryPoints(c.Constructor),
		crypto.PedersenArray(c.Bytecode...),
	), nil
}

func flattenCompiledEntryPoints(entryPoints []CompiledEntryPoint) *felt.Felt {
	result := make([]*felt.Felt, 0, len(entryPoints)*3)
	for _, entryPoint := range entryPoints {
		builtins := make([]*felt.Felt, len(entryPoint.Builtins))
		for idx, builtin := range entryPoint.Builtins {
			builtins[idx] = new(felt.Felt).SetBytes([]byte(builtin))
		}
		result = append(result,
			entryPoint.Selector,
			new(felt.Felt).SetUint64(entryPoint.Offset),
			crypto.PedersenArray(builtins...),
		)
	}
	return crypto.PedersenArray(result...)
}
