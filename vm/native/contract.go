package native

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/NethermindEth/starksim/core"
	"github.com/NethermindEth/starksim/core/crypto"
	"github.com/NethermindEth/starksim/core/felt"
)

// EntryPoint is the Go implementation of a contract function.
type EntryPoint func(ctx *Context, calldata []*felt.Felt) ([]*felt.Felt, error)

// Contract is a contract implemented in Go. Its classes are derived from the
// entry point names so that declaring them resolves back to the contract.
type Contract struct {
	Name        string
	External    map[string]EntryPoint
	L1Handler   map[string]EntryPoint
	Constructor EntryPoint
}

type abiEntry struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

func (c *Contract) abi() string {
	entries := make([]abiEntry, 0, len(c.External)+len(c.L1Handler)+1)
	if c.Constructor != nil {
		entries = append(entries, abiEntry{Type: "constructor", Name: "constructor"})
	}
	for _, name := range sortedNames(c.External) {
		entries = append(entries, abiEntry{Type: "function", Name: name})
	}
	for _, name := range sortedNames(c.L1Handler) {
		entries = append(entries, abiEntry{Type: "l1_handler", Name: name})
	}

	// entries only hold strings
	abi, _ := json.Marshal(entries)
	return string(abi)
}

func (c *Contract) program() []*felt.Felt {
	return []*felt.Felt{new(felt.Felt).SetBytes([]byte("native:" + c.Name))}
}

// Class returns the Sierra class of the contract together with its compiled form.
func (c *Contract) Class() *core.SierraClass {
	class := &core.SierraClass{
		SemanticVersion: "0.1.0",
		Abi:             c.abi(),
		Program:         c.program(),
		Compiled: &core.CompiledClass{
			Bytecode:        c.program(),
			CompilerVersion: "2.6.0",
		},
	}

	var index uint64
	addEntryPoints := func(names []string) ([]core.SierraEntryPoint, []core.CompiledEntryPoint) {
		sierra := make([]core.SierraEntryPoint, 0, len(names))
		compiled := make([]core.CompiledEntryPoint, 0, len(names))
		for _, name := range names {
			selector := crypto.Selector(name)
			sierra = append(sierra, core.SierraEntryPoint{Index: index, Selector: selector})
			compiled = append(compiled, core.CompiledEntryPoint{
				Offset:   index,
				Builtins: []string{"range_check"},
				Selector: selector,
			})
			index++
		}
		return sierra, compiled
	}

	class.EntryPoints.External, class.Compiled.External = addEntryPoints(sortedNames(c.External))
	class.EntryPoints.L1Handler, class.Compiled.L1Handler = addEntryPoints(sortedNames(c.L1Handler))
	if c.Constructor != nil {
		class.EntryPoints.Constructor, class.Compiled.Constructor = addEntryPoints([]string{"constructor"})
	}
	return class
}

// LegacyClass returns the Cairo 0 class of the contract.
func (c *Contract) LegacyClass() *core.DeprecatedCairoClass {
	class := &core.DeprecatedCairoClass{
		Abi:      c.abi(),
		Builtins: []string{"pedersen", "range_check"},
		Program:  c.program(),
	}

	var offset uint64
	entryPoints := func(names []string) []core.DeprecatedEntryPoint {
		result := make([]core.DeprecatedEntryPoint, 0, len(names))
		for _, name := range names {
			result = append(result, core.DeprecatedEntryPoint{
				Selector: crypto.Selector(name),
				Offset:   new(felt.Felt).SetUint64(offset),
			})
			offset++
		}
		return result
	}

	class.Externals = entryPoints(sortedNames(c.External))
	class.L1Handlers = entryPoints(sortedNames(c.L1Handler))
	if c.Constructor != nil {
		class.Constructors = entryPoints([]string{"constructor"})
	}
	return class
}

func (c *Contract) entryPoints(typ entryPointTable) map[felt.Felt]EntryPoint {
	var byName map[string]EntryPoint
	switch typ {
	case externalTable:
		byName = c.External
	case l1HandlerTable:
		byName = c.L1Handler
	}

	bySelector := make(map[felt.Felt]EntryPoint, len(byName))
	for name, entryPoint := range byName {
		bySelector[*crypto.Selector(name)] = entryPoint
	}
	return bySelector
}

type entryPointTable uint8

const (
	externalTable entryPointTable = iota
	l1HandlerTable
)

func sortedNames(entryPoints map[string]EntryPoint) []string {
	names := make([]string, 0, len(entryPoints))
	for name := range entryPoints {
		names = append(names, name)
	}
	slices.SortFunc(names, strings.Compare)
	return names
}
