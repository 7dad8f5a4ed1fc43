package core

import (
	"fmt"
	"maps"
	"slices"

	"github.com/NethermindEth/starksim/core/felt"
)

type StateDiff struct {
	StorageDiffs      map[felt.Felt]map[felt.Felt]*felt.Felt `json:"storage_diffs"`
	Nonces            map[felt.Felt]*felt.Felt               `json:"nonces"`
	DeployedContracts map[felt.Felt]*felt.Felt               `json:"deployed_contracts"`
	DeclaredV0Classes []*felt.Felt                           `json:"deprecated_declared_classes"`
	DeclaredV1Classes map[felt.Felt]*felt.Felt               `json:"declared_classes"` // class hash -> compiled class hash
	ReplacedClasses   map[felt.Felt]*felt.Felt               `json:"replaced_classes"`
}

func EmptyStateDiff() *StateDiff {
	return &StateDiff{
		StorageDiffs:      make(map[felt.Felt]map[felt.Felt]*felt.Felt),
		Nonces:            make(map[felt.Felt]*felt.Felt),
		DeployedContracts: make(map[felt.Felt]*felt.Felt),
		DeclaredV0Classes: make([]*felt.Felt, 0),
		DeclaredV1Classes: make(map[felt.Felt]*felt.Felt),
		ReplacedClasses:   make(map[felt.Felt]*felt.Felt),
	}
}

func (d *StateDiff) Length() uint64 {
	var length int
	for _, storageDiff := range d.StorageDiffs {
		length += len(storageDiff)
	}
	length += len(d.Nonces)
	length += len(d.DeployedContracts)
	length += len(d.DeclaredV0Classes)
	length += len(d.DeclaredV1Classes)
	length += len(d.ReplacedClasses)

	return uint64(length)
}

func (d *StateDiff) IsEmpty() bool {
	return d.Length() == 0
}

// ModifiedContracts returns the number of contracts whose nonce, class or
// storage changed.
func (d *StateDiff) ModifiedContracts() uint64 {
	modified := make(map[felt.Felt]struct{})
	for addr, storage := range d.StorageDiffs {
		if len(storage) > 0 {
			modified[addr] = struct{}{}
		}
	}
	for _, m := range []map[felt.Felt]*felt.Felt{d.Nonces, d.DeployedContracts, d.ReplacedClasses} {
		for addr := range m {
			modified[addr] = struct{}{}
		}
	}
	return uint64(len(modified))
}

// StorageUpdates returns the number of storage slots written.
func (d *StateDiff) StorageUpdates() uint64 {
	var updates int
	for _, storage := range d.StorageDiffs {
		updates += len(storage)
	}
	return uint64(updates)
}

// Clone returns a deep copy of d.
func (d *StateDiff) Clone() *StateDiff {
	clone := EmptyStateDiff()
	for addr, storage := range d.StorageDiffs {
		clone.StorageDiffs[addr] = cloneFeltMap(storage)
	}
	clone.Nonces = cloneFeltMap(d.Nonces)
	clone.DeployedContracts = cloneFeltMap(d.DeployedContracts)
	for _, classHash := range d.DeclaredV0Classes {
		clone.DeclaredV0Classes = append(clone.DeclaredV0Classes, classHash.Clone())
	}
	clone.DeclaredV1Classes = cloneFeltMap(d.DeclaredV1Classes)
	clone.ReplacedClasses = cloneFeltMap(d.ReplacedClasses)
	return clone
}

func cloneFeltMap(m map[felt.Felt]*felt.Felt) map[felt.Felt]*felt.Felt {
	clone := make(map[felt.Felt]*felt.Felt, len(m))
	for k, v := range m {
		clone[k] = v.Clone()
	}
	return clone
}

// ApplyStateDiff writes diff into w. Classes referenced by the diff's
// declarations must be present in classes.
func ApplyStateDiff(w StateWriter, diff *StateDiff, classes map[felt.Felt]Class) error {
	declare := func(classHash *felt.Felt) error {
		class, ok := classes[*classHash]
		if !ok {
			return fmt.Errorf("class %s: %w", classHash, ErrClassNotDeclared)
		}
		return w.SetContractClass(classHash, class)
	}

	for _, classHash := range diff.DeclaredV0Classes {
		if err := declare(classHash); err != nil {
			return err
		}
	}
	for _, classHash := range sortedKeys(diff.DeclaredV1Classes) {
		if err := declare(&classHash); err != nil {
			return err
		}
		if err := w.SetCompiledClassHash(&classHash, diff.DeclaredV1Classes[classHash]); err != nil {
			return err
		}
	}

	for _, classHashes := range []map[felt.Felt]*felt.Felt{diff.DeployedContracts, diff.ReplacedClasses} {
		for _, addr := range sortedKeys(classHashes) {
			if err := w.SetClassHash(&addr, classHashes[addr]); err != nil {
				return err
			}
		}
	}

	for _, addr := range sortedKeys(diff.Nonces) {
		if err := w.SetNonce(&addr, diff.Nonces[addr]); err != nil {
			return err
		}
	}

	for _, addr := range sortedKeys(diff.StorageDiffs) {
		storage := diff.StorageDiffs[addr]
		for _, key := range sortedKeys(storage) {
			if err := w.SetStorage(&addr, &key, storage[key]); err != nil {
				return err
			}
		}
	}
	return nil
}

func sortedKeys[V any](m map[felt.Felt]V) []felt.Felt {
	keys := slices.Collect(maps.Keys(m))
	slices.SortFunc(keys, func(a, b felt.Felt) int { return a.Cmp(&b) })
	return keys
}
