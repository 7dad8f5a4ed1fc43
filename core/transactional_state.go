package core

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/NethermindEth/starksim/core/felt"
)

var (
	// ErrStateCommit wraps any failure to apply a layer's writes to its parent.
	ErrStateCommit = errors.New("failed to commit state layer")
	// ErrLayerClosed is returned when a committed or discarded layer is used for writing.
	ErrLayerClosed = errors.New("state layer already committed or discarded")
)

type writeKind uint8

const (
	writeStorage writeKind = iota
	writeNonce
	writeClassHash
	writeClass
	writeCompiledClassHash
)

type stateWrite struct {
	kind  writeKind
	addr  felt.Felt // contract address or class hash
	key   felt.Felt
	value felt.Felt
	class Class
}

var _ StateReadWriter = (*TransactionalState)(nil)

// TransactionalState buffers writes over a parent state. Reads see the
// layer's own writes first. The parent is only touched by Commit, which may
// run once. Dropping the layer without committing discards its writes.
// Layers nest to any depth since the parent may itself be a layer.
type TransactionalState struct {
	parent StateReadWriter

	log                 []stateWrite
	storage             map[felt.Felt]map[felt.Felt]*felt.Felt
	nonces              map[felt.Felt]*felt.Felt
	classHashes         map[felt.Felt]*felt.Felt
	classes             map[felt.Felt]Class
	compiledClassHashes map[felt.Felt]*felt.Felt

	closed bool
}

func NewTransactionalState(parent StateReadWriter) *TransactionalState {
	return &TransactionalState{
		parent:              parent,
		storage:             make(map[felt.Felt]map[felt.Felt]*felt.Felt),
		nonces:              make(map[felt.Felt]*felt.Felt),
		classHashes:         make(map[felt.Felt]*felt.Felt),
		classes:             make(map[felt.Felt]Class),
		compiledClassHashes: make(map[felt.Felt]*felt.Felt),
	}
}

func (s *TransactionalState) Parent() StateReadWriter {
	return s.parent
}

func (s *TransactionalState) ContractClassHash(addr *felt.Felt) (*felt.Felt, error) {
	if classHash, ok := s.classHashes[*addr]; ok {
		return classHash.Clone(), nil
	}
	return s.parent.ContractClassHash(addr)
}

func (s *TransactionalState) ContractNonce(addr *felt.Felt) (*felt.Felt, error) {
	if nonce, ok := s.nonces[*addr]; ok {
		return nonce.Clone(), nil
	}
	return s.parent.ContractNonce(addr)
}

func (s *TransactionalState) ContractStorage(addr, key *felt.Felt) (*felt.Felt, error) {
	if storage, ok := s.storage[*addr]; ok {
		if value, ok := storage[*key]; ok {
			return value.Clone(), nil
		}
	}
	return s.parent.ContractStorage(addr, key)
}

func (s *TransactionalState) Class(classHash *felt.Felt) (Class, error) {
	if class, ok := s.classes[*classHash]; ok {
		return class, nil
	}
	return s.parent.Class(classHash)
}

func (s *TransactionalState) CompiledClassHash(classHash *felt.Felt) (*felt.Felt, error) {
	if compiledClassHash, ok := s.compiledClassHashes[*classHash]; ok {
		return compiledClassHash.Clone(), nil
	}
	return s.parent.CompiledClassHash(classHash)
}

func (s *TransactionalState) SetStorage(addr, key, value *felt.Felt) error {
	if s.closed {
		return ErrLayerClosed
	}
	storage, ok := s.storage[*addr]
	if !ok {
		storage = make(map[felt.Felt]*felt.Felt)
		s.storage[*addr] = storage
	}
	storage[*key] = value.Clone()
	s.log = append(s.log, stateWrite{kind: writeStorage, addr: *addr, key: *key, value: *value})
	return nil
}

func (s *TransactionalState) SetNonce(addr, nonce *felt.Felt) error {
	if s.closed {
		return ErrLayerClosed
	}
	s.nonces[*addr] = nonce.Clone()
	s.log = append(s.log, stateWrite{kind: writeNonce, addr: *addr, value: *nonce})
	return nil
}

func (s *TransactionalState) IncrementNonce(addr *felt.Felt) error {
	nonce, err := s.ContractNonce(addr)
	if err != nil {
		return fmt.Errorf("get contract nonce: %w", err)
	}
	return s.SetNonce(addr, nonce.Add(nonce, &felt.One))
}

func (s *TransactionalState) SetClassHash(addr, classHash *felt.Felt) error {
	if s.closed {
		return ErrLayerClosed
	}
	s.classHashes[*addr] = classHash.Clone()
	s.log = append(s.log, stateWrite{kind: writeClassHash, addr: *addr, value: *classHash})
	return nil
}

// SetContractClass declares class. A class can only be declared once.
func (s *TransactionalState) SetContractClass(classHash *felt.Felt, class Class) error {
	if s.closed {
		return ErrLayerClosed
	}
	if _, err := s.Class(classHash); err == nil {
		return ErrClassAlreadyDeclared
	} else if !errors.Is(err, ErrClassNotDeclared) {
		return fmt.Errorf("get class: %w", err)
	}

	s.classes[*classHash] = class
	s.log = append(s.log, stateWrite{kind: writeClass, addr: *classHash, class: class})
	return nil
}

func (s *TransactionalState) SetCompiledClassHash(classHash, compiledClassHash *felt.Felt) error {
	if s.closed {
		return ErrLayerClosed
	}
	s.compiledClassHashes[*classHash] = compiledClassHash.Clone()
	s.log = append(s.log, stateWrite{kind: writeCompiledClassHash, addr: *classHash, value: *compiledClassHash})
	return nil
}

// Commit applies the buffered writes to the parent in the order they were
// made and closes the layer.
func (s *TransactionalState) Commit() error {
	if s.closed {
		return ErrLayerClosed
	}
	s.closed = true

	for idx := range s.log {
		if err := s.log[idx].apply(s.parent); err != nil {
			return fmt.Errorf("%w: %w", ErrStateCommit, err)
		}
	}
	s.release()
	return nil
}

// Discard drops every buffered write and closes the layer.
func (s *TransactionalState) Discard() {
	s.closed = true
	s.release()
}

func (s *TransactionalState) release() {
	s.log = nil
	clear(s.storage)
	clear(s.nonces)
	clear(s.classHashes)
	clear(s.classes)
	clear(s.compiledClassHashes)
}

func (w *stateWrite) apply(parent StateWriter) error {
	switch w.kind {
	case writeStorage:
		return parent.SetStorage(&w.addr, &w.key, &w.value)
	case writeNonce:
		return parent.SetNonce(&w.addr, &w.value)
	case writeClassHash:
		return parent.SetClassHash(&w.addr, &w.value)
	case writeClass:
		return parent.SetContractClass(&w.addr, w.class)
	case writeCompiledClassHash:
		return parent.SetCompiledClassHash(&w.addr, &w.value)
	default:
		return fmt.Errorf("unknown write kind %d", w.kind)
	}
}

// StateDiff returns the writes buffered since the layer was created, relative
// to the parent. Writes that leave a value unchanged are omitted. The result
// is a copy the caller owns; the layer stays usable.
func (s *TransactionalState) StateDiff() (*StateDiff, error) {
	diff, _, err := s.StateDiffAndClasses()
	return diff, err
}

// StateDiffAndClasses returns the state diff together with the definitions
// of the classes declared in this layer.
func (s *TransactionalState) StateDiffAndClasses() (*StateDiff, map[felt.Felt]Class, error) {
	return s.diffAgainst([]*TransactionalState{s}, s.parent)
}

// CumulativeStateDiff returns the combined diff of s and the layers it is
// nested in, down to but excluding base. base must be an ancestor of s.
func (s *TransactionalState) CumulativeStateDiff(base StateReader) (*StateDiff, error) {
	var layers []*TransactionalState
	for layer := s; ; {
		layers = append([]*TransactionalState{layer}, layers...)
		if sameState(layer.parent, base) {
			break
		}
		parent, ok := layer.parent.(*TransactionalState)
		if !ok {
			return nil, errors.New("base is not an ancestor of the layer")
		}
		layer = parent
	}

	diff, _, err := s.diffAgainst(layers, base)
	return diff, err
}

// sameState reports whether a and b are the same state handle. Handles whose
// dynamic type is not comparable are never the same.
func sameState(a, b StateReader) bool {
	typ := reflect.TypeOf(a)
	if typ == nil || typ != reflect.TypeOf(b) || !typ.Comparable() {
		return false
	}
	return a == b
}

// diffAgainst compares the values visible through s for every key written by
// layers (ordered oldest first) with the values in base.
func (s *TransactionalState) diffAgainst(layers []*TransactionalState, base StateReader) (*StateDiff, map[felt.Felt]Class, error) {
	diff := EmptyStateDiff()

	storageKeys := make(map[felt.Felt]map[felt.Felt]struct{})
	nonces := make(map[felt.Felt]struct{})
	classHashes := make(map[felt.Felt]struct{})
	for _, layer := range layers {
		for addr, storage := range layer.storage {
			if _, ok := storageKeys[addr]; !ok {
				storageKeys[addr] = make(map[felt.Felt]struct{})
			}
			for key := range storage {
				storageKeys[addr][key] = struct{}{}
			}
		}
		for addr := range layer.nonces {
			nonces[addr] = struct{}{}
		}
		for addr := range layer.classHashes {
			classHashes[addr] = struct{}{}
		}
	}

	for addr, keys := range storageKeys {
		for key := range keys {
			value, err := s.ContractStorage(&addr, &key)
			if err != nil {
				return nil, nil, fmt.Errorf("get storage: %w", err)
			}
			old, err := base.ContractStorage(&addr, &key)
			if err != nil {
				return nil, nil, fmt.Errorf("get storage: %w", err)
			}
			if old.Equal(value) {
				continue
			}
			if _, ok := diff.StorageDiffs[addr]; !ok {
				diff.StorageDiffs[addr] = make(map[felt.Felt]*felt.Felt)
			}
			diff.StorageDiffs[addr][key] = value
		}
	}

	for addr := range nonces {
		nonce, err := s.ContractNonce(&addr)
		if err != nil {
			return nil, nil, fmt.Errorf("get nonce: %w", err)
		}
		old, err := base.ContractNonce(&addr)
		if err != nil {
			return nil, nil, fmt.Errorf("get nonce: %w", err)
		}
		if !old.Equal(nonce) {
			diff.Nonces[addr] = nonce
		}
	}

	for addr := range classHashes {
		classHash, err := s.ContractClassHash(&addr)
		if err != nil {
			return nil, nil, fmt.Errorf("get class hash: %w", err)
		}
		old, err := base.ContractClassHash(&addr)
		switch {
		case errors.Is(err, ErrContractNotDeployed):
			diff.DeployedContracts[addr] = classHash
		case err != nil:
			return nil, nil, fmt.Errorf("get class hash: %w", err)
		case !old.Equal(classHash):
			diff.ReplacedClasses[addr] = classHash
		}
	}

	classes := make(map[felt.Felt]Class)
	for _, layer := range layers {
		for idx := range layer.log {
			if w := layer.log[idx]; w.kind == writeClass {
				classes[w.addr] = w.class
				if _, ok := w.class.(*DeprecatedCairoClass); ok {
					diff.DeclaredV0Classes = append(diff.DeclaredV0Classes, w.addr.Clone())
				}
			}
		}
		for classHash, compiledClassHash := range layer.compiledClassHashes {
			diff.DeclaredV1Classes[classHash] = compiledClassHash.Clone()
		}
	}

	return diff, classes, nil
}
