package state

import (
	"errors"

	"github.com/NethermindEth/starksim/core"
	"github.com/NethermindEth/starksim/core/felt"
	"github.com/NethermindEth/starksim/db"
	"github.com/NethermindEth/starksim/encoder"
	_ "github.com/NethermindEth/starksim/encoder/registry"
	lru "github.com/hashicorp/golang-lru/v2"
)

const classCacheSize = 128

var _ core.StateReadWriter = (*State)(nil)

// State is the durable world state. Every write goes straight to the
// underlying key-value store, so speculative work must be layered on top
// with a core.TransactionalState.
type State struct {
	kv         db.KeyValueStore
	classCache *lru.Cache[felt.Felt, core.Class]
}

// declaredClass lets the encoder tag the concrete class type.
type declaredClass struct {
	Class core.Class
}

func New(kv db.KeyValueStore) *State {
	classCache, err := lru.New[felt.Felt, core.Class](classCacheSize)
	if err != nil {
		// only fails for non-positive sizes
		panic(err)
	}
	return &State{kv: kv, classCache: classCache}
}

func (s *State) getFelt(key []byte) (*felt.Felt, error) {
	var value *felt.Felt
	err := s.kv.Get(key, func(val []byte) error {
		value = new(felt.Felt).SetBytes(val)
		return nil
	})
	return value, err
}

func (s *State) putFelt(key []byte, value *felt.Felt) error {
	return s.kv.Put(key, value.Marshal())
}

func (s *State) ContractClassHash(addr *felt.Felt) (*felt.Felt, error) {
	classHash, err := s.getFelt(db.ContractClassHash.Key(addr.Marshal()))
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, core.ErrContractNotDeployed
	}
	return classHash, err
}

func (s *State) ContractNonce(addr *felt.Felt) (*felt.Felt, error) {
	nonce, err := s.getFelt(db.ContractNonce.Key(addr.Marshal()))
	if errors.Is(err, db.ErrKeyNotFound) {
		return new(felt.Felt), nil
	}
	return nonce, err
}

func (s *State) ContractStorage(addr, key *felt.Felt) (*felt.Felt, error) {
	value, err := s.getFelt(db.ContractStorage.Key(addr.Marshal(), key.Marshal()))
	if errors.Is(err, db.ErrKeyNotFound) {
		return new(felt.Felt), nil
	}
	return value, err
}

func (s *State) Class(classHash *felt.Felt) (core.Class, error) {
	if class, ok := s.classCache.Get(*classHash); ok {
		return class, nil
	}

	var declared declaredClass
	err := s.kv.Get(db.Class.Key(classHash.Marshal()), func(val []byte) error {
		return encoder.Unmarshal(val, &declared)
	})
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, core.ErrClassNotDeclared
		}
		return nil, err
	}

	s.classCache.Add(*classHash, declared.Class)
	return declared.Class, nil
}

func (s *State) CompiledClassHash(classHash *felt.Felt) (*felt.Felt, error) {
	compiledClassHash, err := s.getFelt(db.ClassCompiledHash.Key(classHash.Marshal()))
	if errors.Is(err, db.ErrKeyNotFound) {
		return nil, core.ErrClassNotDeclared
	}
	return compiledClassHash, err
}

func (s *State) SetStorage(addr, key, value *felt.Felt) error {
	return s.putFelt(db.ContractStorage.Key(addr.Marshal(), key.Marshal()), value)
}

func (s *State) SetNonce(addr, nonce *felt.Felt) error {
	return s.putFelt(db.ContractNonce.Key(addr.Marshal()), nonce)
}

func (s *State) SetClassHash(addr, classHash *felt.Felt) error {
	return s.putFelt(db.ContractClassHash.Key(addr.Marshal()), classHash)
}

func (s *State) SetContractClass(classHash *felt.Felt, class core.Class) error {
	key := db.Class.Key(classHash.Marshal())
	declared, err := s.kv.Has(key)
	if err != nil {
		return err
	}
	if declared {
		return core.ErrClassAlreadyDeclared
	}

	encoded, err := encoder.Marshal(declaredClass{Class: class})
	if err != nil {
		return err
	}
	if err = s.kv.Put(key, encoded); err != nil {
		return err
	}
	s.classCache.Add(*classHash, class)
	return nil
}

func (s *State) SetCompiledClassHash(classHash, compiledClassHash *felt.Felt) error {
	return s.putFelt(db.ClassCompiledHash.Key(classHash.Marshal()), compiledClassHash)
}
