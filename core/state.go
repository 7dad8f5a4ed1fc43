package core

import (
	"errors"

	"github.com/NethermindEth/starksim/core/felt"
)

var (
	ErrContractNotDeployed  = errors.New("contract not deployed")
	ErrClassNotDeclared     = errors.New("class not declared")
	ErrClassAlreadyDeclared = errors.New("class already declared")
)

// StateReader reads ledger facts. Storage slots and nonces that were never
// written read as zero.
//
//go:generate mockgen -destination=../mocks/mock_state.go -package=mocks github.com/NethermindEth/starksim/core StateReader,StateReadWriter
type StateReader interface {
	ContractClassHash(addr *felt.Felt) (*felt.Felt, error)
	ContractNonce(addr *felt.Felt) (*felt.Felt, error)
	ContractStorage(addr, key *felt.Felt) (*felt.Felt, error)
	Class(classHash *felt.Felt) (Class, error)
	CompiledClassHash(classHash *felt.Felt) (*felt.Felt, error)
}

type StateWriter interface {
	SetStorage(addr, key, value *felt.Felt) error
	SetNonce(addr, nonce *felt.Felt) error
	SetClassHash(addr, classHash *felt.Felt) error
	SetContractClass(classHash *felt.Felt, class Class) error
	SetCompiledClassHash(classHash, compiledClassHash *felt.Felt) error
}

type StateReadWriter interface {
	StateReader
	StateWriter
}

// IsDeployed reports whether a contract lives at addr.
func IsDeployed(state StateReader, addr *felt.Felt) (bool, error) {
	if _, err := state.ContractClassHash(addr); err != nil {
		if errors.Is(err, ErrContractNotDeployed) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
