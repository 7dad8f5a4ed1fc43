package db

import "slices"

type Bucket byte

// Pebble does not support buckets to differentiate between groups of
// keys like Bolt or MDBX does. We use a global prefix list as a poor
// man's bucket alternative.
const (
	ContractStorage   Bucket = iota // contract address + storage key -> value
	ContractNonce                   // contract address -> nonce
	ContractClassHash               // contract address -> class hash
	Class                           // class hash -> encoded class definition
	ClassCompiledHash               // class hash -> compiled class hash
)

// Key flattens a prefix and series of byte arrays into a single []byte.
func (b Bucket) Key(key ...[]byte) []byte {
	return append([]byte{byte(b)}, slices.Concat(key...)...)
}

func (b Bucket) String() string {
	switch b {
	case ContractStorage:
		return "ContractStorage"
	case ContractNonce:
		return "ContractNonce"
	case ContractClassHash:
		return "ContractClassHash"
	case Class:
		return "Class"
	case ClassCompiledHash:
		return "ClassCompiledHash"
	default:
		return "Unknown"
	}
}
