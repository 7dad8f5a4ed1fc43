package memory

import (
	"slices"

	"github.com/NethermindEth/starksim/db"
)

var _ db.Batch = (*batch)(nil)

type batch struct {
	db *Database
	// Only the latest write per key matters, but the order of writes is kept
	// to mimic the behaviour of the real key-value store.
	writes []keyValue
	size   int
}

type keyValue struct {
	key    string
	value  []byte
	delete bool
}

func newBatch(db *Database) *batch {
	return &batch{db: db}
}

func (b *batch) Put(key, value []byte) error {
	b.writes = append(b.writes, keyValue{key: string(key), value: slices.Clone(value)})
	b.size += len(key) + len(value)
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.writes = append(b.writes, keyValue{key: string(key), delete: true})
	b.size += len(key)
	return nil
}

func (b *batch) Size() int {
	return b.size
}

func (b *batch) Write() error {
	b.db.lock.Lock()
	defer b.db.lock.Unlock()

	if b.db.db == nil {
		return db.ErrClosed
	}

	for _, kv := range b.writes {
		if kv.delete {
			delete(b.db.db, kv.key)
			continue
		}
		b.db.db[kv.key] = kv.value
	}
	return nil
}

func (b *batch) Reset() {
	b.writes = b.writes[:0]
	b.size = 0
}
