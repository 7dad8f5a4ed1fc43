package pebble

import (
	"github.com/NethermindEth/starksim/db"
	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
)

var _ db.Batch = (*batch)(nil)

type batch struct {
	batch *pebble.Batch
	db    *DB
	size  int // size of the batch in bytes
}

func (b *batch) Put(key, value []byte) error {
	if b.batch == nil {
		return pebble.ErrClosed
	}
	if err := b.batch.Set(key, value, pebble.Sync); err != nil {
		return errors.Wrap(err, "batch set")
	}
	b.size += len(key) + len(value)
	return nil
}

func (b *batch) Delete(key []byte) error {
	if b.batch == nil {
		return pebble.ErrClosed
	}
	if err := b.batch.Delete(key, pebble.Sync); err != nil {
		return errors.Wrap(err, "batch delete")
	}
	b.size += len(key)
	return nil
}

func (b *batch) Size() int {
	return b.size
}

func (b *batch) Write() error {
	if b.batch == nil {
		return pebble.ErrClosed
	}

	b.db.closeLock.RLock()
	defer b.db.closeLock.RUnlock()
	if b.db.closed {
		return db.ErrClosed
	}

	if err := b.batch.Commit(pebble.Sync); err != nil {
		return errors.Wrap(err, "batch commit")
	}

	err := b.batch.Close()
	// Clear the batch to prevent any further use.
	b.batch = nil
	b.size = 0
	return err
}

func (b *batch) Reset() {
	if b.batch != nil {
		b.batch.Reset()
	}
	b.size = 0
}
