package pebble

import (
	"sync"
	"testing"

	"github.com/NethermindEth/starksim/db"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/pkg/errors"
)

var _ db.KeyValueStore = (*DB)(nil)

type DB struct {
	pebble    *pebble.DB
	closeLock sync.RWMutex
	closed    bool
}

// New opens a new database at the given path
func New(path string, logger pebble.Logger) (*DB, error) {
	return newPebble(path, &pebble.Options{Logger: logger})
}

// NewMem opens a new in-memory database
func NewMem() (*DB, error) {
	return newPebble("", &pebble.Options{
		FS: vfs.NewMem(),
	})
}

// NewMemTest opens a new in-memory database, fails the test on error
func NewMemTest(t testing.TB) *DB {
	memDB, err := NewMem()
	if err != nil {
		t.Fatalf("create in-memory db: %v", err)
	}
	t.Cleanup(func() {
		if err := memDB.Close(); err != nil {
			t.Errorf("close in-memory db: %v", err)
		}
	})
	return memDB
}

func newPebble(path string, options *pebble.Options) (*DB, error) {
	pDB, err := pebble.Open(path, options)
	if err != nil {
		return nil, errors.Wrapf(err, "open pebble at %q", path)
	}
	return &DB{pebble: pDB}, nil
}

func (d *DB) Has(key []byte) (bool, error) {
	d.closeLock.RLock()
	defer d.closeLock.RUnlock()
	if d.closed {
		return false, db.ErrClosed
	}

	_, closer, err := d.pebble.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return false, nil
		}
		return false, errors.Wrap(err, "pebble get")
	}
	return true, closer.Close()
}

func (d *DB) Get(key []byte, cb func(value []byte) error) error {
	d.closeLock.RLock()
	defer d.closeLock.RUnlock()
	if d.closed {
		return db.ErrClosed
	}

	val, closer, err := d.pebble.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return db.ErrKeyNotFound
		}
		return errors.Wrap(err, "pebble get")
	}

	if err := cb(val); err != nil {
		closer.Close()
		return err
	}
	return closer.Close()
}

func (d *DB) Put(key, value []byte) error {
	d.closeLock.RLock()
	defer d.closeLock.RUnlock()
	if d.closed {
		return db.ErrClosed
	}
	return errors.Wrap(d.pebble.Set(key, value, pebble.Sync), "pebble set")
}

func (d *DB) Delete(key []byte) error {
	d.closeLock.RLock()
	defer d.closeLock.RUnlock()
	if d.closed {
		return db.ErrClosed
	}
	return errors.Wrap(d.pebble.Delete(key, pebble.Sync), "pebble delete")
}

func (d *DB) NewBatch() db.Batch {
	return &batch{batch: d.pebble.NewBatch(), db: d}
}

// Close : see io.Closer.Close
func (d *DB) Close() error {
	d.closeLock.Lock()
	defer d.closeLock.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.pebble.Close()
}

// Impl returns the underlying pebble handle
func (d *DB) Impl() *pebble.DB {
	return d.pebble
}
