package memory

import (
	"slices"
	"sync"

	"github.com/NethermindEth/starksim/db"
)

var _ db.KeyValueStore = (*Database)(nil)

// Represents an in-memory key-value store.
// It is thread-safe.
type Database struct {
	db   map[string][]byte
	lock sync.RWMutex
}

func New() *Database {
	return &Database{
		db: make(map[string][]byte),
	}
}

func (d *Database) Has(key []byte) (bool, error) {
	d.lock.RLock()
	defer d.lock.RUnlock()

	if d.db == nil {
		return false, db.ErrClosed
	}

	_, ok := d.db[string(key)]
	return ok, nil
}

func (d *Database) Get(key []byte, cb func(value []byte) error) error {
	d.lock.RLock()
	defer d.lock.RUnlock()

	if d.db == nil {
		return db.ErrClosed
	}

	val, ok := d.db[string(key)]
	if !ok {
		return db.ErrKeyNotFound
	}

	return cb(val)
}

func (d *Database) Put(key, value []byte) error {
	d.lock.Lock()
	defer d.lock.Unlock()

	if d.db == nil {
		return db.ErrClosed
	}

	d.db[string(key)] = slices.Clone(value)
	return nil
}

func (d *Database) Delete(key []byte) error {
	d.lock.Lock()
	defer d.lock.Unlock()

	if d.db == nil {
		return db.ErrClosed
	}

	delete(d.db, string(key))
	return nil
}

func (d *Database) Close() error {
	d.lock.Lock()
	defer d.lock.Unlock()

	d.db = nil
	return nil
}

// Len returns the number of stored keys.
func (d *Database) Len() int {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return len(d.db)
}

// Copy returns a deep copy of the database.
func (d *Database) Copy() *Database {
	d.lock.RLock()
	defer d.lock.RUnlock()

	cp := New()
	for k, v := range d.db {
		cp.db[k] = slices.Clone(v)
	}
	return cp
}

func (d *Database) NewBatch() db.Batch { return newBatch(d) }
