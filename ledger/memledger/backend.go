package memledger

import (
	"fmt"
	"sort"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Pair is one key/value entry returned by a backend scan.
type Pair struct {
	Key   []byte
	Value []byte
}

// Backend is a generic ordered key-value store underneath the simulated
// ledger. This allows the simulator to run fully in memory for unit tests
// or on disk for longer-lived fixtures.
type Backend interface {
	Put(key, value []byte) error
	Get(key []byte) (value []byte, found bool, err error)
	// Scan returns every entry with start <= key < end in lexical order.
	// Empty bounds are unbounded.
	Scan(start, end []byte) ([]Pair, error)
	Close() error
}

// --- In-memory backend (for testing) ---

type MemDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemDB() *MemDB {
	return &MemDB{data: make(map[string][]byte)}
}

func (db *MemDB) Put(key, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (db *MemDB) Get(key []byte) ([]byte, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	value, ok := db.data[string(key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (db *MemDB) Scan(start, end []byte) ([]Pair, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	keys := make([]string, 0, len(db.data))
	for key := range db.data {
		if len(start) > 0 && key < string(start) {
			continue
		}
		if len(end) > 0 && key >= string(end) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	pairs := make([]Pair, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, Pair{
			Key:   []byte(key),
			Value: append([]byte(nil), db.data[key]...),
		})
	}
	return pairs, nil
}

// Close satisfies the Backend interface for MemDB.
func (db *MemDB) Close() error { return nil }

// --- Persistent backend ---

// LevelDB is a persistent ordered key-value store using LevelDB.
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("memledger: open leveldb: %w", err)
	}
	return &LevelDB{db: db}, nil
}

func (ldb *LevelDB) Put(key, value []byte) error {
	return ldb.db.Put(key, value, nil)
}

func (ldb *LevelDB) Get(key []byte) ([]byte, bool, error) {
	value, err := ldb.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (ldb *LevelDB) Scan(start, end []byte) ([]Pair, error) {
	rng := &util.Range{}
	if len(start) > 0 {
		rng.Start = start
	}
	if len(end) > 0 {
		rng.Limit = end
	}
	it := ldb.db.NewIterator(rng, nil)
	defer it.Release()
	var pairs []Pair
	for it.Next() {
		pairs = append(pairs, Pair{
			Key:   append([]byte(nil), it.Key()...),
			Value: append([]byte(nil), it.Value()...),
		})
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return pairs, nil
}

func (ldb *LevelDB) Close() error { return ldb.db.Close() }
