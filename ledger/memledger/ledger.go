// Package memledger simulates the replicated-ledger substrate for tests
// and local development: public state, private collections with content
// hashes, range and JSON-selector queries, per-key history carrying
// transaction IDs and timestamps, and the transient field set. Writes are
// buffered per transaction and committed as one atomic unit of work, so a
// failed invocation leaves no partial state behind.
//
// History is indexed for private writes as well as public ones. The real
// substrate only serves history for public keys; the simulator tracks
// both so tests can observe the evolution of privately partitioned
// assets.
package memledger

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"trafficledger/ledger"
)

const (
	statePrefix   = "s/"
	privatePrefix = "c/"
	historyPrefix = "h/"
	counterPrefix = "hc/"
)

// Ledger is the simulated substrate. One Ledger serves many sequential
// transactions; conflicting concurrent transactions are outside the
// simulator's scope.
type Ledger struct {
	mu        sync.Mutex
	backend   Backend
	openIters int
	nowFn     func() time.Time
}

// New wraps backend in a simulated ledger.
func New(backend Backend) *Ledger {
	return &Ledger{
		backend: backend,
		nowFn:   time.Now,
	}
}

// SetNowFunc overrides the timestamp source. Primarily intended for tests
// that need deterministic history timestamps.
func (l *Ledger) SetNowFunc(now func() time.Time) {
	if now == nil {
		l.nowFn = time.Now
		return
	}
	l.nowFn = now
}

// OpenIterators reports how many query iterators are currently open.
// Tests assert this returns to zero; a leaked iterator is a resource
// defect.
func (l *Ledger) OpenIterators() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.openIters
}

// Close releases the backing store.
func (l *Ledger) Close() error { return l.backend.Close() }

// Begin opens a transaction for the given caller organization and
// transient field set. The transaction ID is freshly generated.
func (l *Ledger) Begin(org string, transient map[string][]byte) *Tx {
	copied := make(map[string][]byte, len(transient))
	for name, value := range transient {
		copied[name] = append([]byte(nil), value...)
	}
	return &Tx{
		ledger:    l,
		id:        uuid.New().String(),
		org:       org,
		transient: copied,
	}
}

type write struct {
	collection string // empty for public state
	key        string
	value      []byte
}

// Tx is one simulated invocation. It implements ledger.Store. Reads
// observe committed state only, matching the substrate's read-your-own-
// writes behavior; writes stay buffered until Commit.
type Tx struct {
	ledger    *Ledger
	id        string
	org       string
	transient map[string][]byte
	writes    []write
	done      bool
}

// ID returns the transaction identifier.
func (t *Tx) ID() string { return t.id }

// Org returns the invoking organization's MSP ID.
func (t *Tx) Org() string { return t.org }

// Transient returns the transient field set attached to the invocation.
func (t *Tx) Transient() map[string][]byte { return t.transient }

// Commit applies every buffered write and records a history entry per
// write. All writes land atomically under the ledger lock.
func (t *Tx) Commit() error {
	if t.done {
		return fmt.Errorf("memledger: transaction %s already finished", t.id)
	}
	t.done = true
	t.ledger.mu.Lock()
	defer t.ledger.mu.Unlock()
	now := t.ledger.nowFn()
	for _, w := range t.writes {
		if err := t.ledger.apply(w, t.id, now); err != nil {
			return err
		}
	}
	t.writes = nil
	return nil
}

// Discard drops every buffered write, modeling an invocation the
// substrate rejected or the client abandoned.
func (t *Tx) Discard() {
	t.done = true
	t.writes = nil
}

func (l *Ledger) apply(w write, txID string, now time.Time) error {
	if err := l.backend.Put([]byte(stateKey(w.collection, w.key)), w.value); err != nil {
		return err
	}
	return l.appendHistory(w.key, txID, now, w.value)
}

func (l *Ledger) appendHistory(key, txID string, now time.Time, value []byte) error {
	counterKey := []byte(counterPrefix + key)
	var seq uint64
	raw, found, err := l.backend.Get(counterKey)
	if err != nil {
		return err
	}
	if found {
		if _, err := fmt.Sscanf(string(raw), "%d", &seq); err != nil {
			return err
		}
	}
	entry, err := json.Marshal(historyEntry{
		TxID:      txID,
		Timestamp: now.UTC(),
		Value:     value,
	})
	if err != nil {
		return err
	}
	if err := l.backend.Put([]byte(fmt.Sprintf("%s%s/%012d", historyPrefix, key, seq)), entry); err != nil {
		return err
	}
	return l.backend.Put(counterKey, []byte(fmt.Sprintf("%d", seq+1)))
}

type historyEntry struct {
	TxID      string    `json:"txId"`
	Timestamp time.Time `json:"timestamp"`
	Value     []byte    `json:"value"`
	IsDelete  bool      `json:"isDelete"`
}

func stateKey(collection, key string) string {
	if collection == "" {
		return statePrefix + key
	}
	return privatePrefix + collection + "/" + key
}

// --- ledger.Store implementation ---

func (t *Tx) GetState(key string) ([]byte, error) {
	value, _, err := t.ledger.backend.Get([]byte(stateKey("", key)))
	return value, err
}

func (t *Tx) PutState(key string, value []byte) error {
	t.writes = append(t.writes, write{key: key, value: append([]byte(nil), value...)})
	return nil
}

func (t *Tx) GetPrivateData(collection, key string) ([]byte, error) {
	value, _, err := t.ledger.backend.Get([]byte(stateKey(collection, key)))
	return value, err
}

func (t *Tx) PutPrivateData(collection, key string, value []byte) error {
	t.writes = append(t.writes, write{collection: collection, key: key, value: append([]byte(nil), value...)})
	return nil
}

func (t *Tx) GetPrivateDataHash(collection, key string) ([]byte, error) {
	value, found, err := t.ledger.backend.Get([]byte(stateKey(collection, key)))
	if err != nil || !found {
		return nil, err
	}
	sum := sha256.Sum256(value)
	return sum[:], nil
}

func (t *Tx) GetStateByRange(start, end string) (ledger.Iterator[ledger.Entry], error) {
	return t.scan("", start, end)
}

func (t *Tx) GetPrivateDataByRange(collection, start, end string) (ledger.Iterator[ledger.Entry], error) {
	return t.scan(collection, start, end)
}

func (t *Tx) scan(collection, start, end string) (ledger.Iterator[ledger.Entry], error) {
	prefix := stateKey(collection, "")
	scanStart := []byte(prefix + start)
	scanEnd := []byte(prefix + end)
	if end == "" {
		// Entire partition: stop at the first key past the prefix.
		scanEnd = append([]byte(prefix[:len(prefix)-1]), prefix[len(prefix)-1]+1)
	}
	pairs, err := t.ledger.backend.Scan(scanStart, scanEnd)
	if err != nil {
		return nil, err
	}
	entries := make([]ledger.Entry, 0, len(pairs))
	for _, pair := range pairs {
		entries = append(entries, ledger.Entry{
			Key:   strings.TrimPrefix(string(pair.Key), prefix),
			Value: pair.Value,
		})
	}
	return track(t.ledger, entries), nil
}

func (t *Tx) GetQueryResult(selector string) (ledger.Iterator[ledger.Entry], error) {
	return t.query("", selector)
}

func (t *Tx) GetPrivateDataQueryResult(collection, selector string) (ledger.Iterator[ledger.Entry], error) {
	return t.query(collection, selector)
}

// query supports the equality subset of the JSON selector grammar:
// {"selector": {"field": "value", ...}}. That subset covers every rich
// query the contract issues.
func (t *Tx) query(collection, selector string) (ledger.Iterator[ledger.Entry], error) {
	var parsed struct {
		Selector map[string]any `json:"selector"`
	}
	if err := json.Unmarshal([]byte(selector), &parsed); err != nil {
		return nil, fmt.Errorf("memledger: bad selector: %w", err)
	}
	it, err := t.scan(collection, "", "")
	if err != nil {
		return nil, err
	}
	var matched []ledger.Entry
	err = ledger.ForEach(it, func(entry ledger.Entry) (bool, error) {
		var record map[string]any
		if err := json.Unmarshal(entry.Value, &record); err != nil {
			return false, nil // non-JSON values never match a selector
		}
		for field, want := range parsed.Selector {
			if record[field] != want {
				return false, nil
			}
		}
		matched = append(matched, entry)
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return track(t.ledger, matched), nil
}

// GetHistoryForKey returns the committed versions of key, most recent
// first.
func (t *Tx) GetHistoryForKey(key string) (ledger.Iterator[ledger.Modification], error) {
	prefix := historyPrefix + key + "/"
	scanEnd := append([]byte(prefix[:len(prefix)-1]), prefix[len(prefix)-1]+1)
	pairs, err := t.ledger.backend.Scan([]byte(prefix), scanEnd)
	if err != nil {
		return nil, err
	}
	mods := make([]ledger.Modification, 0, len(pairs))
	for i := len(pairs) - 1; i >= 0; i-- {
		var entry historyEntry
		if err := json.Unmarshal(pairs[i].Value, &entry); err != nil {
			return nil, err
		}
		mods = append(mods, ledger.Modification{
			TxID:      entry.TxID,
			Timestamp: entry.Timestamp,
			Value:     entry.Value,
			IsDelete:  entry.IsDelete,
		})
	}
	return track(t.ledger, mods), nil
}

func track[T any](l *Ledger, items []T) ledger.Iterator[T] {
	l.mu.Lock()
	l.openIters++
	l.mu.Unlock()
	return ledger.NewSliceIterator(items, func() {
		l.mu.Lock()
		l.openIters--
		l.mu.Unlock()
	})
}
