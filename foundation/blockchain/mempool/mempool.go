// Package mempool maintains the payloads submitted to the node that have
// not been mined into a block yet.
package mempool

import (
	"sort"
	"sync"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/hash"
)

// entry is a payload and the order it arrived in.
type entry struct {
	seq     uint64
	payload database.Payload
}

// Mempool represents a cache of pending payloads keyed by their digest.
type Mempool struct {
	mu   sync.RWMutex
	pool map[string]entry
	seq  uint64
}

// New constructs a new mempool.
func New() *Mempool {
	return &Mempool{
		pool: make(map[string]entry),
	}
}

// Count returns the current number of payloads in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Upsert adds a payload to the pool. Adding the same payload twice keeps
// its original position.
func (mp *Mempool) Upsert(payload database.Payload) (int, error) {
	key, err := Key(payload)
	if err != nil {
		return 0, err
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, exists := mp.pool[key]; !exists {
		mp.seq++
		mp.pool[key] = entry{seq: mp.seq, payload: append(database.Payload(nil), payload...)}
	}

	return len(mp.pool), nil
}

// Delete removes a payload from the pool.
func (mp *Mempool) Delete(payload database.Payload) error {
	key, err := Key(payload)
	if err != nil {
		return err
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	delete(mp.pool, key)

	return nil
}

// Truncate clears all the payloads from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]entry)
}

// PickAll returns every payload in the order they arrived.
func (mp *Mempool) PickAll() []database.Payload {
	mp.mu.RLock()
	entries := make([]entry, 0, len(mp.pool))
	for _, e := range mp.pool {
		entries = append(entries, e)
	}
	mp.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seq < entries[j].seq
	})

	payloads := make([]database.Payload, len(entries))
	for i, e := range entries {
		payloads[i] = e.payload
	}

	return payloads
}

// =============================================================================

// Key returns the digest used to identify a payload in the pool.
func Key(payload database.Payload) (string, error) {
	return hash.Values(payload)
}
