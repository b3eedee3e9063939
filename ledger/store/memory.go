// Package store provides ledger.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/inventory-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu   sync.RWMutex
	byID map[string]*ledger.Transaction
	keys map[ledger.StockKey][]*ledger.Transaction // sorted by TransactionDate
}

func NewMemory() *Memory {
	return &Memory{
		byID: make(map[string]*ledger.Transaction),
		keys: make(map[ledger.StockKey][]*ledger.Transaction),
	}
}

func (m *Memory) Append(_ context.Context, tx ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := tx // own copy
	m.byID[tx.ID] = &rec

	key := tx.Key()
	txs := m.keys[key]

	// Binary search for the insertion point keeps Load ordered without a
	// sort on every read.
	i := sort.Search(len(txs), func(i int) bool {
		if txs[i].TransactionDate.Equal(rec.TransactionDate) {
			return txs[i].CreatedAt.After(rec.CreatedAt)
		}
		return txs[i].TransactionDate.After(rec.TransactionDate)
	})
	txs = append(txs, nil)
	copy(txs[i+1:], txs[i:])
	txs[i] = &rec
	m.keys[key] = txs
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.byID[id]
	if !ok {
		return ledger.Transaction{}, &ledger.NotFoundError{Entity: "transaction", ID: id}
	}
	return *rec, nil
}

func (m *Memory) Load(_ context.Context, key ledger.StockKey) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	txs := m.keys[key]
	result := make([]ledger.Transaction, len(txs))
	for i, rec := range txs {
		result[i] = *rec
	}
	return result, nil
}

func (m *Memory) List(_ context.Context, f ledger.Filter) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.Transaction
	for _, txs := range m.keys {
		for _, rec := range txs {
			if f.Matches(*rec) {
				result = append(result, *rec)
			}
		}
	}
	// Newest first.
	sort.Slice(result, func(i, j int) bool {
		return result[i].TransactionDate.After(result[j].TransactionDate)
	})
	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

func (m *Memory) Keys(_ context.Context) ([]ledger.StockKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]ledger.StockKey, 0, len(m.keys))
	for key := range m.keys {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys, nil
}

func (m *Memory) SetStatus(_ context.Context, id string, status ledger.TransactionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byID[id]
	if !ok {
		return &ledger.NotFoundError{Entity: "transaction", ID: id}
	}
	rec.Status = status
	return nil
}

func (m *Memory) Amend(_ context.Context, tx ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byID[tx.ID]
	if !ok {
		return &ledger.NotFoundError{Entity: "transaction", ID: tx.ID}
	}
	*rec = tx
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byID[id]
	if !ok {
		return &ledger.NotFoundError{Entity: "transaction", ID: id}
	}
	delete(m.byID, id)

	key := rec.Key()
	txs := m.keys[key]
	for i, r := range txs {
		if r == rec {
			m.keys[key] = append(txs[:i], txs[i+1:]...)
			break
		}
	}
	if len(m.keys[key]) == 0 {
		delete(m.keys, key)
	}
	return nil
}
