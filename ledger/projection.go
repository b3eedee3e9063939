/*
projection.go - Stock level derivation

PURPOSE:
  Derives the current StockLevel for each (product, location) by folding
  the ledger. Stock levels are materialized views: recomputed whenever the
  ledger changes for a key, never independently created, edited, or
  deleted. This eliminates the drift bugs that come from keeping a
  separate mutable "current stock" record.

COSTING CONVENTION:
  Average cost is the arithmetic mean of UnitCost across folded completed
  transactions (accumulated cost divided by transaction count), matching
  the behavior of the system this engine replaces. It is NOT quantity-
  weighted costing. The convention is pinned by tests so nobody "fixes"
  it silently; switching to true weighted averaging is a one-line change
  in fold() plus a deliberate test update.

CACHING:
  Project serves from a per-key cache that the ledger invalidates
  synchronously on every successful mutation (see Ledger.OnMutation).
  A cached read is therefore never staler than the latest committed write
  on its key. ProjectAll always agrees with a fresh fold - this is
  property-tested.

SEE ALSO:
  - ledger.go: Mutations that trigger invalidation
  - thresholds.go: Where low-stock/reorder configuration comes from
  - alerts: Consumes StockLevels and raises alerts
*/
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// StockLevel is the derived stock state for one (product, location).
// It is a pure function of the ledger slice plus threshold configuration.
type StockLevel struct {
	ProductID  string
	LocationID string

	Quantity    decimal.Decimal
	AverageCost decimal.Decimal
	TotalValue  decimal.Decimal // Quantity x AverageCost

	LowStockThreshold decimal.Decimal
	ReorderPoint      decimal.Decimal
	ReorderQuantity   decimal.Decimal

	IsLowStock   bool // 0 < Quantity <= LowStockThreshold
	IsOutOfStock bool // Quantity == 0

	LastRestockedAt *time.Time
	LastSoldAt      *time.Time
}

// Key returns the stock key this level describes.
func (s StockLevel) Key() StockKey {
	return StockKey{ProductID: s.ProductID, LocationID: s.LocationID}
}

// =============================================================================
// PROJECTOR
// =============================================================================

// Projector folds the ledger into StockLevels, with a synchronously
// invalidated per-key cache.
type Projector struct {
	store      Store
	thresholds ThresholdSource

	mu    sync.RWMutex
	cache map[StockKey]StockLevel
}

// NewProjector creates a projector. Wire it to the ledger with
// ledger.OnMutation(projector.Invalidate) so cached reads never lag a
// committed write.
func NewProjector(store Store, thresholds ThresholdSource) *Projector {
	return &Projector{
		store:      store,
		thresholds: thresholds,
		cache:      make(map[StockKey]StockLevel),
	}
}

// Invalidate drops the cached level for a key. Called by the ledger inside
// the mutating operation, before it returns to the caller.
func (p *Projector) Invalidate(key StockKey) {
	p.mu.Lock()
	delete(p.cache, key)
	p.mu.Unlock()
}

// Project returns the stock level for a key. A key with no transactions
// yields a zero-value level with IsOutOfStock set - not an error.
func (p *Projector) Project(ctx context.Context, key StockKey) (StockLevel, error) {
	p.mu.RLock()
	level, ok := p.cache[key]
	p.mu.RUnlock()
	if ok {
		return level, nil
	}

	level, err := p.fold(ctx, key)
	if err != nil {
		return StockLevel{}, err
	}

	p.mu.Lock()
	p.cache[key] = level
	p.mu.Unlock()
	return level, nil
}

// ProjectAll recomputes every known key. Running it twice with no
// intervening mutation yields identical output.
func (p *Projector) ProjectAll(ctx context.Context) (map[StockKey]StockLevel, error) {
	keys, err := p.store.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stock keys: %w", err)
	}

	levels := make(map[StockKey]StockLevel, len(keys))
	for _, key := range keys {
		level, err := p.Project(ctx, key)
		if err != nil {
			return nil, err
		}
		levels[key] = level
	}
	return levels, nil
}

// fold replays all completed transactions for the key in date order.
func (p *Projector) fold(ctx context.Context, key StockKey) (StockLevel, error) {
	txs, err := p.store.Load(ctx, key)
	if err != nil {
		return StockLevel{}, fmt.Errorf("load ledger for %s: %w", key, err)
	}

	var (
		quantity      = decimal.Zero
		costAccum     = decimal.Zero
		costedCount   int64
		lastRestocked *time.Time
		lastSold      *time.Time
	)

	for _, tx := range txs {
		if tx.Status != StatusCompleted {
			continue
		}
		quantity = quantity.Add(signedDelta(tx.Type, tx.Quantity))

		costAccum = costAccum.Add(tx.UnitCost)
		costedCount++

		switch {
		case tx.Type.Direction() == StockIn:
			d := tx.TransactionDate
			if lastRestocked == nil || d.After(*lastRestocked) {
				lastRestocked = &d
			}
		case tx.Type == TxSale:
			d := tx.TransactionDate
			if lastSold == nil || d.After(*lastSold) {
				lastSold = &d
			}
		}
	}

	averageCost := decimal.Zero
	if costedCount > 0 {
		averageCost = costAccum.DivRound(decimal.NewFromInt(costedCount), 4)
	}

	th, err := p.thresholds.ThresholdsFor(ctx, key)
	if err != nil {
		return StockLevel{}, fmt.Errorf("thresholds for %s: %w", key, err)
	}

	return StockLevel{
		ProductID:         key.ProductID,
		LocationID:        key.LocationID,
		Quantity:          quantity,
		AverageCost:       averageCost,
		TotalValue:        quantity.Mul(averageCost),
		LowStockThreshold: th.LowStock,
		ReorderPoint:      th.ReorderPoint,
		ReorderQuantity:   th.ReorderQuantity,
		IsLowStock:        quantity.IsPositive() && quantity.LessThanOrEqual(th.LowStock),
		IsOutOfStock:      quantity.IsZero(),
		LastRestockedAt:   lastRestocked,
		LastSoldAt:        lastSold,
	}, nil
}
