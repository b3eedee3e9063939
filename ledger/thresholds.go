package ledger

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// Thresholds configure when a stock level counts as low and when a reorder
// should be suggested. The reorder point is distinct from (and usually above)
// the low-stock display threshold.
type Thresholds struct {
	LowStock        decimal.Decimal
	ReorderPoint    decimal.Decimal
	ReorderQuantity decimal.Decimal
}

// ThresholdSource supplies threshold configuration per stock key.
type ThresholdSource interface {
	ThresholdsFor(ctx context.Context, key StockKey) (Thresholds, error)
}

// ThresholdBook is an in-memory ThresholdSource: per-key overrides on top of
// a default. Good enough for the engine; a durable implementation can wrap a
// settings table without the projector noticing.
type ThresholdBook struct {
	mu        sync.RWMutex
	defaults  Thresholds
	overrides map[StockKey]Thresholds
}

func NewThresholdBook(defaults Thresholds) *ThresholdBook {
	return &ThresholdBook{
		defaults:  defaults,
		overrides: make(map[StockKey]Thresholds),
	}
}

func (b *ThresholdBook) ThresholdsFor(_ context.Context, key StockKey) (Thresholds, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if th, ok := b.overrides[key]; ok {
		return th, nil
	}
	return b.defaults, nil
}

// Set installs an override for one key.
func (b *ThresholdBook) Set(key StockKey, th Thresholds) {
	b.mu.Lock()
	b.overrides[key] = th
	b.mu.Unlock()
}
