/*
projection_test.go - Unit tests for the stock projection engine

CORE DESIGN:
- Levels are DERIVED by folding completed transactions, never stored
- The fold is idempotent: recomputing without mutations changes nothing
- Average cost is the arithmetic mean of unit costs across transactions
*/
package ledger

import (
	"context"
	"testing"
	"time"
)

func newTestProjector(store Store) *Projector {
	book := NewThresholdBook(Thresholds{
		LowStock:     dec("10"),
		ReorderPoint: dec("20"),
	})
	return NewProjector(store, book)
}

func TestProject_UnknownKeyIsZeroNotError(t *testing.T) {
	// GIVEN: An empty ledger
	// WHEN: Projecting a key with no transactions
	// THEN: A zero-quantity out-of-stock level is returned, not an error

	proj := newTestProjector(newMemStore())

	level, err := proj.Project(context.Background(), StockKey{ProductID: "ghost"})
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if !level.Quantity.IsZero() {
		t.Errorf("expected zero quantity, got %s", level.Quantity)
	}
	if !level.IsOutOfStock {
		t.Error("expected IsOutOfStock for an untracked key")
	}
	if level.IsLowStock {
		t.Error("zero stock must not also count as low stock")
	}
}

func TestProject_FoldExcludesCancelled(t *testing.T) {
	// GIVEN: purchase 50, sale 10, and the sale is cancelled
	// WHEN: Projecting the key
	// THEN: Quantity is 50; cancelled transactions contribute nothing

	store := newMemStore()
	led := New(store)
	proj := newTestProjector(store)
	led.OnMutation(proj.Invalidate)
	ctx := context.Background()

	mustAppend(t, led, purchase("widget", "50", "25.00", 1))
	s := mustAppend(t, led, sale("widget", "10", "40.00", 2))
	if _, err := led.Cancel(ctx, s.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	level, err := proj.Project(ctx, StockKey{ProductID: "widget"})
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if !level.Quantity.Equal(dec("50")) {
		t.Errorf("expected quantity 50, got %s", level.Quantity)
	}
}

func TestProject_AverageCostIsMeanOfUnitCosts(t *testing.T) {
	// GIVEN: Purchases at 10.00 and 20.00 with different quantities
	// WHEN: Projecting the key
	// THEN: Average cost is the arithmetic mean (15.00), not quantity-weighted

	store := newMemStore()
	led := New(store)
	proj := newTestProjector(store)
	led.OnMutation(proj.Invalidate)

	mustAppend(t, led, purchase("widget", "1", "10.00", 1))
	mustAppend(t, led, purchase("widget", "99", "20.00", 2))

	level, err := proj.Project(context.Background(), StockKey{ProductID: "widget"})
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if !level.AverageCost.Equal(dec("15")) {
		t.Errorf("expected average cost 15, got %s", level.AverageCost)
	}
	if !level.TotalValue.Equal(dec("1500")) {
		t.Errorf("expected total value 1500, got %s", level.TotalValue)
	}
}

func TestProject_AverageCostRoundsToFourPlaces(t *testing.T) {
	// GIVEN: Three purchases at 10.00
	// WHEN: A fourth lands at 10.01 and the key is projected
	// THEN: The mean is rounded to 4 decimal places (10.0025)

	store := newMemStore()
	led := New(store)
	proj := newTestProjector(store)
	led.OnMutation(proj.Invalidate)

	for day := 1; day <= 3; day++ {
		mustAppend(t, led, purchase("widget", "5", "10.00", day))
	}
	mustAppend(t, led, purchase("widget", "5", "10.01", 4))

	level, err := proj.Project(context.Background(), StockKey{ProductID: "widget"})
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if !level.AverageCost.Equal(dec("10.0025")) {
		t.Errorf("expected average cost 10.0025, got %s", level.AverageCost)
	}
}

func TestProject_ThresholdFlags(t *testing.T) {
	// GIVEN: A low-stock threshold of 10
	// WHEN: Stock sits exactly on, below, and above the threshold
	// THEN: IsLowStock is inclusive on the boundary

	cases := []struct {
		name     string
		quantity string
		lowStock bool
		outStock bool
	}{
		{"above threshold", "11", false, false},
		{"on threshold", "10", true, false},
		{"below threshold", "3", true, false},
		{"depleted", "0", false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			led := New(store)
			proj := newTestProjector(store)
			led.OnMutation(proj.Invalidate)

			mustAppend(t, led, purchase("widget", "50", "5.00", 1))
			remaining := dec(tc.quantity)
			toSell := dec("50").Sub(remaining)
			if !toSell.IsZero() {
				mustAppend(t, led, sale("widget", toSell.String(), "9.00", 2))
			}

			level, err := proj.Project(context.Background(), StockKey{ProductID: "widget"})
			if err != nil {
				t.Fatalf("project: %v", err)
			}
			if level.IsLowStock != tc.lowStock {
				t.Errorf("IsLowStock = %v, want %v", level.IsLowStock, tc.lowStock)
			}
			if level.IsOutOfStock != tc.outStock {
				t.Errorf("IsOutOfStock = %v, want %v", level.IsOutOfStock, tc.outStock)
			}
		})
	}
}

func TestProject_LastActivityTimestamps(t *testing.T) {
	// GIVEN: Purchases on day 1 and 5, a sale on day 3
	// WHEN: Projecting the key
	// THEN: LastRestockedAt is day 5, LastSoldAt is day 3

	store := newMemStore()
	led := New(store)
	proj := newTestProjector(store)
	led.OnMutation(proj.Invalidate)

	mustAppend(t, led, purchase("widget", "50", "5.00", 1))
	mustAppend(t, led, sale("widget", "10", "9.00", 3))
	mustAppend(t, led, purchase("widget", "20", "5.00", 5))

	level, err := proj.Project(context.Background(), StockKey{ProductID: "widget"})
	if err != nil {
		t.Fatalf("project: %v", err)
	}

	wantRestock := time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)
	wantSold := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
	if level.LastRestockedAt == nil || !level.LastRestockedAt.Equal(wantRestock) {
		t.Errorf("LastRestockedAt = %v, want %v", level.LastRestockedAt, wantRestock)
	}
	if level.LastSoldAt == nil || !level.LastSoldAt.Equal(wantSold) {
		t.Errorf("LastSoldAt = %v, want %v", level.LastSoldAt, wantSold)
	}
}

func TestProjectAll_IdempotentWithoutMutations(t *testing.T) {
	// GIVEN: A ledger with activity across two keys
	// WHEN: ProjectAll runs twice with no mutation in between
	// THEN: Both results are identical

	store := newMemStore()
	led := New(store)
	proj := newTestProjector(store)
	led.OnMutation(proj.Invalidate)
	ctx := context.Background()

	mustAppend(t, led, purchase("widget", "50", "5.00", 1))
	gadget := purchase("gadget", "30", "8.00", 1)
	gadget.LocationID = "backroom"
	mustAppend(t, led, gadget)
	mustAppend(t, led, sale("widget", "10", "9.00", 2))

	first, err := proj.ProjectAll(ctx)
	if err != nil {
		t.Fatalf("first projection: %v", err)
	}
	second, err := proj.ProjectAll(ctx)
	if err != nil {
		t.Fatalf("second projection: %v", err)
	}

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected 2 keys, got %d and %d", len(first), len(second))
	}
	for key, a := range first {
		b := second[key]
		if !a.Quantity.Equal(b.Quantity) || !a.AverageCost.Equal(b.AverageCost) || !a.TotalValue.Equal(b.TotalValue) {
			t.Errorf("projection for %v drifted between runs: %+v vs %+v", key, a, b)
		}
	}
}

func TestProject_CacheInvalidatedOnMutation(t *testing.T) {
	// GIVEN: A cached projection
	// WHEN: A new sale lands via the ledger
	// THEN: The next Project reflects the sale

	store := newMemStore()
	led := New(store)
	proj := newTestProjector(store)
	led.OnMutation(proj.Invalidate)
	ctx := context.Background()

	mustAppend(t, led, purchase("widget", "50", "5.00", 1))
	key := StockKey{ProductID: "widget"}
	if _, err := proj.Project(ctx, key); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	mustAppend(t, led, sale("widget", "20", "9.00", 2))

	level, err := proj.Project(ctx, key)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if !level.Quantity.Equal(dec("30")) {
		t.Errorf("expected quantity 30 after invalidation, got %s", level.Quantity)
	}
}
