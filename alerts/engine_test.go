/*
engine_test.go - Unit tests for alert evaluation, dedup, and lifecycle

CORE DESIGN:
- At most one pending alert per (product, location, type)
- Expiry alerts deduplicate per (product, batch, type) instead
- Lifecycle transitions follow the status table in types.go
*/
package alerts

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/inventory-engine/ledger"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func level(product string, qty, low, reorder string) ledger.StockLevel {
	q := dec(qty)
	l := dec(low)
	return ledger.StockLevel{
		ProductID:         product,
		Quantity:          q,
		AverageCost:       dec("25.00"),
		LowStockThreshold: l,
		ReorderPoint:      dec(reorder),
		IsLowStock:        q.IsPositive() && q.LessThanOrEqual(l),
		IsOutOfStock:      q.IsZero(),
	}
}

// recorder captures notifier callbacks.
type recorder struct {
	alerts  []Alert
	reorder []ReorderNotification
}

func (r *recorder) AlertRaised(a Alert)                    { r.alerts = append(r.alerts, a) }
func (r *recorder) ReorderSuggested(n ReorderNotification) { r.reorder = append(r.reorder, n) }

// =============================================================================
// STOCK ALERT TESTS
// =============================================================================

func TestEvaluate_OutOfStockIsCritical(t *testing.T) {
	e := NewEngine(Config{})

	raised := e.Evaluate([]ledger.StockLevel{level("widget", "0", "10", "0")})

	require.Len(t, raised, 1)
	assert.Equal(t, TypeOutOfStock, raised[0].Type)
	assert.Equal(t, PriorityCritical, raised[0].Priority)
	assert.Equal(t, StatusPending, raised[0].Status)
}

func TestEvaluate_LowStockIsMedium(t *testing.T) {
	e := NewEngine(Config{})

	raised := e.Evaluate([]ledger.StockLevel{level("widget", "9", "10", "0")})

	require.Len(t, raised, 1)
	assert.Equal(t, TypeLowStock, raised[0].Type)
	assert.Equal(t, PriorityMedium, raised[0].Priority)
	assert.True(t, raised[0].CurrentQuantity.Equal(dec("9")))
	assert.True(t, raised[0].Threshold.Equal(dec("10")))
}

func TestEvaluate_HealthyStockRaisesNothing(t *testing.T) {
	e := NewEngine(Config{})

	raised := e.Evaluate([]ledger.StockLevel{level("widget", "100", "10", "20")})

	assert.Empty(t, raised)
}

func TestEvaluate_ReorderIsIndependent(t *testing.T) {
	// Quantity 15 sits above the low threshold (10) but at or under the
	// reorder point (20): only a reorder alert fires, plus a suggestion.
	notifier := &recorder{}
	e := NewEngine(Config{Notifier: notifier})

	raised := e.Evaluate([]ledger.StockLevel{level("widget", "15", "10", "20")})

	require.Len(t, raised, 1)
	assert.Equal(t, TypeReorder, raised[0].Type)
	assert.Equal(t, PriorityHigh, raised[0].Priority)
	assert.True(t, raised[0].Threshold.Equal(dec("20")))

	pending := e.Notifications(NotificationPending)
	require.Len(t, pending, 1)
	// No configured reorder quantity: suggest 2*20 - 15 = 25.
	assert.True(t, pending[0].SuggestedQuantity.Equal(dec("25")),
		"suggested %s", pending[0].SuggestedQuantity)
	assert.True(t, pending[0].EstimatedCost.Equal(dec("625")))
	assert.Len(t, notifier.reorder, 1)
}

func TestEvaluate_ConfiguredReorderQuantityWins(t *testing.T) {
	e := NewEngine(Config{})

	lv := level("widget", "15", "10", "20")
	lv.ReorderQuantity = dec("60")
	e.Evaluate([]ledger.StockLevel{lv})

	pending := e.Notifications(NotificationPending)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].SuggestedQuantity.Equal(dec("60")))
}

func TestEvaluate_PendingAlertDeduplicates(t *testing.T) {
	notifier := &recorder{}
	e := NewEngine(Config{Notifier: notifier})

	first := e.Evaluate([]ledger.StockLevel{level("widget", "0", "10", "0")})
	second := e.Evaluate([]ledger.StockLevel{level("widget", "0", "10", "0")})

	require.Len(t, first, 1)
	assert.Empty(t, second, "a pending alert must suppress duplicates")
	assert.Len(t, notifier.alerts, 1)
}

func TestEvaluate_ResolvedAlertAllowsReRaise(t *testing.T) {
	e := NewEngine(Config{})

	first := e.Evaluate([]ledger.StockLevel{level("widget", "0", "10", "0")})
	require.Len(t, first, 1)

	_, err := e.Resolve(first[0].ID)
	require.NoError(t, err)

	second := e.Evaluate([]ledger.StockLevel{level("widget", "0", "10", "0")})
	assert.Len(t, second, 1, "resolving clears the dedup slot")
}

func TestEvaluate_DedupIsPerLocationAndType(t *testing.T) {
	e := NewEngine(Config{})

	main := level("widget", "0", "10", "0")
	main.LocationID = "main"
	backroom := level("widget", "0", "10", "0")
	backroom.LocationID = "backroom"

	raised := e.Evaluate([]ledger.StockLevel{main, backroom})
	assert.Len(t, raised, 2, "distinct locations alert independently")
}

// =============================================================================
// EXPIRY ALERT TESTS
// =============================================================================

func expiryTx(product, batch string, expiry time.Time) ledger.Transaction {
	return ledger.Transaction{
		ID:          batch,
		ProductID:   product,
		Type:        ledger.TxPurchase,
		Quantity:    dec("10"),
		Status:      ledger.StatusCompleted,
		BatchNumber: batch,
		ExpiryDate:  &expiry,
	}
}

func TestEvaluateExpiry_Windows(t *testing.T) {
	asOf := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	day := func(offset int) time.Time { return asOf.AddDate(0, 0, offset) }

	cases := []struct {
		name     string
		expiry   time.Time
		wantType Type
		wantPrio Priority
		raised   bool
	}{
		{"expired yesterday", day(-1), TypeExpired, PriorityCritical, true},
		{"expires today", day(0), TypeExpiringSoon, PriorityHigh, true},
		{"expires within a week", day(6), TypeExpiringSoon, PriorityHigh, true},
		{"expires within the window", day(20), TypeExpiringSoon, PriorityMedium, true},
		{"expires beyond the window", day(45), "", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := NewEngine(Config{ExpiryWindowDays: 30})
			raised := e.EvaluateExpiry([]ledger.Transaction{expiryTx("milk", "B1", tc.expiry)}, asOf)

			if !tc.raised {
				assert.Empty(t, raised)
				return
			}
			require.Len(t, raised, 1)
			assert.Equal(t, tc.wantType, raised[0].Type)
			assert.Equal(t, tc.wantPrio, raised[0].Priority)
			assert.Equal(t, "B1", raised[0].BatchNumber)
		})
	}
}

func TestEvaluateExpiry_DeduplicatesPerBatch(t *testing.T) {
	asOf := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	expired := asOf.AddDate(0, 0, -2)

	e := NewEngine(Config{})
	txs := []ledger.Transaction{
		expiryTx("milk", "B1", expired),
		expiryTx("milk", "B1", expired), // same batch again
		expiryTx("milk", "B2", expired), // different batch
	}

	first := e.EvaluateExpiry(txs, asOf)
	assert.Len(t, first, 2, "one alert per batch")

	second := e.EvaluateExpiry(txs, asOf)
	assert.Empty(t, second, "pending batch alerts suppress re-raise")
}

func TestEvaluateExpiry_SkipsCancelledAndBatchless(t *testing.T) {
	asOf := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	expired := asOf.AddDate(0, 0, -2)

	cancelled := expiryTx("milk", "B1", expired)
	cancelled.Status = ledger.StatusCancelled
	batchless := expiryTx("milk", "", expired)

	e := NewEngine(Config{})
	raised := e.EvaluateExpiry([]ledger.Transaction{cancelled, batchless}, asOf)
	assert.Empty(t, raised)
}

// =============================================================================
// LIFECYCLE TESTS
// =============================================================================

func TestLifecycle_AcknowledgeThenResolve(t *testing.T) {
	e := NewEngine(Config{})
	raised := e.Evaluate([]ledger.StockLevel{level("widget", "0", "10", "0")})
	require.Len(t, raised, 1)
	id := raised[0].ID

	acked, err := e.Acknowledge(id)
	require.NoError(t, err)
	assert.Equal(t, StatusAcknowledged, acked.Status)
	assert.NotNil(t, acked.AcknowledgedAt)

	resolved, err := e.Resolve(id)
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, resolved.Status)
	assert.NotNil(t, resolved.ResolvedAt)
}

func TestLifecycle_InvalidTransitionsRejected(t *testing.T) {
	e := NewEngine(Config{})
	raised := e.Evaluate([]ledger.StockLevel{level("widget", "0", "10", "0")})
	require.Len(t, raised, 1)
	id := raised[0].ID

	_, err := e.Dismiss(id)
	require.NoError(t, err)

	_, err = e.Resolve(id)
	assert.ErrorIs(t, err, ledger.ErrInvalidState, "dismissed alerts cannot be resolved")

	_, err = e.Acknowledge("no-such-alert")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestList_SortsByPriorityThenRecency(t *testing.T) {
	e := NewEngine(Config{})

	// medium (low stock), then critical (out of stock), then high (reorder)
	e.Evaluate([]ledger.StockLevel{level("gadget", "5", "10", "0")})
	e.Evaluate([]ledger.StockLevel{level("widget", "0", "10", "0")})
	e.Evaluate([]ledger.StockLevel{level("doohickey", "15", "10", "20")})

	list := e.List(ListFilter{})
	require.Len(t, list, 3)
	assert.Equal(t, PriorityCritical, list[0].Priority)
	assert.Equal(t, PriorityHigh, list[1].Priority)
	assert.Equal(t, PriorityMedium, list[2].Priority)
}

func TestList_Filters(t *testing.T) {
	e := NewEngine(Config{})
	e.Evaluate([]ledger.StockLevel{
		level("widget", "0", "10", "0"),
		level("gadget", "5", "10", "0"),
	})

	assert.Len(t, e.List(ListFilter{ProductID: "widget"}), 1)
	assert.Len(t, e.List(ListFilter{Type: TypeLowStock}), 1)
	assert.Empty(t, e.List(ListFilter{Status: StatusResolved}))
}

func TestNotifications_MarkOrderedAndDismiss(t *testing.T) {
	e := NewEngine(Config{})
	e.Evaluate([]ledger.StockLevel{level("widget", "15", "10", "20")})

	pending := e.Notifications(NotificationPending)
	require.Len(t, pending, 1)

	ordered, err := e.MarkOrdered(pending[0].ID)
	require.NoError(t, err)
	assert.Equal(t, NotificationOrdered, ordered.Status)

	// A closed notification cannot be closed again.
	_, err = e.DismissNotification(pending[0].ID)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}
