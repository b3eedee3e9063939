/*
count_test.go - Unit tests for the cycle count state machine

CORE DESIGN:
- scheduled -> in_progress -> completed; cancelled from the first two
- systemQuantity is snapshotted at creation and never refreshed
- Completion is gated on zero pending items (IncompleteCountError)
- Adjustments land as signed ledger transactions, marked off per item so a
  partial failure can be retried without double-applying
*/
package counting

import (
	"context"
	"errors"
	"testing"

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

// fakeEngine backs the workflow with canned projections and records the
// adjustments it receives.
type fakeEngine struct {
	levels   map[ledger.StockKey]decimal.Decimal
	appended []ledger.Input
	fail     error
	// failProduct scopes fail to a single product so tests can make one
	// adjustment land and the next one blow up.
	failProduct string
}

func (f *fakeEngine) Project(_ context.Context, key ledger.StockKey) (ledger.StockLevel, error) {
	return ledger.StockLevel{
		ProductID:  key.ProductID,
		LocationID: key.LocationID,
		Quantity:   f.levels[key],
	}, nil
}

func (f *fakeEngine) Append(_ context.Context, in ledger.Input) (ledger.Transaction, error) {
	if f.fail != nil && (f.failProduct == "" || f.failProduct == in.ProductID) {
		return ledger.Transaction{}, f.fail
	}
	f.appended = append(f.appended, in)
	return ledger.Transaction{
		ID:        "tx-" + in.ProductID,
		ProductID: in.ProductID,
		Type:      in.Type,
		Quantity:  in.Quantity,
		Status:    ledger.StatusCompleted,
	}, nil
}

func newTestWorkflow(levels map[string]string) (*Workflow, *fakeEngine) {
	eng := &fakeEngine{levels: make(map[ledger.StockKey]decimal.Decimal)}
	for product, qty := range levels {
		eng.levels[ledger.StockKey{ProductID: product, LocationID: "main"}] = dec(qty)
	}
	return NewWorkflow(eng, eng), eng
}

func mustCreate(t *testing.T, w *Workflow, products ...string) Count {
	t.Helper()
	c, err := w.Create(context.Background(), CreateInput{
		Name:       "march count",
		LocationID: "main",
		ProductIDs: products,
		CreatedBy:  "tester",
	})
	require.NoError(t, err)
	return c
}

// =============================================================================
// CREATION TESTS
// =============================================================================

func TestCreate_SnapshotsSystemQuantities(t *testing.T) {
	w, _ := newTestWorkflow(map[string]string{"widget": "42", "gadget": "7"})

	c := mustCreate(t, w, "widget", "gadget")

	assert.Equal(t, StatusScheduled, c.Status)
	require.Len(t, c.Items, 2)
	byProduct := map[string]Item{}
	for _, it := range c.Items {
		byProduct[it.ProductID] = it
	}
	assert.True(t, byProduct["widget"].SystemQuantity.Equal(dec("42")))
	assert.True(t, byProduct["gadget"].SystemQuantity.Equal(dec("7")))
	assert.Equal(t, ItemPending, byProduct["widget"].Status)
}

func TestCreate_RequiresProducts(t *testing.T) {
	w, _ := newTestWorkflow(nil)

	_, err := w.Create(context.Background(), CreateInput{Name: "empty", LocationID: "main"})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestCreate_SnapshotIgnoresLaterActivity(t *testing.T) {
	// The snapshot is taken at creation; later stock movement must not
	// leak into an open count's variance baseline.
	w, eng := newTestWorkflow(map[string]string{"widget": "42"})
	c := mustCreate(t, w, "widget")

	eng.levels[ledger.StockKey{ProductID: "widget", LocationID: "main"}] = dec("99")

	got, err := w.Get(c.ID)
	require.NoError(t, err)
	assert.True(t, got.Items[0].SystemQuantity.Equal(dec("42")))
}

// =============================================================================
// STATE MACHINE TESTS
// =============================================================================

func TestStateMachine_HappyPath(t *testing.T) {
	w, _ := newTestWorkflow(map[string]string{"widget": "40"})
	c := mustCreate(t, w, "widget")

	started, err := w.Start(c.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, started.Status)
	assert.NotNil(t, started.StartDate)

	counted, err := w.RecordCount(c.ID, c.Items[0].ID, dec("38"), "shelf miscount")
	require.NoError(t, err)
	assert.Equal(t, 1, counted.CountedItems)
	assert.Equal(t, 1, counted.VarianceCount)
	assert.True(t, counted.Items[0].Variance.Equal(dec("-2")))

	verified, err := w.VerifyItem(c.ID, c.Items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, ItemVerified, verified.Items[0].Status)

	done, err := w.Complete(c.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.NotNil(t, done.EndDate)
}

func TestStateMachine_IllegalTransitions(t *testing.T) {
	w, _ := newTestWorkflow(map[string]string{"widget": "40"})
	c := mustCreate(t, w, "widget")

	// Cannot complete or record against a scheduled count.
	_, err := w.Complete(c.ID)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
	_, err = w.RecordCount(c.ID, c.Items[0].ID, dec("40"), "")
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	// Cannot start twice.
	_, err = w.Start(c.ID)
	require.NoError(t, err)
	_, err = w.Start(c.ID)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	// Cannot cancel once completed.
	_, err = w.RecordCount(c.ID, c.Items[0].ID, dec("40"), "")
	require.NoError(t, err)
	_, err = w.Complete(c.ID)
	require.NoError(t, err)
	_, err = w.Cancel(c.ID, "too late")
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}

func TestComplete_BlockedWhilePending(t *testing.T) {
	w, _ := newTestWorkflow(map[string]string{"widget": "40", "gadget": "7"})
	c := mustCreate(t, w, "widget", "gadget")
	_, err := w.Start(c.ID)
	require.NoError(t, err)

	_, err = w.RecordCount(c.ID, c.Items[0].ID, dec("40"), "")
	require.NoError(t, err)

	_, err = w.Complete(c.ID)
	var incomplete *IncompleteCountError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, 1, incomplete.PendingItems)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	// The count stays in_progress and finishes once the item is counted.
	got, err := w.Get(c.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, got.Status)

	_, err = w.RecordCount(c.ID, c.Items[1].ID, dec("7"), "")
	require.NoError(t, err)
	_, err = w.Complete(c.ID)
	assert.NoError(t, err)
}

func TestCancel_RecordsReason(t *testing.T) {
	w, _ := newTestWorkflow(map[string]string{"widget": "40"})
	c := mustCreate(t, w, "widget")

	cancelled, err := w.Cancel(c.ID, "fire drill")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, "fire drill", cancelled.CancelReason)
}

func TestRecordCount_NegativeRejected(t *testing.T) {
	w, _ := newTestWorkflow(map[string]string{"widget": "40"})
	c := mustCreate(t, w, "widget")
	_, err := w.Start(c.ID)
	require.NoError(t, err)

	_, err = w.RecordCount(c.ID, c.Items[0].ID, dec("-1"), "")
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestVerifyItem_RequiresCountedFirst(t *testing.T) {
	w, _ := newTestWorkflow(map[string]string{"widget": "40"})
	c := mustCreate(t, w, "widget")
	_, err := w.Start(c.ID)
	require.NoError(t, err)

	_, err = w.VerifyItem(c.ID, c.Items[0].ID)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}

// =============================================================================
// ADJUSTMENT TESTS
// =============================================================================

func completedCount(t *testing.T, w *Workflow, c Count, counts map[string]string) Count {
	t.Helper()
	_, err := w.Start(c.ID)
	require.NoError(t, err)
	for _, item := range c.Items {
		_, err = w.RecordCount(c.ID, item.ID, dec(counts[item.ProductID]), "")
		require.NoError(t, err)
	}
	done, err := w.Complete(c.ID)
	require.NoError(t, err)
	return done
}

func TestApplyAdjustments_StagesSignedDeltas(t *testing.T) {
	w, eng := newTestWorkflow(map[string]string{"widget": "40", "gadget": "7", "doohickey": "3"})
	c := mustCreate(t, w, "widget", "gadget", "doohickey")
	completedCount(t, w, c, map[string]string{
		"widget":    "38", // -2
		"gadget":    "9",  // +2
		"doohickey": "3",  // no variance
	})

	txs, err := w.ApplyAdjustments(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 2, "zero-variance items produce no adjustment")

	require.Len(t, eng.appended, 2)
	byProduct := map[string]ledger.Input{}
	for _, in := range eng.appended {
		byProduct[in.ProductID] = in
	}
	assert.True(t, byProduct["widget"].Quantity.Equal(dec("-2")))
	assert.True(t, byProduct["gadget"].Quantity.Equal(dec("2")))
	assert.Equal(t, ledger.TxAdjustment, byProduct["widget"].Type)
	assert.Equal(t, "cycle_count", byProduct["widget"].ReferenceType)
	assert.Equal(t, c.ID, byProduct["widget"].ReferenceID)

	got, err := w.Get(c.ID)
	require.NoError(t, err)
	assert.True(t, got.AdjustmentsApplied)
}

func TestApplyAdjustments_OnlyOnceAndOnlyCompleted(t *testing.T) {
	w, _ := newTestWorkflow(map[string]string{"widget": "40"})
	c := mustCreate(t, w, "widget")

	// Not yet completed.
	_, err := w.ApplyAdjustments(context.Background(), c.ID)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	completedCount(t, w, c, map[string]string{"widget": "38"})
	_, err = w.ApplyAdjustments(context.Background(), c.ID)
	require.NoError(t, err)

	// Second application is rejected.
	_, err = w.ApplyAdjustments(context.Background(), c.ID)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}

func TestApplyAdjustments_PartialFailureIsRetryable(t *testing.T) {
	w, eng := newTestWorkflow(map[string]string{"widget": "40", "gadget": "7"})
	c := mustCreate(t, w, "widget", "gadget")
	completedCount(t, w, c, map[string]string{
		"widget": "38", // -2
		"gadget": "9",  // +2
	})

	// The widget adjustment lands, then the store goes down for gadget.
	storeDown := errors.New("store unavailable")
	eng.fail = storeDown
	eng.failProduct = "gadget"

	txs, err := w.ApplyAdjustments(context.Background(), c.ID)
	require.ErrorIs(t, err, storeDown)
	assert.Len(t, txs, 1, "the landed adjustment is still reported")
	require.Len(t, eng.appended, 1)
	assert.Equal(t, "widget", eng.appended[0].ProductID)

	got, err := w.Get(c.ID)
	require.NoError(t, err)
	assert.False(t, got.AdjustmentsApplied, "a partial application must stay retryable")

	// Retry once the store recovers: only the outstanding item is applied.
	eng.fail = nil
	txs, err = w.ApplyAdjustments(context.Background(), c.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "gadget", txs[0].ProductID)

	require.Len(t, eng.appended, 2, "the landed widget adjustment is never re-applied")
	assert.Equal(t, "gadget", eng.appended[1].ProductID)

	got, err = w.Get(c.ID)
	require.NoError(t, err)
	assert.True(t, got.AdjustmentsApplied)
}

// =============================================================================
// LISTING TESTS
// =============================================================================

func TestList_FiltersByStatus(t *testing.T) {
	w, _ := newTestWorkflow(map[string]string{"widget": "40"})
	a := mustCreate(t, w, "widget")
	b := mustCreate(t, w, "widget")
	_, err := w.Start(b.ID)
	require.NoError(t, err)

	scheduled := w.List(StatusScheduled)
	require.Len(t, scheduled, 1)
	assert.Equal(t, a.ID, scheduled[0].ID)

	assert.Len(t, w.List(""), 2)
}

func TestGet_ReturnsDefensiveCopy(t *testing.T) {
	w, _ := newTestWorkflow(map[string]string{"widget": "40"})
	c := mustCreate(t, w, "widget")

	got, err := w.Get(c.ID)
	require.NoError(t, err)
	got.Items[0].SystemQuantity = dec("999")

	again, err := w.Get(c.ID)
	require.NoError(t, err)
	assert.True(t, again.Items[0].SystemQuantity.Equal(dec("40")),
		"mutating a returned count must not affect the aggregate")
}
