/*
Package counting implements the cycle count workflow: a state machine over
count sessions that captures manual counts, computes variances against
projected balances, and stages adjustment transactions back into the ledger.

STATE MACHINE:

  scheduled -> in_progress -> completed
       \           |
        \          v
         +---> cancelled        (never from completed)

  Items: pending -> counted -> verified

Each item snapshots its systemQuantity from the projection engine at
creation time. Variance = counted - system. A count cannot complete while
any item is still pending; the failure enumerates how many remain.

RECONCILIATION BRIDGE:
  ApplyAdjustments is the ONLY sanctioned path from count reconciliation
  back into the ledger: every non-zero variance becomes a signed
  adjustment transaction, so stock corrections are themselves auditable
  ledger entries rather than silent projection edits.
*/
package counting

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/inventory-engine/ledger"
)

// =============================================================================
// STATES
// =============================================================================

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

type ItemStatus string

const (
	ItemPending  ItemStatus = "pending"
	ItemCounted  ItemStatus = "counted"
	ItemVerified ItemStatus = "verified"
)

// =============================================================================
// ERRORS
// =============================================================================

// IncompleteCountError is a specialization of InvalidState raised by
// Complete when items are still pending. It unwraps to ErrInvalidState.
type IncompleteCountError struct {
	CountID      string
	PendingItems int
}

func (e *IncompleteCountError) Error() string {
	return fmt.Sprintf("cannot complete count %s: %d item(s) still pending", e.CountID, e.PendingItems)
}

func (e *IncompleteCountError) Unwrap() error { return ledger.ErrInvalidState }

// =============================================================================
// AGGREGATE
// =============================================================================

// Item is one product within a count session.
type Item struct {
	ID        string
	ProductID string

	// SystemQuantity is snapshotted from the projection engine when the
	// count is created. It does NOT track later ledger activity; the
	// variance is against the world as it looked at snapshot time.
	SystemQuantity  decimal.Decimal
	CountedQuantity decimal.Decimal
	Variance        decimal.Decimal // counted - system

	Status    ItemStatus
	Notes     string
	CountedAt *time.Time

	// Adjusted marks items whose variance has already been written back
	// to the ledger, so a retry after a partial failure resumes from the
	// items that are still outstanding.
	Adjusted bool
}

// Count is a cycle count session. It owns its items.
type Count struct {
	ID         string
	Name       string
	LocationID string
	Status     Status

	Items []Item

	// Aggregates, recomputed on every RecordCount.
	CountedItems  int
	VarianceCount int

	ScheduledFor *time.Time
	StartDate    *time.Time
	EndDate      *time.Time

	CancelReason       string
	AdjustmentsApplied bool
	adjusting          bool // in-flight guard for ApplyAdjustments

	CreatedAt time.Time
	CreatedBy string
}

func (c *Count) pendingItems() int {
	n := 0
	for _, it := range c.Items {
		if it.Status == ItemPending {
			n++
		}
	}
	return n
}

// =============================================================================
// WORKFLOW
// =============================================================================

// Snapshotter supplies the system quantity for an item at creation time.
// *ledger.Projector satisfies this.
type Snapshotter interface {
	Project(ctx context.Context, key ledger.StockKey) (ledger.StockLevel, error)
}

// Adjuster appends the staged adjustment transactions. *ledger.Ledger
// satisfies this.
type Adjuster interface {
	Append(ctx context.Context, in ledger.Input) (ledger.Transaction, error)
}

// Workflow manages count sessions.
type Workflow struct {
	mu     sync.Mutex
	counts map[string]*Count

	snap     Snapshotter
	adjuster Adjuster
	now      func() time.Time
}

func NewWorkflow(snap Snapshotter, adjuster Adjuster) *Workflow {
	return &Workflow{
		counts:   make(map[string]*Count),
		snap:     snap,
		adjuster: adjuster,
		now:      time.Now,
	}
}

// CreateInput describes a new count session.
type CreateInput struct {
	Name         string
	LocationID   string
	ProductIDs   []string
	ScheduledFor *time.Time
	CreatedBy    string
}

// Create opens a scheduled count with one item per product, each item
// snapshotting the current projected quantity.
func (w *Workflow) Create(ctx context.Context, in CreateInput) (Count, error) {
	if len(in.ProductIDs) == 0 {
		return Count{}, &ledger.ValidationError{Field: "productIds", Message: "at least one product is required"}
	}

	items := make([]Item, 0, len(in.ProductIDs))
	for _, productID := range in.ProductIDs {
		if productID == "" {
			return Count{}, &ledger.ValidationError{Field: "productIds", Message: "product id must not be empty"}
		}
		level, err := w.snap.Project(ctx, ledger.StockKey{ProductID: productID, LocationID: in.LocationID})
		if err != nil {
			return Count{}, fmt.Errorf("snapshot %s: %w", productID, err)
		}
		items = append(items, Item{
			ID:             uuid.NewString(),
			ProductID:      productID,
			SystemQuantity: level.Quantity,
			Status:         ItemPending,
		})
	}

	count := &Count{
		ID:           uuid.NewString(),
		Name:         in.Name,
		LocationID:   in.LocationID,
		Status:       StatusScheduled,
		Items:        items,
		ScheduledFor: in.ScheduledFor,
		CreatedAt:    w.now().UTC(),
		CreatedBy:    in.CreatedBy,
	}

	w.mu.Lock()
	w.counts[count.ID] = count
	w.mu.Unlock()
	return snapshotOf(count), nil
}

// Start moves a scheduled count to in_progress.
func (w *Workflow) Start(id string) (Count, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	c, err := w.getLocked(id)
	if err != nil {
		return Count{}, err
	}
	if c.Status != StatusScheduled {
		return Count{}, invalidState(c, "start")
	}
	now := w.now().UTC()
	c.Status = StatusInProgress
	c.StartDate = &now
	return snapshotOf(c), nil
}

// RecordCount captures the physically counted quantity for an item.
// Permitted only while the count is in progress.
func (w *Workflow) RecordCount(id, itemID string, counted decimal.Decimal, notes string) (Count, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	c, err := w.getLocked(id)
	if err != nil {
		return Count{}, err
	}
	if c.Status != StatusInProgress {
		return Count{}, invalidState(c, "record a count on")
	}
	if counted.IsNegative() {
		return Count{}, &ledger.ValidationError{Field: "countedQuantity", Message: "must not be negative"}
	}

	item := findItem(c, itemID)
	if item == nil {
		return Count{}, &ledger.NotFoundError{Entity: "count item", ID: itemID}
	}

	now := w.now().UTC()
	item.CountedQuantity = counted
	item.Variance = counted.Sub(item.SystemQuantity)
	item.Status = ItemCounted
	item.Notes = notes
	item.CountedAt = &now

	recomputeAggregates(c)
	return snapshotOf(c), nil
}

// VerifyItem moves a counted item to verified.
func (w *Workflow) VerifyItem(id, itemID string) (Count, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	c, err := w.getLocked(id)
	if err != nil {
		return Count{}, err
	}
	item := findItem(c, itemID)
	if item == nil {
		return Count{}, &ledger.NotFoundError{Entity: "count item", ID: itemID}
	}
	if item.Status != ItemCounted {
		return Count{}, &ledger.InvalidStateError{
			Entity:    "count item",
			ID:        itemID,
			State:     string(item.Status),
			Operation: "verify",
		}
	}
	item.Status = ItemVerified
	return snapshotOf(c), nil
}

// Complete closes an in-progress count. Fails with IncompleteCountError if
// any item is still pending; the count stays in_progress.
func (w *Workflow) Complete(id string) (Count, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	c, err := w.getLocked(id)
	if err != nil {
		return Count{}, err
	}
	if c.Status != StatusInProgress {
		return Count{}, invalidState(c, "complete")
	}
	if pending := c.pendingItems(); pending > 0 {
		return Count{}, &IncompleteCountError{CountID: id, PendingItems: pending}
	}
	now := w.now().UTC()
	c.Status = StatusCompleted
	c.EndDate = &now
	return snapshotOf(c), nil
}

// Cancel abandons a scheduled or in-progress count. Completed counts cannot
// be cancelled.
func (w *Workflow) Cancel(id, reason string) (Count, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	c, err := w.getLocked(id)
	if err != nil {
		return Count{}, err
	}
	if c.Status != StatusScheduled && c.Status != StatusInProgress {
		return Count{}, invalidState(c, "cancel")
	}
	c.Status = StatusCancelled
	c.CancelReason = reason
	return snapshotOf(c), nil
}

// ApplyAdjustments stages one signed adjustment transaction per item with a
// non-zero variance. Only completed counts qualify. Items are marked off
// individually as their adjustment lands, so a failure partway through does
// not lose the remaining variances: a retry picks up the outstanding items
// and never re-applies a landed one.
func (w *Workflow) ApplyAdjustments(ctx context.Context, id string) ([]ledger.Transaction, error) {
	w.mu.Lock()
	c, err := w.getLocked(id)
	if err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if c.Status != StatusCompleted {
		w.mu.Unlock()
		return nil, invalidState(c, "apply adjustments for")
	}
	if c.AdjustmentsApplied {
		w.mu.Unlock()
		return nil, &ledger.InvalidStateError{
			Entity:    "cycle count",
			ID:        id,
			State:     "adjustments already applied",
			Operation: "apply adjustments for",
		}
	}
	if c.adjusting {
		w.mu.Unlock()
		return nil, &ledger.InvalidStateError{
			Entity:    "cycle count",
			ID:        id,
			State:     "adjustment application in progress",
			Operation: "apply adjustments for",
		}
	}

	// Collect the staged inputs under the lock, append outside it: the
	// ledger has its own per-key critical sections and we must not hold
	// the workflow lock across them.
	type stagedItem struct {
		itemIdx int
		input   ledger.Input
	}
	var staged []stagedItem
	for i, item := range c.Items {
		if item.Variance.IsZero() || item.Adjusted {
			continue
		}
		staged = append(staged, stagedItem{
			itemIdx: i,
			input: ledger.Input{
				ProductID:     item.ProductID,
				LocationID:    c.LocationID,
				Type:          ledger.TxAdjustment,
				Quantity:      item.Variance,
				ReferenceType: "cycle_count",
				ReferenceID:   c.ID,
				Notes:         fmt.Sprintf("cycle count %q variance for %s", c.Name, item.ProductID),
				CreatedBy:     c.CreatedBy,
			},
		})
	}
	c.adjusting = true
	w.mu.Unlock()

	txs := make([]ledger.Transaction, 0, len(staged))
	var landed []int
	var appendErr error
	for _, s := range staged {
		tx, err := w.adjuster.Append(ctx, s.input)
		if err != nil {
			appendErr = fmt.Errorf("apply adjustment for %s: %w", s.input.ProductID, err)
			break
		}
		landed = append(landed, s.itemIdx)
		txs = append(txs, tx)
	}

	w.mu.Lock()
	for _, i := range landed {
		c.Items[i].Adjusted = true
	}
	c.adjusting = false
	if appendErr == nil {
		c.AdjustmentsApplied = true
	}
	w.mu.Unlock()

	if appendErr != nil {
		return txs, appendErr
	}
	return txs, nil
}

// =============================================================================
// READS
// =============================================================================

// Get returns a count by id.
func (w *Workflow) Get(id string) (Count, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	c, err := w.getLocked(id)
	if err != nil {
		return Count{}, err
	}
	return snapshotOf(c), nil
}

// List returns counts, newest first, optionally filtered by status.
func (w *Workflow) List(status Status) []Count {
	w.mu.Lock()
	defer w.mu.Unlock()

	var result []Count
	for _, c := range w.counts {
		if status != "" && c.Status != status {
			continue
		}
		result = append(result, snapshotOf(c))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result
}

// =============================================================================
// INTERNALS
// =============================================================================

func (w *Workflow) getLocked(id string) (*Count, error) {
	c, ok := w.counts[id]
	if !ok {
		return nil, &ledger.NotFoundError{Entity: "cycle count", ID: id}
	}
	return c, nil
}

func findItem(c *Count, itemID string) *Item {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return &c.Items[i]
		}
	}
	return nil
}

func recomputeAggregates(c *Count) {
	counted, variances := 0, 0
	for _, it := range c.Items {
		if it.Status == ItemCounted || it.Status == ItemVerified {
			counted++
			if !it.Variance.IsZero() {
				variances++
			}
		}
	}
	c.CountedItems = counted
	c.VarianceCount = variances
}

func invalidState(c *Count, op string) error {
	return &ledger.InvalidStateError{
		Entity:    "cycle count",
		ID:        c.ID,
		State:     string(c.Status),
		Operation: op,
	}
}

// snapshotOf returns a defensive copy so callers never alias workflow state.
func snapshotOf(c *Count) Count {
	out := *c
	out.Items = make([]Item, len(c.Items))
	copy(out.Items, c.Items)
	return out
}
