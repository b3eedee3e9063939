/*
engine.go - Alert evaluation and lifecycle

EVALUATION ORDER (per stock level):
  1. Out of stock (quantity == 0)        -> critical
  2. else low stock (0 < qty <= low)     -> medium
  3. independently, reorder point hit    -> high + reorder notification

EXPIRY EVALUATION (per batch with an expiry date):
  daysUntilExpiry < 0       -> expired, critical
  0 <= daysUntilExpiry <= 7 -> expiring_soon, high
  8 <= daysUntilExpiry <= N -> expiring_soon, medium (N = window, default 30)

Both paths skip creation while a pending alert of the same identity exists,
so evaluation is idempotent under repeated calls with unchanged inputs.
*/
package alerts

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/inventory-engine/ledger"
)

// DefaultExpiryWindowDays is how far ahead expiring batches are flagged.
const DefaultExpiryWindowDays = 30

// Engine owns alert and reorder-notification state.
type Engine struct {
	mu            sync.Mutex
	alerts        map[string]*Alert
	notifications map[string]*ReorderNotification

	notifier         Notifier
	expiryWindowDays int
	now              func() time.Time
}

// Config tunes the engine. Zero values fall back to defaults.
type Config struct {
	Notifier         Notifier
	ExpiryWindowDays int
	Now              func() time.Time
}

func NewEngine(cfg Config) *Engine {
	if cfg.Notifier == nil {
		cfg.Notifier = NopNotifier{}
	}
	if cfg.ExpiryWindowDays <= 0 {
		cfg.ExpiryWindowDays = DefaultExpiryWindowDays
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		alerts:           make(map[string]*Alert),
		notifications:    make(map[string]*ReorderNotification),
		notifier:         cfg.Notifier,
		expiryWindowDays: cfg.ExpiryWindowDays,
		now:              cfg.Now,
	}
}

// =============================================================================
// EVALUATION
// =============================================================================

// Evaluate checks stock levels against thresholds and returns the alerts
// raised by THIS call. Levels that already carry a pending alert of the same
// type contribute nothing - calling twice on unchanged stock raises zero new
// alerts the second time.
func (e *Engine) Evaluate(levels []ledger.StockLevel) []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	var raised []Alert
	for _, level := range levels {
		switch {
		case level.IsOutOfStock:
			if a, ok := e.raiseLocked(level, TypeOutOfStock, PriorityCritical,
				fmt.Sprintf("%s is out of stock", level.Key())); ok {
				raised = append(raised, a)
			}
		case level.IsLowStock:
			if a, ok := e.raiseLocked(level, TypeLowStock, PriorityMedium,
				fmt.Sprintf("%s is low on stock (%s left, threshold %s)",
					level.Key(), level.Quantity, level.LowStockThreshold)); ok {
				raised = append(raised, a)
			}
		}

		// Reorder check is independent of the low/out classification.
		if level.ReorderPoint.IsPositive() && level.Quantity.LessThanOrEqual(level.ReorderPoint) {
			if a, ok := e.raiseLocked(level, TypeReorder, PriorityHigh,
				fmt.Sprintf("%s reached its reorder point (%s left, reorder at %s)",
					level.Key(), level.Quantity, level.ReorderPoint)); ok {
				raised = append(raised, a)
			}
			e.suggestReorderLocked(level)
		}
	}
	return raised
}

// EvaluateExpiry scans completed transactions carrying batch/expiry metadata
// and raises expired/expiring_soon alerts. Deduplicated per
// (product, batch, type).
func (e *Engine) EvaluateExpiry(txs []ledger.Transaction, asOf time.Time) []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	type batchKey struct {
		productID string
		batch     string
	}
	seen := make(map[batchKey]bool)

	var raised []Alert
	for _, tx := range txs {
		if tx.Status != ledger.StatusCompleted || tx.BatchNumber == "" || tx.ExpiryDate == nil {
			continue
		}
		bk := batchKey{productID: tx.ProductID, batch: tx.BatchNumber}
		if seen[bk] {
			continue
		}
		seen[bk] = true

		days := daysUntil(*tx.ExpiryDate, asOf)
		var (
			typ      Type
			priority Priority
			msg      string
		)
		switch {
		case days < 0:
			typ, priority = TypeExpired, PriorityCritical
			msg = fmt.Sprintf("batch %s of %s expired %d day(s) ago", tx.BatchNumber, tx.ProductID, -days)
		case days <= 7:
			typ, priority = TypeExpiringSoon, PriorityHigh
			msg = fmt.Sprintf("batch %s of %s expires in %d day(s)", tx.BatchNumber, tx.ProductID, days)
		case days <= e.expiryWindowDays:
			typ, priority = TypeExpiringSoon, PriorityMedium
			msg = fmt.Sprintf("batch %s of %s expires in %d day(s)", tx.BatchNumber, tx.ProductID, days)
		default:
			continue
		}

		if e.hasPendingBatchLocked(tx.ProductID, tx.BatchNumber, typ) {
			continue
		}
		alert := Alert{
			ID:          uuid.NewString(),
			ProductID:   tx.ProductID,
			LocationID:  tx.LocationID,
			Type:        typ,
			Priority:    priority,
			Status:      StatusPending,
			Message:     msg,
			BatchNumber: tx.BatchNumber,
			ExpiryDate:  tx.ExpiryDate,
			TriggeredAt: e.now().UTC(),
		}
		e.alerts[alert.ID] = &alert
		e.notifier.AlertRaised(alert)
		raised = append(raised, alert)
	}
	return raised
}

func (e *Engine) raiseLocked(level ledger.StockLevel, typ Type, priority Priority, msg string) (Alert, bool) {
	if e.hasPendingLocked(level.ProductID, level.LocationID, typ) {
		return Alert{}, false
	}
	alert := Alert{
		ID:              uuid.NewString(),
		ProductID:       level.ProductID,
		LocationID:      level.LocationID,
		Type:            typ,
		Priority:        priority,
		Status:          StatusPending,
		Message:         msg,
		CurrentQuantity: level.Quantity,
		Threshold:       level.LowStockThreshold,
		TriggeredAt:     e.now().UTC(),
	}
	if typ == TypeReorder {
		alert.Threshold = level.ReorderPoint
	}
	e.alerts[alert.ID] = &alert
	e.notifier.AlertRaised(alert)
	return alert, true
}

func (e *Engine) suggestReorderLocked(level ledger.StockLevel) {
	for _, n := range e.notifications {
		if n.ProductID == level.ProductID && n.LocationID == level.LocationID && n.Status == NotificationPending {
			return
		}
	}
	suggested := level.ReorderQuantity
	if !suggested.IsPositive() {
		// No configured reorder quantity: suggest refilling to twice the
		// reorder point.
		suggested = level.ReorderPoint.Mul(two).Sub(level.Quantity)
	}
	n := ReorderNotification{
		ID:                uuid.NewString(),
		ProductID:         level.ProductID,
		LocationID:        level.LocationID,
		SuggestedQuantity: suggested,
		EstimatedCost:     suggested.Mul(level.AverageCost),
		Status:            NotificationPending,
		CreatedAt:         e.now().UTC(),
	}
	e.notifications[n.ID] = &n
	e.notifier.ReorderSuggested(n)
}

func (e *Engine) hasPendingLocked(productID, locationID string, typ Type) bool {
	for _, a := range e.alerts {
		if a.Status == StatusPending && a.ProductID == productID && a.LocationID == locationID && a.Type == typ {
			return true
		}
	}
	return false
}

func (e *Engine) hasPendingBatchLocked(productID, batch string, typ Type) bool {
	for _, a := range e.alerts {
		if a.Status == StatusPending && a.ProductID == productID && a.BatchNumber == batch && a.Type == typ {
			return true
		}
	}
	return false
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Acknowledge moves a pending alert to acknowledged.
func (e *Engine) Acknowledge(id string) (Alert, error) {
	return e.transition(id, StatusAcknowledged, "acknowledge")
}

// Resolve closes a pending or acknowledged alert.
func (e *Engine) Resolve(id string) (Alert, error) {
	return e.transition(id, StatusResolved, "resolve")
}

// Dismiss discards a pending alert without resolving the condition.
func (e *Engine) Dismiss(id string) (Alert, error) {
	return e.transition(id, StatusDismissed, "dismiss")
}

func (e *Engine) transition(id string, to Status, op string) (Alert, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.alerts[id]
	if !ok {
		return Alert{}, &ledger.NotFoundError{Entity: "alert", ID: id}
	}
	if !canTransition(a.Status, to) {
		return Alert{}, &ledger.InvalidStateError{
			Entity:    "alert",
			ID:        id,
			State:     string(a.Status),
			Operation: op,
		}
	}
	a.Status = to
	now := e.now().UTC()
	switch to {
	case StatusAcknowledged:
		a.AcknowledgedAt = &now
	case StatusResolved:
		a.ResolvedAt = &now
	}
	return *a, nil
}

// =============================================================================
// LISTING
// =============================================================================

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	ProductID  string
	LocationID string
	Type       Type
	Status     Status
}

// List returns alerts sorted by priority (critical first) then TriggeredAt
// descending.
func (e *Engine) List(f ListFilter) []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	var result []Alert
	for _, a := range e.alerts {
		if f.ProductID != "" && a.ProductID != f.ProductID {
			continue
		}
		if f.LocationID != "" && a.LocationID != f.LocationID {
			continue
		}
		if f.Type != "" && a.Type != f.Type {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		result = append(result, *a)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority.rank() != result[j].Priority.rank() {
			return result[i].Priority.rank() < result[j].Priority.rank()
		}
		return result[i].TriggeredAt.After(result[j].TriggeredAt)
	})
	return result
}

// Notifications returns reorder notifications, optionally filtered by status.
func (e *Engine) Notifications(status NotificationStatus) []ReorderNotification {
	e.mu.Lock()
	defer e.mu.Unlock()

	var result []ReorderNotification
	for _, n := range e.notifications {
		if status != "" && n.Status != status {
			continue
		}
		result = append(result, *n)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result
}

// MarkOrdered closes a pending notification as ordered.
func (e *Engine) MarkOrdered(id string) (ReorderNotification, error) {
	return e.closeNotification(id, NotificationOrdered, "order")
}

// DismissNotification discards a pending notification.
func (e *Engine) DismissNotification(id string) (ReorderNotification, error) {
	return e.closeNotification(id, NotificationDismissed, "dismiss")
}

func (e *Engine) closeNotification(id string, to NotificationStatus, op string) (ReorderNotification, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.notifications[id]
	if !ok {
		return ReorderNotification{}, &ledger.NotFoundError{Entity: "reorder notification", ID: id}
	}
	if n.Status != NotificationPending {
		return ReorderNotification{}, &ledger.InvalidStateError{
			Entity:    "reorder notification",
			ID:        id,
			State:     string(n.Status),
			Operation: op,
		}
	}
	n.Status = to
	return *n, nil
}

// =============================================================================
// HELPERS
// =============================================================================

var two = decimal.NewFromInt(2)

func daysUntil(expiry, asOf time.Time) int {
	// Compare calendar days, not raw durations, so "expires today" is 0.
	e := time.Date(expiry.Year(), expiry.Month(), expiry.Day(), 0, 0, 0, 0, time.UTC)
	a := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	return int(e.Sub(a).Hours() / 24)
}
