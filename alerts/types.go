/*
Package alerts evaluates stock projections against thresholds and produces
deduplicated, prioritized alerts and reorder notifications.

PURPOSE:
  The alert engine is a consumer of the projection engine: it never reads
  the ledger's balances itself, only the StockLevels handed to it (and raw
  transactions for batch/expiry checks). Alerts and notifications are
  derived state - they can always be rebuilt by re-evaluating current
  projections.

DEDUPLICATION INVARIANT:
  At most one pending alert exists per (product, location, type). Repeated
  evaluation of unchanged stock creates nothing new; an alert must be
  resolved or dismissed before the same condition raises again.

SEE ALSO:
  - engine.go: Evaluation and lifecycle operations
  - ledger/projection.go: Where StockLevels come from
*/
package alerts

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ALERT TYPES AND PRIORITIES
// =============================================================================

type Type string

const (
	TypeOutOfStock   Type = "out_of_stock"
	TypeLowStock     Type = "low_stock"
	TypeReorder      Type = "reorder"
	TypeExpired      Type = "expired"
	TypeExpiringSoon Type = "expiring_soon"
)

type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// rank orders priorities for listing: critical > high > medium > low.
func (p Priority) rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// =============================================================================
// ALERT STATUS - Lifecycle transition table
// =============================================================================

type Status string

const (
	StatusPending      Status = "pending"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
	StatusDismissed    Status = "dismissed"
)

// Only pending and acknowledged alerts may be resolved; only pending alerts
// may be dismissed.
var statusTransitions = map[Status][]Status{
	StatusPending:      {StatusAcknowledged, StatusResolved, StatusDismissed},
	StatusAcknowledged: {StatusResolved},
	StatusResolved:     {},
	StatusDismissed:    {},
}

func canTransition(from, to Status) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// =============================================================================
// ALERT
// =============================================================================

type Alert struct {
	ID         string
	ProductID  string
	LocationID string

	Type     Type
	Priority Priority
	Status   Status
	Message  string

	CurrentQuantity decimal.Decimal
	Threshold       decimal.Decimal

	// Batch/expiry context (expiry alerts only).
	BatchNumber string
	ExpiryDate  *time.Time

	TriggeredAt    time.Time
	AcknowledgedAt *time.Time
	ResolvedAt     *time.Time
}

// =============================================================================
// REORDER NOTIFICATION
// =============================================================================

type NotificationStatus string

const (
	NotificationPending   NotificationStatus = "pending"
	NotificationOrdered   NotificationStatus = "ordered"
	NotificationDismissed NotificationStatus = "dismissed"
)

// ReorderNotification suggests a restock for a key that hit its reorder
// point. At most one pending notification exists per (product, location).
type ReorderNotification struct {
	ID         string
	ProductID  string
	LocationID string

	SuggestedQuantity decimal.Decimal
	EstimatedCost     decimal.Decimal

	Status    NotificationStatus
	CreatedAt time.Time
}

// =============================================================================
// OUTBOUND NOTIFIER
// =============================================================================

// Notifier receives alert/notification events as they are raised. The
// external notification layer (email, push, dashboard) implements this;
// the engine never blocks on it beyond the synchronous call.
type Notifier interface {
	AlertRaised(alert Alert)
	ReorderSuggested(n ReorderNotification)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) AlertRaised(Alert)                  {}
func (NopNotifier) ReorderSuggested(ReorderNotification) {}
