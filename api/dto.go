/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

DECIMAL HANDLING:
  Quantities and costs travel as JSON strings ("12.5000"), never floats.
  Handlers parse them with decimal.NewFromString so no precision is lost
  between the wire and the ledger.

TYPES:
  Transactions:
    TransactionDTO, CreateTransactionRequest, UpdateTransactionRequest,
    AdjustmentRequest

  Stock:
    StockLevelDTO, StatsDTO, ThresholdRequest

  Transfers:
    TransferRequest, TransferDTO

  Alerts:
    AlertDTO, ReorderNotificationDTO

  Cycle counts:
    CycleCountDTO, CycleCountItemDTO, CreateCycleCountRequest,
    RecordCountRequest, CancelCycleCountRequest

VALIDATION:
  Validation is done in handlers and the domain layer, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: Domain counterparts
*/
package api

import (
	"time"

	"github.com/warp/inventory-engine/alerts"
	"github.com/warp/inventory-engine/counting"
	"github.com/warp/inventory-engine/inventory"
	"github.com/warp/inventory-engine/ledger"
)

// =============================================================================
// TRANSACTION TYPES
// =============================================================================

// TransactionDTO represents a ledger transaction in API responses.
type TransactionDTO struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	LocationID string `json:"location_id,omitempty"`

	Type         string `json:"type"`
	Quantity     string `json:"quantity"`
	UnitCost     string `json:"unit_cost"`
	TotalCost    string `json:"total_cost"`
	BalanceAfter string `json:"balance_after"`

	BatchNumber string `json:"batch_number,omitempty"`
	ExpiryDate  string `json:"expiry_date,omitempty"`

	ReferenceType   string `json:"reference_type,omitempty"`
	ReferenceID     string `json:"reference_id,omitempty"`
	ReferenceNumber string `json:"reference_number,omitempty"`

	Notes  string `json:"notes,omitempty"`
	Status string `json:"status"`

	TransactionDate string `json:"transaction_date"`
	CreatedAt       string `json:"created_at"`
	CreatedBy       string `json:"created_by,omitempty"`
}

// CreateTransactionRequest is the request to append a transaction.
type CreateTransactionRequest struct {
	ProductID  string `json:"product_id"`
	LocationID string `json:"location_id"`

	Type     string `json:"type"`
	Quantity string `json:"quantity"`
	UnitCost string `json:"unit_cost"`

	BatchNumber string `json:"batch_number"`
	ExpiryDate  string `json:"expiry_date"` // RFC3339, optional

	ReferenceType   string `json:"reference_type"`
	ReferenceID     string `json:"reference_id"`
	ReferenceNumber string `json:"reference_number"`

	Notes           string `json:"notes"`
	TransactionDate string `json:"transaction_date"` // RFC3339, defaults to now
	CreatedBy       string `json:"created_by"`
}

// UpdateTransactionRequest carries the amendable fields. Absent fields are
// left untouched; quantities and costs cannot be edited after the fact.
type UpdateTransactionRequest struct {
	Notes           *string `json:"notes"`
	BatchNumber     *string `json:"batch_number"`
	ExpiryDate      *string `json:"expiry_date"` // RFC3339, "" clears
	ReferenceType   *string `json:"reference_type"`
	ReferenceID     *string `json:"reference_id"`
	ReferenceNumber *string `json:"reference_number"`
}

// AdjustmentRequest is a manual signed stock correction.
type AdjustmentRequest struct {
	ProductID  string `json:"product_id"`
	LocationID string `json:"location_id"`
	Delta      string `json:"delta"` // signed decimal
	Reason     string `json:"reason"`
	CreatedBy  string `json:"created_by"`
}

// =============================================================================
// STOCK TYPES
// =============================================================================

// StockLevelDTO is a projected stock level in API responses.
type StockLevelDTO struct {
	ProductID    string `json:"product_id"`
	ProductName  string `json:"product_name,omitempty"`
	ProductSKU   string `json:"product_sku,omitempty"`
	LocationID   string `json:"location_id,omitempty"`
	LocationName string `json:"location_name,omitempty"`

	Quantity    string `json:"quantity"`
	AverageCost string `json:"average_cost"`
	TotalValue  string `json:"total_value"`

	LowStockThreshold string `json:"low_stock_threshold"`
	ReorderPoint      string `json:"reorder_point"`
	ReorderQuantity   string `json:"reorder_quantity"`

	IsLowStock   bool `json:"is_low_stock"`
	IsOutOfStock bool `json:"is_out_of_stock"`

	LastRestockedAt string `json:"last_restocked_at,omitempty"`
	LastSoldAt      string `json:"last_sold_at,omitempty"`
}

// StatsDTO is the inventory-wide summary.
type StatsDTO struct {
	TrackedKeys     int    `json:"tracked_keys"`
	TotalQuantity   string `json:"total_quantity"`
	TotalValue      string `json:"total_value"`
	LowStockCount   int    `json:"low_stock_count"`
	OutOfStockCount int    `json:"out_of_stock_count"`
	PendingAlerts   int    `json:"pending_alerts"`
}

// ThresholdRequest sets per-key alerting thresholds.
type ThresholdRequest struct {
	ProductID       string `json:"product_id"`
	LocationID      string `json:"location_id"`
	LowStock        string `json:"low_stock_threshold"`
	ReorderPoint    string `json:"reorder_point"`
	ReorderQuantity string `json:"reorder_quantity"`
}

// =============================================================================
// TRANSFER TYPES
// =============================================================================

// TransferRequest moves stock between two locations.
type TransferRequest struct {
	ProductID      string `json:"product_id"`
	FromLocationID string `json:"from_location_id"`
	ToLocationID   string `json:"to_location_id"`
	Quantity       string `json:"quantity"`
	Notes          string `json:"notes"`
	CreatedBy      string `json:"created_by"`
}

// TransferDTO is the pair of ledger legs a transfer produced.
type TransferDTO struct {
	ReferenceNumber string         `json:"reference_number"`
	Out             TransactionDTO `json:"out"`
	In              TransactionDTO `json:"in"`
}

// =============================================================================
// ALERT TYPES
// =============================================================================

// AlertDTO represents a stock alert in API responses.
type AlertDTO struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	LocationID string `json:"location_id,omitempty"`

	Type     string `json:"type"`
	Priority string `json:"priority"`
	Status   string `json:"status"`
	Message  string `json:"message"`

	CurrentQuantity string `json:"current_quantity"`
	Threshold       string `json:"threshold"`

	BatchNumber string `json:"batch_number,omitempty"`
	ExpiryDate  string `json:"expiry_date,omitempty"`

	TriggeredAt    string `json:"triggered_at"`
	AcknowledgedAt string `json:"acknowledged_at,omitempty"`
	ResolvedAt     string `json:"resolved_at,omitempty"`
}

// ReorderNotificationDTO is a suggested purchase order.
type ReorderNotificationDTO struct {
	ID                string `json:"id"`
	ProductID         string `json:"product_id"`
	LocationID        string `json:"location_id,omitempty"`
	SuggestedQuantity string `json:"suggested_quantity"`
	EstimatedCost     string `json:"estimated_cost"`
	Status            string `json:"status"`
	CreatedAt         string `json:"created_at"`
}

// =============================================================================
// CYCLE COUNT TYPES
// =============================================================================

// CycleCountItemDTO is one product line inside a count session.
type CycleCountItemDTO struct {
	ID              string `json:"id"`
	ProductID       string `json:"product_id"`
	SystemQuantity  string `json:"system_quantity"`
	CountedQuantity string `json:"counted_quantity"`
	Variance        string `json:"variance"`
	Status          string `json:"status"`
	Notes           string `json:"notes,omitempty"`
	CountedAt       string `json:"counted_at,omitempty"`
}

// CycleCountDTO represents a count session in API responses.
type CycleCountDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	LocationID string `json:"location_id,omitempty"`
	Status     string `json:"status"`

	Items []CycleCountItemDTO `json:"items"`

	CountedItems  int `json:"counted_items"`
	TotalItems    int `json:"total_items"`
	VarianceCount int `json:"variance_count"`

	ScheduledFor string `json:"scheduled_for,omitempty"`
	StartDate    string `json:"start_date,omitempty"`
	EndDate      string `json:"end_date,omitempty"`

	CancelReason       string `json:"cancel_reason,omitempty"`
	AdjustmentsApplied bool   `json:"adjustments_applied"`

	CreatedAt string `json:"created_at"`
	CreatedBy string `json:"created_by,omitempty"`
}

// CreateCycleCountRequest opens a new count session.
type CreateCycleCountRequest struct {
	Name         string   `json:"name"`
	LocationID   string   `json:"location_id"`
	ProductIDs   []string `json:"product_ids"`
	ScheduledFor string   `json:"scheduled_for"` // RFC3339, optional
	CreatedBy    string   `json:"created_by"`
}

// RecordCountRequest records a physical count for one item.
type RecordCountRequest struct {
	CountedQuantity string `json:"counted_quantity"`
	Notes           string `json:"notes"`
}

// CancelCycleCountRequest cancels a session with a reason.
type CancelCycleCountRequest struct {
	Reason string `json:"reason"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toTransactionDTO(tx ledger.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:              tx.ID,
		ProductID:       tx.ProductID,
		LocationID:      tx.LocationID,
		Type:            string(tx.Type),
		Quantity:        tx.Quantity.String(),
		UnitCost:        tx.UnitCost.String(),
		TotalCost:       tx.TotalCost.String(),
		BalanceAfter:    tx.BalanceAfter.String(),
		BatchNumber:     tx.BatchNumber,
		ExpiryDate:      fmtTimePtr(tx.ExpiryDate),
		ReferenceType:   tx.ReferenceType,
		ReferenceID:     tx.ReferenceID,
		ReferenceNumber: tx.ReferenceNumber,
		Notes:           tx.Notes,
		Status:          string(tx.Status),
		TransactionDate: tx.TransactionDate.Format(time.RFC3339),
		CreatedAt:       tx.CreatedAt.Format(time.RFC3339),
		CreatedBy:       tx.CreatedBy,
	}
}

func toTransactionDTOs(txs []ledger.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, 0, len(txs))
	for _, tx := range txs {
		dtos = append(dtos, toTransactionDTO(tx))
	}
	return dtos
}

func toStockLevelDTO(v inventory.StockView) StockLevelDTO {
	return StockLevelDTO{
		ProductID:         v.ProductID,
		ProductName:       v.ProductName,
		ProductSKU:        v.ProductSKU,
		LocationID:        v.LocationID,
		LocationName:      v.LocationName,
		Quantity:          v.Quantity.String(),
		AverageCost:       v.AverageCost.String(),
		TotalValue:        v.TotalValue.String(),
		LowStockThreshold: v.LowStockThreshold.String(),
		ReorderPoint:      v.ReorderPoint.String(),
		ReorderQuantity:   v.ReorderQuantity.String(),
		IsLowStock:        v.IsLowStock,
		IsOutOfStock:      v.IsOutOfStock,
		LastRestockedAt:   fmtTimePtr(v.LastRestockedAt),
		LastSoldAt:        fmtTimePtr(v.LastSoldAt),
	}
}

func toAlertDTO(a alerts.Alert) AlertDTO {
	return AlertDTO{
		ID:              a.ID,
		ProductID:       a.ProductID,
		LocationID:      a.LocationID,
		Type:            string(a.Type),
		Priority:        string(a.Priority),
		Status:          string(a.Status),
		Message:         a.Message,
		CurrentQuantity: a.CurrentQuantity.String(),
		Threshold:       a.Threshold.String(),
		BatchNumber:     a.BatchNumber,
		ExpiryDate:      fmtTimePtr(a.ExpiryDate),
		TriggeredAt:     a.TriggeredAt.Format(time.RFC3339),
		AcknowledgedAt:  fmtTimePtr(a.AcknowledgedAt),
		ResolvedAt:      fmtTimePtr(a.ResolvedAt),
	}
}

func toReorderNotificationDTO(n alerts.ReorderNotification) ReorderNotificationDTO {
	return ReorderNotificationDTO{
		ID:                n.ID,
		ProductID:         n.ProductID,
		LocationID:        n.LocationID,
		SuggestedQuantity: n.SuggestedQuantity.String(),
		EstimatedCost:     n.EstimatedCost.String(),
		Status:            string(n.Status),
		CreatedAt:         n.CreatedAt.Format(time.RFC3339),
	}
}

func toCycleCountDTO(c counting.Count) CycleCountDTO {
	items := make([]CycleCountItemDTO, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, CycleCountItemDTO{
			ID:              it.ID,
			ProductID:       it.ProductID,
			SystemQuantity:  it.SystemQuantity.String(),
			CountedQuantity: it.CountedQuantity.String(),
			Variance:        it.Variance.String(),
			Status:          string(it.Status),
			Notes:           it.Notes,
			CountedAt:       fmtTimePtr(it.CountedAt),
		})
	}
	return CycleCountDTO{
		ID:                 c.ID,
		Name:               c.Name,
		LocationID:         c.LocationID,
		Status:             string(c.Status),
		Items:              items,
		CountedItems:       c.CountedItems,
		TotalItems:         len(c.Items),
		VarianceCount:      c.VarianceCount,
		ScheduledFor:       fmtTimePtr(c.ScheduledFor),
		StartDate:          fmtTimePtr(c.StartDate),
		EndDate:            fmtTimePtr(c.EndDate),
		CancelReason:       c.CancelReason,
		AdjustmentsApplied: c.AdjustmentsApplied,
		CreatedAt:          c.CreatedAt.Format(time.RFC3339),
		CreatedBy:          c.CreatedBy,
	}
}

func toStatsDTO(s inventory.Stats) StatsDTO {
	return StatsDTO{
		TrackedKeys:     s.TrackedKeys,
		TotalQuantity:   s.TotalQuantity.String(),
		TotalValue:      s.TotalValue.String(),
		LowStockCount:   s.LowStockCount,
		OutOfStockCount: s.OutOfStockCount,
		PendingAlerts:   s.PendingAlerts,
	}
}

func fmtTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
