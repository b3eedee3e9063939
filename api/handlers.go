/*
handlers.go - HTTP API handlers for the inventory engine

PURPOSE:
  Exposes the inventory ledger and projection engine via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Transactions:
    GET    /api/transactions            List transactions (filterable)
    POST   /api/transactions            Append a transaction
    GET    /api/transactions/{id}       Get one transaction
    PATCH  /api/transactions/{id}       Amend non-quantitative fields
    DELETE /api/transactions/{id}       Purge a transaction
    POST   /api/transactions/{id}/cancel Cancel with balance re-snapshot
    POST   /api/adjustments             Signed manual correction

  Stock:
    GET    /api/stock                   List projected stock levels
    GET    /api/stock/{productId}       Stock for one product (+ ?location_id)
    GET    /api/stock/stats             Inventory-wide summary
    PUT    /api/stock/thresholds        Per-key threshold overrides

  Transfers:
    POST   /api/transfers               Atomic two-leg location transfer

  Alerts:
    GET    /api/alerts                  List alerts (filterable)
    POST   /api/alerts/{id}/acknowledge
    POST   /api/alerts/{id}/resolve
    POST   /api/alerts/{id}/dismiss
    POST   /api/alerts/evaluate-expiry  Sweep batches for expiry alerts
    GET    /api/reorders                List reorder notifications
    POST   /api/reorders/{id}/ordered
    POST   /api/reorders/{id}/dismiss

  Cycle counts:
    GET    /api/counts                  List count sessions
    POST   /api/counts                  Create a session
    GET    /api/counts/{id}             Get one session
    POST   /api/counts/{id}/start
    POST   /api/counts/{id}/items/{itemId}  Record a physical count
    POST   /api/counts/{id}/items/{itemId}/verify
    POST   /api/counts/{id}/complete
    POST   /api/counts/{id}/cancel
    POST   /api/counts/{id}/adjustments Apply variances to the ledger

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Insufficient stock, invalid state transition
  - 500: Store failures, internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/inventory-engine/alerts"
	"github.com/warp/inventory-engine/counting"
	"github.com/warp/inventory-engine/inventory"
	"github.com/warp/inventory-engine/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *inventory.Service

	// Thresholds backs the PUT /api/stock/thresholds endpoint. Nil when
	// the service was wired with a non-book threshold source.
	Thresholds *ledger.ThresholdBook
}

// NewHandler creates a new handler around the service.
func NewHandler(svc *inventory.Service, book *ledger.ThresholdBook) *Handler {
	return &Handler{Service: svc, Thresholds: book}
}

// =============================================================================
// TRANSACTION ENDPOINTS
// =============================================================================

// ListTransactions returns the transaction history, newest first.
// GET /api/transactions?product_id=&location_id=&type=&status=&from=&to=&limit=
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	f := ledger.Filter{
		Type:   ledger.TransactionType(r.URL.Query().Get("type")),
		Status: ledger.TransactionStatus(r.URL.Query().Get("status")),
	}
	if v := r.URL.Query().Get("product_id"); v != "" {
		f.ProductID = &v
	}
	if v := r.URL.Query().Get("location_id"); v != "" {
		f.LocationID = &v
	}
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'from' date", err)
			return
		}
		f.From = &t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'to' date", err)
			return
		}
		f.To = &t
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit", err)
			return
		}
		f.Limit = limit
	}

	txs, err := h.Service.ListTransactions(r.Context(), f)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// CreateTransaction appends a new transaction to the ledger.
// POST /api/transactions
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	in, err := toLedgerInput(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction", err)
		return
	}

	tx, err := h.Service.AppendTransaction(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// GetTransaction returns one transaction by ID.
// GET /api/transactions/{id}
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.Service.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

// UpdateTransaction amends descriptive fields of a transaction. Quantities
// and costs are immutable; corrections go through POST /api/adjustments.
// PATCH /api/transactions/{id}
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req UpdateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	patch := ledger.Patch{
		Notes:           req.Notes,
		BatchNumber:     req.BatchNumber,
		ReferenceType:   req.ReferenceType,
		ReferenceID:     req.ReferenceID,
		ReferenceNumber: req.ReferenceNumber,
	}
	if req.ExpiryDate != nil {
		if *req.ExpiryDate == "" {
			patch.ExpiryDate = &time.Time{}
		} else {
			t, err := time.Parse(time.RFC3339, *req.ExpiryDate)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid expiry_date", err)
				return
			}
			patch.ExpiryDate = &t
		}
	}

	tx, err := h.Service.UpdateTransaction(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

// CancelTransaction marks a completed transaction cancelled and re-snapshots
// downstream balances.
// POST /api/transactions/{id}/cancel
func (h *Handler) CancelTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.Service.CancelTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

// DeleteTransaction purges a transaction from the ledger entirely.
// DELETE /api/transactions/{id}
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.PurgeTransaction(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateAdjustment records a signed manual stock correction.
// POST /api/adjustments
func (h *Handler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	var req AdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	delta, err := decimal.NewFromString(req.Delta)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid delta", err)
		return
	}

	tx, err := h.Service.CreateAdjustment(r.Context(), req.ProductID, req.LocationID, delta, req.Reason, req.CreatedBy)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// =============================================================================
// STOCK ENDPOINTS
// =============================================================================

// ListStockLevels returns projected stock for every tracked key.
// GET /api/stock?location_id=&low_stock=true&out_of_stock=true
func (h *Handler) ListStockLevels(w http.ResponseWriter, r *http.Request) {
	f := inventory.StockFilter{
		LowStockOnly: r.URL.Query().Get("low_stock") == "true",
		OutOnly:      r.URL.Query().Get("out_of_stock") == "true",
	}
	if v := r.URL.Query().Get("location_id"); v != "" {
		f.LocationID = &v
	}

	views, err := h.Service.ListStockLevels(r.Context(), f)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]StockLevelDTO, 0, len(views))
	for _, v := range views {
		dtos = append(dtos, toStockLevelDTO(v))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStockLevel returns the projected stock for one product at one location.
// Unknown keys report zero quantity rather than 404.
// GET /api/stock/{productId}?location_id=
func (h *Handler) GetStockLevel(w http.ResponseWriter, r *http.Request) {
	view, err := h.Service.GetStockLevel(r.Context(), chi.URLParam(r, "productId"), r.URL.Query().Get("location_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStockLevelDTO(view))
}

// GetStats returns the inventory-wide summary.
// GET /api/stock/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.GetInventoryStats(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatsDTO(stats))
}

// SetThresholds overrides alerting thresholds for one (product, location).
// PUT /api/stock/thresholds
func (h *Handler) SetThresholds(w http.ResponseWriter, r *http.Request) {
	if h.Thresholds == nil {
		writeError(w, http.StatusBadRequest, "threshold overrides are not enabled", nil)
		return
	}
	var req ThresholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "product_id is required", nil)
		return
	}

	th := ledger.Thresholds{}
	var err error
	if th.LowStock, err = decimal.NewFromString(req.LowStock); err != nil {
		writeError(w, http.StatusBadRequest, "invalid low_stock_threshold", err)
		return
	}
	if th.ReorderPoint, err = decimal.NewFromString(req.ReorderPoint); err != nil {
		writeError(w, http.StatusBadRequest, "invalid reorder_point", err)
		return
	}
	if th.ReorderQuantity, err = decimal.NewFromString(req.ReorderQuantity); err != nil {
		writeError(w, http.StatusBadRequest, "invalid reorder_quantity", err)
		return
	}

	key := ledger.StockKey{ProductID: req.ProductID, LocationID: req.LocationID}
	h.Service.SetThresholds(key, th, h.Thresholds)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// TRANSFER ENDPOINTS
// =============================================================================

// CreateTransfer moves stock between two locations as an atomic pair of
// ledger legs sharing a reference number.
// POST /api/transfers
func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid quantity", err)
		return
	}

	res, err := h.Service.Transfer(r.Context(), req.ProductID, req.FromLocationID, req.ToLocationID, qty, req.Notes, req.CreatedBy)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, TransferDTO{
		ReferenceNumber: res.ReferenceNumber,
		Out:             toTransactionDTO(res.Out),
		In:              toTransactionDTO(res.In),
	})
}

// =============================================================================
// ALERT ENDPOINTS
// =============================================================================

// ListAlerts returns alerts sorted by priority.
// GET /api/alerts?product_id=&location_id=&type=&status=
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	f := alerts.ListFilter{
		ProductID:  r.URL.Query().Get("product_id"),
		LocationID: r.URL.Query().Get("location_id"),
		Type:       alerts.Type(r.URL.Query().Get("type")),
		Status:     alerts.Status(r.URL.Query().Get("status")),
	}
	list := h.Service.ListAlerts(f)
	dtos := make([]AlertDTO, 0, len(list))
	for _, a := range list {
		dtos = append(dtos, toAlertDTO(a))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AcknowledgeAlert transitions a pending alert to acknowledged.
// POST /api/alerts/{id}/acknowledge
func (h *Handler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	h.alertTransition(w, r, h.Service.AcknowledgeAlert)
}

// ResolveAlert transitions an alert to resolved.
// POST /api/alerts/{id}/resolve
func (h *Handler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	h.alertTransition(w, r, h.Service.ResolveAlert)
}

// DismissAlert transitions a pending alert to dismissed.
// POST /api/alerts/{id}/dismiss
func (h *Handler) DismissAlert(w http.ResponseWriter, r *http.Request) {
	h.alertTransition(w, r, h.Service.DismissAlert)
}

func (h *Handler) alertTransition(w http.ResponseWriter, r *http.Request, fn func(string) (alerts.Alert, error)) {
	a, err := fn(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAlertDTO(a))
}

// EvaluateExpiry sweeps batch-tracked stock for expired and expiring lots.
// POST /api/alerts/evaluate-expiry
func (h *Handler) EvaluateExpiry(w http.ResponseWriter, r *http.Request) {
	raised, err := h.Service.EvaluateExpiry(r.Context(), time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]AlertDTO, 0, len(raised))
	for _, a := range raised {
		dtos = append(dtos, toAlertDTO(a))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListReorderNotifications returns suggested purchase orders.
// GET /api/reorders?status=
func (h *Handler) ListReorderNotifications(w http.ResponseWriter, r *http.Request) {
	list := h.Service.ListReorderNotifications(alerts.NotificationStatus(r.URL.Query().Get("status")))
	dtos := make([]ReorderNotificationDTO, 0, len(list))
	for _, n := range list {
		dtos = append(dtos, toReorderNotificationDTO(n))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// MarkReorderOrdered marks a reorder suggestion as acted upon.
// POST /api/reorders/{id}/ordered
func (h *Handler) MarkReorderOrdered(w http.ResponseWriter, r *http.Request) {
	n, err := h.Service.MarkReorderOrdered(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReorderNotificationDTO(n))
}

// DismissReorderNotification drops a reorder suggestion.
// POST /api/reorders/{id}/dismiss
func (h *Handler) DismissReorderNotification(w http.ResponseWriter, r *http.Request) {
	n, err := h.Service.DismissReorderNotification(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReorderNotificationDTO(n))
}

// =============================================================================
// CYCLE COUNT ENDPOINTS
// =============================================================================

// ListCycleCounts returns count sessions, optionally filtered by status.
// GET /api/counts?status=
func (h *Handler) ListCycleCounts(w http.ResponseWriter, r *http.Request) {
	list := h.Service.ListCycleCounts(counting.Status(r.URL.Query().Get("status")))
	dtos := make([]CycleCountDTO, 0, len(list))
	for _, c := range list {
		dtos = append(dtos, toCycleCountDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCycleCount opens a count session snapshotting current stock.
// POST /api/counts
func (h *Handler) CreateCycleCount(w http.ResponseWriter, r *http.Request) {
	var req CreateCycleCountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	in := counting.CreateInput{
		Name:       req.Name,
		LocationID: req.LocationID,
		ProductIDs: req.ProductIDs,
		CreatedBy:  req.CreatedBy,
	}
	if req.ScheduledFor != "" {
		t, err := time.Parse(time.RFC3339, req.ScheduledFor)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid scheduled_for", err)
			return
		}
		in.ScheduledFor = &t
	}

	c, err := h.Service.CreateCycleCount(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCycleCountDTO(c))
}

// GetCycleCount returns one count session.
// GET /api/counts/{id}
func (h *Handler) GetCycleCount(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.GetCycleCount(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCycleCountDTO(c))
}

// StartCycleCount moves a scheduled session to in_progress.
// POST /api/counts/{id}/start
func (h *Handler) StartCycleCount(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.StartCycleCount(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCycleCountDTO(c))
}

// RecordItemCount records a physical count for one item.
// POST /api/counts/{id}/items/{itemId}
func (h *Handler) RecordItemCount(w http.ResponseWriter, r *http.Request) {
	var req RecordCountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	counted, err := decimal.NewFromString(req.CountedQuantity)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid counted_quantity", err)
		return
	}

	c, err := h.Service.RecordItemCount(chi.URLParam(r, "id"), chi.URLParam(r, "itemId"), counted, req.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCycleCountDTO(c))
}

// VerifyItemCount marks a counted item as verified.
// POST /api/counts/{id}/items/{itemId}/verify
func (h *Handler) VerifyItemCount(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.VerifyItemCount(chi.URLParam(r, "id"), chi.URLParam(r, "itemId"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCycleCountDTO(c))
}

// CompleteCycleCount closes a session once every item is counted.
// POST /api/counts/{id}/complete
func (h *Handler) CompleteCycleCount(w http.ResponseWriter, r *http.Request) {
	c, err := h.Service.CompleteCycleCount(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCycleCountDTO(c))
}

// CancelCycleCount abandons a session.
// POST /api/counts/{id}/cancel
func (h *Handler) CancelCycleCount(w http.ResponseWriter, r *http.Request) {
	var req CancelCycleCountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	c, err := h.Service.CancelCycleCount(chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCycleCountDTO(c))
}

// ApplyCycleCountAdjustments writes one adjustment per non-zero variance.
// POST /api/counts/{id}/adjustments
func (h *Handler) ApplyCycleCountAdjustments(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Service.ApplyCycleCountAdjustments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTOs(txs))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain sentinels to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation failed", err)
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found", err)
	case errors.Is(err, ledger.ErrInsufficientStock):
		writeError(w, http.StatusConflict, "insufficient stock", err)
	case errors.Is(err, ledger.ErrInvalidState):
		writeError(w, http.StatusConflict, "invalid state", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}

func toLedgerInput(req CreateTransactionRequest) (ledger.Input, error) {
	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		return ledger.Input{}, &ledger.ValidationError{Field: "quantity", Message: "must be a decimal number"}
	}
	cost := decimal.Zero
	if req.UnitCost != "" {
		if cost, err = decimal.NewFromString(req.UnitCost); err != nil {
			return ledger.Input{}, &ledger.ValidationError{Field: "unit_cost", Message: "must be a decimal number"}
		}
	}

	in := ledger.Input{
		ProductID:       req.ProductID,
		LocationID:      req.LocationID,
		Type:            ledger.TransactionType(req.Type),
		Quantity:        qty,
		UnitCost:        cost,
		BatchNumber:     req.BatchNumber,
		ReferenceType:   req.ReferenceType,
		ReferenceID:     req.ReferenceID,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
		CreatedBy:       req.CreatedBy,
	}
	if req.ExpiryDate != "" {
		t, err := time.Parse(time.RFC3339, req.ExpiryDate)
		if err != nil {
			return ledger.Input{}, &ledger.ValidationError{Field: "expiry_date", Message: "must be RFC3339"}
		}
		in.ExpiryDate = &t
	}
	if req.TransactionDate != "" {
		t, err := time.Parse(time.RFC3339, req.TransactionDate)
		if err != nil {
			return ledger.Input{}, &ledger.ValidationError{Field: "transaction_date", Message: "must be RFC3339"}
		}
		in.TransactionDate = t
	}
	return in, nil
}
