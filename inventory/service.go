/*
Package inventory wires the ledger, projection engine, alert engine,
transfer coordinator, and cycle count workflow behind one command/query
service - the surface the presentation layer consumes.

PROPAGATION POLICY:
  Domain errors from a mutating command are returned synchronously and
  nothing is partially applied. Alert evaluation triggered by a successful
  mutation is best-effort: the transaction is the durable fact, so an
  evaluation failure is logged as a warning and never rolls the mutation
  back.

DISPLAY FIELDS:
  Product and location names come from the external Directory. When it is
  unavailable the service falls back to raw identifiers - a missing
  catalog must never make stock queries fail.
*/
package inventory

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/inventory-engine/alerts"
	"github.com/warp/inventory-engine/counting"
	"github.com/warp/inventory-engine/ledger"
	"github.com/warp/inventory-engine/metrics"
)

var errUnknownEntry = errors.New("unknown directory entry")

// =============================================================================
// SERVICE
// =============================================================================

// Service is the transport-agnostic command/query interface of the engine.
type Service struct {
	ledger    *ledger.Ledger
	projector *ledger.Projector
	alerts    *alerts.Engine
	counts    *counting.Workflow
	transfers *TransferCoordinator

	dir     Directory
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// Config assembles a Service. Store and Thresholds are required; everything
// else has a working default.
type Config struct {
	Store      ledger.Store
	Thresholds ledger.ThresholdSource
	Notifier   alerts.Notifier
	Directory  Directory
	Logger     zerolog.Logger
	Metrics    *metrics.Metrics

	ExpiryWindowDays int
}

// NewService wires the engine together: the projector subscribes to ledger
// mutations so its cache is invalidated synchronously, and the alert engine
// consumes projections after every mutating command.
func NewService(cfg Config) *Service {
	led := ledger.New(cfg.Store)
	proj := ledger.NewProjector(cfg.Store, cfg.Thresholds)
	led.OnMutation(proj.Invalidate)

	alertEngine := alerts.NewEngine(alerts.Config{
		Notifier:         cfg.Notifier,
		ExpiryWindowDays: cfg.ExpiryWindowDays,
	})

	return &Service{
		ledger:    led,
		projector: proj,
		alerts:    alertEngine,
		counts:    counting.NewWorkflow(proj, led),
		transfers: NewTransferCoordinator(led, proj),
		dir:       cfg.Directory,
		log:       cfg.Logger,
		metrics:   cfg.Metrics,
	}
}

// =============================================================================
// TRANSACTION COMMANDS
// =============================================================================

// AppendTransaction records a stock movement and re-evaluates alerts for
// the affected key.
func (s *Service) AppendTransaction(ctx context.Context, in ledger.Input) (ledger.Transaction, error) {
	tx, err := s.ledger.Append(ctx, in)
	if err != nil {
		s.recordRejection(err)
		return ledger.Transaction{}, err
	}
	s.metrics.RecordAppend(string(tx.Type))
	s.evaluateAfterMutation(ctx, tx.Key())
	return tx, nil
}

// CreateAdjustment records a signed stock correction. This is the sanctioned
// path for fixing quantities; quantitative edits of past transactions are
// rejected by UpdateTransaction.
func (s *Service) CreateAdjustment(ctx context.Context, productID, locationID string, delta decimal.Decimal, reason, actor string) (ledger.Transaction, error) {
	return s.AppendTransaction(ctx, ledger.Input{
		ProductID:  productID,
		LocationID: locationID,
		Type:       ledger.TxAdjustment,
		Quantity:   delta,
		Notes:      reason,
		CreatedBy:  actor,
	})
}

// CancelTransaction excludes a completed transaction from all projections
// while keeping the record for audit.
func (s *Service) CancelTransaction(ctx context.Context, id string) (ledger.Transaction, error) {
	tx, err := s.ledger.Cancel(ctx, id)
	if err != nil {
		s.recordRejection(err)
		return ledger.Transaction{}, err
	}
	s.evaluateAfterMutation(ctx, tx.Key())
	return tx, nil
}

// UpdateTransaction amends non-quantitative fields.
func (s *Service) UpdateTransaction(ctx context.Context, id string, patch ledger.Patch) (ledger.Transaction, error) {
	tx, err := s.ledger.Update(ctx, id, patch)
	if err != nil {
		s.recordRejection(err)
		return ledger.Transaction{}, err
	}
	return tx, nil
}

// PurgeTransaction hard-deletes a transaction. Discouraged; prefer
// CancelTransaction, which preserves history.
func (s *Service) PurgeTransaction(ctx context.Context, id string) error {
	tx, err := s.ledger.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.ledger.Purge(ctx, id); err != nil {
		s.recordRejection(err)
		return err
	}
	s.evaluateAfterMutation(ctx, tx.Key())
	return nil
}

// Transfer moves stock between locations as one atomic pair of ledger
// entries.
func (s *Service) Transfer(ctx context.Context, productID, fromLocationID, toLocationID string, quantity decimal.Decimal, notes, actor string) (*TransferResult, error) {
	result, err := s.transfers.Transfer(ctx, productID, fromLocationID, toLocationID, quantity, notes, actor)
	if err != nil {
		s.recordRejection(err)
		return nil, err
	}
	s.metrics.RecordTransfer()
	s.evaluateAfterMutation(ctx, result.Out.Key())
	s.evaluateAfterMutation(ctx, result.In.Key())
	return result, nil
}

// =============================================================================
// CYCLE COUNT COMMANDS
// =============================================================================

func (s *Service) CreateCycleCount(ctx context.Context, in counting.CreateInput) (counting.Count, error) {
	return s.counts.Create(ctx, in)
}

func (s *Service) StartCycleCount(id string) (counting.Count, error) {
	return s.counts.Start(id)
}

func (s *Service) RecordItemCount(id, itemID string, counted decimal.Decimal, notes string) (counting.Count, error) {
	return s.counts.RecordCount(id, itemID, counted, notes)
}

func (s *Service) VerifyItemCount(id, itemID string) (counting.Count, error) {
	return s.counts.VerifyItem(id, itemID)
}

func (s *Service) CompleteCycleCount(id string) (counting.Count, error) {
	return s.counts.Complete(id)
}

func (s *Service) CancelCycleCount(id, reason string) (counting.Count, error) {
	return s.counts.Cancel(id, reason)
}

// ApplyCycleCountAdjustments pushes every non-zero variance of a completed
// count into the ledger as adjustment transactions, then re-evaluates the
// touched keys.
func (s *Service) ApplyCycleCountAdjustments(ctx context.Context, id string) ([]ledger.Transaction, error) {
	txs, err := s.counts.ApplyAdjustments(ctx, id)
	if err != nil {
		s.recordRejection(err)
		return txs, err
	}
	for _, tx := range txs {
		s.metrics.RecordAppend(string(tx.Type))
		s.evaluateAfterMutation(ctx, tx.Key())
	}
	return txs, nil
}

// =============================================================================
// ALERT COMMANDS
// =============================================================================

func (s *Service) AcknowledgeAlert(id string) (alerts.Alert, error) { return s.alerts.Acknowledge(id) }
func (s *Service) ResolveAlert(id string) (alerts.Alert, error)     { return s.alerts.Resolve(id) }
func (s *Service) DismissAlert(id string) (alerts.Alert, error)     { return s.alerts.Dismiss(id) }

func (s *Service) MarkReorderOrdered(id string) (alerts.ReorderNotification, error) {
	return s.alerts.MarkOrdered(id)
}

func (s *Service) DismissReorderNotification(id string) (alerts.ReorderNotification, error) {
	return s.alerts.DismissNotification(id)
}

// EvaluateExpiry scans the ledger for batches nearing or past expiry, as of
// the given time. Typically invoked periodically by the host process.
func (s *Service) EvaluateExpiry(ctx context.Context, asOf time.Time) ([]alerts.Alert, error) {
	txs, err := s.ledger.List(ctx, ledger.Filter{Status: ledger.StatusCompleted})
	if err != nil {
		return nil, err
	}
	raised := s.alerts.EvaluateExpiry(txs, asOf)
	for _, a := range raised {
		s.metrics.RecordAlert(string(a.Type), string(a.Priority))
	}
	return raised, nil
}

// =============================================================================
// QUERIES
// =============================================================================

// StockView is a StockLevel decorated with directory display fields.
type StockView struct {
	ledger.StockLevel
	ProductName  string
	ProductSKU   string
	LocationName string
}

// GetStockLevel returns the projected stock for one (product, location).
// Unknown keys return a zero-value level with IsOutOfStock set.
func (s *Service) GetStockLevel(ctx context.Context, productID, locationID string) (StockView, error) {
	level, err := s.projector.Project(ctx, ledger.StockKey{ProductID: productID, LocationID: locationID})
	if err != nil {
		return StockView{}, err
	}
	return s.decorate(ctx, level), nil
}

// StockFilter narrows ListStockLevels.
type StockFilter struct {
	LocationID   *string
	LowStockOnly bool
	OutOnly      bool
}

// ListStockLevels projects every known key, filtered and sorted by product.
func (s *Service) ListStockLevels(ctx context.Context, f StockFilter) ([]StockView, error) {
	levels, err := s.projector.ProjectAll(ctx)
	if err != nil {
		return nil, err
	}

	var result []StockView
	for _, level := range levels {
		if f.LocationID != nil && level.LocationID != *f.LocationID {
			continue
		}
		if f.LowStockOnly && !level.IsLowStock {
			continue
		}
		if f.OutOnly && !level.IsOutOfStock {
			continue
		}
		result = append(result, s.decorate(ctx, level))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ProductID != result[j].ProductID {
			return result[i].ProductID < result[j].ProductID
		}
		return result[i].LocationID < result[j].LocationID
	})
	return result, nil
}

// ListTransactions lists ledger entries, newest first.
func (s *Service) ListTransactions(ctx context.Context, f ledger.Filter) ([]ledger.Transaction, error) {
	return s.ledger.List(ctx, f)
}

// GetTransaction returns one ledger entry.
func (s *Service) GetTransaction(ctx context.Context, id string) (ledger.Transaction, error) {
	return s.ledger.Get(ctx, id)
}

// Stats summarizes the whole inventory.
type Stats struct {
	TrackedKeys     int
	TotalQuantity   decimal.Decimal
	TotalValue      decimal.Decimal
	LowStockCount   int
	OutOfStockCount int
	PendingAlerts   int
}

// GetInventoryStats folds every projection into one summary.
func (s *Service) GetInventoryStats(ctx context.Context) (Stats, error) {
	levels, err := s.projector.ProjectAll(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		TrackedKeys:   len(levels),
		TotalQuantity: decimal.Zero,
		TotalValue:    decimal.Zero,
	}
	for _, level := range levels {
		stats.TotalQuantity = stats.TotalQuantity.Add(level.Quantity)
		stats.TotalValue = stats.TotalValue.Add(level.TotalValue)
		if level.IsLowStock {
			stats.LowStockCount++
		}
		if level.IsOutOfStock {
			stats.OutOfStockCount++
		}
	}
	stats.PendingAlerts = len(s.alerts.List(alerts.ListFilter{Status: alerts.StatusPending}))
	return stats, nil
}

// ListAlerts returns alerts sorted by priority then recency.
func (s *Service) ListAlerts(f alerts.ListFilter) []alerts.Alert {
	return s.alerts.List(f)
}

// ListReorderNotifications returns reorder suggestions.
func (s *Service) ListReorderNotifications(status alerts.NotificationStatus) []alerts.ReorderNotification {
	return s.alerts.Notifications(status)
}

func (s *Service) GetCycleCount(id string) (counting.Count, error) {
	return s.counts.Get(id)
}

func (s *Service) ListCycleCounts(status counting.Status) []counting.Count {
	return s.counts.List(status)
}

// SetThresholds overrides threshold configuration for one key when backed by
// a ThresholdBook.
func (s *Service) SetThresholds(key ledger.StockKey, th ledger.Thresholds, book *ledger.ThresholdBook) {
	book.Set(key, th)
	s.projector.Invalidate(key)
}

// =============================================================================
// INTERNALS
// =============================================================================

// evaluateAfterMutation re-projects the key and feeds the alert engine.
// Best-effort: failures are warnings, never rollbacks of the mutation that
// triggered them.
func (s *Service) evaluateAfterMutation(ctx context.Context, key ledger.StockKey) {
	started := time.Now()
	level, err := s.projector.Project(ctx, key)
	s.metrics.ObserveProjection(time.Since(started))
	if err != nil {
		s.log.Warn().Err(err).Stringer("key", key).Msg("post-mutation projection failed; alerts may lag")
		return
	}
	for _, a := range s.alerts.Evaluate([]ledger.StockLevel{level}) {
		s.metrics.RecordAlert(string(a.Type), string(a.Priority))
	}
}

func (s *Service) recordRejection(err error) {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		s.metrics.RecordRejection("validation")
	case errors.Is(err, ledger.ErrInsufficientStock):
		s.metrics.RecordRejection("insufficient_stock")
	case errors.Is(err, ledger.ErrInvalidState):
		s.metrics.RecordRejection("invalid_state")
	case errors.Is(err, ledger.ErrNotFound):
		s.metrics.RecordRejection("not_found")
	default:
		s.metrics.RecordRejection("internal")
	}
}

// decorate attaches directory display names, falling back to raw ids when
// the directory is missing or cannot resolve them.
func (s *Service) decorate(ctx context.Context, level ledger.StockLevel) StockView {
	view := StockView{
		StockLevel:   level,
		ProductName:  level.ProductID,
		ProductSKU:   level.ProductID,
		LocationName: level.LocationID,
	}
	if s.dir == nil {
		return view
	}
	if info, err := s.dir.Product(ctx, level.ProductID); err == nil {
		if info.Name != "" {
			view.ProductName = info.Name
		}
		if info.SKU != "" {
			view.ProductSKU = info.SKU
		}
	}
	if level.LocationID != "" {
		if name, err := s.dir.Location(ctx, level.LocationID); err == nil && name != "" {
			view.LocationName = name
		}
	}
	return view
}
