/*
transfer.go - Inter-location transfer coordinator

PURPOSE:
  Creates the matched transfer_out/transfer_in pair for moving stock
  between locations. Both legs share one reference number and the source's
  current average cost, and are applied by Ledger.AppendPair under a
  critical section spanning both keys: either both legs are visible to
  readers, or neither is (a failed destination leg triggers a compensating
  cancellation of the source leg).
*/
package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/inventory-engine/ledger"
)

// TransferResult is the outcome of a successful transfer.
type TransferResult struct {
	Out             ledger.Transaction
	In              ledger.Transaction
	ReferenceNumber string
}

// TransferCoordinator moves stock between locations atomically.
type TransferCoordinator struct {
	ledger    *ledger.Ledger
	projector *ledger.Projector
}

func NewTransferCoordinator(l *ledger.Ledger, p *ledger.Projector) *TransferCoordinator {
	return &TransferCoordinator{ledger: l, projector: p}
}

// Transfer moves quantity units of a product from one location to another.
func (c *TransferCoordinator) Transfer(ctx context.Context, productID, fromLocationID, toLocationID string, quantity decimal.Decimal, notes, actor string) (*TransferResult, error) {
	if productID == "" {
		return nil, &ledger.ValidationError{Field: "productId", Message: "is required"}
	}
	if fromLocationID == toLocationID {
		return nil, &ledger.ValidationError{Field: "toLocationId", Message: "must differ from the source location"}
	}
	if !quantity.IsPositive() {
		return nil, &ledger.ValidationError{Field: "quantity", Message: "must be positive"}
	}

	source, err := c.projector.Project(ctx, ledger.StockKey{ProductID: productID, LocationID: fromLocationID})
	if err != nil {
		return nil, fmt.Errorf("project source stock: %w", err)
	}
	if source.Quantity.LessThan(quantity) {
		return nil, &ledger.InsufficientStockError{
			ProductID:  productID,
			LocationID: fromLocationID,
			Available:  source.Quantity,
			Requested:  quantity,
		}
	}

	// Both legs move at the source's average cost so value is conserved
	// across locations.
	ref := referenceNumber()
	out := ledger.Input{
		ProductID:       productID,
		LocationID:      fromLocationID,
		Type:            ledger.TxTransferOut,
		Quantity:        quantity,
		UnitCost:        source.AverageCost,
		ReferenceType:   "transfer",
		ReferenceNumber: ref,
		Notes:           notes,
		CreatedBy:       actor,
	}
	in := ledger.Input{
		ProductID:       productID,
		LocationID:      toLocationID,
		Type:            ledger.TxTransferIn,
		Quantity:        quantity,
		UnitCost:        source.AverageCost,
		ReferenceType:   "transfer",
		ReferenceNumber: ref,
		Notes:           notes,
		CreatedBy:       actor,
	}

	outTx, inTx, err := c.ledger.AppendPair(ctx, out, in)
	if err != nil {
		return nil, err
	}
	return &TransferResult{Out: outTx, In: inTx, ReferenceNumber: ref}, nil
}

func referenceNumber() string {
	return "TRF-" + strings.ToUpper(uuid.NewString()[:8])
}
