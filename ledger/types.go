/*
Package ledger provides the core inventory ledger engine.

PURPOSE:
  This package contains the domain types and algorithms for tracking stock
  movements as an append-only transaction log. Current stock balances,
  average costs, and stock values are never stored authoritatively - they
  are derived by folding the ledger (see projection.go).

KEY CONCEPTS IN THIS FILE (types.go):
  - TransactionType: classified as stock-in, stock-out, or signed
  - Transaction: An immutable ledger entry recording a stock movement
  - StockKey: The (product, location) pair every balance is scoped to
  - Input/Patch/Filter: Command and query parameter structs

DESIGN PRINCIPLES:
  1. Immutability: Completed transactions are never edited in their
     quantitative fields; corrections flow through adjustment transactions
  2. Precision: Uses decimal.Decimal to avoid floating-point errors in
     quantities and costs
  3. Explicit state: Statuses are typed enums with central transition
     tables, not free-form strings

SEE ALSO:
  - ledger.go: Append/cancel/amend operations and per-key serialization
  - projection.go: StockLevel derivation
  - errors.go: Error taxonomy
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TRANSACTION TYPE - Determines balance polarity
// =============================================================================

type TransactionType string

const (
	TxPurchase    TransactionType = "purchase"
	TxSale        TransactionType = "sale"
	TxAdjustment  TransactionType = "adjustment"
	TxReturn      TransactionType = "return"
	TxDamage      TransactionType = "damage"
	TxWriteOff    TransactionType = "write_off"
	TxTransferIn  TransactionType = "transfer_in"
	TxTransferOut TransactionType = "transfer_out"
	TxProduction  TransactionType = "production"
	TxConsumption TransactionType = "consumption"
)

// Direction classifies how a transaction type moves the balance.
type Direction int

const (
	// StockIn adds the quantity to the balance.
	StockIn Direction = iota
	// StockOut subtracts the quantity and is gated by the sufficiency check.
	StockOut
	// Signed applies the quantity as-is (positive or negative) and bypasses
	// the sufficiency check. Only adjustments are signed: they represent
	// corrections, including corrections below zero.
	Signed
)

// Direction returns the balance polarity for the type.
func (t TransactionType) Direction() Direction {
	switch t {
	case TxPurchase, TxReturn, TxTransferIn, TxProduction:
		return StockIn
	case TxSale, TxDamage, TxWriteOff, TxTransferOut, TxConsumption:
		return StockOut
	default:
		return Signed
	}
}

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TxPurchase, TxSale, TxAdjustment, TxReturn, TxDamage,
		TxWriteOff, TxTransferIn, TxTransferOut, TxProduction, TxConsumption:
		return true
	}
	return false
}

// =============================================================================
// TRANSACTION STATUS - Typed enum with a central transition table
// =============================================================================

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusCancelled TransactionStatus = "cancelled"
)

// statusTransitions is the only place status transitions are defined.
// Completed transactions may be cancelled; nothing else moves.
var statusTransitions = map[TransactionStatus][]TransactionStatus{
	StatusPending:   {StatusCompleted, StatusCancelled},
	StatusCompleted: {StatusCancelled},
	StatusCancelled: {},
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to TransactionStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// =============================================================================
// STOCK KEY - Every balance is scoped to (product, location)
// =============================================================================

// StockKey identifies a stock balance. An empty LocationID means the
// default (unscoped) location.
type StockKey struct {
	ProductID  string
	LocationID string
}

func (k StockKey) String() string {
	if k.LocationID == "" {
		return k.ProductID
	}
	return k.ProductID + "@" + k.LocationID
}

// =============================================================================
// TRANSACTION - Immutable record of a single stock movement
// =============================================================================

// Transaction is a single entry in the inventory ledger.
//
// Once completed, only the status (to cancelled) and the non-quantitative
// fields (notes, batch, reference) may change. Quantity, cost, and type are
// frozen; corrections are made with adjustment transactions.
type Transaction struct {
	ID         string
	ProductID  string
	LocationID string // "" = default location

	Type TransactionType

	// Quantity is a non-negative magnitude; the sign is implied by the
	// type's Direction. For adjustments it is the signed delta.
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
	// TotalCost = Quantity x UnitCost (signed for adjustments).
	TotalCost decimal.Decimal

	// BalanceAfter is the stock quantity for (ProductID, LocationID)
	// immediately after this transaction, snapshotted at creation.
	// INVARIANT: replaying all completed transactions for the key in
	// TransactionDate order reproduces every BalanceAfter.
	BalanceAfter decimal.Decimal

	// Batch / lot tracking (optional).
	BatchNumber string
	ExpiryDate  *time.Time

	// Link to the originating document, e.g. a transfer group.
	ReferenceType   string
	ReferenceID     string
	ReferenceNumber string

	Notes  string
	Status TransactionStatus

	TransactionDate time.Time
	CreatedAt       time.Time
	CreatedBy       string
}

// Key returns the stock key this transaction belongs to.
func (t Transaction) Key() StockKey {
	return StockKey{ProductID: t.ProductID, LocationID: t.LocationID}
}

// =============================================================================
// COMMAND / QUERY PARAMETERS
// =============================================================================

// Input carries the caller-supplied fields for Append.
type Input struct {
	ProductID  string
	LocationID string

	Type     TransactionType
	Quantity decimal.Decimal
	UnitCost decimal.Decimal

	BatchNumber string
	ExpiryDate  *time.Time

	ReferenceType   string
	ReferenceID     string
	ReferenceNumber string

	Notes string

	// TransactionDate defaults to now when zero.
	TransactionDate time.Time
	CreatedBy       string
}

// Patch carries the amendable, non-quantitative fields for Update.
// Quantitative corrections go through adjustment transactions instead;
// there are deliberately no quantity/cost/type fields here.
type Patch struct {
	Notes           *string
	BatchNumber     *string
	ExpiryDate      *time.Time
	ReferenceType   *string
	ReferenceID     *string
	ReferenceNumber *string
}

// Filter selects transactions for listing. Nil pointer fields match all.
type Filter struct {
	ProductID  *string
	LocationID *string
	Type       TransactionType   // "" matches all
	Status     TransactionStatus // "" matches all
	From       *time.Time
	To         *time.Time
	Limit      int // 0 = no limit
}

// Matches reports whether tx passes the filter (ignoring Limit).
func (f Filter) Matches(tx Transaction) bool {
	if f.ProductID != nil && tx.ProductID != *f.ProductID {
		return false
	}
	if f.LocationID != nil && tx.LocationID != *f.LocationID {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.Status != "" && tx.Status != f.Status {
		return false
	}
	if f.From != nil && tx.TransactionDate.Before(*f.From) {
		return false
	}
	if f.To != nil && tx.TransactionDate.After(*f.To) {
		return false
	}
	return true
}
