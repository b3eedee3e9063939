/*
ledger.go - Append-only inventory ledger with per-key serialization

PURPOSE:
  The Ledger is the single source of truth for stock. Every purchase,
  sale, transfer leg, and correction is recorded here; balances are
  always derived by replaying the log (projection.go), never stored
  independently.

CRITICAL INVARIANTS:
  1. BALANCE CHAIN: For any (product, location), replaying all completed
     transactions in date order reproduces each recorded BalanceAfter.
  2. NON-NEGATIVITY: No sequence of valid appends produces a negative
     balance. Stock-outs that would are rejected with InsufficientStock
     and leave state unchanged.
  3. PER-KEY SERIALIZATION: Mutations on the same key never interleave.
     Distinct keys proceed in parallel.
  4. TRANSFER ATOMICITY: The two legs of a transfer are applied in one
     critical section spanning both keys; readers never observe a lone
     source decrement (AppendPair compensates on failure).

CORRECTIONS:
  Completed transactions are never edited quantitatively. Mistakes are
  fixed with an adjustment transaction (signed delta) or by cancelling,
  both of which keep the full audit trail. Purge exists as an explicit,
  clearly-labeled escape hatch and re-snapshots the balance chain it
  breaks.

SEE ALSO:
  - projection.go: Deriving StockLevel from the log
  - store.go: Persistence contract
  - inventory/transfer.go: The transfer coordinator built on AppendPair
*/
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// KEY LOCKS - Per-key critical sections
// =============================================================================

// keyLocks hands out one mutex per stock key. Locks are never released back;
// the set of active keys is small and bounded by the catalog.
type keyLocks struct {
	mu    sync.Mutex
	locks map[StockKey]*sync.Mutex
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[StockKey]*sync.Mutex)}
}

func (kl *keyLocks) get(key StockKey) *sync.Mutex {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	m, ok := kl.locks[key]
	if !ok {
		m = &sync.Mutex{}
		kl.locks[key] = m
	}
	return m
}

// lock acquires the key's mutex and returns the unlock func.
func (kl *keyLocks) lock(key StockKey) func() {
	m := kl.get(key)
	m.Lock()
	return m.Unlock
}

// lockPair acquires both keys in a deterministic order to avoid deadlock
// between concurrent transfers going opposite directions.
func (kl *keyLocks) lockPair(a, b StockKey) func() {
	if a == b {
		return kl.lock(a)
	}
	first, second := a, b
	if second.String() < first.String() {
		first, second = second, first
	}
	m1, m2 := kl.get(first), kl.get(second)
	m1.Lock()
	m2.Lock()
	return func() {
		m2.Unlock()
		m1.Unlock()
	}
}

// =============================================================================
// LEDGER
// =============================================================================

// Ledger coordinates all mutations of the transaction log.
type Ledger struct {
	store Store
	locks *keyLocks

	hookMu sync.RWMutex
	hooks  []func(StockKey)

	now func() time.Time
}

// New creates a ledger backed by the given store.
func New(store Store) *Ledger {
	return &Ledger{
		store: store,
		locks: newKeyLocks(),
		now:   time.Now,
	}
}

// OnMutation registers fn to be called synchronously after every successful
// mutation of a key. The projector uses this to invalidate its cache before
// the mutating call returns, so reads are never stale.
func (l *Ledger) OnMutation(fn func(StockKey)) {
	l.hookMu.Lock()
	defer l.hookMu.Unlock()
	l.hooks = append(l.hooks, fn)
}

func (l *Ledger) notify(key StockKey) {
	l.hookMu.RLock()
	hooks := l.hooks
	l.hookMu.RUnlock()
	for _, fn := range hooks {
		fn(key)
	}
}

// =============================================================================
// APPEND
// =============================================================================

// Append validates the input, snapshots the resulting balance, and persists
// a completed transaction. Stock-outs that would drive the balance negative
// fail with InsufficientStockError and leave state unchanged.
func (l *Ledger) Append(ctx context.Context, in Input) (Transaction, error) {
	if err := validateInput(in); err != nil {
		return Transaction{}, err
	}

	key := StockKey{ProductID: in.ProductID, LocationID: in.LocationID}
	unlock := l.locks.lock(key)
	defer unlock()

	tx, err := l.appendLocked(ctx, in)
	if err != nil {
		return Transaction{}, err
	}
	l.notify(key)
	return tx, nil
}

// appendLocked does the work of Append. The caller must hold the key lock.
func (l *Ledger) appendLocked(ctx context.Context, in Input) (Transaction, error) {
	key := StockKey{ProductID: in.ProductID, LocationID: in.LocationID}

	current, err := l.balanceLocked(ctx, key)
	if err != nil {
		return Transaction{}, err
	}

	delta := signedDelta(in.Type, in.Quantity)
	after := current.Add(delta)

	// Stock-ins can never produce a negative balance, so this also
	// catches signed adjustments whose delta exceeds the stock on hand.
	if after.IsNegative() {
		return Transaction{}, &InsufficientStockError{
			ProductID:  in.ProductID,
			LocationID: in.LocationID,
			Available:  current,
			Requested:  in.Quantity.Abs(),
		}
	}

	now := l.now().UTC()
	txDate := in.TransactionDate
	if txDate.IsZero() {
		txDate = now
	}

	tx := Transaction{
		ID:              uuid.NewString(),
		ProductID:       in.ProductID,
		LocationID:      in.LocationID,
		Type:            in.Type,
		Quantity:        in.Quantity,
		UnitCost:        in.UnitCost,
		// Quantity is already signed for adjustments, so this yields the
		// signed cost delta there and the plain magnitude everywhere else.
		TotalCost:       in.Quantity.Mul(in.UnitCost),
		BalanceAfter:    after,
		BatchNumber:     in.BatchNumber,
		ExpiryDate:      in.ExpiryDate,
		ReferenceType:   in.ReferenceType,
		ReferenceID:     in.ReferenceID,
		ReferenceNumber: in.ReferenceNumber,
		Notes:           in.Notes,
		Status:          StatusCompleted,
		TransactionDate: txDate,
		CreatedAt:       now,
		CreatedBy:       in.CreatedBy,
	}

	if err := l.store.Append(ctx, tx); err != nil {
		return Transaction{}, fmt.Errorf("append transaction: %w", err)
	}
	return tx, nil
}

// AppendPair appends two transactions as one atomic unit under a critical
// section spanning both keys. This backs inter-location transfers: if the
// second append fails, the first is rolled back with a compensating
// cancellation before the error is returned, so readers never observe a
// lone leg.
func (l *Ledger) AppendPair(ctx context.Context, out, in Input) (Transaction, Transaction, error) {
	if err := validateInput(out); err != nil {
		return Transaction{}, Transaction{}, err
	}
	if err := validateInput(in); err != nil {
		return Transaction{}, Transaction{}, err
	}

	outKey := StockKey{ProductID: out.ProductID, LocationID: out.LocationID}
	inKey := StockKey{ProductID: in.ProductID, LocationID: in.LocationID}
	unlock := l.locks.lockPair(outKey, inKey)
	defer unlock()

	outTx, err := l.appendLocked(ctx, out)
	if err != nil {
		return Transaction{}, Transaction{}, err
	}

	inTx, err := l.appendLocked(ctx, in)
	if err != nil {
		// Compensate: cancel the source leg so no reader ever sees a
		// one-sided transfer. Best effort - if even the compensation
		// fails we still surface the original error.
		if cErr := l.store.SetStatus(ctx, outTx.ID, StatusCancelled); cErr != nil {
			return Transaction{}, Transaction{}, fmt.Errorf("append pair: %w (compensation also failed: %v)", err, cErr)
		}
		return Transaction{}, Transaction{}, err
	}

	l.notify(outKey)
	l.notify(inKey)
	return outTx, inTx, nil
}

// =============================================================================
// CANCEL / UPDATE / PURGE
// =============================================================================

// Cancel flips a completed transaction to cancelled. The record stays in the
// log; folds simply exclude it. The key's balance chain is re-snapshotted so
// later transactions keep satisfying the balance invariant.
func (l *Ledger) Cancel(ctx context.Context, id string) (Transaction, error) {
	tx, err := l.store.Get(ctx, id)
	if err != nil {
		return Transaction{}, err
	}

	key := tx.Key()
	unlock := l.locks.lock(key)
	defer unlock()

	// Re-read under the lock: status may have changed.
	tx, err = l.store.Get(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	if !CanTransition(tx.Status, StatusCancelled) {
		return Transaction{}, &InvalidStateError{
			Entity:    "transaction",
			ID:        id,
			State:     string(tx.Status),
			Operation: "cancel",
		}
	}

	if err := l.checkReplayLocked(ctx, key, id); err != nil {
		return Transaction{}, err
	}

	if err := l.store.SetStatus(ctx, id, StatusCancelled); err != nil {
		return Transaction{}, fmt.Errorf("cancel transaction: %w", err)
	}
	if err := l.resnapshotLocked(ctx, key); err != nil {
		return Transaction{}, err
	}

	tx.Status = StatusCancelled
	l.notify(key)
	return tx, nil
}

// Update amends the non-quantitative fields of a transaction. Quantity,
// cost, and type are immutable once recorded; corrections flow through
// adjustment transactions so the audit trail stays intact.
func (l *Ledger) Update(ctx context.Context, id string, patch Patch) (Transaction, error) {
	tx, err := l.store.Get(ctx, id)
	if err != nil {
		return Transaction{}, err
	}

	key := tx.Key()
	unlock := l.locks.lock(key)
	defer unlock()

	tx, err = l.store.Get(ctx, id)
	if err != nil {
		return Transaction{}, err
	}

	if patch.Notes != nil {
		tx.Notes = *patch.Notes
	}
	if patch.BatchNumber != nil {
		tx.BatchNumber = *patch.BatchNumber
	}
	if patch.ExpiryDate != nil {
		// Zero time clears the expiry.
		if patch.ExpiryDate.IsZero() {
			tx.ExpiryDate = nil
		} else {
			d := *patch.ExpiryDate
			tx.ExpiryDate = &d
		}
	}
	if patch.ReferenceType != nil {
		tx.ReferenceType = *patch.ReferenceType
	}
	if patch.ReferenceID != nil {
		tx.ReferenceID = *patch.ReferenceID
	}
	if patch.ReferenceNumber != nil {
		tx.ReferenceNumber = *patch.ReferenceNumber
	}

	if err := l.store.Amend(ctx, tx); err != nil {
		return Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	l.notify(key)
	return tx, nil
}

// Purge hard-deletes a transaction. This is the only operation that removes
// completed history and is deliberately named to stand out from Cancel.
// The gap it leaves invalidates later BalanceAfter snapshots, so the whole
// key is re-snapshotted afterwards.
func (l *Ledger) Purge(ctx context.Context, id string) error {
	tx, err := l.store.Get(ctx, id)
	if err != nil {
		return err
	}

	key := tx.Key()
	unlock := l.locks.lock(key)
	defer unlock()

	if err := l.checkReplayLocked(ctx, key, id); err != nil {
		return err
	}

	if err := l.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("purge transaction: %w", err)
	}
	if err := l.resnapshotLocked(ctx, key); err != nil {
		return err
	}
	l.notify(key)
	return nil
}

// =============================================================================
// READS
// =============================================================================

// Get returns a single transaction by id.
func (l *Ledger) Get(ctx context.Context, id string) (Transaction, error) {
	return l.store.Get(ctx, id)
}

// List returns transactions matching the filter, newest first.
func (l *Ledger) List(ctx context.Context, f Filter) ([]Transaction, error) {
	return l.store.List(ctx, f)
}

// =============================================================================
// INTERNALS
// =============================================================================

// balanceLocked folds the current completed balance for the key.
// The caller must hold the key lock.
func (l *Ledger) balanceLocked(ctx context.Context, key StockKey) (decimal.Decimal, error) {
	txs, err := l.store.Load(ctx, key)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load ledger for %s: %w", key, err)
	}
	balance := decimal.Zero
	for _, tx := range txs {
		if tx.Status != StatusCompleted {
			continue
		}
		balance = balance.Add(signedDelta(tx.Type, tx.Quantity))
	}
	return balance, nil
}

// checkReplayLocked verifies that replaying the key without skipID leaves no
// intermediate balance negative. Cancelling or purging a stock-in with later
// stock-outs would break the non-negativity invariant on replay; such
// mutations are rejected before any state changes.
func (l *Ledger) checkReplayLocked(ctx context.Context, key StockKey, skipID string) error {
	txs, err := l.store.Load(ctx, key)
	if err != nil {
		return fmt.Errorf("load ledger for %s: %w", key, err)
	}
	balance := decimal.Zero
	for _, tx := range txs {
		if tx.ID == skipID || tx.Status != StatusCompleted {
			continue
		}
		next := balance.Add(signedDelta(tx.Type, tx.Quantity))
		if next.IsNegative() {
			return &InsufficientStockError{
				ProductID:  key.ProductID,
				LocationID: key.LocationID,
				Available:  balance,
				Requested:  tx.Quantity.Abs(),
			}
		}
		balance = next
	}
	return nil
}

// resnapshotLocked rewrites BalanceAfter for every completed transaction of
// the key so the chain matches a fresh replay. Called after cancel/purge,
// which invalidate downstream snapshots.
func (l *Ledger) resnapshotLocked(ctx context.Context, key StockKey) error {
	txs, err := l.store.Load(ctx, key)
	if err != nil {
		return fmt.Errorf("load ledger for %s: %w", key, err)
	}
	balance := decimal.Zero
	for _, tx := range txs {
		if tx.Status != StatusCompleted {
			continue
		}
		balance = balance.Add(signedDelta(tx.Type, tx.Quantity))
		if !tx.BalanceAfter.Equal(balance) {
			tx.BalanceAfter = balance
			if err := l.store.Amend(ctx, tx); err != nil {
				return fmt.Errorf("resnapshot %s: %w", tx.ID, err)
			}
		}
	}
	return nil
}

// signedDelta converts a magnitude into the balance delta for the type.
func signedDelta(t TransactionType, quantity decimal.Decimal) decimal.Decimal {
	switch t.Direction() {
	case StockIn:
		return quantity
	case StockOut:
		return quantity.Neg()
	default:
		return quantity // adjustments carry their own sign
	}
}

func validateInput(in Input) error {
	if in.ProductID == "" {
		return &ValidationError{Field: "productId", Message: "is required"}
	}
	if !in.Type.Valid() {
		return &ValidationError{Field: "type", Message: fmt.Sprintf("unknown transaction type %q", in.Type)}
	}
	if in.Quantity.IsZero() {
		return &ValidationError{Field: "quantity", Message: "must be non-zero"}
	}
	if in.Type != TxAdjustment && in.Quantity.IsNegative() {
		return &ValidationError{Field: "quantity", Message: "must be positive (sign is implied by type)"}
	}
	if in.UnitCost.IsNegative() {
		return &ValidationError{Field: "unitCost", Message: "must not be negative"}
	}
	return nil
}
