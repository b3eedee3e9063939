/*
store.go - Persistence interface for the transaction ledger

PURPOSE:
  Defines the interface between the ledger engine and storage. The engine
  is storage-agnostic: tests use the in-memory adapter (store/memory.go),
  production uses SQLite (store/sqlite).

MUTATION CONTRACT:
  The ledger is conceptually append-only. The Store still exposes three
  narrow mutations because the engine needs them:
  - SetStatus: cancellation is a status flip, never a delete. Folds exclude
    cancelled rows, so history survives intact.
  - Amend: rewrites a record in place. The *engine* restricts which fields
    may change (non-quantitative amendments, BalanceAfter re-snapshots);
    the store does not interpret the record.
  - Delete: hard removal, used only by the explicit Purge operation.

  No other write paths exist. Implementations must keep Load/List results
  ordered by TransactionDate (ties broken by CreatedAt) so folds are
  deterministic.
*/
package ledger

import "context"

// Store handles transaction persistence.
type Store interface {
	// Append persists a new transaction.
	Append(ctx context.Context, tx Transaction) error

	// Get returns the transaction with the given id, or NotFoundError.
	Get(ctx context.Context, id string) (Transaction, error)

	// Load returns all transactions for the key in TransactionDate order.
	Load(ctx context.Context, key StockKey) ([]Transaction, error)

	// List returns transactions matching the filter, newest first.
	List(ctx context.Context, f Filter) ([]Transaction, error)

	// Keys returns every stock key that has at least one transaction.
	Keys(ctx context.Context) ([]StockKey, error)

	// SetStatus flips the status of an existing transaction.
	SetStatus(ctx context.Context, id string, status TransactionStatus) error

	// Amend replaces an existing record. Callers are responsible for only
	// changing fields the engine permits.
	Amend(ctx context.Context, tx Transaction) error

	// Delete hard-removes a transaction. Used by Purge only.
	Delete(ctx context.Context, id string) error
}
