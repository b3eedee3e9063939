/*
Package sqlite provides a SQLite-backed implementation of ledger.Store.

PURPOSE:
  Durable persistence for the transaction ledger. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

MUTATION SURFACE:
  The ledger is conceptually append-only; this store exposes exactly the
  three extra mutations the engine needs (status flips for cancellation,
  amendments for non-quantitative edits and balance re-snapshots, and the
  hard delete behind Purge). No other UPDATE/DELETE paths exist.

CONCURRENCY:
  Opened in WAL mode so readers don't block the single writer. A
  sync.RWMutex additionally serializes access; the engine's own per-key
  locks already serialize logical mutations, so contention here is low.

PRECISION:
  Quantities and costs are stored as TEXT and round-tripped through
  decimal.Decimal. Never store money in REAL columns.

USAGE:
  store, err := sqlite.New("./data/inventory.db")  // or ":memory:"
  led := ledger.New(store)

SEE ALSO:
  - ledger/store.go: Interface contract
  - ledger/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/inventory-engine/ledger"
)

// Store implements ledger.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (and migrates) a SQLite store. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Inventory ledger (append-only; cancellations are status flips)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL,
		location_id TEXT NOT NULL DEFAULT '',
		tx_type TEXT NOT NULL,
		quantity TEXT NOT NULL,
		unit_cost TEXT NOT NULL,
		total_cost TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		batch_number TEXT NOT NULL DEFAULT '',
		expiry_date TEXT,
		reference_type TEXT NOT NULL DEFAULT '',
		reference_id TEXT NOT NULL DEFAULT '',
		reference_number TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		transaction_date TEXT NOT NULL,
		created_at TEXT NOT NULL,
		created_by TEXT NOT NULL DEFAULT ''
	);

	-- Hot path: per-key folds in date order
	CREATE INDEX IF NOT EXISTS idx_transactions_key_date
		ON transactions(product_id, location_id, transaction_date, created_at);

	CREATE INDEX IF NOT EXISTS idx_transactions_status
		ON transactions(status);

	CREATE INDEX IF NOT EXISTS idx_transactions_reference
		ON transactions(reference_number) WHERE reference_number != '';

	-- Batch/expiry scans
	CREATE INDEX IF NOT EXISTS idx_transactions_batch
		ON transactions(product_id, batch_number) WHERE batch_number != '';
	`
	_, err := s.db.Exec(schema)
	return err
}

const txColumns = `id, product_id, location_id, tx_type, quantity, unit_cost, total_cost,
	balance_after, batch_number, expiry_date, reference_type, reference_id,
	reference_number, notes, status, transaction_date, created_at, created_by`

// =============================================================================
// WRITES
// =============================================================================

func (s *Store) Append(ctx context.Context, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO transactions (` + txColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		tx.ID,
		tx.ProductID,
		tx.LocationID,
		string(tx.Type),
		tx.Quantity.String(),
		tx.UnitCost.String(),
		tx.TotalCost.String(),
		tx.BalanceAfter.String(),
		tx.BatchNumber,
		nullTime(tx.ExpiryDate),
		tx.ReferenceType,
		tx.ReferenceID,
		tx.ReferenceNumber,
		tx.Notes,
		string(tx.Status),
		tx.TransactionDate.UTC().Format(time.RFC3339Nano),
		tx.CreatedAt.UTC().Format(time.RFC3339Nano),
		tx.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("%w: insert transaction: %v", ledger.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) SetStatus(ctx context.Context, id string, status ledger.TransactionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("%w: set status: %v", ledger.ErrStoreUnavailable, err)
	}
	return requireRow(res, id)
}

func (s *Store) Amend(ctx context.Context, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions SET
			balance_after = ?, batch_number = ?, expiry_date = ?,
			reference_type = ?, reference_id = ?, reference_number = ?,
			notes = ?, status = ?
		WHERE id = ?`,
		tx.BalanceAfter.String(),
		tx.BatchNumber,
		nullTime(tx.ExpiryDate),
		tx.ReferenceType,
		tx.ReferenceID,
		tx.ReferenceNumber,
		tx.Notes,
		string(tx.Status),
		tx.ID,
	)
	if err != nil {
		return fmt.Errorf("%w: amend transaction: %v", ledger.ErrStoreUnavailable, err)
	}
	return requireRow(res, tx.ID)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: delete transaction: %v", ledger.ErrStoreUnavailable, err)
	}
	return requireRow(res, id)
}

// =============================================================================
// READS
// =============================================================================

func (s *Store) Get(ctx context.Context, id string) (ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return ledger.Transaction{}, &ledger.NotFoundError{Entity: "transaction", ID: id}
	}
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("%w: get transaction: %v", ledger.ErrStoreUnavailable, err)
	}
	return tx, nil
}

func (s *Store) Load(ctx context.Context, key ledger.StockKey) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + txColumns + ` FROM transactions
		WHERE product_id = ? AND location_id = ?
		ORDER BY transaction_date ASC, created_at ASC
	`
	return s.queryTransactions(ctx, query, key.ProductID, key.LocationID)
}

func (s *Store) List(ctx context.Context, f ledger.Filter) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + txColumns + ` FROM transactions WHERE 1=1`
	var args []any
	if f.ProductID != nil {
		query += ` AND product_id = ?`
		args = append(args, *f.ProductID)
	}
	if f.LocationID != nil {
		query += ` AND location_id = ?`
		args = append(args, *f.LocationID)
	}
	if f.Type != "" {
		query += ` AND tx_type = ?`
		args = append(args, string(f.Type))
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if f.From != nil {
		query += ` AND transaction_date >= ?`
		args = append(args, f.From.UTC().Format(time.RFC3339Nano))
	}
	if f.To != nil {
		query += ` AND transaction_date <= ?`
		args = append(args, f.To.UTC().Format(time.RFC3339Nano))
	}
	query += ` ORDER BY transaction_date DESC, created_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	return s.queryTransactions(ctx, query, args...)
}

func (s *Store) Keys(ctx context.Context) ([]ledger.StockKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT product_id, location_id FROM transactions
		ORDER BY product_id, location_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list keys: %v", ledger.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var keys []ledger.StockKey
	for rows.Next() {
		var key ledger.StockKey
		if err := rows.Scan(&key.ProductID, &key.LocationID); err != nil {
			return nil, fmt.Errorf("%w: scan key: %v", ledger.ErrStoreUnavailable, err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// =============================================================================
// SCANNING
// =============================================================================

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]ledger.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query transactions: %v", ledger.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var txs []ledger.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan transaction: %v", ledger.ErrStoreUnavailable, err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (ledger.Transaction, error) {
	var (
		tx                                          ledger.Transaction
		txType, status                              string
		quantity, unitCost, totalCost, balanceAfter string
		expiryDate                                  sql.NullString
		transactionDate, createdAt                  string
	)
	err := row.Scan(
		&tx.ID, &tx.ProductID, &tx.LocationID, &txType,
		&quantity, &unitCost, &totalCost, &balanceAfter,
		&tx.BatchNumber, &expiryDate,
		&tx.ReferenceType, &tx.ReferenceID, &tx.ReferenceNumber,
		&tx.Notes, &status, &transactionDate, &createdAt, &tx.CreatedBy,
	)
	if err != nil {
		return ledger.Transaction{}, err
	}

	tx.Type = ledger.TransactionType(txType)
	tx.Status = ledger.TransactionStatus(status)
	if tx.Quantity, err = decimal.NewFromString(quantity); err != nil {
		return ledger.Transaction{}, fmt.Errorf("parse quantity: %w", err)
	}
	if tx.UnitCost, err = decimal.NewFromString(unitCost); err != nil {
		return ledger.Transaction{}, fmt.Errorf("parse unit cost: %w", err)
	}
	if tx.TotalCost, err = decimal.NewFromString(totalCost); err != nil {
		return ledger.Transaction{}, fmt.Errorf("parse total cost: %w", err)
	}
	if tx.BalanceAfter, err = decimal.NewFromString(balanceAfter); err != nil {
		return ledger.Transaction{}, fmt.Errorf("parse balance: %w", err)
	}
	if tx.TransactionDate, err = time.Parse(time.RFC3339Nano, transactionDate); err != nil {
		return ledger.Transaction{}, fmt.Errorf("parse transaction date: %w", err)
	}
	if tx.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return ledger.Transaction{}, fmt.Errorf("parse created at: %w", err)
	}
	if expiryDate.Valid {
		t, err := time.Parse(time.RFC3339Nano, expiryDate.String)
		if err != nil {
			return ledger.Transaction{}, fmt.Errorf("parse expiry date: %w", err)
		}
		tx.ExpiryDate = &t
	}
	return tx, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", ledger.ErrStoreUnavailable, err)
	}
	if n == 0 {
		return &ledger.NotFoundError{Entity: "transaction", ID: id}
	}
	return nil
}
