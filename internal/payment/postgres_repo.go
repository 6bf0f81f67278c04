package payment

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger stores entries in fee_payments.
type PostgresLedger struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresLedger(db *pgxpool.Pool, timeout time.Duration) *PostgresLedger {
	return &PostgresLedger{db: db, timeout: timeout}
}

func (r *PostgresLedger) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresLedger) NetPaid(ctx context.Context, recordID int64) (float64, error) {
	const query = `
		SELECT COALESCE(SUM(CASE WHEN kind = 'payment' THEN amount ELSE -amount END), 0)::float8
		FROM fee_payments
		WHERE borrow_record_id = $1`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var net float64
	err := r.db.QueryRow(timeoutCtx, query, recordID).Scan(&net)
	return net, err
}

func (r *PostgresLedger) Append(ctx context.Context, e *Entry) error {
	const query = `
		INSERT INTO fee_payments (transaction_id, kind, patron_id, book_id, borrow_record_id, amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.db.QueryRow(timeoutCtx, query,
		e.TransactionID, string(e.Kind), e.PatronID, e.BookID, e.RecordID, e.Amount,
	).Scan(&e.ID, &e.CreatedAt)
}

func (r *PostgresLedger) Payment(ctx context.Context, transactionID string) (Entry, error) {
	const query = `
		SELECT id, transaction_id, kind, patron_id, book_id, borrow_record_id, amount::float8, created_at
		FROM fee_payments
		WHERE transaction_id = $1 AND kind = 'payment'`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var e Entry
	var kind string
	err := r.db.QueryRow(timeoutCtx, query, transactionID).Scan(
		&e.ID, &e.TransactionID, &kind, &e.PatronID, &e.BookID, &e.RecordID, &e.Amount, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrEntryNotFound
		}
		return Entry{}, err
	}
	e.Kind = EntryKind(kind)
	return e, nil
}

func (r *PostgresLedger) Refunded(ctx context.Context, transactionID string) (float64, error) {
	const query = `
		SELECT COALESCE(SUM(amount), 0)::float8
		FROM fee_payments
		WHERE transaction_id = $1 AND kind = 'refund'`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var sum float64
	err := r.db.QueryRow(timeoutCtx, query, transactionID).Scan(&sum)
	return sum, err
}
