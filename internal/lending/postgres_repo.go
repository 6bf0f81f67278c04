package lending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresRepo) CountOpen(ctx context.Context, patronID string) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM borrow_records
		WHERE patron_id = $1 AND return_date IS NULL`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var count int
	err := r.db.QueryRow(timeoutCtx, query, patronID).Scan(&count)
	return count, err
}

func (r *PostgresRepo) Latest(ctx context.Context, patronID string, bookID int64) (Record, error) {
	const query = `
		SELECT id, patron_id, book_id, borrow_date, due_date, return_date
		FROM borrow_records
		WHERE patron_id = $1 AND book_id = $2
		ORDER BY borrow_date DESC, id DESC
		LIMIT 1`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var rec Record
	err := r.db.QueryRow(timeoutCtx, query, patronID, bookID).Scan(
		&rec.ID, &rec.PatronID, &rec.BookID, &rec.BorrowDate, &rec.DueDate, &rec.ReturnDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotBorrowed
		}
		return Record{}, err
	}
	return rec, nil
}

func (r *PostgresRepo) ListByPatron(ctx context.Context, patronID string) ([]Record, error) {
	const query = `
		SELECT br.id, br.patron_id, br.book_id, b.title, b.author, br.borrow_date, br.due_date, br.return_date
		FROM borrow_records br
		JOIN books b ON b.id = br.book_id
		WHERE br.patron_id = $1
		ORDER BY br.borrow_date DESC, br.id DESC`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(timeoutCtx, query, patronID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID, &rec.PatronID, &rec.BookID, &rec.Title, &rec.Author,
			&rec.BorrowDate, &rec.DueDate, &rec.ReturnDate,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Borrow(ctx context.Context, rec *Record) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(timeoutCtx)
	if err != nil {
		return err
	}
	defer tx.Rollback(timeoutCtx)

	const takeCopySQL = `
		UPDATE books
		SET available_copies = available_copies - 1
		WHERE id = $1 AND available_copies > 0`
	tag, err := tx.Exec(timeoutCtx, takeCopySQL, rec.BookID)
	if err != nil {
		return fmt.Errorf("take copy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookUnavailable
	}

	const insertSQL = `
		INSERT INTO borrow_records (patron_id, book_id, borrow_date, due_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	err = tx.QueryRow(timeoutCtx, insertSQL, rec.PatronID, rec.BookID, rec.BorrowDate, rec.DueDate).Scan(&rec.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrAlreadyBorrowed
		}
		return fmt.Errorf("insert borrow record: %w", err)
	}

	return tx.Commit(timeoutCtx)
}

func (r *PostgresRepo) Return(ctx context.Context, patronID string, bookID int64, returnedAt time.Time) (Record, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(timeoutCtx)
	if err != nil {
		return Record{}, err
	}
	defer tx.Rollback(timeoutCtx)

	const closeSQL = `
		UPDATE borrow_records
		SET return_date = $3
		WHERE id = (
			SELECT id FROM borrow_records
			WHERE patron_id = $1 AND book_id = $2 AND return_date IS NULL
			ORDER BY borrow_date DESC
			LIMIT 1
			FOR UPDATE
		)
		RETURNING id, patron_id, book_id, borrow_date, due_date, return_date`
	var rec Record
	err = tx.QueryRow(timeoutCtx, closeSQL, patronID, bookID, returnedAt).Scan(
		&rec.ID, &rec.PatronID, &rec.BookID, &rec.BorrowDate, &rec.DueDate, &rec.ReturnDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotBorrowed
		}
		return Record{}, fmt.Errorf("close borrow record: %w", err)
	}

	// The guard keeps available_copies within total_copies even if the
	// counts were edited by hand.
	const giveBackSQL = `
		UPDATE books
		SET available_copies = available_copies + 1
		WHERE id = $1 AND available_copies < total_copies`
	if _, err := tx.Exec(timeoutCtx, giveBackSQL, bookID); err != nil {
		return Record{}, fmt.Errorf("give back copy: %w", err)
	}

	if err := tx.Commit(timeoutCtx); err != nil {
		return Record{}, err
	}
	return rec, nil
}
