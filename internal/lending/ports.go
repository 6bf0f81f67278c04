package lending

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=lending

import (
	"context"
	"time"

	"librarian/internal/book"
)

// Repository defines the contract for borrow record storage.
type Repository interface {
	CountOpen(ctx context.Context, patronID string) (int, error)
	// Latest returns the patron's most recent record for bookID, open or
	// closed. It returns ErrNotBorrowed when there is none.
	Latest(ctx context.Context, patronID string, bookID int64) (Record, error)
	// ListByPatron returns every record of the patron, newest first, with
	// the book title and author filled in.
	ListByPatron(ctx context.Context, patronID string) ([]Record, error)
	// Borrow takes one available copy and inserts rec in a single unit of
	// work, filling in rec.ID. It returns ErrBookUnavailable when no copy
	// is left and ErrAlreadyBorrowed when the patron already holds the book.
	Borrow(ctx context.Context, rec *Record) error
	// Return closes the patron's open record for bookID and gives the copy
	// back in a single unit of work. It returns ErrNotBorrowed when there is
	// no open record.
	Return(ctx context.Context, patronID string, bookID int64, returnedAt time.Time) (Record, error)
}

// BookFinder looks up catalog entries.
type BookFinder interface {
	GetByID(ctx context.Context, id int64) (book.Book, error)
}
