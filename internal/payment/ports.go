package payment

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=payment

import (
	"context"

	"librarian/internal/book"
	"librarian/internal/lending"
)

// Gateway processes and refunds card transactions. A declined request is a
// result with Success false; an error means the gateway could not be reached
// or misbehaved.
type Gateway interface {
	ProcessPayment(ctx context.Context, patronID string, amount float64, description string) (Charge, error)
	RefundPayment(ctx context.Context, transactionID string, amount float64) (Refund, error)
}

// Ledger stores settled payments and refunds.
type Ledger interface {
	// NetPaid returns payments minus refunds recorded against a borrow record.
	NetPaid(ctx context.Context, recordID int64) (float64, error)
	Append(ctx context.Context, e *Entry) error
	// Payment returns the payment entry for transactionID or ErrEntryNotFound.
	Payment(ctx context.Context, transactionID string) (Entry, error)
	// Refunded returns the sum of refunds recorded against transactionID.
	Refunded(ctx context.Context, transactionID string) (float64, error)
}

// FeeAssessor computes the fee owed on a patron's borrow of a book.
type FeeAssessor interface {
	AssessFee(ctx context.Context, patronID string, bookID int64) (lending.FeeAssessment, error)
}

// BookFinder looks up catalog entries.
type BookFinder interface {
	GetByID(ctx context.Context, id int64) (book.Book, error)
}
