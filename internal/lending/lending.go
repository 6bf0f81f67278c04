// Package lending implements the borrow and return workflow.
package lending

import (
	"errors"
	"time"

	"librarian/internal/fee"
)

// MaxOpenBorrows is the borrowing limit. A patron holding more than this
// many books cannot borrow another.
const MaxOpenBorrows = 5

const dateLayout = "2006-01-02"

var (
	ErrBookUnavailable     = errors.New("book is currently not available")
	ErrBorrowLimitExceeded = errors.New("maximum borrowing limit reached")
	ErrAlreadyBorrowed     = errors.New("book is already borrowed by this patron")
	ErrNotBorrowed         = errors.New("no active borrow record for this patron and book")

	// ErrStorage wraps unexpected repository failures.
	ErrStorage = errors.New("database error")
)

// Record is a single borrow of one book by one patron. ReturnDate is nil
// while the book is still out.
type Record struct {
	ID         int64      `json:"id"`
	PatronID   string     `json:"patron_id"`
	BookID     int64      `json:"book_id"`
	Title      string     `json:"title,omitempty"`
	Author     string     `json:"author,omitempty"`
	BorrowDate time.Time  `json:"borrow_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
}

// Open reports whether the book has not been returned yet.
func (r Record) Open() bool {
	return r.ReturnDate == nil
}

// assessAt returns the time the record's fee is evaluated at. Closed
// records stop accruing on their return date.
func (r Record) assessAt(now time.Time) time.Time {
	if r.ReturnDate != nil {
		return *r.ReturnDate
	}
	return now
}

type BorrowResult struct {
	Record  Record `json:"record"`
	Message string `json:"message"`
}

type ReturnResult struct {
	Record  Record         `json:"record"`
	Fee     fee.Assessment `json:"fee"`
	Message string         `json:"message"`
}

// FeeAssessment is the fee owed on a patron's most recent borrow of a book.
type FeeAssessment struct {
	fee.Assessment
	RecordID int64  `json:"record_id"`
	PatronID string `json:"patron_id"`
	BookID   int64  `json:"book_id"`
	Returned bool   `json:"returned"`
	Message  string `json:"message"`
}
