package lending

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"librarian/internal/book"
	"librarian/internal/fee"
	"librarian/internal/patron"
)

// Service provides borrow and return business logic.
type Service struct {
	repo  Repository
	books BookFinder
	now   func() time.Time
	log   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock used for borrow, return and fee dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger sets the logger for lending events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// NewService creates a new lending service.
func NewService(repo Repository, books BookFinder, opts ...Option) *Service {
	s := &Service{
		repo:  repo,
		books: books,
		now:   time.Now,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) findBook(ctx context.Context, id int64) (book.Book, error) {
	b, err := s.books.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, book.ErrNotFound) {
			return book.Book{}, book.ErrNotFound
		}
		s.log.ErrorContext(ctx, "lookup book failed", "book_id", id, "err", err)
		return book.Book{}, fmt.Errorf("%w: lookup book: %w", ErrStorage, err)
	}
	return b, nil
}

// Borrow lends one copy of bookID to patronID. The checks run in order:
// patron ID, book existence, availability, borrowing limit.
func (s *Service) Borrow(ctx context.Context, patronID string, bookID int64) (BorrowResult, error) {
	if err := patron.ValidateID(patronID); err != nil {
		return BorrowResult{}, err
	}

	b, err := s.findBook(ctx, bookID)
	if err != nil {
		return BorrowResult{}, err
	}
	if b.AvailableCopies <= 0 {
		return BorrowResult{}, ErrBookUnavailable
	}

	count, err := s.repo.CountOpen(ctx, patronID)
	if err != nil {
		s.log.ErrorContext(ctx, "count open borrows failed", "patron_id", patronID, "err", err)
		return BorrowResult{}, fmt.Errorf("%w: count borrows: %w", ErrStorage, err)
	}
	// TODO: confirm with circulation whether the limit should reject at 5;
	// today a patron holding five books may take a sixth.
	if count > MaxOpenBorrows {
		return BorrowResult{}, ErrBorrowLimitExceeded
	}

	now := s.now()
	rec := Record{
		PatronID:   patronID,
		BookID:     bookID,
		Title:      b.Title,
		Author:     b.Author,
		BorrowDate: now,
		DueDate:    fee.DueDate(now),
	}
	if err := s.repo.Borrow(ctx, &rec); err != nil {
		if errors.Is(err, ErrBookUnavailable) || errors.Is(err, ErrAlreadyBorrowed) {
			return BorrowResult{}, err
		}
		s.log.ErrorContext(ctx, "borrow failed", "patron_id", patronID, "book_id", bookID, "err", err)
		return BorrowResult{}, fmt.Errorf("%w: borrow: %w", ErrStorage, err)
	}

	s.log.InfoContext(ctx, "book borrowed", "patron_id", patronID, "book_id", bookID, "record_id", rec.ID)
	return BorrowResult{
		Record:  rec,
		Message: fmt.Sprintf("Successfully borrowed %q. Due date: %s.", b.Title, rec.DueDate.Format(dateLayout)),
	}, nil
}

// Return closes the patron's open borrow of bookID and reports the late fee
// accrued up to now.
func (s *Service) Return(ctx context.Context, patronID string, bookID int64) (ReturnResult, error) {
	if err := patron.ValidateID(patronID); err != nil {
		return ReturnResult{}, err
	}

	b, err := s.findBook(ctx, bookID)
	if err != nil {
		return ReturnResult{}, err
	}

	now := s.now()
	rec, err := s.repo.Return(ctx, patronID, bookID, now)
	if err != nil {
		if errors.Is(err, ErrNotBorrowed) {
			return ReturnResult{}, ErrNotBorrowed
		}
		s.log.ErrorContext(ctx, "return failed", "patron_id", patronID, "book_id", bookID, "err", err)
		return ReturnResult{}, fmt.Errorf("%w: return: %w", ErrStorage, err)
	}
	rec.Title, rec.Author = b.Title, b.Author

	assessment := fee.Calculate(rec.DueDate, now)
	msg := "Your late fee is zero dollars."
	if assessment.Amount > 0 {
		msg = fmt.Sprintf("Your late fee is $%.2f.", assessment.Amount)
	}

	s.log.InfoContext(ctx, "book returned",
		"patron_id", patronID,
		"book_id", bookID,
		"record_id", rec.ID,
		"fee", assessment.Amount,
	)
	return ReturnResult{Record: rec, Fee: assessment, Message: msg}, nil
}

// AssessFee computes the fee for the patron's most recent borrow of bookID.
// An outstanding book is assessed as of now; a returned one as of its
// return date.
func (s *Service) AssessFee(ctx context.Context, patronID string, bookID int64) (FeeAssessment, error) {
	if err := patron.ValidateID(patronID); err != nil {
		return FeeAssessment{}, err
	}
	if _, err := s.findBook(ctx, bookID); err != nil {
		return FeeAssessment{}, err
	}

	rec, err := s.repo.Latest(ctx, patronID, bookID)
	if err != nil {
		if errors.Is(err, ErrNotBorrowed) {
			return FeeAssessment{}, ErrNotBorrowed
		}
		s.log.ErrorContext(ctx, "lookup borrow record failed", "patron_id", patronID, "book_id", bookID, "err", err)
		return FeeAssessment{}, fmt.Errorf("%w: lookup record: %w", ErrStorage, err)
	}

	a := fee.Calculate(rec.DueDate, rec.assessAt(s.now()))
	returned := !rec.Open()
	return FeeAssessment{
		Assessment: a,
		RecordID:   rec.ID,
		PatronID:   patronID,
		BookID:     bookID,
		Returned:   returned,
		Message:    a.Message(returned),
	}, nil
}

// History returns every borrow of the patron, newest first.
func (s *Service) History(ctx context.Context, patronID string) ([]Record, error) {
	if err := patron.ValidateID(patronID); err != nil {
		return nil, err
	}
	recs, err := s.repo.ListByPatron(ctx, patronID)
	if err != nil {
		s.log.ErrorContext(ctx, "list borrow records failed", "patron_id", patronID, "err", err)
		return nil, fmt.Errorf("%w: list records: %w", ErrStorage, err)
	}
	if recs == nil {
		recs = []Record{}
	}
	return recs, nil
}

// Message renders err as the text shown to patrons.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, patron.ErrInvalidID):
		return "Invalid patron ID. Must be exactly 6 digits."
	case errors.Is(err, book.ErrNotFound):
		return "Book not found."
	case errors.Is(err, ErrBookUnavailable):
		return "This book is currently not available."
	case errors.Is(err, ErrBorrowLimitExceeded):
		return fmt.Sprintf("You have reached the maximum borrowing limit of %d books.", MaxOpenBorrows)
	case errors.Is(err, ErrAlreadyBorrowed):
		return "You have already borrowed this book."
	case errors.Is(err, ErrNotBorrowed):
		return "Book not borrowed by this patron."
	default:
		return "Database error occurred while processing the request."
	}
}
