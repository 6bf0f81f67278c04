package report

import (
	"context"
	"time"

	"librarian/internal/fee"
	"librarian/internal/patron"
)

// Service builds patron borrowing reports.
type Service struct {
	records HistorySource
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock used to assess outstanding fees.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService returns a Service reading borrow history from records.
func NewService(records HistorySource, opts ...Option) *Service {
	s := &Service{records: records, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate builds the status report for patronID. An invalid ID yields an
// empty report with an explanatory status instead of an error.
func (s *Service) Generate(ctx context.Context, patronID string) (Report, error) {
	rep := Report{
		PatronID:          patronID,
		CurrentlyBorrowed: []BorrowedBook{},
		BorrowHistory:     []HistoryEntry{},
	}
	if !patron.ValidID(patronID) {
		rep.ReportStatus = StatusInvalidPatron
		return rep, nil
	}

	recs, err := s.records.History(ctx, patronID)
	if err != nil {
		return Report{}, err
	}

	now := s.now()
	var total float64
	for _, rec := range recs {
		entry := HistoryEntry{
			BookID:     rec.BookID,
			Title:      rec.Title,
			Author:     rec.Author,
			BorrowDate: rec.BorrowDate.Format(dateLayout),
			DueDate:    rec.DueDate.Format(dateLayout),
			ReturnDate: notReturned,
		}
		if !rec.Open() {
			entry.ReturnDate = rec.ReturnDate.Format(dateLayout)
		}
		rep.BorrowHistory = append(rep.BorrowHistory, entry)

		if rec.Open() {
			a := fee.Calculate(rec.DueDate, now)
			total += a.Amount
			rep.CurrentlyBorrowed = append(rep.CurrentlyBorrowed, BorrowedBook{
				BookID:     rec.BookID,
				Title:      rec.Title,
				Author:     rec.Author,
				BorrowDate: entry.BorrowDate,
				DueDate:    entry.DueDate,
				LateFee:    a.Amount,
			})
		}
	}

	rep.NumCurrentBorrowed = len(rep.CurrentlyBorrowed)
	rep.LateFees = fee.Round(total)
	rep.ReportStatus = StatusOK
	return rep, nil
}
