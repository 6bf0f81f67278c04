// Package memstore keeps the catalog, borrow records and payment ledger in
// process memory. It backs APP_STORE=memory and end-to-end tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"librarian/internal/book"
	"librarian/internal/lending"
	"librarian/internal/payment"
)

// Store implements book.Repository, lending.Repository and payment.Ledger.
// A single mutex makes every borrow and return atomic.
type Store struct {
	mu      sync.Mutex
	books   map[int64]book.Book
	records []lending.Record
	entries []payment.Entry

	nextBookID   int64
	nextRecordID int64
	nextEntryID  int64
}

var (
	_ book.Repository    = (*Store)(nil)
	_ lending.Repository = (*Store)(nil)
	_ payment.Ledger     = (*Store)(nil)
)

func New() *Store {
	return &Store{books: make(map[int64]book.Book)}
}

func (s *Store) GetByID(ctx context.Context, id int64) (book.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return book.Book{}, book.ErrNotFound
	}
	return b, nil
}

func (s *Store) GetByISBN(ctx context.Context, isbn string) (book.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.books {
		if b.ISBN == isbn {
			return b, nil
		}
	}
	return book.Book{}, book.ErrNotFound
}

func (s *Store) Create(ctx context.Context, b *book.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.books {
		if existing.ISBN == b.ISBN {
			return book.ErrAlreadyExists
		}
	}
	s.nextBookID++
	b.ID = s.nextBookID
	b.CreatedAt = time.Now()
	s.books[b.ID] = *b
	return nil
}

func (s *Store) List(ctx context.Context) ([]book.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedBooks(func(book.Book) bool { return true }), nil
}

func (s *Store) Search(ctx context.Context, field book.SearchField, term string) ([]book.Book, error) {
	term = strings.ToLower(term)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedBooks(func(b book.Book) bool {
		var v string
		switch field {
		case book.SearchByTitle:
			v = b.Title
		case book.SearchByAuthor:
			v = b.Author
		case book.SearchByISBN:
			v = b.ISBN
		default:
			return false
		}
		return strings.Contains(strings.ToLower(v), term)
	}), nil
}

func (s *Store) sortedBooks(keep func(book.Book) bool) []book.Book {
	out := make([]book.Book, 0, len(s.books))
	for _, b := range s.books {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) CountOpen(ctx context.Context, patronID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rec := range s.records {
		if rec.PatronID == patronID && rec.Open() {
			n++
		}
	}
	return n, nil
}

func (s *Store) Latest(ctx context.Context, patronID string, bookID int64) (lending.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.records) - 1; i >= 0; i-- {
		rec := s.records[i]
		if rec.PatronID == patronID && rec.BookID == bookID {
			return s.withBook(rec), nil
		}
	}
	return lending.Record{}, lending.ErrNotBorrowed
}

func (s *Store) ListByPatron(ctx context.Context, patronID string) ([]lending.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []lending.Record
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].PatronID == patronID {
			out = append(out, s.withBook(s.records[i]))
		}
	}
	return out, nil
}

func (s *Store) withBook(rec lending.Record) lending.Record {
	if b, ok := s.books[rec.BookID]; ok {
		rec.Title, rec.Author = b.Title, b.Author
	}
	if rec.ReturnDate != nil {
		returned := *rec.ReturnDate
		rec.ReturnDate = &returned
	}
	return rec
}

func (s *Store) Borrow(ctx context.Context, rec *lending.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[rec.BookID]
	if !ok || b.AvailableCopies <= 0 {
		return lending.ErrBookUnavailable
	}
	for _, existing := range s.records {
		if existing.PatronID == rec.PatronID && existing.BookID == rec.BookID && existing.Open() {
			return lending.ErrAlreadyBorrowed
		}
	}

	b.AvailableCopies--
	s.books[b.ID] = b
	s.nextRecordID++
	rec.ID = s.nextRecordID
	stored := *rec
	stored.Title, stored.Author, stored.ReturnDate = "", "", nil
	s.records = append(s.records, stored)
	return nil
}

func (s *Store) Return(ctx context.Context, patronID string, bookID int64, returnedAt time.Time) (lending.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.records) - 1; i >= 0; i-- {
		rec := &s.records[i]
		if rec.PatronID != patronID || rec.BookID != bookID || !rec.Open() {
			continue
		}
		returned := returnedAt
		rec.ReturnDate = &returned
		if b, ok := s.books[bookID]; ok && b.AvailableCopies < b.TotalCopies {
			b.AvailableCopies++
			s.books[bookID] = b
		}
		return s.withBook(*rec), nil
	}
	return lending.Record{}, lending.ErrNotBorrowed
}

func (s *Store) NetPaid(ctx context.Context, recordID int64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var net float64
	for _, e := range s.entries {
		if e.RecordID != recordID {
			continue
		}
		if e.Kind == payment.KindRefund {
			net -= e.Amount
		} else {
			net += e.Amount
		}
	}
	return net, nil
}

func (s *Store) Append(ctx context.Context, e *payment.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextEntryID++
	e.ID = s.nextEntryID
	e.CreatedAt = time.Now()
	s.entries = append(s.entries, *e)
	return nil
}

func (s *Store) Payment(ctx context.Context, transactionID string) (payment.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.TransactionID == transactionID && e.Kind == payment.KindPayment {
			return e, nil
		}
	}
	return payment.Entry{}, payment.ErrEntryNotFound
}

func (s *Store) Refunded(ctx context.Context, transactionID string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum float64
	for _, e := range s.entries {
		if e.TransactionID == transactionID && e.Kind == payment.KindRefund {
			sum += e.Amount
		}
	}
	return sum, nil
}
