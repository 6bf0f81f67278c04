package lending

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarian/internal/book"
	"librarian/internal/fee"
	"librarian/internal/patron"
)

var now = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

func newTestService(t *testing.T) (*Service, *MockRepository, *MockBookFinder) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	repo := NewMockRepository(ctrl)
	books := NewMockBookFinder(ctrl)
	svc := NewService(repo, books,
		WithClock(func() time.Time { return now }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return svc, repo, books
}

func TestService_Borrow_RejectsBadPatronBeforeStorage(t *testing.T) {
	svc, _, _ := newTestService(t)

	for _, id := range []string{"", "12345", "1234567", "12a456", " 123456"} {
		_, err := svc.Borrow(context.Background(), id, 1)
		assert.ErrorIs(t, err, patron.ErrInvalidID, id)
	}
}

func TestService_Borrow(t *testing.T) {
	ctx := context.Background()
	dune := book.Book{ID: 1, Title: "Dune", Author: "Frank Herbert", TotalCopies: 3, AvailableCopies: 2}

	t.Run("success", func(t *testing.T) {
		svc, repo, books := newTestService(t)
		books.EXPECT().GetByID(ctx, int64(1)).Return(dune, nil)
		repo.EXPECT().CountOpen(ctx, "123456").Return(0, nil)
		repo.EXPECT().Borrow(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, rec *Record) error {
			assert.Equal(t, now, rec.BorrowDate)
			assert.Equal(t, now.Add(14*day), rec.DueDate)
			rec.ID = 42
			return nil
		})

		res, err := svc.Borrow(ctx, "123456", 1)

		require.NoError(t, err)
		assert.Equal(t, int64(42), res.Record.ID)
		assert.True(t, res.Record.Open())
		assert.Equal(t, `Successfully borrowed "Dune". Due date: 2025-03-15.`, res.Message)
	})

	t.Run("book not found", func(t *testing.T) {
		svc, _, books := newTestService(t)
		books.EXPECT().GetByID(ctx, int64(9)).Return(book.Book{}, book.ErrNotFound)

		_, err := svc.Borrow(ctx, "123456", 9)

		assert.ErrorIs(t, err, book.ErrNotFound)
	})

	t.Run("no copies left", func(t *testing.T) {
		svc, _, books := newTestService(t)
		out := dune
		out.AvailableCopies = 0
		books.EXPECT().GetByID(ctx, int64(1)).Return(out, nil)

		_, err := svc.Borrow(ctx, "123456", 1)

		assert.ErrorIs(t, err, ErrBookUnavailable)
	})

	t.Run("limit exceeded", func(t *testing.T) {
		svc, repo, books := newTestService(t)
		books.EXPECT().GetByID(ctx, int64(1)).Return(dune, nil)
		repo.EXPECT().CountOpen(ctx, "123456").Return(6, nil)

		_, err := svc.Borrow(ctx, "123456", 1)

		assert.ErrorIs(t, err, ErrBorrowLimitExceeded)
	})

	t.Run("five open borrows still allowed", func(t *testing.T) {
		svc, repo, books := newTestService(t)
		books.EXPECT().GetByID(ctx, int64(1)).Return(dune, nil)
		repo.EXPECT().CountOpen(ctx, "123456").Return(5, nil)
		repo.EXPECT().Borrow(ctx, gomock.Any()).Return(nil)

		_, err := svc.Borrow(ctx, "123456", 1)

		assert.NoError(t, err)
	})

	t.Run("last copy taken concurrently", func(t *testing.T) {
		svc, repo, books := newTestService(t)
		books.EXPECT().GetByID(ctx, int64(1)).Return(dune, nil)
		repo.EXPECT().CountOpen(ctx, "123456").Return(0, nil)
		repo.EXPECT().Borrow(ctx, gomock.Any()).Return(ErrBookUnavailable)

		_, err := svc.Borrow(ctx, "123456", 1)

		assert.ErrorIs(t, err, ErrBookUnavailable)
	})

	t.Run("already holding the book", func(t *testing.T) {
		svc, repo, books := newTestService(t)
		books.EXPECT().GetByID(ctx, int64(1)).Return(dune, nil)
		repo.EXPECT().CountOpen(ctx, "123456").Return(1, nil)
		repo.EXPECT().Borrow(ctx, gomock.Any()).Return(ErrAlreadyBorrowed)

		_, err := svc.Borrow(ctx, "123456", 1)

		assert.ErrorIs(t, err, ErrAlreadyBorrowed)
	})

	t.Run("storage failure", func(t *testing.T) {
		svc, repo, books := newTestService(t)
		books.EXPECT().GetByID(ctx, int64(1)).Return(dune, nil)
		repo.EXPECT().CountOpen(ctx, "123456").Return(0, nil)
		repo.EXPECT().Borrow(ctx, gomock.Any()).Return(errors.New("tx aborted"))

		_, err := svc.Borrow(ctx, "123456", 1)

		assert.ErrorIs(t, err, ErrStorage)
	})
}

func TestService_Return(t *testing.T) {
	ctx := context.Background()
	dune := book.Book{ID: 1, Title: "Dune", TotalCopies: 1, AvailableCopies: 0}

	t.Run("on time", func(t *testing.T) {
		svc, repo, books := newTestService(t)
		returned := now
		books.EXPECT().GetByID(ctx, int64(1)).Return(dune, nil)
		repo.EXPECT().Return(ctx, "123456", int64(1), now).Return(Record{
			ID: 3, PatronID: "123456", BookID: 1,
			BorrowDate: now.Add(-2 * day), DueDate: now.Add(12 * day), ReturnDate: &returned,
		}, nil)

		res, err := svc.Return(ctx, "123456", 1)

		require.NoError(t, err)
		assert.Equal(t, "Your late fee is zero dollars.", res.Message)
		assert.Equal(t, fee.StatusOnTime, res.Fee.Status)
		assert.Equal(t, "Dune", res.Record.Title)
	})

	t.Run("ten days late", func(t *testing.T) {
		svc, repo, books := newTestService(t)
		books.EXPECT().GetByID(ctx, int64(1)).Return(dune, nil)
		repo.EXPECT().Return(ctx, "123456", int64(1), now).Return(Record{
			ID: 3, BorrowDate: now.Add(-24 * day), DueDate: now.Add(-10 * day),
		}, nil)

		res, err := svc.Return(ctx, "123456", 1)

		require.NoError(t, err)
		assert.Equal(t, 6.50, res.Fee.Amount)
		assert.Equal(t, 10, res.Fee.DaysOverdue)
		assert.Equal(t, "Your late fee is $6.50.", res.Message)
	})

	t.Run("not borrowed", func(t *testing.T) {
		svc, repo, books := newTestService(t)
		books.EXPECT().GetByID(ctx, int64(1)).Return(dune, nil)
		repo.EXPECT().Return(ctx, "123456", int64(1), now).Return(Record{}, ErrNotBorrowed)

		_, err := svc.Return(ctx, "123456", 1)

		assert.ErrorIs(t, err, ErrNotBorrowed)
	})

	t.Run("invalid patron", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		_, err := svc.Return(ctx, "abc", 1)

		assert.ErrorIs(t, err, patron.ErrInvalidID)
	})
}

func TestService_AssessFee(t *testing.T) {
	ctx := context.Background()
	dune := book.Book{ID: 1, Title: "Dune"}

	t.Run("open record accrues until now", func(t *testing.T) {
		svc, repo, books := newTestService(t)
		books.EXPECT().GetByID(ctx, int64(1)).Return(dune, nil)
		repo.EXPECT().Latest(ctx, "123456", int64(1)).Return(Record{ID: 5, DueDate: now.Add(-20 * day)}, nil)

		a, err := svc.AssessFee(ctx, "123456", 1)

		require.NoError(t, err)
		assert.Equal(t, 15.00, a.Amount)
		assert.Equal(t, int64(5), a.RecordID)
		assert.False(t, a.Returned)
		assert.Equal(t, "Late fee is $15.00", a.Message)
	})

	t.Run("returned record is frozen at return date", func(t *testing.T) {
		svc, repo, books := newTestService(t)
		due := now.Add(-30 * day)
		returned := due.Add(3 * day)
		books.EXPECT().GetByID(ctx, int64(1)).Return(dune, nil)
		repo.EXPECT().Latest(ctx, "123456", int64(1)).Return(Record{ID: 5, DueDate: due, ReturnDate: &returned}, nil)

		a, err := svc.AssessFee(ctx, "123456", 1)

		require.NoError(t, err)
		assert.Equal(t, 1.50, a.Amount)
		assert.Equal(t, 3, a.DaysOverdue)
		assert.True(t, a.Returned)
	})

	t.Run("open record not yet due", func(t *testing.T) {
		svc, repo, books := newTestService(t)
		books.EXPECT().GetByID(ctx, int64(1)).Return(dune, nil)
		repo.EXPECT().Latest(ctx, "123456", int64(1)).Return(Record{ID: 5, DueDate: now.Add(4 * day)}, nil)

		a, err := svc.AssessFee(ctx, "123456", 1)

		require.NoError(t, err)
		assert.Zero(t, a.Amount)
		assert.False(t, a.Returned)
		assert.Equal(t, "This book is not overdue", a.Message)
	})

	t.Run("returned on time", func(t *testing.T) {
		svc, repo, books := newTestService(t)
		due := now.Add(-10 * day)
		returned := due.Add(-day)
		books.EXPECT().GetByID(ctx, int64(1)).Return(dune, nil)
		repo.EXPECT().Latest(ctx, "123456", int64(1)).Return(Record{ID: 5, DueDate: due, ReturnDate: &returned}, nil)

		a, err := svc.AssessFee(ctx, "123456", 1)

		require.NoError(t, err)
		assert.True(t, a.Returned)
		assert.Equal(t, "This book was returned on time and is not overdue", a.Message)
	})

	t.Run("never borrowed", func(t *testing.T) {
		svc, repo, books := newTestService(t)
		books.EXPECT().GetByID(ctx, int64(1)).Return(dune, nil)
		repo.EXPECT().Latest(ctx, "123456", int64(1)).Return(Record{}, ErrNotBorrowed)

		_, err := svc.AssessFee(ctx, "123456", 1)

		assert.ErrorIs(t, err, ErrNotBorrowed)
	})

	t.Run("unknown book", func(t *testing.T) {
		svc, _, books := newTestService(t)
		books.EXPECT().GetByID(ctx, int64(2)).Return(book.Book{}, book.ErrNotFound)

		_, err := svc.AssessFee(ctx, "123456", 2)

		assert.ErrorIs(t, err, book.ErrNotFound)
	})
}

func TestService_History(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.EXPECT().ListByPatron(gomock.Any(), "123456").Return(nil, nil)

	recs, err := svc.History(context.Background(), "123456")

	require.NoError(t, err)
	assert.Equal(t, []Record{}, recs)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Invalid patron ID. Must be exactly 6 digits.", Message(patron.ErrInvalidID))
	assert.Equal(t, "Book not found.", Message(book.ErrNotFound))
	assert.Equal(t, "This book is currently not available.", Message(ErrBookUnavailable))
	assert.Equal(t, "You have reached the maximum borrowing limit of 5 books.", Message(ErrBorrowLimitExceeded))
	assert.Equal(t, "Database error occurred while processing the request.", Message(errors.Join(ErrStorage, errors.New("x"))))
	assert.Empty(t, Message(nil))
}
