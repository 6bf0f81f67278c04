package memstore_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarian/internal/book"
	"librarian/internal/lending"
	"librarian/internal/payment"
	"librarian/internal/platform/paygateway"
	"librarian/internal/report"
	"librarian/internal/store/memstore"
	"librarian/internal/testutil"
)

const day = 24 * time.Hour

type library struct {
	clock    *testutil.Clock
	store    *memstore.Store
	books    *book.Service
	lending  *lending.Service
	payments *payment.Service
	reports  *report.Service
}

func newLibrary(t *testing.T) library {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := testutil.NewClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	store := memstore.New()
	books := book.NewService(store, book.WithLogger(log))
	loans := lending.NewService(store, books, lending.WithClock(clock.Now), lending.WithLogger(log))
	return library{
		clock:    clock,
		store:    store,
		books:    books,
		lending:  loans,
		payments: payment.NewService(loans, books, store, payment.WithLogger(log)),
		reports:  report.NewService(loans, report.WithClock(clock.Now)),
	}
}

func (l library) addBook(t *testing.T, title, isbn string, copies int) book.Book {
	t.Helper()
	res, err := l.books.AddBook(context.Background(), book.NewBook{Title: title, Author: "Author", ISBN: isbn, TotalCopies: copies})
	require.NoError(t, err)
	return res.Book
}

func (l library) available(t *testing.T, id int64) int {
	t.Helper()
	b, err := l.books.GetByID(context.Background(), id)
	require.NoError(t, err)
	return b.AvailableCopies
}

func TestAddBook_DuplicateISBN(t *testing.T) {
	lib := newLibrary(t)
	ctx := context.Background()

	res, err := lib.books.AddBook(ctx, book.NewBook{Title: "Dune", Author: "Herbert", ISBN: "1234567890123", TotalCopies: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Book.AvailableCopies)

	_, err = lib.books.AddBook(ctx, book.NewBook{Title: "Dune", Author: "Herbert", ISBN: "1234567890123", TotalCopies: 3})
	assert.ErrorIs(t, err, book.ErrAlreadyExists)
	assert.Contains(t, err.Error(), "already exists")
}

func TestBorrow_LastCopy(t *testing.T) {
	lib := newLibrary(t)
	ctx := context.Background()
	b := lib.addBook(t, "Dune", "1234567890123", 1)

	_, err := lib.lending.Borrow(ctx, "123456", b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, lib.available(t, b.ID))

	_, err = lib.lending.Borrow(ctx, "654321", b.ID)
	assert.ErrorIs(t, err, lending.ErrBookUnavailable)
	assert.Equal(t, 0, lib.available(t, b.ID))
}

func TestBorrowThenReturn_RestoresAvailability(t *testing.T) {
	lib := newLibrary(t)
	ctx := context.Background()
	b := lib.addBook(t, "Dune", "1234567890123", 2)

	_, err := lib.lending.Borrow(ctx, "123456", b.ID)
	require.NoError(t, err)

	res, err := lib.lending.Return(ctx, "123456", b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Fee.Amount)
	assert.Equal(t, "Your late fee is zero dollars.", res.Message)
	assert.Equal(t, 2, lib.available(t, b.ID))

	_, err = lib.lending.Return(ctx, "123456", b.ID)
	assert.ErrorIs(t, err, lending.ErrNotBorrowed)
	assert.Equal(t, 2, lib.available(t, b.ID))
}

func TestBorrow_SameBookTwice(t *testing.T) {
	lib := newLibrary(t)
	ctx := context.Background()
	b := lib.addBook(t, "Dune", "1234567890123", 3)

	_, err := lib.lending.Borrow(ctx, "123456", b.ID)
	require.NoError(t, err)
	_, err = lib.lending.Borrow(ctx, "123456", b.ID)
	assert.ErrorIs(t, err, lending.ErrAlreadyBorrowed)
	assert.Equal(t, 2, lib.available(t, b.ID))
}

func TestBorrow_Limit(t *testing.T) {
	lib := newLibrary(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		b := lib.addBook(t, fmt.Sprintf("Book %d", i), fmt.Sprintf("978000000000%d", i), 1)
		_, err := lib.lending.Borrow(ctx, "123456", b.ID)
		require.NoError(t, err, "borrow %d", i+1)
	}

	extra := lib.addBook(t, "One Too Many", "9780000000099", 1)
	_, err := lib.lending.Borrow(ctx, "123456", extra.ID)
	assert.ErrorIs(t, err, lending.ErrBorrowLimitExceeded)
	assert.Equal(t, 1, lib.available(t, extra.ID))
}

func TestBorrow_ConcurrentLastCopy(t *testing.T) {
	lib := newLibrary(t)
	b := lib.addBook(t, "Dune", "1234567890123", 1)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := lib.lending.Borrow(context.Background(), fmt.Sprintf("%06d", 100000+i), b.ID); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 0, lib.available(t, b.ID))
}

func TestLateFeeLifecycle(t *testing.T) {
	lib := newLibrary(t)
	ctx := context.Background()
	gw := paygateway.NewSandbox()
	b := lib.addBook(t, "Dune", "1234567890123", 1)

	_, err := lib.lending.Borrow(ctx, "123456", b.ID)
	require.NoError(t, err)

	_, err = lib.payments.PayLateFee(ctx, gw, "123456", b.ID)
	assert.ErrorIs(t, err, payment.ErrNoFeeDue, "nothing is owed before the due date")

	lib.clock.Advance(24 * day)
	assessed, err := lib.lending.AssessFee(ctx, "123456", b.ID)
	require.NoError(t, err)
	assert.Equal(t, 6.50, assessed.Amount)

	rep, err := lib.reports.Generate(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, 6.50, rep.LateFees)
	assert.Equal(t, 1, rep.NumCurrentBorrowed)

	paid, err := lib.payments.PayLateFee(ctx, gw, "123456", b.ID)
	require.NoError(t, err)
	assert.Equal(t, 6.50, paid.Amount)
	charged, ok := gw.Charged(paid.TransactionID)
	assert.True(t, ok)
	assert.Equal(t, 6.50, charged)

	_, err = lib.payments.PayLateFee(ctx, gw, "123456", b.ID)
	assert.ErrorIs(t, err, payment.ErrNoFeeDue, "a settled fee is not charged twice")

	ret, err := lib.lending.Return(ctx, "123456", b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Your late fee is $6.50.", ret.Message)

	lib.clock.Advance(30 * day)
	frozen, err := lib.lending.AssessFee(ctx, "123456", b.ID)
	require.NoError(t, err)
	assert.Equal(t, 6.50, frozen.Amount, "fees stop accruing once returned")
	assert.True(t, frozen.Returned)

	_, err = lib.payments.RefundLateFee(ctx, gw, paid.TransactionID, 2.00)
	require.NoError(t, err)

	again, err := lib.payments.PayLateFee(ctx, gw, "123456", b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.00, again.Amount)

	rep, err = lib.reports.Generate(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, 0, rep.NumCurrentBorrowed)
	assert.Equal(t, 0.0, rep.LateFees)
	require.Len(t, rep.BorrowHistory, 1)
	assert.Equal(t, "2025-03-25", rep.BorrowHistory[0].ReturnDate)
}

func TestRefund_CannotExceedPayment(t *testing.T) {
	lib := newLibrary(t)
	ctx := context.Background()
	gw := paygateway.NewSandbox()
	b := lib.addBook(t, "Dune", "1234567890123", 1)

	_, err := lib.lending.Borrow(ctx, "123456", b.ID)
	require.NoError(t, err)
	lib.clock.Advance(24 * day)

	paid, err := lib.payments.PayLateFee(ctx, gw, "123456", b.ID)
	require.NoError(t, err)
	require.Equal(t, 6.50, paid.Amount)

	for i := 0; i < 3; i++ {
		_, err = lib.payments.RefundLateFee(ctx, gw, paid.TransactionID, 15.00)
		assert.ErrorIs(t, err, payment.ErrAmountExceedsPaid)
	}
	assert.Equal(t, "Refund amount exceeds the amount paid.", payment.Message(err))

	_, err = lib.payments.RefundLateFee(ctx, gw, paid.TransactionID, 4.00)
	require.NoError(t, err)
	_, err = lib.payments.RefundLateFee(ctx, gw, paid.TransactionID, 4.00)
	assert.ErrorIs(t, err, payment.ErrAmountExceedsPaid, "only 2.50 is left to refund")
	_, err = lib.payments.RefundLateFee(ctx, gw, paid.TransactionID, 2.50)
	require.NoError(t, err)

	again, err := lib.payments.PayLateFee(ctx, gw, "123456", b.ID)
	require.NoError(t, err)
	assert.Equal(t, 6.50, again.Amount, "a fully refunded fee is charged once more, never above the fee")
}

func TestPayLateFee_UnknownBookHasNoFee(t *testing.T) {
	lib := newLibrary(t)

	_, err := lib.payments.PayLateFee(context.Background(), paygateway.NewSandbox(), "123456", 999)

	assert.ErrorIs(t, err, payment.ErrNoFeeDue)
	assert.Equal(t, "No late fees to pay for this book.", payment.Message(err))
}

func TestLedger_MixedEntries(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	entries := []payment.Entry{
		{TransactionID: "txn_a", Kind: payment.KindPayment, RecordID: 1, Amount: 6.50},
		{TransactionID: "txn_a", Kind: payment.KindRefund, RecordID: 1, Amount: 2.00},
		{TransactionID: "txn_b", Kind: payment.KindPayment, RecordID: 1, Amount: 2.00},
		{TransactionID: "txn_a", Kind: payment.KindRefund, RecordID: 1, Amount: 1.00},
		{TransactionID: "txn_c", Kind: payment.KindPayment, RecordID: 2, Amount: 15.00},
	}
	for i := range entries {
		require.NoError(t, store.Append(ctx, &entries[i]))
	}

	net, err := store.NetPaid(ctx, 1)
	require.NoError(t, err)
	assert.InDelta(t, 5.50, net, 0.001)

	refunded, err := store.Refunded(ctx, "txn_a")
	require.NoError(t, err)
	assert.InDelta(t, 3.00, refunded, 0.001)

	refunded, err = store.Refunded(ctx, "txn_b")
	require.NoError(t, err)
	assert.Zero(t, refunded)
}

func TestRefund_BadTransactionNeverReachesGateway(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	lib := newLibrary(t)
	gw := payment.NewMockGateway(ctrl)

	_, err := lib.payments.RefundLateFee(context.Background(), gw, "bad_1", 5.0)

	assert.ErrorIs(t, err, payment.ErrInvalidTransaction)
	assert.Equal(t, "Invalid transaction ID.", payment.Message(err))
}

func TestSearch(t *testing.T) {
	lib := newLibrary(t)
	ctx := context.Background()
	lib.addBook(t, "Dune", "1234567890123", 1)
	lib.addBook(t, "Dune Messiah", "1234567890124", 1)
	lib.addBook(t, "Emma", "1234567890125", 1)

	got, err := lib.books.Search(ctx, "dUNe", "title")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = lib.books.Search(ctx, "890125", "isbn")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Emma", got[0].Title)

	got, err = lib.books.Search(ctx, "", "title")
	require.NoError(t, err)
	assert.Empty(t, got)
}
