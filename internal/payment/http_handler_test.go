package payment

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"

	"librarian/internal/book"
	"librarian/internal/lending"
	"librarian/internal/testutil"
)

func TestHTTPHandler_Pay(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		f := newFixture(t)
		handler := NewHTTPHandler(f.svc, f.gw)
		f.fees.EXPECT().AssessFee(gomock.Any(), "123456", int64(1)).Return(overdue(2.00), nil)
		f.ledger.EXPECT().NetPaid(gomock.Any(), int64(11)).Return(0.0, nil)
		f.books.EXPECT().GetByID(gomock.Any(), int64(1)).Return(dune, nil)
		f.gw.EXPECT().ProcessPayment(gomock.Any(), "123456", 2.00, "Late fees for 'Dune'").
			Return(Charge{Success: true, TransactionID: "txn_1", Message: "Processed"}, nil)
		f.ledger.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)

		w := httptest.NewRecorder()
		handler.Pay(w, testutil.NewRequest(http.MethodPost, "/v1/payments", map[string]any{"patron_id": "123456", "book_id": 1}))

		resp := testutil.RecordHTTPResponse(w)
		assert.Equal(t, http.StatusCreated, resp.Code)
		assert.Equal(t, "txn_1", resp.Data()["transaction_id"])
	})

	t.Run("unknown book", func(t *testing.T) {
		f := newFixture(t)
		handler := NewHTTPHandler(f.svc, f.gw)
		f.fees.EXPECT().AssessFee(gomock.Any(), "123456", int64(999)).Return(lending.FeeAssessment{}, book.ErrNotFound)

		w := httptest.NewRecorder()
		handler.Pay(w, testutil.NewRequest(http.MethodPost, "/v1/payments", map[string]any{"patron_id": "123456", "book_id": 999}))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "NO_FEE_DUE", testutil.RecordHTTPResponse(w).ErrorCode())
	})

	t.Run("gateway down", func(t *testing.T) {
		f := newFixture(t)
		handler := NewHTTPHandler(f.svc, f.gw)
		f.fees.EXPECT().AssessFee(gomock.Any(), "123456", int64(1)).Return(overdue(2.00), nil)
		f.ledger.EXPECT().NetPaid(gomock.Any(), int64(11)).Return(0.0, nil)
		f.books.EXPECT().GetByID(gomock.Any(), int64(1)).Return(dune, nil)
		f.gw.EXPECT().ProcessPayment(gomock.Any(), "123456", 2.00, gomock.Any()).Return(Charge{}, errors.New("dial tcp: refused"))

		w := httptest.NewRecorder()
		handler.Pay(w, testutil.NewRequest(http.MethodPost, "/v1/payments", map[string]any{"patron_id": "123456", "book_id": 1}))

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, "GATEWAY_ERROR", testutil.RecordHTTPResponse(w).ErrorCode())
	})
}

func TestHTTPHandler_Refund(t *testing.T) {
	f := newFixture(t)
	handler := NewHTTPHandler(f.svc, f.gw)

	w := httptest.NewRecorder()
	handler.Refund(w, testutil.NewRequest(http.MethodPost, "/v1/refunds", map[string]any{"transaction_id": "bad_1", "amount": 5.0}))

	resp := testutil.RecordHTTPResponse(w)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "INVALID_TRANSACTION", resp.ErrorCode())
}

func TestHTTPHandler_Refund_ExceedsPaid(t *testing.T) {
	f := newFixture(t)
	handler := NewHTTPHandler(f.svc, f.gw)
	f.ledger.EXPECT().Payment(gomock.Any(), "txn_1").Return(Entry{TransactionID: "txn_1", RecordID: 11, Amount: 6.50}, nil)
	f.ledger.EXPECT().Refunded(gomock.Any(), "txn_1").Return(6.50, nil)

	w := httptest.NewRecorder()
	handler.Refund(w, testutil.NewRequest(http.MethodPost, "/v1/refunds", map[string]any{"transaction_id": "txn_1", "amount": 1.0}))

	resp := testutil.RecordHTTPResponse(w)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "INVALID_AMOUNT", resp.ErrorCode())
}
