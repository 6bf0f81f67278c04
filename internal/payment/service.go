package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"librarian/internal/book"
	"librarian/internal/fee"
	"librarian/internal/lending"
	"librarian/internal/patron"
)

// Service provides late fee payment and refund business logic. The gateway
// is supplied per call so callers can route to a sandbox or a live account.
type Service struct {
	fees   FeeAssessor
	books  BookFinder
	ledger Ledger
	log    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger for gateway and ledger events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// NewService creates a new payment service.
func NewService(fees FeeAssessor, books BookFinder, ledger Ledger, opts ...Option) *Service {
	s := &Service{
		fees:   fees,
		books:  books,
		ledger: ledger,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PayLateFee charges the outstanding late fee on the patron's borrow of
// bookID. Amounts already paid for the same borrow are deducted, so a fee is
// never collected twice.
func (s *Service) PayLateFee(ctx context.Context, gw Gateway, patronID string, bookID int64) (PaymentResult, error) {
	if err := patron.ValidateID(patronID); err != nil {
		return PaymentResult{}, err
	}

	// The fee is assessed before the book is looked up: an unknown book has
	// no fee, so it reads as nothing to pay.
	assessment, err := s.fees.AssessFee(ctx, patronID, bookID)
	if err != nil {
		if errors.Is(err, lending.ErrNotBorrowed) || errors.Is(err, book.ErrNotFound) {
			return PaymentResult{}, ErrNoFeeDue
		}
		return PaymentResult{}, err
	}

	due := assessment.Amount
	if due > 0 {
		paid, err := s.ledger.NetPaid(ctx, assessment.RecordID)
		if err != nil {
			s.log.ErrorContext(ctx, "read ledger failed", "record_id", assessment.RecordID, "err", err)
			return PaymentResult{}, fmt.Errorf("%w: net paid: %w", ErrStorage, err)
		}
		// Over-refunded records never raise the charge above the fee.
		due = fee.Round(due - math.Max(paid, 0))
	}
	if due <= 0 {
		return PaymentResult{}, ErrNoFeeDue
	}

	b, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		return PaymentResult{}, err
	}

	charge, err := processPayment(ctx, gw, patronID, due, fmt.Sprintf("Late fees for '%s'", b.Title))
	if err != nil {
		s.log.WarnContext(ctx, "payment gateway error", "patron_id", patronID, "book_id", bookID, "err", err)
		return PaymentResult{}, &GatewayError{Kind: ErrPaymentProcessing, Reason: err.Error(), Err: err}
	}
	if !charge.Success {
		s.log.InfoContext(ctx, "payment declined", "patron_id", patronID, "book_id", bookID, "reason", charge.Message)
		return PaymentResult{}, &GatewayError{Kind: ErrPaymentFailed, Reason: charge.Message}
	}

	// The card has been charged at this point; a ledger failure must not
	// turn the payment into an error for the patron.
	entry := &Entry{
		TransactionID: charge.TransactionID,
		Kind:          KindPayment,
		PatronID:      patronID,
		BookID:        bookID,
		RecordID:      assessment.RecordID,
		Amount:        due,
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		s.log.ErrorContext(ctx, "record payment failed", "transaction_id", charge.TransactionID, "err", err)
	}

	s.log.InfoContext(ctx, "late fee paid", "patron_id", patronID, "book_id", bookID, "transaction_id", charge.TransactionID, "amount", due)
	return PaymentResult{
		TransactionID: charge.TransactionID,
		Amount:        due,
		Message:       "Payment successful! " + charge.Message,
	}, nil
}

// RefundLateFee returns amount of a previous late fee payment.
func (s *Service) RefundLateFee(ctx context.Context, gw Gateway, transactionID string, amount float64) (RefundResult, error) {
	if transactionID == "" || !strings.HasPrefix(transactionID, TransactionPrefix) {
		return RefundResult{}, ErrInvalidTransaction
	}
	if math.IsNaN(amount) || amount <= 0 {
		return RefundResult{}, ErrInvalidAmount
	}
	if amount > fee.MaxFee {
		return RefundResult{}, ErrAmountExceedsMax
	}

	orig, found, err := s.refundable(ctx, transactionID, amount)
	if err != nil {
		return RefundResult{}, err
	}

	refund, err := refundPayment(ctx, gw, transactionID, amount)
	if err != nil {
		s.log.WarnContext(ctx, "refund gateway error", "transaction_id", transactionID, "err", err)
		return RefundResult{}, &GatewayError{Kind: ErrRefundProcessing, Reason: err.Error(), Err: err}
	}
	if !refund.Success {
		s.log.InfoContext(ctx, "refund declined", "transaction_id", transactionID, "reason", refund.Message)
		return RefundResult{}, &GatewayError{Kind: ErrRefundFailed, Reason: refund.Message}
	}

	if found {
		s.recordRefund(ctx, orig, amount)
	} else {
		s.log.WarnContext(ctx, "refund of unrecorded payment", "transaction_id", transactionID)
	}
	return RefundResult{TransactionID: transactionID, Amount: amount, Message: refund.Message}, nil
}

// refundable looks up the recorded payment behind transactionID and rejects
// amount when it exceeds what is left of that payment after earlier refunds.
// Payments the ledger never saw are left to the gateway to judge.
func (s *Service) refundable(ctx context.Context, transactionID string, amount float64) (Entry, bool, error) {
	orig, err := s.ledger.Payment(ctx, transactionID)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return Entry{}, false, nil
		}
		s.log.ErrorContext(ctx, "lookup payment failed", "transaction_id", transactionID, "err", err)
		return Entry{}, false, fmt.Errorf("%w: lookup payment: %w", ErrStorage, err)
	}

	refunded, err := s.ledger.Refunded(ctx, transactionID)
	if err != nil {
		s.log.ErrorContext(ctx, "read refunds failed", "transaction_id", transactionID, "err", err)
		return Entry{}, false, fmt.Errorf("%w: refunded: %w", ErrStorage, err)
	}
	if fee.Round(amount) > fee.Round(orig.Amount-refunded) {
		return Entry{}, false, ErrAmountExceedsPaid
	}
	return orig, true, nil
}

func (s *Service) recordRefund(ctx context.Context, orig Entry, amount float64) {
	entry := &Entry{
		TransactionID: orig.TransactionID,
		Kind:          KindRefund,
		PatronID:      orig.PatronID,
		BookID:        orig.BookID,
		RecordID:      orig.RecordID,
		Amount:        amount,
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		s.log.ErrorContext(ctx, "record refund failed", "transaction_id", orig.TransactionID, "err", err)
	}
}

// processPayment and refundPayment report a nil gateway or a panicking one
// as an error.
func processPayment(ctx context.Context, gw Gateway, patronID string, amount float64, description string) (c Charge, err error) {
	if gw == nil {
		return Charge{}, errors.New("no payment gateway configured")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("gateway panic: %v", r)
		}
	}()
	return gw.ProcessPayment(ctx, patronID, amount, description)
}

func refundPayment(ctx context.Context, gw Gateway, transactionID string, amount float64) (r Refund, err error) {
	if gw == nil {
		return Refund{}, errors.New("no payment gateway configured")
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("gateway panic: %v", p)
		}
	}()
	return gw.RefundPayment(ctx, transactionID, amount)
}

// Message renders err as the text shown to patrons.
func Message(err error) string {
	var gwErr *GatewayError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &gwErr):
		switch {
		case errors.Is(gwErr.Kind, ErrPaymentFailed):
			return "Payment failed: " + gwErr.Reason
		case errors.Is(gwErr.Kind, ErrPaymentProcessing):
			return "Payment processing error: " + gwErr.Reason
		case errors.Is(gwErr.Kind, ErrRefundFailed):
			return "Refund failed: " + gwErr.Reason
		default:
			return "Refund processing error: " + gwErr.Reason
		}
	case errors.Is(err, patron.ErrInvalidID):
		return "Invalid patron ID. Must be exactly 6 digits."
	case errors.Is(err, book.ErrNotFound):
		return "Book not found."
	case errors.Is(err, ErrNoFeeDue):
		return "No late fees to pay for this book."
	case errors.Is(err, ErrInvalidTransaction):
		return "Invalid transaction ID."
	case errors.Is(err, ErrInvalidAmount):
		return "Refund amount must be greater than 0."
	case errors.Is(err, ErrAmountExceedsMax):
		return "Refund amount exceeds maximum late fee."
	case errors.Is(err, ErrAmountExceedsPaid):
		return "Refund amount exceeds the amount paid."
	default:
		return "Database error occurred while processing the payment."
	}
}
