// Package payment settles late fees through an external payment gateway.
package payment

import (
	"errors"
	"time"
)

var (
	ErrNoFeeDue           = errors.New("no late fee due")
	ErrPaymentFailed      = errors.New("payment failed")
	ErrPaymentProcessing  = errors.New("payment processing error")
	ErrInvalidTransaction = errors.New("invalid transaction ID")
	ErrInvalidAmount      = errors.New("refund amount must be greater than 0")
	ErrAmountExceedsMax   = errors.New("refund amount exceeds maximum late fee")
	ErrAmountExceedsPaid  = errors.New("refund amount exceeds amount paid")
	ErrRefundFailed       = errors.New("refund failed")
	ErrRefundProcessing   = errors.New("refund processing error")

	// ErrEntryNotFound is returned by a Ledger with no entry for a transaction.
	ErrEntryNotFound = errors.New("ledger entry not found")

	// ErrStorage wraps unexpected ledger failures.
	ErrStorage = errors.New("database error")
)

// TransactionPrefix starts every gateway transaction ID.
const TransactionPrefix = "txn_"

// GatewayError is a gateway decline or fault. Kind is one of
// ErrPaymentFailed, ErrPaymentProcessing, ErrRefundFailed or
// ErrRefundProcessing; Reason is the gateway's explanation.
type GatewayError struct {
	Kind   error
	Reason string
	Err    error
}

func (e *GatewayError) Error() string {
	return e.Kind.Error() + ": " + e.Reason
}

func (e *GatewayError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Charge is the gateway's answer to a payment request.
type Charge struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id"`
	Message       string `json:"message"`
}

// Refund is the gateway's answer to a refund request.
type Refund struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type EntryKind string

const (
	KindPayment EntryKind = "payment"
	KindRefund  EntryKind = "refund"
)

// Entry is one settled payment or refund.
type Entry struct {
	ID            int64     `json:"id"`
	TransactionID string    `json:"transaction_id"`
	Kind          EntryKind `json:"kind"`
	PatronID      string    `json:"patron_id"`
	BookID        int64     `json:"book_id"`
	RecordID      int64     `json:"record_id"`
	Amount        float64   `json:"amount"`
	CreatedAt     time.Time `json:"created_at"`
}

type PaymentResult struct {
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
	Message       string  `json:"message"`
}

type RefundResult struct {
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
	Message       string  `json:"message"`
}
