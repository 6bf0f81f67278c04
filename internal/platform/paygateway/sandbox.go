package paygateway

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"librarian/internal/payment"
)

// SandboxLimit is the largest single charge the sandbox accepts.
const SandboxLimit = 1000.00

// Sandbox is an in-process gateway that applies the hosted gateway's
// acceptance rules without moving money.
type Sandbox struct {
	mu      sync.Mutex
	charges map[string]float64
}

func NewSandbox() *Sandbox {
	return &Sandbox{charges: make(map[string]float64)}
}

func (s *Sandbox) ProcessPayment(ctx context.Context, patronID string, amount float64, description string) (payment.Charge, error) {
	if err := ctx.Err(); err != nil {
		return payment.Charge{}, err
	}
	switch {
	case amount <= 0:
		return payment.Charge{Message: "Invalid amount: must be greater than 0"}, nil
	case amount > SandboxLimit:
		return payment.Charge{Message: "Payment declined: amount exceeds limit"}, nil
	case len(patronID) != 6:
		return payment.Charge{Message: "Invalid patron ID"}, nil
	}

	txn := payment.TransactionPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	s.mu.Lock()
	s.charges[txn] = amount
	s.mu.Unlock()

	return payment.Charge{
		Success:       true,
		TransactionID: txn,
		Message:       fmt.Sprintf("Payment of $%.2f processed successfully", amount),
	}, nil
}

func (s *Sandbox) RefundPayment(ctx context.Context, transactionID string, amount float64) (payment.Refund, error) {
	if err := ctx.Err(); err != nil {
		return payment.Refund{}, err
	}
	switch {
	case !strings.HasPrefix(transactionID, payment.TransactionPrefix):
		return payment.Refund{Message: "Invalid transaction ID"}, nil
	case amount <= 0:
		return payment.Refund{Message: "Invalid refund amount"}, nil
	}
	return payment.Refund{
		Success: true,
		Message: fmt.Sprintf("Refund of $%.2f processed successfully", amount),
	}, nil
}

// Charged reports the amount charged under transactionID.
func (s *Sandbox) Charged(transactionID string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	amount, ok := s.charges[transactionID]
	return amount, ok
}
