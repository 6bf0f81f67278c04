package report

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=report

import (
	"context"

	"librarian/internal/lending"
)

// HistorySource lists a patron's borrow records, newest first.
type HistorySource interface {
	History(ctx context.Context, patronID string) ([]lending.Record, error)
}
