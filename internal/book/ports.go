package book

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=book

import (
	"context"
)

// Repository defines the contract for book data storage.
type Repository interface {
	GetByID(ctx context.Context, id int64) (Book, error)
	GetByISBN(ctx context.Context, isbn string) (Book, error)
	// Create inserts b and fills in its ID. It returns ErrAlreadyExists on a
	// duplicate ISBN.
	Create(ctx context.Context, b *Book) error
	List(ctx context.Context) ([]Book, error)
	// Search returns books whose field contains term, ignoring case.
	Search(ctx context.Context, field SearchField, term string) ([]Book, error)
}
