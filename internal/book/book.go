package book

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a book is not found.
	ErrNotFound = errors.New("book not found")

	// ErrAlreadyExists is returned when the ISBN is already catalogued.
	ErrAlreadyExists = errors.New("a book with this ISBN already exists")

	// ErrInvalid is wrapped by every ValidationError.
	ErrInvalid = errors.New("invalid book")

	// ErrStorage wraps unexpected repository failures.
	ErrStorage = errors.New("database error")
)

// Book represents a catalogued title and its copy counts.
type Book struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	ISBN            string    `json:"isbn"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	CreatedAt       time.Time `json:"-"`
}

// NewBook is the input for adding a title to the catalog.
type NewBook struct {
	Title       string `json:"title" validate:"required,max=200"`
	Author      string `json:"author" validate:"required,max=100"`
	ISBN        string `json:"isbn" validate:"len=13"`
	TotalCopies int    `json:"total_copies" validate:"gt=0"`
}

// SearchField selects the attribute a catalog search matches against.
type SearchField string

const (
	SearchByTitle  SearchField = "title"
	SearchByAuthor SearchField = "author"
	SearchByISBN   SearchField = "isbn"
)

// Valid reports whether f is a known search field.
func (f SearchField) Valid() bool {
	switch f {
	case SearchByTitle, SearchByAuthor, SearchByISBN:
		return true
	default:
		return false
	}
}

// ValidationError describes the first invalid field of a NewBook.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrInvalid }

// AddResult is returned by a successful catalog addition.
type AddResult struct {
	Book    Book   `json:"book"`
	Message string `json:"message"`
}
