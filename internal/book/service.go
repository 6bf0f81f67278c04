package book

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Service provides catalog business logic.
type Service struct {
	repo     Repository
	validate *validator.Validate
	log      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for storage failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// NewService creates a new catalog service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		validate: validator.New(),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddBook validates nb and adds it to the catalog with every copy available.
func (s *Service) AddBook(ctx context.Context, nb NewBook) (AddResult, error) {
	nb.Title = strings.TrimSpace(nb.Title)
	nb.Author = strings.TrimSpace(nb.Author)

	if err := s.check(nb); err != nil {
		return AddResult{}, err
	}

	_, err := s.repo.GetByISBN(ctx, nb.ISBN)
	switch {
	case err == nil:
		return AddResult{}, ErrAlreadyExists
	case !errors.Is(err, ErrNotFound):
		s.log.ErrorContext(ctx, "lookup isbn failed", "isbn", nb.ISBN, "err", err)
		return AddResult{}, fmt.Errorf("%w: lookup isbn: %w", ErrStorage, err)
	}

	b := &Book{
		Title:           nb.Title,
		Author:          nb.Author,
		ISBN:            nb.ISBN,
		TotalCopies:     nb.TotalCopies,
		AvailableCopies: nb.TotalCopies,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return AddResult{}, ErrAlreadyExists
		}
		s.log.ErrorContext(ctx, "insert book failed", "isbn", nb.ISBN, "err", err)
		return AddResult{}, fmt.Errorf("%w: insert book: %w", ErrStorage, err)
	}

	return AddResult{
		Book:    *b,
		Message: fmt.Sprintf("Book %q has been successfully added to the catalog.", b.Title),
	}, nil
}

func (s *Service) check(nb NewBook) error {
	err := s.validate.Struct(nb)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	msg := "Invalid book."
	switch fe.Field() {
	case "Title":
		msg = "Title is required."
		if fe.Tag() == "max" {
			msg = "Title must be less than 200 characters."
		}
	case "Author":
		msg = "Author is required."
		if fe.Tag() == "max" {
			msg = "Author must be less than 100 characters."
		}
	case "ISBN":
		msg = "ISBN must be exactly 13 digits."
	case "TotalCopies":
		msg = "Total copies must be a positive integer."
	}
	return &ValidationError{Field: strings.ToLower(fe.Field()), Message: msg}
}

// GetByID returns a book by its ID.
func (s *Service) GetByID(ctx context.Context, id int64) (Book, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns the whole catalog.
func (s *Service) List(ctx context.Context) ([]Book, error) {
	books, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if books == nil {
		books = []Book{}
	}
	return books, nil
}

// Search matches term against field, ignoring case. An empty term or an
// unknown field yields an empty result rather than an error.
func (s *Service) Search(ctx context.Context, term string, field string) ([]Book, error) {
	f := SearchField(strings.ToLower(strings.TrimSpace(field)))
	if term == "" || !f.Valid() {
		return []Book{}, nil
	}
	books, err := s.repo.Search(ctx, f, term)
	if err != nil {
		return nil, err
	}
	if books == nil {
		books = []Book{}
	}
	return books, nil
}
