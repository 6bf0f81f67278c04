package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"librarian/internal/book"
	"librarian/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

var words = []string{
	"Adventure", "Mystery", "Journey", "Discovery", "Secrets", "Dreams", "Hope",
	"Love", "War", "Peace", "Science", "Nature", "Technology", "History", "Future",
	"Past", "Present", "Reality", "Imagination", "Wisdom", "Life", "Death",
	"Light", "Darkness", "World", "Universe", "Time", "Space", "Mind", "Soul",
}

var authors = []string{
	"Ada Palmer", "Ted Chiang", "Ursula Le Guin", "Octavia Butler", "Italo Calvino",
	"Jorge Luis Borges", "Toni Morrison", "Kazuo Ishiguro", "Susanna Clarke", "Gene Wolfe",
}

func main() {
	count := flag.Int("count", 200, "number of books to generate")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		slog.Error("connect to database", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	svc := book.NewService(book.NewPostgresRepo(pool, cfg.DBTimeout))

	slog.Info("generating books", "count", *count)
	added, skipped := 0, 0
	for i := 0; i < *count; i++ {
		nb := book.NewBook{
			Title:       fmt.Sprintf("%s of %s", randomWord(), randomWord()),
			Author:      authors[rand.Intn(len(authors))],
			ISBN:        fmt.Sprintf("978%010d", i+1),
			TotalCopies: 1 + rand.Intn(5),
		}
		if _, err := svc.AddBook(ctx, nb); err != nil {
			if errors.Is(err, book.ErrAlreadyExists) {
				skipped++
				continue
			}
			slog.Error("add book", "isbn", nb.ISBN, "err", err)
			os.Exit(1)
		}
		added++
		if added%100 == 0 {
			slog.Info("progress", "added", added)
		}
	}

	var total int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM books").Scan(&total); err != nil {
		slog.Error("count books", "err", err)
		os.Exit(1)
	}
	slog.Info("seed complete", "added", added, "skipped", skipped, "total", total)
}

func randomWord() string {
	return words[rand.Intn(len(words))]
}
