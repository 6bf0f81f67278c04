package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"librarian/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, status, reset, create")
		name    = flag.String("name", "", "Name for 'create' command")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fatal("invalid configuration", err)
	}

	if *command == "create" {
		if *name == "" {
			fatal("name is required for 'create' command", nil)
		}
		if err := goose.Create(nil, cfg.MigrationsDir, *name, "sql"); err != nil {
			fatal("create migration", err)
		}
		fmt.Printf("Migration created: %s\n", *name)
		return
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		fatal("connect to database", err)
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		fatal("set dialect", err)
	}

	switch *command {
	case "up":
		if err := goose.UpContext(ctx, db, cfg.MigrationsDir); err != nil {
			fatal("apply migrations", err)
		}
		fmt.Println("Migrations applied successfully")
	case "down":
		if err := goose.DownContext(ctx, db, cfg.MigrationsDir); err != nil {
			fatal("roll back migration", err)
		}
		fmt.Println("Migration rolled back successfully")
	case "reset":
		if err := goose.ResetContext(ctx, db, cfg.MigrationsDir); err != nil {
			fatal("reset migrations", err)
		}
		fmt.Println("Migrations reset successfully")
	case "status":
		if err := goose.StatusContext(ctx, db, cfg.MigrationsDir); err != nil {
			fatal("check migration status", err)
		}
	default:
		fatal(fmt.Sprintf("unknown command %q; use up, down, status, reset, create", *command), nil)
	}
}

func fatal(msg string, err error) {
	if err != nil {
		slog.Error(msg, "err", err)
	} else {
		slog.Error(msg)
	}
	os.Exit(1)
}
