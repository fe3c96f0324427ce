package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"escrow/internal/infra"
	"escrow/internal/migrations"
)

func main() {
	var (
		dbFlag     string
		dryRunFlag bool
	)
	flag.StringVar(&dbFlag, "database", "", "database URL (defaults to DATABASE_URL)")
	flag.BoolVar(&dryRunFlag, "dry-run", false, "list pending migrations without applying them")
	flag.Parse()

	_ = godotenv.Load()

	dbURL := strings.TrimSpace(dbFlag)
	if dbURL == "" {
		dbURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	logger := infra.NewLogger(os.Getenv("APP_ENV"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("open database: %w", err))
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		exitWithError(fmt.Errorf("ping database: %w", err))
	}

	if _, err := db.ExecContext(ctx, `create table if not exists schema_migrations (
  name text primary key,
  applied_at timestamptz not null default now()
)`); err != nil {
		exitWithError(fmt.Errorf("create schema_migrations: %w", err))
	}

	all, err := migrations.All()
	if err != nil {
		exitWithError(err)
	}
	applied := 0
	for _, m := range all {
		var exists bool
		if err := db.QueryRowContext(ctx, `select exists(select 1 from schema_migrations where name = $1)`, m.Name).Scan(&exists); err != nil {
			exitWithError(fmt.Errorf("check %s: %w", m.Name, err))
		}
		if exists {
			continue
		}
		if dryRunFlag {
			fmt.Printf("pending %s\n", m.Name)
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			exitWithError(err)
		}
		logger.Info().Str("migration", m.Name).Msg("migration applied")
		applied++
	}
	logger.Info().Int("applied", applied).Int("total", len(all)).Msg("migrations complete")
}

func apply(ctx context.Context, db *sql.DB, m migrations.Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", m.Name, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("apply %s: %w", m.Name, err)
	}
	if _, err := tx.ExecContext(ctx, `insert into schema_migrations(name) values ($1)`, m.Name); err != nil {
		return fmt.Errorf("record %s: %w", m.Name, err)
	}
	return tx.Commit()
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
	os.Exit(1)
}
