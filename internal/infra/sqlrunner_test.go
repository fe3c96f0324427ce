package infra

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

func TestExtractMarker(t *testing.T) {
	query := `--sql 0b6c9d8e-1f2a-4b3c-9d4e-5f6a7b8c9d0e
select 1;
`
	marker, body, err := extractMarker(query)
	if err != nil {
		t.Fatalf("extractMarker: %v", err)
	}
	if marker != "0b6c9d8e-1f2a-4b3c-9d4e-5f6a7b8c9d0e" {
		t.Fatalf("marker = %q", marker)
	}
	if body != "select 1;" {
		t.Fatalf("body = %q", body)
	}

	for _, bad := range []string{"", "   ", "select 1;", "--sql not-a-uuid\nselect 1;"} {
		if _, _, err := extractMarker(bad); err == nil {
			t.Fatalf("extractMarker(%q) accepted an unmarked query", bad)
		}
	}
}

type recordingDB struct {
	sql []string
}

func (r *recordingDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	r.sql = append(r.sql, sql)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (r *recordingDB) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	r.sql = append(r.sql, sql)
	return errorRow{err: pgx.ErrNoRows}
}

func (r *recordingDB) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	r.sql = append(r.sql, sql)
	return nil, fmt.Errorf("not supported")
}

func TestMarkedExecutorStripsMarker(t *testing.T) {
	db := &recordingDB{}
	exec := markedExecutor{db: db, logger: zerolog.Nop()}
	ctx := context.Background()

	if _, err := exec.Exec(ctx, "--sql 0b6c9d8e-1f2a-4b3c-9d4e-5f6a7b8c9d0e\ninsert into t values (1);"); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if len(db.sql) != 1 || db.sql[0] != "insert into t values (1);" {
		t.Fatalf("sent %q", db.sql)
	}

	if _, err := exec.Exec(ctx, "insert into t values (2);"); err == nil {
		t.Fatal("unmarked Exec accepted")
	}
	if len(db.sql) != 1 {
		t.Fatal("unmarked query reached the database")
	}

	err := exec.QueryRow(ctx, "--sql 0b6c9d8e-1f2a-4b3c-9d4e-5f6a7b8c9d0e\nselect 1;").Scan()
	if !IsNoRows(err) {
		t.Fatalf("QueryRow err = %v", err)
	}
	if err := exec.QueryRow(ctx, "select 1;").Scan(); err == nil || IsNoRows(err) {
		t.Fatalf("unmarked QueryRow err = %v", err)
	}
}

func TestIsNoRows(t *testing.T) {
	if !IsNoRows(fmt.Errorf("load: %w", pgx.ErrNoRows)) {
		t.Fatal("wrapped ErrNoRows not detected")
	}
	if IsNoRows(errors.New("other")) {
		t.Fatal("unrelated error detected as no rows")
	}
}
