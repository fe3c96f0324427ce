package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"escrow/internal/infra"
	"escrow/internal/sqlinline"
)

type simpleRow struct {
	scan func(dest ...any) error
}

func (r simpleRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

type testRowsBase struct{}

func (testRowsBase) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }

func (testRowsBase) Conn() *pgx.Conn { return nil }

func (testRowsBase) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (testRowsBase) Values() ([]any, error) {
	return nil, fmt.Errorf("values not supported in test rows")
}

func (testRowsBase) RawValues() [][]byte { return nil }

// sliceRows serves pre-built rows; each row is assigned positionally into Scan dest.
type sliceRows struct {
	testRowsBase
	rows [][]any
	pos  int
}

func (r *sliceRows) Close()     {}
func (r *sliceRows) Err() error { return nil }

func (r *sliceRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *sliceRows) Scan(dest ...any) error {
	return assign(r.rows[r.pos-1], dest)
}

func assign(values []any, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("scan: %d values into %d targets", len(values), len(dest))
	}
	for i, v := range values {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *int64:
			*d = v.(int64)
		case *uuid.UUID:
			*d = v.(uuid.UUID)
		case *time.Time:
			*d = v.(time.Time)
		case *[]byte:
			*d = v.([]byte)
		default:
			return fmt.Errorf("scan: unsupported target %T", dest[i])
		}
	}
	return nil
}

// fakeLedgerDB interprets the token and event statements against in-memory tables.
// InTx works on a copy and swaps it in on success.
type fakeLedgerDB struct {
	balances   map[string]uint64
	allowances map[[2]string]uint64
	events     [][]any
	execs      []string
	failOn     string
}

func newFakeLedgerDB() *fakeLedgerDB {
	return &fakeLedgerDB{
		balances:   make(map[string]uint64),
		allowances: make(map[[2]string]uint64),
	}
}

func (f *fakeLedgerDB) clone() *fakeLedgerDB {
	c := newFakeLedgerDB()
	for k, v := range f.balances {
		c.balances[k] = v
	}
	for k, v := range f.allowances {
		c.allowances[k] = v
	}
	c.events = append(c.events, f.events...)
	c.failOn = f.failOn
	return c
}

func (f *fakeLedgerDB) InTx(ctx context.Context, _ pgx.TxOptions, fn func(infra.SQLExecutor) error) error {
	tx := f.clone()
	if err := fn(tx); err != nil {
		return err
	}
	f.balances, f.allowances, f.events = tx.balances, tx.allowances, tx.events
	f.execs = append(f.execs, tx.execs...)
	return nil
}

func (f *fakeLedgerDB) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	if f.failOn != "" && query == f.failOn {
		return pgconn.CommandTag{}, fmt.Errorf("boom")
	}
	f.execs = append(f.execs, query)
	switch query {
	case sqlinline.QEnsureBalance:
		if _, ok := f.balances[args[0].(string)]; !ok {
			f.balances[args[0].(string)] = 0
		}
	case sqlinline.QUpdateBalance:
		f.balances[args[0].(string)] = parse(args[1].(string))
	case sqlinline.QUpsertAllowance:
		f.allowances[[2]string{args[0].(string), args[1].(string)}] = parse(args[2].(string))
	case sqlinline.QUpdateAllowance:
		f.allowances[[2]string{args[0].(string), args[1].(string)}] = parse(args[2].(string))
	case sqlinline.QInsertEvent:
		f.events = append(f.events, []any{
			args[0].(uuid.UUID),
			args[1].(string),
			args[2].(int64),
			args[3].(time.Time),
			args[4].([]byte),
			args[5].(string),
			args[6].(string),
		})
	default:
		return pgconn.CommandTag{}, fmt.Errorf("unexpected exec %q", query)
	}
	return pgconn.CommandTag{}, nil
}

func (f *fakeLedgerDB) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	var (
		v  uint64
		ok bool
	)
	switch query {
	case sqlinline.QSelectBalance, sqlinline.QSelectBalanceForUpdate:
		v, ok = f.balances[args[0].(string)]
	case sqlinline.QSelectAllowance, sqlinline.QSelectAllowanceForUpdate:
		v, ok = f.allowances[[2]string{args[0].(string), args[1].(string)}]
	default:
		return simpleRow{scan: func(...any) error { return fmt.Errorf("unexpected query %q", query) }}
	}
	if !ok {
		return simpleRow{}
	}
	return simpleRow{scan: func(dest ...any) error {
		*dest[0].(*string) = fmt.Sprint(v)
		return nil
	}}
}

func (f *fakeLedgerDB) Query(_ context.Context, query string, args ...any) (pgx.Rows, error) {
	switch query {
	case sqlinline.QListEvents:
		return &sliceRows{rows: f.events}, nil
	case sqlinline.QListEventsByCampaign:
		var out [][]any
		for _, row := range f.events {
			if row[2].(int64) == args[0].(int64) && len(out) < args[1].(int) {
				out = append(out, row)
			}
		}
		return &sliceRows{rows: out}, nil
	}
	return nil, fmt.Errorf("unexpected query %q", query)
}

func parse(s string) uint64 {
	var v uint64
	fmt.Sscan(s, &v)
	return v
}
