package repo

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/jackc/pgx/v5"

	"escrow/internal/domain"
	"escrow/internal/infra"
	"escrow/internal/sqlinline"
	"escrow/internal/token"
)

// TokenRepositoryPG is a Postgres-backed stablecoin ledger. Every mutation runs in one
// transaction and locks the touched balance rows in account order.
type TokenRepositoryPG struct {
	db     infra.Transactor
	sql    infra.SQLExecutor
	escrow domain.Account
}

// NewTokenRepository creates a ledger whose allowances are spendable by escrow.
func NewTokenRepository(db interface {
	infra.Transactor
	infra.SQLExecutor
}, escrow domain.Account) *TokenRepositoryPG {
	return &TokenRepositoryPG{db: db, sql: db, escrow: escrow.Normalize()}
}

func (r *TokenRepositoryPG) BalanceOf(ctx context.Context, account domain.Account) (uint64, error) {
	return readAmount(r.sql.QueryRow(ctx, sqlinline.QSelectBalance, account.Normalize().String()))
}

func (r *TokenRepositoryPG) Allowance(ctx context.Context, owner domain.Account) (uint64, error) {
	return readAmount(r.sql.QueryRow(ctx, sqlinline.QSelectAllowance, owner.Normalize().String(), r.escrow.String()))
}

func (r *TokenRepositoryPG) Approve(ctx context.Context, owner domain.Account, amount uint64) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpsertAllowance, owner.Normalize().String(), r.escrow.String(), formatAmount(amount))
	if err != nil {
		return fmt.Errorf("approve %s: %w", owner, err)
	}
	return nil
}

func (r *TokenRepositoryPG) Mint(ctx context.Context, to domain.Account, amount uint64) error {
	to = to.Normalize()
	return r.db.InTx(ctx, pgx.TxOptions{}, func(tx infra.SQLExecutor) error {
		balances, err := lockBalances(ctx, tx, to)
		if err != nil {
			return err
		}
		if balances[to] > math.MaxUint64-amount {
			return token.ErrBalanceOverflow
		}
		return writeBalance(ctx, tx, to, balances[to]+amount)
	})
}

// TransferFrom pulls amount from the owner's allowance into escrow.
func (r *TokenRepositoryPG) TransferFrom(ctx context.Context, from domain.Account, amount uint64) error {
	return r.db.InTx(ctx, pgx.TxOptions{}, func(tx infra.SQLExecutor) error {
		return r.transferFrom(ctx, tx, from.Normalize(), amount)
	})
}

// TransferFromJournaled pulls amount and appends event to escrow_events in the same
// transaction.
func (r *TokenRepositoryPG) TransferFromJournaled(ctx context.Context, from domain.Account, amount uint64, event domain.Event) error {
	return r.db.InTx(ctx, pgx.TxOptions{}, func(tx infra.SQLExecutor) error {
		if err := r.transferFrom(ctx, tx, from.Normalize(), amount); err != nil {
			return err
		}
		return journal(ctx, tx, event)
	})
}

func (r *TokenRepositoryPG) transferFrom(ctx context.Context, tx infra.SQLExecutor, from domain.Account, amount uint64) error {
	allowance, err := readAmount(tx.QueryRow(ctx, sqlinline.QSelectAllowanceForUpdate, from.String(), r.escrow.String()))
	if err != nil {
		return err
	}
	balances, err := lockBalances(ctx, tx, from, r.escrow)
	if err != nil {
		return err
	}
	if balances[from] < amount {
		return fmt.Errorf("transfer from %s: %w", from, token.ErrInsufficientBalance)
	}
	if allowance < amount {
		return fmt.Errorf("transfer from %s: %w", from, token.ErrInsufficientAllowance)
	}
	if from == r.escrow {
		_, err = tx.Exec(ctx, sqlinline.QUpdateAllowance, from.String(), r.escrow.String(), formatAmount(allowance-amount))
		return err
	}
	if balances[r.escrow] > math.MaxUint64-amount {
		return token.ErrBalanceOverflow
	}
	if _, err := tx.Exec(ctx, sqlinline.QUpdateAllowance, from.String(), r.escrow.String(), formatAmount(allowance-amount)); err != nil {
		return err
	}
	if err := writeBalance(ctx, tx, from, balances[from]-amount); err != nil {
		return err
	}
	return writeBalance(ctx, tx, r.escrow, balances[r.escrow]+amount)
}

// Transfer pays amount out of escrow.
func (r *TokenRepositoryPG) Transfer(ctx context.Context, to domain.Account, amount uint64) error {
	return r.TransferBatch(ctx, []domain.Payout{{To: to, Amount: amount}})
}

// TransferBatch pays every payout in a single transaction.
func (r *TokenRepositoryPG) TransferBatch(ctx context.Context, payouts []domain.Payout) error {
	if len(payouts) == 0 {
		return nil
	}
	return r.db.InTx(ctx, pgx.TxOptions{}, func(tx infra.SQLExecutor) error {
		return r.transferBatch(ctx, tx, payouts)
	})
}

// TransferBatchJournaled pays every payout and appends event in one transaction. The
// event is written even when there is nothing to pay.
func (r *TokenRepositoryPG) TransferBatchJournaled(ctx context.Context, payouts []domain.Payout, event domain.Event) error {
	return r.db.InTx(ctx, pgx.TxOptions{}, func(tx infra.SQLExecutor) error {
		if len(payouts) > 0 {
			if err := r.transferBatch(ctx, tx, payouts); err != nil {
				return err
			}
		}
		return journal(ctx, tx, event)
	})
}

func (r *TokenRepositoryPG) transferBatch(ctx context.Context, tx infra.SQLExecutor, payouts []domain.Payout) error {
	credits := make(map[domain.Account]uint64, len(payouts))
	accounts := []domain.Account{r.escrow}
	var total uint64
	for _, p := range payouts {
		to := p.To.Normalize()
		if total > math.MaxUint64-p.Amount {
			return token.ErrBalanceOverflow
		}
		total += p.Amount
		if _, ok := credits[to]; !ok {
			accounts = append(accounts, to)
		}
		credits[to] += p.Amount
	}
	balances, err := lockBalances(ctx, tx, accounts...)
	if err != nil {
		return err
	}
	if balances[r.escrow] < total {
		return fmt.Errorf("transfer from escrow: %w", token.ErrInsufficientBalance)
	}
	balances[r.escrow] -= total
	for to, amount := range credits {
		if balances[to] > math.MaxUint64-amount {
			return token.ErrBalanceOverflow
		}
		balances[to] += amount
	}
	for account, balance := range balances {
		if err := writeBalance(ctx, tx, account, balance); err != nil {
			return err
		}
	}
	return nil
}

func journal(ctx context.Context, tx infra.SQLExecutor, event domain.Event) error {
	if err := insertEvent(ctx, tx, event); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrJournalFailed, err)
	}
	return nil
}

// lockBalances creates missing rows and locks every account in sorted order so
// concurrent transfers cannot deadlock.
func lockBalances(ctx context.Context, tx infra.SQLExecutor, accounts ...domain.Account) (map[domain.Account]uint64, error) {
	sorted := make([]string, 0, len(accounts))
	seen := make(map[domain.Account]bool, len(accounts))
	for _, a := range accounts {
		if !seen[a] {
			seen[a] = true
			sorted = append(sorted, a.String())
		}
	}
	sort.Strings(sorted)

	balances := make(map[domain.Account]uint64, len(sorted))
	for _, account := range sorted {
		if _, err := tx.Exec(ctx, sqlinline.QEnsureBalance, account); err != nil {
			return nil, fmt.Errorf("ensure balance %s: %w", account, err)
		}
		balance, err := readAmount(tx.QueryRow(ctx, sqlinline.QSelectBalanceForUpdate, account))
		if err != nil {
			return nil, fmt.Errorf("lock balance %s: %w", account, err)
		}
		balances[domain.Account(account)] = balance
	}
	return balances, nil
}

func writeBalance(ctx context.Context, tx infra.SQLExecutor, account domain.Account, balance uint64) error {
	if _, err := tx.Exec(ctx, sqlinline.QUpdateBalance, account.String(), formatAmount(balance)); err != nil {
		return fmt.Errorf("update balance %s: %w", account, err)
	}
	return nil
}

// readAmount scans a text-encoded amount. A missing row reads as zero.
func readAmount(row pgx.Row) (uint64, error) {
	var raw string
	if err := row.Scan(&raw); err != nil {
		if infra.IsNoRows(err) {
			return 0, nil
		}
		return 0, err
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	return v, nil
}

func formatAmount(v uint64) string {
	return strconv.FormatUint(v, 10)
}

var (
	_ domain.TokenLedger    = (*TokenRepositoryPG)(nil)
	_ domain.JournaledToken = (*TokenRepositoryPG)(nil)
)
