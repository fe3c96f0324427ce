// Package token holds stablecoin collaborators the escrow engine can pull donations
// from and pay settlements through.
package token

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"escrow/internal/domain"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrBalanceOverflow       = errors.New("balance overflow")
)

// TransferHook is called after a payout leaves escrow. It runs without any token lock
// held, so it may call back into the engine.
type TransferHook func(ctx context.Context, payout domain.Payout)

// Memory is an in-process token with balances and allowances granted to a single
// escrow spender.
type Memory struct {
	mu         sync.Mutex
	escrow     domain.Account
	balances   map[domain.Account]uint64
	allowances map[domain.Account]uint64
	onTransfer TransferHook
	journal    domain.EventPublisher
}

// NewMemory returns an empty token whose allowances are spendable by escrow.
func NewMemory(escrow domain.Account) *Memory {
	return &Memory{
		escrow:     escrow.Normalize(),
		balances:   make(map[domain.Account]uint64),
		allowances: make(map[domain.Account]uint64),
	}
}

// OnTransfer installs a hook fired after every payout.
func (m *Memory) OnTransfer(hook TransferHook) {
	m.mu.Lock()
	m.onTransfer = hook
	m.mu.Unlock()
}

// SetJournal installs the log the journaled transfers append to. The append runs under
// the token lock, before any balance changes.
func (m *Memory) SetJournal(journal domain.EventPublisher) {
	m.mu.Lock()
	m.journal = journal
	m.mu.Unlock()
}

func (m *Memory) Mint(_ context.Context, to domain.Account, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	to = to.Normalize()
	if m.balances[to] > math.MaxUint64-amount {
		return ErrBalanceOverflow
	}
	m.balances[to] += amount
	return nil
}

func (m *Memory) Approve(_ context.Context, owner domain.Account, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowances[owner.Normalize()] = amount
	return nil
}

func (m *Memory) BalanceOf(_ context.Context, account domain.Account) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[account.Normalize()], nil
}

func (m *Memory) Allowance(_ context.Context, owner domain.Account) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allowances[owner.Normalize()], nil
}

// TransferFrom pulls amount from the owner's allowance into escrow.
func (m *Memory) TransferFrom(ctx context.Context, from domain.Account, amount uint64) error {
	return m.transferFrom(ctx, from, amount, nil)
}

// TransferFromJournaled is TransferFrom that also appends event to the journal. A
// rejected append leaves balances and allowances untouched.
func (m *Memory) TransferFromJournaled(ctx context.Context, from domain.Account, amount uint64, event domain.Event) error {
	return m.transferFrom(ctx, from, amount, &event)
}

func (m *Memory) transferFrom(ctx context.Context, from domain.Account, amount uint64, event *domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	from = from.Normalize()
	if m.balances[from] < amount {
		return fmt.Errorf("transfer from %s: %w", from, ErrInsufficientBalance)
	}
	if m.allowances[from] < amount {
		return fmt.Errorf("transfer from %s: %w", from, ErrInsufficientAllowance)
	}
	if m.balances[m.escrow] > math.MaxUint64-amount {
		return ErrBalanceOverflow
	}
	if err := m.appendEvent(ctx, event); err != nil {
		return err
	}
	m.allowances[from] -= amount
	m.balances[from] -= amount
	m.balances[m.escrow] += amount
	return nil
}

// Transfer pays amount out of escrow.
func (m *Memory) Transfer(ctx context.Context, to domain.Account, amount uint64) error {
	return m.TransferBatch(ctx, []domain.Payout{{To: to, Amount: amount}})
}

// TransferBatch pays every payout or none of them.
func (m *Memory) TransferBatch(ctx context.Context, payouts []domain.Payout) error {
	return m.transferBatch(ctx, payouts, nil)
}

// TransferBatchJournaled is TransferBatch that also appends event to the journal, even
// when there is nothing to pay.
func (m *Memory) TransferBatchJournaled(ctx context.Context, payouts []domain.Payout, event domain.Event) error {
	return m.transferBatch(ctx, payouts, &event)
}

func (m *Memory) transferBatch(ctx context.Context, payouts []domain.Payout, event *domain.Event) error {
	m.mu.Lock()
	var total uint64
	for _, p := range payouts {
		if total > math.MaxUint64-p.Amount {
			m.mu.Unlock()
			return ErrBalanceOverflow
		}
		total += p.Amount
	}
	if m.balances[m.escrow] < total {
		m.mu.Unlock()
		return fmt.Errorf("transfer from escrow: %w", ErrInsufficientBalance)
	}
	// Check recipient overflow before moving anything.
	credits := make(map[domain.Account]uint64, len(payouts))
	for _, p := range payouts {
		to := p.To.Normalize()
		credits[to] += p.Amount
		if to != m.escrow && m.balances[to] > math.MaxUint64-credits[to] {
			m.mu.Unlock()
			return ErrBalanceOverflow
		}
	}
	if err := m.appendEvent(ctx, event); err != nil {
		m.mu.Unlock()
		return err
	}
	m.balances[m.escrow] -= total
	for to, amount := range credits {
		m.balances[to] += amount
	}
	hook := m.onTransfer
	m.mu.Unlock()

	if hook != nil {
		for _, p := range payouts {
			hook(ctx, p)
		}
	}
	return nil
}

// appendEvent must be called with m.mu held.
func (m *Memory) appendEvent(ctx context.Context, event *domain.Event) error {
	if event == nil || m.journal == nil {
		return nil
	}
	if err := m.journal.Publish(ctx, *event); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrJournalFailed, err)
	}
	return nil
}

var (
	_ domain.TokenLedger    = (*Memory)(nil)
	_ domain.JournaledToken = (*Memory)(nil)
)
