package repo

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"escrow/internal/domain"
	"escrow/internal/sqlinline"
	"escrow/internal/token"
)

const escrowAccount domain.Account = "escrow"

func newTokenRepo(t *testing.T) (*TokenRepositoryPG, *fakeLedgerDB) {
	t.Helper()
	db := newFakeLedgerDB()
	return NewTokenRepository(db, escrowAccount), db
}

func mustBalance(t *testing.T, r *TokenRepositoryPG, account domain.Account) uint64 {
	t.Helper()
	v, err := r.BalanceOf(context.Background(), account)
	if err != nil {
		t.Fatalf("balance %s: %v", account, err)
	}
	return v
}

func TestTokenRepositoryPullAndPay(t *testing.T) {
	r, _ := newTokenRepo(t)
	ctx := context.Background()

	if got := mustBalance(t, r, "alice"); got != 0 {
		t.Fatalf("missing account should read zero, got %d", got)
	}
	if err := r.Mint(ctx, "alice", 500); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := r.Approve(ctx, "alice", 300); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := r.TransferFrom(ctx, "alice", 400); !errors.Is(err, token.ErrInsufficientAllowance) {
		t.Fatalf("expected allowance error, got %v", err)
	}
	if err := r.TransferFrom(ctx, "alice", 300); err != nil {
		t.Fatalf("transfer from: %v", err)
	}
	if got := mustBalance(t, r, escrowAccount); got != 300 {
		t.Fatalf("escrow = %d", got)
	}
	if allowance, _ := r.Allowance(ctx, "alice"); allowance != 0 {
		t.Fatalf("allowance not spent: %d", allowance)
	}

	err := r.TransferBatch(ctx, []domain.Payout{{To: "bob", Amount: 290}, {To: "fees", Amount: 10}})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if mustBalance(t, r, "bob") != 290 || mustBalance(t, r, "fees") != 10 || mustBalance(t, r, escrowAccount) != 0 {
		t.Fatal("batch payouts not applied")
	}
}

func TestTokenRepositoryBatchIsAtomic(t *testing.T) {
	r, db := newTokenRepo(t)
	ctx := context.Background()
	if err := r.Mint(ctx, escrowAccount, 100); err != nil {
		t.Fatalf("mint: %v", err)
	}

	err := r.TransferBatch(ctx, []domain.Payout{{To: "bob", Amount: 60}, {To: "carol", Amount: 60}})
	if !errors.Is(err, token.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if mustBalance(t, r, "bob") != 0 || mustBalance(t, r, escrowAccount) != 100 {
		t.Fatal("failed batch must not move funds")
	}

	db.failOn = sqlinline.QUpdateBalance
	if err := r.Transfer(ctx, "bob", 10); err == nil {
		t.Fatal("expected write failure")
	}
	db.failOn = ""
	if mustBalance(t, r, escrowAccount) != 100 {
		t.Fatal("failed write must roll back")
	}
}

func TestTokenRepositoryOverflow(t *testing.T) {
	r, _ := newTokenRepo(t)
	ctx := context.Background()
	if err := r.Mint(ctx, "alice", math.MaxUint64); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if got := mustBalance(t, r, "alice"); got != math.MaxUint64 {
		t.Fatalf("uint64 range not preserved: %d", got)
	}
	if err := r.Mint(ctx, "alice", 1); !errors.Is(err, token.ErrBalanceOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestTokenRepositoryJournaledTransfers(t *testing.T) {
	r, db := newTokenRepo(t)
	ctx := context.Background()
	_ = r.Mint(ctx, "alice", 100)
	_ = r.Approve(ctx, "alice", 100)
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	donation := domain.Event{
		Type:       domain.EventDonationMade,
		CampaignID: 7,
		OccurredAt: at,
		Payload:    domain.DonationMade{CampaignID: 7, Donor: "alice", Amount: 40},
	}
	if err := r.TransferFromJournaled(ctx, "alice", 40, donation); err != nil {
		t.Fatalf("pull: %v", err)
	}
	if len(db.events) != 1 || db.events[0][1] != string(domain.EventDonationMade) {
		t.Fatalf("events = %v", db.events)
	}

	// The event insert fails after the balance writes; the whole transaction rolls back.
	db.failOn = sqlinline.QInsertEvent
	err := r.TransferFromJournaled(ctx, "alice", 10, donation)
	if !errors.Is(err, domain.ErrJournalFailed) {
		t.Fatalf("err = %v, want ErrJournalFailed", err)
	}
	err = r.TransferBatchJournaled(ctx, []domain.Payout{{To: "bob", Amount: 40}}, domain.Event{
		Type:       domain.EventCampaignFinalized,
		CampaignID: 7,
		OccurredAt: at,
		Payload:    domain.CampaignFinalized{CampaignID: 7, TotalRaised: 40, BeneficiaryAmount: 40, Beneficiary: "bob"},
	})
	if !errors.Is(err, domain.ErrJournalFailed) {
		t.Fatalf("err = %v, want ErrJournalFailed", err)
	}
	db.failOn = ""
	if mustBalance(t, r, "alice") != 60 || mustBalance(t, r, escrowAccount) != 40 || mustBalance(t, r, "bob") != 0 {
		t.Fatal("failed journal append must not move funds")
	}
	if allowance, _ := r.Allowance(ctx, "alice"); allowance != 60 {
		t.Fatalf("allowance = %d", allowance)
	}
	if len(db.events) != 1 {
		t.Fatalf("events = %d, want 1", len(db.events))
	}

	// Nothing to pay still records the settlement.
	cancelled := domain.Event{
		Type:       domain.EventCampaignCancelled,
		CampaignID: 8,
		OccurredAt: at,
		Payload:    domain.CampaignCancelled{CampaignID: 8},
	}
	if err := r.TransferBatchJournaled(ctx, nil, cancelled); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	events, err := NewEventRepository(db).ListByCampaign(ctx, 8, 10)
	if err != nil || len(events) != 1 || events[0].Type != domain.EventCampaignCancelled {
		t.Fatalf("campaign 8 events = %+v, err = %v", events, err)
	}
}
