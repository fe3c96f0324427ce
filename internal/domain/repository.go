package domain

import "context"

// EventPublisher receives every event the engine commits.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// EventRepository persists the audit trail and reads it back for replay.
type EventRepository interface {
	EventPublisher
	ListAll(ctx context.Context) ([]Event, error)
	ListByCampaign(ctx context.Context, campaignID uint64, limit int) ([]Event, error)
}

// Token is the pull-payment stablecoin collaborator. TransferFrom pulls from a donor's
// allowance into escrow; TransferBatch pays out of escrow and must be atomic: either
// every payout lands or none does.
type Token interface {
	TransferFrom(ctx context.Context, from Account, amount uint64) error
	TransferBatch(ctx context.Context, payouts []Payout) error
}

// Payout is a single outbound transfer.
type Payout struct {
	To     Account
	Amount uint64
}

// JournaledToken moves funds and appends the matching event as one atomic step. If the
// event cannot be appended no funds move, and the error wraps ErrJournalFailed.
type JournaledToken interface {
	Token
	TransferFromJournaled(ctx context.Context, from Account, amount uint64, event Event) error
	TransferBatchJournaled(ctx context.Context, payouts []Payout, event Event) error
}

// TokenLedger exposes the collaborator's balance bookkeeping for the HTTP surface.
type TokenLedger interface {
	Token
	Transfer(ctx context.Context, to Account, amount uint64) error
	BalanceOf(ctx context.Context, account Account) (uint64, error)
	Allowance(ctx context.Context, owner Account) (uint64, error)
	Approve(ctx context.Context, owner Account, amount uint64) error
	Mint(ctx context.Context, to Account, amount uint64) error
}
