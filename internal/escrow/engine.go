// Package escrow is the campaign-scoped ledger: it registers campaigns, records pooled
// donations and settles each campaign exactly once, either to its beneficiary or back to
// its donors.
package escrow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"escrow/internal/domain"
)

// Options configures an Engine.
type Options struct {
	// Admin is the administrative authority. It starts as the fee recipient.
	Admin domain.Account
	// Token moves funds in and out of escrow.
	Token domain.Token
	// Journal is the durable event log. When set, Token must be a domain.JournaledToken
	// and an operation whose event cannot be appended does not happen. Optional.
	Journal domain.EventPublisher
	// Publisher receives every committed event on a best-effort basis. Optional.
	Publisher domain.EventPublisher
	Logger    zerolog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type campaignState struct {
	mu        sync.Mutex
	campaign  domain.Campaign
	donations map[domain.Account]uint64
	donors    []domain.Account
	seen      map[domain.Account]bool
	// settling is non-nil while a payout for this campaign is in flight and is closed
	// when it completes.
	settling chan struct{}
}

func newCampaignState(c domain.Campaign) *campaignState {
	return &campaignState{
		campaign:  c,
		donations: make(map[domain.Account]uint64),
		seen:      make(map[domain.Account]bool),
	}
}

// record adds amount to the donor's cumulative total and registers first-time donors.
func (s *campaignState) record(donor domain.Account, amount uint64) {
	s.donations[donor] += amount
	s.campaign.TotalRaised += amount
	if !s.seen[donor] && s.donations[donor] > 0 {
		s.seen[donor] = true
		s.donors = append(s.donors, donor)
	}
}

// Engine owns every campaign, the fee configuration and the administrative authority.
// Mutations of one campaign are serialised by that campaign's lock; different campaigns
// proceed independently.
type Engine struct {
	mu        sync.RWMutex
	campaigns map[uint64]*campaignState
	nextID    uint64
	fees      domain.FeeConfig

	// createMu orders campaign creation; feeMu orders fee updates. Both are held
	// across the journal append.
	createMu sync.Mutex
	feeMu    sync.Mutex

	admin     domain.Account
	token     domain.Token
	journaled domain.JournaledToken
	journal   domain.EventPublisher
	publisher domain.EventPublisher
	logger    zerolog.Logger
	now       func() time.Time
}

// New constructs an engine with the default 2.5% fee paid to the admin.
func New(opts Options) (*Engine, error) {
	admin := opts.Admin.Normalize()
	if admin.IsZero() {
		return nil, errors.New("escrow: admin account is required")
	}
	if opts.Token == nil {
		return nil, errors.New("escrow: token is required")
	}
	var journaled domain.JournaledToken
	if opts.Journal != nil {
		jt, ok := opts.Token.(domain.JournaledToken)
		if !ok {
			return nil, errors.New("escrow: a journal requires a token that journals its transfers")
		}
		journaled = jt
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		campaigns: make(map[uint64]*campaignState),
		nextID:    1,
		fees:      domain.FeeConfig{FeeBps: domain.DefaultFeeBps, FeeRecipient: admin},
		admin:     admin,
		token:     opts.Token,
		journaled: journaled,
		journal:   opts.Journal,
		publisher: opts.Publisher,
		logger:    opts.Logger,
		now:       now,
	}, nil
}

// Admin returns the administrative authority.
func (e *Engine) Admin() domain.Account { return e.admin }

func (e *Engine) lookup(id uint64) (*campaignState, error) {
	e.mu.RLock()
	st, ok := e.campaigns[id]
	e.mu.RUnlock()
	if !ok {
		return nil, domain.ErrCampaignNotFound
	}
	return st, nil
}

type settlingKey struct{}

// withSettling marks ctx as running inside the payout of campaign id.
func withSettling(ctx context.Context, id uint64) context.Context {
	prev, _ := ctx.Value(settlingKey{}).([]uint64)
	ids := make([]uint64, len(prev), len(prev)+1)
	copy(ids, prev)
	return context.WithValue(ctx, settlingKey{}, append(ids, id))
}

func isSettling(ctx context.Context, id uint64) bool {
	ids, _ := ctx.Value(settlingKey{}).([]uint64)
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// lockCampaign takes st.mu once no payout for the campaign is in flight. A call made
// from inside that payout fails with ErrAlreadyFinalized instead of waiting on itself.
func (e *Engine) lockCampaign(ctx context.Context, st *campaignState) error {
	for {
		st.mu.Lock()
		if st.settling == nil {
			return nil
		}
		wait := st.settling
		st.mu.Unlock()
		if isSettling(ctx, st.campaign.ID) {
			return domain.ErrAlreadyFinalized
		}
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (e *Engine) newEvent(ctx context.Context, typ domain.EventType, campaignID uint64, payload any) domain.Event {
	return domain.Event{
		ID:         uuid.New(),
		Type:       typ,
		CampaignID: campaignID,
		OccurredAt: e.now().UTC(),
		Payload:    payload,
		Meta:       domain.AuditMetaFromContext(ctx),
	}
}

// pull moves a donation into escrow, journaling event with it when a journal is set.
func (e *Engine) pull(ctx context.Context, from domain.Account, amount uint64, event domain.Event) error {
	var err error
	if e.journaled != nil {
		err = e.journaled.TransferFromJournaled(ctx, from, amount, event)
	} else {
		err = e.token.TransferFrom(ctx, from, amount)
	}
	return transferError(err)
}

// pay issues a settlement's payouts as one batch, journaling event with it when a
// journal is set.
func (e *Engine) pay(ctx context.Context, payouts []domain.Payout, event domain.Event) error {
	var err error
	switch {
	case e.journaled != nil:
		err = e.journaled.TransferBatchJournaled(ctx, payouts, event)
	case len(payouts) > 0:
		err = e.token.TransferBatch(ctx, payouts)
	}
	return transferError(err)
}

// record appends an event that moves no funds to the journal.
func (e *Engine) record(ctx context.Context, event domain.Event) error {
	if e.journal == nil {
		return nil
	}
	if err := e.journal.Publish(ctx, event); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrJournalFailed, err)
	}
	return nil
}

func transferError(err error) error {
	if err == nil || errors.Is(err, domain.ErrJournalFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrTransferFailed, err)
}

// publish hands a committed event to the best-effort publisher.
func (e *Engine) publish(ctx context.Context, event domain.Event) {
	if e.publisher == nil {
		return
	}
	// The operation has committed; the audit write must not be cut short by the caller.
	if err := e.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		e.logger.Error().Err(err).
			Str("event", string(event.Type)).
			Uint64("campaign_id", event.CampaignID).
			Msg("escrow: publish event failed")
	}
}
