package escrow

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"escrow/internal/domain"
)

// CreateCampaignParams describes a new campaign.
type CreateCampaignParams struct {
	Beneficiary domain.Account
	GoalAmount  uint64
	Duration    time.Duration
	Title       string
	Description string
}

// CreateCampaign registers a campaign and returns its sequential id.
func (e *Engine) CreateCampaign(ctx context.Context, p CreateCampaignParams) (uint64, error) {
	beneficiary := p.Beneficiary.Normalize()
	if beneficiary.IsZero() {
		return 0, domain.ErrInvalidBeneficiary
	}
	if p.GoalAmount == 0 {
		return 0, domain.ErrInvalidGoal
	}
	if p.Duration <= 0 {
		return 0, domain.ErrInvalidDuration
	}
	title := normalizeText(p.Title)
	if title == "" {
		return 0, domain.ErrEmptyTitle
	}

	now := e.now()
	c := domain.Campaign{
		Beneficiary: beneficiary,
		GoalAmount:  p.GoalAmount,
		Deadline:    now.Add(p.Duration),
		Outcome:     domain.OutcomeActive,
		Title:       title,
		Description: norm.NFC.String(p.Description),
		CreatedAt:   now,
	}

	e.createMu.Lock()
	defer e.createMu.Unlock()
	e.mu.RLock()
	c.ID = e.nextID
	e.mu.RUnlock()

	event := e.newEvent(ctx, domain.EventCampaignCreated, c.ID, domain.CampaignCreated{
		ID:          c.ID,
		Beneficiary: beneficiary,
		GoalAmount:  c.GoalAmount,
		Deadline:    c.Deadline,
		Title:       c.Title,
		Description: c.Description,
	})
	if err := e.record(ctx, event); err != nil {
		return 0, err
	}

	e.mu.Lock()
	e.nextID = c.ID + 1
	st := newCampaignState(c)
	// Hold the new campaign until its creation event is out so no donation event can
	// overtake it in the audit trail.
	st.mu.Lock()
	e.campaigns[c.ID] = st
	e.mu.Unlock()
	defer st.mu.Unlock()

	e.logger.Info().
		Uint64("campaign_id", c.ID).
		Str("beneficiary", beneficiary.String()).
		Uint64("goal_amount", c.GoalAmount).
		Time("deadline", c.Deadline).
		Msg("escrow: campaign created")
	e.publish(ctx, event)
	return c.ID, nil
}

func normalizeText(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// GetCampaign returns a snapshot of the campaign.
func (e *Engine) GetCampaign(id uint64) (domain.Campaign, error) {
	st, err := e.lookup(id)
	if err != nil {
		return domain.Campaign{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.campaign, nil
}

// GetAllCampaignIDs returns every campaign id in ascending order.
func (e *Engine) GetAllCampaignIDs() []uint64 {
	e.mu.RLock()
	ids := make([]uint64, 0, len(e.campaigns))
	for id := range e.campaigns {
		ids = append(ids, id)
	}
	e.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ListCampaigns returns a page of campaigns ordered by id.
func (e *Engine) ListCampaigns(offset, limit int) []domain.Campaign {
	ids := e.GetAllCampaignIDs()
	if offset < 0 {
		offset = 0
	}
	if offset >= len(ids) {
		return nil
	}
	ids = ids[offset:]
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	out := make([]domain.Campaign, 0, len(ids))
	for _, id := range ids {
		if c, err := e.GetCampaign(id); err == nil {
			out = append(out, c)
		}
	}
	return out
}
