package escrow

import (
	"fmt"

	"escrow/internal/domain"
)

// Replay rebuilds ledger state from an audit trail, oldest event first. It never touches
// the token and publishes nothing. Use it on a freshly constructed engine.
func (e *Engine) Replay(events []domain.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, ev := range events {
		if err := e.apply(ev); err != nil {
			return fmt.Errorf("escrow: replay event %d (%s %s): %w", i, ev.Type, ev.ID, err)
		}
	}
	return nil
}

// apply runs with e.mu held and no campaign in use.
func (e *Engine) apply(ev domain.Event) error {
	switch p := ev.Payload.(type) {
	case domain.CampaignCreated:
		if _, dup := e.campaigns[p.ID]; dup || p.ID == 0 {
			return fmt.Errorf("duplicate campaign id %d", p.ID)
		}
		e.campaigns[p.ID] = newCampaignState(domain.Campaign{
			ID:          p.ID,
			Beneficiary: p.Beneficiary,
			GoalAmount:  p.GoalAmount,
			Deadline:    p.Deadline,
			Outcome:     domain.OutcomeActive,
			Title:       p.Title,
			Description: p.Description,
			CreatedAt:   ev.OccurredAt,
		})
		if p.ID >= e.nextID {
			e.nextID = p.ID + 1
		}
	case domain.DonationMade:
		st, ok := e.campaigns[p.CampaignID]
		if !ok {
			return domain.ErrCampaignNotFound
		}
		if st.campaign.Finalized {
			return domain.ErrAlreadyFinalized
		}
		st.record(p.Donor, p.Amount)
	case domain.CampaignFinalized:
		st, ok := e.campaigns[p.CampaignID]
		if !ok {
			return domain.ErrCampaignNotFound
		}
		if st.campaign.Finalized {
			return domain.ErrAlreadyFinalized
		}
		if st.campaign.TotalRaised != p.TotalRaised {
			return fmt.Errorf("finalized total %d does not match ledger total %d", p.TotalRaised, st.campaign.TotalRaised)
		}
		st.campaign.Finalized = true
		st.campaign.Outcome = domain.OutcomeDistributed
	case domain.CampaignCancelled:
		st, ok := e.campaigns[p.CampaignID]
		if !ok {
			return domain.ErrCampaignNotFound
		}
		if st.campaign.Finalized {
			return domain.ErrAlreadyFinalized
		}
		if st.campaign.TotalRaised != p.TotalRefunded {
			return fmt.Errorf("refunded total %d does not match ledger total %d", p.TotalRefunded, st.campaign.TotalRaised)
		}
		for donor := range st.donations {
			st.donations[donor] = 0
		}
		st.campaign.TotalRaised = 0
		st.campaign.Finalized = true
		st.campaign.Outcome = domain.OutcomeRefunded
	case domain.PlatformFeeUpdated:
		if p.New > domain.MaxFeeBps {
			return domain.ErrFeeTooHigh
		}
		e.fees.FeeBps = p.New
	case domain.PlatformFeeRecipientUpdated:
		if p.New.IsZero() {
			return domain.ErrInvalidRecipient
		}
		e.fees.FeeRecipient = p.New
	default:
		return fmt.Errorf("unsupported payload %T", ev.Payload)
	}
	return nil
}
