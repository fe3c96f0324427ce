package escrow

import (
	"context"
	"fmt"
	"math"

	"escrow/internal/domain"
)

// Donate pulls amount from donor into escrow and credits it to the campaign. The pull
// and the ledger update happen together or not at all.
func (e *Engine) Donate(ctx context.Context, campaignID uint64, donor domain.Account, amount uint64) error {
	st, err := e.lookup(campaignID)
	if err != nil {
		return err
	}
	if amount == 0 {
		return domain.ErrInvalidAmount
	}
	donor = donor.Normalize()
	if donor.IsZero() {
		return domain.ErrUnauthorized
	}

	if err := e.lockCampaign(ctx, st); err != nil {
		return err
	}
	defer st.mu.Unlock()

	c := &st.campaign
	if c.Expired(e.now()) {
		return domain.ErrDeadlinePassed
	}
	if c.Finalized {
		return domain.ErrAlreadyFinalized
	}
	if c.TotalRaised > math.MaxUint64-amount {
		return fmt.Errorf("%w: total raised would overflow", domain.ErrInvalidAmount)
	}

	event := e.newEvent(ctx, domain.EventDonationMade, campaignID, domain.DonationMade{
		CampaignID: campaignID,
		Donor:      donor,
		Amount:     amount,
	})
	if err := e.pull(ctx, donor, amount, event); err != nil {
		return err
	}
	st.record(donor, amount)

	e.logger.Debug().
		Uint64("campaign_id", campaignID).
		Str("donor", donor.String()).
		Uint64("amount", amount).
		Uint64("total_raised", c.TotalRaised).
		Msg("escrow: donation recorded")
	e.publish(ctx, event)
	return nil
}

// GetDonationAmount returns the donor's cumulative contribution to the campaign.
func (e *Engine) GetDonationAmount(campaignID uint64, donor domain.Account) (uint64, error) {
	st, err := e.lookup(campaignID)
	if err != nil {
		return 0, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.donations[donor.Normalize()], nil
}

// GetCampaignDonors returns the campaign's donors in first-donation order.
func (e *Engine) GetCampaignDonors(campaignID uint64) ([]domain.Account, error) {
	st, err := e.lookup(campaignID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]domain.Account, len(st.donors))
	copy(out, st.donors)
	return out, nil
}
