package escrow

import (
	"context"
	"time"

	"escrow/internal/domain"
)

func canFinalize(c domain.Campaign, now time.Time) bool {
	return !c.Finalized && (c.Expired(now) || c.GoalReached())
}

// A campaign has failed once its deadline passed without reaching the goal.
func canCancel(c domain.Campaign, now time.Time) bool {
	return !c.Finalized && c.Expired(now) && !c.GoalReached()
}

func eligibility(c domain.Campaign, now time.Time) domain.Eligibility {
	el := domain.Eligibility{
		CanFinalize: canFinalize(c, now),
		CanCancel:   canCancel(c, now),
	}
	el.Contested = el.CanFinalize && el.CanCancel && c.TotalRaised > 0
	return el
}

// CanFinalize reports whether FinalizeCampaign's timing condition holds.
func (e *Engine) CanFinalize(id uint64) bool {
	c, err := e.GetCampaign(id)
	return err == nil && canFinalize(c, e.now())
}

// CanCancel reports whether the campaign is in its failure state.
func (e *Engine) CanCancel(id uint64) bool {
	c, err := e.GetCampaign(id)
	return err == nil && canCancel(c, e.now())
}

// Eligibility reports both settlement paths at once. A contested campaign can be
// settled either way; the first authorized call decides.
func (e *Engine) Eligibility(id uint64) (domain.Eligibility, error) {
	c, err := e.GetCampaign(id)
	if err != nil {
		return domain.Eligibility{}, err
	}
	return eligibility(c, e.now()), nil
}

// FinalizeCampaign pays the pool to the beneficiary minus the platform fee. Anyone may
// call it once the deadline has passed or the goal has been met.
func (e *Engine) FinalizeCampaign(ctx context.Context, id uint64) (domain.Settlement, error) {
	st, err := e.lookup(id)
	if err != nil {
		return domain.Settlement{}, err
	}
	fees := e.FeeConfig()

	if err := e.lockCampaign(ctx, st); err != nil {
		return domain.Settlement{}, err
	}
	c := st.campaign
	if c.Finalized {
		st.mu.Unlock()
		return domain.Settlement{}, domain.ErrAlreadyFinalized
	}
	el := eligibility(c, e.now())
	if !el.CanFinalize {
		st.mu.Unlock()
		return domain.Settlement{}, domain.ErrNotFinalizable
	}
	if c.TotalRaised == 0 {
		st.mu.Unlock()
		return domain.Settlement{}, domain.ErrNoFunds
	}
	done := e.beginSettling(st)

	fee, net := SplitFee(c.TotalRaised, fees.FeeBps)
	var payouts []domain.Payout
	if fee > 0 {
		payouts = append(payouts, domain.Payout{To: fees.FeeRecipient, Amount: fee})
	}
	if net > 0 {
		payouts = append(payouts, domain.Payout{To: c.Beneficiary, Amount: net})
	}
	event := e.newEvent(ctx, domain.EventCampaignFinalized, id, domain.CampaignFinalized{
		CampaignID:        id,
		TotalRaised:       c.TotalRaised,
		Fee:               fee,
		BeneficiaryAmount: net,
		FeeRecipient:      fees.FeeRecipient,
		Beneficiary:       c.Beneficiary,
	})

	log := e.logger.With().
		Uint64("campaign_id", id).
		Uint64("total_raised", c.TotalRaised).
		Uint64("fee", fee).
		Uint64("beneficiary_amount", net).
		Bool("contested", el.Contested).
		Logger()
	if el.Contested {
		log.Warn().Msg("escrow: finalizing a failed campaign that could also be refunded")
	}

	err = e.pay(withSettling(ctx, id), payouts, event)
	st.mu.Lock()
	defer st.mu.Unlock()
	endSettling(st, done)
	if err != nil {
		log.Error().Err(err).Msg("escrow: finalize payout failed")
		return domain.Settlement{}, err
	}
	st.campaign.Finalized = true
	st.campaign.Outcome = domain.OutcomeDistributed
	log.Info().Msg("escrow: campaign finalized")
	e.publish(ctx, event)
	return domain.Settlement{
		CampaignID:        id,
		Outcome:           domain.OutcomeDistributed,
		TotalRaised:       c.TotalRaised,
		Fee:               fee,
		BeneficiaryAmount: net,
	}, nil
}

// CancelCampaign refunds every donor of a failed campaign. Only the beneficiary or the
// admin may call it.
func (e *Engine) CancelCampaign(ctx context.Context, caller domain.Account, id uint64) (domain.Settlement, error) {
	st, err := e.lookup(id)
	if err != nil {
		return domain.Settlement{}, err
	}
	caller = caller.Normalize()

	if err := e.lockCampaign(ctx, st); err != nil {
		return domain.Settlement{}, err
	}
	c := st.campaign
	if caller.IsZero() || (caller != c.Beneficiary && caller != e.admin) {
		st.mu.Unlock()
		return domain.Settlement{}, domain.ErrUnauthorized
	}
	if c.Finalized {
		st.mu.Unlock()
		return domain.Settlement{}, domain.ErrAlreadyFinalized
	}
	el := eligibility(c, e.now())
	if !el.CanCancel {
		st.mu.Unlock()
		return domain.Settlement{}, domain.ErrNotCancelable
	}

	refunds := make([]domain.Refund, 0, len(st.donors))
	payouts := make([]domain.Payout, 0, len(st.donors))
	var total uint64
	for _, donor := range st.donors {
		amount := st.donations[donor]
		refunds = append(refunds, domain.Refund{Donor: donor, Amount: amount})
		if amount > 0 {
			payouts = append(payouts, domain.Payout{To: donor, Amount: amount})
		}
		total += amount
	}
	done := e.beginSettling(st)

	event := e.newEvent(ctx, domain.EventCampaignCancelled, id, domain.CampaignCancelled{
		CampaignID:    id,
		TotalRefunded: total,
		Refunds:       refunds,
	})

	log := e.logger.With().
		Uint64("campaign_id", id).
		Str("caller", caller.String()).
		Uint64("total_refunded", total).
		Int("donors", len(refunds)).
		Bool("contested", el.Contested).
		Logger()
	if el.Contested {
		log.Warn().Msg("escrow: refunding a failed campaign that could also be finalized")
	}

	err = e.pay(withSettling(ctx, id), payouts, event)
	st.mu.Lock()
	defer st.mu.Unlock()
	endSettling(st, done)
	if err != nil {
		log.Error().Err(err).Msg("escrow: refund payout failed")
		return domain.Settlement{}, err
	}
	for _, r := range refunds {
		st.donations[r.Donor] = 0
	}
	st.campaign.TotalRaised = 0
	st.campaign.Finalized = true
	st.campaign.Outcome = domain.OutcomeRefunded
	log.Info().Msg("escrow: campaign cancelled")
	e.publish(ctx, event)
	return domain.Settlement{
		CampaignID:    id,
		Outcome:       domain.OutcomeRefunded,
		TotalRaised:   c.TotalRaised,
		TotalRefunded: total,
		Refunds:       refunds,
	}, nil
}

// beginSettling marks a payout in flight and releases st.mu, which the caller holds.
// Until endSettling, other mutations of the campaign wait and readers see it unsettled.
func (e *Engine) beginSettling(st *campaignState) chan struct{} {
	done := make(chan struct{})
	st.settling = done
	st.mu.Unlock()
	return done
}

// endSettling must be called with st.mu held.
func endSettling(st *campaignState, done chan struct{}) {
	st.settling = nil
	close(done)
}
