package domain

import "time"

// Outcome describes which settlement path, if any, a campaign went through.
type Outcome string

const (
	OutcomeActive      Outcome = "active"
	OutcomeDistributed Outcome = "distributed"
	OutcomeRefunded    Outcome = "refunded"
)

// Campaign is a fundraising goal with a beneficiary, a deadline and a pool of donations.
type Campaign struct {
	ID          uint64
	Beneficiary Account
	GoalAmount  uint64
	Deadline    time.Time
	TotalRaised uint64
	Finalized   bool
	Outcome     Outcome
	Title       string
	Description string
	CreatedAt   time.Time
}

// GoalReached reports whether the pool covers the goal.
func (c Campaign) GoalReached() bool {
	return c.TotalRaised >= c.GoalAmount
}

// Expired reports whether now is strictly after the deadline.
func (c Campaign) Expired(now time.Time) bool {
	return now.After(c.Deadline)
}

// Eligibility summarises which settlement paths are open for a campaign right now.
// Contested is set when both paths are open on a funded campaign; whichever
// authorized call lands first decides the outcome.
type Eligibility struct {
	CanFinalize bool `json:"can_finalize"`
	CanCancel   bool `json:"can_cancel"`
	Contested   bool `json:"contested"`
}

// Refund is a single payout made while cancelling a campaign.
type Refund struct {
	Donor  Account `json:"donor"`
	Amount uint64  `json:"amount"`
}

// Settlement reports what a terminal operation paid out.
type Settlement struct {
	CampaignID        uint64   `json:"campaign_id"`
	Outcome           Outcome  `json:"outcome"`
	TotalRaised       uint64   `json:"total_raised"`
	Fee               uint64   `json:"fee,omitempty"`
	BeneficiaryAmount uint64   `json:"beneficiary_amount,omitempty"`
	TotalRefunded     uint64   `json:"total_refunded,omitempty"`
	Refunds           []Refund `json:"refunds,omitempty"`
}
