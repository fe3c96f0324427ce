package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType names an audit event.
type EventType string

const (
	EventCampaignCreated             EventType = "CampaignCreated"
	EventDonationMade                EventType = "DonationMade"
	EventCampaignFinalized           EventType = "CampaignFinalized"
	EventCampaignCancelled           EventType = "CampaignCancelled"
	EventPlatformFeeUpdated          EventType = "PlatformFeeUpdated"
	EventPlatformFeeRecipientUpdated EventType = "PlatformFeeRecipientUpdated"
)

// Event is one entry of the audit trail. CampaignID is zero for fee governance events.
type Event struct {
	ID         uuid.UUID
	Type       EventType
	CampaignID uint64
	OccurredAt time.Time
	Payload    any
	Meta       AuditMeta
}

type CampaignCreated struct {
	ID          uint64    `json:"id"`
	Beneficiary Account   `json:"beneficiary"`
	GoalAmount  uint64    `json:"goal_amount"`
	Deadline    time.Time `json:"deadline"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
}

type DonationMade struct {
	CampaignID uint64  `json:"campaign_id"`
	Donor      Account `json:"donor"`
	Amount     uint64  `json:"amount"`
}

type CampaignFinalized struct {
	CampaignID        uint64  `json:"campaign_id"`
	TotalRaised       uint64  `json:"total_raised"`
	Fee               uint64  `json:"fee"`
	BeneficiaryAmount uint64  `json:"beneficiary_amount"`
	FeeRecipient      Account `json:"fee_recipient"`
	Beneficiary       Account `json:"beneficiary"`
}

type CampaignCancelled struct {
	CampaignID    uint64   `json:"campaign_id"`
	TotalRefunded uint64   `json:"total_refunded"`
	Refunds       []Refund `json:"refunds"`
}

type PlatformFeeUpdated struct {
	Old uint16 `json:"old"`
	New uint16 `json:"new"`
}

type PlatformFeeRecipientUpdated struct {
	Old Account `json:"old"`
	New Account `json:"new"`
}

// DecodePayload restores the typed payload of an event read back from storage.
func DecodePayload(t EventType, raw []byte) (any, error) {
	var target any
	switch t {
	case EventCampaignCreated:
		target = &CampaignCreated{}
	case EventDonationMade:
		target = &DonationMade{}
	case EventCampaignFinalized:
		target = &CampaignFinalized{}
	case EventCampaignCancelled:
		target = &CampaignCancelled{}
	case EventPlatformFeeUpdated:
		target = &PlatformFeeUpdated{}
	case EventPlatformFeeRecipientUpdated:
		target = &PlatformFeeRecipientUpdated{}
	default:
		return nil, fmt.Errorf("unknown event type %q", t)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	switch p := target.(type) {
	case *CampaignCreated:
		return *p, nil
	case *DonationMade:
		return *p, nil
	case *CampaignFinalized:
		return *p, nil
	case *CampaignCancelled:
		return *p, nil
	case *PlatformFeeUpdated:
		return *p, nil
	case *PlatformFeeRecipientUpdated:
		return *p, nil
	}
	return nil, fmt.Errorf("unknown event type %q", t)
}
