package domain

const (
	// BpsDenominator is the number of basis points in 100%.
	BpsDenominator = 10000
	// MaxFeeBps caps the platform fee at 10%.
	MaxFeeBps = 1000
	// DefaultFeeBps is 2.5%.
	DefaultFeeBps = 250
)

// FeeConfig is the platform fee rate and where the fee is paid.
type FeeConfig struct {
	FeeBps       uint16  `json:"fee_bps"`
	FeeRecipient Account `json:"fee_recipient"`
}
