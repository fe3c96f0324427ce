package escrow

import (
	"context"
	"math/bits"

	"escrow/internal/domain"
)

// FeeConfig returns the current platform fee settings.
func (e *Engine) FeeConfig() domain.FeeConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.fees
}

// SetPlatformFee replaces the fee rate. Only the admin may call it.
func (e *Engine) SetPlatformFee(ctx context.Context, caller domain.Account, feeBps uint16) error {
	if caller.Normalize() != e.admin {
		return domain.ErrUnauthorized
	}
	if feeBps > domain.MaxFeeBps {
		return domain.ErrFeeTooHigh
	}
	e.feeMu.Lock()
	defer e.feeMu.Unlock()
	old := e.FeeConfig().FeeBps
	event := e.newEvent(ctx, domain.EventPlatformFeeUpdated, 0, domain.PlatformFeeUpdated{Old: old, New: feeBps})
	if err := e.record(ctx, event); err != nil {
		return err
	}
	e.mu.Lock()
	e.fees.FeeBps = feeBps
	e.mu.Unlock()

	e.logger.Info().Uint16("old", old).Uint16("new", feeBps).Msg("escrow: platform fee updated")
	e.publish(ctx, event)
	return nil
}

// SetPlatformFeeRecipient replaces the account fees are paid to. Only the admin may
// call it.
func (e *Engine) SetPlatformFeeRecipient(ctx context.Context, caller, recipient domain.Account) error {
	if caller.Normalize() != e.admin {
		return domain.ErrUnauthorized
	}
	recipient = recipient.Normalize()
	if recipient.IsZero() {
		return domain.ErrInvalidRecipient
	}
	e.feeMu.Lock()
	defer e.feeMu.Unlock()
	old := e.FeeConfig().FeeRecipient
	event := e.newEvent(ctx, domain.EventPlatformFeeRecipientUpdated, 0, domain.PlatformFeeRecipientUpdated{Old: old, New: recipient})
	if err := e.record(ctx, event); err != nil {
		return err
	}
	e.mu.Lock()
	e.fees.FeeRecipient = recipient
	e.mu.Unlock()

	e.logger.Info().Str("old", old.String()).Str("new", recipient.String()).Msg("escrow: fee recipient updated")
	e.publish(ctx, event)
	return nil
}

// SplitFee divides total into floor(total*feeBps/10000) and the remainder. The two
// parts always add up to total. Rates of 100% or more take the whole amount.
func SplitFee(total uint64, feeBps uint16) (fee, net uint64) {
	if feeBps >= domain.BpsDenominator {
		return total, 0
	}
	hi, lo := bits.Mul64(total, uint64(feeBps))
	fee, _ = bits.Div64(hi, lo, domain.BpsDenominator)
	return fee, total - fee
}
