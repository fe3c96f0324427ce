package escrow

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"escrow/internal/domain"
)

// Keeper periodically finalizes campaigns that have met their goal. Failed campaigns
// are left alone even when finalizing them would be allowed: whether a failed campaign
// pays out or refunds is decided by whoever calls first, never by the keeper.
type Keeper struct {
	engine   *Engine
	interval time.Duration
	logger   zerolog.Logger
}

func NewKeeper(engine *Engine, interval time.Duration, logger zerolog.Logger) *Keeper {
	return &Keeper{engine: engine, interval: interval, logger: logger}
}

// Run sweeps on every tick until ctx is done.
func (k *Keeper) Run(ctx context.Context) error {
	if k.interval <= 0 {
		return errors.New("keeper: interval must be positive")
	}
	k.logger.Info().Dur("interval", k.interval).Msg("keeper: started")
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			k.logger.Info().Msg("keeper: stopped")
			return ctx.Err()
		case <-ticker.C:
			k.Sweep(ctx)
		}
	}
}

// Sweep finalizes every active campaign whose goal is met and returns how many it
// settled.
func (k *Keeper) Sweep(ctx context.Context) int {
	settled := 0
	for _, id := range k.engine.GetAllCampaignIDs() {
		if ctx.Err() != nil {
			break
		}
		c, err := k.engine.GetCampaign(id)
		if err != nil || c.Finalized || !c.GoalReached() {
			continue
		}
		if _, err := k.engine.FinalizeCampaign(ctx, id); err != nil {
			if errors.Is(err, domain.ErrAlreadyFinalized) {
				continue
			}
			k.logger.Error().Err(err).Uint64("campaign_id", id).Msg("keeper: finalize failed")
			continue
		}
		settled++
	}
	if settled > 0 {
		k.logger.Info().Int("settled", settled).Msg("keeper: sweep finished")
	}
	return settled
}
