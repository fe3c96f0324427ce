package escrow

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"escrow/internal/domain"
)

// MultiPublisher fans an event out to several publishers. Every publisher sees the
// event even if an earlier one fails.
type MultiPublisher []domain.EventPublisher

func (m MultiPublisher) Publish(ctx context.Context, event domain.Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogPublisher writes each event to the logger.
type LogPublisher struct {
	Logger zerolog.Logger
}

func (l LogPublisher) Publish(_ context.Context, event domain.Event) error {
	l.Logger.Info().
		Str("event_id", event.ID.String()).
		Str("event", string(event.Type)).
		Uint64("campaign_id", event.CampaignID).
		Str("request_id", event.Meta.RequestID).
		Interface("payload", event.Payload).
		Msg("escrow event")
	return nil
}

// Recorder keeps published events in memory, in publish order.
type Recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *Recorder) Publish(_ context.Context, event domain.Event) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Event, len(r.events))
	copy(out, r.events)
	return out
}
