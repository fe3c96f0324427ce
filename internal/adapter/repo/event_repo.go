package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"escrow/internal/domain"
	"escrow/internal/infra"
	"escrow/internal/sqlinline"
)

const maxCampaignEvents = 1000

// EventRepositoryPG appends escrow events to the escrow_events table and reads them back
// in commit order.
type EventRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewEventRepository creates a new event repo.
func NewEventRepository(sql infra.SQLExecutor) *EventRepositoryPG {
	return &EventRepositoryPG{sql: sql}
}

// Publish appends event to the log.
func (r *EventRepositoryPG) Publish(ctx context.Context, event domain.Event) error {
	return insertEvent(ctx, r.sql, event)
}

// insertEvent writes one event through exec, which may be a pool or an open
// transaction.
func insertEvent(ctx context.Context, exec infra.SQLExecutor, event domain.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event.Type, err)
	}
	_, err = exec.Exec(ctx, sqlinline.QInsertEvent,
		event.ID,
		string(event.Type),
		int64(event.CampaignID),
		event.OccurredAt,
		payload,
		event.Meta.RequestID,
		event.Meta.Country,
	)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", event.Type, err)
	}
	return nil
}

// ListAll returns the full log, oldest first.
func (r *EventRepositoryPG) ListAll(ctx context.Context) ([]domain.Event, error) {
	return r.list(ctx, sqlinline.QListEvents)
}

// ListByCampaign returns up to limit events for one campaign, oldest first.
func (r *EventRepositoryPG) ListByCampaign(ctx context.Context, campaignID uint64, limit int) ([]domain.Event, error) {
	if limit <= 0 || limit > maxCampaignEvents {
		limit = maxCampaignEvents
	}
	return r.list(ctx, sqlinline.QListEventsByCampaign, int64(campaignID), limit)
}

func (r *EventRepositoryPG) list(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := r.sql.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Event
	for rows.Next() {
		var (
			event      domain.Event
			eventType  string
			campaignID int64
			occurredAt time.Time
			payload    []byte
		)
		if err := rows.Scan(&event.ID, &eventType, &campaignID, &occurredAt, &payload, &event.Meta.RequestID, &event.Meta.Country); err != nil {
			return nil, err
		}
		event.Type = domain.EventType(eventType)
		event.CampaignID = uint64(campaignID)
		event.OccurredAt = occurredAt.UTC()
		event.Payload, err = domain.DecodePayload(event.Type, payload)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", event.ID, err)
		}
		items = append(items, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

var _ domain.EventRepository = (*EventRepositoryPG)(nil)
