// Package sqlinline holds every SQL statement the service runs. Each statement starts
// with a unique "--sql <uuid>" marker line that infra.SQLRunner logs and requires.
package sqlinline

const QInsertEvent = `--sql 62bd9161-0e15-4360-b9b0-eb68149e53b8
insert into escrow_events(
  id,
  event_type,
  campaign_id,
  occurred_at,
  payload,
  request_id,
  country
) values (
  $1::uuid,
  $2::text,
  $3::bigint,
  $4::timestamptz,
  $5::jsonb,
  nullif($6::text, ''),
  nullif($7::text, '')
);
`

const QListEvents = `--sql 1ab0244a-af75-4002-a591-21c0a8a7a651
select id, event_type, campaign_id, occurred_at, payload, coalesce(request_id, ''), coalesce(country, '')
from escrow_events
order by seq asc;
`

const QListEventsByCampaign = `--sql 42493473-62e2-4827-af01-d708a733f5fd
select id, event_type, campaign_id, occurred_at, payload, coalesce(request_id, ''), coalesce(country, '')
from escrow_events
where campaign_id = $1::bigint
order by seq asc
limit $2::int;
`
