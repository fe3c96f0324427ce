package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"escrow/internal/domain"
	"escrow/internal/escrow"
	"escrow/internal/middleware"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type campaignView struct {
	ID          uint64             `json:"id"`
	Beneficiary domain.Account     `json:"beneficiary"`
	GoalAmount  uint64             `json:"goal_amount"`
	Deadline    time.Time          `json:"deadline"`
	TotalRaised uint64             `json:"total_raised"`
	Finalized   bool               `json:"finalized"`
	Outcome     domain.Outcome     `json:"outcome"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	CreatedAt   time.Time          `json:"created_at"`
	Eligibility domain.Eligibility `json:"eligibility"`
}

func (a *App) view(c domain.Campaign) campaignView {
	el, _ := a.Engine.Eligibility(c.ID)
	return campaignView{
		ID:          c.ID,
		Beneficiary: c.Beneficiary,
		GoalAmount:  c.GoalAmount,
		Deadline:    c.Deadline.UTC(),
		TotalRaised: c.TotalRaised,
		Finalized:   c.Finalized,
		Outcome:     c.Outcome,
		Title:       c.Title,
		Description: c.Description,
		CreatedAt:   c.CreatedAt.UTC(),
		Eligibility: el,
	}
}

func (a *App) CampaignsList(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultPageSize)
	if limit == 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	offset := queryInt(r, "offset", 0)
	page := a.Engine.ListCampaigns(offset, limit)
	items := make([]campaignView, 0, len(page))
	for _, c := range page {
		items = append(items, a.view(c))
	}
	a.json(w, http.StatusOK, map[string]any{
		"ids":   a.Engine.GetAllCampaignIDs(),
		"items": items,
	})
}

type createCampaignRequest struct {
	Beneficiary     domain.Account `json:"beneficiary"`
	GoalAmount      uint64         `json:"goal_amount"`
	DurationSeconds int64          `json:"duration_seconds"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
}

func (a *App) CampaignsCreate(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.DurationSeconds > int64(maxDuration/time.Second) {
		a.fail(w, r, domain.ErrInvalidDuration)
		return
	}
	id, err := a.Engine.CreateCampaign(r.Context(), escrow.CreateCampaignParams{
		Beneficiary: req.Beneficiary,
		GoalAmount:  req.GoalAmount,
		Duration:    time.Duration(req.DurationSeconds) * time.Second,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	c, err := a.Engine.GetCampaign(id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, a.view(c))
}

// maxDuration keeps duration_seconds from overflowing time.Duration.
const maxDuration = 100 * 365 * 24 * time.Hour

func (a *App) CampaignsGet(w http.ResponseWriter, r *http.Request) {
	id, err := campaignIDParam(r)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	c, err := a.Engine.GetCampaign(id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, a.view(c))
}

func (a *App) CampaignsDonors(w http.ResponseWriter, r *http.Request) {
	id, err := campaignIDParam(r)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	donors, err := a.Engine.GetCampaignDonors(id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"campaign_id": id, "donors": donors})
}

func (a *App) CampaignsDonation(w http.ResponseWriter, r *http.Request) {
	id, err := campaignIDParam(r)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	donor := domain.Account(chi.URLParam(r, "donor")).Normalize()
	amount, err := a.Engine.GetDonationAmount(id, donor)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"campaign_id": id, "donor": donor, "amount": amount})
}

type donateRequest struct {
	Amount uint64 `json:"amount"`
}

// CampaignsDonate pulls amount from the caller's approved allowance into the campaign.
func (a *App) CampaignsDonate(w http.ResponseWriter, r *http.Request) {
	id, err := campaignIDParam(r)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	var req donateRequest
	if !a.decode(w, r, &req) {
		return
	}
	donor := middleware.AccountFromContext(r.Context())
	if err := a.Engine.Donate(r.Context(), id, donor, req.Amount); err != nil {
		a.fail(w, r, err)
		return
	}
	total, _ := a.Engine.GetDonationAmount(id, donor)
	a.json(w, http.StatusCreated, map[string]any{
		"campaign_id": id,
		"donor":       donor,
		"amount":      req.Amount,
		"donor_total": total,
	})
}

func (a *App) CampaignsFinalize(w http.ResponseWriter, r *http.Request) {
	id, err := campaignIDParam(r)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	settlement, err := a.Engine.FinalizeCampaign(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, settlement)
}

func (a *App) CampaignsCancel(w http.ResponseWriter, r *http.Request) {
	id, err := campaignIDParam(r)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	caller := middleware.AccountFromContext(r.Context())
	settlement, err := a.Engine.CancelCampaign(r.Context(), caller, id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, settlement)
}

type eventView struct {
	ID         string           `json:"id"`
	Type       domain.EventType `json:"type"`
	OccurredAt time.Time        `json:"occurred_at"`
	Payload    any              `json:"payload"`
	RequestID  string           `json:"request_id,omitempty"`
	Country    string           `json:"country,omitempty"`
}

// CampaignsEvents returns the campaign's audit trail from the event store.
func (a *App) CampaignsEvents(w http.ResponseWriter, r *http.Request) {
	if a.Events == nil {
		a.error(w, http.StatusNotImplemented, "not_implemented", "event store disabled")
		return
	}
	id, err := campaignIDParam(r)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if _, err := a.Engine.GetCampaign(id); err != nil {
		a.fail(w, r, err)
		return
	}
	events, err := a.Events.ListByCampaign(r.Context(), id, queryInt(r, "limit", 0))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items := make([]eventView, 0, len(events))
	for _, e := range events {
		items = append(items, eventView{
			ID:         e.ID.String(),
			Type:       e.Type,
			OccurredAt: e.OccurredAt,
			Payload:    e.Payload,
			RequestID:  e.Meta.RequestID,
			Country:    e.Meta.Country,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
