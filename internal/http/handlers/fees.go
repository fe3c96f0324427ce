package handlers

import (
	"net/http"

	"escrow/internal/domain"
	"escrow/internal/middleware"
)

func (a *App) FeesGet(w http.ResponseWriter, r *http.Request) {
	cfg := a.Engine.FeeConfig()
	a.json(w, http.StatusOK, map[string]any{
		"fee_bps":       cfg.FeeBps,
		"fee_recipient": cfg.FeeRecipient,
		"max_fee_bps":   domain.MaxFeeBps,
	})
}

type feeBpsRequest struct {
	FeeBps *uint16 `json:"fee_bps"`
}

func (a *App) FeesSetBps(w http.ResponseWriter, r *http.Request) {
	var req feeBpsRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.FeeBps == nil {
		a.error(w, http.StatusBadRequest, "bad_request", "fee_bps is required")
		return
	}
	if err := a.Engine.SetPlatformFee(r.Context(), middleware.AccountFromContext(r.Context()), *req.FeeBps); err != nil {
		a.fail(w, r, err)
		return
	}
	a.FeesGet(w, r)
}

type feeRecipientRequest struct {
	Recipient domain.Account `json:"recipient"`
}

func (a *App) FeesSetRecipient(w http.ResponseWriter, r *http.Request) {
	var req feeRecipientRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.Engine.SetPlatformFeeRecipient(r.Context(), middleware.AccountFromContext(r.Context()), req.Recipient); err != nil {
		a.fail(w, r, err)
		return
	}
	a.FeesGet(w, r)
}
