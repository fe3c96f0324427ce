package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"escrow/internal/domain"
	"escrow/internal/middleware"
	"escrow/internal/token"
)

func (a *App) TokenBalance(w http.ResponseWriter, r *http.Request) {
	account := domain.Account(chi.URLParam(r, "account")).Normalize()
	if account.IsZero() {
		a.error(w, http.StatusBadRequest, "bad_request", "account is required")
		return
	}
	balance, err := a.Token.BalanceOf(r.Context(), account)
	if err != nil {
		a.tokenFail(w, r, err)
		return
	}
	allowance, err := a.Token.Allowance(r.Context(), account)
	if err != nil {
		a.tokenFail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"account":   account,
		"balance":   balance,
		"allowance": allowance,
	})
}

type approveRequest struct {
	Amount uint64 `json:"amount"`
}

// TokenApprove sets how much the escrow may pull from the caller.
func (a *App) TokenApprove(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if !a.decode(w, r, &req) {
		return
	}
	owner := middleware.AccountFromContext(r.Context())
	if err := a.Token.Approve(r.Context(), owner, req.Amount); err != nil {
		a.tokenFail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"owner": owner, "allowance": req.Amount})
}

type mintRequest struct {
	To     domain.Account `json:"to"`
	Amount uint64         `json:"amount"`
}

// TokenMint credits test funds. Only the admin may mint.
func (a *App) TokenMint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if !a.decode(w, r, &req) {
		return
	}
	if middleware.AccountFromContext(r.Context()) != a.Engine.Admin() {
		a.fail(w, r, domain.ErrUnauthorized)
		return
	}
	to := req.To.Normalize()
	if to.IsZero() || req.Amount == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "to and a positive amount are required")
		return
	}
	if err := a.Token.Mint(r.Context(), to, req.Amount); err != nil {
		a.tokenFail(w, r, err)
		return
	}
	balance, _ := a.Token.BalanceOf(r.Context(), to)
	a.json(w, http.StatusOK, map[string]any{"account": to, "balance": balance})
}

func (a *App) tokenFail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, token.ErrBalanceOverflow):
		a.error(w, http.StatusConflict, string(domain.KindInvalidState), err.Error())
	case errors.Is(err, token.ErrInsufficientBalance), errors.Is(err, token.ErrInsufficientAllowance):
		a.error(w, http.StatusPaymentRequired, string(domain.KindExternalTransfer), err.Error())
	default:
		a.fail(w, r, err)
	}
}
