package handlers

import (
	"net/http"

	"darkGuardAPI/internal/dashboard"
	"darkGuardAPI/internal/identity"
	"darkGuardAPI/internal/marketing"
	"darkGuardAPI/internal/toast"
)

type MarketingHandler struct {
	identity dashboard.IdentityProvider
	toasts   *toast.Cookie
}

func NewMarketingHandler(identity dashboard.IdentityProvider, toasts *toast.Cookie) *MarketingHandler {
	return &MarketingHandler{identity: identity, toasts: toasts}
}

type landingPage struct {
	marketing.Page
	Toasts []toast.Toast
}

func (h *MarketingHandler) Landing(w http.ResponseWriter, r *http.Request) {
	page := marketing.Landing()
	page.SignedIn = h.identity.Session(r.Context()).State == identity.StateAuthenticated

	toasts, _ := h.toasts.Take(w, r)
	render(w, http.StatusOK, "landing", landingPage{Page: page, Toasts: toasts})
}
