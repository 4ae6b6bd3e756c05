package handlers

import (
	"net/http"

	"darkGuardAPI/internal/dashboard"
	"darkGuardAPI/internal/identity"
	"darkGuardAPI/internal/toast"
	"darkGuardAPI/middleware"
)

type AuthHandler struct {
	identity dashboard.IdentityProvider
	toasts   *toast.Cookie
	clerk    clerkScript
}

func NewAuthHandler(identity dashboard.IdentityProvider, toasts *toast.Cookie, publishableKey string) *AuthHandler {
	return &AuthHandler{identity: identity, toasts: toasts, clerk: newClerkScript(publishableKey)}
}

// SignIn shows the Clerk sign-in widget. Signed-in users go straight to the
// dashboard.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	if h.identity.Session(r.Context()).State == identity.StateAuthenticated {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	toasts, _ := h.toasts.Take(w, r)
	render(w, http.StatusOK, "auth", map[string]any{
		"Clerk":  h.clerk,
		"Toasts": toasts,
	})
}

func clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{middleware.SessionCookie, middleware.ClientUATCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:   name,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
	}
}
