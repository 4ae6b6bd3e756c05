package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"darkGuardAPI/internal/datastore"
	"darkGuardAPI/internal/identity"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/jwt"
)

const (
	SessionCookie   = "__session"
	ClientUATCookie = "__client_uat"
)

// verifyToken is swapped out in tests.
var verifyToken = func(ctx context.Context, token string) (*clerk.SessionClaims, error) {
	return jwt.Verify(ctx, &jwt.VerifyParams{Token: token})
}

// withClaims stores verified claims for the identity layer and scopes store
// access to the signed-in user.
func withClaims(ctx context.Context, claims *clerk.SessionClaims) context.Context {
	ctx = clerk.ContextWithSessionClaims(ctx, claims)
	return datastore.WithOwner(ctx, claims.Subject)
}

// SessionMiddleware resolves the browser session from Clerk cookies. It never
// rejects: pages decide what an anonymous or pending visitor sees.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
			claims, err := verifyToken(ctx, c.Value)
			if err == nil {
				next.ServeHTTP(w, r.WithContext(withClaims(ctx, claims)))
				return
			}
			log.Printf("[Auth] session cookie rejected: %v", err)
		}

		// A signed-in client with no usable token is waiting for Clerk JS to
		// mint a fresh one.
		if c, err := r.Cookie(ClientUATCookie); err == nil && c.Value != "" && c.Value != "0" {
			ctx = identity.WithPending(ctx)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClerkAuthMiddleware validates Clerk bearer tokens for API clients.
func ClerkAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondWithError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			respondWithError(w, http.StatusUnauthorized, "Invalid authorization format. Use 'Bearer <token>'")
			return
		}

		claims, err := verifyToken(r.Context(), token)
		if err != nil {
			log.Printf("[Auth] token verification failed: %v", err)
			respondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

// GetUserID returns the Clerk user id of the verified session.
func GetUserID(ctx context.Context) (string, bool) {
	claims, ok := clerk.SessionClaimsFromContext(ctx)
	if !ok || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
