package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"darkGuardAPI/internal/datastore"
	"darkGuardAPI/internal/identity"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubVerify(t *testing.T, valid map[string]string) {
	t.Helper()
	orig := verifyToken
	verifyToken = func(ctx context.Context, token string) (*clerk.SessionClaims, error) {
		userID, ok := valid[token]
		if !ok {
			return nil, errors.New("token expired")
		}
		return &clerk.SessionClaims{
			RegisteredClaims: clerk.RegisteredClaims{Subject: userID},
			Claims:           clerk.Claims{SessionID: "sess_" + userID},
		}, nil
	}
	t.Cleanup(func() { verifyToken = orig })
}

type seen struct {
	userID  string
	owner   string
	pending bool
	called  bool
}

func capture(s *seen) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.called = true
		s.userID, _ = GetUserID(r.Context())
		s.owner, _ = datastore.Owner(r.Context())
		s.pending = identity.IsPending(r.Context())
	})
}

func TestSessionMiddleware_ValidCookie(t *testing.T) {
	stubVerify(t, map[string]string{"good": "user_1"})
	var s seen

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "good"})
	req.AddCookie(&http.Cookie{Name: ClientUATCookie, Value: "1700000000"})
	SessionMiddleware(capture(&s)).ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "user_1", s.userID)
	assert.Equal(t, "user_1", s.owner)
	assert.False(t, s.pending)
}

func TestSessionMiddleware_ExpiredTokenIsPending(t *testing.T) {
	stubVerify(t, nil)
	var s seen

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "stale"})
	req.AddCookie(&http.Cookie{Name: ClientUATCookie, Value: "1700000000"})
	SessionMiddleware(capture(&s)).ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, s.called)
	assert.Empty(t, s.userID)
	assert.Empty(t, s.owner)
	assert.True(t, s.pending)
}

func TestSessionMiddleware_SignedOutClient(t *testing.T) {
	stubVerify(t, nil)
	var s seen

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: ClientUATCookie, Value: "0"})
	SessionMiddleware(capture(&s)).ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, s.called)
	assert.False(t, s.pending)
	assert.Empty(t, s.userID)
}

func TestClerkAuthMiddleware(t *testing.T) {
	stubVerify(t, map[string]string{"good": "user_1"})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Token good", http.StatusUnauthorized},
		{"bad token", "Bearer bad", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s seen
			req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			ClerkAuthMiddleware(capture(&s)).ServeHTTP(rr, req)

			assert.Equal(t, tt.status, rr.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "user_1", s.owner)
			} else {
				assert.False(t, s.called)
				assert.Contains(t, rr.Body.String(), `"error"`)
			}
		})
	}
}
