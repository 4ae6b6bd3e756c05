// Package toast carries short user-facing notifications from a handler to the
// next rendered page.
package toast

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Toast struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Destructive bool   `json:"destructive,omitempty"`
}

// Notifier is fire-and-forget: delivery problems never reach the caller.
type Notifier interface {
	Notify(ctx context.Context, t Toast)
}

// Buffer collects toasts raised while serving one request.
type Buffer struct {
	mu     sync.Mutex
	toasts []Toast
}

func (b *Buffer) Notify(_ context.Context, t Toast) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.toasts = append(b.toasts, t)
}

func (b *Buffer) Toasts() []Toast {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Toast, len(b.toasts))
	copy(out, b.toasts)
	return out
}

const (
	CookieName = "__toast"
	cookieTTL  = time.Minute
	// browsers drop cookies past 4KB; keep the newest toasts that fit
	maxCookieToasts = 5
)

var ErrNoToasts = errors.New("no toasts")

type claims struct {
	Toasts []Toast `json:"toasts"`
	jwt.RegisteredClaims
}

// Cookie moves toasts across a redirect in a signed, short-lived cookie.
type Cookie struct {
	secret []byte
	secure bool
	now    func() time.Time
}

func NewCookie(secret string, secure bool) *Cookie {
	return &Cookie{secret: []byte(secret), secure: secure, now: time.Now}
}

// Save writes toasts for the next request. An empty slice writes nothing.
func (c *Cookie) Save(w http.ResponseWriter, toasts []Toast) error {
	if len(toasts) == 0 {
		return nil
	}
	if len(toasts) > maxCookieToasts {
		toasts = toasts[len(toasts)-maxCookieToasts:]
	}

	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Toasts: toasts,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cookieTTL)),
		},
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(cookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Take reads and clears pending toasts. Tampered or expired cookies are
// cleared and reported as ErrNoToasts.
func (c *Cookie) Take(w http.ResponseWriter, r *http.Request) ([]Toast, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, ErrNoToasts
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})

	var parsed claims
	_, err = jwt.ParseWithClaims(cookie.Value, &parsed, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || len(parsed.Toasts) == 0 {
		return nil, ErrNoToasts
	}
	return parsed.Toasts, nil
}
