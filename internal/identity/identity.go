package identity

import (
	"context"
	"log"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/session"
	"github.com/clerk/clerk-sdk-go/v2/user"
)

type State int

const (
	// StatePending means a signed-in client exists but its session token has
	// not been (re)issued yet. The browser resolves it on its own.
	StatePending State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Session struct {
	State State
	User  *User
}

type contextKey int

const pendingKey contextKey = iota

// WithPending records that the request came from a signed-in client whose
// session token still has to be refreshed.
func WithPending(ctx context.Context) context.Context {
	return context.WithValue(ctx, pendingKey, true)
}

func IsPending(ctx context.Context) bool {
	pending, _ := ctx.Value(pendingKey).(bool)
	return pending
}

// Clerk resolves sessions from the claims that the auth middleware verified
// and stored in the request context.
type Clerk struct {
	fetchUser func(ctx context.Context, id string) (*clerk.User, error)
	revoke    func(ctx context.Context, sessionID string) error
}

func NewClerk() *Clerk {
	return &Clerk{
		fetchUser: user.Get,
		revoke: func(ctx context.Context, sessionID string) error {
			_, err := session.Revoke(ctx, &session.RevokeParams{ID: sessionID})
			return err
		},
	}
}

func (c *Clerk) Session(ctx context.Context) Session {
	claims, ok := clerk.SessionClaimsFromContext(ctx)
	if ok && claims.Subject != "" {
		u := &User{ID: claims.Subject}
		if cu, err := c.fetchUser(ctx, claims.Subject); err != nil {
			log.Printf("[Identity] Could not load user %s: %v", claims.Subject, err)
		} else {
			u.Email = PrimaryEmail(cu)
		}
		return Session{State: StateAuthenticated, User: u}
	}
	if IsPending(ctx) {
		return Session{State: StatePending}
	}
	return Session{State: StateAnonymous}
}

// SignOut revokes the current session. Without a session it does nothing.
func (c *Clerk) SignOut(ctx context.Context) error {
	claims, ok := clerk.SessionClaimsFromContext(ctx)
	if !ok || claims.SessionID == "" {
		return nil
	}
	return c.revoke(ctx, claims.SessionID)
}

// Email looks up the primary address of any user, for background jobs.
func (c *Clerk) Email(ctx context.Context, userID string) (string, error) {
	cu, err := c.fetchUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return PrimaryEmail(cu), nil
}

func PrimaryEmail(u *clerk.User) string {
	if u == nil || len(u.EmailAddresses) == 0 {
		return ""
	}
	if u.PrimaryEmailAddressID != nil {
		for _, addr := range u.EmailAddresses {
			if addr != nil && addr.ID == *u.PrimaryEmailAddressID {
				return addr.EmailAddress
			}
		}
	}
	if u.EmailAddresses[0] == nil {
		return ""
	}
	return u.EmailAddresses[0].EmailAddress
}
