package dashboard

import (
	"context"
	"fmt"
	"time"

	"darkGuardAPI/internal/types/subscription"

	"golang.org/x/sync/singleflight"
)

const defaultMutationTimeout = 10 * time.Second

// Guard collapses identical mutations that are in flight at the same time,
// such as a double-clicked submit, into one remote call.
type Guard struct {
	group   singleflight.Group
	timeout time.Duration
}

func NewGuard(timeout time.Duration) *Guard {
	if timeout <= 0 {
		timeout = defaultMutationTimeout
	}
	return &Guard{timeout: timeout}
}

// Do runs fn once per key among concurrent callers. fn keeps running if the
// caller that started it goes away, bounded by the guard timeout; a caller
// whose ctx ends stops waiting and gets ctx.Err().
func (g *Guard) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if g == nil {
		return fn(ctx)
	}

	ch := g.group.DoChan(key, func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
		defer cancel()
		return nil, fn(runCtx)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CreateKey identifies a create by its owner and payload, so only an
// identical resubmission is collapsed.
func CreateKey(userID string, in subscription.Input) string {
	return "create:" + userID + ":" + payloadKey(in)
}

// UpdateKey covers the target and the new values. Two different edits of one
// record are separate calls.
func UpdateKey(userID, id string, in subscription.Input) string {
	return "update:" + userID + ":" + id + ":" + payloadKey(in)
}

func DeleteKey(userID, id string) string { return "delete:" + userID + ":" + id }

func payloadKey(in subscription.Input) string {
	return fmt.Sprintf("%q:%q:%v:%q:%s:%s:%q",
		in.ServiceName, in.PlanName, in.Amount, in.Currency,
		in.StartDate.Format(subscription.DateLayout), in.ExpiryDate.Format(subscription.DateLayout), in.Status)
}
