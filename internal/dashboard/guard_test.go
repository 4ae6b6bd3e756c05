package dashboard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"darkGuardAPI/internal/identity"
	"darkGuardAPI/internal/toast"
	"darkGuardAPI/internal/types/subscription"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_CallerGoneDoesNotCancelWork(t *testing.T) {
	g := NewGuard(time.Second)
	release := make(chan struct{})
	done := make(chan error, 1)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		done <- g.Do(ctx, "k", func(ctx context.Context) error {
			<-release
			return ctx.Err()
		})
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)

	var ran atomic.Bool
	close(release)
	require.Eventually(t, func() bool {
		err := g.Do(context.Background(), "k", func(context.Context) error {
			ran.Store(true)
			return nil
		})
		return err == nil && ran.Load()
	}, time.Second, 10*time.Millisecond)
}

func TestGuard_Timeout(t *testing.T) {
	g := NewGuard(20 * time.Millisecond)

	err := g.Do(context.Background(), "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestGuard_NilRunsDirectly(t *testing.T) {
	var g *Guard
	calls := 0

	err := g.Do(context.Background(), "k", func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestGuard_DifferentEditsOfOnePlanBothRun(t *testing.T) {
	store := &fakeStore{
		plans: []subscription.Plan{{ID: "p1", UserID: "user_1", ServiceName: "Netflix", PlanName: "Basic", Currency: "USD", Status: subscription.StatusActive}},
		block: make(chan struct{}),
	}
	guard := NewGuard(time.Second)
	ident := &fakeIdentity{session: identity.Session{
		State: identity.StateAuthenticated,
		User:  &identity.User{ID: "user_1"},
	}}

	tab := func(planName string) (*Dashboard, *toast.Buffer) {
		toasts := &toast.Buffer{}
		d := New(Deps{Store: store, Identity: ident, Notifier: toasts, Navigator: &fakeNav{}, Guard: guard})
		d.User = ident.session.User
		d.OpenEdit(store.plans[0])
		d.Form = netflixForm()
		d.Form.PlanName = planName
		return d, toasts
	}
	first, _ := tab("Premium")
	second, secondToasts := tab("Family")

	errs := make(chan error, 2)
	go func() { errs <- first.Update(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	go func() { errs <- second.Update(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	close(store.block)

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	assert.Equal(t, 2, store.updates)
	assert.Equal(t, "Subscription updated!", secondToasts.Toasts()[0].Title)
}

func TestGuardKeys(t *testing.T) {
	in, err := netflixForm().Input()
	require.NoError(t, err)
	other := in
	other.PlanName = "Family"

	assert.Equal(t, UpdateKey("user_1", "p1", in), UpdateKey("user_1", "p1", in))
	assert.NotEqual(t, UpdateKey("user_1", "p1", in), UpdateKey("user_1", "p1", other))
	assert.NotEqual(t, UpdateKey("user_1", "p1", in), UpdateKey("user_2", "p1", in))
	assert.NotEqual(t, DeleteKey("user_1", "p1"), DeleteKey("user_2", "p1"))
	assert.NotEqual(t, CreateKey("user_1", in), CreateKey("user_2", in))
}
