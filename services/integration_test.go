package services

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"darkGuardAPI/internal/datastore"
	"darkGuardAPI/internal/types/subscription"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB connects to TEST_DATABASE_URL and applies the schema. The test
// is skipped when no database is configured.
func setupTestDB(t *testing.T) *datastore.Client {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx))
	require.NoError(t, datastore.Migrate(ctx, pool))

	t.Cleanup(func() {
		ctx := context.Background()
		for _, table := range []string{PlansTable, DevicesTable} {
			if _, err := pool.Exec(ctx, "DELETE FROM "+table+" WHERE user_id LIKE 'user_test_%'"); err != nil {
				t.Logf("Warning: failed to cleanup %s: %v", table, err)
			}
		}
		pool.Close()
	})

	return datastore.New(pool,
		datastore.WithRowOwner(PlansTable, "user_id"),
		datastore.WithRowOwner(DevicesTable, "user_id"),
	)
}

func testUser(suffix string) string {
	return "user_test_" + suffix + "_" + time.Now().Format("20060102150405.000000")
}

func TestIntegration_PlanLifecycle(t *testing.T) {
	store := setupTestDB(t)
	plans := NewSubscriptionPlanService(store)

	alice := testUser("alice")
	bob := testUser("bob")
	aliceCtx := datastore.WithOwner(context.Background(), alice)
	bobCtx := datastore.WithOwner(context.Background(), bob)

	require.NoError(t, plans.Create(aliceCtx, alice, sampleInput()))
	second := sampleInput()
	second.ServiceName = "Spotify"
	second.Amount = 9.99
	require.NoError(t, plans.Create(aliceCtx, alice, second))

	list, err := plans.List(aliceCtx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Spotify", list[0].ServiceName, "newest first")
	assert.InDelta(t, 9.99, list[0].Amount, 0.001)
	assert.Equal(t, alice, list[0].UserID)

	others, err := plans.List(bobCtx)
	require.NoError(t, err)
	assert.Empty(t, others)

	// Someone else's plan is untouched and the call still succeeds.
	target := list[1].ID
	stolen := sampleInput()
	stolen.PlanName = "Stolen"
	require.NoError(t, plans.Update(bobCtx, target, stolen))
	require.NoError(t, plans.Delete(bobCtx, target))

	got, err := plans.Get(aliceCtx, target)
	require.NoError(t, err)
	assert.Equal(t, "Premium", got.PlanName)

	edited := sampleInput()
	edited.Status = subscription.StatusCancelled
	require.NoError(t, plans.Update(aliceCtx, target, edited))
	got, err = plans.Get(aliceCtx, target)
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusCancelled, got.Status)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt) || got.UpdatedAt.Equal(got.CreatedAt))

	require.NoError(t, plans.Delete(aliceCtx, target))
	_, err = plans.Get(aliceCtx, target)
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestIntegration_ExpiringOnSeesEveryUser(t *testing.T) {
	store := setupTestDB(t)
	plans := NewSubscriptionPlanService(store)

	day := time.Date(2031, 6, 15, 0, 0, 0, 0, time.UTC)
	for _, user := range []string{testUser("a"), testUser("b")} {
		in := sampleInput()
		in.ExpiryDate = day
		require.NoError(t, plans.Create(datastore.WithOwner(context.Background(), user), user, in))
	}
	cancelled := sampleInput()
	cancelled.ExpiryDate = day
	cancelled.Status = subscription.StatusCancelled
	user := testUser("c")
	require.NoError(t, plans.Create(datastore.WithOwner(context.Background(), user), user, cancelled))

	expiring, err := plans.ExpiringOn(context.Background(), day)
	require.NoError(t, err)

	var ours int
	for _, p := range expiring {
		assert.Equal(t, subscription.StatusActive, p.Status)
		if strings.HasPrefix(p.UserID, "user_test_") {
			ours++
		}
	}
	assert.Equal(t, 2, ours)
}

func TestIntegration_DevicesAndPurge(t *testing.T) {
	store := setupTestDB(t)
	plans := NewSubscriptionPlanService(store)
	devices := NewDeviceService(store)

	user := testUser("purge")
	ctx := datastore.WithOwner(context.Background(), user)
	token := "tok_" + user

	require.NoError(t, devices.Register(ctx, user, subscription.RegisterDeviceRequest{Token: token}))
	require.NoError(t, devices.Register(ctx, user, subscription.RegisterDeviceRequest{Token: token, Platform: "ios"}))
	require.NoError(t, plans.Create(ctx, user, sampleInput()))

	tokens, err := devices.TokensFor(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "ios", tokens[0].Platform)

	n, err := plans.PurgeUser(context.Background(), user)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = devices.PurgeUser(context.Background(), user)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	left, err := plans.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestIntegration_DeviceMovesToNewAccount(t *testing.T) {
	store := setupTestDB(t)
	devices := NewDeviceService(store)

	before := testUser("before")
	after := testUser("after")
	token := "tok_" + before

	require.NoError(t, devices.Register(datastore.WithOwner(context.Background(), before), before, subscription.RegisterDeviceRequest{Token: token}))
	require.NoError(t, devices.Register(datastore.WithOwner(context.Background(), after), after, subscription.RegisterDeviceRequest{Token: token}))

	old, err := devices.TokensFor(context.Background(), before)
	require.NoError(t, err)
	assert.Empty(t, old)
	moved, err := devices.TokensFor(context.Background(), after)
	require.NoError(t, err)
	require.Len(t, moved, 1)
	assert.Equal(t, token, moved[0].Token)
}
