package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"darkGuardAPI/internal/notification"
	"darkGuardAPI/internal/types/subscription"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type planSource struct {
	byDay map[string][]subscription.Plan
	asked []string
	err   error
}

func (p *planSource) ExpiringOn(_ context.Context, day time.Time) ([]subscription.Plan, error) {
	key := day.Format(subscription.DateLayout)
	p.asked = append(p.asked, key)
	return p.byDay[key], p.err
}

type devices struct {
	mu        sync.Mutex
	tokens    map[string][]subscription.DeviceToken
	forgotten []string
}

func (d *devices) TokensFor(_ context.Context, userID string) ([]subscription.DeviceToken, error) {
	return d.tokens[userID], nil
}

func (d *devices) Forget(_ context.Context, token string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.forgotten = append(d.forgotten, token)
	return nil
}

type emails map[string]string

func (e emails) Email(_ context.Context, userID string) (string, error) {
	if addr, ok := e[userID]; ok {
		return addr, nil
	}
	return "", errors.New("user not found")
}

type pusher struct {
	mu    sync.Mutex
	sent  []notification.Reminder
	stale []string
}

func (p *pusher) SendPush(_ context.Context, tokens []subscription.DeviceToken, r notification.Reminder) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, r)
	return p.stale, nil
}

type mailer struct {
	mu   sync.Mutex
	sent map[string][]notification.Reminder
}

func (m *mailer) SendReminder(_ context.Context, to string, r notification.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sent == nil {
		m.sent = map[string][]notification.Reminder{}
	}
	m.sent[to] = append(m.sent[to], r)
	return nil
}

func TestRunOnceQueuesExpiringPlans(t *testing.T) {
	plans := &planSource{byDay: map[string][]subscription.Plan{
		"2024-06-08": {{ID: "p1", UserID: "user_1", ServiceName: "Netflix"}},
		"2024-06-02": {{ID: "p2", UserID: "user_2", ServiceName: "Spotify"}},
	}}
	dev := &devices{tokens: map[string][]subscription.DeviceToken{
		"user_1": {{Token: "tok-1"}},
	}}
	push := &pusher{stale: []string{"tok-1"}}
	mail := &mailer{}
	dispatcher := NewReminderDispatcher(Channels{
		Devices: dev,
		Emails:  emails{"user_1": "ada@example.com", "user_2": "bob@example.com"},
		Pusher:  push,
		Mailer:  mail,
	}, 2)
	s := NewReminderScheduler(plans, dispatcher, []int{7, 1})
	s.now = func() time.Time { return time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC) }

	queued, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	dispatcher.Stop()

	assert.Equal(t, 2, queued)
	assert.Equal(t, []string{"2024-06-08", "2024-06-02"}, plans.asked)
	require.Len(t, push.sent, 1)
	assert.Equal(t, 7, push.sent[0].DaysLeft)
	assert.Equal(t, []string{"tok-1"}, dev.forgotten)
	assert.Len(t, mail.sent["ada@example.com"], 1)
	require.Len(t, mail.sent["bob@example.com"], 1)
	assert.Equal(t, 1, mail.sent["bob@example.com"][0].DaysLeft)
}

func TestRunOnceStopsOnStoreError(t *testing.T) {
	plans := &planSource{err: errors.New("connection reset")}
	dispatcher := NewReminderDispatcher(Channels{}, 1)
	defer dispatcher.Stop()
	s := NewReminderScheduler(plans, dispatcher, []int{7, 1})

	queued, err := s.RunOnce(context.Background())

	assert.Error(t, err)
	assert.Zero(t, queued)
	assert.Len(t, plans.asked, 1)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	dispatcher := NewReminderDispatcher(Channels{}, 1)
	s := NewReminderScheduler(&planSource{}, dispatcher, []int{1})

	assert.Error(t, s.Start("every tuesday"))
	dispatcher.Stop()
}
