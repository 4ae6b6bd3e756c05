// Package workers runs the background renewal reminder job.
package workers

import (
	"context"
	"log"
	"sync"
	"time"

	"darkGuardAPI/internal/notification"
	"darkGuardAPI/internal/types/subscription"

	"github.com/robfig/cron/v3"
)

type PlanSource interface {
	ExpiringOn(ctx context.Context, day time.Time) ([]subscription.Plan, error)
}

type DeviceSource interface {
	TokensFor(ctx context.Context, userID string) ([]subscription.DeviceToken, error)
	Forget(ctx context.Context, token string) error
}

type EmailLookup interface {
	Email(ctx context.Context, userID string) (string, error)
}

type Pusher interface {
	SendPush(ctx context.Context, tokens []subscription.DeviceToken, r notification.Reminder) ([]string, error)
}

type Mailer interface {
	SendReminder(ctx context.Context, to string, r notification.Reminder) error
}

// Channels are the ways a reminder reaches its owner. A nil Pusher skips push.
type Channels struct {
	Devices DeviceSource
	Emails  EmailLookup
	Pusher  Pusher
	Mailer  Mailer
}

// ReminderDispatcher delivers reminders through a fixed pool of workers.
type ReminderDispatcher struct {
	channels Channels
	workers  int
	jobQueue chan notification.Reminder
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewReminderDispatcher(channels Channels, workers int) *ReminderDispatcher {
	if workers <= 0 {
		workers = 5
	}
	d := &ReminderDispatcher{
		channels: channels,
		workers:  workers,
		jobQueue: make(chan notification.Reminder, 100),
	}
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

func (d *ReminderDispatcher) worker() {
	defer d.wg.Done()
	for r := range d.jobQueue {
		d.deliver(r)
	}
}

func (d *ReminderDispatcher) deliver(r notification.Reminder) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	userID := r.Plan.UserID
	if d.channels.Pusher != nil && d.channels.Devices != nil {
		tokens, err := d.channels.Devices.TokensFor(ctx, userID)
		if err != nil {
			log.Printf("[Reminders] Could not load devices for %s: %v", userID, err)
		} else if len(tokens) > 0 {
			stale, err := d.channels.Pusher.SendPush(ctx, tokens, r)
			if err != nil {
				log.Printf("[Reminders] Push failed for %s: %v", userID, err)
			}
			for _, token := range stale {
				if err := d.channels.Devices.Forget(ctx, token); err != nil {
					log.Printf("[Reminders] Could not forget token %s: %v", token, err)
				}
			}
		}
	}

	if d.channels.Mailer != nil && d.channels.Emails != nil {
		email, err := d.channels.Emails.Email(ctx, userID)
		if err != nil || email == "" {
			log.Printf("[Reminders] No email for %s: %v", userID, err)
			return
		}
		if err := d.channels.Mailer.SendReminder(ctx, email, r); err != nil {
			log.Printf("[Reminders] Email failed for %s: %v", userID, err)
		}
	}
}

// Dispatch queues a reminder. It gives up when the queue stays full or ctx
// ends first.
func (d *ReminderDispatcher) Dispatch(ctx context.Context, r notification.Reminder) bool {
	select {
	case d.jobQueue <- r:
		return true
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
	}
	log.Printf("[Reminders] Failed to queue reminder for plan %s: queue full", r.Plan.ID)
	return false
}

// Stop waits for queued reminders to be delivered. Dispatch must not be
// called afterwards.
func (d *ReminderDispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.jobQueue) })
	d.wg.Wait()
}

// ReminderScheduler finds plans that expire a configured number of days from
// today and hands them to the dispatcher.
type ReminderScheduler struct {
	cron       *cron.Cron
	plans      PlanSource
	dispatcher *ReminderDispatcher
	days       []int
	now        func() time.Time
}

func NewReminderScheduler(plans PlanSource, dispatcher *ReminderDispatcher, days []int) *ReminderScheduler {
	return &ReminderScheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		plans:      plans,
		dispatcher: dispatcher,
		days:       days,
		now:        time.Now,
	}
}

func (s *ReminderScheduler) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		log.Printf("[Reminders] Starting reminder scan (Schedule: %s)...", schedule)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := s.RunOnce(ctx); err != nil {
			log.Printf("[Reminders] Scan failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("[Reminders] Scheduler started with schedule: %s", schedule)
	return nil
}

// Stop halts the schedule, waits for a running scan, then drains the
// dispatcher.
func (s *ReminderScheduler) Stop() {
	<-s.cron.Stop().Done()
	s.dispatcher.Stop()
}

// RunOnce scans every configured day once and returns how many reminders were
// queued.
func (s *ReminderScheduler) RunOnce(ctx context.Context) (int, error) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	queued := 0
	for _, days := range s.days {
		plans, err := s.plans.ExpiringOn(ctx, today.AddDate(0, 0, days))
		if err != nil {
			return queued, err
		}
		for _, p := range plans {
			if s.dispatcher.Dispatch(ctx, notification.Reminder{Plan: p, DaysLeft: days}) {
				queued++
			}
		}
	}

	if queued > 0 {
		log.Printf("[Reminders] Queued %d reminders", queued)
	}
	return queued, nil
}
