package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"darkGuardAPI/internal/datastore"
	"darkGuardAPI/internal/types/subscription"

	"github.com/google/uuid"
)

const PlansTable = "subscription_plans"

type SubscriptionPlanService struct {
	store *datastore.Client
}

func NewSubscriptionPlanService(store *datastore.Client) *SubscriptionPlanService {
	return &SubscriptionPlanService{store: store}
}

// List returns the caller's plans, newest first.
func (s *SubscriptionPlanService) List(ctx context.Context) ([]subscription.Plan, error) {
	return datastore.SelectAll[subscription.Plan](ctx, s.store.From(PlansTable).Order("created_at", false))
}

func (s *SubscriptionPlanService) Create(ctx context.Context, userID string, in subscription.Input) error {
	values := in.Values()
	values["user_id"] = userID
	return s.store.From(PlansTable).Insert(ctx, values)
}

// Update overwrites the editable fields of one plan. A plan that does not
// exist, or belongs to someone else, is left alone without an error.
func (s *SubscriptionPlanService) Update(ctx context.Context, id string, in subscription.Input) error {
	if err := checkPlanID(id); err != nil {
		return err
	}
	n, err := s.store.From(PlansTable).Eq("id", id).Update(ctx, in.Values())
	if err != nil {
		return err
	}
	if n == 0 {
		log.Printf("[Subscriptions] update of %s matched no rows", id)
	}
	return nil
}

func (s *SubscriptionPlanService) Delete(ctx context.Context, id string) error {
	if err := checkPlanID(id); err != nil {
		return err
	}
	n, err := s.store.From(PlansTable).Eq("id", id).Delete(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		log.Printf("[Subscriptions] delete of %s matched no rows", id)
	}
	return nil
}

// Get returns one of the caller's plans.
func (s *SubscriptionPlanService) Get(ctx context.Context, id string) (*subscription.Plan, error) {
	if err := checkPlanID(id); err != nil {
		return nil, err
	}
	plans, err := datastore.SelectAll[subscription.Plan](ctx, s.store.From(PlansTable).Eq("id", id))
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, ErrPlanNotFound
	}
	return &plans[0], nil
}

// ExpiringOn lists active plans of every user that expire on the given day.
// It bypasses row ownership and is meant for background jobs only.
func (s *SubscriptionPlanService) ExpiringOn(ctx context.Context, day time.Time) ([]subscription.Plan, error) {
	q := s.store.From(PlansTable).
		Eq("status", subscription.StatusActive).
		Eq("expiry_date", day.Format(subscription.DateLayout)).
		Order("user_id", true)
	return datastore.SelectAll[subscription.Plan](datastore.AsService(ctx), q)
}

// PurgeUser removes every plan a user owns. Used when the account is deleted
// upstream.
func (s *SubscriptionPlanService) PurgeUser(ctx context.Context, userID string) (int64, error) {
	return s.store.From(PlansTable).Eq("user_id", userID).Delete(datastore.AsService(ctx))
}

var ErrPlanNotFound = &datastore.Error{Message: "subscription plan not found", Code: "PGRST116"}

// checkPlanID rejects malformed ids with the same error the database gives,
// without the round trip.
func checkPlanID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &datastore.Error{
			Message: fmt.Sprintf("invalid input syntax for type uuid: %q", id),
			Code:    "22P02",
		}
	}
	return nil
}
