package services

import (
	"context"
	"errors"
	"log"
	"time"

	"darkGuardAPI/internal/datastore"
	"darkGuardAPI/internal/types/subscription"
)

const DevicesTable = "device_tokens"

type DeviceService struct {
	store *datastore.Client
}

func NewDeviceService(store *datastore.Client) *DeviceService {
	return &DeviceService{store: store}
}

// Register stores a push token for the user. Registering a known token again
// refreshes it. A token still held by another account moves to this user,
// since only the device currently signed in can present it.
func (s *DeviceService) Register(ctx context.Context, userID string, req subscription.RegisterDeviceRequest) error {
	platform := req.Platform
	if platform == "" {
		platform = "android"
	}
	values := map[string]any{
		"token":     req.Token,
		"user_id":   userID,
		"platform":  platform,
		"last_used": time.Now().UTC(),
	}

	err := s.store.From(DevicesTable).Upsert(ctx, values, "token")
	var storeErr *datastore.Error
	if !errors.As(err, &storeErr) || storeErr.Code != "42501" {
		return err
	}
	if owner, ok := datastore.Owner(ctx); !ok || owner != userID {
		return err
	}
	log.Printf("[Devices] token moved to %s from its previous owner", userID)
	return s.store.From(DevicesTable).Upsert(datastore.AsService(ctx), values, "token")
}

// TokensFor returns every registered token of a user. Background jobs only.
func (s *DeviceService) TokensFor(ctx context.Context, userID string) ([]subscription.DeviceToken, error) {
	q := s.store.From(DevicesTable).Eq("user_id", userID).Order("last_used", false)
	return datastore.SelectAll[subscription.DeviceToken](datastore.AsService(ctx), q)
}

// Forget drops a token the push provider reported as no longer registered.
func (s *DeviceService) Forget(ctx context.Context, token string) error {
	_, err := s.store.From(DevicesTable).Eq("token", token).Delete(datastore.AsService(ctx))
	return err
}

func (s *DeviceService) PurgeUser(ctx context.Context, userID string) (int64, error) {
	return s.store.From(DevicesTable).Eq("user_id", userID).Delete(datastore.AsService(ctx))
}
