package notification

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"os"

	"darkGuardAPI/internal/types/subscription"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type FCMService struct {
	client messageSender
}

// NewFCMService initializes FCMService from base64 encoded service account
// JSON, falling back to a local key file.
func NewFCMService(ctx context.Context, encodedCreds, localFilePath string) (*FCMService, error) {
	var opt option.ClientOption

	if encodedCreds != "" {
		decoded, err := base64.StdEncoding.DecodeString(encodedCreds)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 firebase credentials: %w", err)
		}
		opt = option.WithCredentialsJSON(decoded)
		log.Println("[FCM] Initializing from FCM_SERVICE_ACCOUNT_JSON")
	} else {
		if _, err := os.Stat(localFilePath); err != nil {
			return nil, fmt.Errorf("local firebase file not found: %s, and FCM_SERVICE_ACCOUNT_JSON is not set", localFilePath)
		}
		opt = option.WithCredentialsFile(localFilePath)
		log.Printf("[FCM] Initializing from local file: %s", localFilePath)
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client}, nil
}

var ErrAllPushesFailed = errors.New("all push notifications failed")

// SendPush sends one message per token. It returns the tokens FCM reports as
// unregistered so the caller can forget them.
func (s *FCMService) SendPush(ctx context.Context, tokens []subscription.DeviceToken, r Reminder) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	var stale []string
	sent, failed := 0, 0
	for _, t := range tokens {
		message := &messaging.Message{
			Token: t.Token,
			Notification: &messaging.Notification{
				Title: r.Title(),
				Body:  r.Body(),
			},
			Data: r.Data(),
		}
		switch t.Platform {
		case "ios":
			message.APNS = &messaging.APNSConfig{
				Payload: &messaging.APNSPayload{Aps: &messaging.Aps{Sound: "default"}},
			}
		default:
			message.Android = &messaging.AndroidConfig{
				Priority:     "high",
				Notification: &messaging.AndroidNotification{Sound: "default"},
			}
		}

		// sent one by one; the batch endpoint is gone
		if _, err := s.client.Send(ctx, message); err != nil {
			if messaging.IsUnregistered(err) {
				stale = append(stale, t.Token)
			}
			log.Printf("[FCM] Failed to send to token %s: %v", t.Token, err)
			failed++
			continue
		}
		sent++
	}

	log.Printf("[FCM] Sent %d messages, %d failed", sent, failed)
	if sent == 0 && failed > 0 {
		return stale, ErrAllPushesFailed
	}
	return stale, nil
}
