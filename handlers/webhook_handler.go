package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	maxWebhookBody   = int64(65536)
	webhookTolerance = 5 * time.Minute
)

var (
	errMissingSignature = errors.New("missing webhook signature headers")
	errStaleWebhook     = errors.New("webhook timestamp outside tolerance")
	errBadSignature     = errors.New("no matching webhook signature")
)

// UserDataPurger removes everything a user owns in one table.
type UserDataPurger interface {
	PurgeUser(ctx context.Context, userID string) (int64, error)
}

type clerkEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type WebhookHandler struct {
	secret  []byte
	purgers []UserDataPurger
	now     func() time.Time
}

// NewWebhookHandler accepts the signing secret as shown in the Clerk
// dashboard, with or without its whsec_ prefix.
func NewWebhookHandler(secret string, purgers ...UserDataPurger) (*WebhookHandler, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, "whsec_"))
	if err != nil {
		return nil, fmt.Errorf("decode webhook secret: %w", err)
	}
	if len(key) == 0 {
		return nil, errors.New("webhook secret is empty")
	}
	return &WebhookHandler{secret: key, purgers: purgers, now: time.Now}, nil
}

// HandleClerkWebhook drops a user's plans and push tokens once the account is
// deleted in Clerk. Other events are acknowledged and ignored.
func (h *WebhookHandler) HandleClerkWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		log.Printf("[Webhook] read body: %v", err)
		respondWithError(w, http.StatusBadRequest, "Error reading body")
		return
	}

	if err := h.verify(r.Header, body); err != nil {
		log.Printf("[Webhook] rejected: %v", err)
		respondWithError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	var event clerkEvent
	if err := json.Unmarshal(body, &event); err != nil {
		respondWithError(w, http.StatusBadRequest, "Error parsing webhook")
		return
	}

	switch event.Type {
	case "user.deleted":
		var data struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(event.Data, &data); err != nil || data.ID == "" {
			respondWithError(w, http.StatusBadRequest, "Missing user id")
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()
		if err := h.purge(ctx, data.ID); err != nil {
			log.Printf("[Webhook] purge of %s failed: %v", data.ID, err)
			respondWithError(w, http.StatusInternalServerError, "Error processing webhook")
			return
		}
	default:
		log.Printf("[Webhook] ignoring event %s", event.Type)
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *WebhookHandler) purge(ctx context.Context, userID string) error {
	var removed int64
	for _, p := range h.purgers {
		n, err := p.PurgeUser(ctx, userID)
		if err != nil {
			return err
		}
		removed += n
	}
	log.Printf("[Webhook] removed %d rows of deleted user %s", removed, userID)
	return nil
}

// verify checks the svix headers Clerk signs its deliveries with. The
// signature header may carry several space separated "v1,<base64>" entries.
func (h *WebhookHandler) verify(header http.Header, body []byte) error {
	id := header.Get("svix-id")
	timestamp := header.Get("svix-timestamp")
	signatures := header.Get("svix-signature")
	if id == "" || timestamp == "" || signatures == "" {
		return errMissingSignature
	}

	sec, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return errStaleWebhook
	}
	if d := h.now().Sub(time.Unix(sec, 0)); d > webhookTolerance || d < -webhookTolerance {
		return errStaleWebhook
	}

	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(id + "." + timestamp + "."))
	mac.Write(body)
	expected := mac.Sum(nil)

	for _, entry := range strings.Fields(signatures) {
		version, encoded, ok := strings.Cut(entry, ",")
		if !ok || version != "v1" {
			continue
		}
		provided, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			continue
		}
		if hmac.Equal(expected, provided) {
			return nil
		}
	}
	return errBadSignature
}
