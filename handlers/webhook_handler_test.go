package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var webhookKey = []byte("0123456789abcdef0123456789abcdef")

type purgeRecorder struct {
	users []string
	n     int64
	err   error
}

func (p *purgeRecorder) PurgeUser(_ context.Context, userID string) (int64, error) {
	p.users = append(p.users, userID)
	return p.n, p.err
}

func newWebhook(t *testing.T, now time.Time, purgers ...UserDataPurger) *WebhookHandler {
	t.Helper()
	h, err := NewWebhookHandler("whsec_"+base64.StdEncoding.EncodeToString(webhookKey), purgers...)
	require.NoError(t, err)
	h.now = func() time.Time { return now }
	return h
}

func signedDelivery(body string, sent time.Time, key []byte) *http.Request {
	ts := strconv.FormatInt(sent.Unix(), 10)
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte("msg_1." + ts + "." + body))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", strings.NewReader(body))
	req.Header.Set("svix-id", "msg_1")
	req.Header.Set("svix-timestamp", ts)
	req.Header.Set("svix-signature", "v1,bm90LXRoaXMtb25l v1,"+sig)
	return req
}

func TestWebhook_UserDeletedPurgesEveryTable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	plans := &purgeRecorder{n: 3}
	devices := &purgeRecorder{n: 1}
	h := newWebhook(t, now, plans, devices)

	rr := httptest.NewRecorder()
	h.HandleClerkWebhook(rr, signedDelivery(`{"type":"user.deleted","data":{"id":"user_1"}}`, now, webhookKey))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"user_1"}, plans.users)
	assert.Equal(t, []string{"user_1"}, devices.users)
}

func TestWebhook_OtherEventsAreAcknowledged(t *testing.T) {
	now := time.Now()
	plans := &purgeRecorder{}
	h := newWebhook(t, now, plans)

	rr := httptest.NewRecorder()
	h.HandleClerkWebhook(rr, signedDelivery(`{"type":"user.created","data":{"id":"user_1"}}`, now, webhookKey))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, plans.users)
}

func TestWebhook_RejectsBadDeliveries(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	body := `{"type":"user.deleted","data":{"id":"user_1"}}`

	cases := map[string]*http.Request{
		"wrong key": signedDelivery(body, now, []byte("another-key")),
		"stale":     signedDelivery(body, now.Add(-10*time.Minute), webhookKey),
		"unsigned":  httptest.NewRequest(http.MethodPost, "/webhooks/clerk", strings.NewReader(body)),
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			plans := &purgeRecorder{}
			rr := httptest.NewRecorder()
			newWebhook(t, now, plans).HandleClerkWebhook(rr, req)

			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Empty(t, plans.users)
		})
	}
}

func TestWebhook_PurgeFailureAsksForRetry(t *testing.T) {
	now := time.Now()
	h := newWebhook(t, now, &purgeRecorder{err: errors.New("connection reset")})

	rr := httptest.NewRecorder()
	h.HandleClerkWebhook(rr, signedDelivery(`{"type":"user.deleted","data":{"id":"user_1"}}`, now, webhookKey))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestNewWebhookHandler_RejectsBadSecret(t *testing.T) {
	_, err := NewWebhookHandler("whsec_not base64!")
	assert.Error(t, err)
	_, err = NewWebhookHandler("")
	assert.Error(t, err)
}
