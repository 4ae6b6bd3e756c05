package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"darkGuardAPI/internal/types/subscription"
	"darkGuardAPI/internal/validation"
	"darkGuardAPI/middleware"
)

type DeviceRegistrar interface {
	Register(ctx context.Context, userID string, req subscription.RegisterDeviceRequest) error
}

type DeviceHandler struct {
	devices DeviceRegistrar
}

func NewDeviceHandler(devices DeviceRegistrar) *DeviceHandler {
	return &DeviceHandler{devices: devices}
}

// Register stores a push token that renewal reminders are sent to.
func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req subscription.RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validation.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.devices.Register(ctx, userID, req); err != nil {
		log.Printf("[Devices] register for %s failed: %v", userID, err)
		respondWithError(w, storeStatus(err), "Failed to register device")
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}
