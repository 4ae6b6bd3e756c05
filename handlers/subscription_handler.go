package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"darkGuardAPI/internal/dashboard"
	"darkGuardAPI/internal/types/subscription"
	"darkGuardAPI/middleware"

	"github.com/gorilla/mux"
)

// SubscriptionHandler is the JSON API over the same store the dashboard uses.
// Every successful mutation answers with the reloaded list.
type SubscriptionHandler struct {
	plans dashboard.Store
	guard *dashboard.Guard
}

func NewSubscriptionHandler(plans dashboard.Store, guard *dashboard.Guard) *SubscriptionHandler {
	return &SubscriptionHandler{plans: plans, guard: guard}
}

func (h *SubscriptionHandler) respondWithPlans(ctx context.Context, w http.ResponseWriter, code int) {
	plans, err := h.plans.List(ctx)
	if err != nil {
		log.Printf("[Subscriptions] list failed: %v", err)
		respondWithError(w, storeStatus(err), err.Error())
		return
	}
	if plans == nil {
		plans = []subscription.Plan{}
	}
	respondWithJSON(w, code, subscription.PlansResponse{
		Data: plans,
		Meta: dashboard.Summarize(plans).Summary(),
	})
}

func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	h.respondWithPlans(ctx, w, http.StatusOK)
}

func decodePlanRequest(w http.ResponseWriter, r *http.Request) (subscription.Input, bool) {
	var req subscription.PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return subscription.Input{}, false
	}
	in, err := dashboard.RequestInput(req)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return subscription.Input{}, false
	}
	return in, true
}

func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	in, ok := decodePlanRequest(w, r)
	if !ok {
		return
	}

	err := h.guard.Do(ctx, dashboard.CreateKey(userID, in), func(ctx context.Context) error {
		return h.plans.Create(ctx, userID, in)
	})
	if err != nil {
		log.Printf("[Subscriptions] create for %s failed: %v", userID, err)
		respondWithError(w, storeStatus(err), err.Error())
		return
	}
	h.respondWithPlans(ctx, w, http.StatusCreated)
}

func (h *SubscriptionHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	in, ok := decodePlanRequest(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	err := h.guard.Do(ctx, dashboard.UpdateKey(userID, id, in), func(ctx context.Context) error {
		return h.plans.Update(ctx, id, in)
	})
	if err != nil {
		log.Printf("[Subscriptions] update of %s failed: %v", id, err)
		respondWithError(w, storeStatus(err), err.Error())
		return
	}
	h.respondWithPlans(ctx, w, http.StatusOK)
}

func (h *SubscriptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id := mux.Vars(r)["id"]
	err := h.guard.Do(ctx, dashboard.DeleteKey(userID, id), func(ctx context.Context) error {
		return h.plans.Delete(ctx, id)
	})
	if err != nil {
		log.Printf("[Subscriptions] delete of %s failed: %v", id, err)
		respondWithError(w, storeStatus(err), err.Error())
		return
	}
	h.respondWithPlans(ctx, w, http.StatusOK)
}
