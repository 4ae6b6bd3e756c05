package handlers

import (
	"context"
	"log"
	"net/http"
	"slices"
	"time"

	"darkGuardAPI/internal/dashboard"
	"darkGuardAPI/internal/identity"
	"darkGuardAPI/internal/toast"
	"darkGuardAPI/internal/types/subscription"

	"github.com/gorilla/mux"
)

// DashboardHandler serves the dashboard screen. Mutations follow
// post/redirect/get; toasts ride along in a signed cookie.
type DashboardHandler struct {
	plans    dashboard.Store
	identity dashboard.IdentityProvider
	guard    *dashboard.Guard
	toasts   *toast.Cookie
	clerk    clerkScript
}

func NewDashboardHandler(plans dashboard.Store, identity dashboard.IdentityProvider, guard *dashboard.Guard, toasts *toast.Cookie, publishableKey string) *DashboardHandler {
	return &DashboardHandler{
		plans:    plans,
		identity: identity,
		guard:    guard,
		toasts:   toasts,
		clerk:    newClerkScript(publishableKey),
	}
}

// redirector is the HTTP Navigator: it remembers where the screen wants to go.
type redirector struct{ path string }

func (n *redirector) Navigate(path string) { n.path = path }

type screen struct {
	*dashboard.Dashboard
	toasts *toast.Buffer
	nav    *redirector
}

func (h *DashboardHandler) screen() screen {
	s := screen{toasts: &toast.Buffer{}, nav: &redirector{}}
	s.Dashboard = dashboard.New(dashboard.Deps{
		Store:     h.plans,
		Identity:  h.identity,
		Notifier:  s.toasts,
		Navigator: s.nav,
		Guard:     h.guard,
	})
	return s
}

type fieldSet struct {
	Prefix     string
	Form       dashboard.Form
	Currencies []string
}

type dashboardPage struct {
	User       *identity.User
	Plans      []subscription.Plan
	Stats      dashboard.Stats
	ShowAdd    bool
	Editing    *subscription.Plan
	Form       dashboard.Form
	AddFields  fieldSet
	EditFields fieldSet
	Statuses   []string
	Toasts     []toast.Toast
	Clerk      clerkScript
}

// withCurrent keeps a value that is not one of the offered options selectable,
// so re-saving a record never changes it silently.
func withCurrent(options []string, current string) []string {
	if current == "" || slices.Contains(options, current) {
		return options
	}
	return append(slices.Clone(options), current)
}

func (h *DashboardHandler) page(w http.ResponseWriter, r *http.Request, s screen, code int) {
	toasts, _ := h.toasts.Take(w, r)
	toasts = append(toasts, s.toasts.Toasts()...)

	currencies := withCurrent(subscription.Currencies, s.Form.Currency)
	render(w, code, "dashboard", dashboardPage{
		User:       s.User,
		Plans:      s.Plans,
		Stats:      s.Stats(),
		ShowAdd:    s.ShowAdd,
		Editing:    s.Editing,
		Form:       s.Form,
		AddFields:  fieldSet{Prefix: "", Form: s.Form, Currencies: currencies},
		EditFields: fieldSet{Prefix: "edit-", Form: s.Form, Currencies: currencies},
		Statuses:   withCurrent(subscription.Statuses, s.Form.Status),
		Toasts:     toasts,
		Clerk:      h.clerk,
	})
}

// finish hands pending toasts to the next page and redirects there.
func (h *DashboardHandler) finish(w http.ResponseWriter, r *http.Request, s screen, path string) {
	if err := h.toasts.Save(w, s.toasts.Toasts()); err != nil {
		log.Printf("[Dashboard] could not save toasts: %v", err)
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// gate runs the auth check for a request. It reports false when the response
// has already been written. keep restores the submitted form when a mutation
// arrives while the session token is being refreshed.
func (h *DashboardHandler) gate(w http.ResponseWriter, r *http.Request, s screen, keep func(s screen)) bool {
	switch s.Authenticate(r.Context()) {
	case dashboard.PhaseReady:
		return true
	case dashboard.PhaseRedirect:
		h.finish(w, r, s, s.nav.path)
	default:
		if r.Method == http.MethodGet {
			render(w, http.StatusOK, "loading", map[string]any{"Clerk": h.clerk})
			return false
		}
		s.toasts.Notify(r.Context(), sessionExpired)
		if keep == nil {
			h.finish(w, r, s, "/dashboard")
			return false
		}
		keep(s)
		h.page(w, r, s, http.StatusUnauthorized)
	}
	return false
}

var sessionExpired = toast.Toast{
	Title:       "Session expired",
	Description: "Your session was refreshed. Please submit again.",
	Destructive: true,
}

func mutationContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 10*time.Second)
}

func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s := h.screen()
	if !h.gate(w, r, s, nil) {
		return
	}
	if err := s.List(ctx); err != nil && ctx.Err() != nil {
		return
	}

	q := r.URL.Query()
	if id := q.Get("edit"); id != "" {
		if p, ok := s.Plan(id); ok {
			s.OpenEdit(p)
		}
	} else if q.Get("add") != "" {
		s.OpenAdd()
	}

	h.page(w, r, s, http.StatusOK)
}

func formFromRequest(r *http.Request) dashboard.Form {
	return dashboard.Form{
		ServiceName: r.PostFormValue("service_name"),
		PlanName:    r.PostFormValue("plan_name"),
		Amount:      r.PostFormValue("amount"),
		Currency:    r.PostFormValue("currency"),
		StartDate:   r.PostFormValue("start_date"),
		ExpiryDate:  r.PostFormValue("expiry_date"),
		Status:      r.PostFormValue("status"),
	}
}

func (h *DashboardHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := mutationContext(r)
	defer cancel()

	s := h.screen()
	keep := func(s screen) {
		s.OpenAdd()
		s.Form = formFromRequest(r)
	}
	if !h.gate(w, r, s, keep) {
		return
	}

	keep(s)
	if err := s.Create(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.List(ctx)
		h.page(w, r, s, http.StatusUnprocessableEntity)
		return
	}
	h.finish(w, r, s, "/dashboard")
}

func (h *DashboardHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := mutationContext(r)
	defer cancel()

	s := h.screen()
	id := mux.Vars(r)["id"]
	keep := func(s screen) {
		s.OpenEdit(subscription.Plan{ID: id})
		s.Form = formFromRequest(r)
	}
	if !h.gate(w, r, s, keep) {
		return
	}

	keep(s)
	if err := s.Update(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.List(ctx)
		if p, ok := s.Plan(id); ok {
			s.Editing = &p
		}
		h.page(w, r, s, http.StatusUnprocessableEntity)
		return
	}
	h.finish(w, r, s, "/dashboard")
}

func (h *DashboardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := mutationContext(r)
	defer cancel()

	s := h.screen()
	if !h.gate(w, r, s, nil) {
		return
	}

	if err := s.Delete(ctx, mux.Vars(r)["id"]); err != nil && ctx.Err() != nil {
		return
	}
	h.finish(w, r, s, "/dashboard")
}

// SignOut ends the Clerk session and clears its cookies.
func (h *DashboardHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s := h.screen()
	s.SignOut(ctx)
	clearSessionCookies(w)
	h.finish(w, r, s, s.nav.path)
}
