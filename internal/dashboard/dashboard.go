// Package dashboard implements the subscription dashboard screen: the auth
// gate, the plan list with its summary figures, and the add/edit/delete flow.
//
// A Dashboard holds the state of one screen. Every mutation is followed by a
// full reload of the list; nothing is patched locally.
package dashboard

import (
	"context"
	"errors"
	"log"

	"darkGuardAPI/internal/identity"
	"darkGuardAPI/internal/toast"
	"darkGuardAPI/internal/types/subscription"
)

const (
	AuthPath = "/auth"
	HomePath = "/"
)

var ErrNotSignedIn = errors.New("you must be signed in")

type Store interface {
	List(ctx context.Context) ([]subscription.Plan, error)
	Create(ctx context.Context, userID string, in subscription.Input) error
	Update(ctx context.Context, id string, in subscription.Input) error
	Delete(ctx context.Context, id string) error
}

type IdentityProvider interface {
	Session(ctx context.Context) identity.Session
	SignOut(ctx context.Context) error
}

type Navigator interface {
	Navigate(path string)
}

type Phase int

const (
	// PhaseLoading: identity not resolved yet, nothing was fetched.
	PhaseLoading Phase = iota
	// PhaseRedirect: no signed-in user, navigation to the auth screen was issued.
	PhaseRedirect
	PhaseReady
)

type Deps struct {
	Store     Store
	Identity  IdentityProvider
	Notifier  toast.Notifier
	Navigator Navigator
	Guard     *Guard
}

type Dashboard struct {
	deps Deps

	User    *identity.User
	Plans   []subscription.Plan
	Loading bool
	ShowAdd bool
	Editing *subscription.Plan
	Form    Form
}

func New(deps Deps) *Dashboard {
	return &Dashboard{
		deps:    deps,
		Plans:   []subscription.Plan{},
		Loading: true,
		Form:    DefaultForm(),
	}
}

// Authenticate resolves the current session without fetching anything.
func (d *Dashboard) Authenticate(ctx context.Context) Phase {
	s := d.deps.Identity.Session(ctx)
	switch s.State {
	case identity.StatePending:
		return PhaseLoading
	case identity.StateAuthenticated:
		d.User = s.User
		return PhaseReady
	}
	d.deps.Navigator.Navigate(AuthPath)
	return PhaseRedirect
}

// Mount runs the auth gate and, for a signed-in user, the initial fetch.
func (d *Dashboard) Mount(ctx context.Context) Phase {
	phase := d.Authenticate(ctx)
	if phase == PhaseReady {
		d.List(ctx)
	}
	return phase
}

// List replaces the plans with a fresh copy from the store. On failure the
// previous plans stay in place.
func (d *Dashboard) List(ctx context.Context) error {
	plans, err := d.deps.Store.List(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	d.Loading = false
	if err != nil {
		d.fail(ctx, "Error fetching subscriptions", err)
		return err
	}
	if plans == nil {
		plans = []subscription.Plan{}
	}
	d.Plans = plans
	return nil
}

func (d *Dashboard) Stats() Stats {
	return Summarize(d.Plans)
}

func (d *Dashboard) ResetForm() {
	d.Form = DefaultForm()
	d.Editing = nil
}

func (d *Dashboard) OpenAdd() {
	d.ResetForm()
	d.ShowAdd = true
}

func (d *Dashboard) CloseAdd() {
	d.ShowAdd = false
}

func (d *Dashboard) OpenEdit(p subscription.Plan) {
	d.Editing = &p
	d.Form = FormFromPlan(p)
}

func (d *Dashboard) CancelEdit() {
	d.Editing = nil
}

// Plan finds a loaded plan by id.
func (d *Dashboard) Plan(id string) (subscription.Plan, bool) {
	for _, p := range d.Plans {
		if p.ID == id {
			return p, true
		}
	}
	return subscription.Plan{}, false
}

// Create inserts the form as a new plan owned by the current user. On failure
// the add form stays open with its values.
func (d *Dashboard) Create(ctx context.Context) error {
	if d.User == nil {
		d.fail(ctx, "Error adding subscription", ErrNotSignedIn)
		return ErrNotSignedIn
	}
	in, err := d.Form.Input()
	if err != nil {
		d.fail(ctx, "Error adding subscription", err)
		return err
	}

	userID := d.User.ID
	err = d.deps.Guard.Do(ctx, CreateKey(userID, in), func(ctx context.Context) error {
		return d.deps.Store.Create(ctx, userID, in)
	})
	if err != nil {
		d.fail(ctx, "Error adding subscription", err)
		return err
	}

	d.notify(ctx, toast.Toast{
		Title:       "Subscription added!",
		Description: "Your subscription plan has been saved.",
	})
	d.ShowAdd = false
	d.ResetForm()
	d.List(ctx)
	return nil
}

// Update overwrites every editable field of the plan being edited.
func (d *Dashboard) Update(ctx context.Context) error {
	if d.Editing == nil {
		return nil
	}
	if d.User == nil {
		d.fail(ctx, "Error updating subscription", ErrNotSignedIn)
		return ErrNotSignedIn
	}
	in, err := d.Form.Input()
	if err != nil {
		d.fail(ctx, "Error updating subscription", err)
		return err
	}

	id := d.Editing.ID
	err = d.deps.Guard.Do(ctx, UpdateKey(d.User.ID, id, in), func(ctx context.Context) error {
		return d.deps.Store.Update(ctx, id, in)
	})
	if err != nil {
		d.fail(ctx, "Error updating subscription", err)
		return err
	}

	d.notify(ctx, toast.Toast{
		Title:       "Subscription updated!",
		Description: "Your subscription plan has been updated.",
	})
	d.Editing = nil
	d.ResetForm()
	d.List(ctx)
	return nil
}

func (d *Dashboard) Delete(ctx context.Context, id string) error {
	if d.User == nil {
		d.fail(ctx, "Error deleting subscription", ErrNotSignedIn)
		return ErrNotSignedIn
	}
	err := d.deps.Guard.Do(ctx, DeleteKey(d.User.ID, id), func(ctx context.Context) error {
		return d.deps.Store.Delete(ctx, id)
	})
	if err != nil {
		d.fail(ctx, "Error deleting subscription", err)
		return err
	}

	d.notify(ctx, toast.Toast{
		Title:       "Subscription deleted",
		Description: "The subscription plan has been removed.",
	})
	d.List(ctx)
	return nil
}

// SignOut ends the session and sends the user home. A failed revoke is
// reported but still navigates away; the session cookies are gone either way.
func (d *Dashboard) SignOut(ctx context.Context) error {
	err := d.deps.Identity.SignOut(ctx)
	d.deps.Navigator.Navigate(HomePath)
	if err != nil {
		d.fail(ctx, "Error signing out", err)
		return err
	}
	d.notify(ctx, toast.Toast{
		Title:       "Signed out successfully",
		Description: "You've been logged out of your account.",
	})
	return nil
}

func (d *Dashboard) fail(ctx context.Context, title string, err error) {
	if d.User != nil {
		log.Printf("[Dashboard] %s for user %s: %v", title, d.User.ID, err)
	} else {
		log.Printf("[Dashboard] %s: %v", title, err)
	}
	d.notify(ctx, toast.Toast{Title: title, Description: err.Error(), Destructive: true})
}

func (d *Dashboard) notify(ctx context.Context, t toast.Toast) {
	if d.deps.Notifier != nil {
		d.deps.Notifier.Notify(ctx, t)
	}
}
