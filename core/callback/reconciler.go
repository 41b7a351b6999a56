package callback

import (
	"context"
	"net/url"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/onboarding"
	"github.com/trezcool/gradebook/core/session"
)

// Outcome is the terminal transition taken for a redirect.
type Outcome int32

const (
	OutcomeNone          Outcome = iota // not processed (or already processed by an earlier call)
	OutcomeError                        // provider reported an error
	OutcomeOnboarding                   // pending profile staged
	OutcomeAuthenticated                // session committed
	OutcomeMalformed                    // parameters unusable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeError:
		return "error"
	case OutcomeOnboarding:
		return "onboarding"
	case OutcomeAuthenticated:
		return "authenticated"
	case OutcomeMalformed:
		return "malformed"
	default:
		return "none"
	}
}

// View is what the callback page shows.
type View int

const (
	ViewLoading View = iota
	ViewNone
)

type (
	// Sessions commits sessions.
	Sessions interface {
		Login(ctx context.Context, usr session.User, token string) error
		Role() session.Role
	}

	// Stager keeps pending onboarding profiles.
	Stager interface {
		Stage(ctx context.Context, provider string, p onboarding.PendingProfile) error
	}

	// Reconciler turns one provider redirect into exactly one outcome.
	// A Reconciler serves a single callback page; Process only does work on its first call.
	Reconciler struct {
		schema   Schema
		sessions Sessions
		stager   Stager
		nav      session.Navigator
		logger   core.Logger

		processed atomic.Bool
		outcome   atomic.Int32
	}

	ReconcilerDeps struct {
		Sessions Sessions
		Stager   Stager
		Nav      session.Navigator
		Logger   core.Logger
	}
)

func NewReconciler(schema Schema, deps ReconcilerDeps) *Reconciler {
	return &Reconciler{
		schema:   schema,
		sessions: deps.Sessions,
		stager:   deps.Stager,
		nav:      deps.Nav,
		logger:   deps.Logger,
	}
}

// Process evaluates the redirect query parameters. Subsequent calls return OutcomeNone
// without touching storage or navigating.
func (r *Reconciler) Process(ctx context.Context, q url.Values) Outcome {
	if !r.processed.CompareAndSwap(false, true) {
		return OutcomeNone
	}
	outcome := r.process(ctx, q)
	r.outcome.Store(int32(outcome))
	return outcome
}

func (r *Reconciler) process(ctx context.Context, q url.Values) Outcome {
	if errParam := q.Get(paramError); errParam != "" {
		r.log("provider reported an error", errors.New(errParam))
		r.nav.Navigate(session.LoginErrorRoute(r.schema.FailureCode))
		return OutcomeError
	}

	if q.Get(paramOnboardingRequired) == "true" {
		return r.stage(ctx, q)
	}

	return r.authenticate(ctx, q)
}

func (r *Reconciler) stage(ctx context.Context, q url.Values) Outcome {
	id, err := legacyFields{q: q}.identity(r.schema)
	if p := resolvePayload(q, r.schema); p != nil {
		if blobID, blobErr := p.identity(r.schema); blobErr == nil {
			id = mergeIdentity(blobID, id)
		} else {
			r.log("parsing onboarding identity", blobErr)
		}
	}
	if err == nil {
		err = r.stager.Stage(ctx, r.schema.Provider, id.PendingProfile())
	}
	if err != nil {
		r.log("staging onboarding profile", err)
		r.nav.Navigate(session.LoginErrorRoute(r.schema.ParseFailureCode))
		return OutcomeMalformed
	}
	r.nav.Navigate(session.RouteOnboardingRole)
	return OutcomeOnboarding
}

func (r *Reconciler) authenticate(ctx context.Context, q url.Values) Outcome {
	token := q.Get(paramToken)
	p := resolvePayload(q, r.schema)
	if token == "" || p == nil {
		r.log("insufficient callback parameters", errors.Errorf("token present: %t, identity present: %t", token != "", p != nil))
		r.nav.Navigate(session.LoginErrorRoute(r.schema.FailureCode))
		return OutcomeMalformed
	}

	id, err := p.identity(r.schema)
	if err != nil {
		r.log("parsing callback identity", err)
		r.nav.Navigate(session.LoginErrorRoute(r.schema.ParseFailureCode))
		return OutcomeMalformed
	}
	if !r.schema.sufficient(id) {
		r.log("insufficient callback identity", errors.Errorf("userId=%q email=%q", id.UserID, id.Email))
		r.nav.Navigate(session.LoginErrorRoute(r.schema.FailureCode))
		return OutcomeMalformed
	}

	// Login navigates to the dashboard of the role, if the role has one
	if err = r.sessions.Login(ctx, id.User(), token); err != nil {
		r.log("committing session", err)
		r.nav.Navigate(session.LoginErrorRoute(r.schema.ParseFailureCode))
		return OutcomeMalformed
	}
	if _, ok := r.sessions.Role().LandingRoute(); !ok {
		r.nav.Navigate(session.RouteOnboardingRole)
	}
	return OutcomeAuthenticated
}

// Processed reports whether Process already ran.
func (r *Reconciler) Processed() bool {
	return r.processed.Load()
}

// Outcome returns the outcome of the first Process call, OutcomeNone while it has not completed.
func (r *Reconciler) Outcome() Outcome {
	return Outcome(r.outcome.Load())
}

// View returns ViewLoading until a terminal transition fired.
func (r *Reconciler) View() View {
	if r.Outcome() == OutcomeNone {
		return ViewLoading
	}
	return ViewNone
}

func (r *Reconciler) log(msg string, err error) {
	if r.logger != nil {
		r.logger.Warn(r.schema.Provider+" callback: "+msg, err)
	}
}

// mergeIdentity fills the empty fields of id with the ones of fallback.
func mergeIdentity(id, fallback Identity) Identity {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	id.UserID = pick(id.UserID, fallback.UserID)
	id.Email = pick(id.Email, fallback.Email)
	id.FirstName = pick(id.FirstName, fallback.FirstName)
	id.LastName = pick(id.LastName, fallback.LastName)
	id.Name = pick(id.Name, fallback.Name)
	id.Provider = pick(id.Provider, fallback.Provider)
	id.ProviderID = pick(id.ProviderID, fallback.ProviderID)
	id.ProfilePictureURL = pick(id.ProfilePictureURL, fallback.ProfilePictureURL)
	if id.Role == "" {
		id.Role = fallback.Role
	}
	return id
}
