package onboarding

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/session"
)

var ErrNoPendingProfile = errors.New("no pending onboarding profile")

type (
	// Backend creates accounts for onboarded users.
	Backend interface {
		CompleteOnboarding(ctx context.Context, acct Account) (Grant, error)
	}

	// Committer commits a session.
	Committer interface {
		Login(ctx context.Context, usr session.User, token string) error
	}

	Service struct {
		transient core.Storage
		backend   Backend
		validate  *validator.Validate
	}
)

func NewService(transient core.Storage, backend Backend, validate *validator.Validate) *Service {
	return &Service{
		transient: transient,
		backend:   backend,
		validate:  validate,
	}
}

// Stage keeps the provider's identity until the onboarding form is submitted.
func (svc *Service) Stage(ctx context.Context, provider string, p PendingProfile) error {
	p.Provider = provider
	data, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "encoding pending profile")
	}
	if err = svc.transient.Set(ctx, PendingKey(provider), string(data)); err != nil {
		return errors.Wrap(err, "storing pending profile")
	}
	return nil
}

// Pending returns the staged profile of the provider, or ErrNoPendingProfile.
func (svc *Service) Pending(ctx context.Context, provider string) (PendingProfile, error) {
	data, err := svc.transient.Get(ctx, PendingKey(provider))
	if err != nil {
		if errors.Cause(err) == core.ErrKeyNotFound {
			return PendingProfile{}, ErrNoPendingProfile
		}
		return PendingProfile{}, errors.Wrap(err, "reading pending profile")
	}
	var p PendingProfile
	if err = json.Unmarshal([]byte(data), &p); err != nil {
		return PendingProfile{}, errors.Wrap(err, "decoding pending profile")
	}
	return p, nil
}

// Discard drops the staged profile of the provider.
func (svc *Service) Discard(ctx context.Context, provider string) error {
	return errors.Wrap(svc.transient.Delete(ctx, PendingKey(provider)), "deleting pending profile")
}

// Finalize creates the account of the onboarded user through the backend and commits the
// session it returns. The pending profile is only consumed once the session is committed.
func (svc *Service) Finalize(ctx context.Context, sessions Committer, f Finalization) error {
	if err := f.Validate(svc.validate); err != nil {
		return err
	}

	p, err := svc.Pending(ctx, f.Provider)
	if err != nil {
		if err == ErrNoPendingProfile {
			return core.NewValidationError(err, core.FieldError{Field: "provider", Error: err.Error()})
		}
		return err
	}

	grant, err := svc.backend.CompleteOnboarding(ctx, newAccount(p, f))
	if err != nil {
		return errors.Wrap(err, "completing onboarding")
	}
	if grant.Token == "" {
		return errors.New("backend issued no token")
	}

	if err = sessions.Login(ctx, grant.User, grant.Token); err != nil {
		return errors.Wrap(err, "logging in")
	}
	return svc.Discard(ctx, f.Provider)
}
