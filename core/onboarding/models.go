package onboarding

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/session"
)

// PendingProfile is the identity sent by a provider for a user who has no account yet.
// It lives in transient storage until the onboarding form is submitted.
type PendingProfile struct {
	Email      string `json:"email"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	ProviderID string `json:"providerId,omitempty"`
	Provider   string `json:"provider,omitempty"`
}

// PendingKey returns the transient storage key of a provider's pending profile.
func PendingKey(provider string) string {
	return provider + "UserData"
}

// Finalization is the submitted onboarding form (role selection + student/teacher details).
type Finalization struct {
	Provider    string       `json:"provider" validate:"required,provider"`
	Role        session.Role `json:"role" validate:"required,landingrole"`
	FirstName   string       `json:"firstName"`
	LastName    string       `json:"lastName"`
	Institution string       `json:"institution" validate:"required"`
	Department  string       `json:"department"`
	// students only
	StudentNumber string `json:"studentNumber" validate:"required_if=Role STUDENT"`
}

func (f *Finalization) Validate(validate *validator.Validate) error {
	f.Provider = core.CleanString(f.Provider, true /* lower */)
	f.FirstName = core.CleanString(f.FirstName)
	f.LastName = core.CleanString(f.LastName)
	f.Institution = core.CleanString(f.Institution)
	f.Department = core.CleanString(f.Department)
	f.StudentNumber = core.CleanString(f.StudentNumber)
	return validate.Struct(f)
}

// Account is sent to the backend to create the account of an onboarded user.
type Account struct {
	Email         string       `json:"email"`
	FirstName     string       `json:"firstName"`
	LastName      string       `json:"lastName"`
	Provider      string       `json:"provider"`
	ProviderID    string       `json:"providerId,omitempty"`
	Role          session.Role `json:"role"`
	Institution   string       `json:"institution,omitempty"`
	Department    string       `json:"department,omitempty"`
	StudentNumber string       `json:"studentNumber,omitempty"`
}

func newAccount(p PendingProfile, f Finalization) Account {
	acct := Account{
		Email:         p.Email,
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		Provider:      f.Provider,
		ProviderID:    p.ProviderID,
		Role:          f.Role,
		Institution:   f.Institution,
		Department:    f.Department,
		StudentNumber: f.StudentNumber,
	}
	// the form may correct the names sent by the provider
	if f.FirstName != "" {
		acct.FirstName = f.FirstName
	}
	if f.LastName != "" {
		acct.LastName = f.LastName
	}
	return acct
}

// Grant is a fresh session issued by the backend.
type Grant struct {
	Token string
	User  session.User
}
