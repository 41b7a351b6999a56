package callback

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core/onboarding"
	"github.com/trezcool/gradebook/core/session"
)

// query parameters
const (
	paramToken              = "token"
	paramError              = "error"
	paramOnboardingRequired = "onboardingRequired"
	paramUser               = "user"
	paramUserID             = "userId"
	paramID                 = "id"
	paramEmail              = "email"
	paramName               = "name"
	paramFirstName          = "firstName"
	paramLastName           = "lastName"
	paramRole               = "role"
	paramProvider           = "provider"
	paramPicture            = "profilePictureUrl"
)

// Identity is the identity sent by a provider, whatever the shape of the redirect.
type Identity struct {
	UserID            string
	Email             string
	FirstName         string
	LastName          string
	Name              string
	Role              session.Role
	Provider          string
	ProviderID        string
	ProfilePictureURL string
}

func (id Identity) User() session.User {
	return session.User{
		UserID:            id.UserID,
		Email:             id.Email,
		FirstName:         id.FirstName,
		LastName:          id.LastName,
		Name:              id.Name,
		Role:              id.Role,
		Provider:          id.Provider,
		ProfilePictureURL: id.ProfilePictureURL,
	}
}

func (id Identity) PendingProfile() onboarding.PendingProfile {
	return onboarding.PendingProfile{
		Email:      id.Email,
		FirstName:  id.FirstName,
		LastName:   id.LastName,
		ProviderID: id.ProviderID,
		Provider:   id.Provider,
	}
}

// payload is the identity part of a redirect: either discrete query parameters or one JSON blob.
type payload interface {
	identity(schema Schema) (Identity, error)
}

type (
	legacyFields struct {
		q url.Values
	}

	jsonBlob struct {
		raw        string
		providerID string // sent beside the blob
		provider   string
	}
)

// resolvePayload returns nil when the redirect carries no identity at all.
func resolvePayload(q url.Values, schema Schema) payload {
	if raw := q.Get(paramUser); raw != "" {
		return jsonBlob{
			raw:        raw,
			providerID: q.Get(schema.ProviderIDParam),
			provider:   q.Get(paramProvider),
		}
	}
	for _, p := range []string{paramUserID, paramID, paramEmail, paramName, paramFirstName, paramLastName, schema.ProviderIDParam} {
		if p != "" && q.Get(p) != "" {
			return legacyFields{q: q}
		}
	}
	return nil
}

func (p legacyFields) identity(schema Schema) (Identity, error) {
	get := func(keys ...string) string {
		for _, k := range keys {
			if v := strings.TrimSpace(p.q.Get(k)); v != "" {
				return v
			}
		}
		return ""
	}
	usr := session.User{
		UserID:            get(paramUserID, paramID),
		Email:             get(paramEmail),
		FirstName:         get(paramFirstName),
		LastName:          get(paramLastName),
		Name:              get(paramName),
		Role:              session.Role(strings.ToUpper(get(paramRole))),
		ProfilePictureURL: get(paramPicture),
	}.Normalize()

	id := fromUser(usr, schema)
	id.ProviderID = get(schema.ProviderIDParam)
	if prov := get(paramProvider); prov != "" {
		id.Provider = prov
	}
	return id, nil
}

func (p jsonBlob) identity(schema Schema) (Identity, error) {
	raw := p.raw
	// the blob may arrive encoded twice
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	usr, err := session.DecodeUser([]byte(raw))
	if err != nil {
		return Identity{}, errors.Wrap(err, "parsing user parameter")
	}
	id := fromUser(usr.Normalize(), schema)
	id.ProviderID = strings.TrimSpace(p.providerID)
	if p.provider != "" {
		id.Provider = p.provider
	}
	return id, nil
}

func fromUser(usr session.User, schema Schema) Identity {
	provider := usr.Provider
	if provider == "" {
		provider = schema.Provider
	}
	return Identity{
		UserID:            usr.UserID,
		Email:             usr.Email,
		FirstName:         usr.FirstName,
		LastName:          usr.LastName,
		Name:              usr.Name,
		Role:              usr.Role,
		Provider:          provider,
		ProfilePictureURL: usr.ProfilePictureURL,
	}
}
