package session

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

var ErrInvalidUser = errors.New("invalid user payload")

// DecodeUser reads a user record sent by the backend.
// Both naming conventions are accepted (id|userId, picture|profilePictureUrl, ...) and ids may be numbers.
func DecodeUser(raw []byte) (User, error) {
	if !gjson.ValidBytes(raw) {
		return User{}, errors.Wrap(ErrInvalidUser, "malformed json")
	}
	res := gjson.ParseBytes(raw)
	if !res.IsObject() {
		return User{}, errors.Wrap(ErrInvalidUser, "not an object")
	}

	first := func(paths ...string) string {
		for _, p := range paths {
			if v := res.Get(p); v.Exists() && v.Type != gjson.Null {
				if s := strings.TrimSpace(v.String()); s != "" {
					return s
				}
			}
		}
		return ""
	}

	usr := User{
		UserID:            first("userId", "id", "user_id"),
		Email:             first("email"),
		FirstName:         first("firstName", "first_name", "givenName"),
		LastName:          first("lastName", "last_name", "familyName"),
		Name:              first("name", "displayName"),
		Role:              Role(strings.ToUpper(first("role"))),
		Provider:          first("provider"),
		ProfilePictureURL: first("profilePictureUrl", "picture", "avatar"),
		Institution:       first("institution"),
		Department:        first("department"),
	}
	return usr, nil
}

// splitName splits a display name into first and last names.
func splitName(name string) (string, string) {
	name = strings.TrimSpace(name)
	if i := strings.IndexByte(name, ' '); i > 0 {
		return name[:i], strings.TrimSpace(name[i+1:])
	}
	return name, ""
}

// Normalize fills FirstName/LastName from Name when they are missing.
func (u User) Normalize() User {
	u.Email = strings.TrimSpace(u.Email)
	if u.FirstName == "" && u.LastName == "" && u.Name != "" {
		u.FirstName, u.LastName = splitName(u.Name)
	}
	return u
}
