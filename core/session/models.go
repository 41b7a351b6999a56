package session

import (
	"context"
	"strings"
)

// Roles
const (
	RoleTeacher Role = "TEACHER"
	RoleStudent Role = "STUDENT"

	// a user authenticated through a provider who has not picked a role yet
	RolePending Role = "PENDING"
	RoleUnknown Role = "UNKNOWN"
)

type Role string

// NeedsOnboarding reports whether a user with this role must go through role selection.
func (r Role) NeedsOnboarding() bool {
	return r == "" || r == RolePending || r == RoleUnknown
}

// LandingRoute returns the dashboard of the role, if it has one.
func (r Role) LandingRoute() (string, bool) {
	switch r {
	case RoleTeacher:
		return RouteTeacherDashboard, true
	case RoleStudent:
		return RouteStudentDashboard, true
	default:
		return "", false
	}
}

// User is the profile of the logged in user.
type User struct {
	UserID            string `json:"userId"`
	Email             string `json:"email"`
	FirstName         string `json:"firstName,omitempty"`
	LastName          string `json:"lastName,omitempty"`
	Name              string `json:"name,omitempty"`
	Role              Role   `json:"role,omitempty"`
	Provider          string `json:"provider,omitempty"`
	ProfilePictureURL string `json:"profilePictureUrl,omitempty"`
	Institution       string `json:"institution,omitempty"`
	Department        string `json:"department,omitempty"`
}

// FullName returns Name or the concatenation of FirstName and LastName.
func (u User) FullName() string {
	if u.Name != "" {
		return u.Name
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserUpdate holds the user fields to change; nil fields are left untouched.
type UserUpdate struct {
	Email             *string `json:"email" validate:"omitempty,email"`
	FirstName         *string `json:"firstName"`
	LastName          *string `json:"lastName"`
	Name              *string `json:"name"`
	Role              *Role   `json:"role"`
	ProfilePictureURL *string `json:"profilePictureUrl" validate:"omitempty,url"`
	Institution       *string `json:"institution"`
	Department        *string `json:"department"`
}

func (uu UserUpdate) apply(usr User) User {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&usr.Email, uu.Email)
	set(&usr.FirstName, uu.FirstName)
	set(&usr.LastName, uu.LastName)
	set(&usr.Name, uu.Name)
	set(&usr.ProfilePictureURL, uu.ProfilePictureURL)
	set(&usr.Institution, uu.Institution)
	set(&usr.Department, uu.Department)
	if uu.Role != nil {
		usr.Role = *uu.Role
	}
	return usr
}

// Session is a snapshot of the authenticated identity.
type Session struct {
	Token           string `json:"-"`
	User            *User  `json:"user"`
	Role            Role   `json:"role"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

type (
	// Navigator moves the user to another route of the application.
	Navigator interface {
		Navigate(route string)
	}

	// Notifier registers the user for push notifications.
	Notifier interface {
		RequestPermission(ctx context.Context, userID string, authHeader map[string]string) error
	}
)
