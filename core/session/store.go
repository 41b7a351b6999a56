package session

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
)

// durable storage keys
const (
	KeyToken           = "token"
	KeyUser            = "user"
	KeyIsAuthenticated = "isAuthenticated"
	KeyRole            = "role"
)

const defaultNotificationTimeout = 3 * time.Second

type (
	// Store is the single source of truth for "who is logged in" for one client.
	Store struct {
		storage  core.Storage
		nav      Navigator
		notifier Notifier
		logger   core.Logger

		notificationTimeout time.Duration

		mu      sync.RWMutex
		token   string
		user    *User
		role    Role
		authed  bool
		loading bool
	}

	StoreDeps struct {
		Storage  core.Storage // durable
		Nav      Navigator
		Notifier Notifier // optional
		Logger   core.Logger

		NotificationTimeout time.Duration
	}
)

func NewStore(deps StoreDeps) *Store {
	timeout := deps.NotificationTimeout
	if timeout <= 0 {
		timeout = defaultNotificationTimeout
	}
	return &Store{
		storage:             deps.Storage,
		nav:                 deps.Nav,
		notifier:            deps.Notifier,
		logger:              deps.Logger,
		notificationTimeout: timeout,
		loading:             true,
	}
}

// Login commits a new session, then sends the user to the dashboard of their role.
// The role is read from the token; usr.Role is used when the token does not carry one.
func (s *Store) Login(ctx context.Context, usr User, token string) error {
	role := RoleFromToken(token)
	if role == "" {
		role = usr.Role
	}

	data, err := json.Marshal(usr)
	if err != nil {
		return errors.Wrap(err, "encoding user")
	}

	if err = s.persist(ctx, string(data), token, role); err != nil {
		s.mu.Lock()
		s.user = nil
		s.token = ""
		s.role = ""
		s.authed = false
		s.loading = false
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.user = &usr
	s.token = token
	s.role = role
	s.authed = true
	s.loading = false
	s.mu.Unlock()

	s.requestNotificationPermission(ctx, usr.UserID)

	if route, ok := role.LandingRoute(); ok {
		s.nav.Navigate(route)
	}
	return nil
}

// persist writes the session keys. On failure the keys already written are removed.
func (s *Store) persist(ctx context.Context, user, token string, role Role) error {
	writes := []struct {
		key, value, what string
	}{
		{KeyUser, user, "user"},
		{KeyToken, token, "token"},
		{KeyIsAuthenticated, "true", "auth status"},
		{KeyRole, string(role), "role"},
	}
	written := make([]string, 0, len(writes))
	for _, w := range writes {
		if err := s.storage.Set(ctx, w.key, w.value); err != nil {
			if len(written) > 0 {
				if delErr := s.storage.Delete(context.WithoutCancel(ctx), written...); delErr != nil {
					s.warn("rolling back session", delErr)
				}
			}
			return errors.Wrap(err, "storing "+w.what)
		}
		written = append(written, w.key)
	}
	return nil
}

// requestNotificationPermission is best-effort: it is bounded by a timeout and its errors are only logged.
func (s *Store) requestNotificationPermission(ctx context.Context, userID string) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.notificationTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.notifier.RequestPermission(ctx, userID, s.AuthHeader()) }()

	select {
	case err := <-done:
		if err != nil {
			s.warn("requesting notification permission", err)
		}
	case <-ctx.Done():
		s.warn("requesting notification permission", errors.Wrap(ctx.Err(), "gave up waiting"))
	}
}

// Logout clears the session and sends the user to the root route. Safe to call when logged out.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.role = ""
	s.authed = false
	s.loading = false
	s.mu.Unlock()

	err := s.storage.Delete(ctx, KeyUser, KeyToken, KeyIsAuthenticated, KeyRole)
	s.nav.Navigate(RouteRoot)
	if err != nil {
		return errors.Wrap(err, "clearing session")
	}
	return nil
}

// AuthHeader returns the headers authenticating backend requests.
func (s *Store) AuthHeader() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return map[string]string{}
	}
	return map[string]string{"Authorization": "Bearer " + s.token}
}

// UpdateUserProfile merges upd into the current user and persists it.
func (s *Store) UpdateUserProfile(ctx context.Context, upd UserUpdate) error {
	s.mu.Lock()
	var usr User
	if s.user != nil {
		usr = *s.user
	}
	usr = upd.apply(usr)
	s.user = &usr
	roleChanged := upd.Role != nil && *upd.Role != ""
	if roleChanged {
		s.role = *upd.Role
	}
	s.mu.Unlock()

	data, err := json.Marshal(usr)
	if err != nil {
		return errors.Wrap(err, "encoding user")
	}
	if err = s.storage.Set(ctx, KeyUser, string(data)); err != nil {
		return errors.Wrap(err, "storing user")
	}
	if roleChanged {
		if err = s.storage.Set(ctx, KeyRole, string(*upd.Role)); err != nil {
			return errors.Wrap(err, "storing role")
		}
	}
	return nil
}

// Bootstrap restores the session from durable storage once per page load.
// Onboarding routes stay reachable without a session: there, missing or expired credentials
// leave the store unauthenticated instead of logging out.
func (s *Store) Bootstrap(ctx context.Context, path string) error {
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	token, usrData, authStatus, err := s.readStored(ctx)
	if err != nil {
		s.warn("reading stored session", err)
		return s.Logout(ctx)
	}
	valid := token != "" && usrData != "" && authStatus == "true" && !IsTokenExpired(token)

	if IsOnboardingRoute(path) && !valid {
		return nil
	}
	if !valid {
		return s.Logout(ctx)
	}

	var usr User
	if err = json.Unmarshal([]byte(usrData), &usr); err != nil {
		s.warn("decoding stored user", err)
		return s.Logout(ctx)
	}
	role := RoleFromToken(token)
	if role == "" {
		role = usr.Role
	}

	s.mu.Lock()
	s.token = token
	s.user = &usr
	s.role = role
	s.authed = true
	s.mu.Unlock()

	if err = s.storage.Set(ctx, KeyRole, string(role)); err != nil {
		return errors.Wrap(err, "storing role")
	}
	return nil
}

func (s *Store) readStored(ctx context.Context) (token, usr, authStatus string, err error) {
	if token, err = core.GetOrEmpty(ctx, s.storage, KeyToken); err != nil {
		return
	}
	if usr, err = core.GetOrEmpty(ctx, s.storage, KeyUser); err != nil {
		return
	}
	authStatus, err = core.GetOrEmpty(ctx, s.storage, KeyIsAuthenticated)
	return
}

// Current returns a snapshot of the session.
func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess := Session{
		Token:           s.token,
		Role:            s.role,
		IsAuthenticated: s.authed,
	}
	if s.user != nil {
		usr := *s.user
		sess.User = &usr
	}
	return sess
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authed
}

func (s *Store) Role() Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// Loading is true until Bootstrap, Login or Logout ran.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// HasRole reports whether the session role is one of roles.
func (s *Store) HasRole(roles ...Role) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.role == "" {
		return false
	}
	for _, r := range roles {
		if r == s.role {
			return true
		}
	}
	return false
}

func (s *Store) warn(msg string, err error) {
	if s.logger != nil {
		s.logger.Warn(msg, err)
	}
}
