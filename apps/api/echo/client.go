package echoapi

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core/onboarding"
	"github.com/trezcool/gradebook/core/session"
	"github.com/trezcool/gradebook/storage/kv"
)

const clientCtxKey = "client"

var errClientNotFoundInCtx = errors.New("client not found in echo.Context")

// client is the state of one browser for the duration of a request.
type client struct {
	id         string
	nav        *navigator
	sessions   *session.Store
	onboarding *onboarding.Service
}

// navigator records the navigations requested while handling a request.
type navigator struct {
	mu     sync.Mutex
	routes []string
}

var _ session.Navigator = (*navigator)(nil)

func (n *navigator) Navigate(route string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, route)
}

// last returns the latest requested route.
func (n *navigator) last() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.routes) == 0 {
		return "", false
	}
	return n.routes[len(n.routes)-1], true
}

func (n *navigator) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = nil
}

// clientMiddleware identifies the browser with its client cookie (issuing one if needed)
// and binds a session store to the browser's storage.
func (s *Server) clientMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id := s.clientID(ctx)

			nav := new(navigator)
			c := &client{
				id:  id,
				nav: nav,
				sessions: session.NewStore(session.StoreDeps{
					Storage:             kv.ClientScope(s.Durable, id),
					Nav:                 nav,
					Notifier:            s.Backend,
					Logger:              s.Logger,
					NotificationTimeout: s.Conf.Session.NotificationTimeout,
				}),
				onboarding: onboarding.NewService(kv.ClientScope(s.Transient, id), s.Backend, s.Validate),
			}
			ctx.Set(clientCtxKey, c)
			return next(ctx)
		}
	}
}

func (s *Server) clientID(ctx echo.Context) string {
	conf := s.Conf.Session
	if cookie, err := ctx.Cookie(conf.ClientCookieName); err == nil {
		if id, err := uuid.Parse(cookie.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	ctx.SetCookie(&http.Cookie{
		Name:     conf.ClientCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(conf.ClientCookieMaxAge.Seconds()),
		Secure:   conf.SecureCookie,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func getClient(ctx echo.Context) (*client, error) {
	c, ok := ctx.Get(clientCtxKey).(*client)
	if !ok || c == nil {
		return nil, errClientNotFoundInCtx
	}
	return c, nil
}
