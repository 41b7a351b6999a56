package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/session"
	"github.com/trezcool/gradebook/services/backend"
)

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	// SessionResponse carries the session and, when one was requested, the route to navigate to.
	SessionResponse struct {
		Session  session.Session `json:"session"`
		Redirect string          `json:"redirect,omitempty"`
	}
)

func (r *LoginRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	return validate.Struct(r)
}

func newSessionResponse(c *client) SessionResponse {
	resp := SessionResponse{Session: c.sessions.Current()}
	if route, ok := c.nav.last(); ok {
		resp.Redirect = route
	}
	return resp
}

type sessionApi struct {
	backend  Backend
	validate *validator.Validate
	logger   core.Logger
}

func registerSessionAPI(g *echo.Group, b Backend, validate *validator.Validate, logger core.Logger) {
	api := sessionApi{
		backend:  b,
		validate: validate,
		logger:   logger,
	}

	sg := g.Group("/session")
	sg.GET("", api.retrieve)
	sg.POST("", api.login)
	sg.DELETE("", api.logout)
	sg.PATCH("/profile", api.updateProfile)
}

// retrieve bootstraps the session for the page the client is on (?path=, defaults to /).
func (api *sessionApi) retrieve(ctx echo.Context) error {
	c, err := getClient(ctx)
	if err != nil {
		return err
	}
	path := ctx.QueryParam("path")
	if path == "" {
		path = session.RouteRoot
	}
	if err = c.sessions.Bootstrap(ctx.Request().Context(), path); err != nil {
		api.logger.Error("bootstrapping session", err, map[string]interface{}{"path": path})
	}
	return ctx.JSON(http.StatusOK, newSessionResponse(c))
}

func (api *sessionApi) login(ctx echo.Context) error {
	c, err := getClient(ctx)
	if err != nil {
		return err
	}
	var data LoginRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	usr, token, err := api.backend.Login(rctx, data.Email, data.Password)
	if err != nil {
		if errors.Cause(err) == backend.ErrInvalidCredentials {
			return core.NewValidationError(errInvalidCredentials)
		}
		return errors.Wrap(err, "authenticating")
	}
	if err = c.sessions.Login(rctx, usr, token); err != nil {
		return errors.Wrap(err, "logging in")
	}
	return ctx.JSON(http.StatusOK, newSessionResponse(c))
}

func (api *sessionApi) logout(ctx echo.Context) error {
	c, err := getClient(ctx)
	if err != nil {
		return err
	}
	if err = c.sessions.Logout(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "logging out")
	}
	return ctx.JSON(http.StatusOK, newSessionResponse(c))
}

func (api *sessionApi) updateProfile(ctx echo.Context) error {
	c, err := getClient(ctx)
	if err != nil {
		return err
	}
	rctx := ctx.Request().Context()
	if err = c.sessions.Bootstrap(rctx, ctx.Request().URL.Path); err != nil {
		return errors.Wrap(err, "bootstrapping session")
	}
	if !c.sessions.IsAuthenticated() {
		return errUnauthorized
	}

	var data session.UserUpdate
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UserUpdate")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}
	if err = c.sessions.UpdateUserProfile(rctx, data); err != nil {
		return errors.Wrap(err, "updating user profile")
	}
	c.nav.reset()
	return ctx.JSON(http.StatusOK, newSessionResponse(c))
}
