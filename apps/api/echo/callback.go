package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/callback"
	"github.com/trezcool/gradebook/core/session"
)

func registerCallbacks(app *echo.Echo, logger core.Logger) {
	app.GET(session.RouteGoogleCallback, callbackHandler(callback.GoogleSchema, logger))
	app.GET(session.RouteAzureCallback, callbackHandler(callback.AzureSchema, logger))
}

// callbackHandler reconciles a provider redirect. Each request is one mount of the callback page.
func callbackHandler(schema callback.Schema, logger core.Logger) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		c, err := getClient(ctx)
		if err != nil {
			return err
		}
		rctx := ctx.Request().Context()

		// callback routes are onboarding routes: bootstrap never logs out here
		if err = c.sessions.Bootstrap(rctx, ctx.Request().URL.Path); err != nil {
			logger.Warn(schema.Provider+" callback: bootstrapping session", err)
		}
		c.nav.reset()

		rec := callback.NewReconciler(schema, callback.ReconcilerDeps{
			Sessions: c.sessions,
			Stager:   c.onboarding,
			Nav:      c.nav,
			Logger:   logger,
		})
		rec.Process(rctx, ctx.QueryParams())

		if route, ok := c.nav.last(); ok {
			return ctx.Redirect(http.StatusFound, route)
		}
		return ctx.Render(http.StatusOK, "page", pageData{
			Name:    "callback",
			Title:   "Signing in",
			Loading: rec.View() == callback.ViewLoading,
		})
	}
}
