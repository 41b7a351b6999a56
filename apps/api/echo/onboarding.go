package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core/onboarding"
)

type PendingRequest struct {
	Provider string `param:"provider" json:"provider" validate:"required,provider"`
}

type onboardingApi struct {
	validate *validator.Validate
}

func registerOnboardingAPI(g *echo.Group, validate *validator.Validate) {
	api := onboardingApi{validate: validate}

	og := g.Group("/onboarding")
	og.POST("/complete", api.complete)
	og.GET("/:provider", api.pending)
}

// pending returns the profile staged by the provider's callback.
func (api *onboardingApi) pending(ctx echo.Context) error {
	c, err := getClient(ctx)
	if err != nil {
		return err
	}
	var data PendingRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PendingRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	p, err := c.onboarding.Pending(ctx.Request().Context(), data.Provider)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *onboardingApi) complete(ctx echo.Context) error {
	c, err := getClient(ctx)
	if err != nil {
		return err
	}
	var data onboarding.Finalization
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Finalization")
	}
	if err = c.onboarding.Finalize(ctx.Request().Context(), c.sessions, data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newSessionResponse(c))
}
