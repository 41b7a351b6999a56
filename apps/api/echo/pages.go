package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/session"
)

// login error messages, by error code
var loginErrors = map[string]string{
	"auth_failed":             "Sign in with Microsoft failed. Please try again.",
	"oauth_failed":            "Sign in with Google failed. Please try again.",
	"oauth_processing_failed": "We could not process your Google account. Please try again.",
}

type page struct {
	name  string
	title string
	roles []session.Role // protected when not empty
}

var pages = map[string]page{
	session.RouteRoot:              {name: "home", title: "Welcome"},
	session.RouteLogin:             {name: "login", title: "Sign in"},
	session.RouteTeacherDashboard:  {name: "teacher-dashboard", title: "Dashboard", roles: []session.Role{session.RoleTeacher}},
	session.RouteStudentDashboard:  {name: "student-dashboard", title: "Dashboard", roles: []session.Role{session.RoleStudent}},
	session.RouteOnboardingRole:    {name: "onboarding-role", title: "Choose your role"},
	session.RouteOnboardingStudent: {name: "onboarding-student", title: "Student details"},
	session.RouteOnboardingTeacher: {name: "onboarding-teacher", title: "Teacher details"},
}

func registerPages(app *echo.Echo, logger core.Logger) {
	app.Renderer = &renderer{tmpl: pageTemplates}
	for route, p := range pages {
		app.GET(route, p.render, bootstrapMiddleware(logger, p.roles...))
	}
}

// bootstrapMiddleware restores the client's session before rendering a page.
// Protected pages follow the navigation requested by the bootstrap; public pages ignore it.
// A failed bootstrap is logged: the client is left logged out and navigated to the root route.
func bootstrapMiddleware(logger core.Logger, roles ...session.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			c, err := getClient(ctx)
			if err != nil {
				return err
			}
			if err = c.sessions.Bootstrap(ctx.Request().Context(), ctx.Request().URL.Path); err != nil {
				logger.Error("bootstrapping session", err, map[string]interface{}{"path": ctx.Request().URL.Path})
			}

			if len(roles) == 0 {
				c.nav.reset()
				return next(ctx)
			}
			if route, ok := c.nav.last(); ok {
				return ctx.Redirect(http.StatusFound, route)
			}
			if !c.sessions.HasRole(roles...) {
				route, ok := c.sessions.Role().LandingRoute()
				if !ok {
					route = session.RouteOnboardingRole
				}
				return ctx.Redirect(http.StatusFound, route)
			}
			return next(ctx)
		}
	}
}

func (p page) render(ctx echo.Context) error {
	c, err := getClient(ctx)
	if err != nil {
		return err
	}
	data := pageData{
		Name:  p.name,
		Title: p.title,
		User:  c.sessions.Current().User,
	}
	if p.name == "login" {
		if code := ctx.QueryParam("error"); code != "" {
			data.Error = loginErrors[code]
			if data.Error == "" {
				data.Error = "Sign in failed. Please try again."
			}
		}
	}
	return ctx.Render(http.StatusOK, "page", data)
}
