package session

import "net/url"

// Routes
const (
	RouteRoot              = "/"
	RouteLogin             = "/login"
	RouteTeacherDashboard  = "/teacher/dashboard"
	RouteStudentDashboard  = "/student/dashboard"
	RouteOnboardingRole    = "/onboarding/role"
	RouteOnboardingStudent = "/onboarding/student"
	RouteOnboardingTeacher = "/onboarding/teacher"
	RouteGoogleCallback    = "/oauth2/callback"
	RouteAzureCallback     = "/auth/azure/callback"
)

// onboardingRoutes are reachable without a session.
var onboardingRoutes = map[string]bool{
	RouteOnboardingRole:    true,
	RouteOnboardingStudent: true,
	RouteOnboardingTeacher: true,
	RouteGoogleCallback:    true,
	RouteAzureCallback:     true,
}

func IsOnboardingRoute(path string) bool {
	return onboardingRoutes[path]
}

// LoginErrorRoute returns the login route carrying the given error code.
func LoginErrorRoute(code string) string {
	if code == "" {
		return RouteLogin
	}
	return RouteLogin + "?" + url.Values{"error": {code}}.Encode()
}
