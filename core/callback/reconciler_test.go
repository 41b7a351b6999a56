package callback_test

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/callback"
	"github.com/trezcool/gradebook/core/onboarding"
	"github.com/trezcool/gradebook/core/session"
	"github.com/trezcool/gradebook/tests"
)

type reconcilerTest struct {
	rec       *callback.Reconciler
	sessions  *session.Store
	durable   *testutil.Storage
	transient *testutil.Storage
	nav       *testutil.Navigator
	logger    *testutil.Logger
}

func newReconcilerTest(schema callback.Schema) reconcilerTest {
	rt := reconcilerTest{
		durable:   testutil.NewStorage(),
		transient: testutil.NewStorage(),
		nav:       new(testutil.Navigator),
		logger:    new(testutil.Logger),
	}
	rt.sessions = session.NewStore(session.StoreDeps{Storage: rt.durable, Nav: rt.nav, Logger: rt.logger})
	validate, _ := core.NewValidator()
	rt.rec = callback.NewReconciler(schema, callback.ReconcilerDeps{
		Sessions: rt.sessions,
		Stager:   onboarding.NewService(rt.transient, nil, validate),
		Nav:      rt.nav,
		Logger:   rt.logger,
	})
	return rt
}

func query(t *testing.T, raw string) url.Values {
	t.Helper()
	q, err := url.ParseQuery(raw)
	require.NoError(t, err)
	return q
}

func blob(t *testing.T, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return url.QueryEscape(string(data))
}

func TestReconciler_providerError(t *testing.T) {
	tests := []struct {
		name   string
		schema callback.Schema
		raw    string
		want   string
	}{
		{name: "azure", schema: callback.AzureSchema, raw: "error=access_denied", want: "/login?error=auth_failed"},
		{name: "google", schema: callback.GoogleSchema, raw: "error=access_denied", want: "/login?error=oauth_failed"},
		{
			name:   "error wins over a complete session",
			schema: callback.GoogleSchema,
			raw:    "error=server_error&token=abc123&userId=7&email=a@b.com&role=TEACHER",
			want:   "/login?error=oauth_failed",
		},
		{
			name:   "error wins over onboarding",
			schema: callback.AzureSchema,
			raw:    "error=consent_required&onboardingRequired=true&email=a@b.com",
			want:   "/login?error=auth_failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newReconcilerTest(tt.schema)

			assert.Equal(t, callback.OutcomeError, rt.rec.Process(context.Background(), query(t, tt.raw)))
			assert.Equal(t, []string{tt.want}, rt.nav.Routes())
			assert.Zero(t, rt.durable.Writes())
			assert.Zero(t, rt.transient.Writes())
			assert.False(t, rt.sessions.IsAuthenticated())
		})
	}
}

func TestReconciler_onboarding(t *testing.T) {
	tests := []struct {
		name   string
		schema callback.Schema
		raw    func(t *testing.T) string
		want   onboarding.PendingProfile
	}{
		{
			name:   "discrete fields",
			schema: callback.GoogleSchema,
			raw:    func(*testing.T) string { return "onboardingRequired=true&email=a@b.com&firstName=A&lastName=B" },
			want:   onboarding.PendingProfile{Email: "a@b.com", FirstName: "A", LastName: "B", Provider: "google"},
		},
		{
			name:   "provider id",
			schema: callback.AzureSchema,
			raw: func(*testing.T) string {
				return "onboardingRequired=true&email=a@b.com&name=Ada+Lovelace&azureId=az-1"
			},
			want: onboarding.PendingProfile{Email: "a@b.com", FirstName: "Ada", LastName: "Lovelace", ProviderID: "az-1", Provider: "azure"},
		},
		{
			name:   "json blob",
			schema: callback.GoogleSchema,
			raw: func(t *testing.T) string {
				return "onboardingRequired=true&googleId=g-1&user=" + blob(t, map[string]string{"email": "c@d.com", "firstName": "C", "lastName": "D"})
			},
			want: onboarding.PendingProfile{Email: "c@d.com", FirstName: "C", LastName: "D", ProviderID: "g-1", Provider: "google"},
		},
		{
			name:   "nothing but the flag",
			schema: callback.GoogleSchema,
			raw:    func(*testing.T) string { return "onboardingRequired=true" },
			want:   onboarding.PendingProfile{Provider: "google"},
		},
		{
			name:   "token is ignored",
			schema: callback.AzureSchema,
			raw:    func(*testing.T) string { return "onboardingRequired=true&token=abc123&userId=7&email=a@b.com" },
			want:   onboarding.PendingProfile{Email: "a@b.com", Provider: "azure"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newReconcilerTest(tt.schema)
			ctx := context.Background()

			assert.Equal(t, callback.OutcomeOnboarding, rt.rec.Process(ctx, query(t, tt.raw(t))))
			assert.Equal(t, []string{session.RouteOnboardingRole}, rt.nav.Routes())

			// no session committed
			assert.Zero(t, rt.durable.Writes())
			assert.False(t, rt.sessions.IsAuthenticated())
			assert.Equal(t, map[string]string{}, rt.sessions.AuthHeader())

			assert.Equal(t, 1, rt.transient.Writes())
			var got onboarding.PendingProfile
			require.NoError(t, json.Unmarshal([]byte(rt.transient.MustGet(t, onboarding.PendingKey(tt.schema.Provider))), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReconciler_onboarding_storageFailure(t *testing.T) {
	rt := newReconcilerTest(callback.GoogleSchema)
	rt.transient.Err = errors.New("quota exceeded")

	outcome := rt.rec.Process(context.Background(), query(t, "onboardingRequired=true&email=a@b.com"))
	assert.Equal(t, callback.OutcomeMalformed, outcome)
	assert.Equal(t, []string{"/login?error=oauth_processing_failed"}, rt.nav.Routes())
}

func TestReconciler_authenticated(t *testing.T) {
	exp := time.Now().Add(time.Hour)

	tests := []struct {
		name      string
		schema    callback.Schema
		raw       func(t *testing.T) string
		wantUser  session.User
		wantRole  session.Role
		wantRoute string
	}{
		{
			name:      "discrete fields, azure",
			schema:    callback.AzureSchema,
			raw:       func(*testing.T) string { return "token=abc123&userId=7&email=a@b.com&name=A+B&role=TEACHER" },
			wantUser:  session.User{UserID: "7", Email: "a@b.com", FirstName: "A", LastName: "B", Name: "A B", Role: session.RoleTeacher, Provider: "azure"},
			wantRole:  session.RoleTeacher,
			wantRoute: session.RouteTeacherDashboard,
		},
		{
			name:      "discrete fields, google",
			schema:    callback.GoogleSchema,
			raw:       func(*testing.T) string { return "token=abc123&userId=7&email=a@b.com&name=A+B&role=TEACHER" },
			wantUser:  session.User{UserID: "7", Email: "a@b.com", FirstName: "A", LastName: "B", Name: "A B", Role: session.RoleTeacher, Provider: "google"},
			wantRole:  session.RoleTeacher,
			wantRoute: session.RouteTeacherDashboard,
		},
		{
			name:   "json blob with id convention and role in token",
			schema: callback.GoogleSchema,
			raw: func(t *testing.T) string {
				usr := map[string]interface{}{"id": 12, "email": "s@b.com", "firstName": "S", "lastName": "T"}
				return "token=" + testutil.NewToken(t, "STUDENT", exp) + "&user=" + blob(t, usr)
			},
			wantUser:  session.User{UserID: "12", Email: "s@b.com", FirstName: "S", LastName: "T", Provider: "google"},
			wantRole:  session.RoleStudent,
			wantRoute: session.RouteStudentDashboard,
		},
		{
			name:      "role absent",
			schema:    callback.GoogleSchema,
			raw:       func(*testing.T) string { return "token=abc123&userId=7&email=a@b.com" },
			wantUser:  session.User{UserID: "7", Email: "a@b.com", Provider: "google"},
			wantRoute: session.RouteOnboardingRole,
		},
		{
			name:      "role pending",
			schema:    callback.AzureSchema,
			raw:       func(*testing.T) string { return "token=abc123&id=7&email=a@b.com&name=Ada&role=PENDING" },
			wantUser:  session.User{UserID: "7", Email: "a@b.com", FirstName: "Ada", Name: "Ada", Role: session.RolePending, Provider: "azure"},
			wantRole:  session.RolePending,
			wantRoute: session.RouteOnboardingRole,
		},
		{
			name:   "role unknown in blob",
			schema: callback.GoogleSchema,
			raw: func(t *testing.T) string {
				return "token=abc123&provider=google&user=" + blob(t, map[string]string{"userId": "7", "email": "a@b.com", "role": "UNKNOWN"})
			},
			wantUser:  session.User{UserID: "7", Email: "a@b.com", Role: session.RoleUnknown, Provider: "google"},
			wantRole:  session.RoleUnknown,
			wantRoute: session.RouteOnboardingRole,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newReconcilerTest(tt.schema)

			assert.Equal(t, callback.OutcomeAuthenticated, rt.rec.Process(context.Background(), query(t, tt.raw(t))))
			assert.Equal(t, []string{tt.wantRoute}, rt.nav.Routes())

			sess := rt.sessions.Current()
			assert.True(t, sess.IsAuthenticated)
			assert.Equal(t, tt.wantRole, sess.Role)
			require.NotNil(t, sess.User)
			assert.Equal(t, tt.wantUser, *sess.User)
			assert.Zero(t, rt.transient.Writes())
		})
	}
}

func TestReconciler_malformed(t *testing.T) {
	tests := []struct {
		name   string
		schema callback.Schema
		raw    string
		want   string
	}{
		{name: "empty", schema: callback.GoogleSchema, raw: "", want: "/login?error=oauth_failed"},
		{name: "no token", schema: callback.GoogleSchema, raw: "userId=7&email=a@b.com", want: "/login?error=oauth_failed"},
		{name: "no identity", schema: callback.AzureSchema, raw: "token=abc123", want: "/login?error=auth_failed"},
		{name: "unparseable blob, google", schema: callback.GoogleSchema, raw: "token=abc123&user=%7B%22userId", want: "/login?error=oauth_processing_failed"},
		{name: "unparseable blob, azure", schema: callback.AzureSchema, raw: "token=abc123&user=not-json", want: "/login?error=auth_failed"},
		{name: "no email", schema: callback.GoogleSchema, raw: "token=abc123&userId=7&firstName=A", want: "/login?error=oauth_failed"},
		{name: "azure without a name", schema: callback.AzureSchema, raw: "token=abc123&userId=7&email=a@b.com", want: "/login?error=auth_failed"},
		{name: "onboarding flag is case sensitive", schema: callback.GoogleSchema, raw: "onboardingRequired=TRUE&email=a@b.com", want: "/login?error=oauth_failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newReconcilerTest(tt.schema)

			assert.Equal(t, callback.OutcomeMalformed, rt.rec.Process(context.Background(), query(t, tt.raw)))
			assert.Equal(t, []string{tt.want}, rt.nav.Routes())
			assert.Zero(t, rt.durable.Writes())
			assert.Zero(t, rt.transient.Writes())
			assert.NotEmpty(t, rt.logger.Messages())
		})
	}
}

func TestReconciler_loginFailure(t *testing.T) {
	rt := newReconcilerTest(callback.GoogleSchema)
	rt.durable.Err = errors.New("disk full")

	outcome := rt.rec.Process(context.Background(), query(t, "token=abc123&userId=7&email=a@b.com&role=TEACHER"))
	assert.Equal(t, callback.OutcomeMalformed, outcome)
	assert.Equal(t, []string{"/login?error=oauth_processing_failed"}, rt.nav.Routes())
}

func TestReconciler_idempotence(t *testing.T) {
	inputs := map[string]string{
		"error":         "error=access_denied",
		"onboarding":    "onboardingRequired=true&email=a@b.com",
		"authenticated": "token=abc123&userId=7&email=a@b.com&name=A+B&role=TEACHER",
		"malformed":     "token=abc123",
	}
	for name, raw := range inputs {
		t.Run(name, func(t *testing.T) {
			rt := newReconcilerTest(callback.AzureSchema)
			ctx := context.Background()
			q := query(t, raw)

			assert.Equal(t, callback.ViewLoading, rt.rec.View())
			assert.False(t, rt.rec.Processed())

			first := rt.rec.Process(ctx, q)
			writes := rt.durable.Writes() + rt.transient.Writes()

			assert.Equal(t, callback.OutcomeNone, rt.rec.Process(ctx, q))
			assert.Equal(t, writes, rt.durable.Writes()+rt.transient.Writes())
			assert.Len(t, rt.nav.Routes(), 1)
			assert.Equal(t, first, rt.rec.Outcome())
			assert.Equal(t, callback.ViewNone, rt.rec.View())
			assert.True(t, rt.rec.Processed())
		})
	}
}

func TestReconciler_concurrentProcess(t *testing.T) {
	rt := newReconcilerTest(callback.GoogleSchema)
	q := query(t, "token=abc123&userId=7&email=a@b.com&role=STUDENT")

	var wg sync.WaitGroup
	outcomes := make(chan callback.Outcome, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes <- rt.rec.Process(context.Background(), q)
		}()
	}
	wg.Wait()
	close(outcomes)

	var authenticated int
	for o := range outcomes {
		if o == callback.OutcomeAuthenticated {
			authenticated++
		} else {
			assert.Equal(t, callback.OutcomeNone, o)
		}
	}
	assert.Equal(t, 1, authenticated)
	assert.Equal(t, []string{session.RouteStudentDashboard}, rt.nav.Routes())
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "authenticated", callback.OutcomeAuthenticated.String())
	assert.Equal(t, "none", callback.OutcomeNone.String())
}
