package echoapi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/onboarding"
	"github.com/trezcool/gradebook/core/session"
	backendsvc "github.com/trezcool/gradebook/services/backend"
	inmemkv "github.com/trezcool/gradebook/storage/kv/inmem"
	"github.com/trezcool/gradebook/tests"
)

const cookieName = "masomo_client"

type fakeBackend struct {
	teacherToken string
	studentToken string
	accounts     []onboarding.Account
}

var _ Backend = (*fakeBackend)(nil)

func (b *fakeBackend) Login(_ context.Context, username, password string) (session.User, string, error) {
	if password != "secret" {
		return session.User{}, "", backendsvc.ErrInvalidCredentials
	}
	return session.User{UserID: "7", Email: username, FirstName: "Ada", Role: session.RoleTeacher}, b.teacherToken, nil
}

func (b *fakeBackend) CompleteOnboarding(_ context.Context, acct onboarding.Account) (onboarding.Grant, error) {
	b.accounts = append(b.accounts, acct)
	usr := session.User{UserID: "9", Email: acct.Email, FirstName: acct.FirstName, Role: acct.Role}
	return onboarding.Grant{Token: b.studentToken, User: usr}, nil
}

func (b *fakeBackend) RequestPermission(context.Context, string, map[string]string) error {
	return nil
}

type testServer struct {
	*Server
	backend *fakeBackend
	durable *testutil.Storage
	logger  *testutil.Logger
}

func setup(t *testing.T) testServer {
	t.Helper()
	conf := new(core.Config)
	conf.TestMode = true
	conf.Server.DisableReqLogs = true
	conf.Session.ClientCookieName = cookieName
	conf.Session.ClientCookieMaxAge = time.Hour
	conf.Session.NotificationTimeout = time.Second

	b := &fakeBackend{
		teacherToken: testutil.NewToken(t, "TEACHER", time.Now().Add(time.Hour)),
		studentToken: testutil.NewToken(t, "STUDENT", time.Now().Add(time.Hour)),
	}
	durable := testutil.NewStorage()
	logger := new(testutil.Logger)
	validate, translator := core.NewValidator()

	return testServer{
		Server: NewServer(ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Durable:    durable,
			Transient:  inmemkv.New(time.Minute),
			Backend:    b,
			Validate:   validate,
			Translator: translator,
		}),
		backend: b,
		durable: durable,
		logger:  logger,
	}
}

type httpTest struct {
	name         string
	method       string
	path         string
	body         []byte
	wantCode     int
	wantLocation string
	wantData     []byte
}

func newClientID() string {
	return uuid.NewString()
}

func newClientRequest(method, path, clientID string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if clientID != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: clientID})
	}
	return req, httptest.NewRecorder()
}

func (s testServer) do(t *testing.T, method, path, clientID string, data ...[]byte) *httptest.ResponseRecorder {
	t.Helper()
	req, rec := newClientRequest(method, path, clientID, data...)
	s.ServeHTTP(rec, req)
	return rec
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) SessionResponse {
	t.Helper()
	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func jsonBytesEqual(t *testing.T, want, got []byte) bool {
	t.Helper()
	var j1, j2 interface{}
	require.NoError(t, json.Unmarshal(want, &j1))
	if err := json.Unmarshal(got, &j2); err != nil {
		return false
	}
	w, _ := json.MarshalIndent(j1, "", "  ")
	g, _ := json.MarshalIndent(j2, "", "  ")
	if diff := testutil.Diff(string(w), string(g)); diff != "" {
		t.Log(diff)
		return false
	}
	return true
}

func checkResponse(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantLocation != "" {
		if loc := rec.Header().Get("Location"); loc != tt.wantLocation {
			t.Errorf("failed! location = %q; wantLocation %q", loc, tt.wantLocation)
		}
	}
	if tt.wantData != nil && !jsonBytesEqual(t, tt.wantData, rec.Body.Bytes()) {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
