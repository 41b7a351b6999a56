package backend

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/onboarding"
	"github.com/trezcool/gradebook/core/session"
)

// backend endpoints
const (
	pathLogin                = "/auth/login"
	pathCompleteRegistration = "/auth/oauth2/complete-registration"
	pathRegisterNotification = "/notifications/register"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Error is a non-2xx backend response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return "backend responded " + http.StatusText(e.Status)
	}
	return e.Message
}

type Client struct {
	http *resty.Client
}

var (
	_ session.Notifier   = (*Client)(nil)
	_ onboarding.Backend = (*Client)(nil)
)

func NewClient(conf *core.Config) *Client {
	c := resty.New().
		SetBaseURL(conf.Backend.BaseURL).
		SetTimeout(conf.Backend.Timeout).
		SetRetryCount(conf.Backend.RetryCount).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
	return &Client{http: c}
}

// Login exchanges credentials for a user and a token.
func (c *Client) Login(ctx context.Context, username, password string) (session.User, string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": username, "password": password}).
		Post(pathLogin)
	if err != nil {
		return session.User{}, "", errors.Wrap(err, "requesting login")
	}
	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return session.User{}, "", ErrInvalidCredentials
	}
	if err = checkResponse(resp); err != nil {
		return session.User{}, "", err
	}
	grant, err := parseGrant(resp.Body())
	if err != nil {
		return session.User{}, "", err
	}
	return grant.User, grant.Token, nil
}

// CompleteOnboarding creates the account of a user who signed in through a provider.
func (c *Client) CompleteOnboarding(ctx context.Context, acct onboarding.Account) (onboarding.Grant, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(acct).
		Post(pathCompleteRegistration)
	if err != nil {
		return onboarding.Grant{}, errors.Wrap(err, "requesting registration")
	}
	if err = checkResponse(resp); err != nil {
		return onboarding.Grant{}, err
	}
	return parseGrant(resp.Body())
}

// RequestPermission registers the user for push notifications.
func (c *Client) RequestPermission(ctx context.Context, userID string, authHeader map[string]string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(authHeader).
		SetBody(map[string]string{"userId": userID}).
		Post(pathRegisterNotification)
	if err != nil {
		return errors.Wrap(err, "requesting notification registration")
	}
	return checkResponse(resp)
}

func checkResponse(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	body := resp.Body()
	msg := gjson.GetBytes(body, "message").String()
	if msg == "" {
		msg = gjson.GetBytes(body, "error").String()
	}
	return &Error{Status: resp.StatusCode(), Message: strings.TrimSpace(msg)}
}

// parseGrant reads {token, user}, possibly wrapped in a "data" object.
func parseGrant(body []byte) (onboarding.Grant, error) {
	root := gjson.ParseBytes(body)
	if data := root.Get("data"); data.IsObject() {
		root = data
	}

	token := root.Get("token").String()
	if token == "" {
		token = root.Get("accessToken").String()
	}
	if token == "" {
		return onboarding.Grant{}, errors.New("backend response carries no token")
	}

	usrData := root.Get("user")
	if !usrData.IsObject() {
		return onboarding.Grant{}, errors.New("backend response carries no user")
	}
	usr, err := session.DecodeUser([]byte(usrData.Raw))
	if err != nil {
		return onboarding.Grant{}, errors.Wrap(err, "decoding user")
	}
	return onboarding.Grant{Token: token, User: usr.Normalize()}, nil
}
