package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/session"
	"github.com/trezcool/gradebook/storage/kv"
	inmemkv "github.com/trezcool/gradebook/storage/kv/inmem"
)

var errInvalidClientID = errors.New("client id must be a UUID")

// routeRecorder keeps the last navigation requested by a session store.
type routeRecorder struct {
	route string
}

func (r *routeRecorder) Navigate(route string) {
	r.route = route
}

// login logs in against the backend without persisting anything.
func (cli *commandLine) login(uname, pwd string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)

	usr, token, err := cli.backend.Login(ctx, uname, pwd)
	if err != nil {
		return errors.Wrap(err, "logging in")
	}

	nav := new(routeRecorder)
	store := session.NewStore(session.StoreDeps{
		Storage: inmemkv.New(0),
		Nav:     nav,
		Logger:  cli.logger,
	})
	if err = store.Login(ctx, usr, token); err != nil {
		return err
	}

	sess := store.Current()
	fmt.Fprintf(cli.out, "user:    %s <%s> (%s)\n", sess.User.FullName(), sess.User.Email, sess.User.UserID)
	fmt.Fprintf(cli.out, "role:    %s\n", sess.Role)
	landing := nav.route
	if landing == "" {
		landing = session.RouteOnboardingRole
	}
	fmt.Fprintf(cli.out, "landing: %s\n", landing)
	fmt.Fprintf(cli.out, "header:  Authorization: %s\n", store.AuthHeader()["Authorization"])
	return nil
}

func (cli *commandLine) decode(token string) error {
	claims, err := session.DecodeToken(token)
	if err != nil {
		return err
	}
	role := claims.Role
	if role == "" {
		role = "(none)"
	}
	fmt.Fprintf(cli.out, "role:    %s\n", role)
	if claims.UserID != "" {
		fmt.Fprintf(cli.out, "user:    %s\n", claims.UserID)
	}
	if claims.ExpiresAt == 0 {
		fmt.Fprintln(cli.out, "expires: never (treated as expired)")
	} else {
		fmt.Fprintf(cli.out, "expires: %s\n", time.Unix(claims.ExpiresAt, 0).UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(cli.out, "expired: %t\n", session.IsTokenExpired(token))
	return nil
}

// logout clears the durable session of a browser client.
func (cli *commandLine) logout(clientID string) error {
	id, err := uuid.Parse(clientID)
	if err != nil {
		return errInvalidClientID
	}
	store := session.NewStore(session.StoreDeps{
		Storage: kv.ClientScope(cli.durable, id.String()),
		Nav:     new(routeRecorder),
		Logger:  cli.logger,
	})
	if err = store.Logout(context.Background()); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "client %s logged out\n", id)
	return nil
}
