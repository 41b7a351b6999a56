package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/session"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

// credentialLogin exchanges credentials for a session.
type credentialLogin interface {
	Login(ctx context.Context, username, password string) (session.User, string, error)
}

type commandLine struct {
	out     io.Writer
	backend credentialLogin
	durable core.Storage
	logger  core.Logger
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -username EMAIL - log in against the backend and print the resulting session")
	fmt.Fprintln(cli.out, "  decode -token TOKEN - print the role and expiry of a bearer token")
	fmt.Fprintln(cli.out, "  logout -client CLIENT_ID - clear the session stored for a browser client")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	loginCmd := flag.NewFlagSet("login", flag.ContinueOnError)
	loginCmd.SetOutput(cli.out)
	loginUname := loginCmd.String("username", "", "The user's email. The password will be prompted next.")

	decodeCmd := flag.NewFlagSet("decode", flag.ContinueOnError)
	decodeCmd.SetOutput(cli.out)
	decodeToken := decodeCmd.String("token", "", "The bearer token to decode.")

	logoutCmd := flag.NewFlagSet("logout", flag.ContinueOnError)
	logoutCmd.SetOutput(cli.out)
	logoutClient := logoutCmd.String("client", "", "The client id (value of the client cookie).")

	switch args[1] {
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loginUname == "" {
			loginCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			loginCmd.Usage()
			return errHelp
		}
		return cli.login(*loginUname, string(pwd))

	case "decode":
		if err := decodeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *decodeToken == "" {
			decodeCmd.Usage()
			return errHelp
		}
		return cli.decode(*decodeToken)

	case "logout":
		if err := logoutCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *logoutClient == "" {
			logoutCmd.Usage()
			return errHelp
		}
		return cli.logout(*logoutClient)

	default:
		cli.printUsage()
		return errHelp
	}
}
