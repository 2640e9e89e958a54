package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"
	"time"

	"golang.org/x/term"

	echoapi "github.com/trezcool/elimu/apps/api/echo"
	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db     *sql.DB
	conf   *core.Config
	usrSvc *user.Service
	out    io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...]                  - run a goose command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  setrole -subject SUBJECT -role ROLE        - set the role (admin, instructor, learner) of a user")
	fmt.Fprintln(cli.out, "  token -subject SUBJECT [-email E] [-name N] [-ttl D] - print a signed token for a user")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	setRoleCmd := flag.NewFlagSet("setrole", flag.ContinueOnError)
	setRoleSubject := setRoleCmd.String("subject", "", "The user's identity provider subject.")
	setRoleRole := setRoleCmd.String("role", "", "One of admin, instructor or learner.")

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenSubject := tokenCmd.String("subject", "", "The identity provider subject the token is issued for.")
	tokenEmail := tokenCmd.String("email", "", "The email claim.")
	tokenName := tokenCmd.String("name", "", "The name claim.")
	tokenTTL := tokenCmd.Duration("ttl", 24*time.Hour, "How long the token is valid.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "setrole":
		if err := setRoleCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *setRoleSubject == "" || *setRoleRole == "" {
			setRoleCmd.Usage()
			return errHelp
		}
		return cli.setRole(*setRoleSubject, *setRoleRole)
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenSubject == "" {
			tokenCmd.Usage()
			return errHelp
		}
		if cli.conf.SecretKey == "" {
			fmt.Fprint(cli.out, "Enter signing key:")
			key, err := readPasswordFunc(int(syscall.Stdin))
			fmt.Fprintln(cli.out)
			if err != nil {
				return err
			}
			if len(key) == 0 {
				tokenCmd.Usage()
				return errHelp
			}
			cli.conf.SecretKey = string(key)
		}
		ident := user.Identity{Subject: *tokenSubject, Email: *tokenEmail, Name: *tokenName}
		return cli.token(ident, *tokenTTL)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) setRole(subject, role string) error {
	usr, err := cli.usrSvc.SetRole(context.Background(), subject, user.Role(core.CleanString(role, true /* lower */)))
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s (%s) is now %s\n", usr.Name, usr.Subject, usr.Role)
	return nil
}

// token makes sure the user exists, then prints a token the API accepts for them.
func (cli *commandLine) token(ident user.Identity, ttl time.Duration) error {
	if _, err := cli.usrSvc.Ensure(context.Background(), ident); err != nil {
		return err
	}
	token, err := echoapi.GenerateToken(cli.conf, echoapi.NewClaims(cli.conf, ident, ttl))
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}
