package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/elimu/apps/api/echo"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/testutil"
)

func setup(t *testing.T) (*commandLine, *testutil.Stack, *bytes.Buffer) {
	stack := testutil.NewStack()
	var out bytes.Buffer
	return &commandLine{
		conf:   stack.Conf,
		usrSvc: stack.UserSvc,
		out:    &out,
	}, stack, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		if _, err := fs.Stat(fsys, dir); err != nil {
			return err
		}
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "0"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "course_reviews", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			} else if tt.wantErr != nil || tt.wantErrStr != "" {
				t.Errorf("cli.run() expected an error")
			}
		})
	}
}

func Test_commandLine_setRole(t *testing.T) {
	cli, stack, _ := setup(t)

	usr := testutil.CreateUser(t, stack.Users, "Awe", user.RoleLearner, true)

	tests := []struct {
		cliTest
		wantRole user.Role
	}{
		{cliTest: cliTest{name: "no args", args: []string{"setrole"}, wantErr: errHelp}},
		{cliTest: cliTest{name: "no role", args: []string{"setrole", "-subject", usr.Subject}, wantErr: errHelp}},
		{cliTest: cliTest{name: "unknown user", args: []string{"setrole", "-subject", "lol", "-role", "admin"}, wantErr: user.ErrNotFound}},
		{cliTest: cliTest{name: "invalid role", args: []string{"setrole", "-subject", usr.Subject, "-role", "king"}, wantErrStr: "role: invalid role"}},
		{cliTest: cliTest{name: "instructor", args: []string{"setrole", "-subject", usr.Subject, "-role", "instructor"}}, wantRole: user.RoleInstructor},
		{cliTest: cliTest{name: "admin (case insensitive)", args: []string{"setrole", "-subject", usr.Subject, "-role", " ADMIN "}}, wantRole: user.RoleAdmin},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				require.NoError(t, err)
				refreshed, err := stack.Users.GetUserByID(context.Background(), usr.ID)
				require.NoError(t, err)
				assert.Equal(t, tt.wantRole, refreshed.Role)
			}
		})
	}
}

func Test_commandLine_token(t *testing.T) {
	cli, stack, out := setup(t)
	secret := stack.Conf.SecretKey

	type extra struct {
		key string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"token"}, wantErr: errHelp},
		{name: "configured key", args: []string{"token", "-subject", "user_1", "-email", "Awe@Test.cd", "-name", "Awe"}},
		{name: "empty prompted key", args: []string{"token", "-subject", "user_2"}, extra: extra{}, wantErr: errHelp},
		{name: "prompted key", args: []string{"token", "-subject", "user_2"}, extra: extra{key: "prompted"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			key := secret
			if ex, ok := tt.extra.(extra); ok {
				cli.conf.SecretKey = ""
				readPasswordFunc = func(fd int) ([]byte, error) { return []byte(ex.key), nil }
				key = ex.key
			}
			defer func() { cli.conf.SecretKey = secret }()

			err := cli.run(args)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)

			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			raw := lines[len(lines)-1]
			claims := new(echoapi.Claims)
			_, err = jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) { return []byte(key), nil })
			require.NoError(t, err)

			usr, err := stack.Users.GetUserBySubject(context.Background(), claims.Subject)
			require.NoError(t, err)
			assert.Equal(t, user.RoleLearner, usr.Role)
		})
	}
}
