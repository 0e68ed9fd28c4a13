package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classwork/core"
	"github.com/trezcool/classwork/tests"
)

func setup(t *testing.T) (*testutil.Env, *commandLine) {
	env := testutil.NewEnv(t)
	return env, &commandLine{usrSvc: env.UserSvc}
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string   // typed at the prompt
	wantErr    error
	wantErrStr string
	wantFail   core.Failure
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest, check func(t *testing.T, tt cliTest)) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd := tt.pwd
		readPasswordFunc = func(fd int) ([]byte, error) {
			return []byte(pwd), nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			case tt.wantFail != core.FailureNone:
				require.Error(t, err)
				assert.Equal(t, tt.wantFail, core.FailureOf(err))
			default:
				require.NoError(t, err)
				if check != nil {
					check(t, tt)
				}
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	_, cli := setup(t)

	var ran []string
	migrateFunc = func(_ context.Context, _ *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		ran = append(ran, command)
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
	}
	runCLITests(t, cli, tests, nil)
	assert.Equal(t, []string{"up", "up-to", "down", "status"}, ran)
}

func Test_commandLine_addUser(t *testing.T) {
	env, cli := setup(t)
	env.CreateUser(t, "taken", core.RoleStudent)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no email", args: []string{"adduser", "-username", "root"}, pwd: "s3cure-pass", wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-username", "root", "-email", "root@school.cd"}, wantErr: errHelp},
		{name: "weak password", args: []string{"adduser", "-username", "root", "-email", "root@school.cd"}, pwd: "short", wantFail: core.FailureValidation},
		{name: "unknown role", args: []string{"adduser", "-username", "root", "-email", "root@school.cd", "-role", "janitor"}, pwd: "s3cure-pass", wantFail: core.FailureValidation},
		{name: "username taken", args: []string{"adduser", "-username", "taken", "-email", "new@school.cd"}, pwd: "s3cure-pass", wantFail: core.FailureConflict},
		{name: "admin", args: []string{"adduser", "-username", "Root", "-email", "root@school.cd"}, pwd: "s3cure-pass"},
		{name: "teacher", args: []string{"adduser", "-username", "mwalimu", "-email", "mwalimu@school.cd", "-role", "teacher"}, pwd: "s3cure-pass"},
	}
	runCLITests(t, cli, tests, nil)

	root, err := env.UserSvc.GetByUsername(context.Background(), "root")
	require.NoError(t, err)
	assert.Equal(t, core.RoleAdmin, root.Role)
	assert.True(t, env.Hasher.Verify("s3cure-pass", root.PasswordHash))

	teacher, err := env.UserSvc.GetByUsername(context.Background(), "mwalimu")
	require.NoError(t, err)
	assert.Equal(t, core.RoleTeacher, teacher.Role)
}

func Test_commandLine_resetPassword(t *testing.T) {
	env, cli := setup(t)
	usr := env.CreateUser(t, "awe", core.RoleTeacher)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "awe"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, pwd: "n3w-password", wantErr: core.ErrNotFound},
		{name: "all numeric", args: []string{"resetpassword", "-username", "awe"}, pwd: "1234567890", wantFail: core.FailureValidation},
		{name: "reset", args: []string{"resetpassword", "-username", "AWE"}, pwd: "n3w-password"},
	}
	runCLITests(t, cli, tests, func(t *testing.T, tt cliTest) {
		refreshed, err := env.UserSvc.GetByUsername(context.Background(), usr.Username)
		require.NoError(t, err)
		assert.False(t, bytes.Equal(refreshed.PasswordHash, usr.PasswordHash))
		assert.True(t, env.Hasher.Verify(tt.pwd, refreshed.PasswordHash))
	})
}
