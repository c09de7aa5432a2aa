package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/ledger"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/user"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/tests"
)

func setup(t *testing.T) (*commandLine, *testutil.Env, *bytes.Buffer) {
	t.Helper()
	env := testutil.NewEnv()
	out := new(bytes.Buffer)
	return &commandLine{
		conf:       env.Conf,
		usrRepo:    env.UserRepo,
		studentSvc: env.StudentSvc,
		ledgerSvc:  env.LedgerSvc,
		validate:   env.Validate,
		out:        out,
	}, env, out
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func (tt cliTest) check(t *testing.T, cli *commandLine) {
	t.Helper()
	mockPassword(tt.pwd)
	err := cli.run(append([]string{"admin"}, tt.args...))
	switch {
	case tt.wantErr != nil:
		assert.ErrorIs(t, err, tt.wantErr)
	case tt.wantErrStr != "":
		assert.EqualError(t, err, tt.wantErrStr)
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "add_rooms", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli) })
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, env, _ := setup(t)
	ctx := context.Background()

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-username", "komang"}, wantErr: errHelp},
		{name: "unknown role", args: []string{"adduser", "-username", "komang", "-role", "janitor"}, pwd: "Tr1cky.Kite", wantErrStr: "unknown role \"janitor\""},
		{name: "owner", args: []string{"adduser", "-username", "Komang", "-email", "komang@test.id", "-role", "owner"}, pwd: "Tr1cky.Kite"},
		{name: "teacher", args: []string{"adduser", "-email", "nyoman@test.id", "-name", "Nyoman", "-role", "teacher"}, pwd: "Tr1cky.Kite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli) })
	}

	owner, err := env.UserRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: "komang"})
	require.NoError(t, err)
	assert.Equal(t, "komang", owner.Name)
	assert.Equal(t, []string{user.RoleAdminOwner}, owner.Roles)
	assert.True(t, owner.IsActive)
	assert.NoError(t, owner.CheckPassword("Tr1cky.Kite"))

	teacher, err := env.UserRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: "nyoman@test.id"})
	require.NoError(t, err)
	assert.Equal(t, "Nyoman", teacher.Name)
	assert.Equal(t, []string{user.RoleTeacher}, teacher.Roles)

	// an existing account gets the role added and is reactivated
	teacher.IsActive = false
	_, err = env.UserRepo.UpdateUser(ctx, teacher)
	require.NoError(t, err)
	cliTest{args: []string{"adduser", "-email", "nyoman@test.id", "-role", "admin"}, pwd: "N3w.Secret"}.check(t, cli)

	teacher, err = env.UserRepo.GetUser(ctx, user.GetFilter{ID: teacher.ID})
	require.NoError(t, err)
	assert.Equal(t, "Nyoman", teacher.Name)
	assert.ElementsMatch(t, []string{user.RoleTeacher, user.RoleAdmin}, teacher.Roles)
	assert.True(t, teacher.IsActive)
	assert.NoError(t, teacher.CheckPassword("N3w.Secret"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, env, _ := setup(t)
	usr := testutil.CreateUser(t, env.UserRepo, "User", "made", "made@test.id", "mdr", []string{user.RoleAdmin}, true)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "no password", args: []string{"resetpassword", "-username", "made"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, pwd: "lol"},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, pwd: "lmao"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli) })
	}

	refreshed, err := env.UserRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	assert.NoError(t, refreshed.CheckPassword("lmao"))
}

func Test_commandLine_importStudents(t *testing.T) {
	cli, env, out := setup(t)
	path := filepath.Join(t.TempDir(), "students.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"Name", "Nickname", "Grade", "School", "Program", "Guardian", "Phone", "Email", "Address"},
		{"Ni Luh Sari", "Sari", "5", "SD 1", "Math", "Bu Sari", "0812", "sari@test.id", "Denpasar"},
		{"", "Nobody"},
		{"Gede Arya", "Arya", "6", "SD 2", "English", "Pak Arya", "", "not-an-email", ""},
	}
	for i, row := range rows {
		require.NoError(t, f.SetSheetRow(sheet, "A"+strconv.Itoa(i+1), &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	cliTest{name: "no file", args: []string{"importstudents"}, wantErr: errHelp}.check(t, cli)
	cliTest{args: []string{"importstudents", "-file", path}}.check(t, cli)

	students, err := env.StudentSvc.Query(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Ni Luh Sari", students[0].Name)
	assert.Contains(t, out.String(), "1 students created, 2 rows skipped")
	assert.Contains(t, out.String(), "row 3:")
	assert.Contains(t, out.String(), "row 4:")
}

func Test_commandLine_exportCashBook(t *testing.T) {
	cli, env, out := setup(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cash-book.xlsx")

	for _, ne := range []ledger.NewEntry{
		{EntryDate: core.Today(), Category: ledger.CategoryRegistration, Amount: decimal.NewFromInt(300000), Description: "registration"},
		{EntryDate: core.Today(), Category: ledger.CategoryRent, Amount: decimal.NewFromInt(100000), Description: "rent"},
	} {
		require.NoError(t, ne.Validate(env.Validate))
		_, err := env.LedgerSvc.Record(ctx, "admin", ne)
		require.NoError(t, err)
	}

	tests := []cliTest{
		{name: "no output", args: []string{"exportcashbook"}, wantErr: errHelp},
		{name: "bad date", args: []string{"exportcashbook", "-from", "18/10/2026", "-out", path}, wantErrStr: "-from: expected YYYY-MM-DD (got '18/10/2026')"},
		{name: "everything", args: []string{"exportcashbook", "-out", path}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli) })
	}

	assert.Contains(t, out.String(), "2 lines written to "+path)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())

	book, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer book.Close() //nolint:errcheck
	assert.NotEmpty(t, book.GetSheetList())
}
