package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/apps/shared"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/branch"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/student"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/tenancy"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/user"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/storage/database/docstore"
	sqlxrepos "github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/storage/database/sqlx"
	testutil "github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/tests"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	// set up DB & services
	db := testutil.PrepareDB(t)
	validate, translator := testutil.NewValidator()
	svcs, err := shared.NewServices(shared.Options{
		DB:         db,
		Logger:     testutil.Logger{},
		Validate:   validate,
		Translator: translator,
	})
	require.NoError(t, err)

	// start CLI
	out := new(bytes.Buffer)
	return &commandLine{
		db:      db,
		usrRepo: sqlxrepos.NewUserRepository(db),
		svcs:    svcs,
		out:     out,
	}, out
}

func mockPassword(t *testing.T, pwd string) {
	orig := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	origRun := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = origRun })
	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		if dir != "migrations/sqlite" {
			return fmt.Errorf("unexpected dir %q", dir)
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
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
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

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := setup(t)

	usr := testutil.CreateUser(t, cli.usrRepo, "User", "awe", "awe@test.cd", "mdr", tenancy.RoleTeacher, "", true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", "AWE@test.cd"}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			pwd := ""
			if extra, ok := tt.extra.(extra); ok {
				pwd = extra.pwd
			}
			mockPassword(t, pwd)

			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := cli.usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				if err != nil {
					t.Fatalf("GetUser() failed, %v", err)
				}
				if refreshedUsr.CheckPassword(pwd) != nil {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_createSuperuser(t *testing.T) {
	cli, _ := setup(t)
	ctx := context.Background()

	t.Run("usage", func(t *testing.T) {
		mockPassword(t, "s3cret!Pass")
		assert.Equal(t, errHelp, cli.run([]string{"admin", "createsuperuser"}))
		assert.Equal(t, errHelp, cli.run([]string{"admin", "createsuperuser", "-username", "root"}))
		assert.Equal(t, errHelp, cli.run([]string{"admin", "createsuperuser", "-wat"}))
	})

	t.Run("password required", func(t *testing.T) {
		mockPassword(t, "")
		assert.Equal(t, errHelp, cli.run([]string{"admin", "createsuperuser", "-name", "Root", "-username", "root"}))
	})

	t.Run("create", func(t *testing.T) {
		mockPassword(t, "s3cret!Pass")
		require.NoError(t, cli.run([]string{"admin", "createsuperuser", "-name", "Root", "-username", "Root", "-email", "root@test.cd"}))

		usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: "root"})
		require.NoError(t, err)
		assert.Equal(t, "Root", usr.Name)
		assert.Equal(t, "root@test.cd", usr.Email)
		assert.Equal(t, tenancy.RoleSuperAdmin, usr.Role)
		assert.Empty(t, usr.BranchID)
		assert.True(t, usr.IsActive)
		assert.NoError(t, usr.CheckPassword("s3cret!Pass"))
	})

	t.Run("email taken", func(t *testing.T) {
		mockPassword(t, "s3cret!Pass")
		err := cli.run([]string{"admin", "createsuperuser", "-name", "Other", "-username", "other", "-email", "root@test.cd"})
		assert.Equal(t, user.ErrEmailExists, err)
	})

	t.Run("promote an existing user", func(t *testing.T) {
		teacher := testutil.CreateUser(t, cli.usrRepo, "Teacher", "teacher", "", "", tenancy.RoleTeacher, "some-branch", false)
		mockPassword(t, "n3w!Password")
		require.NoError(t, cli.run([]string{"admin", "createsuperuser", "-name", "Head Teacher", "-username", "teacher"}))

		usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{ID: teacher.ID})
		require.NoError(t, err)
		assert.Equal(t, "Head Teacher", usr.Name)
		assert.Equal(t, tenancy.RoleSuperAdmin, usr.Role)
		assert.True(t, usr.IsActive)
		assert.NoError(t, usr.CheckPassword("n3w!Password"))
	})
}

func Test_commandLine_importStudents(t *testing.T) {
	cli, out := setup(t)
	branchRepo, err := docstore.New(cli.db, branch.Collection, branch.New)
	require.NoError(t, err)
	b := testutil.CreateBranch(t, branchRepo, "Main Campus", "MAIN")

	path := filepath.Join(t.TempDir(), "students.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range [][]interface{}{
		{"student_code", "first_name", "last_name", "gender"},
		{"S-001", "Amani", "Mwangi", "male"},
		{"S-002", "Baraka", "", "male"},
	} {
		row := row
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))

	assert.Equal(t, errHelp, cli.run([]string{"admin", "importstudents", "-file", path}))
	assert.Error(t, cli.run([]string{"admin", "importstudents", "-file", filepath.Join(t.TempDir(), "nope.xlsx"), "-branch", b.ID}))

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "importstudents", "-file", path, "-branch", b.ID}))
	assert.Contains(t, out.String(), "created: 1, rejected: 1")
	assert.Contains(t, out.String(), "row 3: last_name: ")

	n, err := cli.svcs.Students.Count(context.Background(), cliActor, b.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func Test_commandLine_orphans(t *testing.T) {
	cli, out := setup(t)

	require.NoError(t, cli.run([]string{"admin", "orphans"}))
	assert.Equal(t, "no orphans\n", out.String())

	s := &student.Student{StudentCode: "S-001", FirstName: "Amani", LastName: "Mwangi", Gender: "male", Status: student.StatusActive}
	s.ID = "orphan"
	s.BranchID = "gone-branch"
	require.NoError(t, cli.svcs.Students.Repository().Insert(context.Background(), s))

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "orphans"}))
	assert.Equal(t, "students: 0 without branch, 1 with an unknown branch\n", out.String())
}
