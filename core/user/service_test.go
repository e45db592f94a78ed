package user_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/document"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/tenancy"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/user"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/storage/database/sqlx"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/tests"
)

const strongPwd = "Kq7#vLm2!xZ"

type branches map[string]bool

func (b branches) Exists(_ context.Context, id string) (bool, error) { return b[id], nil }

func setup(t *testing.T) (*user.Service, user.Repository) {
	t.Helper()
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewUserRepository(db)
	validate, translator := testutil.NewValidator()
	user.LoadCommonPasswords(core.NewTestConfig(), testutil.Logger{})
	return user.NewService(repo, branches{"b1": true, "b2": true}, validate, translator), repo
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), "want a validation error, got %v", err)
	flds := make(map[string]string, len(vErr.Fields))
	for _, f := range vErr.Fields {
		flds[f.Field] = f.Error
	}
	return flds
}

func newUser(uname string, role tenancy.Role, branchID string) user.NewUser {
	return user.NewUser{
		Name:            "Some One",
		Username:        uname,
		Email:           uname + "@school.test",
		Role:            role,
		BranchID:        branchID,
		Password:        strongPwd,
		PasswordConfirm: strongPwd,
	}
}

func TestService_Create(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	super := testutil.CreateUser(t, repo, "Root", "root", "root@school.test", "", tenancy.RoleSuperAdmin, "", true).Actor()
	admin := testutil.CreateUser(t, repo, "Admin", "admin1", "admin1@school.test", "", tenancy.RoleAdmin, "b1", true).Actor()
	teacher := testutil.CreateUser(t, repo, "Teacher", "teacher1", "teacher1@school.test", "", tenancy.RoleTeacher, "b1", true).Actor()
	adminNoBranch := tenancy.Actor{UserID: "x", Role: tenancy.RoleAdmin}

	tests := []struct {
		name       string
		actor      tenancy.Actor
		nu         user.NewUser
		wantBranch string
		wantErr    error
		wantField  string
	}{
		{name: "teacher forbidden", actor: teacher, nu: newUser("newbie", tenancy.RoleTeacher, ""), wantErr: tenancy.ErrForbidden},
		{name: "admin stamps own branch", actor: admin, nu: newUser("reg1", tenancy.RoleRegistrar, "b2"), wantBranch: "b1"},
		{name: "admin without branch", actor: adminNoBranch, nu: newUser("reg2", tenancy.RoleRegistrar, ""), wantErr: tenancy.ErrNoBranch},
		{name: "admin cannot grant superadmin", actor: admin, nu: newUser("boss", tenancy.RoleSuperAdmin, ""), wantField: "role"},
		{name: "superadmin picks branch", actor: super, nu: newUser("acc1", tenancy.RoleAccountant, "b2"), wantBranch: "b2"},
		{name: "superadmin needs a branch for staff", actor: super, nu: newUser("acc2", tenancy.RoleAccountant, ""), wantField: "branch_id"},
		{name: "unknown branch", actor: super, nu: newUser("acc3", tenancy.RoleAccountant, "b9"), wantField: "branch_id"},
		{name: "superadmin without branch", actor: super, nu: newUser("root2", tenancy.RoleSuperAdmin, ""), wantBranch: ""},
		{name: "invalid role", actor: super, nu: newUser("acc4", "janitor", "b1"), wantField: "role"},
		{name: "username taken", actor: super, nu: newUser("admin1", tenancy.RoleTeacher, "b1"), wantField: "username"},
		{
			name:  "common password",
			actor: admin,
			nu: func() user.NewUser {
				nu := newUser("weak1", tenancy.RoleTeacher, "")
				nu.Password, nu.PasswordConfirm = "P@ssw0rd", "P@ssw0rd"
				return nu
			}(),
			wantField: "password",
		},
		{
			name:  "password mismatch",
			actor: admin,
			nu: func() user.NewUser {
				nu := newUser("weak2", tenancy.RoleTeacher, "")
				nu.PasswordConfirm = "nope"
				return nu
			}(),
			wantField: "password_confirm",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := svc.Create(ctx, tt.actor, tt.nu)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantField != "":
				assert.Contains(t, fieldErrors(t, err), tt.wantField)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantBranch, usr.BranchID)
				assert.True(t, usr.IsActive)
				assert.NoError(t, usr.CheckPassword(strongPwd))
			}
		})
	}
}

func TestService_QueryAndGet(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	super := testutil.CreateUser(t, repo, "Root", "root", "root@school.test", "", tenancy.RoleSuperAdmin, "", true)
	admin1 := testutil.CreateUser(t, repo, "Admin One", "admin1", "admin1@school.test", "", tenancy.RoleAdmin, "b1", true)
	teacher1 := testutil.CreateUser(t, repo, "Teacher One", "teacher1", "teacher1@school.test", "", tenancy.RoleTeacher, "b1", false)
	admin2 := testutil.CreateUser(t, repo, "Admin Two", "admin2", "admin2@school.test", "", tenancy.RoleAdmin, "b2", true)

	usernames := func(users []user.User) []string {
		out := make([]string, 0, len(users))
		for _, u := range users {
			out = append(out, u.Username)
		}
		return out
	}
	byName := []core.DBOrdering{{Field: "username", Ascending: true}}
	bFalse := false

	tests := []struct {
		name   string
		actor  tenancy.Actor
		filter user.QueryFilter
		want   []string
	}{
		{name: "superadmin sees all", actor: super.Actor(), want: []string{"admin1", "admin2", "root", "teacher1"}},
		{name: "superadmin selects branch", actor: super.Actor(), filter: user.QueryFilter{BranchID: "b2"}, want: []string{"admin2"}},
		{name: "admin sees own branch", actor: admin1.Actor(), want: []string{"admin1", "teacher1"}},
		{name: "admin selector ignored", actor: admin1.Actor(), filter: user.QueryFilter{BranchID: "b2"}, want: []string{"admin1", "teacher1"}},
		{name: "search", actor: super.Actor(), filter: user.QueryFilter{Search: "ONE"}, want: []string{"admin1", "teacher1"}},
		{name: "roles", actor: super.Actor(), filter: user.QueryFilter{Roles: []tenancy.Role{tenancy.RoleAdmin}}, want: []string{"admin1", "admin2"}},
		{name: "is_active", actor: super.Actor(), filter: user.QueryFilter{IsActive: &bFalse}, want: []string{"teacher1"}},
		{name: "no branch", actor: tenancy.Actor{Role: tenancy.RoleAdmin}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := svc.Query(ctx, tt.actor, tt.filter, byName)
			require.NoError(t, err)
			assert.Equal(t, tt.want, usernames(users))
		})
	}

	_, err := svc.Get(ctx, admin1.Actor(), admin2.ID)
	assert.Equal(t, user.ErrNotFound, err)
	_, err = svc.Get(ctx, teacher1.Actor(), admin1.ID)
	assert.Equal(t, user.ErrNotFound, err, "non-admins only see themselves")
	got, err := svc.Get(ctx, teacher1.Actor(), teacher1.ID)
	require.NoError(t, err)
	assert.Equal(t, teacher1.Username, got.Username)
	_, err = svc.Get(ctx, admin1.Actor(), super.ID)
	assert.Equal(t, user.ErrNotFound, err)
}

func TestService_Update(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	super := testutil.CreateUser(t, repo, "Root", "root", "root@school.test", "", tenancy.RoleSuperAdmin, "", true)
	admin1 := testutil.CreateUser(t, repo, "Admin One", "admin1", "admin1@school.test", "", tenancy.RoleAdmin, "b1", true)
	teacher1 := testutil.CreateUser(t, repo, "Teacher One", "teacher1", "teacher1@school.test", "", tenancy.RoleTeacher, "b1", true)
	admin2 := testutil.CreateUser(t, repo, "Admin Two", "admin2", "admin2@school.test", "", tenancy.RoleAdmin, "b2", true)

	bFalse := false
	roleAdmin := tenancy.RoleAdmin
	roleSuper := tenancy.RoleSuperAdmin
	b2 := "b2"

	// self service
	usr, err := svc.Update(ctx, teacher1.Actor(), teacher1.ID, user.UpdateUser{Name: "Teacher Uno"})
	require.NoError(t, err)
	assert.Equal(t, "Teacher Uno", usr.Name)
	assert.Equal(t, "teacher1", usr.Username)

	_, err = svc.Update(ctx, teacher1.Actor(), teacher1.ID, user.UpdateUser{IsActive: &bFalse})
	assert.Equal(t, tenancy.ErrForbidden, err)

	// admins of the branch
	usr, err = svc.Update(ctx, admin1.Actor(), teacher1.ID, user.UpdateUser{Role: &roleAdmin})
	require.NoError(t, err)
	assert.Equal(t, tenancy.RoleAdmin, usr.Role)

	_, err = svc.Update(ctx, admin1.Actor(), teacher1.ID, user.UpdateUser{Role: &roleSuper})
	assert.Contains(t, fieldErrors(t, err), "role")

	_, err = svc.Update(ctx, admin1.Actor(), teacher1.ID, user.UpdateUser{BranchID: &b2})
	assert.Contains(t, fieldErrors(t, err), "branch_id")

	_, err = svc.Update(ctx, admin1.Actor(), admin2.ID, user.UpdateUser{Name: "x"})
	assert.Equal(t, user.ErrNotFound, err)

	_, err = svc.Update(ctx, admin1.Actor(), teacher1.ID, user.UpdateUser{Username: "admin2"})
	assert.Contains(t, fieldErrors(t, err), "username")

	// superadmin moves users
	usr, err = svc.Update(ctx, super.Actor(), teacher1.ID, user.UpdateUser{BranchID: &b2, IsActive: &bFalse})
	require.NoError(t, err)
	assert.Equal(t, "b2", usr.BranchID)
	assert.False(t, usr.IsActive)

	// password change
	newPwd := "Zr9!pQw4#Tb"
	_, err = svc.Update(ctx, admin2.Actor(), admin2.ID, user.UpdateUser{Password: newPwd, PasswordConfirm: newPwd})
	require.NoError(t, err)
	refreshed, err := repo.GetUser(ctx, user.GetFilter{ID: admin2.ID})
	require.NoError(t, err)
	assert.NoError(t, refreshed.CheckPassword(newPwd))
}

func TestService_Delete(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	super := testutil.CreateUser(t, repo, "Root", "root", "root@school.test", "", tenancy.RoleSuperAdmin, "", true)
	admin1 := testutil.CreateUser(t, repo, "Admin One", "admin1", "admin1@school.test", "", tenancy.RoleAdmin, "b1", true)
	teacher1 := testutil.CreateUser(t, repo, "Teacher One", "teacher1", "teacher1@school.test", "", tenancy.RoleTeacher, "b1", true)
	admin2 := testutil.CreateUser(t, repo, "Admin Two", "admin2", "admin2@school.test", "", tenancy.RoleAdmin, "b2", true)

	assert.Equal(t, tenancy.ErrForbidden, svc.Delete(ctx, admin1.Actor(), admin1.ID), "no suicide")
	assert.Equal(t, tenancy.ErrForbidden, svc.Delete(ctx, teacher1.Actor(), admin1.ID))
	assert.Equal(t, user.ErrNotFound, svc.Delete(ctx, admin1.Actor(), teacher1.ID, admin2.ID))

	n, err := repo.CountByBranch(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, svc.Delete(ctx, admin1.Actor(), teacher1.ID))
	require.NoError(t, svc.Delete(ctx, super.Actor(), admin2.ID))

	n, err = svc.CountInBranch(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = repo.GetUser(ctx, user.GetFilter{ID: admin2.ID})
	assert.Equal(t, user.ErrNotFound, err)
}

func TestService_Authenticate(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	active := testutil.CreateUser(t, repo, "Active", "active", "active@school.test", strongPwd, tenancy.RoleTeacher, "b1", true)
	testutil.CreateUser(t, repo, "Gone", "gone", "gone@school.test", strongPwd, tenancy.RoleTeacher, "b1", false)

	tests := []struct {
		name    string
		uname   string
		pwd     string
		wantErr error
	}{
		{name: "unknown user", uname: "nobody", pwd: strongPwd, wantErr: user.ErrInvalidCredentials},
		{name: "wrong password", uname: "active", pwd: "nope", wantErr: user.ErrInvalidCredentials},
		{name: "deactivated", uname: "gone", pwd: strongPwd, wantErr: user.ErrAccountDeactivated},
		{name: "username", uname: "ACTIVE", pwd: strongPwd},
		{name: "email", uname: "active@school.test", pwd: strongPwd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := svc.Authenticate(ctx, tt.uname, tt.pwd)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, active.ID, usr.ID)
			assert.False(t, usr.LastLogin.IsZero())
		})
	}
}

// filterRecorder remembers the last filter handed to the repository.
type filterRecorder struct {
	user.Repository
	last user.QueryFilter
}

func (r *filterRecorder) FilterUsers(ctx context.Context, f user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	r.last = f
	return r.Repository.FilterUsers(ctx, f, ordering)
}

func TestService_QueryLimit(t *testing.T) {
	_, repo := setup(t)
	ctx := context.Background()
	rec := &filterRecorder{Repository: repo}
	validate, translator := testutil.NewValidator()
	svc := user.NewService(rec, branches{"b1": true}, validate, translator)
	super := testutil.CreateUser(t, repo, "Root", "root", "root@school.test", "", tenancy.RoleSuperAdmin, "", true).Actor()

	tests := []struct {
		limit int
		want  int
	}{
		{limit: 0, want: document.DefaultLimit},
		{limit: -5, want: document.DefaultLimit},
		{limit: 20, want: 20},
		{limit: document.MaxLimit, want: document.MaxLimit},
		{limit: document.MaxLimit + 1, want: document.MaxLimit},
	}
	for _, tt := range tests {
		_, err := svc.Query(ctx, super, user.QueryFilter{Limit: tt.limit}, nil)
		require.NoError(t, err)
		assert.Equal(t, tt.want, rec.last.Limit, "limit %d", tt.limit)
	}
}
