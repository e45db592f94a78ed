// Package testutil holds helpers shared by test suites.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/branch"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/document"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/tenancy"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/user"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/storage/database"
)

// PrepareDB opens a migrated SQLite database living in t.TempDir().
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	conf := core.NewTestConfig()
	conf.Database.Engine = database.EngineSQLite
	conf.Database.Path = filepath.Join(t.TempDir(), "test.db")

	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("database.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}
	return db
}

// NewValidator returns a validator with every application validator registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	role tenancy.Role,
	branchID string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	tstamp = tstamp.Truncate(time.Millisecond)
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Username:  uname,
		Email:     email,
		Role:      role,
		BranchID:  branchID,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd == "" {
		pwd = uuid.New().String()
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func CreateBranch(t *testing.T, repo document.Repository[*branch.Branch], name, code string) *branch.Branch {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	active := true
	b := &branch.Branch{Name: name, Code: code, IsActive: &active}
	b.ID = uuid.New().String()
	b.BranchID = b.ID
	b.CreatedAt = now
	b.UpdatedAt = now
	if err := repo.Insert(context.Background(), b); err != nil {
		t.Fatalf("createBranch() failed: %v", err)
	}
	return b
}

// Branches is a fixed set of existing branch ids.
type Branches map[string]bool

func (b Branches) Exists(_ context.Context, id string) (bool, error) { return b[id], nil }

// NewDeps returns collection service deps knowing the given branches, with a fresh registry.
func NewDeps(branchIDs ...string) document.Deps {
	branches := make(Branches, len(branchIDs))
	for _, id := range branchIDs {
		branches[id] = true
	}
	validate, translator := NewValidator()
	return document.Deps{
		Branches:   branches,
		Registry:   document.NewRegistry(),
		Validate:   validate,
		Translator: translator,
	}
}

// FieldErrors flattens a *core.ValidationError into {field: message}; nil when err is not one.
func FieldErrors(err error) map[string]string {
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		return nil
	}
	flds := make(map[string]string, len(vErr.Fields))
	for _, f := range vErr.Fields {
		flds[f.Field] = f.Error
	}
	return flds
}

// Logger discards everything; Fatal fails loudly.
type Logger struct{}

var _ core.Logger = Logger{}

func (Logger) Debug(string, ...interface{}) {}
func (Logger) Info(string, ...interface{})  {}
func (Logger) Warn(string, ...interface{})  {}
func (Logger) Error(string, ...interface{}) {}
func (Logger) Fatal(msg string, args ...interface{}) {
	panic(fmt.Sprint(append([]interface{}{msg}, args...)...))
}
