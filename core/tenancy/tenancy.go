// Package tenancy implements branch-scoped multi-tenancy.
//
// A superadmin sees and writes documents of every branch. Every other role is
// confined to the branch referenced by its user record, and documents created
// by such an actor are always stamped with that branch.
package tenancy

import "github.com/pkg/errors"

type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleRegistrar  Role = "registrar"
	RoleTeacher    Role = "teacher"
	RoleAccountant Role = "accountant"
)

var (
	// AllRoles is ordered from the most to the least privileged.
	AllRoles = []Role{RoleSuperAdmin, RoleAdmin, RoleRegistrar, RoleAccountant, RoleTeacher}

	rolePriorities = map[Role]int{
		RoleSuperAdmin: 40,
		RoleAdmin:      30,
		RoleRegistrar:  20,
		RoleAccountant: 20,
		RoleTeacher:    10,
	}

	// errors
	ErrForbidden      = errors.New("permission denied")
	ErrNoBranch       = errors.New("user is not assigned to a branch")
	ErrBranchRequired = errors.New("branch_id is required")
	ErrNotVisible     = errors.New("document is outside of the user's branch")
)

func (r Role) IsValid() bool {
	_, ok := rolePriorities[r]
	return ok
}

// Priority is used to prevent actors from granting roles above their own.
func (r Role) Priority() int {
	return rolePriorities[r]
}

func (r Role) IsSuperAdmin() bool { return r == RoleSuperAdmin }

// CanWrite reports whether the role may create, update or delete tenant documents.
func (r Role) CanWrite() bool { return r == RoleSuperAdmin || r == RoleAdmin }

// Actor is the authenticated principal a request is made on behalf of.
type Actor struct {
	UserID   string
	Role     Role
	BranchID string // empty when the user has no branch
}

func (a Actor) IsSuperAdmin() bool { return a.Role.IsSuperAdmin() }

// Scope is the set of branches an actor may read from.
type Scope struct {
	all      bool
	branchID string
}

// AllBranches is the unrestricted scope. Used by superadmins and internal tooling.
func AllBranches() Scope { return Scope{all: true} }

// Branch restricts a scope to a single branch. An empty id matches nothing.
func Branch(id string) Scope { return Scope{branchID: id} }

// IsAll reports whether the scope is unrestricted.
func (s Scope) IsAll() bool { return s.all }

// BranchID returns the branch the scope is restricted to; empty for unrestricted and empty scopes.
func (s Scope) BranchID() string { return s.branchID }

// IsEmpty reports whether the scope can never match a document.
func (s Scope) IsEmpty() bool { return !s.all && s.branchID == "" }

// Allows evaluates the scope against a document's branch.
func (s Scope) Allows(branchID string) bool {
	if s.all {
		return true
	}
	return s.branchID != "" && s.branchID == branchID
}

// ReadScope resolves what an actor may list or read.
// A superadmin sees every branch, or only `selector` when it is set.
// Any other actor is restricted to its own branch and the selector is ignored;
// without a branch the resulting scope matches nothing.
func ReadScope(actor Actor, selector string) Scope {
	if actor.IsSuperAdmin() {
		if selector != "" {
			return Branch(selector)
		}
		return AllBranches()
	}
	return Branch(actor.BranchID)
}

// Visible reports whether a single document may be read by the actor.
func Visible(actor Actor, docBranchID string) bool {
	return ReadScope(actor, "").Allows(docBranchID)
}

// AssignBranch resolves the branch a new document is stamped with.
//
// Only admins and superadmins create. A non-superadmin always stamps its own
// branch (a requested branch is ignored) and is rejected without one.
// A superadmin stamps `requested`, falling back to its own branch.
func AssignBranch(actor Actor, requested string) (string, error) {
	if !actor.Role.CanWrite() {
		return "", ErrForbidden
	}
	if !actor.IsSuperAdmin() {
		if actor.BranchID == "" {
			return "", ErrNoBranch
		}
		return actor.BranchID, nil
	}
	if requested != "" {
		return requested, nil
	}
	if actor.BranchID != "" {
		return actor.BranchID, nil
	}
	return "", ErrBranchRequired
}

// CheckWrite must pass before a document is updated or deleted.
func CheckWrite(actor Actor, docBranchID string) error {
	if !actor.Role.CanWrite() {
		return ErrForbidden
	}
	if actor.IsSuperAdmin() {
		return nil
	}
	if actor.BranchID == "" {
		return ErrNoBranch
	}
	if docBranchID != actor.BranchID {
		return ErrNotVisible
	}
	return nil
}
