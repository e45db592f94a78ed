package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/tenancy"
)

var Roles = []Role{
	{Name: "Super Admin", Value: tenancy.RoleSuperAdmin},
	{Name: "Admin", Value: tenancy.RoleAdmin},
	{Name: "Registrar", Value: tenancy.RoleRegistrar},
	{Name: "Accountant", Value: tenancy.RoleAccountant},
	{Name: "Teacher", Value: tenancy.RoleTeacher},
}

type Role struct {
	Name  string       `json:"name"`
	Value tenancy.Role `json:"value"`
}

type User struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Username     string       `json:"username"`
	Email        string       `json:"email"`
	Role         tenancy.Role `json:"role"`
	BranchID     string       `json:"branch_id"` // empty for superadmins not attached to a branch
	IsActive     bool         `json:"is_active"`
	PasswordHash []byte       `json:"-"`
	CreatedAt    time.Time    `json:"created_at"` // UTC
	UpdatedAt    time.Time    `json:"updated_at"` // UTC
	LastLogin    time.Time    `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// Actor returns the principal requests made by this user act as.
func (u User) Actor() tenancy.Actor {
	return tenancy.Actor{UserID: u.ID, Role: u.Role, BranchID: u.BranchID}
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string       `json:"name" validate:"required"`
	Username        string       `json:"username" validate:"required,min=3,max=50,alphanum_"`
	Email           string       `json:"email" validate:"omitempty,email"`
	Role            tenancy.Role `json:"role" validate:"required,allroles"`
	BranchID        string       `json:"branch_id"`
	Password        string       `json:"password" validate:"required"`
	PasswordConfirm string       `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.BranchID = core.CleanString(nu.BranchID)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Empty or nil fields are left unchanged.
type UpdateUser struct {
	Name            string        `json:"name"`
	Username        string        `json:"username" validate:"omitempty,min=3,max=50,alphanum_"`
	Email           string        `json:"email" validate:"omitempty,email"`
	Role            *tenancy.Role `json:"role" validate:"omitempty,allroles"`
	BranchID        *string       `json:"branch_id"`
	IsActive        *bool         `json:"is_active"`
	Password        string        `json:"password" validate:"omitempty"`
	PasswordConfirm string        `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

// Clean trims the input and fills blank fields from the original user.
func (uu *UpdateUser) Clean(orig User) {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = orig.Name
	}
	if uname := core.CleanString(uu.Username, true /* lower */); uname != "" {
		uu.Username = uname
	} else {
		uu.Username = orig.Username
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = orig.Email
	}
	if uu.BranchID != nil {
		branchID := core.CleanString(*uu.BranchID)
		uu.BranchID = &branchID
	}
}

// GetFilter selects a single user. Empty fields are ignored.
type GetFilter struct {
	ID              string
	UsernameOrEmail string
}

type QueryFilter struct {
	Scope    tenancy.Scope  `query:"-"`
	BranchID string         `query:"branch_id"` // superadmin selector
	Search   string         `query:"search"`
	Roles    []tenancy.Role `query:"role"`
	IsActive *bool          `query:"is_active"`
	Limit    int            `query:"limit"`
	Offset   int            `query:"offset"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.BranchID = core.CleanString(qf.BranchID)
}
