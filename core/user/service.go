package user

import (
	"context"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/document"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/tenancy"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrUsernameExists     = errors.New("a user with this username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account deactivated")

	errNoPermsToSetRole = "not enough rights to set this role"
	errBranchNotFound   = "branch does not exist"
	errBranchMove       = "only a superadmin can move users between branches"
)

type (
	Repository interface {
		// CheckUniqueness returns ErrUsernameExists or ErrEmailExists when another user has them.
		CheckUniqueness(ctx context.Context, username, email string, excludedIDs ...string) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// GetUser returns ErrNotFound when no user matches.
		GetUser(ctx context.Context, f GetFilter) (User, error)
		// FilterUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name, User.Username or User.Email.
		FilterUsers(ctx context.Context, f QueryFilter, ordering []core.DBOrdering) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsers(ctx context.Context, ids ...string) (int, error)
		// CountByBranch counts the users attached to a branch.
		CountByBranch(ctx context.Context, branchID string) (int, error)
	}

	Service struct {
		repo       Repository
		branches   document.BranchChecker
		validate   *validator.Validate
		translator ut.Translator
	}
)

func NewService(repo Repository, branches document.BranchChecker, validate *validator.Validate, translator ut.Translator) *Service {
	return &Service{
		repo:       repo,
		branches:   branches,
		validate:   validate,
		translator: translator,
	}
}

var orderingFields = []string{"name", "username", "email", "role", "created_at", "last_login"}

func (svc *Service) validateStruct(s interface{}) error {
	if err := svc.validate.Struct(s); err != nil {
		if vErrs, ok := err.(validator.ValidationErrors); ok {
			return core.TranslateValidationErrors(vErrs, svc.translator)
		}
		return err
	}
	return nil
}

func (svc *Service) checkUniqueness(ctx context.Context, uname, email string, excludedIDs ...string) error {
	if err := svc.repo.CheckUniqueness(ctx, uname, email, excludedIDs...); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return errors.Wrap(err, "checking uniqueness")
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) checkBranch(ctx context.Context, branchID string) error {
	if svc.branches == nil || branchID == "" {
		return nil
	}
	ok, err := svc.branches.Exists(ctx, branchID)
	if err != nil {
		return errors.Wrap(err, "checking branch")
	}
	if !ok {
		return core.NewFieldError("branch_id", errBranchNotFound)
	}
	return nil
}

// visible reports whether the actor may see usr: themselves, or a user of their branch when admin.
func visible(actor tenancy.Actor, usr User) bool {
	if usr.ID == actor.UserID {
		return true
	}
	return actor.Role.CanWrite() && tenancy.Visible(actor, usr.BranchID)
}

// Create stamps the new user's branch the same way documents are stamped.
// A superadmin may create another superadmin without a branch.
func (svc *Service) Create(ctx context.Context, actor tenancy.Actor, nu NewUser) (User, error) {
	if !actor.Role.CanWrite() {
		return User{}, tenancy.ErrForbidden
	}
	nu.Clean()
	if err := svc.validateStruct(nu); err != nil {
		return User{}, err
	}
	// actor cannot grant a role above their own
	if nu.Role.Priority() > actor.Role.Priority() {
		return User{}, core.NewFieldError("role", errNoPermsToSetRole)
	}

	var branchID string
	if nu.Role.IsSuperAdmin() {
		branchID = nu.BranchID
	} else {
		var err error
		if branchID, err = tenancy.AssignBranch(actor, nu.BranchID); err != nil {
			if err == tenancy.ErrBranchRequired {
				return User{}, core.NewFieldError("branch_id", err.Error())
			}
			return User{}, err
		}
	}
	if err := svc.checkBranch(ctx, branchID); err != nil {
		return User{}, err
	}
	if err := svc.checkUniqueness(ctx, nu.Username, nu.Email); err != nil {
		return User{}, err
	}

	now := NowFunc().UTC().Truncate(time.Millisecond)
	usr := User{
		ID:        uuid.New().String(),
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		Role:      nu.Role,
		BranchID:  branchID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	return usr, errors.Wrap(err, "creating user")
}

// Query lists the users of the actor's read scope.
func (svc *Service) Query(ctx context.Context, actor tenancy.Actor, filter QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	filter.Clean()
	filter.Scope = tenancy.ReadScope(actor, filter.BranchID)
	if filter.Scope.IsEmpty() {
		return []User{}, nil
	}
	var ords []core.DBOrdering
	for _, ord := range ordering {
		if ord.IsValid(orderingFields...) {
			ords = append(ords, ord)
		}
	}
	if len(ords) == 0 {
		ords = []core.DBOrdering{{Field: "created_at", Ascending: false}}
	}
	if filter.Limit <= 0 {
		filter.Limit = document.DefaultLimit
	} else if filter.Limit > document.MaxLimit {
		filter.Limit = document.MaxLimit
	}
	users, err := svc.repo.FilterUsers(ctx, filter, ords)
	if err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	if users == nil {
		users = []User{}
	}
	return users, nil
}

// Get returns ErrNotFound for users the actor may not see.
func (svc *Service) Get(ctx context.Context, actor tenancy.Actor, id string) (User, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !visible(actor, usr) {
		return User{}, ErrNotFound
	}
	return usr, nil
}

// GetByID is unscoped; used by authentication.
func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	if id == "" {
		return User{}, ErrNotFound
	}
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	uname = core.CleanString(uname, true /* lower */)
	if uname == "" {
		return User{}, ErrNotFound
	}
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: uname})
}

// Update applies uu onto the user. Users may edit their own name & password;
// role, activation, identity & branch changes need an admin of the user's branch.
func (svc *Service) Update(ctx context.Context, actor tenancy.Actor, id string, uu UpdateUser) (User, error) {
	usr, err := svc.Get(ctx, actor, id)
	if err != nil {
		return User{}, err
	}

	if !actor.Role.CanWrite() {
		if uu.IsActive != nil || uu.Role != nil || uu.BranchID != nil || uu.Username != "" || uu.Email != "" {
			return User{}, tenancy.ErrForbidden
		}
	} else if err := tenancy.CheckWrite(actor, usr.BranchID); err != nil {
		if err == tenancy.ErrNotVisible {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	if usr.Role.Priority() > actor.Role.Priority() {
		return User{}, tenancy.ErrForbidden
	}

	uu.Clean(usr)
	if err := svc.validateStruct(uu); err != nil {
		return User{}, err
	}

	if uu.Role != nil {
		if uu.Role.Priority() > actor.Role.Priority() {
			return User{}, core.NewFieldError("role", errNoPermsToSetRole)
		}
		usr.Role = *uu.Role
	}
	if uu.BranchID != nil && *uu.BranchID != usr.BranchID {
		if !actor.IsSuperAdmin() {
			return User{}, core.NewFieldError("branch_id", errBranchMove)
		}
		if err := svc.checkBranch(ctx, *uu.BranchID); err != nil {
			return User{}, err
		}
		usr.BranchID = *uu.BranchID
	}
	if usr.BranchID == "" && !usr.Role.IsSuperAdmin() {
		return User{}, core.NewFieldError("branch_id", tenancy.ErrBranchRequired.Error())
	}
	if err := svc.checkUniqueness(ctx, uu.Username, uu.Email, usr.ID); err != nil {
		return User{}, err
	}

	usr.Name = uu.Name
	usr.Username = uu.Username
	usr.Email = uu.Email
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	usr.UpdatedAt = NowFunc().UTC().Truncate(time.Millisecond)

	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating user")
}

// Delete removes users the actor administers. Actors cannot delete themselves
// nor users with a role above theirs. Nothing is deleted if one id fails the checks.
func (svc *Service) Delete(ctx context.Context, actor tenancy.Actor, ids ...string) error {
	if !actor.Role.CanWrite() {
		return tenancy.ErrForbidden
	}
	for _, id := range ids {
		if id == actor.UserID {
			return tenancy.ErrForbidden
		}
		usr, err := svc.Get(ctx, actor, id)
		if err != nil {
			return err
		}
		if err := tenancy.CheckWrite(actor, usr.BranchID); err != nil {
			if err == tenancy.ErrNotVisible {
				return ErrNotFound
			}
			return err
		}
		if usr.Role.Priority() > actor.Role.Priority() {
			return tenancy.ErrForbidden
		}
	}
	if len(ids) == 0 {
		return nil
	}
	_, err := svc.repo.DeleteUsers(ctx, ids...)
	return errors.Wrap(err, "deleting users")
}

// Authenticate checks the credentials and records the login.
func (svc *Service) Authenticate(ctx context.Context, uname, pwd string) (User, error) {
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by username or email")
	}
	if err := usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}
	usr.LastLogin = NowFunc().UTC().Truncate(time.Millisecond)
	usr, err = svc.repo.UpdateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "setting last login")
	}
	return usr, nil
}

// InBranch reports whether an active user belongs to the branch.
func (svc *Service) InBranch(ctx context.Context, branchID, userID string) (bool, error) {
	if branchID == "" || userID == "" {
		return false, nil
	}
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: userID})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return usr.IsActive && usr.BranchID == branchID, nil
}

// CountInBranch counts the users attached to a branch.
func (svc *Service) CountInBranch(ctx context.Context, branchID string) (int, error) {
	return svc.repo.CountByBranch(ctx, branchID)
}
