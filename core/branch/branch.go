// Package branch manages the school branches. Branches are the tenancy keys:
// a branch's branch_id is its own id, so the usual read scopes apply to them too.
package branch

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
	Collection = document.Collection{
		Name:      "branches",
		Filters:   []string{"code"},
		Search:    []string{"name", "code", "address"},
		Orderings: []string{"name", "code"},
	}

	// errors
	ErrCodeExists = errors.New("a branch with this code already exists")
	ErrInUse      = errors.New("branch still has data attached to it")
)

type Branch struct {
	document.Base
	Name     string `json:"name" validate:"required,max=100"`
	Code     string `json:"code" validate:"required,max=20,alphanum_"`
	Address  string `json:"address" validate:"max=255"`
	Phone    string `json:"phone" validate:"max=30"`
	Email    string `json:"email" validate:"omitempty,email"`
	IsActive *bool  `json:"is_active"`
}

func New() *Branch { return new(Branch) }

func (b *Branch) Clean() {
	b.Name = core.CleanString(b.Name)
	b.Code = core.CleanString(b.Code)
	b.Address = core.CleanString(b.Address)
	b.Phone = core.CleanString(b.Phone)
	b.Email = core.CleanString(b.Email, true /* lower */)
	if b.IsActive == nil {
		active := true
		b.IsActive = &active
	}
}

type (
	// Cache remembers whether a branch exists.
	Cache interface {
		// Exists returns found=false on a cache miss.
		Exists(ctx context.Context, id string) (exists, found bool, err error)
		Set(ctx context.Context, id string, exists bool) error
		Invalidate(ctx context.Context, id string) error
	}

	// ReferrerFunc counts the records of a non-document store attached to a branch.
	ReferrerFunc func(ctx context.Context, branchID string) (int, error)

	Service struct {
		repo       document.Repository[*Branch]
		registry   *document.Registry
		cache      Cache
		logger     core.Logger
		validate   *validator.Validate
		translator ut.Translator
		referrers  map[string]ReferrerFunc
	}
)

var _ document.BranchChecker = (*Service)(nil)

// NewService returns the branch service. cache may be nil.
func NewService(
	repo document.Repository[*Branch],
	registry *document.Registry,
	cache Cache,
	logger core.Logger,
	validate *validator.Validate,
	translator ut.Translator,
) *Service {
	return &Service{
		repo:       repo,
		registry:   registry,
		cache:      cache,
		logger:     logger,
		validate:   validate,
		translator: translator,
		referrers:  make(map[string]ReferrerFunc),
	}
}

// AddReferrer registers a store whose records prevent the deletion of their branch.
func (svc *Service) AddReferrer(name string, fn ReferrerFunc) {
	svc.referrers[name] = fn
}

func (svc *Service) Query(ctx context.Context, actor tenancy.Actor, p document.Params) ([]*Branch, error) {
	q := document.Query{
		Scope:    tenancy.ReadScope(actor, ""),
		Fields:   map[string]string{},
		Search:   core.CleanString(p.Search),
		Limit:    p.Limit,
		Offset:   p.Offset,
		Ordering: []core.DBOrdering{{Field: "name", Ascending: true}},
	}
	if q.Scope.IsEmpty() {
		return []*Branch{}, nil
	}
	if code := p.Fields["code"]; code != "" {
		q.Fields["code"] = code
	}
	if len(p.Ordering) > 0 {
		q.Ordering = nil
		for _, ord := range p.Ordering {
			if ord.IsValid(Collection.OrderingFields()...) {
				q.Ordering = append(q.Ordering, ord)
			}
		}
	}
	branches, err := svc.repo.Find(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "finding branches")
	}
	return branches, nil
}

func (svc *Service) Get(ctx context.Context, actor tenancy.Actor, id string) (*Branch, error) {
	scope := tenancy.ReadScope(actor, "")
	if scope.IsEmpty() || id == "" {
		return nil, core.ErrNotFound
	}
	b, err := svc.repo.Get(ctx, scope, id)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return nil, core.ErrNotFound
		}
		return nil, errors.Wrap(err, "getting branch")
	}
	return b, nil
}

// Lookup returns a branch regardless of the caller; used to decorate notifications.
func (svc *Service) Lookup(ctx context.Context, id string) (*Branch, error) {
	return svc.repo.Get(ctx, tenancy.AllBranches(), id)
}

// Active reports whether the branch accepts new data. A branch without is_active is active.
func (b *Branch) Active() bool {
	return b.IsActive == nil || *b.IsActive
}

// Exists reports whether an active branch exists, through the cache when there is one.
// Deactivated branches keep their data but no document or user can be stamped with them.
func (svc *Service) Exists(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	if svc.cache != nil {
		exists, found, err := svc.cache.Exists(ctx, id)
		if err == nil && found {
			return exists, nil
		}
		if err != nil {
			svc.logger.Warn("branch cache lookup failed", err)
		}
	}

	exists := false
	b, err := svc.repo.Get(ctx, tenancy.AllBranches(), id)
	switch {
	case err == nil:
		exists = b.Active()
	case errors.Cause(err) != core.ErrNotFound:
		return false, errors.Wrap(err, "checking branch")
	}
	if svc.cache != nil {
		if err := svc.cache.Set(ctx, id, exists); err != nil {
			svc.logger.Warn("branch cache update failed", err)
		}
	}
	return exists, nil
}

func (svc *Service) invalidate(ctx context.Context, id string) {
	if svc.cache == nil {
		return
	}
	if err := svc.cache.Invalidate(ctx, id); err != nil {
		svc.logger.Warn("branch cache invalidation failed", err)
	}
}

func (svc *Service) validateBranch(ctx context.Context, b *Branch) error {
	b.Clean()
	if err := svc.validate.Struct(b); err != nil {
		if vErrs, ok := err.(validator.ValidationErrors); ok {
			return core.TranslateValidationErrors(vErrs, svc.translator)
		}
		return errors.Wrap(err, "validating branch")
	}
	others, err := svc.repo.Find(ctx, document.Query{Scope: tenancy.AllBranches(), Fields: map[string]string{"code": b.Code}})
	if err != nil {
		return errors.Wrap(err, "checking branch code")
	}
	for _, o := range others {
		if o.ID != b.ID {
			return core.NewValidationError(ErrCodeExists, core.FieldError{Field: "code", Error: ErrCodeExists.Error()})
		}
	}
	return nil
}

// Create is restricted to superadmins.
func (svc *Service) Create(ctx context.Context, actor tenancy.Actor, b *Branch) (*Branch, error) {
	if !actor.IsSuperAdmin() {
		return nil, tenancy.ErrForbidden
	}
	now := document.NowFunc().UTC().Truncate(time.Millisecond)
	b.ID = uuid.New().String()
	b.BranchID = b.ID
	b.CreatedAt = now
	b.UpdatedAt = now

	if err := svc.validateBranch(ctx, b); err != nil {
		return nil, err
	}
	if err := svc.repo.Insert(ctx, b); err != nil {
		return nil, errors.Wrap(err, "inserting branch")
	}
	svc.invalidate(ctx, b.ID)
	return b, nil
}

// Update is restricted to superadmins.
func (svc *Service) Update(ctx context.Context, actor tenancy.Actor, id string, patch func(*Branch) error) (*Branch, error) {
	b, err := svc.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsSuperAdmin() {
		return nil, tenancy.ErrForbidden
	}
	orig := b.Base
	if err := patch(b); err != nil {
		return nil, err
	}
	b.Base = orig
	b.UpdatedAt = document.NowFunc().UTC().Truncate(time.Millisecond)

	if err := svc.validateBranch(ctx, b); err != nil {
		return nil, err
	}
	if err := svc.repo.Update(ctx, b); err != nil {
		return nil, errors.Wrap(err, "updating branch")
	}
	svc.invalidate(ctx, b.ID)
	return b, nil
}

// Delete is restricted to superadmins and refuses branches that still own data.
func (svc *Service) Delete(ctx context.Context, actor tenancy.Actor, id string) error {
	if _, err := svc.Get(ctx, actor, id); err != nil {
		return err
	}
	if !actor.IsSuperAdmin() {
		return tenancy.ErrForbidden
	}

	inUse, err := svc.inUse(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return core.NewValidationError(ErrInUse)
	}

	if _, err := svc.repo.Delete(ctx, tenancy.AllBranches(), id); err != nil {
		return errors.Wrap(err, "deleting branch")
	}
	svc.invalidate(ctx, id)
	return nil
}

func (svc *Service) inUse(ctx context.Context, id string) (bool, error) {
	if svc.registry != nil {
		for _, name := range svc.registry.Names() {
			store, _ := svc.registry.Lookup(name)
			n, err := store.Count(ctx, document.Query{Scope: tenancy.Branch(id)})
			if err != nil {
				return false, errors.Wrapf(err, "counting %s", name)
			}
			if n > 0 {
				return true, nil
			}
		}
	}
	for name, count := range svc.referrers {
		n, err := count(ctx, id)
		if err != nil {
			return false, errors.Wrapf(err, "counting %s", name)
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}

// All returns every branch, for internal tooling.
func (svc *Service) All(ctx context.Context) ([]*Branch, error) {
	return svc.repo.Find(ctx, document.Query{Scope: tenancy.AllBranches()})
}
