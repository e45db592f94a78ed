package document

import (
	"context"
	"fmt"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/tenancy"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

var (
	NowFunc = time.Now // mockable

	errBranchNotFound = "branch does not exist"
	errRefNotFound    = "does not exist in this branch"
)

type (
	// Deps are the collaborators shared by every collection service.
	Deps struct {
		Branches   BranchChecker
		Registry   *Registry
		Validate   *validator.Validate
		Translator ut.Translator
	}

	// Params are the list parameters accepted from API callers.
	Params struct {
		BranchID string // superadmin selector, ignored for other roles
		Fields   map[string]string
		Compare  []Comparison
		Search   string
		Ordering []core.DBOrdering
		Limit    int
		Offset   int
	}

	// CheckFunc runs domain checks after validation, on create and update.
	// The document already carries its final id and branch.
	CheckFunc[T Document] func(ctx context.Context, doc T) error

	// BeforeCreateFunc fills defaults derived from the actor, once the branch is stamped and before validation.
	BeforeCreateFunc[T Document] func(ctx context.Context, actor tenancy.Actor, doc T)

	// AfterCreateFunc runs once a document has been inserted.
	AfterCreateFunc[T Document] func(ctx context.Context, actor tenancy.Actor, doc T)

	// AfterUpdateFunc runs once a document has been updated. prev is the stored version before the update.
	AfterUpdateFunc[T Document] func(ctx context.Context, actor tenancy.Actor, prev, doc T)

	Option[T Document] func(svc *Service[T])

	Service[T Document] struct {
		coll         Collection
		repo         Repository[T]
		deps         Deps
		newDoc       func() T
		checks       []CheckFunc[T]
		beforeCreate []BeforeCreateFunc[T]
		afterCreate  []AfterCreateFunc[T]
		afterUpdate  []AfterUpdateFunc[T]
	}
)

func WithCheck[T Document](fn CheckFunc[T]) Option[T] {
	return func(svc *Service[T]) { svc.checks = append(svc.checks, fn) }
}

func WithBeforeCreate[T Document](fn BeforeCreateFunc[T]) Option[T] {
	return func(svc *Service[T]) { svc.beforeCreate = append(svc.beforeCreate, fn) }
}

func WithAfterCreate[T Document](fn AfterCreateFunc[T]) Option[T] {
	return func(svc *Service[T]) { svc.afterCreate = append(svc.afterCreate, fn) }
}

func WithAfterUpdate[T Document](fn AfterUpdateFunc[T]) Option[T] {
	return func(svc *Service[T]) { svc.afterUpdate = append(svc.afterUpdate, fn) }
}

// NewService returns a tenancy-aware service for the collection and registers its store.
func NewService[T Document](coll Collection, repo Repository[T], deps Deps, newDoc func() T, opts ...Option[T]) *Service[T] {
	svc := &Service[T]{
		coll:   coll,
		repo:   repo,
		deps:   deps,
		newDoc: newDoc,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if deps.Registry != nil {
		deps.Registry.Register(coll.Name, repo)
	}
	return svc
}

func (svc *Service[T]) Collection() Collection { return svc.coll }

// New returns an empty document of the collection.
func (svc *Service[T]) New() T { return svc.newDoc() }

// Repository gives internal tooling unscoped access. Never expose it to API callers.
func (svc *Service[T]) Repository() Repository[T] { return svc.repo }

func (svc *Service[T]) buildQuery(actor tenancy.Actor, p Params) Query {
	q := Query{
		Scope:  tenancy.ReadScope(actor, p.BranchID),
		Search: core.CleanString(p.Search),
		Limit:  p.Limit,
		Offset: p.Offset,
	}
	for field, val := range p.Fields {
		if val == "" || !svc.coll.IsFilter(field) {
			continue
		}
		if q.Fields == nil {
			q.Fields = make(map[string]string, len(p.Fields))
		}
		q.Fields[field] = val
	}
	for _, cmp := range p.Compare {
		if cmp.IsValid() {
			q.Compare = append(q.Compare, cmp)
		}
	}
	allowed := svc.coll.OrderingFields()
	for _, ord := range p.Ordering {
		if ord.IsValid(allowed...) {
			q.Ordering = append(q.Ordering, ord)
		}
	}
	if len(q.Ordering) == 0 {
		q.Ordering = []core.DBOrdering{{Field: "created_at", Ascending: false}}
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	} else if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// Query lists what the actor may see.
func (svc *Service[T]) Query(ctx context.Context, actor tenancy.Actor, p Params) ([]T, error) {
	q := svc.buildQuery(actor, p)
	if q.Scope.IsEmpty() {
		return []T{}, nil
	}
	docs, err := svc.repo.Find(ctx, q)
	if err != nil {
		return nil, errors.Wrapf(err, "finding %s", svc.coll.Name)
	}
	for _, doc := range docs {
		if err := svc.checkScope(q.Scope, doc); err != nil {
			return nil, err
		}
	}
	if docs == nil {
		docs = []T{}
	}
	return docs, nil
}

// Get returns core.ErrNotFound for documents outside of the actor's scope.
func (svc *Service[T]) Get(ctx context.Context, actor tenancy.Actor, id string) (T, error) {
	var zero T
	scope := tenancy.ReadScope(actor, "")
	if scope.IsEmpty() || id == "" {
		return zero, core.ErrNotFound
	}
	doc, err := svc.repo.Get(ctx, scope, id)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return zero, core.ErrNotFound
		}
		return zero, errors.Wrapf(err, "getting %s", svc.coll.Name)
	}
	if err := svc.checkScope(scope, doc); err != nil {
		return zero, err
	}
	return doc, nil
}

// checkScope fails with a shutdown error when the repository returned a document outside the scope it was given.
func (svc *Service[T]) checkScope(scope tenancy.Scope, doc T) error {
	if branchID := doc.Meta().BranchID; !scope.Allows(branchID) {
		return core.NewShutdownError(fmt.Sprintf("%s repository returned %s of branch %q outside of its scope", svc.coll.Name, doc.Meta().ID, branchID))
	}
	return nil
}

// Create stamps the owning branch onto doc, validates and inserts it.
func (svc *Service[T]) Create(ctx context.Context, actor tenancy.Actor, doc T) (T, error) {
	var zero T
	meta := doc.Meta()

	branchID, err := tenancy.AssignBranch(actor, core.CleanString(meta.BranchID))
	if err != nil {
		if err == tenancy.ErrBranchRequired {
			return zero, core.NewFieldError("branch_id", err.Error())
		}
		return zero, err
	}
	if err := svc.checkBranch(ctx, branchID); err != nil {
		return zero, err
	}

	now := NowFunc().UTC().Truncate(time.Millisecond)
	meta.ID = uuid.New().String()
	meta.BranchID = branchID
	meta.CreatedAt = now
	meta.UpdatedAt = now

	for _, fn := range svc.beforeCreate {
		fn(ctx, actor, doc)
	}
	if err := svc.validate(ctx, doc); err != nil {
		return zero, err
	}
	if err := svc.repo.Insert(ctx, doc); err != nil {
		return zero, errors.Wrapf(err, "inserting %s", svc.coll.Name)
	}
	for _, fn := range svc.afterCreate {
		fn(ctx, actor, doc)
	}
	return doc, nil
}

// Update loads the document within the actor's scope and applies patch onto it.
// id and created_at are kept; only a superadmin may move it to another (existing) branch.
func (svc *Service[T]) Update(ctx context.Context, actor tenancy.Actor, id string, patch func(T) error) (T, error) {
	var zero T
	doc, err := svc.Get(ctx, actor, id)
	if err != nil {
		return zero, err
	}
	orig := *doc.Meta()
	if err := tenancy.CheckWrite(actor, orig.BranchID); err != nil {
		return zero, svc.writeErr(err)
	}
	var prev T
	if len(svc.afterUpdate) > 0 {
		if prev, err = svc.Get(ctx, actor, id); err != nil {
			return zero, err
		}
	}

	if err := patch(doc); err != nil {
		return zero, err
	}

	meta := doc.Meta()
	meta.ID = orig.ID
	meta.CreatedAt = orig.CreatedAt
	meta.BranchID = core.CleanString(meta.BranchID)
	if meta.BranchID != orig.BranchID {
		if !actor.IsSuperAdmin() || meta.BranchID == "" {
			meta.BranchID = orig.BranchID
		} else if err := svc.checkBranch(ctx, meta.BranchID); err != nil {
			return zero, err
		}
	}
	meta.UpdatedAt = NowFunc().UTC().Truncate(time.Millisecond)

	if err := svc.validate(ctx, doc); err != nil {
		return zero, err
	}
	if err := svc.repo.Update(ctx, doc); err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return zero, core.ErrNotFound
		}
		return zero, errors.Wrapf(err, "updating %s", svc.coll.Name)
	}
	for _, fn := range svc.afterUpdate {
		fn(ctx, actor, prev, doc)
	}
	return doc, nil
}

// Delete removes every document in ids. Nothing is deleted if one of them fails the checks.
func (svc *Service[T]) Delete(ctx context.Context, actor tenancy.Actor, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if !actor.Role.CanWrite() {
		return tenancy.ErrForbidden
	}
	for _, id := range ids {
		doc, err := svc.Get(ctx, actor, id)
		if err != nil {
			return err
		}
		if err := tenancy.CheckWrite(actor, doc.Meta().BranchID); err != nil {
			return svc.writeErr(err)
		}
	}
	if _, err := svc.repo.Delete(ctx, tenancy.ReadScope(actor, ""), ids...); err != nil {
		return errors.Wrapf(err, "deleting %s", svc.coll.Name)
	}
	return nil
}

// Count counts the documents the actor may see, optionally narrowed by equality filters.
func (svc *Service[T]) Count(ctx context.Context, actor tenancy.Actor, selector string, fields map[string]string) (int, error) {
	q := Query{Scope: tenancy.ReadScope(actor, selector), Fields: fields}
	if q.Scope.IsEmpty() {
		return 0, nil
	}
	n, err := svc.repo.Count(ctx, q)
	return n, errors.Wrapf(err, "counting %s", svc.coll.Name)
}

// Sum adds up an integer field over the documents the actor may see.
func (svc *Service[T]) Sum(ctx context.Context, actor tenancy.Actor, selector, field string, fields map[string]string) (int64, error) {
	q := Query{Scope: tenancy.ReadScope(actor, selector), Fields: fields}
	if q.Scope.IsEmpty() {
		return 0, nil
	}
	total, err := svc.repo.Sum(ctx, q, field)
	return total, errors.Wrapf(err, "summing %s.%s", svc.coll.Name, field)
}

func (svc *Service[T]) checkBranch(ctx context.Context, branchID string) error {
	if svc.deps.Branches == nil {
		return nil
	}
	ok, err := svc.deps.Branches.Exists(ctx, branchID)
	if err != nil {
		return errors.Wrap(err, "checking branch")
	}
	if !ok {
		return core.NewFieldError("branch_id", errBranchNotFound)
	}
	return nil
}

// validate cleans, validates and runs the reference and domain checks on doc.
func (svc *Service[T]) validate(ctx context.Context, doc T) error {
	if c, ok := any(doc).(Cleaner); ok {
		c.Clean()
	}
	if svc.deps.Validate != nil {
		if err := svc.deps.Validate.Struct(doc); err != nil {
			if vErrs, ok := err.(validator.ValidationErrors); ok {
				return core.TranslateValidationErrors(vErrs, svc.deps.Translator)
			}
			return errors.Wrap(err, "validating")
		}
	}
	if err := svc.checkReferences(ctx, doc); err != nil {
		return err
	}
	for _, check := range svc.checks {
		if err := check(ctx, doc); err != nil {
			return err
		}
	}
	return nil
}

func (svc *Service[T]) checkReferences(ctx context.Context, doc T) error {
	r, ok := any(doc).(Referencer)
	if !ok || svc.deps.Registry == nil {
		return nil
	}
	scope := tenancy.Branch(doc.Meta().BranchID)
	var fldErrs []core.FieldError
	for _, ref := range r.References() {
		if ref.ID == "" {
			continue
		}
		store, ok := svc.deps.Registry.Lookup(ref.Collection)
		if !ok {
			return errors.Errorf("unknown collection %q", ref.Collection)
		}
		exists, err := store.Exists(ctx, scope, ref.ID)
		if err != nil {
			return errors.Wrapf(err, "checking %s reference", ref.Field)
		}
		if !exists {
			fldErrs = append(fldErrs, core.FieldError{Field: ref.Field, Error: ref.Field + " " + errRefNotFound})
		}
	}
	if len(fldErrs) > 0 {
		return core.NewValidationError(nil, fldErrs...)
	}
	return nil
}

// writeErr reports documents of another branch as missing.
func (svc *Service[T]) writeErr(err error) error {
	if err == tenancy.ErrNotVisible {
		return core.ErrNotFound
	}
	return err
}
