// Package document holds the tenant-owned collections shared shape:
// the envelope every document carries, the query and repository contracts
// and a Service applying branch tenancy to every operation.
package document

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/tenancy"
)

// Base is the envelope embedded by every tenant-owned document.
type Base struct {
	ID        string    `json:"id"`
	BranchID  string    `json:"branch_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (b *Base) Meta() *Base { return b }

type Document interface {
	Meta() *Base
}

// Cleaner is implemented by documents normalising their input before validation.
type Cleaner interface {
	Clean()
}

// Reference is a pointer from a document field to a document of another collection.
// It must resolve inside the referencing document's branch.
type Reference struct {
	Field      string
	Collection string
	ID         string
}

type Referencer interface {
	References() []Reference
}

// Collection describes a tenant-owned collection.
type Collection struct {
	Name      string   // storage name, also used in URLs
	Filters   []string // data fields usable as equality filters
	Search    []string // data fields matched by Query.Search
	Orderings []string // data fields usable for ordering, besides created_at & updated_at
}

func (c Collection) IsFilter(field string) bool {
	return contains(c.Filters, field)
}

// OrderingFields returns every field the collection may be ordered by.
func (c Collection) OrderingFields() []string {
	return append([]string{"created_at", "updated_at"}, c.Orderings...)
}

// Comparison compares two numeric data fields of the same document, e.g. quantity <= min_quantity.
type Comparison struct {
	Field string
	Op    string // one of <, <=, >, >=, =
	Other string
}

func (c Comparison) IsValid() bool {
	switch c.Op {
	case "<", "<=", ">", ">=", "=":
		return c.Field != "" && c.Other != ""
	}
	return false
}

// Query is what repositories execute. Scope is always applied first.
type Query struct {
	Scope    tenancy.Scope
	IDs      []string
	Fields   map[string]string // equality on string data fields
	Compare  []Comparison
	Search   string
	Ordering []core.DBOrdering
	Limit    int
	Offset   int
}

// Store is the type-erased part of a Repository, used across collections.
type Store interface {
	Exists(ctx context.Context, scope tenancy.Scope, id string) (bool, error)
	Count(ctx context.Context, q Query) (int, error)
	// Sum adds up an integer data field over the matching documents.
	Sum(ctx context.Context, q Query, field string) (int64, error)
	// CountByBranch counts all documents grouped by branch_id ("" for documents without one).
	CountByBranch(ctx context.Context) (map[string]int, error)
}

type Repository[T Document] interface {
	Store

	Insert(ctx context.Context, doc T) error
	Find(ctx context.Context, q Query) ([]T, error)
	// Get returns core.ErrNotFound when the document does not exist within scope.
	Get(ctx context.Context, scope tenancy.Scope, id string) (T, error)
	Update(ctx context.Context, doc T) error
	Delete(ctx context.Context, scope tenancy.Scope, ids ...string) (int, error)
}

// BranchChecker reports whether a branch exists.
type BranchChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Registry indexes the stores of every tenant collection by name.
type Registry struct {
	mu     sync.RWMutex
	stores map[string]Store
}

func NewRegistry() *Registry {
	return &Registry{stores: make(map[string]Store)}
}

func (r *Registry) Register(name string, store Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[name] = store
}

func (r *Registry) Lookup(name string) (Store, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stores[name]
	return s, ok
}

// Names returns the registered collection names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.stores))
	for name := range r.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
