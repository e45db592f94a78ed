// Package inmemdb provides in-memory repositories, used by unit tests.
package inmemdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/document"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/tenancy"
)

type (
	row struct {
		meta   document.Base
		data   []byte
		fields map[string]interface{}
	}

	// DocumentRepository keeps JSON copies of documents so callers never share memory with it.
	DocumentRepository[T document.Document] struct {
		mu     sync.RWMutex
		table  map[string]*row
		coll   document.Collection
		newDoc func() T
	}
)

var _ document.Repository[document.Document] = (*DocumentRepository[document.Document])(nil)

func NewDocumentRepository[T document.Document](coll document.Collection, newDoc func() T) *DocumentRepository[T] {
	return &DocumentRepository[T]{
		table:  make(map[string]*row),
		coll:   coll,
		newDoc: newDoc,
	}
}

func (repo *DocumentRepository[T]) encode(doc T) (*row, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	r := &row{meta: *doc.Meta(), data: data}
	if err := json.Unmarshal(data, &r.fields); err != nil {
		return nil, err
	}
	return r, nil
}

func (repo *DocumentRepository[T]) decode(r *row) (T, error) {
	doc := repo.newDoc()
	if err := json.Unmarshal(r.data, doc); err != nil {
		var zero T
		return zero, err
	}
	*doc.Meta() = r.meta
	return doc, nil
}

func (repo *DocumentRepository[T]) Insert(ctx context.Context, doc T) error {
	r, err := repo.encode(doc)
	if err != nil {
		return err
	}
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if _, ok := repo.table[r.meta.ID]; ok {
		return fmt.Errorf("duplicate id %q", r.meta.ID)
	}
	repo.table[r.meta.ID] = r
	return nil
}

func (repo *DocumentRepository[T]) match(r *row, q document.Query) bool {
	if !q.Scope.Allows(r.meta.BranchID) {
		return false
	}
	if len(q.IDs) > 0 && !containsString(q.IDs, r.meta.ID) {
		return false
	}
	for field, val := range q.Fields {
		if s, ok := r.fields[field].(string); !ok || s != val {
			return false
		}
	}
	for _, cmp := range q.Compare {
		if !compare(r.fields[cmp.Field], cmp.Op, r.fields[cmp.Other]) {
			return false
		}
	}
	if q.Search != "" {
		search := strings.ToLower(q.Search)
		var found bool
		for _, field := range repo.coll.Search {
			if s, ok := r.fields[field].(string); ok && strings.Contains(strings.ToLower(s), search) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// filter returns the matching rows. The caller must hold the lock.
func (repo *DocumentRepository[T]) filter(q document.Query) []*row {
	rows := make([]*row, 0)
	for _, r := range repo.table {
		if repo.match(r, q) {
			rows = append(rows, r)
		}
	}
	return rows
}

func (repo *DocumentRepository[T]) Find(ctx context.Context, q document.Query) ([]T, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	rows := repo.filter(q)
	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i], rows[j], q.Ordering) })

	if q.Offset > 0 {
		if q.Offset >= len(rows) {
			rows = nil
		} else {
			rows = rows[q.Offset:]
		}
	}
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	docs := make([]T, 0, len(rows))
	for _, r := range rows {
		doc, err := repo.decode(r)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (repo *DocumentRepository[T]) Get(ctx context.Context, scope tenancy.Scope, id string) (T, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	if r, ok := repo.table[id]; ok && scope.Allows(r.meta.BranchID) {
		return repo.decode(r)
	}
	var zero T
	return zero, core.ErrNotFound
}

func (repo *DocumentRepository[T]) Exists(ctx context.Context, scope tenancy.Scope, id string) (bool, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	r, ok := repo.table[id]
	return ok && scope.Allows(r.meta.BranchID), nil
}

func (repo *DocumentRepository[T]) Update(ctx context.Context, doc T) error {
	r, err := repo.encode(doc)
	if err != nil {
		return err
	}
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if _, ok := repo.table[r.meta.ID]; !ok {
		return core.ErrNotFound
	}
	repo.table[r.meta.ID] = r
	return nil
}

func (repo *DocumentRepository[T]) Delete(ctx context.Context, scope tenancy.Scope, ids ...string) (int, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	var n int
	for _, id := range ids {
		if r, ok := repo.table[id]; ok && scope.Allows(r.meta.BranchID) {
			delete(repo.table, id)
			n++
		}
	}
	return n, nil
}

func (repo *DocumentRepository[T]) Count(ctx context.Context, q document.Query) (int, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	return len(repo.filter(q)), nil
}

func (repo *DocumentRepository[T]) Sum(ctx context.Context, q document.Query, field string) (int64, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	var total int64
	for _, r := range repo.filter(q) {
		if n, ok := r.fields[field].(float64); ok {
			total += int64(n)
		}
	}
	return total, nil
}

func (repo *DocumentRepository[T]) CountByBranch(ctx context.Context) (map[string]int, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	counts := make(map[string]int)
	for _, r := range repo.table {
		counts[r.meta.BranchID]++
	}
	return counts, nil
}

// less orders rows by `orderings`, then by id.
func less(a, b *row, orderings []core.DBOrdering) bool {
	for _, ord := range orderings {
		var c int
		switch ord.Field {
		case "created_at":
			c = compareTimes(a.meta.CreatedAt.UnixNano(), b.meta.CreatedAt.UnixNano())
		case "updated_at":
			c = compareTimes(a.meta.UpdatedAt.UnixNano(), b.meta.UpdatedAt.UnixNano())
		default:
			c = strings.Compare(fmt.Sprint(a.fields[ord.Field]), fmt.Sprint(b.fields[ord.Field]))
		}
		if c == 0 {
			continue
		}
		if ord.Ascending {
			return c < 0
		}
		return c > 0
	}
	return a.meta.ID < b.meta.ID
}

func compareTimes(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compare(left interface{}, op string, right interface{}) bool {
	l, ok := left.(float64)
	if !ok {
		return false
	}
	r, ok := right.(float64)
	if !ok {
		return false
	}
	switch op {
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	case ">=":
		return l >= r
	case "=":
		return l == r
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
