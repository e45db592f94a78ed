// Package docstore stores documents as JSON in SQL tables (JSONB on PostgreSQL, TEXT on SQLite).
// Every table has the columns id, branch_id, data, created_at & updated_at (unix millis).
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/document"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/tenancy"
)

var columns = []string{"id", "branch_id", "data", "created_at", "updated_at"}

type (
	row struct {
		ID        string      `db:"id"`
		BranchID  null.String `db:"branch_id"`
		Data      []byte      `db:"data"`
		CreatedAt int64       `db:"created_at"`
		UpdatedAt int64       `db:"updated_at"`
	}

	branchCount struct {
		BranchID null.String `db:"branch_id"`
		N        int         `db:"n"`
	}

	Store[T document.Document] struct {
		db     core.DB
		table  string
		coll   document.Collection
		d      dialect
		sb     sq.StatementBuilderType
		newDoc func() T
	}
)

var _ document.Repository[document.Document] = (*Store[document.Document])(nil)

// New returns a store of coll's documents, kept in the table named after the collection.
func New[T document.Document](db core.DB, coll document.Collection, newDoc func() T) (*Store[T], error) {
	d, err := dialectFor(db.DriverName())
	if err != nil {
		return nil, err
	}
	if err := checkIdent(coll.Name); err != nil {
		return nil, err
	}
	for _, fields := range [][]string{coll.Filters, coll.Search, coll.Orderings} {
		for _, f := range fields {
			if err := checkIdent(f); err != nil {
				return nil, err
			}
		}
	}
	return &Store[T]{
		db:     db,
		table:  coll.Name,
		coll:   coll,
		d:      d,
		sb:     sq.StatementBuilder.PlaceholderFormat(d.placeholder),
		newDoc: newDoc,
	}, nil
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func (s *Store[T]) encode(doc T) (row, error) {
	meta := doc.Meta()
	data, err := json.Marshal(doc)
	if err != nil {
		return row{}, errors.Wrap(err, "encoding document")
	}
	return row{
		ID:        meta.ID,
		BranchID:  null.NewString(meta.BranchID, meta.BranchID != ""),
		Data:      data,
		CreatedAt: toMillis(meta.CreatedAt),
		UpdatedAt: toMillis(meta.UpdatedAt),
	}, nil
}

func (s *Store[T]) decode(r row) (T, error) {
	doc := s.newDoc()
	if err := json.Unmarshal(r.Data, doc); err != nil {
		var zero T
		return zero, errors.Wrapf(err, "decoding %s %s", s.table, r.ID)
	}
	meta := doc.Meta()
	meta.ID = r.ID
	meta.BranchID = r.BranchID.String
	meta.CreatedAt = fromMillis(r.CreatedAt)
	meta.UpdatedAt = fromMillis(r.UpdatedAt)
	return doc, nil
}

func (s *Store[T]) conditions(q document.Query) (sq.And, error) {
	conds := sq.And{}
	switch {
	case q.Scope.IsEmpty():
		conds = append(conds, sq.Expr("1 = 0"))
	case !q.Scope.IsAll():
		conds = append(conds, sq.Eq{"branch_id": q.Scope.BranchID()})
	}
	if len(q.IDs) > 0 {
		conds = append(conds, sq.Eq{"id": q.IDs})
	}

	fields := make([]string, 0, len(q.Fields))
	for f := range q.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		if err := checkIdent(f); err != nil {
			return nil, err
		}
		conds = append(conds, sq.Expr(s.d.text(f)+" = ?", q.Fields[f]))
	}

	for _, cmp := range q.Compare {
		if !cmp.IsValid() {
			return nil, errors.Errorf("docstore: invalid comparison %v", cmp)
		}
		if err := checkIdent(cmp.Field); err != nil {
			return nil, err
		}
		if err := checkIdent(cmp.Other); err != nil {
			return nil, err
		}
		conds = append(conds, sq.Expr(s.d.number(cmp.Field)+" "+cmp.Op+" "+s.d.number(cmp.Other)))
	}

	if q.Search != "" && len(s.coll.Search) > 0 {
		pattern := core.LikeContains(q.Search)
		or := sq.Or{}
		for _, f := range s.coll.Search {
			or = append(or, sq.Expr(s.d.text(f)+" "+s.d.like+" ? "+core.LikeEscape, pattern))
		}
		conds = append(conds, or)
	}
	return conds, nil
}

func (s *Store[T]) orderBy(ord core.DBOrdering) (string, error) {
	dir := " DESC"
	if ord.Ascending {
		dir = " ASC"
	}
	switch ord.Field {
	case "created_at", "updated_at":
		return ord.Field + dir, nil
	}
	if err := checkIdent(ord.Field); err != nil {
		return "", err
	}
	return s.d.text(ord.Field) + dir, nil
}

func (s *Store[T]) Insert(ctx context.Context, doc T) error {
	r, err := s.encode(doc)
	if err != nil {
		return err
	}
	query, args, err := s.sb.Insert(s.table).
		Columns(columns...).
		Values(r.ID, r.BranchID, string(r.Data), r.CreatedAt, r.UpdatedAt).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building insert")
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return errors.Wrapf(err, "inserting into %s", s.table)
}

func (s *Store[T]) Find(ctx context.Context, q document.Query) ([]T, error) {
	conds, err := s.conditions(q)
	if err != nil {
		return nil, err
	}
	b := s.sb.Select(columns...).From(s.table).Where(conds)
	for _, ord := range q.Ordering {
		clause, err := s.orderBy(ord)
		if err != nil {
			return nil, err
		}
		b = b.OrderBy(clause)
	}
	b = b.OrderBy("id ASC")
	switch {
	case q.Limit > 0:
		b = b.Limit(uint64(q.Limit))
	case q.Offset > 0: // OFFSET needs a LIMIT
		b = b.Limit(math.MaxInt32)
	}
	if q.Offset > 0 {
		b = b.Offset(uint64(q.Offset))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building select")
	}
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrapf(err, "selecting from %s", s.table)
	}

	docs := make([]T, 0, len(rows))
	for _, r := range rows {
		doc, err := s.decode(r)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *Store[T]) Get(ctx context.Context, scope tenancy.Scope, id string) (T, error) {
	var zero T
	docs, err := s.Find(ctx, document.Query{Scope: scope, IDs: []string{id}, Limit: 1})
	if err != nil {
		return zero, err
	}
	if len(docs) == 0 {
		return zero, core.ErrNotFound
	}
	return docs[0], nil
}

func (s *Store[T]) Exists(ctx context.Context, scope tenancy.Scope, id string) (bool, error) {
	n, err := s.Count(ctx, document.Query{Scope: scope, IDs: []string{id}})
	return n > 0, err
}

func (s *Store[T]) Update(ctx context.Context, doc T) error {
	r, err := s.encode(doc)
	if err != nil {
		return err
	}
	query, args, err := s.sb.Update(s.table).
		Set("branch_id", r.BranchID).
		Set("data", string(r.Data)).
		Set("updated_at", r.UpdatedAt).
		Where(sq.Eq{"id": r.ID}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building update")
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(err, "updating %s", s.table)
	}
	return checkAffected(res)
}

func (s *Store[T]) Delete(ctx context.Context, scope tenancy.Scope, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	conds, err := s.conditions(document.Query{Scope: scope, IDs: ids})
	if err != nil {
		return 0, err
	}
	query, args, err := s.sb.Delete(s.table).Where(conds).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building delete")
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrapf(err, "deleting from %s", s.table)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store[T]) Count(ctx context.Context, q document.Query) (int, error) {
	conds, err := s.conditions(q)
	if err != nil {
		return 0, err
	}
	query, args, err := s.sb.Select("COUNT(*)").From(s.table).Where(conds).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building count")
	}
	var n int
	if err := s.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, errors.Wrapf(err, "counting %s", s.table)
	}
	return n, nil
}

func (s *Store[T]) Sum(ctx context.Context, q document.Query, field string) (int64, error) {
	if err := checkIdent(field); err != nil {
		return 0, err
	}
	conds, err := s.conditions(q)
	if err != nil {
		return 0, err
	}
	query, args, err := s.sb.Select("COALESCE(SUM(" + s.d.integer(field) + "), 0)").From(s.table).Where(conds).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building sum")
	}
	var total int64
	if err := s.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, errors.Wrapf(err, "summing %s.%s", s.table, field)
	}
	return total, nil
}

func (s *Store[T]) CountByBranch(ctx context.Context) (map[string]int, error) {
	query, args, err := s.sb.Select("branch_id", "COUNT(*) AS n").From(s.table).GroupBy("branch_id").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building count by branch")
	}
	var rows []branchCount
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrapf(err, "counting %s by branch", s.table)
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.BranchID.String] += r.N
	}
	return counts, nil
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
