package document

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/tenancy"
)

// Unique rejects a document when another document of its branch has the same values.
// values returns the data fields to compare; the error is reported on field.
// Empty values skip the check.
func Unique[T Document](repo Repository[T], field string, values func(T) map[string]string) CheckFunc[T] {
	return func(ctx context.Context, doc T) error {
		fields := values(doc)
		for _, v := range fields {
			if v == "" {
				return nil
			}
		}
		meta := doc.Meta()
		others, err := repo.Find(ctx, Query{Scope: tenancy.Branch(meta.BranchID), Fields: fields, Limit: 2})
		if err != nil {
			return errors.Wrapf(err, "checking %s uniqueness", field)
		}
		for _, o := range others {
			if o.Meta().ID != meta.ID {
				names := make([]string, 0, len(fields))
				for name := range fields {
					names = append(names, name)
				}
				sort.Strings(names)
				return core.NewFieldError(field, "a record with this "+strings.Join(names, " and ")+" already exists")
			}
		}
		return nil
	}
}
