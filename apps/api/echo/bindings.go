package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/document"
)

const (
	orderingParam = "ordering"
	branchParam   = "branch_id"
	searchParam   = "search"
	limitParam    = "limit"
	offsetParam   = "offset"
	idParam       = "id"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// queryInt returns 0 for a missing or malformed parameter.
func queryInt(ctx echo.Context, name string) int {
	n, err := strconv.Atoi(ctx.QueryParam(name))
	if err != nil {
		return 0
	}
	return n
}

// bindParams reads the list parameters of a collection. Unknown filter fields are ignored.
func bindParams(ctx echo.Context, coll document.Collection) document.Params {
	ordering := new(Ordering)
	ordering.Bind(ctx)

	p := document.Params{
		BranchID: core.CleanString(ctx.QueryParam(branchParam)),
		Search:   ctx.QueryParam(searchParam),
		Ordering: ordering.Orderings,
		Limit:    queryInt(ctx, limitParam),
		Offset:   queryInt(ctx, offsetParam),
	}
	for _, field := range coll.Filters {
		if val := core.CleanString(ctx.QueryParam(field)); val != "" {
			if p.Fields == nil {
				p.Fields = make(map[string]string)
			}
			p.Fields[field] = val
		}
	}
	return p
}

// queryIDs returns the repeated `id` query parameter, e.g. ?id=a&id=b.
func queryIDs(ctx echo.Context) []string {
	var ids []string
	for _, id := range ctx.QueryParams()[idParam] {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
