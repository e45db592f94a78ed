// Package report aggregates the tenant collections.
package report

import (
	"context"

	"github.com/pkg/errors"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/branch"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/document"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/finance"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/student"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/tenancy"
)

type (
	Stats struct {
		BranchID         string         `json:"branch_id,omitempty"`
		Counts           map[string]int `json:"counts"`
		StudentsByStatus map[string]int `json:"students_by_status"`
		TotalCollected   int64          `json:"total_collected"`
	}

	// Orphans counts the documents of a collection that no branch owns.
	Orphans struct {
		Collection    string `json:"collection"`
		MissingBranch int    `json:"missing_branch"` // empty branch_id
		UnknownBranch int    `json:"unknown_branch"` // branch_id of no existing branch
	}

	BranchLister interface {
		All(ctx context.Context) ([]*branch.Branch, error)
	}

	Service struct {
		registry *document.Registry
		branches BranchLister
	}
)

func NewService(registry *document.Registry, branches BranchLister) *Service {
	return &Service{registry: registry, branches: branches}
}

// Stats aggregates exactly what the actor may see. selector is the superadmin branch selector.
func (svc *Service) Stats(ctx context.Context, actor tenancy.Actor, selector string) (Stats, error) {
	stats := Stats{
		BranchID:         actor.BranchID,
		Counts:           make(map[string]int),
		StudentsByStatus: make(map[string]int),
	}
	scope := tenancy.ReadScope(actor, selector)
	if actor.IsSuperAdmin() {
		stats.BranchID = scope.BranchID()
	}
	if scope.IsEmpty() {
		return stats, nil
	}

	for _, name := range svc.registry.Names() {
		store, _ := svc.registry.Lookup(name)
		n, err := store.Count(ctx, document.Query{Scope: scope})
		if err != nil {
			return Stats{}, errors.Wrapf(err, "counting %s", name)
		}
		stats.Counts[name] = n
	}

	if store, ok := svc.registry.Lookup(student.Collection.Name); ok {
		for _, status := range student.Statuses {
			n, err := store.Count(ctx, document.Query{Scope: scope, Fields: map[string]string{"status": status}})
			if err != nil {
				return Stats{}, errors.Wrap(err, "counting students by status")
			}
			stats.StudentsByStatus[status] = n
		}
	}

	if store, ok := svc.registry.Lookup(finance.Payments.Name); ok {
		total, err := store.Sum(ctx, document.Query{Scope: scope, Fields: map[string]string{"status": finance.PaymentCompleted}}, "amount")
		if err != nil {
			return Stats{}, errors.Wrap(err, "summing payments")
		}
		stats.TotalCollected = total
	}
	return stats, nil
}

// Orphans lists, for every tenant collection, the documents whose branch_id is empty
// or matches no existing branch. Collections without orphans are omitted.
func (svc *Service) Orphans(ctx context.Context) ([]Orphans, error) {
	branches, err := svc.branches.All(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing branches")
	}
	known := make(map[string]bool, len(branches))
	for _, b := range branches {
		known[b.ID] = true
	}

	res := make([]Orphans, 0)
	for _, name := range svc.registry.Names() {
		store, _ := svc.registry.Lookup(name)
		counts, err := store.CountByBranch(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "counting %s by branch", name)
		}
		o := Orphans{Collection: name}
		for branchID, n := range counts {
			switch {
			case branchID == "":
				o.MissingBranch += n
			case !known[branchID]:
				o.UnknownBranch += n
			}
		}
		if o.MissingBranch > 0 || o.UnknownBranch > 0 {
			res = append(res, o)
		}
	}
	return res, nil
}
