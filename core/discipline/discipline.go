// Package discipline tracks student incidents.
package discipline

import (
	"context"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/document"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/student"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/tenancy"
)

var Collection = document.Collection{
	Name:      "incidents",
	Filters:   []string{"student_id", "incident_type", "severity", "status"},
	Search:    []string{"incident_type", "description"},
	Orderings: []string{"incident_date", "severity"},
}

type Incident struct {
	document.Base
	StudentID    string `json:"student_id" validate:"required"`
	ReportedBy   string `json:"reported_by"`
	IncidentDate string `json:"incident_date" validate:"required,date"`
	IncidentType string `json:"incident_type" validate:"required,max=50"`
	Severity     string `json:"severity" validate:"required,oneof=minor moderate major"`
	Description  string `json:"description" validate:"required,max=2000"`
	ActionTaken  string `json:"action_taken" validate:"max=2000"`
	Status       string `json:"status" validate:"required,oneof=open resolved"`
}

func New() *Incident { return new(Incident) }

func (i *Incident) Clean() {
	i.StudentID = core.CleanString(i.StudentID)
	i.ReportedBy = core.CleanString(i.ReportedBy)
	i.IncidentDate = core.CleanString(i.IncidentDate)
	i.IncidentType = core.CleanString(i.IncidentType, true /* lower */)
	i.Severity = core.CleanString(i.Severity, true /* lower */)
	if i.Severity == "" {
		i.Severity = "minor"
	}
	i.Description = core.CleanString(i.Description)
	i.ActionTaken = core.CleanString(i.ActionTaken)
	i.Status = core.CleanString(i.Status, true /* lower */)
	if i.Status == "" {
		i.Status = "open"
	}
}

func (i *Incident) References() []document.Reference {
	return []document.Reference{{Field: "student_id", Collection: student.Collection.Name, ID: i.StudentID}}
}

// NewService returns the incidents service. reported_by defaults to the reporting user.
func NewService(repo document.Repository[*Incident], deps document.Deps) *document.Service[*Incident] {
	return document.NewService(Collection, repo, deps, New,
		document.WithBeforeCreate[*Incident](func(_ context.Context, actor tenancy.Actor, i *Incident) {
			if core.CleanString(i.ReportedBy) == "" {
				i.ReportedBy = actor.UserID
			}
		}),
	)
}
