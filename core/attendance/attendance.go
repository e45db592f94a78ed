// Package attendance records the daily presence of students.
package attendance

import (
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/academic"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/document"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/student"
)

var Collection = document.Collection{
	Name:      "attendance",
	Filters:   []string{"student_id", "class_id", "date", "status"},
	Search:    []string{"remarks"},
	Orderings: []string{"date", "status"},
}

type Record struct {
	document.Base
	StudentID string `json:"student_id" validate:"required"`
	ClassID   string `json:"class_id"`
	Date      string `json:"date" validate:"required,date"`
	Status    string `json:"status" validate:"required,oneof=present absent late excused"`
	Remarks   string `json:"remarks" validate:"max=255"`
}

func New() *Record { return new(Record) }

func (r *Record) Clean() {
	r.StudentID = core.CleanString(r.StudentID)
	r.ClassID = core.CleanString(r.ClassID)
	r.Date = core.CleanString(r.Date)
	r.Status = core.CleanString(r.Status, true /* lower */)
	if r.Status == "" {
		r.Status = "present"
	}
	r.Remarks = core.CleanString(r.Remarks)
}

func (r *Record) References() []document.Reference {
	return []document.Reference{
		{Field: "student_id", Collection: student.Collection.Name, ID: r.StudentID},
		{Field: "class_id", Collection: academic.Classes.Name, ID: r.ClassID},
	}
}

// NewService returns the attendance service; a student has at most one record per date.
func NewService(repo document.Repository[*Record], deps document.Deps) *document.Service[*Record] {
	return document.NewService(Collection, repo, deps, New,
		document.WithCheck(document.Unique(repo, "date", func(r *Record) map[string]string {
			return map[string]string{"student_id": r.StudentID, "date": r.Date}
		})),
	)
}
