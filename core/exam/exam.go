// Package exam schedules the exams of a class.
package exam

import (
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/academic"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/document"
)

var Collection = document.Collection{
	Name:      "exams",
	Filters:   []string{"subject_id", "class_id", "status"},
	Search:    []string{"name"},
	Orderings: []string{"name", "exam_date"},
}

type Exam struct {
	document.Base
	Name      string `json:"name" validate:"required,max=100"`
	SubjectID string `json:"subject_id"`
	ClassID   string `json:"class_id"`
	ExamDate  string `json:"exam_date" validate:"omitempty,date"`
	MaxMarks  int    `json:"max_marks" validate:"gt=0"`
	Status    string `json:"status" validate:"required,oneof=scheduled completed cancelled"`
}

func New() *Exam { return new(Exam) }

func (e *Exam) Clean() {
	e.Name = core.CleanString(e.Name)
	e.SubjectID = core.CleanString(e.SubjectID)
	e.ClassID = core.CleanString(e.ClassID)
	e.ExamDate = core.CleanString(e.ExamDate)
	e.Status = core.CleanString(e.Status, true /* lower */)
	if e.Status == "" {
		e.Status = "scheduled"
	}
}

func (e *Exam) References() []document.Reference {
	return []document.Reference{
		{Field: "subject_id", Collection: academic.Subjects.Name, ID: e.SubjectID},
		{Field: "class_id", Collection: academic.Classes.Name, ID: e.ClassID},
	}
}

func NewService(repo document.Repository[*Exam], deps document.Deps) *document.Service[*Exam] {
	return document.NewService(Collection, repo, deps, New)
}
