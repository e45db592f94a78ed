// Package student manages student records and their bulk import.
package student

import (
	"strings"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/academic"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/document"
)

const (
	StatusActive      = "active"
	StatusInactive    = "inactive"
	StatusGraduated   = "graduated"
	StatusTransferred = "transferred"
)

var (
	Collection = document.Collection{
		Name:      "students",
		Filters:   []string{"status", "gender", "grade_level_id", "class_id", "student_code"},
		Search:    []string{"first_name", "last_name", "student_code", "guardian_name", "guardian_phone"},
		Orderings: []string{"first_name", "last_name", "student_code", "admission_date"},
	}

	Statuses = []string{StatusActive, StatusInactive, StatusGraduated, StatusTransferred}
)

type Student struct {
	document.Base
	StudentCode   string `json:"student_code" validate:"required,max=30,notblank"`
	FirstName     string `json:"first_name" validate:"required,max=100"`
	LastName      string `json:"last_name" validate:"required,max=100"`
	Gender        string `json:"gender" validate:"required,oneof=male female"`
	DateOfBirth   string `json:"date_of_birth" validate:"omitempty,date"`
	GradeLevelID  string `json:"grade_level_id"`
	ClassID       string `json:"class_id"`
	GuardianName  string `json:"guardian_name" validate:"max=100"`
	GuardianPhone string `json:"guardian_phone" validate:"max=30"`
	GuardianEmail string `json:"guardian_email" validate:"omitempty,email"`
	AdmissionDate string `json:"admission_date" validate:"omitempty,date"`
	Status        string `json:"status" validate:"required,oneof=active inactive graduated transferred"`
}

func New() *Student { return new(Student) }

func (s *Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

func (s *Student) Clean() {
	s.StudentCode = core.CleanString(s.StudentCode)
	s.FirstName = core.CleanString(s.FirstName)
	s.LastName = core.CleanString(s.LastName)
	s.Gender = core.CleanString(s.Gender, true /* lower */)
	s.DateOfBirth = core.CleanString(s.DateOfBirth)
	s.GradeLevelID = core.CleanString(s.GradeLevelID)
	s.ClassID = core.CleanString(s.ClassID)
	s.GuardianName = core.CleanString(s.GuardianName)
	s.GuardianPhone = core.CleanString(s.GuardianPhone)
	s.GuardianEmail = core.CleanString(s.GuardianEmail, true /* lower */)
	s.AdmissionDate = core.CleanString(s.AdmissionDate)
	s.Status = core.CleanString(s.Status, true /* lower */)
	if s.Status == "" {
		s.Status = StatusActive
	}
}

func (s *Student) References() []document.Reference {
	return []document.Reference{
		{Field: "grade_level_id", Collection: academic.GradeLevels.Name, ID: s.GradeLevelID},
		{Field: "class_id", Collection: academic.Classes.Name, ID: s.ClassID},
	}
}

func NewService(repo document.Repository[*Student], deps document.Deps) *document.Service[*Student] {
	return document.NewService(Collection, repo, deps, New,
		document.WithCheck(document.Unique(repo, "student_code", func(s *Student) map[string]string {
			return map[string]string{"student_code": s.StudentCode}
		})),
	)
}
