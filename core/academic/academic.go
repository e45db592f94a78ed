// Package academic holds the structure students are organised in:
// grade levels, the classes of a grade level and the subjects taught.
package academic

import (
	"context"

	"github.com/pkg/errors"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/document"
)

var (
	GradeLevels = document.Collection{
		Name:      "grade_levels",
		Search:    []string{"name"},
		Orderings: []string{"name"},
	}
	Classes = document.Collection{
		Name:      "classes",
		Filters:   []string{"grade_level_id", "academic_year", "teacher_id"},
		Search:    []string{"name", "academic_year"},
		Orderings: []string{"name", "academic_year"},
	}
	Subjects = document.Collection{
		Name:      "subjects",
		Filters:   []string{"grade_level_id", "code"},
		Search:    []string{"name", "code", "description"},
		Orderings: []string{"name", "code"},
	}

	errTeacherNotFound = "teacher_id must be an active user of this branch"
)

type GradeLevel struct {
	document.Base
	Name  string `json:"name" validate:"required,max=100"`
	Order int    `json:"order" validate:"gte=0"`
}

func NewGradeLevel() *GradeLevel { return new(GradeLevel) }

func (g *GradeLevel) Clean() {
	g.Name = core.CleanString(g.Name)
}

type Class struct {
	document.Base
	Name         string `json:"name" validate:"required,max=100"`
	GradeLevelID string `json:"grade_level_id" validate:"required"`
	AcademicYear string `json:"academic_year" validate:"max=20"`
	TeacherID    string `json:"teacher_id"`
	Capacity     int    `json:"capacity" validate:"gte=0"`
}

func NewClass() *Class { return new(Class) }

func (c *Class) Clean() {
	c.Name = core.CleanString(c.Name)
	c.GradeLevelID = core.CleanString(c.GradeLevelID)
	c.AcademicYear = core.CleanString(c.AcademicYear)
	c.TeacherID = core.CleanString(c.TeacherID)
}

func (c *Class) References() []document.Reference {
	return []document.Reference{{Field: "grade_level_id", Collection: GradeLevels.Name, ID: c.GradeLevelID}}
}

type Subject struct {
	document.Base
	Name         string `json:"name" validate:"required,max=100"`
	Code         string `json:"code" validate:"required,max=20,alphanum_"`
	GradeLevelID string `json:"grade_level_id"`
	Description  string `json:"description" validate:"max=1000"`
}

func NewSubject() *Subject { return new(Subject) }

func (s *Subject) Clean() {
	s.Name = core.CleanString(s.Name)
	s.Code = core.CleanString(s.Code)
	s.GradeLevelID = core.CleanString(s.GradeLevelID)
	s.Description = core.CleanString(s.Description)
}

func (s *Subject) References() []document.Reference {
	return []document.Reference{{Field: "grade_level_id", Collection: GradeLevels.Name, ID: s.GradeLevelID}}
}

// StaffChecker reports whether a user is an active member of a branch.
type StaffChecker interface {
	InBranch(ctx context.Context, branchID, userID string) (bool, error)
}

func NewGradeLevelService(repo document.Repository[*GradeLevel], deps document.Deps) *document.Service[*GradeLevel] {
	return document.NewService(GradeLevels, repo, deps, NewGradeLevel,
		document.WithCheck(document.Unique(repo, "name", func(g *GradeLevel) map[string]string {
			return map[string]string{"name": g.Name}
		})),
	)
}

// NewClassService returns the classes service. staff may be nil to skip the teacher check.
func NewClassService(repo document.Repository[*Class], deps document.Deps, staff StaffChecker) *document.Service[*Class] {
	opts := []document.Option[*Class]{
		document.WithCheck(document.Unique(repo, "name", func(c *Class) map[string]string {
			return map[string]string{"name": c.Name, "academic_year": c.AcademicYear}
		})),
	}
	if staff != nil {
		opts = append(opts, document.WithCheck[*Class](func(ctx context.Context, c *Class) error {
			if c.TeacherID == "" {
				return nil
			}
			ok, err := staff.InBranch(ctx, c.BranchID, c.TeacherID)
			if err != nil {
				return errors.Wrap(err, "checking teacher")
			}
			if !ok {
				return core.NewFieldError("teacher_id", errTeacherNotFound)
			}
			return nil
		}))
	}
	return document.NewService(Classes, repo, deps, NewClass, opts...)
}

func NewSubjectService(repo document.Repository[*Subject], deps document.Deps) *document.Service[*Subject] {
	return document.NewService(Subjects, repo, deps, NewSubject,
		document.WithCheck(document.Unique(repo, "code", func(s *Subject) map[string]string {
			return map[string]string{"code": s.Code}
		})),
	)
}
