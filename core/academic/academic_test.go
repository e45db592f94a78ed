package academic_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/academic"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/tenancy"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/storage/database/inmem"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/tests"
)

var (
	super  = tenancy.Actor{UserID: "root", Role: tenancy.RoleSuperAdmin}
	admin1 = tenancy.Actor{UserID: "a1", Role: tenancy.RoleAdmin, BranchID: "b1"}
	admin2 = tenancy.Actor{UserID: "a2", Role: tenancy.RoleAdmin, BranchID: "b2"}
)

type staff map[string]string // user id -> branch id

func (s staff) InBranch(_ context.Context, branchID, userID string) (bool, error) {
	return s[userID] == branchID, nil
}

func TestAcademic(t *testing.T) {
	ctx := context.Background()
	deps := testutil.NewDeps("b1", "b2")
	levels := academic.NewGradeLevelService(inmemdb.NewDocumentRepository(academic.GradeLevels, academic.NewGradeLevel), deps)
	classes := academic.NewClassService(inmemdb.NewDocumentRepository(academic.Classes, academic.NewClass), deps, staff{"t1": "b1", "t2": "b2"})
	subjects := academic.NewSubjectService(inmemdb.NewDocumentRepository(academic.Subjects, academic.NewSubject), deps)

	g1, err := levels.Create(ctx, admin1, &academic.GradeLevel{Name: " Grade 1 ", Order: 1})
	require.NoError(t, err)
	assert.Equal(t, "Grade 1", g1.Name)
	assert.Equal(t, "b1", g1.BranchID)

	// grade level names are unique per branch
	_, err = levels.Create(ctx, admin1, &academic.GradeLevel{Name: "Grade 1", Order: 2})
	assert.Contains(t, testutil.FieldErrors(err), "name")
	g1b2, err := levels.Create(ctx, admin2, &academic.GradeLevel{Name: "Grade 1", Order: 1})
	require.NoError(t, err)

	t.Run("class", func(t *testing.T) {
		tests := []struct {
			name      string
			actor     tenancy.Actor
			class     academic.Class
			wantField string
		}{
			{name: "valid", actor: admin1, class: academic.Class{Name: "1A", GradeLevelID: g1.ID, AcademicYear: "2024/2025", TeacherID: "t1", Capacity: 30}},
			{name: "grade level of another branch", actor: admin1, class: academic.Class{Name: "1B", GradeLevelID: g1b2.ID}, wantField: "grade_level_id"},
			{name: "teacher of another branch", actor: admin1, class: academic.Class{Name: "1C", GradeLevelID: g1.ID, TeacherID: "t2"}, wantField: "teacher_id"},
			{name: "negative capacity", actor: admin1, class: academic.Class{Name: "1D", GradeLevelID: g1.ID, Capacity: -1}, wantField: "capacity"},
			{name: "duplicate", actor: admin1, class: academic.Class{Name: "1A", GradeLevelID: g1.ID, AcademicYear: "2024/2025"}, wantField: "name"},
			{name: "same name other year", actor: admin1, class: academic.Class{Name: "1A", GradeLevelID: g1.ID, AcademicYear: "2025/2026"}},
			{name: "superadmin stamps requested branch", actor: super, class: academic.Class{Name: "1A", GradeLevelID: g1b2.ID}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				class := tt.class
				if tt.actor.IsSuperAdmin() {
					class.BranchID = "b2"
				}
				created, err := classes.Create(ctx, tt.actor, &class)
				if tt.wantField != "" {
					assert.Contains(t, testutil.FieldErrors(err), tt.wantField)
					return
				}
				require.NoError(t, err)
				assert.NotEmpty(t, created.ID)
			})
		}
	})

	t.Run("subject", func(t *testing.T) {
		s, err := subjects.Create(ctx, admin1, &academic.Subject{Name: "Mathematics", Code: "MATH1", GradeLevelID: g1.ID})
		require.NoError(t, err)
		assert.Equal(t, "b1", s.BranchID)

		_, err = subjects.Create(ctx, admin1, &academic.Subject{Name: "Maths again", Code: "MATH1"})
		assert.Contains(t, testutil.FieldErrors(err), "code")

		// codes are only unique within a branch
		_, err = subjects.Create(ctx, admin2, &academic.Subject{Name: "Mathematics", Code: "MATH1"})
		assert.NoError(t, err)

		_, err = subjects.Update(ctx, admin1, s.ID, func(s *academic.Subject) error {
			s.Description = "Numbers"
			return nil
		})
		assert.NoError(t, err, "a document does not collide with itself")
	})
}
