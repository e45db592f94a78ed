package exam_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/academic"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/exam"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/tenancy"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/storage/database/inmem"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/tests"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	admin1 := tenancy.Actor{UserID: "a1", Role: tenancy.RoleAdmin, BranchID: "b1"}
	deps := testutil.NewDeps("b1")
	subjects := academic.NewSubjectService(inmemdb.NewDocumentRepository(academic.Subjects, academic.NewSubject), deps)
	academic.NewClassService(inmemdb.NewDocumentRepository(academic.Classes, academic.NewClass), deps, nil)
	svc := exam.NewService(inmemdb.NewDocumentRepository(exam.Collection, exam.New), deps)

	math, err := subjects.Create(ctx, admin1, &academic.Subject{Name: "Mathematics", Code: "MATH"})
	require.NoError(t, err)

	tests := []struct {
		name      string
		exam      exam.Exam
		wantField string
	}{
		{name: "valid", exam: exam.Exam{Name: "Midterm", SubjectID: math.ID, ExamDate: "2024-11-04", MaxMarks: 100}},
		{name: "max marks", exam: exam.Exam{Name: "Quiz", SubjectID: math.ID}, wantField: "max_marks"},
		{name: "status", exam: exam.Exam{Name: "Final", MaxMarks: 100, Status: "postponed"}, wantField: "status"},
		{name: "subject", exam: exam.Exam{Name: "Final", MaxMarks: 100, SubjectID: "nope"}, wantField: "subject_id"},
		{name: "class", exam: exam.Exam{Name: "Final", MaxMarks: 100, ClassID: "nope"}, wantField: "class_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := tt.exam
			created, err := svc.Create(ctx, admin1, &e)
			if tt.wantField != "" {
				assert.Contains(t, testutil.FieldErrors(err), tt.wantField)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "scheduled", created.Status)
		})
	}
}
