package student_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/academic"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/document"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/student"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/tenancy"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/storage/database/inmem"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/tests"
)

var (
	super   = tenancy.Actor{UserID: "root", Role: tenancy.RoleSuperAdmin}
	admin1  = tenancy.Actor{UserID: "a1", Role: tenancy.RoleAdmin, BranchID: "b1"}
	teacher = tenancy.Actor{UserID: "t1", Role: tenancy.RoleTeacher, BranchID: "b1"}
)

func setup(t *testing.T) (*document.Service[*student.Student], *document.Service[*academic.GradeLevel]) {
	t.Helper()
	deps := testutil.NewDeps("b1", "b2")
	levels := academic.NewGradeLevelService(inmemdb.NewDocumentRepository(academic.GradeLevels, academic.NewGradeLevel), deps)
	academic.NewClassService(inmemdb.NewDocumentRepository(academic.Classes, academic.NewClass), deps, nil)
	return student.NewService(inmemdb.NewDocumentRepository(student.Collection, student.New), deps), levels
}

func TestService_Create(t *testing.T) {
	svc, levels := setup(t)
	ctx := context.Background()
	g1, err := levels.Create(ctx, admin1, &academic.GradeLevel{Name: "Grade 1"})
	require.NoError(t, err)

	s, err := svc.Create(ctx, admin1, &student.Student{
		StudentCode:   "STU-001",
		FirstName:     "Amina",
		LastName:      "Bekele",
		Gender:        "Female",
		DateOfBirth:   "2015-03-09",
		GradeLevelID:  g1.ID,
		GuardianEmail: "Parent@Mail.test",
	})
	require.NoError(t, err)
	assert.Equal(t, student.StatusActive, s.Status)
	assert.Equal(t, "female", s.Gender)
	assert.Equal(t, "parent@mail.test", s.GuardianEmail)
	assert.Equal(t, "Amina Bekele", s.FullName())

	tests := []struct {
		name      string
		actor     tenancy.Actor
		student   student.Student
		wantErr   error
		wantField string
	}{
		{name: "teacher", actor: teacher, student: student.Student{StudentCode: "X1", FirstName: "a", LastName: "b", Gender: "male"}, wantErr: tenancy.ErrForbidden},
		{name: "duplicate code", actor: admin1, student: student.Student{StudentCode: "STU-001", FirstName: "a", LastName: "b", Gender: "male"}, wantField: "student_code"},
		{name: "gender", actor: admin1, student: student.Student{StudentCode: "X2", FirstName: "a", LastName: "b", Gender: "x"}, wantField: "gender"},
		{name: "date format", actor: admin1, student: student.Student{StudentCode: "X3", FirstName: "a", LastName: "b", Gender: "male", DateOfBirth: "09/03/2015"}, wantField: "date_of_birth"},
		{name: "status", actor: admin1, student: student.Student{StudentCode: "X4", FirstName: "a", LastName: "b", Gender: "male", Status: "expelled"}, wantField: "status"},
		{name: "unknown class", actor: admin1, student: student.Student{StudentCode: "X5", FirstName: "a", LastName: "b", Gender: "male", ClassID: "nope"}, wantField: "class_id"},
		{name: "superadmin without branch", actor: super, student: student.Student{StudentCode: "X6", FirstName: "a", LastName: "b", Gender: "male"}, wantField: "branch_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.student
			_, err := svc.Create(ctx, tt.actor, &s)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			assert.Contains(t, testutil.FieldErrors(err), tt.wantField)
		})
	}
}

func workbook(t *testing.T, rows ...[]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestImporter_Import(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	imp := student.NewImporter(svc)

	header := []interface{}{"Student_Code", "First_Name", "Last_Name", "Gender", "Date_Of_Birth", "Guardian_Name", "Guardian_Phone", "Guardian_Email"}

	t.Run("rows", func(t *testing.T) {
		buf := workbook(t,
			header,
			[]interface{}{"S1", "Abel", "Tesfaye", "male", "2014-01-02", "Tesfaye G.", "+251900000000", "tg@mail.test"},
			[]interface{}{"S2", "Hana", "Girma", "unknown"},
			[]interface{}{},
			[]interface{}{"S1", "Dup", "Code", "female"},
			[]interface{}{"S3", "Lidya", "Alemu", "FEMALE"},
		)
		res, err := imp.Import(ctx, admin1, "b2", buf)
		require.NoError(t, err)

		require.Len(t, res.Created, 2)
		assert.Equal(t, "S1", res.Created[0].StudentCode)
		assert.Equal(t, "b1", res.Created[0].BranchID, "admins import into their own branch")
		assert.Equal(t, "tg@mail.test", res.Created[0].GuardianEmail)
		assert.Equal(t, "S3", res.Created[1].StudentCode)

		require.Len(t, res.Errors, 2)
		assert.Equal(t, 3, res.Errors[0].Row)
		assert.Contains(t, res.Errors[0].Fields, "gender")
		assert.Equal(t, 5, res.Errors[1].Row)
		assert.Contains(t, res.Errors[1].Fields, "student_code")

		n, err := svc.Count(ctx, admin1, "", nil)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("superadmin picks the branch", func(t *testing.T) {
		res, err := imp.Import(ctx, super, "b2", workbook(t, header, []interface{}{"S9", "Sara", "Kebede", "female"}))
		require.NoError(t, err)
		require.Len(t, res.Created, 1)
		assert.Equal(t, "b2", res.Created[0].BranchID)
	})

	t.Run("rejected upfront", func(t *testing.T) {
		_, err := imp.Import(ctx, teacher, "", workbook(t, header))
		assert.Equal(t, tenancy.ErrForbidden, err)

		_, err = imp.Import(ctx, tenancy.Actor{Role: tenancy.RoleAdmin}, "", workbook(t, header))
		assert.Equal(t, tenancy.ErrNoBranch, err)

		_, err = imp.Import(ctx, super, "", workbook(t, header))
		assert.Contains(t, testutil.FieldErrors(err), "branch_id")

		_, err = imp.Import(ctx, admin1, "", workbook(t, []interface{}{"student_code", "first_name"}))
		assert.Contains(t, testutil.FieldErrors(err), "file")

		_, err = imp.Import(ctx, admin1, "", bytes.NewBufferString("not a workbook"))
		assert.Contains(t, testutil.FieldErrors(err), "file")
	})
}
