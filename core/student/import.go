package student

import (
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/document"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/tenancy"
)

var (
	// ImportColumns are the header names read from the first row of the sheet.
	ImportColumns = []string{
		"student_code", "first_name", "last_name", "gender", "date_of_birth",
		"guardian_name", "guardian_phone", "guardian_email",
	}
	requiredColumns = []string{"student_code", "first_name", "last_name", "gender"}

	ErrEmptySheet = errors.New("the sheet has no rows")
)

type (
	// RowError reports why a sheet row was not imported. Row is 1-based, as shown by spreadsheet apps.
	RowError struct {
		Row    int               `json:"row"`
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields,omitempty"`
	}

	ImportResult struct {
		Created []*Student `json:"created"`
		Errors  []RowError `json:"errors"`
	}

	Importer struct {
		svc *document.Service[*Student]
	}
)

func NewImporter(svc *document.Service[*Student]) *Importer {
	return &Importer{svc: svc}
}

// Import creates a student per row of the first sheet of an .xlsx workbook.
// Every row goes through the tenancy-aware service; invalid rows are reported and skipped.
func (imp *Importer) Import(ctx context.Context, actor tenancy.Actor, branchID string, r io.Reader) (*ImportResult, error) {
	// fail once, not per row
	branchID, err := tenancy.AssignBranch(actor, core.CleanString(branchID))
	if err != nil {
		if err == tenancy.ErrBranchRequired {
			return nil, core.NewFieldError("branch_id", err.Error())
		}
		return nil, err
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, core.NewFieldError("file", "not a valid .xlsx file")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, errors.Wrap(err, "reading sheet")
	}
	if len(rows) == 0 {
		return nil, core.NewFieldError("file", ErrEmptySheet.Error())
	}

	cols := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		cols[strings.ToLower(core.CleanString(h))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, core.NewFieldError("file", "missing column "+name)
		}
	}
	cell := func(row []string, name string) string {
		if i, ok := cols[name]; ok && i < len(row) {
			return row[i]
		}
		return ""
	}

	res := &ImportResult{Created: []*Student{}, Errors: []RowError{}}
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		s := &Student{
			StudentCode:   cell(row, "student_code"),
			FirstName:     cell(row, "first_name"),
			LastName:      cell(row, "last_name"),
			Gender:        cell(row, "gender"),
			DateOfBirth:   cell(row, "date_of_birth"),
			GuardianName:  cell(row, "guardian_name"),
			GuardianPhone: cell(row, "guardian_phone"),
			GuardianEmail: cell(row, "guardian_email"),
		}
		s.BranchID = branchID

		created, err := imp.svc.Create(ctx, actor, s)
		if err != nil {
			var vErr *core.ValidationError
			if !errors.As(err, &vErr) {
				return nil, errors.Wrapf(err, "importing row %d", i+2)
			}
			rowErr := RowError{Row: i + 2, Error: vErr.Error()}
			if len(vErr.Fields) > 0 {
				rowErr.Fields = make(map[string]string, len(vErr.Fields))
				for _, fe := range vErr.Fields {
					rowErr.Fields[fe.Field] = fe.Error
				}
			}
			res.Errors = append(res.Errors, rowErr)
			continue
		}
		res.Created = append(res.Created, created)
	}
	return res, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
