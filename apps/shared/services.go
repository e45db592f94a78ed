// Package shared assembles the domain services on top of a database,
// for the API server, the admin CLI and the API test suites.
package shared

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/academic"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/attendance"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/branch"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/discipline"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/document"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/exam"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/finance"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/inventory"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/report"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/student"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/user"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/storage/database/docstore"
	sqlxrepos "github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/storage/database/sqlx"
)

type (
	Options struct {
		DB         core.DB
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Cache      branch.Cache       // optional
		Mailer     core.EmailService // optional; receipts are not sent without it
	}

	Services struct {
		Registry    *document.Registry
		Users       *user.Service
		Branches    *branch.Service
		GradeLevels *document.Service[*academic.GradeLevel]
		Classes     *document.Service[*academic.Class]
		Subjects    *document.Service[*academic.Subject]
		Students    *document.Service[*student.Student]
		Attendance  *document.Service[*attendance.Record]
		Fees        *document.Service[*finance.Fee]
		Payments    *document.Service[*finance.Payment]
		Exams       *document.Service[*exam.Exam]
		Incidents   *document.Service[*discipline.Incident]
		Inventory   *document.Service[*inventory.Item]
		Importer    *student.Importer
		Reports     *report.Service
	}
)

// NewServices opens a store per collection and wires the services together.
func NewServices(opts Options) (*Services, error) {
	svcs := &Services{Registry: document.NewRegistry()}

	branchRepo, err := docstore.New(opts.DB, branch.Collection, branch.New)
	if err != nil {
		return nil, errors.Wrap(err, "opening branches store")
	}
	svcs.Branches = branch.NewService(branchRepo, svcs.Registry, opts.Cache, opts.Logger, opts.Validate, opts.Translator)

	svcs.Users = user.NewService(sqlxrepos.NewUserRepository(opts.DB), svcs.Branches, opts.Validate, opts.Translator)
	svcs.Branches.AddReferrer("users", svcs.Users.CountInBranch)

	deps := document.Deps{
		Branches:   svcs.Branches,
		Registry:   svcs.Registry,
		Validate:   opts.Validate,
		Translator: opts.Translator,
	}

	gradeRepo, err := docstore.New(opts.DB, academic.GradeLevels, academic.NewGradeLevel)
	if err != nil {
		return nil, errors.Wrap(err, "opening grade_levels store")
	}
	svcs.GradeLevels = academic.NewGradeLevelService(gradeRepo, deps)

	classRepo, err := docstore.New(opts.DB, academic.Classes, academic.NewClass)
	if err != nil {
		return nil, errors.Wrap(err, "opening classes store")
	}
	svcs.Classes = academic.NewClassService(classRepo, deps, svcs.Users)

	subjectRepo, err := docstore.New(opts.DB, academic.Subjects, academic.NewSubject)
	if err != nil {
		return nil, errors.Wrap(err, "opening subjects store")
	}
	svcs.Subjects = academic.NewSubjectService(subjectRepo, deps)

	studentRepo, err := docstore.New(opts.DB, student.Collection, student.New)
	if err != nil {
		return nil, errors.Wrap(err, "opening students store")
	}
	svcs.Students = student.NewService(studentRepo, deps)
	svcs.Importer = student.NewImporter(svcs.Students)

	attendanceRepo, err := docstore.New(opts.DB, attendance.Collection, attendance.New)
	if err != nil {
		return nil, errors.Wrap(err, "opening attendance store")
	}
	svcs.Attendance = attendance.NewService(attendanceRepo, deps)

	feeRepo, err := docstore.New(opts.DB, finance.Fees, finance.NewFee)
	if err != nil {
		return nil, errors.Wrap(err, "opening fees store")
	}
	svcs.Fees = finance.NewFeeService(feeRepo, deps)

	paymentRepo, err := docstore.New(opts.DB, finance.Payments, finance.NewPayment)
	if err != nil {
		return nil, errors.Wrap(err, "opening payments store")
	}
	var paymentOpts []document.Option[*finance.Payment]
	if opts.Mailer != nil {
		mailer := finance.NewReceiptMailer(studentRepo, feeRepo, svcs.Branches, opts.Mailer, opts.Logger)
		paymentOpts = append(paymentOpts, mailer.Option())
	}
	svcs.Payments = finance.NewPaymentService(paymentRepo, feeRepo, deps, paymentOpts...)

	examRepo, err := docstore.New(opts.DB, exam.Collection, exam.New)
	if err != nil {
		return nil, errors.Wrap(err, "opening exams store")
	}
	svcs.Exams = exam.NewService(examRepo, deps)

	incidentRepo, err := docstore.New(opts.DB, discipline.Collection, discipline.New)
	if err != nil {
		return nil, errors.Wrap(err, "opening incidents store")
	}
	svcs.Incidents = discipline.NewService(incidentRepo, deps)

	itemRepo, err := docstore.New(opts.DB, inventory.Collection, inventory.New)
	if err != nil {
		return nil, errors.Wrap(err, "opening inventory store")
	}
	svcs.Inventory = inventory.NewService(itemRepo, deps)

	svcs.Reports = report.NewService(svcs.Registry, svcs.Branches)
	return svcs, nil
}
