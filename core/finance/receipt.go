package finance

import (
	"bytes"
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/branch"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/document"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/student"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/tenancy"
)

const (
	receiptTemplate = "payment_receipt"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type (
	BranchLookup interface {
		Lookup(ctx context.Context, id string) (*branch.Branch, error)
	}

	// ReceiptData feeds the payment_receipt email template.
	ReceiptData struct {
		GuardianName string
		StudentName  string
		ReceiptNo    string
		FeeName      string
		Amount       string
		Method       string
		PaidAt       string
		BranchName   string
	}

	ReceiptMailer struct {
		students document.Repository[*student.Student]
		fees     document.Repository[*Fee]
		branches BranchLookup
		mailer   core.EmailService
		logger   core.Logger
	}
)

func NewReceiptMailer(
	students document.Repository[*student.Student],
	fees document.Repository[*Fee],
	branches BranchLookup,
	mailer core.EmailService,
	logger core.Logger,
) *ReceiptMailer {
	return &ReceiptMailer{students: students, fees: fees, branches: branches, mailer: mailer, logger: logger}
}

// Option returns the hooks sending the receipt: on creation, and when an update completes a payment.
func (rm *ReceiptMailer) Option() document.Option[*Payment] {
	onCreate := document.WithAfterCreate[*Payment](rm.Send)
	onUpdate := document.WithAfterUpdate[*Payment](func(ctx context.Context, actor tenancy.Actor, prev, p *Payment) {
		if prev.Status != PaymentCompleted {
			rm.Send(ctx, actor, p)
		}
	})
	return func(svc *document.Service[*Payment]) {
		onCreate(svc)
		onUpdate(svc)
	}
}

// FormatAmount renders minor units with two decimals.
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign, minor = "-", -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// Send e-mails the receipt of a completed payment to the student's guardian, when there is an address.
// Failures are logged; the payment stands.
func (rm *ReceiptMailer) Send(ctx context.Context, actor tenancy.Actor, p *Payment) {
	if p.Status != PaymentCompleted {
		return
	}
	scope := tenancy.Branch(p.BranchID)
	s, err := rm.students.Get(ctx, scope, p.StudentID)
	if err != nil {
		rm.logger.Error(fmt.Sprintf("receipt %s: getting student: %v", p.ReceiptNo, err), err, actor)
		return
	}
	if s.GuardianEmail == "" {
		return
	}

	data := ReceiptData{
		GuardianName: s.GuardianName,
		StudentName:  s.FullName(),
		ReceiptNo:    p.ReceiptNo,
		Amount:       FormatAmount(p.Amount),
		Method:       p.Method,
		PaidAt:       p.PaidAt,
	}
	if data.GuardianName == "" {
		data.GuardianName = "Parent/Guardian"
	}
	if p.FeeID != "" {
		if fee, err := rm.fees.Get(ctx, scope, p.FeeID); err == nil {
			data.FeeName = fee.Name
		}
	}
	if rm.branches != nil {
		if b, err := rm.branches.Lookup(ctx, p.BranchID); err == nil {
			data.BranchName = b.Name
		}
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: s.GuardianName, Address: s.GuardianEmail}},
		Subject:      "Payment receipt " + p.ReceiptNo,
		TemplateName: receiptTemplate,
		TemplateData: data,
	}
	if err := attachReceipt(msg, data); err != nil {
		rm.logger.Error(fmt.Sprintf("receipt %s: attaching workbook: %v", p.ReceiptNo, err), err, actor)
	}
	rm.mailer.SendMessages(msg)
}

// ReceiptFilename is the name of the workbook attached to a receipt e-mail.
func ReceiptFilename(receiptNo string) string {
	return "receipt-" + receiptNo + ".xlsx"
}

// attachReceipt attaches the receipt as a one-sheet workbook of label/value rows.
func attachReceipt(msg *core.EmailMessage, data ReceiptData) error {
	f := excelize.NewFile()
	//goland:noinspection GoUnhandledErrorResult
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"Receipt", data.ReceiptNo},
		{"Branch", data.BranchName},
		{"Student", data.StudentName},
		{"Fee", data.FeeName},
		{"Amount", data.Amount},
		{"Method", data.Method},
		{"Paid at", data.PaidAt},
	}
	for i, row := range rows {
		row := row
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return errors.Wrap(err, "locating cell")
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrap(err, "writing row")
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return errors.Wrap(err, "writing workbook")
	}
	return msg.Attach(bytes.NewReader(buf.Bytes()), ReceiptFilename(data.ReceiptNo), xlsxContentType)
}
