// Package finance holds the fees charged by a branch and the payments made against them.
// Amounts are integers in minor currency units.
package finance

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/academic"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/document"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/student"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/tenancy"
)

const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentCancelled = "cancelled"
)

var (
	Fees = document.Collection{
		Name:      "fees",
		Filters:   []string{"fee_type", "grade_level_id", "academic_year"},
		Search:    []string{"name"},
		Orderings: []string{"name", "fee_type", "due_date"},
	}
	Payments = document.Collection{
		Name:      "payments",
		Filters:   []string{"student_id", "fee_id", "method", "status", "receipt_no"},
		Search:    []string{"receipt_no", "reference"},
		Orderings: []string{"paid_at", "receipt_no"},
	}

	errAmountExceedsFee     = "amount exceeds the fee amount"
	errAmountExceedsBalance = "amount exceeds the balance left on the fee (%s)"
)

type Fee struct {
	document.Base
	Name         string `json:"name" validate:"required,max=100"`
	FeeType      string `json:"fee_type" validate:"required,oneof=tuition registration transport uniform exam other"`
	GradeLevelID string `json:"grade_level_id"`
	Amount       int64  `json:"amount" validate:"gt=0"`
	AcademicYear string `json:"academic_year" validate:"max=20"`
	DueDate      string `json:"due_date" validate:"omitempty,date"`
}

func NewFee() *Fee { return new(Fee) }

func (f *Fee) Clean() {
	f.Name = core.CleanString(f.Name)
	f.FeeType = core.CleanString(f.FeeType, true /* lower */)
	f.GradeLevelID = core.CleanString(f.GradeLevelID)
	f.AcademicYear = core.CleanString(f.AcademicYear)
	f.DueDate = core.CleanString(f.DueDate)
}

func (f *Fee) References() []document.Reference {
	return []document.Reference{{Field: "grade_level_id", Collection: academic.GradeLevels.Name, ID: f.GradeLevelID}}
}

type Payment struct {
	document.Base
	StudentID string `json:"student_id" validate:"required"`
	FeeID     string `json:"fee_id"`
	Amount    int64  `json:"amount" validate:"gt=0"`
	Method    string `json:"method" validate:"required,oneof=cash bank_transfer mobile_money cheque"`
	Reference string `json:"reference" validate:"max=100"`
	PaidAt    string `json:"paid_at" validate:"required,date"`
	Status    string `json:"status" validate:"required,oneof=pending completed cancelled"`
	ReceiptNo string `json:"receipt_no"`
}

func NewPayment() *Payment { return new(Payment) }

func (p *Payment) Clean() {
	p.StudentID = core.CleanString(p.StudentID)
	p.FeeID = core.CleanString(p.FeeID)
	p.Method = core.CleanString(p.Method, true /* lower */)
	p.Reference = core.CleanString(p.Reference)
	p.PaidAt = core.CleanString(p.PaidAt)
	p.Status = core.CleanString(p.Status, true /* lower */)
	if p.Status == "" {
		p.Status = PaymentCompleted
	}
}

func (p *Payment) References() []document.Reference {
	return []document.Reference{
		{Field: "student_id", Collection: student.Collection.Name, ID: p.StudentID},
		{Field: "fee_id", Collection: Fees.Name, ID: p.FeeID},
	}
}

// ReceiptNo returns a new receipt number: RCT-YYYYMMDD-xxxxxx.
func ReceiptNo() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return fmt.Sprintf("RCT-%s-%s", document.NowFunc().UTC().Format("20060102"), suffix)
}

func NewFeeService(repo document.Repository[*Fee], deps document.Deps) *document.Service[*Fee] {
	return document.NewService(Fees, repo, deps, NewFee)
}

// NewPaymentService returns the payments service. Payments get a receipt number and
// today's date when paid_at is blank. The payments of a student against one fee,
// cancelled ones aside, may not add up to more than the fee.
// Extra options, like the receipt mailer, are appended.
func NewPaymentService(
	repo document.Repository[*Payment],
	fees document.Repository[*Fee],
	deps document.Deps,
	opts ...document.Option[*Payment],
) *document.Service[*Payment] {
	opts = append([]document.Option[*Payment]{
		document.WithBeforeCreate[*Payment](func(_ context.Context, _ tenancy.Actor, p *Payment) {
			p.ReceiptNo = ReceiptNo()
			if core.CleanString(p.PaidAt) == "" {
				p.PaidAt = document.NowFunc().UTC().Format(core.DateLayout)
			}
		}),
		document.WithCheck[*Payment](func(ctx context.Context, p *Payment) error {
			if p.FeeID == "" {
				return nil
			}
			fee, err := fees.Get(ctx, tenancy.Branch(p.BranchID), p.FeeID)
			if err != nil {
				if errors.Cause(err) == core.ErrNotFound {
					return nil // reported by the reference check
				}
				return errors.Wrap(err, "getting fee")
			}
			if p.Amount > fee.Amount {
				return core.NewFieldError("amount", errAmountExceedsFee)
			}
			if p.Status == PaymentCancelled {
				return nil
			}
			paid, err := PaidAgainst(ctx, repo, p)
			if err != nil {
				return err
			}
			if paid+p.Amount > fee.Amount {
				return core.NewFieldError("amount", fmt.Sprintf(errAmountExceedsBalance, FormatAmount(fee.Amount-paid)))
			}
			return nil
		}),
	}, opts...)
	return document.NewService(Payments, repo, deps, NewPayment, opts...)
}

// PaidAgainst adds up the other payments of p's student against p's fee, in p's branch.
// Cancelled payments and p itself are left out.
func PaidAgainst(ctx context.Context, repo document.Repository[*Payment], p *Payment) (int64, error) {
	others, err := repo.Find(ctx, document.Query{
		Scope:  tenancy.Branch(p.BranchID),
		Fields: map[string]string{"fee_id": p.FeeID, "student_id": p.StudentID},
	})
	if err != nil {
		return 0, errors.Wrap(err, "finding fee payments")
	}
	var total int64
	for _, o := range others {
		if o.ID == p.ID || o.Status == PaymentCancelled {
			continue
		}
		total += o.Amount
	}
	return total, nil
}
