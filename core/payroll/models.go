package payroll

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
)

// Statuses
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
)

var AllStatuses = []string{StatusPending, StatusApproved, StatusPaid, StatusCancelled}

// Entry is what a teacher is owed for the sessions they taught in one completed package.
type Entry struct {
	ID            string          `json:"id"`
	TeacherID     string          `json:"teacher_id"`
	PackageID     string          `json:"package_id"`
	ClassID       string          `json:"class_id"`
	StudentID     string          `json:"student_id"`
	Sessions      int             `json:"sessions"`
	Rate          decimal.Decimal `json:"rate"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	Period        string          `json:"period"` // YYYY-MM
	Notes         string          `json:"notes"`
	ApprovedAt    time.Time       `json:"approved_at"`
	ApprovedBy    string          `json:"approved_by"`
	PaidOn        core.Date       `json:"paid_on"`
	PaidBy        string          `json:"paid_by"`
	LedgerEntryID string          `json:"ledger_entry_id"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type PayEntry struct {
	PaidOn core.Date `json:"paid_on"`
	Notes  string    `json:"notes" validate:"max=255"`
}

func (pe *PayEntry) Validate(validate *validator.Validate) error {
	pe.Notes = core.CleanString(pe.Notes)
	if err := validate.Struct(pe); err != nil {
		return err
	}
	if pe.PaidOn.IsZero() {
		pe.PaidOn = core.Today()
	}
	if pe.PaidOn.After(core.Today()) {
		return core.NewValidationError(nil, core.FieldError{Field: "paid_on", Error: "cannot be in the future"})
	}
	return nil
}

type QueryFilter struct {
	TeacherID string
	PackageID string
	Statuses  []string
	Period    string
}

func (qf *QueryFilter) Clean() {
	qf.Period = core.CleanString(qf.Period)
}

// StatusTotal sums the entries of one status.
type StatusTotal struct {
	Status string          `json:"status"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type Summary struct {
	TeacherID string        `json:"teacher_id"`
	Period    string        `json:"period"`
	Totals    []StatusTotal `json:"totals"`
}
