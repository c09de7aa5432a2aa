package receipt

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
)

// Payment methods
const (
	MethodCash     = "cash"
	MethodTransfer = "transfer"
	MethodOther    = "other"
)

type Item struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

type Receipt struct {
	ID            string          `json:"id"`
	Number        string          `json:"number"` // <prefix>/<YYYYMM>/<seq>
	StudentID     string          `json:"student_id"`
	StudentName   string          `json:"student_name"` // snapshot at issue time
	PackageID     string          `json:"package_id"`
	Items         []Item          `json:"items"`
	Total         decimal.Decimal `json:"total"`
	Method        string          `json:"method"`
	PaidOn        core.Date       `json:"paid_on"`
	ReceivedBy    string          `json:"received_by"`
	Notes         string          `json:"notes"`
	LedgerEntryID string          `json:"ledger_entry_id"`
	VoidedAt      time.Time       `json:"voided_at"`
	VoidReason    string          `json:"void_reason"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (r Receipt) IsVoided() bool { return !r.VoidedAt.IsZero() }

type NewItem struct {
	Description string          `json:"description" validate:"required,notblank,max=255"`
	Quantity    int             `json:"quantity" validate:"min=1"`
	UnitPrice   decimal.Decimal `json:"unit_price" validate:"gt=0"`
}

// NewReceipt contains information needed to issue a Receipt.
// When Items is empty, PackageID is required and the class package fee is billed.
type NewReceipt struct {
	StudentID string    `json:"student_id" validate:"required,uuid"`
	PackageID string    `json:"package_id" validate:"omitempty,uuid"`
	Items     []NewItem `json:"items" validate:"dive"`
	Method    string    `json:"method" validate:"required,oneof=cash transfer other"`
	PaidOn    core.Date `json:"paid_on"`
	Notes     string    `json:"notes"`
}

func (nr *NewReceipt) Validate(validate *validator.Validate) error {
	nr.Method = core.CleanString(nr.Method, true /* lower */)
	nr.Notes = core.CleanString(nr.Notes)
	for i := range nr.Items {
		nr.Items[i].Description = core.CleanString(nr.Items[i].Description)
		if nr.Items[i].Quantity == 0 {
			nr.Items[i].Quantity = 1
		}
	}
	if err := validate.Struct(nr); err != nil {
		return err
	}
	if len(nr.Items) == 0 && nr.PackageID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "items", Error: "add at least one item or a package"})
	}
	if nr.PaidOn.IsZero() {
		nr.PaidOn = core.Today()
	}
	if nr.PaidOn.After(core.Today()) {
		return core.NewValidationError(nil, core.FieldError{Field: "paid_on", Error: "cannot be in the future"})
	}
	return nil
}

type VoidReceipt struct {
	Reason string `json:"reason" validate:"required,notblank,max=255"`
}

func (vr *VoidReceipt) Validate(validate *validator.Validate) error {
	vr.Reason = core.CleanString(vr.Reason)
	return validate.Struct(vr)
}

type QueryFilter struct {
	StudentID      string
	PackageID      string
	DateFrom       core.Date
	DateTo         core.Date
	IncludeVoided  bool
	NumberContains string
}

func (qf *QueryFilter) Clean() {
	qf.NumberContains = core.CleanString(qf.NumberContains)
}
