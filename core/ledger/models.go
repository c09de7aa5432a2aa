package ledger

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
)

// Kinds
const (
	KindIncome  = "income"
	KindExpense = "expense"
)

// Categories
const (
	// income
	CategoryTuition      = "tuition"
	CategoryRegistration = "registration"
	CategoryOtherIncome  = "other_income"

	// expense
	CategoryPayroll      = "payroll"
	CategoryRent         = "rent"
	CategoryUtilities    = "utilities"
	CategorySupplies     = "supplies"
	CategoryMarketing    = "marketing"
	CategoryOtherExpense = "other_expense"
)

// Reference types
const (
	RefManual  = "manual"
	RefReceipt = "receipt"
	RefPayroll = "payroll"
)

var (
	IncomeCategories  = []string{CategoryTuition, CategoryRegistration, CategoryOtherIncome}
	ExpenseCategories = []string{CategoryPayroll, CategoryRent, CategoryUtilities, CategorySupplies, CategoryMarketing, CategoryOtherExpense}
)

// CategoryKind returns the kind a category belongs to, or "" for unknown categories.
func CategoryKind(category string) string {
	switch {
	case core.StringInSlice(category, IncomeCategories):
		return KindIncome
	case core.StringInSlice(category, ExpenseCategories):
		return KindExpense
	}
	return ""
}

type Entry struct {
	ID          string          `json:"id"`
	EntryDate   core.Date       `json:"entry_date"`
	Kind        string          `json:"kind"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	RefType     string          `json:"ref_type"`
	RefID       string          `json:"ref_id"`
	CreatedBy   string          `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Signed returns the amount as it affects the cash balance.
func (e Entry) Signed() decimal.Decimal {
	if e.Kind == KindExpense {
		return e.Amount.Neg()
	}
	return e.Amount
}

// NewEntry contains information needed to record a manual Entry.
type NewEntry struct {
	EntryDate   core.Date       `json:"entry_date"`
	Category    string          `json:"category" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	Description string          `json:"description" validate:"required,notblank,max=255"`
}

func (ne *NewEntry) Validate(validate *validator.Validate) error {
	ne.Category = core.CleanString(ne.Category, true /* lower */)
	ne.Description = core.CleanString(ne.Description)
	if err := validate.Struct(ne); err != nil {
		return err
	}
	if CategoryKind(ne.Category) == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "category", Error: "unknown category"})
	}
	if ne.EntryDate.IsZero() {
		return core.NewValidationError(nil, core.FieldError{Field: "entry_date", Error: "this field is required"})
	}
	if !ne.Amount.Equal(ne.Amount.Round(2)) {
		return core.NewValidationError(nil, core.FieldError{Field: "amount", Error: "at most 2 decimal places are allowed"})
	}
	return nil
}

type QueryFilter struct {
	DateFrom core.Date
	DateTo   core.Date
	Kind     string
	Category string
	RefType  string
	Search   string // description
}

func (qf *QueryFilter) Clean() {
	qf.Kind = core.CleanString(qf.Kind, true /* lower */)
	qf.Category = core.CleanString(qf.Category, true /* lower */)
	qf.Search = core.CleanString(qf.Search)
}

// CashBookLine is a ledger entry with the balance after it.
type CashBookLine struct {
	Entry
	Balance decimal.Decimal `json:"balance"`
}

type CashBook struct {
	From           core.Date       `json:"from"`
	To             core.Date       `json:"to"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Lines          []CashBookLine  `json:"lines"`
	TotalIncome    decimal.Decimal `json:"total_income"`
	TotalExpense   decimal.Decimal `json:"total_expense"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}
