package ledger

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
)

var (
	// errors
	ErrNotFound  = core.NewNotFoundError("ledger entry not found")
	ErrNotManual = core.NewConflictError("only manual entries can be deleted; void the receipt or payroll payment instead")
)

type Repository interface {
	CreateEntry(ctx context.Context, e Entry, exec ...core.DBExecutor) (Entry, error)
	GetEntry(ctx context.Context, id string, exec ...core.DBExecutor) (Entry, error)
	// QueryEntries applies AND operation on available QueryFilter fields.
	// Default ordering is entry date then creation time, ascending.
	QueryEntries(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Entry, error)
	DeleteEntry(ctx context.Context, id string, exec ...core.DBExecutor) error
	// Balance returns incomes minus expenses dated strictly before date.
	Balance(ctx context.Context, before core.Date, exec ...core.DBExecutor) (decimal.Decimal, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record adds a manual entry.
func (svc *Service) Record(ctx context.Context, createdBy string, ne NewEntry) (Entry, error) {
	return svc.repo.CreateEntry(ctx, Entry{
		EntryDate:   ne.EntryDate,
		Kind:        CategoryKind(ne.Category),
		Category:    ne.Category,
		Amount:      ne.Amount,
		Description: ne.Description,
		RefType:     RefManual,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now().UTC(),
	})
}

// RecordTx adds a system entry as part of the caller's transaction.
func (svc *Service) RecordTx(ctx context.Context, e Entry, exec core.DBExecutor) (Entry, error) {
	if e.Kind == "" {
		e.Kind = CategoryKind(e.Category)
	}
	if e.Kind == "" {
		return Entry{}, errors.Errorf("unknown ledger category %q", e.Category)
	}
	if !e.Amount.IsPositive() {
		return Entry{}, errors.Errorf("ledger amount must be positive, got %s", e.Amount)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return svc.repo.CreateEntry(ctx, e, exec)
}

// DeleteTx removes a system entry as part of the caller's transaction.
func (svc *Service) DeleteTx(ctx context.Context, id string, exec core.DBExecutor) error {
	return svc.repo.DeleteEntry(ctx, id, exec)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Entry, error) {
	return svc.repo.QueryEntries(ctx, filter, ordering)
}

func (svc *Service) Get(ctx context.Context, id string) (Entry, error) {
	return svc.repo.GetEntry(ctx, id)
}

// Delete removes a manual entry.
func (svc *Service) Delete(ctx context.Context, id string) error {
	e, err := svc.repo.GetEntry(ctx, id)
	if err != nil {
		return err
	}
	if e.RefType != RefManual {
		return ErrNotManual
	}
	return svc.repo.DeleteEntry(ctx, id)
}

// CashBook lists the entries between from and to (inclusive, either may be zero) with a running balance.
// The opening balance covers every entry dated before from.
func (svc *Service) CashBook(ctx context.Context, from, to core.Date) (CashBook, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return CashBook{}, core.NewValidationError(nil, core.FieldError{Field: "to", Error: "must not be before from"})
	}

	book := CashBook{
		From:           from,
		To:             to,
		OpeningBalance: decimal.Zero,
		Lines:          []CashBookLine{},
		TotalIncome:    decimal.Zero,
		TotalExpense:   decimal.Zero,
	}
	if !from.IsZero() {
		opening, err := svc.repo.Balance(ctx, from)
		if err != nil {
			return CashBook{}, errors.Wrap(err, "computing opening balance")
		}
		book.OpeningBalance = opening
	}

	entries, err := svc.repo.QueryEntries(ctx, &QueryFilter{DateFrom: from, DateTo: to}, nil)
	if err != nil {
		return CashBook{}, errors.Wrap(err, "querying entries")
	}

	balance := book.OpeningBalance
	for _, e := range entries {
		balance = balance.Add(e.Signed())
		if e.Kind == KindExpense {
			book.TotalExpense = book.TotalExpense.Add(e.Amount)
		} else {
			book.TotalIncome = book.TotalIncome.Add(e.Amount)
		}
		book.Lines = append(book.Lines, CashBookLine{Entry: e, Balance: balance})
	}
	book.ClosingBalance = balance
	return book, nil
}
