package inmemdb

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/ledger"
)

var ledgerOrderings = map[string]comparator[ledger.Entry]{
	"entry_date": func(a, b ledger.Entry) int { return cmpDate(a.EntryDate, b.EntryDate) },
	"amount":     func(a, b ledger.Entry) int { return a.Amount.Cmp(b.Amount) },
	"category":   func(a, b ledger.Entry) int { return strings.Compare(a.Category, b.Category) },
	"created_at": func(a, b ledger.Entry) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
}

type ledgerRepository struct {
	db *DB
}

var _ ledger.Repository = (*ledgerRepository)(nil) // interface compliance check

func NewLedgerRepository(db *DB) ledger.Repository {
	return &ledgerRepository{db: db}
}

func (repo *ledgerRepository) CreateEntry(_ context.Context, e ledger.Entry, _ ...core.DBExecutor) (ledger.Entry, error) {
	e.ID = newID()
	repo.db.ledger.put(e.ID, e)
	return e, nil
}

func (repo *ledgerRepository) GetEntry(_ context.Context, id string, _ ...core.DBExecutor) (ledger.Entry, error) {
	if e, ok := repo.db.ledger.get(id); ok {
		return e, nil
	}
	return ledger.Entry{}, ledger.ErrNotFound
}

func (repo *ledgerRepository) QueryEntries(_ context.Context, filter *ledger.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]ledger.Entry, error) {
	entries := repo.db.ledger.filter(func(e ledger.Entry) bool {
		if filter == nil {
			return true
		}
		if !filter.DateFrom.IsZero() && e.EntryDate.Before(filter.DateFrom) {
			return false
		}
		if !filter.DateTo.IsZero() && e.EntryDate.After(filter.DateTo) {
			return false
		}
		if filter.Search != "" && !containsFold(e.Description, filter.Search) {
			return false
		}
		return (filter.Kind == "" || e.Kind == filter.Kind) &&
			(filter.Category == "" || e.Category == filter.Category) &&
			(filter.RefType == "" || e.RefType == filter.RefType)
	})
	sortRows(entries, ordering, ledgerOrderings, func(a, b ledger.Entry) int {
		if c := cmpDate(a.EntryDate, b.EntryDate); c != 0 {
			return c
		}
		return cmpTime(a.CreatedAt, b.CreatedAt)
	})
	return entries, nil
}

func (repo *ledgerRepository) DeleteEntry(_ context.Context, id string, _ ...core.DBExecutor) error {
	if !repo.db.ledger.delete(id) {
		return ledger.ErrNotFound
	}
	return nil
}

func (repo *ledgerRepository) Balance(_ context.Context, before core.Date, _ ...core.DBExecutor) (decimal.Decimal, error) {
	balance := decimal.Zero
	for _, e := range repo.db.ledger.filter(func(e ledger.Entry) bool { return e.EntryDate.Before(before) }) {
		balance = balance.Add(e.Signed())
	}
	return balance, nil
}
