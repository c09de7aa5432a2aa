package inmemdb

import (
	"context"
	"strings"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/receipt"
)

type receiptRepository struct {
	db *DB
}

var _ receipt.Repository = (*receiptRepository)(nil) // interface compliance check

func NewReceiptRepository(db *DB) receipt.Repository {
	return &receiptRepository{db: db}
}

func (repo *receiptRepository) NextSequence(_ context.Context, period string, _ ...core.DBExecutor) (int, error) {
	tbl := repo.db.receiptSeq
	tbl.mutex.Lock()
	defer tbl.mutex.Unlock()
	tbl.rows[period]++
	return tbl.rows[period], nil
}

func (repo *receiptRepository) CreateReceipt(_ context.Context, r receipt.Receipt, _ ...core.DBExecutor) (receipt.Receipt, error) {
	if repo.db.receipt.any(func(o receipt.Receipt) bool { return o.Number == r.Number }) {
		return receipt.Receipt{}, core.NewConflictError("the record already exists")
	}
	r.ID = newID()
	r.Items = append([]receipt.Item{}, r.Items...)
	repo.db.receipt.put(r.ID, r)
	return r, nil
}

func (repo *receiptRepository) GetReceipt(_ context.Context, id string, _ ...core.DBExecutor) (receipt.Receipt, error) {
	if r, ok := repo.db.receipt.get(id); ok {
		return r, nil
	}
	return receipt.Receipt{}, receipt.ErrNotFound
}

func (repo *receiptRepository) GetReceiptByNumber(_ context.Context, number string, _ ...core.DBExecutor) (receipt.Receipt, error) {
	if found := repo.db.receipt.filter(func(r receipt.Receipt) bool { return r.Number == number }); len(found) > 0 {
		return found[0], nil
	}
	return receipt.Receipt{}, receipt.ErrNotFound
}

func (repo *receiptRepository) QueryReceipts(_ context.Context, filter *receipt.QueryFilter, _ ...core.DBExecutor) ([]receipt.Receipt, error) {
	receipts := repo.db.receipt.filter(func(r receipt.Receipt) bool {
		if filter == nil {
			return true
		}
		if !filter.IncludeVoided && r.IsVoided() {
			return false
		}
		if !filter.DateFrom.IsZero() && r.PaidOn.Before(filter.DateFrom) {
			return false
		}
		if !filter.DateTo.IsZero() && r.PaidOn.After(filter.DateTo) {
			return false
		}
		if filter.NumberContains != "" && !containsFold(r.Number, filter.NumberContains) {
			return false
		}
		return (filter.StudentID == "" || r.StudentID == filter.StudentID) &&
			(filter.PackageID == "" || r.PackageID == filter.PackageID)
	})
	sortRows(receipts, nil, nil, func(a, b receipt.Receipt) int {
		if c := cmpDate(a.PaidOn, b.PaidOn); c != 0 {
			return -c
		}
		return -strings.Compare(a.Number, b.Number)
	})
	return receipts, nil
}

func (repo *receiptRepository) UpdateReceipt(_ context.Context, r receipt.Receipt, _ ...core.DBExecutor) (receipt.Receipt, error) {
	orig, ok := repo.db.receipt.get(r.ID)
	if !ok {
		return receipt.Receipt{}, receipt.ErrNotFound
	}
	orig.Notes = r.Notes
	orig.LedgerEntryID = r.LedgerEntryID
	orig.VoidedAt = r.VoidedAt
	orig.VoidReason = r.VoidReason
	repo.db.receipt.put(r.ID, orig)
	return orig, nil
}
