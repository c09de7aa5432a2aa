package inmemdb

import (
	"context"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/payroll"
)

type payrollRepository struct {
	db *DB
}

var _ payroll.Repository = (*payrollRepository)(nil) // interface compliance check

func NewPayrollRepository(db *DB) payroll.Repository {
	return &payrollRepository{db: db}
}

func (repo *payrollRepository) CreateEntry(_ context.Context, e payroll.Entry, _ ...core.DBExecutor) (payroll.Entry, error) {
	e.ID = newID()
	repo.db.payroll.put(e.ID, e)
	return e, nil
}

func (repo *payrollRepository) GetEntry(_ context.Context, id string, _ ...core.DBExecutor) (payroll.Entry, error) {
	if e, ok := repo.db.payroll.get(id); ok {
		return e, nil
	}
	return payroll.Entry{}, payroll.ErrNotFound
}

func (repo *payrollRepository) QueryEntries(_ context.Context, filter *payroll.QueryFilter, _ ...core.DBExecutor) ([]payroll.Entry, error) {
	entries := repo.db.payroll.filter(func(e payroll.Entry) bool {
		if filter == nil {
			return true
		}
		if len(filter.Statuses) > 0 && !core.StringInSlice(e.Status, filter.Statuses) {
			return false
		}
		return (filter.TeacherID == "" || e.TeacherID == filter.TeacherID) &&
			(filter.PackageID == "" || e.PackageID == filter.PackageID) &&
			(filter.Period == "" || e.Period == filter.Period)
	})
	sortRows(entries, nil, nil, func(a, b payroll.Entry) int { return -cmpTime(a.CreatedAt, b.CreatedAt) })
	return entries, nil
}

func (repo *payrollRepository) UpdateEntry(_ context.Context, e payroll.Entry, prevStatus string, _ ...core.DBExecutor) (payroll.Entry, error) {
	found, swapped := repo.db.payroll.replaceIf(e.ID, e, func(cur payroll.Entry) bool { return cur.Status == prevStatus })
	switch {
	case !found:
		return payroll.Entry{}, payroll.ErrNotFound
	case !swapped:
		return payroll.Entry{}, payroll.ErrStatusChanged
	}
	return e, nil
}
