package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/payroll"
)

const payrollColumns = `id, teacher_id, package_id, class_id, student_id, sessions, rate, amount, status, period, notes,
	approved_at, approved_by, paid_on, paid_by, ledger_entry_id, created_at, updated_at`

type payrollRow struct {
	ID            string          `db:"id"`
	TeacherID     string          `db:"teacher_id"`
	PackageID     string          `db:"package_id"`
	ClassID       string          `db:"class_id"`
	StudentID     string          `db:"student_id"`
	Sessions      int             `db:"sessions"`
	Rate          decimal.Decimal `db:"rate"`
	Amount        decimal.Decimal `db:"amount"`
	Status        string          `db:"status"`
	Period        string          `db:"period"`
	Notes         string          `db:"notes"`
	ApprovedAt    null.Time       `db:"approved_at"`
	ApprovedBy    null.String     `db:"approved_by"`
	PaidOn        core.Date       `db:"paid_on"`
	PaidBy        null.String     `db:"paid_by"`
	LedgerEntryID null.String     `db:"ledger_entry_id"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

type payrollRepository struct {
	exec core.DBExecutor
}

var _ payroll.Repository = (*payrollRepository)(nil) // interface compliance check

func NewPayrollRepository(db *sqlx.DB) payroll.Repository {
	return &payrollRepository{exec: db}
}

func (repo payrollRepository) toRow(e payroll.Entry) payrollRow {
	return payrollRow{
		ID:            e.ID,
		TeacherID:     e.TeacherID,
		PackageID:     e.PackageID,
		ClassID:       e.ClassID,
		StudentID:     e.StudentID,
		Sessions:      e.Sessions,
		Rate:          e.Rate,
		Amount:        e.Amount,
		Status:        e.Status,
		Period:        e.Period,
		Notes:         e.Notes,
		ApprovedAt:    nullTime(e.ApprovedAt),
		ApprovedBy:    nullString(e.ApprovedBy),
		PaidOn:        e.PaidOn,
		PaidBy:        nullString(e.PaidBy),
		LedgerEntryID: nullString(e.LedgerEntryID),
		CreatedAt:     e.CreatedAt.UTC(),
		UpdatedAt:     e.UpdatedAt.UTC(),
	}
}

func (repo payrollRepository) fromRow(r payrollRow) payroll.Entry {
	return payroll.Entry{
		ID:            r.ID,
		TeacherID:     r.TeacherID,
		PackageID:     r.PackageID,
		ClassID:       r.ClassID,
		StudentID:     r.StudentID,
		Sessions:      r.Sessions,
		Rate:          r.Rate,
		Amount:        r.Amount,
		Status:        r.Status,
		Period:        r.Period,
		Notes:         r.Notes,
		ApprovedAt:    r.ApprovedAt.Time,
		ApprovedBy:    r.ApprovedBy.String,
		PaidOn:        r.PaidOn,
		PaidBy:        r.PaidBy.String,
		LedgerEntryID: r.LedgerEntryID.String,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func (repo payrollRepository) CreateEntry(ctx context.Context, e payroll.Entry, exec ...core.DBExecutor) (payroll.Entry, error) {
	e.ID = uuid.New().String()
	q := `INSERT INTO payroll_entry (` + payrollColumns + `) VALUES (:id, :teacher_id, :package_id, :class_id, :student_id,
		:sessions, :rate, :amount, :status, :period, :notes, :approved_at, :approved_by, :paid_on, :paid_by,
		:ledger_entry_id, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, getExec(repo.exec, exec), q, repo.toRow(e)); err != nil {
		return payroll.Entry{}, trapErr(err, nil, "inserting payroll entry")
	}
	return e, nil
}

func (repo payrollRepository) GetEntry(ctx context.Context, id string, exec ...core.DBExecutor) (payroll.Entry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return payroll.Entry{}, payroll.ErrNotFound
	}
	q := `SELECT ` + payrollColumns + ` FROM payroll_entry WHERE id = $1`
	exe := getExec(repo.exec, exec)
	if _, inTx := exe.(*sqlx.Tx); inTx {
		q += " FOR UPDATE"
	}
	var r payrollRow
	if err := sqlx.GetContext(ctx, exe, &r, q, id); err != nil {
		return payroll.Entry{}, trapErr(err, payroll.ErrNotFound, "finding payroll entry")
	}
	return repo.fromRow(r), nil
}

func (repo payrollRepository) QueryEntries(ctx context.Context, filter *payroll.QueryFilter, exec ...core.DBExecutor) ([]payroll.Entry, error) {
	w := new(where)
	if filter != nil {
		if filter.TeacherID != "" {
			w.add("teacher_id = ?", filter.TeacherID)
		}
		if filter.PackageID != "" {
			w.add("package_id = ?", filter.PackageID)
		}
		if len(filter.Statuses) > 0 {
			w.add("status = ANY(?)", pq.Array(filter.Statuses))
		}
		if filter.Period != "" {
			w.add("period = ?", filter.Period)
		}
	}

	q := selectQuery(payrollColumns, "payroll_entry", w, "created_at DESC")
	exe := getExec(repo.exec, exec)
	if _, inTx := exe.(*sqlx.Tx); inTx {
		q += " FOR UPDATE"
	}
	var rows []payrollRow
	if err := sqlx.SelectContext(ctx, exe, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying payroll entries")
	}
	entries := make([]payroll.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, repo.fromRow(r))
	}
	return entries, nil
}

func (repo payrollRepository) UpdateEntry(ctx context.Context, e payroll.Entry, prevStatus string, exec ...core.DBExecutor) (payroll.Entry, error) {
	q := `UPDATE payroll_entry SET status = :status, notes = :notes, approved_at = :approved_at, approved_by = :approved_by,
		paid_on = :paid_on, paid_by = :paid_by, ledger_entry_id = :ledger_entry_id, updated_at = :updated_at
		WHERE id = :id AND status = :prev_status`
	arg := struct {
		payrollRow
		PrevStatus string `db:"prev_status"`
	}{payrollRow: repo.toRow(e), PrevStatus: prevStatus}

	exe := getExec(repo.exec, exec)
	res, err := sqlx.NamedExecContext(ctx, exe, q, arg)
	if err != nil {
		return payroll.Entry{}, trapErr(err, nil, "updating payroll entry")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err := sqlx.GetContext(ctx, exe, &exists, `SELECT EXISTS (SELECT 1 FROM payroll_entry WHERE id = $1)`, e.ID); err != nil {
			return payroll.Entry{}, errors.Wrap(err, "checking payroll entry")
		}
		if exists {
			return payroll.Entry{}, payroll.ErrStatusChanged
		}
		return payroll.Entry{}, payroll.ErrNotFound
	}
	return e, nil
}
