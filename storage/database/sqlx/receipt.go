package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/receipt"
)

const receiptColumns = `id, number, student_id, student_name, package_id, items, total, method, paid_on, received_by,
	notes, ledger_entry_id, voided_at, void_reason, created_at`

type receiptRow struct {
	ID            string          `db:"id"`
	Number        string          `db:"number"`
	StudentID     string          `db:"student_id"`
	StudentName   string          `db:"student_name"`
	PackageID     null.String     `db:"package_id"`
	Items         null.JSON       `db:"items"`
	Total         decimal.Decimal `db:"total"`
	Method        string          `db:"method"`
	PaidOn        core.Date       `db:"paid_on"`
	ReceivedBy    null.String     `db:"received_by"`
	Notes         string          `db:"notes"`
	LedgerEntryID null.String     `db:"ledger_entry_id"`
	VoidedAt      null.Time       `db:"voided_at"`
	VoidReason    string          `db:"void_reason"`
	CreatedAt     time.Time       `db:"created_at"`
}

type receiptRepository struct {
	exec core.DBExecutor
}

var _ receipt.Repository = (*receiptRepository)(nil) // interface compliance check

func NewReceiptRepository(db *sqlx.DB) receipt.Repository {
	return &receiptRepository{exec: db}
}

func (repo receiptRepository) toRow(r receipt.Receipt) (receiptRow, error) {
	items := r.Items
	if items == nil {
		items = []receipt.Item{}
	}
	row := receiptRow{
		ID:            r.ID,
		Number:        r.Number,
		StudentID:     r.StudentID,
		StudentName:   r.StudentName,
		PackageID:     nullString(r.PackageID),
		Total:         r.Total,
		Method:        r.Method,
		PaidOn:        r.PaidOn,
		ReceivedBy:    nullString(r.ReceivedBy),
		Notes:         r.Notes,
		LedgerEntryID: nullString(r.LedgerEntryID),
		VoidedAt:      nullTime(r.VoidedAt),
		VoidReason:    r.VoidReason,
		CreatedAt:     r.CreatedAt.UTC(),
	}
	if err := row.Items.Marshal(items); err != nil {
		return receiptRow{}, errors.Wrap(err, "encoding receipt items")
	}
	return row, nil
}

func (repo receiptRepository) fromRow(r receiptRow) (receipt.Receipt, error) {
	rct := receipt.Receipt{
		ID:            r.ID,
		Number:        r.Number,
		StudentID:     r.StudentID,
		StudentName:   r.StudentName,
		PackageID:     r.PackageID.String,
		Items:         []receipt.Item{},
		Total:         r.Total,
		Method:        r.Method,
		PaidOn:        r.PaidOn,
		ReceivedBy:    r.ReceivedBy.String,
		Notes:         r.Notes,
		LedgerEntryID: r.LedgerEntryID.String,
		VoidedAt:      r.VoidedAt.Time,
		VoidReason:    r.VoidReason,
		CreatedAt:     r.CreatedAt,
	}
	if r.Items.Valid {
		if err := r.Items.Unmarshal(&rct.Items); err != nil {
			return receipt.Receipt{}, errors.Wrap(err, "decoding receipt items")
		}
	}
	return rct, nil
}

func (repo receiptRepository) NextSequence(ctx context.Context, period string, exec ...core.DBExecutor) (int, error) {
	var seq int
	q := `INSERT INTO receipt_sequence (period, last_seq) VALUES ($1, 1)
		ON CONFLICT (period) DO UPDATE SET last_seq = receipt_sequence.last_seq + 1
		RETURNING last_seq`
	if err := sqlx.GetContext(ctx, getExec(repo.exec, exec), &seq, q, period); err != nil {
		return 0, errors.Wrap(err, "incrementing receipt sequence")
	}
	return seq, nil
}

func (repo receiptRepository) CreateReceipt(ctx context.Context, r receipt.Receipt, exec ...core.DBExecutor) (receipt.Receipt, error) {
	r.ID = uuid.New().String()
	row, err := repo.toRow(r)
	if err != nil {
		return receipt.Receipt{}, err
	}
	q := `INSERT INTO receipt (` + receiptColumns + `) VALUES (:id, :number, :student_id, :student_name, :package_id,
		:items, :total, :method, :paid_on, :received_by, :notes, :ledger_entry_id, :voided_at, :void_reason, :created_at)`
	if _, err = sqlx.NamedExecContext(ctx, getExec(repo.exec, exec), q, row); err != nil {
		return receipt.Receipt{}, trapErr(err, nil, "inserting receipt")
	}
	return r, nil
}

func (repo receiptRepository) getBy(ctx context.Context, col, val string, exec []core.DBExecutor) (receipt.Receipt, error) {
	var r receiptRow
	if err := sqlx.GetContext(ctx, getExec(repo.exec, exec), &r, `SELECT `+receiptColumns+` FROM receipt WHERE `+col+` = $1`, val); err != nil {
		return receipt.Receipt{}, trapErr(err, receipt.ErrNotFound, "finding receipt")
	}
	return repo.fromRow(r)
}

func (repo receiptRepository) GetReceipt(ctx context.Context, id string, exec ...core.DBExecutor) (receipt.Receipt, error) {
	if _, err := uuid.Parse(id); err != nil {
		return receipt.Receipt{}, receipt.ErrNotFound
	}
	return repo.getBy(ctx, "id", id, exec)
}

func (repo receiptRepository) GetReceiptByNumber(ctx context.Context, number string, exec ...core.DBExecutor) (receipt.Receipt, error) {
	return repo.getBy(ctx, "number", number, exec)
}

func (repo receiptRepository) QueryReceipts(ctx context.Context, filter *receipt.QueryFilter, exec ...core.DBExecutor) ([]receipt.Receipt, error) {
	w := new(where)
	if filter != nil {
		if filter.StudentID != "" {
			w.add("student_id = ?", filter.StudentID)
		}
		if filter.PackageID != "" {
			w.add("package_id = ?", filter.PackageID)
		}
		if !filter.DateFrom.IsZero() {
			w.add("paid_on >= ?", filter.DateFrom)
		}
		if !filter.DateTo.IsZero() {
			w.add("paid_on <= ?", filter.DateTo)
		}
		if !filter.IncludeVoided {
			w.add("voided_at IS NULL")
		}
		if filter.NumberContains != "" {
			w.add("number ILIKE ?", likePattern(filter.NumberContains))
		}
	}

	var rows []receiptRow
	if err := sqlx.SelectContext(ctx, getExec(repo.exec, exec), &rows, selectQuery(receiptColumns, "receipt", w, "paid_on DESC, number DESC"), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying receipts")
	}
	receipts := make([]receipt.Receipt, 0, len(rows))
	for _, r := range rows {
		rct, err := repo.fromRow(r)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, rct)
	}
	return receipts, nil
}

func (repo receiptRepository) UpdateReceipt(ctx context.Context, r receipt.Receipt, exec ...core.DBExecutor) (receipt.Receipt, error) {
	res, err := getExec(repo.exec, exec).ExecContext(ctx,
		`UPDATE receipt SET notes = $2, ledger_entry_id = $3, voided_at = $4, void_reason = $5 WHERE id = $1`,
		r.ID, r.Notes, nullString(r.LedgerEntryID), nullTime(r.VoidedAt), r.VoidReason,
	)
	if err != nil {
		return receipt.Receipt{}, trapErr(err, nil, "updating receipt")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return receipt.Receipt{}, receipt.ErrNotFound
	}
	return r, nil
}
