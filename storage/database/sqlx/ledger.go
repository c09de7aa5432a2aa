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
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/ledger"
)

const ledgerColumns = `id, entry_date, kind, category, amount, description, ref_type, ref_id, created_by, created_at`

var ledgerOrderings = map[string]string{
	"entry_date": "entry_date",
	"amount":     "amount",
	"category":   "category",
	"created_at": "created_at",
}

type ledgerRow struct {
	ID          string          `db:"id"`
	EntryDate   core.Date       `db:"entry_date"`
	Kind        string          `db:"kind"`
	Category    string          `db:"category"`
	Amount      decimal.Decimal `db:"amount"`
	Description string          `db:"description"`
	RefType     string          `db:"ref_type"`
	RefID       string          `db:"ref_id"`
	CreatedBy   null.String     `db:"created_by"`
	CreatedAt   time.Time       `db:"created_at"`
}

type ledgerRepository struct {
	exec core.DBExecutor
}

var _ ledger.Repository = (*ledgerRepository)(nil) // interface compliance check

func NewLedgerRepository(db *sqlx.DB) ledger.Repository {
	return &ledgerRepository{exec: db}
}

func (repo ledgerRepository) fromRow(r ledgerRow) ledger.Entry {
	return ledger.Entry{
		ID:          r.ID,
		EntryDate:   r.EntryDate,
		Kind:        r.Kind,
		Category:    r.Category,
		Amount:      r.Amount,
		Description: r.Description,
		RefType:     r.RefType,
		RefID:       r.RefID,
		CreatedBy:   r.CreatedBy.String,
		CreatedAt:   r.CreatedAt,
	}
}

func (repo ledgerRepository) CreateEntry(ctx context.Context, e ledger.Entry, exec ...core.DBExecutor) (ledger.Entry, error) {
	e.ID = uuid.New().String()
	_, err := getExec(repo.exec, exec).ExecContext(ctx,
		`INSERT INTO ledger_entry (`+ledgerColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.EntryDate, e.Kind, e.Category, e.Amount, e.Description, e.RefType, e.RefID, nullString(e.CreatedBy), e.CreatedAt.UTC(),
	)
	if err != nil {
		return ledger.Entry{}, trapErr(err, nil, "inserting ledger entry")
	}
	return e, nil
}

func (repo ledgerRepository) GetEntry(ctx context.Context, id string, exec ...core.DBExecutor) (ledger.Entry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return ledger.Entry{}, ledger.ErrNotFound
	}
	var r ledgerRow
	if err := sqlx.GetContext(ctx, getExec(repo.exec, exec), &r, `SELECT `+ledgerColumns+` FROM ledger_entry WHERE id = $1`, id); err != nil {
		return ledger.Entry{}, trapErr(err, ledger.ErrNotFound, "finding ledger entry")
	}
	return repo.fromRow(r), nil
}

func (repo ledgerRepository) QueryEntries(ctx context.Context, filter *ledger.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]ledger.Entry, error) {
	w := new(where)
	if filter != nil {
		if !filter.DateFrom.IsZero() {
			w.add("entry_date >= ?", filter.DateFrom)
		}
		if !filter.DateTo.IsZero() {
			w.add("entry_date <= ?", filter.DateTo)
		}
		if filter.Kind != "" {
			w.add("kind = ?", filter.Kind)
		}
		if filter.Category != "" {
			w.add("category = ?", filter.Category)
		}
		if filter.RefType != "" {
			w.add("ref_type = ?", filter.RefType)
		}
		if filter.Search != "" {
			w.add("description ILIKE ?", likePattern(filter.Search))
		}
	}

	var rows []ledgerRow
	q := selectQuery(ledgerColumns, "ledger_entry", w, core.OrderBy(ordering, ledgerOrderings, "entry_date ASC, created_at ASC"))
	if err := sqlx.SelectContext(ctx, getExec(repo.exec, exec), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying ledger entries")
	}
	entries := make([]ledger.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, repo.fromRow(r))
	}
	return entries, nil
}

func (repo ledgerRepository) DeleteEntry(ctx context.Context, id string, exec ...core.DBExecutor) error {
	res, err := getExec(repo.exec, exec).ExecContext(ctx, `DELETE FROM ledger_entry WHERE id = $1`, id)
	if err != nil {
		return trapErr(err, nil, "deleting ledger entry")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func (repo ledgerRepository) Balance(ctx context.Context, before core.Date, exec ...core.DBExecutor) (decimal.Decimal, error) {
	var balance decimal.Decimal
	q := `SELECT COALESCE(SUM(CASE WHEN kind = 'expense' THEN -amount ELSE amount END), 0) FROM ledger_entry WHERE entry_date < $1`
	if err := sqlx.GetContext(ctx, getExec(repo.exec, exec), &balance, q, before); err != nil {
		return decimal.Zero, errors.Wrap(err, "computing balance")
	}
	return balance, nil
}
