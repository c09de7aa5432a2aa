package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
)

// postgres error codes
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type transactor struct {
	db *sqlx.DB
}

var _ core.Transactor = (*transactor)(nil) // interface compliance check

func NewTransactor(db *sqlx.DB) core.Transactor {
	return &transactor{db: db}
}

func (t *transactor) WithinTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back (%v)", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func getExec(defaultExec core.DBExecutor, svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return defaultExec
}

// trapErr maps "no rows" to notFound and constraint violations to conflicts.
func trapErr(err error, notFound error, msg string) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows && notFound != nil {
		return notFound
	}
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		switch pqErr.Code {
		case uniqueViolation:
			return core.NewConflictError(conflictMessage(pqErr))
		case foreignKeyViolation:
			return core.NewConflictError("the record is referenced by or references missing data")
		}
	}
	return errors.Wrap(err, msg)
}

func conflictMessage(pqErr *pq.Error) string {
	switch pqErr.Constraint {
	case "session_package_open_idx":
		return "another package is already open for this class and student"
	case "attendance_session_date_key":
		return "a session is already logged for this student on this date"
	case "student_user_id_key":
		return "this user account is already linked to another student"
	}
	return "the record already exists"
}

// where accumulates AND-ed conditions written with "?" placeholders.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// selectQuery renders "SELECT cols FROM table WHERE ... ORDER BY ..." with postgres placeholders.
func selectQuery(cols, table string, w *where, orderBy string) string {
	q := fmt.Sprintf("SELECT %s FROM %s%s", cols, table, w.String())
	if orderBy != "" {
		q += " ORDER BY " + orderBy
	}
	return sqlx.Rebind(sqlx.DOLLAR, q)
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

func nullTime(t time.Time) null.Time {
	return null.NewTime(t.UTC(), !t.IsZero())
}
