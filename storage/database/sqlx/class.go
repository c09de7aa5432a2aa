package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/class"
)

const classColumns = `c.id, c.name, c.subject, c.level, c.teacher_id, c.package_fee, c.teacher_fee, c.schedule,
	c.is_active, c.created_at, c.updated_at,
	COALESCE((SELECT array_agg(CAST(cs.student_id AS TEXT) ORDER BY cs.student_id) FROM class_student cs
		WHERE cs.class_id = c.id), '{}') AS student_ids`

type classRow struct {
	ID         string          `db:"id"`
	Name       string          `db:"name"`
	Subject    string          `db:"subject"`
	Level      string          `db:"level"`
	TeacherID  string          `db:"teacher_id"`
	StudentIDs pq.StringArray  `db:"student_ids"`
	PackageFee decimal.Decimal `db:"package_fee"`
	TeacherFee decimal.Decimal `db:"teacher_fee"`
	Schedule   string          `db:"schedule"`
	IsActive   bool            `db:"is_active"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

type classRepository struct {
	exec core.DBExecutor
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *sqlx.DB) class.Repository {
	return &classRepository{exec: db}
}

func (repo classRepository) fromRow(r classRow) class.Class {
	return class.Class{
		ID:         r.ID,
		Name:       r.Name,
		Subject:    r.Subject,
		Level:      r.Level,
		TeacherID:  r.TeacherID,
		StudentIDs: []string(r.StudentIDs),
		PackageFee: r.PackageFee,
		TeacherFee: r.TeacherFee,
		Schedule:   r.Schedule,
		IsActive:   r.IsActive,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// setStudents replaces the enrolment of a class.
func (repo classRepository) setStudents(ctx context.Context, exe core.DBExecutor, c class.Class) error {
	if _, err := exe.ExecContext(ctx, `DELETE FROM class_student WHERE class_id = $1 AND NOT (student_id = ANY(CAST($2 AS UUID[])))`, c.ID, pq.Array(c.StudentIDs)); err != nil {
		return trapErr(err, nil, "unenrolling students")
	}
	if len(c.StudentIDs) == 0 {
		return nil
	}
	_, err := exe.ExecContext(ctx,
		`INSERT INTO class_student (class_id, student_id) SELECT $1, UNNEST(CAST($2 AS UUID[])) ON CONFLICT DO NOTHING`,
		c.ID, pq.Array(c.StudentIDs),
	)
	return trapErr(err, nil, "enrolling students")
}

func (repo classRepository) CreateClass(ctx context.Context, c class.Class, exec ...core.DBExecutor) (class.Class, error) {
	c.ID = uuid.New().String()
	exe := getExec(repo.exec, exec)
	_, err := exe.ExecContext(ctx,
		`INSERT INTO class (id, name, subject, level, teacher_id, package_fee, teacher_fee, schedule, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, c.Name, c.Subject, c.Level, c.TeacherID, c.PackageFee, c.TeacherFee, c.Schedule, c.IsActive,
		c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	)
	if err != nil {
		return class.Class{}, trapErr(err, nil, "inserting class")
	}
	if err = repo.setStudents(ctx, exe, c); err != nil {
		return class.Class{}, err
	}
	return c, nil
}

func (repo classRepository) GetClass(ctx context.Context, id string, exec ...core.DBExecutor) (class.Class, error) {
	if _, err := uuid.Parse(id); err != nil {
		return class.Class{}, class.ErrNotFound
	}
	var r classRow
	if err := sqlx.GetContext(ctx, getExec(repo.exec, exec), &r, `SELECT `+classColumns+` FROM class c WHERE c.id = $1`, id); err != nil {
		return class.Class{}, trapErr(err, class.ErrNotFound, "finding class")
	}
	return repo.fromRow(r), nil
}

func (repo classRepository) QueryClasses(ctx context.Context, filter *class.QueryFilter, exec ...core.DBExecutor) ([]class.Class, error) {
	w := new(where)
	if filter != nil {
		if filter.Search != "" {
			val := likePattern(filter.Search)
			w.add("(c.name ILIKE ? OR c.subject ILIKE ?)", val, val)
		}
		if filter.TeacherID != "" {
			w.add("c.teacher_id = ?", filter.TeacherID)
		}
		if filter.StudentID != "" {
			w.add("EXISTS (SELECT 1 FROM class_student cs WHERE cs.class_id = c.id AND cs.student_id = ?)", filter.StudentID)
		}
		if filter.IsActive != nil {
			w.add("c.is_active = ?", *filter.IsActive)
		}
	}

	var rows []classRow
	if err := sqlx.SelectContext(ctx, getExec(repo.exec, exec), &rows, selectQuery(classColumns, "class c", w, "c.name ASC"), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	classes := make([]class.Class, 0, len(rows))
	for _, r := range rows {
		classes = append(classes, repo.fromRow(r))
	}
	return classes, nil
}

func (repo classRepository) UpdateClass(ctx context.Context, c class.Class, exec ...core.DBExecutor) (class.Class, error) {
	exe := getExec(repo.exec, exec)
	res, err := exe.ExecContext(ctx,
		`UPDATE class SET name = $2, subject = $3, level = $4, teacher_id = $5, package_fee = $6, teacher_fee = $7,
		schedule = $8, is_active = $9, updated_at = $10 WHERE id = $1`,
		c.ID, c.Name, c.Subject, c.Level, c.TeacherID, c.PackageFee, c.TeacherFee, c.Schedule, c.IsActive, c.UpdatedAt.UTC(),
	)
	if err != nil {
		return class.Class{}, trapErr(err, nil, "updating class")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return class.Class{}, class.ErrNotFound
	}
	if err = repo.setStudents(ctx, exe, c); err != nil {
		return class.Class{}, err
	}
	return c, nil
}

func (repo classRepository) DeleteClass(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if _, err := uuid.Parse(id); err != nil {
		return class.ErrNotFound
	}
	res, err := getExec(repo.exec, exec).ExecContext(ctx, `DELETE FROM class WHERE id = $1`, id)
	if err != nil {
		if core.IsConflict(trapErr(err, nil, "")) {
			return class.ErrHasHistory
		}
		return errors.Wrap(err, "deleting class")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return class.ErrNotFound
	}
	return nil
}
