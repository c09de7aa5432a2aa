package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/attendance"
)

const (
	packageColumns = `id, class_id, student_id, original_teacher_id, status, started_on, completed_at, sessions_done,
		created_at, updated_at`
	sessionColumns = `id, package_id, class_id, student_id, teacher_id, original_teacher_id, session_number,
		session_date, status, topic, notes, is_substitute, logged_by, created_at, updated_at`
)

type packageRow struct {
	ID                string    `db:"id"`
	ClassID           string    `db:"class_id"`
	StudentID         string    `db:"student_id"`
	OriginalTeacherID string    `db:"original_teacher_id"`
	Status            string    `db:"status"`
	StartedOn         core.Date `db:"started_on"`
	CompletedAt       null.Time `db:"completed_at"`
	SessionsDone      int       `db:"sessions_done"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

type sessionRow struct {
	ID                string      `db:"id"`
	PackageID         string      `db:"package_id"`
	ClassID           string      `db:"class_id"`
	StudentID         string      `db:"student_id"`
	TeacherID         string      `db:"teacher_id"`
	OriginalTeacherID string      `db:"original_teacher_id"`
	SessionNumber     int         `db:"session_number"`
	SessionDate       core.Date   `db:"session_date"`
	Status            string      `db:"status"`
	Topic             string      `db:"topic"`
	Notes             string      `db:"notes"`
	IsSubstitute      bool        `db:"is_substitute"`
	LoggedBy          null.String `db:"logged_by"`
	CreatedAt         time.Time   `db:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at"`
}

type attendanceRepository struct {
	exec core.DBExecutor
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{exec: db}
}

func (repo attendanceRepository) packageToRow(p attendance.Package) packageRow {
	return packageRow{
		ID:                p.ID,
		ClassID:           p.ClassID,
		StudentID:         p.StudentID,
		OriginalTeacherID: p.OriginalTeacherID,
		Status:            p.Status,
		StartedOn:         p.StartedOn,
		CompletedAt:       nullTime(p.CompletedAt),
		SessionsDone:      p.SessionsDone,
		CreatedAt:         p.CreatedAt.UTC(),
		UpdatedAt:         p.UpdatedAt.UTC(),
	}
}

func (repo attendanceRepository) packageFromRow(r packageRow) attendance.Package {
	return attendance.Package{
		ID:                r.ID,
		ClassID:           r.ClassID,
		StudentID:         r.StudentID,
		OriginalTeacherID: r.OriginalTeacherID,
		Status:            r.Status,
		StartedOn:         r.StartedOn,
		CompletedAt:       r.CompletedAt.Time,
		SessionsDone:      r.SessionsDone,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func (repo attendanceRepository) sessionToRow(s attendance.Session) sessionRow {
	return sessionRow{
		ID:                s.ID,
		PackageID:         s.PackageID,
		ClassID:           s.ClassID,
		StudentID:         s.StudentID,
		TeacherID:         s.TeacherID,
		OriginalTeacherID: s.OriginalTeacherID,
		SessionNumber:     s.SessionNumber,
		SessionDate:       s.SessionDate,
		Status:            s.Status,
		Topic:             s.Topic,
		Notes:             s.Notes,
		IsSubstitute:      s.IsSubstitute,
		LoggedBy:          nullString(s.LoggedBy),
		CreatedAt:         s.CreatedAt.UTC(),
		UpdatedAt:         s.UpdatedAt.UTC(),
	}
}

func (repo attendanceRepository) sessionFromRow(r sessionRow) attendance.Session {
	return attendance.Session{
		ID:                r.ID,
		PackageID:         r.PackageID,
		ClassID:           r.ClassID,
		StudentID:         r.StudentID,
		TeacherID:         r.TeacherID,
		OriginalTeacherID: r.OriginalTeacherID,
		SessionNumber:     r.SessionNumber,
		SessionDate:       r.SessionDate,
		Status:            r.Status,
		Topic:             r.Topic,
		Notes:             r.Notes,
		IsSubstitute:      r.IsSubstitute,
		LoggedBy:          r.LoggedBy.String,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func (repo attendanceRepository) CreatePackage(ctx context.Context, p attendance.Package, exec ...core.DBExecutor) (attendance.Package, error) {
	p.ID = uuid.New().String()
	q := `INSERT INTO session_package (` + packageColumns + `) VALUES (:id, :class_id, :student_id, :original_teacher_id,
		:status, :started_on, :completed_at, :sessions_done, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, getExec(repo.exec, exec), q, repo.packageToRow(p)); err != nil {
		return attendance.Package{}, trapErr(err, nil, "inserting package")
	}
	return p, nil
}

func (repo attendanceRepository) GetPackage(ctx context.Context, id string, exec ...core.DBExecutor) (attendance.Package, error) {
	if _, err := uuid.Parse(id); err != nil {
		return attendance.Package{}, attendance.ErrPackageNotFound
	}
	var r packageRow
	if err := sqlx.GetContext(ctx, getExec(repo.exec, exec), &r, `SELECT `+packageColumns+` FROM session_package WHERE id = $1`, id); err != nil {
		return attendance.Package{}, trapErr(err, attendance.ErrPackageNotFound, "finding package")
	}
	return repo.packageFromRow(r), nil
}

func (repo attendanceRepository) GetOpenPackage(ctx context.Context, classID, studentID string, exec ...core.DBExecutor) (attendance.Package, error) {
	q := `SELECT ` + packageColumns + ` FROM session_package WHERE class_id = $1 AND student_id = $2 AND status = $3`
	exe := getExec(repo.exec, exec)
	if _, inTx := exe.(*sqlx.Tx); inTx {
		q += " FOR UPDATE"
	}
	var r packageRow
	if err := sqlx.GetContext(ctx, exe, &r, q, classID, studentID, attendance.PackageOpen); err != nil {
		return attendance.Package{}, trapErr(err, attendance.ErrPackageNotFound, "finding open package")
	}
	return repo.packageFromRow(r), nil
}

func (repo attendanceRepository) QueryPackages(ctx context.Context, filter attendance.PackageFilter, exec ...core.DBExecutor) ([]attendance.Package, error) {
	w := new(where)
	if filter.ClassID != "" {
		w.add("class_id = ?", filter.ClassID)
	}
	if filter.StudentID != "" {
		w.add("student_id = ?", filter.StudentID)
	}
	if filter.OriginalTeacherID != "" {
		w.add("original_teacher_id = ?", filter.OriginalTeacherID)
	}
	if filter.Status != "" {
		w.add("status = ?", filter.Status)
	}

	var rows []packageRow
	q := selectQuery(packageColumns, "session_package", w, "started_on DESC, created_at DESC")
	if err := sqlx.SelectContext(ctx, getExec(repo.exec, exec), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying packages")
	}
	packages := make([]attendance.Package, 0, len(rows))
	for _, r := range rows {
		packages = append(packages, repo.packageFromRow(r))
	}
	return packages, nil
}

func (repo attendanceRepository) UpdatePackage(ctx context.Context, p attendance.Package, exec ...core.DBExecutor) (attendance.Package, error) {
	q := `UPDATE session_package SET status = :status, started_on = :started_on, completed_at = :completed_at,
		sessions_done = :sessions_done, updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, getExec(repo.exec, exec), q, repo.packageToRow(p))
	if err != nil {
		return attendance.Package{}, trapErr(err, nil, "updating package")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return attendance.Package{}, attendance.ErrPackageNotFound
	}
	return p, nil
}

func (repo attendanceRepository) DeletePackage(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if _, err := getExec(repo.exec, exec).ExecContext(ctx, `DELETE FROM session_package WHERE id = $1`, id); err != nil {
		return trapErr(err, nil, "deleting package")
	}
	return nil
}

func (repo attendanceRepository) CreateSession(ctx context.Context, s attendance.Session, exec ...core.DBExecutor) (attendance.Session, error) {
	s.ID = uuid.New().String()
	q := `INSERT INTO attendance_session (` + sessionColumns + `) VALUES (:id, :package_id, :class_id, :student_id,
		:teacher_id, :original_teacher_id, :session_number, :session_date, :status, :topic, :notes, :is_substitute,
		:logged_by, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, getExec(repo.exec, exec), q, repo.sessionToRow(s)); err != nil {
		return attendance.Session{}, trapErr(err, nil, "inserting session")
	}
	return s, nil
}

func (repo attendanceRepository) GetSession(ctx context.Context, id string, exec ...core.DBExecutor) (attendance.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return attendance.Session{}, attendance.ErrSessionNotFound
	}
	var r sessionRow
	if err := sqlx.GetContext(ctx, getExec(repo.exec, exec), &r, `SELECT `+sessionColumns+` FROM attendance_session WHERE id = $1`, id); err != nil {
		return attendance.Session{}, trapErr(err, attendance.ErrSessionNotFound, "finding session")
	}
	return repo.sessionFromRow(r), nil
}

func (repo attendanceRepository) QuerySessions(ctx context.Context, filter attendance.SessionFilter, exec ...core.DBExecutor) ([]attendance.Session, error) {
	w := new(where)
	if filter.ClassID != "" {
		w.add("class_id = ?", filter.ClassID)
	}
	if filter.StudentID != "" {
		w.add("student_id = ?", filter.StudentID)
	}
	if filter.TeacherID != "" {
		w.add("teacher_id = ?", filter.TeacherID)
	}
	if filter.PackageID != "" {
		w.add("package_id = ?", filter.PackageID)
	}
	if filter.VisibleTo != "" {
		w.add("(teacher_id = ? OR original_teacher_id = ?)", filter.VisibleTo, filter.VisibleTo)
	}
	if !filter.DateFrom.IsZero() {
		w.add("session_date >= ?", filter.DateFrom)
	}
	if !filter.DateTo.IsZero() {
		w.add("session_date <= ?", filter.DateTo)
	}

	var rows []sessionRow
	q := selectQuery(sessionColumns, "attendance_session", w, "session_date ASC, session_number ASC")
	if err := sqlx.SelectContext(ctx, getExec(repo.exec, exec), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	sessions := make([]attendance.Session, 0, len(rows))
	for _, r := range rows {
		sessions = append(sessions, repo.sessionFromRow(r))
	}
	return sessions, nil
}

func (repo attendanceRepository) UpdateSession(ctx context.Context, s attendance.Session, exec ...core.DBExecutor) (attendance.Session, error) {
	q := `UPDATE attendance_session SET session_number = :session_number, session_date = :session_date,
		status = :status, topic = :topic, notes = :notes, updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, getExec(repo.exec, exec), q, repo.sessionToRow(s))
	if err != nil {
		return attendance.Session{}, trapErr(err, nil, "updating session")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return attendance.Session{}, attendance.ErrSessionNotFound
	}
	return s, nil
}

func (repo attendanceRepository) DeleteSession(ctx context.Context, id string, exec ...core.DBExecutor) error {
	res, err := getExec(repo.exec, exec).ExecContext(ctx, `DELETE FROM attendance_session WHERE id = $1`, id)
	if err != nil {
		return trapErr(err, nil, "deleting session")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return attendance.ErrSessionNotFound
	}
	return nil
}

func (repo attendanceRepository) SessionExistsOn(ctx context.Context, classID, studentID string, date core.Date, excludedID string, exec ...core.DBExecutor) (bool, error) {
	w := new(where)
	w.add("class_id = ? AND student_id = ? AND session_date = ?", classID, studentID, date)
	if excludedID != "" {
		w.add("id <> ?", excludedID)
	}
	var exists bool
	q := sqlx.Rebind(sqlx.DOLLAR, "SELECT EXISTS (SELECT 1 FROM attendance_session"+w.String()+")")
	if err := sqlx.GetContext(ctx, getExec(repo.exec, exec), &exists, q, w.args...); err != nil {
		return false, errors.Wrap(err, "checking session date")
	}
	return exists, nil
}
