package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/student"
)

const (
	studentColumns = `id, user_id, name, nickname, birth_date, school, grade, program, guardian_name, guardian_phone,
		guardian_email, address, status, source, joined_on, notes, created_at, updated_at`
	noteColumns = `id, student_id, author_id, kind, body, follow_up_on, resolved_at, created_at`
)

var studentOrderings = map[string]string{
	"name":       "name",
	"status":     "status",
	"program":    "program",
	"joined_on":  "joined_on",
	"created_at": "created_at",
}

type studentRow struct {
	ID            string      `db:"id"`
	UserID        null.String `db:"user_id"`
	Name          string      `db:"name"`
	Nickname      string      `db:"nickname"`
	BirthDate     core.Date   `db:"birth_date"`
	School        string      `db:"school"`
	Grade         string      `db:"grade"`
	Program       string      `db:"program"`
	GuardianName  string      `db:"guardian_name"`
	GuardianPhone string      `db:"guardian_phone"`
	GuardianEmail string      `db:"guardian_email"`
	Address       string      `db:"address"`
	Status        string      `db:"status"`
	Source        string      `db:"source"`
	JoinedOn      core.Date   `db:"joined_on"`
	Notes         string      `db:"notes"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

type noteRow struct {
	ID         string      `db:"id"`
	StudentID  string      `db:"student_id"`
	AuthorID   null.String `db:"author_id"`
	Kind       string      `db:"kind"`
	Body       string      `db:"body"`
	FollowUpOn core.Date   `db:"follow_up_on"`
	ResolvedAt null.Time   `db:"resolved_at"`
	CreatedAt  time.Time   `db:"created_at"`
}

type studentRepository struct {
	exec core.DBExecutor
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{exec: db}
}

func (repo studentRepository) toRow(s student.Student) studentRow {
	return studentRow{
		ID:            s.ID,
		UserID:        nullString(s.UserID),
		Name:          s.Name,
		Nickname:      s.Nickname,
		BirthDate:     s.BirthDate,
		School:        s.School,
		Grade:         s.Grade,
		Program:       s.Program,
		GuardianName:  s.GuardianName,
		GuardianPhone: s.GuardianPhone,
		GuardianEmail: s.GuardianEmail,
		Address:       s.Address,
		Status:        s.Status,
		Source:        s.Source,
		JoinedOn:      s.JoinedOn,
		Notes:         s.Notes,
		CreatedAt:     s.CreatedAt.UTC(),
		UpdatedAt:     s.UpdatedAt.UTC(),
	}
}

func (repo studentRepository) fromRow(r studentRow) student.Student {
	return student.Student{
		ID:            r.ID,
		UserID:        r.UserID.String,
		Name:          r.Name,
		Nickname:      r.Nickname,
		BirthDate:     r.BirthDate,
		School:        r.School,
		Grade:         r.Grade,
		Program:       r.Program,
		GuardianName:  r.GuardianName,
		GuardianPhone: r.GuardianPhone,
		GuardianEmail: r.GuardianEmail,
		Address:       r.Address,
		Status:        r.Status,
		Source:        r.Source,
		JoinedOn:      r.JoinedOn,
		Notes:         r.Notes,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func (repo studentRepository) noteFromRow(r noteRow) student.Note {
	return student.Note{
		ID:         r.ID,
		StudentID:  r.StudentID,
		AuthorID:   r.AuthorID.String,
		Kind:       r.Kind,
		Body:       r.Body,
		FollowUpOn: r.FollowUpOn,
		ResolvedAt: r.ResolvedAt.Time,
		CreatedAt:  r.CreatedAt,
	}
}

func (repo studentRepository) CreateStudent(ctx context.Context, s student.Student, exec ...core.DBExecutor) (student.Student, error) {
	s.ID = uuid.New().String()
	q := `INSERT INTO student (` + studentColumns + `) VALUES (:id, :user_id, :name, :nickname, :birth_date, :school,
		:grade, :program, :guardian_name, :guardian_phone, :guardian_email, :address, :status, :source, :joined_on,
		:notes, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, getExec(repo.exec, exec), q, repo.toRow(s)); err != nil {
		return student.Student{}, trapErr(err, nil, "inserting student")
	}
	return s, nil
}

func (repo studentRepository) getBy(ctx context.Context, col, val string, exec []core.DBExecutor) (student.Student, error) {
	if _, err := uuid.Parse(val); err != nil {
		return student.Student{}, student.ErrNotFound
	}
	w := new(where)
	w.add(col+" = ?", val)

	var r studentRow
	if err := sqlx.GetContext(ctx, getExec(repo.exec, exec), &r, selectQuery(studentColumns, "student", w, ""), w.args...); err != nil {
		return student.Student{}, trapErr(err, student.ErrNotFound, "finding student")
	}
	return repo.fromRow(r), nil
}

func (repo studentRepository) GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (student.Student, error) {
	return repo.getBy(ctx, "id", id, exec)
}

func (repo studentRepository) GetStudentByUserID(ctx context.Context, userID string, exec ...core.DBExecutor) (student.Student, error) {
	return repo.getBy(ctx, "user_id", userID, exec)
}

func (repo studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]student.Student, error) {
	w := new(where)
	if filter != nil {
		if filter.Search != "" {
			val := likePattern(filter.Search)
			w.add("(name ILIKE ? OR nickname ILIKE ? OR guardian_name ILIKE ? OR guardian_phone ILIKE ?)", val, val, val, val)
		}
		if len(filter.Statuses) > 0 {
			w.add("status = ANY(?)", pq.Array(filter.Statuses))
		}
		if filter.Program != "" {
			w.add("program ILIKE ?", filter.Program)
		}
		if filter.IDs != nil {
			w.add("id = ANY(CAST(? AS UUID[]))", pq.Array(filter.IDs))
		}
	}

	var rows []studentRow
	q := selectQuery(studentColumns, "student", w, core.OrderBy(ordering, studentOrderings, "name ASC"))
	if err := sqlx.SelectContext(ctx, getExec(repo.exec, exec), &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, repo.fromRow(r))
	}
	return students, nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, s student.Student, exec ...core.DBExecutor) (student.Student, error) {
	q := `UPDATE student SET user_id = :user_id, name = :name, nickname = :nickname, birth_date = :birth_date,
		school = :school, grade = :grade, program = :program, guardian_name = :guardian_name,
		guardian_phone = :guardian_phone, guardian_email = :guardian_email, address = :address, status = :status,
		source = :source, joined_on = :joined_on, notes = :notes, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, getExec(repo.exec, exec), q, repo.toRow(s))
	if err != nil {
		return student.Student{}, trapErr(err, nil, "updating student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return s, nil
}

func (repo studentRepository) DeleteStudent(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if _, err := uuid.Parse(id); err != nil {
		return student.ErrNotFound
	}
	res, err := getExec(repo.exec, exec).ExecContext(ctx, `DELETE FROM student WHERE id = $1`, id)
	if err != nil {
		if core.IsConflict(trapErr(err, nil, "")) {
			return student.ErrHasHistory
		}
		return errors.Wrap(err, "deleting student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return student.ErrNotFound
	}
	return nil
}

func (repo studentRepository) CreateNote(ctx context.Context, n student.Note, exec ...core.DBExecutor) (student.Note, error) {
	n.ID = uuid.New().String()
	_, err := getExec(repo.exec, exec).ExecContext(ctx,
		`INSERT INTO student_note (`+noteColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.StudentID, nullString(n.AuthorID), n.Kind, n.Body, n.FollowUpOn, nullTime(n.ResolvedAt), n.CreatedAt.UTC(),
	)
	if err != nil {
		return student.Note{}, trapErr(err, nil, "inserting note")
	}
	return n, nil
}

func (repo studentRepository) GetNote(ctx context.Context, id string, exec ...core.DBExecutor) (student.Note, error) {
	if _, err := uuid.Parse(id); err != nil {
		return student.Note{}, student.ErrNoteNotFound
	}
	var r noteRow
	if err := sqlx.GetContext(ctx, getExec(repo.exec, exec), &r, `SELECT `+noteColumns+` FROM student_note WHERE id = $1`, id); err != nil {
		return student.Note{}, trapErr(err, student.ErrNoteNotFound, "finding note")
	}
	return repo.noteFromRow(r), nil
}

func (repo studentRepository) QueryNotes(ctx context.Context, filter student.NoteFilter, exec ...core.DBExecutor) ([]student.Note, error) {
	w := new(where)
	orderBy := "created_at DESC"
	if filter.StudentID != "" {
		w.add("student_id = ?", filter.StudentID)
	}
	if filter.Kind != "" {
		w.add("kind = ?", filter.Kind)
	}
	if filter.Unresolved {
		w.add("resolved_at IS NULL")
	}
	if !filter.FollowUpBefore.IsZero() {
		w.add("follow_up_on <= ?", filter.FollowUpBefore)
		orderBy = "follow_up_on ASC, created_at ASC"
	}

	var rows []noteRow
	if err := sqlx.SelectContext(ctx, getExec(repo.exec, exec), &rows, selectQuery(noteColumns, "student_note", w, orderBy), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying notes")
	}
	notes := make([]student.Note, 0, len(rows))
	for _, r := range rows {
		notes = append(notes, repo.noteFromRow(r))
	}
	return notes, nil
}

func (repo studentRepository) UpdateNote(ctx context.Context, n student.Note, exec ...core.DBExecutor) (student.Note, error) {
	res, err := getExec(repo.exec, exec).ExecContext(ctx,
		`UPDATE student_note SET kind = $2, body = $3, follow_up_on = $4, resolved_at = $5 WHERE id = $1`,
		n.ID, n.Kind, n.Body, n.FollowUpOn, nullTime(n.ResolvedAt),
	)
	if err != nil {
		return student.Note{}, trapErr(err, nil, "updating note")
	}
	if cnt, _ := res.RowsAffected(); cnt == 0 {
		return student.Note{}, student.ErrNoteNotFound
	}
	return n, nil
}
