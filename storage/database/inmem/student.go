package inmemdb

import (
	"context"
	"strings"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/attendance"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/class"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/receipt"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/student"
)

var studentOrderings = map[string]comparator[student.Student]{
	"name":       func(a, b student.Student) int { return strings.Compare(a.Name, b.Name) },
	"status":     func(a, b student.Student) int { return strings.Compare(a.Status, b.Status) },
	"program":    func(a, b student.Student) int { return strings.Compare(a.Program, b.Program) },
	"joined_on":  func(a, b student.Student) int { return cmpDate(a.JoinedOn, b.JoinedOn) },
	"created_at": func(a, b student.Student) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
}

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) userLinked(s student.Student) bool {
	if s.UserID == "" {
		return false
	}
	return repo.db.student.any(func(o student.Student) bool { return o.UserID == s.UserID && o.ID != s.ID })
}

func (repo *studentRepository) CreateStudent(_ context.Context, s student.Student, _ ...core.DBExecutor) (student.Student, error) {
	if repo.userLinked(s) {
		return student.Student{}, core.NewConflictError(student.ErrUserLinked.Error())
	}
	s.ID = newID()
	repo.db.student.put(s.ID, s)
	return s, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, id string, _ ...core.DBExecutor) (student.Student, error) {
	if s, ok := repo.db.student.get(id); ok {
		return s, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) GetStudentByUserID(_ context.Context, userID string, _ ...core.DBExecutor) (student.Student, error) {
	if userID != "" {
		if found := repo.db.student.filter(func(s student.Student) bool { return s.UserID == userID }); len(found) > 0 {
			return found[0], nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter *student.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]student.Student, error) {
	students := repo.db.student.filter(func(s student.Student) bool {
		if filter == nil {
			return true
		}
		if filter.Search != "" && !containsFold(s.Name, filter.Search) && !containsFold(s.Nickname, filter.Search) &&
			!containsFold(s.GuardianName, filter.Search) && !containsFold(s.GuardianPhone, filter.Search) {
			return false
		}
		if len(filter.Statuses) > 0 && !core.StringInSlice(s.Status, filter.Statuses) {
			return false
		}
		if filter.Program != "" && !strings.EqualFold(s.Program, filter.Program) {
			return false
		}
		if filter.IDs != nil && !core.StringInSlice(s.ID, filter.IDs) {
			return false
		}
		return true
	})
	sortRows(students, ordering, studentOrderings, studentOrderings["name"])
	return students, nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, s student.Student, _ ...core.DBExecutor) (student.Student, error) {
	if repo.userLinked(s) {
		return student.Student{}, core.NewConflictError(student.ErrUserLinked.Error())
	}
	if !repo.db.student.replace(s.ID, s) {
		return student.Student{}, student.ErrNotFound
	}
	return s, nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id string, _ ...core.DBExecutor) error {
	if _, ok := repo.db.student.get(id); !ok {
		return student.ErrNotFound
	}
	if repo.db.session.any(func(s attendance.Session) bool { return s.StudentID == id }) ||
		repo.db.receipt.any(func(r receipt.Receipt) bool { return r.StudentID == id }) {
		return student.ErrHasHistory
	}

	repo.db.student.delete(id)
	for _, n := range repo.db.note.filter(func(n student.Note) bool { return n.StudentID == id }) {
		repo.db.note.delete(n.ID)
	}
	for _, c := range repo.db.class.filter(func(c class.Class) bool { return c.HasStudent(id) }) {
		c.StudentIDs = without(c.StudentIDs, id)
		repo.db.class.put(c.ID, c)
	}
	return nil
}

func (repo *studentRepository) CreateNote(_ context.Context, n student.Note, _ ...core.DBExecutor) (student.Note, error) {
	if _, ok := repo.db.student.get(n.StudentID); !ok {
		return student.Note{}, core.NewConflictError("the record is referenced by or references missing data")
	}
	n.ID = newID()
	repo.db.note.put(n.ID, n)
	return n, nil
}

func (repo *studentRepository) GetNote(_ context.Context, id string, _ ...core.DBExecutor) (student.Note, error) {
	if n, ok := repo.db.note.get(id); ok {
		return n, nil
	}
	return student.Note{}, student.ErrNoteNotFound
}

func (repo *studentRepository) QueryNotes(_ context.Context, filter student.NoteFilter, _ ...core.DBExecutor) ([]student.Note, error) {
	notes := repo.db.note.filter(func(n student.Note) bool {
		if filter.StudentID != "" && n.StudentID != filter.StudentID {
			return false
		}
		if filter.Kind != "" && n.Kind != filter.Kind {
			return false
		}
		if filter.Unresolved && n.IsResolved() {
			return false
		}
		if !filter.FollowUpBefore.IsZero() && (n.FollowUpOn.IsZero() || n.FollowUpOn.After(filter.FollowUpBefore)) {
			return false
		}
		return true
	})

	byCreation := func(a, b student.Note) int { return cmpTime(a.CreatedAt, b.CreatedAt) }
	if filter.FollowUpBefore.IsZero() {
		sortRows(notes, nil, nil, func(a, b student.Note) int { return -byCreation(a, b) })
	} else {
		sortRows(notes, nil, nil, func(a, b student.Note) int {
			if c := cmpDate(a.FollowUpOn, b.FollowUpOn); c != 0 {
				return c
			}
			return byCreation(a, b)
		})
	}
	return notes, nil
}

func (repo *studentRepository) UpdateNote(_ context.Context, n student.Note, _ ...core.DBExecutor) (student.Note, error) {
	if !repo.db.note.replace(n.ID, n) {
		return student.Note{}, student.ErrNoteNotFound
	}
	return n, nil
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, i := range ids {
		if i != id {
			out = append(out, i)
		}
	}
	return out
}
