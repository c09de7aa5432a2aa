package inmemdb

import (
	"context"
	"strings"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/attendance"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/class"
)

type classRepository struct {
	db *DB
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *DB) class.Repository {
	return &classRepository{db: db}
}

func (repo *classRepository) CreateClass(_ context.Context, c class.Class, _ ...core.DBExecutor) (class.Class, error) {
	c.ID = newID()
	c.StudentIDs = copyStrings(c.StudentIDs)
	repo.db.class.put(c.ID, c)
	return c, nil
}

func (repo *classRepository) GetClass(_ context.Context, id string, _ ...core.DBExecutor) (class.Class, error) {
	if c, ok := repo.db.class.get(id); ok {
		return c, nil
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *classRepository) QueryClasses(_ context.Context, filter *class.QueryFilter, _ ...core.DBExecutor) ([]class.Class, error) {
	classes := repo.db.class.filter(func(c class.Class) bool {
		if filter == nil {
			return true
		}
		if filter.Search != "" && !containsFold(c.Name, filter.Search) && !containsFold(c.Subject, filter.Search) {
			return false
		}
		if filter.TeacherID != "" && c.TeacherID != filter.TeacherID {
			return false
		}
		if filter.StudentID != "" && !c.HasStudent(filter.StudentID) {
			return false
		}
		if filter.IsActive != nil && c.IsActive != *filter.IsActive {
			return false
		}
		return true
	})
	sortRows(classes, nil, nil, func(a, b class.Class) int { return strings.Compare(a.Name, b.Name) })
	return classes, nil
}

func (repo *classRepository) UpdateClass(_ context.Context, c class.Class, _ ...core.DBExecutor) (class.Class, error) {
	c.StudentIDs = copyStrings(c.StudentIDs)
	if !repo.db.class.replace(c.ID, c) {
		return class.Class{}, class.ErrNotFound
	}
	return c, nil
}

func (repo *classRepository) DeleteClass(_ context.Context, id string, _ ...core.DBExecutor) error {
	if _, ok := repo.db.class.get(id); !ok {
		return class.ErrNotFound
	}
	if repo.db.pkg.any(func(p attendance.Package) bool { return p.ClassID == id }) {
		return class.ErrHasHistory
	}
	repo.db.class.delete(id)
	return nil
}
