package inmemdb

import (
	"context"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/attendance"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/payroll"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) otherOpen(p attendance.Package) bool {
	if !p.IsOpen() {
		return false
	}
	return repo.db.pkg.any(func(o attendance.Package) bool {
		return o.IsOpen() && o.ID != p.ID && o.ClassID == p.ClassID && o.StudentID == p.StudentID
	})
}

func (repo *attendanceRepository) CreatePackage(_ context.Context, p attendance.Package, _ ...core.DBExecutor) (attendance.Package, error) {
	if repo.otherOpen(p) {
		return attendance.Package{}, attendance.ErrOtherPackageOpen
	}
	p.ID = newID()
	p.Sessions = nil
	repo.db.pkg.put(p.ID, p)
	return p, nil
}

func (repo *attendanceRepository) GetPackage(_ context.Context, id string, _ ...core.DBExecutor) (attendance.Package, error) {
	if p, ok := repo.db.pkg.get(id); ok {
		return p, nil
	}
	return attendance.Package{}, attendance.ErrPackageNotFound
}

func (repo *attendanceRepository) GetOpenPackage(_ context.Context, classID, studentID string, _ ...core.DBExecutor) (attendance.Package, error) {
	open := repo.db.pkg.filter(func(p attendance.Package) bool {
		return p.IsOpen() && p.ClassID == classID && p.StudentID == studentID
	})
	if len(open) == 0 {
		return attendance.Package{}, attendance.ErrPackageNotFound
	}
	return open[0], nil
}

func (repo *attendanceRepository) QueryPackages(_ context.Context, filter attendance.PackageFilter, _ ...core.DBExecutor) ([]attendance.Package, error) {
	pkgs := repo.db.pkg.filter(func(p attendance.Package) bool {
		return (filter.ClassID == "" || p.ClassID == filter.ClassID) &&
			(filter.StudentID == "" || p.StudentID == filter.StudentID) &&
			(filter.OriginalTeacherID == "" || p.OriginalTeacherID == filter.OriginalTeacherID) &&
			(filter.Status == "" || p.Status == filter.Status)
	})
	sortRows(pkgs, nil, nil, func(a, b attendance.Package) int {
		if c := cmpDate(a.StartedOn, b.StartedOn); c != 0 {
			return -c
		}
		return -cmpTime(a.CreatedAt, b.CreatedAt)
	})
	return pkgs, nil
}

func (repo *attendanceRepository) UpdatePackage(_ context.Context, p attendance.Package, _ ...core.DBExecutor) (attendance.Package, error) {
	if repo.otherOpen(p) {
		return attendance.Package{}, attendance.ErrOtherPackageOpen
	}
	p.Sessions = nil
	if !repo.db.pkg.replace(p.ID, p) {
		return attendance.Package{}, attendance.ErrPackageNotFound
	}
	return p, nil
}

func (repo *attendanceRepository) DeletePackage(_ context.Context, id string, _ ...core.DBExecutor) error {
	if repo.db.session.any(func(s attendance.Session) bool { return s.PackageID == id }) {
		return core.NewConflictError("the record is referenced by or references missing data")
	}
	if !repo.db.pkg.delete(id) {
		return attendance.ErrPackageNotFound
	}
	for _, e := range repo.db.payroll.filter(func(e payroll.Entry) bool { return e.PackageID == id }) {
		repo.db.payroll.delete(e.ID)
	}
	return nil
}

func (repo *attendanceRepository) dateTaken(s attendance.Session) bool {
	return repo.db.session.any(func(o attendance.Session) bool {
		return o.ID != s.ID && o.ClassID == s.ClassID && o.StudentID == s.StudentID && o.SessionDate.Equal(s.SessionDate)
	})
}

func (repo *attendanceRepository) CreateSession(_ context.Context, s attendance.Session, _ ...core.DBExecutor) (attendance.Session, error) {
	if _, ok := repo.db.pkg.get(s.PackageID); !ok {
		return attendance.Session{}, core.NewConflictError("the record is referenced by or references missing data")
	}
	if repo.dateTaken(s) {
		return attendance.Session{}, attendance.ErrDuplicateDate
	}
	s.ID = newID()
	repo.db.session.put(s.ID, s)
	return s, nil
}

func (repo *attendanceRepository) GetSession(_ context.Context, id string, _ ...core.DBExecutor) (attendance.Session, error) {
	if s, ok := repo.db.session.get(id); ok {
		return s, nil
	}
	return attendance.Session{}, attendance.ErrSessionNotFound
}

func (repo *attendanceRepository) QuerySessions(_ context.Context, filter attendance.SessionFilter, _ ...core.DBExecutor) ([]attendance.Session, error) {
	sessions := repo.db.session.filter(func(s attendance.Session) bool {
		if filter.VisibleTo != "" && s.TeacherID != filter.VisibleTo && s.OriginalTeacherID != filter.VisibleTo {
			return false
		}
		if !filter.DateFrom.IsZero() && s.SessionDate.Before(filter.DateFrom) {
			return false
		}
		if !filter.DateTo.IsZero() && s.SessionDate.After(filter.DateTo) {
			return false
		}
		return (filter.ClassID == "" || s.ClassID == filter.ClassID) &&
			(filter.StudentID == "" || s.StudentID == filter.StudentID) &&
			(filter.TeacherID == "" || s.TeacherID == filter.TeacherID) &&
			(filter.PackageID == "" || s.PackageID == filter.PackageID)
	})
	sortRows(sessions, nil, nil, func(a, b attendance.Session) int {
		if c := cmpDate(a.SessionDate, b.SessionDate); c != 0 {
			return c
		}
		return a.SessionNumber - b.SessionNumber
	})
	return sessions, nil
}

func (repo *attendanceRepository) UpdateSession(_ context.Context, s attendance.Session, _ ...core.DBExecutor) (attendance.Session, error) {
	if repo.dateTaken(s) {
		return attendance.Session{}, attendance.ErrDuplicateDate
	}
	if !repo.db.session.replace(s.ID, s) {
		return attendance.Session{}, attendance.ErrSessionNotFound
	}
	return s, nil
}

func (repo *attendanceRepository) DeleteSession(_ context.Context, id string, _ ...core.DBExecutor) error {
	if !repo.db.session.delete(id) {
		return attendance.ErrSessionNotFound
	}
	return nil
}

func (repo *attendanceRepository) SessionExistsOn(_ context.Context, classID, studentID string, date core.Date, excludedID string, _ ...core.DBExecutor) (bool, error) {
	return repo.dateTaken(attendance.Session{ID: excludedID, ClassID: classID, StudentID: studentID, SessionDate: date}), nil
}
