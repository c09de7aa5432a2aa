package class

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/student"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/user"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("class not found")
	ErrHasHistory     = core.NewConflictError("class has logged sessions; deactivate it instead")
	ErrNotATeacher    = errors.New("user is not an active teacher")
	ErrStudentMissing = errors.New("student does not exist")
)

type (
	Repository interface {
		CreateClass(ctx context.Context, c Class, exec ...core.DBExecutor) (Class, error)
		GetClass(ctx context.Context, id string, exec ...core.DBExecutor) (Class, error)
		// QueryClasses applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on name or subject.
		QueryClasses(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]Class, error)
		// UpdateClass also replaces the enrolled students with Class.StudentIDs.
		UpdateClass(ctx context.Context, c Class, exec ...core.DBExecutor) (Class, error)
		// DeleteClass returns ErrHasHistory when sessions reference the class.
		DeleteClass(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	UserGetter interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	StudentGetter interface {
		Get(ctx context.Context, id string) (student.Student, error)
	}

	Service struct {
		repo     Repository
		users    UserGetter
		students StudentGetter
	}
)

func NewService(repo Repository, users UserGetter, students StudentGetter) *Service {
	return &Service{repo: repo, users: users, students: students}
}

func (svc *Service) checkTeacher(ctx context.Context, teacherID string) error {
	usr, err := svc.users.GetByID(ctx, teacherID)
	if err != nil && !core.IsNotFound(err) {
		return errors.Wrap(err, "getting teacher")
	}
	if err != nil || !usr.IsActive || !usr.IsTeacher() {
		return core.NewValidationError(ErrNotATeacher, core.FieldError{Field: "teacher_id", Error: ErrNotATeacher.Error()})
	}
	return nil
}

func (svc *Service) checkStudents(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := svc.students.Get(ctx, id); err != nil {
			if core.IsNotFound(err) {
				return core.NewValidationError(ErrStudentMissing, core.FieldError{Field: "student_ids", Error: ErrStudentMissing.Error() + ": " + id})
			}
			return errors.Wrap(err, "getting student")
		}
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nc NewClass) (Class, error) {
	if err := svc.checkTeacher(ctx, nc.TeacherID); err != nil {
		return Class{}, err
	}
	if err := svc.checkStudents(ctx, nc.StudentIDs); err != nil {
		return Class{}, err
	}

	now := time.Now().UTC()
	c := Class{
		Name:       nc.Name,
		Subject:    nc.Subject,
		Level:      nc.Level,
		TeacherID:  nc.TeacherID,
		StudentIDs: nc.StudentIDs,
		PackageFee: nc.PackageFee,
		TeacherFee: nc.TeacherFee,
		Schedule:   nc.Schedule,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if c.StudentIDs == nil {
		c.StudentIDs = []string{}
	}
	return svc.repo.CreateClass(ctx, c)
}

func (svc *Service) Get(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClass(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Class, error) {
	return svc.repo.QueryClasses(ctx, filter)
}

// Update replaces a Class' fields. A new TeacherID only applies to packages opened afterwards.
func (svc *Service) Update(ctx context.Context, c Class, uc UpdateClass) (Class, error) {
	if uc.TeacherID != c.TeacherID {
		if err := svc.checkTeacher(ctx, uc.TeacherID); err != nil {
			return Class{}, err
		}
	}
	if uc.StudentIDs != nil {
		if err := svc.checkStudents(ctx, newIDs(c.StudentIDs, uc.StudentIDs)); err != nil {
			return Class{}, err
		}
		c.StudentIDs = uc.StudentIDs
	}

	c.Name = uc.Name
	c.Subject = uc.Subject
	c.Level = uc.Level
	c.TeacherID = uc.TeacherID
	c.PackageFee = uc.PackageFee
	c.TeacherFee = uc.TeacherFee
	c.Schedule = uc.Schedule
	if uc.IsActive != nil {
		c.IsActive = *uc.IsActive
	}
	c.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateClass(ctx, c)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteClass(ctx, id)
}

func (svc *Service) AddStudent(ctx context.Context, c Class, studentID string) (Class, error) {
	if c.HasStudent(studentID) {
		return c, nil
	}
	if err := svc.checkStudents(ctx, []string{studentID}); err != nil {
		return Class{}, err
	}
	c.StudentIDs = append(append([]string{}, c.StudentIDs...), studentID)
	c.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateClass(ctx, c)
}

// RemoveStudent unenrolls a student. Past sessions and packages are kept.
func (svc *Service) RemoveStudent(ctx context.Context, c Class, studentID string) (Class, error) {
	if !c.HasStudent(studentID) {
		return c, nil
	}
	ids := make([]string, 0, len(c.StudentIDs))
	for _, id := range c.StudentIDs {
		if id != studentID {
			ids = append(ids, id)
		}
	}
	c.StudentIDs = ids
	c.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateClass(ctx, c)
}

func newIDs(old, ids []string) []string {
	var added []string
	for _, id := range ids {
		if !core.StringInSlice(id, old) {
			added = append(added, id)
		}
	}
	return added
}
