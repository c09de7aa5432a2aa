package attendance

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/class"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/user"
)

var (
	// errors
	ErrSessionNotFound  = core.NewNotFoundError("session not found")
	ErrPackageNotFound  = core.NewNotFoundError("package not found")
	ErrStudentCannotLog = core.NewPermissionError("students cannot log sessions")
	ErrNotClassTeacher  = core.NewPermissionError("you are not the teacher of this class; log it as a substitute")
	ErrCannotEdit       = core.NewPermissionError("only an admin, the package owner or the teacher who taught it while the package is open may change this session")
	ErrDuplicateDate    = core.NewConflictError("a session is already logged for this student on this date")
	ErrOtherPackageOpen = core.NewConflictError("another package is already open for this class and student")
	ErrClassInactive    = errors.New("class is not active")
	ErrNotEnrolled      = errors.New("student is not enrolled in this class")
	ErrNotATeacher      = errors.New("user is not an active teacher")
)

type (
	Repository interface {
		CreatePackage(ctx context.Context, p Package, exec ...core.DBExecutor) (Package, error)
		GetPackage(ctx context.Context, id string, exec ...core.DBExecutor) (Package, error)
		// GetOpenPackage returns ErrPackageNotFound when the pair has no open package.
		// It locks the package row for the duration of the transaction.
		GetOpenPackage(ctx context.Context, classID, studentID string, exec ...core.DBExecutor) (Package, error)
		QueryPackages(ctx context.Context, filter PackageFilter, exec ...core.DBExecutor) ([]Package, error)
		UpdatePackage(ctx context.Context, p Package, exec ...core.DBExecutor) (Package, error)
		DeletePackage(ctx context.Context, id string, exec ...core.DBExecutor) error

		CreateSession(ctx context.Context, s Session, exec ...core.DBExecutor) (Session, error)
		GetSession(ctx context.Context, id string, exec ...core.DBExecutor) (Session, error)
		// QuerySessions orders by session date, then session number.
		QuerySessions(ctx context.Context, filter SessionFilter, exec ...core.DBExecutor) ([]Session, error)
		UpdateSession(ctx context.Context, s Session, exec ...core.DBExecutor) (Session, error)
		DeleteSession(ctx context.Context, id string, exec ...core.DBExecutor) error
		// SessionExistsOn reports whether the pair has a session on date, ignoring excludedID.
		SessionExistsOn(ctx context.Context, classID, studentID string, date core.Date, excludedID string, exec ...core.DBExecutor) (bool, error)
	}

	// PayrollQueue is notified when a package completes or reopens.
	PayrollQueue interface {
		EnqueuePackage(ctx context.Context, c class.Class, pkg Package, sessions []Session, exec core.DBExecutor) error
		// CancelPackage returns a core.ConflictError when an entry of the package is already paid.
		CancelPackage(ctx context.Context, packageID string, exec core.DBExecutor) error
	}

	ClassGetter interface {
		Get(ctx context.Context, id string) (class.Class, error)
	}

	UserGetter interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		repo    Repository
		tx      core.Transactor
		classes ClassGetter
		users   UserGetter
		payroll PayrollQueue
		conf    *core.Config
		logger  core.Logger
	}
)

func NewService(
	repo Repository,
	tx core.Transactor,
	classes ClassGetter,
	users UserGetter,
	payroll PayrollQueue,
	conf *core.Config,
	logger core.Logger,
) *Service {
	return &Service{
		repo:    repo,
		tx:      tx,
		classes: classes,
		users:   users,
		payroll: payroll,
		conf:    conf,
		logger:  logger,
	}
}

// LogSession records a session for a class/student pair and advances its package.
// The package completes when it reaches the configured number of sessions, which enqueues its payroll.
func (svc *Service) LogSession(ctx context.Context, actor user.User, ns NewSession) (Session, error) {
	if !actor.IsAdmin() && !actor.IsTeacher() {
		return Session{}, ErrStudentCannotLog
	}

	cls, err := svc.classes.Get(ctx, ns.ClassID)
	if err != nil {
		if core.IsNotFound(err) {
			return Session{}, core.NewValidationError(err, core.FieldError{Field: "class_id", Error: err.Error()})
		}
		return Session{}, err
	}
	if !cls.IsActive {
		return Session{}, core.NewValidationError(ErrClassInactive, core.FieldError{Field: "class_id", Error: ErrClassInactive.Error()})
	}
	if !cls.HasStudent(ns.StudentID) {
		return Session{}, core.NewValidationError(ErrNotEnrolled, core.FieldError{Field: "student_id", Error: ErrNotEnrolled.Error()})
	}

	teacherID, substitute, err := svc.resolveTeacher(ctx, actor, cls, ns)
	if err != nil {
		return Session{}, err
	}

	var sess Session
	err = svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		exists, err := svc.repo.SessionExistsOn(ctx, cls.ID, ns.StudentID, ns.SessionDate, "", exec)
		if err != nil {
			return errors.Wrap(err, "checking session date")
		}
		if exists {
			return ErrDuplicateDate
		}

		now := time.Now().UTC()
		pkg, err := svc.repo.GetOpenPackage(ctx, cls.ID, ns.StudentID, exec)
		if err != nil {
			if !core.IsNotFound(err) {
				return errors.Wrap(err, "getting open package")
			}
			pkg, err = svc.repo.CreatePackage(ctx, Package{
				ClassID:           cls.ID,
				StudentID:         ns.StudentID,
				OriginalTeacherID: cls.TeacherID,
				Status:            PackageOpen,
				StartedOn:         ns.SessionDate,
				CreatedAt:         now,
				UpdatedAt:         now,
			}, exec)
			if err != nil {
				return errors.Wrap(err, "opening package")
			}
		}

		sessions, err := svc.repo.QuerySessions(ctx, SessionFilter{PackageID: pkg.ID}, exec)
		if err != nil {
			return errors.Wrap(err, "getting package sessions")
		}

		sess, err = svc.repo.CreateSession(ctx, Session{
			PackageID:         pkg.ID,
			ClassID:           cls.ID,
			StudentID:         ns.StudentID,
			TeacherID:         teacherID,
			OriginalTeacherID: pkg.OriginalTeacherID,
			SessionNumber:     len(sessions) + 1,
			SessionDate:       ns.SessionDate,
			Status:            ns.Status,
			Topic:             ns.Topic,
			Notes:             ns.Notes,
			IsSubstitute:      substitute,
			LoggedBy:          actor.ID,
			CreatedAt:         now,
			UpdatedAt:         now,
		}, exec)
		if err != nil {
			return errors.Wrap(err, "creating session")
		}
		sessions = append(sessions, sess)

		pkg.SessionsDone = len(sessions)
		if ns.SessionDate.Before(pkg.StartedOn) {
			pkg.StartedOn = ns.SessionDate
		}
		pkg.UpdatedAt = now
		if pkg.SessionsDone >= svc.conf.Academy.PackageSize() {
			pkg.Status = PackageCompleted
			pkg.CompletedAt = now
			if err := svc.payroll.EnqueuePackage(ctx, cls, pkg, sessions, exec); err != nil {
				return errors.Wrap(err, "enqueuing payroll")
			}
		}
		if _, err := svc.repo.UpdatePackage(ctx, pkg, exec); err != nil {
			return errors.Wrap(err, "updating package")
		}
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// resolveTeacher returns who taught the session and whether they substituted for the class teacher.
func (svc *Service) resolveTeacher(ctx context.Context, actor user.User, cls class.Class, ns NewSession) (string, bool, error) {
	if actor.IsAdmin() {
		if ns.TeacherID == "" || ns.TeacherID == cls.TeacherID {
			return cls.TeacherID, false, nil
		}
		usr, err := svc.users.GetByID(ctx, ns.TeacherID)
		if err != nil && !core.IsNotFound(err) {
			return "", false, errors.Wrap(err, "getting teacher")
		}
		if err != nil || !usr.IsActive || !usr.IsTeacher() {
			return "", false, core.NewValidationError(ErrNotATeacher, core.FieldError{Field: "teacher_id", Error: ErrNotATeacher.Error()})
		}
		return usr.ID, true, nil
	}

	if actor.ID == cls.TeacherID {
		return actor.ID, false, nil
	}
	if !ns.Substitute {
		return "", false, ErrNotClassTeacher
	}
	return actor.ID, true, nil
}

// canEdit reports whether actor may change or delete sess.
func canEdit(actor user.User, pkg Package, sess Session) bool {
	if actor.IsAdmin() || actor.ID == pkg.OriginalTeacherID {
		return true
	}
	return pkg.IsOpen() && actor.ID == sess.TeacherID
}

func (svc *Service) GetSession(ctx context.Context, id string) (Session, error) {
	return svc.repo.GetSession(ctx, id)
}

func (svc *Service) QuerySessions(ctx context.Context, filter SessionFilter) ([]Session, error) {
	return svc.repo.QuerySessions(ctx, filter)
}

func (svc *Service) UpdateSession(ctx context.Context, actor user.User, id string, us UpdateSession) (Session, error) {
	var sess Session
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if sess, err = svc.repo.GetSession(ctx, id, exec); err != nil {
			return err
		}
		pkg, err := svc.repo.GetPackage(ctx, sess.PackageID, exec)
		if err != nil {
			return errors.Wrap(err, "getting package")
		}
		if !canEdit(actor, pkg, sess) {
			return ErrCannotEdit
		}

		if !us.SessionDate.Equal(sess.SessionDate) {
			exists, err := svc.repo.SessionExistsOn(ctx, sess.ClassID, sess.StudentID, us.SessionDate, sess.ID, exec)
			if err != nil {
				return errors.Wrap(err, "checking session date")
			}
			if exists {
				return ErrDuplicateDate
			}
		}

		sess.SessionDate = us.SessionDate
		sess.Status = us.Status
		sess.Topic = us.Topic
		sess.Notes = us.Notes
		sess.UpdatedAt = time.Now().UTC()
		if sess, err = svc.repo.UpdateSession(ctx, sess, exec); err != nil {
			return err
		}

		sessions, err := svc.repo.QuerySessions(ctx, SessionFilter{PackageID: pkg.ID}, exec)
		if err != nil {
			return errors.Wrap(err, "getting package sessions")
		}
		if started := earliestDate(sessions); !started.Equal(pkg.StartedOn) {
			pkg.StartedOn = started
			pkg.UpdatedAt = sess.UpdatedAt
			if _, err := svc.repo.UpdatePackage(ctx, pkg, exec); err != nil {
				return errors.Wrap(err, "updating package start")
			}
		}
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// DeleteSession removes a session and renumbers the rest of its package.
// Deleting from a completed package reopens it and cancels its unpaid payroll.
func (svc *Service) DeleteSession(ctx context.Context, actor user.User, id string) error {
	return svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		sess, err := svc.repo.GetSession(ctx, id, exec)
		if err != nil {
			return err
		}
		pkg, err := svc.repo.GetPackage(ctx, sess.PackageID, exec)
		if err != nil {
			return errors.Wrap(err, "getting package")
		}
		if !canEdit(actor, pkg, sess) {
			return ErrCannotEdit
		}

		if !pkg.IsOpen() {
			if _, err := svc.repo.GetOpenPackage(ctx, pkg.ClassID, pkg.StudentID, exec); err == nil {
				return ErrOtherPackageOpen
			} else if !core.IsNotFound(err) {
				return errors.Wrap(err, "getting open package")
			}
			if err := svc.payroll.CancelPackage(ctx, pkg.ID, exec); err != nil {
				return err
			}
			pkg.Status = PackageOpen
			pkg.CompletedAt = time.Time{}
		}

		if err := svc.repo.DeleteSession(ctx, sess.ID, exec); err != nil {
			return errors.Wrap(err, "deleting session")
		}

		rest, err := svc.repo.QuerySessions(ctx, SessionFilter{PackageID: pkg.ID}, exec)
		if err != nil {
			return errors.Wrap(err, "getting package sessions")
		}
		sortByNumber(rest)
		now := time.Now().UTC()
		for i := range rest {
			if rest[i].SessionNumber == i+1 {
				continue
			}
			rest[i].SessionNumber = i + 1
			rest[i].UpdatedAt = now
			if _, err := svc.repo.UpdateSession(ctx, rest[i], exec); err != nil {
				return errors.Wrap(err, "renumbering sessions")
			}
		}

		if len(rest) == 0 {
			return errors.Wrap(svc.repo.DeletePackage(ctx, pkg.ID, exec), "deleting empty package")
		}
		pkg.SessionsDone = len(rest)
		pkg.StartedOn = earliestDate(rest)
		pkg.UpdatedAt = now
		_, err = svc.repo.UpdatePackage(ctx, pkg, exec)
		return errors.Wrap(err, "updating package")
	})
}

// GetPackage returns a package with its sessions.
func (svc *Service) GetPackage(ctx context.Context, id string) (Package, error) {
	pkg, err := svc.repo.GetPackage(ctx, id)
	if err != nil {
		return Package{}, err
	}
	if pkg.Sessions, err = svc.repo.QuerySessions(ctx, SessionFilter{PackageID: pkg.ID}); err != nil {
		return Package{}, errors.Wrap(err, "getting package sessions")
	}
	sortByNumber(pkg.Sessions)
	return pkg, nil
}

func (svc *Service) QueryPackages(ctx context.Context, filter PackageFilter) ([]Package, error) {
	return svc.repo.QueryPackages(ctx, filter)
}

// CurrentCycle returns the open package of a class/student pair and what is left of it.
func (svc *Service) CurrentCycle(ctx context.Context, classID, studentID string) (Cycle, error) {
	perPackage := svc.conf.Academy.PackageSize()
	cycle := Cycle{
		ClassID:    classID,
		StudentID:  studentID,
		Sessions:   []Session{},
		NextNumber: 1,
		Remaining:  perPackage,
	}

	pkg, err := svc.repo.GetOpenPackage(ctx, classID, studentID)
	if err != nil {
		if core.IsNotFound(err) {
			return cycle, nil
		}
		return Cycle{}, err
	}
	sessions, err := svc.repo.QuerySessions(ctx, SessionFilter{PackageID: pkg.ID})
	if err != nil {
		return Cycle{}, errors.Wrap(err, "getting package sessions")
	}
	sortByNumber(sessions)

	cycle.Package = &pkg
	cycle.Sessions = sessions
	cycle.NextNumber = len(sessions) + 1
	cycle.Remaining = perPackage - len(sessions)
	return cycle, nil
}
