package student

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
)

var (
	// errors
	ErrNotFound     = core.NewNotFoundError("student not found")
	ErrNoteNotFound = core.NewNotFoundError("note not found")
	ErrHasHistory   = core.NewConflictError("student has attendance or payment history; set the status to dropped instead")
	ErrUserLinked   = errors.New("this user account is already linked to another student")
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
		GetStudent(ctx context.Context, id string, exec ...core.DBExecutor) (Student, error)
		GetStudentByUserID(ctx context.Context, userID string, exec ...core.DBExecutor) (Student, error)
		// QueryStudents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on name, nickname, guardian name or guardian phone.
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Student, error)
		UpdateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
		// DeleteStudent returns ErrHasHistory when attendance or receipts reference the student.
		DeleteStudent(ctx context.Context, id string, exec ...core.DBExecutor) error

		CreateNote(ctx context.Context, n Note, exec ...core.DBExecutor) (Note, error)
		GetNote(ctx context.Context, id string, exec ...core.DBExecutor) (Note, error)
		QueryNotes(ctx context.Context, filter NoteFilter, exec ...core.DBExecutor) ([]Note, error)
		UpdateNote(ctx context.Context, n Note, exec ...core.DBExecutor) (Note, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (svc *Service) checkUserLink(ctx context.Context, userID, exclID string) error {
	if userID == "" {
		return nil
	}
	other, err := svc.repo.GetStudentByUserID(ctx, userID)
	if err != nil {
		if core.IsNotFound(err) {
			return nil
		}
		return errors.Wrap(err, "finding student by user ID")
	}
	if other.ID != exclID {
		return core.NewValidationError(ErrUserLinked, core.FieldError{Field: "user_id", Error: ErrUserLinked.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	if err := svc.checkUserLink(ctx, ns.UserID, ""); err != nil {
		return Student{}, err
	}

	now := time.Now().UTC()
	s := Student{
		UserID:        ns.UserID,
		Name:          ns.Name,
		Nickname:      ns.Nickname,
		BirthDate:     ns.BirthDate,
		School:        ns.School,
		Grade:         ns.Grade,
		Program:       ns.Program,
		GuardianName:  ns.GuardianName,
		GuardianPhone: ns.GuardianPhone,
		GuardianEmail: ns.GuardianEmail,
		Address:       ns.Address,
		Status:        ns.Status,
		Source:        ns.Source,
		JoinedOn:      ns.JoinedOn,
		Notes:         ns.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if s.Status == "" {
		s.Status = StatusActive
	}
	if s.JoinedOn.IsZero() {
		s.JoinedOn = core.Today()
	}
	return svc.repo.CreateStudent(ctx, s)
}

func (svc *Service) Get(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *Service) GetByUserID(ctx context.Context, userID string) (Student, error) {
	return svc.repo.GetStudentByUserID(ctx, userID)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter, ordering)
}

func (svc *Service) Update(ctx context.Context, s Student, us UpdateStudent) (Student, error) {
	if err := svc.checkUserLink(ctx, us.UserID, s.ID); err != nil {
		return Student{}, err
	}

	s.UserID = us.UserID
	s.Name = us.Name
	s.Nickname = us.Nickname
	s.BirthDate = us.BirthDate
	s.School = us.School
	s.Grade = us.Grade
	s.Program = us.Program
	s.GuardianName = us.GuardianName
	s.GuardianPhone = us.GuardianPhone
	s.GuardianEmail = us.GuardianEmail
	s.Address = us.Address
	if us.Status != "" {
		s.Status = us.Status
	}
	s.Source = us.Source
	if !us.JoinedOn.IsZero() {
		s.JoinedOn = us.JoinedOn
	}
	s.Notes = us.Notes
	s.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, s)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteStudent(ctx, id)
}

// AddNote logs a CRM note about a Student.
func (svc *Service) AddNote(ctx context.Context, s Student, authorID string, nn NewNote) (Note, error) {
	n := Note{
		StudentID:  s.ID,
		AuthorID:   authorID,
		Kind:       nn.Kind,
		Body:       nn.Body,
		FollowUpOn: nn.FollowUpOn,
		CreatedAt:  time.Now().UTC(),
	}
	return svc.repo.CreateNote(ctx, n)
}

// ListNotes returns a Student's notes, newest first.
func (svc *Service) ListNotes(ctx context.Context, studentID string) ([]Note, error) {
	return svc.repo.QueryNotes(ctx, NoteFilter{StudentID: studentID})
}

func (svc *Service) ResolveNote(ctx context.Context, id string) (Note, error) {
	n, err := svc.repo.GetNote(ctx, id)
	if err != nil {
		return Note{}, err
	}
	if n.IsResolved() {
		return n, nil
	}
	n.ResolvedAt = time.Now().UTC()
	return svc.repo.UpdateNote(ctx, n)
}

// DueFollowUps returns the unresolved follow-ups due on or before until, oldest first.
func (svc *Service) DueFollowUps(ctx context.Context, until core.Date) ([]Note, error) {
	return svc.repo.QueryNotes(ctx, NoteFilter{
		Kind:           NoteKindFollowUp,
		Unresolved:     true,
		FollowUpBefore: until,
	})
}
