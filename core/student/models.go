package student

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
)

// Statuses
const (
	StatusLead      = "lead"
	StatusTrial     = "trial"
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusGraduated = "graduated"
	StatusDropped   = "dropped"
)

var AllStatuses = []string{StatusLead, StatusTrial, StatusActive, StatusPaused, StatusGraduated, StatusDropped}

// Note kinds
const (
	NoteKindNote     = "note"
	NoteKindCall     = "call"
	NoteKindVisit    = "visit"
	NoteKindFollowUp = "follow_up"
)

type Student struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"` // student portal account, if any
	Name          string    `json:"name"`
	Nickname      string    `json:"nickname"`
	BirthDate     core.Date `json:"birth_date"`
	School        string    `json:"school"`
	Grade         string    `json:"grade"`
	Program       string    `json:"program"`
	GuardianName  string    `json:"guardian_name"`
	GuardianPhone string    `json:"guardian_phone"`
	GuardianEmail string    `json:"guardian_email"`
	Address       string    `json:"address"`
	Status        string    `json:"status"`
	Source        string    `json:"source"`
	JoinedOn      core.Date `json:"joined_on"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DisplayName returns the nickname when set.
func (s Student) DisplayName() string {
	if s.Nickname != "" {
		return s.Nickname
	}
	return s.Name
}

// Note is a CRM log entry about a Student.
type Note struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	AuthorID   string    `json:"author_id"`
	Kind       string    `json:"kind"`
	Body       string    `json:"body"`
	FollowUpOn core.Date `json:"follow_up_on"`
	ResolvedAt time.Time `json:"resolved_at"`
	CreatedAt  time.Time `json:"created_at"`
}

func (n Note) IsResolved() bool { return !n.ResolvedAt.IsZero() }

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	UserID        string    `json:"user_id" validate:"omitempty,uuid"`
	Name          string    `json:"name" validate:"required,notblank,max=120"`
	Nickname      string    `json:"nickname" validate:"max=60"`
	BirthDate     core.Date `json:"birth_date"`
	School        string    `json:"school" validate:"max=120"`
	Grade         string    `json:"grade" validate:"max=30"`
	Program       string    `json:"program" validate:"max=60"`
	GuardianName  string    `json:"guardian_name" validate:"max=120"`
	GuardianPhone string    `json:"guardian_phone" validate:"omitempty,phone"`
	GuardianEmail string    `json:"guardian_email" validate:"omitempty,email"`
	Address       string    `json:"address"`
	Status        string    `json:"status" validate:"omitempty,oneof=lead trial active paused graduated dropped"`
	Source        string    `json:"source" validate:"max=60"`
	JoinedOn      core.Date `json:"joined_on"`
	Notes         string    `json:"notes"`
}

func (ns *NewStudent) clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.Nickname = core.CleanString(ns.Nickname)
	ns.School = core.CleanString(ns.School)
	ns.Grade = core.CleanString(ns.Grade)
	ns.Program = core.CleanString(ns.Program)
	ns.GuardianName = core.CleanString(ns.GuardianName)
	ns.GuardianPhone = core.CleanString(ns.GuardianPhone)
	ns.GuardianEmail = core.CleanString(ns.GuardianEmail, true /* lower */)
	ns.Address = core.CleanString(ns.Address)
	ns.Status = core.CleanString(ns.Status, true /* lower */)
	ns.Source = core.CleanString(ns.Source)
	ns.Notes = core.CleanString(ns.Notes)
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.clean()
	if err := validate.Struct(ns); err != nil {
		return err
	}
	if !ns.BirthDate.IsZero() && ns.BirthDate.After(core.Today()) {
		return core.NewValidationError(nil, core.FieldError{Field: "birth_date", Error: "cannot be in the future"})
	}
	return nil
}

// UpdateStudent replaces the editable fields of a Student.
type UpdateStudent NewStudent

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	ns := NewStudent(*us)
	if err := ns.Validate(validate); err != nil {
		return err
	}
	*us = UpdateStudent(ns)
	return nil
}

type NewNote struct {
	Kind       string    `json:"kind" validate:"required,oneof=note call visit follow_up"`
	Body       string    `json:"body" validate:"required,notblank"`
	FollowUpOn core.Date `json:"follow_up_on"`
}

func (nn *NewNote) Validate(validate *validator.Validate) error {
	nn.Kind = core.CleanString(nn.Kind, true /* lower */)
	nn.Body = core.CleanString(nn.Body)
	if err := validate.Struct(nn); err != nil {
		return err
	}
	if nn.Kind == NoteKindFollowUp && nn.FollowUpOn.IsZero() {
		return core.NewValidationError(nil, core.FieldError{Field: "follow_up_on", Error: "this field is required"})
	}
	return nil
}

type QueryFilter struct {
	Search   string
	Statuses []string
	Program  string
	IDs      []string // restrict to these students; nil means no restriction
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Program = core.CleanString(qf.Program)
}

type NoteFilter struct {
	StudentID      string
	Kind           string
	Unresolved     bool
	FollowUpBefore core.Date // follow-ups due on or before
}
