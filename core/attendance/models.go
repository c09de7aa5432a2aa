package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
)

// Package statuses
const (
	PackageOpen      = "open"
	PackageCompleted = "completed"
)

// Session statuses; all of them count toward a package.
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusExcused = "excused"
)

var AllStatuses = []string{StatusPresent, StatusAbsent, StatusExcused}

// Package groups the sessions of one teaching cycle of a class/student pair.
type Package struct {
	ID                string    `json:"id"`
	ClassID           string    `json:"class_id"`
	StudentID         string    `json:"student_id"`
	OriginalTeacherID string    `json:"original_teacher_id"` // cycle owner
	Status            string    `json:"status"`
	StartedOn         core.Date `json:"started_on"`
	CompletedAt       time.Time `json:"completed_at"`
	SessionsDone      int       `json:"sessions_done"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	Sessions []Session `json:"sessions,omitempty"`
}

func (p Package) IsOpen() bool { return p.Status == PackageOpen }

// Session is one attendance row.
type Session struct {
	ID                string    `json:"id"`
	PackageID         string    `json:"package_id"`
	ClassID           string    `json:"class_id"`
	StudentID         string    `json:"student_id"`
	TeacherID         string    `json:"teacher_id"` // who taught
	OriginalTeacherID string    `json:"original_teacher_id"`
	SessionNumber     int       `json:"session_number"`
	SessionDate       core.Date `json:"session_date"`
	Status            string    `json:"status"`
	Topic             string    `json:"topic"`
	Notes             string    `json:"notes"`
	IsSubstitute      bool      `json:"is_substitute"`
	LoggedBy          string    `json:"logged_by"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Cycle is the state of the current package of a class/student pair.
type Cycle struct {
	ClassID    string    `json:"class_id"`
	StudentID  string    `json:"student_id"`
	Package    *Package  `json:"package"` // nil when no package is open
	Sessions   []Session `json:"sessions"`
	NextNumber int       `json:"next_session_number"`
	Remaining  int       `json:"remaining_sessions"`
}

// NewSession contains information needed to log a session.
type NewSession struct {
	ClassID     string    `json:"class_id" validate:"required,uuid"`
	StudentID   string    `json:"student_id" validate:"required,uuid"`
	TeacherID   string    `json:"teacher_id" validate:"omitempty,uuid"` // admins only
	SessionDate core.Date `json:"session_date"`
	Status      string    `json:"status" validate:"omitempty,oneof=present absent excused"`
	Topic       string    `json:"topic" validate:"max=255"`
	Notes       string    `json:"notes"`
	Substitute  bool      `json:"substitute"`
}

func (ns *NewSession) Validate(validate *validator.Validate) error {
	ns.Status = core.CleanString(ns.Status, true /* lower */)
	ns.Topic = core.CleanString(ns.Topic)
	ns.Notes = core.CleanString(ns.Notes)
	if err := validate.Struct(ns); err != nil {
		return err
	}
	if ns.Status == "" {
		ns.Status = StatusPresent
	}
	return validateDate(ns.SessionDate)
}

// UpdateSession replaces the editable fields of a Session.
type UpdateSession struct {
	SessionDate core.Date `json:"session_date"`
	Status      string    `json:"status" validate:"required,oneof=present absent excused"`
	Topic       string    `json:"topic" validate:"max=255"`
	Notes       string    `json:"notes"`
}

func (us *UpdateSession) Validate(validate *validator.Validate) error {
	us.Status = core.CleanString(us.Status, true /* lower */)
	us.Topic = core.CleanString(us.Topic)
	us.Notes = core.CleanString(us.Notes)
	if err := validate.Struct(us); err != nil {
		return err
	}
	return validateDate(us.SessionDate)
}

func validateDate(d core.Date) error {
	if d.IsZero() {
		return core.NewValidationError(nil, core.FieldError{Field: "session_date", Error: "this field is required"})
	}
	if d.After(core.Today()) {
		return core.NewValidationError(nil, core.FieldError{Field: "session_date", Error: "cannot be in the future"})
	}
	return nil
}

type SessionFilter struct {
	ClassID   string
	StudentID string
	TeacherID string
	PackageID string
	// VisibleTo restricts to sessions taught by or owned by this teacher.
	VisibleTo string
	DateFrom  core.Date
	DateTo    core.Date
}

type PackageFilter struct {
	ClassID           string
	StudentID         string
	OriginalTeacherID string
	Status            string
}
