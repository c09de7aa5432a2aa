package class

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
)

type Class struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Subject    string          `json:"subject"`
	Level      string          `json:"level"`
	TeacherID  string          `json:"teacher_id"` // assigned teacher; owns new session packages
	StudentIDs []string        `json:"student_ids"`
	PackageFee decimal.Decimal `json:"package_fee"` // price of one package, per student
	TeacherFee decimal.Decimal `json:"teacher_fee"` // teacher pay per session
	Schedule   string          `json:"schedule"`
	IsActive   bool            `json:"is_active"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// HasStudent reports whether the student is enrolled in the Class.
func (c Class) HasStudent(studentID string) bool {
	return core.StringInSlice(studentID, c.StudentIDs)
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	Name       string          `json:"name" validate:"required,notblank,max=120"`
	Subject    string          `json:"subject" validate:"required,notblank,max=60"`
	Level      string          `json:"level" validate:"max=30"`
	TeacherID  string          `json:"teacher_id" validate:"required,uuid"`
	StudentIDs []string        `json:"student_ids" validate:"dive,uuid"`
	PackageFee decimal.Decimal `json:"package_fee" validate:"gte=0"`
	TeacherFee decimal.Decimal `json:"teacher_fee" validate:"gte=0"`
	Schedule   string          `json:"schedule" validate:"max=255"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Subject = core.CleanString(nc.Subject)
	nc.Level = core.CleanString(nc.Level)
	nc.Schedule = core.CleanString(nc.Schedule)
	nc.StudentIDs = dedup(nc.StudentIDs)
	return validate.Struct(nc)
}

// UpdateClass replaces the editable fields of a Class.
type UpdateClass struct {
	NewClass
	IsActive *bool `json:"is_active"`
}

func (uc *UpdateClass) Validate(validate *validator.Validate) error {
	return uc.NewClass.Validate(validate)
}

type QueryFilter struct {
	Search    string
	TeacherID string
	StudentID string
	IsActive  *bool
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

func dedup(ids []string) []string {
	if ids == nil {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = core.CleanString(id, true /* lower */)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
