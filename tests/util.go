package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/attendance"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/class"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/ledger"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/payroll"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/receipt"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/student"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/user"
	emailsvc "github.com/Jati804/internal-web-sanur-akademi-sub000/services/email"
	logsvc "github.com/Jati804/internal-web-sanur-akademi-sub000/services/logger"
	inmemdb "github.com/Jati804/internal-web-sanur-akademi-sub000/storage/database/inmem"
)

// Env is a fully wired set of services backed by in-memory storage.
type Env struct {
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	MailSvc    core.EmailService
	DB         *inmemdb.DB
	Tx         core.Transactor

	UserRepo       user.Repository
	StudentRepo    student.Repository
	ClassRepo      class.Repository
	AttendanceRepo attendance.Repository
	PayrollRepo    payroll.Repository
	LedgerRepo     ledger.Repository
	ReceiptRepo    receipt.Repository

	UserSvc       *user.Service
	StudentSvc    *student.Service
	ClassSvc      *class.Service
	AttendanceSvc *attendance.Service
	PayrollSvc    *payroll.Service
	LedgerSvc     *ledger.Service
	ReceiptSvc    *receipt.Service
}

func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", log.LstdFlags), conf)
}

// NewEnv wires every service on a fresh in-memory database.
func NewEnv() *Env {
	conf := core.NewTestConfig()
	logger := NewLogger(conf)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	core.ParseEmailTemplates(logger)
	user.LoadCommonPasswords(logger)

	env := &Env{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		MailSvc:    emailsvc.NewConsoleServiceMock(conf, logger),
		DB:         inmemdb.Open(),
	}
	env.Tx = inmemdb.NewTransactor(env.DB)
	env.UserRepo = inmemdb.NewUserRepository(env.DB)
	env.StudentRepo = inmemdb.NewStudentRepository(env.DB)
	env.ClassRepo = inmemdb.NewClassRepository(env.DB)
	env.AttendanceRepo = inmemdb.NewAttendanceRepository(env.DB)
	env.PayrollRepo = inmemdb.NewPayrollRepository(env.DB)
	env.LedgerRepo = inmemdb.NewLedgerRepository(env.DB)
	env.ReceiptRepo = inmemdb.NewReceiptRepository(env.DB)

	env.UserSvc = user.NewService(env.UserRepo, env.MailSvc, conf)
	env.StudentSvc = student.NewService(env.StudentRepo, logger)
	env.ClassSvc = class.NewService(env.ClassRepo, env.UserSvc, env.StudentSvc)
	env.LedgerSvc = ledger.NewService(env.LedgerRepo)
	env.PayrollSvc = payroll.NewService(env.PayrollRepo, env.Tx, env.LedgerSvc, logger)
	env.AttendanceSvc = attendance.NewService(env.AttendanceRepo, env.Tx, env.ClassSvc, env.UserSvc, env.PayrollSvc, conf, logger)
	env.ReceiptSvc = receipt.NewService(
		env.ReceiptRepo, env.Tx, env.LedgerSvc, env.StudentSvc, env.AttendanceSvc, env.ClassSvc, env.MailSvc, conf, logger,
	)
	return env
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateStudent adds an active student; userID links a portal account when not empty.
func CreateStudent(t *testing.T, repo student.Repository, name, userID string, guardianEmail ...string) student.Student {
	now := time.Now().UTC()
	s := student.Student{
		UserID:       userID,
		Name:         name,
		GuardianName: "Parent of " + name,
		Status:       student.StatusActive,
		JoinedOn:     core.Today(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if len(guardianEmail) > 0 {
		s.GuardianEmail = guardianEmail[0]
	}
	s, err := repo.CreateStudent(context.Background(), s)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}

// CreateClass adds an active class taught by teacherID.
func CreateClass(t *testing.T, repo class.Repository, name, teacherID string, packageFee, teacherFee int64, studentIDs ...string) class.Class {
	now := time.Now().UTC()
	c := class.Class{
		Name:       name,
		Subject:    "Math",
		TeacherID:  teacherID,
		StudentIDs: studentIDs,
		PackageFee: decimal.NewFromInt(packageFee),
		TeacherFee: decimal.NewFromInt(teacherFee),
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	c, err := repo.CreateClass(context.Background(), c)
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return c
}

// LogSessions logs n consecutive daily sessions for a pair, ending today.
func LogSessions(t *testing.T, svc *attendance.Service, actor user.User, classID, studentID string, n int, substitute ...bool) []attendance.Session {
	sessions := make([]attendance.Session, 0, n)
	start := core.Today().AddDate(0, 0, -n+1)
	for i := 0; i < n; i++ {
		ns := attendance.NewSession{
			ClassID:     classID,
			StudentID:   studentID,
			SessionDate: core.DateOf(start.AddDate(0, 0, i)),
			Status:      attendance.StatusPresent,
			Substitute:  len(substitute) > 0 && substitute[0],
		}
		sess, err := svc.LogSession(context.Background(), actor, ns)
		if err != nil {
			t.Fatalf("LogSessions() failed at session %d: %v", i+1, err)
		}
		sessions = append(sessions, sess)
	}
	return sessions
}
