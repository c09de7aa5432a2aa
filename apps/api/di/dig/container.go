package dig_container

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/Jati804/internal-web-sanur-akademi-sub000/apps/api/echo"
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
	"github.com/Jati804/internal-web-sanur-akademi-sub000/services/throttle"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/storage/database"
	sqlxrepos "github.com/Jati804/internal-web-sanur-akademi-sub000/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

// newLimiter shares login attempts through redis when it is configured.
func newLimiter(conf *core.Config, logger core.Logger) core.AttemptLimiter {
	if conf.Redis.Addr == "" {
		logger.Info("redis is not configured; login attempts are throttled in memory")
		return throttle.NewMemoryLimiter(conf)
	}
	return throttle.NewRedisLimiter(throttle.NewRedisClient(conf), conf)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newClassService(repo class.Repository, users *user.Service, students *student.Service) *class.Service {
	return class.NewService(repo, users, students)
}

func newPayrollService(repo payroll.Repository, tx core.Transactor, ledgerSvc *ledger.Service, logger core.Logger) *payroll.Service {
	return payroll.NewService(repo, tx, ledgerSvc, logger)
}

func newAttendanceService(
	repo attendance.Repository,
	tx core.Transactor,
	classSvc *class.Service,
	usrSvc *user.Service,
	payrollSvc *payroll.Service,
	conf *core.Config,
	logger core.Logger,
) *attendance.Service {
	return attendance.NewService(repo, tx, classSvc, usrSvc, payrollSvc, conf, logger)
}

func newReceiptService(
	repo receipt.Repository,
	tx core.Transactor,
	ledgerSvc *ledger.Service,
	studentSvc *student.Service,
	attendanceSvc *attendance.Service,
	classSvc *class.Service,
	mailSvc core.EmailService,
	conf *core.Config,
	logger core.Logger,
) *receipt.Service {
	return receipt.NewService(repo, tx, ledgerSvc, studentSvc, attendanceSvc, classSvc, mailSvc, conf, logger)
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newLimiter))
	must(c.Provide(newEmailService))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))

	// storage
	must(c.Provide(sqlxrepos.NewTransactor))
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewStudentRepository))
	must(c.Provide(sqlxrepos.NewClassRepository))
	must(c.Provide(sqlxrepos.NewAttendanceRepository))
	must(c.Provide(sqlxrepos.NewPayrollRepository))
	must(c.Provide(sqlxrepos.NewLedgerRepository))
	must(c.Provide(sqlxrepos.NewReceiptRepository))

	// services
	must(c.Provide(user.NewService))
	must(c.Provide(student.NewService))
	must(c.Provide(ledger.NewService))
	must(c.Provide(newClassService))
	must(c.Provide(newPayrollService))
	must(c.Provide(newAttendanceService))
	must(c.Provide(newReceiptService))

	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
