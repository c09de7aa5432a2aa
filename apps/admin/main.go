package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/ledger"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/student"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/user"
	logsvc "github.com/Jati804/internal-web-sanur-akademi-sub000/services/logger"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/storage/database"
	sqlxrepos "github.com/Jati804/internal-web-sanur-akademi-sub000/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	stdLogger := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(err.Error(), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(err.Error(), err)
	}

	// start CLI
	cli := commandLine{
		conf:       conf,
		db:         db.DB,
		usrRepo:    sqlxrepos.NewUserRepository(db),
		studentSvc: student.NewService(sqlxrepos.NewStudentRepository(db), logger),
		ledgerSvc:  ledger.NewService(sqlxrepos.NewLedgerRepository(db)),
		validate:   validate,
		out:        os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			stdLogger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
