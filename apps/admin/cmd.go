package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/ledger"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/student"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf       *core.Config
	db         *sql.DB
	usrRepo    user.Repository
	studentSvc *student.Service
	ledgerSvc  *ledger.Service
	validate   *validator.Validate
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose command (up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix)")
	fmt.Println("  adduser -username USERNAME -email EMAIL [-name NAME] [-role owner|admin|teacher] - create or update a staff account")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Println("  importstudents -file FILE.xlsx - create students from a spreadsheet")
	fmt.Println("  exportcashbook [-from YYYY-MM-DD] [-to YYYY-MM-DD] -out FILE.xlsx - export the cash book")
}

// promptPassword reads a password from the terminal without echoing it.
func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	return string(pwd), err
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserName := addUserCmd.String("name", "", "The user's full name. Defaults to the username.")
	addUserRole := addUserCmd.String("role", "admin", "One of owner, admin or teacher. The password will be prompted next.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	importCmd := flag.NewFlagSet("importstudents", flag.ExitOnError)
	importFile := importCmd.String("file", "", "The xlsx workbook to import, laid out like the import template.")

	exportCmd := flag.NewFlagSet("exportcashbook", flag.ExitOnError)
	exportFrom := exportCmd.String("from", "", "First day (YYYY-MM-DD). Defaults to the first entry.")
	exportTo := exportCmd.String("to", "", "Last day (YYYY-MM-DD). Defaults to the last entry.")
	exportOut := exportCmd.String("out", "", "The xlsx file to write.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" && *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserUname, *addUserEmail, pwd, *addUserRole)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "importstudents":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importStudents(*importFile)

	case "exportcashbook":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *exportOut == "" {
			exportCmd.Usage()
			return errHelp
		}
		return cli.exportCashBook(*exportFrom, *exportTo, *exportOut)

	default:
		cli.printUsage()
		return errHelp
	}
}
