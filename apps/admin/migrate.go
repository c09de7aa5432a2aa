package main

import (
	"github.com/Jati804/internal-web-sanur-akademi-sub000/storage/database"
)

var gooseRunFunc = database.RunMigrations // mockable

func (cli *commandLine) migrate(args []string) error {
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], cli.db, arguments...)
}
