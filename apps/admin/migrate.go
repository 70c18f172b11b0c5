package main

import (
	"github.com/trezcool/elimu/storage/database"
)

var migrateFunc = database.Migrate // mockable

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoDatabase
	}
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return migrateFunc(cli.db, args[0], arguments...)
}
