package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
	appfs "github.com/trezcool/elimu/fs"
	logsvc "github.com/trezcool/elimu/services/logger"
	"github.com/trezcool/elimu/storage/database"
	inmemdb "github.com/trezcool/elimu/storage/database/inmem"
	pgrepos "github.com/trezcool/elimu/storage/database/postgres"
)

var logger core.Logger

func main() {
	conf := core.NewConfig()

	rbLogger := logsvc.NewRollbarLogger(conf, "ADMIN")
	rbLogger.Enable(!conf.Debug)
	logger = rbLogger

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	user.LoadCommonPasswords(appfs.FS, logger)

	cli := commandLine{
		validate:   validate,
		translator: translator,
		out:        os.Stdout,
	}

	// set up DB
	var db *sql.DB
	switch conf.Database.Engine {
	case database.EnginePostgres:
		dbx, err := database.Open(conf)
		errAndDie(err)
		errAndDie(database.Ping(dbx, 10))
		db = dbx.DB
		cli.db = db
		cli.usrRepo = pgrepos.NewUserRepository(dbx)
		cli.courseRepo = pgrepos.NewCourseRepository(dbx)
	default:
		mem := inmemdb.Open()
		cli.usrRepo = inmemdb.NewUserRepository(mem)
		cli.courseRepo = inmemdb.NewCourseRepository(mem)
	}
	cli.usrSvc = user.NewService(cli.usrRepo)
	cli.courseSvc = course.NewService(cli.courseRepo)

	// start CLI
	err := cli.run(os.Args)
	if db != nil {
		if cErr := db.Close(); cErr != nil {
			logger.Error(fmt.Sprintf("closing database: %v", cErr), cErr)
		}
	}
	_ = rbLogger.Sync()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
