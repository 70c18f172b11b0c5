package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	echoapi "github.com/trezcool/elimu/apps/api/echo"
	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/analytics"
	"github.com/trezcool/elimu/core/catalog"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/layout"
	"github.com/trezcool/elimu/core/order"
	"github.com/trezcool/elimu/core/user"
	appfs "github.com/trezcool/elimu/fs"
	emailsvc "github.com/trezcool/elimu/services/email"
	logsvc "github.com/trezcool/elimu/services/logger"
	"github.com/trezcool/elimu/storage/database"
	inmemdb "github.com/trezcool/elimu/storage/database/inmem"
	pgrepos "github.com/trezcool/elimu/storage/database/postgres"
)

type repositories struct {
	user   user.Repository
	course course.Repository
	layout layout.Repository
	order  order.Repository
	close  func() error
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(conf, "API")
	logger.Enable(!conf.Debug)
	defer logger.Sync()

	dbLogger := logsvc.NewRollbarLogger(conf, "DB")
	dbLogger.Enable(!conf.Debug)
	defer dbLogger.Sync()

	// set up DB
	repos, err := setUpRepositories(conf)
	if err != nil {
		dbLogger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = repos.close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(repos.user)
	courseSvc := course.NewService(repos.course)
	layoutSvc := layout.NewService(repos.layout)
	orderSvc := order.NewService(repos.order, courseSvc, mailSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	layout.InitValidators(validate, translator)

	core.ParseEmailTemplates(appfs.FS, conf, logger)

	user.LoadCommonPasswords(appfs.FS, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("dbEngine").Set(conf.Database.Engine)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:             conf,
		Logger:           logger,
		Validate:         validate,
		Translator:       translator,
		UserSvc:          usrSvc,
		PasswordResetSvc: user.NewPasswordResetService(usrSvc, mailSvc, conf),
		CourseSvc:        courseSvc,
		LayoutSvc:        layoutSvc,
		CatalogSvc:       catalog.NewService(courseSvc, layoutSvc),
		OrderSvc:         orderSvc,
		AnalyticsSvc:     analytics.NewService(usrSvc, courseSvc, orderSvc),
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpRepositories opens the storage engine picked by conf.Database.Engine.
func setUpRepositories(conf *core.Config) (*repositories, error) {
	switch conf.Database.Engine {
	case database.EngineMemory:
		db := inmemdb.Open()
		return &repositories{
			user:   inmemdb.NewUserRepository(db),
			course: inmemdb.NewCourseRepository(db),
			layout: inmemdb.NewLayoutRepository(db),
			order:  inmemdb.NewOrderRepository(db),
			close:  func() error { return nil },
		}, nil

	case database.EnginePostgres:
		db, err := setUpPostgres(conf)
		if err != nil {
			return nil, err
		}
		return &repositories{
			user:   pgrepos.NewUserRepository(db),
			course: pgrepos.NewCourseRepository(db),
			layout: pgrepos.NewLayoutRepository(db),
			order:  pgrepos.NewOrderRepository(db),
			close:  db.Close,
		}, nil
	}
	return nil, errors.Errorf("unknown database engine %q", conf.Database.Engine)
}

func setUpPostgres(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB, "up"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
