package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/elimu/apps/api/echo"
	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/lms"
	"github.com/trezcool/elimu/core/user"
	cachesvc "github.com/trezcool/elimu/services/cache"
	emailsvc "github.com/trezcool/elimu/services/email"
	logsvc "github.com/trezcool/elimu/services/logger"
	"github.com/trezcool/elimu/storage/database"
	inmemdb "github.com/trezcool/elimu/storage/database/inmem"
	sqlxrepos "github.com/trezcool/elimu/storage/database/sqlx"
)

type repositories struct {
	db          core.Transactor
	users       user.Repository
	courses     lms.CourseRepository
	modules     lms.ModuleRepository
	exercises   lms.ExerciseRepository
	submissions lms.SubmissionRepository
	enrollments lms.EnrollmentRepository
	progress    lms.ProgressRepository
	health      echoapi.HealthCheck
	close       func() error
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	sugar, err := logsvc.NewZap(conf.Debug)
	if err != nil {
		log.Fatalf("setting up zap: %v", err)
	}
	logger := logsvc.NewRollbarLogger(sugar.Named("api"), conf)
	logger.Enable(!conf.Debug)
	defer logger.Sync()

	dbLogger := logsvc.NewRollbarLogger(sugar.Named("db"), conf)

	// set up storage
	repos, err := setUpStorage(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	defer func() {
		if err = repos.close(); err != nil {
			dbLogger.Error(fmt.Sprintf("failed to close: %v", err), err)
		}
	}()
	health := map[string]echoapi.HealthCheck{"database": repos.health}

	// set up cache
	var cache core.Cache
	if conf.Redis.Addr != "" {
		rc, err := cachesvc.NewRedisCache(context.Background(), conf.Redis)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up redis: %v", err), err)
		}
		defer rc.Close()
		cache = rc
		health["cache"] = rc.Ping
	} else {
		cache = cachesvc.NewMemoryCache()
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	lmsSvc := lms.NewServices(lms.Deps{
		DB:           repos.db,
		Users:        repos.users,
		Courses:      repos.courses,
		Modules:      repos.modules,
		Exercises:    repos.exercises,
		Submissions:  repos.submissions,
		Enrollments:  repos.enrollments,
		ProgressRows: repos.progress,
		Logger:       logger,
		Cache:        cache,
		CacheTTL:     conf.Redis.TTL,
		Mail:         mailSvc,
	})
	usrSvc := user.NewService(repos.db, repos.users, lmsSvc.Enrollments)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	lms.InitValidators(validate, translator)

	core.ParseEmailTemplates(logger, conf.Debug)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("storage").Set(conf.Storage)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			UserSvc:    usrSvc,
			LMS:        lmsSvc,
			Validate:   validate,
			Translator: translator,
			Health:     health,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpStorage(conf *core.Config) (*repositories, error) {
	if conf.Storage == core.StorageMemory {
		db := inmemdb.Open()
		return &repositories{
			db:          db,
			users:       inmemdb.NewUserRepository(db),
			courses:     inmemdb.NewCourseRepository(db),
			modules:     inmemdb.NewModuleRepository(db),
			exercises:   inmemdb.NewExerciseRepository(db),
			submissions: inmemdb.NewSubmissionRepository(db),
			enrollments: inmemdb.NewEnrollmentRepository(db),
			progress:    inmemdb.NewProgressRepository(db),
			health:      func(context.Context) error { return nil },
			close:       func() error { return nil },
		}, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &repositories{
		db:          database.NewTransactor(db),
		users:       sqlxrepos.NewUserRepository(db),
		courses:     sqlxrepos.NewCourseRepository(db),
		modules:     sqlxrepos.NewModuleRepository(db),
		exercises:   sqlxrepos.NewExerciseRepository(db),
		submissions: sqlxrepos.NewSubmissionRepository(db),
		enrollments: sqlxrepos.NewEnrollmentRepository(db),
		progress:    sqlxrepos.NewProgressRepository(db),
		health:      db.PingContext,
		close:       db.Close,
	}, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
