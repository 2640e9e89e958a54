// Package testutil builds in-memory service stacks and fixtures for tests.
package testutil

import (
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/lms"
	"github.com/trezcool/elimu/core/user"
	cachesvc "github.com/trezcool/elimu/services/cache"
	emailsvc "github.com/trezcool/elimu/services/email"
	logsvc "github.com/trezcool/elimu/services/logger"
	inmemdb "github.com/trezcool/elimu/storage/database/inmem"
)

// Stack is a complete set of services backed by the in-memory store.
type Stack struct {
	Conf       *core.Config
	Logger     core.Logger
	DB         *inmemdb.DB
	Mail       *emailsvc.ConsoleServiceMock
	Cache      core.Cache
	Validate   *validator.Validate
	Translator ut.Translator

	Users       user.Repository
	Courses     lms.CourseRepository
	Modules     lms.ModuleRepository
	Exercises   lms.ExerciseRepository
	Submissions lms.SubmissionRepository
	Enrollments lms.EnrollmentRepository
	Progress    lms.ProgressRepository

	UserSvc *user.Service
	LMS     *lms.Services
}

func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true
	conf.SecretKey = "test-secret"
	conf.JWTIssuer = ""
	return conf
}

func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// NewStack wires every service on a fresh in-memory database.
func NewStack() *Stack {
	conf := NewConfig()
	logger := logsvc.NewRollbarLogger(zap.NewNop().Sugar(), conf)
	logger.Enable(false)
	core.ParseEmailTemplates(logger, true /* strict */)

	validate := validator.New()
	translator := NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	lms.InitValidators(validate, translator)

	db := inmemdb.Open()
	s := &Stack{
		Conf:        conf,
		Logger:      logger,
		DB:          db,
		Mail:        emailsvc.NewConsoleServiceMock(conf, logger),
		Cache:       cachesvc.NewMemoryCache(),
		Validate:    validate,
		Translator:  translator,
		Users:       inmemdb.NewUserRepository(db),
		Courses:     inmemdb.NewCourseRepository(db),
		Modules:     inmemdb.NewModuleRepository(db),
		Exercises:   inmemdb.NewExerciseRepository(db),
		Submissions: inmemdb.NewSubmissionRepository(db),
		Enrollments: inmemdb.NewEnrollmentRepository(db),
		Progress:    inmemdb.NewProgressRepository(db),
	}
	s.LMS = lms.NewServices(lms.Deps{
		DB:           db,
		Users:        s.Users,
		Courses:      s.Courses,
		Modules:      s.Modules,
		Exercises:    s.Exercises,
		Submissions:  s.Submissions,
		Enrollments:  s.Enrollments,
		ProgressRows: s.Progress,
		Logger:       logger,
		Cache:        s.Cache,
		Mail:         s.Mail,
	})
	s.UserSvc = user.NewService(db, s.Users, s.LMS.Enrollments)
	return s
}
