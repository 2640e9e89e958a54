package lms

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

const (
	categoriesCacheKey = "courses:categories"
	defaultCacheTTL    = 5 * time.Minute
)

// Deps gathers what the lms services need. Cache, Mail and Generator are optional.
type Deps struct {
	DB           core.Transactor
	Users        user.Repository
	Courses      CourseRepository
	Modules      ModuleRepository
	Exercises    ExerciseRepository
	Submissions  SubmissionRepository
	Enrollments  EnrollmentRepository
	ProgressRows ProgressRepository
	Logger       core.Logger
	Cache        core.Cache
	CacheTTL     time.Duration
	Mail         core.EmailService
	Generator    ExerciseGenerator
}

type base struct {
	Deps
}

type Services struct {
	Courses     *CourseService
	Modules     *ModuleService
	Exercises   *ExerciseService
	Enrollments *EnrollmentService
}

func NewServices(deps Deps) *Services {
	vala.BeginValidation().Validate(
		vala.IsNotNil(deps.DB, "DB"),
		vala.IsNotNil(deps.Users, "Users"),
		vala.IsNotNil(deps.Courses, "Courses"),
		vala.IsNotNil(deps.Modules, "Modules"),
		vala.IsNotNil(deps.Exercises, "Exercises"),
		vala.IsNotNil(deps.Submissions, "Submissions"),
		vala.IsNotNil(deps.Enrollments, "Enrollments"),
		vala.IsNotNil(deps.ProgressRows, "ProgressRows"),
		vala.IsNotNil(deps.Logger, "Logger"),
	).CheckAndPanic()

	if deps.Generator == nil {
		deps.Generator = PlaceholderGenerator{}
	}
	if deps.CacheTTL <= 0 {
		deps.CacheTTL = defaultCacheTTL
	}

	b := &base{Deps: deps}
	return &Services{
		Courses:     &CourseService{b},
		Modules:     &ModuleService{b},
		Exercises:   &ExerciseService{b},
		Enrollments: &EnrollmentService{b},
	}
}

// loaders

func (b *base) getCourse(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error) {
	c, err := b.Courses.GetCourseByID(ctx, id, exec...)
	if err != nil {
		if errors.Cause(err) == ErrCourseNotFound {
			return Course{}, ErrCourseNotFound
		}
		return Course{}, errors.Wrap(err, "getting course")
	}
	return c, nil
}

func (b *base) getModule(ctx context.Context, id string, exec ...core.DBExecutor) (Module, Course, error) {
	m, err := b.Modules.GetModuleByID(ctx, id, exec...)
	if err != nil {
		if errors.Cause(err) == ErrModuleNotFound {
			return Module{}, Course{}, ErrModuleNotFound
		}
		return Module{}, Course{}, errors.Wrap(err, "getting module")
	}
	c, err := b.getCourse(ctx, m.CourseID, exec...)
	return m, c, err
}

func (b *base) getExercise(ctx context.Context, id string, exec ...core.DBExecutor) (Exercise, Module, Course, error) {
	ex, err := b.Exercises.GetExerciseByID(ctx, id, exec...)
	if err != nil {
		if errors.Cause(err) == ErrExerciseNotFound {
			return Exercise{}, Module{}, Course{}, ErrExerciseNotFound
		}
		return Exercise{}, Module{}, Course{}, errors.Wrap(err, "getting exercise")
	}
	m, c, err := b.getModule(ctx, ex.ModuleID, exec...)
	return ex, m, c, err
}

// userSummaries maps user ids to their public summary. Unknown ids are left out.
func (b *base) userSummaries(ctx context.Context, ids []string, withEmail bool) (map[string]*user.Summary, error) {
	out := make(map[string]*user.Summary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	users, err := b.Users.GetUsersByID(ctx, core.CleanStrings(ids))
	if err != nil {
		return nil, errors.Wrap(err, "getting users")
	}
	for i := range users {
		out[users[i].ID] = users[i].Summary(withEmail)
	}
	return out, nil
}

// cascades

// deleteModuleTree removes a module with its exercises, their submissions and its progress rows,
// and strips it from the enrollments of its course. Orders are left untouched.
func (b *base) deleteModuleTree(ctx context.Context, exec core.DBExecutor, m Module) error {
	exercises, err := b.Exercises.GetExercisesByModules(ctx, []string{m.ID}, exec)
	if err != nil {
		return errors.Wrap(err, "getting exercises")
	}
	if len(exercises) > 0 {
		ids := make([]string, len(exercises))
		for i, ex := range exercises {
			ids[i] = ex.ID
		}
		if err = b.Submissions.DeleteSubmissionsByExercises(ctx, ids, exec); err != nil {
			return errors.Wrap(err, "deleting submissions")
		}
		for _, id := range ids {
			if err = b.Exercises.DeleteExercise(ctx, id, exec); err != nil {
				return errors.Wrap(err, "deleting exercise")
			}
		}
	}

	if err = b.ProgressRows.DeleteProgressByModule(ctx, m.ID, exec); err != nil {
		return errors.Wrap(err, "deleting module progress")
	}

	enrollments, err := b.Enrollments.QueryEnrollments(ctx, EnrollmentFilter{CourseIDs: []string{m.CourseID}}, exec)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	for _, enr := range enrollments {
		if !stripModule(&enr, m.ID) {
			continue
		}
		if _, err = b.Enrollments.UpdateEnrollment(ctx, enr, exec); err != nil {
			return errors.Wrap(err, "updating enrollment")
		}
	}

	return errors.Wrap(b.Modules.DeleteModule(ctx, m.ID, exec), "deleting module")
}

func stripModule(enr *Enrollment, moduleID string) bool {
	changed := false
	kept := make([]string, 0, len(enr.CompletedModules))
	for _, id := range enr.CompletedModules {
		if id == moduleID {
			changed = true
			continue
		}
		kept = append(kept, id)
	}
	enr.CompletedModules = kept
	if enr.CurrentModuleID == moduleID {
		enr.CurrentModuleID = ""
		changed = true
	}
	return changed
}

// renumberModules rewrites the orders of the course modules to 1..N, keeping their relative order.
func (b *base) renumberModules(ctx context.Context, exec core.DBExecutor, courseID string) ([]Module, error) {
	modules, err := b.Modules.GetModulesByCourse(ctx, courseID, exec)
	if err != nil {
		return nil, errors.Wrap(err, "getting modules")
	}
	ids := make([]string, len(modules))
	for i := range modules {
		ids[i] = modules[i].ID
		modules[i].Order = i + 1
	}
	if err = b.Modules.SetModuleOrders(ctx, courseID, ids, exec); err != nil {
		return nil, errors.Wrap(err, "renumbering modules")
	}
	return modules, nil
}

// recalculate refreshes the aggregate fields of enr and persists them when the course has modules.
func (b *base) recalculate(ctx context.Context, exec core.DBExecutor, enr Enrollment, modules []Module) (Enrollment, error) {
	rows, err := b.ProgressRows.GetProgressByEnrollment(ctx, enr.ID, exec)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "getting module progress")
	}
	updated, ok := RecalculateProgress(enr, modules, rows, core.NowMillis())
	if !ok {
		return enr, nil
	}
	updated, err = b.Enrollments.UpdateEnrollment(ctx, updated, exec)
	return updated, errors.Wrap(err, "updating enrollment")
}

// recalculateCourse refreshes every enrollment of a course.
func (b *base) recalculateCourse(ctx context.Context, exec core.DBExecutor, courseID string, modules []Module) error {
	enrollments, err := b.Enrollments.QueryEnrollments(ctx, EnrollmentFilter{CourseIDs: []string{courseID}}, exec)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	for _, enr := range enrollments {
		if _, err = b.recalculate(ctx, exec, enr, modules); err != nil {
			return err
		}
	}
	return nil
}

// cache & notifications

func (b *base) invalidateCatalog(ctx context.Context) {
	if b.Cache == nil {
		return
	}
	if err := b.Cache.Delete(ctx, categoriesCacheKey); err != nil {
		b.Logger.Warn(fmt.Sprintf("invalidating catalog cache: %v", err), err)
	}
}

type courseMailData struct {
	Name        string
	CourseID    string
	CourseTitle string
}

// notify emails a learner who opted in to email notifications.
func (b *base) notify(ctx context.Context, studentID string, course Course, subject, tmpl string) {
	if b.Mail == nil {
		return
	}
	usr, err := b.Users.GetUserByID(ctx, studentID)
	if err != nil {
		b.Logger.Warn(fmt.Sprintf("loading user %s for notification: %v", studentID, err), err)
		return
	}
	if !usr.Preferences.EmailNotifications || usr.Email == "" {
		return
	}
	b.Mail.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: courseMailData{Name: usr.Name, CourseID: course.ID, CourseTitle: course.Title},
	})
}
