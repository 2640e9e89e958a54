package lms

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

var (
	errCourseHasActiveEnrollments = core.NewValidationError(errors.New("cannot delete course with active enrollments; archive it instead"))

	defaultCourseLimit = 20
	maxCourseLimit     = 100
)

type CourseService struct {
	*base
}

type SearchCourses struct {
	Term     string `query:"q"`
	Category string `query:"category"`
	Level    Level  `query:"level"`
	Limit    int    `query:"limit"`
}

func (svc *CourseService) withInstructors(ctx context.Context, courses []Course) ([]CourseWithInstructor, error) {
	ids := make([]string, len(courses))
	for i, c := range courses {
		ids[i] = c.InstructorID
	}
	summaries, err := svc.userSummaries(ctx, ids, false)
	if err != nil {
		return nil, err
	}
	out := make([]CourseWithInstructor, len(courses))
	for i, c := range courses {
		out[i] = CourseWithInstructor{Course: c, Instructor: summaries[c.InstructorID]}
	}
	return out, nil
}

// ListPublished returns the newest published courses, optionally within a category.
func (svc *CourseService) ListPublished(ctx context.Context, category string, limit int) ([]CourseWithInstructor, error) {
	courses, err := svc.Courses.QueryCourses(ctx, CourseFilter{
		Status:   CoursePublished,
		Category: core.CleanString(category),
		Limit:    core.ClampLimit(limit, defaultCourseLimit, maxCourseLimit),
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return svc.withInstructors(ctx, courses)
}

func (svc *CourseService) GetWithModules(ctx context.Context, caller *user.User, id string) (CourseDetail, error) {
	c, err := svc.getCourse(ctx, id)
	if err != nil {
		return CourseDetail{}, err
	}
	if err = checkRead(caller, &c); err != nil {
		return CourseDetail{}, err
	}

	modules, err := svc.Modules.GetModulesByCourse(ctx, c.ID)
	if err != nil {
		return CourseDetail{}, errors.Wrap(err, "getting modules")
	}
	summaries, err := svc.userSummaries(ctx, []string{c.InstructorID}, false)
	if err != nil {
		return CourseDetail{}, err
	}
	return CourseDetail{Course: c, Instructor: summaries[c.InstructorID], Modules: modules}, nil
}

// ListByInstructor returns the caller's courses. Admins may list another instructor's courses.
func (svc *CourseService) ListByInstructor(ctx context.Context, caller *user.User, instructorID string, includeStats bool) ([]CourseWithStats, error) {
	if err := checkAuthor(caller); err != nil {
		return nil, err
	}
	if instructorID == "" {
		instructorID = caller.ID
	} else if instructorID != caller.ID && !isAdmin(caller) {
		return nil, errPermissionDenied
	}

	courses, err := svc.Courses.QueryCourses(ctx, CourseFilter{InstructorID: instructorID})
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}

	out := make([]CourseWithStats, len(courses))
	for i, c := range courses {
		out[i] = CourseWithStats{Course: c}
	}
	if !includeStats || len(courses) == 0 {
		return out, nil
	}

	ids := make([]string, len(courses))
	for i, c := range courses {
		ids[i] = c.ID
	}
	enrollments, err := svc.Enrollments.QueryEnrollments(ctx, EnrollmentFilter{CourseIDs: ids})
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	byCourse := make(map[string][]Enrollment, len(courses))
	for _, e := range enrollments {
		byCourse[e.CourseID] = append(byCourse[e.CourseID], e)
	}
	for i := range out {
		stats := computeCourseStats(byCourse[out[i].ID])
		out[i].Stats = &stats
	}
	return out, nil
}

// Search matches the term against the title, description and tags of published courses,
// best title matches first.
func (svc *CourseService) Search(ctx context.Context, q SearchCourses) ([]CourseWithInstructor, error) {
	courses, err := svc.Courses.QueryCourses(ctx, CourseFilter{
		Status:   CoursePublished,
		Category: core.CleanString(q.Category),
		Level:    q.Level,
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}

	term := core.CleanString(q.Term, true /* lower */)
	if term != "" {
		type ranked struct {
			course Course
			ratio  float64
		}
		matches := make([]ranked, 0, len(courses))
		for _, c := range courses {
			if !courseMatches(c, term) {
				continue
			}
			matches = append(matches, ranked{course: c, ratio: similarity(term, strings.ToLower(c.Title))})
		}
		sort.SliceStable(matches, func(i, j int) bool { return matches[i].ratio > matches[j].ratio })

		courses = courses[:0]
		for _, m := range matches {
			courses = append(courses, m.course)
		}
	}

	if limit := core.ClampLimit(q.Limit, defaultCourseLimit, maxCourseLimit); len(courses) > limit {
		courses = courses[:limit]
	}
	return svc.withInstructors(ctx, courses)
}

func courseMatches(c Course, term string) bool {
	if strings.Contains(strings.ToLower(c.Title), term) || strings.Contains(strings.ToLower(c.Description), term) {
		return true
	}
	for _, tag := range c.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

func similarity(a, b string) float64 {
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}

// Categories counts the published courses per category, most populated first.
func (svc *CourseService) Categories(ctx context.Context) ([]CategoryCount, error) {
	if svc.Cache != nil {
		var cached []CategoryCount
		found, err := svc.Cache.Get(ctx, categoriesCacheKey, &cached)
		if err != nil {
			svc.Logger.Warn(fmt.Sprintf("reading categories from cache: %v", err), err)
		} else if found {
			return cached, nil
		}
	}

	courses, err := svc.Courses.QueryCourses(ctx, CourseFilter{Status: CoursePublished})
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	counts := make(map[string]int)
	for _, c := range courses {
		counts[c.Category]++
	}
	out := make([]CategoryCount, 0, len(counts))
	for cat, n := range counts {
		out = append(out, CategoryCount{Category: cat, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})

	if svc.Cache != nil {
		if err = svc.Cache.Set(ctx, categoriesCacheKey, out, svc.CacheTTL); err != nil {
			svc.Logger.Warn(fmt.Sprintf("caching categories: %v", err), err)
		}
	}
	return out, nil
}

func (svc *CourseService) Create(ctx context.Context, caller *user.User, nc NewCourse) (Course, error) {
	if err := checkAuthor(caller); err != nil {
		return Course{}, err
	}
	nc.clean()
	now := core.NowMillis()
	c := Course{
		ID:                core.NewID(),
		Title:             nc.Title,
		Description:       nc.Description,
		InstructorID:      caller.ID,
		Category:          nc.Category,
		Level:             nc.Level,
		Status:            CourseDraft,
		Thumbnail:         core.CleanString(nc.Thumbnail),
		Tags:              nc.Tags,
		Objectives:        nc.Objectives,
		Prerequisites:     nc.Prerequisites,
		EstimatedDuration: nc.EstimatedDuration,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	c, err := svc.Courses.CreateCourse(ctx, c)
	return c, errors.Wrap(err, "creating course")
}

func (svc *CourseService) Update(ctx context.Context, caller *user.User, id string, uc UpdateCourse) (Course, error) {
	c, err := svc.getCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if err = checkWrite(caller, &c); err != nil {
		return Course{}, err
	}

	c = uc.apply(c)
	c.UpdatedAt = core.NowMillis()
	if c, err = svc.Courses.UpdateCourse(ctx, c); err != nil {
		return Course{}, errors.Wrap(err, "updating course")
	}
	if c.IsPublished() {
		svc.invalidateCatalog(ctx)
	}
	return c, nil
}

// SetStatus moves a course between draft, published and archived. The first publication is timestamped.
func (svc *CourseService) SetStatus(ctx context.Context, caller *user.User, id string, status CourseStatus) (Course, error) {
	if !status.Valid() {
		return Course{}, core.NewValidationError(nil, core.FieldError{Field: "status", Error: "invalid course status"})
	}
	c, err := svc.getCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if err = checkWrite(caller, &c); err != nil {
		return Course{}, err
	}
	if c.Status == status {
		return c, nil
	}

	now := core.NowMillis()
	c.Status = status
	if status == CoursePublished && c.PublishedAt == 0 {
		c.PublishedAt = now
	}
	c.UpdatedAt = now
	if c, err = svc.Courses.UpdateCourse(ctx, c); err != nil {
		return Course{}, errors.Wrap(err, "updating course")
	}
	svc.invalidateCatalog(ctx)
	return c, nil
}

// Delete removes a course with its whole tree, unless it has active enrollments.
func (svc *CourseService) Delete(ctx context.Context, caller *user.User, id string) error {
	c, err := svc.getCourse(ctx, id)
	if err != nil {
		return err
	}
	if err = checkWrite(caller, &c); err != nil {
		return err
	}

	err = svc.DB.WithinTx(ctx, func(exec core.DBExecutor) error {
		active, err := svc.Enrollments.QueryEnrollments(ctx, EnrollmentFilter{CourseIDs: []string{c.ID}, Status: EnrollmentActive}, exec)
		if err != nil {
			return errors.Wrap(err, "querying enrollments")
		}
		if len(active) > 0 {
			return errCourseHasActiveEnrollments
		}

		modules, err := svc.Modules.GetModulesByCourse(ctx, c.ID, exec)
		if err != nil {
			return errors.Wrap(err, "getting modules")
		}
		for _, m := range modules {
			if err = svc.deleteModuleTree(ctx, exec, m); err != nil {
				return err
			}
		}
		if err = svc.Enrollments.DeleteEnrollmentsByCourse(ctx, c.ID, exec); err != nil {
			return errors.Wrap(err, "deleting enrollments")
		}
		return errors.Wrap(svc.Courses.DeleteCourse(ctx, c.ID, exec), "deleting course")
	})
	if err != nil {
		return err
	}
	if c.IsPublished() {
		svc.invalidateCatalog(ctx)
	}
	return nil
}

// Duplicate copies a readable course, its modules and their exercises into a new draft owned by the caller.
func (svc *CourseService) Duplicate(ctx context.Context, caller *user.User, id, title string) (Course, error) {
	if err := checkAuthor(caller); err != nil {
		return Course{}, err
	}
	orig, err := svc.getCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if err = checkRead(caller, &orig); err != nil {
		return Course{}, err
	}

	title = core.CleanString(title)
	if title == "" {
		title = orig.Title + " (Copy)"
	}

	var dup Course
	err = svc.DB.WithinTx(ctx, func(exec core.DBExecutor) error {
		now := core.NowMillis()
		dup = orig
		dup.ID = core.NewID()
		dup.Title = title
		dup.InstructorID = caller.ID
		dup.Status = CourseDraft
		dup.EnrollmentCount = 0
		dup.AverageRating = nil
		dup.PublishedAt = 0
		dup.CreatedAt = now
		dup.UpdatedAt = now
		if dup, err = svc.Courses.CreateCourse(ctx, dup, exec); err != nil {
			return errors.Wrap(err, "creating course")
		}

		modules, err := svc.Modules.GetModulesByCourse(ctx, orig.ID, exec)
		if err != nil {
			return errors.Wrap(err, "getting modules")
		}
		for _, m := range modules {
			if _, err = svc.copyModule(ctx, exec, m, dup.ID, m.Order, m.Title); err != nil {
				return err
			}
		}
		return nil
	})
	return dup, err
}

// copyModule creates a copy of m, and of its exercises, at the given place.
func (b *base) copyModule(ctx context.Context, exec core.DBExecutor, m Module, courseID string, order int, title string) (Module, error) {
	now := core.NowMillis()
	origID := m.ID
	m.ID = core.NewID()
	m.CourseID = courseID
	m.Order = order
	m.Title = title
	m.CreatedAt = now
	m.UpdatedAt = now
	m, err := b.Modules.CreateModule(ctx, m, exec)
	if err != nil {
		return Module{}, errors.Wrap(err, "creating module")
	}

	exercises, err := b.Exercises.GetExercisesByModules(ctx, []string{origID}, exec)
	if err != nil {
		return Module{}, errors.Wrap(err, "getting exercises")
	}
	for _, ex := range exercises {
		if _, err = b.copyExercise(ctx, exec, ex, m.ID, ex.Title); err != nil {
			return Module{}, err
		}
	}
	return m, nil
}

func (b *base) copyExercise(ctx context.Context, exec core.DBExecutor, ex Exercise, moduleID, title string) (Exercise, error) {
	now := core.NowMillis()
	ex.ID = core.NewID()
	ex.ModuleID = moduleID
	ex.Title = title
	ex.AIGenerated = false
	ex.Options = append([]Option(nil), ex.Options...)
	ex.Tags = append([]string(nil), ex.Tags...)
	ex.CreatedAt = now
	ex.UpdatedAt = now
	ex, err := b.Exercises.CreateExercise(ctx, ex, exec)
	return ex, errors.Wrap(err, "creating exercise")
}
