package lms

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

var (
	errModulesNotFound   = core.NewValidationError(errors.New("some modules not found"))
	errModulesMixed      = core.NewValidationError(errors.New("all modules must belong to the same course"))
	errModulesIncomplete = core.NewValidationError(errors.New("module ids must list every module of the course exactly once"))
)

type ModuleService struct {
	*base
}

// progressFor returns the caller's progress rows in a course keyed by module id, or nil when not enrolled.
func (b *base) progressFor(ctx context.Context, caller *user.User, courseID string) (map[string]ModuleProgress, error) {
	if caller == nil {
		return nil, nil
	}
	enr, err := b.Enrollments.GetEnrollment(ctx, courseID, caller.ID)
	if err != nil {
		if errors.Cause(err) == ErrEnrollmentNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(err, "getting enrollment")
	}
	rows, err := b.ProgressRows.GetProgressByEnrollment(ctx, enr.ID)
	if err != nil {
		return nil, errors.Wrap(err, "getting module progress")
	}
	out := make(map[string]ModuleProgress, len(rows))
	for _, r := range rows {
		out[r.ModuleID] = r
	}
	return out, nil
}

func (svc *ModuleService) ListByCourse(ctx context.Context, caller *user.User, courseID string, includeProgress bool) ([]ModuleWithProgress, error) {
	c, err := svc.getCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err = checkRead(caller, &c); err != nil {
		return nil, err
	}

	modules, err := svc.Modules.GetModulesByCourse(ctx, c.ID)
	if err != nil {
		return nil, errors.Wrap(err, "getting modules")
	}

	var progress map[string]ModuleProgress
	if includeProgress {
		if progress, err = svc.progressFor(ctx, caller, c.ID); err != nil {
			return nil, err
		}
	}

	out := make([]ModuleWithProgress, len(modules))
	for i, m := range modules {
		out[i] = ModuleWithProgress{Module: m}
		if p, ok := progress[m.ID]; ok {
			out[i].Progress = &p
		}
	}
	return out, nil
}

// GetWithExercises returns a module with its course and exercises. With includeProgress, the
// caller's progress row and latest submission per exercise are attached.
func (svc *ModuleService) GetWithExercises(ctx context.Context, caller *user.User, id string, includeProgress bool) (ModuleDetail, error) {
	m, c, err := svc.getModule(ctx, id)
	if err != nil {
		return ModuleDetail{}, err
	}
	if err = checkRead(caller, &c); err != nil {
		return ModuleDetail{}, err
	}

	exercises, err := svc.Exercises.GetExercisesByModules(ctx, []string{m.ID})
	if err != nil {
		return ModuleDetail{}, errors.Wrap(err, "getting exercises")
	}

	detail := ModuleDetail{Module: m, Course: c, Exercises: make([]ExerciseWithLatest, len(exercises))}
	canWrite := CanWrite(caller, &c)
	for i, ex := range exercises {
		if !canWrite {
			ex = ex.Redacted()
		}
		detail.Exercises[i] = ExerciseWithLatest{Exercise: ex}
	}

	if !includeProgress || caller == nil {
		return detail, nil
	}

	progress, err := svc.progressFor(ctx, caller, c.ID)
	if err != nil {
		return ModuleDetail{}, err
	}
	if p, ok := progress[m.ID]; ok {
		detail.Progress = &p
	}
	if len(exercises) > 0 {
		ids := make([]string, len(exercises))
		for i, ex := range exercises {
			ids[i] = ex.ID
		}
		subs, err := svc.Submissions.QuerySubmissions(ctx, SubmissionFilter{StudentID: caller.ID, ExerciseIDs: ids})
		if err != nil {
			return ModuleDetail{}, errors.Wrap(err, "querying submissions")
		}
		byExercise := groupSubmissions(subs)
		for i := range detail.Exercises {
			detail.Exercises[i].LatestSubmission = latestSubmission(byExercise[detail.Exercises[i].ID])
		}
	}
	return detail, nil
}

func groupSubmissions(subs []Submission) map[string][]Submission {
	out := make(map[string][]Submission)
	for _, s := range subs {
		out[s.ExerciseID] = append(out[s.ExerciseID], s)
	}
	return out
}

// ListByInstructor returns the modules of every course the caller owns (all courses for an admin).
func (svc *ModuleService) ListByInstructor(ctx context.Context, caller *user.User, includeStats bool) ([]InstructorModule, error) {
	if err := checkAuthor(caller); err != nil {
		return nil, err
	}
	filter := CourseFilter{InstructorID: caller.ID}
	if isAdmin(caller) {
		filter = CourseFilter{}
	}
	courses, err := svc.Courses.QueryCourses(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	if len(courses) == 0 {
		return []InstructorModule{}, nil
	}

	titles := make(map[string]string, len(courses))
	ids := make([]string, len(courses))
	for i, c := range courses {
		titles[c.ID] = c.Title
		ids[i] = c.ID
	}
	modules, err := svc.Modules.GetModulesByCourses(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "getting modules")
	}

	out := make([]InstructorModule, len(modules))
	for i, m := range modules {
		out[i] = InstructorModule{Module: m, CourseTitle: titles[m.CourseID]}
		if !includeStats {
			continue
		}
		rows, err := svc.ProgressRows.GetProgressByModule(ctx, m.ID)
		if err != nil {
			return nil, errors.Wrap(err, "getting module progress")
		}
		stats := computeModuleStats(rows)
		out[i].Stats = &stats
	}
	return out, nil
}

// Create appends a module to a course and starts a progress row for every active enrollee.
func (svc *ModuleService) Create(ctx context.Context, caller *user.User, courseID string, nm NewModule) (Module, error) {
	c, err := svc.getCourse(ctx, courseID)
	if err != nil {
		return Module{}, err
	}
	if err = checkWrite(caller, &c); err != nil {
		return Module{}, err
	}
	nm.clean()

	var m Module
	err = svc.DB.WithinTx(ctx, func(exec core.DBExecutor) error {
		existing, err := svc.Modules.GetModulesByCourse(ctx, c.ID, exec)
		if err != nil {
			return errors.Wrap(err, "getting modules")
		}

		now := core.NowMillis()
		m = Module{
			ID:                core.NewID(),
			CourseID:          c.ID,
			Title:             nm.Title,
			Description:       nm.Description,
			Content:           nm.Content,
			Type:              nm.Type,
			Order:             len(existing) + 1,
			VideoURL:          core.CleanString(nm.VideoURL),
			Attachments:       nm.Attachments,
			EstimatedDuration: nm.EstimatedDuration,
			IsRequired:        nm.IsRequired == nil || *nm.IsRequired,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if m, err = svc.Modules.CreateModule(ctx, m, exec); err != nil {
			return errors.Wrap(err, "creating module")
		}

		active, err := svc.Enrollments.QueryEnrollments(ctx, EnrollmentFilter{CourseIDs: []string{c.ID}, Status: EnrollmentActive}, exec)
		if err != nil {
			return errors.Wrap(err, "querying enrollments")
		}
		modules := append(existing, m)
		for _, enr := range active {
			if _, err = svc.ProgressRows.CreateModuleProgress(ctx, newModuleProgress(enr, m.ID), exec); err != nil {
				return errors.Wrap(err, "creating module progress")
			}
			if _, err = svc.recalculate(ctx, exec, enr, modules); err != nil {
				return err
			}
		}
		return nil
	})
	return m, err
}

func (svc *ModuleService) Update(ctx context.Context, caller *user.User, id string, um UpdateModule) (Module, error) {
	m, c, err := svc.getModule(ctx, id)
	if err != nil {
		return Module{}, err
	}
	if err = checkWrite(caller, &c); err != nil {
		return Module{}, err
	}
	m = um.apply(m)
	m.UpdatedAt = core.NowMillis()
	m, err = svc.Modules.UpdateModule(ctx, m)
	return m, errors.Wrap(err, "updating module")
}

// Reorder sets the order of the course modules to the position of their id in ids.
// ids must contain every module of the course exactly once.
func (svc *ModuleService) Reorder(ctx context.Context, caller *user.User, courseID string, ids []string) ([]Module, error) {
	c, err := svc.getCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err = checkWrite(caller, &c); err != nil {
		return nil, err
	}

	var modules []Module
	err = svc.DB.WithinTx(ctx, func(exec core.DBExecutor) error {
		current, err := svc.Modules.GetModulesByCourse(ctx, c.ID, exec)
		if err != nil {
			return errors.Wrap(err, "getting modules")
		}
		byID := make(map[string]Module, len(current))
		for _, m := range current {
			byID[m.ID] = m
		}

		seen := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if _, ok := byID[id]; !ok {
				m, err := svc.Modules.GetModuleByID(ctx, id, exec)
				if err != nil {
					if errors.Cause(err) == ErrModuleNotFound {
						return errModulesNotFound
					}
					return errors.Wrap(err, "getting module")
				}
				if m.CourseID != c.ID {
					return errModulesMixed
				}
			}
			if _, dup := seen[id]; dup {
				return errModulesIncomplete
			}
			seen[id] = struct{}{}
		}
		if len(seen) != len(current) {
			return errModulesIncomplete
		}

		if err = svc.Modules.SetModuleOrders(ctx, c.ID, ids, exec); err != nil {
			return errors.Wrap(err, "reordering modules")
		}
		modules = make([]Module, len(ids))
		for i, id := range ids {
			modules[i] = byID[id]
			modules[i].Order = i + 1
		}
		// current module pointers follow the new order
		return svc.recalculateCourse(ctx, exec, c.ID, modules)
	})
	return modules, err
}

// Duplicate copies a module and its exercises to the end of the target course (default: its own course).
func (svc *ModuleService) Duplicate(ctx context.Context, caller *user.User, id string, data DuplicateModule) (Module, error) {
	orig, c, err := svc.getModule(ctx, id)
	if err != nil {
		return Module{}, err
	}
	if err = checkWrite(caller, &c); err != nil {
		return Module{}, err
	}

	target := c
	if data.TargetCourseID != "" && data.TargetCourseID != c.ID {
		if target, err = svc.getCourse(ctx, data.TargetCourseID); err != nil {
			return Module{}, err
		}
		if err = checkWrite(caller, &target); err != nil {
			return Module{}, err
		}
	}

	title := core.CleanString(data.Title)
	if title == "" {
		title = orig.Title + " (Copy)"
	}

	var dup Module
	err = svc.DB.WithinTx(ctx, func(exec core.DBExecutor) error {
		existing, err := svc.Modules.GetModulesByCourse(ctx, target.ID, exec)
		if err != nil {
			return errors.Wrap(err, "getting modules")
		}
		if dup, err = svc.copyModule(ctx, exec, orig, target.ID, len(existing)+1, title); err != nil {
			return err
		}

		active, err := svc.Enrollments.QueryEnrollments(ctx, EnrollmentFilter{CourseIDs: []string{target.ID}, Status: EnrollmentActive}, exec)
		if err != nil {
			return errors.Wrap(err, "querying enrollments")
		}
		modules := append(existing, dup)
		for _, enr := range active {
			if _, err = svc.ProgressRows.CreateModuleProgress(ctx, newModuleProgress(enr, dup.ID), exec); err != nil {
				return errors.Wrap(err, "creating module progress")
			}
			if _, err = svc.recalculate(ctx, exec, enr, modules); err != nil {
				return err
			}
		}
		return nil
	})
	return dup, err
}

// Delete removes a module with its exercises, submissions and progress rows, renumbers the
// remaining modules and refreshes the progress of the course enrollments.
func (svc *ModuleService) Delete(ctx context.Context, caller *user.User, id string) error {
	m, c, err := svc.getModule(ctx, id)
	if err != nil {
		return err
	}
	if err = checkWrite(caller, &c); err != nil {
		return err
	}

	return svc.DB.WithinTx(ctx, func(exec core.DBExecutor) error {
		if err := svc.deleteModuleTree(ctx, exec, m); err != nil {
			return err
		}
		modules, err := svc.renumberModules(ctx, exec, c.ID)
		if err != nil {
			return err
		}
		return svc.recalculateCourse(ctx, exec, c.ID, modules)
	})
}
