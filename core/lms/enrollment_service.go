package lms

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

var (
	errAlreadyEnrolled   = core.NewValidationError(errors.New("already enrolled in this course"))
	errCourseUnavailable = core.NewValidationError(errors.New("course is not available for enrollment"))
	errNotDroppable      = core.NewValidationError(errors.New("only active or suspended enrollments can be dropped"))
	errStatusTransition  = core.NewValidationError(errors.New("only active and suspended enrollments can be switched"))
)

const (
	welcomeTemplate   = "enrollment_welcome"
	completedTemplate = "course_completed"
)

type EnrollmentService struct {
	*base
}

var _ user.DataEraser = (*EnrollmentService)(nil)

func (svc *EnrollmentService) getEnrollment(ctx context.Context, id string, exec ...core.DBExecutor) (Enrollment, error) {
	enr, err := svc.Enrollments.GetEnrollmentByID(ctx, id, exec...)
	if err != nil {
		if errors.Cause(err) == ErrEnrollmentNotFound {
			return Enrollment{}, ErrEnrollmentNotFound
		}
		return Enrollment{}, errors.Wrap(err, "getting enrollment")
	}
	return enr, nil
}

// ListMine returns the caller's enrollments with their course and instructor, most recent first.
func (svc *EnrollmentService) ListMine(ctx context.Context, caller *user.User, status EnrollmentStatus) ([]EnrollmentWithCourse, error) {
	if err := requireAuth(caller); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, core.NewValidationError(errors.New("invalid enrollment status"))
	}

	enrollments, err := svc.Enrollments.QueryEnrollments(ctx, EnrollmentFilter{StudentID: caller.ID, Status: status})
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}

	out := make([]EnrollmentWithCourse, 0, len(enrollments))
	instructorIDs := make([]string, 0, len(enrollments))
	for _, enr := range enrollments {
		c, err := svc.getCourse(ctx, enr.CourseID)
		if err != nil {
			if errors.Cause(err) == ErrCourseNotFound {
				continue
			}
			return nil, err
		}
		out = append(out, EnrollmentWithCourse{Enrollment: enr, Course: c})
		instructorIDs = append(instructorIDs, c.InstructorID)
	}

	instructors, err := svc.userSummaries(ctx, instructorIDs, false)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Instructor = instructors[out[i].Course.InstructorID]
	}
	return out, nil
}

// Get returns the enrollment of studentID (default: the caller) in a course.
func (svc *EnrollmentService) Get(ctx context.Context, caller *user.User, courseID, studentID string) (Enrollment, error) {
	if err := requireAuth(caller); err != nil {
		return Enrollment{}, err
	}
	if studentID == "" {
		studentID = caller.ID
	}
	c, err := svc.getCourse(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	if err = checkPersonal(caller, studentID, &c); err != nil {
		return Enrollment{}, err
	}

	enr, err := svc.Enrollments.GetEnrollment(ctx, c.ID, studentID)
	if err != nil {
		if errors.Cause(err) == ErrEnrollmentNotFound {
			return Enrollment{}, ErrEnrollmentNotFound
		}
		return Enrollment{}, errors.Wrap(err, "getting enrollment")
	}
	return enr, nil
}

// Progress returns an enrollment with its course, the modules with their progress rows and overall figures.
func (svc *EnrollmentService) Progress(ctx context.Context, caller *user.User, enrollmentID string) (EnrollmentProgress, error) {
	if err := requireAuth(caller); err != nil {
		return EnrollmentProgress{}, err
	}
	enr, err := svc.getEnrollment(ctx, enrollmentID)
	if err != nil {
		return EnrollmentProgress{}, err
	}
	c, err := svc.getCourse(ctx, enr.CourseID)
	if err != nil {
		return EnrollmentProgress{}, err
	}
	if err = checkPersonal(caller, enr.StudentID, &c); err != nil {
		return EnrollmentProgress{}, err
	}

	modules, err := svc.Modules.GetModulesByCourse(ctx, c.ID)
	if err != nil {
		return EnrollmentProgress{}, errors.Wrap(err, "getting modules")
	}
	rows, err := svc.ProgressRows.GetProgressByEnrollment(ctx, enr.ID)
	if err != nil {
		return EnrollmentProgress{}, errors.Wrap(err, "getting module progress")
	}
	byModule := make(map[string]ModuleProgress, len(rows))
	for _, r := range rows {
		byModule[r.ModuleID] = r
	}

	res := EnrollmentProgress{
		Enrollment: enr,
		Course:     c,
		Modules:    make([]ModuleWithProgress, len(modules)),
		Overall: OverallProgress{
			TotalModules:          len(modules),
			TotalTimeSpentMinutes: enr.TotalTimeSpentMinutes,
			AverageScore:          enr.AverageScore,
		},
	}
	for i, m := range modules {
		res.Modules[i] = ModuleWithProgress{Module: m}
		if r, ok := byModule[m.ID]; ok {
			res.Modules[i].Progress = &r
			if r.Status == ProgressCompleted {
				res.Overall.CompletedModules++
			}
		}
	}
	return res, nil
}

// ListByCourse returns the enrollments of a course with their students. Instructor or admin only.
func (svc *EnrollmentService) ListByCourse(ctx context.Context, caller *user.User, courseID string, status EnrollmentStatus) ([]EnrollmentWithStudent, error) {
	c, err := svc.getCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err = checkWrite(caller, &c); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, core.NewValidationError(errors.New("invalid enrollment status"))
	}

	enrollments, err := svc.Enrollments.QueryEnrollments(ctx, EnrollmentFilter{CourseIDs: []string{c.ID}, Status: status})
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	ids := make([]string, len(enrollments))
	for i, enr := range enrollments {
		ids[i] = enr.StudentID
	}
	students, err := svc.userSummaries(ctx, ids, true)
	if err != nil {
		return nil, err
	}

	out := make([]EnrollmentWithStudent, len(enrollments))
	for i, enr := range enrollments {
		out[i] = EnrollmentWithStudent{Enrollment: enr, Student: students[enr.StudentID]}
	}
	return out, nil
}

// Stats aggregates the enrollments of one course, or of every course the caller can write.
func (svc *EnrollmentService) Stats(ctx context.Context, caller *user.User, courseID string) (EnrollmentStats, error) {
	if err := checkAuthor(caller); err != nil {
		return EnrollmentStats{}, err
	}
	courses, err := svc.writableCourses(ctx, caller, courseID)
	if err != nil {
		return EnrollmentStats{}, err
	}
	if len(courses) == 0 {
		return computeEnrollmentStats(nil, core.NowMillis()), nil
	}

	ids := make([]string, len(courses))
	for i, c := range courses {
		ids[i] = c.ID
	}
	enrollments, err := svc.Enrollments.QueryEnrollments(ctx, EnrollmentFilter{CourseIDs: ids})
	if err != nil {
		return EnrollmentStats{}, errors.Wrap(err, "querying enrollments")
	}
	return computeEnrollmentStats(enrollments, core.NowMillis()), nil
}

// Enroll enrolls the caller in a published course, reactivating a dropped enrollment when there is one.
func (svc *EnrollmentService) Enroll(ctx context.Context, caller *user.User, courseID string) (Enrollment, error) {
	if err := checkLearner(caller); err != nil {
		return Enrollment{}, err
	}
	c, err := svc.getCourse(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	if !c.IsPublished() {
		return Enrollment{}, errCourseUnavailable
	}

	var enr Enrollment
	err = svc.DB.WithinTx(ctx, func(exec core.DBExecutor) error {
		modules, err := svc.Modules.GetModulesByCourse(ctx, c.ID, exec)
		if err != nil {
			return errors.Wrap(err, "getting modules")
		}

		existing, err := svc.Enrollments.GetEnrollment(ctx, c.ID, caller.ID, exec)
		switch {
		case err == nil:
			if existing.Status != EnrollmentDropped {
				return errAlreadyEnrolled
			}
			enr, err = svc.reactivate(ctx, exec, existing, modules)
			return err
		case errors.Cause(err) != ErrEnrollmentNotFound:
			return errors.Wrap(err, "getting enrollment")
		}

		now := core.NowMillis()
		enr = Enrollment{
			ID:               core.NewID(),
			StudentID:        caller.ID,
			CourseID:         c.ID,
			Status:           EnrollmentActive,
			EnrolledAt:       now,
			LastAccessedAt:   now,
			CompletedModules: []string{},
		}
		if len(modules) > 0 {
			enr.CurrentModuleID = modules[0].ID
		}
		if enr, err = svc.Enrollments.CreateEnrollment(ctx, enr, exec); err != nil {
			if errors.Cause(err) == core.ErrConflict {
				return errAlreadyEnrolled
			}
			return errors.Wrap(err, "creating enrollment")
		}
		for _, m := range modules {
			if _, err = svc.ProgressRows.CreateModuleProgress(ctx, newModuleProgress(enr, m.ID), exec); err != nil {
				return errors.Wrap(err, "creating module progress")
			}
		}
		return errors.Wrap(svc.Courses.IncrementEnrollmentCount(ctx, c.ID, 1, exec), "counting enrollment")
	})
	if err != nil {
		return Enrollment{}, err
	}

	svc.notify(ctx, caller.ID, c, fmt.Sprintf("Welcome to %s", c.Title), welcomeTemplate)
	return enr, nil
}

// reactivate resets a dropped enrollment and its progress rows as if the learner had just enrolled.
func (svc *EnrollmentService) reactivate(ctx context.Context, exec core.DBExecutor, enr Enrollment, modules []Module) (Enrollment, error) {
	rows, err := svc.ProgressRows.GetProgressByEnrollment(ctx, enr.ID, exec)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "getting module progress")
	}
	byModule := make(map[string]ModuleProgress, len(rows))
	for _, r := range rows {
		byModule[r.ModuleID] = r
	}
	for _, m := range modules {
		if r, ok := byModule[m.ID]; ok {
			if _, err = svc.ProgressRows.UpdateModuleProgress(ctx, resetProgress(r), exec); err != nil {
				return Enrollment{}, errors.Wrap(err, "resetting module progress")
			}
			continue
		}
		if _, err = svc.ProgressRows.CreateModuleProgress(ctx, newModuleProgress(enr, m.ID), exec); err != nil {
			return Enrollment{}, errors.Wrap(err, "creating module progress")
		}
	}

	now := core.NowMillis()
	enr.Status = EnrollmentActive
	enr.EnrolledAt = now
	enr.LastAccessedAt = now
	enr.CompletedAt = 0
	enr.ProgressPercentage = 0
	enr.CompletedModules = []string{}
	enr.TotalTimeSpentMinutes = 0
	enr.AverageScore = nil
	enr.CurrentModuleID = ""
	if len(modules) > 0 {
		enr.CurrentModuleID = modules[0].ID
	}
	enr, err = svc.Enrollments.UpdateEnrollment(ctx, enr, exec)
	return enr, errors.Wrap(err, "updating enrollment")
}

// UpdateModuleProgress records the caller's progress on a module and refreshes their enrollment.
func (svc *EnrollmentService) UpdateModuleProgress(ctx context.Context, caller *user.User, moduleID string, data UpdateModuleProgress) (ModuleProgress, error) {
	if err := requireAuth(caller); err != nil {
		return ModuleProgress{}, err
	}
	m, c, err := svc.getModule(ctx, moduleID)
	if err != nil {
		return ModuleProgress{}, err
	}

	var (
		row       ModuleProgress
		completed bool
	)
	err = svc.DB.WithinTx(ctx, func(exec core.DBExecutor) error {
		enr, err := svc.Enrollments.GetEnrollment(ctx, c.ID, caller.ID, exec)
		if err != nil {
			if errors.Cause(err) == ErrEnrollmentNotFound {
				return errNotEnrolled
			}
			return errors.Wrap(err, "getting enrollment")
		}
		if enr.Status != EnrollmentActive {
			return errNotEnrolled
		}

		now := core.NowMillis()
		row, err = svc.ProgressRows.GetModuleProgress(ctx, enr.ID, m.ID, exec)
		switch {
		case err == nil:
			row = ApplyModuleProgress(row, data, now)
			if row, err = svc.ProgressRows.UpdateModuleProgress(ctx, row, exec); err != nil {
				return errors.Wrap(err, "updating module progress")
			}
		case errors.Cause(err) == ErrProgressNotFound:
			row = ApplyModuleProgress(newModuleProgress(enr, m.ID), data, now)
			if row, err = svc.ProgressRows.CreateModuleProgress(ctx, row, exec); err != nil {
				return errors.Wrap(err, "creating module progress")
			}
		default:
			return errors.Wrap(err, "getting module progress")
		}

		modules, err := svc.Modules.GetModulesByCourse(ctx, c.ID, exec)
		if err != nil {
			return errors.Wrap(err, "getting modules")
		}
		enr.LastAccessedAt = now
		updated, err := svc.recalculate(ctx, exec, enr, modules)
		if err != nil {
			return err
		}
		completed = updated.Status == EnrollmentCompleted
		return nil
	})
	if err != nil {
		return ModuleProgress{}, err
	}

	if completed {
		svc.notify(ctx, caller.ID, c, fmt.Sprintf("You completed %s", c.Title), completedTemplate)
	}
	return row, nil
}

// Drop withdraws the caller from a course. Progress is kept until they enroll again.
func (svc *EnrollmentService) Drop(ctx context.Context, caller *user.User, courseID, reason string) (Enrollment, error) {
	if err := requireAuth(caller); err != nil {
		return Enrollment{}, err
	}
	c, err := svc.getCourse(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}

	enr, err := svc.Enrollments.GetEnrollment(ctx, c.ID, caller.ID)
	if err != nil {
		if errors.Cause(err) == ErrEnrollmentNotFound {
			return Enrollment{}, ErrEnrollmentNotFound
		}
		return Enrollment{}, errors.Wrap(err, "getting enrollment")
	}
	if enr.Status != EnrollmentActive && enr.Status != EnrollmentSuspended {
		return Enrollment{}, errNotDroppable
	}

	enr.Status = EnrollmentDropped
	enr.LastAccessedAt = core.NowMillis()
	if enr, err = svc.Enrollments.UpdateEnrollment(ctx, enr); err != nil {
		return Enrollment{}, errors.Wrap(err, "updating enrollment")
	}
	if reason = core.CleanString(reason); reason != "" {
		svc.Logger.Info(fmt.Sprintf("enrollment %s dropped: %s", enr.ID, reason))
	}
	return enr, nil
}

// SetStatus suspends or reinstates an enrollment. Instructor of the course or admin only.
func (svc *EnrollmentService) SetStatus(ctx context.Context, caller *user.User, enrollmentID string, status EnrollmentStatus) (Enrollment, error) {
	if err := requireAuth(caller); err != nil {
		return Enrollment{}, err
	}
	enr, err := svc.getEnrollment(ctx, enrollmentID)
	if err != nil {
		return Enrollment{}, err
	}
	c, err := svc.getCourse(ctx, enr.CourseID)
	if err != nil {
		return Enrollment{}, err
	}
	if err = checkWrite(caller, &c); err != nil {
		return Enrollment{}, err
	}

	if status != EnrollmentActive && status != EnrollmentSuspended {
		return Enrollment{}, errStatusTransition
	}
	if enr.Status != EnrollmentActive && enr.Status != EnrollmentSuspended {
		return Enrollment{}, errStatusTransition
	}
	if enr.Status == status {
		return enr, nil
	}

	enr.Status = status
	enr, err = svc.Enrollments.UpdateEnrollment(ctx, enr)
	return enr, errors.Wrap(err, "updating enrollment")
}

// EraseUserData removes the submissions, module progress and enrollments of usr.
// It refuses users who still own courses.
func (svc *EnrollmentService) EraseUserData(ctx context.Context, usr user.User, exec core.DBExecutor) error {
	owned, err := svc.Courses.QueryCourses(ctx, CourseFilter{InstructorID: usr.ID}, exec)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if len(owned) > 0 {
		return user.ErrOwnsCourses
	}

	enrollments, err := svc.Enrollments.QueryEnrollments(ctx, EnrollmentFilter{StudentID: usr.ID}, exec)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if err = svc.Submissions.DeleteSubmissionsByStudent(ctx, usr.ID, exec); err != nil {
		return errors.Wrap(err, "deleting submissions")
	}
	if err = svc.ProgressRows.DeleteProgressByStudent(ctx, usr.ID, exec); err != nil {
		return errors.Wrap(err, "deleting module progress")
	}
	if err = svc.Enrollments.DeleteEnrollmentsByStudent(ctx, usr.ID, exec); err != nil {
		return errors.Wrap(err, "deleting enrollments")
	}
	for _, enr := range enrollments {
		if err = svc.Courses.IncrementEnrollmentCount(ctx, enr.CourseID, -1, exec); err != nil {
			return errors.Wrap(err, "counting enrollment")
		}
	}
	return nil
}
