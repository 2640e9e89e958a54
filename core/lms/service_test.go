package lms_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/lms"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/testutil"
)

type fixture struct {
	stack      *testutil.Stack
	instructor user.User
	learner    user.User
	course     lms.Course
	modules    []lms.Module
}

func newFixture(t *testing.T, modules int) *fixture {
	stack := testutil.NewStack()
	f := &fixture{
		stack:      stack,
		instructor: testutil.CreateUser(t, stack.Users, "Instructor", user.RoleInstructor, true),
		learner:    testutil.CreateUser(t, stack.Users, "Learner", user.RoleLearner, true),
	}
	f.course = testutil.CreateCourse(t, stack.Courses, f.instructor.ID, "Go", "Programming", lms.CoursePublished)
	for i := 1; i <= modules; i++ {
		f.modules = append(f.modules, testutil.CreateModule(t, stack.Modules, f.course.ID, i))
	}
	return f
}

func (f *fixture) enroll(t *testing.T) lms.Enrollment {
	enr, err := f.stack.LMS.Enrollments.Enroll(context.Background(), &f.learner, f.course.ID)
	require.NoError(t, err)
	return enr
}

func (f *fixture) complete(t *testing.T, m lms.Module) {
	_, err := f.stack.LMS.Enrollments.UpdateModuleProgress(context.Background(), &f.learner, m.ID, lms.UpdateModuleProgress{Completed: true})
	require.NoError(t, err)
}

func (f *fixture) enrollment(t *testing.T) lms.Enrollment {
	enr, err := f.stack.Enrollments.GetEnrollment(context.Background(), f.course.ID, f.learner.ID)
	require.NoError(t, err)
	return enr
}

func TestEnrollmentService_Enroll(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	enr := f.enroll(t)
	assert.Equal(t, lms.EnrollmentActive, enr.Status)
	assert.Equal(t, f.modules[0].ID, enr.CurrentModuleID)

	rows, err := f.stack.Progress.GetProgressByEnrollment(ctx, enr.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	course, err := f.stack.Courses.GetCourseByID(ctx, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, course.EnrollmentCount)

	_, err = f.stack.LMS.Enrollments.Enroll(ctx, &f.learner, f.course.ID)
	assert.EqualError(t, err, "already enrolled in this course")

	_, err = f.stack.LMS.Enrollments.Enroll(ctx, nil, f.course.ID)
	assert.Equal(t, core.ErrUnauthenticated, errors.Cause(err))
}

func TestEnrollmentService_deactivatedLearner(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	svc := f.stack.LMS.Enrollments

	f.enroll(t)
	gone := f.learner
	gone.IsActive = false

	_, err := svc.UpdateModuleProgress(ctx, &gone, f.modules[0].ID, lms.UpdateModuleProgress{Completed: true})
	assert.EqualError(t, err, "account is deactivated")
	_, err = svc.Drop(ctx, &gone, f.course.ID, "")
	assert.EqualError(t, err, "account is deactivated")
	_, err = svc.ListMine(ctx, &gone, "")
	assert.EqualError(t, err, "account is deactivated")

	enr := f.enrollment(t)
	assert.Equal(t, lms.EnrollmentActive, enr.Status)
	assert.Equal(t, 0, enr.ProgressPercentage)
}

func TestModuleService_progressFollowsModules(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	svc := f.stack.LMS.Modules

	f.enroll(t)
	f.complete(t, f.modules[0])
	assert.Equal(t, 50, f.enrollment(t).ProgressPercentage)

	// a new module lowers the progress of enrolled learners
	m3, err := svc.Create(ctx, &f.instructor, f.course.ID, lms.NewModule{Title: "Third", Description: "Third", Type: lms.ModuleLesson})
	require.NoError(t, err)
	assert.Equal(t, 3, m3.Order)
	assert.Equal(t, 33, f.enrollment(t).ProgressPercentage)

	// reordering moves the current module pointer
	_, err = svc.Reorder(ctx, &f.instructor, f.course.ID, []string{m3.ID, f.modules[0].ID})
	assert.EqualError(t, err, "module ids must list every module of the course exactly once")

	ordered, err := svc.Reorder(ctx, &f.instructor, f.course.ID, []string{m3.ID, f.modules[0].ID, f.modules[1].ID})
	require.NoError(t, err)
	assert.Equal(t, 1, ordered[0].Order)
	assert.Equal(t, m3.ID, f.enrollment(t).CurrentModuleID)

	// deleting the unfinished modules completes the course
	require.NoError(t, svc.Delete(ctx, &f.instructor, m3.ID))
	require.NoError(t, svc.Delete(ctx, &f.instructor, f.modules[1].ID))

	enr := f.enrollment(t)
	assert.Equal(t, 100, enr.ProgressPercentage)
	assert.Equal(t, lms.EnrollmentCompleted, enr.Status)

	remaining, err := f.stack.Modules.GetModulesByCourse(ctx, f.course.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, 1, remaining[0].Order)
}

func TestModuleService_deleteCascades(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	ex := testutil.CreateExercise(t, f.stack.Exercises, f.modules[0].ID, nil)

	f.enroll(t)
	_, err := f.stack.LMS.Exercises.Submit(ctx, &f.learner, ex.ID, lms.NewSubmission{Answer: "a"})
	require.NoError(t, err)

	require.NoError(t, f.stack.LMS.Modules.Delete(ctx, &f.instructor, f.modules[0].ID))

	_, err = f.stack.Exercises.GetExerciseByID(ctx, ex.ID)
	assert.Equal(t, lms.ErrExerciseNotFound, errors.Cause(err))
	subs, err := f.stack.Submissions.QuerySubmissions(ctx, lms.SubmissionFilter{StudentID: f.learner.ID})
	require.NoError(t, err)
	assert.Empty(t, subs)
	rows, err := f.stack.Progress.GetProgressByModule(ctx, f.modules[0].ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCourseService_deleteCascades(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	svc := f.stack.LMS.Courses

	ex := testutil.CreateExercise(t, f.stack.Exercises, f.modules[0].ID, nil)
	enr := f.enroll(t)
	_, err := f.stack.LMS.Exercises.Submit(ctx, &f.learner, ex.ID, lms.NewSubmission{Answer: "a"})
	require.NoError(t, err)

	// an active enrollment blocks the deletion and nothing changes
	err = svc.Delete(ctx, &f.instructor, f.course.ID)
	assert.EqualError(t, err, "cannot delete course with active enrollments; archive it instead")
	modules, err := f.stack.Modules.GetModulesByCourse(ctx, f.course.ID)
	require.NoError(t, err)
	assert.Len(t, modules, 2)

	_, err = f.stack.LMS.Enrollments.Drop(ctx, &f.learner, f.course.ID, "")
	require.NoError(t, err)

	err = svc.Delete(ctx, &f.learner, f.course.ID)
	assert.EqualError(t, err, "permission denied")
	require.NoError(t, svc.Delete(ctx, &f.instructor, f.course.ID))

	_, err = f.stack.Courses.GetCourseByID(ctx, f.course.ID)
	assert.Equal(t, lms.ErrCourseNotFound, errors.Cause(err))
	modules, err = f.stack.Modules.GetModulesByCourse(ctx, f.course.ID)
	require.NoError(t, err)
	assert.Empty(t, modules)
	_, err = f.stack.Exercises.GetExerciseByID(ctx, ex.ID)
	assert.Equal(t, lms.ErrExerciseNotFound, errors.Cause(err))
	subs, err := f.stack.Submissions.QuerySubmissions(ctx, lms.SubmissionFilter{StudentID: f.learner.ID})
	require.NoError(t, err)
	assert.Empty(t, subs)
	rows, err := f.stack.Progress.GetProgressByEnrollment(ctx, enr.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
	_, err = f.stack.Enrollments.GetEnrollment(ctx, f.course.ID, f.learner.ID)
	assert.Equal(t, lms.ErrEnrollmentNotFound, errors.Cause(err))
}

func TestExerciseService_Delete(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	svc := f.stack.LMS.Exercises

	kept := testutil.CreateExercise(t, f.stack.Exercises, f.modules[0].ID, nil)
	gone := testutil.CreateExercise(t, f.stack.Exercises, f.modules[0].ID, nil)
	f.enroll(t)
	for _, ex := range []lms.Exercise{kept, gone} {
		_, err := svc.Submit(ctx, &f.learner, ex.ID, lms.NewSubmission{Answer: "a"})
		require.NoError(t, err)
	}

	assert.Equal(t, core.ErrUnauthenticated, errors.Cause(svc.Delete(ctx, nil, gone.ID)))
	assert.EqualError(t, svc.Delete(ctx, &f.learner, gone.ID), "permission denied")
	require.NoError(t, svc.Delete(ctx, &f.instructor, gone.ID))

	_, err := f.stack.Exercises.GetExerciseByID(ctx, gone.ID)
	assert.Equal(t, lms.ErrExerciseNotFound, errors.Cause(err))
	_, err = f.stack.Exercises.GetExerciseByID(ctx, kept.ID)
	assert.NoError(t, err)

	subs, err := f.stack.Submissions.QuerySubmissions(ctx, lms.SubmissionFilter{StudentID: f.learner.ID})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, kept.ID, subs[0].ExerciseID)

	assert.Equal(t, lms.ErrExerciseNotFound, errors.Cause(svc.Delete(ctx, &f.instructor, gone.ID)))
}

func TestCourseService_Duplicate(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	testutil.CreateExercise(t, f.stack.Exercises, f.modules[1].ID, nil)
	other := testutil.CreateUser(t, f.stack.Users, "Other", user.RoleInstructor, true)

	_, err := f.stack.LMS.Courses.Duplicate(ctx, &f.learner, f.course.ID, "")
	assert.EqualError(t, err, "only instructors and admins can perform this action")

	dup, err := f.stack.LMS.Courses.Duplicate(ctx, &other, f.course.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Go (Copy)", dup.Title)
	assert.Equal(t, other.ID, dup.InstructorID)
	assert.Equal(t, lms.CourseDraft, dup.Status)
	assert.Zero(t, dup.PublishedAt)

	detail, err := f.stack.LMS.Courses.GetWithModules(ctx, &other, dup.ID)
	require.NoError(t, err)
	require.Len(t, detail.Modules, 2)
	assert.Equal(t, f.modules[0].Title, detail.Modules[0].Title)

	exercises, err := f.stack.LMS.Exercises.ListByModule(ctx, &other, detail.Modules[1].ID, false)
	require.NoError(t, err)
	require.Len(t, exercises, 1)
	assert.True(t, exercises[0].Options[0].IsCorrect) // owner view
}

func TestCourseService_SetStatus(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	draft := testutil.CreateCourse(t, f.stack.Courses, f.instructor.ID, "Draft", "Science", lms.CourseDraft)

	published, err := f.stack.LMS.Courses.SetStatus(ctx, &f.instructor, draft.ID, lms.CoursePublished)
	require.NoError(t, err)
	assert.NotZero(t, published.PublishedAt)

	archived, err := f.stack.LMS.Courses.SetStatus(ctx, &f.instructor, draft.ID, lms.CourseArchived)
	require.NoError(t, err)
	assert.Equal(t, published.PublishedAt, archived.PublishedAt)

	_, err = f.stack.LMS.Enrollments.Enroll(ctx, &f.learner, draft.ID)
	assert.EqualError(t, err, "course is not available for enrollment")
}

func TestExerciseService_Stats(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	ex := testutil.CreateExercise(t, f.stack.Exercises, f.modules[0].ID, nil)

	f.enroll(t)
	for _, answer := range []string{"b", "a"} {
		_, err := f.stack.LMS.Exercises.Submit(ctx, &f.learner, ex.ID, lms.NewSubmission{Answer: answer, TimeSpentSeconds: 40})
		require.NoError(t, err)
	}

	_, err := f.stack.LMS.Exercises.Stats(ctx, &f.instructor, lms.StatsScope{})
	assert.EqualError(t, err, "one of exercise_id, module_id or course_id is required")

	_, err = f.stack.LMS.Exercises.Stats(ctx, &f.learner, lms.StatsScope{ExerciseID: ex.ID})
	assert.Error(t, err)

	stats, err := f.stack.LMS.Exercises.Stats(ctx, &f.instructor, lms.StatsScope{ExerciseID: ex.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalSubmissions)
	assert.Equal(t, 1, stats.UniqueStudents)
	assert.Equal(t, 5.0, stats.AverageScore)
	assert.Equal(t, 40.0, stats.AverageTimeSpent)
	require.NotNil(t, stats.PassRate)
	assert.Equal(t, 50.0, *stats.PassRate)

	byCourse, err := f.stack.LMS.Exercises.Stats(ctx, &f.instructor, lms.StatsScope{CourseID: f.course.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, byCourse.TotalSubmissions)
	assert.Nil(t, byCourse.PassRate)
}

func TestEnrollmentService_EraseUserData(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	admin := testutil.CreateUser(t, f.stack.Users, "Admin", user.RoleAdmin, true)
	f.enroll(t)

	err := f.stack.UserSvc.Delete(ctx, &admin, f.instructor.ID)
	assert.EqualError(t, err, "user still owns courses; reassign or delete them first")

	require.NoError(t, f.stack.UserSvc.Delete(ctx, &admin, f.learner.ID))

	_, err = f.stack.Enrollments.GetEnrollment(ctx, f.course.ID, f.learner.ID)
	assert.Equal(t, lms.ErrEnrollmentNotFound, errors.Cause(err))
	course, err := f.stack.Courses.GetCourseByID(ctx, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, course.EnrollmentCount)
}
