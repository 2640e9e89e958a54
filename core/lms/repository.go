package lms

import (
	"context"

	"github.com/trezcool/elimu/core"
)

var (
	// errors
	ErrCourseNotFound     = core.NewNotFoundError("course not found")
	ErrModuleNotFound     = core.NewNotFoundError("module not found")
	ErrExerciseNotFound   = core.NewNotFoundError("exercise not found")
	ErrSubmissionNotFound = core.NewNotFoundError("submission not found")
	ErrEnrollmentNotFound = core.NewNotFoundError("enrollment not found")
	ErrProgressNotFound   = core.NewNotFoundError("module progress not found")
)

type (
	EnrollmentFilter struct {
		CourseIDs []string
		StudentID string
		Status    EnrollmentStatus
	}

	SubmissionFilter struct {
		StudentID   string
		ExerciseIDs []string
	}
)

// Every repository method accepts an optional executor so that it can join a transaction started with core.Transactor.
type (
	CourseRepository interface {
		CreateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		GetCourseByID(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
		// QueryCourses returns the courses matching every set field of filter, newest first.
		QueryCourses(ctx context.Context, filter CourseFilter, exec ...core.DBExecutor) ([]Course, error)
		UpdateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		// IncrementEnrollmentCount adds delta to the counter in a single atomic write.
		IncrementEnrollmentCount(ctx context.Context, id string, delta int, exec ...core.DBExecutor) error
		DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	ModuleRepository interface {
		CreateModule(ctx context.Context, m Module, exec ...core.DBExecutor) (Module, error)
		GetModuleByID(ctx context.Context, id string, exec ...core.DBExecutor) (Module, error)
		// GetModulesByCourse returns the modules of a course ordered by ascending order.
		GetModulesByCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Module, error)
		GetModulesByCourses(ctx context.Context, courseIDs []string, exec ...core.DBExecutor) ([]Module, error)
		UpdateModule(ctx context.Context, m Module, exec ...core.DBExecutor) (Module, error)
		// SetModuleOrders sets the order of ids[i] to i+1. It must run inside a transaction.
		SetModuleOrders(ctx context.Context, courseID string, ids []string, exec ...core.DBExecutor) error
		DeleteModule(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	ExerciseRepository interface {
		CreateExercise(ctx context.Context, e Exercise, exec ...core.DBExecutor) (Exercise, error)
		GetExerciseByID(ctx context.Context, id string, exec ...core.DBExecutor) (Exercise, error)
		// GetExercisesByModules returns the exercises of the modules, oldest first.
		GetExercisesByModules(ctx context.Context, moduleIDs []string, exec ...core.DBExecutor) ([]Exercise, error)
		UpdateExercise(ctx context.Context, e Exercise, exec ...core.DBExecutor) (Exercise, error)
		DeleteExercise(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	SubmissionRepository interface {
		CreateSubmission(ctx context.Context, s Submission, exec ...core.DBExecutor) (Submission, error)
		GetSubmissionByID(ctx context.Context, id string, exec ...core.DBExecutor) (Submission, error)
		// QuerySubmissions returns the matching submissions, newest first.
		QuerySubmissions(ctx context.Context, filter SubmissionFilter, exec ...core.DBExecutor) ([]Submission, error)
		CountSubmissions(ctx context.Context, studentID, exerciseID string, exec ...core.DBExecutor) (int, error)
		UpdateSubmission(ctx context.Context, s Submission, exec ...core.DBExecutor) (Submission, error)
		DeleteSubmissionsByExercises(ctx context.Context, exerciseIDs []string, exec ...core.DBExecutor) error
		DeleteSubmissionsByStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) error
	}

	EnrollmentRepository interface {
		CreateEnrollment(ctx context.Context, e Enrollment, exec ...core.DBExecutor) (Enrollment, error)
		GetEnrollmentByID(ctx context.Context, id string, exec ...core.DBExecutor) (Enrollment, error)
		GetEnrollment(ctx context.Context, courseID, studentID string, exec ...core.DBExecutor) (Enrollment, error)
		// QueryEnrollments returns the matching enrollments, most recent first.
		QueryEnrollments(ctx context.Context, filter EnrollmentFilter, exec ...core.DBExecutor) ([]Enrollment, error)
		UpdateEnrollment(ctx context.Context, e Enrollment, exec ...core.DBExecutor) (Enrollment, error)
		DeleteEnrollmentsByCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) error
		DeleteEnrollmentsByStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) error
	}

	ProgressRepository interface {
		CreateModuleProgress(ctx context.Context, p ModuleProgress, exec ...core.DBExecutor) (ModuleProgress, error)
		GetModuleProgress(ctx context.Context, enrollmentID, moduleID string, exec ...core.DBExecutor) (ModuleProgress, error)
		GetProgressByEnrollment(ctx context.Context, enrollmentID string, exec ...core.DBExecutor) ([]ModuleProgress, error)
		GetProgressByModule(ctx context.Context, moduleID string, exec ...core.DBExecutor) ([]ModuleProgress, error)
		UpdateModuleProgress(ctx context.Context, p ModuleProgress, exec ...core.DBExecutor) (ModuleProgress, error)
		DeleteProgressByModule(ctx context.Context, moduleID string, exec ...core.DBExecutor) error
		DeleteProgressByStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) error
	}
)
