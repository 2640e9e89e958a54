package lms

import (
	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

var (
	errPermissionDenied = core.NewPermissionError("permission denied")
	errAccessDenied     = core.NewPermissionError("access denied")
	errLearnersOnly     = core.NewPermissionError("only learners can perform this action")
	errAuthorsOnly      = core.NewPermissionError("only instructors and admins can perform this action")
	errDeactivated      = core.NewPermissionError("account is deactivated")
)

// isAdmin reports whether caller is an active admin. Deactivated users keep no privileges.
func isAdmin(caller *user.User) bool {
	return caller != nil && caller.IsActive && caller.IsAdmin()
}

func isOwner(caller *user.User, course *Course) bool {
	return caller != nil && caller.IsActive && course != nil && course.InstructorID == caller.ID
}

// CanRead grants read access to a course (and its modules and exercises)
// when it is published, or to an admin or the course instructor.
func CanRead(caller *user.User, course *Course) bool {
	if course == nil {
		return false
	}
	return course.IsPublished() || isAdmin(caller) || isOwner(caller, course)
}

// CanWrite grants write and delete access to a course and its descendants to an admin or the course instructor.
func CanWrite(caller *user.User, course *Course) bool {
	return isAdmin(caller) || isOwner(caller, course)
}

// CanAccessPersonal grants access to a student's enrollment and submission data to an admin,
// the student or the instructor of the course.
func CanAccessPersonal(caller *user.User, studentID string, course *Course) bool {
	if caller == nil || !caller.IsActive {
		return false
	}
	return caller.ID == studentID || isAdmin(caller) || isOwner(caller, course)
}

// CanAuthor reports whether caller may create courses.
func CanAuthor(caller *user.User) bool {
	return caller != nil && caller.IsActive && (caller.IsAdmin() || caller.IsInstructor())
}

// requireAuth admits active callers only.
func requireAuth(caller *user.User) error {
	if caller == nil {
		return core.ErrUnauthenticated
	}
	if !caller.IsActive {
		return errDeactivated
	}
	return nil
}

func checkRead(caller *user.User, course *Course) error {
	if CanRead(caller, course) {
		return nil
	}
	if caller == nil {
		return core.ErrUnauthenticated
	}
	return errAccessDenied
}

func checkWrite(caller *user.User, course *Course) error {
	if err := requireAuth(caller); err != nil {
		return err
	}
	if !CanWrite(caller, course) {
		return errPermissionDenied
	}
	return nil
}

func checkPersonal(caller *user.User, studentID string, course *Course) error {
	if err := requireAuth(caller); err != nil {
		return err
	}
	if !CanAccessPersonal(caller, studentID, course) {
		return errAccessDenied
	}
	return nil
}

func checkAuthor(caller *user.User) error {
	if err := requireAuth(caller); err != nil {
		return err
	}
	if !CanAuthor(caller) {
		return errAuthorsOnly
	}
	return nil
}

func checkLearner(caller *user.User) error {
	if err := requireAuth(caller); err != nil {
		return err
	}
	if !caller.IsLearner() {
		return errLearnersOnly
	}
	return nil
}
