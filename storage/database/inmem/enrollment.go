package inmemdb

import (
	"context"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/lms"
)

type enrollmentRepository struct {
	db *DB
}

var _ lms.EnrollmentRepository = (*enrollmentRepository)(nil)

func NewEnrollmentRepository(db *DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func cloneEnrollment(e lms.Enrollment) lms.Enrollment {
	e.CompletedModules = cloneStrings(e.CompletedModules)
	if e.AverageScore != nil {
		s := *e.AverageScore
		e.AverageScore = &s
	}
	return e
}

func lastActivity(e lms.Enrollment) int64 {
	if e.LastAccessedAt != 0 {
		return e.LastAccessedAt
	}
	return e.EnrolledAt
}

func (repo *enrollmentRepository) CreateEnrollment(_ context.Context, e lms.Enrollment, exec ...core.DBExecutor) (lms.Enrollment, error) {
	defer repo.db.lock(exec)()

	if _, ok := repo.db.t.enrollments[e.ID]; ok {
		return lms.Enrollment{}, core.ErrConflict
	}
	for _, r := range repo.db.t.enrollments {
		if r.val.CourseID == e.CourseID && r.val.StudentID == e.StudentID {
			return lms.Enrollment{}, core.ErrConflict
		}
	}
	e = cloneEnrollment(e)
	put(repo.db, repo.db.t.enrollments, e.ID, e)
	return cloneEnrollment(e), nil
}

func (repo *enrollmentRepository) GetEnrollmentByID(_ context.Context, id string, _ ...core.DBExecutor) (lms.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if r, ok := repo.db.t.enrollments[id]; ok {
		return cloneEnrollment(r.val), nil
	}
	return lms.Enrollment{}, lms.ErrEnrollmentNotFound
}

func (repo *enrollmentRepository) GetEnrollment(_ context.Context, courseID, studentID string, _ ...core.DBExecutor) (lms.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, r := range repo.db.t.enrollments {
		if r.val.CourseID == courseID && r.val.StudentID == studentID {
			return cloneEnrollment(r.val), nil
		}
	}
	return lms.Enrollment{}, lms.ErrEnrollmentNotFound
}

func (repo *enrollmentRepository) QueryEnrollments(_ context.Context, filter lms.EnrollmentFilter, _ ...core.DBExecutor) ([]lms.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var courses map[string]struct{}
	if filter.CourseIDs != nil {
		courses = idSet(filter.CourseIDs)
	}
	enrollments := repo.db.t.enrollments.rows(func(e lms.Enrollment) bool {
		if courses != nil {
			if _, ok := courses[e.CourseID]; !ok {
				return false
			}
		}
		if filter.StudentID != "" && e.StudentID != filter.StudentID {
			return false
		}
		return filter.Status == "" || e.Status == filter.Status
	})
	newestFirst(enrollments, lastActivity)
	for i := range enrollments {
		enrollments[i] = cloneEnrollment(enrollments[i])
	}
	return enrollments, nil
}

func (repo *enrollmentRepository) UpdateEnrollment(_ context.Context, e lms.Enrollment, exec ...core.DBExecutor) (lms.Enrollment, error) {
	defer repo.db.lock(exec)()

	orig, ok := repo.db.t.enrollments[e.ID]
	if !ok {
		return lms.Enrollment{}, lms.ErrEnrollmentNotFound
	}
	e.CourseID = orig.val.CourseID
	e.StudentID = orig.val.StudentID
	e = cloneEnrollment(e)
	put(repo.db, repo.db.t.enrollments, e.ID, e)
	return cloneEnrollment(e), nil
}

func (repo *enrollmentRepository) DeleteEnrollmentsByCourse(_ context.Context, courseID string, exec ...core.DBExecutor) error {
	defer repo.db.lock(exec)()

	for id, r := range repo.db.t.enrollments {
		if r.val.CourseID == courseID {
			delete(repo.db.t.enrollments, id)
		}
	}
	return nil
}

func (repo *enrollmentRepository) DeleteEnrollmentsByStudent(_ context.Context, studentID string, exec ...core.DBExecutor) error {
	defer repo.db.lock(exec)()

	for id, r := range repo.db.t.enrollments {
		if r.val.StudentID == studentID {
			delete(repo.db.t.enrollments, id)
		}
	}
	return nil
}

// module progress

type progressRepository struct {
	db *DB
}

var _ lms.ProgressRepository = (*progressRepository)(nil)

func NewProgressRepository(db *DB) *progressRepository {
	return &progressRepository{db: db}
}

func cloneProgress(p lms.ModuleProgress) lms.ModuleProgress {
	if p.Score != nil {
		s := *p.Score
		p.Score = &s
	}
	if p.MaxScore != nil {
		s := *p.MaxScore
		p.MaxScore = &s
	}
	return p
}

func (repo *progressRepository) CreateModuleProgress(_ context.Context, p lms.ModuleProgress, exec ...core.DBExecutor) (lms.ModuleProgress, error) {
	defer repo.db.lock(exec)()

	if _, ok := repo.db.t.progress[p.ID]; ok {
		return lms.ModuleProgress{}, core.ErrConflict
	}
	for _, r := range repo.db.t.progress {
		if r.val.EnrollmentID == p.EnrollmentID && r.val.ModuleID == p.ModuleID {
			return lms.ModuleProgress{}, core.ErrConflict
		}
	}
	p = cloneProgress(p)
	put(repo.db, repo.db.t.progress, p.ID, p)
	return cloneProgress(p), nil
}

func (repo *progressRepository) GetModuleProgress(_ context.Context, enrollmentID, moduleID string, _ ...core.DBExecutor) (lms.ModuleProgress, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, r := range repo.db.t.progress {
		if r.val.EnrollmentID == enrollmentID && r.val.ModuleID == moduleID {
			return cloneProgress(r.val), nil
		}
	}
	return lms.ModuleProgress{}, lms.ErrProgressNotFound
}

func (repo *progressRepository) filter(keep func(lms.ModuleProgress) bool) []lms.ModuleProgress {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	rows := repo.db.t.progress.rows(keep)
	for i := range rows {
		rows[i] = cloneProgress(rows[i])
	}
	return rows
}

func (repo *progressRepository) GetProgressByEnrollment(_ context.Context, enrollmentID string, _ ...core.DBExecutor) ([]lms.ModuleProgress, error) {
	return repo.filter(func(p lms.ModuleProgress) bool { return p.EnrollmentID == enrollmentID }), nil
}

func (repo *progressRepository) GetProgressByModule(_ context.Context, moduleID string, _ ...core.DBExecutor) ([]lms.ModuleProgress, error) {
	return repo.filter(func(p lms.ModuleProgress) bool { return p.ModuleID == moduleID }), nil
}

func (repo *progressRepository) UpdateModuleProgress(_ context.Context, p lms.ModuleProgress, exec ...core.DBExecutor) (lms.ModuleProgress, error) {
	defer repo.db.lock(exec)()

	orig, ok := repo.db.t.progress[p.ID]
	if !ok {
		return lms.ModuleProgress{}, lms.ErrProgressNotFound
	}
	p.EnrollmentID = orig.val.EnrollmentID
	p.StudentID = orig.val.StudentID
	p.ModuleID = orig.val.ModuleID
	p = cloneProgress(p)
	put(repo.db, repo.db.t.progress, p.ID, p)
	return cloneProgress(p), nil
}

func (repo *progressRepository) deleteWhere(exec []core.DBExecutor, match func(lms.ModuleProgress) bool) {
	defer repo.db.lock(exec)()

	for id, r := range repo.db.t.progress {
		if match(r.val) {
			delete(repo.db.t.progress, id)
		}
	}
}

func (repo *progressRepository) DeleteProgressByModule(_ context.Context, moduleID string, exec ...core.DBExecutor) error {
	repo.deleteWhere(exec, func(p lms.ModuleProgress) bool { return p.ModuleID == moduleID })
	return nil
}

func (repo *progressRepository) DeleteProgressByStudent(_ context.Context, studentID string, exec ...core.DBExecutor) error {
	repo.deleteWhere(exec, func(p lms.ModuleProgress) bool { return p.StudentID == studentID })
	return nil
}
