package inmemdb

import (
	"context"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/lms"
)

type courseRepository struct {
	db *DB
}

var _ lms.CourseRepository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func cloneCourse(c lms.Course) lms.Course {
	c.Tags = cloneStrings(c.Tags)
	c.Objectives = cloneStrings(c.Objectives)
	c.Prerequisites = cloneStrings(c.Prerequisites)
	if c.AverageRating != nil {
		r := *c.AverageRating
		c.AverageRating = &r
	}
	return c
}

func (repo *courseRepository) CreateCourse(_ context.Context, c lms.Course, exec ...core.DBExecutor) (lms.Course, error) {
	defer repo.db.lock(exec)()

	if _, ok := repo.db.t.courses[c.ID]; ok {
		return lms.Course{}, core.ErrConflict
	}
	c = cloneCourse(c)
	put(repo.db, repo.db.t.courses, c.ID, c)
	return cloneCourse(c), nil
}

func (repo *courseRepository) GetCourseByID(_ context.Context, id string, _ ...core.DBExecutor) (lms.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if r, ok := repo.db.t.courses[id]; ok {
		return cloneCourse(r.val), nil
	}
	return lms.Course{}, lms.ErrCourseNotFound
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter lms.CourseFilter, _ ...core.DBExecutor) ([]lms.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	courses := repo.db.t.courses.rows(func(c lms.Course) bool {
		switch {
		case filter.Status != "" && c.Status != filter.Status:
			return false
		case filter.Category != "" && c.Category != filter.Category:
			return false
		case filter.Level != "" && c.Level != filter.Level:
			return false
		case filter.InstructorID != "" && c.InstructorID != filter.InstructorID:
			return false
		}
		return true
	})
	newestFirst(courses, func(c lms.Course) int64 { return c.CreatedAt })
	if filter.Limit > 0 && len(courses) > filter.Limit {
		courses = courses[:filter.Limit]
	}
	for i := range courses {
		courses[i] = cloneCourse(courses[i])
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(_ context.Context, c lms.Course, exec ...core.DBExecutor) (lms.Course, error) {
	defer repo.db.lock(exec)()

	orig, ok := repo.db.t.courses[c.ID]
	if !ok {
		return lms.Course{}, lms.ErrCourseNotFound
	}
	c.EnrollmentCount = orig.val.EnrollmentCount
	c.CreatedAt = orig.val.CreatedAt
	c = cloneCourse(c)
	put(repo.db, repo.db.t.courses, c.ID, c)
	return cloneCourse(c), nil
}

func (repo *courseRepository) IncrementEnrollmentCount(_ context.Context, id string, delta int, exec ...core.DBExecutor) error {
	defer repo.db.lock(exec)()

	r, ok := repo.db.t.courses[id]
	if !ok {
		return lms.ErrCourseNotFound
	}
	r.val.EnrollmentCount += delta
	if r.val.EnrollmentCount < 0 {
		r.val.EnrollmentCount = 0
	}
	repo.db.t.courses[id] = r
	return nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id string, exec ...core.DBExecutor) error {
	defer repo.db.lock(exec)()

	if _, ok := repo.db.t.courses[id]; !ok {
		return lms.ErrCourseNotFound
	}
	delete(repo.db.t.courses, id)
	return nil
}
