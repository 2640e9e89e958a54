package sqlxrepos

import (
	"context"

	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/lms"
)

const courseColumns = `id, title, description, instructor_id, category, level, status, thumbnail, tags, objectives,
	prerequisites, estimated_duration, enrollment_count, average_rating, published_at, created_at, updated_at`

type courseRow struct {
	ID                string         `db:"id"`
	Title             string         `db:"title"`
	Description       string         `db:"description"`
	InstructorID      string         `db:"instructor_id"`
	Category          string         `db:"category"`
	Level             string         `db:"level"`
	Status            string         `db:"status"`
	Thumbnail         null.String    `db:"thumbnail"`
	Tags              pq.StringArray `db:"tags"`
	Objectives        pq.StringArray `db:"objectives"`
	Prerequisites     pq.StringArray `db:"prerequisites"`
	EstimatedDuration int            `db:"estimated_duration"`
	EnrollmentCount   int            `db:"enrollment_count"`
	AverageRating     null.Float64   `db:"average_rating"`
	PublishedAt       null.Int64     `db:"published_at"`
	CreatedAt         int64          `db:"created_at"`
	UpdatedAt         int64          `db:"updated_at"`
}

func toCourseRow(c lms.Course) courseRow {
	return courseRow{
		ID:                c.ID,
		Title:             c.Title,
		Description:       c.Description,
		InstructorID:      c.InstructorID,
		Category:          c.Category,
		Level:             string(c.Level),
		Status:            string(c.Status),
		Thumbnail:         null.NewString(c.Thumbnail, c.Thumbnail != ""),
		Tags:              nonNil(c.Tags),
		Objectives:        nonNil(c.Objectives),
		Prerequisites:     nonNil(c.Prerequisites),
		EstimatedDuration: c.EstimatedDuration,
		EnrollmentCount:   c.EnrollmentCount,
		AverageRating:     null.Float64FromPtr(c.AverageRating),
		PublishedAt:       null.NewInt64(c.PublishedAt, c.PublishedAt != 0),
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

func (row courseRow) toCourse() lms.Course {
	return lms.Course{
		ID:                row.ID,
		Title:             row.Title,
		Description:       row.Description,
		InstructorID:      row.InstructorID,
		Category:          row.Category,
		Level:             lms.Level(row.Level),
		Status:            lms.CourseStatus(row.Status),
		Thumbnail:         row.Thumbnail.String,
		Tags:              nonNil(row.Tags),
		Objectives:        nonNil(row.Objectives),
		Prerequisites:     nonNil(row.Prerequisites),
		EstimatedDuration: row.EstimatedDuration,
		EnrollmentCount:   row.EnrollmentCount,
		AverageRating:     row.AverageRating.Ptr(),
		PublishedAt:       row.PublishedAt.Int64,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}

type courseRepository struct {
	repo
}

var _ lms.CourseRepository = (*courseRepository)(nil)

func NewCourseRepository(db core.DBExecutor) *courseRepository {
	return &courseRepository{repo{db: db}}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c lms.Course, exec ...core.DBExecutor) (lms.Course, error) {
	q := `INSERT INTO courses (` + courseColumns + `) VALUES (:id, :title, :description, :instructor_id, :category,
		:level, :status, :thumbnail, :tags, :objectives, :prerequisites, :estimated_duration, :enrollment_count,
		:average_rating, :published_at, :created_at, :updated_at)`
	if err := namedExec(ctx, repo.getExec(exec), q, toCourseRow(c)); err != nil {
		return lms.Course{}, err
	}
	return c, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string, exec ...core.DBExecutor) (lms.Course, error) {
	var row courseRow
	if err := get(ctx, repo.getExec(exec), &row, lms.ErrCourseNotFound, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id); err != nil {
		return lms.Course{}, err
	}
	return row.toCourse(), nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter lms.CourseFilter, exec ...core.DBExecutor) ([]lms.Course, error) {
	w := new(where)
	if filter.Status != "" {
		w.add("status = $%d", string(filter.Status))
	}
	if filter.Category != "" {
		w.add("category = $%d", filter.Category)
	}
	if filter.Level != "" {
		w.add("level = $%d", string(filter.Level))
	}
	if filter.InstructorID != "" {
		w.add("instructor_id = $%d", filter.InstructorID)
	}
	q := `SELECT ` + courseColumns + ` FROM courses` + w.String() + ` ORDER BY created_at DESC, id`
	q += w.limit(filter.Limit)

	var rows []courseRow
	if err := selectRows(ctx, repo.getExec(exec), &rows, q, w.args...); err != nil {
		return nil, err
	}
	courses := make([]lms.Course, len(rows))
	for i, row := range rows {
		courses[i] = row.toCourse()
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c lms.Course, exec ...core.DBExecutor) (lms.Course, error) {
	row := toCourseRow(c)
	q := `UPDATE courses SET title = $2, description = $3, instructor_id = $4, category = $5, level = $6, status = $7,
		thumbnail = $8, tags = $9, objectives = $10, prerequisites = $11, estimated_duration = $12,
		average_rating = $13, published_at = $14, updated_at = $15 WHERE id = $1`
	err := mustAffect(ctx, repo.getExec(exec), lms.ErrCourseNotFound, q, row.ID, row.Title, row.Description,
		row.InstructorID, row.Category, row.Level, row.Status, row.Thumbnail, row.Tags, row.Objectives,
		row.Prerequisites, row.EstimatedDuration, row.AverageRating, row.PublishedAt, row.UpdatedAt)
	if err != nil {
		return lms.Course{}, err
	}
	return c, nil
}

func (repo *courseRepository) IncrementEnrollmentCount(ctx context.Context, id string, delta int, exec ...core.DBExecutor) error {
	q := `UPDATE courses SET enrollment_count = GREATEST(enrollment_count + $2, 0) WHERE id = $1`
	return mustAffect(ctx, repo.getExec(exec), lms.ErrCourseNotFound, q, id, delta)
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return mustAffect(ctx, repo.getExec(exec), lms.ErrCourseNotFound, `DELETE FROM courses WHERE id = $1`, id)
}
