package sqlxrepos

import (
	"context"

	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/lms"
)

const enrollmentColumns = `id, student_id, course_id, status, enrolled_at, completed_at, last_accessed_at,
	progress_percentage, completed_modules, current_module_id, total_time_spent_minutes, average_score`

type enrollmentRow struct {
	ID                    string         `db:"id"`
	StudentID             string         `db:"student_id"`
	CourseID              string         `db:"course_id"`
	Status                string         `db:"status"`
	EnrolledAt            int64          `db:"enrolled_at"`
	CompletedAt           null.Int64     `db:"completed_at"`
	LastAccessedAt        null.Int64     `db:"last_accessed_at"`
	ProgressPercentage    int            `db:"progress_percentage"`
	CompletedModules      pq.StringArray `db:"completed_modules"`
	CurrentModuleID       null.String    `db:"current_module_id"`
	TotalTimeSpentMinutes int            `db:"total_time_spent_minutes"`
	AverageScore          null.Float64   `db:"average_score"`
}

func toEnrollmentRow(e lms.Enrollment) enrollmentRow {
	return enrollmentRow{
		ID:                    e.ID,
		StudentID:             e.StudentID,
		CourseID:              e.CourseID,
		Status:                string(e.Status),
		EnrolledAt:            e.EnrolledAt,
		CompletedAt:           null.NewInt64(e.CompletedAt, e.CompletedAt != 0),
		LastAccessedAt:        null.NewInt64(e.LastAccessedAt, e.LastAccessedAt != 0),
		ProgressPercentage:    e.ProgressPercentage,
		CompletedModules:      nonNil(e.CompletedModules),
		CurrentModuleID:       null.NewString(e.CurrentModuleID, e.CurrentModuleID != ""),
		TotalTimeSpentMinutes: e.TotalTimeSpentMinutes,
		AverageScore:          null.Float64FromPtr(e.AverageScore),
	}
}

func (row enrollmentRow) toEnrollment() lms.Enrollment {
	return lms.Enrollment{
		ID:                    row.ID,
		StudentID:             row.StudentID,
		CourseID:              row.CourseID,
		Status:                lms.EnrollmentStatus(row.Status),
		EnrolledAt:            row.EnrolledAt,
		CompletedAt:           row.CompletedAt.Int64,
		LastAccessedAt:        row.LastAccessedAt.Int64,
		ProgressPercentage:    row.ProgressPercentage,
		CompletedModules:      nonNil(row.CompletedModules),
		CurrentModuleID:       row.CurrentModuleID.String,
		TotalTimeSpentMinutes: row.TotalTimeSpentMinutes,
		AverageScore:          row.AverageScore.Ptr(),
	}
}

type enrollmentRepository struct {
	repo
}

var _ lms.EnrollmentRepository = (*enrollmentRepository)(nil)

func NewEnrollmentRepository(db core.DBExecutor) *enrollmentRepository {
	return &enrollmentRepository{repo{db: db}}
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, e lms.Enrollment, exec ...core.DBExecutor) (lms.Enrollment, error) {
	q := `INSERT INTO enrollments (` + enrollmentColumns + `) VALUES (:id, :student_id, :course_id, :status,
		:enrolled_at, :completed_at, :last_accessed_at, :progress_percentage, :completed_modules,
		:current_module_id, :total_time_spent_minutes, :average_score)`
	if err := namedExec(ctx, repo.getExec(exec), q, toEnrollmentRow(e)); err != nil {
		return lms.Enrollment{}, err
	}
	return e, nil
}

func (repo *enrollmentRepository) GetEnrollmentByID(ctx context.Context, id string, exec ...core.DBExecutor) (lms.Enrollment, error) {
	var row enrollmentRow
	if err := get(ctx, repo.getExec(exec), &row, lms.ErrEnrollmentNotFound, `SELECT `+enrollmentColumns+` FROM enrollments WHERE id = $1`, id); err != nil {
		return lms.Enrollment{}, err
	}
	return row.toEnrollment(), nil
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, courseID, studentID string, exec ...core.DBExecutor) (lms.Enrollment, error) {
	var row enrollmentRow
	q := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE course_id = $1 AND student_id = $2`
	if err := get(ctx, repo.getExec(exec), &row, lms.ErrEnrollmentNotFound, q, courseID, studentID); err != nil {
		return lms.Enrollment{}, err
	}
	return row.toEnrollment(), nil
}

func (repo *enrollmentRepository) QueryEnrollments(ctx context.Context, filter lms.EnrollmentFilter, exec ...core.DBExecutor) ([]lms.Enrollment, error) {
	w := new(where)
	if filter.CourseIDs != nil {
		w.add("course_id = ANY($%d::uuid[])", pq.Array(filter.CourseIDs))
	}
	if filter.StudentID != "" {
		w.add("student_id = $%d", filter.StudentID)
	}
	if filter.Status != "" {
		w.add("status = $%d", string(filter.Status))
	}
	q := `SELECT ` + enrollmentColumns + ` FROM enrollments` + w.String() +
		` ORDER BY COALESCE(last_accessed_at, enrolled_at) DESC, id`

	var rows []enrollmentRow
	if err := selectRows(ctx, repo.getExec(exec), &rows, q, w.args...); err != nil {
		return nil, err
	}
	enrollments := make([]lms.Enrollment, len(rows))
	for i, row := range rows {
		enrollments[i] = row.toEnrollment()
	}
	return enrollments, nil
}

func (repo *enrollmentRepository) UpdateEnrollment(ctx context.Context, e lms.Enrollment, exec ...core.DBExecutor) (lms.Enrollment, error) {
	row := toEnrollmentRow(e)
	q := `UPDATE enrollments SET status = $2, enrolled_at = $3, completed_at = $4, last_accessed_at = $5,
		progress_percentage = $6, completed_modules = $7, current_module_id = $8, total_time_spent_minutes = $9,
		average_score = $10 WHERE id = $1`
	err := mustAffect(ctx, repo.getExec(exec), lms.ErrEnrollmentNotFound, q, row.ID, row.Status, row.EnrolledAt,
		row.CompletedAt, row.LastAccessedAt, row.ProgressPercentage, row.CompletedModules, row.CurrentModuleID,
		row.TotalTimeSpentMinutes, row.AverageScore)
	if err != nil {
		return lms.Enrollment{}, err
	}
	return e, nil
}

func (repo *enrollmentRepository) DeleteEnrollmentsByCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) error {
	return execStmt(ctx, repo.getExec(exec), `DELETE FROM enrollments WHERE course_id = $1`, courseID)
}

func (repo *enrollmentRepository) DeleteEnrollmentsByStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) error {
	return execStmt(ctx, repo.getExec(exec), `DELETE FROM enrollments WHERE student_id = $1`, studentID)
}

// module progress

const progressColumns = `id, enrollment_id, student_id, module_id, status, progress_percentage, time_spent_seconds,
	score, max_score, started_at, completed_at, last_accessed_at`

type progressRow struct {
	ID                 string       `db:"id"`
	EnrollmentID       string       `db:"enrollment_id"`
	StudentID          string       `db:"student_id"`
	ModuleID           string       `db:"module_id"`
	Status             string       `db:"status"`
	ProgressPercentage int          `db:"progress_percentage"`
	TimeSpentSeconds   int          `db:"time_spent_seconds"`
	Score              null.Float64 `db:"score"`
	MaxScore           null.Float64 `db:"max_score"`
	StartedAt          null.Int64   `db:"started_at"`
	CompletedAt        null.Int64   `db:"completed_at"`
	LastAccessedAt     null.Int64   `db:"last_accessed_at"`
}

func toProgressRow(p lms.ModuleProgress) progressRow {
	return progressRow{
		ID:                 p.ID,
		EnrollmentID:       p.EnrollmentID,
		StudentID:          p.StudentID,
		ModuleID:           p.ModuleID,
		Status:             string(p.Status),
		ProgressPercentage: p.ProgressPercentage,
		TimeSpentSeconds:   p.TimeSpentSeconds,
		Score:              null.Float64FromPtr(p.Score),
		MaxScore:           null.Float64FromPtr(p.MaxScore),
		StartedAt:          null.NewInt64(p.StartedAt, p.StartedAt != 0),
		CompletedAt:        null.NewInt64(p.CompletedAt, p.CompletedAt != 0),
		LastAccessedAt:     null.NewInt64(p.LastAccessedAt, p.LastAccessedAt != 0),
	}
}

func (row progressRow) toProgress() lms.ModuleProgress {
	return lms.ModuleProgress{
		ID:                 row.ID,
		EnrollmentID:       row.EnrollmentID,
		StudentID:          row.StudentID,
		ModuleID:           row.ModuleID,
		Status:             lms.ProgressStatus(row.Status),
		ProgressPercentage: row.ProgressPercentage,
		TimeSpentSeconds:   row.TimeSpentSeconds,
		Score:              row.Score.Ptr(),
		MaxScore:           row.MaxScore.Ptr(),
		StartedAt:          row.StartedAt.Int64,
		CompletedAt:        row.CompletedAt.Int64,
		LastAccessedAt:     row.LastAccessedAt.Int64,
	}
}

func toProgressList(rows []progressRow) []lms.ModuleProgress {
	out := make([]lms.ModuleProgress, len(rows))
	for i, row := range rows {
		out[i] = row.toProgress()
	}
	return out
}

type progressRepository struct {
	repo
}

var _ lms.ProgressRepository = (*progressRepository)(nil)

func NewProgressRepository(db core.DBExecutor) *progressRepository {
	return &progressRepository{repo{db: db}}
}

func (repo *progressRepository) CreateModuleProgress(ctx context.Context, p lms.ModuleProgress, exec ...core.DBExecutor) (lms.ModuleProgress, error) {
	q := `INSERT INTO module_progress (` + progressColumns + `) VALUES (:id, :enrollment_id, :student_id, :module_id,
		:status, :progress_percentage, :time_spent_seconds, :score, :max_score, :started_at, :completed_at,
		:last_accessed_at)`
	if err := namedExec(ctx, repo.getExec(exec), q, toProgressRow(p)); err != nil {
		return lms.ModuleProgress{}, err
	}
	return p, nil
}

func (repo *progressRepository) GetModuleProgress(ctx context.Context, enrollmentID, moduleID string, exec ...core.DBExecutor) (lms.ModuleProgress, error) {
	var row progressRow
	q := `SELECT ` + progressColumns + ` FROM module_progress WHERE enrollment_id = $1 AND module_id = $2`
	if err := get(ctx, repo.getExec(exec), &row, lms.ErrProgressNotFound, q, enrollmentID, moduleID); err != nil {
		return lms.ModuleProgress{}, err
	}
	return row.toProgress(), nil
}

func (repo *progressRepository) GetProgressByEnrollment(ctx context.Context, enrollmentID string, exec ...core.DBExecutor) ([]lms.ModuleProgress, error) {
	var rows []progressRow
	q := `SELECT ` + progressColumns + ` FROM module_progress WHERE enrollment_id = $1`
	if err := selectRows(ctx, repo.getExec(exec), &rows, q, enrollmentID); err != nil {
		return nil, err
	}
	return toProgressList(rows), nil
}

func (repo *progressRepository) GetProgressByModule(ctx context.Context, moduleID string, exec ...core.DBExecutor) ([]lms.ModuleProgress, error) {
	var rows []progressRow
	q := `SELECT ` + progressColumns + ` FROM module_progress WHERE module_id = $1`
	if err := selectRows(ctx, repo.getExec(exec), &rows, q, moduleID); err != nil {
		return nil, err
	}
	return toProgressList(rows), nil
}

func (repo *progressRepository) UpdateModuleProgress(ctx context.Context, p lms.ModuleProgress, exec ...core.DBExecutor) (lms.ModuleProgress, error) {
	row := toProgressRow(p)
	q := `UPDATE module_progress SET status = $2, progress_percentage = $3, time_spent_seconds = $4, score = $5,
		max_score = $6, started_at = $7, completed_at = $8, last_accessed_at = $9 WHERE id = $1`
	err := mustAffect(ctx, repo.getExec(exec), lms.ErrProgressNotFound, q, row.ID, row.Status,
		row.ProgressPercentage, row.TimeSpentSeconds, row.Score, row.MaxScore, row.StartedAt, row.CompletedAt,
		row.LastAccessedAt)
	if err != nil {
		return lms.ModuleProgress{}, err
	}
	return p, nil
}

func (repo *progressRepository) DeleteProgressByModule(ctx context.Context, moduleID string, exec ...core.DBExecutor) error {
	return execStmt(ctx, repo.getExec(exec), `DELETE FROM module_progress WHERE module_id = $1`, moduleID)
}

func (repo *progressRepository) DeleteProgressByStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) error {
	return execStmt(ctx, repo.getExec(exec), `DELETE FROM module_progress WHERE student_id = $1`, studentID)
}
