package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/lms"
)

const exerciseColumns = `id, module_id, title, description, type, question, options, correct_answer, max_attempts,
	time_limit, max_score, passing_score, difficulty, tags, ai_generated, created_at, updated_at`

type exerciseRow struct {
	ID            string             `db:"id"`
	ModuleID      string             `db:"module_id"`
	Title         string             `db:"title"`
	Description   string             `db:"description"`
	Type          string             `db:"type"`
	Question      string             `db:"question"`
	Options       types.NullJSONText `db:"options"`
	CorrectAnswer null.String        `db:"correct_answer"`
	MaxAttempts   null.Int           `db:"max_attempts"`
	TimeLimit     null.Int           `db:"time_limit"`
	MaxScore      float64            `db:"max_score"`
	PassingScore  null.Float64       `db:"passing_score"`
	Difficulty    string             `db:"difficulty"`
	Tags          pq.StringArray     `db:"tags"`
	AIGenerated   bool               `db:"ai_generated"`
	CreatedAt     int64              `db:"created_at"`
	UpdatedAt     int64              `db:"updated_at"`
}

func toExerciseRow(ex lms.Exercise) (exerciseRow, error) {
	opts, err := toNullJSON(ex.Options, len(ex.Options) > 0)
	if err != nil {
		return exerciseRow{}, err
	}
	return exerciseRow{
		ID:            ex.ID,
		ModuleID:      ex.ModuleID,
		Title:         ex.Title,
		Description:   ex.Description,
		Type:          string(ex.Type),
		Question:      ex.Question,
		Options:       opts,
		CorrectAnswer: null.NewString(ex.CorrectAnswer, ex.CorrectAnswer != ""),
		MaxAttempts:   null.IntFromPtr(ex.MaxAttempts),
		TimeLimit:     null.IntFromPtr(ex.TimeLimit),
		MaxScore:      ex.MaxScore,
		PassingScore:  null.Float64FromPtr(ex.PassingScore),
		Difficulty:    string(ex.Difficulty),
		Tags:          nonNil(ex.Tags),
		AIGenerated:   ex.AIGenerated,
		CreatedAt:     ex.CreatedAt,
		UpdatedAt:     ex.UpdatedAt,
	}, nil
}

func (row exerciseRow) toExercise() (lms.Exercise, error) {
	ex := lms.Exercise{
		ID:            row.ID,
		ModuleID:      row.ModuleID,
		Title:         row.Title,
		Description:   row.Description,
		Type:          lms.ExerciseType(row.Type),
		Question:      row.Question,
		CorrectAnswer: row.CorrectAnswer.String,
		MaxAttempts:   row.MaxAttempts.Ptr(),
		TimeLimit:     row.TimeLimit.Ptr(),
		MaxScore:      row.MaxScore,
		PassingScore:  row.PassingScore.Ptr(),
		Difficulty:    lms.Difficulty(row.Difficulty),
		Tags:          nonNil(row.Tags),
		AIGenerated:   row.AIGenerated,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if _, err := fromNullJSON(row.Options, &ex.Options); err != nil {
		return lms.Exercise{}, err
	}
	return ex, nil
}

type exerciseRepository struct {
	repo
}

var _ lms.ExerciseRepository = (*exerciseRepository)(nil)

func NewExerciseRepository(db core.DBExecutor) *exerciseRepository {
	return &exerciseRepository{repo{db: db}}
}

func (repo *exerciseRepository) CreateExercise(ctx context.Context, ex lms.Exercise, exec ...core.DBExecutor) (lms.Exercise, error) {
	row, err := toExerciseRow(ex)
	if err != nil {
		return lms.Exercise{}, err
	}
	q := `INSERT INTO exercises (` + exerciseColumns + `) VALUES (:id, :module_id, :title, :description, :type,
		:question, :options, :correct_answer, :max_attempts, :time_limit, :max_score, :passing_score, :difficulty,
		:tags, :ai_generated, :created_at, :updated_at)`
	if err = namedExec(ctx, repo.getExec(exec), q, row); err != nil {
		return lms.Exercise{}, err
	}
	return ex, nil
}

func (repo *exerciseRepository) GetExerciseByID(ctx context.Context, id string, exec ...core.DBExecutor) (lms.Exercise, error) {
	var row exerciseRow
	if err := get(ctx, repo.getExec(exec), &row, lms.ErrExerciseNotFound, `SELECT `+exerciseColumns+` FROM exercises WHERE id = $1`, id); err != nil {
		return lms.Exercise{}, err
	}
	return row.toExercise()
}

func (repo *exerciseRepository) GetExercisesByModules(ctx context.Context, moduleIDs []string, exec ...core.DBExecutor) ([]lms.Exercise, error) {
	if len(moduleIDs) == 0 {
		return []lms.Exercise{}, nil
	}
	var rows []exerciseRow
	q := `SELECT ` + exerciseColumns + ` FROM exercises WHERE module_id = ANY($1::uuid[]) ORDER BY created_at, id`
	if err := selectRows(ctx, repo.getExec(exec), &rows, q, pq.Array(moduleIDs)); err != nil {
		return nil, err
	}
	exercises := make([]lms.Exercise, 0, len(rows))
	for _, row := range rows {
		ex, err := row.toExercise()
		if err != nil {
			return nil, err
		}
		exercises = append(exercises, ex)
	}
	return exercises, nil
}

func (repo *exerciseRepository) UpdateExercise(ctx context.Context, ex lms.Exercise, exec ...core.DBExecutor) (lms.Exercise, error) {
	row, err := toExerciseRow(ex)
	if err != nil {
		return lms.Exercise{}, err
	}
	q := `UPDATE exercises SET module_id = $2, title = $3, description = $4, type = $5, question = $6, options = $7,
		correct_answer = $8, max_attempts = $9, time_limit = $10, max_score = $11, passing_score = $12,
		difficulty = $13, tags = $14, ai_generated = $15, updated_at = $16 WHERE id = $1`
	err = mustAffect(ctx, repo.getExec(exec), lms.ErrExerciseNotFound, q, row.ID, row.ModuleID, row.Title,
		row.Description, row.Type, row.Question, row.Options, row.CorrectAnswer, row.MaxAttempts, row.TimeLimit,
		row.MaxScore, row.PassingScore, row.Difficulty, row.Tags, row.AIGenerated, row.UpdatedAt)
	if err != nil {
		return lms.Exercise{}, err
	}
	return ex, nil
}

func (repo *exerciseRepository) DeleteExercise(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return mustAffect(ctx, repo.getExec(exec), lms.ErrExerciseNotFound, `DELETE FROM exercises WHERE id = $1`, id)
}

// submissions

const submissionColumns = `id, exercise_id, student_id, answer, attachments, score, max_score, status,
	grading_result, instructor_feedback, attempt_number, time_spent_seconds, submitted_at, graded_at`

type submissionRow struct {
	ID                 string             `db:"id"`
	ExerciseID         string             `db:"exercise_id"`
	StudentID          string             `db:"student_id"`
	Answer             string             `db:"answer"`
	Attachments        pq.StringArray     `db:"attachments"`
	Score              null.Float64       `db:"score"`
	MaxScore           float64            `db:"max_score"`
	Status             string             `db:"status"`
	GradingResult      types.NullJSONText `db:"grading_result"`
	InstructorFeedback null.String        `db:"instructor_feedback"`
	AttemptNumber      int                `db:"attempt_number"`
	TimeSpentSeconds   int                `db:"time_spent_seconds"`
	SubmittedAt        int64              `db:"submitted_at"`
	GradedAt           null.Int64         `db:"graded_at"`
}

func toSubmissionRow(s lms.Submission) (submissionRow, error) {
	res, err := toNullJSON(s.GradingResult, s.GradingResult != nil)
	if err != nil {
		return submissionRow{}, err
	}
	return submissionRow{
		ID:                 s.ID,
		ExerciseID:         s.ExerciseID,
		StudentID:          s.StudentID,
		Answer:             s.Answer,
		Attachments:        nonNil(s.Attachments),
		Score:              null.Float64FromPtr(s.Score),
		MaxScore:           s.MaxScore,
		Status:             string(s.Status),
		GradingResult:      res,
		InstructorFeedback: null.NewString(s.InstructorFeedback, s.InstructorFeedback != ""),
		AttemptNumber:      s.AttemptNumber,
		TimeSpentSeconds:   s.TimeSpentSeconds,
		SubmittedAt:        s.SubmittedAt,
		GradedAt:           null.NewInt64(s.GradedAt, s.GradedAt != 0),
	}, nil
}

func (row submissionRow) toSubmission() (lms.Submission, error) {
	s := lms.Submission{
		ID:                 row.ID,
		ExerciseID:         row.ExerciseID,
		StudentID:          row.StudentID,
		Answer:             row.Answer,
		Attachments:        nonNil(row.Attachments),
		Score:              row.Score.Ptr(),
		MaxScore:           row.MaxScore,
		Status:             lms.SubmissionStatus(row.Status),
		InstructorFeedback: row.InstructorFeedback.String,
		AttemptNumber:      row.AttemptNumber,
		TimeSpentSeconds:   row.TimeSpentSeconds,
		SubmittedAt:        row.SubmittedAt,
		GradedAt:           row.GradedAt.Int64,
	}
	var res lms.GradingResult
	ok, err := fromNullJSON(row.GradingResult, &res)
	if err != nil {
		return lms.Submission{}, err
	}
	if ok {
		s.GradingResult = &res
	}
	return s, nil
}

type submissionRepository struct {
	repo
}

var _ lms.SubmissionRepository = (*submissionRepository)(nil)

func NewSubmissionRepository(db core.DBExecutor) *submissionRepository {
	return &submissionRepository{repo{db: db}}
}

func (repo *submissionRepository) CreateSubmission(ctx context.Context, s lms.Submission, exec ...core.DBExecutor) (lms.Submission, error) {
	row, err := toSubmissionRow(s)
	if err != nil {
		return lms.Submission{}, err
	}
	q := `INSERT INTO submissions (` + submissionColumns + `) VALUES (:id, :exercise_id, :student_id, :answer,
		:attachments, :score, :max_score, :status, :grading_result, :instructor_feedback, :attempt_number,
		:time_spent_seconds, :submitted_at, :graded_at)`
	if err = namedExec(ctx, repo.getExec(exec), q, row); err != nil {
		return lms.Submission{}, err
	}
	return s, nil
}

func (repo *submissionRepository) GetSubmissionByID(ctx context.Context, id string, exec ...core.DBExecutor) (lms.Submission, error) {
	var row submissionRow
	if err := get(ctx, repo.getExec(exec), &row, lms.ErrSubmissionNotFound, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id); err != nil {
		return lms.Submission{}, err
	}
	return row.toSubmission()
}

func (repo *submissionRepository) QuerySubmissions(ctx context.Context, filter lms.SubmissionFilter, exec ...core.DBExecutor) ([]lms.Submission, error) {
	w := new(where)
	if filter.StudentID != "" {
		w.add("student_id = $%d", filter.StudentID)
	}
	if filter.ExerciseIDs != nil {
		w.add("exercise_id = ANY($%d::uuid[])", pq.Array(filter.ExerciseIDs))
	}
	q := `SELECT ` + submissionColumns + ` FROM submissions` + w.String() + ` ORDER BY submitted_at DESC, attempt_number DESC`

	var rows []submissionRow
	if err := selectRows(ctx, repo.getExec(exec), &rows, q, w.args...); err != nil {
		return nil, err
	}
	subs := make([]lms.Submission, 0, len(rows))
	for _, row := range rows {
		s, err := row.toSubmission()
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, nil
}

func (repo *submissionRepository) CountSubmissions(ctx context.Context, studentID, exerciseID string, exec ...core.DBExecutor) (int, error) {
	var n int
	q := `SELECT COUNT(*) FROM submissions WHERE student_id = $1 AND exercise_id = $2`
	if err := get(ctx, repo.getExec(exec), &n, nil, q, studentID, exerciseID); err != nil {
		return 0, err
	}
	return n, nil
}

func (repo *submissionRepository) UpdateSubmission(ctx context.Context, s lms.Submission, exec ...core.DBExecutor) (lms.Submission, error) {
	row, err := toSubmissionRow(s)
	if err != nil {
		return lms.Submission{}, err
	}
	q := `UPDATE submissions SET score = $2, status = $3, grading_result = $4, instructor_feedback = $5,
		graded_at = $6 WHERE id = $1`
	err = mustAffect(ctx, repo.getExec(exec), lms.ErrSubmissionNotFound, q, row.ID, row.Score, row.Status,
		row.GradingResult, row.InstructorFeedback, row.GradedAt)
	if err != nil {
		return lms.Submission{}, err
	}
	return s, nil
}

func (repo *submissionRepository) DeleteSubmissionsByExercises(ctx context.Context, exerciseIDs []string, exec ...core.DBExecutor) error {
	if len(exerciseIDs) == 0 {
		return nil
	}
	return execStmt(ctx, repo.getExec(exec), `DELETE FROM submissions WHERE exercise_id = ANY($1::uuid[])`, pq.Array(exerciseIDs))
}

func (repo *submissionRepository) DeleteSubmissionsByStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) error {
	return execStmt(ctx, repo.getExec(exec), `DELETE FROM submissions WHERE student_id = $1`, studentID)
}
