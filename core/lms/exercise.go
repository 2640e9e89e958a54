package lms

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

type ExerciseType string

const (
	ExerciseMultipleChoice ExerciseType = "multiple_choice"
	ExerciseOpenEnded      ExerciseType = "open_ended"
	ExerciseCoding         ExerciseType = "coding"
	ExerciseFileUpload     ExerciseType = "file_upload"
)

func (t ExerciseType) Valid() bool {
	switch t {
	case ExerciseMultipleChoice, ExerciseOpenEnded, ExerciseCoding, ExerciseFileUpload:
		return true
	}
	return false
}

// AutoGraded reports whether submissions of this type are scored on submit.
func (t ExerciseType) AutoGraded() bool { return t == ExerciseMultipleChoice }

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

const defaultMaxScore = 20

type Option struct {
	ID        string `json:"id" validate:"required,notblank,max=20"`
	Text      string `json:"text" validate:"required,notblank"`
	IsCorrect bool   `json:"is_correct"`
}

type Exercise struct {
	ID            string       `json:"id"`
	ModuleID      string       `json:"module_id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Type          ExerciseType `json:"type"`
	Question      string       `json:"question"`
	Options       []Option     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correct_answer,omitempty"`
	MaxAttempts   *int         `json:"max_attempts,omitempty"`
	TimeLimit     *int         `json:"time_limit,omitempty"` // minutes
	MaxScore      float64      `json:"max_score"`
	PassingScore  *float64     `json:"passing_score,omitempty"`
	Difficulty    Difficulty   `json:"difficulty"`
	Tags          []string     `json:"tags"`
	AIGenerated   bool         `json:"ai_generated"`
	CreatedAt     int64        `json:"created_at"`
	UpdatedAt     int64        `json:"updated_at"`
}

// Redacted hides the answer key from callers who cannot write the exercise.
func (e Exercise) Redacted() Exercise {
	if len(e.Options) > 0 {
		opts := make([]Option, len(e.Options))
		for i, o := range e.Options {
			opts[i] = Option{ID: o.ID, Text: o.Text}
		}
		e.Options = opts
	}
	e.CorrectAnswer = ""
	return e
}

// checkVariant enforces the fields each exercise type requires or forbids.
func (e *Exercise) checkVariant() error {
	var flds []core.FieldError
	switch e.Type {
	case ExerciseMultipleChoice:
		if len(e.Options) == 0 {
			flds = append(flds, core.FieldError{Field: "options", Error: "multiple choice exercises must have options"})
			break
		}
		seen := make(map[string]struct{}, len(e.Options))
		var correct int
		for _, o := range e.Options {
			if _, ok := seen[o.ID]; ok {
				flds = append(flds, core.FieldError{Field: "options", Error: "option ids must be unique"})
				break
			}
			seen[o.ID] = struct{}{}
			if strings.Contains(o.ID, ",") {
				flds = append(flds, core.FieldError{Field: "options", Error: "option ids cannot contain commas"})
				break
			}
			if o.IsCorrect {
				correct++
			}
		}
		if correct == 0 {
			flds = append(flds, core.FieldError{Field: "options", Error: "multiple choice exercises must have at least one correct answer"})
		}
		if e.CorrectAnswer != "" {
			flds = append(flds, core.FieldError{Field: "correct_answer", Error: "multiple choice exercises use options instead"})
		}
	case ExerciseOpenEnded, ExerciseCoding:
		if len(e.Options) > 0 {
			flds = append(flds, core.FieldError{Field: "options", Error: "only multiple choice exercises have options"})
		}
	case ExerciseFileUpload:
		if len(e.Options) > 0 {
			flds = append(flds, core.FieldError{Field: "options", Error: "only multiple choice exercises have options"})
		}
		if e.CorrectAnswer != "" {
			flds = append(flds, core.FieldError{Field: "correct_answer", Error: "file upload exercises have no correct answer"})
		}
	default:
		flds = append(flds, core.FieldError{Field: "type", Error: "invalid exercise type"})
	}

	if e.MaxScore <= 0 {
		flds = append(flds, core.FieldError{Field: "max_score", Error: "must be greater than 0"})
	}
	if e.PassingScore != nil && (*e.PassingScore < 0 || *e.PassingScore > e.MaxScore) {
		flds = append(flds, core.FieldError{Field: "passing_score", Error: "must be between 0 and max_score"})
	}

	if len(flds) > 0 {
		return core.NewValidationError(errors.New(flds[0].Error), flds...)
	}
	return nil
}

type SubmissionStatus string

const (
	SubmissionSubmitted   SubmissionStatus = "submitted"
	SubmissionGraded      SubmissionStatus = "graded"
	SubmissionNeedsReview SubmissionStatus = "needs_review"
)

type GradingResult struct {
	Score       float64  `json:"score"`
	Feedback    string   `json:"feedback"`
	Suggestions []string `json:"suggestions"`
	Confidence  float64  `json:"confidence"`
}

type Submission struct {
	ID                 string           `json:"id"`
	ExerciseID         string           `json:"exercise_id"`
	StudentID          string           `json:"student_id"`
	Answer             string           `json:"answer"`
	Attachments        []string         `json:"attachments"`
	Score              *float64         `json:"score,omitempty"`
	MaxScore           float64          `json:"max_score"`
	Status             SubmissionStatus `json:"status"`
	GradingResult      *GradingResult   `json:"grading_result,omitempty"`
	InstructorFeedback string           `json:"instructor_feedback,omitempty"`
	AttemptNumber      int              `json:"attempt_number"`
	TimeSpentSeconds   int              `json:"time_spent_seconds"`
	SubmittedAt        int64            `json:"submitted_at"`
	GradedAt           int64            `json:"graded_at,omitempty"`
}

type (
	ExerciseSummary struct {
		Exercise
		BestSubmission    *Submission `json:"best_submission,omitempty"`
		AttemptsUsed      int         `json:"attempts_used"`
		AttemptsRemaining *int        `json:"attempts_remaining,omitempty"`
	}

	SubmissionStats struct {
		BestScore       float64 `json:"best_score"`
		TotalAttempts   int     `json:"total_attempts"`
		TotalTimeSpent  int     `json:"total_time_spent_seconds"`
		AverageScore    float64 `json:"average_score"`
		HasPassingScore bool    `json:"has_passing_score"`
	}

	ExerciseDetail struct {
		Exercise
		Module      Module           `json:"module"`
		Course      Course           `json:"course"`
		Submissions []Submission     `json:"submissions,omitempty"`
		UserStats   *SubmissionStats `json:"user_stats,omitempty"`
	}

	ExerciseStats struct {
		TotalSubmissions   int                      `json:"total_submissions"`
		UniqueStudents     int                      `json:"unique_students"`
		AverageScore       float64                  `json:"average_score"`
		PassRate           *float64                 `json:"pass_rate,omitempty"`
		AverageAttempts    float64                  `json:"average_attempts"`
		AverageTimeSpent   float64                  `json:"average_time_spent_seconds"`
		StatusDistribution map[SubmissionStatus]int `json:"status_distribution"`
	}

	StatsScope struct {
		ExerciseID string `query:"exercise_id"`
		ModuleID   string `query:"module_id"`
		CourseID   string `query:"course_id"`
	}
)

type (
	NewExercise struct {
		Title         string       `json:"title" validate:"required,notblank,max=200"`
		Description   string       `json:"description"`
		Type          ExerciseType `json:"type" validate:"required,exercisetype"`
		Question      string       `json:"question" validate:"required,notblank"`
		Options       []Option     `json:"options" validate:"max=26,dive"`
		CorrectAnswer string       `json:"correct_answer"`
		MaxAttempts   *int         `json:"max_attempts" validate:"omitempty,gte=1"`
		TimeLimit     *int         `json:"time_limit" validate:"omitempty,gte=1"`
		MaxScore      *float64     `json:"max_score" validate:"omitempty,gt=0"`
		PassingScore  *float64     `json:"passing_score" validate:"omitempty,gte=0"`
		Difficulty    Difficulty   `json:"difficulty" validate:"required,difficulty"`
		Tags          []string     `json:"tags" validate:"max=30"`
	}

	UpdateExercise struct {
		Title         *string       `json:"title" validate:"omitempty,notblank,max=200"`
		Description   *string       `json:"description"`
		Type          *ExerciseType `json:"type" validate:"omitempty,exercisetype"`
		Question      *string       `json:"question" validate:"omitempty,notblank"`
		Options       *[]Option     `json:"options" validate:"omitempty,max=26,dive"`
		CorrectAnswer *string       `json:"correct_answer"`
		MaxAttempts   *int          `json:"max_attempts" validate:"omitempty,gte=1"`
		TimeLimit     *int          `json:"time_limit" validate:"omitempty,gte=1"`
		MaxScore      *float64      `json:"max_score" validate:"omitempty,gt=0"`
		PassingScore  *float64      `json:"passing_score" validate:"omitempty,gte=0"`
		Difficulty    *Difficulty   `json:"difficulty" validate:"omitempty,difficulty"`
		Tags          *[]string     `json:"tags" validate:"omitempty,max=30"`
	}

	NewSubmission struct {
		Answer           string   `json:"answer"`
		Attachments      []string `json:"attachments" validate:"max=10,dive,url"`
		TimeSpentSeconds int      `json:"time_spent_seconds" validate:"gte=0"`
	}

	GradeSubmission struct {
		Score    float64 `json:"score"`
		Feedback string  `json:"feedback"`
	}

	GenerateExercises struct {
		Topic      string       `json:"topic" validate:"required,notblank,max=200"`
		Difficulty Difficulty   `json:"difficulty" validate:"required,difficulty"`
		Type       ExerciseType `json:"type" validate:"required,exercisetype"`
		Count      int          `json:"count" validate:"omitempty,min=1,max=10"`
	}

	DuplicateExercise struct {
		TargetModuleID string `json:"target_module_id"`
		Title          string `json:"title" validate:"omitempty,notblank,max=200"`
	}

	AIExerciseFilter struct {
		CourseID   string     `query:"course_id"`
		Difficulty Difficulty `query:"difficulty"`
		Limit      int        `query:"limit"`
	}
)

func (ne *NewExercise) toExercise(moduleID string, now int64) Exercise {
	ex := Exercise{
		ID:            core.NewID(),
		ModuleID:      moduleID,
		Title:         core.CleanString(ne.Title),
		Description:   core.CleanString(ne.Description),
		Type:          ne.Type,
		Question:      core.CleanString(ne.Question),
		Options:       cleanOptions(ne.Options),
		CorrectAnswer: core.CleanString(ne.CorrectAnswer),
		MaxAttempts:   ne.MaxAttempts,
		TimeLimit:     ne.TimeLimit,
		MaxScore:      defaultMaxScore,
		PassingScore:  ne.PassingScore,
		Difficulty:    ne.Difficulty,
		Tags:          core.CleanStrings(ne.Tags),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if ne.MaxScore != nil {
		ex.MaxScore = *ne.MaxScore
	}
	return ex
}

func (ue *UpdateExercise) apply(ex Exercise) Exercise {
	if ue.Title != nil {
		ex.Title = core.CleanString(*ue.Title)
	}
	if ue.Description != nil {
		ex.Description = core.CleanString(*ue.Description)
	}
	if ue.Type != nil {
		ex.Type = *ue.Type
	}
	if ue.Question != nil {
		ex.Question = core.CleanString(*ue.Question)
	}
	if ue.Options != nil {
		ex.Options = cleanOptions(*ue.Options)
	}
	if ue.CorrectAnswer != nil {
		ex.CorrectAnswer = core.CleanString(*ue.CorrectAnswer)
	}
	if ue.MaxAttempts != nil {
		ex.MaxAttempts = ue.MaxAttempts
	}
	if ue.TimeLimit != nil {
		ex.TimeLimit = ue.TimeLimit
	}
	if ue.MaxScore != nil {
		ex.MaxScore = *ue.MaxScore
	}
	if ue.PassingScore != nil {
		ex.PassingScore = ue.PassingScore
	}
	if ue.Difficulty != nil {
		ex.Difficulty = *ue.Difficulty
	}
	if ue.Tags != nil {
		ex.Tags = core.CleanStrings(*ue.Tags)
	}
	return ex
}

func cleanOptions(opts []Option) []Option {
	if len(opts) == 0 {
		return nil
	}
	out := make([]Option, len(opts))
	for i, o := range opts {
		out[i] = Option{ID: core.CleanString(o.ID), Text: core.CleanString(o.Text), IsCorrect: o.IsCorrect}
	}
	return out
}
