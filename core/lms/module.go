package lms

import "github.com/trezcool/elimu/core"

type ModuleType string

const (
	ModuleLesson     ModuleType = "lesson"
	ModuleExercise   ModuleType = "exercise"
	ModuleQuiz       ModuleType = "quiz"
	ModuleAssignment ModuleType = "assignment"
)

func (t ModuleType) Valid() bool {
	switch t {
	case ModuleLesson, ModuleExercise, ModuleQuiz, ModuleAssignment:
		return true
	}
	return false
}

type Module struct {
	ID                string     `json:"id"`
	CourseID          string     `json:"course_id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Content           string     `json:"content"`
	Type              ModuleType `json:"type"`
	Order             int        `json:"order"`
	VideoURL          string     `json:"video_url,omitempty"`
	Attachments       []string   `json:"attachments"`
	EstimatedDuration int        `json:"estimated_duration"` // minutes
	IsRequired        bool       `json:"is_required"`
	CreatedAt         int64      `json:"created_at"`
	UpdatedAt         int64      `json:"updated_at"`
}

type (
	ModuleWithProgress struct {
		Module
		Progress *ModuleProgress `json:"progress,omitempty"`
	}

	ExerciseWithLatest struct {
		Exercise
		LatestSubmission *Submission `json:"latest_submission,omitempty"`
	}

	ModuleDetail struct {
		Module
		Course    Course               `json:"course"`
		Exercises []ExerciseWithLatest `json:"exercises"`
		Progress  *ModuleProgress      `json:"progress,omitempty"`
	}

	ModuleStats struct {
		TotalStudents    int     `json:"total_students"`
		Completed        int     `json:"completed"`
		InProgress       int     `json:"in_progress"`
		AverageProgress  float64 `json:"average_progress"`
		AverageTimeSpent float64 `json:"average_time_spent_minutes"`
	}

	InstructorModule struct {
		Module
		CourseTitle string       `json:"course_title"`
		Stats       *ModuleStats `json:"stats,omitempty"`
	}
)

type (
	NewModule struct {
		Title             string     `json:"title" validate:"required,notblank,max=200"`
		Description       string     `json:"description" validate:"required,notblank"`
		Content           string     `json:"content"`
		Type              ModuleType `json:"type" validate:"required,moduletype"`
		VideoURL          string     `json:"video_url" validate:"omitempty,url"`
		Attachments       []string   `json:"attachments" validate:"max=20,dive,url"`
		EstimatedDuration int        `json:"estimated_duration" validate:"gte=0"`
		IsRequired        *bool      `json:"is_required"`
	}

	UpdateModule struct {
		Title             *string     `json:"title" validate:"omitempty,notblank,max=200"`
		Description       *string     `json:"description" validate:"omitempty,notblank"`
		Content           *string     `json:"content"`
		Type              *ModuleType `json:"type" validate:"omitempty,moduletype"`
		VideoURL          *string     `json:"video_url" validate:"omitempty,url"`
		Attachments       *[]string   `json:"attachments" validate:"omitempty,max=20,dive,url"`
		EstimatedDuration *int        `json:"estimated_duration" validate:"omitempty,gte=0"`
		IsRequired        *bool       `json:"is_required"`
	}

	ReorderModules struct {
		ModuleIDs []string `json:"module_ids" validate:"required,min=1,dive,required"`
	}

	DuplicateModule struct {
		TargetCourseID string `json:"target_course_id"`
		Title          string `json:"title" validate:"omitempty,notblank,max=200"`
	}
)

func (nm *NewModule) clean() {
	nm.Title = core.CleanString(nm.Title)
	nm.Description = core.CleanString(nm.Description)
	nm.Type = ModuleType(core.CleanString(string(nm.Type), true /* lower */))
	nm.Attachments = core.CleanStrings(nm.Attachments)
}

func (um *UpdateModule) apply(m Module) Module {
	if um.Title != nil {
		m.Title = core.CleanString(*um.Title)
	}
	if um.Description != nil {
		m.Description = core.CleanString(*um.Description)
	}
	if um.Content != nil {
		m.Content = *um.Content
	}
	if um.Type != nil {
		m.Type = *um.Type
	}
	if um.VideoURL != nil {
		m.VideoURL = core.CleanString(*um.VideoURL)
	}
	if um.Attachments != nil {
		m.Attachments = core.CleanStrings(*um.Attachments)
	}
	if um.EstimatedDuration != nil {
		m.EstimatedDuration = *um.EstimatedDuration
	}
	if um.IsRequired != nil {
		m.IsRequired = *um.IsRequired
	}
	return m
}
