package lms

import (
	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

type CourseStatus string

const (
	CourseDraft     CourseStatus = "draft"
	CoursePublished CourseStatus = "published"
	CourseArchived  CourseStatus = "archived"
)

func (s CourseStatus) Valid() bool {
	switch s {
	case CourseDraft, CoursePublished, CourseArchived:
		return true
	}
	return false
}

type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

func (l Level) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

type Course struct {
	ID                string       `json:"id"`
	Title             string       `json:"title"`
	Description       string       `json:"description"`
	InstructorID      string       `json:"instructor_id"`
	Category          string       `json:"category"`
	Level             Level        `json:"level"`
	Status            CourseStatus `json:"status"`
	Thumbnail         string       `json:"thumbnail,omitempty"`
	Tags              []string     `json:"tags"`
	Objectives        []string     `json:"objectives"`
	Prerequisites     []string     `json:"prerequisites"`
	EstimatedDuration int          `json:"estimated_duration"` // minutes
	EnrollmentCount   int          `json:"enrollment_count"`
	AverageRating     *float64     `json:"average_rating,omitempty"`
	PublishedAt       int64        `json:"published_at,omitempty"`
	CreatedAt         int64        `json:"created_at"`
	UpdatedAt         int64        `json:"updated_at"`
}

func (c *Course) IsPublished() bool { return c.Status == CoursePublished }

type (
	CourseWithInstructor struct {
		Course
		Instructor *user.Summary `json:"instructor"`
	}

	CourseDetail struct {
		Course
		Instructor *user.Summary `json:"instructor"`
		Modules    []Module      `json:"modules"`
	}

	CourseStats struct {
		TotalEnrollments     int     `json:"total_enrollments"`
		ActiveEnrollments    int     `json:"active_enrollments"`
		CompletedEnrollments int     `json:"completed_enrollments"`
		AverageProgress      float64 `json:"average_progress"`
	}

	CourseWithStats struct {
		Course
		Stats *CourseStats `json:"stats,omitempty"`
	}

	CategoryCount struct {
		Category string `json:"category"`
		Count    int    `json:"count"`
	}

	CourseFilter struct {
		Status       CourseStatus
		Category     string
		Level        Level
		InstructorID string
		Limit        int
	}
)

type (
	NewCourse struct {
		Title             string   `json:"title" validate:"required,notblank,max=200"`
		Description       string   `json:"description" validate:"required,notblank"`
		Category          string   `json:"category" validate:"required,notblank,max=100"`
		Level             Level    `json:"level" validate:"required,level"`
		Thumbnail         string   `json:"thumbnail" validate:"omitempty,url"`
		Tags              []string `json:"tags" validate:"max=30,dive,max=50"`
		Objectives        []string `json:"objectives" validate:"max=50"`
		Prerequisites     []string `json:"prerequisites" validate:"max=50"`
		EstimatedDuration int      `json:"estimated_duration" validate:"gte=0"`
	}

	UpdateCourse struct {
		Title             *string   `json:"title" validate:"omitempty,notblank,max=200"`
		Description       *string   `json:"description" validate:"omitempty,notblank"`
		Category          *string   `json:"category" validate:"omitempty,notblank,max=100"`
		Level             *Level    `json:"level" validate:"omitempty,level"`
		Thumbnail         *string   `json:"thumbnail" validate:"omitempty,url"`
		Tags              *[]string `json:"tags" validate:"omitempty,max=30,dive,max=50"`
		Objectives        *[]string `json:"objectives" validate:"omitempty,max=50"`
		Prerequisites     *[]string `json:"prerequisites" validate:"omitempty,max=50"`
		EstimatedDuration *int      `json:"estimated_duration" validate:"omitempty,gte=0"`
	}

	SetCourseStatus struct {
		Status CourseStatus `json:"status" validate:"required,coursestatus"`
	}

	DuplicateCourse struct {
		Title string `json:"title" validate:"omitempty,notblank,max=200"`
	}
)

func (nc *NewCourse) clean() {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Category = core.CleanString(nc.Category)
	nc.Level = Level(core.CleanString(string(nc.Level), true /* lower */))
	nc.Tags = core.CleanStrings(nc.Tags)
	nc.Objectives = core.CleanStrings(nc.Objectives)
	nc.Prerequisites = core.CleanStrings(nc.Prerequisites)
}

func (uc *UpdateCourse) apply(c Course) Course {
	if uc.Title != nil {
		c.Title = core.CleanString(*uc.Title)
	}
	if uc.Description != nil {
		c.Description = core.CleanString(*uc.Description)
	}
	if uc.Category != nil {
		c.Category = core.CleanString(*uc.Category)
	}
	if uc.Level != nil {
		c.Level = *uc.Level
	}
	if uc.Thumbnail != nil {
		c.Thumbnail = core.CleanString(*uc.Thumbnail)
	}
	if uc.Tags != nil {
		c.Tags = core.CleanStrings(*uc.Tags)
	}
	if uc.Objectives != nil {
		c.Objectives = core.CleanStrings(*uc.Objectives)
	}
	if uc.Prerequisites != nil {
		c.Prerequisites = core.CleanStrings(*uc.Prerequisites)
	}
	if uc.EstimatedDuration != nil {
		c.EstimatedDuration = *uc.EstimatedDuration
	}
	return c
}
