package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/lms"
	"github.com/trezcool/elimu/core/user"
)

func CreateUser(t *testing.T, repo user.Repository, name string, role user.Role, isActive bool, createdAt ...int64) user.User {
	t.Helper()
	tstamp := core.NowMillis()
	if len(createdAt) > 0 {
		tstamp = createdAt[0]
	}
	slug := strings.ToLower(strings.ReplaceAll(name, " ", "."))
	usr := user.User{
		ID:          core.NewID(),
		Subject:     "user_" + core.NewID(),
		Email:       slug + "@test.cd",
		Name:        name,
		Role:        role,
		IsActive:    isActive,
		Preferences: user.DefaultPreferences(),
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(t *testing.T, repo lms.CourseRepository, instructorID, title, category string, status lms.CourseStatus) lms.Course {
	t.Helper()
	now := core.NowMillis()
	c := lms.Course{
		ID:            core.NewID(),
		Title:         title,
		Description:   "About " + title,
		InstructorID:  instructorID,
		Category:      category,
		Level:         lms.LevelBeginner,
		Status:        status,
		Tags:          []string{},
		Objectives:    []string{},
		Prerequisites: []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if status == lms.CoursePublished {
		c.PublishedAt = now
	}
	c, err := repo.CreateCourse(context.Background(), c)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}

func CreateModule(t *testing.T, repo lms.ModuleRepository, courseID string, order int) lms.Module {
	t.Helper()
	now := core.NowMillis()
	m := lms.Module{
		ID:          core.NewID(),
		CourseID:    courseID,
		Title:       fmt.Sprintf("Module %d", order),
		Description: fmt.Sprintf("Module %d description", order),
		Type:        lms.ModuleLesson,
		Order:       order,
		Attachments: []string{},
		IsRequired:  true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m, err := repo.CreateModule(context.Background(), m)
	if err != nil {
		t.Fatalf("CreateModule() failed: %v", err)
	}
	return m
}

// MCOptions returns four options a to d, the first one correct.
func MCOptions() []lms.Option {
	return []lms.Option{
		{ID: "a", Text: "A", IsCorrect: true},
		{ID: "b", Text: "B"},
		{ID: "c", Text: "C"},
		{ID: "d", Text: "D"},
	}
}

// CreateExercise creates a multiple choice exercise (see MCOptions) scored out of 10.
func CreateExercise(t *testing.T, repo lms.ExerciseRepository, moduleID string, maxAttempts *int) lms.Exercise {
	t.Helper()
	now := core.NowMillis()
	passing := 5.0
	ex := lms.Exercise{
		ID:           core.NewID(),
		ModuleID:     moduleID,
		Title:        "Pick one",
		Type:         lms.ExerciseMultipleChoice,
		Question:     "Which one?",
		Options:      MCOptions(),
		MaxAttempts:  maxAttempts,
		MaxScore:     10,
		PassingScore: &passing,
		Difficulty:   lms.DifficultyEasy,
		Tags:         []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	ex, err := repo.CreateExercise(context.Background(), ex)
	if err != nil {
		t.Fatalf("CreateExercise() failed: %v", err)
	}
	return ex
}

func IntPtr(i int) *int { return &i }
