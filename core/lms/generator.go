package lms

import (
	"context"
	"fmt"
)

const defaultGenerateCount = 1

// ExerciseGenerator drafts exercises about a topic.
type ExerciseGenerator interface {
	Generate(ctx context.Context, req GenerateExercises) ([]NewExercise, error)
}

// PlaceholderGenerator produces template exercises until an AI grading service is plugged in.
type PlaceholderGenerator struct{}

var _ ExerciseGenerator = PlaceholderGenerator{}

func (PlaceholderGenerator) Generate(_ context.Context, req GenerateExercises) ([]NewExercise, error) {
	count := req.Count
	if count <= 0 {
		count = defaultGenerateCount
	}

	out := make([]NewExercise, 0, count)
	for i := 1; i <= count; i++ {
		ne := NewExercise{
			Title:       fmt.Sprintf("%s: exercise %d", req.Topic, i),
			Description: fmt.Sprintf("Generated exercise about %s (%s)", req.Topic, req.Difficulty),
			Type:        req.Type,
			Question:    fmt.Sprintf("Question %d about %s", i, req.Topic),
			Difficulty:  req.Difficulty,
			Tags:        []string{req.Topic, "generated"},
		}
		switch req.Type {
		case ExerciseMultipleChoice:
			ne.Options = []Option{
				{ID: "a", Text: "Option A", IsCorrect: true},
				{ID: "b", Text: "Option B"},
				{ID: "c", Text: "Option C"},
				{ID: "d", Text: "Option D"},
			}
		case ExerciseOpenEnded, ExerciseCoding:
			ne.CorrectAnswer = fmt.Sprintf("Sample answer about %s", req.Topic)
		}
		out = append(out, ne)
	}
	return out, nil
}
