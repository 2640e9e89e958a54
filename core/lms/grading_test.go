package lms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGradeMultipleChoice(t *testing.T) {
	single := []Option{{ID: "A", IsCorrect: true}, {ID: "B"}, {ID: "C"}, {ID: "D"}}
	multi := []Option{{ID: "a", IsCorrect: true}, {ID: "b", IsCorrect: true}, {ID: "c"}, {ID: "d"}}

	tests := []struct {
		name      string
		answer    string
		options   []Option
		wantScore float64
		wantErr   error
	}{
		{name: "correct", answer: "A", options: single, wantScore: 20},
		{name: "wrong", answer: "B", options: single, wantScore: 0},
		{name: "correct and wrong cancel out", answer: "A,B", options: single, wantScore: 0},
		{name: "empty", answer: "", options: single, wantScore: 0},
		{name: "blanks and repeats ignored", answer: " A, ,A", options: single, wantScore: 20},
		{name: "all correct", answer: "a,b", options: multi, wantScore: 20},
		{name: "half correct", answer: "b", options: multi, wantScore: 10},
		{name: "all correct and one wrong", answer: "a,b,c", options: multi, wantScore: 10},
		{name: "everything", answer: "a,b,c,d", options: multi, wantScore: 0},
		{name: "unknown ids", answer: "x,y,z", options: multi, wantScore: 0},
		{name: "no correct option", answer: "a", options: []Option{{ID: "a"}}, wantErr: errNoCorrectOption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := GradeMultipleChoice(tt.answer, tt.options, 20)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantScore, res.Score)
			assert.Equal(t, autoGradeConfidence, res.Confidence)
			assert.NotNil(t, res.Suggestions)
		})
	}
}

func TestCheckGrade(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		maxScore float64
		wantErr  string
	}{
		{name: "zero", score: 0, maxScore: 20},
		{name: "max", score: 20, maxScore: 20},
		{name: "negative", score: -1, maxScore: 20, wantErr: "score must be between 0 and 20"},
		{name: "above max", score: 7.5, maxScore: 7.25, wantErr: "score must be between 0 and 7.25"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkGrade(tt.score, tt.maxScore)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}
