package lms

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

var errNoCorrectOption = core.NewValidationError(errors.New("exercise has no correct option; it cannot be graded"))

const autoGradeConfidence = 1.0

// ParseAnswerIDs splits a comma separated answer into option ids, ignoring blanks and repeats.
func ParseAnswerIDs(answer string) []string {
	return core.CleanStrings(strings.Split(answer, ","))
}

// GradeMultipleChoice scores answer against options:
//
//	score = clamp((matches - nonMatches) / correctCount, 0, 1) * maxScore
//
// so picking every correct option and nothing else yields maxScore, and each wrong pick cancels a right one.
func GradeMultipleChoice(answer string, options []Option, maxScore float64) (GradingResult, error) {
	correct := make(map[string]struct{}, len(options))
	for _, o := range options {
		if o.IsCorrect {
			correct[o.ID] = struct{}{}
		}
	}
	if len(correct) == 0 {
		return GradingResult{}, errNoCorrectOption
	}

	var matches, nonMatches int
	for _, id := range ParseAnswerIDs(answer) {
		if _, ok := correct[id]; ok {
			matches++
		} else {
			nonMatches++
		}
	}

	ratio := float64(matches-nonMatches) / float64(len(correct))
	ratio = math.Max(0, math.Min(1, ratio))
	score := ratio * maxScore

	res := GradingResult{
		Score:       score,
		Feedback:    fmt.Sprintf("%d correct answer(s) out of %d", matches, len(correct)),
		Suggestions: []string{},
		Confidence:  autoGradeConfidence,
	}
	if nonMatches > 0 {
		res.Suggestions = append(res.Suggestions, "Some of the selected options are incorrect.")
	}
	if matches < len(correct) {
		res.Suggestions = append(res.Suggestions, "Review the module content and try to find every correct option.")
	}
	return res, nil
}

func checkGrade(score, maxScore float64) error {
	if math.IsNaN(score) || score < 0 || score > maxScore {
		msg := fmt.Sprintf("score must be between 0 and %s", formatScore(maxScore))
		return core.NewValidationError(errors.New(msg), core.FieldError{Field: "score", Error: msg})
	}
	return nil
}

func formatScore(f float64) string {
	if f == math.Trunc(f) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}
