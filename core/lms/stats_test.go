package lms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func score(f float64) *float64 { return &f }

func TestSubmissionStats(t *testing.T) {
	subs := []Submission{
		{StudentID: "s1", AttemptNumber: 1, Score: score(4), Status: SubmissionGraded, TimeSpentSeconds: 10, SubmittedAt: 1},
		{StudentID: "s1", AttemptNumber: 2, Score: score(9), Status: SubmissionGraded, TimeSpentSeconds: 20, SubmittedAt: 2},
		{StudentID: "s2", AttemptNumber: 1, Status: SubmissionSubmitted, TimeSpentSeconds: 30, SubmittedAt: 3},
	}

	t.Run("best and latest", func(t *testing.T) {
		best := bestSubmission(subs)
		require.NotNil(t, best)
		assert.Equal(t, 9.0, *best.Score)
		assert.Equal(t, 2, latestSubmission(subs[:2]).AttemptNumber)
		assert.Nil(t, bestSubmission(nil))

		unscored := []Submission{{SubmittedAt: 1}, {SubmittedAt: 5}}
		assert.Equal(t, int64(5), bestSubmission(unscored).SubmittedAt)
	})

	t.Run("summary", func(t *testing.T) {
		got := summarizeSubmissions(subs, score(5))
		assert.Equal(t, SubmissionStats{
			BestScore: 9, TotalAttempts: 3, TotalTimeSpent: 60, AverageScore: 6.5, HasPassingScore: true,
		}, got)
	})

	t.Run("exercise", func(t *testing.T) {
		got := computeExerciseStats(subs, score(5))
		assert.Equal(t, 3, got.TotalSubmissions)
		assert.Equal(t, 2, got.UniqueStudents)
		assert.Equal(t, 6.5, got.AverageScore)
		assert.Equal(t, 1.5, got.AverageAttempts)
		assert.Equal(t, 20.0, got.AverageTimeSpent)
		require.NotNil(t, got.PassRate)
		assert.Equal(t, 50.0, *got.PassRate)
		assert.Equal(t, map[SubmissionStatus]int{SubmissionGraded: 2, SubmissionSubmitted: 1, SubmissionNeedsReview: 0}, got.StatusDistribution)

		assert.Nil(t, computeExerciseStats(subs, nil).PassRate)
		assert.Equal(t, 0, computeExerciseStats(nil, nil).TotalSubmissions)
	})
}

func TestEnrollmentStats(t *testing.T) {
	const now = 100 * day
	enrollments := []Enrollment{
		{Status: EnrollmentActive, ProgressPercentage: 50, EnrolledAt: now - day},
		{Status: EnrollmentCompleted, ProgressPercentage: 100, EnrolledAt: now - 10*day},
		{Status: EnrollmentDropped, ProgressPercentage: 0, EnrolledAt: now - 60*day},
	}

	got := computeEnrollmentStats(enrollments, now)
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 1, got.ByStatus[EnrollmentActive])
	assert.Equal(t, 0, got.ByStatus[EnrollmentSuspended])
	assert.Equal(t, RecentActivity{LastWeek: 1, LastMonth: 2}, got.RecentActivity)
	assert.Equal(t, 50.0, got.AverageProgress)

	course := computeCourseStats(enrollments)
	assert.Equal(t, CourseStats{TotalEnrollments: 3, ActiveEnrollments: 1, CompletedEnrollments: 1, AverageProgress: 50}, course)
}
