package lms

import "github.com/trezcool/elimu/core"

const (
	day   = int64(24 * 60 * 60 * 1000)
	week  = 7 * day
	month = 30 * day
)

// bestSubmission returns the highest scored submission, or the latest one when none is scored.
func bestSubmission(subs []Submission) *Submission {
	var best *Submission
	for i := range subs {
		s := &subs[i]
		switch {
		case best == nil:
			best = s
		case s.Score != nil && (best.Score == nil || *s.Score > *best.Score):
			best = s
		case s.Score == nil && best.Score == nil && s.SubmittedAt > best.SubmittedAt:
			best = s
		}
	}
	if best == nil {
		return nil
	}
	b := *best
	return &b
}

// latestSubmission returns the submission with the highest attempt number.
func latestSubmission(subs []Submission) *Submission {
	var latest *Submission
	for i := range subs {
		if latest == nil || subs[i].AttemptNumber > latest.AttemptNumber {
			latest = &subs[i]
		}
	}
	if latest == nil {
		return nil
	}
	l := *latest
	return &l
}

func summarizeSubmissions(subs []Submission, passingScore *float64) SubmissionStats {
	stats := SubmissionStats{TotalAttempts: len(subs)}
	var sum float64
	var scored int
	for _, s := range subs {
		stats.TotalTimeSpent += s.TimeSpentSeconds
		if s.Score == nil {
			continue
		}
		if scored == 0 || *s.Score > stats.BestScore {
			stats.BestScore = *s.Score
		}
		sum += *s.Score
		scored++
	}
	if scored > 0 {
		stats.AverageScore = core.Round2(sum / float64(scored))
		stats.HasPassingScore = passingScore != nil && stats.BestScore >= *passingScore
	}
	return stats
}

// computeExerciseStats aggregates submissions. passingScore is only set when the scope is a single exercise.
func computeExerciseStats(subs []Submission, passingScore *float64) ExerciseStats {
	stats := ExerciseStats{
		TotalSubmissions: len(subs),
		StatusDistribution: map[SubmissionStatus]int{
			SubmissionSubmitted:   0,
			SubmissionGraded:      0,
			SubmissionNeedsReview: 0,
		},
	}
	if len(subs) == 0 {
		return stats
	}

	students := make(map[string]struct{})
	var scoreSum float64
	var scored, passed, timeSum int
	for _, s := range subs {
		students[s.StudentID] = struct{}{}
		stats.StatusDistribution[s.Status]++
		timeSum += s.TimeSpentSeconds
		if s.Score != nil {
			scored++
			scoreSum += *s.Score
			if passingScore != nil && *s.Score >= *passingScore {
				passed++
			}
		}
	}

	stats.UniqueStudents = len(students)
	stats.AverageAttempts = core.Round2(float64(len(subs)) / float64(len(students)))
	stats.AverageTimeSpent = core.Round2(float64(timeSum) / float64(len(subs)))
	if scored > 0 {
		stats.AverageScore = core.Round2(scoreSum / float64(scored))
	}
	if passingScore != nil {
		var rate float64
		if scored > 0 {
			rate = core.Round2(float64(passed) / float64(scored) * 100)
		}
		stats.PassRate = &rate
	}
	return stats
}

func computeCourseStats(enrollments []Enrollment) CourseStats {
	stats := CourseStats{TotalEnrollments: len(enrollments)}
	if len(enrollments) == 0 {
		return stats
	}
	var sum int
	for _, e := range enrollments {
		switch e.Status {
		case EnrollmentActive:
			stats.ActiveEnrollments++
		case EnrollmentCompleted:
			stats.CompletedEnrollments++
		}
		sum += e.ProgressPercentage
	}
	stats.AverageProgress = core.Round2(float64(sum) / float64(len(enrollments)))
	return stats
}

func computeModuleStats(rows []ModuleProgress) ModuleStats {
	stats := ModuleStats{TotalStudents: len(rows)}
	if len(rows) == 0 {
		return stats
	}
	var progress, seconds int
	for _, r := range rows {
		switch r.Status {
		case ProgressCompleted:
			stats.Completed++
		case ProgressInProgress:
			stats.InProgress++
		}
		progress += r.ProgressPercentage
		seconds += r.TimeSpentSeconds
	}
	n := float64(len(rows))
	stats.AverageProgress = core.Round2(float64(progress) / n)
	stats.AverageTimeSpent = core.Round2(float64(seconds) / 60 / n)
	return stats
}

func computeEnrollmentStats(enrollments []Enrollment, now int64) EnrollmentStats {
	stats := EnrollmentStats{
		Total: len(enrollments),
		ByStatus: map[EnrollmentStatus]int{
			EnrollmentActive:    0,
			EnrollmentCompleted: 0,
			EnrollmentDropped:   0,
			EnrollmentSuspended: 0,
		},
	}
	if len(enrollments) == 0 {
		return stats
	}
	var sum int
	for _, e := range enrollments {
		stats.ByStatus[e.Status]++
		sum += e.ProgressPercentage
		if e.EnrolledAt >= now-week {
			stats.RecentActivity.LastWeek++
		}
		if e.EnrolledAt >= now-month {
			stats.RecentActivity.LastMonth++
		}
	}
	stats.AverageProgress = core.Round2(float64(sum) / float64(len(enrollments)))
	return stats
}
