package lms

import (
	"math"
	"sort"

	"github.com/trezcool/elimu/core"
)

// RecalculateProgress recomputes the aggregate fields of enr from the modules of its course and
// the enrollment's module progress rows:
//   - progress_percentage: rounded mean of the rows' progress over all modules
//   - total_time_spent_minutes: rounded sum of the rows' seconds / 60
//   - current_module_id: first module by order without a completed row
//   - completed_modules and average_score
//   - status becomes completed (with completed_at = now) once every module is completed, only from active
//
// It returns false, and enr unchanged, when the course has no modules.
func RecalculateProgress(enr Enrollment, modules []Module, rows []ModuleProgress, now int64) (Enrollment, bool) {
	if len(modules) == 0 {
		return enr, false
	}

	ordered := make([]Module, len(modules))
	copy(ordered, modules)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	byModule := make(map[string]ModuleProgress, len(rows))
	for _, r := range rows {
		byModule[r.ModuleID] = r
	}

	var (
		sumProgress, sumSeconds int
		scoreSum                float64
		scored                  int
		currentID               string
		completed               = make([]string, 0, len(ordered))
	)
	for _, m := range ordered {
		r, ok := byModule[m.ID]
		if !ok {
			if currentID == "" {
				currentID = m.ID
			}
			continue
		}
		sumProgress += r.ProgressPercentage
		sumSeconds += r.TimeSpentSeconds
		if r.Score != nil && r.MaxScore != nil && *r.MaxScore > 0 {
			scoreSum += *r.Score / *r.MaxScore * 100
			scored++
		}
		if r.Status == ProgressCompleted {
			completed = append(completed, m.ID)
		} else if currentID == "" {
			currentID = m.ID
		}
	}

	enr.ProgressPercentage = clampPercentage(int(math.Round(float64(sumProgress) / float64(len(ordered)))))
	enr.TotalTimeSpentMinutes = int(math.Round(float64(sumSeconds) / 60))
	enr.CurrentModuleID = currentID
	enr.CompletedModules = completed
	if scored > 0 {
		avg := core.Round2(scoreSum / float64(scored))
		enr.AverageScore = &avg
	} else {
		enr.AverageScore = nil
	}

	if len(completed) == len(ordered) && enr.Status == EnrollmentActive {
		enr.Status = EnrollmentCompleted
		enr.CompletedAt = now
	}
	return enr, true
}

// ApplyModuleProgress applies a learner's progress report to row.
// Reaching 100% (or completed) marks the row completed; the first completion sets completed_at.
func ApplyModuleProgress(row ModuleProgress, data UpdateModuleProgress, now int64) ModuleProgress {
	pct := clampPercentage(data.ProgressPercentage)

	switch {
	case data.Completed || pct >= 100:
		if row.Status != ProgressCompleted {
			row.CompletedAt = now
		}
		row.Status = ProgressCompleted
		row.ProgressPercentage = 100
		if row.StartedAt == 0 {
			row.StartedAt = now
		}
	case pct > 0:
		if row.Status != ProgressCompleted {
			row.Status = ProgressInProgress
			row.ProgressPercentage = pct
		}
		if row.StartedAt == 0 {
			row.StartedAt = now
		}
	}

	row.TimeSpentSeconds += data.TimeSpentSeconds
	row.LastAccessedAt = now
	return row
}

// resetProgress returns row as it is right after enrolling.
func resetProgress(row ModuleProgress) ModuleProgress {
	row.Status = ProgressNotStarted
	row.ProgressPercentage = 0
	row.TimeSpentSeconds = 0
	row.Score = nil
	row.MaxScore = nil
	row.StartedAt = 0
	row.CompletedAt = 0
	row.LastAccessedAt = 0
	return row
}

func newModuleProgress(enr Enrollment, moduleID string) ModuleProgress {
	return ModuleProgress{
		ID:           core.NewID(),
		EnrollmentID: enr.ID,
		StudentID:    enr.StudentID,
		ModuleID:     moduleID,
		Status:       ProgressNotStarted,
	}
}

func clampPercentage(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
