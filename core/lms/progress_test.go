package lms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecalculateProgress(t *testing.T) {
	const now = int64(1700000000000)
	modules := []Module{{ID: "m2", Order: 2}, {ID: "m1", Order: 1}, {ID: "m3", Order: 3}}
	enr := Enrollment{ID: "e", Status: EnrollmentActive, CompletedModules: []string{}}

	t.Run("no modules", func(t *testing.T) {
		got, ok := RecalculateProgress(enr, nil, nil, now)
		assert.False(t, ok)
		assert.Equal(t, enr, got)
	})

	t.Run("nothing started", func(t *testing.T) {
		got, ok := RecalculateProgress(enr, modules, nil, now)
		assert.True(t, ok)
		assert.Equal(t, 0, got.ProgressPercentage)
		assert.Equal(t, "m1", got.CurrentModuleID)
		assert.Empty(t, got.CompletedModules)
		assert.Nil(t, got.AverageScore)
	})

	t.Run("partial", func(t *testing.T) {
		rows := []ModuleProgress{
			{ModuleID: "m1", Status: ProgressCompleted, ProgressPercentage: 100, TimeSpentSeconds: 90, Score: score(8), MaxScore: score(10)},
			{ModuleID: "m2", Status: ProgressInProgress, ProgressPercentage: 50, TimeSpentSeconds: 60, Score: score(3), MaxScore: score(6)},
			{ModuleID: "orphan", Status: ProgressCompleted, ProgressPercentage: 100},
		}
		got, ok := RecalculateProgress(enr, modules, rows, now)
		assert.True(t, ok)
		assert.Equal(t, 50, got.ProgressPercentage) // (100 + 50 + 0) / 3
		assert.Equal(t, 3, got.TotalTimeSpentMinutes)
		assert.Equal(t, "m2", got.CurrentModuleID)
		assert.Equal(t, []string{"m1"}, got.CompletedModules)
		assert.Equal(t, 65.0, *got.AverageScore)
		assert.Equal(t, EnrollmentActive, got.Status)
		assert.Zero(t, got.CompletedAt)
	})

	all := []ModuleProgress{
		{ModuleID: "m1", Status: ProgressCompleted, ProgressPercentage: 100},
		{ModuleID: "m2", Status: ProgressCompleted, ProgressPercentage: 100},
		{ModuleID: "m3", Status: ProgressCompleted, ProgressPercentage: 100},
	}

	t.Run("complete", func(t *testing.T) {
		got, _ := RecalculateProgress(enr, modules, all, now)
		assert.Equal(t, 100, got.ProgressPercentage)
		assert.Equal(t, "", got.CurrentModuleID)
		assert.Equal(t, []string{"m1", "m2", "m3"}, got.CompletedModules)
		assert.Equal(t, EnrollmentCompleted, got.Status)
		assert.Equal(t, now, got.CompletedAt)
	})

	t.Run("suspended stays suspended", func(t *testing.T) {
		suspended := enr
		suspended.Status = EnrollmentSuspended
		got, _ := RecalculateProgress(suspended, modules, all, now)
		assert.Equal(t, EnrollmentSuspended, got.Status)
		assert.Zero(t, got.CompletedAt)
	})
}

func TestApplyModuleProgress(t *testing.T) {
	const now = int64(1700000000000)
	fresh := ModuleProgress{Status: ProgressNotStarted}

	tests := []struct {
		name       string
		row        ModuleProgress
		data       UpdateModuleProgress
		wantStatus ProgressStatus
		wantPct    int
		wantTime   int
	}{
		{name: "time only", row: fresh, data: UpdateModuleProgress{TimeSpentSeconds: 30}, wantStatus: ProgressNotStarted, wantTime: 30},
		{name: "started", row: fresh, data: UpdateModuleProgress{ProgressPercentage: 40}, wantStatus: ProgressInProgress, wantPct: 40},
		{name: "hundred completes", row: fresh, data: UpdateModuleProgress{ProgressPercentage: 100}, wantStatus: ProgressCompleted, wantPct: 100},
		{name: "completed flag", row: fresh, data: UpdateModuleProgress{ProgressPercentage: 10, Completed: true}, wantStatus: ProgressCompleted, wantPct: 100},
		{
			name:       "completed is sticky",
			row:        ModuleProgress{Status: ProgressCompleted, ProgressPercentage: 100, CompletedAt: 1, StartedAt: 1, TimeSpentSeconds: 10},
			data:       UpdateModuleProgress{ProgressPercentage: 20, TimeSpentSeconds: 5},
			wantStatus: ProgressCompleted, wantPct: 100, wantTime: 15,
		},
		{
			name:       "zero report keeps the percentage",
			row:        ModuleProgress{Status: ProgressInProgress, ProgressPercentage: 60, StartedAt: 1},
			data:       UpdateModuleProgress{TimeSpentSeconds: 5},
			wantStatus: ProgressInProgress, wantPct: 60, wantTime: 5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyModuleProgress(tt.row, tt.data, now)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantPct, got.ProgressPercentage)
			assert.Equal(t, tt.wantTime, got.TimeSpentSeconds)
			assert.Equal(t, now, got.LastAccessedAt)
			if tt.wantStatus == ProgressCompleted && tt.row.CompletedAt != 0 {
				assert.Equal(t, tt.row.CompletedAt, got.CompletedAt)
			}
		})
	}
}
