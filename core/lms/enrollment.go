package lms

import "github.com/trezcool/elimu/core/user"

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentDropped   EnrollmentStatus = "dropped"
	EnrollmentSuspended EnrollmentStatus = "suspended"
)

func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentActive, EnrollmentCompleted, EnrollmentDropped, EnrollmentSuspended:
		return true
	}
	return false
}

type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
)

type Enrollment struct {
	ID                    string           `json:"id"`
	StudentID             string           `json:"student_id"`
	CourseID              string           `json:"course_id"`
	Status                EnrollmentStatus `json:"status"`
	EnrolledAt            int64            `json:"enrolled_at"`
	CompletedAt           int64            `json:"completed_at,omitempty"`
	LastAccessedAt        int64            `json:"last_accessed_at,omitempty"`
	ProgressPercentage    int              `json:"progress_percentage"`
	CompletedModules      []string         `json:"completed_modules"`
	CurrentModuleID       string           `json:"current_module_id,omitempty"`
	TotalTimeSpentMinutes int              `json:"total_time_spent_minutes"`
	AverageScore          *float64         `json:"average_score,omitempty"`
}

type ModuleProgress struct {
	ID                 string         `json:"id"`
	EnrollmentID       string         `json:"enrollment_id"`
	StudentID          string         `json:"student_id"`
	ModuleID           string         `json:"module_id"`
	Status             ProgressStatus `json:"status"`
	ProgressPercentage int            `json:"progress_percentage"`
	TimeSpentSeconds   int            `json:"time_spent_seconds"`
	Score              *float64       `json:"score,omitempty"`
	MaxScore           *float64       `json:"max_score,omitempty"`
	StartedAt          int64          `json:"started_at,omitempty"`
	CompletedAt        int64          `json:"completed_at,omitempty"`
	LastAccessedAt     int64          `json:"last_accessed_at,omitempty"`
}

type (
	EnrollmentWithCourse struct {
		Enrollment
		Course     Course        `json:"course"`
		Instructor *user.Summary `json:"instructor"`
	}

	EnrollmentWithStudent struct {
		Enrollment
		Student *user.Summary `json:"student"`
	}

	OverallProgress struct {
		CompletedModules      int      `json:"completed_modules"`
		TotalModules          int      `json:"total_modules"`
		TotalTimeSpentMinutes int      `json:"total_time_spent_minutes"`
		AverageScore          *float64 `json:"average_score,omitempty"`
	}

	EnrollmentProgress struct {
		Enrollment Enrollment           `json:"enrollment"`
		Course     Course               `json:"course"`
		Modules    []ModuleWithProgress `json:"modules"`
		Overall    OverallProgress      `json:"overall"`
	}

	RecentActivity struct {
		LastWeek  int `json:"last_week"`
		LastMonth int `json:"last_month"`
	}

	EnrollmentStats struct {
		Total           int                      `json:"total"`
		ByStatus        map[EnrollmentStatus]int `json:"by_status"`
		RecentActivity  RecentActivity           `json:"recent_activity"`
		AverageProgress float64                  `json:"average_progress"`
	}
)

type (
	UpdateModuleProgress struct {
		ProgressPercentage int  `json:"progress_percentage" validate:"gte=0,lte=100"`
		TimeSpentSeconds   int  `json:"time_spent_seconds" validate:"gte=0"`
		Completed          bool `json:"completed"`
	}

	DropCourse struct {
		Reason string `json:"reason" validate:"max=500"`
	}

	SetEnrollmentStatus struct {
		Status EnrollmentStatus `json:"status" validate:"required,oneof=active suspended"`
	}
)
