package user

import "github.com/trezcool/elimu/core"

// Role is one of RoleAdmin, RoleInstructor or RoleLearner.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleInstructor Role = "instructor"
	RoleLearner    Role = "learner"
)

var Roles = []Role{RoleAdmin, RoleInstructor, RoleLearner}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleInstructor, RoleLearner:
		return true
	}
	return false
}

// preference values
const (
	DifficultyEasy     = "easy"
	DifficultyMedium   = "medium"
	DifficultyHard     = "hard"
	DifficultyAdaptive = "adaptive"

	defaultLanguage = "fr"
	defaultTimezone = "Europe/Paris"
)

type Preferences struct {
	Language             string `json:"language"`
	Timezone             string `json:"timezone"`
	EmailNotifications   bool   `json:"email_notifications"`
	AITutorEnabled       bool   `json:"ai_tutor_enabled"`
	StudyReminders       bool   `json:"study_reminders"`
	DifficultyPreference string `json:"difficulty_preference"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		Language:             defaultLanguage,
		Timezone:             defaultTimezone,
		EmailNotifications:   true,
		AITutorEnabled:       true,
		StudyReminders:       true,
		DifficultyPreference: DifficultyAdaptive,
	}
}

type LearningProfile struct {
	LearningStyle    string   `json:"learning_style"`
	Pace             string   `json:"pace"`
	Strengths        []string `json:"strengths"`
	ImprovementAreas []string `json:"improvement_areas"`
}

type User struct {
	ID              string           `json:"id"`
	Subject         string           `json:"subject"`
	Email           string           `json:"email"`
	Name            string           `json:"name"`
	AvatarURL       string           `json:"avatar_url"`
	Role            Role             `json:"role"`
	IsActive        bool             `json:"is_active"`
	Preferences     Preferences      `json:"preferences"`
	LearningProfile *LearningProfile `json:"learning_profile"`
	CreatedAt       int64            `json:"created_at"`
	UpdatedAt       int64            `json:"updated_at"`
	LastLoginAt     int64            `json:"last_login_at,omitempty"`
}

func (u *User) IsAdmin() bool      { return u.Role == RoleAdmin }
func (u *User) IsInstructor() bool { return u.Role == RoleInstructor }
func (u *User) IsLearner() bool    { return u.Role == RoleLearner }

// Summary is the public view of a user embedded in other resources.
type Summary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar_url"`
}

func (u *User) Summary(withEmail bool) *Summary {
	s := &Summary{ID: u.ID, Name: u.Name, AvatarURL: u.AvatarURL}
	if withEmail {
		s.Email = u.Email
	}
	return s
}

// Identity is what the identity provider tells us about the caller.
type Identity struct {
	Subject   string
	Email     string
	Name      string
	AvatarURL string
}

// Stats is the admin overview of the user base.
type Stats struct {
	Total         int          `json:"total"`
	Active        int          `json:"active"`
	ByRole        map[Role]int `json:"by_role"`
	RecentSignups int          `json:"recent_signups"`
}

type QueryFilter struct {
	Role     Role
	IsActive *bool
	Limit    int
}

type (
	UpsertUser struct {
		Role Role `json:"role" validate:"omitempty,selfrole"`
	}

	UpdatePreferences struct {
		Language             *string `json:"language" validate:"omitempty,len=2,alpha"`
		Timezone             *string `json:"timezone" validate:"omitempty,tz"`
		EmailNotifications   *bool   `json:"email_notifications"`
		AITutorEnabled       *bool   `json:"ai_tutor_enabled"`
		StudyReminders       *bool   `json:"study_reminders"`
		DifficultyPreference *string `json:"difficulty_preference" validate:"omitempty,oneof=easy medium hard adaptive"`
	}

	UpdateLearningProfile struct {
		LearningStyle    string   `json:"learning_style" validate:"required,oneof=visual auditory kinesthetic reading"`
		Pace             string   `json:"pace" validate:"required,oneof=slow medium fast"`
		Strengths        []string `json:"strengths" validate:"max=20,dive,notblank"`
		ImprovementAreas []string `json:"improvement_areas" validate:"max=20,dive,notblank"`
	}

	UpdateRole struct {
		Role Role `json:"role" validate:"required,userrole"`
	}
)

func (p *UpdatePreferences) apply(prefs Preferences) Preferences {
	if p.Language != nil {
		prefs.Language = core.CleanString(*p.Language, true /* lower */)
	}
	if p.Timezone != nil {
		prefs.Timezone = core.CleanString(*p.Timezone)
	}
	if p.EmailNotifications != nil {
		prefs.EmailNotifications = *p.EmailNotifications
	}
	if p.AITutorEnabled != nil {
		prefs.AITutorEnabled = *p.AITutorEnabled
	}
	if p.StudyReminders != nil {
		prefs.StudyReminders = *p.StudyReminders
	}
	if p.DifficultyPreference != nil {
		prefs.DifficultyPreference = *p.DifficultyPreference
	}
	return prefs
}
