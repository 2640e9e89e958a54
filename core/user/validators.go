package user

import (
	"time"
	_ "time/tzdata" // timezone validation must not depend on the host

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elimu/core"
)

var (
	userRoleTag  = "userrole"
	userRoleText = "invalid role"

	selfRoleTag  = "selfrole"
	selfRoleText = "role must be one of instructor or learner"

	timezoneTag  = "tz"
	timezoneText = "unknown timezone"
)

// InitValidators registers the user validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(userRoleTag, userRoleValidation)
	core.RegisterCustomTranslation(validate, translator, userRoleTag, userRoleText)

	_ = validate.RegisterValidation(selfRoleTag, selfRoleValidation)
	core.RegisterCustomTranslation(validate, translator, selfRoleTag, selfRoleText)

	_ = validate.RegisterValidation(timezoneTag, timezoneValidation)
	core.RegisterCustomTranslation(validate, translator, timezoneTag, timezoneText)
}

func (uu *UpsertUser) Validate(validate *validator.Validate) error {
	uu.Role = Role(core.CleanString(string(uu.Role), true /* lower */))
	return validate.Struct(uu)
}

func (up *UpdatePreferences) Validate(validate *validator.Validate) error {
	return validate.Struct(up)
}

func (lp *UpdateLearningProfile) Validate(validate *validator.Validate) error {
	lp.Strengths = core.CleanStrings(lp.Strengths)
	lp.ImprovementAreas = core.CleanStrings(lp.ImprovementAreas)
	return validate.Struct(lp)
}

func (ur *UpdateRole) Validate(validate *validator.Validate) error {
	ur.Role = Role(core.CleanString(string(ur.Role), true /* lower */))
	return validate.Struct(ur)
}

// Custom Validators

func userRoleValidation(fl validator.FieldLevel) bool {
	return Role(fl.Field().String()).Valid()
}

// selfRoleValidation restricts the roles a user may pick for themselves at sign up.
func selfRoleValidation(fl validator.FieldLevel) bool {
	switch Role(fl.Field().String()) {
	case RoleInstructor, RoleLearner:
		return true
	}
	return false
}

func timezoneValidation(fl validator.FieldLevel) bool {
	tz := fl.Field().String()
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}
