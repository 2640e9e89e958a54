package lms

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/elimu/core"
)

var (
	levelTag  = "level"
	levelText = "level must be one of beginner, intermediate or advanced"

	courseStatusTag  = "coursestatus"
	courseStatusText = "status must be one of draft, published or archived"

	moduleTypeTag  = "moduletype"
	moduleTypeText = "type must be one of lesson, exercise, quiz or assignment"

	exerciseTypeTag  = "exercisetype"
	exerciseTypeText = "type must be one of multiple_choice, open_ended, coding or file_upload"

	difficultyTag  = "difficulty"
	difficultyText = "difficulty must be one of easy, medium or hard"
)

// InitValidators registers the course catalogue validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(levelTag, func(fl validator.FieldLevel) bool {
		return Level(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, levelTag, levelText)

	_ = validate.RegisterValidation(courseStatusTag, func(fl validator.FieldLevel) bool {
		return CourseStatus(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, courseStatusTag, courseStatusText)

	_ = validate.RegisterValidation(moduleTypeTag, func(fl validator.FieldLevel) bool {
		return ModuleType(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, moduleTypeTag, moduleTypeText)

	_ = validate.RegisterValidation(exerciseTypeTag, func(fl validator.FieldLevel) bool {
		return ExerciseType(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, exerciseTypeTag, exerciseTypeText)

	_ = validate.RegisterValidation(difficultyTag, func(fl validator.FieldLevel) bool {
		return Difficulty(fl.Field().String()).Valid()
	})
	core.RegisterCustomTranslation(validate, translator, difficultyTag, difficultyText)
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.clean()
	return validate.Struct(nc)
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	if uc.Level != nil {
		lvl := Level(core.CleanString(string(*uc.Level), true /* lower */))
		uc.Level = &lvl
	}
	return validate.Struct(uc)
}

func (sc *SetCourseStatus) Validate(validate *validator.Validate) error {
	sc.Status = CourseStatus(core.CleanString(string(sc.Status), true /* lower */))
	return validate.Struct(sc)
}

func (dc *DuplicateCourse) Validate(validate *validator.Validate) error {
	return validate.Struct(dc)
}

func (nm *NewModule) Validate(validate *validator.Validate) error {
	nm.clean()
	return validate.Struct(nm)
}

func (um *UpdateModule) Validate(validate *validator.Validate) error {
	return validate.Struct(um)
}

func (rm *ReorderModules) Validate(validate *validator.Validate) error {
	return validate.Struct(rm)
}

func (dm *DuplicateModule) Validate(validate *validator.Validate) error {
	return validate.Struct(dm)
}

func (ne *NewExercise) Validate(validate *validator.Validate) error {
	ne.Type = ExerciseType(core.CleanString(string(ne.Type), true /* lower */))
	ne.Difficulty = Difficulty(core.CleanString(string(ne.Difficulty), true /* lower */))
	return validate.Struct(ne)
}

func (ue *UpdateExercise) Validate(validate *validator.Validate) error {
	return validate.Struct(ue)
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.Attachments = core.CleanStrings(ns.Attachments)
	return validate.Struct(ns)
}

func (gs *GradeSubmission) Validate(validate *validator.Validate) error {
	return validate.Struct(gs)
}

func (ge *GenerateExercises) Validate(validate *validator.Validate) error {
	ge.Topic = core.CleanString(ge.Topic)
	return validate.Struct(ge)
}

func (de *DuplicateExercise) Validate(validate *validator.Validate) error {
	return validate.Struct(de)
}

func (mp *UpdateModuleProgress) Validate(validate *validator.Validate) error {
	return validate.Struct(mp)
}

func (dc *DropCourse) Validate(validate *validator.Validate) error {
	return validate.Struct(dc)
}

func (ss *SetEnrollmentStatus) Validate(validate *validator.Validate) error {
	return validate.Struct(ss)
}
