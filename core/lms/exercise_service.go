package lms

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

var (
	errNotEnrolled = core.NewPermissionError("not enrolled in this course or enrollment not active")
	errMaxAttempts = core.NewValidationError(errors.New("maximum number of attempts reached"))
	errStatsScope  = core.NewValidationError(errors.New("one of exercise_id, module_id or course_id is required"))

	defaultAIExerciseLimit = 20
	maxAIExerciseLimit     = 100
)

type ExerciseService struct {
	*base
}

func readable(caller *user.User, c *Course, ex Exercise) Exercise {
	if CanWrite(caller, c) {
		return ex
	}
	return ex.Redacted()
}

func attemptsRemaining(ex Exercise, used int) *int {
	if ex.MaxAttempts == nil {
		return nil
	}
	left := *ex.MaxAttempts - used
	if left < 0 {
		left = 0
	}
	return &left
}

// ListByModule returns the exercises of a module. With includeSubmissions, each carries the
// caller's best submission and attempt counts.
func (svc *ExerciseService) ListByModule(ctx context.Context, caller *user.User, moduleID string, includeSubmissions bool) ([]ExerciseSummary, error) {
	m, c, err := svc.getModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if err = checkRead(caller, &c); err != nil {
		return nil, err
	}

	exercises, err := svc.Exercises.GetExercisesByModules(ctx, []string{m.ID})
	if err != nil {
		return nil, errors.Wrap(err, "getting exercises")
	}

	var byExercise map[string][]Submission
	if includeSubmissions && caller != nil && len(exercises) > 0 {
		ids := make([]string, len(exercises))
		for i, ex := range exercises {
			ids[i] = ex.ID
		}
		subs, err := svc.Submissions.QuerySubmissions(ctx, SubmissionFilter{StudentID: caller.ID, ExerciseIDs: ids})
		if err != nil {
			return nil, errors.Wrap(err, "querying submissions")
		}
		byExercise = groupSubmissions(subs)
	}

	out := make([]ExerciseSummary, len(exercises))
	for i, ex := range exercises {
		out[i] = ExerciseSummary{Exercise: readable(caller, &c, ex)}
		if byExercise == nil {
			continue
		}
		subs := byExercise[ex.ID]
		out[i].BestSubmission = bestSubmission(subs)
		out[i].AttemptsUsed = len(subs)
		out[i].AttemptsRemaining = attemptsRemaining(ex, len(subs))
	}
	return out, nil
}

// Get returns an exercise with its module and course. With includeSubmissions, the caller's
// submissions (newest first) and their summary are attached.
func (svc *ExerciseService) Get(ctx context.Context, caller *user.User, id string, includeSubmissions bool) (ExerciseDetail, error) {
	ex, m, c, err := svc.getExercise(ctx, id)
	if err != nil {
		return ExerciseDetail{}, err
	}
	if err = checkRead(caller, &c); err != nil {
		return ExerciseDetail{}, err
	}

	detail := ExerciseDetail{Exercise: readable(caller, &c, ex), Module: m, Course: c}
	if !includeSubmissions || caller == nil {
		return detail, nil
	}

	subs, err := svc.Submissions.QuerySubmissions(ctx, SubmissionFilter{StudentID: caller.ID, ExerciseIDs: []string{ex.ID}})
	if err != nil {
		return ExerciseDetail{}, errors.Wrap(err, "querying submissions")
	}
	stats := summarizeSubmissions(subs, ex.PassingScore)
	detail.Submissions = subs
	detail.UserStats = &stats
	return detail, nil
}

// writableCourses returns the courses the caller may write, optionally restricted to one.
func (b *base) writableCourses(ctx context.Context, caller *user.User, courseID string) ([]Course, error) {
	if courseID != "" {
		c, err := b.getCourse(ctx, courseID)
		if err != nil {
			return nil, err
		}
		if err = checkWrite(caller, &c); err != nil {
			return nil, err
		}
		return []Course{c}, nil
	}

	filter := CourseFilter{InstructorID: caller.ID}
	if isAdmin(caller) {
		filter = CourseFilter{}
	}
	courses, err := b.Courses.QueryCourses(ctx, filter)
	return courses, errors.Wrap(err, "querying courses")
}

func (b *base) exercisesOfCourses(ctx context.Context, courses []Course) ([]Exercise, error) {
	if len(courses) == 0 {
		return nil, nil
	}
	ids := make([]string, len(courses))
	for i, c := range courses {
		ids[i] = c.ID
	}
	modules, err := b.Modules.GetModulesByCourses(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "getting modules")
	}
	if len(modules) == 0 {
		return nil, nil
	}
	moduleIDs := make([]string, len(modules))
	for i, m := range modules {
		moduleIDs[i] = m.ID
	}
	exercises, err := b.Exercises.GetExercisesByModules(ctx, moduleIDs)
	return exercises, errors.Wrap(err, "getting exercises")
}

// ListAIGenerated returns the generated exercises of the caller's courses, newest first.
func (svc *ExerciseService) ListAIGenerated(ctx context.Context, caller *user.User, filter AIExerciseFilter) ([]Exercise, error) {
	if err := checkAuthor(caller); err != nil {
		return nil, err
	}
	courses, err := svc.writableCourses(ctx, caller, filter.CourseID)
	if err != nil {
		return nil, err
	}
	exercises, err := svc.exercisesOfCourses(ctx, courses)
	if err != nil {
		return nil, err
	}

	out := make([]Exercise, 0)
	for _, ex := range exercises {
		if !ex.AIGenerated || (filter.Difficulty != "" && ex.Difficulty != filter.Difficulty) {
			continue
		}
		out = append(out, ex)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	if limit := core.ClampLimit(filter.Limit, defaultAIExerciseLimit, maxAIExerciseLimit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Stats aggregates the submissions of an exercise, a module or a course.
func (svc *ExerciseService) Stats(ctx context.Context, caller *user.User, scope StatsScope) (ExerciseStats, error) {
	if err := checkAuthor(caller); err != nil {
		return ExerciseStats{}, err
	}

	var (
		exercises    []Exercise
		passingScore *float64
	)
	switch {
	case scope.ExerciseID != "":
		ex, _, c, err := svc.getExercise(ctx, scope.ExerciseID)
		if err != nil {
			return ExerciseStats{}, err
		}
		if err = checkWrite(caller, &c); err != nil {
			return ExerciseStats{}, err
		}
		exercises, passingScore = []Exercise{ex}, ex.PassingScore
	case scope.ModuleID != "":
		m, c, err := svc.getModule(ctx, scope.ModuleID)
		if err != nil {
			return ExerciseStats{}, err
		}
		if err = checkWrite(caller, &c); err != nil {
			return ExerciseStats{}, err
		}
		if exercises, err = svc.Exercises.GetExercisesByModules(ctx, []string{m.ID}); err != nil {
			return ExerciseStats{}, errors.Wrap(err, "getting exercises")
		}
	case scope.CourseID != "":
		courses, err := svc.writableCourses(ctx, caller, scope.CourseID)
		if err != nil {
			return ExerciseStats{}, err
		}
		if exercises, err = svc.exercisesOfCourses(ctx, courses); err != nil {
			return ExerciseStats{}, err
		}
	default:
		return ExerciseStats{}, errStatsScope
	}

	if len(exercises) == 0 {
		return computeExerciseStats(nil, passingScore), nil
	}
	ids := make([]string, len(exercises))
	for i, ex := range exercises {
		ids[i] = ex.ID
	}
	subs, err := svc.Submissions.QuerySubmissions(ctx, SubmissionFilter{ExerciseIDs: ids})
	if err != nil {
		return ExerciseStats{}, errors.Wrap(err, "querying submissions")
	}
	return computeExerciseStats(subs, passingScore), nil
}

func (svc *ExerciseService) Create(ctx context.Context, caller *user.User, moduleID string, ne NewExercise) (Exercise, error) {
	m, c, err := svc.getModule(ctx, moduleID)
	if err != nil {
		return Exercise{}, err
	}
	if err = checkWrite(caller, &c); err != nil {
		return Exercise{}, err
	}

	ex := ne.toExercise(m.ID, core.NowMillis())
	if err = ex.checkVariant(); err != nil {
		return Exercise{}, err
	}
	ex, err = svc.Exercises.CreateExercise(ctx, ex)
	return ex, errors.Wrap(err, "creating exercise")
}

// Update applies a partial update; the type rules are checked on the merged exercise.
func (svc *ExerciseService) Update(ctx context.Context, caller *user.User, id string, ue UpdateExercise) (Exercise, error) {
	ex, _, c, err := svc.getExercise(ctx, id)
	if err != nil {
		return Exercise{}, err
	}
	if err = checkWrite(caller, &c); err != nil {
		return Exercise{}, err
	}

	ex = ue.apply(ex)
	if err = ex.checkVariant(); err != nil {
		return Exercise{}, err
	}
	ex.UpdatedAt = core.NowMillis()
	ex, err = svc.Exercises.UpdateExercise(ctx, ex)
	return ex, errors.Wrap(err, "updating exercise")
}

// Submit records an attempt by an actively enrolled learner. Multiple choice answers are graded at once.
func (svc *ExerciseService) Submit(ctx context.Context, caller *user.User, exerciseID string, ns NewSubmission) (Submission, error) {
	if err := checkLearner(caller); err != nil {
		return Submission{}, err
	}
	ex, _, c, err := svc.getExercise(ctx, exerciseID)
	if err != nil {
		return Submission{}, err
	}

	var sub Submission
	err = svc.DB.WithinTx(ctx, func(exec core.DBExecutor) error {
		enr, err := svc.Enrollments.GetEnrollment(ctx, c.ID, caller.ID, exec)
		if err != nil {
			if errors.Cause(err) == ErrEnrollmentNotFound {
				return errNotEnrolled
			}
			return errors.Wrap(err, "getting enrollment")
		}
		if enr.Status != EnrollmentActive {
			return errNotEnrolled
		}

		count, err := svc.Submissions.CountSubmissions(ctx, caller.ID, ex.ID, exec)
		if err != nil {
			return errors.Wrap(err, "counting submissions")
		}
		if ex.MaxAttempts != nil && count >= *ex.MaxAttempts {
			return errMaxAttempts
		}

		now := core.NowMillis()
		sub = Submission{
			ID:               core.NewID(),
			ExerciseID:       ex.ID,
			StudentID:        caller.ID,
			Answer:           ns.Answer,
			Attachments:      core.CleanStrings(ns.Attachments),
			MaxScore:         ex.MaxScore,
			Status:           SubmissionSubmitted,
			AttemptNumber:    count + 1,
			TimeSpentSeconds: ns.TimeSpentSeconds,
			SubmittedAt:      now,
		}
		if ex.Type.AutoGraded() {
			res, err := GradeMultipleChoice(ns.Answer, ex.Options, ex.MaxScore)
			if err != nil {
				return err
			}
			score := res.Score
			sub.Score = &score
			sub.GradingResult = &res
			sub.Status = SubmissionGraded
			sub.GradedAt = now
		}

		if sub, err = svc.Submissions.CreateSubmission(ctx, sub, exec); err != nil {
			return errors.Wrap(err, "creating submission")
		}

		enr.LastAccessedAt = now
		_, err = svc.Enrollments.UpdateEnrollment(ctx, enr, exec)
		return errors.Wrap(err, "updating enrollment")
	})
	return sub, err
}

// Grade sets the score and feedback of a submission. Only the course instructor or an admin may grade.
func (svc *ExerciseService) Grade(ctx context.Context, caller *user.User, submissionID string, data GradeSubmission) (Submission, error) {
	if err := requireAuth(caller); err != nil {
		return Submission{}, err
	}
	sub, err := svc.Submissions.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		if errors.Cause(err) == ErrSubmissionNotFound {
			return Submission{}, ErrSubmissionNotFound
		}
		return Submission{}, errors.Wrap(err, "getting submission")
	}
	_, _, c, err := svc.getExercise(ctx, sub.ExerciseID)
	if err != nil {
		return Submission{}, err
	}
	if err = checkWrite(caller, &c); err != nil {
		return Submission{}, err
	}
	if err = checkGrade(data.Score, sub.MaxScore); err != nil {
		return Submission{}, err
	}

	score := data.Score
	sub.Score = &score
	sub.InstructorFeedback = core.CleanString(data.Feedback)
	sub.Status = SubmissionGraded
	sub.GradedAt = core.NowMillis()
	sub, err = svc.Submissions.UpdateSubmission(ctx, sub)
	return sub, errors.Wrap(err, "updating submission")
}

// Generate drafts count exercises about a topic in a module using the configured generator.
func (svc *ExerciseService) Generate(ctx context.Context, caller *user.User, moduleID string, req GenerateExercises) ([]Exercise, error) {
	m, c, err := svc.getModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if err = checkWrite(caller, &c); err != nil {
		return nil, err
	}

	drafts, err := svc.Generator.Generate(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "generating exercises")
	}

	now := core.NowMillis()
	exercises := make([]Exercise, len(drafts))
	for i := range drafts {
		ex := drafts[i].toExercise(m.ID, now)
		ex.AIGenerated = true
		if err = ex.checkVariant(); err != nil {
			return nil, errors.Wrap(err, "checking generated exercise")
		}
		exercises[i] = ex
	}

	err = svc.DB.WithinTx(ctx, func(exec core.DBExecutor) error {
		for i := range exercises {
			created, err := svc.Exercises.CreateExercise(ctx, exercises[i], exec)
			if err != nil {
				return errors.Wrap(err, "creating exercise")
			}
			exercises[i] = created
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return exercises, nil
}

// Duplicate copies an exercise into a target module (default: its own module).
func (svc *ExerciseService) Duplicate(ctx context.Context, caller *user.User, id string, data DuplicateExercise) (Exercise, error) {
	ex, m, c, err := svc.getExercise(ctx, id)
	if err != nil {
		return Exercise{}, err
	}
	if err = checkWrite(caller, &c); err != nil {
		return Exercise{}, err
	}

	targetID := m.ID
	if data.TargetModuleID != "" && data.TargetModuleID != m.ID {
		_, tc, err := svc.getModule(ctx, data.TargetModuleID)
		if err != nil {
			return Exercise{}, err
		}
		if err = checkWrite(caller, &tc); err != nil {
			return Exercise{}, err
		}
		targetID = data.TargetModuleID
	}

	title := core.CleanString(data.Title)
	if title == "" {
		title = ex.Title + " (Copy)"
	}

	var dup Exercise
	err = svc.DB.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		dup, err = svc.copyExercise(ctx, exec, ex, targetID, title)
		return err
	})
	return dup, err
}

// Delete removes an exercise and its submissions.
func (svc *ExerciseService) Delete(ctx context.Context, caller *user.User, id string) error {
	ex, _, c, err := svc.getExercise(ctx, id)
	if err != nil {
		return err
	}
	if err = checkWrite(caller, &c); err != nil {
		return err
	}

	return svc.DB.WithinTx(ctx, func(exec core.DBExecutor) error {
		if err := svc.Submissions.DeleteSubmissionsByExercises(ctx, []string{ex.ID}, exec); err != nil {
			return errors.Wrap(err, "deleting submissions")
		}
		return errors.Wrap(svc.Exercises.DeleteExercise(ctx, ex.ID, exec), "deleting exercise")
	})
}
