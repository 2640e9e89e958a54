package inmemdb

import (
	"context"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/lms"
)

type exerciseRepository struct {
	db *DB
}

var _ lms.ExerciseRepository = (*exerciseRepository)(nil)

func NewExerciseRepository(db *DB) *exerciseRepository {
	return &exerciseRepository{db: db}
}

func cloneExercise(ex lms.Exercise) lms.Exercise {
	if ex.Options != nil {
		opts := make([]lms.Option, len(ex.Options))
		copy(opts, ex.Options)
		ex.Options = opts
	}
	ex.Tags = cloneStrings(ex.Tags)
	return ex
}

func (repo *exerciseRepository) CreateExercise(_ context.Context, ex lms.Exercise, exec ...core.DBExecutor) (lms.Exercise, error) {
	defer repo.db.lock(exec)()

	if _, ok := repo.db.t.exercises[ex.ID]; ok {
		return lms.Exercise{}, core.ErrConflict
	}
	ex = cloneExercise(ex)
	put(repo.db, repo.db.t.exercises, ex.ID, ex)
	return cloneExercise(ex), nil
}

func (repo *exerciseRepository) GetExerciseByID(_ context.Context, id string, _ ...core.DBExecutor) (lms.Exercise, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if r, ok := repo.db.t.exercises[id]; ok {
		return cloneExercise(r.val), nil
	}
	return lms.Exercise{}, lms.ErrExerciseNotFound
}

func (repo *exerciseRepository) GetExercisesByModules(_ context.Context, moduleIDs []string, _ ...core.DBExecutor) ([]lms.Exercise, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	set := idSet(moduleIDs)
	exercises := repo.db.t.exercises.rows(func(ex lms.Exercise) bool {
		_, ok := set[ex.ModuleID]
		return ok
	})
	for i := range exercises {
		exercises[i] = cloneExercise(exercises[i])
	}
	return exercises, nil
}

func (repo *exerciseRepository) UpdateExercise(_ context.Context, ex lms.Exercise, exec ...core.DBExecutor) (lms.Exercise, error) {
	defer repo.db.lock(exec)()

	orig, ok := repo.db.t.exercises[ex.ID]
	if !ok {
		return lms.Exercise{}, lms.ErrExerciseNotFound
	}
	ex.CreatedAt = orig.val.CreatedAt
	ex = cloneExercise(ex)
	put(repo.db, repo.db.t.exercises, ex.ID, ex)
	return cloneExercise(ex), nil
}

func (repo *exerciseRepository) DeleteExercise(_ context.Context, id string, exec ...core.DBExecutor) error {
	defer repo.db.lock(exec)()

	if _, ok := repo.db.t.exercises[id]; !ok {
		return lms.ErrExerciseNotFound
	}
	delete(repo.db.t.exercises, id)
	return nil
}

// submissions

type submissionRepository struct {
	db *DB
}

var _ lms.SubmissionRepository = (*submissionRepository)(nil)

func NewSubmissionRepository(db *DB) *submissionRepository {
	return &submissionRepository{db: db}
}

func cloneSubmission(s lms.Submission) lms.Submission {
	s.Attachments = cloneStrings(s.Attachments)
	if s.Score != nil {
		score := *s.Score
		s.Score = &score
	}
	if s.GradingResult != nil {
		res := *s.GradingResult
		res.Suggestions = cloneStrings(res.Suggestions)
		s.GradingResult = &res
	}
	return s
}

func (repo *submissionRepository) CreateSubmission(_ context.Context, s lms.Submission, exec ...core.DBExecutor) (lms.Submission, error) {
	defer repo.db.lock(exec)()

	if _, ok := repo.db.t.submissions[s.ID]; ok {
		return lms.Submission{}, core.ErrConflict
	}
	for _, r := range repo.db.t.submissions {
		if r.val.StudentID == s.StudentID && r.val.ExerciseID == s.ExerciseID && r.val.AttemptNumber == s.AttemptNumber {
			return lms.Submission{}, core.ErrConflict
		}
	}
	s = cloneSubmission(s)
	put(repo.db, repo.db.t.submissions, s.ID, s)
	return cloneSubmission(s), nil
}

func (repo *submissionRepository) GetSubmissionByID(_ context.Context, id string, _ ...core.DBExecutor) (lms.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if r, ok := repo.db.t.submissions[id]; ok {
		return cloneSubmission(r.val), nil
	}
	return lms.Submission{}, lms.ErrSubmissionNotFound
}

func (repo *submissionRepository) QuerySubmissions(_ context.Context, filter lms.SubmissionFilter, _ ...core.DBExecutor) ([]lms.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var set map[string]struct{}
	if filter.ExerciseIDs != nil {
		set = idSet(filter.ExerciseIDs)
	}
	subs := repo.db.t.submissions.rows(func(s lms.Submission) bool {
		if filter.StudentID != "" && s.StudentID != filter.StudentID {
			return false
		}
		if set != nil {
			_, ok := set[s.ExerciseID]
			return ok
		}
		return true
	})
	newestFirst(subs, func(s lms.Submission) int64 { return s.SubmittedAt })
	for i := range subs {
		subs[i] = cloneSubmission(subs[i])
	}
	return subs, nil
}

func (repo *submissionRepository) CountSubmissions(_ context.Context, studentID, exerciseID string, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var n int
	for _, r := range repo.db.t.submissions {
		if r.val.StudentID == studentID && r.val.ExerciseID == exerciseID {
			n++
		}
	}
	return n, nil
}

func (repo *submissionRepository) UpdateSubmission(_ context.Context, s lms.Submission, exec ...core.DBExecutor) (lms.Submission, error) {
	defer repo.db.lock(exec)()

	orig, ok := repo.db.t.submissions[s.ID]
	if !ok {
		return lms.Submission{}, lms.ErrSubmissionNotFound
	}
	updated := cloneSubmission(orig.val)
	updated.Score = s.Score
	updated.Status = s.Status
	updated.GradingResult = s.GradingResult
	updated.InstructorFeedback = s.InstructorFeedback
	updated.GradedAt = s.GradedAt
	updated = cloneSubmission(updated)
	put(repo.db, repo.db.t.submissions, s.ID, updated)
	return cloneSubmission(updated), nil
}

func (repo *submissionRepository) DeleteSubmissionsByExercises(_ context.Context, exerciseIDs []string, exec ...core.DBExecutor) error {
	defer repo.db.lock(exec)()

	set := idSet(exerciseIDs)
	for id, r := range repo.db.t.submissions {
		if _, ok := set[r.val.ExerciseID]; ok {
			delete(repo.db.t.submissions, id)
		}
	}
	return nil
}

func (repo *submissionRepository) DeleteSubmissionsByStudent(_ context.Context, studentID string, exec ...core.DBExecutor) error {
	defer repo.db.lock(exec)()

	for id, r := range repo.db.t.submissions {
		if r.val.StudentID == studentID {
			delete(repo.db.t.submissions, id)
		}
	}
	return nil
}
