package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core/lms"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/testutil"
)

func Test_exerciseApi_submit(t *testing.T) {
	app, stack := setup(t)

	instructor := testutil.CreateUser(t, stack.Users, "Instructor", user.RoleInstructor, true)
	learner := testutil.CreateUser(t, stack.Users, "Learner", user.RoleLearner, true)
	course := testutil.CreateCourse(t, stack.Courses, instructor.ID, "Go", "Programming", lms.CoursePublished)
	mod := testutil.CreateModule(t, stack.Modules, course.ID, 1)
	ex := testutil.CreateExercise(t, stack.Exercises, mod.ID, testutil.IntPtr(2))
	learnerToken := getToken(t, stack, learner)
	instructorToken := getToken(t, stack, instructor)
	submitPath := "/v1/exercises/" + ex.ID + "/submissions"

	var (
		sub    lms.Submission
		detail lms.ExerciseDetail
	)
	tests := []httpTest{
		{
			name: "Not enrolled", method: http.MethodPost, path: submitPath, token: learnerToken, body: []byte(`{"answer": "a"}`),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "not enrolled in this course or enrollment not active"}),
		},
		{name: "Enroll", method: http.MethodPost, path: "/v1/courses/" + course.ID + "/enroll", token: learnerToken, wantCode: http.StatusCreated},
		{
			name: "Instructors cannot submit", method: http.MethodPost, path: submitPath, token: instructorToken, body: []byte(`{"answer": "a"}`),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "only learners can perform this action"}),
		},
		{name: "Wrong answer", method: http.MethodPost, path: submitPath, token: learnerToken, body: []byte(`{"answer": "a,b"}`), wantCode: http.StatusCreated, extra: &sub},
		{name: "Right answer", method: http.MethodPost, path: submitPath, token: learnerToken, body: []byte(`{"answer": "a", "time_spent_seconds": 30}`), wantCode: http.StatusCreated, extra: &sub},
		{
			name: "Out of attempts", method: http.MethodPost, path: submitPath, token: learnerToken, body: []byte(`{"answer": "a"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "maximum number of attempts reached"}),
		},
		{name: "Learner view", path: "/v1/exercises/" + ex.ID + "?include_submissions=true", token: learnerToken, wantCode: http.StatusOK, extra: &detail},
	}

	checkpoints := map[string]func(){
		"Wrong answer": func() {
			require.NotNil(t, sub.Score)
			assert.Equal(t, 0.0, *sub.Score)
			assert.Equal(t, lms.SubmissionGraded, sub.Status)
			assert.Equal(t, 1, sub.AttemptNumber)
		},
		"Right answer": func() {
			require.NotNil(t, sub.Score)
			assert.Equal(t, 10.0, *sub.Score)
			assert.Equal(t, 2, sub.AttemptNumber)
			require.NotNil(t, sub.GradingResult)
			assert.Equal(t, 1.0, sub.GradingResult.Confidence)
		},
		"Learner view": func() {
			for _, o := range detail.Options {
				assert.False(t, o.IsCorrect, "answer key leaked for option %s", o.ID)
			}
			assert.Len(t, detail.Submissions, 2)
			require.NotNil(t, detail.UserStats)
			assert.Equal(t, 10.0, detail.UserStats.BestScore)
			assert.Equal(t, 2, detail.UserStats.TotalAttempts)
			assert.True(t, detail.UserStats.HasPassingScore)
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.run(t, app)
			checkCodeAndData(t, tt, rec)

			switch dst := tt.extra.(type) {
			case *lms.Submission:
				unmarchall(t, rec, dst)
			case *lms.ExerciseDetail:
				unmarchall(t, rec, dst)
			}
			if check, ok := checkpoints[tt.name]; ok {
				check()
			}
		})
	}

	// the instructor sees the answer key and can regrade
	req, rec := newAuthRequest(http.MethodGet, "/v1/exercises/"+ex.ID, instructorToken)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	unmarchall(t, rec, &detail)
	assert.True(t, detail.Options[0].IsCorrect)

	grades := []httpTest{
		{
			name: "Grade: learner", method: http.MethodPut, path: "/v1/submissions/" + sub.ID + "/grade", token: learnerToken,
			body: []byte(`{"score": 10}`), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Grade: too high", method: http.MethodPut, path: "/v1/submissions/" + sub.ID + "/grade", token: instructorToken,
			body: []byte(`{"score": 11}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"score": "score must be between 0 and 10"}),
		},
		{
			name: "Grade", method: http.MethodPut, path: "/v1/submissions/" + sub.ID + "/grade", token: instructorToken,
			body: []byte(`{"score": 8, "feedback": " Nice "}`), wantCode: http.StatusOK, extra: &sub,
		},
	}
	for _, tt := range grades {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.run(t, app)
			checkCodeAndData(t, tt, rec)
			if dst, ok := tt.extra.(*lms.Submission); ok {
				unmarchall(t, rec, dst)
			}
		})
	}
	require.NotNil(t, sub.Score)
	assert.Equal(t, 8.0, *sub.Score)
	assert.Equal(t, "Nice", sub.InstructorFeedback)
}

func Test_exerciseApi_create(t *testing.T) {
	app, stack := setup(t)

	instructor := testutil.CreateUser(t, stack.Users, "Instructor", user.RoleInstructor, true)
	course := testutil.CreateCourse(t, stack.Courses, instructor.ID, "Go", "Programming", lms.CourseDraft)
	mod := testutil.CreateModule(t, stack.Modules, course.ID, 1)
	token := getToken(t, stack, instructor)
	path := "/v1/modules/" + mod.ID + "/exercises"

	tests := []httpTest{
		{
			name: "Draft module hidden", path: path, wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "user not authenticated"}),
		},
		{
			name: "Invalid difficulty", method: http.MethodPost, path: path, token: token,
			body:     []byte(`{"title": "Q", "type": "open_ended", "question": "Why?", "difficulty": "extreme"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"difficulty": "difficulty must be one of easy, medium or hard"}),
		},
		{
			name: "Choices without a correct one", method: http.MethodPost, path: path, token: token,
			body:     []byte(`{"title": "Q", "type": "multiple_choice", "question": "Which?", "difficulty": "easy", "options": [{"id": "a", "text": "A"}]}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"options": "multiple choice exercises must have at least one correct answer"}),
		},
		{
			name: "Create", method: http.MethodPost, path: path, token: token,
			body:     []byte(`{"title": "Q", "type": "Open_Ended", "question": "Why?", "difficulty": "Medium", "correct_answer": "Because"}`),
			wantCode: http.StatusCreated,
		},
		{
			name: "Generate", method: http.MethodPost, path: path + "/generate", token: token,
			body: []byte(`{"topic": "goroutines", "difficulty": "easy", "type": "multiple_choice", "count": 2}`), wantCode: http.StatusCreated,
		},
		{name: "Listed", path: path, token: token, wantCode: http.StatusOK, extra: 3},
		{name: "Generated", path: "/v1/exercises/ai-generated?course_id=" + course.ID, token: token, wantCode: http.StatusOK, extra: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.run(t, app)
			checkCodeAndData(t, tt, rec)
			if n, ok := tt.extra.(int); ok {
				var exercises []lms.Exercise
				unmarchall(t, rec, &exercises)
				assert.Len(t, exercises, n)
			}
		})
	}
}
