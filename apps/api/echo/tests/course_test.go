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

func Test_courseApi(t *testing.T) {
	app, stack := setup(t)

	instructor := testutil.CreateUser(t, stack.Users, "Instructor", user.RoleInstructor, true)
	other := testutil.CreateUser(t, stack.Users, "Other Instructor", user.RoleInstructor, true)
	learner := testutil.CreateUser(t, stack.Users, "Learner", user.RoleLearner, true)
	instructorToken := getToken(t, stack, instructor)
	otherToken := getToken(t, stack, other)
	learnerToken := getToken(t, stack, learner)

	draft := testutil.CreateCourse(t, stack.Courses, instructor.ID, "Draft", "Science", lms.CourseDraft)
	go1 := testutil.CreateCourse(t, stack.Courses, instructor.ID, "Go basics", "Programming", lms.CoursePublished)
	go2 := testutil.CreateCourse(t, stack.Courses, other.ID, "Advanced Go", "Programming", lms.CoursePublished)
	art := testutil.CreateCourse(t, stack.Courses, other.ID, "Painting", "Art", lms.CoursePublished)

	var created lms.Course
	tests := []httpTest{
		{name: "Published only", path: "/v1/courses", wantCode: http.StatusOK, extra: []string{art.ID, go2.ID, go1.ID}},
		{name: "By category", path: "/v1/courses?category=Programming", wantCode: http.StatusOK, extra: []string{go2.ID, go1.ID}},
		{name: "Bad limit", path: "/v1/courses?limit=lol", wantCode: http.StatusBadRequest, wantData: []byte(`{"limit": "must be an integer"}`)},
		{name: "Search", path: "/v1/courses/search?q=go", wantCode: http.StatusOK, extra: []string{go1.ID, go2.ID}},
		{
			name: "Categories", path: "/v1/courses/categories", wantCode: http.StatusOK,
			wantData: marchallObj(t, []lms.CategoryCount{{Category: "Programming", Count: 2}, {Category: "Art", Count: 1}}),
		},
		{
			name: "Draft hidden from anonymous", path: "/v1/courses/" + draft.ID, wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "user not authenticated"}),
		},
		{
			name: "Draft hidden from learners", path: "/v1/courses/" + draft.ID, token: learnerToken, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "access denied"}),
		},
		{name: "Draft visible to its instructor", path: "/v1/courses/" + draft.ID, token: instructorToken, wantCode: http.StatusOK},
		{
			name: "Unknown course", path: "/v1/courses/lol", wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
		{
			name: "Create: auth required", method: http.MethodPost, path: "/v1/courses", body: []byte(`{}`),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Create: invalid", method: http.MethodPost, path: "/v1/courses", token: instructorToken,
			body:     []byte(`{"title": "  ", "description": "d", "category": "c", "level": "Expert"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"title": "this field is required",
				"level": "level must be one of beginner, intermediate or advanced",
			}),
		},
		{
			name: "Create: learners cannot", method: http.MethodPost, path: "/v1/courses", token: learnerToken,
			body:     []byte(`{"title": "Mine", "description": "d", "category": "c", "level": "beginner"}`),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "only instructors and admins can perform this action"}),
		},
		{
			name: "Create", method: http.MethodPost, path: "/v1/courses", token: instructorToken,
			body:     []byte(`{"title": " Rust ", "description": "Ownership", "category": "Programming", "level": "Beginner", "tags": ["rust", " rust ", ""]}`),
			wantCode: http.StatusCreated, extra: &created,
		},
		{
			name: "Update: not the owner", method: http.MethodPut, path: "/v1/courses/" + go1.ID, token: otherToken,
			body: []byte(`{"title": "Mine now"}`), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Invalid status", method: http.MethodPut, path: "/v1/courses/" + draft.ID + "/status", token: instructorToken,
			body: []byte(`{"status": "gone"}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"status": "status must be one of draft, published or archived"}),
		},
		{name: "Publish", method: http.MethodPut, path: "/v1/courses/" + draft.ID + "/status", token: instructorToken, body: []byte(`{"status": "published"}`), wantCode: http.StatusOK},
		{
			name: "Categories refreshed after publish", path: "/v1/courses/categories", wantCode: http.StatusOK,
			wantData: marchallObj(t, []lms.CategoryCount{
				{Category: "Programming", Count: 2}, {Category: "Art", Count: 1}, {Category: "Science", Count: 1},
			}),
		},
		{name: "Mine", path: "/v1/courses/mine?include_stats=true", token: instructorToken, wantCode: http.StatusOK},
		{name: "Delete", method: http.MethodDelete, path: "/v1/courses/" + art.ID, token: otherToken, wantCode: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.run(t, app)
			checkCodeAndData(t, tt, rec)

			switch extra := tt.extra.(type) {
			case []string:
				var courses []lms.CourseWithInstructor
				unmarchall(t, rec, &courses)
				got := make([]string, len(courses))
				for i, c := range courses {
					got[i] = c.ID
					require.NotNil(t, c.Instructor)
				}
				assert.Equal(t, extra, got)
			case *lms.Course:
				unmarchall(t, rec, extra)
			}
		})
	}

	assert.Equal(t, "Rust", created.Title)
	assert.Equal(t, lms.LevelBeginner, created.Level)
	assert.Equal(t, lms.CourseDraft, created.Status)
	assert.Equal(t, instructor.ID, created.InstructorID)
	assert.Equal(t, []string{"rust"}, created.Tags)
}

func Test_courseApi_deleteWithActiveEnrollment(t *testing.T) {
	app, stack := setup(t)

	instructor := testutil.CreateUser(t, stack.Users, "Instructor", user.RoleInstructor, true)
	learner := testutil.CreateUser(t, stack.Users, "Learner", user.RoleLearner, true)
	course := testutil.CreateCourse(t, stack.Courses, instructor.ID, "Go", "Programming", lms.CoursePublished)
	testutil.CreateModule(t, stack.Modules, course.ID, 1)

	tests := []httpTest{
		{name: "Enroll", method: http.MethodPost, path: "/v1/courses/" + course.ID + "/enroll", token: getToken(t, stack, learner), wantCode: http.StatusCreated},
		{
			name: "Delete refused", method: http.MethodDelete, path: "/v1/courses/" + course.ID, token: getToken(t, stack, instructor),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "cannot delete course with active enrollments; archive it instead"}),
		},
		{name: "Course kept", path: "/v1/courses/" + course.ID, wantCode: http.StatusOK},
		{name: "Modules kept", path: "/v1/courses/" + course.ID + "/modules", wantCode: http.StatusOK, extra: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.run(t, app)
			checkCodeAndData(t, tt, rec)

			if n, ok := tt.extra.(int); ok {
				var modules []lms.ModuleWithProgress
				unmarchall(t, rec, &modules)
				assert.Len(t, modules, n)
			}
		})
	}
}
