package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/testutil"
)

func Test_userApi_me(t *testing.T) {
	app, stack := setup(t)

	ident := user.Identity{Subject: "user_new", Email: "New@Test.cd", Name: "Newbie", AvatarURL: "https://img.test/new.png"}
	token := getIdentityToken(t, stack, ident)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users/me", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Invalid token", path: "/v1/users/me", token: "not.a.jwt", wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			name: "Not signed up yet", path: "/v1/users/me", token: token, wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "user not found"}),
		},
		{
			name: "Admin role cannot be requested", method: http.MethodPost, path: "/v1/users/me", token: token,
			body: []byte(`{"role": "admin"}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"role": "role must be one of instructor or learner"}),
		},
		{
			name: "Sign up as instructor", method: http.MethodPost, path: "/v1/users/me", token: token,
			body: []byte(`{"role": "Instructor"}`), wantCode: http.StatusOK, extra: user.RoleInstructor,
		},
		{
			name: "Role ignored once signed up", method: http.MethodPost, path: "/v1/users/me", token: token,
			body: []byte(`{"role": "learner"}`), wantCode: http.StatusOK, extra: user.RoleInstructor,
		},
		{name: "Current user", path: "/v1/users/me", token: token, wantCode: http.StatusOK, extra: user.RoleInstructor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.run(t, app)
			checkCodeAndData(t, tt, rec)

			if role, ok := tt.extra.(user.Role); ok {
				var usr user.User
				unmarchall(t, rec, &usr)
				assert.Equal(t, role, usr.Role)
				assert.Equal(t, "new@test.cd", usr.Email)
				assert.Equal(t, ident.AvatarURL, usr.AvatarURL)
				assert.Equal(t, user.DefaultPreferences(), usr.Preferences)
			}
		})
	}
}

func Test_userApi_preferences(t *testing.T) {
	app, stack := setup(t)

	usr := testutil.CreateUser(t, stack.Users, "Awe", user.RoleLearner, true)
	token := getToken(t, stack, usr)

	tests := []httpTest{
		{
			name: "Unknown timezone", method: http.MethodPut, path: "/v1/users/me/preferences", token: token,
			body: []byte(`{"timezone": "Mars/Olympus"}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"timezone": "unknown timezone"}),
		},
		{
			name: "Merge", method: http.MethodPut, path: "/v1/users/me/preferences", token: token,
			body: []byte(`{"language": "EN", "email_notifications": false}`), wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.run(t, app)
			checkCodeAndData(t, tt, rec)
		})
	}

	stored, err := stack.Users.GetUserByID(context.Background(), usr.ID)
	require.NoError(t, err)
	want := user.DefaultPreferences()
	want.Language = "en"
	want.EmailNotifications = false
	assert.Equal(t, want, stored.Preferences)
}

func Test_userApi_admin(t *testing.T) {
	app, stack := setup(t)

	admin := testutil.CreateUser(t, stack.Users, "Admin", user.RoleAdmin, true)
	learner := testutil.CreateUser(t, stack.Users, "Learner", user.RoleLearner, true)
	instructor := testutil.CreateUser(t, stack.Users, "Instructor", user.RoleInstructor, true)
	adminToken := getToken(t, stack, admin)
	learnerToken := getToken(t, stack, learner)

	tests := []httpTest{
		{name: "Stats: auth required", path: "/v1/users/stats", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Stats: admin required", path: "/v1/users/stats", token: learnerToken, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "admin access required"}),
		},
		{
			name: "Stats", path: "/v1/users/stats", token: adminToken, wantCode: http.StatusOK,
			wantData: marchallObj(t, user.Stats{
				Total: 3, Active: 3, RecentSignups: 3,
				ByRole: map[user.Role]int{user.RoleAdmin: 1, user.RoleInstructor: 1, user.RoleLearner: 1},
			}),
		},
		{
			name: "Has role", path: "/v1/users/me/has-role/learner", token: learnerToken, wantCode: http.StatusOK,
			wantData: []byte(`{"has_role": true}`),
		},
		{
			name: "Has not role", path: "/v1/users/me/has-role/admin", token: learnerToken, wantCode: http.StatusOK,
			wantData: []byte(`{"has_role": false}`),
		},
		{
			name: "Own role cannot change", method: http.MethodPut, path: "/v1/users/" + admin.ID + "/role", token: adminToken,
			body: []byte(`{"role": "learner"}`), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "you cannot change your own role or status"}),
		},
		{
			name: "Invalid role", method: http.MethodPut, path: "/v1/users/" + learner.ID + "/role", token: adminToken,
			body: []byte(`{"role": "king"}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"role": "invalid role"}),
		},
		{
			name: "Unknown target", method: http.MethodPut, path: "/v1/users/lol/role", token: adminToken,
			body: []byte(`{"role": "instructor"}`), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "target user not found"}),
		},
		{
			name: "Promote", method: http.MethodPut, path: "/v1/users/" + learner.ID + "/role", token: adminToken,
			body: []byte(`{"role": "instructor"}`), wantCode: http.StatusOK,
		},
		{
			name: "Deactivate", method: http.MethodPost, path: "/v1/users/" + instructor.ID + "/toggle-status", token: adminToken,
			wantCode: http.StatusOK,
		},
		{
			name: "Active instructors", path: "/v1/users?role=instructor", token: adminToken, wantCode: http.StatusOK,
			extra: []string{learner.ID},
		},
		{name: "Delete", method: http.MethodDelete, path: "/v1/users/" + instructor.ID, token: adminToken, wantCode: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.run(t, app)
			checkCodeAndData(t, tt, rec)

			if ids, ok := tt.extra.([]string); ok {
				var users []user.User
				unmarchall(t, rec, &users)
				got := make([]string, len(users))
				for i, u := range users {
					got[i] = u.ID
				}
				assert.ElementsMatch(t, ids, got)
			}
		})
	}

	_, err := stack.Users.GetUserByID(context.Background(), instructor.ID)
	assert.Equal(t, user.ErrNotFound, err)
}
