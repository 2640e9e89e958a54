package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/testutil"
)

func TestService_Upsert(t *testing.T) {
	stack := testutil.NewStack()
	ctx := context.Background()
	svc := stack.UserSvc
	ident := user.Identity{Subject: "auth0|1", Email: " Jane@Test.CD ", Name: " Jane  Doe "}

	_, err := svc.Upsert(ctx, user.Identity{}, user.UpsertUser{})
	assert.Equal(t, core.ErrUnauthenticated, err)

	created, err := svc.Upsert(ctx, ident, user.UpsertUser{Role: user.RoleInstructor})
	require.NoError(t, err)
	assert.Equal(t, "jane@test.cd", created.Email)
	assert.Equal(t, "Jane Doe", created.Name)
	assert.Equal(t, user.RoleInstructor, created.Role)
	assert.True(t, created.IsActive)
	assert.Equal(t, user.DefaultPreferences(), created.Preferences)
	assert.NotZero(t, created.LastLoginAt)

	// the role only applies on creation
	ident.Name = "Jane D."
	updated, err := svc.Upsert(ctx, ident, user.UpsertUser{Role: user.RoleLearner})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Jane D.", updated.Name)
	assert.Equal(t, user.RoleInstructor, updated.Role)

	ensured, err := svc.Ensure(ctx, ident)
	require.NoError(t, err)
	assert.Equal(t, created.ID, ensured.ID)

	fresh, err := svc.Ensure(ctx, user.Identity{Subject: "auth0|2"})
	require.NoError(t, err)
	assert.Equal(t, user.RoleLearner, fresh.Role)
}

func TestService_admin(t *testing.T) {
	stack := testutil.NewStack()
	ctx := context.Background()
	svc := stack.UserSvc

	old := core.NowFunc().Add(-30*24*time.Hour).UnixNano() / int64(time.Millisecond)
	admin := testutil.CreateUser(t, stack.Users, "Admin", user.RoleAdmin, true, old)
	instructor := testutil.CreateUser(t, stack.Users, "Instructor", user.RoleInstructor, true)
	learner := testutil.CreateUser(t, stack.Users, "Learner", user.RoleLearner, true)
	testutil.CreateUser(t, stack.Users, "Gone", user.RoleLearner, false)

	t.Run("stats", func(t *testing.T) {
		_, err := svc.Stats(ctx, &instructor)
		assert.Equal(t, user.ErrAdminRequired, err)

		stats, err := svc.Stats(ctx, &admin)
		require.NoError(t, err)
		assert.Equal(t, user.Stats{
			Total:         4,
			Active:        3,
			ByRole:        map[user.Role]int{user.RoleAdmin: 1, user.RoleInstructor: 1, user.RoleLearner: 2},
			RecentSignups: 3,
		}, stats)
	})

	t.Run("list by role", func(t *testing.T) {
		learners, err := svc.ListByRole(ctx, &instructor, user.RoleLearner, 0)
		require.NoError(t, err)
		require.Len(t, learners, 1)
		assert.Equal(t, learner.ID, learners[0].ID)

		_, err = svc.ListByRole(ctx, &instructor, "boss", 0)
		assert.EqualError(t, err, "role: invalid role")
		_, err = svc.ListByRole(ctx, nil, user.RoleLearner, 0)
		assert.Equal(t, core.ErrUnauthenticated, err)
	})

	t.Run("role and status", func(t *testing.T) {
		_, err := svc.UpdateRole(ctx, &admin, admin.ID, user.RoleLearner)
		assert.Equal(t, user.ErrSelfChange, err)
		_, err = svc.ToggleStatus(ctx, &admin, "nope")
		assert.Equal(t, user.ErrTargetNotFound, errors.Cause(err))

		promoted, err := svc.UpdateRole(ctx, &admin, learner.ID, user.RoleInstructor)
		require.NoError(t, err)
		assert.Equal(t, user.RoleInstructor, promoted.Role)

		disabled, err := svc.ToggleStatus(ctx, &admin, instructor.ID)
		require.NoError(t, err)
		assert.False(t, disabled.IsActive)
		assert.False(t, svc.HasRole(&disabled, user.RoleInstructor))
	})

	t.Run("set role by subject", func(t *testing.T) {
		_, err := svc.SetRole(ctx, learner.Subject, "boss")
		assert.EqualError(t, err, "role: invalid role")

		usr, err := svc.SetRole(ctx, learner.Subject, user.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, user.RoleAdmin, usr.Role)
	})
}

func TestService_preferences(t *testing.T) {
	stack := testutil.NewStack()
	ctx := context.Background()
	learner := testutil.CreateUser(t, stack.Users, "Learner", user.RoleLearner, true)

	tz := "Africa/Kinshasa"
	off := false
	usr, err := stack.UserSvc.UpdatePreferences(ctx, &learner, user.UpdatePreferences{Timezone: &tz, EmailNotifications: &off})
	require.NoError(t, err)
	assert.Equal(t, tz, usr.Preferences.Timezone)
	assert.False(t, usr.Preferences.EmailNotifications)
	assert.Equal(t, user.DefaultPreferences().Language, usr.Preferences.Language)

	usr, err = stack.UserSvc.UpdateLearningProfile(ctx, &learner, user.UpdateLearningProfile{LearningStyle: "visual", Pace: "fast"})
	require.NoError(t, err)
	require.NotNil(t, usr.LearningProfile)
	assert.Equal(t, "fast", usr.LearningProfile.Pace)
}

func TestValidators(t *testing.T) {
	stack := testutil.NewStack()
	unknownTZ := "Mars/Olympus"
	longLang := "french"

	tests := []struct {
		name    string
		data    interface {
			Validate(*validator.Validate) error
		}
		wantErr bool
	}{
		{name: "admin cannot be self assigned", data: &user.UpsertUser{Role: "Admin"}, wantErr: true},
		{name: "instructor", data: &user.UpsertUser{Role: " Instructor "}},
		{name: "default role", data: &user.UpsertUser{}},
		{name: "unknown timezone", data: &user.UpdatePreferences{Timezone: &unknownTZ}, wantErr: true},
		{name: "language code", data: &user.UpdatePreferences{Language: &longLang}, wantErr: true},
		{name: "learning style", data: &user.UpdateLearningProfile{LearningStyle: "osmosis", Pace: "slow"}, wantErr: true},
		{name: "unknown role", data: &user.UpdateRole{Role: "boss"}, wantErr: true},
		{name: "role", data: &user.UpdateRole{Role: "ADMIN"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.data.Validate(stack.Validate)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
