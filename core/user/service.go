package user

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("user not found")
	ErrTargetNotFound = core.NewNotFoundError("target user not found")
	ErrAdminRequired  = core.NewPermissionError("admin access required")
	ErrSelfChange     = core.NewPermissionError("you cannot change your own role or status")
	ErrOwnsCourses    = core.NewValidationError(errors.New("user still owns courses; reassign or delete them first"))

	defaultListLimit = 50
	maxListLimit     = 200
	recentSignupSpan = 7 * 24 * time.Hour
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUserByID(ctx context.Context, id string, exec ...core.DBExecutor) (User, error)
		GetUserBySubject(ctx context.Context, subject string, exec ...core.DBExecutor) (User, error)
		GetUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]User, error)
		// QueryUsers applies AND operation on available QueryFilter fields, newest first.
		QueryUsers(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		DeleteUser(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	// DataEraser removes what other parts of the system keep about a user, within the caller's transaction.
	DataEraser interface {
		EraseUserData(ctx context.Context, usr User, exec core.DBExecutor) error
	}

	Service struct {
		db     core.Transactor
		repo   Repository
		eraser DataEraser
	}
)

func NewService(db core.Transactor, repo Repository, eraser DataEraser) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(db, "db"),
		vala.IsNotNil(repo, "repo"),
	).CheckAndPanic()

	return &Service{db: db, repo: repo, eraser: eraser}
}

func requireAdmin(caller *User) error {
	if caller == nil {
		return core.ErrUnauthenticated
	}
	if !caller.IsActive || !caller.IsAdmin() {
		return ErrAdminRequired
	}
	return nil
}

func (svc *Service) newUser(ident Identity, role Role) User {
	now := core.NowMillis()
	if !role.Valid() {
		role = RoleLearner
	}
	return User{
		ID:          core.NewID(),
		Subject:     ident.Subject,
		Email:       core.CleanString(ident.Email, true /* lower */),
		Name:        core.CleanName(ident.Name),
		AvatarURL:   ident.AvatarURL,
		Role:        role,
		IsActive:    true,
		Preferences: DefaultPreferences(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Upsert records a sign in: the user is created with default preferences on first call,
// otherwise their identity fields and last login are refreshed. A requested role only applies on creation.
func (svc *Service) Upsert(ctx context.Context, ident Identity, data UpsertUser) (User, error) {
	if ident.Subject == "" {
		return User{}, core.ErrUnauthenticated
	}

	usr, err := svc.repo.GetUserBySubject(ctx, ident.Subject)
	switch {
	case err == nil:
		usr.Email = core.CleanString(ident.Email, true /* lower */)
		usr.Name = core.CleanName(ident.Name)
		usr.AvatarURL = ident.AvatarURL
		usr.LastLoginAt = core.NowMillis()
		usr.UpdatedAt = usr.LastLoginAt
		usr, err = svc.repo.UpdateUser(ctx, usr)
		return usr, errors.Wrap(err, "updating user")
	case errors.Cause(err) == ErrNotFound:
		usr = svc.newUser(ident, data.Role)
		usr.LastLoginAt = usr.CreatedAt
		usr, err = svc.repo.CreateUser(ctx, usr)
		return usr, errors.Wrap(err, "creating user")
	default:
		return User{}, errors.Wrap(err, "finding user by subject")
	}
}

// Ensure returns the user behind ident, creating it as a learner if it does not exist yet.
func (svc *Service) Ensure(ctx context.Context, ident Identity) (User, error) {
	usr, err := svc.repo.GetUserBySubject(ctx, ident.Subject)
	if err == nil {
		return usr, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return User{}, errors.Wrap(err, "finding user by subject")
	}

	usr, err = svc.repo.CreateUser(ctx, svc.newUser(ident, RoleLearner))
	if errors.Cause(err) == core.ErrConflict { // created concurrently
		return svc.repo.GetUserBySubject(ctx, ident.Subject)
	}
	return usr, errors.Wrap(err, "creating user")
}

func (svc *Service) GetBySubject(ctx context.Context, subject string) (User, error) {
	return svc.repo.GetUserBySubject(ctx, subject)
}

// Current merges the stored user with the latest identity claims, without persisting them.
func (svc *Service) Current(ctx context.Context, ident Identity) (User, error) {
	usr, err := svc.repo.GetUserBySubject(ctx, ident.Subject)
	if err != nil {
		return User{}, err
	}
	if ident.Name != "" {
		usr.Name = core.CleanName(ident.Name)
	}
	if ident.Email != "" {
		usr.Email = core.CleanString(ident.Email, true /* lower */)
	}
	if ident.AvatarURL != "" {
		usr.AvatarURL = ident.AvatarURL
	}
	return usr, nil
}

// ListByRole returns active users with the given role.
func (svc *Service) ListByRole(ctx context.Context, caller *User, role Role, limit int) ([]User, error) {
	if caller == nil {
		return nil, core.ErrUnauthenticated
	}
	if !role.Valid() {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "role", Error: userRoleText})
	}
	active := true
	return svc.repo.QueryUsers(ctx, QueryFilter{
		Role:     role,
		IsActive: &active,
		Limit:    core.ClampLimit(limit, defaultListLimit, maxListLimit),
	})
}

// HasRole reports whether caller is active and has role.
func (svc *Service) HasRole(caller *User, role Role) bool {
	return caller != nil && caller.IsActive && caller.Role == role
}

func (svc *Service) Stats(ctx context.Context, caller *User) (Stats, error) {
	if err := requireAdmin(caller); err != nil {
		return Stats{}, err
	}

	users, err := svc.repo.QueryUsers(ctx, QueryFilter{})
	if err != nil {
		return Stats{}, errors.Wrap(err, "querying users")
	}

	since := core.NowFunc().Add(-recentSignupSpan).UnixNano() / int64(time.Millisecond)
	stats := Stats{Total: len(users), ByRole: make(map[Role]int, len(Roles))}
	for _, r := range Roles {
		stats.ByRole[r] = 0
	}
	for _, u := range users {
		if u.IsActive {
			stats.Active++
		}
		stats.ByRole[u.Role]++
		if u.CreatedAt >= since {
			stats.RecentSignups++
		}
	}
	return stats, nil
}

func (svc *Service) UpdatePreferences(ctx context.Context, caller *User, data UpdatePreferences) (User, error) {
	if caller == nil {
		return User{}, core.ErrUnauthenticated
	}
	usr, err := svc.repo.GetUserByID(ctx, caller.ID)
	if err != nil {
		return User{}, err
	}
	usr.Preferences = data.apply(usr.Preferences)
	usr.UpdatedAt = core.NowMillis()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) UpdateLearningProfile(ctx context.Context, caller *User, data UpdateLearningProfile) (User, error) {
	if caller == nil {
		return User{}, core.ErrUnauthenticated
	}
	usr, err := svc.repo.GetUserByID(ctx, caller.ID)
	if err != nil {
		return User{}, err
	}
	usr.LearningProfile = &LearningProfile{
		LearningStyle:    data.LearningStyle,
		Pace:             data.Pace,
		Strengths:        data.Strengths,
		ImprovementAreas: data.ImprovementAreas,
	}
	usr.UpdatedAt = core.NowMillis()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) getTarget(ctx context.Context, caller *User, id string) (User, error) {
	if err := requireAdmin(caller); err != nil {
		return User{}, err
	}
	if id == caller.ID {
		return User{}, ErrSelfChange
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if errors.Cause(err) == ErrNotFound {
		return User{}, ErrTargetNotFound
	}
	return usr, err
}

func (svc *Service) UpdateRole(ctx context.Context, caller *User, id string, role Role) (User, error) {
	usr, err := svc.getTarget(ctx, caller, id)
	if err != nil {
		return User{}, err
	}
	usr.Role = role
	usr.UpdatedAt = core.NowMillis()
	return svc.repo.UpdateUser(ctx, usr)
}

// SetRole is used by the admin CLI, where there is no calling user.
func (svc *Service) SetRole(ctx context.Context, subject string, role Role) (User, error) {
	if !role.Valid() {
		return User{}, core.NewValidationError(nil, core.FieldError{Field: "role", Error: userRoleText})
	}
	usr, err := svc.repo.GetUserBySubject(ctx, subject)
	if err != nil {
		return User{}, err
	}
	usr.Role = role
	usr.UpdatedAt = core.NowMillis()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) ToggleStatus(ctx context.Context, caller *User, id string) (User, error) {
	usr, err := svc.getTarget(ctx, caller, id)
	if err != nil {
		return User{}, err
	}
	usr.IsActive = !usr.IsActive
	usr.UpdatedAt = core.NowMillis()
	return svc.repo.UpdateUser(ctx, usr)
}

// Delete removes a user and, through the DataEraser, their enrollments, progress and submissions.
func (svc *Service) Delete(ctx context.Context, caller *User, id string) error {
	usr, err := svc.getTarget(ctx, caller, id)
	if err != nil {
		return err
	}

	return svc.db.WithinTx(ctx, func(exec core.DBExecutor) error {
		if svc.eraser != nil {
			if err := svc.eraser.EraseUserData(ctx, usr, exec); err != nil {
				return err
			}
		}
		return errors.Wrap(svc.repo.DeleteUser(ctx, usr.ID, exec), "deleting user")
	})
}
