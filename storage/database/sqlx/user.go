package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

const userColumns = `id, subject, email, name, avatar_url, role, is_active, preferences, learning_profile,
	created_at, updated_at, last_login_at`

type userRow struct {
	ID              string             `db:"id"`
	Subject         string             `db:"subject"`
	Email           string             `db:"email"`
	Name            string             `db:"name"`
	AvatarURL       string             `db:"avatar_url"`
	Role            string             `db:"role"`
	IsActive        bool               `db:"is_active"`
	Preferences     types.JSONText     `db:"preferences"`
	LearningProfile types.NullJSONText `db:"learning_profile"`
	CreatedAt       int64              `db:"created_at"`
	UpdatedAt       int64              `db:"updated_at"`
	LastLoginAt     null.Int64         `db:"last_login_at"`
}

type userRepository struct {
	repo
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DBExecutor) *userRepository {
	return &userRepository{repo{db: db}}
}

func toUserRow(usr user.User) (userRow, error) {
	prefs, err := toJSON(usr.Preferences)
	if err != nil {
		return userRow{}, err
	}
	profile, err := toNullJSON(usr.LearningProfile, usr.LearningProfile != nil)
	if err != nil {
		return userRow{}, err
	}
	return userRow{
		ID:              usr.ID,
		Subject:         usr.Subject,
		Email:           usr.Email,
		Name:            usr.Name,
		AvatarURL:       usr.AvatarURL,
		Role:            string(usr.Role),
		IsActive:        usr.IsActive,
		Preferences:     prefs,
		LearningProfile: profile,
		CreatedAt:       usr.CreatedAt,
		UpdatedAt:       usr.UpdatedAt,
		LastLoginAt:     null.NewInt64(usr.LastLoginAt, usr.LastLoginAt != 0),
	}, nil
}

func (row userRow) toUser() (user.User, error) {
	usr := user.User{
		ID:          row.ID,
		Subject:     row.Subject,
		Email:       row.Email,
		Name:        row.Name,
		AvatarURL:   row.AvatarURL,
		Role:        user.Role(row.Role),
		IsActive:    row.IsActive,
		Preferences: user.DefaultPreferences(),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
		LastLoginAt: row.LastLoginAt.Int64,
	}
	if len(row.Preferences) > 0 {
		if err := row.Preferences.Unmarshal(&usr.Preferences); err != nil {
			return user.User{}, errors.Wrap(err, "decoding preferences")
		}
	}
	var profile user.LearningProfile
	ok, err := fromNullJSON(row.LearningProfile, &profile)
	if err != nil {
		return user.User{}, err
	}
	if ok {
		usr.LearningProfile = &profile
	}
	return usr, nil
}

func toUsers(rows []userRow) ([]user.User, error) {
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		usr, err := row.toUser()
		if err != nil {
			return nil, err
		}
		users = append(users, usr)
	}
	return users, nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	row, err := toUserRow(usr)
	if err != nil {
		return user.User{}, err
	}
	q := `INSERT INTO users (` + userColumns + `) VALUES (:id, :subject, :email, :name, :avatar_url, :role,
		:is_active, :preferences, :learning_profile, :created_at, :updated_at, :last_login_at)`
	if err = namedExec(ctx, repo.getExec(exec), q, row); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string, exec ...core.DBExecutor) (user.User, error) {
	var row userRow
	if err := get(ctx, repo.getExec(exec), &row, user.ErrNotFound, `SELECT `+userColumns+` FROM users WHERE id = $1`, id); err != nil {
		return user.User{}, err
	}
	return row.toUser()
}

func (repo *userRepository) GetUserBySubject(ctx context.Context, subject string, exec ...core.DBExecutor) (user.User, error) {
	var row userRow
	if err := get(ctx, repo.getExec(exec), &row, user.ErrNotFound, `SELECT `+userColumns+` FROM users WHERE subject = $1`, subject); err != nil {
		return user.User{}, err
	}
	return row.toUser()
}

func (repo *userRepository) GetUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]user.User, error) {
	if len(ids) == 0 {
		return []user.User{}, nil
	}
	var rows []userRow
	if err := selectRows(ctx, repo.getExec(exec), &rows, `SELECT `+userColumns+` FROM users WHERE id = ANY($1::uuid[])`, pq.Array(ids)); err != nil {
		return nil, err
	}
	return toUsers(rows)
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, exec ...core.DBExecutor) ([]user.User, error) {
	w := new(where)
	if filter.Role != "" {
		w.add("role = $%d", string(filter.Role))
	}
	if filter.IsActive != nil {
		w.add("is_active = $%d", *filter.IsActive)
	}
	q := `SELECT ` + userColumns + ` FROM users` + w.String() + ` ORDER BY created_at DESC`
	q += w.limit(filter.Limit)

	var rows []userRow
	if err := selectRows(ctx, repo.getExec(exec), &rows, q, w.args...); err != nil {
		return nil, err
	}
	return toUsers(rows)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	row, err := toUserRow(usr)
	if err != nil {
		return user.User{}, err
	}
	q := `UPDATE users SET email = $2, name = $3, avatar_url = $4, role = $5, is_active = $6, preferences = $7,
		learning_profile = $8, updated_at = $9, last_login_at = $10 WHERE id = $1`
	err = mustAffect(ctx, repo.getExec(exec), user.ErrNotFound, q, row.ID, row.Email, row.Name, row.AvatarURL, row.Role,
		row.IsActive, row.Preferences, row.LearningProfile, row.UpdatedAt, row.LastLoginAt)
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) DeleteUser(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return mustAffect(ctx, repo.getExec(exec), user.ErrNotFound, `DELETE FROM users WHERE id = $1`, id)
}
