package inmemdb

import (
	"context"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func cloneUser(usr user.User) user.User {
	if usr.LearningProfile != nil {
		lp := *usr.LearningProfile
		lp.Strengths = cloneStrings(lp.Strengths)
		lp.ImprovementAreas = cloneStrings(lp.ImprovementAreas)
		usr.LearningProfile = &lp
	}
	return usr
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	defer repo.db.lock(exec)()

	if _, ok := repo.db.t.users[usr.ID]; ok {
		return user.User{}, core.ErrConflict
	}
	for _, r := range repo.db.t.users {
		if r.val.Subject == usr.Subject {
			return user.User{}, core.ErrConflict
		}
	}
	usr = cloneUser(usr)
	put(repo.db, repo.db.t.users, usr.ID, usr)
	return cloneUser(usr), nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if r, ok := repo.db.t.users[id]; ok {
		return cloneUser(r.val), nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserBySubject(_ context.Context, subject string, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, r := range repo.db.t.users {
		if r.val.Subject == subject {
			return cloneUser(r.val), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUsersByID(_ context.Context, ids []string, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	set := idSet(ids)
	users := repo.db.t.users.rows(func(u user.User) bool {
		_, ok := set[u.ID]
		return ok
	})
	for i := range users {
		users[i] = cloneUser(users[i])
	}
	return users, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter user.QueryFilter, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := repo.db.t.users.rows(func(u user.User) bool {
		if filter.Role != "" && u.Role != filter.Role {
			return false
		}
		return filter.IsActive == nil || u.IsActive == *filter.IsActive
	})
	newestFirst(users, func(u user.User) int64 { return u.CreatedAt })
	if filter.Limit > 0 && len(users) > filter.Limit {
		users = users[:filter.Limit]
	}
	for i := range users {
		users[i] = cloneUser(users[i])
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	defer repo.db.lock(exec)()

	orig, ok := repo.db.t.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	usr.Subject = orig.val.Subject
	usr.CreatedAt = orig.val.CreatedAt
	usr = cloneUser(usr)
	put(repo.db, repo.db.t.users, usr.ID, usr)
	return cloneUser(usr), nil
}

func (repo *userRepository) DeleteUser(_ context.Context, id string, exec ...core.DBExecutor) error {
	defer repo.db.lock(exec)()

	if _, ok := repo.db.t.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(repo.db.t.users, id)
	return nil
}
