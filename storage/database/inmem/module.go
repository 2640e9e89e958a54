package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/lms"
)

type moduleRepository struct {
	db *DB
}

var _ lms.ModuleRepository = (*moduleRepository)(nil)

func NewModuleRepository(db *DB) *moduleRepository {
	return &moduleRepository{db: db}
}

func cloneModule(m lms.Module) lms.Module {
	m.Attachments = cloneStrings(m.Attachments)
	return m
}

func sortModules(modules []lms.Module) {
	sort.SliceStable(modules, func(i, j int) bool {
		if modules[i].CourseID != modules[j].CourseID {
			return modules[i].CourseID < modules[j].CourseID
		}
		return modules[i].Order < modules[j].Order
	})
	for i := range modules {
		modules[i] = cloneModule(modules[i])
	}
}

func (repo *moduleRepository) CreateModule(_ context.Context, m lms.Module, exec ...core.DBExecutor) (lms.Module, error) {
	defer repo.db.lock(exec)()

	if _, ok := repo.db.t.modules[m.ID]; ok {
		return lms.Module{}, core.ErrConflict
	}
	m = cloneModule(m)
	put(repo.db, repo.db.t.modules, m.ID, m)
	return cloneModule(m), nil
}

func (repo *moduleRepository) GetModuleByID(_ context.Context, id string, _ ...core.DBExecutor) (lms.Module, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if r, ok := repo.db.t.modules[id]; ok {
		return cloneModule(r.val), nil
	}
	return lms.Module{}, lms.ErrModuleNotFound
}

func (repo *moduleRepository) GetModulesByCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]lms.Module, error) {
	return repo.GetModulesByCourses(ctx, []string{courseID}, exec...)
}

func (repo *moduleRepository) GetModulesByCourses(_ context.Context, courseIDs []string, _ ...core.DBExecutor) ([]lms.Module, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	set := idSet(courseIDs)
	modules := repo.db.t.modules.rows(func(m lms.Module) bool {
		_, ok := set[m.CourseID]
		return ok
	})
	sortModules(modules)
	return modules, nil
}

func (repo *moduleRepository) UpdateModule(_ context.Context, m lms.Module, exec ...core.DBExecutor) (lms.Module, error) {
	defer repo.db.lock(exec)()

	orig, ok := repo.db.t.modules[m.ID]
	if !ok {
		return lms.Module{}, lms.ErrModuleNotFound
	}
	m.CourseID = orig.val.CourseID
	m.CreatedAt = orig.val.CreatedAt
	m = cloneModule(m)
	put(repo.db, repo.db.t.modules, m.ID, m)
	return cloneModule(m), nil
}

func (repo *moduleRepository) SetModuleOrders(_ context.Context, courseID string, ids []string, exec ...core.DBExecutor) error {
	defer repo.db.lock(exec)()

	for i, id := range ids {
		r, ok := repo.db.t.modules[id]
		if !ok || r.val.CourseID != courseID {
			continue
		}
		r.val.Order = i + 1
		repo.db.t.modules[id] = r
	}

	seen := make(map[int]struct{})
	for _, r := range repo.db.t.modules {
		if r.val.CourseID != courseID {
			continue
		}
		if _, dup := seen[r.val.Order]; dup {
			return core.ErrConflict
		}
		seen[r.val.Order] = struct{}{}
	}
	return nil
}

func (repo *moduleRepository) DeleteModule(_ context.Context, id string, exec ...core.DBExecutor) error {
	defer repo.db.lock(exec)()

	if _, ok := repo.db.t.modules[id]; !ok {
		return lms.ErrModuleNotFound
	}
	delete(repo.db.t.modules, id)
	return nil
}
