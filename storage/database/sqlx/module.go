package sqlxrepos

import (
	"context"

	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/lms"
)

const moduleColumns = `id, course_id, title, description, content, type, "order", video_url, attachments,
	estimated_duration, is_required, created_at, updated_at`

type moduleRow struct {
	ID                string         `db:"id"`
	CourseID          string         `db:"course_id"`
	Title             string         `db:"title"`
	Description       string         `db:"description"`
	Content           string         `db:"content"`
	Type              string         `db:"type"`
	Order             int            `db:"order"`
	VideoURL          null.String    `db:"video_url"`
	Attachments       pq.StringArray `db:"attachments"`
	EstimatedDuration int            `db:"estimated_duration"`
	IsRequired        bool           `db:"is_required"`
	CreatedAt         int64          `db:"created_at"`
	UpdatedAt         int64          `db:"updated_at"`
}

func toModuleRow(m lms.Module) moduleRow {
	return moduleRow{
		ID:                m.ID,
		CourseID:          m.CourseID,
		Title:             m.Title,
		Description:       m.Description,
		Content:           m.Content,
		Type:              string(m.Type),
		Order:             m.Order,
		VideoURL:          null.NewString(m.VideoURL, m.VideoURL != ""),
		Attachments:       nonNil(m.Attachments),
		EstimatedDuration: m.EstimatedDuration,
		IsRequired:        m.IsRequired,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func (row moduleRow) toModule() lms.Module {
	return lms.Module{
		ID:                row.ID,
		CourseID:          row.CourseID,
		Title:             row.Title,
		Description:       row.Description,
		Content:           row.Content,
		Type:              lms.ModuleType(row.Type),
		Order:             row.Order,
		VideoURL:          row.VideoURL.String,
		Attachments:       nonNil(row.Attachments),
		EstimatedDuration: row.EstimatedDuration,
		IsRequired:        row.IsRequired,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}

func toModules(rows []moduleRow) []lms.Module {
	modules := make([]lms.Module, len(rows))
	for i, row := range rows {
		modules[i] = row.toModule()
	}
	return modules
}

type moduleRepository struct {
	repo
}

var _ lms.ModuleRepository = (*moduleRepository)(nil)

func NewModuleRepository(db core.DBExecutor) *moduleRepository {
	return &moduleRepository{repo{db: db}}
}

func (repo *moduleRepository) CreateModule(ctx context.Context, m lms.Module, exec ...core.DBExecutor) (lms.Module, error) {
	q := `INSERT INTO modules (` + moduleColumns + `) VALUES (:id, :course_id, :title, :description, :content, :type,
		:order, :video_url, :attachments, :estimated_duration, :is_required, :created_at, :updated_at)`
	if err := namedExec(ctx, repo.getExec(exec), q, toModuleRow(m)); err != nil {
		return lms.Module{}, err
	}
	return m, nil
}

func (repo *moduleRepository) GetModuleByID(ctx context.Context, id string, exec ...core.DBExecutor) (lms.Module, error) {
	var row moduleRow
	if err := get(ctx, repo.getExec(exec), &row, lms.ErrModuleNotFound, `SELECT `+moduleColumns+` FROM modules WHERE id = $1`, id); err != nil {
		return lms.Module{}, err
	}
	return row.toModule(), nil
}

func (repo *moduleRepository) GetModulesByCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]lms.Module, error) {
	var rows []moduleRow
	q := `SELECT ` + moduleColumns + ` FROM modules WHERE course_id = $1 ORDER BY "order"`
	if err := selectRows(ctx, repo.getExec(exec), &rows, q, courseID); err != nil {
		return nil, err
	}
	return toModules(rows), nil
}

func (repo *moduleRepository) GetModulesByCourses(ctx context.Context, courseIDs []string, exec ...core.DBExecutor) ([]lms.Module, error) {
	if len(courseIDs) == 0 {
		return []lms.Module{}, nil
	}
	var rows []moduleRow
	q := `SELECT ` + moduleColumns + ` FROM modules WHERE course_id = ANY($1::uuid[]) ORDER BY course_id, "order"`
	if err := selectRows(ctx, repo.getExec(exec), &rows, q, pq.Array(courseIDs)); err != nil {
		return nil, err
	}
	return toModules(rows), nil
}

func (repo *moduleRepository) UpdateModule(ctx context.Context, m lms.Module, exec ...core.DBExecutor) (lms.Module, error) {
	row := toModuleRow(m)
	q := `UPDATE modules SET title = $2, description = $3, content = $4, type = $5, "order" = $6, video_url = $7,
		attachments = $8, estimated_duration = $9, is_required = $10, updated_at = $11 WHERE id = $1`
	err := mustAffect(ctx, repo.getExec(exec), lms.ErrModuleNotFound, q, row.ID, row.Title, row.Description,
		row.Content, row.Type, row.Order, row.VideoURL, row.Attachments, row.EstimatedDuration, row.IsRequired,
		row.UpdatedAt)
	if err != nil {
		return lms.Module{}, err
	}
	return m, nil
}

// SetModuleOrders relies on the deferred (course_id, "order") constraint, checked at commit.
func (repo *moduleRepository) SetModuleOrders(ctx context.Context, courseID string, ids []string, exec ...core.DBExecutor) error {
	if len(ids) == 0 {
		return nil
	}
	q := `UPDATE modules m SET "order" = v.ord
		FROM unnest($2::uuid[]) WITH ORDINALITY AS v(id, ord)
		WHERE m.id = v.id AND m.course_id = $1`
	return execStmt(ctx, repo.getExec(exec), q, courseID, pq.Array(ids))
}

func (repo *moduleRepository) DeleteModule(ctx context.Context, id string, exec ...core.DBExecutor) error {
	return mustAffect(ctx, repo.getExec(exec), lms.ErrModuleNotFound, `DELETE FROM modules WHERE id = $1`, id)
}
