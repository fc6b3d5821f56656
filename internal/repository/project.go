package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloo-solutions/docpipe/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProjectRepository struct {
	db dbtx
}

func NewProjectRepository(pool *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{db: pool}
}

func NewProjectRepositoryWithTx(tx pgx.Tx) *ProjectRepository {
	return &ProjectRepository{db: tx}
}

func (r *ProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	schema, err := resolveSchema(ctx, r.db, project.TenantID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, name, description, created_by_user_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`, table(schema, "project")),
		project.ID, project.Name, project.Description, project.CreatedBy, project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrProjectAlreadyExists
		}
		return err
	}
	return nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Project, error) {
	schema, err := resolveSchema(ctx, r.db, tenantID)
	if err != nil {
		return nil, err
	}
	p := domain.Project{TenantID: tenantID}
	err = r.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT id::text, name, description, created_by_user_id, created_at, updated_at
		 FROM %s WHERE id::text = $1`, table(schema, "project")),
		id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListWithCounts returns every project with a document count computed at
// read time.
func (r *ProjectRepository) ListWithCounts(ctx context.Context, tenantID string) ([]*domain.ProjectInfo, error) {
	schema, err := resolveSchema(ctx, r.db, tenantID)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx,
		fmt.Sprintf(`SELECT p.id::text, p.name, p.description, p.created_by_user_id, p.created_at, p.updated_at,
		        (SELECT COUNT(*) FROM %s d WHERE d.project_id = p.id AND d.deleted_at IS NULL)
		 FROM %s p
		 ORDER BY p.created_at DESC`, table(schema, "document"), table(schema, "project")),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*domain.ProjectInfo
	for rows.Next() {
		info := domain.ProjectInfo{Project: domain.Project{TenantID: tenantID}}
		if err := rows.Scan(&info.ID, &info.Name, &info.Description, &info.CreatedBy,
			&info.CreatedAt, &info.UpdatedAt, &info.DocumentCount); err != nil {
			return nil, err
		}
		projects = append(projects, &info)
	}
	return projects, rows.Err()
}
