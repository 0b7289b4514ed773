package repo

import (
	"context"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/sqlinline"
)

// ResourceRepositoryPG implements domain.ResourceRepository on Postgres.
type ResourceRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewResourceRepository constructs a resource repository over sql.
func NewResourceRepository(sql infra.SQLExecutor) *ResourceRepositoryPG {
	return &ResourceRepositoryPG{sql: sql}
}

// ListByGeneration returns the resources attached to generationID in upload order.
func (r *ResourceRepositoryPG) ListByGeneration(ctx context.Context, generationID string) ([]domain.Resource, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QSelectResourcesByGeneration, generationID)
	if err != nil {
		return nil, domain.Persistence("list resources", err)
	}
	defer rows.Close()

	var out []domain.Resource
	for rows.Next() {
		var res domain.Resource
		if err := rows.Scan(&res.ID, &res.OwnerID, &res.GenerationID, &res.StoragePath, &res.MIMEType, &res.CreatedAt); err != nil {
			return nil, domain.Persistence("scan resource", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Persistence("list resources", err)
	}
	return out, nil
}

var _ domain.ResourceRepository = (*ResourceRepositoryPG)(nil)
