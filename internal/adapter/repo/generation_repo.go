package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/sqlinline"
)

// GenerationRepositoryPG implements domain.GenerationRepository on Postgres.
type GenerationRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewGenerationRepository creates a generation repository over sql.
func NewGenerationRepository(sql infra.SQLExecutor) *GenerationRepositoryPG {
	return &GenerationRepositoryPG{sql: sql}
}

// Create inserts g as a pending generation.
func (r *GenerationRepositoryPG) Create(ctx context.Context, g *domain.Generation) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	_, err := r.sql.Exec(ctx, sqlinline.QInsertGeneration,
		g.ID,
		g.OwnerID,
		string(g.Kind),
		g.Prompt,
		g.Resolution,
		g.AspectRatio,
		string(g.ModelTier),
		g.VariationCount,
		g.CreatedAt,
	)
	if err != nil {
		return domain.Persistence("insert generation", err)
	}
	g.Status = domain.StatusPending
	g.UpdatedAt = g.CreatedAt
	return nil
}

// CreateWithResources inserts g and links resourceIDs owned by g.OwnerID in a
// single statement.
func (r *GenerationRepositoryPG) CreateWithResources(ctx context.Context, g *domain.Generation, resourceIDs []string) (int64, error) {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	if resourceIDs == nil {
		resourceIDs = []string{}
	}
	var linked int64
	err := r.sql.QueryRow(ctx, sqlinline.QInsertGenerationWithResources,
		g.ID,
		g.OwnerID,
		string(g.Kind),
		g.Prompt,
		g.Resolution,
		g.AspectRatio,
		string(g.ModelTier),
		g.VariationCount,
		g.CreatedAt,
		resourceIDs,
	).Scan(&linked)
	if err != nil {
		return 0, domain.Persistence("insert generation", err)
	}
	g.Status = domain.StatusPending
	g.UpdatedAt = g.CreatedAt
	return linked, nil
}

// GetByID fetches a generation regardless of owner.
func (r *GenerationRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Generation, error) {
	if !domain.ValidID(id) {
		return nil, fmt.Errorf("load generation %q: %w", id, domain.ErrNotFound)
	}
	g, err := scanGeneration(r.sql.QueryRow(ctx, sqlinline.QSelectGenerationByID, id))
	if err != nil {
		return nil, classify("load generation", err)
	}
	return g, nil
}

// GetForOwner fetches a generation only when it belongs to ownerID.
func (r *GenerationRepositoryPG) GetForOwner(ctx context.Context, id, ownerID string) (*domain.Generation, error) {
	if !domain.ValidID(id) {
		return nil, fmt.Errorf("load generation %q: %w", id, domain.ErrNotFound)
	}
	g, err := scanGeneration(r.sql.QueryRow(ctx, sqlinline.QSelectGenerationForOwner, id, ownerID))
	if err != nil {
		return nil, classify("load generation", err)
	}
	return g, nil
}

// ClaimNext moves the oldest pending generation to processing.
func (r *GenerationRepositoryPG) ClaimNext(ctx context.Context) (*domain.Generation, error) {
	g, err := scanGeneration(r.sql.QueryRow(ctx, sqlinline.QClaimNextGeneration))
	if err != nil {
		return nil, classify("claim generation", err)
	}
	return g, nil
}

// MarkSucceeded records the result URLs of a processing generation.
func (r *GenerationRepositoryPG) MarkSucceeded(ctx context.Context, id string, resultURLs []string) error {
	if len(resultURLs) == 0 {
		return fmt.Errorf("mark %s succeeded without results: %w", id, domain.ErrInvalidTransition)
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QMarkGenerationSucceeded, id, resultURLs)
	if err != nil {
		return domain.Persistence("mark generation succeeded", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark %s succeeded: %w", id, domain.ErrInvalidTransition)
	}
	return nil
}

// MarkFailed records message on a pending or processing generation.
func (r *GenerationRepositoryPG) MarkFailed(ctx context.Context, id, message string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QMarkGenerationFailed, id, message)
	if err != nil {
		return domain.Persistence("mark generation failed", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark %s failed: %w", id, domain.ErrInvalidTransition)
	}
	return nil
}

// ListSucceeded pages an owner's successful generations newest first.
func (r *GenerationRepositoryPG) ListSucceeded(ctx context.Context, ownerID string, limit int, cursor *domain.GalleryCursor) ([]domain.Generation, error) {
	var (
		before   *time.Time
		beforeID *string
	)
	if cursor != nil {
		before = &cursor.CreatedAt
		if domain.ValidID(cursor.ID) {
			beforeID = &cursor.ID
		}
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListSucceededGenerations, ownerID, limit, before, beforeID)
	if err != nil {
		return nil, domain.Persistence("list generations", err)
	}
	defer rows.Close()

	var out []domain.Generation
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, domain.Persistence("scan generation", err)
		}
		out = append(out, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Persistence("list generations", err)
	}
	return out, nil
}

// ReapStale fails unfinished generations last updated before cutoff.
func (r *GenerationRepositoryPG) ReapStale(ctx context.Context, cutoff time.Time, message string) ([]domain.ReapedGeneration, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QReapStaleGenerations, cutoff, message)
	if err != nil {
		return nil, domain.Persistence("reap generations", err)
	}
	defer rows.Close()

	var reaped []domain.ReapedGeneration
	for rows.Next() {
		var g domain.ReapedGeneration
		if err := rows.Scan(&g.ID, &g.OwnerID); err != nil {
			return nil, domain.Persistence("scan reaped generation", err)
		}
		reaped = append(reaped, g)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Persistence("reap generations", err)
	}
	return reaped, nil
}

func scanGeneration(row pgx.Row) (*domain.Generation, error) {
	var (
		g                  domain.Generation
		kind, status, tier string
		resultURLs         []string
	)
	if err := row.Scan(
		&g.ID,
		&g.OwnerID,
		&kind,
		&status,
		&g.Prompt,
		&g.Resolution,
		&g.AspectRatio,
		&tier,
		&g.VariationCount,
		&resultURLs,
		&g.ErrorMessage,
		&g.CreatedAt,
		&g.UpdatedAt,
		&g.CompletedAt,
	); err != nil {
		return nil, err
	}
	g.Kind = domain.GenerationKind(kind)
	g.Status = domain.GenerationStatus(status)
	g.ModelTier = domain.ModelTier(tier)
	if resultURLs == nil {
		resultURLs = []string{}
	}
	g.ResultURLs = resultURLs
	return &g, nil
}

func classify(op string, err error) error {
	if infra.IsNoRows(err) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return domain.Persistence(op, err)
}

var _ domain.GenerationRepository = (*GenerationRepositoryPG)(nil)
