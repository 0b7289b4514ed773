package domain

import (
	"context"
	"time"
)

// GenerationRepository persists generations. Every status change is
// conditioned on the expected current status; a change that does not apply
// returns ErrInvalidTransition.
type GenerationRepository interface {
	Create(ctx context.Context, g *Generation) error
	// CreateWithResources inserts g as pending and attaches the owner's
	// unlinked resources in the same transaction, so a worker never claims g
	// before its inputs are attached. It reports how many resources changed.
	CreateWithResources(ctx context.Context, g *Generation, resourceIDs []string) (int64, error)
	GetByID(ctx context.Context, id string) (*Generation, error)
	GetForOwner(ctx context.Context, id, ownerID string) (*Generation, error)
	// ClaimNext atomically moves the oldest pending generation to processing.
	// It returns ErrNotFound when the queue is empty.
	ClaimNext(ctx context.Context) (*Generation, error)
	MarkSucceeded(ctx context.Context, id string, resultURLs []string) error
	MarkFailed(ctx context.Context, id, message string) error
	// ListSucceeded returns an owner's successful generations newest first,
	// strictly after cursor in that order when cursor is non-nil.
	ListSucceeded(ctx context.Context, ownerID string, limit int, cursor *GalleryCursor) ([]Generation, error)
	// ReapStale fails unfinished generations last touched before cutoff.
	ReapStale(ctx context.Context, cutoff time.Time, message string) ([]ReapedGeneration, error)
}

// GalleryCursor marks a position in an owner's gallery, ordered by
// (CreatedAt, ID) descending. A blank ID bounds by time alone.
type GalleryCursor struct {
	CreatedAt time.Time
	ID        string
}

// Before reports whether g sorts after the cursor position.
func (c GalleryCursor) Before(g Generation) bool {
	if g.CreatedAt.Before(c.CreatedAt) {
		return true
	}
	return c.ID != "" && g.CreatedAt.Equal(c.CreatedAt) && g.ID < c.ID
}

// ReapedGeneration identifies a generation failed by the reaper.
type ReapedGeneration struct {
	ID      string
	OwnerID string
}

// ResourceRepository reads uploaded resources.
type ResourceRepository interface {
	ListByGeneration(ctx context.Context, generationID string) ([]Resource, error)
}
