// Package generation accepts generation requests and enqueues them.
package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/observability"
)

// Dispatcher wakes workers for a newly stored generation.
type Dispatcher interface {
	Notify(ctx context.Context, generationID string) error
}

type Deps struct {
	Generations domain.GenerationRepository
	Dispatcher  Dispatcher
	Metrics     *observability.Metrics
	Logger      infra.Logger
	Now         func() time.Time
	NewID       func() string
}

// Submitter validates requests, records them as pending and hands them to the
// worker pool. It never waits for generation to finish.
type Submitter struct {
	generations domain.GenerationRepository
	dispatcher  Dispatcher
	metrics     *observability.Metrics
	logger      infra.Logger
	now         func() time.Time
	newID       func() string
}

func NewSubmitter(deps Deps) *Submitter {
	s := &Submitter{
		generations: deps.Generations,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      infra.Component(deps.Logger, "submitter"),
		now:         deps.Now,
		newID:       deps.NewID,
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// Submit stores req as a pending generation owned by ownerID and returns its
// id. Nothing is stored when the owner is missing or the request is invalid.
// Resources are linked in the same insert. Once the row exists, a failed
// worker notification is only logged: the pending row itself is the queue
// entry.
func (s *Submitter) Submit(ctx context.Context, ownerID string, req domain.SubmitRequest) (string, error) {
	if ownerID == "" {
		return "", fmt.Errorf("submit generation: %w", domain.ErrAuth)
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return "", err
	}

	g := &domain.Generation{
		ID:             s.newID(),
		OwnerID:        ownerID,
		Kind:           req.Kind,
		Prompt:         req.Prompt,
		Resolution:     req.Resolution,
		AspectRatio:    req.AspectRatio,
		ModelTier:      req.ModelTier,
		VariationCount: req.VariationCount,
		CreatedAt:      s.now(),
	}
	log := s.logger.With().Str("generation_id", g.ID).Str("kind", string(g.Kind)).Logger()
	if len(req.ResourceIDs) == 0 {
		if err := s.generations.Create(ctx, g); err != nil {
			return "", err
		}
	} else {
		linked, err := s.generations.CreateWithResources(ctx, g, req.ResourceIDs)
		if err != nil {
			return "", err
		}
		if linked < int64(len(req.ResourceIDs)) {
			log.Warn().Int64("linked", linked).Int("requested", len(req.ResourceIDs)).Msg("some resources were not linked")
		}
	}

	if err := s.dispatcher.Notify(ctx, g.ID); err != nil {
		log.Warn().Err(err).Msg("dispatch hint failed; generation stays queued")
	}

	s.metrics.Submitted(ctx, string(g.Kind))
	log.Info().Str("tier", string(g.ModelTier)).Int("variations", g.VariationCount).Msg("generation submitted")
	return g.ID, nil
}
