// Package memory provides in-process repositories and blob storage with the
// same transition rules as the Postgres adapters. Tests across the module
// use it in place of a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"studio/internal/domain"
)

// Generations is an in-memory domain.GenerationRepository. It counts status
// writes per generation so callers can assert the single-claim and
// single-terminal-update rules.
type Generations struct {
	mu        sync.Mutex
	rows      map[string]*domain.Generation
	claims    map[string]int
	terminals map[string]int

	Now func() time.Time
	// CreateErr, when set, is returned by Create without storing the row.
	CreateErr error
	// Resources receives the links made by CreateWithResources.
	Resources *Resources
}

func NewGenerations() *Generations {
	return &Generations{
		rows:      make(map[string]*domain.Generation),
		claims:    make(map[string]int),
		terminals: make(map[string]int),
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Generations) Create(_ context.Context, g *domain.Generation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkInsert(g); err != nil {
		return err
	}
	s.insert(g)
	return nil
}

// CreateWithResources links before the row becomes visible to ClaimNext;
// both happen under the store lock.
func (s *Generations) CreateWithResources(_ context.Context, g *domain.Generation, resourceIDs []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkInsert(g); err != nil {
		return 0, err
	}
	var linked int64
	if s.Resources != nil {
		n, err := s.Resources.LinkToGeneration(context.Background(), g.OwnerID, g.ID, resourceIDs)
		if err != nil {
			return 0, err
		}
		linked = n
	}
	s.insert(g)
	return linked, nil
}

func (s *Generations) checkInsert(g *domain.Generation) error {
	if s.CreateErr != nil {
		return domain.Persistence("insert generation", s.CreateErr)
	}
	if _, ok := s.rows[g.ID]; ok {
		return domain.Persistence("insert generation", fmt.Errorf("duplicate id %s", g.ID))
	}
	return nil
}

func (s *Generations) insert(g *domain.Generation) {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = s.Now()
	}
	g.Status = domain.StatusPending
	g.UpdatedAt = g.CreatedAt
	g.ResultURLs = []string{}
	g.ErrorMessage = nil
	g.CompletedAt = nil
	row := *g
	s.rows[g.ID] = &row
}

// Put stores g as-is, bypassing transition rules, for seeding fixtures.
func (s *Generations) Put(g domain.Generation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ResultURLs == nil {
		g.ResultURLs = []string{}
	}
	s.rows[g.ID] = &g
}

func (s *Generations) GetByID(_ context.Context, id string) (*domain.Generation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, fmt.Errorf("load generation: %w", domain.ErrNotFound)
	}
	return clone(row), nil
}

func (s *Generations) GetForOwner(ctx context.Context, id, ownerID string) (*domain.Generation, error) {
	g, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.OwnerID != ownerID {
		return nil, fmt.Errorf("load generation: %w", domain.ErrNotFound)
	}
	return g, nil
}

func (s *Generations) ClaimNext(_ context.Context) (*domain.Generation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var next *domain.Generation
	for _, row := range s.rows {
		if row.Status != domain.StatusPending {
			continue
		}
		if next == nil || row.CreatedAt.Before(next.CreatedAt) {
			next = row
		}
	}
	if next == nil {
		return nil, fmt.Errorf("claim generation: %w", domain.ErrNotFound)
	}
	next.Status = domain.StatusProcessing
	next.UpdatedAt = s.Now()
	s.claims[next.ID]++
	return clone(next), nil
}

func (s *Generations) MarkSucceeded(_ context.Context, id string, resultURLs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || row.Status != domain.StatusProcessing || len(resultURLs) == 0 {
		return fmt.Errorf("mark %s succeeded: %w", id, domain.ErrInvalidTransition)
	}
	now := s.Now()
	row.Status = domain.StatusSuccess
	row.ResultURLs = append([]string(nil), resultURLs...)
	row.UpdatedAt = now
	row.CompletedAt = &now
	s.terminals[id]++
	return nil
}

func (s *Generations) MarkFailed(_ context.Context, id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || !row.Status.CanTransitionTo(domain.StatusError) {
		return fmt.Errorf("mark %s failed: %w", id, domain.ErrInvalidTransition)
	}
	now := s.Now()
	msg := message
	row.Status = domain.StatusError
	row.ErrorMessage = &msg
	row.UpdatedAt = now
	row.CompletedAt = &now
	s.terminals[id]++
	return nil
}

func (s *Generations) ListSucceeded(_ context.Context, ownerID string, limit int, cursor *domain.GalleryCursor) ([]domain.Generation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Generation
	for _, row := range s.rows {
		if row.OwnerID != ownerID || row.Status != domain.StatusSuccess {
			continue
		}
		if cursor != nil && !cursor.Before(*row) {
			continue
		}
		out = append(out, *clone(row))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Generations) ReapStale(_ context.Context, cutoff time.Time, message string) ([]domain.ReapedGeneration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var reaped []domain.ReapedGeneration
	now := s.Now()
	for _, row := range s.rows {
		if row.Status.Terminal() || !row.UpdatedAt.Before(cutoff) {
			continue
		}
		msg := message
		row.Status = domain.StatusError
		row.ErrorMessage = &msg
		row.UpdatedAt = now
		row.CompletedAt = &now
		s.terminals[row.ID]++
		reaped = append(reaped, domain.ReapedGeneration{ID: row.ID, OwnerID: row.OwnerID})
	}
	return reaped, nil
}

// Claims reports how many times id moved to processing.
func (s *Generations) Claims(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claims[id]
}

// Terminals reports how many terminal updates id received.
func (s *Generations) Terminals(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminals[id]
}

func clone(g *domain.Generation) *domain.Generation {
	out := *g
	out.ResultURLs = append([]string{}, g.ResultURLs...)
	if g.ErrorMessage != nil {
		msg := *g.ErrorMessage
		out.ErrorMessage = &msg
	}
	if g.CompletedAt != nil {
		at := *g.CompletedAt
		out.CompletedAt = &at
	}
	return &out
}

var _ domain.GenerationRepository = (*Generations)(nil)
