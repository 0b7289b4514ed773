package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"studio/internal/domain"
)

// Resources is an in-memory domain.ResourceRepository.
type Resources struct {
	mu   sync.Mutex
	rows map[string]*domain.Resource

	// LinkErr, when set, is returned by LinkToGeneration.
	LinkErr error
	// LinkDelay stalls each link to widen races in tests.
	LinkDelay time.Duration
}

func NewResources() *Resources {
	return &Resources{rows: make(map[string]*domain.Resource)}
}

// Put stores r for later linking.
func (s *Resources) Put(r domain.Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[r.ID] = &r
}

// LinkToGeneration attaches unlinked resources owned by ownerID and reports
// how many changed.
func (s *Resources) LinkToGeneration(_ context.Context, ownerID, generationID string, resourceIDs []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LinkDelay > 0 {
		time.Sleep(s.LinkDelay)
	}
	if s.LinkErr != nil {
		return 0, domain.Persistence("link resources", s.LinkErr)
	}
	var n int64
	for _, id := range resourceIDs {
		row, ok := s.rows[id]
		if !ok || row.OwnerID != ownerID || row.GenerationID != nil {
			continue
		}
		gen := generationID
		row.GenerationID = &gen
		n++
	}
	return n, nil
}

func (s *Resources) ListByGeneration(_ context.Context, generationID string) ([]domain.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Resource
	for _, row := range s.rows {
		if row.GenerationID != nil && *row.GenerationID == generationID {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

var _ domain.ResourceRepository = (*Resources)(nil)
