package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"studio/internal/domain"
	"studio/internal/sqlinline"
)

const genID = "7f1d2c3b-4a5e-4f60-8a7b-9c0d1e2f3a4b"

func generationRow(id, status string, urls []string, errMsg *string, completed *time.Time) []any {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []any{id, "user-1", "generate", status, "a fox", "1K", "1:1", "Basic", 2, urls, errMsg, created, created, completed}
}

func TestGenerationRepositoryCreate(t *testing.T) {
	exec := &stubExecutor{execTag: pgconn.NewCommandTag("INSERT 0 1")}
	repo := NewGenerationRepository(exec)
	g := &domain.Generation{ID: "g1", OwnerID: "user-1", Kind: domain.KindEdit, Prompt: "p", Resolution: "1K", AspectRatio: "1:1", ModelTier: domain.TierPro, VariationCount: 4}

	if err := repo.Create(context.Background(), g); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if exec.lastQuery() != sqlinline.QInsertGeneration || !hasMarker(exec.lastQuery()) {
		t.Fatalf("unexpected query %q", exec.lastQuery())
	}
	args := exec.calls[0].args
	if args[2] != "edit" || args[6] != "Pro" || args[7] != 4 {
		t.Fatalf("unexpected args %v", args)
	}
	if g.Status != domain.StatusPending || g.CreatedAt.IsZero() {
		t.Fatalf("generation not initialised: %+v", g)
	}
}

func TestGenerationRepositoryCreateWrapsPersistence(t *testing.T) {
	exec := &stubExecutor{execErr: errors.New("duplicate key")}
	err := NewGenerationRepository(exec).Create(context.Background(), &domain.Generation{ID: "g1"})
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("Create err = %v, want ErrPersistence", err)
	}
}

func TestGenerationRepositoryCreateWithResources(t *testing.T) {
	exec := &stubExecutor{row: []any{int64(1)}}
	repo := NewGenerationRepository(exec)
	g := &domain.Generation{ID: genID, OwnerID: "user-1", Kind: domain.KindEdit, Prompt: "p", Resolution: "1K", AspectRatio: "1:1", ModelTier: domain.TierBasic, VariationCount: 1}

	linked, err := repo.CreateWithResources(context.Background(), g, []string{"r1", "r2"})
	if err != nil {
		t.Fatalf("CreateWithResources error: %v", err)
	}
	if linked != 1 {
		t.Fatalf("linked = %d, want 1", linked)
	}
	if len(exec.calls) != 1 || exec.lastQuery() != sqlinline.QInsertGenerationWithResources {
		t.Fatalf("insert and link must be one statement, got %d calls", len(exec.calls))
	}
	args := exec.calls[0].args
	if args[1] != "user-1" || len(args[9].([]string)) != 2 {
		t.Fatalf("unexpected args %v", args)
	}
	if g.Status != domain.StatusPending {
		t.Fatalf("status = %s", g.Status)
	}

	exec = &stubExecutor{rowErr: errors.New("deadlock detected")}
	if _, err := NewGenerationRepository(exec).CreateWithResources(context.Background(), g, []string{"r1"}); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}
}

func TestGenerationRepositoryGetForOwner(t *testing.T) {
	exec := &stubExecutor{row: generationRow(genID, "processing", []string{}, nil, nil)}
	g, err := NewGenerationRepository(exec).GetForOwner(context.Background(), genID, "user-1")
	if err != nil {
		t.Fatalf("GetForOwner error: %v", err)
	}
	if g.Status != domain.StatusProcessing || g.Kind != domain.KindGenerate || g.ModelTier != domain.TierBasic || g.VariationCount != 2 {
		t.Fatalf("unexpected generation %+v", g)
	}
	if err := g.CheckInvariants(); err != nil {
		t.Fatalf("scanned generation violates invariants: %v", err)
	}
}

func TestGenerationRepositoryNotFound(t *testing.T) {
	repo := NewGenerationRepository(&stubExecutor{})
	if _, err := repo.GetByID(context.Background(), genID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByID err = %v, want ErrNotFound", err)
	}
	if _, err := repo.ClaimNext(context.Background()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("ClaimNext err = %v, want ErrNotFound", err)
	}
}

func TestGenerationRepositoryMalformedIDIsNotFound(t *testing.T) {
	exec := &stubExecutor{rowErr: errors.New("invalid input syntax for type uuid")}
	repo := NewGenerationRepository(exec)
	if _, err := repo.GetByID(context.Background(), "not-a-uuid"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByID err = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetForOwner(context.Background(), "gen-1", "user-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetForOwner err = %v, want ErrNotFound", err)
	}
	if len(exec.calls) != 0 {
		t.Fatalf("malformed ids must not reach the database, got %d calls", len(exec.calls))
	}
}

func TestGenerationRepositoryClaimNextDriverError(t *testing.T) {
	repo := NewGenerationRepository(&stubExecutor{rowErr: errors.New("conn closed")})
	_, err := repo.ClaimNext(context.Background())
	if !errors.Is(err, domain.ErrPersistence) || errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("ClaimNext err = %v, want ErrPersistence", err)
	}
}

func TestGenerationRepositoryMarkSucceeded(t *testing.T) {
	exec := &stubExecutor{execTag: pgconn.NewCommandTag("UPDATE 1")}
	repo := NewGenerationRepository(exec)
	if err := repo.MarkSucceeded(context.Background(), "g1", []string{"u1"}); err != nil {
		t.Fatalf("MarkSucceeded error: %v", err)
	}
	if exec.lastQuery() != sqlinline.QMarkGenerationSucceeded {
		t.Fatalf("unexpected query %q", exec.lastQuery())
	}

	if err := repo.MarkSucceeded(context.Background(), "g1", nil); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("empty results err = %v, want ErrInvalidTransition", err)
	}

	exec.execTag = pgconn.NewCommandTag("UPDATE 0")
	if err := repo.MarkSucceeded(context.Background(), "g1", []string{"u1"}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("stale update err = %v, want ErrInvalidTransition", err)
	}
}

func TestGenerationRepositoryMarkFailed(t *testing.T) {
	exec := &stubExecutor{execTag: pgconn.NewCommandTag("UPDATE 0")}
	repo := NewGenerationRepository(exec)
	if err := repo.MarkFailed(context.Background(), "g1", "boom"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("MarkFailed on terminal row err = %v, want ErrInvalidTransition", err)
	}
	exec.execTag = pgconn.NewCommandTag("UPDATE 1")
	if err := repo.MarkFailed(context.Background(), "g1", "boom"); err != nil {
		t.Fatalf("MarkFailed error: %v", err)
	}
	if got := exec.calls[1].args[1]; got != "boom" {
		t.Fatalf("message arg = %v", got)
	}
}

func TestGenerationRepositoryListSucceeded(t *testing.T) {
	done := time.Now()
	exec := &stubExecutor{rows: [][]any{
		generationRow("g2", "success", []string{"a"}, nil, &done),
		generationRow("g1", "success", []string{"b", "c"}, nil, &done),
	}}
	cursor := &domain.GalleryCursor{CreatedAt: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), ID: genID}
	gens, err := NewGenerationRepository(exec).ListSucceeded(context.Background(), "user-1", 8, cursor)
	if err != nil {
		t.Fatalf("ListSucceeded error: %v", err)
	}
	if len(gens) != 2 || gens[0].ID != "g2" || len(gens[1].ResultURLs) != 2 {
		t.Fatalf("unexpected generations %+v", gens)
	}
	args := exec.calls[0].args
	if args[0] != "user-1" || args[1] != 8 || !args[2].(*time.Time).Equal(cursor.CreatedAt) || *args[3].(*string) != genID {
		t.Fatalf("unexpected args %v", args)
	}

	exec.calls = nil
	_, _ = NewGenerationRepository(exec).ListSucceeded(context.Background(), "user-1", 8, nil)
	args = exec.calls[0].args
	if args[2].(*time.Time) != nil || args[3].(*string) != nil {
		t.Fatalf("nil cursor args %v", args)
	}
}

func TestGenerationRepositoryReapStale(t *testing.T) {
	exec := &stubExecutor{rows: [][]any{{"g1", "user-1"}, {"g2", "user-2"}}}
	cutoff := time.Now().Add(-30 * time.Minute)
	reaped, err := NewGenerationRepository(exec).ReapStale(context.Background(), cutoff, "timed out")
	if err != nil {
		t.Fatalf("ReapStale error: %v", err)
	}
	if len(reaped) != 2 || reaped[1].OwnerID != "user-2" {
		t.Fatalf("unexpected reaped %+v", reaped)
	}
}
