package httpapi_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/adapter/memory"
	"studio/internal/domain"
	"studio/internal/gallery"
	"studio/internal/generation"
	"studio/internal/http/handlers"
	"studio/internal/http/httpapi"
	"studio/internal/infra"
	"studio/internal/middleware"
	"studio/internal/notify"
	"studio/internal/storage"
)

const testSecret = "test-secret"

type dispatcherFunc func(ctx context.Context, id string) error

func (f dispatcherFunc) Notify(ctx context.Context, id string) error { return f(ctx, id) }

type fakeSubscription struct{ ch chan notify.Event }

func (s fakeSubscription) Events() <-chan notify.Event { return s.ch }
func (s fakeSubscription) Close() error                { return nil }

type fakeSubscriber struct{ ch chan notify.Event }

func (s fakeSubscriber) Subscribe(context.Context, string) (notify.Subscription, error) {
	return fakeSubscription{ch: s.ch}, nil
}

type fixture struct {
	gens       *memory.Generations
	resources  *memory.Resources
	blobs      *memory.Blobs
	dispatched []string
	app        *handlers.App
	router     http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		gens:      memory.NewGenerations(),
		resources: memory.NewResources(),
		blobs:     memory.NewBlobs("http://cdn.test/assets"),
	}
	f.gens.Resources = f.resources
	seq := 0
	sub := generation.NewSubmitter(generation.Deps{
		Generations: f.gens,
		Dispatcher: dispatcherFunc(func(_ context.Context, id string) error {
			f.dispatched = append(f.dispatched, id)
			return nil
		}),
		Logger: zerolog.Nop(),
		NewID: func() string {
			seq++
			return fmt.Sprintf("gen-%d", seq)
		},
	})
	f.app = &handlers.App{
		Config:      &infra.Config{},
		Logger:      zerolog.Nop(),
		Submitter:   sub,
		Generations: f.gens,
		Projector:   gallery.NewProjector(f.gens),
		Events:      notify.Nop{},
		Assets:      f.blobs,
	}
	f.router = httpapi.NewRouter(f.app, httpapi.Options{JWTSecret: testSecret, RateLimitPerMin: 1000})
	return f
}

func (f *fixture) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		token, err := middleware.SignJWT(testSecret, user, time.Hour)
		if err != nil {
			t.Fatalf("SignJWT: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func TestSubmitImageGenerate(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, "/v1/images/generate", "user-1", map[string]any{
		"prompt":       "a lighthouse at dusk",
		"model_tier":   "Pro",
		"resolution":   "2K",
		"aspect_ratio": "16:9",
		"variations":   4,
	})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	resp := decodeBody[struct {
		GenerationID string `json:"generation_id"`
	}](t, rr)
	if resp.GenerationID != "gen-1" {
		t.Fatalf("generation_id = %q", resp.GenerationID)
	}
	g, err := f.gens.GetByID(context.Background(), "gen-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if g.OwnerID != "user-1" || g.Status != domain.StatusPending || g.Kind != domain.KindGenerate {
		t.Fatalf("unexpected row %+v", g)
	}
	if g.ModelTier != domain.TierPro || g.Resolution != "2K" || g.VariationCount != 4 {
		t.Fatalf("request not stored: %+v", g)
	}
	if len(f.dispatched) != 1 || f.dispatched[0] != "gen-1" {
		t.Fatalf("dispatched = %v", f.dispatched)
	}
}

func TestSubmitErrors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		user       string
		body       any
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "missing token",
			path:       "/v1/images/generate",
			body:       map[string]any{"prompt": "x"},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "auth_error",
			wantMsg:    "Unauthorized",
		},
		{
			name:       "empty prompt",
			path:       "/v1/images/generate",
			user:       "user-1",
			body:       map[string]any{"prompt": "   "},
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation_error",
			wantMsg:    "prompt is required",
		},
		{
			name:       "malformed json",
			path:       "/v1/images/generate",
			user:       "user-1",
			body:       "{not json",
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation_error",
			wantMsg:    "invalid payload",
		},
		{
			name:       "bad variation count",
			path:       "/v1/images/generate",
			user:       "user-1",
			body:       map[string]any{"prompt": "x", "variations": 3},
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation_error",
		},
		{
			name:       "edit without sources",
			path:       "/v1/images/edit",
			user:       "user-1",
			body:       map[string]any{"prompt": "make it blue"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation_error",
		},
		{
			name:       "bad video resolution",
			path:       "/v1/videos/generate",
			user:       "user-1",
			body:       map[string]any{"prompt": "waves", "resolution": "4K"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "validation_error",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			rr := f.do(t, http.MethodPost, tc.path, tc.user, tc.body)
			if rr.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d body=%s", rr.Code, tc.wantStatus, rr.Body.String())
			}
			e := decodeBody[apiError](t, rr)
			if e.Code != tc.wantCode {
				t.Fatalf("code = %q, want %q", e.Code, tc.wantCode)
			}
			if tc.wantMsg != "" && e.Error != tc.wantMsg {
				t.Fatalf("error = %q, want %q", e.Error, tc.wantMsg)
			}
			if len(f.dispatched) != 0 {
				t.Fatalf("nothing should be dispatched, got %v", f.dispatched)
			}
		})
	}
}

func TestSubmitPersistenceFailure(t *testing.T) {
	f := newFixture(t)
	f.gens.CreateErr = fmt.Errorf("connection refused")
	rr := f.do(t, http.MethodPost, "/v1/images/generate", "user-1", map[string]any{"prompt": "x"})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if e := decodeBody[apiError](t, rr); e.Code != "persistence_error" || strings.Contains(e.Error, "connection refused") {
		t.Fatalf("unexpected error body %+v", e)
	}
}

func TestSubmitEditAndVideoLinkResources(t *testing.T) {
	const res1, res2 = "0d3f6a1b-7c2e-4b9a-8e15-2f4c6d8a0b13", "1e407b2c-8d3f-4cab-9f26-304d7e9b1c24"
	f := newFixture(t)
	f.resources.Put(domain.Resource{ID: res1, OwnerID: "user-1", StoragePath: "uploads/a.png", MIMEType: "image/png"})
	f.resources.Put(domain.Resource{ID: res2, OwnerID: "user-1", StoragePath: "uploads/b.png", MIMEType: "image/png"})

	rr := f.do(t, http.MethodPost, "/v1/images/edit", "user-1", map[string]any{
		"prompt":       "add snow",
		"resource_ids": []string{res1},
	})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("edit status = %d body=%s", rr.Code, rr.Body.String())
	}
	linked, _ := f.resources.ListByGeneration(context.Background(), "gen-1")
	if len(linked) != 1 || linked[0].ID != res1 {
		t.Fatalf("edit linked = %+v", linked)
	}

	rr = f.do(t, http.MethodPost, "/v1/videos/generate", "user-1", map[string]any{
		"prompt":      "pan across the valley",
		"resource_id": res2,
	})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("video status = %d body=%s", rr.Code, rr.Body.String())
	}
	g, _ := f.gens.GetByID(context.Background(), "gen-2")
	if g.Kind != domain.KindVideo || g.ModelTier != domain.TierPro || g.VariationCount != 1 || g.AspectRatio != "16:9" {
		t.Fatalf("video row %+v", g)
	}
	linked, _ = f.resources.ListByGeneration(context.Background(), "gen-2")
	if len(linked) != 1 || linked[0].ID != res2 {
		t.Fatalf("video linked = %+v", linked)
	}
}

func TestSubmitRejectsMalformedResourceID(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, "/v1/images/edit", "user-1", map[string]any{
		"prompt":       "add snow",
		"resource_ids": []string{"res-1"},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	if e := decodeBody[apiError](t, rr); e.Code != "validation_error" {
		t.Fatalf("unexpected error body %+v", e)
	}
	if len(f.dispatched) != 0 {
		t.Fatalf("dispatched %v", f.dispatched)
	}
}

func successRow(id, owner string, kind domain.GenerationKind, created time.Time, urls ...string) domain.Generation {
	done := created.Add(time.Minute)
	return domain.Generation{
		ID: id, OwnerID: owner, Kind: kind, Status: domain.StatusSuccess,
		Prompt: "prompt " + id, Resolution: "1K", AspectRatio: "1:1", ModelTier: domain.TierBasic,
		VariationCount: len(urls), ResultURLs: urls,
		CreatedAt: created, UpdatedAt: done, CompletedAt: &done,
	}
}

func TestGenerationStatusIsOwnerScoped(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	f.gens.Put(successRow("g1", "user-1", domain.KindGenerate, base, "http://cdn.test/a.png"))

	rr := f.do(t, http.MethodGet, "/v1/generations/g1", "user-1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	g := decodeBody[domain.Generation](t, rr)
	if g.Status != domain.StatusSuccess || len(g.ResultURLs) != 1 || g.CompletedAt == nil {
		t.Fatalf("unexpected body %+v", g)
	}

	rr = f.do(t, http.MethodGet, "/v1/generations/g1", "user-2", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("other owner status = %d", rr.Code)
	}
	rr = f.do(t, http.MethodGet, "/v1/generations/missing", "user-1", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d", rr.Code)
	}
}

func TestPendingGenerationReportsEmptyResults(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, "/v1/images/generate", "user-1", map[string]any{"prompt": "x"})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d", rr.Code)
	}
	rr = f.do(t, http.MethodGet, "/v1/generations/gen-1", "user-1", nil)
	if !strings.Contains(rr.Body.String(), `"result_urls":[]`) || !strings.Contains(rr.Body.String(), `"error_message":null`) {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestGalleryPaging(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		f.gens.Put(successRow(fmt.Sprintf("g%d", i), "user-1", domain.KindGenerate, base.Add(time.Duration(i)*time.Minute), "u"))
	}
	f.gens.Put(successRow("other", "user-2", domain.KindVideo, base.Add(time.Hour), "v"))

	rr := f.do(t, http.MethodGet, "/v1/gallery?limit=2", "user-1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	page := decodeBody[gallery.Page](t, rr)
	if len(page.Items) != 2 || page.Items[0].ID != "g2" || page.Items[1].ID != "g1" || !page.HasMore {
		t.Fatalf("first page %+v", page)
	}
	if page.NextBefore == nil || *page.NextBefore != base.Add(time.Minute).UnixMilli() {
		t.Fatalf("next_before = %v", page.NextBefore)
	}

	rr = f.do(t, http.MethodGet, fmt.Sprintf("/v1/gallery?limit=2&before=%d", *page.NextBefore), "user-1", nil)
	page = decodeBody[gallery.Page](t, rr)
	if len(page.Items) != 1 || page.Items[0].ID != "g0" || page.HasMore {
		t.Fatalf("second page %+v", page)
	}

	rr = f.do(t, http.MethodGet, "/v1/gallery?before=yesterday", "user-1", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad before status = %d", rr.Code)
	}
	rr = f.do(t, http.MethodGet, "/v1/gallery?cursor=%21%21", "user-1", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad cursor status = %d", rr.Code)
	}
}

func TestGalleryCursorPagesSameTimestamp(t *testing.T) {
	f := newFixture(t)
	at := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	for _, id := range []string{"a", "b", "c"} {
		f.gens.Put(successRow(id, "user-1", domain.KindGenerate, at, "u"))
	}

	rr := f.do(t, http.MethodGet, "/v1/gallery?limit=2", "user-1", nil)
	page := decodeBody[gallery.Page](t, rr)
	if len(page.Items) != 2 || page.NextCursor == "" {
		t.Fatalf("first page %+v", page)
	}
	rr = f.do(t, http.MethodGet, "/v1/gallery?limit=2&cursor="+page.NextCursor, "user-1", nil)
	page = decodeBody[gallery.Page](t, rr)
	if len(page.Items) != 1 || page.Items[0].ID != "a" {
		t.Fatalf("second page %+v", page)
	}
}

func TestGenerationArchive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	f.gens.Put(successRow("g1", "user-1", domain.KindGenerate, base, "u0", "u1"))
	_ = f.blobs.Put(ctx, storage.ImageKey("user-1", "g1", 0), []byte("png-0"), "image/png")
	_ = f.blobs.Put(ctx, storage.ImageKey("user-1", "g1", 1), []byte("png-1"), "image/png")

	rr := f.do(t, http.MethodGet, "/v1/generations/g1/archive", "user-1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/zip" {
		t.Fatalf("content type = %q", ct)
	}
	zr, err := zip.NewReader(bytes.NewReader(rr.Body.Bytes()), int64(rr.Body.Len()))
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	if len(zr.File) != 2 || zr.File[0].Name != "g1-0.png" || zr.File[1].Name != "g1-1.png" {
		names := []string{}
		for _, f := range zr.File {
			names = append(names, f.Name)
		}
		t.Fatalf("entries = %v", names)
	}

	f.gens.Put(domain.Generation{ID: "g2", OwnerID: "user-1", Kind: domain.KindGenerate, Status: domain.StatusProcessing, CreatedAt: base, UpdatedAt: base})
	rr = f.do(t, http.MethodGet, "/v1/generations/g2/archive", "user-1", nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("unfinished archive status = %d", rr.Code)
	}
}

func TestGenerationEventsTerminalRowClosesImmediately(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	f.gens.Put(successRow("g1", "user-1", domain.KindGenerate, base, "u0"))

	rr := f.do(t, http.MethodGet, "/v1/generations/g1/events", "user-1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := strings.Count(rr.Body.String(), "event: status"); got != 1 {
		t.Fatalf("events = %d body=%s", got, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), `"status":"success"`) {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestGenerationEventsStreamsUntilTerminal(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	f.gens.Put(domain.Generation{ID: "g1", OwnerID: "user-1", Kind: domain.KindGenerate, Status: domain.StatusPending, CreatedAt: base, UpdatedAt: base})

	ch := make(chan notify.Event, 4)
	ch <- notify.Event{GenerationID: "g1", Status: domain.StatusProcessing}
	ch <- notify.Event{GenerationID: "g1", Status: domain.StatusProcessing}
	ch <- notify.Event{GenerationID: "g1", Status: domain.StatusError, Error: "failed to generate any images"}
	ch <- notify.Event{GenerationID: "g1", Status: domain.StatusSuccess}
	f.app.Events = fakeSubscriber{ch: ch}

	rr := f.do(t, http.MethodGet, "/v1/generations/g1/events", "user-1", nil)
	body := rr.Body.String()
	if got := strings.Count(body, "event: status"); got != 3 {
		t.Fatalf("events = %d body=%s", got, body)
	}
	if strings.Contains(body, `"status":"success"`) {
		t.Fatalf("event after terminal was streamed: %s", body)
	}
	if !strings.Contains(body, "failed to generate any images") {
		t.Fatalf("terminal error missing: %s", body)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodGet, "/v1/healthz", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	f.app.Ping = func(context.Context) error { return fmt.Errorf("down") }
	rr = f.do(t, http.MethodGet, "/v1/healthz", "", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("degraded status = %d", rr.Code)
	}
}
