package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"studio/internal/domain"
)

type imageRequest struct {
	Prompt      string   `json:"prompt"`
	ModelTier   string   `json:"model_tier"`
	Resolution  string   `json:"resolution"`
	AspectRatio string   `json:"aspect_ratio"`
	Variations  int      `json:"variations"`
	ResourceIDs []string `json:"resource_ids,omitempty"`
}

type videoRequest struct {
	Prompt      string `json:"prompt"`
	Resolution  string `json:"resolution"`
	AspectRatio string `json:"aspect_ratio"`
	ResourceID  string `json:"resource_id,omitempty"`
}

type submitResponse struct {
	GenerationID string `json:"generation_id"`
}

func (a *App) ImagesGenerate(w http.ResponseWriter, r *http.Request) {
	a.submitImage(w, r, domain.KindGenerate)
}

func (a *App) ImagesEdit(w http.ResponseWriter, r *http.Request) {
	a.submitImage(w, r, domain.KindEdit)
}

func (a *App) submitImage(w http.ResponseWriter, r *http.Request, kind domain.GenerationKind) {
	var req imageRequest
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	ids := req.ResourceIDs
	if kind == domain.KindGenerate {
		ids = nil
	}
	a.submit(w, r, domain.SubmitRequest{
		Kind:           kind,
		Prompt:         req.Prompt,
		ModelTier:      domain.ModelTier(req.ModelTier),
		Resolution:     req.Resolution,
		AspectRatio:    req.AspectRatio,
		VariationCount: req.Variations,
		ResourceIDs:    ids,
	})
}

func (a *App) VideosGenerate(w http.ResponseWriter, r *http.Request) {
	var req videoRequest
	if err := decode(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	sub := domain.SubmitRequest{
		Kind:        domain.KindVideo,
		Prompt:      req.Prompt,
		Resolution:  req.Resolution,
		AspectRatio: req.AspectRatio,
	}
	if req.ResourceID != "" {
		sub.ResourceIDs = []string{req.ResourceID}
	}
	a.submit(w, r, sub)
}

func (a *App) submit(w http.ResponseWriter, r *http.Request, req domain.SubmitRequest) {
	id, err := a.Submitter.Submit(r.Context(), a.currentUserID(r), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, submitResponse{GenerationID: id})
}

// GenerationStatus is the polling read. Generations of other owners are
// reported as not found.
func (a *App) GenerationStatus(w http.ResponseWriter, r *http.Request) {
	g, ok := a.loadOwned(w, r)
	if !ok {
		return
	}
	if g.ResultURLs == nil {
		g.ResultURLs = []string{}
	}
	a.json(w, http.StatusOK, g)
}

func (a *App) loadOwned(w http.ResponseWriter, r *http.Request) (*domain.Generation, bool) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.fail(w, r, domain.ErrAuth)
		return nil, false
	}
	id := chi.URLParam(r, "id")
	if id == "" {
		a.fail(w, r, domain.Validationf("id required"))
		return nil, false
	}
	g, err := a.Generations.GetForOwner(r.Context(), id, userID)
	if err != nil {
		a.fail(w, r, err)
		return nil, false
	}
	return g, true
}
