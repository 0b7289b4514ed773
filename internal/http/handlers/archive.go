package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"path"

	"studio/internal/domain"
	"studio/internal/storage"
	"studio/pkg/zip"
)

// GenerationArchive downloads every result of a successful generation as one
// zip file.
func (a *App) GenerationArchive(w http.ResponseWriter, r *http.Request) {
	g, ok := a.loadOwned(w, r)
	if !ok {
		return
	}
	if g.Status != domain.StatusSuccess {
		a.error(w, http.StatusConflict, "not_ready", "generation has no results yet")
		return
	}

	keys := archiveKeys(g)
	assets := make([]zip.Asset, 0, len(keys))
	for _, key := range keys {
		data, err := a.Assets.Get(r.Context(), key)
		if err != nil {
			a.fail(w, r, domain.Persistence("load result "+key, err))
			return
		}
		assets = append(assets, zip.Asset{
			Filename: fmt.Sprintf("%s-%s", g.ID, path.Base(key)),
			Data:     data,
			Modified: g.UpdatedAt,
		})
	}

	var buf bytes.Buffer
	if err := zip.Write(&buf, assets); err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=generation-%s.zip", g.ID))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

// archiveKeys derives result object keys from the generation; URLs are not
// parsed because CDN and public base URLs rewrite them.
func archiveKeys(g *domain.Generation) []string {
	if g.Kind == domain.KindVideo {
		return []string{storage.VideoKey(g.OwnerID, g.ID)}
	}
	keys := make([]string, len(g.ResultURLs))
	for i := range g.ResultURLs {
		keys[i] = storage.ImageKey(g.OwnerID, g.ID, i)
	}
	return keys
}
