package handlers

import (
	"net/http"
	"strconv"

	"studio/internal/domain"
	"studio/internal/gallery"
)

// Gallery lists successful generations newest first. Paging takes either the
// opaque cursor of the previous page or its next_before value in unix
// milliseconds; cursor wins when both are given.
func (a *App) Gallery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			a.fail(w, r, domain.Validationf("limit must be a number"))
			return
		}
		limit = n
	}
	var cursor *domain.GalleryCursor
	if raw := q.Get("cursor"); raw != "" {
		c, err := gallery.ParseCursor(raw)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		cursor = c
	} else if raw := q.Get("before"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ms <= 0 {
			a.fail(w, r, domain.Validationf("before must be a unix millisecond timestamp"))
			return
		}
		cursor = gallery.MillisCursor(ms)
	}
	page, err := a.Projector.List(r.Context(), a.currentUserID(r), limit, cursor)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, page)
}
