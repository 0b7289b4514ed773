// Package gallery projects successful generations into paged gallery items.
package gallery

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"studio/internal/domain"
)

const (
	DefaultLimit = 8
	MaxLimit     = 100
)

// Page is one slice of an owner's gallery, newest first.
type Page struct {
	Items   []domain.GalleryItem `json:"items"`
	HasMore bool                 `json:"has_more"`
	// NextBefore is the timestamp of the last item in unix milliseconds.
	// Rows sharing that millisecond can be skipped when paging by it alone;
	// NextCursor has no such gap.
	NextBefore *int64 `json:"next_before,omitempty"`
	NextCursor string `json:"next_cursor,omitempty"`
}

type Projector struct {
	generations domain.GenerationRepository
}

func NewProjector(generations domain.GenerationRepository) *Projector {
	return &Projector{generations: generations}
}

// List returns up to limit successful generations of ownerID that sort after
// cursor (all of them when cursor is nil). HasMore is reported when the page
// is full, so the last page may be followed by an empty one.
func (p *Projector) List(ctx context.Context, ownerID string, limit int, cursor *domain.GalleryCursor) (Page, error) {
	if ownerID == "" {
		return Page{}, fmt.Errorf("list gallery: %w", domain.ErrAuth)
	}
	limit = ClampLimit(limit)

	rows, err := p.generations.ListSucceeded(ctx, ownerID, limit, cursor)
	if err != nil {
		return Page{}, err
	}
	page := Page{Items: make([]domain.GalleryItem, 0, len(rows))}
	for _, g := range rows {
		if item, ok := domain.GalleryItemFor(g); ok {
			page.Items = append(page.Items, item)
		}
	}
	page.HasMore = len(rows) == limit
	if n := len(rows); n > 0 {
		last := rows[n-1]
		next := last.CreatedAt.UnixMilli()
		page.NextBefore = &next
		page.NextCursor = EncodeCursor(domain.GalleryCursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}

// ClampLimit applies the default and maximum page sizes.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

// MillisCursor converts a NextBefore value back into a time-only cursor.
func MillisCursor(millis int64) *domain.GalleryCursor {
	return &domain.GalleryCursor{CreatedAt: time.UnixMilli(millis).UTC()}
}

// EncodeCursor renders c as an opaque URL-safe token.
func EncodeCursor(c domain.GalleryCursor) string {
	raw := strconv.FormatInt(c.CreatedAt.UnixNano(), 10) + "|" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor reverses EncodeCursor.
func ParseCursor(token string) (*domain.GalleryCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, domain.Validationf("invalid gallery cursor")
	}
	nanos, id, ok := strings.Cut(string(raw), "|")
	if !ok {
		return nil, domain.Validationf("invalid gallery cursor")
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil || n <= 0 {
		return nil, domain.Validationf("invalid gallery cursor")
	}
	return &domain.GalleryCursor{CreatedAt: time.Unix(0, n).UTC(), ID: id}, nil
}
