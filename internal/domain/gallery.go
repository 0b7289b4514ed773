package domain

// GalleryItemFor projects a generation onto the gallery. Only successful
// generations appear; ok is false for every other status.
func GalleryItemFor(g Generation) (item GalleryItem, ok bool) {
	if g.Status != StatusSuccess || len(g.ResultURLs) == 0 {
		return GalleryItem{}, false
	}
	mediaType := MediaImage
	if g.Kind == KindVideo {
		mediaType = MediaVideo
	}
	urls := make([]string, len(g.ResultURLs))
	copy(urls, g.ResultURLs)
	return GalleryItem{
		ID:          g.ID,
		Type:        mediaType,
		ResultURLs:  urls,
		Prompt:      g.Prompt,
		Timestamp:   g.CreatedAt.UnixMilli(),
		Resolution:  g.Resolution,
		AspectRatio: g.AspectRatio,
	}, true
}
