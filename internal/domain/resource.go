package domain

import "time"

// Resource is a user-uploaded source image. It is created before submission
// and attached to at most one generation.
type Resource struct {
	ID           string
	OwnerID      string
	GenerationID *string
	StoragePath  string
	MIMEType     string
	CreatedAt    time.Time
}

// MediaType is the gallery-facing classification of a result.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// GalleryItem is the client projection of a successful generation.
type GalleryItem struct {
	ID          string    `json:"id"`
	Type        MediaType `json:"type"`
	ResultURLs  []string  `json:"resultUrls"`
	Prompt      string    `json:"prompt"`
	Timestamp   int64     `json:"timestamp"`
	Resolution  string    `json:"resolution"`
	AspectRatio string    `json:"aspectRatio"`
}
