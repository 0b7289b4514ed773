// Package storage persists generation inputs and outputs as blobs addressed by
// slash-separated keys.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"studio/internal/infra"
)

// ErrNotFound is returned by Get for unknown keys.
var ErrNotFound = errors.New("storage: object not found")

// BlobStore is a single bucket of objects with public URLs.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	PublicURL(key string) string
}

// Buckets groups the two logical buckets used by generations.
type Buckets struct {
	// Resources holds user uploads read as generation sources.
	Resources BlobStore
	// Assets holds generated results.
	Assets BlobStore
}

// Open builds the configured driver for both buckets.
func Open(ctx context.Context, cfg *infra.Config) (Buckets, error) {
	switch cfg.StorageDriver {
	case "gcs":
		client, err := NewGCSClient(ctx)
		if err != nil {
			return Buckets{}, err
		}
		return Buckets{
			Resources: NewGCSStore(client, cfg.ResourceBucket, cfg.GCSCDNDomain, cfg.StoragePublicBaseURL),
			Assets:    NewGCSStore(client, cfg.AssetBucket, cfg.GCSCDNDomain, cfg.StoragePublicBaseURL),
		}, nil
	case "filesystem", "":
		resources, err := NewFileStore(path.Join(cfg.StoragePath, cfg.ResourceBucket), joinURL(cfg.StorageBaseURL, cfg.ResourceBucket))
		if err != nil {
			return Buckets{}, err
		}
		assets, err := NewFileStore(path.Join(cfg.StoragePath, cfg.AssetBucket), joinURL(cfg.StorageBaseURL, cfg.AssetBucket))
		if err != nil {
			return Buckets{}, err
		}
		return Buckets{Resources: resources, Assets: assets}, nil
	}
	return Buckets{}, fmt.Errorf("storage: unsupported driver %q", cfg.StorageDriver)
}

// ImageKey is the object key of variation index of an image generation.
func ImageKey(ownerID, generationID string, index int) string {
	return fmt.Sprintf("images/%s/%s/%d.png", ownerID, generationID, index)
}

// VideoKey is the object key of a video generation result.
func VideoKey(ownerID, generationID string) string {
	return fmt.Sprintf("videos/%s/%s/output.mp4", ownerID, generationID)
}

// ContentTypeForKey guesses a MIME type from the key extension.
func ContentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	switch path.Ext(s) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".zip":
		return "application/zip"
	}
	return "application/octet-stream"
}

// ExtensionForMIME returns the conventional file extension for mime, with
// the leading dot.
func ExtensionForMIME(mime string) string {
	switch strings.ToLower(strings.TrimSpace(strings.Split(mime, ";")[0])) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	}
	return ".bin"
}

func joinURL(base, segment string) string {
	base = strings.TrimRight(base, "/")
	if segment == "" {
		return base
	}
	return base + "/" + strings.Trim(segment, "/")
}
