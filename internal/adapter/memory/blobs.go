package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"studio/internal/storage"
)

// Blobs is an in-memory storage.BlobStore.
type Blobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	baseURL string

	// PutErr, when non-nil, is consulted for every Put.
	PutErr func(key string) error
}

func NewBlobs(baseURL string) *Blobs {
	return &Blobs{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (b *Blobs) Put(_ context.Context, key string, data []byte, contentType string) error {
	if b.PutErr != nil {
		if err := b.PutErr(key); err != nil {
			return err
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = append([]byte(nil), data...)
	b.types[key] = contentType
	return nil
}

func (b *Blobs) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (b *Blobs) PublicURL(key string) string {
	return b.baseURL + "/" + strings.TrimLeft(key, "/")
}

// Keys lists stored keys.
func (b *Blobs) Keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	return keys
}

// ContentType returns the content type recorded for key.
func (b *Blobs) ContentType(key string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.types[key]
}

var _ storage.BlobStore = (*Blobs)(nil)
