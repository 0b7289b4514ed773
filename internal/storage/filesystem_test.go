package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStorePutGet(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "http://localhost:8080/static/assets/")
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	key := ImageKey("user-1", "gen-1", 0)
	if err := store.Put(context.Background(), key, []byte("png-bytes"), "image/png"); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "images", "user-1", "gen-1", "0.png")); err != nil {
		t.Fatalf("object not written: %v", err)
	}
	data, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Fatalf("Get = %q", data)
	}
	if got, want := store.PublicURL(key), "http://localhost:8080/static/assets/images/user-1/gen-1/0.png"; got != want {
		t.Fatalf("PublicURL = %q, want %q", got, want)
	}
}

func TestFileStorePutOverwrites(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	ctx := context.Background()
	_ = store.Put(ctx, "a/b.bin", []byte("one"), "")
	if err := store.Put(ctx, "a/b.bin", []byte("two"), ""); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	data, _ := store.Get(ctx, "a/b.bin")
	if string(data) != "two" {
		t.Fatalf("Get = %q, want two", data)
	}
}

func TestFileStoreGetMissing(t *testing.T) {
	store, _ := NewFileStore(t.TempDir(), "")
	if _, err := store.Get(context.Background(), "nope.png"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get err = %v, want ErrNotFound", err)
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	store, _ := NewFileStore(t.TempDir(), "")
	for _, key := range []string{"../escape.png", "..", "", "a/../../b"} {
		if err := store.Put(context.Background(), key, []byte("x"), ""); err == nil {
			t.Fatalf("Put(%q) should fail", key)
		}
	}
}

func TestSanitizeKey(t *testing.T) {
	tests := map[string]string{
		"/images/a.png":      "images/a.png",
		"./videos/b.mp4":     "videos/b.mp4",
		`images\c.png`:       "images/c.png",
		"images//d/../e.png": "images/e.png",
	}
	for in, want := range tests {
		got, err := sanitizeKey(in)
		if err != nil {
			t.Fatalf("sanitizeKey(%q) error: %v", in, err)
		}
		if got != want {
			t.Fatalf("sanitizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}
