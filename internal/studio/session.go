// Package studio holds the per-user client state of a studio session: the
// active mode, the locally known gallery and the focused item.
package studio

import (
	"fmt"
	"strings"
	"sync"

	"studio/internal/domain"
)

type Mode string

const (
	ModeEdit     Mode = "EDIT"
	ModeGenerate Mode = "GENERATE"
	ModeVideo    Mode = "VIDEO"
)

// ParseMode accepts a mode name in any case.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToUpper(strings.TrimSpace(s))); m {
	case ModeEdit, ModeGenerate, ModeVideo:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Kind is the generation kind submitted in this mode.
func (m Mode) Kind() domain.GenerationKind {
	switch m {
	case ModeGenerate:
		return domain.KindGenerate
	case ModeVideo:
		return domain.KindVideo
	}
	return domain.KindEdit
}

// Session is safe for concurrent use; poll callbacks may add items while the
// caller reads.
type Session struct {
	mu      sync.Mutex
	mode    Mode
	gallery []domain.GalleryItem
	focused int
}

// NewSession starts in edit mode with an empty gallery and nothing focused.
func NewSession() *Session {
	return &Session{mode: ModeEdit, focused: -1}
}

func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Session) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
}

// Add prepends item. An item already present is moved to the front.
func (s *Session) Add(item domain.GalleryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(item.ID)
	s.gallery = append([]domain.GalleryItem{item}, s.gallery...)
	if s.focused >= 0 {
		s.focused++
	}
}

// AddGeneration projects g into the gallery. It reports false for
// generations that are not successful.
func (s *Session) AddGeneration(g domain.Generation) bool {
	item, ok := domain.GalleryItemFor(g)
	if ok {
		s.Add(item)
	}
	return ok
}

// Append adds older items, typically the next gallery page, after the known
// ones, skipping duplicates.
func (s *Session) Append(items []domain.GalleryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		if s.indexLocked(item.ID) >= 0 {
			continue
		}
		s.gallery = append(s.gallery, item)
	}
}

func (s *Session) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
}

// Gallery returns a copy of the items, newest first.
func (s *Session) Gallery() []domain.GalleryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.GalleryItem(nil), s.gallery...)
}

// Focus selects the item at index; -1 clears the focus.
func (s *Session) Focus(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < -1 || index >= len(s.gallery) {
		return fmt.Errorf("focus index %d out of range [0,%d)", index, len(s.gallery))
	}
	s.focused = index
	return nil
}

// Focused returns the focused item, if any.
func (s *Session) Focused() (domain.GalleryItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.focused < 0 || s.focused >= len(s.gallery) {
		return domain.GalleryItem{}, false
	}
	return s.gallery[s.focused], true
}

func (s *Session) removeLocked(id string) {
	i := s.indexLocked(id)
	if i < 0 {
		return
	}
	s.gallery = append(s.gallery[:i], s.gallery[i+1:]...)
	switch {
	case s.focused == i:
		s.focused = -1
	case s.focused > i:
		s.focused--
	}
}

func (s *Session) indexLocked(id string) int {
	for i, item := range s.gallery {
		if item.ID == id {
			return i
		}
	}
	return -1
}
