package domain

import (
	"errors"
	"fmt"
	"time"
)

// GenerationKind enumerates the job categories a user can submit.
type GenerationKind string

const (
	KindEdit     GenerationKind = "edit"
	KindGenerate GenerationKind = "generate"
	KindVideo    GenerationKind = "video"
)

// Valid reports whether k is a known kind.
func (k GenerationKind) Valid() bool {
	switch k {
	case KindEdit, KindGenerate, KindVideo:
		return true
	}
	return false
}

// Family returns the model family that serves the kind.
func (k GenerationKind) Family() ModelFamily {
	if k == KindVideo {
		return FamilyVideo
	}
	return FamilyImage
}

// GenerationStatus enumerates job lifecycle states.
type GenerationStatus string

const (
	StatusPending    GenerationStatus = "pending"
	StatusProcessing GenerationStatus = "processing"
	StatusSuccess    GenerationStatus = "success"
	StatusError      GenerationStatus = "error"
)

// Terminal reports whether no further transition is possible.
func (s GenerationStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// CanTransitionTo reports whether s may move to next. Status only moves
// forward along pending, processing, then success or error. A pending job may
// fail directly when it is reaped before any worker claimed it.
func (s GenerationStatus) CanTransitionTo(next GenerationStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusError
	case StatusProcessing:
		return next == StatusSuccess || next == StatusError
	}
	return false
}

// ModelTier selects between the fast and the high-fidelity image model.
type ModelTier string

const (
	TierBasic ModelTier = "Basic"
	TierPro   ModelTier = "Pro"
)

func (t ModelTier) Valid() bool {
	return t == TierBasic || t == TierPro
}

// Generation is a persisted generation job. It doubles as the queue entry
// while pending and as the gallery source once successful.
type Generation struct {
	ID             string           `json:"id"`
	OwnerID        string           `json:"user_id"`
	Kind           GenerationKind   `json:"type"`
	Status         GenerationStatus `json:"status"`
	Prompt         string           `json:"prompt"`
	Resolution     string           `json:"resolution"`
	AspectRatio    string           `json:"aspect_ratio"`
	ModelTier      ModelTier        `json:"model_tier"`
	VariationCount int              `json:"variations"`
	ResultURLs     []string         `json:"result_urls"`
	ErrorMessage   *string          `json:"error_message"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	CompletedAt    *time.Time       `json:"completed_at"`
}

// CheckInvariants verifies that result URLs, error message and completion
// time agree with the status.
func (g *Generation) CheckInvariants() error {
	var errs []error
	if (len(g.ResultURLs) > 0) != (g.Status == StatusSuccess) {
		errs = append(errs, fmt.Errorf("status %s with %d result urls", g.Status, len(g.ResultURLs)))
	}
	if (g.ErrorMessage != nil) != (g.Status == StatusError) {
		errs = append(errs, fmt.Errorf("status %s with error message set=%t", g.Status, g.ErrorMessage != nil))
	}
	if (g.CompletedAt != nil) != g.Status.Terminal() {
		errs = append(errs, fmt.Errorf("status %s with completed_at set=%t", g.Status, g.CompletedAt != nil))
	}
	return errors.Join(errs...)
}

// Failure returns the error message or an empty string.
func (g *Generation) Failure() string {
	if g.ErrorMessage == nil {
		return ""
	}
	return *g.ErrorMessage
}
