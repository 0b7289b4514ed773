// Package image defines the image provider contract used by the worker.
package image

import (
	"context"

	"studio/internal/domain"
)

// SourceImage is an input image sent alongside the prompt for edits.
type SourceImage struct {
	MIMEType string
	Data     []byte
}

// GenerateRequest describes one image to produce. Variations are fanned out
// by the caller, one request per slot.
type GenerateRequest struct {
	Prompt      string
	Tier        domain.ModelTier
	Resolution  string
	AspectRatio string
	Sources     []SourceImage
}

// Asset is a generated image.
type Asset struct {
	MIMEType string
	Data     []byte
	Width    int
	Height   int
}

// Generator is the contract implemented by image providers.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Asset, error)
}

// Models maps model tiers to provider model names.
type Models struct {
	Basic string
	Pro   string
}

const (
	DefaultBasicModel = "gemini-2.5-flash-image"
	DefaultProModel   = "gemini-3-pro-image-preview"
)

// ForTier returns the model for tier, falling back to the defaults when a
// name is unset.
func (m Models) ForTier(tier domain.ModelTier) string {
	if tier == domain.TierPro {
		if m.Pro != "" {
			return m.Pro
		}
		return DefaultProModel
	}
	if m.Basic != "" {
		return m.Basic
	}
	return DefaultBasicModel
}
