package domain

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultImageResolution = "1K"
	DefaultVideoResolution = "720p"
	DefaultImageAspect     = "1:1"
	DefaultVideoAspect     = "16:9"
	MaxPromptLength        = 4000
)

var (
	imageResolutions = map[string]bool{"1K": true, "2K": true, "4K": true}
	videoResolutions = map[string]bool{"720p": true, "1080p": true}
	variationCounts  = map[int]bool{1: true, 2: true, 4: true}
)

// SubmitRequest is a generation request as received from a client.
type SubmitRequest struct {
	Kind           GenerationKind
	Prompt         string
	ModelTier      ModelTier
	Resolution     string
	AspectRatio    string
	VariationCount int
	ResourceIDs    []string
}

// Normalize trims and canonicalises the request and fills defaults. It runs
// before Validate so that validation sees what will be stored.
func (r *SubmitRequest) Normalize() {
	r.Prompt = norm.NFC.String(strings.TrimSpace(r.Prompt))
	r.Resolution = strings.TrimSpace(r.Resolution)
	if strings.HasSuffix(r.Resolution, "k") {
		r.Resolution = strings.ToUpper(r.Resolution)
	}
	if r.Kind == KindVideo {
		// Video always runs on the Pro model with a single output.
		r.ModelTier = TierPro
		r.VariationCount = 1
		if r.Resolution == "" {
			r.Resolution = DefaultVideoResolution
		}
		if strings.TrimSpace(r.AspectRatio) == "" {
			r.AspectRatio = DefaultVideoAspect
		}
	} else {
		if r.ModelTier == "" {
			r.ModelTier = TierBasic
		}
		if r.VariationCount == 0 {
			r.VariationCount = 1
		}
		if r.Resolution == "" {
			r.Resolution = DefaultImageResolution
		}
		if strings.TrimSpace(r.AspectRatio) == "" {
			r.AspectRatio = DefaultImageAspect
		}
	}
	r.AspectRatio = NormalizeAspectRatio(r.AspectRatio, r.Kind.Family())
	r.ResourceIDs = dedupe(r.ResourceIDs)
}

// Validate reports the first problem as an ErrValidation.
func (r SubmitRequest) Validate() error {
	if !r.Kind.Valid() {
		return Validationf("unsupported generation type %q", r.Kind)
	}
	if r.Prompt == "" {
		return Validationf("prompt is required")
	}
	if len([]rune(r.Prompt)) > MaxPromptLength {
		return Validationf("prompt exceeds %d characters", MaxPromptLength)
	}
	if !r.ModelTier.Valid() {
		return Validationf("unsupported model tier %q", r.ModelTier)
	}
	if !variationCounts[r.VariationCount] {
		return Validationf("variations must be 1, 2 or 4")
	}
	switch r.Kind {
	case KindVideo:
		if !videoResolutions[r.Resolution] {
			return Validationf("unsupported video resolution %q", r.Resolution)
		}
		if len(r.ResourceIDs) > 1 {
			return Validationf("video accepts at most one start frame")
		}
	default:
		if !imageResolutions[r.Resolution] {
			return Validationf("unsupported image resolution %q", r.Resolution)
		}
	}
	if r.Kind == KindEdit && len(r.ResourceIDs) == 0 {
		return Validationf("edit requires at least one source image")
	}
	for _, id := range r.ResourceIDs {
		if !ValidID(id) {
			return Validationf("invalid resource id %q", id)
		}
	}
	return nil
}

// ValidID reports whether id has the UUID form used for generation and
// resource ids.
func ValidID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
