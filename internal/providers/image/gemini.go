package image

import (
	"context"

	"studio/internal/domain"
	"studio/internal/providers/genai"
)

type GeminiGenerator struct {
	client *genai.Client
	models Models
}

func NewGeminiGenerator(client *genai.Client, models Models) *GeminiGenerator {
	return &GeminiGenerator{client: client, models: models}
}

// Generate issues a single generateContent call. Pro requests carry the
// resolution as image size and enable search grounding.
func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (*Asset, error) {
	call := genai.ImageRequest{
		Model:       g.models.ForTier(req.Tier),
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
	}
	if req.Tier == domain.TierPro {
		call.ImageSize = req.Resolution
		call.GoogleSearch = true
	}
	for _, src := range req.Sources {
		call.Sources = append(call.Sources, genai.InlineImage{MIMEType: src.MIMEType, Data: src.Data})
	}

	asset, err := g.client.GenerateImage(ctx, call)
	if err != nil {
		return nil, err
	}
	return &Asset{
		MIMEType: asset.MIMEType,
		Data:     asset.Data,
		Width:    asset.Width,
		Height:   asset.Height,
	}, nil
}

var _ Generator = (*GeminiGenerator)(nil)
