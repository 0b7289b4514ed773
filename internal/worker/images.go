package worker

import (
	"bytes"
	"context"
	"fmt"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"studio/internal/domain"
	"studio/internal/providers/image"
	"studio/internal/storage"
)

// runImages fans out one provider call per variation. A failed variation
// leaves its slot empty; results are compacted in slot order before upload.
func (w *Worker) runImages(ctx context.Context, g *domain.Generation) ([]string, error) {
	var sources []image.SourceImage
	if g.Kind == domain.KindEdit {
		loaded, err := w.loadSources(ctx, g)
		if err != nil {
			return nil, err
		}
		sources = loaded
	}

	req := image.GenerateRequest{
		Prompt:      g.Prompt,
		Tier:        g.ModelTier,
		Resolution:  g.Resolution,
		AspectRatio: g.AspectRatio,
		Sources:     sources,
	}

	slots := make([]*image.Asset, max(g.VariationCount, 1))
	var eg errgroup.Group
	for i := range slots {
		eg.Go(func() error {
			asset, err := w.images.Generate(ctx, req)
			if err != nil {
				w.variationFailed(ctx, g, i, "generate", err)
				return nil
			}
			slots[i] = asset
			return nil
		})
	}
	_ = eg.Wait()

	var urls []string
	for i, asset := range slots {
		if asset == nil {
			continue
		}
		key := storage.ImageKey(g.OwnerID, g.ID, len(urls))
		data, err := asPNG(asset)
		if err == nil {
			err = w.buckets.Assets.Put(ctx, key, data, "image/png")
		}
		if err != nil {
			w.variationFailed(ctx, g, i, "upload", err)
			continue
		}
		urls = append(urls, w.buckets.Assets.PublicURL(key))
	}

	if len(urls) == 0 {
		if g.Kind == domain.KindEdit {
			return nil, fail(msgNoImagesEdited, nil)
		}
		return nil, fail(msgNoImagesGenerated, nil)
	}
	return urls, nil
}

func (w *Worker) variationFailed(ctx context.Context, g *domain.Generation, slot int, stage string, err error) {
	w.metrics.VariationFailed(ctx, string(g.Kind))
	w.logger.Warn().Err(err).
		Str("generation_id", g.ID).
		Int("slot", slot).
		Str("stage", stage).
		Msg("variation failed")
}

// asPNG returns the asset bytes as PNG, re-encoding other formats so every
// stored object matches its .png key.
func asPNG(asset *image.Asset) ([]byte, error) {
	if asset.MIMEType == "image/png" || asset.MIMEType == "" {
		return asset.Data, nil
	}
	img, err := imaging.Decode(bytes.NewReader(asset.Data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", asset.MIMEType, err)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
