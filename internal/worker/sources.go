package worker

import (
	"bytes"
	"context"
	"fmt"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"studio/internal/domain"
	"studio/internal/providers/image"
)

// loadSources downloads the resources linked to g. Unreadable resources are
// skipped; the generation fails only when none can be used.
func (w *Worker) loadSources(ctx context.Context, g *domain.Generation) ([]image.SourceImage, error) {
	resources, err := w.resources.ListByGeneration(ctx, g.ID)
	if err != nil {
		return nil, fail(msgSourcesUnreadable, err)
	}
	if len(resources) == 0 {
		return nil, fail(msgNoSources, nil)
	}

	out := make([]image.SourceImage, 0, len(resources))
	for _, res := range resources {
		src, err := w.loadSource(ctx, res)
		if err != nil {
			w.logger.Warn().Err(err).
				Str("generation_id", g.ID).
				Str("resource_id", res.ID).
				Msg("skip source image")
			continue
		}
		out = append(out, src)
	}
	if len(out) == 0 {
		return nil, fail(msgSourcesUnreadable, nil)
	}
	return out, nil
}

func (w *Worker) loadSource(ctx context.Context, res domain.Resource) (image.SourceImage, error) {
	data, err := w.buckets.Resources.Get(ctx, res.StoragePath)
	if err != nil {
		return image.SourceImage{}, fmt.Errorf("download %s: %w", res.StoragePath, err)
	}
	return prepareSource(data, res.MIMEType, w.cfg.SourceMaxDimension)
}

// prepareSource keeps PNG and JPEG inputs that already fit within maxDim and
// otherwise decodes, fits and re-encodes them as PNG.
func prepareSource(data []byte, mimeType string, maxDim int) (image.SourceImage, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return image.SourceImage{}, fmt.Errorf("decode source: %w", err)
	}
	bounds := img.Bounds()
	fits := bounds.Dx() <= maxDim && bounds.Dy() <= maxDim
	if fits && (mimeType == "image/png" || mimeType == "image/jpeg") {
		return image.SourceImage{MIMEType: mimeType, Data: data}, nil
	}
	if !fits {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return image.SourceImage{}, fmt.Errorf("encode source: %w", err)
	}
	return image.SourceImage{MIMEType: "image/png", Data: buf.Bytes()}, nil
}
