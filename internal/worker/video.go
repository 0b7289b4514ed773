package worker

import (
	"context"
	"errors"
	"time"

	"studio/internal/domain"
	"studio/internal/providers/video"
	"studio/internal/storage"
)

// runVideo starts one provider operation and polls it until done. Any
// failure along the way fails the generation.
func (w *Worker) runVideo(ctx context.Context, g *domain.Generation) ([]string, error) {
	req := video.GenerateRequest{
		Prompt:      g.Prompt,
		AspectRatio: g.AspectRatio,
		Resolution:  g.Resolution,
	}
	frame, err := w.startFrame(ctx, g)
	if err != nil {
		return nil, err
	}
	req.StartFrame = frame

	op, err := w.videos.Start(ctx, req)
	if err != nil {
		return nil, fail("video generation failed", err)
	}
	log := w.logger.With().Str("generation_id", g.ID).Str("operation", op.Name).Logger()

	ticker := time.NewTicker(w.cfg.VideoPollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(w.cfg.VideoMaxWait)
	defer deadline.Stop()

	polls := 0
	for !op.Done {
		select {
		case <-ctx.Done():
			return nil, fail("video generation interrupted", ctx.Err())
		case <-deadline.C:
			return nil, fail("video generation timed out", errors.New(w.cfg.VideoMaxWait.String()+" elapsed"))
		case <-ticker.C:
		}
		polls++
		if op, err = w.videos.Status(ctx, op.Name); err != nil {
			return nil, fail("video generation failed", err)
		}
		log.Debug().Int("polls", polls).Bool("done", op.Done).Msg("video operation polled")
	}

	if op.Error != "" {
		return nil, fail("video generation failed", errors.New(op.Error))
	}
	if op.VideoURI == "" {
		return nil, fail(msgNoVideoLink, nil)
	}

	data, _, err := w.videos.Download(ctx, op.VideoURI)
	if err != nil {
		return nil, fail("failed to download video", err)
	}
	key := storage.VideoKey(g.OwnerID, g.ID)
	if err := w.buckets.Assets.Put(ctx, key, data, "video/mp4"); err != nil {
		return nil, fail("failed to upload video", err)
	}
	return []string{w.buckets.Assets.PublicURL(key)}, nil
}

// startFrame loads the optional linked resource used as the first frame.
func (w *Worker) startFrame(ctx context.Context, g *domain.Generation) (*video.Frame, error) {
	resources, err := w.resources.ListByGeneration(ctx, g.ID)
	if err != nil {
		return nil, fail(msgSourcesUnreadable, err)
	}
	if len(resources) == 0 {
		return nil, nil
	}
	src, err := w.loadSource(ctx, resources[0])
	if err != nil {
		return nil, fail(msgSourcesUnreadable, err)
	}
	return &video.Frame{MIMEType: src.MIMEType, Data: src.Data}, nil
}
