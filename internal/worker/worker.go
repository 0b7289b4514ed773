// Package worker claims pending generations and runs them to a terminal
// status.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/notify"
	"studio/internal/observability"
	"studio/internal/providers/image"
	"studio/internal/providers/video"
	"studio/internal/storage"
)

const (
	msgNoImagesGenerated = "failed to generate any images"
	msgNoImagesEdited    = "failed to edit any images"
	msgNoSources         = "no source images found"
	msgSourcesUnreadable = "failed to load source images"
	msgNoVideoLink       = "video generation failed: no download link returned"
)

type Config struct {
	Concurrency        int
	PollInterval       time.Duration
	VideoPollInterval  time.Duration
	VideoMaxWait       time.Duration
	SourceMaxDimension int
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.VideoPollInterval <= 0 {
		c.VideoPollInterval = 10 * time.Second
	}
	if c.VideoMaxWait <= 0 {
		c.VideoMaxWait = 20 * time.Minute
	}
	if c.SourceMaxDimension <= 0 {
		c.SourceMaxDimension = 2048
	}
	return c
}

type Deps struct {
	Generations domain.GenerationRepository
	Resources   domain.ResourceRepository
	Buckets     storage.Buckets
	Images      image.Generator
	Videos      video.Generator
	Events      notify.Publisher
	Metrics     *observability.Metrics
	Logger      infra.Logger
	Config      Config
}

// Worker runs claimed generations. The claim is the only write that moves a
// row to processing; Process issues exactly one terminal write afterwards.
type Worker struct {
	generations domain.GenerationRepository
	resources   domain.ResourceRepository
	buckets     storage.Buckets
	images      image.Generator
	videos      video.Generator
	events      notify.Publisher
	metrics     *observability.Metrics
	logger      infra.Logger
	cfg         Config
}

func New(deps Deps) *Worker {
	events := deps.Events
	if events == nil {
		events = notify.Nop{}
	}
	return &Worker{
		generations: deps.Generations,
		resources:   deps.Resources,
		buckets:     deps.Buckets,
		images:      deps.Images,
		videos:      deps.Videos,
		events:      events,
		metrics:     deps.Metrics,
		logger:      infra.Component(deps.Logger, "worker"),
		cfg:         deps.Config.withDefaults(),
	}
}

// Run claims generations whenever a slot is free and a wake-up, tick or
// finished job suggests there may be work. It blocks until ctx is done and
// then waits for in-flight generations, which keep running to completion.
func (w *Worker) Run(ctx context.Context, wake <-chan struct{}) error {
	w.logger.Info().Int("concurrency", w.cfg.Concurrency).Dur("poll_interval", w.cfg.PollInterval).Msg("worker started")

	jobCtx := context.WithoutCancel(ctx)
	sem := make(chan struct{}, w.cfg.Concurrency)
	var wg sync.WaitGroup

	pollNow := make(chan struct{}, 1)
	triggerPoll := func() {
		select {
		case pollNow <- struct{}{}:
		default:
		}
	}

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	triggerPoll()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("worker stopping, waiting for running generations")
			wg.Wait()
			return ctx.Err()

		case <-ticker.C:
			triggerPoll()

		case <-wake:
			triggerPoll()

		case <-pollNow:
			for len(sem) < cap(sem) {
				g, err := w.generations.ClaimNext(ctx)
				if err != nil {
					if !errors.Is(err, domain.ErrNotFound) && ctx.Err() == nil {
						w.logger.Error().Err(err).Msg("claim generation failed")
					}
					break
				}
				sem <- struct{}{}
				wg.Add(1)
				go func(g *domain.Generation) {
					defer wg.Done()
					defer func() {
						<-sem
						triggerPoll()
					}()
					w.Process(jobCtx, g)
				}(g)
			}
		}
	}
}

// Process runs a generation that has already been claimed and records its
// terminal status. Every failure, including a panic, ends up as an error row.
func (w *Worker) Process(ctx context.Context, g *domain.Generation) {
	start := time.Now()
	log := w.logger.With().Str("generation_id", g.ID).Str("kind", string(g.Kind)).Logger()
	log.Info().Int("variations", g.VariationCount).Str("tier", string(g.ModelTier)).Msg("generation claimed")
	w.publish(ctx, notify.EventFor(g))

	urls, err := w.safeExecute(ctx, g)
	if err != nil {
		message := failureMessage(err)
		log.Error().Err(err).Msg("generation failed")
		w.finish(ctx, g, domain.StatusError, start, w.generations.MarkFailed(ctx, g.ID, message))
		return
	}
	log.Info().Int("results", len(urls)).Dur("elapsed", time.Since(start)).Msg("generation succeeded")
	w.finish(ctx, g, domain.StatusSuccess, start, w.generations.MarkSucceeded(ctx, g.ID, urls))
}

func (w *Worker) safeExecute(ctx context.Context, g *domain.Generation) (urls []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			urls, err = nil, fmt.Errorf("internal error: %v", r)
		}
	}()
	switch g.Kind {
	case domain.KindGenerate, domain.KindEdit:
		return w.runImages(ctx, g)
	case domain.KindVideo:
		return w.runVideo(ctx, g)
	}
	return nil, fmt.Errorf("unsupported generation type %q", g.Kind)
}

func (w *Worker) finish(ctx context.Context, g *domain.Generation, status domain.GenerationStatus, start time.Time, writeErr error) {
	log := w.logger.With().Str("generation_id", g.ID).Logger()
	if writeErr != nil {
		// Rows already failed by the reaper reject the late write; anything
		// else stays processing until the reaper picks it up.
		log.Error().Err(writeErr).Str("status", string(status)).Msg("record terminal status failed")
		return
	}
	w.metrics.Completed(ctx, string(g.Kind), string(status), time.Since(start))

	row, err := w.generations.GetByID(ctx, g.ID)
	if err != nil {
		log.Warn().Err(err).Msg("reload generation for event failed")
		return
	}
	w.publish(ctx, notify.EventFor(row))
}

func (w *Worker) publish(ctx context.Context, ev notify.Event) {
	if err := w.events.Publish(ctx, ev); err != nil {
		w.logger.Warn().Err(err).Str("generation_id", ev.GenerationID).Msg("publish status event failed")
	}
}

// jobError is a generation failure with the message stored on the row.
type jobError struct {
	msg string
	err error
}

func (e *jobError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *jobError) Unwrap() []error {
	if e.err == nil {
		return []error{domain.ErrUpstream}
	}
	return []error{domain.ErrUpstream, e.err}
}

func fail(msg string, err error) error {
	return &jobError{msg: msg, err: err}
}

func failureMessage(err error) string {
	var je *jobError
	if errors.As(err, &je) {
		return je.Error()
	}
	return err.Error()
}
