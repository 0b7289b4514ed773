// Package poller watches a generation until it reaches a terminal status.
package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/infra"
)

const (
	DefaultInterval        = 2 * time.Second
	DefaultMaxReadFailures = 3
)

// Fetcher reads one generation by id.
type Fetcher interface {
	Generation(ctx context.Context, id string) (*domain.Generation, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, id string) (*domain.Generation, error)

func (f FetcherFunc) Generation(ctx context.Context, id string) (*domain.Generation, error) {
	return f(ctx, id)
}

// Callbacks receive the outcome of one Start. At most one of OnSuccess and
// OnError fires, and neither fires after Stop or a newer Start.
type Callbacks struct {
	OnSuccess func(g *domain.Generation)
	OnError   func(message string)
	// OnUpdate, when set, receives non-terminal observations.
	OnUpdate func(g *domain.Generation)
}

type Options struct {
	Interval time.Duration
	// MaxReadFailures is how many consecutive failed reads are retried
	// silently; the next failure is reported through OnError.
	MaxReadFailures int
	Logger          *infra.Logger
}

// Poller tracks a single generation at a time.
type Poller struct {
	fetcher     Fetcher
	interval    time.Duration
	maxFailures int
	logger      zerolog.Logger

	mu      sync.Mutex
	current *run
	// last outlives Stop so Done can still report when the run exits.
	last *run
}

const (
	runActive int32 = iota
	runDelivered
	runStopped
)

type run struct {
	cancel context.CancelFunc
	state  atomic.Int32
	done   chan struct{}
}

// settle moves an active run to its final state. Only the first caller wins.
func (r *run) settle(to int32) bool {
	return r.state.CompareAndSwap(runActive, to)
}

func New(fetcher Fetcher, opts Options) *Poller {
	p := &Poller{
		fetcher:     fetcher,
		interval:    opts.Interval,
		maxFailures: opts.MaxReadFailures,
		logger:      zerolog.Nop(),
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.maxFailures < 0 {
		p.maxFailures = 0
	} else if opts.MaxReadFailures == 0 {
		p.maxFailures = DefaultMaxReadFailures
	}
	if opts.Logger != nil {
		p.logger = infra.Component(*opts.Logger, "poller")
	}
	return p
}

// Start reads id immediately and then every interval until a terminal status
// is seen. A poll already in progress is stopped first.
func (p *Poller) Start(ctx context.Context, id string, cb Callbacks) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		p.stopLocked()
	}
	runCtx, cancel := context.WithCancel(ctx)
	r := &run{cancel: cancel, done: make(chan struct{})}
	p.current = r
	p.last = r
	go p.loop(runCtx, r, id, cb)
}

// Stop cancels the active poll, if any. It is safe to call repeatedly and may
// be called from a callback. A callback that was already running when Stop was
// called is not interrupted; receive from Done to wait for it.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Poller) stopLocked() {
	if p.current == nil {
		return
	}
	p.current.settle(runStopped)
	p.current.cancel()
	p.current = nil
}

// Done is closed when the most recently started poll exits, after any
// callback it delivered has returned. This holds after Stop too. It returns a
// closed channel when nothing was started.
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return p.last.done
}

func (p *Poller) loop(ctx context.Context, r *run, id string, cb Callbacks) {
	defer close(r.done)
	defer r.cancel()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	log := p.logger.With().Str("generation_id", id).Logger()
	failures := 0
	for {
		g, err := p.fetcher.Generation(ctx, id)
		if ctx.Err() != nil {
			return
		}
		if err == nil && g == nil {
			err = errEmptyRead
		}
		switch {
		case err != nil:
			failures++
			if permanent(err) || failures > p.maxFailures {
				if r.settle(runDelivered) && cb.OnError != nil {
					cb.OnError(err.Error())
				}
				return
			}
			log.Debug().Err(err).Int("failures", failures).Msg("read failed, retrying")
		case g.Status == domain.StatusSuccess:
			if r.settle(runDelivered) && cb.OnSuccess != nil {
				cb.OnSuccess(g)
			}
			return
		case g.Status == domain.StatusError:
			if r.settle(runDelivered) && cb.OnError != nil {
				cb.OnError(errorMessage(g))
			}
			return
		default:
			failures = 0
			if cb.OnUpdate != nil && r.state.Load() == runActive {
				cb.OnUpdate(g)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

var errEmptyRead = errors.New("generation read returned no row")

// permanent reports read failures that retrying cannot fix.
func permanent(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrAuth)
}

func errorMessage(g *domain.Generation) string {
	if msg := g.Failure(); msg != "" {
		return msg
	}
	return "generation failed"
}
