// Package trigger turns viewport geometry and manual "load more" actions into
// next-batch requests on a feed.
package trigger

import (
	"context"
	"errors"
	"sync"

	"github.com/Sternrassler/infinite-feed/pkg/pagination"
	"github.com/rs/zerolog"
)

// DefaultThresholdPixels is the distance from the bottom of the content at which
// the next batch is requested.
const DefaultThresholdPixels = 800

var (
	// ErrActive is returned when Activate runs on an already active trigger.
	ErrActive = errors.New("trigger already active")

	// ErrClosed is returned when Activate runs after Close.
	ErrClosed = errors.New("trigger closed")
)

// Feed is the part of a pagination controller a trigger needs.
type Feed interface {
	State() pagination.LoadState
	Exhausted() bool
	RequestNext(ctx context.Context) bool
}

// Geometry describes the viewport relative to the content, in layout units.
type Geometry struct {
	ViewportTop    float64 `json:"viewport_top"`
	ViewportHeight float64 `json:"viewport_height"`
	ContentHeight  float64 `json:"content_height"`
}

// Remaining returns the distance between the bottom of the viewport and the
// bottom of the content. It is negative when scrolled past the end.
func (g Geometry) Remaining() float64 {
	return g.ContentHeight - (g.ViewportTop + g.ViewportHeight)
}

// SignalSource emits geometry updates on its own cadence.
type SignalSource interface {
	// Subscribe registers fn and returns a func that removes it.
	Subscribe(fn func(Geometry)) (cancel func())
}

// Config holds proximity trigger configuration.
type Config struct {
	// ThresholdPixels is the remaining distance at or below which a request fires.
	ThresholdPixels float64
}

// DefaultConfig returns the default trigger configuration.
func DefaultConfig() Config {
	return Config{ThresholdPixels: DefaultThresholdPixels}
}

// Proximity requests the next batch whenever the viewport comes within the
// configured distance of the end of the content.
type Proximity struct {
	feed   Feed
	config Config
	logger zerolog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel func()
	active bool
	closed bool
	fired  int
}

// NewProximity creates an inactive proximity trigger for feed.
func NewProximity(feed Feed, cfg Config, logger zerolog.Logger) *Proximity {
	if cfg.ThresholdPixels < 0 {
		cfg.ThresholdPixels = 0
	}
	return &Proximity{
		feed:   feed,
		config: cfg,
		logger: logger.With().Str("component", "proximity-trigger").Logger(),
		ctx:    context.Background(),
	}
}

// Activate subscribes to src. Requests issued by the trigger carry ctx.
// The subscription lasts until Close.
func (p *Proximity) Activate(ctx context.Context, src SignalSource) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if p.active {
		return ErrActive
	}
	p.ctx = ctx
	p.active = true
	p.cancel = src.Subscribe(func(g Geometry) { p.OnSignal(g) })

	p.logger.Debug().Float64("threshold", p.config.ThresholdPixels).Msg("Proximity trigger activated")
	return nil
}

// OnSignal evaluates one geometry update and reports whether it issued a request.
func (p *Proximity) OnSignal(g Geometry) bool {
	remaining := g.Remaining()
	if remaining > p.config.ThresholdPixels {
		return false
	}

	// Check the flags first so scroll ticks during a fetch cost nothing.
	if !p.feed.State().CanRequest() || p.feed.Exhausted() {
		return false
	}

	p.mu.Lock()
	ctx := p.ctx
	p.mu.Unlock()

	if !p.feed.RequestNext(ctx) {
		return false
	}

	p.mu.Lock()
	p.fired++
	p.mu.Unlock()

	p.logger.Debug().Float64("remaining", remaining).Msg("Proximity threshold reached, next batch requested")
	return true
}

// Fired returns the number of requests this trigger has issued.
func (p *Proximity) Fired() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fired
}

// Active reports whether the trigger currently holds a subscription.
func (p *Proximity) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Close releases the signal subscription. It is safe to call more than once.
func (p *Proximity) Close() {
	p.mu.Lock()
	cancel := p.cancel
	wasActive := p.active
	p.cancel = nil
	p.active = false
	p.closed = true
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if wasActive {
		p.logger.Debug().Msg("Proximity trigger closed")
	}
}

// LoadMore is the manual "load more" action. It applies the same precondition
// as the proximity trigger before requesting the next batch.
func LoadMore(ctx context.Context, feed Feed) bool {
	if !feed.State().CanRequest() || feed.Exhausted() {
		return false
	}
	return feed.RequestNext(ctx)
}
