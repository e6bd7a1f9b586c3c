package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds controller configuration.
type Config struct {
	// BatchSize is the number of records requested per page.
	BatchSize int

	// TerminalPage is the page after which the feed is exhausted.
	// Zero disables the page threshold; exhaustion then relies on Batch.Final.
	TerminalPage int

	// Dispatch runs a fetch. Defaults to starting a goroutine.
	Dispatch func(fn func())
}

// DefaultConfig returns the default configuration: 10 records per page, 5 pages.
func DefaultConfig() Config {
	return Config{
		BatchSize:    10,
		TerminalPage: 5,
	}
}

// Controller tracks the loaded sequence of records and decides when the next
// batch may be fetched.
type Controller struct {
	fetcher BatchFetcher
	config  Config
	logger  zerolog.Logger

	mu          sync.Mutex
	state       LoadState
	initialized bool
	cursor      int
	pages       int
	records     []Record
	lastErr     error
	issued      int
	inflight    int // token of the dispatched fetch, 0 when none
	fetchStart  time.Time
	subs        map[int]chan struct{}
	nextSub     int
}

// NewController creates a controller in the Idle state with an empty loaded
// sequence and the cursor at page 1.
func NewController(fetcher BatchFetcher, cfg Config, logger zerolog.Logger) (*Controller, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("batch fetcher is required")
	}
	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("batch_size must be >= 1 (got %d)", cfg.BatchSize)
	}
	if cfg.TerminalPage < 0 {
		return nil, fmt.Errorf("terminal_page must be >= 0 (got %d)", cfg.TerminalPage)
	}
	if cfg.Dispatch == nil {
		cfg.Dispatch = func(fn func()) { go fn() }
	}

	return &Controller{
		fetcher: fetcher,
		config:  cfg,
		logger:  logger.With().Str("component", "pagination").Logger(),
		state:   StateIdle,
		cursor:  1,
		subs:    make(map[int]chan struct{}),
	}, nil
}

// Initialize issues the fetch for page 1 unconditionally.
// It may be called exactly once.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.initialized || c.state != StateIdle {
		c.mu.Unlock()
		return ErrAlreadyInitialized
	}
	c.initialized = true
	page, token := c.beginFetchLocked()
	c.mu.Unlock()

	c.logger.Debug().Int("batch_size", c.config.BatchSize).Msg("Initializing feed")
	c.dispatch(ctx, page, token)
	return nil
}

// RequestNext issues a fetch for the cursor page when the controller is Idle
// and not exhausted. Otherwise it does nothing and returns false.
func (c *Controller) RequestNext(ctx context.Context) bool {
	c.mu.Lock()
	var reason string
	switch {
	case !c.initialized:
		reason = "uninitialized"
	case c.state == StateFetching:
		reason = "fetching"
	case c.state == StateExhausted:
		reason = "exhausted"
	}
	if reason != "" {
		cursor := c.cursor
		c.mu.Unlock()

		requestsIgnoredTotal.WithLabelValues(reason).Inc()
		c.logger.Debug().
			Str("reason", reason).
			Int("cursor", cursor).
			Msg("Next batch request ignored")
		return false
	}
	page, token := c.beginFetchLocked()
	c.mu.Unlock()

	c.dispatch(ctx, page, token)
	return true
}

// beginFetchLocked moves Idle to Fetching and returns the page to fetch with
// the token its outcome must carry.
func (c *Controller) beginFetchLocked() (int, int) {
	c.state = StateFetching
	c.issued++
	c.inflight = c.issued
	c.fetchStart = time.Now()
	c.notifyLocked()
	return c.cursor, c.inflight
}

// dispatch runs the fetch for page and feeds its outcome back into the
// controller. The fetch is detached from ctx cancellation: once issued it is
// always awaited and applied.
func (c *Controller) dispatch(ctx context.Context, page, token int) {
	fetchCtx := context.WithoutCancel(ctx)
	size := c.config.BatchSize

	c.logger.Debug().Int("page", page).Int("batch_size", size).Msg("Fetching batch")

	c.config.Dispatch(func() {
		batch, err := c.fetcher.FetchBatch(fetchCtx, page, size)
		if err != nil {
			_ = c.fail(token, page, err)
			return
		}
		if batch.Page == 0 {
			batch.Page = page
		}
		if err := c.resolve(token, batch); err != nil {
			// A mismatched result must not leave the controller stuck in Fetching.
			_ = c.fail(token, page, err)
		}
	})
}

// OnBatchResolved applies a batch delivered from outside the controller. The
// controller owns the fetches it dispatches, so a delivery is rejected with
// ErrUnexpectedBatch while one of them is pending.
func (c *Controller) OnBatchResolved(batch Batch) error {
	return c.resolve(0, batch)
}

// resolve applies a batch for the fetch identified by token. It is the only
// place the loaded sequence changes.
func (c *Controller) resolve(token int, batch Batch) error {
	c.mu.Lock()
	if err := c.checkOutcomeLocked(token, batch.Page); err != nil {
		c.mu.Unlock()
		return err
	}
	c.inflight = 0

	for _, r := range batch.Records {
		r.BatchIndex = batch.Page
		c.records = append(c.records, r)
	}
	c.cursor++
	c.pages++
	c.lastErr = nil

	exhausted := batch.Final || (c.config.TerminalPage > 0 && batch.Page >= c.config.TerminalPage)
	if exhausted {
		c.state = StateExhausted
	} else {
		c.state = StateIdle
	}
	elapsed := time.Since(c.fetchStart)
	total := len(c.records)
	c.notifyLocked()
	c.mu.Unlock()

	fetchesTotal.WithLabelValues("success").Inc()
	fetchDuration.Observe(elapsed.Seconds())
	recordsAppliedTotal.Add(float64(len(batch.Records)))

	c.logger.Info().
		Int("page", batch.Page).
		Int("records", len(batch.Records)).
		Int("total", total).
		Dur("duration", elapsed).
		Msg("Batch applied")

	if exhausted {
		exhaustedTotal.Inc()
		c.logger.Info().
			Int("pages", batch.Page).
			Int("total", total).
			Bool("final", batch.Final).
			Msg("Feed exhausted")
	}
	return nil
}

// OnBatchFailed records a failure delivered from outside the controller. Like
// OnBatchResolved it is rejected while a dispatched fetch is pending.
func (c *Controller) OnBatchFailed(page int, err error) error {
	return c.fail(0, page, err)
}

// fail records a failed attempt for page and returns to Idle without
// advancing the cursor, so the next request fetches the same page again.
func (c *Controller) fail(token, page int, err error) error {
	c.mu.Lock()
	if cerr := c.checkOutcomeLocked(token, page); cerr != nil {
		c.mu.Unlock()
		return cerr
	}
	c.inflight = 0
	c.state = StateIdle
	c.lastErr = &FetchError{Page: page, Err: err}
	elapsed := time.Since(c.fetchStart)
	c.notifyLocked()
	c.mu.Unlock()

	fetchesTotal.WithLabelValues("failure").Inc()
	fetchDuration.Observe(elapsed.Seconds())

	c.logger.Warn().
		Err(err).
		Int("page", page).
		Dur("duration", elapsed).
		Msg("Batch fetch failed")
	return nil
}

// checkOutcomeLocked accepts an outcome only for the outstanding fetch: the
// controller is Fetching, page is the cursor and token is the dispatched one.
func (c *Controller) checkOutcomeLocked(token, page int) error {
	switch {
	case c.state != StateFetching || page != c.cursor:
		return fmt.Errorf("%w: page %d while %s at cursor %d", ErrUnexpectedBatch, page, c.state, c.cursor)
	case token != c.inflight:
		return fmt.Errorf("%w: page %d does not belong to the pending fetch", ErrUnexpectedBatch, page)
	}
	return nil
}

// Subscribe returns a channel signalled after every state change and a func
// that removes the subscription. Notifications are coalesced.
func (c *Controller) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

func (c *Controller) notifyLocked() {
	for _, ch := range c.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// State returns the current load state.
func (c *Controller) State() LoadState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Exhausted reports whether no further batches will be requested.
func (c *Controller) Exhausted() bool {
	return c.State() == StateExhausted
}

// Cursor returns the next page number to fetch.
func (c *Controller) Cursor() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// PagesLoaded returns the number of batches applied so far.
func (c *Controller) PagesLoaded() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pages
}

// Len returns the number of loaded records.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Records returns a copy of the loaded sequence.
func (c *Controller) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// LastError returns the most recent batch failure, or nil once a later batch
// has been applied.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// BatchSize returns the configured page size.
func (c *Controller) BatchSize() int {
	return c.config.BatchSize
}

// Snapshot returns a consistent read-only view of the controller.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	records := make([]Record, len(c.records))
	copy(records, c.records)

	s := Snapshot{
		State:         c.state,
		Cursor:        c.cursor,
		PagesLoaded:   c.pages,
		BatchSize:     c.config.BatchSize,
		Exhausted:     c.state == StateExhausted,
		HasMore:       c.state != StateExhausted,
		FetchesIssued: c.issued,
		Records:       records,
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}
