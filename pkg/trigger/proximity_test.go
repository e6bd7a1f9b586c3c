package trigger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Sternrassler/infinite-feed/pkg/pagination"
	"github.com/rs/zerolog"
)

// fakeFeed records RequestNext calls and moves to fetching on each accepted call.
type fakeFeed struct {
	mu        sync.Mutex
	state     pagination.LoadState
	requests  int
	stateHits int
}

func (f *fakeFeed) State() pagination.LoadState {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateHits++
	return f.state
}

func (f *fakeFeed) Exhausted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == pagination.StateExhausted
}

func (f *fakeFeed) RequestNext(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != pagination.StateIdle {
		return false
	}
	f.state = pagination.StateFetching
	f.requests++
	return true
}

func (f *fakeFeed) set(s pagination.LoadState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = s
}

func (f *fakeFeed) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

// geometryFor builds a geometry with the given remaining distance.
func geometryFor(remaining float64) Geometry {
	return Geometry{ViewportTop: 1000, ViewportHeight: 600, ContentHeight: 1600 + remaining}
}

func TestGeometry_Remaining(t *testing.T) {
	tests := []struct {
		name     string
		geometry Geometry
		expected float64
	}{
		{"top of long content", Geometry{ViewportTop: 0, ViewportHeight: 600, ContentHeight: 3000}, 2400},
		{"at bottom", Geometry{ViewportTop: 2400, ViewportHeight: 600, ContentHeight: 3000}, 0},
		{"overscrolled", Geometry{ViewportTop: 2500, ViewportHeight: 600, ContentHeight: 3000}, -100},
		{"content shorter than viewport", Geometry{ViewportTop: 0, ViewportHeight: 600, ContentHeight: 200}, -400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.geometry.Remaining(); got != tt.expected {
				t.Errorf("Remaining() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestProximity_ThresholdScenario(t *testing.T) {
	feed := &fakeFeed{}
	p := NewProximity(feed, Config{ThresholdPixels: 800}, zerolog.Nop())

	if p.OnSignal(geometryFor(900)) {
		t.Error("OnSignal(remaining=900) = true, want false")
	}
	if feed.requestCount() != 0 {
		t.Errorf("requests after remaining=900 = %d, want 0", feed.requestCount())
	}

	if !p.OnSignal(geometryFor(700)) {
		t.Error("OnSignal(remaining=700) = false, want true")
	}
	if feed.requestCount() != 1 {
		t.Errorf("requests after remaining=700 = %d, want 1", feed.requestCount())
	}
	if p.Fired() != 1 {
		t.Errorf("Fired() = %d, want 1", p.Fired())
	}
}

func TestProximity_Preconditions(t *testing.T) {
	tests := []struct {
		name      string
		state     pagination.LoadState
		remaining float64
		expected  bool
	}{
		{"idle at threshold", pagination.StateIdle, 800, true},
		{"idle below threshold", pagination.StateIdle, 10, true},
		{"idle above threshold", pagination.StateIdle, 801, false},
		{"fetching below threshold", pagination.StateFetching, 10, false},
		{"exhausted below threshold", pagination.StateExhausted, 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := &fakeFeed{state: tt.state}
			p := NewProximity(feed, DefaultConfig(), zerolog.Nop())

			if got := p.OnSignal(geometryFor(tt.remaining)); got != tt.expected {
				t.Errorf("OnSignal() = %v, want %v", got, tt.expected)
			}
			want := 0
			if tt.expected {
				want = 1
			}
			if feed.requestCount() != want {
				t.Errorf("requests = %d, want %d", feed.requestCount(), want)
			}
		})
	}
}

func TestProximity_BoundsCallsWhileFetching(t *testing.T) {
	feed := &fakeFeed{}
	p := NewProximity(feed, DefaultConfig(), zerolog.Nop())

	for i := 0; i < 50; i++ {
		p.OnSignal(geometryFor(100))
	}

	if feed.requestCount() != 1 {
		t.Errorf("requests = %d, want 1", feed.requestCount())
	}

	feed.set(pagination.StateIdle)
	p.OnSignal(geometryFor(100))
	if feed.requestCount() != 2 {
		t.Errorf("requests after idle = %d, want 2", feed.requestCount())
	}
}

func TestProximity_ActivateAndClose(t *testing.T) {
	feed := &fakeFeed{}
	src := NewBroadcaster()
	p := NewProximity(feed, DefaultConfig(), zerolog.Nop())

	if err := p.Activate(context.Background(), src); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if err := p.Activate(context.Background(), src); !errors.Is(err, ErrActive) {
		t.Errorf("second Activate() error = %v, want ErrActive", err)
	}
	if src.Subscribers() != 1 {
		t.Errorf("Subscribers() = %d, want 1", src.Subscribers())
	}
	if !p.Active() {
		t.Error("Active() = false after Activate")
	}

	src.Publish(geometryFor(900))
	src.Publish(geometryFor(700))
	if feed.requestCount() != 1 {
		t.Errorf("requests = %d, want 1", feed.requestCount())
	}

	p.Close()
	p.Close()
	if src.Subscribers() != 0 {
		t.Errorf("Subscribers() after Close = %d, want 0", src.Subscribers())
	}
	if p.Active() {
		t.Error("Active() = true after Close")
	}

	feed.set(pagination.StateIdle)
	src.Publish(geometryFor(0))
	if feed.requestCount() != 1 {
		t.Errorf("requests after Close = %d, want 1", feed.requestCount())
	}

	if err := p.Activate(context.Background(), src); !errors.Is(err, ErrClosed) {
		t.Errorf("Activate() after Close error = %v, want ErrClosed", err)
	}
}

func TestProximity_DrivesController(t *testing.T) {
	fetcher := pagination.BatchFetcherFunc(func(ctx context.Context, page, size int) (pagination.Batch, error) {
		records := make([]pagination.Record, size)
		for i := range records {
			records[i] = pagination.Record{ID: pagination.FirstID(page, size) + i}
		}
		return pagination.Batch{Page: page, Records: records}, nil
	})
	ctrl, err := pagination.NewController(fetcher, pagination.Config{
		BatchSize:    10,
		TerminalPage: 5,
		Dispatch:     func(fn func()) { fn() },
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	if err := ctrl.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	src := NewBroadcaster()
	p := NewProximity(ctrl, DefaultConfig(), zerolog.Nop())
	if err := p.Activate(context.Background(), src); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	defer p.Close()

	src.Publish(geometryFor(900))
	if ctrl.PagesLoaded() != 1 {
		t.Errorf("PagesLoaded() after remaining=900 = %d, want 1", ctrl.PagesLoaded())
	}

	for i := 0; i < 10; i++ {
		src.Publish(geometryFor(700))
	}
	if !ctrl.Exhausted() {
		t.Errorf("State() = %v, want exhausted", ctrl.State())
	}
	if ctrl.Len() != 50 {
		t.Errorf("Len() = %d, want 50", ctrl.Len())
	}
	if p.Fired() != 4 {
		t.Errorf("Fired() = %d, want 4", p.Fired())
	}
}

func TestLoadMore(t *testing.T) {
	tests := []struct {
		name     string
		state    pagination.LoadState
		expected bool
	}{
		{"idle", pagination.StateIdle, true},
		{"fetching", pagination.StateFetching, false},
		{"exhausted", pagination.StateExhausted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := &fakeFeed{state: tt.state}
			if got := LoadMore(context.Background(), feed); got != tt.expected {
				t.Errorf("LoadMore() = %v, want %v", got, tt.expected)
			}
		})
	}
}
