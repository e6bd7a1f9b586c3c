package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/infinite-feed/pkg/pagination"
	"github.com/Sternrassler/infinite-feed/pkg/trigger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func testFetcher() pagination.BatchFetcher {
	return pagination.BatchFetcherFunc(func(ctx context.Context, page, size int) (pagination.Batch, error) {
		records := make([]pagination.Record, size)
		for i := range records {
			records[i] = pagination.Record{ID: pagination.FirstID(page, size) + i, BatchIndex: page}
		}
		return pagination.Batch{Page: page, Records: records}, nil
	})
}

func newTestRegistry(t *testing.T, maxSessions int) *Registry {
	t.Helper()
	cfg := DefaultConfig()
	cfg.MaxSessions = maxSessions
	cfg.Pagination.Dispatch = func(fn func()) { fn() }

	r, err := NewRegistry(testFetcher(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return r
}

func TestNewRegistry_Validation(t *testing.T) {
	if _, err := NewRegistry(nil, DefaultConfig(), zerolog.Nop()); err == nil {
		t.Error("NewRegistry(nil fetcher) should fail")
	}

	cfg := DefaultConfig()
	cfg.MaxSessions = -1
	if _, err := NewRegistry(testFetcher(), cfg, zerolog.Nop()); err == nil {
		t.Error("NewRegistry(max_sessions -1) should fail")
	}

	cfg = DefaultConfig()
	cfg.Pagination.BatchSize = 0
	r, err := NewRegistry(testFetcher(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if _, err := r.Create(context.Background()); err == nil {
		t.Error("Create() with batch size 0 should fail")
	}
}

func TestRegistry_CreateInitializes(t *testing.T) {
	r := newTestRegistry(t, 0)

	s, err := r.Create(context.Background())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := uuid.Parse(s.ID); err != nil {
		t.Errorf("ID %q is not a UUID: %v", s.ID, err)
	}
	if s.Controller.Len() != 10 || s.Controller.Cursor() != 2 {
		t.Errorf("after Create len=%d cursor=%d, want 10 and 2", s.Controller.Len(), s.Controller.Cursor())
	}
	if !s.Trigger.Active() || s.Signals.Subscribers() != 1 {
		t.Error("trigger not subscribed to the session broadcaster")
	}

	got, err := r.Get(s.ID)
	if err != nil || got != s {
		t.Errorf("Get() = %v, %v, want the created session", got, err)
	}
}

func TestSession_SignalAndLoadMore(t *testing.T) {
	r := newTestRegistry(t, 0)
	s, err := r.Create(context.Background())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if s.Signal(trigger.Geometry{ViewportTop: 0, ViewportHeight: 600, ContentHeight: 2500}) {
		t.Error("Signal() with 1900 remaining should not request")
	}
	if !s.Signal(trigger.Geometry{ViewportTop: 1200, ViewportHeight: 600, ContentHeight: 2500}) {
		t.Error("Signal() with 700 remaining should request")
	}
	if s.Controller.Len() != 20 {
		t.Errorf("Len() = %d, want 20", s.Controller.Len())
	}

	for s.LoadMore(context.Background()) {
	}
	if !s.Controller.Exhausted() || s.Controller.Len() != 50 {
		t.Errorf("exhausted=%v len=%d, want true and 50", s.Controller.Exhausted(), s.Controller.Len())
	}
	if s.LoadMore(context.Background()) {
		t.Error("LoadMore() after exhaustion should be ignored")
	}
}

func TestRegistry_Delete(t *testing.T) {
	r := newTestRegistry(t, 0)
	s, err := r.Create(context.Background())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := r.Delete(s.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if s.Trigger.Active() || s.Signals.Subscribers() != 0 {
		t.Error("Delete() did not release the trigger subscription")
	}
	if _, err := r.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Delete error = %v, want ErrNotFound", err)
	}
	if err := r.Delete(s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_Limit(t *testing.T) {
	r := newTestRegistry(t, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := r.Create(ctx); err != nil {
			t.Fatalf("Create() #%d error = %v", i, err)
		}
	}
	if _, err := r.Create(ctx); !errors.Is(err, ErrLimitReached) {
		t.Errorf("Create() over limit error = %v, want ErrLimitReached", err)
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}

func TestRegistry_LimitHoldsDuringInitialize(t *testing.T) {
	release := make(chan struct{})
	blocking := pagination.BatchFetcherFunc(func(ctx context.Context, page, size int) (pagination.Batch, error) {
		<-release
		return testFetcher().FetchBatch(ctx, page, size)
	})

	cfg := DefaultConfig()
	cfg.MaxSessions = 2
	cfg.Pagination.Dispatch = func(fn func()) { fn() }
	r, err := NewRegistry(blocking, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	// Creates run page 1 inline and block inside Initialize until released.
	results := make(chan error, 5)
	for i := 0; i < 5; i++ {
		go func() {
			_, err := r.Create(context.Background())
			results <- err
		}()
	}

	for i := 0; i < 3; i++ {
		select {
		case err := <-results:
			if !errors.Is(err, ErrLimitReached) {
				close(release)
				t.Fatalf("early Create() error = %v, want ErrLimitReached", err)
			}
		case <-time.After(5 * time.Second):
			close(release)
			t.Fatal("creates over the limit were not rejected while others initialize")
		}
	}

	close(release)
	for i := 0; i < 2; i++ {
		if err := <-results; err != nil {
			t.Errorf("Create() error = %v", err)
		}
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}

	// Failed and finished creates give their slots back.
	if _, err := r.Create(context.Background()); !errors.Is(err, ErrLimitReached) {
		t.Errorf("Create() at limit error = %v, want ErrLimitReached", err)
	}
}

func TestSession_ConcurrentSignalsReportOneRequest(t *testing.T) {
	var (
		mu   sync.Mutex
		held []func()
	)
	cfg := DefaultConfig()
	cfg.Pagination.Dispatch = func(fn func()) {
		mu.Lock()
		held = append(held, fn)
		mu.Unlock()
	}
	r, err := NewRegistry(testFetcher(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	s, err := r.Create(context.Background())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	mu.Lock()
	page1 := held[0]
	held = nil
	mu.Unlock()
	page1()

	var (
		wg        sync.WaitGroup
		requested int
		countMu   sync.Mutex
	)
	near := trigger.Geometry{ViewportTop: 0, ViewportHeight: 400, ContentHeight: 500}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Signal(near) {
				countMu.Lock()
				requested++
				countMu.Unlock()
			}
		}()
	}
	wg.Wait()

	if requested != 1 {
		t.Errorf("signals reporting a request = %d, want 1", requested)
	}
	mu.Lock()
	pending := len(held)
	mu.Unlock()
	if pending != 1 || s.Trigger.Fired() != 1 {
		t.Errorf("pending=%d fired=%d, want 1 and 1", pending, s.Trigger.Fired())
	}
}

func TestRegistry_CloseAll(t *testing.T) {
	r := newTestRegistry(t, 0)
	ctx := context.Background()

	var sessions []*Session
	for i := 0; i < 3; i++ {
		s, err := r.Create(ctx)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		sessions = append(sessions, s)
	}
	if len(r.IDs()) != 3 {
		t.Fatalf("IDs() = %d entries, want 3", len(r.IDs()))
	}

	r.CloseAll()

	if r.Len() != 0 {
		t.Errorf("Len() after CloseAll = %d, want 0", r.Len())
	}
	for _, s := range sessions {
		if s.Trigger.Active() {
			t.Errorf("session %s trigger still active", s.ID)
		}
	}
}
