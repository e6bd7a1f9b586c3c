package trigger

import (
	"sync"
)

// Broadcaster is an in-process SignalSource. Publish delivers a geometry update
// synchronously to every current subscriber.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]func(Geometry)
	nextID int
	last   Geometry
	seen   bool
}

// NewBroadcaster creates a broadcaster with no subscribers.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]func(Geometry))}
}

// Subscribe implements SignalSource.
func (b *Broadcaster) Subscribe(fn func(Geometry)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish sends g to all subscribers.
func (b *Broadcaster) Publish(g Geometry) {
	b.mu.Lock()
	b.last = g
	b.seen = true
	fns := make([]func(Geometry), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(g)
	}
}

// Last returns the most recently published geometry.
func (b *Broadcaster) Last() (Geometry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last, b.seen
}

// Subscribers returns the number of live subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
