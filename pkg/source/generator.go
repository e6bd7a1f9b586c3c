// Package source provides fetch collaborators for the pagination controller:
// a synthetic user generator, an HTTP batch client and a cache warmer.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/Sternrassler/infinite-feed/pkg/pagination"
	"github.com/rs/zerolog"
)

// Locations assigned to generated users.
var Locations = []string{"New York", "London", "Tokyo", "Paris", "Sydney", "Berlin", "Toronto", "Mumbai"}

// User is the record payload produced by the Generator.
type User struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Avatar     string `json:"avatar"`
	JoinDate   string `json:"join_date"`
	Location   string `json:"location"`
	PageNumber int    `json:"page_number"`
	BatchLabel string `json:"batch_label"`
}

// DecodeUser extracts the User payload of a generated record.
func DecodeUser(r pagination.Record) (User, error) {
	var u User
	if err := json.Unmarshal(r.Payload, &u); err != nil {
		return User{}, fmt.Errorf("decode user %d: %w", r.ID, err)
	}
	return u, nil
}

// GeneratorConfig holds generator configuration.
type GeneratorConfig struct {
	// Delay simulates remote latency for every batch.
	Delay time.Duration

	// Seed makes generated attributes reproducible. Zero seeds from the clock.
	Seed int64

	// MaxPages marks the batch for this page as final. Zero means never.
	MaxPages int
}

// DefaultGeneratorConfig returns a generator that answers after 4 seconds.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Delay: 4 * time.Second,
	}
}

// Generator produces deterministic-ID user batches without any backend.
type Generator struct {
	config GeneratorConfig
	logger zerolog.Logger
	now    func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a generator.
func NewGenerator(cfg GeneratorConfig, logger zerolog.Logger) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		config: cfg,
		logger: logger.With().Str("component", "generator").Logger(),
		now:    time.Now,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// FetchBatch implements pagination.BatchFetcher. Page P of size S holds users
// (P-1)*S+1 .. P*S.
func (g *Generator) FetchBatch(ctx context.Context, page, size int) (pagination.Batch, error) {
	if page < 1 {
		return pagination.Batch{}, fmt.Errorf("page must be >= 1 (got %d)", page)
	}
	if size < 1 {
		return pagination.Batch{}, fmt.Errorf("size must be >= 1 (got %d)", size)
	}

	if g.config.Delay > 0 {
		timer := time.NewTimer(g.config.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return pagination.Batch{}, fmt.Errorf("generate page %d: %w", page, ctx.Err())
		case <-timer.C:
		}
	}

	records := make([]pagination.Record, 0, size)
	for _, u := range g.Users(page, size) {
		payload, err := json.Marshal(u)
		if err != nil {
			return pagination.Batch{}, fmt.Errorf("marshal user %d: %w", u.ID, err)
		}
		records = append(records, pagination.Record{ID: u.ID, BatchIndex: page, Payload: payload})
	}

	g.logger.Debug().Int("page", page).Int("batch_size", size).Msg("Generated batch")

	return pagination.Batch{
		Page:    page,
		Records: records,
		Final:   g.config.MaxPages > 0 && page >= g.config.MaxPages,
	}, nil
}

// Users generates the users for a page without delay.
func (g *Generator) Users(page, size int) []User {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	users := make([]User, size)
	for i := range users {
		id := pagination.FirstID(page, size) + i
		joined := now.Add(-time.Duration(g.rng.Int63n(int64(365 * 24 * time.Hour))))
		users[i] = User{
			ID:         id,
			Name:       fmt.Sprintf("User %d", id),
			Email:      fmt.Sprintf("user%d@example.com", id),
			Avatar:     fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/svg?seed=%d", id),
			JoinDate:   joined.Format("2006-01-02"),
			Location:   Locations[g.rng.Intn(len(Locations))],
			PageNumber: page,
			BatchLabel: fmt.Sprintf("Batch %d", page),
		}
	}
	return users
}
