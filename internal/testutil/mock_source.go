// Package testutil provides testing utilities for the feed packages.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockRecord is the record shape served by MockSource.
type MockRecord struct {
	ID         int             `json:"id"`
	BatchIndex int             `json:"batch_index"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// MockBatch is the response body served by MockSource.
type MockBatch struct {
	Page    int          `json:"page"`
	Records []MockRecord `json:"records"`
	Final   bool         `json:"final"`
}

// MockSource is a configurable mock batch API for testing.
type MockSource struct {
	server *httptest.Server
	mu     sync.RWMutex

	failures map[int][]int // page -> queued status codes
	delay    time.Duration
	maxPages int

	// Tracking
	RequestCount  int
	PageRequests  map[int]int
	LastUserAgent string
}

// NewMockSource creates a mock batch server answering /api/v1/records.
func NewMockSource() *MockSource {
	mock := &MockSource{
		failures:     make(map[int][]int),
		PageRequests: make(map[int]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/records", mock.handleRecords)
	mock.server = httptest.NewServer(mux)

	return mock
}

// URL returns the mock server URL.
func (m *MockSource) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockSource) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockSource) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.PageRequests = make(map[int]int)
	m.LastUserAgent = ""
}

// FailPage makes the next requests for page answer with the given status codes,
// one per request, before serving normally again.
func (m *MockSource) FailPage(page int, statusCodes ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[page] = append(m.failures[page], statusCodes...)
}

// SetDelay delays every response.
func (m *MockSource) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetMaxPages marks the batch for page n as final.
func (m *MockSource) SetMaxPages(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxPages = n
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockSource) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetPageRequests returns the number of requests made for page.
func (m *MockSource) GetPageRequests(page int) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PageRequests[page]
}

func (m *MockSource) handleRecords(w http.ResponseWriter, r *http.Request) {
	page, errPage := strconv.Atoi(r.URL.Query().Get("page"))
	size, errSize := strconv.Atoi(r.URL.Query().Get("size"))

	m.mu.Lock()
	m.RequestCount++
	m.PageRequests[page]++
	m.LastUserAgent = r.Header.Get("User-Agent")
	delay := m.delay
	maxPages := m.maxPages
	status := 0
	if queued := m.failures[page]; len(queued) > 0 {
		status = queued[0]
		m.failures[page] = queued[1:]
	}
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if errPage != nil || errSize != nil || page < 1 || size < 1 {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "page and size must be positive integers"}`))
		return
	}
	if status != 0 {
		w.WriteHeader(status)
		w.Write([]byte(fmt.Sprintf(`{"error": %q}`, http.StatusText(status))))
		return
	}

	json.NewEncoder(w).Encode(NewMockBatch(page, size, maxPages > 0 && page >= maxPages))
}

// NewMockBatch builds a batch honouring the id contract: page P of size S holds
// ids (P-1)*S+1 .. P*S.
func NewMockBatch(page, size int, final bool) MockBatch {
	records := make([]MockRecord, size)
	for i := range records {
		id := (page-1)*size + 1 + i
		records[i] = MockRecord{
			ID:         id,
			BatchIndex: page,
			Payload:    json.RawMessage(fmt.Sprintf(`{"name":"User %d"}`, id)),
		}
	}
	return MockBatch{Page: page, Records: records, Final: final}
}
