package pagination

import (
	"context"
	"encoding/json"
)

// Record is a single item in the loaded sequence.
type Record struct {
	// ID is stable and unique within the loaded sequence.
	ID int `json:"id"`

	// BatchIndex is the 1-based page the record was fetched in.
	BatchIndex int `json:"batch_index"`

	// Payload is opaque to the controller.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Batch is the result of fetching a single page.
type Batch struct {
	// Page is the 1-based page number the records belong to.
	Page int `json:"page"`

	// Records holds the page's records in source order.
	Records []Record `json:"records"`

	// Final is set by sources that know no further pages exist.
	Final bool `json:"final"`
}

// BatchFetcher is the fetch collaborator contract.
//
// Given page P and size S an implementation returns exactly S records with IDs
// (P-1)*S+1 .. P*S, each tagged with batch index P. The controller does not
// validate this.
type BatchFetcher interface {
	FetchBatch(ctx context.Context, page, size int) (Batch, error)
}

// BatchFetcherFunc adapts a plain function to BatchFetcher.
type BatchFetcherFunc func(ctx context.Context, page, size int) (Batch, error)

// FetchBatch calls f(ctx, page, size).
func (f BatchFetcherFunc) FetchBatch(ctx context.Context, page, size int) (Batch, error) {
	return f(ctx, page, size)
}

// FirstID returns the identifier of the first record on page for the given size.
func FirstID(page, size int) int {
	return (page-1)*size + 1
}

// LastID returns the identifier of the last record on page for the given size.
func LastID(page, size int) int {
	return page * size
}
