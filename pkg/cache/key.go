package cache

import (
	"fmt"
	"strings"
)

// KeyPrefix starts every cache key.
const KeyPrefix = "feed"

// Key identifies a cached batch.
type Key struct {
	// Source names the fetch collaborator (e.g. "generator" or a remote host)
	Source string

	// Page is the 1-based page number
	Page int

	// Size is the batch size the page was fetched with
	Size int
}

// String generates a deterministic cache key string.
// Format: feed:source:page=P:size=S
//
// Example:
//
//	feed:generator:page=2:size=10
func (k Key) String() string {
	return fmt.Sprintf("%s:%s:page=%d:size=%d", KeyPrefix, normalizeSource(k.Source), k.Page, k.Size)
}

// SourcePattern returns the SCAN pattern matching every key of source.
func SourcePattern(source string) string {
	return fmt.Sprintf("%s:%s:*", KeyPrefix, normalizeSource(source))
}

// sourceEscaper percent-encodes the key separator and SCAN glob characters.
// Escaping "%" as well keeps the mapping injective.
var sourceEscaper = strings.NewReplacer(
	"%", "%25",
	":", "%3A",
	"*", "%2A",
	"?", "%3F",
	"[", "%5B",
	"]", "%5D",
	"\\", "%5C",
	" ", "%20",
)

// normalizeSource escapes a source so distinct sources never share keys and
// its pattern matches nothing but its own keys. An empty source is "default".
func normalizeSource(source string) string {
	source = strings.TrimSpace(source)
	if source == "" {
		return "default"
	}
	return sourceEscaper.Replace(source)
}
