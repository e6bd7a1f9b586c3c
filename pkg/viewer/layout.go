package viewer

import (
	"fmt"

	"github.com/Sternrassler/infinite-feed/pkg/pagination"
	"github.com/Sternrassler/infinite-feed/pkg/source"
	"github.com/mattn/go-runewidth"
)

type lineKind int

const (
	lineHeader lineKind = iota
	lineRecord
	lineFooter
)

// line is one row of the scrollable list.
type line struct {
	kind lineKind
	text string
}

// buildLines lays out the snapshot: one header per batch, one row per record
// and a trailing footer describing the load state.
func buildLines(snap pagination.Snapshot) []line {
	groups := snap.Groups()
	lines := make([]line, 0, len(snap.Records)+len(groups)+1)

	for _, g := range groups {
		lines = append(lines, line{
			kind: lineHeader,
			text: fmt.Sprintf("Data Batch %d  Users %d - %d  %d items loaded", g.BatchIndex, g.FirstID, g.LastID, len(g.Records)),
		})
		for _, r := range g.Records {
			lines = append(lines, line{kind: lineRecord, text: recordText(r)})
		}
	}

	lines = append(lines, line{kind: lineFooter, text: footerText(snap)})
	return lines
}

func recordText(r pagination.Record) string {
	u, err := source.DecodeUser(r)
	if err != nil || u.Name == "" {
		return fmt.Sprintf("#%-4d %s", r.ID, string(r.Payload))
	}
	return fmt.Sprintf("#%-4d %-10s %-22s %-9s joined %s", u.ID, u.Name, u.Email, u.Location, u.JoinDate)
}

func footerText(snap pagination.Snapshot) string {
	switch {
	case snap.Loading():
		return "Loading more users..."
	case snap.Exhausted:
		return "No more data to load"
	case snap.LastError != "":
		return "Loading failed, press m to retry"
	default:
		return "Scroll down or press m to load more"
	}
}

// statusText is the fixed bottom row.
func statusText(snap pagination.Snapshot) string {
	more := "Yes"
	if !snap.HasMore {
		more = "No"
	}
	s := fmt.Sprintf("Total: %d users | Pages: %d x %d | More data: %s",
		len(snap.Records), snap.PagesLoaded, snap.BatchSize, more)
	if snap.Loading() {
		s += " | Loading"
	}
	return s
}

// fit truncates s to width display cells.
func fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
