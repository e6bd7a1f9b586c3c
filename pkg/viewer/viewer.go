// Package viewer renders a feed in the terminal. Scrolling publishes viewport
// geometry to a signal source so a proximity trigger can request more batches;
// the m key is the manual "load more" control.
package viewer

import (
	"context"

	"github.com/Sternrassler/infinite-feed/pkg/pagination"
	"github.com/Sternrassler/infinite-feed/pkg/trigger"
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/rs/zerolog"
)

// Feed is the controller surface the viewer reads and drives.
type Feed interface {
	trigger.Feed
	Snapshot() pagination.Snapshot
	Subscribe() (<-chan struct{}, func())
}

// Publisher receives the viewer's geometry updates.
type Publisher interface {
	Publish(g trigger.Geometry)
}

// Config holds viewer configuration.
type Config struct {
	// RowPixels is the layout height of one terminal row.
	RowPixels float64

	// Title is shown on the top row.
	Title string
}

// DefaultConfig returns the default viewer configuration.
func DefaultConfig() Config {
	return Config{
		RowPixels: 40,
		Title:     "Infinite Scroll",
	}
}

var (
	styleTitle  = tcell.StyleDefault.Bold(true)
	styleHeader = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleFooter = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleError  = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleStatus = tcell.StyleDefault.Reverse(true)
)

// Viewer draws a feed on a tcell screen.
type Viewer struct {
	screen  tcell.Screen
	feed    Feed
	signals Publisher
	config  Config
	logger  zerolog.Logger

	offset int
	lines  []line
	snap   pagination.Snapshot
}

// New creates a viewer. The screen must already be initialised.
func New(screen tcell.Screen, feed Feed, signals Publisher, cfg Config, logger zerolog.Logger) *Viewer {
	if cfg.RowPixels <= 0 {
		cfg.RowPixels = DefaultConfig().RowPixels
	}
	return &Viewer{
		screen:  screen,
		feed:    feed,
		signals: signals,
		config:  cfg,
		logger:  logger.With().Str("component", "viewer").Logger(),
	}
}

// Run draws and handles input until q is pressed or ctx is cancelled.
func (v *Viewer) Run(ctx context.Context) error {
	changes, unsubscribe := v.feed.Subscribe()
	defer unsubscribe()

	events := make(chan tcell.Event)
	quit := make(chan struct{})
	defer close(quit)

	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()

	v.Draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			v.Draw()
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				v.screen.Sync()
				v.Draw()
				v.publish()
			case *tcell.EventKey:
				if v.HandleKey(ctx, ev) {
					return nil
				}
				v.Draw()
			case *tcell.EventMouse:
				v.HandleMouse(ev)
				v.Draw()
			}
		}
	}
}

// HandleKey applies a key press and reports whether the viewer should exit.
func (v *Viewer) HandleKey(ctx context.Context, ev *tcell.EventKey) bool {
	page := v.listHeight() - 1
	if page < 1 {
		page = 1
	}

	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyUp:
		v.scroll(-1)
	case tcell.KeyDown:
		v.scroll(1)
	case tcell.KeyPgUp:
		v.scroll(-page)
	case tcell.KeyPgDn:
		v.scroll(page)
	case tcell.KeyHome:
		v.scroll(-len(v.lines))
	case tcell.KeyEnd:
		v.scroll(len(v.lines))
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return true
		case 'k':
			v.scroll(-1)
		case 'j':
			v.scroll(1)
		case 'g':
			v.scroll(-len(v.lines))
		case 'G':
			v.scroll(len(v.lines))
		case 'm':
			if trigger.LoadMore(ctx, v.feed) {
				v.logger.Debug().Msg("Manual load requested")
			}
		}
	}
	return false
}

// HandleMouse scrolls on wheel events.
func (v *Viewer) HandleMouse(ev *tcell.EventMouse) {
	switch {
	case ev.Buttons()&tcell.WheelUp != 0:
		v.scroll(-3)
	case ev.Buttons()&tcell.WheelDown != 0:
		v.scroll(3)
	}
}

// scroll moves the viewport and publishes the resulting geometry. A scroll
// attempt at either end still publishes, so a short list keeps loading.
func (v *Viewer) scroll(delta int) {
	v.offset += delta
	v.clamp()
	v.publish()
}

func (v *Viewer) clamp() {
	maxOffset := len(v.lines) - v.listHeight()
	if maxOffset < 0 {
		maxOffset = 0
	}
	if v.offset > maxOffset {
		v.offset = maxOffset
	}
	if v.offset < 0 {
		v.offset = 0
	}
}

// Geometry returns the current viewport in layout units.
func (v *Viewer) Geometry() trigger.Geometry {
	return trigger.Geometry{
		ViewportTop:    float64(v.offset) * v.config.RowPixels,
		ViewportHeight: float64(v.listHeight()) * v.config.RowPixels,
		ContentHeight:  float64(len(v.lines)) * v.config.RowPixels,
	}
}

func (v *Viewer) publish() {
	if v.signals != nil {
		v.signals.Publish(v.Geometry())
	}
}

// Offset returns the index of the first visible list row.
func (v *Viewer) Offset() int {
	return v.offset
}

// listHeight is the screen minus the title and status rows.
func (v *Viewer) listHeight() int {
	_, h := v.screen.Size()
	if h < 3 {
		return 0
	}
	return h - 2
}

// Draw re-reads the feed and repaints the screen.
func (v *Viewer) Draw() {
	v.snap = v.feed.Snapshot()
	v.lines = buildLines(v.snap)
	v.clamp()

	v.screen.Clear()
	w, h := v.screen.Size()

	drawText(v.screen, 0, 0, w, styleTitle, v.config.Title)

	height := v.listHeight()
	for row := 0; row < height; row++ {
		i := v.offset + row
		if i >= len(v.lines) {
			break
		}
		l := v.lines[i]
		style := tcell.StyleDefault
		switch l.kind {
		case lineHeader:
			style = styleHeader
		case lineFooter:
			style = styleFooter
			if v.snap.LastError != "" && !v.snap.Loading() {
				style = styleError
			}
		}
		drawText(v.screen, 0, row+1, w, style, l.text)
	}

	if h >= 2 {
		status := statusText(v.snap)
		for x := 0; x < w; x++ {
			v.screen.SetContent(x, h-1, ' ', nil, styleStatus)
		}
		drawText(v.screen, 0, h-1, w, styleStatus, status)
	}

	v.screen.Show()
}

// drawText writes s at (x, y), truncated to width cells.
func drawText(screen tcell.Screen, x, y, width int, style tcell.Style, s string) {
	col := x
	for _, r := range fit(s, width) {
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			continue
		}
		screen.SetContent(col, y, r, nil, style)
		col += rw
	}
}
