// Package ui renders walk progress for the command line.
package ui

import (
	"cmp"
	"io"

	"github.com/bamsammich/ferry/internal/event"
	"github.com/bamsammich/ferry/internal/stats"
)

// Presenter consumes monitor events and displays progress. Handle is
// always called from one goroutine at a time.
type Presenter interface {
	Handle(e event.Event)
	// Summary returns the final summary line.
	Summary() string
	// Stats exposes the counters fed by Handle.
	Stats() *stats.Collector
}

// Config configures a Presenter.
type Config struct {
	Writer    io.Writer
	ErrWriter io.Writer
	Root      string // stripped from failure paths
	IsTTY     bool
	Width     int // terminal columns; 0 means 80
	Quiet     bool
	Verbose   bool
}

// NewPresenter creates the appropriate presenter based on configuration.
//
//nolint:ireturn // factory function returns interface by design
func NewPresenter(cfg Config) Presenter {
	if cfg.Quiet {
		return &quietPresenter{tally: tally{stats: stats.NewCollector()}}
	}
	return &plainPresenter{
		w:       cfg.Writer,
		errW:    cfg.ErrWriter,
		tally:   tally{stats: stats.NewCollector()},
		root:    cfg.Root,
		live:    cfg.IsTTY,
		verbose: cfg.Verbose,
		width:   cmp.Or(cfg.Width, defaultWidth),
	}
}

// tally folds events into a Collector. Presenters share it so summaries
// agree.
type tally struct {
	stats  *stats.Collector
	failed string // source path of the last failed item
}

// add counts e and reports whether it finishes an item cleanly. A failed
// item still reaches 100% but is neither counted nor listed as done.
func (t *tally) add(e event.Event) bool {
	switch e.Type {
	case event.ProgressChanged:
		if e.Percent == 0 && e.Transferred == 0 {
			t.stats.AddFilesOpened(1)
			t.stats.AddBytesTotal(int64(e.Source.Size)) //nolint:gosec // G115: sizes fit int64
		}
		if e.Percent == 100 {
			if e.Source.Path == t.failed {
				t.failed = ""
				return false
			}
			t.stats.AddFiles(1)
			t.stats.AddBytes(int64(e.Transferred)) //nolint:gosec // G115: sizes fit int64
			return true
		}
	case event.Failed:
		t.stats.AddFailures(1)
		t.failed = e.Source.Path
	}
	return false
}
