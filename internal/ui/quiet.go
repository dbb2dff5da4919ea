package ui

import (
	"github.com/bamsammich/ferry/internal/event"
	"github.com/bamsammich/ferry/internal/stats"
)

// quietPresenter counts events but produces no output.
type quietPresenter struct {
	tally
}

func (p *quietPresenter) Handle(e event.Event) { p.add(e) }

func (p *quietPresenter) Stats() *stats.Collector { return p.stats }

func (p *quietPresenter) Summary() string {
	return ""
}
