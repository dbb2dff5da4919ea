package ui

import (
	"fmt"
	"io"

	"github.com/bamsammich/ferry/internal/event"
	"github.com/bamsammich/ferry/internal/stats"
)

// plainPresenter prints one line per finished item to w and failures to
// errW. On a terminal it also keeps a live status line for the current
// item on errW.
type plainPresenter struct {
	tally

	w       io.Writer
	errW    io.Writer
	root    string
	live    bool
	verbose bool
	width   int
	status  bool // a live line is on screen
}

func (p *plainPresenter) Stats() *stats.Collector { return p.stats }

func (p *plainPresenter) Handle(e event.Event) {
	finished := p.add(e)

	switch e.Type {
	case event.Started:
		if p.verbose {
			p.println(p.w, fmt.Sprintf("%s %s", e.Source.Kind(), e.Source.Path))
		}
	case event.ProgressChanged:
		if finished {
			p.println(p.w, fmt.Sprintf("%s  %s  %s", e.RelativeName, FormatBytes(int64(e.Transferred)), e.Operation)) //nolint:gosec // G115
			return
		}
		if p.live && e.Percent < 100 {
			p.progress(e)
		}
	case event.Failed:
		msg := "error"
		if e.Error != nil {
			msg = e.Error.Error()
		}
		p.println(p.errW, fmt.Sprintf("%s  %s", StripRoot(p.root, e.Source.Path), msg))
	case event.Completed:
		p.clear()
	}
}

func (p *plainPresenter) progress(e event.Event) {
	const barWidth = 20
	line := fmt.Sprintf("%s %3d%% %s", ProgressBar(float64(e.Percent)/100, barWidth), e.Percent, e.RelativeName)
	if r := []rune(line); len(r) > p.width-1 {
		line = string(r[:p.width-1])
	}
	fmt.Fprintf(p.errW, "\r\033[K%s", line)
	p.status = true
}

func (p *plainPresenter) clear() {
	if p.status {
		fmt.Fprint(p.errW, "\r\033[K")
		p.status = false
	}
}

func (p *plainPresenter) println(w io.Writer, s string) {
	p.clear()
	fmt.Fprintln(w, s)
}

func (p *plainPresenter) Summary() string {
	return CompletionSummary(p.stats.Snapshot())
}
