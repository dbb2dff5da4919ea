package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/bamsammich/ferry/internal/enumerate"
	"github.com/bamsammich/ferry/internal/event"
	"github.com/bamsammich/ferry/internal/ui"
	"github.com/bamsammich/ferry/internal/visitor"
)

// monitored is a visitor carrying an embedded visitor.Monitor.
type monitored interface {
	visitor.Visitor
	Subscribe(h visitor.Handler)
	SetDispatcher(d visitor.Dispatcher)
	Cancel()
	Failures() int64
	WaitContext(ctx context.Context) error
}

// runWalk drives e into v with a presenter attached. Handlers run on a
// dedicated queue goroutine so the walk never blocks on terminal output.
// Cancelling ctx (SIGINT/SIGTERM) cancels the walk, which still reaches End.
func (g *globals) runWalk(ctx context.Context, e enumerate.Enumerator, v monitored, root string) error {
	tty, width := ui.Terminal(os.Stderr)
	presenter := ui.NewPresenter(ui.Config{
		Writer:    os.Stdout,
		ErrWriter: os.Stderr,
		Root:      root,
		IsTTY:     tty,
		Width:     width,
		Quiet:     g.quiet,
		Verbose:   g.verbose,
	})

	q := visitor.NewQueue(256)
	v.SetDispatcher(q)
	v.Subscribe(presenter.Handle)
	if g.logFile != "" {
		v.Subscribe(logEvent)
	}

	stopCancel := context.AfterFunc(ctx, v.Cancel)
	defer stopCancel()

	var eg errgroup.Group
	eg.Go(q.Run)
	eg.Go(func() error {
		defer q.Close()
		if err := e.Enumerate(ctx, v); err != nil {
			return err
		}
		return v.WaitContext(context.WithoutCancel(ctx))
	})
	if err := eg.Wait(); err != nil {
		return err
	}

	if !g.quiet {
		if summary := presenter.Summary(); summary != "" {
			fmt.Fprintln(os.Stderr, summary)
		}
	}
	if ctx.Err() != nil {
		slog.Warn("walk cancelled")
		return &exitError{code: 2}
	}
	if v.Failures() > 0 {
		return &exitError{code: 1}
	}
	return nil
}

// logEvent writes monitor events to the structured log.
func logEvent(e event.Event) {
	attrs := []slog.Attr{
		slog.String("type", e.Type.String()),
		slog.String("path", e.Source.Path),
		slog.String("op", e.Operation.String()),
	}
	switch e.Type {
	case event.ProgressChanged:
		attrs = append(attrs,
			slog.String("dest", e.Destination),
			slog.Uint64("transferred", e.Transferred),
			slog.Int("percent", e.Percent),
		)
	case event.Failed:
		attrs = append(attrs, slog.String("message", e.Message))
		if e.Error != nil {
			attrs = append(attrs, slog.String("error", e.Error.Error()))
		}
	}
	slog.LogAttrs(context.Background(), slog.LevelDebug, "ferry.event", attrs...)
}
