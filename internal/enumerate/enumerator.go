// Package enumerate walks a file namespace and drives a visitor.Visitor
// through it.
//
// The walk is synchronous and single-threaded: it runs on the caller's
// goroutine, uses one explicit stack (never recursion, since device trees
// have unbounded depth) and keeps at most one file open at a time. Per-node
// failures are logged, reported to the visitor and skipped; only a missing
// visitor or service binding makes Enumerate return an error.
package enumerate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/time/rate"

	"github.com/bamsammich/ferry/internal/fileservice"
	"github.com/bamsammich/ferry/internal/filter"
	"github.com/bamsammich/ferry/internal/visitor"
)

var (
	// ErrNilVisitor is returned by Enumerate when no visitor is given.
	ErrNilVisitor = errors.New("nil visitor")

	// ErrNotBound is returned by Enumerate on a ServiceEnumerator that has
	// no file service bound.
	ErrNotBound = errors.New("enumerator not bound to a file service")

	// ErrNilService is returned by Begin when given a nil service.
	ErrNilService = fileservice.ErrNilService
)

// Enumerator walks a tree rooted at a fixed path.
type Enumerator interface {
	// Enumerate performs the whole walk on the calling goroutine. ctx
	// cancellation is checked at the same points as visitor.IsCancelled.
	Enumerate(ctx context.Context, v visitor.Visitor) error
}

// ServiceEnumerator is an Enumerator over a file service bound with Begin.
type ServiceEnumerator interface {
	Enumerator

	// Begin binds svc. It performs no I/O.
	Begin(svc fileservice.Service) error

	// End releases the bound service. It is idempotent.
	End()
}

// Option configures an enumerator.
type Option func(*options)

type options struct {
	chunkSize int
	filter    *filter.Chain
	limiter   *rate.Limiter
	log       *slog.Logger
}

func defaultOptions() options {
	return options{chunkSize: fileservice.ChunkSize, log: slog.Default()}
}

// WithChunkSize sets the read size. Non-positive values are ignored.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithFilter skips nodes the chain rejects. Paths given to the chain are
// relative to the walk root; the root itself is always visited.
func WithFilter(c *filter.Chain) Option {
	return func(o *options) { o.filter = c }
}

// WithBWLimit throttles file reads through l.
func WithBWLimit(l *rate.Limiter) Option {
	return func(o *options) { o.limiter = l }
}

// WithLogger sets the logger for per-node failures.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// walker holds the state of one walk.
type walker struct {
	ctx  context.Context
	svc  fileservice.Service
	v    visitor.Visitor
	root fileservice.Descriptor
	opts options
}

// walk runs the shared algorithm over svc starting at rootPath.
func walk(ctx context.Context, svc fileservice.Service, rootPath string, v visitor.Visitor, opts options) {
	w := &walker{ctx: ctx, svc: svc, v: v, opts: opts}

	root, err := svc.Stat(rootPath, true)
	if err != nil || root == nil {
		if err == nil {
			err = fmt.Errorf("stat %s: no descriptor", rootPath)
		}
		unknown := fileservice.Unknown(rootPath)
		w.call(unknown, "begin", func() error { return v.Begin(unknown) })
		w.fail(unknown, "stat", err)
		w.end(unknown)
		return
	}
	w.root = *root

	w.call(w.root, "begin", func() error { return v.Begin(w.root) })

	stack := []fileservice.Descriptor{w.root}
	for len(stack) > 0 && !w.cancelled() {
		d := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch d.Kind() {
		case fileservice.KindNoAccess:
			w.call(d, "enter", func() error { return v.UnknownEntering(d) })
		case fileservice.KindDirectory:
			stack = w.directory(d, stack)
		default:
			w.copyFile(d)
		}
	}

	w.end(w.root)
}

// directory enters d and pushes its children. Directories and unreadable
// nodes go below files so that every file of a level is visited before the
// walk descends; each group keeps listing order.
func (w *walker) directory(d fileservice.Descriptor, stack []fileservice.Descriptor) []fileservice.Descriptor {
	if d.Path != w.root.Path {
		if !w.call(d, "enter", func() error { return w.v.DirectoryEntering(d) }) {
			return stack
		}
	}

	children, err := w.svc.List(d)
	if err != nil {
		w.fail(d, "list", err)
		return stack
	}

	var deferred, files []fileservice.Descriptor
	for _, c := range children {
		if !fileservice.IsChild(d.Path, c) {
			w.fail(c, "list", fmt.Errorf("%q (%s) in %s: %w", c.Name, c.Path, d.Path, fileservice.ErrUnsafePath))
			continue
		}
		if !w.allowed(c) {
			continue
		}
		if c.Kind() == fileservice.KindDirectory || c.Kind() == fileservice.KindNoAccess {
			deferred = append(deferred, c)
		} else {
			files = append(files, c)
		}
	}
	slices.Reverse(deferred)
	slices.Reverse(files)
	stack = append(stack, deferred...)
	return append(stack, files...)
}

func (w *walker) allowed(d fileservice.Descriptor) bool {
	if w.opts.filter == nil {
		return true
	}
	rel, ok := fileservice.RelativePath(w.root.Path, d.Path)
	if !ok {
		rel = d.Name
	}
	return w.opts.filter.Allows(rel, d)
}

// copyFile streams d to the visitor in chunks. FileClosing always follows
// FileOpening, with the number of bytes delivered. A regular file is read
// until a read comes back empty or its listed size is reached; ending short
// of that size is reported as a failure, as is a context cancellation that
// cuts the file off.
func (w *walker) copyFile(d fileservice.Descriptor) {
	var total uint64
	defer func() {
		w.call(d, "close", func() error { return w.v.FileClosing(d, total) })
	}()

	if !w.call(d, "open", func() error { return w.v.FileOpening(d) }) {
		return
	}

	h, err := w.svc.Open(d.Path, fileservice.OpenRead, 0, false)
	if err != nil {
		w.fail(d, "open", err)
		return
	}
	defer func() {
		if err := w.svc.Close(h); err != nil {
			w.fail(d, "close", err)
		}
	}()

	size := w.opts.chunkSize
	for {
		if w.cancelled() {
			if !d.IsFile || total < d.Size {
				w.interrupted(d)
			}
			return
		}
		chunk, rerr := w.svc.Read(h, int64(total), size) //nolint:gosec // G115: offsets fit int64
		if len(chunk) > 0 {
			if err := throttle(w.ctx, w.opts.limiter, len(chunk)); err != nil {
				if w.ctx.Err() != nil {
					w.interrupted(d)
				} else {
					w.fail(d, "throttle", err)
				}
				return
			}
			total += uint64(len(chunk))
			if !w.call(d, "content", func() error { return w.v.FileContent(d, chunk, total) }) {
				return
			}
		}
		if rerr != nil {
			w.fail(d, "read", rerr)
			return
		}
		if len(chunk) == 0 || (len(chunk) < size && (!d.IsFile || total >= d.Size)) {
			break
		}
	}

	switch {
	case !d.IsFile:
	case total < d.Size:
		w.fail(d, "read", fmt.Errorf("%d of %d bytes: %w", total, d.Size, fileservice.ErrShortRead))
	case total > d.Size:
		w.opts.log.Warn("file grew while read", "path", d.Path, "size", d.Size, "read", total)
	}
}

// interrupted reports a file cut off by context cancellation. A visitor
// that cancelled itself already knows the item is incomplete.
func (w *walker) interrupted(d fileservice.Descriptor) {
	if err := w.ctx.Err(); err != nil {
		w.fail(d, "read", err)
	}
}

// call runs fn and reports its error against d. It returns whether fn
// succeeded.
func (w *walker) call(d fileservice.Descriptor, op string, fn func() error) bool {
	if err := fn(); err != nil {
		w.fail(d, op, err)
		return false
	}
	return true
}

func (w *walker) fail(d fileservice.Descriptor, op string, err error) {
	w.opts.log.Warn("walk failure", "path", d.Path, "op", op, "error", err)
	w.v.Failure(d, err, op+" "+d.Path)
}

// end calls End. Its error is only logged: visitors report their own
// finalization failures before Completed fires.
func (w *walker) end(root fileservice.Descriptor) {
	if err := w.v.End(); err != nil {
		w.opts.log.Warn("walk end", "path", root.Path, "error", err)
	}
}

func (w *walker) cancelled() bool {
	return w.v.IsCancelled() || w.ctx.Err() != nil
}
