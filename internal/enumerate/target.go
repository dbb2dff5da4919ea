package enumerate

import (
	"context"
	"sync"

	"github.com/bamsammich/ferry/internal/fileservice"
	"github.com/bamsammich/ferry/internal/visitor"
)

// Compile-time interface check.
var _ ServiceEnumerator = (*TargetEnumerator)(nil)

// TargetEnumerator walks a tree through a bound file service, usually a
// device connection. Device paths are slash separated.
type TargetEnumerator struct {
	root string
	opts options

	mu  sync.Mutex
	svc fileservice.Service
}

// NewTargetEnumerator returns an unbound enumerator rooted at root.
func NewTargetEnumerator(root string, opts ...Option) *TargetEnumerator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &TargetEnumerator{root: root, opts: o}
}

// Root returns the walk root.
func (e *TargetEnumerator) Root() string { return e.root }

func (e *TargetEnumerator) Begin(svc fileservice.Service) error {
	if svc == nil {
		return ErrNilService
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.svc = svc
	return nil
}

func (e *TargetEnumerator) End() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.svc = nil
}

func (e *TargetEnumerator) Enumerate(ctx context.Context, v visitor.Visitor) error {
	if v == nil {
		return ErrNilVisitor
	}
	e.mu.Lock()
	svc := e.svc
	e.mu.Unlock()
	if svc == nil {
		return ErrNotBound
	}

	walk(ctx, svc, e.root, v, e.opts)
	return nil
}
