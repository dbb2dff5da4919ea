package enumerate

import (
	"context"
	"path/filepath"

	"github.com/bamsammich/ferry/internal/fileservice"
	"github.com/bamsammich/ferry/internal/visitor"
)

// Compile-time interface check.
var _ Enumerator = (*LocalEnumerator)(nil)

// LocalEnumerator walks a path on the local file system.
type LocalEnumerator struct {
	root string
	opts options
}

// NewLocalEnumerator returns an enumerator rooted at root.
func NewLocalEnumerator(root string, opts ...Option) *LocalEnumerator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &LocalEnumerator{root: filepath.Clean(root), opts: o}
}

// Root returns the walk root.
func (e *LocalEnumerator) Root() string { return e.root }

func (e *LocalEnumerator) Enumerate(ctx context.Context, v visitor.Visitor) error {
	if v == nil {
		return ErrNilVisitor
	}
	svc := fileservice.NewLocalService()
	defer svc.CloseAll()

	walk(ctx, svc, e.root, v, e.opts)
	return nil
}
