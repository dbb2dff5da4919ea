// Package memfs provides an in-memory fileservice.Service. It stands in for
// a device in tests and dry runs, and can inject the failure modes seen on
// real devices: permission denial, reads that break mid-file and short writes.
package memfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sync"
	"time"

	"github.com/bamsammich/ferry/internal/fileservice"
)

// Compile-time interface check.
var _ fileservice.Service = (*FS)(nil)

// ErrInjected is returned by reads that hit a FailReadAfter boundary.
var ErrInjected = errors.New("injected read failure")

type nodeKind int

const (
	nodeFile nodeKind = iota
	nodeDir
	nodeOther
)

type node struct {
	modTime  time.Time
	data     []byte
	children []string // insertion order
	kind     nodeKind
	perm     os.FileMode
	denied   bool
	failAt   int // -1 = never
	short    bool
}

type openFile struct {
	n    *node
	path string
	pos  int
	mode fileservice.OpenMode
}

// FS is an in-memory tree rooted at "/". The zero value is not usable; call New.
type FS struct {
	mu    sync.Mutex
	nodes map[string]*node
	open  map[fileservice.Handle]*openFile
	next  fileservice.Handle
}

// New returns an FS containing only the root directory.
func New() *FS {
	return &FS{
		nodes: map[string]*node{"/": {kind: nodeDir, perm: fileservice.DefaultFolderPerm, failAt: -1}},
		open:  make(map[fileservice.Handle]*openFile),
	}
}

// AddDir creates a directory and any missing parents.
func (f *FS) AddDir(p string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mkdirAll(clean(p), fileservice.DefaultFolderPerm)
}

// AddFile creates or replaces a regular file, creating missing parents.
func (f *FS) AddFile(p string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.put(clean(p), nodeFile, data)
}

// AddOther creates a stream-like node (pipe, device file) whose content is
// readable but whose size is not reported.
func (f *FS) AddOther(p string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.put(clean(p), nodeOther, data)
}

// Deny marks p as existing but inaccessible.
func (f *FS) Deny(p string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n, ok := f.nodes[clean(p)]; ok {
		n.denied = true
	}
}

// FailReadAfter makes reads of p fail once offset n is reached. A read that
// crosses n returns the bytes before n together with ErrInjected.
func (f *FS) FailReadAfter(p string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if nd, ok := f.nodes[clean(p)]; ok {
		nd.failAt = n
	}
}

// ShortWrites makes every write to p store only half of the given bytes.
func (f *FS) ShortWrites(p string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if nd, ok := f.nodes[clean(p)]; ok {
		nd.short = true
	}
}

// ReadFile returns a copy of a file's content.
func (f *FS) ReadFile(p string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.nodes[clean(p)]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", p, fs.ErrNotExist)
	}
	if n.kind == nodeDir {
		return nil, fmt.Errorf("read %s: is a directory", p)
	}
	return append([]byte(nil), n.data...), nil
}

// IsDir reports whether p exists and is a directory.
func (f *FS) IsDir(p string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.nodes[clean(p)]
	return ok && n.kind == nodeDir
}

// OpenHandles reports how many handles are currently open.
func (f *FS) OpenHandles() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.open)
}

func (f *FS) Stat(p string, _ bool) (*fileservice.Descriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := clean(p)
	n, ok := f.nodes[cp]
	if !ok {
		return nil, fmt.Errorf("stat %s: %w", p, fs.ErrNotExist)
	}
	d := describe(cp, n)
	return &d, nil
}

func (f *FS) List(dir fileservice.Descriptor) ([]fileservice.Descriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := clean(dir.Path)
	n, ok := f.nodes[cp]
	switch {
	case !ok:
		return nil, fmt.Errorf("list %s: %w", dir.Path, fs.ErrNotExist)
	case n.denied:
		return nil, fmt.Errorf("list %s: %w", dir.Path, fs.ErrPermission)
	case n.kind != nodeDir:
		return nil, fmt.Errorf("list %s: not a directory", dir.Path)
	}

	result := make([]fileservice.Descriptor, 0, len(n.children))
	for _, name := range n.children {
		childPath := path.Join(cp, name)
		result = append(result, describe(childPath, f.nodes[childPath]))
	}
	return result, nil
}

func (f *FS) Open(p string, mode fileservice.OpenMode, perm os.FileMode, create bool) (fileservice.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := clean(p)
	n, ok := f.nodes[cp]
	if !ok {
		if !create {
			return 0, fmt.Errorf("open %s: %w", p, fs.ErrNotExist)
		}
		if _, err := f.parentDir(cp); err != nil {
			return 0, err
		}
		n = f.put(cp, nodeFile, nil)
		n.perm = perm
	}
	switch {
	case n.denied:
		return 0, fmt.Errorf("open %s: %w", p, fs.ErrPermission)
	case n.kind == nodeDir:
		return 0, fmt.Errorf("open %s: is a directory", p)
	}
	if mode&fileservice.OpenTruncate != 0 {
		n.data = nil
	}
	of := &openFile{n: n, path: cp, mode: mode}
	if mode&fileservice.OpenAppend != 0 {
		of.pos = len(n.data)
	}
	return f.register(of), nil
}

func (f *FS) Read(h fileservice.Handle, offset int64, maxLength int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	of, ok := f.open[h]
	if !ok {
		return nil, fileservice.ErrClosed
	}
	if of.mode&fileservice.OpenRead == 0 {
		return nil, fmt.Errorf("read %s: handle not open for reading", of.path)
	}

	data := of.n.data
	start := int(offset)
	if start >= len(data) {
		return []byte{}, nil
	}
	end := min(start+maxLength, len(data))

	if of.n.failAt >= 0 && end > of.n.failAt {
		if start >= of.n.failAt {
			return []byte{}, fmt.Errorf("read %s: %w", of.path, ErrInjected)
		}
		return append([]byte(nil), data[start:of.n.failAt]...), fmt.Errorf("read %s: %w", of.path, ErrInjected)
	}
	return append([]byte(nil), data[start:end]...), nil
}

func (f *FS) Write(h fileservice.Handle, data []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	of, ok := f.open[h]
	if !ok {
		return 0, fileservice.ErrClosed
	}
	if of.mode&fileservice.OpenWrite == 0 {
		return 0, fmt.Errorf("write %s: handle not open for writing", of.path)
	}

	n := len(data)
	if of.n.short && n > 1 {
		n /= 2
	}
	end := of.pos + n
	if end > len(of.n.data) {
		grown := make([]byte, end)
		copy(grown, of.n.data)
		of.n.data = grown
	}
	copy(of.n.data[of.pos:end], data[:n])
	of.pos = end
	of.n.modTime = time.Now()
	return n, nil
}

func (f *FS) CreateFolder(p string, perm os.FileMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := clean(p)
	if n, ok := f.nodes[cp]; ok {
		if n.kind != nodeDir {
			return fmt.Errorf("create folder %s: %w", p, fs.ErrExist)
		}
		return nil
	}
	f.mkdirAll(cp, perm)
	return nil
}

func (f *FS) CreateFile(p string, perm os.FileMode) (fileservice.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := clean(p)
	if _, err := f.parentDir(cp); err != nil {
		return 0, err
	}
	if n, ok := f.nodes[cp]; ok && (n.kind == nodeDir || n.denied) {
		return 0, fmt.Errorf("create %s: %w", p, fs.ErrPermission)
	}
	n := f.put(cp, nodeFile, nil)
	n.perm = perm
	return f.register(&openFile{n: n, path: cp, mode: fileservice.OpenWrite}), nil
}

func (f *FS) Close(h fileservice.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.open[h]; !ok {
		return fileservice.ErrClosed
	}
	delete(f.open, h)
	return nil
}

func (f *FS) register(of *openFile) fileservice.Handle {
	f.next++
	f.open[f.next] = of
	return f.next
}

func (f *FS) parentDir(cp string) (*node, error) {
	parent, ok := f.nodes[path.Dir(cp)]
	if !ok || parent.kind != nodeDir {
		return nil, fmt.Errorf("create %s: parent: %w", cp, fs.ErrNotExist)
	}
	if parent.denied {
		return nil, fmt.Errorf("create %s: %w", cp, fs.ErrPermission)
	}
	return parent, nil
}

// put creates or replaces the node at cp. Caller holds f.mu.
func (f *FS) put(cp string, kind nodeKind, data []byte) *node {
	f.mkdirAll(path.Dir(cp), fileservice.DefaultFolderPerm)
	n, ok := f.nodes[cp]
	if !ok {
		n = &node{failAt: -1}
		f.nodes[cp] = n
		parent := f.nodes[path.Dir(cp)]
		parent.children = append(parent.children, path.Base(cp))
	}
	n.kind = kind
	n.data = append([]byte(nil), data...)
	n.perm = fileservice.DefaultFilePerm
	n.modTime = time.Now()
	return n
}

// mkdirAll creates cp and its parents. Caller holds f.mu.
func (f *FS) mkdirAll(cp string, perm os.FileMode) {
	if _, ok := f.nodes[cp]; ok {
		return
	}
	f.mkdirAll(path.Dir(cp), perm)
	f.nodes[cp] = &node{kind: nodeDir, perm: perm, failAt: -1, modTime: time.Now()}
	parent := f.nodes[path.Dir(cp)]
	parent.children = append(parent.children, path.Base(cp))
}

func describe(cp string, n *node) fileservice.Descriptor {
	d := fileservice.Descriptor{
		Path:    cp,
		Name:    path.Base(cp),
		ModTime: n.modTime,
		Mode:    n.perm,
	}
	switch {
	case n.denied:
		d.NoAccess = true
	case n.kind == nodeDir:
		d.IsDirectory = true
		d.Mode |= os.ModeDir
	case n.kind == nodeFile:
		d.IsFile = true
		d.Size = uint64(len(n.data))
	default:
		d.Mode |= os.ModeNamedPipe
	}
	return d
}

func clean(p string) string {
	return path.Clean("/" + p)
}
