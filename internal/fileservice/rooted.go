package fileservice

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Compile-time interface check.
var _ Service = (*Rooted)(nil)

// Rooted exposes a subtree of another Service as its own namespace. Paths
// passed in are slash-separated and absolute ("/a/b"); they are resolved
// under Root and can never escape it. Descriptors handed back carry paths
// in the same rooted form.
type Rooted struct {
	inner Service
	root  string
}

// NewRooted wraps inner so that "/" maps to root.
func NewRooted(inner Service, root string) *Rooted {
	return &Rooted{inner: inner, root: filepath.Clean(root)}
}

// Root returns the host directory "/" is mapped to.
func (r *Rooted) Root() string { return r.root }

// HostPath translates a rooted path to a path on the inner service.
func (r *Rooted) HostPath(p string) string {
	clean := path.Clean("/" + strings.ReplaceAll(p, `\`, "/"))
	return filepath.Join(r.root, filepath.FromSlash(clean))
}

// RootedPath translates a path on the inner service back to rooted form.
func (r *Rooted) RootedPath(host string) string {
	rel, err := filepath.Rel(r.root, host)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "/"
	}
	return "/" + filepath.ToSlash(rel)
}

func (r *Rooted) Stat(p string, followLinks bool) (*Descriptor, error) {
	d, err := r.inner.Stat(r.HostPath(p), followLinks)
	if err != nil {
		return nil, err
	}
	out := r.rebase(*d)
	return &out, nil
}

func (r *Rooted) List(dir Descriptor) ([]Descriptor, error) {
	dir.Path = r.HostPath(dir.Path)
	entries, err := r.inner.List(dir)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i] = r.rebase(entries[i])
	}
	return entries, nil
}

func (r *Rooted) Open(p string, mode OpenMode, perm os.FileMode, create bool) (Handle, error) {
	return r.inner.Open(r.HostPath(p), mode, perm, create)
}

func (r *Rooted) Read(h Handle, offset int64, maxLength int) ([]byte, error) {
	return r.inner.Read(h, offset, maxLength)
}

func (r *Rooted) Write(h Handle, data []byte) (int, error) {
	return r.inner.Write(h, data)
}

func (r *Rooted) CreateFolder(p string, perm os.FileMode) error {
	return r.inner.CreateFolder(r.HostPath(p), perm)
}

func (r *Rooted) CreateFile(p string, perm os.FileMode) (Handle, error) {
	return r.inner.CreateFile(r.HostPath(p), perm)
}

func (r *Rooted) Close(h Handle) error {
	return r.inner.Close(h)
}

func (r *Rooted) rebase(d Descriptor) Descriptor {
	d.Path = r.RootedPath(d.Path)
	if d.Path == "/" {
		d.Name = "/"
	}
	return d
}
