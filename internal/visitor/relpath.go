package visitor

import (
	"fmt"
	"os"
	"path"

	"github.com/bamsammich/ferry/internal/fileservice"
)

// relativeTo names d relative to the walk root, slash separated. When the
// root is not a directory the walk has a single node, named by itself. A
// node that does not sit below the root yields fileservice.ErrUnsafePath.
func relativeTo(root, d fileservice.Descriptor) (string, error) {
	if !root.IsDirectory {
		if !fileservice.ValidName(d.Name) {
			return "", fmt.Errorf("%s: %w", d.Path, fileservice.ErrUnsafePath)
		}
		return d.Name, nil
	}
	rel, ok := fileservice.RelativePath(root.Path, d.Path)
	if !ok || rel == "" {
		return "", fmt.Errorf("%s outside %s: %w", d.Path, root.Path, fileservice.ErrUnsafePath)
	}
	return rel, nil
}

// displayName is relativeTo for progress events, falling back to the
// node's own name.
func displayName(root, d fileservice.Descriptor) string {
	if rel, err := relativeTo(root, d); err == nil {
		return rel
	}
	return d.Name
}

// relativeToParent names d relative to the directory containing the root,
// so a copied tree keeps its top-level folder. A filesystem root ("/") has
// no name of its own and its children land directly in the output.
func relativeToParent(root, d fileservice.Descriptor) (string, error) {
	if !root.IsDirectory {
		return relativeTo(root, d)
	}
	top := rootName(root)
	if d.Path == root.Path {
		return top, nil
	}
	rel, err := relativeTo(root, d)
	if err != nil {
		return "", err
	}
	return path.Join(top, rel), nil
}

func rootName(root fileservice.Descriptor) string {
	switch n := fileservice.BaseName(root.Path); n {
	case "/", `\`, ".", "":
		return ""
	default:
		return n
	}
}

// filePerm picks the permission for a created file or folder, falling back
// to def when the source mode carries none.
func filePerm(d fileservice.Descriptor, def os.FileMode) os.FileMode {
	if p := d.Mode.Perm(); p != 0 {
		return p
	}
	return def
}

// truncated reports whether fewer bytes than a regular file's listed size
// were delivered.
func truncated(d fileservice.Descriptor, totalRead uint64) bool {
	return d.IsFile && totalRead < d.Size
}
