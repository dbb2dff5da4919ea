package visitor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/bamsammich/ferry/internal/event"
	"github.com/bamsammich/ferry/internal/fileservice"
)

// Compile-time interface check.
var _ Visitor = (*LocalCopyVisitor)(nil)

var errNoOpenFile = errors.New("no file open")

// LocalCopyVisitor writes a walk to the local file system.
//
// When the root is a file, it is written to the output path itself, or
// into it when the output is an existing directory. When
// the root is a directory, the tree is recreated under the output path
// including the root's own folder: pulling /data/photos into out yields
// out/photos/... Unreadable and stream nodes become empty placeholders so
// the tree keeps its shape.
//
// Files are written to a temporary sibling and renamed into place when they
// close, so a failed, cancelled or short item never leaves a partial file
// behind.
type LocalCopyVisitor struct {
	Monitor

	output  string
	fileOut string
	root    fileservice.Descriptor

	cur     *os.File
	curTemp string
	curDest string
}

// NewLocalCopyVisitor copies into output.
func NewLocalCopyVisitor(output string) *LocalCopyVisitor {
	return &LocalCopyVisitor{output: filepath.Clean(output)}
}

// Destination maps a walk node to its local path. A node that would land
// outside the output yields fileservice.ErrUnsafePath.
func (v *LocalCopyVisitor) Destination(d fileservice.Descriptor) (string, error) {
	if !v.root.IsDirectory {
		return v.fileOut, nil
	}
	rel, err := relativeToParent(v.root, d)
	if err != nil {
		return "", err
	}
	return filepath.Join(v.output, filepath.FromSlash(rel)), nil
}

func (v *LocalCopyVisitor) Begin(root fileservice.Descriptor) error {
	v.root = root
	v.Reset(root)

	v.fileOut = v.output
	if info, err := os.Stat(v.output); err == nil && info.IsDir() && !root.IsDirectory {
		v.fileOut = filepath.Join(v.output, root.Name)
	}

	dir := filepath.Dir(v.fileOut)
	if root.IsDirectory {
		dir = filepath.Join(v.output, rootName(root))
	}
	if err := os.MkdirAll(dir, fileservice.DefaultFolderPerm); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}

func (v *LocalCopyVisitor) DirectoryEntering(d fileservice.Descriptor) error {
	dest, err := v.Destination(d)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dest, filePerm(d, fileservice.DefaultFolderPerm)|0o700); err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	return nil
}

func (v *LocalCopyVisitor) UnknownEntering(d fileservice.Descriptor) error {
	dest, err := v.Destination(d)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), fileservice.DefaultFolderPerm); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(dest), err)
	}
	if err := os.WriteFile(dest, nil, fileservice.DefaultFilePerm); err != nil {
		return fmt.Errorf("placeholder %s: %w", dest, err)
	}
	return nil
}

func (v *LocalCopyVisitor) FileOpening(d fileservice.Descriptor) error {
	dest, err := v.Destination(d)
	if err != nil {
		return err
	}
	v.NotifyProgressNew(d, dest, displayName(v.root, d), event.Downloading)

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, fileservice.DefaultFolderPerm); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.ferry-tmp", filepath.Base(dest), uuid.New().String()[:8]))
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm(d, fileservice.DefaultFilePerm))
	if err != nil {
		return fmt.Errorf("create temp %s: %w", tmp, err)
	}
	v.cur, v.curTemp, v.curDest = f, tmp, dest
	return nil
}

func (v *LocalCopyVisitor) FileContent(d fileservice.Descriptor, chunk []byte, totalRead uint64) error {
	if v.cur == nil {
		return errNoOpenFile
	}
	if _, err := v.cur.Write(chunk); err != nil {
		return fmt.Errorf("write %s: %w", v.curTemp, err)
	}
	v.NotifyProgressChanged(d, totalRead)
	return nil
}

func (v *LocalCopyVisitor) FileClosing(d fileservice.Descriptor, totalRead uint64) error {
	defer v.NotifyProgressDone(d, totalRead)
	if v.cur == nil {
		return nil
	}

	f, tmp, dest := v.cur, v.curTemp, v.curDest
	v.cur, v.curTemp, v.curDest = nil, "", ""

	closeErr := f.Close()
	incomplete := v.ItemFailed() || truncated(d, totalRead)
	if closeErr != nil || incomplete {
		os.Remove(tmp)
		if closeErr != nil {
			return fmt.Errorf("close %s: %w", tmp, closeErr)
		}
		return nil
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", dest, err)
	}
	if !d.ModTime.IsZero() {
		//nolint:errcheck // best-effort timestamp
		os.Chtimes(dest, d.ModTime, d.ModTime)
	}
	return nil
}

func (v *LocalCopyVisitor) End() error {
	var err error
	if v.cur != nil {
		err = v.cur.Close()
		os.Remove(v.curTemp)
		v.cur = nil
	}
	if err != nil {
		v.NotifyFailed(v.root, err, "close pending file")
	}
	v.NotifyCompleted()
	return err
}
