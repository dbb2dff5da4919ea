package visitor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"

	"github.com/bamsammich/ferry/internal/event"
	"github.com/bamsammich/ferry/internal/fileservice"
)

// Compile-time interface check.
var _ Visitor = (*ZipPackageVisitor)(nil)

var errArchiveNotOpen = errors.New("archive not open")

// entryObserver sees every byte written to the archive. PackageVisitor uses
// it to build its manifest.
type entryObserver interface {
	entryStarted(name string)
	entryData(p []byte)
	entryDone(name string, size uint64, ok bool)
	finish(zw *zip.Writer) error
}

// ZipPackageVisitor streams a walk into a zip archive. Entry names are slash
// separated paths relative to the walk root; a single-file walk produces one
// entry named after the file. Directories get no entries of their own.
// Unreadable nodes and stream nodes (pipes, devices) become empty entries.
//
// An item that fails midway keeps whatever was already compressed; zip has
// no way to retract an entry. The failure is reported through the monitor.
type ZipPackageVisitor struct {
	Monitor

	open   func() (io.Writer, io.Closer, error)
	w      io.Writer
	closer io.Closer
	zw     *zip.Writer
	root   fileservice.Descriptor

	entry     io.Writer
	entryName string
	skipData  bool
	names     []string

	observer entryObserver
}

// NewZipPackageVisitor writes the archive to w. The caller owns w and closes
// it after End.
func NewZipPackageVisitor(w io.Writer) *ZipPackageVisitor {
	return &ZipPackageVisitor{w: w}
}

// CreateZipPackage writes the archive to a file at path, created when the
// walk begins and closed at End.
func CreateZipPackage(path string) *ZipPackageVisitor {
	return &ZipPackageVisitor{
		open: func() (io.Writer, io.Closer, error) {
			if err := os.MkdirAll(filepath.Dir(path), fileservice.DefaultFolderPerm); err != nil {
				return nil, nil, err
			}
			f, err := os.Create(path) //nolint:gosec // G304: path is the user-chosen output
			if err != nil {
				return nil, nil, err
			}
			return f, f, nil
		},
	}
}

// Entries returns the archive entry names written so far, in order.
func (v *ZipPackageVisitor) Entries() []string {
	return v.names
}

func (v *ZipPackageVisitor) Begin(root fileservice.Descriptor) error {
	v.root = root
	v.names = nil
	v.entry = nil
	v.Reset(root)

	if v.open != nil {
		w, c, err := v.open()
		if err != nil {
			return fmt.Errorf("create archive: %w", err)
		}
		v.w, v.closer = w, c
	}
	if v.w == nil {
		return errArchiveNotOpen
	}
	v.zw = zip.NewWriter(v.w)
	return nil
}

func (*ZipPackageVisitor) DirectoryEntering(fileservice.Descriptor) error { return nil }

func (v *ZipPackageVisitor) UnknownEntering(d fileservice.Descriptor) error {
	name, err := relativeTo(v.root, d)
	if err != nil {
		return err
	}
	if err := v.placeholder(name, d); err != nil {
		return err
	}
	v.names = append(v.names, name)
	if v.observer != nil {
		v.observer.entryStarted(name)
		v.observer.entryDone(name, 0, true)
	}
	return nil
}

func (v *ZipPackageVisitor) FileOpening(d fileservice.Descriptor) error {
	v.entry, v.entryName, v.skipData = nil, "", false
	name, err := relativeTo(v.root, d)
	if err != nil {
		return err
	}
	v.NotifyProgressNew(d, name, name, event.Zipping)
	v.entry, v.entryName = nil, name
	v.skipData = d.Kind() == fileservice.KindOther

	if v.skipData {
		if err := v.placeholder(name, d); err != nil {
			v.skipData = false
			return err
		}
	} else {
		if v.zw == nil {
			return errArchiveNotOpen
		}
		hdr := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: d.ModTime}
		hdr.SetMode(filePerm(d, fileservice.DefaultFilePerm))
		w, err := v.zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("add %s: %w", name, err)
		}
		v.entry = w
	}
	if v.observer != nil {
		v.observer.entryStarted(name)
	}
	return nil
}

func (v *ZipPackageVisitor) FileContent(d fileservice.Descriptor, chunk []byte, totalRead uint64) error {
	if v.skipData {
		return nil
	}
	if v.entry == nil {
		return errArchiveNotOpen
	}
	if _, err := v.entry.Write(chunk); err != nil {
		return fmt.Errorf("compress %s: %w", v.entryName, err)
	}
	if v.observer != nil {
		v.observer.entryData(chunk)
	}
	v.NotifyProgressChanged(d, totalRead)
	return nil
}

func (v *ZipPackageVisitor) FileClosing(d fileservice.Descriptor, totalRead uint64) error {
	opened := v.entry != nil || v.skipData
	if opened {
		v.names = append(v.names, v.entryName)
		if v.observer != nil {
			size := totalRead
			if v.skipData {
				size = 0
			}
			v.observer.entryDone(v.entryName, size, !v.ItemFailed() && !truncated(d, totalRead))
		}
	}
	v.entry, v.entryName, v.skipData = nil, "", false
	v.NotifyProgressDone(d, totalRead)
	return nil
}

// End finishes the archive. Finalization errors are reported as a failure
// of the root before Completed fires.
func (v *ZipPackageVisitor) End() error {
	err := v.finish()
	if err != nil {
		v.NotifyFailed(v.root, err, "finish archive")
	}
	v.NotifyCompleted()
	return err
}

func (v *ZipPackageVisitor) finish() error {
	var errs []error
	if v.zw != nil {
		if v.observer != nil {
			errs = append(errs, v.observer.finish(v.zw))
		}
		errs = append(errs, v.zw.Close())
		v.zw = nil
	}
	if v.closer != nil {
		errs = append(errs, v.closer.Close())
		v.closer, v.w = nil, nil
	}
	return errors.Join(errs...)
}

func (v *ZipPackageVisitor) placeholder(name string, d fileservice.Descriptor) error {
	if v.zw == nil {
		return errArchiveNotOpen
	}
	hdr := &zip.FileHeader{Name: name, Method: zip.Store, Modified: d.ModTime}
	hdr.SetMode(fileservice.DefaultFilePerm)
	if _, err := v.zw.CreateHeader(hdr); err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	return nil
}
