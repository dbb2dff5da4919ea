package visitor

import (
	"fmt"

	"github.com/bamsammich/ferry/internal/event"
	"github.com/bamsammich/ferry/internal/fileservice"
)

// Compile-time interface check.
var _ Visitor = (*TargetCopyVisitor)(nil)

// TargetCopyVisitor writes a walk to a file service, typically a device.
// Paths follow the same layout as LocalCopyVisitor, joined with slashes.
//
// The service has no rename, so an item that fails or is cancelled midway
// leaves a truncated file on the target. Such items are reported as failed.
type TargetCopyVisitor struct {
	Monitor

	svc    fileservice.Service
	output string
	root   fileservice.Descriptor

	cur     fileservice.Handle
	curOpen bool
	curDest string
}

// NewTargetCopyVisitor copies into output on svc.
func NewTargetCopyVisitor(svc fileservice.Service, output string) *TargetCopyVisitor {
	return &TargetCopyVisitor{svc: svc, output: output}
}

// Destination maps a walk node to its path on the target. A node that
// would land outside the output yields fileservice.ErrUnsafePath.
func (v *TargetCopyVisitor) Destination(d fileservice.Descriptor) (string, error) {
	if !v.root.IsDirectory {
		return v.output, nil
	}
	rel, err := relativeToParent(v.root, d)
	if err != nil {
		return "", err
	}
	return fileservice.JoinDevice(v.output, rel), nil
}

func (v *TargetCopyVisitor) Begin(root fileservice.Descriptor) error {
	v.root = root
	v.curOpen = false
	v.Reset(root)
	if v.svc == nil {
		return fileservice.ErrNilService
	}

	dir := fileservice.ParentPath(v.output)
	if root.IsDirectory {
		dir = fileservice.JoinDevice(v.output, rootName(root))
	}
	if err := v.svc.CreateFolder(dir, fileservice.DefaultFolderPerm); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}

func (v *TargetCopyVisitor) DirectoryEntering(d fileservice.Descriptor) error {
	dest, err := v.Destination(d)
	if err != nil {
		return err
	}
	if err := v.svc.CreateFolder(dest, filePerm(d, fileservice.DefaultFolderPerm)); err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	return nil
}

func (v *TargetCopyVisitor) UnknownEntering(d fileservice.Descriptor) error {
	dest, err := v.Destination(d)
	if err != nil {
		return err
	}
	h, err := v.svc.CreateFile(dest, fileservice.DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("placeholder %s: %w", dest, err)
	}
	return v.svc.Close(h)
}

func (v *TargetCopyVisitor) FileOpening(d fileservice.Descriptor) error {
	dest, err := v.Destination(d)
	if err != nil {
		return err
	}
	v.NotifyProgressNew(d, dest, displayName(v.root, d), event.Uploading)

	h, err := v.svc.CreateFile(dest, filePerm(d, fileservice.DefaultFilePerm))
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	v.cur, v.curOpen, v.curDest = h, true, dest
	return nil
}

func (v *TargetCopyVisitor) FileContent(d fileservice.Descriptor, chunk []byte, totalRead uint64) error {
	if !v.curOpen {
		return errNoOpenFile
	}
	n, err := v.svc.Write(v.cur, chunk)
	if err != nil {
		return fmt.Errorf("write %s: %w", v.curDest, err)
	}
	if n < len(chunk) {
		return fmt.Errorf("write %s: %d of %d bytes: %w", v.curDest, n, len(chunk), fileservice.ErrShortWrite)
	}
	v.NotifyProgressChanged(d, totalRead)
	return nil
}

func (v *TargetCopyVisitor) FileClosing(d fileservice.Descriptor, totalRead uint64) error {
	defer v.NotifyProgressDone(d, totalRead)
	if !v.curOpen {
		return nil
	}
	h, dest := v.cur, v.curDest
	v.curOpen, v.curDest = false, ""
	if err := v.svc.Close(h); err != nil {
		return fmt.Errorf("close %s: %w", dest, err)
	}
	return nil
}

func (v *TargetCopyVisitor) End() error {
	var err error
	if v.curOpen {
		err = v.svc.Close(v.cur)
		v.curOpen = false
	}
	if err != nil {
		v.NotifyFailed(v.root, err, "close pending file")
	}
	v.NotifyCompleted()
	return err
}
