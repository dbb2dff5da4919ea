package proto

import (
	"os"
	"time"

	"github.com/bamsammich/ferry/internal/fileservice"
)

// ToDescriptor converts a wire DescriptorMsg to a fileservice.Descriptor.
func ToDescriptor(m DescriptorMsg) fileservice.Descriptor {
	d := fileservice.Descriptor{
		Path:        m.Path,
		Name:        m.Name,
		Size:        m.Size,
		Mode:        os.FileMode(m.Mode),
		IsDirectory: m.IsDirectory,
		IsFile:      m.IsFile,
		NoAccess:    m.NoAccess,
	}
	if m.ModTime != 0 {
		d.ModTime = time.Unix(0, m.ModTime)
	}
	return d
}

// FromDescriptor converts a fileservice.Descriptor to a wire DescriptorMsg.
func FromDescriptor(d fileservice.Descriptor) DescriptorMsg {
	m := DescriptorMsg{
		Path:        d.Path,
		Name:        d.Name,
		Size:        d.Size,
		Mode:        uint32(d.Mode),
		IsDirectory: d.IsDirectory,
		IsFile:      d.IsFile,
		NoAccess:    d.NoAccess,
	}
	if !d.ModTime.IsZero() {
		m.ModTime = d.ModTime.UnixNano()
	}
	return m
}
