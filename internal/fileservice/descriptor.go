package fileservice

import (
	"os"
	"path"
	"strings"
	"time"
)

// Kind classifies a namespace entry.
type Kind int

const (
	KindOther Kind = iota
	KindFile
	KindDirectory
	KindNoAccess
)

var kindNames = [...]string{
	KindOther:     "other",
	KindFile:      "file",
	KindDirectory: "directory",
	KindNoAccess:  "no-access",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Descriptor describes a single node in a local or remote namespace.
// Descriptors are produced by Stat/List and are never modified afterwards.
type Descriptor struct {
	ModTime     time.Time
	Path        string
	Name        string
	Size        uint64 // files only
	Mode        os.FileMode
	IsDirectory bool
	IsFile      bool
	NoAccess    bool // exists but cannot be opened or listed
}

// Kind reports which of the mutually exclusive node kinds d holds.
func (d Descriptor) Kind() Kind {
	switch {
	case d.NoAccess:
		return KindNoAccess
	case d.IsDirectory:
		return KindDirectory
	case d.IsFile:
		return KindFile
	default:
		return KindOther
	}
}

// Readable reports whether the node's content can be streamed (files and
// "other" nodes such as pipes or device files).
func (d Descriptor) Readable() bool {
	k := d.Kind()
	return k == KindFile || k == KindOther
}

// Unknown returns the placeholder descriptor reported when the root of a
// walk cannot be resolved.
func Unknown(p string) Descriptor {
	return Descriptor{Path: p, Name: BaseName(p)}
}

// BaseName returns the last segment of p for either slash style, ignoring
// trailing separators.
func BaseName(p string) string {
	trimmed := strings.TrimRight(p, `/\`)
	if trimmed == "" {
		return p
	}
	if i := strings.LastIndexAny(trimmed, `/\`); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// JoinDevice joins remote device path segments. Device paths are always
// slash separated regardless of the host OS.
func JoinDevice(elem ...string) string {
	return path.Join(elem...)
}

// classify fills the kind flags of d from a file mode. Callers handle the
// NoAccess cases they can detect before calling.
func classify(d *Descriptor, mode os.FileMode, size int64) {
	d.Mode = mode
	switch {
	case mode.IsDir():
		d.IsDirectory = true
	case mode.IsRegular():
		d.IsFile = true
		d.Size = uint64(size) //nolint:gosec // G115: sizes are non-negative
	case mode&os.ModeSocket != 0:
		d.NoAccess = true
	default:
		// pipes and device files are streamed as-is
	}
}
