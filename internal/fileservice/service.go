package fileservice

import (
	"errors"
	"os"
)

// ChunkSize is the read/write unit shared by services, enumerators and
// visitors so buffer sizes agree end to end.
const ChunkSize = 64 * 1024

// DefaultFolderPerm and DefaultFilePerm are used when creating nodes whose
// source permissions are unknown.
const (
	DefaultFolderPerm os.FileMode = 0o755
	DefaultFilePerm   os.FileMode = 0o644
)

// Handle identifies an open file on a Service. Handles are only meaningful
// to the Service that issued them.
type Handle uint32

// OpenMode selects how Open accesses a file.
type OpenMode uint8

const (
	OpenRead OpenMode = 1 << iota
	OpenWrite
	OpenTruncate
	OpenAppend

	OpenReadWrite = OpenRead | OpenWrite
)

// Errors shared by all Service implementations.
var (
	// ErrClosed is returned for operations on a handle that was already
	// closed or never issued.
	ErrClosed = errors.New("file handle closed")

	// ErrShortWrite reports a write that stored fewer bytes than requested.
	ErrShortWrite = errors.New("short write")

	// ErrShortRead reports a file that ended before its listed size.
	ErrShortRead = errors.New("short read")

	// ErrNilService is returned when a nil Service is supplied.
	ErrNilService = errors.New("nil file service")

	// ErrUnsafePath reports a listed node whose path is not a plain child
	// of its directory, or that would land outside a destination root.
	ErrUnsafePath = errors.New("path escapes its root")
)

// Service is the narrow file protocol exposed by a device (or the local OS).
// Implementations are not required to be safe for concurrent use; one walk
// owns a Service for its whole duration.
type Service interface {
	// Stat resolves path to a descriptor. followLinks selects stat vs lstat
	// semantics for the final path element.
	Stat(path string, followLinks bool) (*Descriptor, error)

	// List returns the immediate children of a directory.
	List(dir Descriptor) ([]Descriptor, error)

	// Open opens path. When create is set a missing file is created with perm.
	Open(path string, mode OpenMode, perm os.FileMode, create bool) (Handle, error)

	// Read returns up to maxLength bytes starting at offset. An empty slice
	// with a nil error means end of file.
	Read(h Handle, offset int64, maxLength int) ([]byte, error)

	// Write appends data at the handle's current position and reports how
	// many bytes were stored.
	Write(h Handle, data []byte) (int, error)

	// CreateFolder creates a directory; an existing directory is not an error.
	CreateFolder(path string, perm os.FileMode) error

	// CreateFile creates or truncates path and returns a write handle.
	CreateFile(path string, perm os.FileMode) (Handle, error)

	// Close releases h.
	Close(h Handle) error
}
