// Package visitor holds the sinks driven by an enumeration walk.
//
// A walk calls, in order: Begin once; any sequence of DirectoryEntering,
// UnknownEntering or FileOpening → FileContent* → FileClosing; then End
// once. Failure may interleave at any point and never ends the sequence.
// Errors returned by a callback are logged by the enumerator and reported
// back through Failure; the walk continues with the next node.
package visitor

import "github.com/bamsammich/ferry/internal/fileservice"

// Visitor consumes a walk.
type Visitor interface {
	// Begin announces the walk root. A root that could not be resolved is
	// passed as fileservice.Unknown(path) and followed by Failure and End.
	Begin(root fileservice.Descriptor) error

	// DirectoryEntering is called for every directory below the root,
	// before its children are visited.
	DirectoryEntering(d fileservice.Descriptor) error

	// UnknownEntering is called for nodes that exist but cannot be read.
	UnknownEntering(d fileservice.Descriptor) error

	// FileOpening starts a file or stream node. FileClosing always follows,
	// even when FileOpening or a later read fails.
	FileOpening(d fileservice.Descriptor) error

	// FileContent delivers the next chunk. totalRead includes chunk. The
	// chunk is only valid for the duration of the call.
	FileContent(d fileservice.Descriptor, chunk []byte, totalRead uint64) error

	// FileClosing ends the current node with the number of bytes read.
	FileClosing(d fileservice.Descriptor, totalRead uint64) error

	// End is called exactly once per Begin, also after cancellation.
	End() error

	// Failure reports a per-node error.
	Failure(d fileservice.Descriptor, err error, message string)

	// IsCancelled is polled before every node and every chunk.
	IsCancelled() bool
}
