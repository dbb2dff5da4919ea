package visitor

import (
	"bytes"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/bamsammich/ferry/internal/event"
	"github.com/bamsammich/ferry/internal/fileservice"
)

// Compile-time interface check.
var _ Visitor = (*BufferVisitor)(nil)

// BufferEntry is one file captured by a BufferVisitor.
type BufferEntry struct {
	Descriptor fileservice.Descriptor
	Data       []byte
	Checksum   uint64 // xxhash64 of Data
}

// BufferVisitor keeps every readable file of a walk in memory. It suits a
// handful of small files (manifests, configuration) and nothing larger.
// Items that fail mid-read, or deliver fewer bytes than their listed size,
// are not recorded.
type BufferVisitor struct {
	Monitor

	root    fileservice.Descriptor
	entries []BufferEntry
	chunks  [][]byte
}

// NewBufferVisitor returns an empty BufferVisitor.
func NewBufferVisitor() *BufferVisitor {
	return &BufferVisitor{}
}

func (v *BufferVisitor) Begin(root fileservice.Descriptor) error {
	v.root = root
	v.entries = nil
	v.chunks = nil
	v.Reset(root)
	return nil
}

func (*BufferVisitor) DirectoryEntering(fileservice.Descriptor) error { return nil }

func (*BufferVisitor) UnknownEntering(fileservice.Descriptor) error { return nil }

func (v *BufferVisitor) FileOpening(d fileservice.Descriptor) error {
	v.chunks = v.chunks[:0]
	v.NotifyProgressNew(d, "", displayName(v.root, d), event.Buffering)
	return nil
}

func (v *BufferVisitor) FileContent(d fileservice.Descriptor, chunk []byte, totalRead uint64) error {
	v.chunks = append(v.chunks, bytes.Clone(chunk))
	v.NotifyProgressChanged(d, totalRead)
	return nil
}

func (v *BufferVisitor) FileClosing(d fileservice.Descriptor, totalRead uint64) error {
	if !v.ItemFailed() && !truncated(d, totalRead) {
		data := bytes.Join(v.chunks, nil)
		if data == nil {
			data = []byte{}
		}
		v.entries = append(v.entries, BufferEntry{
			Descriptor: d,
			Data:       data,
			Checksum:   xxhash.Sum64(data),
		})
	}
	v.chunks = v.chunks[:0]
	v.NotifyProgressDone(d, totalRead)
	return nil
}

func (v *BufferVisitor) End() error {
	v.chunks = nil
	v.NotifyCompleted()
	return nil
}

// Entries returns the captured files in visit order.
func (v *BufferVisitor) Entries() []BufferEntry {
	return v.entries
}

// Find returns the content of the entry whose path equals s, else whose
// name equals s, else whose path ends with s. It returns nil if nothing
// matches.
func (v *BufferVisitor) Find(s string) []byte {
	if e, ok := v.FindEntry(s); ok {
		return e.Data
	}
	return nil
}

// FindEntry is Find returning the whole entry.
func (v *BufferVisitor) FindEntry(s string) (BufferEntry, bool) {
	if s == "" {
		return BufferEntry{}, false
	}
	for _, match := range []func(BufferEntry) bool{
		func(e BufferEntry) bool { return e.Descriptor.Path == s },
		func(e BufferEntry) bool { return e.Descriptor.Name == s },
		func(e BufferEntry) bool { return strings.HasSuffix(e.Descriptor.Path, s) },
	} {
		for _, e := range v.entries {
			if match(e) {
				return e, true
			}
		}
	}
	return BufferEntry{}, false
}
