// Package stats counts what a walk visited. Counters are atomic so a
// presenter may read them while the walk is still writing.
package stats

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Collector accumulates walk counters.
type Collector struct {
	start time.Time

	files       atomic.Int64
	filesOpened atomic.Int64
	bytes       atomic.Int64
	bytesTotal  atomic.Int64
	dirs        atomic.Int64
	unknown     atomic.Int64
	failures    atomic.Int64
}

// NewCollector returns a Collector whose clock starts now.
func NewCollector() *Collector {
	return &Collector{start: time.Now()}
}

func (c *Collector) AddFiles(n int64)       { c.files.Add(n) }
func (c *Collector) AddFilesOpened(n int64) { c.filesOpened.Add(n) }
func (c *Collector) AddBytes(n int64)       { c.bytes.Add(n) }
func (c *Collector) AddBytesTotal(n int64)  { c.bytesTotal.Add(n) }
func (c *Collector) AddDirs(n int64)        { c.dirs.Add(n) }
func (c *Collector) AddUnknown(n int64)     { c.unknown.Add(n) }
func (c *Collector) AddFailures(n int64)    { c.failures.Add(n) }

// Elapsed returns the time since the collector was created.
func (c *Collector) Elapsed() time.Duration { return time.Since(c.start) }

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Files       int64 // files closed
	FilesOpened int64
	Bytes       int64
	BytesTotal  int64 // sum of announced sizes
	Dirs        int64
	Unknown     int64
	Failures    int64
	Elapsed     time.Duration
}

// Snapshot reads every counter. Counters are read one at a time, so a
// snapshot taken mid-walk may be off by the item in flight.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		Files:       c.files.Load(),
		FilesOpened: c.filesOpened.Load(),
		Bytes:       c.bytes.Load(),
		BytesTotal:  c.bytesTotal.Load(),
		Dirs:        c.dirs.Load(),
		Unknown:     c.unknown.Load(),
		Failures:    c.failures.Load(),
		Elapsed:     c.Elapsed(),
	}
}

// Rate is the average throughput in bytes per second, 0 before any time
// has passed.
func (s Snapshot) Rate() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Bytes) / s.Elapsed.Seconds()
}

func (s Snapshot) String() string {
	return fmt.Sprintf("files=%d bytes=%d dirs=%d unknown=%d failures=%d",
		s.Files, s.Bytes, s.Dirs, s.Unknown, s.Failures)
}

// FormatBytes renders b with IEC units ("1.5 MiB").
func FormatBytes(b int64) string {
	if b < 0 {
		return "-" + humanize.IBytes(uint64(-b))
	}
	return humanize.IBytes(uint64(b))
}
