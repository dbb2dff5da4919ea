package visitor

import (
	"log/slog"

	"github.com/bamsammich/ferry/internal/event"
	"github.com/bamsammich/ferry/internal/fileservice"
	"github.com/bamsammich/ferry/internal/stats"
)

// Compile-time interface check.
var _ Visitor = (*LoggingVisitor)(nil)

// LoggingVisitor writes every callback to a logger at debug level and
// counts what it sees. It has no other side effect, which makes it the
// visitor behind dry runs and disk-usage reports.
type LoggingVisitor struct {
	Monitor

	log   *slog.Logger
	stats *stats.Collector
	root  fileservice.Descriptor
}

// NewLoggingVisitor logs to logger, or slog.Default() when nil.
func NewLoggingVisitor(logger *slog.Logger) *LoggingVisitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingVisitor{log: logger, stats: stats.NewCollector()}
}

// Stats returns the counters of the current walk.
func (v *LoggingVisitor) Stats() *stats.Collector { return v.stats }

func (v *LoggingVisitor) Begin(root fileservice.Descriptor) error {
	v.root = root
	v.stats = stats.NewCollector()
	v.Reset(root)
	v.log.Debug("begin", "path", root.Path, "kind", root.Kind())
	return nil
}

func (v *LoggingVisitor) DirectoryEntering(d fileservice.Descriptor) error {
	v.stats.AddDirs(1)
	v.log.Debug("directory", "path", d.Path)
	return nil
}

func (v *LoggingVisitor) UnknownEntering(d fileservice.Descriptor) error {
	v.stats.AddUnknown(1)
	v.log.Debug("unknown", "path", d.Path, "kind", d.Kind())
	return nil
}

func (v *LoggingVisitor) FileOpening(d fileservice.Descriptor) error {
	v.stats.AddFilesOpened(1)
	v.stats.AddBytesTotal(int64(d.Size)) //nolint:gosec // G115: sizes fit int64
	v.NotifyProgressNew(d, "", displayName(v.root, d), event.Unknown)
	v.log.Debug("open", "path", d.Path, "size", d.Size)
	return nil
}

func (v *LoggingVisitor) FileContent(d fileservice.Descriptor, chunk []byte, totalRead uint64) error {
	v.stats.AddBytes(int64(len(chunk)))
	v.NotifyProgressChanged(d, totalRead)
	return nil
}

func (v *LoggingVisitor) FileClosing(d fileservice.Descriptor, totalRead uint64) error {
	v.stats.AddFiles(1)
	v.NotifyProgressDone(d, totalRead)
	v.log.Debug("close", "path", d.Path, "read", totalRead)
	return nil
}

func (v *LoggingVisitor) End() error {
	v.log.Debug("end", "path", v.root.Path, "stats", v.stats.Snapshot().String())
	v.NotifyCompleted()
	return nil
}

// Failure counts the failure and forwards it to the monitor.
func (v *LoggingVisitor) Failure(d fileservice.Descriptor, err error, message string) {
	v.stats.AddFailures(1)
	v.log.Debug("failure", "path", d.Path, "msg", message, "error", err)
	v.Monitor.Failure(d, err, message)
}
