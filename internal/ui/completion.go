package ui

import (
	"fmt"
	"path"
	"strings"

	"github.com/bamsammich/ferry/internal/stats"
)

// CompletionSummary builds a final summary line from a snapshot.
// Format: done ✓  files 48,917  size 2.1 GiB  avg 641 MB/s  time 3m 17s  errors 0
func CompletionSummary(snap stats.Snapshot) string {
	icon := "✓"
	if snap.Failures > 0 {
		icon = "✗"
	}

	base := fmt.Sprintf("done %s  files %s  size %s  avg %s  time %s",
		icon,
		FormatCount(snap.Files),
		FormatBytes(snap.Bytes),
		FormatRate(snap.Rate()),
		FormatDuration(snap.Elapsed),
	)
	if snap.Dirs > 0 || snap.Unknown > 0 {
		base += fmt.Sprintf("  dirs %s  unreadable %s", FormatCount(snap.Dirs), FormatCount(snap.Unknown))
	}
	return base + fmt.Sprintf("  errors %d", snap.Failures)
}

// StripRoot returns p relative to root, or p unchanged when it is not
// below root.
func StripRoot(root, p string) string {
	if root == "" {
		return p
	}
	r := strings.TrimSuffix(root, "/")
	if rel, ok := strings.CutPrefix(p, r+"/"); ok {
		return rel
	}
	if p == r {
		return path.Base(p)
	}
	return p
}
