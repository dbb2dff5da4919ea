package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// ParseSize parses a human-readable size string into bytes.
// A bare single-letter suffix (100K, 1.5G) uses powers of 1024, matching
// rsync. Explicit units are passed to humanize as written, so "10MB" is SI
// and "10MiB" is IEC.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty size string")
	}

	in := s
	switch strings.ToUpper(s[len(s)-1:]) {
	case "K", "M", "G", "T", "P":
		in += "iB"
	}

	n, err := humanize.ParseBytes(in)
	if err != nil {
		return 0, fmt.Errorf("invalid size: %q", s)
	}
	if n > 1<<62 {
		return 0, fmt.Errorf("size out of range: %q", s)
	}
	return int64(n), nil
}
