package filter

import (
	"strings"

	"github.com/gobwas/glob"
)

// compiledPattern is a compiled rsync-style glob that matches relative paths.
type compiledPattern struct {
	globs    []glob.Glob // one per "**/" expansion
	original string
	anchored bool // pattern starts with / or contains /
	dirOnly  bool // pattern ends with /
}

// compilePattern compiles an rsync-style glob. "*" and "?" never cross a
// path separator; "**" does, and "**/" also matches zero directories.
func compilePattern(pattern string) (*compiledPattern, error) {
	cp := &compiledPattern{original: pattern}

	if strings.HasSuffix(pattern, "/") {
		cp.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}

	if strings.HasPrefix(pattern, "/") {
		cp.anchored = true
		pattern = strings.TrimPrefix(pattern, "/")
	} else if strings.Contains(pattern, "/") {
		cp.anchored = true
	}

	for _, variant := range expandDoubleStar(pattern) {
		g, err := glob.Compile(variant, '/')
		if err != nil {
			return nil, err
		}
		cp.globs = append(cp.globs, g)
	}
	return cp, nil
}

// match tests whether a relative path matches this pattern. Unanchored
// patterns match the basename or any trailing run of path segments.
func (cp *compiledPattern) match(relPath string, isDir bool) bool {
	if cp.dirOnly && !isDir {
		return false
	}
	if cp.matchExact(relPath) {
		return true
	}
	if cp.anchored {
		return false
	}
	for i := range len(relPath) {
		if relPath[i] == '/' && cp.matchExact(relPath[i+1:]) {
			return true
		}
	}
	return false
}

func (cp *compiledPattern) matchExact(s string) bool {
	for _, g := range cp.globs {
		if g.Match(s) {
			return true
		}
	}
	return false
}

// expandDoubleStar returns every variant of pattern in which each "**/"
// is either kept or removed.
func expandDoubleStar(pattern string) []string {
	i := strings.Index(pattern, "**/")
	if i < 0 {
		return []string{pattern}
	}
	head, tail := pattern[:i], pattern[i+3:]
	var out []string
	for _, rest := range expandDoubleStar(tail) {
		out = append(out, head+"**/"+rest, head+rest)
	}
	return out
}
