package fileservice

import (
	"path"
	"strings"
)

// Paths handed to these helpers may be local OS paths or device paths.
// Both are compared in slash form.

func slashPath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}

// cleanSlash is slashPath followed by lexical cleaning; "" becomes ".".
func cleanSlash(p string) string {
	return path.Clean(strings.ReplaceAll(p, `\`, "/"))
}

// RelativePath returns p relative to base, slash separated. ok is false
// when p is not base or below it once both are cleaned, so a path that
// climbs out through ".." segments is never relative. p == base yields "".
func RelativePath(base, p string) (rel string, ok bool) {
	b, s := cleanSlash(base), cleanSlash(p)
	switch {
	case s == b:
		return "", true
	case b == "/":
		if !strings.HasPrefix(s, "/") {
			return "", false
		}
		rel = s[1:]
	case b == ".":
		if path.IsAbs(s) {
			return "", false
		}
		rel = s
	case strings.HasPrefix(s, b+"/"):
		rel = s[len(b)+1:]
	default:
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

// ValidName reports whether name is usable as a single path element.
func ValidName(name string) bool {
	switch name {
	case "", ".", "..":
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

// IsChild reports whether c, as returned by listing dir, names a direct
// child of dir: its Name is a single element and its Path is dir joined
// with that Name.
func IsChild(dir string, c Descriptor) bool {
	if !ValidName(c.Name) {
		return false
	}
	return cleanSlash(c.Path) == path.Join(cleanSlash(dir), c.Name)
}

// ParentPath returns the directory containing p, in slash form. The parent
// of a top-level entry is "/" for absolute paths and "" for relative ones.
func ParentPath(p string) string {
	s := slashPath(p)
	i := strings.LastIndex(s, "/")
	switch {
	case i < 0:
		return ""
	case i == 0:
		return "/"
	default:
		return s[:i]
	}
}
