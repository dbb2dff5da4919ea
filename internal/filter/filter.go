// Package filter decides which nodes of a walk are visited. Rules are
// rsync-style globs evaluated against the path relative to the walk root;
// the first matching rule wins and unmatched paths are included.
package filter

import "github.com/bamsammich/ferry/internal/fileservice"

// Rule represents a single include or exclude filter rule.
type Rule struct {
	Pattern *compiledPattern
	Include bool
}

// Chain holds an ordered list of filter rules plus size bounds.
type Chain struct {
	rules   []Rule
	minSize int64
	maxSize int64
}

// NewChain creates an empty filter chain.
func NewChain() *Chain {
	return &Chain{}
}

// AddExclude adds an exclude rule for the given pattern.
func (c *Chain) AddExclude(pattern string) error {
	return c.add(pattern, false)
}

// AddInclude adds an include rule for the given pattern.
func (c *Chain) AddInclude(pattern string) error {
	return c.add(pattern, true)
}

func (c *Chain) add(pattern string, include bool) error {
	cp, err := compilePattern(pattern)
	if err != nil {
		return err
	}
	c.rules = append(c.rules, Rule{Pattern: cp, Include: include})
	return nil
}

// SetMinSize sets the minimum file size.
func (c *Chain) SetMinSize(n int64) { c.minSize = n }

// SetMaxSize sets the maximum file size.
func (c *Chain) SetMaxSize(n int64) { c.maxSize = n }

// Empty reports whether the chain has no rules and no size bounds.
func (c *Chain) Empty() bool {
	return c == nil || (len(c.rules) == 0 && c.minSize == 0 && c.maxSize == 0)
}

// Match reports whether relPath should be visited. Size bounds apply to
// regular files only.
func (c *Chain) Match(relPath string, isDir bool, size int64) bool {
	if !isDir {
		if c.minSize > 0 && size < c.minSize {
			return false
		}
		if c.maxSize > 0 && size > c.maxSize {
			return false
		}
	}

	for _, rule := range c.rules {
		if rule.Pattern.match(relPath, isDir) {
			return rule.Include
		}
	}
	return true
}

// Allows applies the chain to a walk node. Size bounds only constrain
// nodes whose size is known (regular files); a nil chain allows everything.
func (c *Chain) Allows(relPath string, d fileservice.Descriptor) bool {
	if c.Empty() {
		return true
	}
	if !d.IsFile {
		for _, rule := range c.rules {
			if rule.Pattern.match(relPath, d.IsDirectory) {
				return rule.Include
			}
		}
		return true
	}
	return c.Match(relPath, false, int64(d.Size)) //nolint:gosec // G115: file sizes fit int64
}
