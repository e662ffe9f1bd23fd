package git

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// PathFilter applies include/exclude glob patterns to repository paths.
// Exclude wins over include; with no include patterns every path is accepted.
type PathFilter struct {
	include []string
	exclude []string
}

// NewPathFilter validates the patterns and builds a filter.
func NewPathFilter(include, exclude []string) (*PathFilter, error) {
	for _, p := range include {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid include pattern %q", p)
		}
	}
	for _, p := range exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	return &PathFilter{include: include, exclude: exclude}, nil
}

// Match reports whether path passes the filter. A nil filter accepts all.
func (f *PathFilter) Match(path string) bool {
	if f == nil {
		return true
	}
	// Normalize path separators
	path = strings.ReplaceAll(path, "\\", "/")

	for _, pattern := range f.exclude {
		if matched, _ := doublestar.Match(pattern, path); matched {
			return false
		}
	}

	if len(f.include) == 0 {
		return true
	}

	for _, pattern := range f.include {
		if matched, _ := doublestar.Match(pattern, path); matched {
			return true
		}
	}
	return false
}

// MatchAny reports whether path matches at least one pattern. Invalid
// patterns never match.
func MatchAny(patterns []string, path string) bool {
	path = strings.ReplaceAll(path, "\\", "/")
	base := path
	if idx := strings.LastIndexByte(path, '/'); idx != -1 {
		base = path[idx+1:]
	}
	for _, pattern := range patterns {
		target := path
		if !strings.Contains(pattern, "/") {
			target = base
		}
		if matched, _ := doublestar.Match(pattern, target); matched {
			return true
		}
	}
	return false
}
