// Package bugfix recognizes commits whose messages describe a fix.
package bugfix

import (
	"regexp"
	"strings"

	"github.com/masmgr/commitrounds/internal/git"
)

// DefaultPatterns match the usual fix vocabulary in commit subjects.
var DefaultPatterns = []string{
	`\bfix(e[sd])?\b`,
	`\bbug\b`,
	`\bhotfix\b`,
	`\bresolve[sd]?\b`,
}

// Result holds the fix commits found in a run of deltas.
type Result struct {
	// Commits is the set of hashes identified as fixes.
	Commits map[string]struct{}
	// FileCounts maps file paths to the number of fix commits that touched them.
	FileCounts map[string]int
	// Total is the number of fix commits.
	Total int
}

// Detector detects fix commits by matching commit messages against regex patterns.
type Detector struct {
	patterns []*regexp.Regexp
}

// NewDetector creates a new Detector from a list of regex pattern strings.
// Patterns are compiled as case-insensitive; blank ones are skipped.
func NewDetector(patterns []string) (*Detector, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "(?i)") {
			p = "(?i)" + p
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return &Detector{patterns: compiled}, nil
}

// DefaultDetector returns a detector using DefaultPatterns.
func DefaultDetector() *Detector {
	d, err := NewDetector(DefaultPatterns)
	if err != nil {
		panic(err)
	}
	return d
}

// IsFix reports whether message matches any pattern.
func (d *Detector) IsFix(message string) bool {
	for _, re := range d.patterns {
		if re.MatchString(message) {
			return true
		}
	}
	return false
}

// Detect scans deltas for fix commits. Deleted files are not counted.
func (d *Detector) Detect(deltas []git.CommitDelta) Result {
	result := Result{
		Commits:    make(map[string]struct{}),
		FileCounts: make(map[string]int),
	}
	if len(d.patterns) == 0 {
		return result
	}

	for _, delta := range deltas {
		if !d.IsFix(delta.Commit.Message) {
			continue
		}
		result.Commits[delta.Commit.Hash] = struct{}{}
		result.Total++

		for _, change := range delta.Changes {
			if change.Kind == git.ChangeKindDeleted {
				continue
			}
			result.FileCounts[change.Path]++
		}
	}
	return result
}
