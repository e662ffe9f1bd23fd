package aggregation

import (
	"sort"
	"strings"

	"github.com/masmgr/commitrounds/internal/bugfix"
	"github.com/masmgr/commitrounds/internal/coupling"
	"github.com/masmgr/commitrounds/internal/entropy"
	"github.com/masmgr/commitrounds/internal/git"
)

// DefaultTrivialPatterns name files whose changes never make an accumulation
// worth explaining on their own.
var DefaultTrivialPatterns = []string{
	"README*",
	"CHANGELOG*",
	"LICENSE*",
	"COPYING*",
	".gitignore",
	".gitattributes",
	".editorconfig",
	"*.lock",
	"go.sum",
	"package-lock.json",
}

// ContextMetrics summarizes an accumulation of consecutive commit deltas.
type ContextMetrics struct {
	CommitCount     int
	FirstIndex      int
	LastIndex       int
	FileCount       int // distinct paths, renames followed
	DirectoryCount  int
	SubsystemCount  int
	LinesAdded      int
	LinesDeleted    int
	ChangeEntropy   float64
	MeaningfulFiles int // text, non-trivial, non-zero churn
	BinaryFiles     int
	TrivialFiles    int
	Authors         int
	FixCommits      int
	Files           []*FileMetrics // sorted by churn, descending
	// Couplings lists files changed together in more than one commit.
	Couplings []coupling.ChangeCoupling
}

// TotalChurn returns the total lines changed (added + deleted).
func (m ContextMetrics) TotalChurn() int {
	return m.LinesAdded + m.LinesDeleted
}

// TopFiles returns at most n files with the highest churn.
func (m ContextMetrics) TopFiles(n int) []*FileMetrics {
	if n <= 0 || n >= len(m.Files) {
		return m.Files
	}
	return m.Files[:n]
}

// ContextCalculator computes ContextMetrics.
type ContextCalculator struct {
	trivialPatterns   []string
	entropyCalculator *entropy.Calculator
	fixDetector       *bugfix.Detector
	couplingAnalyzer  *coupling.Analyzer
}

// NewContextCalculator creates a calculator. A nil pattern list selects
// DefaultTrivialPatterns; an empty non-nil list disables trivial matching.
func NewContextCalculator(trivialPatterns []string) *ContextCalculator {
	if trivialPatterns == nil {
		trivialPatterns = DefaultTrivialPatterns
	}
	return &ContextCalculator{
		trivialPatterns:   trivialPatterns,
		entropyCalculator: entropy.NewCalculator(),
		fixDetector:       bugfix.DefaultDetector(),
		couplingAnalyzer:  coupling.NewAnalyzer(coupling.DefaultOptions()),
	}
}

// WithFixDetector replaces the detector counting fix commits.
func (c *ContextCalculator) WithFixDetector(d *bugfix.Detector) *ContextCalculator {
	if d != nil {
		c.fixDetector = d
	}
	return c
}

// IsTrivial reports whether path matches a trivial pattern.
func (c *ContextCalculator) IsTrivial(path string) bool {
	return git.MatchAny(c.trivialPatterns, path)
}

// Calculate computes metrics over deltas, which must be in history order.
func (c *ContextCalculator) Calculate(deltas []git.CommitDelta) ContextMetrics {
	m := ContextMetrics{CommitCount: len(deltas)}
	if len(deltas) == 0 {
		return m
	}
	m.FirstIndex = deltas[0].Commit.Index
	m.LastIndex = deltas[len(deltas)-1].Commit.Index

	authors := make(map[string]struct{})
	for _, d := range deltas {
		authors[d.Commit.Author.ContributorKey()] = struct{}{}
		m.LinesAdded += d.LinesAdded()
		m.LinesDeleted += d.LinesDeleted()
	}
	m.Authors = len(authors)

	files := NewFileMetricsAggregator().Process(deltas)
	directories := make(map[string]struct{})
	subsystems := make(map[string]struct{})

	m.Files = make([]*FileMetrics, 0, len(files))
	for _, f := range files {
		m.Files = append(m.Files, f)

		dir, subsystem := extractPathComponents(f.Path)
		if dir != "" {
			directories[strings.ToLower(dir)] = struct{}{}
		}
		if subsystem != "" {
			subsystems[strings.ToLower(subsystem)] = struct{}{}
		}

		trivial := c.IsTrivial(f.Path)
		switch {
		case f.Binary:
			m.BinaryFiles++
		case trivial:
			m.TrivialFiles++
		case f.ChurnTotal() > 0:
			m.MeaningfulFiles++
		}
	}

	sort.Slice(m.Files, func(i, j int) bool {
		if m.Files[i].ChurnTotal() != m.Files[j].ChurnTotal() {
			return m.Files[i].ChurnTotal() > m.Files[j].ChurnTotal()
		}
		return m.Files[i].Path < m.Files[j].Path
	})

	m.FileCount = len(m.Files)
	m.DirectoryCount = len(directories)
	m.SubsystemCount = len(subsystems)
	if m.SubsystemCount == 0 && m.FileCount > 0 {
		m.SubsystemCount = 1
	}
	m.ChangeEntropy = c.entropyCalculator.CalculateAccumulatedEntropy(deltas)
	m.FixCommits = c.fixDetector.Detect(deltas).Total
	m.Couplings = c.couplingAnalyzer.Analyze(deltas).Couplings
	return m
}
