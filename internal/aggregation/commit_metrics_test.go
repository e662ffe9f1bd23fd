package aggregation

import (
	"strings"
	"testing"

	"github.com/masmgr/commitrounds/internal/git"
)

func TestCommitMetrics_TotalChurn(t *testing.T) {
	tests := []struct {
		name     string
		added    int
		deleted  int
		expected int
	}{
		{name: "Both positive", added: 10, deleted: 5, expected: 15},
		{name: "Only added", added: 10, deleted: 0, expected: 10},
		{name: "Both zero", added: 0, deleted: 0, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cm := &CommitMetrics{LinesAdded: tt.added, LinesDeleted: tt.deleted}
			result := cm.TotalChurn()
			if result != tt.expected {
				t.Errorf("TotalChurn() = %d, expected %d", result, tt.expected)
			}
		})
	}
}

func TestExtractPathComponents(t *testing.T) {
	tests := []struct {
		name              string
		path              string
		expectedDir       string
		expectedSubsystem string
	}{
		{name: "Normal path", path: "src/pkg/main.go", expectedDir: "src/pkg", expectedSubsystem: "src"},
		{name: "Root file", path: "main.go", expectedDir: "", expectedSubsystem: ""},
		{name: "Single directory", path: "cmd/app.go", expectedDir: "cmd", expectedSubsystem: "cmd"},
		{name: "Deep nesting", path: "a/b/c/d/e.go", expectedDir: "a/b/c/d", expectedSubsystem: "a"},
		{name: "Windows path", path: "src\\pkg\\main.go", expectedDir: "src/pkg", expectedSubsystem: "src"},
		{name: "Empty path", path: "", expectedDir: "", expectedSubsystem: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, subsystem := extractPathComponents(tt.path)
			if dir != tt.expectedDir {
				t.Errorf("extractPathComponents(%q) dir = %q, expected %q", tt.path, dir, tt.expectedDir)
			}
			if subsystem != tt.expectedSubsystem {
				t.Errorf("extractPathComponents(%q) subsystem = %q, expected %q", tt.path, subsystem, tt.expectedSubsystem)
			}
		})
	}
}

func TestTruncateMessage(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		expected string
	}{
		{name: "Short message", message: "fix bug", expected: "fix bug"},
		{name: "Empty message", message: "", expected: ""},
		{name: "Exactly 100 chars", message: strings.Repeat("a", 100), expected: strings.Repeat("a", 100)},
		{name: "Over 100 chars", message: strings.Repeat("a", 110), expected: strings.Repeat("a", 97) + "..."},
		{name: "Multi-line with LF", message: "first line\nsecond line", expected: "first line"},
		{name: "Multi-line with CRLF", message: "first line\r\nsecond line", expected: "first line"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := truncateMessage(tt.message)
			if result != tt.expected {
				t.Errorf("truncateMessage(%q) = %q, expected %q", tt.message, result, tt.expected)
			}
		})
	}
}

func TestCommitMetricsCalculator_Calculate(t *testing.T) {
	calc := NewCommitMetricsCalculator()

	delta := git.CommitDelta{
		Commit: git.Commit{Index: 3, Hash: "abc", Message: "Add lexer\n\nbody"},
		Changes: []git.FileChange{
			{Path: "src/lexer/lexer.go", LinesAdded: 10},
			{Path: "src/parser/parser.go", LinesAdded: 10},
			{Path: "main.go", LinesDeleted: 1},
		},
	}

	m := calc.Calculate(delta)
	if m.Index != 3 || m.Hash != "abc" {
		t.Errorf("Index/Hash = %d/%q, expected 3/abc", m.Index, m.Hash)
	}
	if m.Message != "Add lexer" {
		t.Errorf("Message = %q, expected %q", m.Message, "Add lexer")
	}
	if m.FileCount != 3 || m.DirectoryCount != 2 || m.SubsystemCount != 1 {
		t.Errorf("NF/ND/NS = %d/%d/%d, expected 3/2/1", m.FileCount, m.DirectoryCount, m.SubsystemCount)
	}
	if m.TotalChurn() != 21 {
		t.Errorf("TotalChurn() = %d, expected 21", m.TotalChurn())
	}
	if m.ChangeEntropy <= 0 || m.ChangeEntropy > 1 {
		t.Errorf("ChangeEntropy = %f, expected in (0,1]", m.ChangeEntropy)
	}

	all := calc.CalculateAll([]git.CommitDelta{delta, delta})
	if len(all) != 2 {
		t.Errorf("CalculateAll returned %d metrics, expected 2", len(all))
	}
}

func TestCommitMetricsCalculator_InitialCommit(t *testing.T) {
	delta := git.CommitDelta{
		Commit:    git.Commit{Index: 1, Hash: "root", Message: "import"},
		IsInitial: true,
		Changes: []git.FileChange{
			{Path: "cmd/app/main.go", Kind: git.ChangeKindAdded, LinesAdded: 30},
			{Path: "internal/store/store.go", Kind: git.ChangeKindAdded, LinesAdded: 30},
			{Path: "logo.png", Kind: git.ChangeKindAdded, Binary: true},
		},
	}

	m := NewCommitMetricsCalculator().Calculate(delta)
	if !m.IsInitial {
		t.Error("IsInitial = false, expected true")
	}
	if m.FileCount != 3 || m.SubsystemCount != 2 {
		t.Errorf("NF/NS = %d/%d, expected 3/2", m.FileCount, m.SubsystemCount)
	}
	if m.LinesAdded != 60 || m.LinesDeleted != 0 {
		t.Errorf("LA/LD = %d/%d, expected 60/0", m.LinesAdded, m.LinesDeleted)
	}
}
