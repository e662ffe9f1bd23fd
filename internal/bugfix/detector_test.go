package bugfix

import (
	"testing"

	"github.com/masmgr/commitrounds/internal/git"
)

func TestNewDetector(t *testing.T) {
	d, err := NewDetector([]string{`\bfix\b`, "", "  ", `\bbug\b`})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(d.patterns) != 2 {
		t.Errorf("expected 2 compiled patterns, got %d", len(d.patterns))
	}

	if _, err := NewDetector([]string{`[invalid`}); err == nil {
		t.Fatal("expected error for invalid pattern, got nil")
	}
}

func TestIsFix(t *testing.T) {
	d := DefaultDetector()

	tests := []struct {
		name    string
		message string
		want    bool
	}{
		{"matches fix", "fix: resolve null pointer", true},
		{"matches fixed", "fixed login issue", true},
		{"matches fixes", "fixes #123", true},
		{"matches bug", "bug in auth module", true},
		{"matches hotfix", "hotfix for production crash", true},
		{"matches resolves", "Resolves #9", true},
		{"case insensitive", "FIX: resolve issue", true},
		{"no match", "add new feature", false},
		{"partial word no match", "prefix fixation suffix", false},
		{"empty message", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.IsFix(tt.message); got != tt.want {
				t.Errorf("IsFix(%q) = %v, want %v", tt.message, got, tt.want)
			}
		})
	}
}

func makeDeltas() []git.CommitDelta {
	return []git.CommitDelta{
		{
			Commit: git.Commit{Index: 1, Hash: "aaa111", Message: "fix: resolve null pointer in auth"},
			Changes: []git.FileChange{
				{Path: "auth/login.go", Kind: git.ChangeKindModified},
				{Path: "auth/session.go", Kind: git.ChangeKindModified},
			},
		},
		{
			Commit:  git.Commit{Index: 2, Hash: "bbb222", Message: "feat: add user profile page"},
			Changes: []git.FileChange{{Path: "user/profile.go", Kind: git.ChangeKindAdded}},
		},
		{
			Commit: git.Commit{Index: 3, Hash: "ccc333", Message: "bug: incorrect validation logic"},
			Changes: []git.FileChange{
				{Path: "auth/login.go", Kind: git.ChangeKindModified},
				{Path: "old/file.go", Kind: git.ChangeKindDeleted},
			},
		},
	}
}

func TestDetect(t *testing.T) {
	d, err := NewDetector([]string{`\bfix\b`, `\bbug\b`})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result := d.Detect(makeDeltas())
	if result.Total != 2 {
		t.Errorf("Total = %d, want 2", result.Total)
	}
	if _, ok := result.Commits["bbb222"]; ok {
		t.Error("expected bbb222 to NOT be a fix commit")
	}
	if result.FileCounts["auth/login.go"] != 2 {
		t.Errorf("FileCounts[auth/login.go] = %d, want 2", result.FileCounts["auth/login.go"])
	}
	if result.FileCounts["old/file.go"] != 0 {
		t.Errorf("FileCounts[old/file.go] = %d, want 0 (deleted files are skipped)", result.FileCounts["old/file.go"])
	}
}

func TestDetect_NoPatterns(t *testing.T) {
	d, _ := NewDetector(nil)
	result := d.Detect(makeDeltas())
	if result.Total != 0 || len(result.Commits) != 0 || len(result.FileCounts) != 0 {
		t.Errorf("result = %+v, want empty", result)
	}
}
