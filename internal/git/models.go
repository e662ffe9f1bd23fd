package git

import (
	"strings"
	"time"
)

const (
	// BinaryMarker replaces the content and diff of files that are not text.
	BinaryMarker = "[binary]"
	// OversizeMarker replaces the content of files larger than the extractor's limit.
	OversizeMarker = "[too large]"
)

// Commit is one entry of a repository's linearized history.
type Commit struct {
	Index   int // 1-based, oldest first
	Hash    string
	Message string
	Author  AuthorInfo
	When    time.Time
}

// ShortHash returns the abbreviated commit hash.
func (c Commit) ShortHash() string {
	if len(c.Hash) > 7 {
		return c.Hash[:7]
	}
	return c.Hash
}

// Subject returns the first line of the commit message.
func (c Commit) Subject() string {
	msg := strings.TrimSpace(c.Message)
	if idx := strings.IndexByte(msg, '\n'); idx != -1 {
		msg = msg[:idx]
	}
	return strings.TrimSpace(msg)
}

// AuthorInfo represents commit author information.
type AuthorInfo struct {
	Name  string
	Email string
}

// ContributorKey returns a normalized identifier for grouping contributors.
func (a AuthorInfo) ContributorKey() string {
	return strings.ToLower(a.Email)
}

// FileChange represents a file change within a commit.
type FileChange struct {
	Path         string
	OldPath      string // For renames
	Kind         ChangeKind
	LinesAdded   int
	LinesDeleted int
	DiffText     string
	OldContent   string
	NewContent   string
	Binary       bool
}

// Churn returns total lines changed (added + deleted).
func (f FileChange) Churn() int {
	return f.LinesAdded + f.LinesDeleted
}

// ChangeKind represents the type of change.
type ChangeKind int

const (
	ChangeKindAdded ChangeKind = iota
	ChangeKindModified
	ChangeKindDeleted
	ChangeKindRenamed
)

// String returns a string representation of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case ChangeKindAdded:
		return "added"
	case ChangeKindModified:
		return "modified"
	case ChangeKindDeleted:
		return "deleted"
	case ChangeKindRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so reports carry the name.
func (k ChangeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// CommitDelta bundles a commit with the file changes it introduced.
// For the first commit IsInitial is set and every file appears as added.
type CommitDelta struct {
	Commit    Commit
	Changes   []FileChange
	IsInitial bool
}

// LinesAdded sums added lines over all changes.
func (d CommitDelta) LinesAdded() int {
	n := 0
	for _, c := range d.Changes {
		n += c.LinesAdded
	}
	return n
}

// LinesDeleted sums deleted lines over all changes.
func (d CommitDelta) LinesDeleted() int {
	n := 0
	for _, c := range d.Changes {
		n += c.LinesDeleted
	}
	return n
}
