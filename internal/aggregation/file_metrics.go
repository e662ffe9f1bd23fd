package aggregation

import (
	"strings"
	"time"

	"github.com/masmgr/commitrounds/internal/git"
)

// FileMetrics holds metrics for a single file across an accumulation.
type FileMetrics struct {
	Path                    string
	CommitCount             int
	AddedLines              int
	DeletedLines            int
	LastModifiedAt          time.Time
	LastKind                git.ChangeKind
	Binary                  bool
	Contributors            map[string]struct{}
	ContributorCommitCounts map[string]int
}

// NewFileMetrics creates a new FileMetrics instance.
func NewFileMetrics(path string) *FileMetrics {
	return &FileMetrics{
		Path:                    path,
		Contributors:            make(map[string]struct{}),
		ContributorCommitCounts: make(map[string]int),
	}
}

// ChurnTotal returns total lines changed (added + deleted).
func (f *FileMetrics) ChurnTotal() int {
	return f.AddedLines + f.DeletedLines
}

// ContributorCount returns number of unique contributors.
func (f *FileMetrics) ContributorCount() int {
	return len(f.Contributors)
}

// Deleted reports whether the file no longer exists at the end of the
// accumulation.
func (f *FileMetrics) Deleted() bool {
	return f.LastKind == git.ChangeKindDeleted
}

// AddCommit adds a commit's contribution to this file's metrics.
func (f *FileMetrics) AddCommit(commit git.Commit, change git.FileChange) {
	f.CommitCount++
	f.AddedLines += change.LinesAdded
	f.DeletedLines += change.LinesDeleted
	f.LastKind = change.Kind
	f.Binary = f.Binary || change.Binary

	if f.LastModifiedAt.IsZero() || commit.When.After(f.LastModifiedAt) {
		f.LastModifiedAt = commit.When
	}

	contributorKey := strings.ToLower(commit.Author.Email)
	f.Contributors[contributorKey] = struct{}{}
	f.ContributorCommitCounts[contributorKey]++
}

// FileMetricsAggregator aggregates file changes from consecutive deltas.
type FileMetricsAggregator struct {
	metrics map[string]*FileMetrics
}

// NewFileMetricsAggregator creates a new aggregator.
func NewFileMetricsAggregator() *FileMetricsAggregator {
	return &FileMetricsAggregator{
		metrics: make(map[string]*FileMetrics),
	}
}

// Process folds the deltas, oldest first, into per-file metrics.
func (a *FileMetricsAggregator) Process(deltas []git.CommitDelta) map[string]*FileMetrics {
	for _, d := range deltas {
		a.processDelta(d)
	}
	return a.metrics
}

func (a *FileMetricsAggregator) processDelta(d git.CommitDelta) {
	for _, change := range d.Changes {
		path := change.Path

		// Handle renames: carry the old path's metrics over to the new one
		if change.Kind == git.ChangeKindRenamed && change.OldPath != "" && change.OldPath != path {
			if oldMetrics, exists := a.metrics[change.OldPath]; exists {
				if _, newExists := a.metrics[path]; !newExists {
					a.metrics[path] = NewFileMetrics(path)
				}
				a.mergeMetrics(a.metrics[path], oldMetrics)
				delete(a.metrics, change.OldPath)
			}
		}

		if _, exists := a.metrics[path]; !exists {
			a.metrics[path] = NewFileMetrics(path)
		}

		a.metrics[path].AddCommit(d.Commit, change)
	}
}

// mergeMetrics merges source metrics into target.
func (a *FileMetricsAggregator) mergeMetrics(target, source *FileMetrics) {
	target.CommitCount += source.CommitCount
	target.AddedLines += source.AddedLines
	target.DeletedLines += source.DeletedLines
	target.Binary = target.Binary || source.Binary

	if source.LastModifiedAt.After(target.LastModifiedAt) {
		target.LastModifiedAt = source.LastModifiedAt
	}

	for k := range source.Contributors {
		target.Contributors[k] = struct{}{}
	}

	for k, v := range source.ContributorCommitCounts {
		target.ContributorCommitCounts[k] += v
	}
}

// GetMetrics returns the aggregated metrics.
func (a *FileMetricsAggregator) GetMetrics() map[string]*FileMetrics {
	return a.metrics
}
