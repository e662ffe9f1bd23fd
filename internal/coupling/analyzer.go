// Package coupling finds files that keep changing together within a run of
// consecutive commits.
package coupling

import (
	"sort"
	"strings"

	"github.com/masmgr/commitrounds/internal/git"
)

// Options tunes the analyzer.
type Options struct {
	MinCoCommits        int     // pairs changed together fewer times are dropped
	MinJaccardThreshold float64 // pairs below this coefficient are dropped
	MaxFilesPerCommit   int     // commits touching more files are skipped
	TopPairs            int
}

// DefaultOptions suits the handful of commits a round holds.
func DefaultOptions() Options {
	return Options{
		MinCoCommits:        2,
		MinJaccardThreshold: 0.5,
		MaxFilesPerCommit:   20,
		TopPairs:            5,
	}
}

// FilePair represents a pair of files for coupling analysis.
type FilePair struct {
	FileA string
	FileB string
}

// NewFilePair creates a new file pair with consistent ordering.
func NewFilePair(a, b string) FilePair {
	if strings.ToLower(a) > strings.ToLower(b) {
		a, b = b, a
	}
	return FilePair{FileA: a, FileB: b}
}

// ChangeCoupling represents the coupling metrics between two files.
type ChangeCoupling struct {
	FileA              string
	FileB              string
	CoCommitCount      int     // Number of times both files were changed together
	FileACommitCount   int     // Total commits touching FileA
	FileBCommitCount   int     // Total commits touching FileB
	JaccardCoefficient float64 // |A ∩ B| / |A ∪ B|
	Confidence         float64 // P(B|A) = CoCommitCount / FileACommitCount
	Lift               float64 // P(A,B) / (P(A) × P(B))
}

// Result holds the results of coupling analysis.
type Result struct {
	Couplings    []ChangeCoupling
	TotalCommits int
	TotalFiles   int
	TotalPairs   int
}

// Analyzer analyzes change coupling between files based on co-commit patterns.
type Analyzer struct {
	options Options
}

// NewAnalyzer creates a new coupling analyzer. A non-positive
// MaxFilesPerCommit takes the default.
func NewAnalyzer(options Options) *Analyzer {
	if options.MaxFilesPerCommit <= 0 {
		options.MaxFilesPerCommit = DefaultOptions().MaxFilesPerCommit
	}
	return &Analyzer{options: options}
}

// Analyze performs coupling analysis on deltas.
func (a *Analyzer) Analyze(deltas []git.CommitDelta) Result {
	fileCommitCounts := make(map[string]int)
	pairCoCommitCounts := make(map[FilePair]int)
	totalCommits := 0

	for _, delta := range deltas {
		totalCommits++

		// Unique paths of this commit, deleted files excluded
		seenFiles := make(map[string]struct{})
		var filesForPairs []string
		for _, change := range delta.Changes {
			if change.Kind == git.ChangeKindDeleted {
				continue
			}
			path := strings.ToLower(change.Path)
			if _, seen := seenFiles[path]; seen {
				continue
			}
			seenFiles[path] = struct{}{}
			fileCommitCounts[path]++
			filesForPairs = append(filesForPairs, path)
		}

		// Sweeping refactors say nothing about coupling
		if len(filesForPairs) < 2 || len(filesForPairs) > a.options.MaxFilesPerCommit {
			continue
		}

		for i := 0; i < len(filesForPairs)-1; i++ {
			for j := i + 1; j < len(filesForPairs); j++ {
				pairCoCommitCounts[NewFilePair(filesForPairs[i], filesForPairs[j])]++
			}
		}
	}

	var couplings []ChangeCoupling
	for pair, coCommitCount := range pairCoCommitCounts {
		if coCommitCount < a.options.MinCoCommits {
			continue
		}

		commitsA := fileCommitCounts[pair.FileA]
		commitsB := fileCommitCounts[pair.FileB]

		union := commitsA + commitsB - coCommitCount
		jaccard := float64(coCommitCount) / float64(union)
		if jaccard < a.options.MinJaccardThreshold {
			continue
		}

		supportA := float64(commitsA) / float64(totalCommits)
		supportB := float64(commitsB) / float64(totalCommits)
		supportAB := float64(coCommitCount) / float64(totalCommits)

		couplings = append(couplings, ChangeCoupling{
			FileA:              pair.FileA,
			FileB:              pair.FileB,
			CoCommitCount:      coCommitCount,
			FileACommitCount:   commitsA,
			FileBCommitCount:   commitsB,
			JaccardCoefficient: jaccard,
			Confidence:         float64(coCommitCount) / float64(commitsA),
			Lift:               supportAB / (supportA * supportB),
		})
	}

	// Jaccard descending, then path for a stable order
	sort.Slice(couplings, func(i, j int) bool {
		if couplings[i].JaccardCoefficient != couplings[j].JaccardCoefficient {
			return couplings[i].JaccardCoefficient > couplings[j].JaccardCoefficient
		}
		if couplings[i].CoCommitCount != couplings[j].CoCommitCount {
			return couplings[i].CoCommitCount > couplings[j].CoCommitCount
		}
		return couplings[i].FileA+"\x00"+couplings[i].FileB < couplings[j].FileA+"\x00"+couplings[j].FileB
	})

	if a.options.TopPairs > 0 && len(couplings) > a.options.TopPairs {
		couplings = couplings[:a.options.TopPairs]
	}

	return Result{
		Couplings:    couplings,
		TotalCommits: totalCommits,
		TotalFiles:   len(fileCommitCounts),
		TotalPairs:   len(pairCoCommitCounts),
	}
}
