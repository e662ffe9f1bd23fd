package entropy

import (
	"math"

	"github.com/masmgr/commitrounds/internal/git"
)

// Calculator calculates Shannon entropy of how churn is spread over files.
// Based on Hassan (2009) "Predicting Faults Using the Complexity of Code Changes".
type Calculator struct{}

// NewCalculator creates a new entropy calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// CalculateCommitEntropy calculates the normalized Shannon entropy for a set of changes.
// Returns a value between 0 and 1:
//   - 0 = focused change (single file or all changes in one file)
//   - 1 = highly dispersed change (changes evenly distributed)
func (c *Calculator) CalculateCommitEntropy(changes []git.FileChange) float64 {
	churns := make([]int, len(changes))
	for i, change := range changes {
		churns[i] = change.Churn()
	}
	return normalized(churns)
}

// CalculateAccumulatedEntropy treats several consecutive deltas as one change:
// churn of the same file is summed across commits, following renames, before
// the distribution is measured.
func (c *Calculator) CalculateAccumulatedEntropy(deltas []git.CommitDelta) float64 {
	churnByPath := make(map[string]int)
	var order []string

	add := func(path string, churn int) {
		if _, ok := churnByPath[path]; !ok {
			order = append(order, path)
		}
		churnByPath[path] += churn
	}

	// Deltas are chronological, so a rename's old path is always the key
	// the file is currently tracked under.
	for _, d := range deltas {
		for _, ch := range d.Changes {
			if ch.Kind == git.ChangeKindRenamed && ch.OldPath != "" && ch.OldPath != ch.Path {
				if prev, ok := churnByPath[ch.OldPath]; ok {
					delete(churnByPath, ch.OldPath)
					add(ch.Path, prev)
				}
			}
			add(ch.Path, ch.Churn())
		}
	}

	churns := make([]int, 0, len(churnByPath))
	for _, p := range order {
		if v, ok := churnByPath[p]; ok {
			churns = append(churns, v)
			delete(churnByPath, p)
		}
	}
	return normalized(churns)
}

func normalized(churns []int) float64 {
	if len(churns) <= 1 {
		// Single file change has no distribution, entropy is 0
		return 0.0
	}

	totalChurn := 0
	for _, churn := range churns {
		totalChurn += churn
	}

	if totalChurn == 0 {
		// No actual changes, treat as uniform distribution
		return 1.0
	}

	// Calculate Shannon entropy: -Σ(p_i × log2(p_i))
	entropy := 0.0
	for _, churn := range churns {
		if churn > 0 {
			p := float64(churn) / float64(totalChurn)
			entropy -= p * math.Log2(p)
		}
	}

	// Normalize by maximum possible entropy (log2(n) for n files)
	maxEntropy := math.Log2(float64(len(churns)))
	if maxEntropy <= 0 {
		return 0.0
	}

	normalizedEntropy := entropy / maxEntropy

	// Clamp to [0, 1] for floating point error
	if normalizedEntropy < 0 {
		return 0.0
	}
	if normalizedEntropy > 1 {
		return 1.0
	}
	return normalizedEntropy
}
