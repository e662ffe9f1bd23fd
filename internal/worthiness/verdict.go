package worthiness

import (
	"context"
	"fmt"

	"github.com/masmgr/commitrounds/internal/aggregation"
)

// Verdict is a judge's decision about an accumulation.
type Verdict struct {
	IsWorthy    bool     `json:"is_worthy" yaml:"is_worthy"`
	Confidence  float64  `json:"confidence" yaml:"confidence"`
	Reason      string   `json:"reason" yaml:"reason"`
	KeyConcepts []string `json:"key_concepts,omitempty" yaml:"key_concepts,omitempty"`
	// Fallback is set when the verdict came from the deterministic rule
	// instead of the configured judge.
	Fallback bool `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

// JudgeOptions are passed through to the judge unchanged.
type JudgeOptions struct {
	ProjectName string
	Language    string
	UseCache    bool
}

// Judge decides whether an accumulation is substantial enough.
type Judge interface {
	Evaluate(ctx context.Context, acc Context, opts JudgeOptions) (Verdict, error)
}

// JudgeFunc adapts a function to the Judge interface.
type JudgeFunc func(ctx context.Context, acc Context, opts JudgeOptions) (Verdict, error)

// Evaluate calls f.
func (f JudgeFunc) Evaluate(ctx context.Context, acc Context, opts JudgeOptions) (Verdict, error) {
	return f(ctx, acc, opts)
}

// FallbackConfidence is the confidence reported by rule-based verdicts.
const FallbackConfidence = 0.5

// FallbackRule is the deterministic rule used when the judge fails: an
// accumulation is worthy when it changes more than MinChangedLines lines and
// touches at least MinMeaningfulFiles meaningful files.
type FallbackRule struct {
	MinChangedLines    int
	MinMeaningfulFiles int
	Calculator         *aggregation.ContextCalculator
}

// DefaultFallbackRule returns the rule with its standard thresholds and the
// default trivial-file patterns.
func DefaultFallbackRule() FallbackRule {
	return FallbackRule{
		MinChangedLines:    5,
		MinMeaningfulFiles: 1,
		Calculator:         aggregation.NewContextCalculator(nil),
	}
}

// Evaluate applies the rule to acc.
func (r FallbackRule) Evaluate(acc Context) Verdict {
	calc := r.Calculator
	if calc == nil {
		calc = aggregation.NewContextCalculator(nil)
	}
	m := calc.Calculate(acc.deltas)

	worthy := m.TotalChurn() > r.MinChangedLines && m.MeaningfulFiles >= r.MinMeaningfulFiles
	return Verdict{
		IsWorthy:   worthy,
		Confidence: FallbackConfidence,
		Reason: fmt.Sprintf("rule-based: %d changed lines, %d meaningful files (need >%d and >=%d)",
			m.TotalChurn(), m.MeaningfulFiles, r.MinChangedLines, r.MinMeaningfulFiles),
		Fallback: true,
	}
}
