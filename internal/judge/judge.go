// Package judge provides worthiness.Judge implementations: a Gemini-backed
// judge, a rule-only judge for offline use, and retry and cache wrappers.
package judge

import (
	"context"

	"github.com/masmgr/commitrounds/internal/worthiness"
)

// Rules is a Judge that always applies a deterministic rule. It never fails.
type Rules struct {
	Rule worthiness.FallbackRule
}

// NewRules returns a rule-only judge using the default thresholds.
func NewRules() *Rules {
	return &Rules{Rule: worthiness.DefaultFallbackRule()}
}

// Evaluate applies the rule to acc.
func (r *Rules) Evaluate(ctx context.Context, acc worthiness.Context, _ worthiness.JudgeOptions) (worthiness.Verdict, error) {
	if err := ctx.Err(); err != nil {
		return worthiness.Verdict{}, err
	}
	return r.Rule.Evaluate(acc), nil
}
