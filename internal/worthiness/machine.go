// Package worthiness decides, commit by commit, when an accumulation of
// consecutive commits is substantial enough to hand downstream.
package worthiness

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/masmgr/commitrounds/internal/git"
)

// DefaultMaxCommitsToCheck caps how many not-worthy commits a round may
// accumulate before it is emitted anyway.
const DefaultMaxCommitsToCheck = 4

// DeltaSource yields the delta of a commit by 1-based index.
type DeltaSource interface {
	Delta(ctx context.Context, index int) (git.CommitDelta, error)
}

// Snapshotter puts a working tree at a commit by 1-based index.
type Snapshotter interface {
	Checkout(ctx context.Context, index int) (git.Commit, error)
}

// Options configures a Machine.
type Options struct {
	MaxCommitsToCheck int
	Source            DeltaSource
	Snapshotter       Snapshotter // optional
	Judge             Judge       // nil applies Fallback to every step
	JudgeOptions      JudgeOptions
	Fallback          FallbackRule
	Logger            *zap.Logger
}

// Machine advances a round one commit at a time. It holds no round state;
// the accumulation travels in the Context values passed to and returned
// from Step.
type Machine struct {
	opts   Options
	logger *zap.Logger
}

// StepResult is the outcome of one Step.
type StepResult struct {
	State   State
	Context Context
	// Verdict is the judge's (or fallback's) decision for this step. It is
	// the zero value when the step was refused because the cap was reached.
	Verdict Verdict
	// NextIndex is the commit the following step should examine.
	NextIndex int
}

// New creates a machine.
func New(opts Options) (*Machine, error) {
	if opts.Source == nil {
		return nil, errors.New("worthiness: delta source is required")
	}
	if opts.MaxCommitsToCheck <= 0 {
		opts.MaxCommitsToCheck = DefaultMaxCommitsToCheck
	}
	if opts.Fallback.MinChangedLines == 0 && opts.Fallback.MinMeaningfulFiles == 0 && opts.Fallback.Calculator == nil {
		opts.Fallback = DefaultFallbackRule()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Machine{opts: opts, logger: opts.Logger}, nil
}

// MaxCommitsToCheck returns the per-round cap.
func (m *Machine) MaxCommitsToCheck() int {
	return m.opts.MaxCommitsToCheck
}

// Step examines commit next on top of acc.
//
// A context that already reached the cap is returned unchanged as Exhausted.
// Otherwise the commit is checked out (when a Snapshotter is configured), its
// delta appended and the whole accumulation judged. A worthy verdict ends the
// round as Worthy; an unworthy one counts the commit as checked and yields
// Accumulating, or Exhausted when that count reaches the cap.
//
// Judge failures never surface: the fallback rule decides instead. Errors
// from checkout or delta extraction are returned as *StepError.
func (m *Machine) Step(ctx context.Context, acc Context, next int) (StepResult, error) {
	if err := ctx.Err(); err != nil {
		return StepResult{}, err
	}
	if acc.CommitsChecked() >= m.opts.MaxCommitsToCheck {
		return StepResult{State: StateExhausted, Context: acc, NextIndex: next}, nil
	}

	if m.opts.Snapshotter != nil {
		if _, err := m.opts.Snapshotter.Checkout(ctx, next); err != nil {
			return StepResult{}, stepError(next, ResourceCheckout, err)
		}
	}

	delta, err := m.opts.Source.Delta(ctx, next)
	if err != nil {
		return StepResult{}, stepError(next, ResourceHistory, err)
	}
	acc = acc.With(delta)

	verdict := m.judge(ctx, acc)
	m.logger.Debug("judged accumulation",
		zap.Int("commit", next),
		zap.Int("accumulated", acc.Len()),
		zap.Bool("worthy", verdict.IsWorthy),
		zap.Float64("confidence", verdict.Confidence),
		zap.Bool("fallback", verdict.Fallback))

	if verdict.IsWorthy {
		return StepResult{State: StateWorthy, Context: acc, Verdict: verdict, NextIndex: next + 1}, nil
	}

	acc = acc.withChecked()
	state := StateAccumulating
	if acc.CommitsChecked() >= m.opts.MaxCommitsToCheck {
		state = StateExhausted
	}
	return StepResult{State: state, Context: acc, Verdict: verdict, NextIndex: next + 1}, nil
}

func (m *Machine) judge(ctx context.Context, acc Context) Verdict {
	if m.opts.Judge == nil {
		return m.opts.Fallback.Evaluate(acc)
	}

	verdict, err := m.opts.Judge.Evaluate(ctx, acc, m.opts.JudgeOptions)
	if err == nil {
		verdict.Confidence = clamp01(verdict.Confidence)
		return verdict
	}

	cause := fmt.Errorf("%w: %v", ErrJudgeUnavailable, err)
	m.logger.Warn("judge failed, applying fallback rule",
		zap.Int("accumulated", acc.Len()),
		zap.Error(err))

	fallback := m.opts.Fallback.Evaluate(acc)
	fallback.Reason = fallback.Reason + " (" + cause.Error() + ")"
	return fallback
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
