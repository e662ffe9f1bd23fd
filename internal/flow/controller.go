// Package flow drives the worthiness machine over a repository's history and
// emits one Round each time an accumulation ends.
package flow

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/masmgr/commitrounds/internal/aggregation"
	"github.com/masmgr/commitrounds/internal/git"
	"github.com/masmgr/commitrounds/internal/worthiness"
)

// HistorySource resolves the authoritative history of a repository.
type HistorySource interface {
	History(ctx context.Context) (git.History, error)
}

// Options configures a Controller.
type Options struct {
	History HistorySource
	Machine *worthiness.Machine
	Emitter Emitter
	// StartIndex is the first commit examined; 0 means 1.
	StartIndex int
	// MaxRounds stops the run after that many rounds; 0 means no limit.
	MaxRounds  int
	Calculator *aggregation.ContextCalculator
	Logger     *zap.Logger
}

// Summary describes a finished run.
type Summary struct {
	Rounds       int      `json:"rounds" yaml:"rounds"`
	Worthy       int      `json:"worthy" yaml:"worthy"`
	Exhausted    int      `json:"exhausted" yaml:"exhausted"`
	Commits      int      `json:"commits" yaml:"commits"`
	TotalCommits int      `json:"total_commits" yaml:"total_commits"`
	NextIndex    int      `json:"next_index" yaml:"next_index"`
	Tier         git.Tier `json:"tier" yaml:"tier"`
	Degraded     bool     `json:"degraded" yaml:"degraded"`
}

// Controller runs rounds until the history is consumed.
type Controller struct {
	opts   Options
	newID  func() uuid.UUID
	logger *zap.Logger
}

// New creates a controller.
func New(opts Options) (*Controller, error) {
	if opts.History == nil {
		return nil, errors.New("flow: history source is required")
	}
	if opts.Machine == nil {
		return nil, errors.New("flow: worthiness machine is required")
	}
	if opts.Emitter == nil {
		return nil, errors.New("flow: emitter is required")
	}
	if opts.StartIndex <= 0 {
		opts.StartIndex = 1
	}
	if opts.Calculator == nil {
		opts.Calculator = aggregation.NewContextCalculator(nil)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Controller{opts: opts, newID: uuid.New, logger: opts.Logger}, nil
}

// Run steps through the history from StartIndex. Every Worthy or Exhausted
// result is emitted once and a fresh round starts at the following commit. A
// round still accumulating when the history ends is emitted as Exhausted with
// EndOfHistory set.
//
// On failure the returned error is a *RoundError and the Summary covers the
// rounds emitted before it.
func (c *Controller) Run(ctx context.Context) (Summary, error) {
	summary := Summary{NextIndex: c.opts.StartIndex}

	history, err := c.opts.History.History(ctx)
	if err != nil {
		return summary, roundError(1, c.opts.StartIndex, ResourceHistory, err)
	}
	summary.TotalCommits = history.Len()
	summary.Tier = history.Tier
	summary.Degraded = history.Degraded

	c.logger.Info("starting rounds",
		zap.Int("commits", history.Len()),
		zap.Int("start", c.opts.StartIndex),
		zap.String("tier", string(history.Tier)),
		zap.Int("max_commits_to_check", c.opts.Machine.MaxCommitsToCheck()))

	acc := worthiness.NewContext()
	var last worthiness.Verdict
	next := c.opts.StartIndex
	for next <= history.Len() {
		if c.limitReached(summary) {
			return summary, nil
		}

		res, err := c.opts.Machine.Step(ctx, acc, next)
		if err != nil {
			return summary, roundError(summary.Rounds+1, next, ResourceHistory, err)
		}
		summary.Commits += res.NextIndex - next
		acc, last, next = res.Context, res.Verdict, res.NextIndex
		summary.NextIndex = next

		if !res.State.Terminal() {
			continue
		}
		if err := c.emit(ctx, &summary, acc, res.State, last, false); err != nil {
			return summary, err
		}
		acc = worthiness.NewContext()
	}

	if !acc.Empty() && !c.limitReached(summary) {
		if err := c.emit(ctx, &summary, acc, worthiness.StateExhausted, last, true); err != nil {
			return summary, err
		}
	}

	c.logger.Info("rounds finished",
		zap.Int("rounds", summary.Rounds),
		zap.Int("worthy", summary.Worthy),
		zap.Int("exhausted", summary.Exhausted))
	return summary, nil
}

func (c *Controller) limitReached(s Summary) bool {
	return c.opts.MaxRounds > 0 && s.Rounds >= c.opts.MaxRounds
}

func (c *Controller) emit(ctx context.Context, s *Summary, acc worthiness.Context, state worthiness.State, verdict worthiness.Verdict, endOfHistory bool) error {
	r := Round{
		ID:           c.newID(),
		Number:       s.Rounds + 1,
		FirstIndex:   acc.FirstIndex(),
		LastIndex:    acc.LastIndex(),
		State:        state,
		EndOfHistory: endOfHistory,
		Context:      acc,
		Verdict:      verdict,
		Metrics:      c.opts.Calculator.Calculate(acc.Deltas()),
	}

	if err := c.opts.Emitter.Emit(ctx, r); err != nil {
		return roundError(r.Number, r.LastIndex, ResourceEmit, err)
	}

	s.Rounds++
	switch state {
	case worthiness.StateWorthy:
		s.Worthy++
	case worthiness.StateExhausted:
		s.Exhausted++
	}

	c.logger.Info("round emitted",
		zap.Int("round", r.Number),
		zap.Int("first", r.FirstIndex),
		zap.Int("last", r.LastIndex),
		zap.Stringer("state", state),
		zap.Bool("end_of_history", endOfHistory),
		zap.Bool("fallback", verdict.Fallback))
	return nil
}
