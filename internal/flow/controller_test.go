package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/masmgr/commitrounds/internal/filelock"
	"github.com/masmgr/commitrounds/internal/git"
	"github.com/masmgr/commitrounds/internal/gittest"
	"github.com/masmgr/commitrounds/internal/sharedrepo"
	"github.com/masmgr/commitrounds/internal/worthiness"
)

type fakeRepo struct {
	total      int
	historyErr error
	deltaErr   map[int]error
}

func (f *fakeRepo) History(context.Context) (git.History, error) {
	if f.historyErr != nil {
		return git.History{}, f.historyErr
	}
	commits := make([]git.Commit, f.total)
	for i := range commits {
		commits[i] = git.Commit{Index: i + 1, Hash: fmt.Sprintf("%040d", i+1)}
	}
	return git.History{Commits: commits, Tier: git.TierMain}, nil
}

func (f *fakeRepo) Delta(_ context.Context, index int) (git.CommitDelta, error) {
	if err := f.deltaErr[index]; err != nil {
		return git.CommitDelta{}, err
	}
	return git.CommitDelta{
		Commit:  git.Commit{Index: index, Hash: fmt.Sprintf("%040d", index), Message: fmt.Sprintf("commit %d", index)},
		Changes: []git.FileChange{{Path: "a.go", Kind: git.ChangeKindModified, LinesAdded: 1}},
	}, nil
}

// worthyAt accepts an accumulation whose newest commit is in indexes.
func worthyAt(indexes ...int) worthiness.Judge {
	return worthiness.JudgeFunc(func(_ context.Context, acc worthiness.Context, _ worthiness.JudgeOptions) (worthiness.Verdict, error) {
		for _, i := range indexes {
			if acc.LastIndex() == i {
				return worthiness.Verdict{IsWorthy: true, Confidence: 0.9, Reason: "worthy"}, nil
			}
		}
		return worthiness.Verdict{Confidence: 0.6, Reason: "not yet"}, nil
	})
}

type recorder struct {
	rounds []Round
	err    error
}

func (r *recorder) Emit(_ context.Context, round Round) error {
	if r.err != nil {
		return r.err
	}
	r.rounds = append(r.rounds, round)
	return nil
}

func newController(t *testing.T, repo *fakeRepo, judge worthiness.Judge, limit int, em Emitter, mutate ...func(*Options)) *Controller {
	t.Helper()
	m, err := worthiness.New(worthiness.Options{MaxCommitsToCheck: limit, Source: repo, Judge: judge})
	require.NoError(t, err)
	opts := Options{History: repo, Machine: m, Emitter: em}
	for _, fn := range mutate {
		fn(&opts)
	}
	c, err := New(opts)
	require.NoError(t, err)
	return c
}

func spans(rounds []Round) []string {
	out := make([]string, len(rounds))
	for i, r := range rounds {
		out[i] = fmt.Sprintf("%d-%d:%s", r.FirstIndex, r.LastIndex, r.State)
	}
	return out
}

func TestRun_EmitsEveryRoundOnce(t *testing.T) {
	rec := &recorder{}
	c := newController(t, &fakeRepo{total: 10}, worthyAt(3, 4), 3, rec)

	summary, err := c.Run(context.Background())
	require.NoError(t, err)

	// 1-3 worthy, 4 worthy alone, 5-7 hits the cap, 8-10 hits the cap.
	assert.Equal(t, []string{"1-3:worthy", "4-4:worthy", "5-7:exhausted", "8-10:exhausted"}, spans(rec.rounds))
	assert.False(t, rec.rounds[3].EndOfHistory)

	seen := map[uuid.UUID]bool{}
	for i, r := range rec.rounds {
		assert.Equal(t, i+1, r.Number)
		assert.NotEqual(t, uuid.Nil, r.ID)
		assert.False(t, seen[r.ID], "round IDs must be unique")
		seen[r.ID] = true
		assert.Equal(t, r.Context.Len(), r.Metrics.CommitCount)
	}

	assert.Equal(t, Summary{
		Rounds: 4, Worthy: 2, Exhausted: 2, Commits: 10, TotalCommits: 10,
		NextIndex: 11, Tier: git.TierMain,
	}, summary)
}

func TestRun_PartialRoundAtEndOfHistory(t *testing.T) {
	rec := &recorder{}
	c := newController(t, &fakeRepo{total: 5}, worthyAt(3), 3, rec)

	summary, err := c.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, rec.rounds, 2)
	last := rec.rounds[1]
	assert.Equal(t, "4-5:exhausted", spans(rec.rounds)[1])
	assert.True(t, last.EndOfHistory)
	assert.Equal(t, "not yet", last.Verdict.Reason)
	assert.Equal(t, 1, summary.Worthy)
	assert.Equal(t, 1, summary.Exhausted)
}

func TestRun_StartIndexAndMaxRounds(t *testing.T) {
	rec := &recorder{}
	c := newController(t, &fakeRepo{total: 10}, worthyAt(5, 6, 7), 4, rec, func(o *Options) {
		o.StartIndex = 4
		o.MaxRounds = 2
	})

	summary, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"4-5:worthy", "6-6:worthy"}, spans(rec.rounds))
	assert.Equal(t, 7, summary.NextIndex)
}

func TestRun_EmptyHistoryRange(t *testing.T) {
	rec := &recorder{}
	c := newController(t, &fakeRepo{total: 2}, worthyAt(), 3, rec, func(o *Options) { o.StartIndex = 3 })

	summary, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rec.rounds)
	assert.Equal(t, 0, summary.Rounds)
}

func TestRun_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("history", func(t *testing.T) {
		c := newController(t, &fakeRepo{historyErr: git.ErrEmptyHistory}, worthyAt(), 3, &recorder{})
		_, err := c.Run(ctx)

		var re *RoundError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, ResourceHistory, re.Resource)
		assert.ErrorIs(t, err, git.ErrEmptyHistory)
	})

	t.Run("lock during step", func(t *testing.T) {
		repo := &fakeRepo{total: 5, deltaErr: map[int]error{4: fmt.Errorf("lock abc: %w", filelock.ErrTimeout)}}
		rec := &recorder{}
		c := newController(t, repo, worthyAt(2), 3, rec)
		summary, err := c.Run(ctx)

		var re *RoundError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, ResourceLock, re.Resource)
		assert.Equal(t, 2, re.Round)
		assert.Equal(t, 4, re.Index)
		assert.Equal(t, 1, summary.Rounds)
		assert.Len(t, rec.rounds, 1)
	})

	t.Run("emit", func(t *testing.T) {
		c := newController(t, &fakeRepo{total: 3}, worthyAt(1), 3, &recorder{err: errors.New("disk full")})
		summary, err := c.Run(ctx)

		var re *RoundError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, ResourceEmit, re.Resource)
		assert.Equal(t, 1, re.Round)
		assert.Equal(t, 1, re.Index)
		assert.Equal(t, 0, summary.Rounds)
	})
}

func TestNew_Validation(t *testing.T) {
	m, err := worthiness.New(worthiness.Options{Source: &fakeRepo{}})
	require.NoError(t, err)

	_, err = New(Options{Machine: m, Emitter: &recorder{}})
	assert.Error(t, err)
	_, err = New(Options{History: &fakeRepo{}, Emitter: &recorder{}})
	assert.Error(t, err)
	_, err = New(Options{History: &fakeRepo{}, Machine: m})
	assert.Error(t, err)
}

func TestRoundError(t *testing.T) {
	err := roundError(2, 7, ResourceHistory, &worthiness.StepError{Index: 8, Resource: worthiness.ResourceCheckout, Err: errors.New("x")})
	assert.Equal(t, 8, err.Index)
	assert.Equal(t, ResourceCheckout, err.Resource)
	assert.True(t, strings.HasPrefix(err.Error(), "round 2, commit 8: checkout:"))
}

// A real repository: a README, an empty file, then the first real code.
func TestRun_SharedClone(t *testing.T) {
	src := gittest.Init(t)
	src.CommitFiles("added README", map[string]string{"README.md": "# calc\n"})
	src.CommitFiles("added empty file", map[string]string{"calc.go": ""})
	src.CommitFiles("implemented core function", map[string]string{"calc.go": strings.Repeat("x := 1\n", 40)})
	src.CommitFiles("tweak", map[string]string{"calc.go": strings.Repeat("x := 1\n", 41)})
	final := src.CommitFiles("docs", map[string]string{"README.md": "# calc\n\nusage\n"})

	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	mgr, err := sharedrepo.New(sharedrepo.Options{
		BaseDir:      t.TempDir(),
		LockTimeout:  5 * time.Second,
		PollInterval: 5 * time.Millisecond,
		Registerer:   prometheus.NewRegistry(),
		Logger:       logger,
	})
	require.NoError(t, err)

	ctx := context.Background()
	extractor, err := git.NewExtractor(git.ExtractorOptions{})
	require.NoError(t, err)
	ws, err := Open(ctx, mgr, src.Dir, false, extractor)
	require.NoError(t, err)

	judge := worthiness.JudgeFunc(func(_ context.Context, acc worthiness.Context, _ worthiness.JudgeOptions) (worthiness.Verdict, error) {
		for _, d := range acc.Deltas() {
			if strings.HasPrefix(d.Commit.Message, "implemented") {
				return worthiness.Verdict{IsWorthy: true, Confidence: 0.9}, nil
			}
		}
		return worthiness.Verdict{Confidence: 0.7}, nil
	})
	machine, err := worthiness.New(worthiness.Options{
		MaxCommitsToCheck: 3,
		Source:            ws,
		Snapshotter:       ws,
		Judge:             judge,
		Logger:            logger,
	})
	require.NoError(t, err)

	rec := &recorder{}
	c, err := New(Options{History: ws, Machine: machine, Emitter: rec, Logger: logger})
	require.NoError(t, err)

	summary, err := c.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"1-3:worthy", "4-5:exhausted"}, spans(rec.rounds))
	first := rec.rounds[0]
	assert.True(t, first.Context.Deltas()[0].IsInitial)
	assert.Equal(t, 41, first.Metrics.TotalChurn())
	assert.True(t, rec.rounds[1].EndOfHistory)
	assert.Equal(t, 5, summary.Commits)

	// The last snapshot leaves the clone detached at the final commit.
	repoHead := headHash(t, ws.Handle().Dir)
	assert.Equal(t, final.String(), repoHead)
	assert.Equal(t, 2, logs.FilterMessage("round emitted").Len())
}

func headHash(t *testing.T, dir string) string {
	t.Helper()
	repo, err := gogit.PlainOpen(dir)
	require.NoError(t, err)
	ref, err := repo.Head()
	require.NoError(t, err)
	return ref.Hash().String()
}
