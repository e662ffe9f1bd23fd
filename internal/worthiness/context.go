package worthiness

import "github.com/masmgr/commitrounds/internal/git"

// Context is the accumulation of one round: the consecutive commit deltas
// examined so far and how many commits were judged not worthy. It is a
// value; every change returns a new Context and leaves the receiver intact.
type Context struct {
	deltas  []git.CommitDelta
	checked int
}

// NewContext returns a context holding deltas, with no commits checked.
func NewContext(deltas ...git.CommitDelta) Context {
	return Context{deltas: append([]git.CommitDelta(nil), deltas...)}
}

// With returns a copy of c with d appended.
func (c Context) With(d git.CommitDelta) Context {
	next := make([]git.CommitDelta, len(c.deltas), len(c.deltas)+1)
	copy(next, c.deltas)
	return Context{deltas: append(next, d), checked: c.checked}
}

// withChecked returns a copy of c with one more commit counted as checked.
func (c Context) withChecked() Context {
	return Context{deltas: c.deltas, checked: c.checked + 1}
}

// Deltas returns a copy of the accumulated deltas, oldest first.
func (c Context) Deltas() []git.CommitDelta {
	return append([]git.CommitDelta(nil), c.deltas...)
}

// Len returns the number of accumulated deltas.
func (c Context) Len() int {
	return len(c.deltas)
}

// Empty reports whether nothing was accumulated.
func (c Context) Empty() bool {
	return len(c.deltas) == 0
}

// CommitsChecked returns how many commits were judged not worthy since the
// round started.
func (c Context) CommitsChecked() int {
	return c.checked
}

// FirstIndex returns the index of the oldest accumulated commit, or 0.
func (c Context) FirstIndex() int {
	if len(c.deltas) == 0 {
		return 0
	}
	return c.deltas[0].Commit.Index
}

// LastIndex returns the index of the newest accumulated commit, or 0.
func (c Context) LastIndex() int {
	if len(c.deltas) == 0 {
		return 0
	}
	return c.deltas[len(c.deltas)-1].Commit.Index
}

// Hashes returns the accumulated commit hashes in order.
func (c Context) Hashes() []string {
	out := make([]string, len(c.deltas))
	for i, d := range c.deltas {
		out[i] = d.Commit.Hash
	}
	return out
}
