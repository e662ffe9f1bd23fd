package cmd

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/masmgr/commitrounds/internal/gittest"
	"github.com/masmgr/commitrounds/internal/output"
)

type cliEnv struct {
	src     *gittest.Repo
	config  string
	baseDir string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()

	src := gittest.Init(t)
	src.CommitFiles("added README", map[string]string{"README.md": "# calc\n"})
	src.CommitFiles("added empty file", map[string]string{"calc.go": ""})
	src.CommitFiles("implemented core function", map[string]string{"calc.go": strings.Repeat("x := 1\n", 40)})
	src.CommitFiles("tweak", map[string]string{"calc.go": strings.Repeat("x := 1\n", 41)})
	src.CommitFiles("docs", map[string]string{"README.md": "# calc\n\nusage\n"})

	dir := t.TempDir()
	config := filepath.Join(dir, "config.yaml")
	content := "judge:\n  provider: rules\nrepos:\n  lock_timeout: 5s\n  poll_interval: 5ms\n"
	if err := os.WriteFile(config, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	return &cliEnv{src: src, config: config, baseDir: filepath.Join(dir, "clones")}
}

func (e *cliEnv) run(t *testing.T, args ...string) error {
	t.Helper()
	app := App()
	app.Writer = io.Discard
	app.ErrWriter = io.Discard
	full := append([]string{"commitrounds", "--config", e.config, "--base-dir", e.baseDir}, args...)
	return app.Run(full)
}

func readJSON(t *testing.T, path string, v interface{}) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("Failed to parse JSON: %v\n%s", err, data)
	}
}

func TestRoundsCommand(t *testing.T) {
	env := newCLIEnv(t)
	out := filepath.Join(t.TempDir(), "rounds.json")

	if err := env.run(t, "rounds", "--format", "json", "--output", out, env.src.Dir); err != nil {
		t.Fatalf("rounds failed: %v", err)
	}

	var report output.JSONRoundsReport
	readJSON(t, out, &report)

	if report.Summary.Rounds != 2 || report.Summary.Worthy != 1 || report.Summary.Exhausted != 1 {
		t.Fatalf("summary = %+v, expected 2 rounds (1 worthy, 1 exhausted)", report.Summary)
	}
	if report.Summary.TotalCommits != 5 || report.Summary.NextIndex != 6 {
		t.Errorf("summary = %+v, expected 5 commits and next index 6", report.Summary)
	}

	first, second := report.Rounds[0], report.Rounds[1]
	if first.FirstIndex != 1 || first.LastIndex != 3 || first.State != "worthy" {
		t.Errorf("first round = %d-%d %s, expected 1-3 worthy", first.FirstIndex, first.LastIndex, first.State)
	}
	if !first.Verdict.Fallback {
		t.Error("rules judge verdict should be marked as fallback")
	}
	if second.FirstIndex != 4 || second.LastIndex != 5 || second.State != "exhausted" || !second.EndOfHistory {
		t.Errorf("second round = %+v, expected 4-5 exhausted at end of history", second)
	}
	if report.Project != filepath.Base(env.src.Dir) {
		t.Errorf("project = %q, expected %q", report.Project, filepath.Base(env.src.Dir))
	}
}

func TestRoundsCommand_MaxRounds(t *testing.T) {
	env := newCLIEnv(t)
	out := filepath.Join(t.TempDir(), "rounds.json")

	if err := env.run(t, "rounds", "--format", "json", "--output", out, "--max-rounds", "1", env.src.Dir); err != nil {
		t.Fatalf("rounds failed: %v", err)
	}

	var report output.JSONRoundsReport
	readJSON(t, out, &report)
	if len(report.Rounds) != 1 || report.Summary.NextIndex != 4 {
		t.Errorf("rounds = %d, next = %d, expected 1 round and next index 4", len(report.Rounds), report.Summary.NextIndex)
	}
}

func TestHistoryAndDeltaCommands(t *testing.T) {
	env := newCLIEnv(t)
	dir := t.TempDir()

	historyOut := filepath.Join(dir, "history.json")
	if err := env.run(t, "history", "--format", "json", "--output", historyOut, env.src.Dir); err != nil {
		t.Fatalf("history failed: %v", err)
	}
	var history output.JSONHistoryReport
	readJSON(t, historyOut, &history)
	if len(history.Commits) != 5 || history.Commits[2].Subject != "implemented core function" {
		t.Errorf("history = %+v", history)
	}

	deltaOut := filepath.Join(dir, "delta.json")
	if err := env.run(t, "delta", "--format", "json", "--output", deltaOut, env.src.Dir, "3"); err != nil {
		t.Fatalf("delta failed: %v", err)
	}
	var delta output.JSONDeltaReport
	readJSON(t, deltaOut, &delta)
	if delta.Commit.Index != 3 || len(delta.Changes) != 1 || delta.Changes[0].Added != 40 {
		t.Errorf("delta = %+v", delta)
	}
}

func TestCheckoutCommand(t *testing.T) {
	env := newCLIEnv(t)

	if err := env.run(t, "checkout", env.src.Dir, "3"); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	clonesOut := filepath.Join(t.TempDir(), "clones.json")
	if err := env.run(t, "clones", "--format", "json", "--output", clonesOut); err != nil {
		t.Fatalf("clones failed: %v", err)
	}
	var clones output.JSONClonesReport
	readJSON(t, clonesOut, &clones)
	if len(clones.Clones) != 1 {
		t.Fatalf("clones = %d, expected 1", len(clones.Clones))
	}

	content, err := os.ReadFile(filepath.Join(clones.Clones[0].Dir, "calc.go"))
	if err != nil {
		t.Fatalf("Failed to read checked out file: %v", err)
	}
	if got := strings.Count(string(content), "\n"); got != 40 {
		t.Errorf("calc.go has %d lines at commit 3, expected 40", got)
	}
}

func TestCommandErrors(t *testing.T) {
	env := newCLIEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "MissingRepo", args: []string{"rounds"}},
		{name: "MissingIndex", args: []string{"delta", env.src.Dir}},
		{name: "BadIndex", args: []string{"checkout", env.src.Dir, "zero"}},
		{name: "IndexOutOfRange", args: []string{"delta", env.src.Dir, "99"}},
		{name: "UnknownJudge", args: []string{"rounds", "--judge", "oracle", env.src.Dir}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := env.run(t, tt.args...); err == nil {
				t.Fatalf("expected error for %v", tt.args)
			}
		})
	}
}

func TestSweepCommand(t *testing.T) {
	env := newCLIEnv(t)
	if err := env.run(t, "history", env.src.Dir); err != nil {
		t.Fatalf("history failed: %v", err)
	}

	out := filepath.Join(t.TempDir(), "sweep.json")
	if err := env.run(t, "sweep", "--max-age", "1h", "--format", "json", "--output", out); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	var report output.JSONClonesReport
	readJSON(t, out, &report)
	if len(report.Removed) != 0 || len(report.Clones) != 1 {
		t.Errorf("fresh clone should survive sweep: %+v", report)
	}
}
