package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/masmgr/commitrounds/internal/flow"
	"github.com/masmgr/commitrounds/internal/worthiness"
)

// MarkdownRoundsWriter writes rounds reports as Markdown.
type MarkdownRoundsWriter struct{}

// Write outputs the rounds report as Markdown.
func (w *MarkdownRoundsWriter) Write(report *RoundsReport, options OutputOptions) error {
	out, file, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	s := report.Summary

	// Header
	fmt.Fprintln(out, "# Commit Rounds")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "**Repository:** %s\n\n", report.RepoURL)
	if report.ProjectName != "" {
		fmt.Fprintf(out, "**Project:** %s\n\n", escapeMarkdown(report.ProjectName))
	}
	fmt.Fprintf(out, "**History:** %d commits from `%s`", s.TotalCommits, s.Tier)
	if s.Degraded {
		fmt.Fprint(out, " (degraded)")
	}
	fmt.Fprint(out, "\n\n")
	fmt.Fprintf(out, "**Rounds:** %d (%d worthy, %d exhausted)\n\n", s.Rounds, s.Worthy, s.Exhausted)

	// Table header
	fmt.Fprintln(out, "## Rounds")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "| # | Commits | State | Confidence | Churn | Files | Entropy | Reason |")
	fmt.Fprintln(out, "|---|---------|-------|------------|-------|-------|---------|--------|")

	// Table rows
	for _, r := range report.Rounds {
		state := getStateEmoji(r.State) + " " + r.State.String()
		if r.EndOfHistory {
			state += " (end of history)"
		}
		fmt.Fprintf(out, "| %d | %s | %s | %.2f | %d | %d | %.2f | %s |\n",
			r.Number, commitSpan(r), state, r.Verdict.Confidence, r.Metrics.TotalChurn(),
			r.Metrics.FileCount, r.Metrics.ChangeEntropy, escapeMarkdown(truncateMessage(r.Verdict.Reason, 80)))
	}

	if options.Explain {
		for _, r := range report.Rounds {
			writeMarkdownRound(out, r, options.Top)
		}
	}

	return nil
}

func writeMarkdownRound(out io.Writer, r flow.Round, top int) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "## Round %d\n\n", r.Number)
	if r.Verdict.Fallback {
		fmt.Fprintln(out, "_Verdict from the rule-based fallback._")
		fmt.Fprintln(out)
	}
	if r.Verdict.Reason != "" {
		fmt.Fprintf(out, "> %s\n\n", escapeMarkdown(r.Verdict.Reason))
	}
	if len(r.Verdict.KeyConcepts) > 0 {
		fmt.Fprintf(out, "**Key concepts:** %s\n\n", escapeMarkdown(strings.Join(r.Verdict.KeyConcepts, ", ")))
	}

	fmt.Fprintln(out, "### Commits")
	fmt.Fprintln(out)
	for _, d := range r.Context.Deltas() {
		fmt.Fprintf(out, "- %d `%s` %s\n", d.Commit.Index, d.Commit.ShortHash(), escapeMarkdown(d.Commit.Subject()))
	}

	files := limitTop(r.Metrics.Files, top)
	if len(files) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "### Files")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "| Path | Kind | Added | Deleted | Commits |")
	fmt.Fprintln(out, "|------|------|-------|---------|---------|")
	for _, f := range files {
		fmt.Fprintf(out, "| `%s` | %s | %d | %d | %d |\n", f.Path, f.LastKind, f.AddedLines, f.DeletedLines, f.CommitCount)
	}
}

func getStateEmoji(state worthiness.State) string {
	switch state {
	case worthiness.StateWorthy:
		return "🟢"
	case worthiness.StateExhausted:
		return "🟡"
	default:
		return "⚪"
	}
}

func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"|", "\\|",
		"*", "\\*",
		"_", "\\_",
		"`", "\\`",
	)
	return replacer.Replace(s)
}
