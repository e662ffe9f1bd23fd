package output

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/masmgr/commitrounds/internal/worthiness"
)

// ConsoleRoundsWriter writes rounds reports to the console.
type ConsoleRoundsWriter struct{}

// Write outputs the rounds report to the console.
func (w *ConsoleRoundsWriter) Write(report *RoundsReport, options OutputOptions) error {
	out, file, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	s := report.Summary
	fmt.Fprintln(out, color.GreenString("Commit Rounds"))
	fmt.Fprintf(out, "Repository: %s\n", report.RepoURL)
	fmt.Fprintf(out, "History: %d commits (%s)", s.TotalCommits, s.Tier)
	if s.Degraded {
		fmt.Fprint(out, color.YellowString(" degraded"))
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Rounds: %d (%d worthy, %d exhausted), next commit %d\n\n", s.Rounds, s.Worthy, s.Exhausted, s.NextIndex)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	// Write header
	if options.Explain {
		fmt.Fprintln(tw, "#\tCommits\tState\tConf\tChurn\tFiles\tEntropy\tReason\tM\tT\tB\tFb")
	} else {
		fmt.Fprintln(tw, "#\tCommits\tState\tConf\tChurn\tFiles\tEntropy\tReason")
	}

	// Write rows
	for _, r := range report.Rounds {
		stateColor := getStateColor(r.State)
		state := r.State.String()
		if r.EndOfHistory {
			state += "*"
		}
		m := r.Metrics
		if options.Explain {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%d\t%d\t%.2f\t%s\t%d\t%d\t%d\t%t\n",
				r.Number,
				commitSpan(r),
				stateColor(state),
				r.Verdict.Confidence,
				m.TotalChurn(),
				m.FileCount,
				m.ChangeEntropy,
				truncateMessage(r.Verdict.Reason, 60),
				m.MeaningfulFiles,
				m.TrivialFiles,
				m.BinaryFiles,
				r.Verdict.Fallback,
			)
		} else {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%d\t%d\t%.2f\t%s\n",
				r.Number,
				commitSpan(r),
				stateColor(state),
				r.Verdict.Confidence,
				m.TotalChurn(),
				m.FileCount,
				m.ChangeEntropy,
				truncateMessage(r.Verdict.Reason, 60),
			)
		}
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	if options.Explain {
		fmt.Fprintln(out, "\nFiles: M=Meaningful, T=Trivial, B=Binary; Fb=rule-based fallback verdict")
	}
	for _, r := range report.Rounds {
		if r.EndOfHistory {
			fmt.Fprintln(out, "\n* history ended before the round reached a verdict")
			break
		}
	}

	return nil
}

// ConsoleClonesWriter writes clone listings to the console.
type ConsoleClonesWriter struct{}

// Write outputs the clone listing to the console.
func (w *ConsoleClonesWriter) Write(report *ClonesReport, options OutputOptions) error {
	out, file, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	fmt.Fprintln(out, color.GreenString("Shared Clones"))
	fmt.Fprintf(out, "Base directory: %s\n", report.BaseDir)
	var total int64
	for _, c := range report.Clones {
		total += c.SizeBytes
	}
	fmt.Fprintf(out, "Clones: %d, %s\n\n", len(report.Clones), formatBytes(total))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Key\tSize\tAge\tURL")
	for _, c := range report.Clones {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Key, formatBytes(c.SizeBytes), c.Age.Truncate(time.Second), c.URL)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(report.Removed) > 0 {
		fmt.Fprintf(out, "\n%s\n", color.YellowString("Removed %d clone(s):", len(report.Removed)))
		for _, dir := range report.Removed {
			fmt.Fprintf(out, "  %s\n", dir)
		}
	}
	return nil
}

// Helper functions

func truncateMessage(msg string, maxLen int) string {
	if len(msg) <= maxLen {
		return msg
	}
	return msg[:maxLen-3] + "..."
}

func getStateColor(state worthiness.State) func(string, ...interface{}) string {
	switch state {
	case worthiness.StateWorthy:
		return color.GreenString
	case worthiness.StateExhausted:
		return color.YellowString
	default:
		return color.WhiteString
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
