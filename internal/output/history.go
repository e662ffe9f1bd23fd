package output

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/masmgr/commitrounds/internal/aggregation"
	"github.com/masmgr/commitrounds/internal/git"
)

// HistoryReport holds a repository's authoritative history.
type HistoryReport struct {
	RepoURL     string
	GeneratedAt time.Time
	History     git.History
}

// DeltaReport holds the changes introduced by one commit.
type DeltaReport struct {
	RepoURL     string
	GeneratedAt time.Time
	Delta       git.CommitDelta
}

// JSONHistoryReport is the JSON output structure for a history listing.
type JSONHistoryReport struct {
	Repo        string       `json:"repo" yaml:"repo"`
	GeneratedAt string       `json:"generatedAt" yaml:"generatedAt"`
	Tier        string       `json:"tier" yaml:"tier"`
	Degraded    bool         `json:"degraded" yaml:"degraded"`
	Commits     []JSONCommit `json:"commits" yaml:"commits"`
}

// JSONDeltaReport is the JSON output structure for a single commit delta.
type JSONDeltaReport struct {
	Repo        string           `json:"repo" yaml:"repo"`
	GeneratedAt string           `json:"generatedAt" yaml:"generatedAt"`
	Commit      JSONCommit       `json:"commit" yaml:"commit"`
	Initial     bool             `json:"initial" yaml:"initial"`
	Metrics     JSONDeltaMetrics `json:"metrics" yaml:"metrics"`
	Changes     []JSONFileChange `json:"changes" yaml:"changes"`
}

// JSONDeltaMetrics holds the diffusion and size metrics of one commit.
type JSONDeltaMetrics struct {
	Files        int     `json:"files" yaml:"files"`
	Directories  int     `json:"directories" yaml:"directories"`
	Subsystems   int     `json:"subsystems" yaml:"subsystems"`
	LinesAdded   int     `json:"linesAdded" yaml:"linesAdded"`
	LinesDeleted int     `json:"linesDeleted" yaml:"linesDeleted"`
	Entropy      float64 `json:"entropy" yaml:"entropy"`
}

// JSONFileChange is one file changed by a commit.
type JSONFileChange struct {
	Path    string `json:"path" yaml:"path"`
	OldPath string `json:"oldPath,omitempty" yaml:"oldPath,omitempty"`
	Kind    string `json:"kind" yaml:"kind"`
	Added   int    `json:"added" yaml:"added"`
	Deleted int    `json:"deleted" yaml:"deleted"`
	Binary  bool   `json:"binary,omitempty" yaml:"binary,omitempty"`
	Diff    string `json:"diff,omitempty" yaml:"diff,omitempty"`
}

// WriteHistory writes a history listing. JSON and YAML are structured; every
// other format prints a table.
func WriteHistory(report *HistoryReport, options OutputOptions) error {
	switch options.Format {
	case FormatJSON:
		return writeJSON(buildHistoryReport(report), options.OutputPath)
	case FormatYAML:
		return writeYAML(buildHistoryReport(report), options.OutputPath)
	}

	out, file, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	h := report.History
	fmt.Fprintf(out, "Repository: %s\n", report.RepoURL)
	fmt.Fprintf(out, "History: %d commits (%s)", h.Len(), h.Tier)
	if h.Degraded {
		fmt.Fprint(out, color.YellowString(" degraded"))
	}
	fmt.Fprint(out, "\n\n")

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tHash\tWhen\tAuthor\tSubject")
	for _, c := range limitTop(h.Commits, options.Top) {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			c.Index,
			c.ShortHash(),
			formatTimestamp(c.When),
			c.Author.Name,
			truncateMessage(c.Subject(), 60))
	}
	return tw.Flush()
}

func buildHistoryReport(report *HistoryReport) JSONHistoryReport {
	commits := make([]JSONCommit, len(report.History.Commits))
	for i, c := range report.History.Commits {
		commits[i] = buildCommit(git.CommitDelta{Commit: c})
	}
	return JSONHistoryReport{
		Repo:        report.RepoURL,
		GeneratedAt: report.GeneratedAt.Format(time.RFC3339),
		Tier:        string(report.History.Tier),
		Degraded:    report.History.Degraded,
		Commits:     commits,
	}
}

// WriteDelta writes one commit's changes. Diffs are included only with
// Explain, or always in the structured formats.
func WriteDelta(report *DeltaReport, options OutputOptions) error {
	switch options.Format {
	case FormatJSON:
		return writeJSON(buildDeltaReport(report), options.OutputPath)
	case FormatYAML:
		return writeYAML(buildDeltaReport(report), options.OutputPath)
	}

	out, file, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	c := report.Delta.Commit
	fmt.Fprintf(out, "%s %s\n", color.YellowString("commit %d %s", c.Index, c.Hash), c.Subject())
	fmt.Fprintf(out, "Author: %s <%s>\n", c.Author.Name, c.Author.Email)
	fmt.Fprintf(out, "Date:   %s\n", formatTimestamp(c.When))
	m := aggregation.NewCommitMetricsCalculator().Calculate(report.Delta)
	fmt.Fprintf(out, "Churn:  +%d/-%d in %d files, %d dirs, %d subsystems (entropy %.2f)\n\n",
		m.LinesAdded, m.LinesDeleted, m.FileCount, m.DirectoryCount, m.SubsystemCount, m.ChangeEntropy)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Kind\tAdded\tDeleted\tPath")
	for _, ch := range limitTop(report.Delta.Changes, options.Top) {
		path := ch.Path
		if ch.OldPath != "" && ch.OldPath != ch.Path {
			path = ch.OldPath + " => " + ch.Path
		}
		fmt.Fprintf(tw, "%s\t+%d\t-%d\t%s\n", ch.Kind, ch.LinesAdded, ch.LinesDeleted, path)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if options.Explain {
		for _, ch := range report.Delta.Changes {
			if ch.DiffText == "" {
				continue
			}
			fmt.Fprintf(out, "\n%s\n%s\n", color.CyanString(ch.Path), ch.DiffText)
		}
	}
	return nil
}

func buildDeltaReport(report *DeltaReport) JSONDeltaReport {
	d := report.Delta
	changes := make([]JSONFileChange, len(d.Changes))
	for i, ch := range d.Changes {
		changes[i] = JSONFileChange{
			Path:    ch.Path,
			OldPath: ch.OldPath,
			Kind:    ch.Kind.String(),
			Added:   ch.LinesAdded,
			Deleted: ch.LinesDeleted,
			Binary:  ch.Binary,
			Diff:    ch.DiffText,
		}
	}
	m := aggregation.NewCommitMetricsCalculator().Calculate(d)
	return JSONDeltaReport{
		Repo:        report.RepoURL,
		GeneratedAt: report.GeneratedAt.Format(time.RFC3339),
		Commit:      buildCommit(d),
		Initial:     d.IsInitial,
		Metrics: JSONDeltaMetrics{
			Files:        m.FileCount,
			Directories:  m.DirectoryCount,
			Subsystems:   m.SubsystemCount,
			LinesAdded:   m.LinesAdded,
			LinesDeleted: m.LinesDeleted,
			Entropy:      m.ChangeEntropy,
		},
		Changes: changes,
	}
}
