package judge

import (
	"fmt"
	"strings"

	"github.com/masmgr/commitrounds/internal/aggregation"
	"github.com/masmgr/commitrounds/internal/git"
	"github.com/masmgr/commitrounds/internal/worthiness"
)

// DefaultMaxDiffBytes bounds how much patch text goes into one prompt.
const DefaultMaxDiffBytes = 24 * 1024

const truncatedNote = "\n... [diff truncated]\n"

// BuildPrompt renders the request sent to a language model for acc.
func BuildPrompt(acc worthiness.Context, m aggregation.ContextMetrics, opts worthiness.JudgeOptions, maxDiffBytes int) string {
	if maxDiffBytes <= 0 {
		maxDiffBytes = DefaultMaxDiffBytes
	}
	project := opts.ProjectName
	if project == "" {
		project = "this project"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Decide whether the following accumulated changes to %s are substantial enough to teach as one beginner programming lesson.\n", project)
	b.WriteString("When very little code changed, consider whether it still introduces a basic language concept.\n\n")

	b.WriteString("## Commits\n")
	deltas := acc.Deltas()
	for _, d := range deltas {
		fmt.Fprintf(&b, "Commit %d (%s): %s\n", d.Commit.Index, d.Commit.ShortHash(), d.Commit.Subject())
		for _, c := range d.Changes {
			name := c.Path
			if c.Kind == git.ChangeKindRenamed {
				name = c.OldPath + " -> " + c.Path
			}
			fmt.Fprintf(&b, "  - %s (%s): +%d/-%d\n", name, c.Kind, c.LinesAdded, c.LinesDeleted)
		}
	}

	b.WriteString("\n## Statistics\n")
	fmt.Fprintf(&b, "- Lines changed: +%d/-%d\n", m.LinesAdded, m.LinesDeleted)
	fmt.Fprintf(&b, "- Accumulated commits: %d\n", m.CommitCount)
	fmt.Fprintf(&b, "- Files: %d (%d meaningful, %d trivial, %d binary)\n", m.FileCount, m.MeaningfulFiles, m.TrivialFiles, m.BinaryFiles)
	fmt.Fprintf(&b, "- Change entropy: %.2f\n", m.ChangeEntropy)
	if m.FixCommits > 0 {
		fmt.Fprintf(&b, "- Bug-fix commits: %d\n", m.FixCommits)
	}
	for _, c := range m.Couplings {
		fmt.Fprintf(&b, "- Changed together %d times: %s, %s\n", c.CoCommitCount, c.FileA, c.FileB)
	}

	b.WriteString("\n## Worthy when any of\n")
	b.WriteString("1. It introduces a new programming concept or technique.\n")
	b.WriteString("2. A newcomer would need it explained.\n")
	b.WriteString("3. It contains enough code change (usually more than 4 effective lines).\n")
	b.WriteString("4. It has teaching value.\n")
	b.WriteString("\n## Not worthy when\n")
	b.WriteString("1. It only creates empty files (empty README, .gitignore and similar).\n")
	b.WriteString("2. It is a simple configuration change.\n")
	b.WriteString("3. Too little code changed to carry substance.\n")
	b.WriteString("4. It repeats a simple operation.\n")

	b.WriteString("\n## Diffs\n")
	writeDiffs(&b, deltas, maxDiffBytes)

	b.WriteString("\nReply with JSON only:\n")
	b.WriteString(`{"is_worthy": true|false, "confidence": 0.0-1.0, "reason": "...", "key_concepts": ["..."], "suggestions": "..."}`)
	b.WriteString("\n")
	if opts.Language != "" {
		fmt.Fprintf(&b, "Write reason, key_concepts and suggestions in %s.\n", opts.Language)
	}
	return b.String()
}

func writeDiffs(b *strings.Builder, deltas []git.CommitDelta, budget int) {
	for _, d := range deltas {
		for _, c := range d.Changes {
			if c.DiffText == "" {
				continue
			}
			header := fmt.Sprintf("### %d %s\n", d.Commit.Index, c.Path)
			if budget <= len(header) {
				b.WriteString(truncatedNote)
				return
			}
			b.WriteString(header)
			budget -= len(header)

			text := c.DiffText
			if len(text) > budget {
				b.WriteString(text[:budget])
				b.WriteString(truncatedNote)
				return
			}
			b.WriteString(text)
			if !strings.HasSuffix(text, "\n") {
				b.WriteString("\n")
			}
			budget -= len(text)
		}
	}
}
