package output

import (
	"time"

	"github.com/masmgr/commitrounds/internal/flow"
	"github.com/masmgr/commitrounds/internal/sharedrepo"
)

// Compile-time interface conformance checks.
// These ensure that all writer types correctly implement their respective interfaces.
var (
	// RoundsReportWriter implementations
	_ RoundsReportWriter = (*ConsoleRoundsWriter)(nil)
	_ RoundsReportWriter = (*JSONRoundsWriter)(nil)
	_ RoundsReportWriter = (*YAMLRoundsWriter)(nil)
	_ RoundsReportWriter = (*CSVRoundsWriter)(nil)
	_ RoundsReportWriter = (*MarkdownRoundsWriter)(nil)
	_ RoundsReportWriter = (*CIRoundsWriter)(nil)

	// ClonesReportWriter implementations
	_ ClonesReportWriter = (*ConsoleClonesWriter)(nil)
	_ ClonesReportWriter = (*JSONClonesWriter)(nil)
	_ ClonesReportWriter = (*YAMLClonesWriter)(nil)
	_ ClonesReportWriter = (*CSVClonesWriter)(nil)

	_ flow.Emitter = (*Collector)(nil)
	_ flow.Emitter = (*StreamEmitter)(nil)
)

// OutputFormat represents the output format type.
type OutputFormat string

const (
	FormatConsole  OutputFormat = "console"
	FormatJSON     OutputFormat = "json"
	FormatYAML     OutputFormat = "yaml"
	FormatCSV      OutputFormat = "csv"
	FormatMarkdown OutputFormat = "markdown"
	FormatCI       OutputFormat = "ci"
)

// Formats lists every supported format.
var Formats = []OutputFormat{FormatConsole, FormatJSON, FormatYAML, FormatCSV, FormatMarkdown, FormatCI}

// OutputOptions controls output behavior.
type OutputOptions struct {
	Format OutputFormat
	// Top limits the files listed per round; 0 lists all of them.
	Top        int
	OutputPath string
	Explain    bool
}

// RoundsReport holds the rounds produced for one repository.
type RoundsReport struct {
	RepoURL     string
	ProjectName string
	GeneratedAt time.Time
	Summary     flow.Summary
	Rounds      []flow.Round
}

// ClonesReport holds the shared clones found under a base directory.
type ClonesReport struct {
	BaseDir     string
	GeneratedAt time.Time
	Clones      []sharedrepo.CloneInfo
	Removed     []string
}

// RoundsReportWriter writes rounds reports.
type RoundsReportWriter interface {
	Write(report *RoundsReport, options OutputOptions) error
}

// ClonesReportWriter writes clone listings.
type ClonesReportWriter interface {
	Write(report *ClonesReport, options OutputOptions) error
}

// NewRoundsReportWriter creates a rounds report writer for the specified format.
func NewRoundsReportWriter(format OutputFormat) RoundsReportWriter {
	switch format {
	case FormatJSON:
		return &JSONRoundsWriter{}
	case FormatYAML:
		return &YAMLRoundsWriter{}
	case FormatCSV:
		return &CSVRoundsWriter{}
	case FormatMarkdown:
		return &MarkdownRoundsWriter{}
	case FormatCI:
		return &CIRoundsWriter{}
	default:
		return &ConsoleRoundsWriter{}
	}
}

// NewClonesReportWriter creates a clone listing writer for the specified format.
func NewClonesReportWriter(format OutputFormat) ClonesReportWriter {
	switch format {
	case FormatJSON:
		return &JSONClonesWriter{}
	case FormatYAML:
		return &YAMLClonesWriter{}
	case FormatCSV:
		return &CSVClonesWriter{}
	default:
		return &ConsoleClonesWriter{}
	}
}
