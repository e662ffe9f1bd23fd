package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/masmgr/commitrounds/config"
	"github.com/masmgr/commitrounds/internal/output"
)

// App creates the CLI application with all subcommands.
func App() *cli.App {
	return &cli.App{
		Name:  "commitrounds",
		Usage: "Group a repository's history into rounds of worthwhile commits",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to configuration file (default: " + config.DefaultFileName + ")",
			},
			&cli.StringFlag{
				Name:  "base-dir",
				Usage: "Directory holding the shared clones",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			HistoryCmd(),
			DeltaCmd(),
			CheckoutCmd(),
			RoundsCmd(),
			ClonesCmd(),
			SweepCmd(),
		},
	}
}

// reportFlags returns the flags shared by every command that writes a report.
func reportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format (" + formatNames() + ")",
			Value:   string(output.FormatConsole),
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output file path (default: stdout)",
		},
		&cli.IntFlag{
			Name:    "top",
			Aliases: []string{"n"},
			Usage:   "Limit listed entries (0 lists all)",
		},
		&cli.BoolFlag{
			Name:  "explain",
			Usage: "Include details (fallback inputs, diffs)",
		},
	}
}

// repoFlags returns the flags shared by commands that read a repository.
func repoFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "include",
			Usage: "Glob patterns for files to include",
		},
		&cli.StringSliceFlag{
			Name:  "exclude",
			Usage: "Glob patterns for files to exclude",
		},
		&cli.BoolFlag{
			Name:  "update",
			Usage: "Fetch and reset an existing clone to the remote default branch",
		},
	}
}

func formatNames() string {
	names := make([]string, len(output.Formats))
	for i, f := range output.Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// getOutputFormat converts a format string to OutputFormat.
func getOutputFormat(format string) output.OutputFormat {
	switch strings.ToLower(format) {
	case "json":
		return output.FormatJSON
	case "yaml", "yml":
		return output.FormatYAML
	case "csv":
		return output.FormatCSV
	case "markdown", "md":
		return output.FormatMarkdown
	case "ci", "ndjson":
		return output.FormatCI
	default:
		return output.FormatConsole
	}
}

// repoURLArg returns the repository argument of a command.
func repoURLArg(c *cli.Context) (string, error) {
	url := strings.TrimSpace(c.Args().First())
	if url == "" {
		return "", fmt.Errorf("%s: repository URL or path is required", c.Command.Name)
	}
	return url, nil
}

// loadConfig loads configuration and applies CLI overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}

	if dir := c.String("base-dir"); dir != "" {
		cfg.Repos.BaseDir = dir
	}
	if level := c.String("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if include := c.StringSlice("include"); len(include) > 0 {
		cfg.Filters.Include = include
	}
	if exclude := c.StringSlice("exclude"); len(exclude) > 0 {
		cfg.Filters.Exclude = exclude
	}
	if c.Bool("update") {
		cfg.Repos.UpdateToLatest = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Run executes the CLI application.
func Run() {
	if err := App().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
