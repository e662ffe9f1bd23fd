package cmd

import (
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/masmgr/commitrounds/internal/flow"
	"github.com/masmgr/commitrounds/internal/output"
	"github.com/masmgr/commitrounds/internal/repokey"
)

// RoundsCmd returns the rounds command.
func RoundsCmd() *cli.Command {
	flags := append(repoFlags(), reportFlags()...)
	flags = append(flags,
		&cli.IntFlag{
			Name:  "start",
			Usage: "First commit index to examine",
			Value: 1,
		},
		&cli.IntFlag{
			Name:  "max-rounds",
			Usage: "Stop after this many rounds (0 runs to the end of history)",
		},
		&cli.IntFlag{
			Name:  "max-commits",
			Usage: "Override worthiness.max_commits_to_check",
		},
		&cli.StringFlag{
			Name:  "judge",
			Usage: "Judge provider (gemini, rules)",
		},
		&cli.StringFlag{
			Name:  "language",
			Usage: "Language of the judge's reasons",
		},
		&cli.BoolFlag{
			Name:  "no-cache",
			Usage: "Do not reuse cached verdicts",
		},
		&cli.BoolFlag{
			Name:  "stream",
			Usage: "Print each round as an NDJSON line on stderr as soon as it ends",
		},
	)

	return &cli.Command{
		Name:      "rounds",
		Aliases:   []string{"r"},
		Usage:     "Walk the history and group commits into worthy rounds",
		ArgsUsage: "<repository>",
		Flags:     flags,
		Action:    roundsAction,
	}
}

func roundsAction(c *cli.Context) error {
	url, err := repoURLArg(c)
	if err != nil {
		return err
	}
	return executeWithContext(c, func(cc *CommandContext) error {
		applyRoundsFlags(c, cc)
		if err := cc.Config.Validate(); err != nil {
			return err
		}

		ws, err := cc.Open(c.Context, url)
		if err != nil {
			return err
		}
		machine, err := cc.Machine(c.Context, ws, url)
		if err != nil {
			return err
		}

		var next flow.Emitter
		if c.Bool("stream") {
			next = output.NewStreamEmitter(c.App.ErrWriter)
		}
		collector := output.NewCollector(next)

		controller, err := flow.New(flow.Options{
			History:    ws,
			Machine:    machine,
			Emitter:    collector,
			StartIndex: c.Int("start"),
			MaxRounds:  c.Int("max-rounds"),
			Calculator: cc.Calculator(),
			Logger:     cc.Logger,
		})
		if err != nil {
			return err
		}

		summary, runErr := controller.Run(c.Context)
		if runErr != nil {
			cc.Logger.Error("rounds stopped", zap.Error(runErr), zap.Int("emitted", summary.Rounds))
		}

		report := &output.RoundsReport{
			RepoURL:     url,
			ProjectName: repokey.ProjectName(url),
			GeneratedAt: time.Now(),
			Summary:     summary,
			Rounds:      collector.Rounds(),
		}
		if err := writeRoundsReport(c, report); err != nil {
			return err
		}
		return runErr
	})
}

// applyRoundsFlags copies rounds-specific flag overrides into the config.
func applyRoundsFlags(c *cli.Context, cc *CommandContext) {
	if n := c.Int("max-commits"); n > 0 {
		cc.Config.Worthiness.MaxCommitsToCheck = n
	}
	if provider := c.String("judge"); provider != "" {
		cc.Config.Judge.Provider = provider
	}
	if language := c.String("language"); language != "" {
		cc.Config.Judge.Language = language
	}
	if c.Bool("no-cache") {
		cc.Config.Judge.UseCache = false
	}
}
