package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/masmgr/commitrounds/internal/output"
)

// ClonesCmd returns the clones command.
func ClonesCmd() *cli.Command {
	return &cli.Command{
		Name:   "clones",
		Usage:  "List the shared clones under the base directory",
		Flags:  reportFlags(),
		Action: clonesAction,
	}
}

func clonesAction(c *cli.Context) error {
	return executeWithContext(c, func(cc *CommandContext) error {
		clones, err := cc.Manager.Clones()
		if err != nil {
			return fmt.Errorf("failed to list clones: %w", err)
		}
		return writeClonesReport(c, &output.ClonesReport{
			BaseDir:     cc.Manager.BaseDir(),
			GeneratedAt: time.Now(),
			Clones:      clones,
		})
	})
}

// SweepCmd returns the sweep command.
func SweepCmd() *cli.Command {
	flags := append(reportFlags(),
		&cli.DurationFlag{
			Name:  "max-age",
			Usage: "Remove clones unused for longer than this (default: repos.sweep_max_age)",
		},
	)
	return &cli.Command{
		Name:   "sweep",
		Usage:  "Remove shared clones that have not been used recently",
		Flags:  flags,
		Action: sweepAction,
	}
}

func sweepAction(c *cli.Context) error {
	return executeWithContext(c, func(cc *CommandContext) error {
		maxAge := cc.Config.Repos.SweepMaxAge
		if d := c.Duration("max-age"); d > 0 {
			maxAge = d
		}
		if maxAge <= 0 {
			return fmt.Errorf("sweep: max age must be positive")
		}

		removed, err := cc.Manager.Sweep(c.Context, maxAge)
		if err != nil {
			return fmt.Errorf("failed to sweep clones: %w", err)
		}
		cc.Logger.Info("sweep finished", zap.Int("removed", len(removed)), zap.Duration("max_age", maxAge))

		clones, err := cc.Manager.Clones()
		if err != nil {
			return fmt.Errorf("failed to list clones: %w", err)
		}
		return writeClonesReport(c, &output.ClonesReport{
			BaseDir:     cc.Manager.BaseDir(),
			GeneratedAt: time.Now(),
			Clones:      clones,
			Removed:     removed,
		})
	})
}
