package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/masmgr/commitrounds/internal/output"
)

// HistoryCmd returns the history command.
func HistoryCmd() *cli.Command {
	return &cli.Command{
		Name:      "history",
		Aliases:   []string{"h"},
		Usage:     "List the authoritative history of a repository, oldest first",
		ArgsUsage: "<repository>",
		Flags:     append(repoFlags(), reportFlags()...),
		Action:    historyAction,
	}
}

func historyAction(c *cli.Context) error {
	url, err := repoURLArg(c)
	if err != nil {
		return err
	}
	return executeWithContext(c, func(cc *CommandContext) error {
		ws, err := cc.Open(c.Context, url)
		if err != nil {
			return err
		}
		history, err := ws.History(c.Context)
		if err != nil {
			return fmt.Errorf("failed to read history: %w", err)
		}
		return output.WriteHistory(&output.HistoryReport{
			RepoURL:     url,
			GeneratedAt: time.Now(),
			History:     history,
		}, OutputOptions(c))
	})
}

// DeltaCmd returns the delta command.
func DeltaCmd() *cli.Command {
	return &cli.Command{
		Name:      "delta",
		Aliases:   []string{"d"},
		Usage:     "Show the changes introduced by the commit at an index",
		ArgsUsage: "<repository> <index>",
		Flags:     append(repoFlags(), reportFlags()...),
		Action:    deltaAction,
	}
}

func deltaAction(c *cli.Context) error {
	url, err := repoURLArg(c)
	if err != nil {
		return err
	}
	index, err := parseIndexArg(c.Args().Get(1))
	if err != nil {
		return err
	}
	return executeWithContext(c, func(cc *CommandContext) error {
		ws, err := cc.Open(c.Context, url)
		if err != nil {
			return err
		}
		delta, err := ws.Delta(c.Context, index)
		if err != nil {
			return fmt.Errorf("failed to read commit %d: %w", index, err)
		}
		return output.WriteDelta(&output.DeltaReport{
			RepoURL:     url,
			GeneratedAt: time.Now(),
			Delta:       delta,
		}, OutputOptions(c))
	})
}

// CheckoutCmd returns the checkout command.
func CheckoutCmd() *cli.Command {
	return &cli.Command{
		Name:      "checkout",
		Usage:     "Put the shared clone's working tree at the commit at an index",
		ArgsUsage: "<repository> <index>",
		Flags:     repoFlags(),
		Action:    checkoutAction,
	}
}

func checkoutAction(c *cli.Context) error {
	url, err := repoURLArg(c)
	if err != nil {
		return err
	}
	index, err := parseIndexArg(c.Args().Get(1))
	if err != nil {
		return err
	}
	return executeWithContext(c, func(cc *CommandContext) error {
		ws, err := cc.Open(c.Context, url)
		if err != nil {
			return err
		}
		commit, err := ws.Checkout(c.Context, index)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%s %d %s %s\n",
			color.GreenString("checked out"), commit.Index, commit.ShortHash(), commit.Subject())
		fmt.Fprintf(c.App.Writer, "working tree: %s\n", ws.Handle().Dir)
		return nil
	})
}

// parseIndexArg parses a 1-based commit index.
func parseIndexArg(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("commit index is required")
	}
	index, err := strconv.Atoi(s)
	if err != nil || index < 1 {
		return 0, fmt.Errorf("invalid commit index %q: must be a positive integer", s)
	}
	return index, nil
}
