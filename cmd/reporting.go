package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/masmgr/commitrounds/internal/output"
)

// OutputOptions creates output options from CLI flags.
func OutputOptions(c *cli.Context) output.OutputOptions {
	return output.OutputOptions{
		Format:     getOutputFormat(c.String("format")),
		Top:        c.Int("top"),
		OutputPath: c.String("output"),
		Explain:    c.Bool("explain"),
	}
}

func writeRoundsReport(c *cli.Context, report *output.RoundsReport) error {
	opts := OutputOptions(c)
	writer := output.NewRoundsReportWriter(opts.Format)
	return writer.Write(report, opts)
}

func writeClonesReport(c *cli.Context, report *output.ClonesReport) error {
	opts := OutputOptions(c)
	writer := output.NewClonesReportWriter(opts.Format)
	return writer.Write(report, opts)
}
