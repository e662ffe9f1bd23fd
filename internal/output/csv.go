package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// CSVRoundsWriter writes rounds reports as CSV, one row per round.
type CSVRoundsWriter struct{}

// Write outputs the rounds report as CSV.
func (w *CSVRoundsWriter) Write(report *RoundsReport, options OutputOptions) error {
	writer, file, err := createCSVWriter(options.OutputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	// Write header
	headers := []string{"Round", "ID", "FirstIndex", "LastIndex", "State", "EndOfHistory",
		"IsWorthy", "Confidence", "Fallback", "LinesAdded", "LinesDeleted", "Files",
		"MeaningfulFiles", "Entropy", "Hashes", "Reason"}
	if options.Explain {
		headers = append(headers, "TrivialFiles", "BinaryFiles", "Directories", "Subsystems", "KeyConcepts")
	}
	if err := writer.Write(headers); err != nil {
		return err
	}

	// Write data
	for _, r := range report.Rounds {
		m := r.Metrics
		row := []string{
			fmt.Sprintf("%d", r.Number),
			r.ID.String(),
			fmt.Sprintf("%d", r.FirstIndex),
			fmt.Sprintf("%d", r.LastIndex),
			r.State.String(),
			fmt.Sprintf("%t", r.EndOfHistory),
			fmt.Sprintf("%t", r.Verdict.IsWorthy),
			fmt.Sprintf("%.6f", r.Verdict.Confidence),
			fmt.Sprintf("%t", r.Verdict.Fallback),
			fmt.Sprintf("%d", m.LinesAdded),
			fmt.Sprintf("%d", m.LinesDeleted),
			fmt.Sprintf("%d", m.FileCount),
			fmt.Sprintf("%d", m.MeaningfulFiles),
			fmt.Sprintf("%.6f", m.ChangeEntropy),
			strings.Join(r.Hashes(), " "),
			r.Verdict.Reason,
		}
		if options.Explain {
			row = append(row,
				fmt.Sprintf("%d", m.TrivialFiles),
				fmt.Sprintf("%d", m.BinaryFiles),
				fmt.Sprintf("%d", m.DirectoryCount),
				fmt.Sprintf("%d", m.SubsystemCount),
				strings.Join(r.Verdict.KeyConcepts, ";"),
			)
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// CSVClonesWriter writes clone listings as CSV.
type CSVClonesWriter struct{}

// Write outputs the clone listing as CSV.
func (w *CSVClonesWriter) Write(report *ClonesReport, options OutputOptions) error {
	writer, file, err := createCSVWriter(options.OutputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	if err := writer.Write([]string{"Key", "Dir", "URL", "SizeBytes", "ModifiedAt", "AgeSeconds"}); err != nil {
		return err
	}
	for _, c := range report.Clones {
		row := []string{
			c.Key.String(),
			c.Dir,
			c.URL,
			fmt.Sprintf("%d", c.SizeBytes),
			formatTimestamp(c.ModTime),
			fmt.Sprintf("%.0f", c.Age.Seconds()),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func createCSVWriter(outputPath string) (*csv.Writer, *os.File, error) {
	out, file, err := openOutputWriter(outputPath)
	if err != nil {
		return nil, nil, err
	}
	return csv.NewWriter(out), file, nil
}
