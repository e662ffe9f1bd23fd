package output

import (
	"io"
	"os"
	"strconv"
	"time"

	"github.com/masmgr/commitrounds/internal/flow"
)

const (
	reportDateTimeLayout = "2006-01-02T15:04:05"
)

func limitTop[T any](items []T, top int) []T {
	if top <= 0 || top >= len(items) {
		return items
	}
	return items[:top]
}

func openOutputWriter(outputPath string) (io.Writer, *os.File, error) {
	if outputPath == "" {
		return os.Stdout, nil, nil
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return nil, nil, err
	}
	return file, file, nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(reportDateTimeLayout)
}

func commitSpan(r flow.Round) string {
	if r.FirstIndex == r.LastIndex {
		return strconv.Itoa(r.FirstIndex)
	}
	return strconv.Itoa(r.FirstIndex) + "-" + strconv.Itoa(r.LastIndex)
}
