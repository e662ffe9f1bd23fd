package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/masmgr/commitrounds/internal/flow"
)

// CIRoundsWriter writes rounds reports as NDJSON (one JSON object per line) for CI pipelines.
type CIRoundsWriter struct{}

// CISummary is the first line of CI output, containing aggregate statistics.
type CISummary struct {
	Type         string `json:"type"`
	Repo         string `json:"repo"`
	Rounds       int    `json:"rounds"`
	Worthy       int    `json:"worthy"`
	Exhausted    int    `json:"exhausted"`
	TotalCommits int    `json:"totalCommits"`
	NextIndex    int    `json:"nextIndex"`
	Degraded     bool   `json:"degraded"`
}

// CIRoundEntry represents a single round in CI output.
type CIRoundEntry struct {
	Type         string   `json:"type"`
	ID           string   `json:"id"`
	Number       int      `json:"number"`
	FirstIndex   int      `json:"firstIndex"`
	LastIndex    int      `json:"lastIndex"`
	State        string   `json:"state"`
	EndOfHistory bool     `json:"endOfHistory"`
	Confidence   float64  `json:"confidence"`
	Fallback     bool     `json:"fallback"`
	Churn        int      `json:"churn"`
	Hashes       []string `json:"hashes"`
}

// Write outputs the rounds report as NDJSON.
func (w *CIRoundsWriter) Write(report *RoundsReport, options OutputOptions) error {
	out, file, err := openOutputWriter(options.OutputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}

	// Write summary line
	s := report.Summary
	summary := CISummary{
		Type:         "summary",
		Repo:         report.RepoURL,
		Rounds:       s.Rounds,
		Worthy:       s.Worthy,
		Exhausted:    s.Exhausted,
		TotalCommits: s.TotalCommits,
		NextIndex:    s.NextIndex,
		Degraded:     s.Degraded,
	}
	if err := writeNDJSONLine(out, summary); err != nil {
		return err
	}

	// Write round entries
	for _, r := range report.Rounds {
		if err := writeNDJSONLine(out, newCIRoundEntry(r)); err != nil {
			return err
		}
	}

	return nil
}

func newCIRoundEntry(r flow.Round) CIRoundEntry {
	return CIRoundEntry{
		Type:         "round",
		ID:           r.ID.String(),
		Number:       r.Number,
		FirstIndex:   r.FirstIndex,
		LastIndex:    r.LastIndex,
		State:        r.State.String(),
		EndOfHistory: r.EndOfHistory,
		Confidence:   r.Verdict.Confidence,
		Fallback:     r.Verdict.Fallback,
		Churn:        r.Metrics.TotalChurn(),
		Hashes:       r.Hashes(),
	}
}

// StreamEmitter writes each round as an NDJSON line the moment it is emitted.
type StreamEmitter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStreamEmitter creates an emitter writing to w.
func NewStreamEmitter(w io.Writer) *StreamEmitter {
	return &StreamEmitter{w: w}
}

// Emit implements flow.Emitter.
func (e *StreamEmitter) Emit(_ context.Context, r flow.Round) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return writeNDJSONLine(e.w, newCIRoundEntry(r))
}

// Collector keeps emitted rounds in memory for a report.
type Collector struct {
	mu     sync.Mutex
	rounds []flow.Round
	next   flow.Emitter
}

// NewCollector creates a collector that forwards each round to next, when
// not nil, before keeping it.
func NewCollector(next flow.Emitter) *Collector {
	return &Collector{next: next}
}

// Emit implements flow.Emitter.
func (c *Collector) Emit(ctx context.Context, r flow.Round) error {
	if c.next != nil {
		if err := c.next.Emit(ctx, r); err != nil {
			return err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rounds = append(c.rounds, r)
	return nil
}

// Rounds returns the collected rounds in emission order.
func (c *Collector) Rounds() []flow.Round {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]flow.Round(nil), c.rounds...)
}

func writeNDJSONLine(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal NDJSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
