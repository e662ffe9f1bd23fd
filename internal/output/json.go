package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/masmgr/commitrounds/internal/flow"
	"github.com/masmgr/commitrounds/internal/git"
)

// JSONRoundsWriter writes rounds reports as JSON.
type JSONRoundsWriter struct{}

// JSONRoundsReport is the JSON output structure for a rounds report. The YAML
// writer shares it.
type JSONRoundsReport struct {
	Repo        string      `json:"repo" yaml:"repo"`
	Project     string      `json:"project,omitempty" yaml:"project,omitempty"`
	GeneratedAt string      `json:"generatedAt" yaml:"generatedAt"`
	Summary     JSONSummary `json:"summary" yaml:"summary"`
	Rounds      []JSONRound `json:"rounds" yaml:"rounds"`
}

// JSONSummary holds the run totals.
type JSONSummary struct {
	Rounds       int    `json:"rounds" yaml:"rounds"`
	Worthy       int    `json:"worthy" yaml:"worthy"`
	Exhausted    int    `json:"exhausted" yaml:"exhausted"`
	Commits      int    `json:"commits" yaml:"commits"`
	TotalCommits int    `json:"totalCommits" yaml:"totalCommits"`
	NextIndex    int    `json:"nextIndex" yaml:"nextIndex"`
	HistoryTier  string `json:"historyTier" yaml:"historyTier"`
	Degraded     bool   `json:"degraded" yaml:"degraded"`
}

// JSONRound is one emitted round.
type JSONRound struct {
	ID           string           `json:"id" yaml:"id"`
	Number       int              `json:"number" yaml:"number"`
	FirstIndex   int              `json:"firstIndex" yaml:"firstIndex"`
	LastIndex    int              `json:"lastIndex" yaml:"lastIndex"`
	State        string           `json:"state" yaml:"state"`
	EndOfHistory bool             `json:"endOfHistory" yaml:"endOfHistory"`
	Verdict      JSONVerdict      `json:"verdict" yaml:"verdict"`
	Metrics      JSONRoundMetrics `json:"metrics" yaml:"metrics"`
	Commits      []JSONCommit     `json:"commits" yaml:"commits"`
	Files        []JSONRoundFile  `json:"files,omitempty" yaml:"files,omitempty"`
	Couplings    []JSONCoupling   `json:"couplings,omitempty" yaml:"couplings,omitempty"`
}

// JSONVerdict is the decision that ended a round.
type JSONVerdict struct {
	IsWorthy    bool     `json:"isWorthy" yaml:"isWorthy"`
	Confidence  float64  `json:"confidence" yaml:"confidence"`
	Reason      string   `json:"reason" yaml:"reason"`
	KeyConcepts []string `json:"keyConcepts,omitempty" yaml:"keyConcepts,omitempty"`
	Fallback    bool     `json:"fallback" yaml:"fallback"`
}

// JSONRoundMetrics holds the aggregate metrics of a round.
type JSONRoundMetrics struct {
	Files           int     `json:"files" yaml:"files"`
	Directories     int     `json:"directories" yaml:"directories"`
	Subsystems      int     `json:"subsystems" yaml:"subsystems"`
	LinesAdded      int     `json:"linesAdded" yaml:"linesAdded"`
	LinesDeleted    int     `json:"linesDeleted" yaml:"linesDeleted"`
	Entropy         float64 `json:"entropy" yaml:"entropy"`
	MeaningfulFiles int     `json:"meaningfulFiles" yaml:"meaningfulFiles"`
	TrivialFiles    int     `json:"trivialFiles" yaml:"trivialFiles"`
	BinaryFiles     int     `json:"binaryFiles" yaml:"binaryFiles"`
	Authors         int     `json:"authors" yaml:"authors"`
	FixCommits      int     `json:"fixCommits" yaml:"fixCommits"`
}

// JSONCoupling is a pair of files changed together during a round.
type JSONCoupling struct {
	FileA     string  `json:"fileA" yaml:"fileA"`
	FileB     string  `json:"fileB" yaml:"fileB"`
	CoCommits int     `json:"coCommits" yaml:"coCommits"`
	Jaccard   float64 `json:"jaccard" yaml:"jaccard"`
}

// JSONCommit identifies a commit of a round.
type JSONCommit struct {
	Index   int    `json:"index" yaml:"index"`
	Hash    string `json:"hash" yaml:"hash"`
	Subject string `json:"subject" yaml:"subject"`
	Author  string `json:"author" yaml:"author"`
	When    string `json:"when" yaml:"when"`
	Changes int    `json:"changes" yaml:"changes"`
}

// JSONRoundFile is a file touched during a round.
type JSONRoundFile struct {
	Path     string `json:"path" yaml:"path"`
	LastKind string `json:"lastKind" yaml:"lastKind"`
	Added    int    `json:"added" yaml:"added"`
	Deleted  int    `json:"deleted" yaml:"deleted"`
	Commits  int    `json:"commits" yaml:"commits"`
	Binary   bool   `json:"binary,omitempty" yaml:"binary,omitempty"`
}

// Write outputs the rounds report as JSON.
func (w *JSONRoundsWriter) Write(report *RoundsReport, options OutputOptions) error {
	return writeJSON(buildRoundsReport(report, options), options.OutputPath)
}

func buildRoundsReport(report *RoundsReport, options OutputOptions) JSONRoundsReport {
	rounds := make([]JSONRound, len(report.Rounds))
	for i, r := range report.Rounds {
		rounds[i] = buildRound(r, options.Top)
	}
	return JSONRoundsReport{
		Repo:        report.RepoURL,
		Project:     report.ProjectName,
		GeneratedAt: report.GeneratedAt.Format(time.RFC3339),
		Summary:     buildSummary(report.Summary),
		Rounds:      rounds,
	}
}

func buildSummary(s flow.Summary) JSONSummary {
	return JSONSummary{
		Rounds:       s.Rounds,
		Worthy:       s.Worthy,
		Exhausted:    s.Exhausted,
		Commits:      s.Commits,
		TotalCommits: s.TotalCommits,
		NextIndex:    s.NextIndex,
		HistoryTier:  string(s.Tier),
		Degraded:     s.Degraded,
	}
}

func buildRound(r flow.Round, top int) JSONRound {
	deltas := r.Context.Deltas()
	commits := make([]JSONCommit, len(deltas))
	for i, d := range deltas {
		commits[i] = buildCommit(d)
	}

	files := limitTop(r.Metrics.Files, top)
	jsonFiles := make([]JSONRoundFile, len(files))
	for i, f := range files {
		jsonFiles[i] = JSONRoundFile{
			Path:     f.Path,
			LastKind: f.LastKind.String(),
			Added:    f.AddedLines,
			Deleted:  f.DeletedLines,
			Commits:  f.CommitCount,
			Binary:   f.Binary,
		}
	}

	var couplings []JSONCoupling
	for _, c := range r.Metrics.Couplings {
		couplings = append(couplings, JSONCoupling{
			FileA:     c.FileA,
			FileB:     c.FileB,
			CoCommits: c.CoCommitCount,
			Jaccard:   c.JaccardCoefficient,
		})
	}

	m := r.Metrics
	return JSONRound{
		ID:           r.ID.String(),
		Number:       r.Number,
		FirstIndex:   r.FirstIndex,
		LastIndex:    r.LastIndex,
		State:        r.State.String(),
		EndOfHistory: r.EndOfHistory,
		Verdict: JSONVerdict{
			IsWorthy:    r.Verdict.IsWorthy,
			Confidence:  r.Verdict.Confidence,
			Reason:      r.Verdict.Reason,
			KeyConcepts: r.Verdict.KeyConcepts,
			Fallback:    r.Verdict.Fallback,
		},
		Metrics: JSONRoundMetrics{
			Files:           m.FileCount,
			Directories:     m.DirectoryCount,
			Subsystems:      m.SubsystemCount,
			LinesAdded:      m.LinesAdded,
			LinesDeleted:    m.LinesDeleted,
			Entropy:         m.ChangeEntropy,
			MeaningfulFiles: m.MeaningfulFiles,
			TrivialFiles:    m.TrivialFiles,
			BinaryFiles:     m.BinaryFiles,
			Authors:         m.Authors,
			FixCommits:      m.FixCommits,
		},
		Commits:   commits,
		Files:     jsonFiles,
		Couplings: couplings,
	}
}

func buildCommit(d git.CommitDelta) JSONCommit {
	c := d.Commit
	var when string
	if !c.When.IsZero() {
		when = c.When.Format(time.RFC3339)
	}
	return JSONCommit{
		Index:   c.Index,
		Hash:    c.Hash,
		Subject: c.Subject(),
		Author:  c.Author.Name,
		When:    when,
		Changes: len(d.Changes),
	}
}

// JSONClonesWriter writes clone listings as JSON.
type JSONClonesWriter struct{}

// JSONClonesReport is the JSON output structure for a clone listing.
type JSONClonesReport struct {
	BaseDir     string      `json:"baseDir" yaml:"baseDir"`
	GeneratedAt string      `json:"generatedAt" yaml:"generatedAt"`
	TotalBytes  int64       `json:"totalBytes" yaml:"totalBytes"`
	Clones      []JSONClone `json:"clones" yaml:"clones"`
	Removed     []string    `json:"removed,omitempty" yaml:"removed,omitempty"`
}

// JSONClone describes one shared clone.
type JSONClone struct {
	Key        string  `json:"key" yaml:"key"`
	Dir        string  `json:"dir" yaml:"dir"`
	URL        string  `json:"url,omitempty" yaml:"url,omitempty"`
	SizeBytes  int64   `json:"sizeBytes" yaml:"sizeBytes"`
	ModifiedAt string  `json:"modifiedAt" yaml:"modifiedAt"`
	AgeHours   float64 `json:"ageHours" yaml:"ageHours"`
}

// Write outputs the clone listing as JSON.
func (w *JSONClonesWriter) Write(report *ClonesReport, options OutputOptions) error {
	return writeJSON(buildClonesReport(report), options.OutputPath)
}

func buildClonesReport(report *ClonesReport) JSONClonesReport {
	out := JSONClonesReport{
		BaseDir:     report.BaseDir,
		GeneratedAt: report.GeneratedAt.Format(time.RFC3339),
		Clones:      make([]JSONClone, len(report.Clones)),
		Removed:     report.Removed,
	}
	for i, c := range report.Clones {
		out.TotalBytes += c.SizeBytes
		out.Clones[i] = JSONClone{
			Key:        c.Key.String(),
			Dir:        c.Dir,
			URL:        c.URL,
			SizeBytes:  c.SizeBytes,
			ModifiedAt: c.ModTime.Format(time.RFC3339),
			AgeHours:   c.Age.Hours(),
		}
	}
	return out
}

func writeJSON(data interface{}, outputPath string) error {
	out, file, err := openOutputWriter(outputPath)
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}
	return encodeJSON(out, data)
}

func encodeJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
