package judge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/masmgr/commitrounds/internal/worthiness"
)

// ErrMalformedVerdict is returned when a model response cannot be read as a
// verdict.
var ErrMalformedVerdict = errors.New("malformed verdict")

type rawVerdict struct {
	IsWorthy    *bool    `json:"is_worthy"`
	Confidence  float64  `json:"confidence"`
	Reason      string   `json:"reason"`
	KeyConcepts []string `json:"key_concepts"`
	Suggestions string   `json:"suggestions"`
}

// ParseVerdict decodes a model response. A ```json fenced block is unwrapped
// first; no other repair is attempted. The is_worthy field is required.
func ParseVerdict(response string) (worthiness.Verdict, error) {
	body := unfence(response)
	if body == "" {
		return worthiness.Verdict{}, fmt.Errorf("%w: empty response", ErrMalformedVerdict)
	}

	var raw rawVerdict
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return worthiness.Verdict{}, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}
	if raw.IsWorthy == nil {
		return worthiness.Verdict{}, fmt.Errorf("%w: missing is_worthy", ErrMalformedVerdict)
	}

	reason := strings.TrimSpace(raw.Reason)
	if !*raw.IsWorthy && raw.Suggestions != "" {
		reason = strings.TrimSpace(reason + " Wait for: " + raw.Suggestions)
	}
	return worthiness.Verdict{
		IsWorthy:    *raw.IsWorthy,
		Confidence:  clamp01(raw.Confidence),
		Reason:      reason,
		KeyConcepts: raw.KeyConcepts,
	}, nil
}

func unfence(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "```json"); i >= 0 {
		s = s[i+len("```json"):]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
		return strings.TrimSpace(s)
	}
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
