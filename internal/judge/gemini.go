package judge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/masmgr/commitrounds/internal/aggregation"
	"github.com/masmgr/commitrounds/internal/worthiness"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// ErrEmptyResponse is returned when the model answers without content.
var ErrEmptyResponse = errors.New("empty model response")

// generator sends one prompt and returns the raw text of the answer.
type generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

type genaiGenerator struct {
	cli *genai.Client
}

func (g *genaiGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}

// GeminiOptions configures the Gemini judge.
type GeminiOptions struct {
	APIKey       string
	Model        string
	MaxDiffBytes int
	Calculator   *aggregation.ContextCalculator
	Logger       *zap.Logger
}

// Gemini asks a Gemini model whether an accumulation is worthy.
type Gemini struct {
	gen          generator
	model        string
	maxDiffBytes int
	calc         *aggregation.ContextCalculator
	logger       *zap.Logger
}

// NewGemini creates a Gemini judge. An empty API key lets the client read
// GEMINI_API_KEY / GOOGLE_API_KEY from the environment.
func NewGemini(ctx context.Context, opts GeminiOptions) (*Gemini, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newGemini(&genaiGenerator{cli: cli}, opts), nil
}

func newGemini(gen generator, opts GeminiOptions) *Gemini {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.MaxDiffBytes <= 0 {
		opts.MaxDiffBytes = DefaultMaxDiffBytes
	}
	if opts.Calculator == nil {
		opts.Calculator = aggregation.NewContextCalculator(nil)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Gemini{
		gen:          gen,
		model:        opts.Model,
		maxDiffBytes: opts.MaxDiffBytes,
		calc:         opts.Calculator,
		logger:       opts.Logger,
	}
}

// Model returns the model name.
func (g *Gemini) Model() string {
	return g.model
}

// Evaluate implements worthiness.Judge.
func (g *Gemini) Evaluate(ctx context.Context, acc worthiness.Context, opts worthiness.JudgeOptions) (worthiness.Verdict, error) {
	metrics := g.calc.Calculate(acc.Deltas())
	prompt := BuildPrompt(acc, metrics, opts, g.maxDiffBytes)

	g.logger.Debug("requesting verdict",
		zap.String("model", g.model),
		zap.Int("commits", acc.Len()),
		zap.Int("prompt_bytes", len(prompt)))

	response, err := g.gen.Generate(ctx, g.model, prompt)
	if err != nil {
		return worthiness.Verdict{}, fmt.Errorf("gemini %s: %w", g.model, err)
	}

	verdict, err := ParseVerdict(response)
	if err != nil {
		return worthiness.Verdict{}, fmt.Errorf("gemini %s: %w", g.model, err)
	}
	return verdict, nil
}
