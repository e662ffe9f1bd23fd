package cmd

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/masmgr/commitrounds/config"
	"github.com/masmgr/commitrounds/internal/aggregation"
	"github.com/masmgr/commitrounds/internal/bugfix"
	"github.com/masmgr/commitrounds/internal/flow"
	"github.com/masmgr/commitrounds/internal/git"
	"github.com/masmgr/commitrounds/internal/judge"
	"github.com/masmgr/commitrounds/internal/logging"
	"github.com/masmgr/commitrounds/internal/repokey"
	"github.com/masmgr/commitrounds/internal/sharedrepo"
	"github.com/masmgr/commitrounds/internal/worthiness"
)

// CommandContext holds common resources for command execution.
type CommandContext struct {
	Config   *config.Config
	Logger   *zap.Logger
	Manager  *sharedrepo.Manager
	Registry *prometheus.Registry
}

// NewCommandContext loads configuration and builds the logger and the clone
// manager.
func NewCommandContext(c *cli.Context) (*CommandContext, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	manager, err := sharedrepo.New(sharedrepo.Options{
		BaseDir:      cfg.Repos.BaseDir,
		LockTimeout:  cfg.Repos.LockTimeout,
		PollInterval: cfg.Repos.PollInterval,
		Logger:       logger,
		Registerer:   registry,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open clone directory: %w", err)
	}

	return &CommandContext{
		Config:   cfg,
		Logger:   logger,
		Manager:  manager,
		Registry: registry,
	}, nil
}

// Close flushes the logger.
func (cc *CommandContext) Close() {
	logging.Sync(cc.Logger)
}

// Extractor builds a delta extractor from the filter settings.
func (cc *CommandContext) Extractor() (*git.Extractor, error) {
	extractor, err := git.NewExtractor(git.ExtractorOptions{
		Include:     cc.Config.Filters.Include,
		Exclude:     cc.Config.Filters.Exclude,
		MaxFileSize: cc.Config.Filters.MaxFileSize,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid filters: %w", err)
	}
	return extractor, nil
}

// Open clones or reuses url and returns a workspace on it.
func (cc *CommandContext) Open(ctx context.Context, url string) (*sharedrepo.Workspace, error) {
	extractor, err := cc.Extractor()
	if err != nil {
		return nil, err
	}
	return flow.Open(ctx, cc.Manager, url, cc.Config.Repos.UpdateToLatest, extractor)
}

// Calculator builds the context metrics calculator with the configured
// trivial and fix patterns.
func (cc *CommandContext) Calculator() *aggregation.ContextCalculator {
	calc := aggregation.NewContextCalculator(cc.Config.Worthiness.TrivialPatterns)
	if len(cc.Config.Worthiness.FixPatterns) > 0 {
		// Validate already compiled them.
		if d, err := bugfix.NewDetector(cc.Config.Worthiness.FixPatterns); err == nil {
			calc.WithFixDetector(d)
		}
	}
	return calc
}

// FallbackRule builds the deterministic rule used when the judge fails.
func (cc *CommandContext) FallbackRule() worthiness.FallbackRule {
	return worthiness.FallbackRule{
		MinChangedLines:    cc.Config.Worthiness.MinChangedLines,
		MinMeaningfulFiles: cc.Config.Worthiness.MinMeaningfulFiles,
		Calculator:         cc.Calculator(),
	}
}

// Judge builds the configured judge. The gemini provider is wrapped with
// retry and, when enabled, a verdict cache.
func (cc *CommandContext) Judge(ctx context.Context) (worthiness.Judge, error) {
	jc := cc.Config.Judge
	if jc.Provider == config.ProviderRules {
		return &judge.Rules{Rule: cc.FallbackRule()}, nil
	}

	apiKey := jc.APIKey()
	if apiKey == "" {
		cc.Logger.Warn("no API key set, using rule-based judge", zap.String("env", jc.APIKeyEnv))
		return &judge.Rules{Rule: cc.FallbackRule()}, nil
	}

	gemini, err := judge.NewGemini(ctx, judge.GeminiOptions{
		APIKey:     apiKey,
		Model:      jc.Model,
		Calculator: cc.Calculator(),
		Logger:     cc.Logger,
	})
	if err != nil {
		return nil, err
	}

	j := judge.WithRetry(gemini, jc.MaxAttempts, jc.RetryDelay)
	if !jc.UseCache || jc.CacheSize == 0 {
		return j, nil
	}
	cached, err := judge.WithCache(j, jc.CacheSize)
	if err != nil {
		return nil, err
	}
	return cached, nil
}

// Machine builds the worthiness machine over ws.
func (cc *CommandContext) Machine(ctx context.Context, ws *sharedrepo.Workspace, url string) (*worthiness.Machine, error) {
	j, err := cc.Judge(ctx)
	if err != nil {
		return nil, err
	}
	return worthiness.New(worthiness.Options{
		MaxCommitsToCheck: cc.Config.Worthiness.MaxCommitsToCheck,
		Source:            ws,
		Snapshotter:       ws,
		Judge:             j,
		JudgeOptions: worthiness.JudgeOptions{
			ProjectName: repokey.ProjectName(url),
			Language:    cc.Config.Judge.Language,
			UseCache:    cc.Config.Judge.UseCache,
		},
		Fallback: cc.FallbackRule(),
		Logger:   cc.Logger,
	})
}

// executeWithContext runs fn with a CommandContext and flushes the logger
// afterwards.
func executeWithContext(c *cli.Context, fn func(cc *CommandContext) error) error {
	cc, err := NewCommandContext(c)
	if err != nil {
		return err
	}
	defer cc.Close()
	return fn(cc)
}
