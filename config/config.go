// Package config loads commitrounds settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/masmgr/commitrounds/internal/bugfix"
	"github.com/masmgr/commitrounds/internal/logging"
)

const (
	// DefaultFileName is looked up in the working directory, then in $HOME.
	DefaultFileName = ".commitrounds.yaml"
	// EnvPrefix marks environment overrides, e.g. COMMITROUNDS_REPOS_LOCK_TIMEOUT.
	EnvPrefix = "COMMITROUNDS_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Judge providers.
const (
	ProviderGemini = "gemini"
	ProviderRules  = "rules"
)

// Config is the root configuration structure.
type Config struct {
	Repos      RepoConfig       `koanf:"repos"`
	Worthiness WorthinessConfig `koanf:"worthiness"`
	Judge      JudgeConfig      `koanf:"judge"`
	Filters    FilterConfig     `koanf:"filters"`
	Logging    logging.Config   `koanf:"logging"`
}

// RepoConfig holds shared clone options.
type RepoConfig struct {
	BaseDir        string        `koanf:"base_dir"`
	LockTimeout    time.Duration `koanf:"lock_timeout"`
	PollInterval   time.Duration `koanf:"poll_interval"`
	SweepMaxAge    time.Duration `koanf:"sweep_max_age"`
	UpdateToLatest bool          `koanf:"update_to_latest"`
}

// WorthinessConfig holds round accumulation options.
type WorthinessConfig struct {
	MaxCommitsToCheck  int      `koanf:"max_commits_to_check"`
	MinChangedLines    int      `koanf:"min_changed_lines"`
	MinMeaningfulFiles int      `koanf:"min_meaningful_files"`
	TrivialPatterns    []string `koanf:"trivial_patterns"`
	FixPatterns        []string `koanf:"fix_patterns"` // regexes; empty keeps the defaults
}

// JudgeConfig selects and tunes the judge.
type JudgeConfig struct {
	Provider    string        `koanf:"provider"` // gemini or rules
	Model       string        `koanf:"model"`
	APIKeyEnv   string        `koanf:"api_key_env"`
	Language    string        `koanf:"language"`
	UseCache    bool          `koanf:"use_cache"`
	CacheSize   int           `koanf:"cache_size"`
	MaxAttempts int           `koanf:"max_attempts"`
	RetryDelay  time.Duration `koanf:"retry_delay"`
}

// APIKey returns the key read from the configured environment variable.
func (j JudgeConfig) APIKey() string {
	if j.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(j.APIKeyEnv)
}

// FilterConfig holds file path filtering options.
type FilterConfig struct {
	Include     []string `koanf:"include"`
	Exclude     []string `koanf:"exclude"`
	MaxFileSize int64    `koanf:"max_file_size"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Repos: RepoConfig{
			BaseDir:      filepath.Join(os.TempDir(), "commitrounds"),
			LockTimeout:  30 * time.Second,
			PollInterval: 100 * time.Millisecond,
			SweepMaxAge:  7 * 24 * time.Hour,
		},
		Worthiness: WorthinessConfig{
			MaxCommitsToCheck:  4,
			MinChangedLines:    5,
			MinMeaningfulFiles: 1,
		},
		Judge: JudgeConfig{
			Provider:    ProviderGemini,
			Model:       "gemini-2.5-flash",
			APIKeyEnv:   "GEMINI_API_KEY",
			Language:    "English",
			UseCache:    true,
			CacheSize:   256,
			MaxAttempts: 3,
			RetryDelay:  time.Second,
		},
		Filters: FilterConfig{
			Include:     []string{},
			Exclude:     []string{},
			MaxFileSize: 1 << 20,
		},
		Logging: logging.DefaultConfig(),
	}
}

// LoadConfig loads configuration from a YAML file, then applies COMMITROUNDS_
// environment overrides, on top of the defaults. An empty path looks for
// DefaultFileName in the working directory and then in the home directory; a
// missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = findDefault()
	}
	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if content != nil {
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// envKey maps COMMITROUNDS_REPOS_LOCK_TIMEOUT to repos.lock_timeout: the
// first segment is the section, the rest the field name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func findDefault() string {
	candidates := []string{DefaultFileName}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		candidates = append(candidates, filepath.Join(home, DefaultFileName))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Repos.LockTimeout <= 0 {
		errs = append(errs, errors.New("repos.lock_timeout must be positive"))
	}
	if c.Repos.PollInterval <= 0 {
		errs = append(errs, errors.New("repos.poll_interval must be positive"))
	} else if c.Repos.LockTimeout > 0 && c.Repos.PollInterval > c.Repos.LockTimeout {
		errs = append(errs, errors.New("repos.poll_interval must not exceed repos.lock_timeout"))
	}
	if c.Repos.SweepMaxAge < 0 {
		errs = append(errs, errors.New("repos.sweep_max_age must not be negative"))
	}

	if c.Worthiness.MaxCommitsToCheck < 1 {
		errs = append(errs, errors.New("worthiness.max_commits_to_check must be at least 1"))
	}
	if c.Worthiness.MinChangedLines < 0 {
		errs = append(errs, errors.New("worthiness.min_changed_lines must not be negative"))
	}
	if c.Worthiness.MinMeaningfulFiles < 0 {
		errs = append(errs, errors.New("worthiness.min_meaningful_files must not be negative"))
	}

	if _, err := bugfix.NewDetector(c.Worthiness.FixPatterns); err != nil {
		errs = append(errs, fmt.Errorf("invalid worthiness.fix_patterns: %w", err))
	}

	switch c.Judge.Provider {
	case ProviderGemini, ProviderRules:
	default:
		errs = append(errs, fmt.Errorf("judge.provider %q must be %s or %s", c.Judge.Provider, ProviderGemini, ProviderRules))
	}
	if c.Judge.CacheSize < 0 {
		errs = append(errs, errors.New("judge.cache_size must not be negative"))
	}
	if c.Judge.MaxAttempts < 1 {
		errs = append(errs, errors.New("judge.max_attempts must be at least 1"))
	}
	if c.Judge.RetryDelay < 0 {
		errs = append(errs, errors.New("judge.retry_delay must not be negative"))
	}

	if c.Filters.MaxFileSize < 0 {
		errs = append(errs, errors.New("filters.max_file_size must not be negative"))
	}
	for _, group := range [][]string{c.Filters.Include, c.Filters.Exclude, c.Worthiness.TrivialPatterns} {
		for _, p := range group {
			if !doublestar.ValidatePattern(p) {
				errs = append(errs, fmt.Errorf("invalid glob pattern %q", p))
			}
		}
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}

	return errors.Join(errs...)
}
