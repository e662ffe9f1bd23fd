package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFileName)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Repos.LockTimeout != 30*time.Second {
		t.Errorf("Repos.LockTimeout = %s, expected 30s", cfg.Repos.LockTimeout)
	}
	if cfg.Repos.PollInterval != 100*time.Millisecond {
		t.Errorf("Repos.PollInterval = %s, expected 100ms", cfg.Repos.PollInterval)
	}
	if cfg.Worthiness.MaxCommitsToCheck != 4 {
		t.Errorf("Worthiness.MaxCommitsToCheck = %d, expected 4", cfg.Worthiness.MaxCommitsToCheck)
	}
	if cfg.Worthiness.MinChangedLines != 5 || cfg.Worthiness.MinMeaningfulFiles != 1 {
		t.Errorf("fallback thresholds = %d/%d, expected 5/1", cfg.Worthiness.MinChangedLines, cfg.Worthiness.MinMeaningfulFiles)
	}
	if cfg.Worthiness.TrivialPatterns != nil {
		t.Errorf("Worthiness.TrivialPatterns = %v, expected nil (built-in defaults)", cfg.Worthiness.TrivialPatterns)
	}
	if cfg.Judge.Provider != ProviderGemini {
		t.Errorf("Judge.Provider = %q, expected %q", cfg.Judge.Provider, ProviderGemini)
	}
	if cfg.Filters.MaxFileSize != 1<<20 {
		t.Errorf("Filters.MaxFileSize = %d, expected 1MiB", cfg.Filters.MaxFileSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeConfig(t, `
repos:
  base_dir: /var/tmp/clones
  lock_timeout: 45s
worthiness:
  max_commits_to_check: 3
  trivial_patterns: ["*.md"]
judge:
  provider: rules
filters:
  exclude: ["vendor/**"]
logging:
  level: debug
  format: json
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Repos.BaseDir != "/var/tmp/clones" {
		t.Errorf("Repos.BaseDir = %q", cfg.Repos.BaseDir)
	}
	if cfg.Repos.LockTimeout != 45*time.Second {
		t.Errorf("Repos.LockTimeout = %s, expected 45s", cfg.Repos.LockTimeout)
	}
	if cfg.Repos.PollInterval != 100*time.Millisecond {
		t.Errorf("Repos.PollInterval = %s, expected default 100ms", cfg.Repos.PollInterval)
	}
	if cfg.Worthiness.MaxCommitsToCheck != 3 {
		t.Errorf("MaxCommitsToCheck = %d, expected 3", cfg.Worthiness.MaxCommitsToCheck)
	}
	if len(cfg.Worthiness.TrivialPatterns) != 1 || cfg.Worthiness.TrivialPatterns[0] != "*.md" {
		t.Errorf("TrivialPatterns = %v", cfg.Worthiness.TrivialPatterns)
	}
	if cfg.Judge.Provider != ProviderRules || cfg.Judge.Model != "gemini-2.5-flash" {
		t.Errorf("Judge = %+v", cfg.Judge)
	}
	if len(cfg.Filters.Exclude) != 1 {
		t.Errorf("Filters.Exclude = %v", cfg.Filters.Exclude)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "repos:\n  lock_timeout: 45s\n")
	t.Setenv("COMMITROUNDS_REPOS_LOCK_TIMEOUT", "90s")
	t.Setenv("COMMITROUNDS_WORTHINESS_MAX_COMMITS_TO_CHECK", "6")
	t.Setenv("COMMITROUNDS_JUDGE_USE_CACHE", "false")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Repos.LockTimeout != 90*time.Second {
		t.Errorf("Repos.LockTimeout = %s, expected 90s", cfg.Repos.LockTimeout)
	}
	if cfg.Worthiness.MaxCommitsToCheck != 6 {
		t.Errorf("MaxCommitsToCheck = %d, expected 6", cfg.Worthiness.MaxCommitsToCheck)
	}
	if cfg.Judge.UseCache {
		t.Error("Judge.UseCache = true, expected false")
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Worthiness.MaxCommitsToCheck != 4 {
		t.Errorf("MaxCommitsToCheck = %d, expected 4", cfg.Worthiness.MaxCommitsToCheck)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "bad yaml", content: "repos: [", wantErr: "failed to load config file"},
		{name: "zero cap", content: "worthiness:\n  max_commits_to_check: 0\n", wantErr: "max_commits_to_check"},
		{name: "unknown provider", content: "judge:\n  provider: oracle\n", wantErr: "judge.provider"},
		{name: "bad glob", content: "filters:\n  include: [\"[\"]\n", wantErr: "invalid glob pattern"},
		{name: "bad fix pattern", content: "worthiness:\n  fix_patterns: [\"(\"]\n", wantErr: "invalid worthiness.fix_patterns"},
		{name: "poll above timeout", content: "repos:\n  lock_timeout: 1s\n  poll_interval: 2s\n", wantErr: "poll_interval"},
		{name: "bad log level", content: "logging:\n  level: loud\n", wantErr: "logging"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatalf("LoadConfig succeeded, expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, expected it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Worthiness.MaxCommitsToCheck = 0
	cfg.Judge.MaxAttempts = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate succeeded, expected errors")
	}
	for _, want := range []string{"max_commits_to_check", "max_attempts"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"COMMITROUNDS_REPOS_LOCK_TIMEOUT":              "repos.lock_timeout",
		"COMMITROUNDS_WORTHINESS_MAX_COMMITS_TO_CHECK": "worthiness.max_commits_to_check",
		"COMMITROUNDS_JUDGE":                           "judge",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, expected %q", in, got, want)
		}
	}
}

func TestJudgeConfig_APIKey(t *testing.T) {
	t.Setenv("TEST_COMMITROUNDS_KEY", "secret")
	if got := (JudgeConfig{APIKeyEnv: "TEST_COMMITROUNDS_KEY"}).APIKey(); got != "secret" {
		t.Errorf("APIKey() = %q, expected %q", got, "secret")
	}
	if got := (JudgeConfig{}).APIKey(); got != "" {
		t.Errorf("APIKey() = %q, expected empty", got)
	}
}
