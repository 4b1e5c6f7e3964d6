// Package config loads taskdeck configuration: defaults, then the
// global file (~/.taskdeck/config.yaml), then a project-local
// .taskdeck.yaml, then TASKDECK_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full taskdeck configuration.
type Config struct {
	Jira   JiraConfig   `mapstructure:"jira"`
	GitHub GitHubConfig `mapstructure:"github"`
	Git    GitConfig    `mapstructure:"git"`
	Ranks  RankTables   `mapstructure:"ranks"`
}

// JiraConfig configures the ticket source. Empty BaseURL or Token
// means "not configured": the fetcher returns no tickets, it does not
// fail.
type JiraConfig struct {
	BaseURL        string   `mapstructure:"base_url"`
	Email          string   `mapstructure:"email"`
	Token          string   `mapstructure:"token"`
	Project        string   `mapstructure:"project"` // default project code for bare numeric branches
	ClosedStatuses []string `mapstructure:"closed_statuses"`
}

// GitHubConfig configures the PR source.
type GitHubConfig struct {
	Token string `mapstructure:"token"`
	User  string `mapstructure:"user"`
	// Repos is a static whitelist of "owner/repo" names. When empty,
	// active repositories are discovered by probing the most recently
	// pushed repositories for PRs with linked ticket keys.
	Repos      []string `mapstructure:"repos"`
	ProbeLimit int      `mapstructure:"probe_limit"`
	// RequiredApprovals maps "owner/repo" to the reviewer count needed
	// for an approved review state. Repositories not listed need one.
	RequiredApprovals map[string]int `mapstructure:"required_approvals"`
}

// GitConfig configures the local branch scanner.
type GitConfig struct {
	// Roots are directories scanned for clones: each root is either a
	// repository itself or a directory whose children are repositories.
	Roots []string `mapstructure:"roots"`
}

// RankTables order tasks within equal visibility/sprint buckets. Keys
// are matched case-insensitively; unknown values sort last. These are
// workflow vocabulary, not logic — override them per installation.
type RankTables struct {
	Status    map[string]int `mapstructure:"status"`
	Priority  map[string]int `mapstructure:"priority"`
	IssueType map[string]int `mapstructure:"issue_type"`
}

// Load merges configuration from all sources, later sources winning.
func Load() (*Config, error) {
	cfg := Default()

	if home, err := os.UserHomeDir(); err == nil {
		loadFile(filepath.Join(home, ".taskdeck", "config.yaml"), cfg)
	}
	if cwd, err := os.Getwd(); err == nil {
		loadFile(filepath.Join(cwd, ".taskdeck.yaml"), cfg)
	}
	applyEnv(cfg)

	return cfg, nil
}

func loadFile(path string, cfg *Config) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return // unreadable config is treated as absent
	}
	_ = v.Unmarshal(cfg)
}

func applyEnv(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix("taskdeck")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if s := v.GetString("jira.base_url"); s != "" {
		cfg.Jira.BaseURL = s
	}
	if s := v.GetString("jira.email"); s != "" {
		cfg.Jira.Email = s
	}
	if s := v.GetString("jira.token"); s != "" {
		cfg.Jira.Token = s
	}
	if s := v.GetString("jira.project"); s != "" {
		cfg.Jira.Project = s
	}
	if s := v.GetString("github.token"); s != "" {
		cfg.GitHub.Token = s
	}
	if s := v.GetString("github.user"); s != "" {
		cfg.GitHub.User = s
	}
}

// DefaultStorePath returns the default overlay database path.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskdeck/taskdeck.db"
	}
	return filepath.Join(home, ".taskdeck", "taskdeck.db")
}
