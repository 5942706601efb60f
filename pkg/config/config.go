// Package config loads and saves lmsync settings: a JSON file under the
// user config dir, overridable through LMSYNC_* environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	appName    = "lmsync"
	configFile = "config.json"

	// DefaultProjectName is the remote project assignments sync into.
	DefaultProjectName = "School Assignments"
)

// Config is the persisted settings plus runtime paths.
type Config struct {
	Token                 string `json:"token" mapstructure:"token"`
	ProjectName           string `json:"project_name" mapstructure:"project_name"`
	ScrapeIntervalMinutes int    `json:"scrape_interval_minutes" mapstructure:"scrape_interval_minutes"`
	DateMode              string `json:"date_mode" mapstructure:"date_mode"`
	RetentionDays         int    `json:"retention_days" mapstructure:"retention_days"`

	DBPath     string `json:"db_path" mapstructure:"db_path"`
	SpoolDir   string `json:"spool_dir" mapstructure:"spool_dir"`
	LogFile    string `json:"log_file" mapstructure:"log_file"`
	ListenAddr string `json:"listen_addr" mapstructure:"listen_addr"`
}

// Dir returns the config directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// Path returns the config file path.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

func newViper(dir string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, configFile))
	v.SetConfigType("json")

	v.SetDefault("project_name", DefaultProjectName)
	v.SetDefault("scrape_interval_minutes", 60)
	v.SetDefault("date_mode", "smart")
	v.SetDefault("retention_days", 30)
	v.SetDefault("db_path", filepath.Join(dir, "lmsync.db"))
	v.SetDefault("spool_dir", filepath.Join(dir, "spool"))
	v.SetDefault("listen_addr", "127.0.0.1:8798")

	v.SetEnvPrefix(strings.ToUpper(appName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The token is also honored under the name the provider documents.
	_ = v.BindEnv("token", "LMSYNC_TOKEN", "TODOIST_TOKEN")

	return v
}

// Load reads the config file if present and applies env overrides. A
// missing file yields defaults, not an error.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	v := newViper(dir)
	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config file, creating the directory if needed.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(cfg)
}
