package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/khurrambhutto/scope/internal/managers"
)

// Config holds application configuration.
type Config struct {
	Scan   ScanConfig
	Update UpdateConfig
}

// ScanConfig bounds external commands and locates AppImage drops.
type ScanConfig struct {
	// CommandTimeout bounds enumerate/check commands.
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	// MutationTimeout bounds uninstall/update commands, which may sit
	// behind a privilege prompt.
	MutationTimeout time.Duration `mapstructure:"mutation_timeout"`
	// AppImageDirs are the file-drop directories scanned for AppImages.
	AppImageDirs []string `mapstructure:"appimage_dirs"`
	// ExcludedSources disables whole managers ("apt", "snap", ...).
	ExcludedSources []string `mapstructure:"excluded_sources"`
}

// UpdateConfig points the self-updater at a release repository.
type UpdateConfig struct {
	// Repo is the GitHub owner/name slug checked for new releases.
	Repo string
}

// Load reads configuration from file and env. Env var overrides use
// prefix SCOPE_; SCOPE_CONFIG selects an explicit config file.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("scan.command_timeout", "30s")
	v.SetDefault("scan.mutation_timeout", "60s")
	v.SetDefault("scan.appimage_dirs", managers.DefaultAppImageDirs())
	v.SetDefault("scan.excluded_sources", []string{})
	v.SetDefault("update.repo", "khurrambhutto/scope")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("SCOPE_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "scope"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("SCOPE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Excluded reports whether a source is disabled by configuration.
func (c ScanConfig) Excluded(source string) bool {
	for _, s := range c.ExcludedSources {
		if strings.EqualFold(s, source) {
			return true
		}
	}
	return false
}
