// Package config loads roost settings from roost.yaml, ROOST_* environment
// variables and defaults, in increasing order of precedence for env.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/simonhull/firebird-suite/roost/internal/builder"
	"github.com/simonhull/firebird-suite/roost/internal/logger"
)

const (
	FileName  = "roost"
	EnvPrefix = "ROOST"
)

// Config is the resolved runtime configuration
type Config struct {
	TemplatesDir string `mapstructure:"templates_dir"`
	WorkDir      string `mapstructure:"work_dir"`
	Manifest     string `mapstructure:"manifest"`
	ModuleIndex  string `mapstructure:"module_index"`
	Server       Server `mapstructure:"server"`
	Jobs         Jobs   `mapstructure:"jobs"`
	Log          Log    `mapstructure:"log"`
}

type Server struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type Jobs struct {
	Retention     time.Duration `mapstructure:"retention"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("templates_dir", "")
	v.SetDefault("work_dir", filepath.Join(os.TempDir(), "roost"))
	v.SetDefault("manifest", builder.DefaultManifest)
	v.SetDefault("module_index", builder.DefaultModuleIndex)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("jobs.retention", time.Hour)
	v.SetDefault("jobs.sweep_interval", 5*time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads path when given, otherwise roost.yaml from the working directory
// if present. A missing default file is not an error; a missing explicit one is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values viper cannot type-check
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if _, err := logger.ParseFormat(c.Log.Format); err != nil {
		return fmt.Errorf("log.format: %w", err)
	}
	if c.Jobs.Retention < 0 {
		return fmt.Errorf("jobs.retention must not be negative")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}

// Logger builds the logger described by c.Log
func (c *Config) Logger(verbose bool) logger.Logger {
	level, _ := logger.ParseLevel(c.Log.Level)
	if verbose {
		level = logger.LevelDebug
	}
	format, _ := logger.ParseFormat(c.Log.Format)
	return logger.New(level, format, os.Stderr)
}

// BuilderOptions maps the project file names onto builder options
func (c *Config) BuilderOptions() builder.Options {
	return builder.Options{ManifestName: c.Manifest, ModuleIndexPath: c.ModuleIndex}
}
