package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CEFLOG_LOG_LEVEL.
const EnvPrefix = "CEFLOG"

// LogConfig controls the diagnostic logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	// Format is console or json.
	Format string `mapstructure:"format" validate:"oneof=console json"`
	// File enables a rotating file sink when non-empty.
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size" validate:"gte=1"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAge     int    `mapstructure:"max_age" validate:"gte=0"`
	Compress   bool   `mapstructure:"compress"`
}

// ParserConfig controls file ingestion.
type ParserConfig struct {
	MaxLineSize int `mapstructure:"max_line_size" validate:"gte=1024"`
	// CacheSize bounds the parsed-line cache; negative disables it.
	CacheSize int `mapstructure:"cache_size"`
	// Timezone is the IANA zone syslog stamps are resolved in.
	Timezone       string `mapstructure:"timezone" validate:"required"`
	SkipBlankLines bool   `mapstructure:"skip_blank_lines"`
}

// OutputConfig controls CLI rendering.
type OutputConfig struct {
	Format string `mapstructure:"format" validate:"oneof=text json yaml msgpack"`
	Color  bool   `mapstructure:"color"`
}

// MetricsConfig controls the Prometheus textfile dump.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// Config holds all configuration for ceflog.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Parser  ParserConfig  `mapstructure:"parser"`
	Output  OutputConfig  `mapstructure:"output"`
	Metrics MetricsConfig `mapstructure:"metrics"`

	location *time.Location
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 100) // megabytes
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28) // days
	v.SetDefault("log.compress", false)

	v.SetDefault("parser.max_line_size", 1024*1024)
	v.SetDefault("parser.cache_size", 1024)
	v.SetDefault("parser.timezone", "Local")
	v.SetDefault("parser.skip_blank_lines", false)

	v.SetDefault("output.format", "text")
	v.SetDefault("output.color", true)

	v.SetDefault("metrics.textfile", "")
}

// loadFromEnv sets up environment variable loading
func loadFromEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// LoadConfig reads ceflog.yaml from the working directory or ./config,
// or the file at path when non-empty, applies CEFLOG_* overrides and
// validates the result. A missing default file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ceflog")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)
	loadFromEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	_ = cfg.Validate()
	return &cfg
}

var validate = validator.New()

// Validate checks field constraints and resolves the parser timezone.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("invalid config: %s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	loc, err := time.LoadLocation(c.Parser.Timezone)
	if err != nil {
		return fmt.Errorf("invalid config: parser.timezone %q: %w", c.Parser.Timezone, err)
	}
	c.location = loc
	return nil
}

// Location returns the resolved parser timezone, time.Local before Validate.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}
