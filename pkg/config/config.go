package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Security SecurityConfig `mapstructure:"security"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SecurityConfig struct {
	MaxContentLength int                 `mapstructure:"max_content_length"`
	MinContentLength int                 `mapstructure:"min_content_length"`
	PII              PIIConfig           `mapstructure:"pii"`
	Injection        InjectionConfig     `mapstructure:"injection"`
	Semantic         SemanticConfig      `mapstructure:"semantic"`
	Anonymization    AnonymizationConfig `mapstructure:"anonymization"`
}

type PIIConfig struct {
	Enabled             bool     `mapstructure:"enabled"`
	ConfidenceThreshold float64  `mapstructure:"confidence_threshold"`
	Entities            []string `mapstructure:"entities"`
	RecognizerURL       string   `mapstructure:"recognizer_url"`
	Language            string   `mapstructure:"language"`
}

type InjectionConfig struct {
	Enabled              bool    `mapstructure:"enabled"`
	SpecialCharThreshold float64 `mapstructure:"special_char_threshold"`
}

type SemanticConfig struct {
	Enabled   bool    `mapstructure:"enabled"`
	Threshold float64 `mapstructure:"threshold"`
	APIKey    string  `mapstructure:"api_key"`
	Model     string  `mapstructure:"model"`
}

type AnonymizationConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	MappingTTL time.Duration `mapstructure:"mapping_ttl"`
}

var globalConfig Config

// Load reads config.yaml from configPath (environment variables override
// file values) and validates the result. Startup must abort on error.
func Load(configPath string) error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := viper.Unmarshal(&globalConfig, decodeHook); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	setDefaultValues(&globalConfig)

	if err := globalConfig.Validate(); err != nil {
		return err
	}

	return nil
}

func setDefaultValues(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8085
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Security.MaxContentLength == 0 {
		cfg.Security.MaxContentLength = 10240
	}
	if cfg.Security.MinContentLength == 0 {
		cfg.Security.MinContentLength = 1
	}
	if cfg.Security.PII.ConfidenceThreshold == 0 {
		cfg.Security.PII.ConfidenceThreshold = 0.7
	}
	if len(cfg.Security.PII.Entities) == 0 {
		cfg.Security.PII.Entities = []string{
			"EMAIL", "PHONE_NUMBER", "CREDIT_CARD", "SSN",
			"IP_ADDRESS", "PERSON", "LOCATION", "API_KEY",
		}
	}
	if cfg.Security.PII.Language == "" {
		cfg.Security.PII.Language = "en"
	}
	if cfg.Security.Injection.SpecialCharThreshold == 0 {
		cfg.Security.Injection.SpecialCharThreshold = 0.1
	}
	if cfg.Security.Semantic.Threshold == 0 {
		cfg.Security.Semantic.Threshold = 0.6
	}
	if cfg.Security.Semantic.Model == "" {
		cfg.Security.Semantic.Model = "text-embedding-3-small"
	}
	if cfg.Security.Anonymization.MappingTTL == 0 {
		cfg.Security.Anonymization.MappingTTL = time.Hour
	}
}

// Validate checks that every configured threshold is in range. Out-of-range
// values are startup errors, never clamped.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid server port: %d, must be between 1 and 65535", c.Server.Port))
	}
	if c.Security.MinContentLength < 1 {
		errs = append(errs, fmt.Sprintf("invalid min_content_length: %d, must be >= 1", c.Security.MinContentLength))
	}
	if c.Security.MaxContentLength < c.Security.MinContentLength {
		errs = append(errs, fmt.Sprintf(
			"invalid max_content_length: %d, must be >= min_content_length (%d)",
			c.Security.MaxContentLength, c.Security.MinContentLength,
		))
	}
	if c.Security.PII.ConfidenceThreshold < 0 || c.Security.PII.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Sprintf("invalid pii confidence_threshold: %f, must be between 0 and 1", c.Security.PII.ConfidenceThreshold))
	}
	if c.Security.Injection.SpecialCharThreshold < 0 || c.Security.Injection.SpecialCharThreshold > 1 {
		errs = append(errs, fmt.Sprintf("invalid special_char_threshold: %f, must be between 0 and 1", c.Security.Injection.SpecialCharThreshold))
	}
	if c.Security.Semantic.Threshold < 0 || c.Security.Semantic.Threshold > 1 {
		errs = append(errs, fmt.Sprintf("invalid semantic threshold: %f, must be between 0 and 1", c.Security.Semantic.Threshold))
	}
	if c.Security.Anonymization.MappingTTL < 0 {
		errs = append(errs, fmt.Sprintf("invalid anonymization mapping_ttl: %s, must be positive", c.Security.Anonymization.MappingTTL))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errs, "\n"))
	}
	return nil
}

func GetConfig() *Config {
	return &globalConfig
}
