package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/mediafetch/internal/downloaders/external"
	"github.com/tanq16/mediafetch/internal/utils"
	"gopkg.in/yaml.v3"
)

// ByteSize accepts plain integers or humanized sizes ("10MiB", "512k").
type ByteSize int64

func ParseByteSize(s string) (ByteSize, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return ByteSize(n), nil
}

func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	size, err := ParseByteSize(value.Value)
	if err != nil {
		return err
	}
	*b = size
	return nil
}

func (b ByteSize) String() string {
	if b <= 0 {
		return "0"
	}
	return humanize.IBytes(uint64(b))
}

type Config struct {
	Connections       int               `yaml:"connections"`
	Workers           int               `yaml:"workers"`
	ChunkSize         ByteSize          `yaml:"chunk_size"`
	ChunkThreshold    ByteSize          `yaml:"chunk_threshold"`
	PoolMode          string            `yaml:"pool_mode"`
	KeepTempOnFailure bool              `yaml:"keep_temp_on_failure"`
	LimitRate         ByteSize          `yaml:"limit_rate"`
	Retries           int               `yaml:"retries"`
	Timeout           time.Duration     `yaml:"timeout"`
	KeepAliveTimeout  time.Duration     `yaml:"keep_alive_timeout"`
	UserAgent         string            `yaml:"user_agent"`
	Proxy             string            `yaml:"proxy"`
	ProxyUsername     string            `yaml:"proxy_username"`
	ProxyPassword     string            `yaml:"proxy_password"`
	Cookie            string            `yaml:"cookie"`
	BearerToken       string            `yaml:"bearer_token"`
	Headers           map[string]string `yaml:"headers"`
	DelegateBinary    string            `yaml:"delegate_binary"`
	DelegateArgs      []string          `yaml:"delegate_args"`
	FFmpegBinary      string            `yaml:"ffmpeg_binary"`
	HostRules         utils.HostRules   `yaml:"host_rules"`
	MetricsAddr       string            `yaml:"metrics_addr"`
	S3Profile         string            `yaml:"s3_profile"`
}

func Default() Config {
	return Config{
		Connections:      utils.DefaultConnections,
		Workers:          1,
		ChunkSize:        utils.DefaultChunkSize,
		ChunkThreshold:   utils.DefaultChunkThreshold,
		PoolMode:         utils.PoolModeCohort,
		Retries:          utils.DefaultRetryAttempts,
		Timeout:          3 * time.Minute,
		KeepAliveTimeout: 90 * time.Second,
		UserAgent:        utils.ToolUserAgent,
		DelegateBinary:   external.DefaultBinary,
		FFmpegBinary:     "ffmpeg",
	}
}

// DefaultPath is ~/.config/mediafetch/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "mediafetch", "config.yaml")
}

// Load layers defaults, the YAML file at path and the environment. An
// explicit path that does not exist is an error; the default path is optional.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return cfg, err
			}
		} else {
			log.Debug().Str("op", "config/config").Msgf("loaded config from %s", path)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Connections < 1 {
		return fmt.Errorf("connections must be at least 1, got %d", c.Connections)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive")
	}
	if c.Retries < 1 {
		return fmt.Errorf("retries must be at least 1, got %d", c.Retries)
	}
	switch c.PoolMode {
	case utils.PoolModeCohort, utils.PoolModeRefill:
	default:
		return fmt.Errorf("unknown pool mode %q (want %s or %s)", c.PoolMode, utils.PoolModeCohort, utils.PoolModeRefill)
	}
	return nil
}

func (c Config) HTTPClientConfig() utils.HTTPClientConfig {
	return utils.HTTPClientConfig{
		Timeout:       c.Timeout,
		KATimeout:     c.KeepAliveTimeout,
		ProxyURL:      c.Proxy,
		ProxyUsername: c.ProxyUsername,
		ProxyPassword: c.ProxyPassword,
		UserAgent:     c.UserAgent,
		Headers:       c.Headers,
		Cookie:        c.Cookie,
		BearerToken:   c.BearerToken,
		HostRules:     c.EffectiveHostRules(),
		RetryAttempts: c.Retries,
	}
}

// EffectiveHostRules is the built-in table followed by the configured rules,
// so configured headers win for hosts both cover.
func (c Config) EffectiveHostRules() utils.HostRules {
	rules := make(utils.HostRules, 0, len(utils.DefaultHostRules)+len(c.HostRules))
	rules = append(rules, utils.DefaultHostRules...)
	return append(rules, c.HostRules...)
}

func (c Config) EngineConfig() utils.EngineConfig {
	return utils.EngineConfig{
		ChunkSize:         int64(c.ChunkSize),
		ChunkThreshold:    int64(c.ChunkThreshold),
		PoolMode:          c.PoolMode,
		KeepTempOnFailure: c.KeepTempOnFailure,
		RateLimit:         int64(c.LimitRate),
		DelegateBinary:    c.DelegateBinary,
		DelegateArgs:      c.DelegateArgs,
	}
}
