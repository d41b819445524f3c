package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const envPrefix = "MEDIAFETCH_"

// ApplyEnv loads ./.env when present (without overriding variables already
// set) and applies every MEDIAFETCH_* variable on top of c.
func (c *Config) ApplyEnv() error {
	if err := godotenv.Load(); err == nil {
		log.Debug().Str("op", "config/env").Msg("loaded .env")
	}
	var err error
	c.Connections, err = envInt("CONNECTIONS", c.Connections)
	if err != nil {
		return err
	}
	c.Workers, err = envInt("WORKERS", c.Workers)
	if err != nil {
		return err
	}
	c.Retries, err = envInt("RETRIES", c.Retries)
	if err != nil {
		return err
	}
	if c.ChunkSize, err = envSize("CHUNK_SIZE", c.ChunkSize); err != nil {
		return err
	}
	if c.ChunkThreshold, err = envSize("CHUNK_THRESHOLD", c.ChunkThreshold); err != nil {
		return err
	}
	if c.LimitRate, err = envSize("LIMIT_RATE", c.LimitRate); err != nil {
		return err
	}
	if c.Timeout, err = envDuration("TIMEOUT", c.Timeout); err != nil {
		return err
	}
	if v, ok := lookup("KEEP_TEMP_ON_FAILURE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sKEEP_TEMP_ON_FAILURE: %w", envPrefix, err)
		}
		c.KeepTempOnFailure = b
	}
	c.PoolMode = envString("POOL_MODE", c.PoolMode)
	c.UserAgent = envString("USER_AGENT", c.UserAgent)
	c.Proxy = envString("PROXY", c.Proxy)
	c.Cookie = envString("COOKIE", c.Cookie)
	c.BearerToken = envString("BEARER_TOKEN", c.BearerToken)
	c.DelegateBinary = envString("DELEGATE_BINARY", c.DelegateBinary)
	c.FFmpegBinary = envString("FFMPEG_BINARY", c.FFmpegBinary)
	c.MetricsAddr = envString("METRICS_ADDR", c.MetricsAddr)
	c.S3Profile = envString("S3_PROFILE", c.S3Profile)
	return nil
}

func lookup(key string) (string, bool) {
	v := os.Getenv(envPrefix + key)
	return v, v != ""
}

func envString(key, fallback string) string {
	if v, ok := lookup(key); ok {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v, ok := lookup(key)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	return n, nil
}

func envSize(key string, fallback ByteSize) (ByteSize, error) {
	v, ok := lookup(key)
	if !ok {
		return fallback, nil
	}
	size, err := ParseByteSize(v)
	if err != nil {
		return fallback, fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	return size, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := lookup(key)
	if !ok {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	return d, nil
}
