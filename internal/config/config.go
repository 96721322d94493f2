// Package config provides runtime configuration for the clip extractor.
// Policy values are loaded from environment variables with defaults that
// match the production pricing and safety limits.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	DefaultDataDir               = ".yt-clip-extractor"
	DefaultLogLevel              = "info"
	DefaultMaxClips              = 20
	DefaultMaxClipSeconds        = 600
	DefaultFullSourceMaxMinutes  = 120
	DefaultPricingCutover        = "2025-10-09"
	DefaultProbeTimeoutSeconds   = 15
	DefaultFullTimeoutMinutes    = 15
	DefaultProxyProbeTarget      = "https://www.youtube.com/generate_204"
	DefaultObjectStoreBaseURL    = ""
	DefaultMeteringEndpoint      = ""
	DefaultProxySessionAttempts  = 3
	DefaultFullDownloadRetries   = 2
	DefaultCheckpointDBFilename  = "checkpoints.db"
	DefaultSessionProbeTimeoutMS = 8000

	EnvDataDir              = "CLIPX_DATA_DIR"
	EnvLogLevel             = "CLIPX_LOG_LEVEL"
	EnvMaxClips             = "CLIPX_MAX_CLIPS"
	EnvMaxClipSeconds       = "CLIPX_MAX_CLIP_SECONDS"
	EnvFullSourceMaxMinutes = "CLIPX_FULL_SOURCE_MAX_MINUTES"
	EnvPricingCutover       = "CLIPX_PRICING_CUTOVER"
	EnvProxyURL             = "CLIPX_PROXY_URL"
	EnvProxyProbeTarget     = "CLIPX_PROXY_PROBE_TARGET"
	EnvObjectStoreBaseURL   = "CLIPX_OBJECT_STORE_BASE_URL"
	EnvMeteringEndpoint     = "CLIPX_METERING_ENDPOINT"
)

// Config carries every tunable the pipeline reads. All fields are plain
// values; Load resolves the environment once at startup.
type Config struct {
	DataDir  string
	LogLevel string

	// Validation policy.
	MaxClips       int
	MaxClipSeconds int

	// Cascade policy.
	FullSourceMaxMinutes int
	FullTimeoutMinutes   int
	FullDownloadRetries  int
	ProbeTimeout         time.Duration

	// Pricing policy. Flat-rate before the cutover, tier-priced from it on.
	PricingCutover time.Time

	// Proxy egress. ProxyURL is the session-issuing endpoint template; empty
	// disables proxy use regardless of the request.
	ProxyURL             string
	ProxyProbeTarget     string
	ProxySessionAttempts int
	SessionProbeTimeout  time.Duration

	// External sinks. Empty endpoint means log-only metering; empty base URL
	// means file:// URLs from the local object store.
	ObjectStoreBaseURL string
	MeteringEndpoint   string
}

// Load builds a Config from defaults and environment overrides.
func Load() (Config, error) {
	cfg := Config{
		DataDir:              getEnv(EnvDataDir, DefaultDataDir),
		LogLevel:             getEnv(EnvLogLevel, DefaultLogLevel),
		MaxClips:             DefaultMaxClips,
		MaxClipSeconds:       DefaultMaxClipSeconds,
		FullSourceMaxMinutes: DefaultFullSourceMaxMinutes,
		FullTimeoutMinutes:   DefaultFullTimeoutMinutes,
		FullDownloadRetries:  DefaultFullDownloadRetries,
		ProbeTimeout:         DefaultProbeTimeoutSeconds * time.Second,
		ProxyURL:             os.Getenv(EnvProxyURL),
		ProxyProbeTarget:     getEnv(EnvProxyProbeTarget, DefaultProxyProbeTarget),
		ProxySessionAttempts: DefaultProxySessionAttempts,
		SessionProbeTimeout:  DefaultSessionProbeTimeoutMS * time.Millisecond,
		ObjectStoreBaseURL:   getEnv(EnvObjectStoreBaseURL, DefaultObjectStoreBaseURL),
		MeteringEndpoint:     getEnv(EnvMeteringEndpoint, DefaultMeteringEndpoint),
	}

	var err error
	if cfg.MaxClips, err = getEnvInt(EnvMaxClips, DefaultMaxClips); err != nil {
		return Config{}, err
	}
	if cfg.MaxClipSeconds, err = getEnvInt(EnvMaxClipSeconds, DefaultMaxClipSeconds); err != nil {
		return Config{}, err
	}
	if cfg.FullSourceMaxMinutes, err = getEnvInt(EnvFullSourceMaxMinutes, DefaultFullSourceMaxMinutes); err != nil {
		return Config{}, err
	}

	cutoverRaw := getEnv(EnvPricingCutover, DefaultPricingCutover)
	cutover, err := time.Parse("2006-01-02", cutoverRaw)
	if err != nil {
		return Config{}, fmt.Errorf("invalid %s %q: %w", EnvPricingCutover, cutoverRaw, err)
	}
	cfg.PricingCutover = cutover

	return cfg, nil
}

// CheckpointDBPath is where the durable checkpoint store lives.
func (c Config) CheckpointDBPath() string {
	return filepath.Join(c.DataDir, DefaultCheckpointDBFilename)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, raw)
	}
	return v, nil
}
