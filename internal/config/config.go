package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/park285/fengrid/internal/obslog"
)

const DefaultOutputFile = "chess_boards.png"

type AppConfig struct {
	ListenAddr string `toml:"listen_addr"`

	// GlyphDir overrides the embedded piece images when set.
	GlyphDir    string `toml:"glyph_dir"`
	Locale      string `toml:"locale"`
	MessagesDir string `toml:"messages_dir"`

	Strict     bool   `toml:"strict"`
	OutputPath string `toml:"output"`

	PreloadTimeoutSec int `toml:"preload_timeout_sec"`
	MaxBodyBytes      int `toml:"max_body_bytes"`

	// Renders per second accepted by the server; 0 disables the limit.
	RenderRateLimit float64 `toml:"render_rate_limit"`
	RenderBurst     int     `toml:"render_burst"`

	Log obslog.Options `toml:"log"`
}

func defaults() *AppConfig {
	return &AppConfig{
		ListenAddr:        ":8080",
		Locale:            "ko",
		OutputPath:        DefaultOutputFile,
		PreloadTimeoutSec: 10,
		MaxBodyBytes:      64 * 1024,
		RenderBurst:       5,
		Log:               obslog.DefaultOptions(),
	}
}

// Load reads FENGRID_CONFIG (if set) and then the environment.
func Load() (*AppConfig, error) {
	return LoadFile(strings.TrimSpace(os.Getenv("FENGRID_CONFIG")))
}

// LoadFile starts from the defaults, applies the TOML file at path when
// path is non-empty, then environment overrides.
func LoadFile(path string) (*AppConfig, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := toml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv("FENGRID_LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("FENGRID_GLYPH_DIR")); v != "" {
		cfg.GlyphDir = v
	}
	if v := strings.TrimSpace(os.Getenv("FENGRID_LOCALE")); v != "" {
		cfg.Locale = v
	}
	if v := strings.TrimSpace(os.Getenv("FENGRID_MESSAGES_DIR")); v != "" {
		cfg.MessagesDir = v
	}
	if v := strings.TrimSpace(os.Getenv("FENGRID_OUTPUT")); v != "" {
		cfg.OutputPath = v
	}
	if v := strings.TrimSpace(os.Getenv("FENGRID_STRICT")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Strict = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("FENGRID_PRELOAD_TIMEOUT")); v != "" { // seconds
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PreloadTimeoutSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("FENGRID_MAX_BODY_BYTES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxBodyBytes = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("FENGRID_RATE_LIMIT")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.RenderRateLimit = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("FENGRID_RATE_BURST")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RenderBurst = n
		}
	}

	// Logging
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FORMAT")); v != "" {
		cfg.Log.Format = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FILE")); v != "" {
		cfg.Log.File = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_TO_CONSOLE")); v != "" {
		cfg.Log.Console = strings.EqualFold(v, "true")
	}
	if v := strings.TrimSpace(os.Getenv("LOG_TO_FILE")); v != "" {
		cfg.Log.ToFile = strings.EqualFold(v, "true")
	}
	if v := strings.TrimSpace(os.Getenv("LOG_CALLER")); v != "" {
		cfg.Log.Caller = strings.EqualFold(v, "true")
	}
}

func (c *AppConfig) validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("listen_addr is required")
	}
	if strings.TrimSpace(c.OutputPath) == "" {
		return errors.New("output is required")
	}
	if c.PreloadTimeoutSec <= 0 {
		return errors.New("preload_timeout_sec must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("max_body_bytes must be positive")
	}
	if c.RenderRateLimit < 0 {
		return errors.New("render_rate_limit must not be negative")
	}
	if c.RenderRateLimit > 0 && c.RenderBurst <= 0 {
		return errors.New("render_burst must be positive when render_rate_limit is set")
	}
	return nil
}

func (c *AppConfig) PreloadTimeout() time.Duration {
	return time.Duration(c.PreloadTimeoutSec) * time.Second
}
