package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// HomeEnv overrides the overlay home directory (default ~/.overlay).
const HomeEnv = "OVERLAY_HOME"

// Config holds overlay runtime configuration.
type Config struct {
	// DataDir is the base directory for overlay runtime data.
	DataDir string `yaml:"data_dir"`

	// DBPath is the path to the SQLite session registry. Empty disables it.
	DBPath string `yaml:"db_path"`

	Bridge   BridgeConfig   `yaml:"bridge"`
	Window   WindowConfig   `yaml:"window"`
	Log      LogConfig      `yaml:"log"`
	Registry RegistryConfig `yaml:"registry"`
}

// BridgeConfig configures the agent socket.
type BridgeConfig struct {
	// ListenAddr is the local TCP endpoint agents connect to.
	ListenAddr string `yaml:"listen_addr"`

	// Exclusive refuses a second agent while one is connected. Off by
	// default: the newest connection replaces the previous one.
	Exclusive bool `yaml:"exclusive"`

	// AllowedOrigins lists browser origins allowed to connect. Native
	// agents send no Origin header and are always allowed.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageBytes caps a single inbound frame.
	MaxMessageBytes int64 `yaml:"max_message_bytes"`

	// WriteTimeout bounds each write of a UI command to the agent.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// FeedSize is how many UI events are kept for replay.
	FeedSize int `yaml:"feed_size"`
}

// WindowConfig configures the overlay window.
type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`

	// Glass enables the platform translucency effect.
	Glass bool `yaml:"glass"`

	// AlwaysOnTop keeps the overlay above other windows.
	AlwaysOnTop bool `yaml:"always_on_top"`
}

// LogConfig configures operator logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// File is the log file path. Empty logs to stderr only.
	File string `yaml:"file"`

	// MaxFileBytes triggers rotation of File.
	MaxFileBytes int64 `yaml:"max_file_bytes"`
}

// RegistryConfig configures the session registry.
type RegistryConfig struct {
	// KeepSessions is how many session records survive pruning.
	KeepSessions int `yaml:"keep_sessions"`
}

// Home returns the overlay home directory.
func Home() string {
	if h := os.Getenv(HomeEnv); h != "" {
		return h
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".overlay")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(Home(), "config.yaml")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home := Home()
	dataDir := filepath.Join(home, "data")

	return &Config{
		DataDir: dataDir,
		DBPath:  filepath.Join(dataDir, "overlay.db"),
		Bridge: BridgeConfig{
			ListenAddr:      "127.0.0.1:19823",
			MaxMessageBytes: 16 << 20,
			WriteTimeout:    10 * time.Second,
			FeedSize:        500,
		},
		Window: WindowConfig{
			Title:       "Overlay",
			Width:       420,
			Height:      640,
			Glass:       true,
			AlwaysOnTop: true,
		},
		Log: LogConfig{
			Level:        "info",
			File:         filepath.Join(home, "logs", "overlay.log"),
			MaxFileBytes: 10 * 1024 * 1024,
		},
		Registry: RegistryConfig{
			KeepSessions: 500,
		},
	}
}

// Load returns DefaultConfig overlaid with the YAML file at path. A missing
// file is not an error. ${VAR} references in the file are expanded from the
// environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.resolveRelativePaths(filepath.Dir(path))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Bridge.ListenAddr); err != nil {
		return fmt.Errorf("bridge.listen_addr %q: %w", c.Bridge.ListenAddr, err)
	}
	if c.Bridge.MaxMessageBytes < 0 {
		return fmt.Errorf("bridge.max_message_bytes must not be negative")
	}
	if c.Bridge.WriteTimeout < 0 {
		return fmt.Errorf("bridge.write_timeout must not be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q: want debug, info, warn or error", c.Log.Level)
	}
	if c.Window.Width < 0 || c.Window.Height < 0 {
		return fmt.Errorf("window size must not be negative")
	}
	return nil
}

// EnsureDirs creates all required directories.
func (c *Config) EnsureDirs() error {
	dirs := []string{c.DataDir}
	if c.DBPath != "" {
		dirs = append(dirs, filepath.Dir(c.DBPath))
	}
	if c.Log.File != "" {
		dirs = append(dirs, filepath.Dir(c.Log.File))
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) resolveRelativePaths(base string) {
	for _, p := range []*string{&c.DataDir, &c.DBPath, &c.Log.File} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}
