package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/spf13/viper"
)

// SourceType identifies the media server backend
type SourceType string

const (
	SourceTypeJellyfin SourceType = "jellyfin"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Device   DeviceConfig   `mapstructure:"device"`
	Playback PlaybackConfig `mapstructure:"playback"`
	Player   PlayerConfig   `mapstructure:"player"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Workers  WorkersConfig  `mapstructure:"workers"`
	Logging  LoggingConfig  `mapstructure:"logging"`

	dir string
}

// ServerConfig holds media server configuration
type ServerConfig struct {
	Type     SourceType `mapstructure:"type"`
	URL      string     `mapstructure:"url"`
	Token    string     `mapstructure:"token"`
	UserID   string     `mapstructure:"user_id"`
	Username string     `mapstructure:"username"` // display only
	ServerID string     `mapstructure:"server_id"`
}

// DeviceConfig identifies this installation to the server
type DeviceConfig struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

// PlaybackConfig holds streaming preferences
type PlaybackConfig struct {
	TranscodeCodec string `mapstructure:"transcode_codec"`
	MaxBitrate     int    `mapstructure:"max_bitrate"`
}

// PlayerConfig holds external media player configuration
type PlayerConfig struct {
	Command   string   `mapstructure:"command"`
	Args      []string `mapstructure:"args"`
	StartFlag string   `mapstructure:"start_flag"` // e.g., "--start=" or "--start-time="
}

// StorageConfig holds local cache locations
type StorageConfig struct {
	CacheDir     string `mapstructure:"cache_dir"`
	TrickplayDir string `mapstructure:"trickplay_dir"`
}

// SyncConfig holds background reconciliation settings
type SyncConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// WorkersConfig sizes the blocking I/O pool
type WorkersConfig struct {
	IOPoolSize int `mapstructure:"io_pool_size"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Type: SourceTypeJellyfin,
		},
		Device: DeviceConfig{
			Name: defaultDeviceName(),
		},
		Playback: PlaybackConfig{
			TranscodeCodec: "h264",
			MaxBitrate:     8_000_000,
		},
		Player: PlayerConfig{
			Command: "mpv",
			Args:    []string{},
		},
		Storage: StorageConfig{
			CacheDir:     defaultDataPath("cache"),
			TrickplayDir: defaultDataPath("trickplay"),
		},
		Sync: SyncConfig{
			Interval: 15 * time.Minute,
		},
		Workers: WorkersConfig{
			IOPoolSize: 64,
		},
		Logging: LoggingConfig{
			File:  defaultDataPath("reel.log"),
			Level: "INFO",
		},
	}
}

func defaultDeviceName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "reel"
	}
	return host
}

// defaultDataPath returns a path under the per-user data directory for the current OS
func defaultDataPath(name string) string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "reel", name)
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "reel", name)
	}
}

// DefaultConfigPath returns the default config directory for the current OS
func DefaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "reel")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "reel")
	}
}

// LoadConfig loads configuration from the default location and environment
func LoadConfig() (*Config, error) {
	return Load(DefaultConfigPath())
}

// Load loads config.yaml from dir (if present), then applies REEL_* environment overrides
func Load(dir string) (*Config, error) {
	v := newViper(dir)

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	cfg.dir = dir
	return cfg, nil
}

func newViper(dir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	// Environment variable overrides, e.g. REEL_SERVER_URL
	v.SetEnvPrefix("REEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about
	defaults := DefaultConfig()
	v.SetDefault("server.type", defaults.Server.Type)
	v.SetDefault("server.url", "")
	v.SetDefault("server.token", "")
	v.SetDefault("server.user_id", "")
	v.SetDefault("server.username", "")
	v.SetDefault("server.server_id", "")
	v.SetDefault("device.id", "")
	v.SetDefault("device.name", defaults.Device.Name)
	v.SetDefault("playback.transcode_codec", defaults.Playback.TranscodeCodec)
	v.SetDefault("playback.max_bitrate", defaults.Playback.MaxBitrate)
	v.SetDefault("player.command", defaults.Player.Command)
	v.SetDefault("player.args", defaults.Player.Args)
	v.SetDefault("player.start_flag", "")
	v.SetDefault("storage.cache_dir", defaults.Storage.CacheDir)
	v.SetDefault("storage.trickplay_dir", defaults.Storage.TrickplayDir)
	v.SetDefault("sync.interval", defaults.Sync.Interval)
	v.SetDefault("workers.io_pool_size", defaults.Workers.IOPoolSize)
	v.SetDefault("logging.file", defaults.Logging.File)
	v.SetDefault("logging.level", defaults.Logging.Level)
	return v
}

// Save writes the configuration to config.yaml in the directory it was loaded from
func (c *Config) Save() error {
	dir := c.dir
	if dir == "" {
		dir = DefaultConfigPath()
	}

	// Ensure config directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()

	// Set fields individually to ensure correct key names (snake_case)
	v.Set("server.type", string(c.Server.Type))
	v.Set("server.url", c.Server.URL)
	v.Set("server.token", c.Server.Token)
	v.Set("server.user_id", c.Server.UserID)
	v.Set("server.username", c.Server.Username)
	v.Set("server.server_id", c.Server.ServerID)

	v.Set("device.id", c.Device.ID)
	v.Set("device.name", c.Device.Name)

	v.Set("playback.transcode_codec", c.Playback.TranscodeCodec)
	v.Set("playback.max_bitrate", c.Playback.MaxBitrate)

	v.Set("player.command", c.Player.Command)
	v.Set("player.args", c.Player.Args)
	v.Set("player.start_flag", c.Player.StartFlag)

	v.Set("storage.cache_dir", c.Storage.CacheDir)
	v.Set("storage.trickplay_dir", c.Storage.TrickplayDir)

	v.Set("sync.interval", c.Sync.Interval.String())
	v.Set("workers.io_pool_size", c.Workers.IOPoolSize)

	v.Set("logging.file", c.Logging.File)
	v.Set("logging.level", c.Logging.Level)

	configFile := filepath.Join(dir, "config.yaml")
	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// EnsureDeviceID assigns a stable random device id on first use.
// It reports whether the config changed and needs saving.
func (c *Config) EnsureDeviceID() bool {
	if c.Device.ID != "" {
		return false
	}
	c.Device.ID = uuid.NewString()
	return true
}

// IsConfigured returns true if the server URL and token are set
func (c *Config) IsConfigured() bool {
	return c.Server.URL != "" && c.Server.Token != ""
}

// ClearServer removes all server credentials while preserving other settings
func (c *Config) ClearServer() {
	c.Server = ServerConfig{Type: c.Server.Type}
}

// Session implements domain.SessionSource
func (c *Config) Session() (domain.Session, error) {
	if !c.IsConfigured() {
		return domain.Session{}, fmt.Errorf("not logged in: %w", domain.ErrAuthFailed)
	}
	userID, err := uuid.Parse(c.Server.UserID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("invalid user id %q: %w", c.Server.UserID, domain.ErrAuthFailed)
	}
	return domain.Session{
		ServerID:    c.Server.ServerID,
		BaseURL:     strings.TrimRight(c.Server.URL, "/"),
		UserID:      userID,
		DeviceID:    c.Device.ID,
		DeviceName:  c.Device.Name,
		AccessToken: c.Server.Token,
	}, nil
}

