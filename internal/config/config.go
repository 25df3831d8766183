package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds settings for the server and the terminal poller.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Discord DiscordConfig `yaml:"discord"`
	Watch   WatchConfig   `yaml:"watch"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port     string        `yaml:"port"`
	Cooldown time.Duration `yaml:"cooldown"`
	UseMock  bool          `yaml:"use_mock"`
}

// DiscordConfig holds upstream settings. Token and ChannelID may be empty:
// requests then fail with a configuration error instead of the process.
type DiscordConfig struct {
	Token        string `yaml:"token"`
	ChannelID    string `yaml:"channel_id"`
	APIURL       string `yaml:"api_url"`
	MessageLimit int    `yaml:"message_limit"`
}

// WatchConfig holds the bunkerwatch poller settings.
type WatchConfig struct {
	URL      string        `yaml:"url"`
	Source   string        `yaml:"source"` // "json" or "feed"
	Format   string        `yaml:"format"` // "table", "json" or "" for auto
	Interval time.Duration `yaml:"interval"`
	Minute   int           `yaml:"minute"`
}

// DotenvFiles are loaded in order; earlier files win, and real
// environment variables win over all of them.
var DotenvFiles = []string{".env.local", ".env"}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:     "8080",
			Cooldown: 5 * time.Second,
		},
		Discord: DiscordConfig{
			APIURL:       "https://discord.com/api/v10",
			MessageLimit: 10,
		},
		Watch: WatchConfig{
			URL:    "http://localhost:8080",
			Source: "json",
			Minute: 10,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path (or $BUNKER_CONFIG when path is empty), then the environment.
func Load(path string) (Config, error) {
	for _, f := range DotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("BUNKER_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	normalize(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Discord.Token, "DISCORD_TOKEN")
	setString(&cfg.Discord.ChannelID, "DISCORD_CHANNEL_ID")
	setString(&cfg.Discord.APIURL, "DISCORD_API_URL")
	setString(&cfg.Watch.URL, "BUNKERWATCH_URL")
	setString(&cfg.Watch.Source, "BUNKERWATCH_SOURCE")
	setString(&cfg.Watch.Format, "BUNKERWATCH_FORMAT")

	if err := setInt(&cfg.Discord.MessageLimit, "DISCORD_MESSAGE_LIMIT"); err != nil {
		return err
	}
	if err := setInt(&cfg.Watch.Minute, "BUNKERWATCH_MINUTE"); err != nil {
		return err
	}

	if v := os.Getenv("BUNKER_COOLDOWN_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BUNKER_COOLDOWN_MS: %w", err)
		}
		cfg.Server.Cooldown = time.Duration(ms) * time.Millisecond
	}
	if v := os.Getenv("BUNKERWATCH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("BUNKERWATCH_INTERVAL: %w", err)
		}
		cfg.Watch.Interval = d
	}
	if v := os.Getenv("USE_MOCK_DATA"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("USE_MOCK_DATA: %w", err)
		}
		cfg.Server.UseMock = b
	}
	return nil
}

func normalize(cfg *Config) {
	cfg.Discord.Token = strings.TrimSpace(cfg.Discord.Token)
	cfg.Discord.ChannelID = strings.TrimSpace(cfg.Discord.ChannelID)
	cfg.Discord.APIURL = strings.TrimSuffix(cfg.Discord.APIURL, "/")
	cfg.Watch.URL = strings.TrimSuffix(cfg.Watch.URL, "/")
	cfg.Watch.Source = strings.ToLower(strings.TrimSpace(cfg.Watch.Source))
}

// Validate reports settings that would keep the process from running.
// Missing Discord credentials are not checked here.
func Validate(cfg Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Server.Cooldown < 0 {
		return errors.New("server.cooldown must be >= 0")
	}
	if cfg.Discord.MessageLimit < 1 || cfg.Discord.MessageLimit > 100 {
		return fmt.Errorf("discord.message_limit must be within 1-100, got %d", cfg.Discord.MessageLimit)
	}
	if cfg.Discord.APIURL == "" {
		return errors.New("discord.api_url is required")
	}
	if cfg.Watch.Source != "json" && cfg.Watch.Source != "feed" {
		return fmt.Errorf("watch.source must be json or feed, got %q", cfg.Watch.Source)
	}
	if cfg.Watch.Interval < 0 {
		return errors.New("watch.interval must be >= 0")
	}
	if cfg.Watch.Minute < 0 || cfg.Watch.Minute > 59 {
		return fmt.Errorf("watch.minute must be within 0-59, got %d", cfg.Watch.Minute)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}
