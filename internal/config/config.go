// Package config loads the client configuration from
// ~/.walletsync/config.toml, with sane defaults for every key so a missing
// file is not an error.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = ".walletsync"

	fileMode = 0o600
	dirMode  = 0o700

	tempFilePattern = ".config-*.toml.tmp"
)

// Storage backends for the local key-value store.
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

type Config struct {
	// BaseURL is the remote API root, e.g. https://api.example.com.
	BaseURL string `toml:"base_url"`
	// DataDir holds the KV store, the log and the notification spool.
	DataDir string `toml:"data_dir"`
	// Storage selects the KV backend: "file" or "sqlite".
	Storage string `toml:"storage"`

	PollInterval    time.Duration `toml:"poll_interval"`
	PollMaxAttempts int           `toml:"poll_max_attempts"`

	AuthTimeout     time.Duration `toml:"auth_timeout"`
	MetadataTimeout time.Duration `toml:"metadata_timeout"`
	UploadTimeout   time.Duration `toml:"upload_timeout"`

	LogFile  string `toml:"log_file"`
	LogLevel string `toml:"log_level"`

	// NotifySpool, when set, routes notifications to a JSON-lines file
	// instead of the log.
	NotifySpool string `toml:"notify_spool"`

	// TickCategories are always refreshed by the background tick, even
	// before the first interactive read caches a snapshot.
	TickCategories []string `toml:"tick_categories"`
}

// Load reads the configuration, tolerating a missing file. Explicit values
// win over defaults key by key.
func Load(cfg *viper.Viper) (Config, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(homeDir, configDir)

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(dir)
	setDefaults(cfg, dir)

	if err := cfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	out := Config{
		BaseURL:         cfg.GetString("base_url"),
		DataDir:         cfg.GetString("data_dir"),
		Storage:         cfg.GetString("storage"),
		PollInterval:    cfg.GetDuration("poll_interval"),
		PollMaxAttempts: cfg.GetInt("poll_max_attempts"),
		AuthTimeout:     cfg.GetDuration("auth_timeout"),
		MetadataTimeout: cfg.GetDuration("metadata_timeout"),
		UploadTimeout:   cfg.GetDuration("upload_timeout"),
		LogFile:         cfg.GetString("log_file"),
		LogLevel:        cfg.GetString("log_level"),
		NotifySpool:     cfg.GetString("notify_spool"),
		TickCategories:  cfg.GetStringSlice("tick_categories"),
	}
	if err := out.validate(); err != nil {
		return Config{}, err
	}
	return out, nil
}

func setDefaults(cfg *viper.Viper, dir string) {
	cfg.SetDefault("base_url", "https://api.walletsync.app")
	cfg.SetDefault("data_dir", filepath.Join(dir, "data"))
	cfg.SetDefault("storage", StorageSQLite)
	cfg.SetDefault("poll_interval", 2*time.Second)
	cfg.SetDefault("poll_max_attempts", 30)
	cfg.SetDefault("auth_timeout", 15*time.Second)
	cfg.SetDefault("metadata_timeout", 10*time.Second)
	cfg.SetDefault("upload_timeout", 3*time.Minute)
	cfg.SetDefault("log_file", filepath.Join(dir, "walletsync.log"))
	cfg.SetDefault("log_level", "info")
	cfg.SetDefault("notify_spool", "")
	cfg.SetDefault("tick_categories", []string{})
}

func (c Config) validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is empty")
	}
	if c.DataDir == "" {
		return errors.New("data_dir is empty")
	}
	switch c.Storage {
	case StorageFile, StorageSQLite:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage)
	}
	if c.PollInterval <= 0 {
		return errors.New("poll_interval must be positive")
	}
	if c.PollMaxAttempts <= 0 {
		return errors.New("poll_max_attempts must be positive")
	}
	return nil
}

// DefaultPath returns the location `walletsync config init` writes to.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(homeDir, configDir, configName+"."+configType), nil
}

// WriteDefault materializes the built-in defaults at path so users have a
// file to edit. Refuses to overwrite an existing config.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat config file: %w", err)
	}

	cfg := viper.New()
	setDefaults(cfg, filepath.Dir(path))
	defaults := Config{
		BaseURL:         cfg.GetString("base_url"),
		DataDir:         cfg.GetString("data_dir"),
		Storage:         cfg.GetString("storage"),
		PollInterval:    cfg.GetDuration("poll_interval"),
		PollMaxAttempts: cfg.GetInt("poll_max_attempts"),
		AuthTimeout:     cfg.GetDuration("auth_timeout"),
		MetadataTimeout: cfg.GetDuration("metadata_timeout"),
		UploadTimeout:   cfg.GetDuration("upload_timeout"),
		LogFile:         cfg.GetString("log_file"),
		LogLevel:        cfg.GetString("log_level"),
		NotifySpool:     cfg.GetString("notify_spool"),
		TickCategories:  []string{},
	}

	data, err := toml.Marshal(defaults)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp config file: %w", err)
	}
	if err := tempFile.Chmod(fileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp config file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp config file: %w", err)
	}
	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}
	cleanup = false

	return nil
}
