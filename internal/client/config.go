package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/jaekwang-park/taskscribe/internal/view"
)

const (
	DefaultServerURL = "http://localhost:8080"
	ServerURLEnv     = "TASKSCRIBE_SERVER_URL"
	appDirName       = "taskscribe"
)

// Config is the CLI configuration read from config.toml.
type Config struct {
	ServerURL string       `toml:"server_url"`
	DataDir   string       `toml:"data_dir"`
	Filters   view.Filters `toml:"filters"`
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/taskscribe/config.toml, falling
// back to the OS config directory.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, appDirName, "config.toml"), nil
}

func defaultConfig(configPath string) Config {
	return Config{
		ServerURL: DefaultServerURL,
		DataDir:   filepath.Join(filepath.Dir(configPath), "session"),
		Filters:   view.DefaultFilters(),
	}
}

// LoadConfig reads the TOML file at path over the defaults. A missing file
// is not an error. TASKSCRIBE_SERVER_URL overrides server_url.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig(path)

	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if v := os.Getenv(ServerURLEnv); v != "" {
		cfg.ServerURL = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ServerURL == "" {
		return errors.New("server_url is required")
	}
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	if err := c.Filters.Validate(); err != nil {
		return fmt.Errorf("filters: %w", err)
	}
	return nil
}
