package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendBolt   = "bolt"
	BackendRelay  = "relay"
)

// Config is the persisted config file schema.
type Config struct {
	Name      string      `toml:"name"`
	Title     string      `toml:"title"`
	User      string      `toml:"user"`
	Locale    string      `toml:"locale"`
	Timezone  string      `toml:"timezone"`
	KeySuffix string      `toml:"key_suffix"`
	LogLevel  string      `toml:"log_level"`
	Store     StoreConfig `toml:"store"`
	Relay     RelayConfig `toml:"relay"`
	Source    string      `toml:"-"`
}

type StoreConfig struct {
	Backend  string `toml:"backend"`
	Path     string `toml:"path"`
	Capacity int    `toml:"capacity"`
}

type RelayConfig struct {
	URL    string `toml:"url"`
	Listen string `toml:"listen"`
}

func Default() Config {
	return Config{
		Name:      "room",
		Title:     "Chat",
		User:      "admin",
		Locale:    "en",
		KeySuffix: "none",
		LogLevel:  "info",
		Store: StoreConfig{
			Backend: BackendMemory,
			Path:    defaultDataPath("record.db"),
		},
		Relay: RelayConfig{
			URL:    "ws://127.0.0.1:8787/ws",
			Listen: ":8787",
		},
	}
}

func DefaultPath() string {
	return defaultDataPath("config.toml")
}

func defaultDataPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".chatroom", name)
}

// Load reads the TOML file at path (a missing file is not an error) and
// then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return cfg, errors.New("config path is empty and $HOME is not set")
	}
	cfg.Source = path

	content, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, err
	}
	if err == nil {
		if err := toml.Unmarshal(content, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// envOverrides 是可由环境变量覆盖的配置项，空值不覆盖。
type envOverrides struct {
	User     string `envconfig:"CHATROOM_USER"`
	RelayURL string `envconfig:"CHATROOM_RELAY_URL"`
}

func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	if v := strings.TrimSpace(env.User); v != "" {
		cfg.User = v
	}
	if v := strings.TrimSpace(env.RelayURL); v != "" {
		cfg.Relay.URL = v
	}
	return nil
}

// Validate reports settings the card cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("name must not be empty")
	}
	switch c.Store.Backend {
	case BackendMemory, BackendRelay:
	case BackendBolt:
		if strings.TrimSpace(c.Store.Path) == "" {
			return errors.New("store.path is required for the bolt backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch strings.ToLower(strings.TrimSpace(c.KeySuffix)) {
	case "", "none", "ulid":
	default:
		return fmt.Errorf("unknown key_suffix %q (want none or ulid)", c.KeySuffix)
	}
	if c.Store.Capacity < 0 {
		return errors.New("store.capacity must not be negative")
	}
	return nil
}
