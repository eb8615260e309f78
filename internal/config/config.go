package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/RowanDark/cryptex/internal/logging"
)

// Config captures the cryptex configuration resolved from defaults, an
// optional YAML file, and environment overrides.
type Config struct {
	HTTP    HTTPConfig
	GRPC    GRPCConfig
	Log     LogConfig
	Recipes RecipesConfig
	Cache   CacheConfig
	Client  ClientConfig

	// File is the configuration file that was read, if any.
	File string
}

// HTTPConfig controls the cryptexd JSON API listener.
type HTTPConfig struct {
	Addr           string
	MaxConnections int
}

// GRPCConfig controls the cryptexd health service listener.
type GRPCConfig struct {
	Addr string
}

type LogConfig struct {
	Level  string
	Format string
}

type RecipesConfig struct {
	Dir string
}

// CacheConfig sizes the radix conversion cache.
type CacheConfig struct {
	RadixSize int
}

// ClientConfig controls how cryptexctl talks to a running cryptexd.
type ClientConfig struct {
	Server  string
	Timeout time.Duration
	Retries int
	Backoff time.Duration
}

const envPrefix = "CRYPTEX"

var defaults = map[string]interface{}{
	"http.addr":            "127.0.0.1:8750",
	"http.max.connections": 256,
	"grpc.addr":            "127.0.0.1:8751",
	"log.level":            "info",
	"log.format":           "text",
	"recipes.dir":          "~/.cryptex/recipes",
	"cache.radix.size":     1024,
	"client.server":        "http://127.0.0.1:8750",
	"client.timeout":       "5s",
	"client.retries":       5,
	"client.backoff":       "1s",
}

// Default returns the built-in cryptex configuration.
func Default() Config {
	cfg, err := fromViper(defaultViper())
	if err != nil {
		panic(err)
	}
	return cfg
}

func defaultViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

func newViper() *viper.Viper {
	v := defaultViper()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load resolves the configuration. When path is empty the lookup order for
// configuration files is:
//  1. ./cryptex.yml
//  2. ~/.cryptex/config.yaml
//
// Environment variables prefixed with CRYPTEX_ have the highest precedence,
// e.g. CRYPTEX_HTTP_ADDR overrides http.addr.
func Load(path string) (Config, error) {
	v := newViper()

	file, err := resolveFile(path)
	if err != nil {
		return Config{}, err
	}
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg, err := fromViper(v)
	if err != nil {
		return Config{}, err
	}
	cfg.File = file
	return cfg, nil
}

func resolveFile(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file %s: %w", path, err)
		}
		return path, nil
	}

	candidates := []string{"cryptex.yml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".cryptex", "config.yaml"))
	}
	for _, candidate := range candidates {
		_, err := os.Stat(candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat config %s: %w", candidate, err)
		}
	}
	return "", nil
}

func fromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Addr:           strings.TrimSpace(v.GetString("http.addr")),
			MaxConnections: v.GetInt("http.max.connections"),
		},
		GRPC: GRPCConfig{
			Addr: strings.TrimSpace(v.GetString("grpc.addr")),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Recipes: RecipesConfig{
			Dir: expandHome(strings.TrimSpace(v.GetString("recipes.dir"))),
		},
		Cache: CacheConfig{
			RadixSize: v.GetInt("cache.radix.size"),
		},
		Client: ClientConfig{
			Server:  strings.TrimRight(strings.TrimSpace(v.GetString("client.server")), "/"),
			Retries: v.GetInt("client.retries"),
		},
	}

	var err error
	if cfg.Client.Timeout, err = parseDuration(v, "client.timeout"); err != nil {
		return Config{}, err
	}
	if cfg.Client.Backoff, err = parseDuration(v, "client.backoff"); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s setting %q: %w", key, raw, err)
	}
	return d, nil
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr cannot be empty")
	}
	if c.HTTP.MaxConnections < 1 {
		return fmt.Errorf("http.max.connections must be positive, got %d", c.HTTP.MaxConnections)
	}
	if c.GRPC.Addr == "" {
		return errors.New("grpc.addr cannot be empty")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return err
	}
	if c.Cache.RadixSize < 0 {
		return fmt.Errorf("cache.radix.size cannot be negative, got %d", c.Cache.RadixSize)
	}
	if c.Client.Retries < 0 {
		return fmt.Errorf("client.retries cannot be negative, got %d", c.Client.Retries)
	}
	if c.Client.Timeout <= 0 {
		return fmt.Errorf("client.timeout must be positive, got %s", c.Client.Timeout)
	}
	return nil
}

// NewLogger builds the logger described by the log settings.
func (c Config) NewLogger(opts ...logging.Option) (logging.Logger, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(level, append([]logging.Option{logging.WithFormat(c.Log.Format)}, opts...)...)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
