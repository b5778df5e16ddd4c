package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"go-bus-tracking/internal/infrastructure/logger"
)

const (
	EnvPort      = "PORT"
	EnvStorePath = "BUS_TRACKING_STORE_PATH"
)

var (
	ErrConfigFileUnreadable     = errors.New("config file is unreadable")
	ErrConfigFileUnmarshallable = errors.New("config file is unmarshallable")
	ErrConfigInvalid            = errors.New("config is invalid")
)

type Config struct {
	Server ServerConfig  `yaml:"server"`
	Hub    HubConfig     `yaml:"hub"`
	Store  StoreConfig   `yaml:"store"`
	Logger logger.Config `yaml:"logger"`
}

// ServerConfig holds the HTTP listener settings. WriteTimeout also bounds
// SSE streams, so it stays 0 unless every client is short-lived.
type ServerConfig struct {
	Addr         string        `yaml:"addr"         validate:"required"`
	ReadTimeout  time.Duration `yaml:"readTimeout"  validate:"gte=0"`
	WriteTimeout time.Duration `yaml:"writeTimeout" validate:"gte=0"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"  validate:"gte=0"`
	CORSOrigin   string        `yaml:"corsOrigin"`
}

type HubConfig struct {
	BusRefreshInterval  time.Duration `yaml:"busRefreshInterval"  validate:"gt=0"`
	TripRefreshInterval time.Duration `yaml:"tripRefreshInterval" validate:"gt=0"`
	FetchTimeout        time.Duration `yaml:"fetchTimeout"        validate:"gt=0"`
	CleanupInterval     time.Duration `yaml:"cleanupInterval"     validate:"gt=0"`
	KeepAliveInterval   time.Duration `yaml:"keepAliveInterval"   validate:"gt=0"`
	SnapshotCacheTTL    time.Duration `yaml:"snapshotCacheTTL"    validate:"gte=0"`
	BroadcastBuffer     int           `yaml:"broadcastBuffer"     validate:"gt=0"`
	SendBuffer          int           `yaml:"sendBuffer"          validate:"gt=0"`
	ClientMessageRate   float64       `yaml:"clientMessageRate"   validate:"gt=0"`
	ClientMessageBurst  int           `yaml:"clientMessageBurst"  validate:"gt=0"`
}

type StoreConfig struct {
	Path     string `yaml:"path"     validate:"required_without=InMemory"`
	InMemory bool   `yaml:"inMemory"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        ":3000",
			ReadTimeout: 15 * time.Second,
			IdleTimeout: 60 * time.Second,
			CORSOrigin:  "*",
		},
		Hub: HubConfig{
			BusRefreshInterval:  30 * time.Second,
			TripRefreshInterval: 60 * time.Second,
			FetchTimeout:        5 * time.Second,
			CleanupInterval:     30 * time.Second,
			KeepAliveInterval:   30 * time.Second,
			SnapshotCacheTTL:    2 * time.Second,
			BroadcastBuffer:     1000,
			SendBuffer:          256,
			ClientMessageRate:   10,
			ClientMessageBurst:  20,
		},
		Store: StoreConfig{
			Path: "data/bus-tracking",
		},
		Logger: *logger.NewDefaultConfig(),
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigFileUnreadable, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigFileUnmarshallable, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if port := os.Getenv(EnvPort); port != "" {
		cfg.Server.Addr = ":" + port
	}
	if path := os.Getenv(EnvStorePath); path != "" {
		cfg.Store.Path = path
		cfg.Store.InMemory = false
	}
}

func (c *Config) Validate() error {
	v := validator.New()
	for _, section := range []any{c.Server, c.Hub, c.Store, c.Logger} {
		if err := v.Struct(section); err != nil {
			return fmt.Errorf("%w: %v", ErrConfigInvalid, err)
		}
	}
	return nil
}
