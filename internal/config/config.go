package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"

	cfgCSRF "github.com/KattyaCuevas/posts-service/internal/config/csrf"
	cfgEventWorker "github.com/KattyaCuevas/posts-service/internal/config/event-worker"
	"github.com/KattyaCuevas/posts-service/internal/config/grpcobj"
	cfgHTTP "github.com/KattyaCuevas/posts-service/internal/config/http"
	cfgKafka "github.com/KattyaCuevas/posts-service/internal/config/kafka"
	cfgStorage "github.com/KattyaCuevas/posts-service/internal/config/storage"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type Config struct {
	Env         string                `json:"env"`
	HTTP        cfgHTTP.Config        `json:"http"`
	GRPC        grpcobj.Config        `json:"grpc"`
	CSRF        cfgCSRF.Config        `json:"csrf"`
	Storage     cfgStorage.Config     `json:"storage"`
	Kafka       cfgKafka.Config       `json:"kafka"`
	EventWorker cfgEventWorker.Config `json:"event-worker"`
}

const (
	defaultConfigPath = "./config/config.json"
	defaultEnvFile    = ".env"

	defaultHTTPPort       = 8080
	defaultReadTimeout    = 5 * time.Second
	defaultWriteTimeout   = 10 * time.Second
	defaultIdleTimeout    = 60 * time.Second
	defaultHandlerTimeout = 5 * time.Second
	defaultKafkaTopic     = "posts-events"
	defaultKafkaTimeout   = 5
	defaultEventPageSize  = 100
	defaultEventInterval  = time.Second
	defaultEventTimeout   = 10 * time.Second
	defaultStoragePort    = 5432
	defaultStorageTimeout = 5
)

// New creates new object of applications' configuration
func New() *Config {
	path := fetchConfigPath()

	cfg := MustLoad(path)

	return cfg
}

// MustLoad is wrapper of load function to panic if error occurred
func MustLoad(path string) *Config {
	cfg, err := Load(path)

	if err != nil {
		panic("failed to load config file: " + err.Error())
	}

	return cfg
}

// Load loads config from json file by path. Return error if occurred
func Load(path string) (*Config, error) {
	cfg := new(Config)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	jsonContent, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	err = json.Unmarshal(jsonContent, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	cfg.setDefaults()

	if err = cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Env == "" {
		c.Env = EnvLocal
	}

	if c.HTTP.Port == 0 {
		c.HTTP.Port = defaultHTTPPort
	}
	c.HTTP.ReadTimeout.Duration = c.HTTP.ReadTimeout.Or(defaultReadTimeout)
	c.HTTP.WriteTimeout.Duration = c.HTTP.WriteTimeout.Or(defaultWriteTimeout)
	c.HTTP.IdleTimeout.Duration = c.HTTP.IdleTimeout.Or(defaultIdleTimeout)
	c.HTTP.Timeout.Duration = c.HTTP.Timeout.Or(defaultHandlerTimeout)
	c.GRPC.Timeout.Duration = c.GRPC.Timeout.Or(defaultHandlerTimeout)

	if c.Storage.Kind == "" {
		c.Storage.Kind = cfgStorage.KindMemory
	}
	if c.Storage.Kind == cfgStorage.KindPostgres {
		if c.Storage.Port == 0 {
			c.Storage.Port = defaultStoragePort
		}
		if c.Storage.Timeout == 0 {
			c.Storage.Timeout = defaultStorageTimeout
		}
	}

	if c.Kafka.Topic == "" {
		c.Kafka.Topic = defaultKafkaTopic
	}
	if c.Kafka.Timeout == 0 {
		c.Kafka.Timeout = defaultKafkaTimeout
	}

	if c.EventWorker.PageSize == 0 {
		c.EventWorker.PageSize = defaultEventPageSize
	}
	c.EventWorker.Interval.Duration = c.EventWorker.Interval.Or(defaultEventInterval)
	c.EventWorker.Timeout.Duration = c.EventWorker.Timeout.Or(defaultEventTimeout)
}

func (c *Config) validate() error {
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("unknown env %q", c.Env)
	}

	switch c.Storage.Kind {
	case cfgStorage.KindMemory, cfgStorage.KindPostgres:
	default:
		return fmt.Errorf("unknown storage kind %q", c.Storage.Kind)
	}

	if c.CSRF.AuthKey != "" && len(c.CSRF.AuthKey) != 32 {
		return errors.New("csrf auth-key must be 32 bytes long")
	}

	if c.EventWorker.PageSize <= 0 {
		return fmt.Errorf("event-worker page-size must be positive, got %d", c.EventWorker.PageSize)
	}

	if c.Kafka.Enabled && len(c.Kafka.Addrs) == 0 {
		return errors.New("kafka is enabled but no addrs are set")
	}

	return nil
}

// fetchConfigPath fetches config path from either flag 'config' or environment variable.
// If both are empty default value will be returned
// flag > env > default
//
// Variables from .env file are loaded first if the file exists
func fetchConfigPath() string {
	res := ""

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res != "" {
		return res
	}

	if err := godotenv.Load(defaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic("failed to load " + defaultEnvFile + ": " + err.Error())
	}

	res = os.Getenv("CONFIG_PATH")
	if res != "" {
		return res
	}

	return defaultConfigPath
}
