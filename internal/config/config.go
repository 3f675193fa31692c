package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kozaktomas/facial-recognition/internal/constants"
	"gopkg.in/yaml.v3"
)

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverMariaDB  = "mariadb"
	DriverMySQL    = "mysql"
)

type Config struct {
	Facial   FacialConfig
	Database DatabaseConfig
	Web      WebConfig
	Logging  LoggingConfig
	RabbitMQ RabbitMQConfig
}

type FacialConfig struct {
	Strategy       string // facial.recognition.strategy, "mock" when empty
	MaxImagePixels int    // decoded width*height limit for the opencv strategy
}

type DatabaseConfig struct {
	Driver       string // postgres (default) or mariadb/mysql
	URL          string // PostgreSQL connection URL or MySQL DSN
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string // CORS whitelist in addition to localhost
}

type LoggingConfig struct {
	Level  string // zerolog level name, defaults to info
	Format string // console or json
}

type RabbitMQConfig struct {
	URL   string // empty disables enrollment events
	Queue string
}

// fileConfig mirrors the YAML layout, e.g.
//
//	facial:
//	  recognition:
//	    strategy: opencv
type fileConfig struct {
	Facial struct {
		Recognition struct {
			Strategy       string `yaml:"strategy"`
			MaxImagePixels int    `yaml:"max-image-pixels"`
		} `yaml:"recognition"`
	} `yaml:"facial"`
	Database struct {
		Driver       string `yaml:"driver"`
		URL          string `yaml:"url"`
		MaxOpenConns int    `yaml:"max-open-conns"`
		MaxIdleConns int    `yaml:"max-idle-conns"`
	} `yaml:"database"`
	Web struct {
		Host           string   `yaml:"host"`
		Port           int      `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed-origins"`
	} `yaml:"web"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	RabbitMQ struct {
		URL   string `yaml:"url"`
		Queue string `yaml:"queue"`
	} `yaml:"rabbitmq"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envString returns the environment variable value, or defaultVal when unset or empty.
func envString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

// envList splits a comma-separated environment variable, dropping empty entries.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func defaults() *Config {
	return &Config{
		Facial: FacialConfig{
			Strategy:       constants.StrategyMock,
			MaxImagePixels: constants.DefaultMaxImagePixels,
		},
		Database: DatabaseConfig{
			Driver:       DriverPostgres,
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		Web: WebConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		RabbitMQ: RabbitMQConfig{
			Queue: constants.DefaultEnrollmentQueue,
		},
	}
}

// Load builds the configuration from defaults and environment variables.
func Load() *Config {
	cfg := defaults()
	cfg.applyEnv()
	return cfg
}

// LoadFile overlays a YAML file on the defaults, then applies environment variables.
// An empty path behaves like Load.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		cfg.applyFile(&fc)
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyFile(fc *fileConfig) {
	if v := fc.Facial.Recognition.Strategy; v != "" {
		c.Facial.Strategy = v
	}
	if v := fc.Facial.Recognition.MaxImagePixels; v > 0 {
		c.Facial.MaxImagePixels = v
	}
	if v := fc.Database.Driver; v != "" {
		c.Database.Driver = v
	}
	if v := fc.Database.URL; v != "" {
		c.Database.URL = v
	}
	if v := fc.Database.MaxOpenConns; v > 0 {
		c.Database.MaxOpenConns = v
	}
	if v := fc.Database.MaxIdleConns; v > 0 {
		c.Database.MaxIdleConns = v
	}
	if v := fc.Web.Host; v != "" {
		c.Web.Host = v
	}
	if v := fc.Web.Port; v > 0 {
		c.Web.Port = v
	}
	if len(fc.Web.AllowedOrigins) > 0 {
		c.Web.AllowedOrigins = fc.Web.AllowedOrigins
	}
	if v := fc.Logging.Level; v != "" {
		c.Logging.Level = v
	}
	if v := fc.Logging.Format; v != "" {
		c.Logging.Format = v
	}
	if v := fc.RabbitMQ.URL; v != "" {
		c.RabbitMQ.URL = v
	}
	if v := fc.RabbitMQ.Queue; v != "" {
		c.RabbitMQ.Queue = v
	}
}

func (c *Config) applyEnv() {
	c.Facial.Strategy = envString("FACIAL_RECOGNITION_STRATEGY", c.Facial.Strategy)
	c.Facial.MaxImagePixels = envInt("FACIAL_MAX_IMAGE_PIXELS", c.Facial.MaxImagePixels)
	c.Database.Driver = envString("DATABASE_DRIVER", c.Database.Driver)
	c.Database.URL = envString("DATABASE_URL", c.Database.URL)
	c.Database.MaxOpenConns = envInt("DATABASE_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = envInt("DATABASE_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Web.Host = envString("WEB_HOST", c.Web.Host)
	c.Web.Port = envInt("WEB_PORT", c.Web.Port)
	if origins := envList("WEB_ALLOWED_ORIGINS"); len(origins) > 0 {
		c.Web.AllowedOrigins = origins
	}
	c.Logging.Level = envString("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = envString("LOG_FORMAT", c.Logging.Format)
	c.RabbitMQ.URL = envString("RABBITMQ_URL", c.RabbitMQ.URL)
	c.RabbitMQ.Queue = envString("RABBITMQ_QUEUE", c.RabbitMQ.Queue)
}

// Validate reports configuration values the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Facial.Strategy) {
	case "", constants.StrategyMock, constants.StrategyOpenCV:
	default:
		errs = append(errs, fmt.Errorf("unknown facial.recognition.strategy %q (want %q or %q)",
			c.Facial.Strategy, constants.StrategyMock, constants.StrategyOpenCV))
	}
	switch strings.ToLower(c.Database.Driver) {
	case DriverPostgres, DriverMariaDB, DriverMySQL:
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	return errors.Join(errs...)
}
