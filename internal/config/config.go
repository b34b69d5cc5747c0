// Package config handles loading and parsing application configuration.
// It supports these sources (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//  3. A .env file in the working directory
//  4. The process environment alone
//
// Files may be YAML or .env; cleanenv picks the parser from the extension.
// Every field can also be set or overridden through its env:"..." variable.
package config

import (
	"flag"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aanand-mishra/school-api/internal/connection"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"
)

// dotEnvFile is read when no explicit config path is given.
const dotEnvFile = ".env"

// Config is the root configuration structure.
//
// The Firebase settings are NOT env-required: a missing value
// has to be reported together with every other missing value, which
// connection.Config.Validate does.
type Config struct {
	// Env controls log format and verbosity.
	// Valid values: "development", "staging", "production".
	Env string `yaml:"env" env:"ENV" env-default:"development"`

	HTTPServer `yaml:"http_server"`

	Firebase Firebase `yaml:"firebase"`

	Storage Storage `yaml:"storage"`

	Connect Connect `yaml:"connect"`
}

// HTTPServer holds settings specific to the HTTP server.
type HTTPServer struct {
	// Host is empty to listen on every interface.
	Host string `yaml:"host" env:"HTTP_SERVER_HOST"`
	Port string `yaml:"port" env:"PORT" env-default:"3000"`

	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`

	// AllowedOrigins is a comma separated CORS origin list.
	AllowedOrigins string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"*"`
}

// Firebase holds the service-account settings for Cloud Firestore.
type Firebase struct {
	ProjectID     string `yaml:"project_id" env:"FIREBASE_PROJECT_ID"`
	PrivateKey    string `yaml:"private_key" env:"FIREBASE_PRIVATE_KEY"`
	ClientEmail   string `yaml:"client_email" env:"FIREBASE_CLIENT_EMAIL"`
	DatabaseURL   string `yaml:"database_url" env:"FIREBASE_DATABASE_URL"`
	StorageBucket string `yaml:"storage_bucket" env:"FIREBASE_STORAGE_BUCKET"`

	// EmulatorHost points the client at a local Firestore emulator.
	EmulatorHost string `yaml:"emulator_host" env:"FIRESTORE_EMULATOR_HOST"`
}

// Storage selects the document store backend.
type Storage struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"firestore"`
	// Path is the SQLite file used by the "sqlite" driver.
	Path string `yaml:"path" env:"STORAGE_PATH"`
}

// Count is an integer setting kept as text, so an explicit 0 is not
// mistaken for an unset field and replaced by its env-default.
type Count string

// Int parses n.
func (n Count) Int() (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(string(n)))
	if err != nil {
		return 0, errors.Errorf("not an integer: %q", string(n))
	}
	return v, nil
}

// Connect tunes the connection bootstrap.
type Connect struct {
	// MaxRetries may be 0 to try once.
	MaxRetries    Count         `yaml:"max_retries" env:"CONNECT_MAX_RETRIES" env-default:"3"`
	InitialDelay  time.Duration `yaml:"initial_delay" env:"CONNECT_INITIAL_DELAY" env-default:"2s"`
	BackoffFactor float64       `yaml:"backoff_factor" env:"CONNECT_BACKOFF_FACTOR" env-default:"1.5"`
	MaxDelay      time.Duration `yaml:"max_delay" env:"CONNECT_MAX_DELAY" env-default:"1m"`

	ProbeCollection string `yaml:"probe_collection" env:"CONNECT_PROBE_COLLECTION" env-default:"_test_"`
	// ProbeLimit must be at least 1.
	ProbeLimit      Count  `yaml:"probe_limit" env:"CONNECT_PROBE_LIMIT" env-default:"1"`
}

// Addr is the listen address, e.g. ":3000".
func (s HTTPServer) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// Origins splits AllowedOrigins.
func (s HTTPServer) Origins() []string {
	var origins []string
	for _, o := range strings.Split(s.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// IsProduction reports whether Env names a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Connection converts the loaded settings into a connection.Config.
func (c *Config) Connection() connection.Config {
	return connection.Config{
		Driver:        connection.Driver(c.Storage.Driver),
		ProjectID:     c.Firebase.ProjectID,
		PrivateKey:    c.Firebase.PrivateKey,
		ClientEmail:   c.Firebase.ClientEmail,
		DatabaseURL:   c.Firebase.DatabaseURL,
		StorageBucket: c.Firebase.StorageBucket,
		EmulatorHost:  c.Firebase.EmulatorHost,
		SQLitePath:    c.Storage.Path,
	}
}

// RetryPolicy converts the Connect section into a connection.RetryPolicy.
func (c *Config) RetryPolicy() (connection.RetryPolicy, error) {
	retries, err := c.Connect.MaxRetries.Int()
	if err != nil {
		return connection.RetryPolicy{}, errors.Wrap(err, "max_retries")
	}
	if retries < 0 {
		return connection.RetryPolicy{}, errors.Errorf("max_retries must not be negative, got %d", retries)
	}

	limit, err := c.Connect.ProbeLimit.Int()
	if err != nil {
		return connection.RetryPolicy{}, errors.Wrap(err, "probe_limit")
	}
	if limit < 1 {
		return connection.RetryPolicy{}, errors.Errorf("probe_limit must be at least 1, got %d", limit)
	}

	return connection.RetryPolicy{
		MaxRetries:      retries,
		InitialDelay:    c.Connect.InitialDelay,
		Factor:          c.Connect.BackoffFactor,
		MaxDelay:        c.Connect.MaxDelay,
		ProbeCollection: c.Connect.ProbeCollection,
		ProbeLimit:      limit,
	}, nil
}

// Load reads the config from path, or from the environment alone when path
// is empty.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, errors.Wrap(err, "read environment")
		}
		return check(&cfg)
	}

	// Verify the file exists before trying to read it, for a clearer
	// message than the parser's.
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.Errorf("config file does not exist: %s", path)
	}

	// ReadConfig parses the file and then applies env overrides and
	// env-default values.
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	return check(&cfg)
}

// check rejects settings that parse but cannot be used.
func check(cfg *Config) (*Config, error) {
	if _, err := cfg.RetryPolicy(); err != nil {
		return nil, errors.Wrap(err, "connect")
	}
	return cfg, nil
}

// MustLoad resolves the config source, loads it, and exits the process on
// failure. If this function returns, the config was parsed.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to the configuration file (YAML or .env)")
		flag.Parse()
		configPath = *flags
	}

	if configPath == "" {
		if _, err := os.Stat(dotEnvFile); err == nil {
			configPath = dotEnvFile
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err.Error())
	}

	return cfg
}
