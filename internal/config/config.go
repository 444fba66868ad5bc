package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
)

const (
	// DefaultEndpoint is the platform address used when none is configured.
	DefaultEndpoint = "http://localhost:8000"

	// DefaultAdminKey is the bootstrap admin key of a fresh deployment.
	DefaultAdminKey = "partioadmin"

	// DotEnvFile is read from the working directory when present.
	DotEnvFile = ".env"
)

// Environment variables consulted by Load.
const (
	EnvConfigFile = "PARTIO_HARNESS_CONFIG"
	EnvEndpoint   = "PARTIO_ENDPOINT"
	EnvAdminKey   = "PARTIO_ADMIN_KEY"
	EnvLogLevel   = "PARTIO_LOG_LEVEL"
)

// Config is the harness configuration.
type Config struct {
	// Endpoint is the base URL of the platform under test.
	Endpoint string

	// AdminKey is the bearer token used for every authenticated step.
	AdminKey string

	// Timeout bounds each HTTP request. Zero means no timeout.
	Timeout time.Duration

	// WaitForHealthy is how long to poll the health endpoint before the
	// suite starts. Zero disables the preflight.
	WaitForHealthy time.Duration

	// CountSkipsAsFailures reports skipped steps as failures.
	CountSkipsAsFailures bool

	// LogLevel is an hclog level name.
	LogLevel string

	// TLSSkipVerify disables certificate verification.
	TLSSkipVerify bool
}

// Default returns the configuration used when no source overrides it.
func Default() *Config {
	return &Config{
		Endpoint: DefaultEndpoint,
		AdminKey: DefaultAdminKey,
		LogLevel: "info",
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Endpoint, validation.Required, validation.By(httpURL)),
		validation.Field(&c.AdminKey, validation.Required),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.WaitForHealthy, validation.Min(time.Duration(0))),
		validation.Field(&c.LogLevel, validation.By(logLevel)),
	)
}

// Level returns the hclog level for LogLevel.
func (c *Config) Level() hclog.Level {
	if c.LogLevel == "" {
		return hclog.Info
	}
	return hclog.LevelFromString(c.LogLevel)
}

func httpURL(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an http or https URL")
	}
	return nil
}

func logLevel(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if hclog.LevelFromString(s) == hclog.NoLevel {
		return errors.New("must be one of trace, debug, info, warn, error or off")
	}
	return nil
}

// File is the HCL configuration file, e.g.:
//
//	endpoint                = "http://partio:8000"
//	admin_key               = "partioadmin"
//	timeout                 = "30s"
//	wait_for_healthy        = "2m"
//	count_skips_as_failures = false
//	log_level               = "debug"
type File struct {
	Endpoint             string `hcl:"endpoint,optional"`
	AdminKey             string `hcl:"admin_key,optional"`
	Timeout              string `hcl:"timeout,optional"`
	WaitForHealthy       string `hcl:"wait_for_healthy,optional"`
	CountSkipsAsFailures *bool  `hcl:"count_skips_as_failures,optional"`
	LogLevel             string `hcl:"log_level,optional"`
	TLSSkipVerify        *bool  `hcl:"tls_skip_verify,optional"`
}

// Loader assembles a Config from its sources.
type Loader struct {
	// FS is the filesystem .env and the config file are read from.
	FS afero.Fs

	// LookupEnv reads the process environment.
	LookupEnv func(key string) (string, bool)
}

// NewLoader returns a loader backed by the OS filesystem and environment.
func NewLoader() *Loader {
	return &Loader{
		FS:        afero.NewOsFs(),
		LookupEnv: os.LookupEnv,
	}
}

// Load builds the configuration from defaults, .env, the HCL file named by
// PARTIO_HARNESS_CONFIG, environment variables and finally the positional
// arguments [endpoint-url] [admin-key], in increasing precedence.
func (l *Loader) Load(args []string) (*Config, error) {
	if len(args) > 2 {
		return nil, fmt.Errorf("expected at most 2 arguments, got %d", len(args))
	}

	cfg := Default()

	dotenv, err := l.readDotEnv()
	if err != nil {
		return nil, err
	}
	apply(cfg, func(key string) (string, bool) {
		v, ok := dotenv[key]
		return v, ok
	})

	path, ok := l.LookupEnv(EnvConfigFile)
	if !ok {
		path, ok = dotenv[EnvConfigFile]
	}
	if ok && path != "" {
		f, err := l.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := f.applyTo(cfg); err != nil {
			return nil, fmt.Errorf("error in config file %s: %w", path, err)
		}
	}

	apply(cfg, l.LookupEnv)

	if len(args) > 0 && args[0] != "" {
		cfg.Endpoint = args[0]
	}
	if len(args) > 1 && args[1] != "" {
		cfg.AdminKey = args[1]
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ReadFile decodes the HCL configuration file at path.
func (l *Loader) ReadFile(path string) (*File, error) {
	src, err := afero.ReadFile(l.FS, path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var f File
	if err := hclsimple.Decode(path, src, nil, &f); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &f, nil
}

func (l *Loader) readDotEnv() (map[string]string, error) {
	src, err := afero.ReadFile(l.FS, DotEnvFile)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", DotEnvFile, err)
	}

	vars, err := godotenv.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", DotEnvFile, err)
	}
	return vars, nil
}

func apply(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvEndpoint); ok && v != "" {
		cfg.Endpoint = v
	}
	if v, ok := lookup(EnvAdminKey); ok && v != "" {
		cfg.AdminKey = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
}

func (f *File) applyTo(cfg *Config) error {
	var result *multierror.Error

	if f.Endpoint != "" {
		cfg.Endpoint = f.Endpoint
	}
	if f.AdminKey != "" {
		cfg.AdminKey = f.AdminKey
	}
	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("timeout: %w", err))
		}
		cfg.Timeout = d
	}
	if f.WaitForHealthy != "" {
		d, err := time.ParseDuration(f.WaitForHealthy)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("wait_for_healthy: %w", err))
		}
		cfg.WaitForHealthy = d
	}
	if f.CountSkipsAsFailures != nil {
		cfg.CountSkipsAsFailures = *f.CountSkipsAsFailures
	}
	if f.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(f.LogLevel)
	}
	if f.TLSSkipVerify != nil {
		cfg.TLSSkipVerify = *f.TLSSkipVerify
	}

	return result.ErrorOrNil()
}
