package common

import (
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the config file looked up in the working directory
// when neither --config nor OPS_CONFIG names one.
const DefaultConfigFile = "ops.yml"

// DefaultConfigYAML is what `ops init` writes when no config file exists.
// Keys absent here (server, logging, jobs) keep their defaults.
const DefaultConfigYAML = `workspace: "./data"
timezone: "Asia/Tokyo"
privacy:
  default_redaction: false
index:
  fts: true
  max_snippet_len: 160
`

// WriteDefaultConfig writes the default ops.yml. Existing files are left
// alone.
func WriteDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, []byte(DefaultConfigYAML), 0o644); err != nil {
		return ConfigError(err, "cannot write default config %s", path)
	}
	return nil
}

// Config is the ops.yml model. Absent keys keep their defaults.
type Config struct {
	Workspace string        `yaml:"workspace" validate:"required"`
	Timezone  string        `yaml:"timezone" validate:"required"`
	Privacy   PrivacyConfig `yaml:"privacy"`
	Index     IndexConfig   `yaml:"index"`
	Server    ServerConfig  `yaml:"server"`
	Logging   LoggingConfig `yaml:"logging"`
	Jobs      JobsConfig    `yaml:"jobs"`

	location *time.Location
}

// PrivacyConfig is reserved; default_redaction is informational for now.
type PrivacyConfig struct {
	DefaultRedaction bool `yaml:"default_redaction"`
}

type IndexConfig struct {
	FTS           bool `yaml:"fts"`
	MaxSnippetLen int  `yaml:"max_snippet_len" validate:"gt=0"`
}

type ServerConfig struct {
	Host   string       `yaml:"host" validate:"required"`
	Port   int          `yaml:"port" validate:"gt=0,lte=65535"`
	Stream StreamConfig `yaml:"stream"`
}

// StreamConfig tunes the /ws event push. An empty throttle interval sends
// every inserted event; a duration string drops events above that rate.
type StreamConfig struct {
	ThrottleInterval string `yaml:"throttle_interval"`
}

type LoggingConfig struct {
	Level       string `yaml:"level" validate:"required"`
	FileEnabled bool   `yaml:"file_enabled"`
}

type JobsConfig struct {
	DefinitionsDir string `yaml:"definitions_dir"`
}

// NewDefaultConfig returns the documented defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Workspace: "./data",
		Timezone:  "Asia/Tokyo",
		Privacy:   PrivacyConfig{DefaultRedaction: false},
		Index: IndexConfig{
			FTS:           true,
			MaxSnippetLen: 160,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 7777,
		},
		Logging: LoggingConfig{
			Level:       "info",
			FileEnabled: false,
		},
		Jobs: JobsConfig{
			DefinitionsDir: "jobs",
		},
	}
}

// LoadConfig loads ops.yml from the explicit path, OPS_CONFIG, or the working
// directory, in that order. A missing explicit path is an error; a missing
// default path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	explicit := path != ""
	if path == "" {
		path = os.Getenv("OPS_CONFIG")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			applyEnvOverrides(cfg)
			if err := cfg.validate(); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, ConfigError(err, "config file %s not readable", path)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, ConfigError(err, "config file %s not parseable", path)
	}

	applyEnvOverrides(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	if ws := os.Getenv("OPS_WORKSPACE"); ws != "" {
		cfg.Workspace = ws
	}
	if tz := os.Getenv("OPS_TIMEZONE"); tz != "" {
		cfg.Timezone = tz
	}
	if host := os.Getenv("OPS_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("OPS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if level := os.Getenv("OPS_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return ConfigError(err, "invalid configuration")
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return ConfigError(err, "unknown timezone %q", c.Timezone)
	}
	c.location = loc
	return nil
}

// Location returns the workspace timezone.
func (c *Config) Location() *time.Location {
	if c.location != nil {
		return c.location
	}
	if loc, err := time.LoadLocation(c.Timezone); err == nil {
		c.location = loc
		return loc
	}
	return time.UTC
}

// BaseURL returns the daemon address clients should dial.
func (c *Config) BaseURL() string {
	return "http://" + c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}
