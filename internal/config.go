package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Transport modes.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Roots     RootsConfig       `yaml:"roots"`
	Limits    LimitsConfig      `yaml:"limits"`
	Transport TransportConfig   `yaml:"transport"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Roots.Validate(); err != nil {
		return err
	}
	if err := c.Limits.Validate(); err != nil {
		return err
	}
	if err := c.Transport.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// LogLevel is a slog.Level that accepts both YAML forms: the textual names
// ("debug", "info", "warn", "error", with optional offsets like "warn+2") and
// the raw numeric levels slog uses internally.
type LogLevel slog.Level

// UnmarshalYAML decodes a log level from a YAML scalar.
func (l *LogLevel) UnmarshalYAML(value *yaml.Node) error {
	var n int
	if err := value.Decode(&n); err == nil {
		*l = LogLevel(n)
		return nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(value.Value)); err != nil {
		return fmt.Errorf("app: invalid log_level %q", value.Value)
	}
	*l = LogLevel(lvl)
	return nil
}

// Level implements slog.Leveler.
func (l LogLevel) Level() slog.Level { return slog.Level(l) }

func (l LogLevel) String() string { return slog.Level(l).String() }

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel LogLevel `yaml:"log_level"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return nil
}

// RootsConfig holds the allowed root directories. Every path-accepting tool
// validates its target against this set before any file I/O; the set is
// fixed at startup and immutable afterward.
type RootsConfig struct {
	Dirs []string `yaml:"dirs"`
}

// Validate validates the allowed roots.
func (c *RootsConfig) Validate() error {
	if len(c.Dirs) == 0 {
		return fmt.Errorf("roots: at least one allowed root directory is required")
	}
	for _, dir := range c.Dirs {
		if !filepath.IsAbs(dir) {
			return fmt.Errorf("roots: allowed root must be an absolute path: %s", dir)
		}
	}
	return nil
}

// LimitsConfig holds the size ceilings, in bytes.
type LimitsConfig struct {
	MaxCellSourceBytes int `yaml:"max_cell_source_bytes"`
	MaxCellOutputBytes int `yaml:"max_cell_output_bytes"`
	MaxNotebookBytes   int `yaml:"max_notebook_bytes"`
}

// Validate validates the size limits.
func (c *LimitsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxCellSourceBytes, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxCellOutputBytes, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxNotebookBytes, validation.Required, validation.Min(1)),
	)
}

// TransportConfig selects how tool calls reach the server: stdio for a
// directly spawned process, or http for the streamable HTTP endpoint.
type TransportConfig struct {
	Mode string `yaml:"mode"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// Address returns the HTTP listen address.
func (c *TransportConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate validates the transport configuration.
func (c *TransportConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = TransportStdio
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(TransportStdio, TransportHTTP)),
	); err != nil {
		return err
	}
	if c.Mode != TransportHTTP {
		return nil
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	); err != nil {
		return err
	}
	if c.Path == "" || c.Path[0] != '/' {
		return fmt.Errorf("transport: path must start with /, got %q", c.Path)
	}
	return nil
}

// AuthConfig holds authentication for the HTTP transport.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
//
// The stdio transport inherits the spawning process's trust and ignores Auth.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
// Allowed roots have no default: the set must be configured explicitly.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: LogLevel(slog.LevelInfo),
		},
		Limits: LimitsConfig{
			MaxCellSourceBytes: 10 * 1024 * 1024,
			MaxCellOutputBytes: 10 * 1024 * 1024,
			MaxNotebookBytes:   10 * 1024 * 1024,
		},
		Transport: TransportConfig{
			Mode: TransportStdio,
			Host: "127.0.0.1",
			Port: 8889,
			Path: "/mcp",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
