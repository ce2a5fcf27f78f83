package config

import (
	"fmt"
	"os"

	"github.com/cuemby/factengine/pkg/authorization"
	"gopkg.in/yaml.v3"
)

// AuthenticationProvider resolves the caller identity for an HTTP
// request. It is an injection point only: key management and signing
// are out of scope for this module, so a deployment supplies its own
// implementation (bearer token lookup, mTLS client cert mapping, etc.).
type AuthenticationProvider interface {
	Authenticate(token string) (userType, userHash string, err error)
}

// Config is factengine's declarative configuration, loaded from YAML.
type Config struct {
	// HTTPEndpoint is the address the optional HTTP surface binds to.
	// Empty disables it (library-only use).
	HTTPEndpoint string `yaml:"httpEndpoint"`

	// WSEndpoint is reserved: parsed but unused by this module — a
	// future streaming transport's bind address.
	WSEndpoint string `yaml:"wsEndpoint,omitempty"`

	// StoreDir selects BoltStore when non-empty, MemoryStore otherwise.
	StoreDir string `yaml:"storeDir"`

	// HTTPTimeoutSeconds bounds one HTTP request's handling time.
	// Defaults to 30.
	HTTPTimeoutSeconds int `yaml:"httpTimeoutSeconds"`

	// DefaultPolicy governs fact types with no registered authorization
	// rule: "permissive" or "restrictive". Defaults to "restrictive".
	DefaultPolicy string `yaml:"defaultPolicy"`

	// LogLevel and LogJSON configure pkg/log.
	LogLevel string `yaml:"logLevel"`
	LogJSON  bool   `yaml:"logJSON"`

	// Auth is not itself (de)serialized; a caller sets it after Load
	// if it wants authenticated HTTP access.
	Auth AuthenticationProvider `yaml:"-"`
}

// Default returns the zero-configuration Config: in-memory store, no
// HTTP surface, restrictive default authorization.
func Default() Config {
	return Config{
		HTTPTimeoutSeconds: 30,
		DefaultPolicy:      "restrictive",
		LogLevel:           "info",
	}
}

// Load reads and parses a YAML configuration file, applying Default's
// values to any field the file leaves unset.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	if cfg.HTTPTimeoutSeconds <= 0 {
		cfg.HTTPTimeoutSeconds = 30
	}
	return cfg, nil
}

// AuthorizationPolicy maps the configured policy name onto
// authorization.DefaultPolicy, defaulting to restrictive on an
// unrecognized or empty value.
func (c Config) AuthorizationPolicy() authorization.DefaultPolicy {
	switch c.DefaultPolicy {
	case "permissive":
		return authorization.DefaultPermissive
	default:
		return authorization.DefaultRestrictive
	}
}
