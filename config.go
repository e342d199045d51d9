package omclient

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Config is what the bootstrap layer hands the client: the remote host,
// one credential form, and the pool/retry/timeout knobs. Zero fields fall
// back to the package defaults.
type Config struct {
	Host     string `koanf:"host"`
	APIToken string `koanf:"api_token"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`

	MaxKeepAliveConnections int `koanf:"max_keepalive_connections"`
	MaxConnections          int `koanf:"max_connections"`

	MaxRetries        int           `koanf:"max_retries"`
	BackoffBase       time.Duration `koanf:"backoff_base"`
	BackoffMax        time.Duration `koanf:"backoff_max"`
	BackoffMultiplier float64       `koanf:"backoff_multiplier"`
	Timeout           time.Duration `koanf:"timeout"`

	CacheDisabled bool `koanf:"cache_disabled"`
}

// LoadConfig reads a YAML or JSON config file, selecting the parser by
// extension.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newConfigurationError(fmt.Sprintf("reading config %s: %v", path, err))
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return LoadConfigBytes(data, "yaml")
	case ".json":
		return LoadConfigBytes(data, "json")
	default:
		return nil, newConfigurationError(fmt.Sprintf("unsupported config format %q", ext))
	}
}

// LoadConfigBytes parses raw config data in the given format ("yaml" or
// "json"), for callers whose config arrives from somewhere other than a
// file.
func LoadConfigBytes(data []byte, format string) (*Config, error) {
	var parser koanf.Parser
	switch format {
	case "yaml", "yml":
		parser = yaml.Parser()
	case "json":
		parser = json.Parser()
	default:
		return nil, newConfigurationError(fmt.Sprintf("unsupported config format %q", format))
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return nil, newConfigurationError(fmt.Sprintf("parsing config: %v", err))
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, newConfigurationError(fmt.Sprintf("decoding config: %v", err))
	}
	return &cfg, nil
}

// Validate checks the fields no client can operate without.
func (c *Config) Validate() error {
	if c.Host == "" {
		return newConfigurationError("host must be provided")
	}
	if c.APIToken == "" && (c.Username == "" || c.Password == "") {
		return newConfigurationError("either an API token or username/password must be provided")
	}
	return nil
}

// options translates the config into construction options, leaving unset
// fields to package defaults.
func (c *Config) options() []Option {
	var opts []Option

	if c.APIToken != "" {
		opts = append(opts, WithToken(c.APIToken))
	} else {
		opts = append(opts, WithLoginCredentials(c.Username, c.Password))
	}
	if c.MaxKeepAliveConnections > 0 || c.MaxConnections > 0 {
		keepAlive, total := c.MaxKeepAliveConnections, c.MaxConnections
		if keepAlive <= 0 {
			keepAlive = DefaultMaxKeepAliveConnections
		}
		if total <= 0 {
			total = DefaultMaxConnections
		}
		opts = append(opts, WithPoolLimits(keepAlive, total))
	}
	if c.MaxRetries > 0 {
		opts = append(opts, WithMaxRetries(c.MaxRetries))
	}
	if c.BackoffBase > 0 {
		opts = append(opts, WithInitialBackoff(c.BackoffBase))
	}
	if c.BackoffMax > 0 {
		opts = append(opts, WithMaxBackoff(c.BackoffMax))
	}
	if c.BackoffMultiplier > 0 {
		opts = append(opts, WithBackoffMultiplier(c.BackoffMultiplier))
	}
	if c.Timeout > 0 {
		opts = append(opts, WithTimeout(c.Timeout))
	}
	if c.CacheDisabled {
		opts = append(opts, WithoutCache())
	}
	return opts
}

// NewFromConfig builds a blocking client from a validated config. Extra
// options (logger, metrics) are applied after the config-derived ones.
func NewFromConfig(cfg *Config, extra ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return New(cfg.Host, append(cfg.options(), extra...)...)
}

// NewAsyncFromConfig builds an async client from a validated config.
func NewAsyncFromConfig(cfg *Config, extra ...Option) (*AsyncClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return NewAsync(cfg.Host, append(cfg.options(), extra...)...)
}
