package internal

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sensiblebit/acmefacts/internal/certstore"
)

// ConfigEnv names the environment variable that selects the config file.
// It takes precedence over the --config flag.
const ConfigEnv = "ACMEFACTS_CONFIG"

// DefaultFactName is the fact the host configuration system sees.
const DefaultFactName = "acme_certs"

// Config is the YAML configuration file. Every key is optional; flags set
// on the command line override it.
type Config struct {
	Directory    string `yaml:"directory"`
	FactName     string `yaml:"fact_name"`
	MissingCN    string `yaml:"missing_cn"`
	Format       string `yaml:"format"`
	LogLevel     string `yaml:"log_level"`
	TrustStore   string `yaml:"trust_store"`
	CustomRoots  string `yaml:"custom_roots,omitempty"`
	ExpiryWindow string `yaml:"expiry_window"`
	Database     string `yaml:"database,omitempty"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Directory:    certstore.DefaultDir,
		FactName:     DefaultFactName,
		MissingCN:    string(certstore.MissingCNError),
		Format:       "json",
		LogLevel:     "info",
		TrustStore:   "mozilla",
		ExpiryWindow: "30d",
	}
}

// ConfigPath resolves which config file to load: the ACMEFACTS_CONFIG
// environment variable, then flagPath. Empty means no file.
func ConfigPath(flagPath string) string {
	if env, ok := os.LookupEnv(ConfigEnv); ok && env != "" {
		return env
	}
	return flagPath
}

// LoadConfig reads a YAML config file on top of DefaultConfig. Unknown keys
// are rejected so typos don't go unnoticed.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes YAML config data on top of DefaultConfig and validates
// the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated values and durations.
func (c Config) Validate() error {
	if c.Directory == "" {
		return errors.New("directory must not be empty")
	}
	if c.FactName == "" {
		return errors.New("fact_name must not be empty")
	}
	if _, err := certstore.ParseMissingCNPolicy(c.MissingCN); err != nil {
		return err
	}
	switch c.Format {
	case "json", "yaml":
	default:
		return fmt.Errorf("unsupported format %q (use json or yaml)", c.Format)
	}
	switch c.TrustStore {
	case "mozilla", "system":
	case "custom":
		if c.CustomRoots == "" {
			return errors.New("trust_store custom requires custom_roots")
		}
	default:
		return fmt.Errorf("unknown trust_store %q (use mozilla, system or custom)", c.TrustStore)
	}
	if _, err := ParseDuration(c.ExpiryWindow); err != nil {
		return fmt.Errorf("invalid expiry_window: %w", err)
	}
	return nil
}

// MissingCNPolicy returns the validated missing-CN policy.
func (c Config) MissingCNPolicy() certstore.MissingCNPolicy {
	p, err := certstore.ParseMissingCNPolicy(c.MissingCN)
	if err != nil {
		return certstore.MissingCNError
	}
	return p
}

// Expiry returns the parsed expiry window, zero when unset or invalid.
func (c Config) Expiry() time.Duration {
	d, err := ParseDuration(c.ExpiryWindow)
	if err != nil {
		return 0
	}
	return d
}

// ParseDuration extends time.ParseDuration to support a "d" suffix for days.
// The empty string is zero.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	if trimmed, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, fmt.Errorf("invalid day duration %q: %w", s, err)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
