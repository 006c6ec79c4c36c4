package grove

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds the container settings that can live in a configuration file.
// The library never reads files itself: decode the bytes with
// [ParseConfigYAML] or [ParseConfigTOML] and pass the result to [WithConfig].
//
//	validate_on_build: true
//	lifetimes:
//	  "*app.Session": scoped
type Config struct {
	// ValidateOnBuild walks the constructor graph during Build.
	ValidateOnBuild bool `yaml:"validate_on_build" toml:"validate_on_build"`

	// ValidateScopes rejects scoped services resolved from the root scope.
	ValidateScopes bool `yaml:"validate_scopes" toml:"validate_scopes"`

	// EagerSingletons constructs every singleton during Build.
	EagerSingletons bool `yaml:"eager_singletons" toml:"eager_singletons"`

	// Lifetimes overrides the lifetime of registrations, keyed by
	// [Key.String]. Instance registrations are left alone.
	Lifetimes map[string]string `yaml:"lifetimes" toml:"lifetimes"`
}

// Validate checks that every lifetime override names a known lifetime.
func (c Config) Validate() error {
	for key, name := range c.Lifetimes {
		if _, err := ParseLifetime(name); err != nil {
			return fmt.Errorf("lifetime override for %s: %w", key, err)
		}
	}
	return nil
}

// ParseConfigYAML decodes and validates a YAML [Config]. Unknown fields are
// rejected.
func ParseConfigYAML(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if len(bytes.TrimSpace(data)) == 0 {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("decoding yaml config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseConfigTOML decodes and validates a TOML [Config]. Unknown keys are
// rejected.
func ParseConfigTOML(data []byte) (Config, error) {
	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("decoding toml config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("decoding toml config: unknown keys %v", undecoded)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
