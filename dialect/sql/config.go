package sql

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/syssam/sqlcraft/dialect"
)

// Config describes a dialect in YAML:
//
//	dialect: postgres
//	version: "14.2"
//	disable: [MERGE, "RETURNING"]
type Config struct {
	// Dialect is the family name. Aliases such as "postgresql" are accepted.
	Dialect string `yaml:"dialect"`
	// Version is the server version. Empty selects the latest known version.
	Version string `yaml:"version,omitempty"`
	// Disable lists features to turn off, by their SQL names.
	Disable FeatureList `yaml:"disable,omitempty"`
}

// FeatureList is a YAML type that can be either a single feature name
// or a list of feature names.
type FeatureList []Feature

// UnmarshalYAML implements yaml.Unmarshaler for FeatureList.
func (l *FeatureList) UnmarshalYAML(node *yaml.Node) error {
	var names []string
	switch node.Kind {
	case yaml.ScalarNode:
		names = []string{node.Value}
	case yaml.SequenceNode:
		if err := node.Decode(&names); err != nil {
			return err
		}
	default:
		return fmt.Errorf("expected feature name or list, got %v", node.Kind)
	}
	fs := make(FeatureList, 0, len(names))
	for _, name := range names {
		f, err := ParseFeature(name)
		if err != nil {
			return err
		}
		fs = append(fs, f)
	}
	*l = fs
	return nil
}

// MarshalYAML implements yaml.Marshaler for FeatureList.
func (l FeatureList) MarshalYAML() (any, error) {
	names := make([]string, len(l))
	for i, f := range l {
		names[i] = f.String()
	}
	return names, nil
}

// ParseConfig decodes a dialect configuration.
func ParseConfig(r io.Reader) (*Config, error) {
	var cfg Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("dialect/sql: empty dialect config")
		}
		return nil, fmt.Errorf("dialect/sql: parse dialect config: %w", err)
	}
	return &cfg, nil
}

// LoadConfig reads a dialect configuration file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: read dialect config: %w", err)
	}
	defer f.Close()
	return ParseConfig(f)
}

// Dialect returns the dialect the configuration describes.
func (c *Config) Dialect() (*Dialect, error) {
	var v dialect.Version
	if c.Version != "" {
		var err error
		if v, err = dialect.ParseVersion(c.Version); err != nil {
			return nil, err
		}
	}
	d, err := New(c.Dialect, v)
	if err != nil {
		return nil, err
	}
	if len(c.Disable) > 0 {
		d = d.Without(c.Disable...)
	}
	return d, nil
}
