// Package config loads tix.yaml, the optional per-directory configuration of
// the tix command.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/timeindex"
	"github.com/roach88/timeindex/internal/cueschema"
)

// DefaultFile is looked up in the working directory when no --config is
// given.
const DefaultFile = "tix.yaml"

// Config is the resolved configuration. Zero fields mean "not set".
type Config struct {
	// Path is the log file.
	Path string `yaml:"path"`

	// Schema is a CUE file describing values. Without it values are
	// arbitrary JSON.
	Schema string `yaml:"schema"`

	// Definition selects the definition inside Schema.
	Definition string `yaml:"definition"`

	Policy     timeindex.Policy `yaml:"policy"`
	CacheBound int              `yaml:"cache_bound"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Definition: cueschema.DefaultDefinition,
		Policy:     timeindex.NearestPrev,
	}
}

// Load reads the YAML file at path. Unknown fields are rejected. Relative
// path and schema entries are resolved against the file's directory.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	dir := filepath.Dir(path)
	cfg.Path = resolve(dir, cfg.Path)
	cfg.Schema = resolve(dir, cfg.Schema)
	return cfg, nil
}

// LoadOptional is Load, except that a missing file yields Default().
func LoadOptional(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Decode parses YAML from r on top of Default() and validates the result.
func Decode(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c Config) Validate() error {
	if !c.Policy.Valid() {
		return fmt.Errorf("invalid config: policy %q must be one of %v", c.Policy, timeindex.Policies)
	}
	if c.CacheBound < 0 {
		return fmt.Errorf("invalid config: cache_bound must not be negative, got %d", c.CacheBound)
	}
	return nil
}

// Options converts the store settings into timeindex options.
func (c Config) Options() []timeindex.Option {
	return []timeindex.Option{
		timeindex.WithPolicy(c.Policy),
		timeindex.WithCacheBound(c.CacheBound),
	}
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
