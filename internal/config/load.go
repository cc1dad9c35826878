package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrMissing is returned alongside a defaulted Config when the file does not exist.
var ErrMissing = errors.New("config file not found")

// Load reads path. A missing file yields a defaulted config together with ErrMissing
// so callers can decide whether running on defaults is acceptable.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		var cfg Config
		cfg.Defaults()
		if errors.Is(err, fs.ErrNotExist) {
			return &cfg, fmt.Errorf("%w: %s", ErrMissing, path)
		}
		return &cfg, err
	}
	defer f.Close()
	return FromReader(f)
}

func FromReader(r io.Reader) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
