package prog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultMaxJobs is the size of the job table when the configuration does not
// set one.
const DefaultMaxJobs = 64

// Config keeps the settings read from the configuration file. Command-line
// flags take precedence over them.
type Config struct {
	// Size of the job table.
	MaxJobs int `yaml:"max_jobs"`
	// Report status changes of background jobs immediately, as -b.
	Notify bool `yaml:"notify"`
	// Only accept the POSIX grammar, as -posix.
	POSIX bool `yaml:"posix"`
	// Job control, as -m. When unset, job control is on in interactive mode.
	Monitor *bool `yaml:"monitor"`
	// Path of the history database.
	HistoryDB string `yaml:"history_db"`
	// Primary prompt, used when PS1 is not set.
	Prompt string `yaml:"prompt"`
}

// DefaultConfig returns the configuration used when there is no
// configuration file.
func DefaultConfig() *Config {
	return &Config{MaxJobs: DefaultMaxJobs}
}

// LoadConfig reads the configuration file at path. A missing file yields the
// default configuration unless mustExist is true. Unknown keys are errors.
func LoadConfig(path string, mustExist bool) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !mustExist {
			return cfg, nil
		}
		return nil, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.MaxJobs <= 0 {
		return nil, fmt.Errorf("%s: max_jobs must be positive, got %d", path, cfg.MaxJobs)
	}
	return cfg, nil
}
