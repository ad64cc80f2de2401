// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package stress

import (
	"errors"
	"fmt"
	"os"
	"time"

	"code.hybscloud.com/msq"
	"github.com/goccy/go-yaml"
)

var (
	// ErrInvalidConfig reports a scenario that cannot run.
	ErrInvalidConfig = errors.New("stress: invalid config")

	// ErrUnbalanced reports a scenario whose pushes cannot be split
	// evenly across consumers. Blocking consumers would wait forever.
	ErrUnbalanced = errors.New("stress: pushes not divisible by consumers")
)

// Config describes one stress scenario.
type Config struct {
	Producers   int           `yaml:"producers"`
	Consumers   int           `yaml:"consumers"`
	Items       int           `yaml:"items"` // Per producer
	Reclamation string        `yaml:"reclamation"`
	Wait        string        `yaml:"wait"`
	Bounded     int           `yaml:"bounded"` // 0 selects the unbounded queue
	Rounds      int           `yaml:"rounds"`
	Timeout     time.Duration `yaml:"timeout"` // Per round
}

// DefaultConfig returns the 8 producer, 8 consumer scenario.
func DefaultConfig() *Config {
	return &Config{
		Producers:   8,
		Consumers:   8,
		Items:       100,
		Reclamation: msq.ReclaimEpoch.String(),
		Wait:        "spinyield",
		Rounds:      1,
		Timeout:     10 * time.Second,
	}
}

// Validate checks c and reports the first problem found.
func (c *Config) Validate() error {
	switch {
	case c.Producers < 1:
		return fmt.Errorf("%w: producers must be positive, got %d", ErrInvalidConfig, c.Producers)
	case c.Consumers < 1:
		return fmt.Errorf("%w: consumers must be positive, got %d", ErrInvalidConfig, c.Consumers)
	case c.Items < 1:
		return fmt.Errorf("%w: items must be positive, got %d", ErrInvalidConfig, c.Items)
	case c.Rounds < 1:
		return fmt.Errorf("%w: rounds must be positive, got %d", ErrInvalidConfig, c.Rounds)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidConfig, c.Timeout)
	case c.Bounded == 1 || c.Bounded < 0:
		return fmt.Errorf("%w: bounded capacity must be 0 or >= 2, got %d", ErrInvalidConfig, c.Bounded)
	}
	if total := c.Producers * c.Items; total%c.Consumers != 0 {
		return fmt.Errorf("%w: %d pushes over %d consumers", ErrUnbalanced, total, c.Consumers)
	}
	if _, err := msq.ParseReclamation(c.Reclamation); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := msq.ParseWaitStrategy(c.Wait); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// builder translates c into a queue builder. c must be valid.
func (c *Config) builder() *msq.Builder {
	r, _ := msq.ParseReclamation(c.Reclamation)
	w, _ := msq.ParseWaitStrategy(c.Wait)
	b := msq.New().Reclaim(r).Wait(w)
	if c.Bounded > 0 {
		b = b.Bounded(c.Bounded)
	}
	return b
}

// LoadConfig reads a YAML scenario file over the defaults. Unknown keys
// are rejected.
func LoadConfig(file string) (*Config, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("unable to open scenario file: %w", err)
	}
	defer f.Close()

	c := DefaultConfig()
	dec := yaml.NewDecoder(f, yaml.Strict())
	if err = dec.Decode(c); err != nil {
		return nil, fmt.Errorf("unable to parse scenario file %s: %w", file, err)
	}
	return c, nil
}
