// Package scheduler re-runs batches over watched folders as new entries arrive.
package scheduler

import "time"

// Config defines the scheduler configuration.
type Config struct {
	// Debounce is how long a folder must stay quiet before it is filed.
	Debounce time.Duration `yaml:"debounce"`
	// Interval forces a sweep of every folder this often. Zero disables it.
	Interval time.Duration `yaml:"interval"`
	// Tick is how often settled folders are checked for.
	Tick time.Duration `yaml:"tick"`
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() *Config {
	return &Config{
		Debounce: 2 * time.Second,
		Interval: 0,
		Tick:     100 * time.Millisecond,
	}
}

func (c *Config) tick() time.Duration {
	if c.Tick > 0 {
		return c.Tick
	}
	return 100 * time.Millisecond
}
