// Package scheduler runs batches of build jobs on a bounded worker pool.
package scheduler

// Config defines the worker pool limits.
type Config struct {
	// GlobalMax is the maximum number of concurrent jobs across all kinds.
	GlobalMax int `yaml:"global_max"`
	// ByKind defines per-kind concurrency limits.
	ByKind map[string]int `yaml:"by_kind,omitempty"`
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() *Config {
	return &Config{
		GlobalMax: 4,
		ByKind: map[string]int{
			"hcl": 2,
		},
	}
}

// KindLimit returns the concurrency limit for a job kind. Kinds without an
// explicit limit are bounded by GlobalMax only.
func (c *Config) KindLimit(kind string) int {
	if limit, ok := c.ByKind[kind]; ok && limit > 0 {
		return limit
	}
	return c.GlobalMax
}
