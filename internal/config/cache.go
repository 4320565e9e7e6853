package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware and the
// read-through cache around category lookups.  When Enabled is false or no
// Redis client is configured, caching is disabled.  KeyStrategy determines
// which parts of the request contribute to the cache key.
type CacheConfig struct {
	Enabled      bool          `env:"ENABLED" envDefault:"true"`
	MethodList   []string      `env:"METHODS" envDefault:"GET" envSeparator:","`
	TTL          time.Duration `env:"TTL" envDefault:"30s"`
	CategoryTTL  time.Duration `env:"CATEGORY_TTL" envDefault:"10m"`
	KeyStrategy  string        `env:"KEY_STRATEGY" envDefault:"route_query"`
	Prefix       string        `env:"PREFIX" envDefault:"cache"`
	MaxBodyBytes int           `env:"MAX_BODY_BYTES" envDefault:"1048576"`

	Methods map[string]bool
}

// normalize upper-cases the method list into a lookup set.
func (c *CacheConfig) normalize() {
	c.Methods = map[string]bool{}
	for _, p := range c.MethodList {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			c.Methods[p] = true
		}
	}
	if c.TTL <= 0 {
		c.TTL = time.Second
	}
}
