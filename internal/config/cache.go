package config

import (
	"os"
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache placed on the public
// catalog endpoints.  When Enabled is false or no Redis client is
// available, caching is disabled.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables; methods are upper-cased.
func LoadCacheConfig() CacheConfig {
	return loadCache(os.LookupEnv)
}

func loadCache(lookup lookupFunc) CacheConfig {
	e := env{lookup: lookup}
	return CacheConfig{
		Enabled:      e.boolean("CACHE_ENABLED", true),
		Methods:      parseMethods(e.str("CACHE_METHODS", "GET")),
		TTL:          e.dur("CACHE_TTL", 30*time.Second),
		Prefix:       e.str("CACHE_PREFIX", "cache"),
		MaxBodyBytes: e.integer("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
