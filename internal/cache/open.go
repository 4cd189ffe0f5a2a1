package cache

import (
	"context"
	"fmt"

	"github.com/piwi3910/cutplan/internal/config"
)

// Open builds the cache selected by cfg.
func Open(ctx context.Context, cfg config.CacheConfig) (Cache, error) {
	switch cfg.Backend {
	case config.CacheNone, "":
		return NewNullCache(), nil
	case config.CacheMemory:
		return NewMemoryCache(cfg.MaxEntries, cfg.TTL), nil
	case config.CacheFile:
		c, err := NewFileCache(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.CacheRedis:
		c, err := NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
