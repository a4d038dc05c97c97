package main

import (
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/animekun-backend/internal/config"
	"github.com/edumarques81/animekun-backend/internal/infra/store"
)

// openStores opens the durable favorites store and the session response
// cache. Either falls back to memory when its database cannot be opened.
func openStores(cfg config.StorageConfig) (favorites, cache store.KV, closeAll func()) {
	var closers []func() error

	favDB := store.NewDB(store.Options{Path: cfg.FavoritesPath})
	if err := favDB.Open(); err != nil {
		log.Warn().Err(err).Str("path", cfg.FavoritesPath).Msg("Favorites database unavailable, favorites will not persist")
		favorites = store.NewMemory(0)
	} else {
		favorites = favDB
		closers = append(closers, favDB.Close)
	}

	if cfg.CachePath == "" {
		cache = store.NewMemory(cfg.CacheQuotaBytes)
	} else {
		cacheDB := store.NewDB(store.Options{
			Path:       cfg.CachePath,
			Session:    true,
			QuotaBytes: cfg.CacheQuotaBytes,
		})
		if err := cacheDB.Open(); err != nil {
			log.Warn().Err(err).Str("path", cfg.CachePath).Msg("Cache database unavailable, caching in memory")
			cache = store.NewMemory(cfg.CacheQuotaBytes)
		} else {
			cache = cacheDB
			closers = append(closers, cacheDB.Close)
		}
	}

	return favorites, cache, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn().Err(err).Msg("Failed to close store")
			}
		}
	}
}
