package main

import (
	"fmt"
	"log"

	"lexconsul-backend/internal/config"
	"lexconsul-backend/internal/database"
	"lexconsul-backend/internal/repository"
)

// openKV connects the configured STORE_BACKEND. The returned KV owns its
// connection and releases it on Close.
func openKV(cfg *config.Config, redisClients *database.RedisClients) (repository.KV, error) {
	switch cfg.StoreBackend {
	case "memory":
		log.Println("  ! memory store: data is lost on restart")
		return repository.NewMemoryKV(), nil

	case "sqlite":
		db, err := database.NewSQLiteDB(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		kv, err := repository.NewSQLiteKV(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return kv, nil

	case "postgres":
		pool, err := database.NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		log.Println("✓ Database migrations applied")
		return repository.NewPostgresKV(pool), nil

	case "redis":
		if redisClients == nil || redisClients.Store == nil {
			return nil, fmt.Errorf("redis backend selected without REDIS_URL")
		}
		return repository.NewRedisKV(redisClients.Store), nil
	}
	return nil, fmt.Errorf("unsupported backend %q", cfg.StoreBackend)
}
