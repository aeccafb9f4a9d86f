package app

import (
	"context"
	"errors"

	"auth-portal/internal/config"
	"auth-portal/internal/db"
	"auth-portal/internal/logger"
	"auth-portal/internal/redis"
	"auth-portal/internal/session"
)

type Infra struct {
	DB       *db.DB
	Redis    *redis.Client
	Sessions session.Store
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	database, err := db.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	if err := database.Migrate(ctx); err != nil {
		_ = database.Close()
		return nil, err
	}

	logger.Info("database ready", nil)

	infra := &Infra{DB: database}

	switch cfg.SessionBackend {
	case config.SessionBackendMemory:
		infra.Sessions = session.NewMemoryStore()
		logger.Warn("using in-memory session store", nil)
	default:
		redisClient, err := redis.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			_ = database.Close()
			return nil, err
		}
		infra.Redis = redisClient
		infra.Sessions = session.NewRedisStore(redisClient.Client)
		logger.Info("redis ready", nil)
	}

	return infra, nil
}

// Close releases the connections opened by setupInfra.
func (i *Infra) Close() error {
	var errs []error
	if i.Redis != nil {
		errs = append(errs, i.Redis.Close())
	}
	if i.DB != nil {
		errs = append(errs, i.DB.Close())
	}
	return errors.Join(errs...)
}
