package database

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/dmail-project/dmail-backend/internal/config"
)

var RedisClient *redis.Client

// ConnectRedis connects to the configured Redis-compatible store and verifies
// the connection with a ping.
func ConnectRedis(cfg *config.DBConfig) error {
	opt, err := redis.ParseURL(cfg.Address)
	if err != nil {
		return err
	}

	opt.PoolSize = cfg.PoolMaxOpen
	opt.MinIdleConns = cfg.PoolMaxIdle
	opt.PoolTimeout = time.Duration(cfg.PoolTimeout) * time.Second
	opt.ConnMaxLifetime = time.Duration(cfg.PoolExpire) * time.Second
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	RedisClient = redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := RedisClient.Ping(ctx).Err(); err != nil {
		return err
	}

	logrus.WithField("address", cfg.Address).Info("connected to Redis")
	return nil
}

// DisconnectRedis closes the client pool.
func DisconnectRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logrus.WithError(err).Warn("error closing Redis connection")
		}
	}
}
