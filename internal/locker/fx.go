package locker

import (
	"context"

	"github.com/billingworks/subsync/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("locker",
	fx.Provide(New),
)

func New(cfg config.Config, log *zap.Logger) (Locker, error) {
	if cfg.Redis.Addr == "" {
		log.Warn("no redis configured, using in-process account locks")
		return NewLocal(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return NewRedis(client), nil
}
