package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

type HTTPConfig struct {
	Addr string
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite". Sqlite is intended for local
	// development and tests only.
	Driver string
	DSN    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StripeConfig struct {
	// APIKey is handed to the gateway client at construction time. It is
	// never installed as a process-wide SDK default.
	APIKey        string
	WebhookSecret string
	BasicPriceID  string
	ProPriceID    string
}

type Config struct {
	HTTP     HTTPConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Stripe   StripeConfig
	LogLevel string
}

var Module = fx.Module("config",
	fx.Provide(Load),
)

func Load() (Config, error) {
	// Best effort: a missing .env simply means env vars are set elsewhere.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SUBSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("log.level", "info")

	cfg := Config{
		HTTP: HTTPConfig{
			Addr: v.GetString("http.addr"),
		},
		Database: DatabaseConfig{
			Driver: strings.ToLower(strings.TrimSpace(v.GetString("database.driver"))),
			DSN:    v.GetString("database.dsn"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Stripe: StripeConfig{
			APIKey:        v.GetString("stripe.api_key"),
			WebhookSecret: v.GetString("stripe.webhook_secret"),
			BasicPriceID:  v.GetString("stripe.basic_price_id"),
			ProPriceID:    v.GetString("stripe.pro_price_id"),
		},
		LogLevel: v.GetString("log.level"),
	}

	return cfg, nil
}
