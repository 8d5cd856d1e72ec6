package migration

import (
	"context"

	accountdomain "github.com/billingworks/subsync/internal/account/domain"
	"github.com/billingworks/subsync/internal/config"
	customerdomain "github.com/billingworks/subsync/internal/customer/domain"
	paymentdomain "github.com/billingworks/subsync/internal/payment/domain"
	subscriptiondomain "github.com/billingworks/subsync/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migration",
	fx.Invoke(Run),
)

// Run applies the schema. On postgres a session advisory lock serializes
// concurrent migrators (several replicas starting at once).
func Run(lc fx.Lifecycle, db *gorm.DB, cfg config.Config, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return migrate(ctx, db, cfg, log.Named("migration"))
		},
	})
}

func migrate(ctx context.Context, db *gorm.DB, cfg config.Config, log *zap.Logger) error {
	if cfg.Database.Driver == "postgres" {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		unlock, err := acquireAdvisoryLock(ctx, sqlDB)
		if err != nil {
			return err
		}
		defer func() {
			if err := unlock(context.Background()); err != nil {
				log.Warn("failed to release migration advisory lock", zap.Error(err))
			}
		}()
	}

	if err := db.WithContext(ctx).AutoMigrate(
		&accountdomain.Account{},
		&accountdomain.User{},
		&customerdomain.Customer{},
		&paymentdomain.PaymentMethod{},
		&subscriptiondomain.Subscription{},
	); err != nil {
		return err
	}

	log.Info("schema migrated")
	return nil
}
