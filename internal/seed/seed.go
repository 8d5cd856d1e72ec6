package seed

import (
	"context"
	"fmt"
	"time"

	accountdomain "github.com/billingworks/subsync/internal/account/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Run creates a development account and user and prints the bearer token.
// The token itself is shown once; only its hash is stored.
func Run(ctx context.Context, db *gorm.DB, genID *snowflake.Node, log *zap.Logger) error {
	token := uuid.NewString()
	now := time.Now().UTC()

	account := accountdomain.Account{
		ID:        genID.Generate(),
		Name:      "Development account",
		CreatedAt: now,
		UpdatedAt: now,
	}
	user := accountdomain.User{
		ID:        genID.Generate(),
		AccountID: account.ID,
		Email:     "dev@example.com",
		FirstName: "Dev",
		LastName:  "User",
		TokenHash: accountdomain.HashToken(token),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&account).Error; err != nil {
			return err
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return err
	}

	log.Info("development data seeded",
		zap.String("account_id", account.ID.String()),
		zap.String("user_id", user.ID.String()))
	fmt.Printf("account: %s\nuser: %s\nbearer token: %s\n", account.ID, user.ID, token)
	return nil
}
