package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	Update(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	// FindByAccount returns the account's subscription row regardless of
	// status, or nil when none exists.
	FindByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (*Subscription, error)
	// FindByAccountForUpdate is FindByAccount with a row-level write lock,
	// for use inside a transaction.
	FindByAccountForUpdate(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (*Subscription, error)
	// DeletePending removes any pending row for the account. Used to roll
	// back the local placeholder after a failed gateway call.
	DeletePending(ctx context.Context, db *gorm.DB, accountID snowflake.ID) error
}

type Service interface {
	Subscribe(ctx context.Context, req SubscribeRequest) error
	Status(ctx context.Context, accountID snowflake.ID) (Subscription, error)
}

type SubscribeRequest struct {
	AccountID snowflake.ID
	UserID    snowflake.ID
	UserName  string
	UserEmail string

	PriceReference      string
	CardNumber          string
	CardExpirationMonth int
	CardExpirationYear  int
	CardCVC             string
}
