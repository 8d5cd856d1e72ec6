package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, paymentMethod *PaymentMethod) error
	// FindActiveByAccount returns the earliest-created active payment method
	// for the account, or nil when none exists.
	FindActiveByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (*PaymentMethod, error)
}
