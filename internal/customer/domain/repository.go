package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	// FindActiveByAccount returns the earliest-created active customer for
	// the account, or nil when none exists.
	FindActiveByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (*Customer, error)
	FindByReference(ctx context.Context, db *gorm.DB, reference string) (*Customer, error)
}
