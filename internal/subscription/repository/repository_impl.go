package repository

import (
	"context"
	"errors"

	"github.com/billingworks/subsync/internal/subscription/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, subscription *domain.Subscription) error {
	return db.WithContext(ctx).Create(subscription).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, subscription *domain.Subscription) error {
	return db.WithContext(ctx).Save(subscription).Error
}

func (r *repo) FindByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (*domain.Subscription, error) {
	var subscription domain.Subscription
	if err := db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		First(&subscription).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subscription, nil
}

func (r *repo) FindByAccountForUpdate(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (*domain.Subscription, error) {
	tx := db.WithContext(ctx)
	// Row locking is a postgres concern; sqlite serializes writers anyway.
	if db.Dialector.Name() == "postgres" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var subscription domain.Subscription
	if err := tx.
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		First(&subscription).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subscription, nil
}

func (r *repo) DeletePending(ctx context.Context, db *gorm.DB, accountID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("account_id = ? AND status = ?", accountID, domain.SubscriptionStatusPending).
		Delete(&domain.Subscription{}).Error
}
