package repository

import (
	"context"
	"errors"

	"github.com/billingworks/subsync/internal/payment/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, paymentMethod *domain.PaymentMethod) error {
	return db.WithContext(ctx).Create(paymentMethod).Error
}

func (r *repo) FindActiveByAccount(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (*domain.PaymentMethod, error) {
	var pm domain.PaymentMethod
	if err := db.WithContext(ctx).
		Where("account_id = ? AND is_active = ?", accountID, true).
		Order("created_at ASC").
		First(&pm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pm, nil
}
