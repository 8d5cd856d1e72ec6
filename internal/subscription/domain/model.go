package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type SubscriptionStatus string

const (
	// SubscriptionStatusPending is the local placeholder state: the row
	// exists before the gateway has confirmed anything.
	SubscriptionStatusPending    SubscriptionStatus = "pending"
	SubscriptionStatusSuccessful SubscriptionStatus = "successful"
	SubscriptionStatusFailed     SubscriptionStatus = "failed"
)

// Subscription is the single recurring-billing record for an account.
// The unique index on AccountID enforces the one-subscription-per-account
// invariant at write time, independent of the orchestrator's own check.
type Subscription struct {
	ID                   snowflake.ID       `json:"id" gorm:"primaryKey"`
	AccountID            snowflake.ID       `json:"account_id" gorm:"not null;uniqueIndex"`
	Status               SubscriptionStatus `json:"status" gorm:"type:varchar(50);not null"`
	PaymentGatewayStatus string             `json:"payment_gateway_status" gorm:"type:varchar(50)"`
	CurrentPeriodStart   *time.Time         `json:"current_period_start"`
	CurrentPeriodEnd     *time.Time         `json:"current_period_end"`
	IDReference          string             `json:"id_reference" gorm:"type:varchar(50)"`
	PriceReference       string             `json:"price_reference" gorm:"type:varchar(50);not null"`
	CreatedAt            time.Time          `json:"created_at" gorm:"not null"`
	UpdatedAt            time.Time          `json:"updated_at" gorm:"not null"`
}

func (Subscription) TableName() string { return "subscriptions" }

// PurchaseDate is the date the subscription row was first created.
func (s Subscription) PurchaseDate() time.Time {
	return s.CreatedAt.UTC().Truncate(24 * time.Hour)
}
