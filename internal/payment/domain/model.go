package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type PaymentMethodType string

const (
	PaymentMethodTypeCard PaymentMethodType = "card"
	PaymentMethodTypeBank PaymentMethodType = "bank"
)

// PaymentMethod is the local mirror of a tokenized instrument attached to
// the account's gateway customer. An account holds at most one active row;
// there is no replace path, so once one exists new card data is ignored.
type PaymentMethod struct {
	ID          snowflake.ID      `json:"id" gorm:"primaryKey"`
	AccountID   snowflake.ID      `json:"account_id" gorm:"not null;index"`
	IsActive    bool              `json:"is_active" gorm:"not null;default:true"`
	Type        PaymentMethodType `json:"type" gorm:"type:varchar(50);not null"`
	IDReference string            `json:"id_reference" gorm:"type:varchar(50);not null"`
	CreatedAt   time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time         `json:"updated_at" gorm:"not null"`
}

func (PaymentMethod) TableName() string { return "payment_methods" }
