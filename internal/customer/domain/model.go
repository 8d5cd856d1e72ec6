package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Customer mirrors a gateway-side customer record. IDReference holds the
// identifier the gateway assigned; it is empty only while creation is in
// flight. The workflow treats the earliest-created active row as "the"
// customer for an account and never mutates it afterwards.
type Customer struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	AccountID   snowflake.ID `json:"account_id" gorm:"not null;index"`
	IsActive    bool         `json:"is_active" gorm:"not null;default:true"`
	IDReference string       `json:"id_reference" gorm:"type:varchar(50);not null;index"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time    `json:"updated_at" gorm:"not null"`
}

func (Customer) TableName() string { return "customers" }
