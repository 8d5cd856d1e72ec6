package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Account is the tenancy boundary. Customers, payment methods and
// subscriptions all hang off exactly one account.
type Account struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Name      string       `json:"name" gorm:"type:varchar(100);not null"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null"`
}

func (Account) TableName() string { return "accounts" }

// User is an authenticated principal belonging to an account. Identity
// issuance lives outside this service; we only store the hash of the
// bearer token the external provider handed out.
type User struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	AccountID snowflake.ID `json:"account_id" gorm:"not null;index"`
	Email     string       `json:"email" gorm:"type:varchar(255);not null"`
	FirstName string       `json:"first_name" gorm:"type:varchar(100)"`
	LastName  string       `json:"last_name" gorm:"type:varchar(100)"`
	TokenHash string       `json:"-" gorm:"type:varchar(64);uniqueIndex;not null"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null"`
}

func (User) TableName() string { return "users" }

// Name is the display name attached to the gateway customer record.
func (u User) Name() string {
	return u.FirstName + " " + u.LastName
}
