package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base contains common columns for all tables
type Base struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (base *Base) BeforeCreate(tx *gorm.DB) error {
	base.EnsureID()
	return nil
}

// EnsureID assigns a fresh UUID when none is set. Stores that bypass gorm call it directly.
func (base *Base) EnsureID() {
	if base.ID == "" {
		base.ID = uuid.New().String()
	}
}

// Role names the system relies on.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// Transaction contexts
const (
	ContextBalanceSet    = "admin_balance_set"
	ContextBalanceAdjust = "admin_balance_adjust"
	ContextAutoRefill    = "auto_refill"
)

const TokenTypeCredits = "credits"
