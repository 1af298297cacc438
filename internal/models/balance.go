package models

import (
	"fmt"
	"time"
)

type RefillUnit string

const (
	RefillSeconds RefillUnit = "seconds"
	RefillMinutes RefillUnit = "minutes"
	RefillHours   RefillUnit = "hours"
	RefillDays    RefillUnit = "days"
	RefillWeeks   RefillUnit = "weeks"
	RefillMonths  RefillUnit = "months"
)

const DefaultRefillIntervalValue = 30

// IsValidRefillUnit reports whether u is one of the supported interval units.
func IsValidRefillUnit(u RefillUnit) bool {
	switch u {
	case RefillSeconds, RefillMinutes, RefillHours, RefillDays, RefillWeeks, RefillMonths:
		return true
	}
	return false
}

// Balance holds the credits of one user plus its auto-refill policy.
type Balance struct {
	Base
	UserID              string     `gorm:"type:uuid;uniqueIndex;not null" json:"userId"`
	TokenCredits        float64    `gorm:"not null;default:0" json:"tokenCredits"`
	AutoRefillEnabled   bool       `gorm:"not null;default:false" json:"autoRefillEnabled"`
	RefillIntervalValue int        `gorm:"not null;default:30" json:"refillIntervalValue"`
	RefillIntervalUnit  RefillUnit `gorm:"type:varchar(16);not null;default:days" json:"refillIntervalUnit"`
	LastRefill          time.Time  `json:"lastRefill"`
	RefillAmount        float64    `gorm:"not null;default:0" json:"refillAmount"`
}

// NewBalance returns a zero balance with the default refill policy.
func NewBalance(userID string, now time.Time) *Balance {
	return &Balance{
		UserID:              userID,
		RefillIntervalValue: DefaultRefillIntervalValue,
		RefillIntervalUnit:  RefillDays,
		LastRefill:          now,
	}
}

// NextRefill returns when the balance is next eligible for a refill.
func (b *Balance) NextRefill() (time.Time, error) {
	n := b.RefillIntervalValue
	if n < 1 {
		return time.Time{}, fmt.Errorf("refill interval must be positive, got %d", n)
	}
	last := b.LastRefill
	switch b.RefillIntervalUnit {
	case RefillSeconds:
		return last.Add(time.Duration(n) * time.Second), nil
	case RefillMinutes:
		return last.Add(time.Duration(n) * time.Minute), nil
	case RefillHours:
		return last.Add(time.Duration(n) * time.Hour), nil
	case RefillDays:
		return last.AddDate(0, 0, n), nil
	case RefillWeeks:
		return last.AddDate(0, 0, 7*n), nil
	case RefillMonths:
		return last.AddDate(0, n, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unknown refill unit %q", b.RefillIntervalUnit)
	}
}

// RefillDue reports whether an auto refill should be applied at now.
func (b *Balance) RefillDue(now time.Time) bool {
	if !b.AutoRefillEnabled || b.RefillAmount <= 0 {
		return false
	}
	next, err := b.NextRefill()
	if err != nil {
		return false
	}
	return !next.After(now)
}

// RefillPolicy is the administrator-supplied auto refill configuration.
type RefillPolicy struct {
	Enabled       bool
	IntervalValue int
	IntervalUnit  RefillUnit
	Amount        float64
}
