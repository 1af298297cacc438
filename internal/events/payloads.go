package events

import "time"

type RoleEvent struct {
	Name    string
	ActorID string
	At      time.Time
}

type UserRoleEvent struct {
	UserID  string
	OldRole string
	NewRole string
	ActorID string
	At      time.Time
}

type BalanceEvent struct {
	UserID  string
	Context string
	Old     float64
	New     float64
	Delta   float64
	ActorID string
	At      time.Time
}
