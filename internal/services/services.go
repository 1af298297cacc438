package services

import (
	"roleadmin/internal/events"
	"roleadmin/internal/store"
)

// Services bundles the administrative services over one store.
type Services struct {
	Roles  *RoleService
	Users  *UserService
	Ledger *Ledger
	Access *Resolver
	Gate   *Gate
}

func New(st store.Store, emitter events.Emitter) *Services {
	return &Services{
		Roles:  NewRoleService(st, emitter),
		Users:  NewUserService(st, st, emitter),
		Ledger: NewLedger(st, st, emitter),
		Access: NewResolver(st, st),
		Gate:   NewGate(st, st),
	}
}
