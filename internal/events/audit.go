package events

import console "roleadmin/internal/utils/logger"

var audit = console.New("AUDIT")

// RegisterAuditLog writes one log line per administrative event on bus.
func RegisterAuditLog(bus *EventBus) {
	for _, name := range []string{RoleCreated, RoleUpdated, RoleDeleted} {
		event := name
		bus.On(event, func(data interface{}) {
			if e, ok := data.(RoleEvent); ok {
				audit.Info("%s name=%s actor=%s", event, e.Name, e.ActorID)
			}
		})
	}
	bus.On(UserRoleChanged, func(data interface{}) {
		if e, ok := data.(UserRoleEvent); ok {
			audit.Info("%s user=%s %s -> %s actor=%s", UserRoleChanged, e.UserID, e.OldRole, e.NewRole, e.ActorID)
		}
	})
	bus.On(BalanceChanged, func(data interface{}) {
		if e, ok := data.(BalanceEvent); ok {
			audit.Info("%s user=%s context=%s %.2f -> %.2f (delta %.2f) actor=%s",
				BalanceChanged, e.UserID, e.Context, e.Old, e.New, e.Delta, e.ActorID)
		}
	})
}
