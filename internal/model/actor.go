package model

// Action is something an actor may be allowed to do.
type Action string

// Actions.
const (
	ActionViewInventory     Action = "view_inventory"
	ActionManageItems       Action = "manage_items"
	ActionRequestAdjustment Action = "request_adjustment"
	ActionDecideRecord      Action = "decide_record"
	ActionManageServices    Action = "manage_services"
	ActionManageUsers       Action = "manage_users"
	ActionManageNotices     Action = "manage_notifications"
)

var capabilities = map[string][]Action{
	RoleAdmin: {
		ActionViewInventory, ActionManageItems, ActionRequestAdjustment,
		ActionDecideRecord, ActionManageServices, ActionManageUsers, ActionManageNotices,
	},
	RoleCoordinator: {
		ActionViewInventory, ActionManageItems, ActionRequestAdjustment, ActionManageServices,
	},
	RoleMonitor: {
		ActionViewInventory,
	},
}

// Actor is the caller of an operation, resolved once per request.
type Actor struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Block    string `json:"accessBlock"`
}

// Can reports whether the actor's role grants action a. Unknown roles get
// nothing.
func (a Actor) Can(action Action) bool {
	for _, c := range capabilities[a.Role] {
		if c == action {
			return true
		}
	}
	return false
}

// CanAccess reports whether the actor may work in inventory block b.
func (a Actor) CanAccess(block string) bool {
	if !ValidBlock(block) {
		return false
	}
	if a.Role == RoleAdmin {
		return true
	}
	return a.Block == AccessAll || a.Block == block
}

// Capabilities lists the actions granted to the actor.
func (a Actor) Capabilities() []Action {
	out := make([]Action, len(capabilities[a.Role]))
	copy(out, capabilities[a.Role])
	return out
}
