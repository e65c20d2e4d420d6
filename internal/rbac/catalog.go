package rbac

import "fmt"

// Entity names a record type managed through the console.
type Entity string

// Action names a permission verb over an entity.
type Action string

const (
	EntityClient        Entity = "client"
	EntityRequestType   Entity = "requesttype"
	EntityClientRequest Entity = "clientrequest"
)

const (
	ActionView   Action = "view"
	ActionAdd    Action = "add"
	ActionChange Action = "change"
	ActionDelete Action = "delete"
)

// LimitedGroupName is the natural key of the restricted group.
const LimitedGroupName = "LimitedUsers"

// AdminGroupName is the natural key of the seeded full-grant group. It is
// a staff role, not a superuser: members still go through grant checks.
const AdminGroupName = "Administrators"

var entities = []Entity{EntityClient, EntityRequestType, EntityClientRequest}

// grantableActions is the single source of truth for what a restricted
// role may hold. Delete is absent for every entity.
var grantableActions = map[Entity][]Action{
	EntityClient:        {ActionView, ActionAdd, ActionChange},
	EntityRequestType:   {ActionView, ActionAdd, ActionChange},
	EntityClientRequest: {ActionView, ActionAdd, ActionChange},
}

// Entities lists the console entities in catalog order.
func Entities() []Entity {
	out := make([]Entity, len(entities))
	copy(out, entities)
	return out
}

// GrantableActions returns the actions a restricted role may hold on the
// given entity. Unknown entities yield nil.
func GrantableActions(entity Entity) []Action {
	actions, ok := grantableActions[entity]
	if !ok {
		return nil
	}
	out := make([]Action, len(actions))
	copy(out, actions)
	return out
}

// Grantable reports whether (entity, action) may be granted to a
// restricted role.
func Grantable(entity Entity, action Action) bool {
	for _, a := range grantableActions[entity] {
		if a == action {
			return true
		}
	}
	return false
}

// Codename builds the permission codename for an (action, entity) pair,
// e.g. "view_client".
func Codename(action Action, entity Entity) string {
	return fmt.Sprintf("%s_%s", action, entity)
}
