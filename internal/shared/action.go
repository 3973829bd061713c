package shared

import "strconv"

// Action is the verb a permission grants on a module.
type Action string

// The closed set of permission actions.
const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Actions lists every valid action.
func Actions() []Action {
	return []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}
}

// ParseAction validates a raw action value.
func ParseAction(raw string) (Action, error) {
	switch Action(raw) {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete:
		return Action(raw), nil
	default:
		return "", &ValidationError{Field: "action", Reason: "unknown action " + strconv.Quote(raw)}
	}
}
