package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Names of viewer -> server actions.
const (
	ActionAckAlert       = "ack_alert"
	ActionToggleSchedule = "toggle_schedule"
	ActionTriggerWater   = "trigger_water"
)

var ErrUnknownAction = errors.New("unknown action")

// Action is a parsed viewer message.
type Action struct {
	Name   string
	ID     string // ack_alert, toggle_schedule
	ZoneID string // trigger_water
}

type actionFields struct {
	ID     string `json:"id"`
	ZoneID string `json:"zoneId"`
}

type inbound struct {
	Action string `json:"action"`
	Type   string `json:"type"`
	actionFields
	Data *actionFields `json:"data"`
}

// ParseAction accepts {"action":"ack_alert","id":"..."}; "type" may stand
// in for "action", and the fields may also sit under "data".
func ParseAction(raw []byte) (Action, error) {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Action{}, fmt.Errorf("decode action: %w", err)
	}

	a := Action{Name: msg.Action, ID: msg.ID, ZoneID: msg.ZoneID}
	if a.Name == "" {
		a.Name = msg.Type
	}
	if msg.Data != nil {
		if a.ID == "" {
			a.ID = msg.Data.ID
		}
		if a.ZoneID == "" {
			a.ZoneID = msg.Data.ZoneID
		}
	}

	switch a.Name {
	case ActionAckAlert, ActionToggleSchedule:
		if a.ID == "" {
			return Action{}, fmt.Errorf("%s: missing id", a.Name)
		}
	case ActionTriggerWater:
		if a.ZoneID == "" {
			return Action{}, fmt.Errorf("%s: missing zoneId", a.Name)
		}
	default:
		return Action{}, fmt.Errorf("%w %q", ErrUnknownAction, a.Name)
	}
	return a, nil
}
