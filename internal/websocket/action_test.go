package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Action
		wantErr bool
	}{
		{"ack flat", `{"action":"ack_alert","id":"a1"}`, Action{Name: ActionAckAlert, ID: "a1"}, false},
		{"toggle via type", `{"type":"toggle_schedule","id":"s1"}`, Action{Name: ActionToggleSchedule, ID: "s1"}, false},
		{"water nested", `{"action":"trigger_water","data":{"zoneId":"z2"}}`, Action{Name: ActionTriggerWater, ZoneID: "z2"}, false},
		{"missing id", `{"action":"ack_alert"}`, Action{}, true},
		{"missing zone", `{"action":"trigger_water","id":"x"}`, Action{}, true},
		{"unknown", `{"action":"delete_all"}`, Action{}, true},
		{"garbage", `]]`, Action{}, true},
		{"empty object", `{}`, Action{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAction([]byte(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAction_UnknownIsSentinel(t *testing.T) {
	_, err := ParseAction([]byte(`{"action":"nope"}`))
	assert.ErrorIs(t, err, ErrUnknownAction)
}
