// internal/data/models.go
package data

// SensorMeta is the static description of a sensor. It is set when the
// sensor is first seen and never changes afterwards.
type SensorMeta struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Zone  string `json:"zone"`
	Plant string `json:"plant"`
	Type  string `json:"type"`
}

// Sensor pairs the metadata with the most recent reading (nil until the
// first reading arrives).
type Sensor struct {
	Meta          SensorMeta `json:"meta"`
	LatestReading *Reading   `json:"latestReading"`
}

// DisplayName returns the sensor name, falling back to the id.
func (s SensorMeta) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// Reading is one measurement tuple. Measurements are optional: a sensor
// that has no moisture sensor simply leaves Moisture nil.
type Reading struct {
	SensorID    string   `json:"sensorId"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Moisture    *float64 `json:"moisture,omitempty"`
	Battery     *float64 `json:"battery,omitempty"`
	RSSI        *float64 `json:"rssi,omitempty"`
	TS          int64    `json:"ts"` // epoch ms, assigned by the hub
}

// AlertType is the severity of an alert.
type AlertType string

const (
	AlertWarning  AlertType = "warning"
	AlertCritical AlertType = "critical"
)

// Alert - derived from a reading that crossed a threshold
type Alert struct {
	ID       string    `json:"id"`
	Type     AlertType `json:"type"`
	SensorID string    `json:"sensorId"`
	Message  string    `json:"message"`
	TS       int64     `json:"ts"`
}

// Schedule is a watering window for a zone.
type Schedule struct {
	ID       string   `json:"id"`
	ZoneID   string   `json:"zoneId"`
	Time     string   `json:"time"`     // "HH:MM"
	Days     []string `json:"days"`     // e.g. ["mon","wed","fri"]
	Duration int      `json:"duration"` // minutes
	Enabled  bool     `json:"enabled"`
}

// SchedulePatch carries the fields of a partial schedule update. Nil
// fields are left untouched.
type SchedulePatch struct {
	ZoneID   *string   `json:"zoneId,omitempty"`
	Time     *string   `json:"time,omitempty"`
	Days     *[]string `json:"days,omitempty"`
	Duration *int      `json:"duration,omitempty"`
	Enabled  *bool     `json:"enabled,omitempty"`
}

// Apply merges the set fields of p into s.
func (p SchedulePatch) Apply(s *Schedule) {
	if p.ZoneID != nil {
		s.ZoneID = *p.ZoneID
	}
	if p.Time != nil {
		s.Time = *p.Time
	}
	if p.Days != nil {
		s.Days = append([]string(nil), (*p.Days)...)
	}
	if p.Duration != nil {
		s.Duration = *p.Duration
	}
	if p.Enabled != nil {
		s.Enabled = *p.Enabled
	}
}

// Event is the envelope of every message pushed to viewers.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
	TS    int64       `json:"ts"`
}

// Names of server -> viewer events.
const (
	EventSnapshot          = "snapshot"
	EventSensorUpdate      = "sensor_update"
	EventNewAlerts         = "new_alerts"
	EventAlertsUpdated     = "alerts_updated"
	EventSchedulesUpdated  = "schedules_updated"
	EventWateringTriggered = "watering_triggered"
)

// Snapshot is sent to a viewer right after it connects.
type Snapshot struct {
	Sensors   []Sensor   `json:"sensors"`
	Alerts    []Alert    `json:"alerts"`
	Schedules []Schedule `json:"schedules"`
}

// SensorUpdate is the payload of a sensor_update event.
type SensorUpdate struct {
	Sensor  Sensor  `json:"sensor"`
	Reading Reading `json:"reading"`
}

// WateringTriggered is the payload of a watering_triggered event.
type WateringTriggered struct {
	ZoneID string `json:"zoneId"`
	TS     int64  `json:"ts"`
}

// Float returns a pointer to v. Handy for building readings.
func Float(v float64) *float64 {
	return &v
}
