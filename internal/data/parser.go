// internal/data/parser.go
package data

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrSensorIDRequired is returned when an ingest payload carries no sensorId.
var ErrSensorIDRequired = errors.New("sensorId required")

// IngestPayload is what a sensor pushes. Name, Zone, Plant and Type are
// only used when the sensor is unknown and gets auto-registered.
type IngestPayload struct {
	SensorID    string   `json:"sensorId"`
	Name        string   `json:"name,omitempty"`
	Zone        string   `json:"zone,omitempty"`
	Plant       string   `json:"plant,omitempty"`
	Type        string   `json:"type,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Moisture    *float64 `json:"moisture,omitempty"`
	Battery     *float64 `json:"battery,omitempty"`
	RSSI        *float64 `json:"rssi,omitempty"`
}

// Parse decodes and validates an ingest body. Any client supplied
// timestamp is ignored, the hub stamps readings itself.
func Parse(rawData []byte) (*IngestPayload, error) {
	p, err := Decode(rawData)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Decode only decodes the JSON body.
func Decode(rawData []byte) (*IngestPayload, error) {
	var p IngestPayload
	if err := json.Unmarshal(rawData, &p); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	p.SensorID = strings.TrimSpace(p.SensorID)
	return &p, nil
}

func (p *IngestPayload) Validate() error {
	if p.SensorID == "" {
		return ErrSensorIDRequired
	}
	return nil
}

// Reading returns the measurement part of the payload, stamped with ts.
func (p *IngestPayload) Reading(ts int64) Reading {
	return Reading{
		SensorID:    p.SensorID,
		Temperature: p.Temperature,
		Humidity:    p.Humidity,
		Moisture:    p.Moisture,
		Battery:     p.Battery,
		RSSI:        p.RSSI,
		TS:          ts,
	}
}

// Meta returns registration metadata with defaults filled in for the
// fields the sensor did not send.
func (p *IngestPayload) Meta() SensorMeta {
	m := SensorMeta{
		ID:    p.SensorID,
		Name:  p.Name,
		Zone:  p.Zone,
		Plant: p.Plant,
		Type:  p.Type,
	}
	if m.Name == "" {
		m.Name = p.SensorID
	}
	if m.Zone == "" {
		m.Zone = "Unknown"
	}
	if m.Plant == "" {
		m.Plant = "Unknown"
	}
	if m.Type == "" {
		m.Type = "soil"
	}
	return m
}
