// internal/alerting/alerter.go
package alerting

import (
	"github.com/rs/zerolog"

	"sensor-hub/internal/data"
	"sensor-hub/internal/logger"
	"sensor-hub/internal/metrics"
)

// Recorder keeps the alert log.
type Recorder interface {
	RecordAlerts(alerts []data.Alert) bool
}

// Broadcaster pushes an event to connected viewers.
type Broadcaster interface {
	Broadcast(event string, payload interface{})
}

type Alerter struct {
	store Recorder
	hub   Broadcaster
	log   zerolog.Logger
}

func NewAlerter(store Recorder, hub Broadcaster) *Alerter {
	return &Alerter{store: store, hub: hub, log: logger.WithComponent("alerting")}
}

// ProcessAlerts records alerts and, if any were added, announces them as
// one new_alerts event.
func (a *Alerter) ProcessAlerts(alerts []data.Alert) int {
	if !a.store.RecordAlerts(alerts) {
		return 0
	}

	for _, alert := range alerts {
		metrics.AlertsGeneratedTotal.WithLabelValues(string(alert.Type)).Inc()
	}
	a.log.Info().
		Int("count", len(alerts)).
		Str("sensor_id", alerts[0].SensorID).
		Msg("alerts raised")

	a.hub.Broadcast(data.EventNewAlerts, alerts)
	return len(alerts)
}
