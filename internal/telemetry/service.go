// Package telemetry is the single mutation path of the hub. HTTP ingest,
// MQTT, the simulation ticker and viewer actions all go through Service,
// which applies the change to the store and broadcasts the matching event
// while holding one lock, so viewers see events in the order the store
// applied them.
package telemetry

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"sensor-hub/internal/alerting"
	"sensor-hub/internal/anomaly"
	"sensor-hub/internal/data"
	"sensor-hub/internal/logger"
	"sensor-hub/internal/metrics"
	"sensor-hub/internal/storage"
	"sensor-hub/internal/websocket"
)

// SnapshotAlerts is how many alerts a viewer gets on connect and with
// every alerts_updated event.
const SnapshotAlerts = 20

// Ingest sources, used as a metrics label.
const (
	SourceHTTP       = "http"
	SourceMQTT       = "mqtt"
	SourceSimulation = "simulation"
)

// Result describes one applied reading.
type Result struct {
	Sensor  data.Sensor
	Reading data.Reading
	Alerts  int
	Created bool
}

type Service struct {
	mu       sync.Mutex
	lastTS   int64
	store    *storage.MemoryStore
	detector *anomaly.Detector
	alerter  *alerting.Alerter
	hub      alerting.Broadcaster
	now      func() time.Time
	log      zerolog.Logger
}

func NewService(store *storage.MemoryStore, detector *anomaly.Detector, alerter *alerting.Alerter, hub alerting.Broadcaster) *Service {
	return &Service{
		store:    store,
		detector: detector,
		alerter:  alerter,
		hub:      hub,
		now:      time.Now,
		log:      logger.WithComponent("telemetry"),
	}
}

// stamp returns the ingestion timestamp. It never goes backwards, which
// keeps every history ordered even if the wall clock is adjusted.
func (s *Service) stamp() int64 {
	ts := s.now().UnixMilli()
	if ts < s.lastTS {
		ts = s.lastTS
	}
	s.lastTS = ts
	return ts
}

// Ingest applies one reading: the sensor is registered if needed, the
// reading is stored, viewers get a sensor_update and any alerts it raises.
func (s *Service) Ingest(source string, p *data.IngestPayload) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	reading := p.Reading(s.stamp())
	sensor, created := s.store.UpsertReading(p.Meta(), reading)

	metrics.ReadingsIngestedTotal.WithLabelValues(source).Inc()
	if created {
		metrics.SensorsRegisteredTotal.Inc()
		s.log.Info().
			Str("sensor_id", sensor.Meta.ID).
			Str("zone", sensor.Meta.Zone).
			Str("source", source).
			Msg("sensor registered")
	}

	s.hub.Broadcast(data.EventSensorUpdate, data.SensorUpdate{Sensor: sensor, Reading: reading})

	alerts := s.detector.Check(reading, sensor.Meta.DisplayName())
	n := s.alerter.ProcessAlerts(alerts)

	return Result{Sensor: sensor, Reading: reading, Alerts: n, Created: created}
}

// AckAlert removes an alert and pushes the updated alert list.
func (s *Service) AckAlert(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.AckAlert(id) {
		s.log.Debug().Str("alert_id", id).Msg("ack for unknown alert")
	}
	s.hub.Broadcast(data.EventAlertsUpdated, s.store.RecentAlerts(SnapshotAlerts))
}

// ToggleSchedule flips a schedule and pushes the full schedule list.
func (s *Service) ToggleSchedule(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sch, ok := s.store.ToggleSchedule(id); ok {
		s.log.Info().Str("schedule_id", id).Bool("enabled", sch.Enabled).Msg("schedule toggled")
	}
	s.hub.Broadcast(data.EventSchedulesUpdated, s.store.Schedules())
}

// TriggerWater only notifies viewers; there is no actuator behind it.
func (s *Service) TriggerWater(zoneID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Info().Str("zone_id", zoneID).Msg("watering triggered")
	s.hub.Broadcast(data.EventWateringTriggered, data.WateringTriggered{ZoneID: zoneID, TS: s.now().UnixMilli()})
}

func (s *Service) CreateSchedule(fields data.SchedulePatch) data.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()

	sch := s.store.CreateSchedule(fields)
	s.hub.Broadcast(data.EventSchedulesUpdated, s.store.Schedules())
	return sch
}

// PatchSchedule returns storage.ErrNotFound for an unknown id, in which
// case nothing is broadcast.
func (s *Service) PatchSchedule(id string, fields data.SchedulePatch) (data.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sch, err := s.store.PatchSchedule(id, fields)
	if err != nil {
		return data.Schedule{}, err
	}
	s.hub.Broadcast(data.EventSchedulesUpdated, s.store.Schedules())
	return sch, nil
}

// Snapshot implements websocket.Handler. fn runs under s.mu, so the hub
// queues the snapshot between the broadcasts of two mutations.
func (s *Service) Snapshot(fn func(snapshot interface{})) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(data.Snapshot{
		Sensors:   s.store.Sensors(),
		Alerts:    s.store.RecentAlerts(SnapshotAlerts),
		Schedules: s.store.Schedules(),
	})
}

// HandleAction implements websocket.Handler.
func (s *Service) HandleAction(a websocket.Action) {
	switch a.Name {
	case websocket.ActionAckAlert:
		s.AckAlert(a.ID)
	case websocket.ActionToggleSchedule:
		s.ToggleSchedule(a.ID)
	case websocket.ActionTriggerWater:
		s.TriggerWater(a.ZoneID)
	}
}
