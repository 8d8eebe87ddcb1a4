// internal/storage/memory.go
package storage

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sensor-hub/internal/data"
)

const (
	HistoryCapacity = 168 // 7 days of hourly samples per sensor
	AlertCapacity   = 100
)

// ErrNotFound is returned when a schedule id does not exist.
var ErrNotFound = errors.New("not found")

// MemoryStore owns all mutable hub state. Every method is safe for
// concurrent use; returned values are copies.
type MemoryStore struct {
	mu        sync.RWMutex
	sensors   map[string]*data.Sensor
	history   map[string][]data.Reading
	alerts    []data.Alert // oldest first
	schedules []data.Schedule
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sensors: make(map[string]*data.Sensor),
		history: make(map[string][]data.Reading),
	}
}

// RegisterSensor creates the sensor if it is unknown. Existing metadata is
// never overwritten. It reports whether a sensor was created.
func (s *MemoryStore) RegisterSensor(meta data.SensorMeta) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registerLocked(meta)
}

func (s *MemoryStore) registerLocked(meta data.SensorMeta) bool {
	if _, ok := s.sensors[meta.ID]; ok {
		return false
	}
	s.sensors[meta.ID] = &data.Sensor{Meta: meta}
	s.history[meta.ID] = make([]data.Reading, 0, 16)
	return true
}

// UpsertReading records r as the latest reading of its sensor and appends
// it to the sensor's history, evicting the oldest entry once the history
// is over capacity. meta is only used when the sensor is unknown.
func (s *MemoryStore) UpsertReading(meta data.SensorMeta, r data.Reading) (data.Sensor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta.ID = r.SensorID
	created := s.registerLocked(meta)

	sensor := s.sensors[r.SensorID]
	latest := r
	sensor.LatestReading = &latest

	h := append(s.history[r.SensorID], r)
	if len(h) > HistoryCapacity {
		// Remove the oldest element
		h = h[1:]
	}
	s.history[r.SensorID] = h

	return *sensor, created
}

// RecordAlerts appends alerts to the log and trims it to the most recent
// AlertCapacity entries. It reports whether anything was added.
func (s *MemoryStore) RecordAlerts(alerts []data.Alert) bool {
	if len(alerts) == 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alerts = append(s.alerts, alerts...)
	if over := len(s.alerts) - AlertCapacity; over > 0 {
		trimmed := make([]data.Alert, AlertCapacity)
		copy(trimmed, s.alerts[over:])
		s.alerts = trimmed
	}
	return true
}

// AckAlert removes the alert with the given id. Acknowledging an unknown
// id is a no-op; the result reports whether something was removed.
func (s *MemoryStore) AckAlert(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, a := range s.alerts {
		if a.ID == id {
			s.alerts = append(s.alerts[:i], s.alerts[i+1:]...)
			return true
		}
	}
	return false
}

// ToggleSchedule flips the enabled flag of a schedule. Unknown ids are a
// no-op.
func (s *MemoryStore) ToggleSchedule(id string) (data.Schedule, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.schedules {
		if s.schedules[i].ID == id {
			s.schedules[i].Enabled = !s.schedules[i].Enabled
			return copySchedule(s.schedules[i]), true
		}
	}
	return data.Schedule{}, false
}

// CreateSchedule adds a schedule with a fresh id. It is enabled unless the
// patch says otherwise.
func (s *MemoryStore) CreateSchedule(fields data.SchedulePatch) data.Schedule {
	sch := data.Schedule{
		ID:      "sch-" + uuid.NewString(),
		Days:    []string{},
		Enabled: true,
	}
	fields.Apply(&sch)

	s.mu.Lock()
	s.schedules = append(s.schedules, sch)
	s.mu.Unlock()

	return copySchedule(sch)
}

// PatchSchedule merges fields into an existing schedule.
func (s *MemoryStore) PatchSchedule(id string, fields data.SchedulePatch) (data.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.schedules {
		if s.schedules[i].ID == id {
			fields.Apply(&s.schedules[i])
			return copySchedule(s.schedules[i]), nil
		}
	}
	return data.Schedule{}, ErrNotFound
}

// Sensors returns a snapshot of every sensor, ordered by id.
func (s *MemoryStore) Sensors() []data.Sensor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]data.Sensor, 0, len(s.sensors))
	for _, sensor := range s.sensors {
		result = append(result, *sensor)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Meta.ID < result[j].Meta.ID })
	return result
}

func (s *MemoryStore) Sensor(id string) (data.Sensor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sensor, ok := s.sensors[id]
	if !ok {
		return data.Sensor{}, false
	}
	return *sensor, true
}

func (s *MemoryStore) SensorCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sensors)
}

// History returns the readings of a sensor taken at or after since,
// oldest first. Unknown sensors yield an empty slice.
func (s *MemoryStore) History(id string, since time.Time) []data.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := since.UnixMilli()
	result := make([]data.Reading, 0)
	for _, r := range s.history[id] {
		if r.TS >= cutoff {
			result = append(result, r)
		}
	}
	return result
}

// RecentAlerts returns up to n alerts, newest first.
func (s *MemoryStore) RecentAlerts(n int) []data.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.alerts) {
		n = len(s.alerts)
	}
	result := make([]data.Alert, 0, n)
	for i := len(s.alerts) - 1; i >= len(s.alerts)-n; i-- {
		result = append(result, s.alerts[i])
	}
	return result
}

func (s *MemoryStore) Schedules() []data.Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]data.Schedule, len(s.schedules))
	for i, sch := range s.schedules {
		result[i] = copySchedule(sch)
	}
	return result
}

func copySchedule(sch data.Schedule) data.Schedule {
	sch.Days = append([]string{}, sch.Days...)
	return sch
}
