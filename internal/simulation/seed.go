package simulation

import (
	"sensor-hub/internal/data"
	"sensor-hub/internal/storage"
)

type demoSensor struct {
	meta     data.SensorMeta
	baseline Baseline
}

var demoSensors = []demoSensor{
	{data.SensorMeta{ID: "gh1-bench-a", Name: "Bench A", Zone: "zone-1", Plant: "Tomato", Type: "soil"}, Baseline{Temperature: 25, Humidity: 65, Moisture: 52}},
	{data.SensorMeta{ID: "gh1-bench-b", Name: "Bench B", Zone: "zone-1", Plant: "Basil", Type: "soil"}, Baseline{Temperature: 26, Humidity: 60, Moisture: 45}},
	{data.SensorMeta{ID: "gh2-rack-1", Name: "Rack 1", Zone: "zone-2", Plant: "Lettuce", Type: "soil"}, Baseline{Temperature: 21, Humidity: 70, Moisture: 58}},
	{data.SensorMeta{ID: "gh2-ambient", Name: "GH2 Ambient", Zone: "zone-2", Plant: "Unknown", Type: "air"}, Baseline{Temperature: 27, Humidity: 56, Moisture: 42}},
}

// Seed registers the demo sensors and watering schedules and returns the
// per-sensor baselines for the ticker.
func Seed(store *storage.MemoryStore) map[string]Baseline {
	baselines := make(map[string]Baseline, len(demoSensors))
	for _, d := range demoSensors {
		store.RegisterSensor(d.meta)
		baselines[d.meta.ID] = d.baseline
	}

	for _, s := range []struct {
		zone, time string
		days       []string
		duration   int
	}{
		{"zone-1", "06:00", []string{"mon", "wed", "fri"}, 15},
		{"zone-2", "18:30", []string{"tue", "thu", "sat"}, 10},
	} {
		zone, tm, days, duration := s.zone, s.time, s.days, s.duration
		store.CreateSchedule(data.SchedulePatch{ZoneID: &zone, Time: &tm, Days: &days, Duration: &duration})
	}
	return baselines
}
