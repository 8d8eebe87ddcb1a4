package simulation

import (
	"math"
	"math/rand"

	"sensor-hub/internal/data"
)

// Baseline is the value a simulated sensor hovers around.
type Baseline struct {
	Temperature float64
	Humidity    float64
	Moisture    float64
}

// DefaultBaseline is used for sensors that have no baseline of their own,
// e.g. ones that registered themselves over HTTP.
var DefaultBaseline = Baseline{Temperature: 24, Humidity: 62, Moisture: 48}

// GenerateReading produces a random reading around b. It is pure apart
// from the random source.
func GenerateReading(sensorID string, b Baseline, rng *rand.Rand) *data.IngestPayload {
	jitter := func(center, spread float64) float64 {
		return round1(center + (rng.Float64()*2-1)*spread)
	}
	return &data.IngestPayload{
		SensorID:    sensorID,
		Temperature: data.Float(jitter(b.Temperature, 3)),
		Humidity:    data.Float(clamp(jitter(b.Humidity, 8), 0, 100)),
		Moisture:    data.Float(clamp(jitter(b.Moisture, 10), 0, 100)),
		Battery:     data.Float(round1(60 + rng.Float64()*40)),
		RSSI:        data.Float(float64(-90 + rng.Intn(50))),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
