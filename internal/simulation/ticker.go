package simulation

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"sensor-hub/internal/data"
	"sensor-hub/internal/logger"
	"sensor-hub/internal/telemetry"
)

// Ingester applies a reading the same way real ingestion does.
type Ingester interface {
	Ingest(source string, p *data.IngestPayload) telemetry.Result
}

// SensorLister lists the known sensors.
type SensorLister interface {
	Sensors() []data.Sensor
}

// Ticker synthesizes one reading per known sensor every interval. It only
// exists to keep a demo deployment producing live data.
type Ticker struct {
	ingester  Ingester
	sensors   SensorLister
	interval  time.Duration
	baselines map[string]Baseline
	rng       *rand.Rand
	log       zerolog.Logger
}

func NewTicker(ingester Ingester, sensors SensorLister, interval time.Duration, baselines map[string]Baseline) *Ticker {
	if baselines == nil {
		baselines = map[string]Baseline{}
	}
	return &Ticker{
		ingester:  ingester,
		sensors:   sensors,
		interval:  interval,
		baselines: baselines,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		log:       logger.WithComponent("simulation"),
	}
}

// Run ticks until ctx is cancelled.
func (t *Ticker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.log.Info().Dur("interval", t.interval).Msg("simulation started")
	for {
		select {
		case <-ctx.Done():
			t.log.Info().Msg("simulation stopped")
			return
		case <-ticker.C:
			t.Tick()
		}
	}
}

// Tick runs one round and returns the number of readings produced.
func (t *Ticker) Tick() int {
	sensors := t.sensors.Sensors()
	alerts := 0
	for _, s := range sensors {
		b, ok := t.baselines[s.Meta.ID]
		if !ok {
			b = DefaultBaseline
		}
		res := t.ingester.Ingest(telemetry.SourceSimulation, GenerateReading(s.Meta.ID, b, t.rng))
		alerts += res.Alerts
	}
	t.log.Debug().Int("sensors", len(sensors)).Int("alerts", alerts).Msg("simulation tick")
	return len(sensors)
}
