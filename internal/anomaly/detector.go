// internal/anomaly/detector.go
package anomaly

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sensor-hub/internal/config"
	"sensor-hub/internal/data"
	"sensor-hub/internal/logger"
)

type Detector struct {
	thresholds config.Thresholds
	log        zerolog.Logger
}

func NewDetector(t config.Thresholds) *Detector {
	return &Detector{thresholds: t, log: logger.WithComponent("anomaly")}
}

// Check evaluates a reading against the thresholds and returns zero to
// three alerts. The checks are independent. Alerts produced by one call
// share an id prefix and differ by a per-check suffix. Missing
// measurements never alert.
func (d *Detector) Check(r data.Reading, sensorName string) []data.Alert {
	if sensorName == "" {
		sensorName = r.SensorID
	}
	base := "alrt-" + uuid.NewString()
	var alerts []data.Alert

	add := func(suffix string, typ data.AlertType, msg string) {
		alerts = append(alerts, data.Alert{
			ID:       base + "-" + suffix,
			Type:     typ,
			SensorID: r.SensorID,
			Message:  msg,
			TS:       r.TS,
		})
	}

	if r.Temperature != nil && *r.Temperature > d.thresholds.MaxTemp {
		add("t", data.AlertCritical,
			fmt.Sprintf("%s: temperature %.1f°C above %.1f°C", sensorName, *r.Temperature, d.thresholds.MaxTemp))
	}

	if r.Moisture != nil && *r.Moisture < d.thresholds.MinMoisture {
		typ := data.AlertWarning
		if *r.Moisture < d.thresholds.CriticalMoisture {
			typ = data.AlertCritical
		}
		add("m", typ,
			fmt.Sprintf("%s: soil moisture %.1f%% below %.1f%%", sensorName, *r.Moisture, d.thresholds.MinMoisture))
	}

	if r.Humidity != nil && *r.Humidity < d.thresholds.MinHumidity {
		add("h", data.AlertWarning,
			fmt.Sprintf("%s: humidity %.1f%% below %.1f%%", sensorName, *r.Humidity, d.thresholds.MinHumidity))
	}

	for _, a := range alerts {
		d.log.Debug().
			Str("sensor_id", a.SensorID).
			Str("type", string(a.Type)).
			Msg(a.Message)
	}
	return alerts
}
