// Package mqtt lets sensors publish readings to a broker instead of
// POSTing them. Payloads use the /api/ingest body format.
package mqtt

import (
	"context"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"sensor-hub/internal/data"
	"sensor-hub/internal/logger"
	"sensor-hub/internal/telemetry"
)

// Ingester applies a reading.
type Ingester interface {
	Ingest(source string, p *data.IngestPayload) telemetry.Result
}

type Config struct {
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
}

// Source subscribes to a topic and feeds every message to the ingester.
type Source struct {
	cfg      Config
	ingester Ingester
	client   paho.Client
	log      zerolog.Logger
}

func NewSource(cfg Config, ingester Ingester) *Source {
	return &Source{cfg: cfg, ingester: ingester, log: logger.WithComponent("mqtt")}
}

// Start connects, subscribes and blocks until ctx is cancelled.
func (s *Source) Start(ctx context.Context) error {
	opts := paho.NewClientOptions()
	opts.AddBroker(s.cfg.Broker)
	opts.SetClientID(s.cfg.ClientID)
	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
	}
	if s.cfg.Password != "" {
		opts.SetPassword(s.cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		s.log.Warn().Err(err).Msg("connection lost")
	})

	s.client = paho.NewClient(opts)
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	token := s.client.Subscribe(s.cfg.Topic, 1, func(_ paho.Client, msg paho.Message) {
		if err := s.handleMessage(msg.Topic(), msg.Payload()); err != nil {
			s.log.Warn().Err(err).Str("topic", msg.Topic()).Msg("dropping message")
		}
	})
	if token.Wait() && token.Error() != nil {
		s.client.Disconnect(250)
		return fmt.Errorf("failed to subscribe to topic %s: %w", s.cfg.Topic, token.Error())
	}

	s.log.Info().Str("broker", s.cfg.Broker).Str("topic", s.cfg.Topic).Msg("mqtt source started")

	<-ctx.Done()

	if token := s.client.Unsubscribe(s.cfg.Topic); token.WaitTimeout(time.Second) && token.Error() != nil {
		s.log.Warn().Err(token.Error()).Msg("unsubscribe failed")
	}
	s.client.Disconnect(250)
	s.log.Info().Msg("mqtt source stopped")
	return nil
}

// handleMessage ingests one payload. A missing sensorId is taken from the
// topic, which has the form sensors/<id>/readings.
func (s *Source) handleMessage(topic string, payload []byte) error {
	p, err := data.Decode(payload)
	if err != nil {
		return err
	}
	if p.SensorID == "" {
		p.SensorID = sensorIDFromTopic(topic)
	}
	if err := p.Validate(); err != nil {
		return err
	}

	res := s.ingester.Ingest(telemetry.SourceMQTT, p)
	s.log.Debug().Str("sensor_id", p.SensorID).Int("alerts", res.Alerts).Msg("reading ingested")
	return nil
}

func sensorIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
