// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
	Alerts     Thresholds `mapstructure:"alerts"`
	Simulation struct {
		Enabled  bool          `mapstructure:"enabled"`
		Interval time.Duration `mapstructure:"interval"`
		Seed     bool          `mapstructure:"seed"`
	} `mapstructure:"simulation"`
	Hub struct {
		SendBuffer int `mapstructure:"send_buffer"`
	} `mapstructure:"hub"`
	MQTT struct {
		Broker   string `mapstructure:"broker"`
		Topic    string `mapstructure:"topic"`
		ClientID string `mapstructure:"client_id"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
	} `mapstructure:"mqtt"`
}

// Thresholds drive the alert evaluator.
type Thresholds struct {
	MaxTemp          float64 `mapstructure:"max_temp"`
	MinMoisture      float64 `mapstructure:"min_moisture"`
	CriticalMoisture float64 `mapstructure:"critical_moisture"`
	MinHumidity      float64 `mapstructure:"min_humidity"`
}

// DefaultThresholds are the limits used when nothing is configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxTemp:          29,
		MinMoisture:      40,
		CriticalMoisture: 30,
		MinHumidity:      55,
	}
}

// Load reads config.yaml from path (if present) and overlays environment
// variables, e.g. PORT or SIMULATION_INTERVAL. A missing file is not an
// error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	// PORT is the conventional variable, keep it working without the prefix.
	if err := v.BindEnv("server.port", "PORT", "SERVER_PORT"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Server.Port)
	}
	if cfg.Simulation.Interval <= 0 {
		return nil, fmt.Errorf("invalid simulation interval %s", cfg.Simulation.Interval)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultThresholds()
	v.SetDefault("server.port", 3000)
	v.SetDefault("log.level", "info")
	v.SetDefault("alerts.max_temp", d.MaxTemp)
	v.SetDefault("alerts.min_moisture", d.MinMoisture)
	v.SetDefault("alerts.critical_moisture", d.CriticalMoisture)
	v.SetDefault("alerts.min_humidity", d.MinHumidity)
	v.SetDefault("simulation.enabled", true)
	v.SetDefault("simulation.interval", 5*time.Second)
	v.SetDefault("simulation.seed", true)
	v.SetDefault("hub.send_buffer", 256)
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.topic", "sensors/+/readings")
	v.SetDefault("mqtt.client_id", "sensor-hub")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
}
