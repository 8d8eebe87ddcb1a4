// cmd/hub/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"sensor-hub/internal/alerting"
	"sensor-hub/internal/anomaly"
	"sensor-hub/internal/api"
	"sensor-hub/internal/config"
	"sensor-hub/internal/logger"
	"sensor-hub/internal/mqtt"
	"sensor-hub/internal/simulation"
	"sensor-hub/internal/storage"
	"sensor-hub/internal/telemetry"
	"sensor-hub/internal/websocket"
)

func main() {
	// --- Configuration ---
	configPath := flag.String("config", ".", "Path to the configuration file directory")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Log.Level)
	log := logger.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Initialize Components ---
	store := storage.NewMemoryStore()
	hub := websocket.NewHub(cfg.Hub.SendBuffer)
	detector := anomaly.NewDetector(cfg.Alerts)
	alerter := alerting.NewAlerter(store, hub)
	svc := telemetry.NewService(store, detector, alerter, hub)
	hub.SetHandler(svc)

	var baselines map[string]simulation.Baseline
	if cfg.Simulation.Seed {
		baselines = simulation.Seed(store)
		log.Info().Int("sensors", store.SensorCount()).Msg("demo data seeded")
	}

	var wg sync.WaitGroup
	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	// --- Start WebSocket Hub ---
	run(func() { hub.Run(ctx) })

	if cfg.Simulation.Enabled {
		ticker := simulation.NewTicker(svc, store, cfg.Simulation.Interval, baselines)
		run(func() { ticker.Run(ctx) })
	}

	if cfg.MQTT.Broker != "" {
		source := mqtt.NewSource(mqtt.Config{
			Broker:   cfg.MQTT.Broker,
			Topic:    cfg.MQTT.Topic,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		}, svc)
		run(func() {
			if err := source.Start(ctx); err != nil {
				log.Error().Err(err).Msg("mqtt source failed, continuing with HTTP ingest only")
			}
		})
	}

	// --- Setup HTTP Server ---
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.SetupRouter(api.NewAPIHandler(store, svc, hub)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting sensor hub")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server failed")
			stop()
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	wg.Wait()

	log.Info().Msg("stopped")
}
