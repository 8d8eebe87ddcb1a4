package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRouter(apiHandler *APIHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", apiHandler.Health)
		r.Post("/ingest", apiHandler.HandleIngest)

		r.Get("/sensors", apiHandler.ListSensors)
		r.Get("/sensors/{id}", apiHandler.GetSensor)
		r.Get("/sensors/{id}/history", apiHandler.SensorHistory)

		r.Get("/alerts", apiHandler.ListAlerts)

		r.Get("/schedules", apiHandler.ListSchedules)
		r.Post("/schedules", apiHandler.CreateSchedule)
		r.Patch("/schedules/{id}", apiHandler.PatchSchedule)
	})

	r.Get("/ws", apiHandler.HandleWebSocket)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
