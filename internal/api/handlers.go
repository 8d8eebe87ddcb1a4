package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	gwebsocket "github.com/gorilla/websocket" // Alias to avoid name conflict
	"github.com/rs/zerolog"

	"sensor-hub/internal/data"
	"sensor-hub/internal/logger"
	"sensor-hub/internal/storage"
	"sensor-hub/internal/telemetry"
	"sensor-hub/internal/websocket"
)

const (
	maxBodySize         = 1 << 20
	defaultHistoryHours = 24
	alertsPageSize      = 50
)

var upgrader = gwebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // viewers are unauthenticated dashboards
}

type APIHandler struct {
	store *storage.MemoryStore
	svc   *telemetry.Service
	hub   *websocket.Hub
	log   zerolog.Logger
}

func NewAPIHandler(store *storage.MemoryStore, svc *telemetry.Service, hub *websocket.Hub) *APIHandler {
	return &APIHandler{
		store: store,
		svc:   svc,
		hub:   hub,
		log:   logger.WithComponent("api"),
	}
}

// HandleIngest receives a reading pushed by a sensor.
func (h *APIHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read body")
		return
	}

	payload, err := data.Parse(body)
	if errors.Is(err, data.ErrSensorIDRequired) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	res := h.svc.Ingest(telemetry.SourceHTTP, payload)
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "alerts": res.Alerts})
}

func (h *APIHandler) ListSensors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Sensors())
}

func (h *APIHandler) GetSensor(w http.ResponseWriter, r *http.Request) {
	sensor, ok := h.store.Sensor(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	writeJSON(w, http.StatusOK, sensor)
}

// SensorHistory returns readings from the last ?hours=N hours (default 24).
func (h *APIHandler) SensorHistory(w http.ResponseWriter, r *http.Request) {
	hours := float64(defaultHistoryHours)
	if v := r.URL.Query().Get("hours"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			hours = n
		}
	}
	since := time.Now().Add(-time.Duration(hours * float64(time.Hour)))
	writeJSON(w, http.StatusOK, h.store.History(chi.URLParam(r, "id"), since))
}

func (h *APIHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.RecentAlerts(alertsPageSize))
}

func (h *APIHandler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Schedules())
}

func (h *APIHandler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var fields data.SchedulePatch
	if err := decodeBody(w, r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	writeJSON(w, http.StatusCreated, h.svc.CreateSchedule(fields))
}

func (h *APIHandler) PatchSchedule(w http.ResponseWriter, r *http.Request) {
	var fields data.SchedulePatch
	if err := decodeBody(w, r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	sch, err := h.svc.PatchSchedule(chi.URLParam(r, "id"), fields)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("patch schedule failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, sch)
}

func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"sensors": h.store.SensorCount(),
		"clients": h.hub.ClientCount(),
	})
}

// HandleWebSocket upgrades connections and registers clients with the hub
func (h *APIHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade error")
		return
	}
	websocket.NewClient(h.hub, conn).Serve()
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
