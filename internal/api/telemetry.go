package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/tomvassey/hearth-core/internal/device"
	"github.com/tomvassey/hearth-core/internal/telemetry"
)

// ingestRequest is the body of POST /telemetry.
type ingestRequest struct {
	DeviceID    string `json:"device_id"`
	Temperature *int   `json:"temperature"`
}

// handleIngestTelemetry accepts a temperature reading from an external
// sensor. The reading is recorded to history; for a thermostat it also
// updates current_temperature through the store, so the change is broadcast
// like any other mutation.
func (s *Server) handleIngestTelemetry(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if req.DeviceID == "" {
		writeBadRequest(w, "device_id is required")
		return
	}
	if req.Temperature == nil {
		writeBadRequest(w, "temperature is required")
		return
	}

	d, err := s.store.Get(req.DeviceID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if err := s.telemetry.Record(r.Context(), d.ID, *req.Temperature, telemetry.SourceIngest); err != nil {
		s.logger.Error("telemetry record failed", "device_id", d.ID, "error", err)
		writeInternalError(w, "failed to record telemetry")
		return
	}

	// Sensor readings drive thermostat state; other kinds keep history only.
	if d.Kind == device.KindThermostat {
		if _, err := s.store.Apply(d.ID, device.Update{CurrentTemperature: req.Temperature}); err != nil {
			writeStoreError(w, err)
			return
		}
	}

	if s.metrics != nil {
		if err := s.metrics.WriteTemperature(r.Context(), d.ID, float64(*req.Temperature)); err != nil {
			s.logger.Warn("metric write failed", "device_id", d.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "telemetry ingested",
	})
}

// handleDeviceTelemetry returns recent readings for a device, newest first.
// The limit query parameter is optional; the repository clamps it.
func (s *Server) handleDeviceTelemetry(w http.ResponseWriter, r *http.Request) {
	id := deviceIDParam(r)

	d, err := s.store.Get(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
	}

	readings, err := s.telemetry.History(r.Context(), d.ID, limit)
	if err != nil {
		s.logger.Error("telemetry query failed", "device_id", d.ID, "error", err)
		writeInternalError(w, "failed to query telemetry")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": d.ID,
		"readings":  readings,
		"count":     len(readings),
	})
}
