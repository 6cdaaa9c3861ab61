package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomvassey/hearth-core/internal/command"
	"github.com/tomvassey/hearth-core/internal/device"
)

// DeviceStats is the dashboard summary computed over the whole device set.
// The string fields are pre-formatted for direct display.
type DeviceStats struct {
	Lighting      string `json:"lighting"`
	Temperature   string `json:"temperature"`
	Security      string `json:"security"`
	TotalDevices  int    `json:"total_devices"`
	OnlineDevices int    `json:"online_devices"`
}

// commandRequest is the body of POST /devices/{id}/commands.
type commandRequest struct {
	Command    string         `json:"command"`
	Parameters command.Params `json:"parameters"`
}

// roomInfo is one entry of the rooms listing.
type roomInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// deviceIDParam reassembles the structured device ID from its three URL
// segments.
func deviceIDParam(r *http.Request) string {
	return chi.URLParam(r, "room") + "/" + chi.URLParam(r, "kind") + "/" + chi.URLParam(r, "instance")
}

// handleListDevices returns all devices, optionally filtered by room and kind.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	kind := device.Kind(r.URL.Query().Get("kind"))

	devices := s.store.List(room, kind)

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := deviceIDParam(r)

	d, err := s.store.Get(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// handleUpdateDevice applies a partial update to a device.
// Validation is all-or-nothing: any rejected field rejects the whole patch.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	id := deviceIDParam(r)

	var update device.Update
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&update); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	res, err := s.processor.ApplyPatch(id, update)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res.Device)
}

// handleDeviceCommand executes a named command against a device.
func (s *Server) handleDeviceCommand(w http.ResponseWriter, r *http.Request) {
	id := deviceIDParam(r)

	var req commandRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if req.Command == "" {
		writeBadRequest(w, "command is required")
		return
	}

	res, err := s.processor.Execute(id, req.Command, req.Parameters)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// handleDeviceStats returns the dashboard statistics for the whole home.
func (s *Server) handleDeviceStats(w http.ResponseWriter, _ *http.Request) {
	devices := s.store.List(device.RoomAll, "")

	var lights, activeLights int
	var thermostats, tempSum int
	allLocked := true

	for i := range devices {
		d := &devices[i]
		switch d.Kind {
		case device.KindLight:
			lights++
			if d.IsOn != nil && *d.IsOn {
				activeLights++
			}
		case device.KindThermostat:
			if d.CurrentTemperature != nil {
				thermostats++
				tempSum += *d.CurrentTemperature
			}
		case device.KindLock:
			if d.IsLocked == nil || !*d.IsLocked {
				allLocked = false
			}
		}
	}

	avgTemp := 0
	if thermostats > 0 {
		// Round half away from zero; integer division alone truncates
		// toward zero, which misrounds sub-zero averages.
		half := thermostats / 2
		if tempSum < 0 {
			half = -half
		}
		avgTemp = (tempSum + half) / thermostats
	}

	security := "All Locked"
	if !allLocked {
		security = "Some Unlocked"
	}

	writeJSON(w, http.StatusOK, DeviceStats{
		Lighting:      fmt.Sprintf("%d/%d Active", activeLights, lights),
		Temperature:   fmt.Sprintf("%d°C Average", avgTemp),
		Security:      security,
		TotalDevices:  len(devices),
		OnlineDevices: len(devices), // all simulated devices are online
	})
}

// handleListRooms returns the rooms derived from the seeded devices, with
// the "all" pseudo-room first.
func (s *Server) handleListRooms(w http.ResponseWriter, _ *http.Request) {
	rooms := []roomInfo{{ID: device.RoomAll, Name: "All Rooms"}}
	for _, id := range s.store.Rooms() {
		rooms = append(rooms, roomInfo{ID: id, Name: roomDisplayName(id)})
	}

	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

// roomDisplayName turns a room ID into a display name ("living-room" ->
// "Living Room").
func roomDisplayName(id string) string {
	words := strings.Split(id, "-")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

// writeStoreError maps store, validation, and command errors to HTTP
// responses: unknown device is 404, every rejected write is 400.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, device.ErrNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, device.ErrInvalidID),
		errors.Is(err, device.ErrOutOfRange),
		errors.Is(err, device.ErrInvalidForKind),
		errors.Is(err, device.ErrInvalidEnum),
		errors.Is(err, device.ErrEmptyUpdate),
		errors.Is(err, command.ErrUnknownCommand),
		errors.Is(err, command.ErrMissingParam):
		writeBadRequest(w, err.Error())
	default:
		writeInternalError(w, "unexpected error")
	}
}
