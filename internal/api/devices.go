package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nerrad567/vigil-core/internal/device"
)

// registerRequest is the body for POST /api/v1/devices.
type registerRequest struct {
	// UUID is optional; the server assigns one when omitted.
	UUID     string `json:"uuid"`
	Name     string `json:"name"`
	LastWill string `json:"last_will"`
	TTL      int64  `json:"ttl"`
}

// handleListDevices returns all registered devices.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.service.ListDevices(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list devices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device by UUID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")
	if err := device.ValidateUUID(id); err != nil {
		writeBadRequest(w, "invalid device uuid")
		return
	}

	d, err := s.service.GetDevice(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// handleRegisterDevice registers a new device.
//
// The client may supply its own UUID (agents that persist identity across
// restarts do); otherwise one is assigned and returned in the response.
func (s *Server) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.UUID == "" {
		req.UUID = uuid.NewString()
	}
	if err := device.ValidateRegistration(req.UUID, req.Name, req.LastWill, req.TTL); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	cmd := device.RegisterDevice{
		UUID:     req.UUID,
		Name:     req.Name,
		LastWill: req.LastWill,
		TTL:      req.TTL,
	}
	if err := s.dispatcher.Dispatch(r.Context(), cmd); err != nil {
		if errors.Is(err, device.ErrDeviceExists) {
			writeConflict(w, "device already registered")
			return
		}
		writeInternalError(w, "failed to register device")
		return
	}

	d, err := s.service.GetDevice(r.Context(), req.UUID)
	if err != nil {
		writeInternalError(w, "failed to load registered device")
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// handleRemoveDevice deletes a device.
func (s *Server) handleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")
	if err := device.ValidateUUID(id); err != nil {
		writeBadRequest(w, "invalid device uuid")
		return
	}

	if err := s.dispatcher.Dispatch(r.Context(), device.RemoveDevice{UUID: id}); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to remove device")
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

// handleKeepAlive renews a device's expiry to now + its stored TTL.
func (s *Server) handleKeepAlive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uuid")
	if err := device.ValidateUUID(id); err != nil {
		writeBadRequest(w, "invalid device uuid")
		return
	}

	if err := s.dispatcher.Dispatch(r.Context(), device.KeepAliveDevice{UUID: id}); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "failed to keep device alive")
		return
	}

	d, err := s.service.GetDevice(r.Context(), id)
	if err != nil {
		writeInternalError(w, "failed to load device")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"uuid": d.UUID, "fire_at": d.FireAt})
}
