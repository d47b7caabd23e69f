package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/c4bridge-core/internal/entity"
)

type turnOnRequest struct {
	Brightness *int `json:"brightness"`
}

type commandAccepted struct {
	OK        bool   `json:"ok"`
	CommandID string `json:"command_id"`
}

// handleListEntities returns a snapshot of every entity.
//
// Query parameters:
//   - platform: filter by platform (light, switch, binary_sensor)
func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	platform := entity.Platform(r.URL.Query().Get("platform"))

	snapshots := make([]entity.Snapshot, 0)
	for _, e := range s.entities.Entities() {
		if platform != "" && e.Platform() != platform {
			continue
		}
		snapshots = append(snapshots, e.Snapshot())
	}
	writeJSON(w, http.StatusOK, map[string]any{"entities": snapshots, "count": len(snapshots)})
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	e, err := s.entities.Entity(chi.URLParam(r, "uniqueID"))
	if err != nil {
		writeEntityError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e.Snapshot())
}

// handleTurnOn queues a turn_on command. The optional body carries a
// brightness in the 0-255 display range.
func (s *Server) handleTurnOn(w http.ResponseWriter, r *http.Request) {
	var req turnOnRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeBadRequest(w, "invalid JSON body")
			return
		}
	}

	uniqueID := chi.URLParam(r, "uniqueID")
	commandID, err := s.entities.TurnOn(uniqueID, req.Brightness)
	if err != nil {
		writeEntityError(w, err)
		return
	}

	s.logger.Info("command queued", "entity", uniqueID, "action", "turn_on", "command_id", commandID)
	writeJSON(w, http.StatusAccepted, commandAccepted{OK: true, CommandID: commandID})
}

func (s *Server) handleTurnOff(w http.ResponseWriter, r *http.Request) {
	uniqueID := chi.URLParam(r, "uniqueID")
	commandID, err := s.entities.TurnOff(uniqueID)
	if err != nil {
		writeEntityError(w, err)
		return
	}

	s.logger.Info("command queued", "entity", uniqueID, "action", "turn_off", "command_id", commandID)
	writeJSON(w, http.StatusAccepted, commandAccepted{OK: true, CommandID: commandID})
}

func writeEntityError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrEntityNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, entity.ErrUnsupportedAction):
		writeError(w, http.StatusBadRequest, ErrCodeUnsupported, err.Error())
	case errors.Is(err, entity.ErrInvalidBrightness):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		writeInternalError(w, "entity command failed")
	}
}
