package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rohittcodes/flashio-sub001/internal/stream"
	"github.com/rohittcodes/flashio-sub001/internal/terminal"
	"github.com/rohittcodes/flashio-sub001/internal/utils"
)

// POST /terminal/sessions
// StartSession godoc
// @Summary Start an interactive terminal session in a sandbox instance
// @Tags Terminal
// @Accept json
// @Produce json
// @Success 201 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/terminal/sessions [post]
func StartSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{
			Success: false,
			Message: "Unauthorized",
		})
		return
	}

	type Input struct {
		InstanceID string `json:"instanceId"`
		ProjectID  string `json:"projectId"`
		SessionID  string `json:"sessionId"`
		Size       *struct {
			Cols uint16 `json:"cols"`
			Rows uint16 `json:"rows"`
		} `json:"terminalSize"`
	}
	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.InstanceID == "" || input.ProjectID == "" {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "instanceId and projectId are required",
		})
		return
	}

	projectID, err := uuid.Parse(input.ProjectID)
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Invalid projectId",
		})
		return
	}

	var cols, rows uint16
	if input.Size != nil {
		cols, rows = input.Size.Cols, input.Size.Rows
	}

	sess, err := Terminals.Start(r.Context(), input.InstanceID, projectID, userID, input.SessionID, cols, rows)
	if err != nil {
		utils.JSONResponse(w, http.StatusNotFound, utils.Payload{
			Success: false,
			Message: "Failed to start terminal session",
		})
		return
	}

	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "Terminal session started",
		Data: map[string]any{
			"sessionId":  sess.ID,
			"processId":  sess.ProcessID,
			"instanceId": sess.InstanceID,
		},
	})
}

// POST /terminal/sessions/resize
// ResizeSession godoc
// @Summary Resize a terminal session
// @Tags Terminal
// @Accept json
// @Produce json
// @Success 200 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/terminal/sessions/resize [post]
func ResizeSession(w http.ResponseWriter, r *http.Request) {
	type Input struct {
		SessionID string `json:"sessionId"`
		Cols      uint16 `json:"cols"`
		Rows      uint16 `json:"rows"`
	}
	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.SessionID == "" || input.Cols == 0 || input.Rows == 0 {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "sessionId, cols and rows are required",
		})
		return
	}

	if err := Terminals.Resize(input.SessionID, input.Cols, input.Rows); err != nil {
		if errors.Is(err, terminal.ErrSessionNotFound) {
			utils.JSONResponse(w, http.StatusNotFound, utils.Payload{
				Success: false,
				Message: "Session not found",
			})
			return
		}
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to resize session",
		})
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Session resized",
	})
}

// POST /terminal/sessions/input
// SessionInput godoc
// @Summary Forward input bytes to a terminal session
// @Tags Terminal
// @Accept json
// @Produce json
// @Success 200 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/terminal/sessions/input [post]
func SessionInput(w http.ResponseWriter, r *http.Request) {
	type Input struct {
		SessionID string `json:"sessionId"`
		Data      string `json:"data"`
	}
	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.SessionID == "" {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "sessionId is required",
		})
		return
	}

	if err := Terminals.Write(input.SessionID, []byte(input.Data)); err != nil {
		if errors.Is(err, terminal.ErrSessionNotFound) {
			utils.JSONResponse(w, http.StatusNotFound, utils.Payload{
				Success: false,
				Message: "Session not found",
			})
			return
		}
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to write to session",
		})
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Input forwarded",
	})
}

// DELETE /terminal/sessions/{id}
// StopSession godoc
// @Summary Stop a terminal session and release its process
// @Tags Terminal
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/terminal/sessions/{id} [delete]
func StopSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Missing session id",
		})
		return
	}

	if err := Terminals.Stop(r.Context(), id); err != nil {
		utils.JSONResponse(w, http.StatusNotFound, utils.Payload{
			Success: false,
			Message: "Session not found",
		})
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Session stopped",
	})
}

// GET /terminal/sessions/output?sessionId=...
// SessionOutput godoc
// @Summary Stream terminal output as server-sent events
// @Description One client at a time may hold a session's output stream.
// @Tags Terminal
// @Produce text/event-stream
// @Param sessionId query string true "Session ID"
// @Success 200 {string} string "SSE stream"
// @Failure 404 {object} utils.Payload
// @Failure 409 {object} utils.Payload
// @Router /api/v1/terminal/sessions/output [get]
func SessionOutput(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Missing sessionId",
		})
		return
	}

	sess, ok := Terminals.Get(sessionID)
	if !ok {
		utils.JSONResponse(w, http.StatusNotFound, utils.Payload{
			Success: false,
			Message: "Session not found",
		})
		return
	}

	if err := stream.Relay(w, r, sessionID, sess); err != nil {
		if errors.Is(err, stream.ErrStreamBusy) {
			utils.JSONResponse(w, http.StatusConflict, utils.Payload{
				Success: false,
				Message: "Session output already has an active reader",
			})
			return
		}
		// Stream errors after headers are sent terminate this connection
		// only; the error event has already been written.
	}
}
