package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rohittcodes/flashio-sub001/internal/sandbox"
	"github.com/rohittcodes/flashio-sub001/internal/utils"
)

// POST /sandbox/instances
// AcquireInstance godoc
// @Summary Acquire the sandbox instance for a project, booting one if needed
// @Tags Sandbox
// @Accept json
// @Produce json
// @Success 200 {object} utils.Payload
// @Failure 503 {object} utils.Payload
// @Router /api/v1/sandbox/instances [post]
func AcquireInstance(w http.ResponseWriter, r *http.Request) {
	type Input struct {
		ProjectID string `json:"projectId"`
		Template  string `json:"template"`
	}
	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.ProjectID == "" {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "projectId is required",
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

	inst, err := Sandboxes.Acquire(r.Context(), projectID, sandbox.BootOptions{Template: input.Template})
	if err != nil {
		utils.JSONResponse(w, http.StatusServiceUnavailable, utils.Payload{
			Success: false,
			Message: "Could not obtain a sandbox instance",
		})
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Sandbox instance ready",
		Data: map[string]any{
			"instanceId": inst.ID,
			"projectId":  inst.ProjectID,
			"port":       inst.Port,
			"previewUrl": inst.PreviewURL,
		},
	})
}

// GET /sandbox/instances/{id}
// GetInstance godoc
// @Summary Fetch sandbox instance status and preview URL
// @Tags Sandbox
// @Produce json
// @Param id path string true "Instance ID"
// @Success 200 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/sandbox/instances/{id} [get]
func GetInstance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Missing instance id",
		})
		return
	}

	row, err := SandboxRows.Get(r.Context(), id)
	if err != nil {
		utils.JSONResponse(w, http.StatusNotFound, utils.Payload{
			Success: false,
			Message: "Sandbox instance not found",
		})
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Instance retrieved",
		Data:    row,
	})
}

// PATCH /sandbox/instances/{id}
// UpdateInstancePreview godoc
// @Summary Update a sandbox instance's preview URL and port
// @Tags Sandbox
// @Accept json
// @Produce json
// @Param id path string true "Instance ID"
// @Success 200 {object} utils.Payload
// @Router /api/v1/sandbox/instances/{id} [patch]
func UpdateInstancePreview(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	type Input struct {
		PreviewURL string `json:"previewUrl"`
		Port       int    `json:"port"`
	}
	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.PreviewURL == "" {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "previewUrl is required",
		})
		return
	}

	if err := SandboxRows.UpdatePreview(r.Context(), id, input.PreviewURL, input.Port); err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to update preview",
		})
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Preview updated",
	})
}

// DELETE /sandbox/instances/{id}
// ReleaseInstance godoc
// @Summary Release the registry's reference to a sandbox instance
// @Tags Sandbox
// @Produce json
// @Param id path string true "Instance ID"
// @Success 200 {object} utils.Payload
// @Router /api/v1/sandbox/instances/{id} [delete]
func ReleaseInstance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Missing instance id",
		})
		return
	}

	Terminals.StopInstanceSessions(r.Context(), id)
	Sandboxes.Release(r.Context(), id)

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Sandbox instance released",
	})
}

// POST /sandbox/files
// SandboxFileAction godoc
// @Summary Read, write or remove a path inside a sandbox instance
// @Tags Sandbox
// @Accept json
// @Produce json
// @Success 200 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/sandbox/files [post]
func SandboxFileAction(w http.ResponseWriter, r *http.Request) {
	type Input struct {
		Action     string `json:"action"`
		InstanceID string `json:"instanceId"`
		Path       string `json:"path"`
		Content    string `json:"content"`
		Encoding   string `json:"encoding"` // "utf-8" (default) or "base64"
	}
	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.InstanceID == "" || input.Path == "" {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "instanceId and path are required",
		})
		return
	}

	switch input.Action {
	case "read":
		content, err := Runtime.ReadFile(input.InstanceID, input.Path)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, sandbox.ErrInstanceNotFound) {
				status = http.StatusNotFound
			}
			utils.JSONResponse(w, status, utils.Payload{
				Success: false,
				Message: "Failed to read file",
			})
			return
		}
		utils.JSONResponse(w, http.StatusOK, utils.Payload{
			Success: true,
			Message: "File read",
			Data:    map[string]any{"content": string(content)},
		})

	case "write":
		content := []byte(input.Content)
		if input.Encoding == "base64" {
			decoded, err := base64.StdEncoding.DecodeString(input.Content)
			if err != nil {
				utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
					Success: false,
					Message: "Invalid base64 content",
				})
				return
			}
			content = decoded
		}
		if err := Runtime.WriteFile(input.InstanceID, input.Path, content); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, sandbox.ErrInstanceNotFound) {
				status = http.StatusNotFound
			}
			utils.JSONResponse(w, status, utils.Payload{
				Success: false,
				Message: "Failed to write file",
			})
			return
		}
		utils.JSONResponse(w, http.StatusOK, utils.Payload{
			Success: true,
			Message: "File written",
		})

	case "remove":
		if err := Runtime.RemoveFile(input.InstanceID, input.Path); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, sandbox.ErrInstanceNotFound) {
				status = http.StatusNotFound
			}
			utils.JSONResponse(w, status, utils.Payload{
				Success: false,
				Message: "Failed to remove file",
			})
			return
		}
		utils.JSONResponse(w, http.StatusOK, utils.Payload{
			Success: true,
			Message: "File removed",
		})

	default:
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Unknown sandbox file action",
		})
	}
}
