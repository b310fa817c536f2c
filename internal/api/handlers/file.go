package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rohittcodes/flashio-sub001/internal/storage"
	"github.com/rohittcodes/flashio-sub001/internal/utils"
)

func fileSummary(id uuid.UUID, path string, size int64, tier string) map[string]any {
	return map[string]any{
		"id":          id,
		"path":        path,
		"size":        size,
		"storageTier": tier,
	}
}

// GET /files/{id}
// GetFile godoc
// @Summary Load a file's content and metadata
// @Tags Files
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/files/{id} [get]
func GetFile(w http.ResponseWriter, r *http.Request) {
	fileID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Invalid file id",
		})
		return
	}

	res, err := Storage.Load(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			utils.JSONResponse(w, http.StatusNotFound, utils.Payload{
				Success: false,
				Message: "File not found",
			})
			return
		}
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to load file",
		})
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "File loaded",
		Data: map[string]any{
			"file":               res.File,
			"content":            string(res.Content),
			"contentUnavailable": res.ContentUnavailable,
		},
	})
}

// GET /files?projectId=...
// ListProjectFiles godoc
// @Summary List all file metadata for a project
// @Tags Files
// @Produce json
// @Param projectId query string true "Project ID"
// @Success 200 {object} utils.Payload
// @Router /api/v1/files [get]
func ListProjectFiles(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(r.URL.Query().Get("projectId"))
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Missing or invalid projectId",
		})
		return
	}

	files, err := Storage.ListProject(r.Context(), projectID)
	if err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to list files",
		})
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Files retrieved successfully",
		Data:    map[string]any{"files": files},
	})
}

// POST /files
// CreateFile godoc
// @Summary Create a file in a project
// @Tags Files
// @Accept json
// @Produce json
// @Success 201 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Router /api/v1/files [post]
func CreateFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{
			Success: false,
			Message: "Unauthorized",
		})
		return
	}

	type Input struct {
		ProjectID   string `json:"projectId"`
		Path        string `json:"path"`
		Content     string `json:"content"`
		IsDirectory bool   `json:"isDirectory"`
	}
	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.ProjectID == "" || input.Path == "" {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "projectId and path are required",
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

	file, err := Storage.Save(r.Context(), projectID, input.Path, []byte(input.Content), storage.SaveMetadata{
		IsDirectory: input.IsDirectory,
		ModifiedBy:  userID,
	})
	if err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to store file",
		})
		return
	}

	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "File saved successfully",
		Data:    fileSummary(file.ID, file.Path, file.Size, string(file.StorageTier)),
	})
}

// PUT /files/{id}
// UpdateFile godoc
// @Summary Update a file's content
// @Tags Files
// @Accept json
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/files/{id} [put]
func UpdateFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{
			Success: false,
			Message: "Unauthorized",
		})
		return
	}

	fileID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Invalid file id",
		})
		return
	}

	type Input struct {
		Content string `json:"content"`
	}
	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Invalid input",
		})
		return
	}

	file, err := Storage.Update(r.Context(), fileID, []byte(input.Content), userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			utils.JSONResponse(w, http.StatusNotFound, utils.Payload{
				Success: false,
				Message: "File not found",
			})
			return
		}
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to update file",
		})
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "File updated successfully",
		Data:    fileSummary(file.ID, file.Path, file.Size, string(file.StorageTier)),
	})
}

// DELETE /files/{id}
// DeleteFile godoc
// @Summary Delete a file and its stored content
// @Tags Files
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} utils.Payload
// @Failure 404 {object} utils.Payload
// @Router /api/v1/files/{id} [delete]
func DeleteFile(w http.ResponseWriter, r *http.Request) {
	fileID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Invalid file id",
		})
		return
	}

	if err := Storage.Delete(r.Context(), fileID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			utils.JSONResponse(w, http.StatusNotFound, utils.Payload{
				Success: false,
				Message: "File not found",
			})
			return
		}
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to delete file",
		})
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "File deleted successfully",
	})
}
