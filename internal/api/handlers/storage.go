package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rohittcodes/flashio-sub001/internal/models"
	"github.com/rohittcodes/flashio-sub001/internal/repositories"
	"github.com/rohittcodes/flashio-sub001/internal/storage"
	"github.com/rohittcodes/flashio-sub001/internal/utils"
)

type storageActionInput struct {
	Action    string `json:"action"`
	ProjectID string `json:"projectId"`

	// save-file / load-file
	FileName string `json:"fileName"`
	FilePath string `json:"filePath"`
	Content  string `json:"content"`

	// enable-sync / sync-project
	RepoName    string `json:"repoName"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"isPrivate"`
	AutoCommit  bool   `json:"autoCommit"`
}

func (in *storageActionInput) path() string {
	if in.FilePath != "" {
		return in.FilePath
	}
	return in.FileName
}

// POST /storage
// StorageAction godoc
// @Summary Dispatch a storage action (enable-sync, sync-project, save-file, load-file)
// @Tags Storage
// @Accept json
// @Produce json
// @Success 200 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Router /api/v1/storage [post]
func StorageAction(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{
			Success: false,
			Message: "Unauthorized",
		})
		return
	}

	var input storageActionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Action == "" || input.ProjectID == "" {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "action and projectId are required",
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

	switch input.Action {
	case "save-file":
		saveFileAction(w, r, projectID, userID, &input)
	case "load-file":
		loadFileAction(w, r, projectID, &input)
	case "enable-sync":
		enableSyncAction(w, projectID, &input)
	case "sync-project":
		syncProjectAction(w, r, projectID, &input)
	default:
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "Unknown storage action",
		})
	}
}

func saveFileAction(w http.ResponseWriter, r *http.Request, projectID, userID uuid.UUID, input *storageActionInput) {
	path := input.path()
	if path == "" {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "fileName or filePath is required",
		})
		return
	}

	file, err := Storage.Save(r.Context(), projectID, path, []byte(input.Content), storage.SaveMetadata{
		ModifiedBy: userID,
	})
	if err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to save file",
		})
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "File saved successfully",
		Data:    fileSummary(file.ID, file.Path, file.Size, string(file.StorageTier)),
	})
}

func loadFileAction(w http.ResponseWriter, r *http.Request, projectID uuid.UUID, input *storageActionInput) {
	path := input.path()
	if path == "" {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "fileName or filePath is required",
		})
		return
	}

	file, err := Storage.GetByPath(r.Context(), projectID, path)
	if err != nil {
		utils.JSONResponse(w, http.StatusNotFound, utils.Payload{
			Success: false,
			Message: "File not found",
		})
		return
	}

	res, err := Storage.Load(r.Context(), file.ID)
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

func enableSyncAction(w http.ResponseWriter, projectID uuid.UUID, input *storageActionInput) {
	if input.RepoName == "" {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "repoName is required",
		})
		return
	}

	result := repositories.DB.Model(&models.Project{}).
		Where("id = ?", projectID).
		Updates(map[string]interface{}{"sync_enabled": true, "git_hub_repo": input.RepoName})
	if result.Error != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to enable sync",
		})
		return
	}
	if result.RowsAffected == 0 {
		utils.JSONResponse(w, http.StatusNotFound, utils.Payload{
			Success: false,
			Message: "Project not found",
		})
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Remote sync enabled",
		Data:    map[string]any{"repoName": input.RepoName},
	})
}

func syncProjectAction(w http.ResponseWriter, r *http.Request, projectID uuid.UUID, input *storageActionInput) {
	if input.RepoName == "" {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "repoName is required",
		})
		return
	}

	result, err := Storage.SyncProjectToRemote(r.Context(), projectID, storage.SyncOptions{
		RepoName:    input.RepoName,
		Description: input.Description,
		IsPrivate:   input.IsPrivate,
		AutoCommit:  input.AutoCommit,
	})
	if err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Failed to sync project: " + err.Error(),
		})
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Project synced",
		Data:    result,
	})
}
