package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rohittcodes/flashio-sub001/internal/models"
	"github.com/rohittcodes/flashio-sub001/internal/repositories"
	"github.com/rohittcodes/flashio-sub001/internal/utils"
)

// POST /projects
// CreateProject godoc
// @Summary Create a project
// @Tags Projects
// @Accept json
// @Produce json
// @Success 201 {object} utils.Payload
// @Failure 400 {object} utils.Payload
// @Router /api/v1/projects [post]
func CreateProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{
			Success: false,
			Message: "Unauthorized",
		})
		return
	}

	type Input struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	var input Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Name == "" {
		utils.JSONResponse(w, http.StatusBadRequest, utils.Payload{
			Success: false,
			Message: "name is required",
		})
		return
	}

	project := models.Project{
		OwnerID:     userID,
		Name:        input.Name,
		Description: input.Description,
	}
	if err := repositories.DB.Create(&project).Error; err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Database insert failed",
		})
		return
	}

	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "Project created",
		Data:    project,
	})
}

// GET /projects
// ListProjects godoc
// @Summary List the caller's projects
// @Tags Projects
// @Produce json
// @Success 200 {object} utils.Payload
// @Router /api/v1/projects [get]
func ListProjects(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{
			Success: false,
			Message: "Unauthorized",
		})
		return
	}

	var projects []models.Project
	if err := repositories.DB.Where("owner_id = ?", userID).
		Order("updated_at desc").
		Find(&projects).Error; err != nil {
		utils.JSONResponse(w, http.StatusInternalServerError, utils.Payload{
			Success: false,
			Message: "Database query failed",
		})
		return
	}

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Projects retrieved successfully",
		Data:    map[string]any{"projects": projects},
	})
}
