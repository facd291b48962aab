package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/stwalsh4118/rowtrack/api/internal/errors"
	"github.com/stwalsh4118/rowtrack/api/internal/middleware"
	"github.com/stwalsh4118/rowtrack/api/internal/models"
	"github.com/stwalsh4118/rowtrack/api/internal/services"
)

// ParcelHandler handles parcel-related HTTP requests.
type ParcelHandler struct {
	service services.ParcelService
}

// NewParcelHandler creates a new ParcelHandler instance.
func NewParcelHandler(service services.ParcelService) *ParcelHandler {
	return &ParcelHandler{
		service: service,
	}
}

// ProjectURI represents the path parameters of project-scoped routes.
type ProjectURI struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// ProjectParcelsResponse represents the response for the project parcel listing.
type ProjectParcelsResponse struct {
	Project *ProjectData    `json:"project"`
	Parcels []models.Parcel `json:"parcels"`
	Count   int             `json:"count"`
}

// ProjectData is the project summary returned alongside its parcels.
type ProjectData struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ParcelCount int    `json:"parcelCount"`
}

// ListByProject handles GET /api/v1/projects/:id/parcels endpoint.
// It returns the caller's project and its parcels in sequence order.
func (h *ParcelHandler) ListByProject(c *gin.Context) {
	log := middleware.GetLogger(c)

	// Owner comes from the verified token
	ownerID := middleware.GetOwnerID(c)
	if ownerID == "" {
		apierrors.Unauthorized(c, "Authentication required")
		return
	}

	// Bind and validate path parameters
	var uri ProjectURI
	if err := c.ShouldBindUri(&uri); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid project ID", nil)
		return
	}

	if log != nil {
		log.Debug("Listing project parcels", map[string]interface{}{
			"project_id": uri.ID,
		})
	}

	// Call service layer
	result, err := h.service.ListProjectParcels(c.Request.Context(), uri.ID, ownerID)
	if err != nil {
		// Handle service-level errors
		if errors.Is(err, services.ErrProjectNotFound) {
			apierrors.NotFound(c, "Project not found or unauthorized")
			return
		}
		apierrors.InternalServerError(c, "Failed to list parcels", err)
		return
	}

	// Always return an array, never null
	parcels := result.Parcels
	if parcels == nil {
		parcels = []models.Parcel{}
	}

	c.JSON(http.StatusOK, ProjectParcelsResponse{
		Project: mapProjectToDTO(result.Project),
		Parcels: parcels,
		Count:   len(parcels),
	})
}

// mapProjectToDTO drops the internal owner and sequence figures.
func mapProjectToDTO(project *models.Project) *ProjectData {
	if project == nil {
		return nil
	}
	return &ProjectData{
		ID:          project.ID,
		Name:        project.Name,
		ParcelCount: project.ParcelCount,
	}
}
