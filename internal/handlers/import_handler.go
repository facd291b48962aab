package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/stwalsh4118/rowtrack/api/internal/errors"
	"github.com/stwalsh4118/rowtrack/api/internal/importer"
	"github.com/stwalsh4118/rowtrack/api/internal/middleware"
	"github.com/stwalsh4118/rowtrack/api/internal/normalize"
)

// uploadFormField is the multipart field carrying the parcel file.
const uploadFormField = "file"

// ImportHandler handles parcel file uploads.
type ImportHandler struct {
	service        importer.Service
	maxUploadBytes int64
}

// NewImportHandler creates a new ImportHandler. Request bodies larger than
// maxUploadBytes are rejected with 413.
func NewImportHandler(service importer.Service, maxUploadBytes int64) *ImportHandler {
	return &ImportHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
	}
}

// ImportRequest represents the non-file multipart fields of an upload.
type ImportRequest struct {
	ProjectID string `form:"projectId" binding:"required,uuid"`
	Profile   string `form:"profile" binding:"omitempty,max=64"`
}

// ImportParcels handles POST /api/v1/import/parcels.
// The body is an ImportReport for every outcome except request-level
// failures, which use the standard error envelope.
func (h *ImportHandler) ImportParcels(c *gin.Context) {
	log := middleware.GetLogger(c)

	ownerID := middleware.GetOwnerID(c)
	if ownerID == "" {
		apierrors.Unauthorized(c, "Authentication required")
		return
	}

	// Reject oversized uploads before reading the body
	if c.Request.ContentLength > h.maxUploadBytes {
		apierrors.PayloadTooLarge(c, h.maxUploadBytes)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fileHeader, err := c.FormFile(uploadFormField)
	if err != nil {
		if isTooLarge(err) {
			apierrors.PayloadTooLarge(c, h.maxUploadBytes)
			return
		}
		apierrors.BadRequest(c, "No file provided", nil)
		return
	}

	// Bind and validate form fields
	var req ImportRequest
	if err := c.ShouldBind(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			apierrors.ValidationError(c, validationErrors)
			return
		}
		apierrors.BadRequest(c, "Invalid form fields", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		apierrors.InternalServerError(c, "Failed to read uploaded file", err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		apierrors.InternalServerError(c, "Failed to read uploaded file", err)
		return
	}

	if log != nil {
		log.Info("Processing parcel import", map[string]interface{}{
			"project_id": req.ProjectID,
			"file":       fileHeader.Filename,
			"bytes":      len(data),
			"profile":    req.Profile,
		})
	}

	// Call service layer
	report, err := h.service.RunImport(c.Request.Context(), importer.Request{
		Data:      data,
		FileName:  fileHeader.Filename,
		ProjectID: req.ProjectID,
		OwnerID:   ownerID,
		Profile:   req.Profile,
	})
	if err != nil {
		// Handle service-level errors; a rejected file still gets its report
		switch {
		case errors.Is(err, importer.ErrInvalidFile) && report != nil:
			c.JSON(http.StatusBadRequest, report)
		case errors.Is(err, importer.ErrProjectNotFound):
			apierrors.NotFound(c, "Project not found or unauthorized")
		case errors.Is(err, importer.ErrNoSubscription):
			apierrors.BadRequest(c, "No subscription found", nil)
		case errors.Is(err, normalize.ErrUnknownProfile):
			apierrors.BadRequest(c, err.Error(), map[string]interface{}{"profile": req.Profile})
		default:
			apierrors.InternalServerError(c, "Failed to import parcels", err)
		}
		return
	}

	c.JSON(http.StatusOK, report)
}

// isTooLarge reports whether err came from the request body size cap.
func isTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}
