package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/stwalsh4118/rowtrack/api/internal/logger"
	"github.com/stwalsh4118/rowtrack/api/internal/models"
	"github.com/stwalsh4118/rowtrack/api/internal/repository"
)

// Service-level errors
var (
	ErrProjectNotFound = errors.New("project not found or unauthorized")
)

// ProjectParcels is a project together with its parcels in sequence order.
type ProjectParcels struct {
	Project *models.Project
	Parcels []models.Parcel
}

// ParcelService defines the interface for parcel read operations.
type ParcelService interface {
	// ListProjectParcels returns the parcels of a project owned by ownerID.
	// Returns ErrProjectNotFound if the project does not exist or belongs to
	// someone else. Returns an empty slice if the project has no parcels.
	ListProjectParcels(ctx context.Context, projectID, ownerID string) (*ProjectParcels, error)
}

// parcelService is the concrete implementation of ParcelService.
type parcelService struct {
	repo repository.ParcelRepository
	log  *logger.Logger
}

// NewParcelService creates a new instance of ParcelService.
func NewParcelService(repo repository.ParcelRepository, log *logger.Logger) ParcelService {
	return &parcelService{
		repo: repo,
		log:  log,
	}
}

// ListProjectParcels checks ownership through the project lookup before
// reading any parcel rows.
func (s *parcelService) ListProjectParcels(ctx context.Context, projectID, ownerID string) (*ProjectParcels, error) {
	// Query project scoped to the owner
	project, err := s.repo.GetProjectWithParcelCount(ctx, projectID, ownerID)
	if err != nil {
		s.log.Error("Failed to query project", err, map[string]interface{}{
			"project_id": projectID,
		})
		return nil, fmt.Errorf("failed to query project: %w", err)
	}

	// Repository returns nil, nil when no project matches - transform to domain error
	if project == nil {
		s.log.Debug("Project not found for owner", map[string]interface{}{
			"project_id": projectID,
			"owner_id":   ownerID,
		})
		return nil, ErrProjectNotFound
	}

	// Query parcels in sequence order
	parcels, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		s.log.Error("Failed to list parcels", err, map[string]interface{}{
			"project_id": projectID,
		})
		return nil, fmt.Errorf("failed to list parcels: %w", err)
	}

	// Success - log and return parcels
	s.log.Info("Listed project parcels", map[string]interface{}{
		"project_id": projectID,
		"count":      len(parcels),
	})

	return &ProjectParcels{Project: project, Parcels: parcels}, nil
}
