package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/rowtrack/api/internal/logger"
	"github.com/stwalsh4118/rowtrack/api/internal/models"
)

// MockParcelRepository is a mock implementation of ParcelRepository for testing
type MockParcelRepository struct {
	mock.Mock
}

func (m *MockParcelRepository) GetProjectWithParcelCount(ctx context.Context, projectID, ownerID string) (*models.Project, error) {
	args := m.Called(ctx, projectID, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	project, ok := args.Get(0).(*models.Project)
	if !ok {
		return nil, args.Error(1)
	}
	return project, args.Error(1)
}

func (m *MockParcelRepository) GetSubscriptionLimits(ctx context.Context, ownerID string) (*models.SubscriptionLimits, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SubscriptionLimits), args.Error(1)
}

func (m *MockParcelRepository) CreateParcel(ctx context.Context, parcel *models.Parcel) error {
	args := m.Called(ctx, parcel)
	return args.Error(0)
}

func (m *MockParcelRepository) ListByProject(ctx context.Context, projectID string) ([]models.Parcel, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Parcel), args.Error(1)
}

const (
	projectID = "0b8c5f0e-5f5e-4d0b-9a53-1c2f6f0f5a01"
	ownerID   = "owner-42"
)

func TestListProjectParcels_Success(t *testing.T) {
	// Arrange
	mockRepo := new(MockParcelRepository)
	service := NewParcelService(mockRepo, logger.Nop())
	ctx := context.Background()

	owner := "SMITH JOHN"
	project := &models.Project{ID: projectID, OwnerID: ownerID, Name: "Route 29", ParcelCount: 2, MaxSequence: 2}
	parcels := []models.Parcel{
		{ID: "a", ProjectID: projectID, Sequence: 1, Owner: &owner, Status: models.StatusNotStarted},
		{ID: "b", ProjectID: projectID, Sequence: 2, Status: models.StatusAcquired},
	}

	mockRepo.On("GetProjectWithParcelCount", ctx, projectID, ownerID).Return(project, nil)
	mockRepo.On("ListByProject", ctx, projectID).Return(parcels, nil)

	// Act
	result, err := service.ListProjectParcels(ctx, projectID, ownerID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, project, result.Project)
	assert.Equal(t, parcels, result.Parcels)
	mockRepo.AssertExpectations(t)
}

func TestListProjectParcels_Empty(t *testing.T) {
	mockRepo := new(MockParcelRepository)
	service := NewParcelService(mockRepo, logger.Nop())
	ctx := context.Background()

	mockRepo.On("GetProjectWithParcelCount", ctx, projectID, ownerID).
		Return(&models.Project{ID: projectID, OwnerID: ownerID}, nil)
	mockRepo.On("ListByProject", ctx, projectID).Return([]models.Parcel{}, nil)

	result, err := service.ListProjectParcels(ctx, projectID, ownerID)

	require.NoError(t, err)
	assert.NotNil(t, result.Parcels)
	assert.Empty(t, result.Parcels)
}

func TestListProjectParcels_NotOwned(t *testing.T) {
	mockRepo := new(MockParcelRepository)
	service := NewParcelService(mockRepo, logger.Nop())
	ctx := context.Background()

	// Repository returns nil, nil when the project is not the caller's
	mockRepo.On("GetProjectWithParcelCount", ctx, projectID, "someone-else").Return(nil, nil)

	result, err := service.ListProjectParcels(ctx, projectID, "someone-else")

	assert.ErrorIs(t, err, ErrProjectNotFound)
	assert.Nil(t, result)
	// Parcels must not be read for a project the caller cannot see
	mockRepo.AssertNotCalled(t, "ListByProject", mock.Anything, mock.Anything)
}

func TestListProjectParcels_ProjectQueryError(t *testing.T) {
	mockRepo := new(MockParcelRepository)
	service := NewParcelService(mockRepo, logger.Nop())
	ctx := context.Background()

	dbErr := errors.New("connection reset")
	mockRepo.On("GetProjectWithParcelCount", ctx, projectID, ownerID).Return(nil, dbErr)

	result, err := service.ListProjectParcels(ctx, projectID, ownerID)

	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, ErrProjectNotFound)
	assert.Nil(t, result)
}

func TestListProjectParcels_ListError(t *testing.T) {
	mockRepo := new(MockParcelRepository)
	service := NewParcelService(mockRepo, logger.Nop())
	ctx := context.Background()

	dbErr := errors.New("scan failed")
	mockRepo.On("GetProjectWithParcelCount", ctx, projectID, ownerID).
		Return(&models.Project{ID: projectID, OwnerID: ownerID}, nil)
	mockRepo.On("ListByProject", ctx, projectID).Return(nil, dbErr)

	result, err := service.ListProjectParcels(ctx, projectID, ownerID)

	assert.ErrorIs(t, err, dbErr)
	assert.Contains(t, err.Error(), "failed to list parcels")
	assert.Nil(t, result)
}
