package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	apierrors "github.com/stwalsh4118/rowtrack/api/internal/errors"
	"github.com/stwalsh4118/rowtrack/api/internal/logger"
	"github.com/stwalsh4118/rowtrack/api/internal/middleware"
	"github.com/stwalsh4118/rowtrack/api/internal/models"
	"github.com/stwalsh4118/rowtrack/api/internal/services"
)

// MockParcelService is a mock implementation of services.ParcelService.
type MockParcelService struct {
	mock.Mock
}

func (m *MockParcelService) ListProjectParcels(ctx context.Context, projectID, ownerID string) (*services.ProjectParcels, error) {
	args := m.Called(ctx, projectID, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ProjectParcels), args.Error(1)
}

// setupParcelTestRouter creates a test router with middleware and parcel handlers.
func setupParcelTestRouter(handler *ParcelHandler, ownerID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger.Nop()))

	v1 := router.Group("/api/v1", withOwner(ownerID))
	{
		projects := v1.Group("/projects")
		{
			projects.GET("/:id/parcels", handler.ListByProject)
		}
	}

	return router
}

func TestParcelHandler_ListByProject(t *testing.T) {
	service := new(MockParcelService)
	handler := NewParcelHandler(service)
	router := setupParcelTestRouter(handler, testOwnerID)

	parcelNumber := "0042"
	acreage := 1234.5
	result := &services.ProjectParcels{
		Project: &models.Project{ID: testProjectID, OwnerID: testOwnerID, Name: "Route 29", ParcelCount: 2, MaxSequence: 5},
		Parcels: []models.Parcel{
			{
				ID:           "a",
				ProjectID:    testProjectID,
				Sequence:     1,
				ParcelNumber: &parcelNumber,
				Acreage:      &acreage,
				Status:       models.StatusNotStarted,
				Geometry:     models.Geometry(`{"type":"Point","coordinates":[-78.47,38.03]}`),
			},
			{ID: "b", ProjectID: testProjectID, Sequence: 5, Status: models.StatusNotStarted},
		},
	}
	service.On("ListProjectParcels", mock.Anything, testProjectID, testOwnerID).Return(result, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects/"+testProjectID+"/parcels", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Project ProjectData              `json:"project"`
		Parcels []map[string]interface{} `json:"parcels"`
		Count   int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	assert.Equal(t, ProjectData{ID: testProjectID, Name: "Route 29", ParcelCount: 2}, response.Project)
	assert.Equal(t, 2, response.Count)
	require.Len(t, response.Parcels, 2)

	first := response.Parcels[0]
	assert.Equal(t, "0042", first["parcelNumber"])
	assert.Equal(t, 1234.5, first["acreage"])
	assert.EqualValues(t, 1, first["sequence"])
	assert.Equal(t, "NOT_STARTED", first["status"])
	assert.Equal(t, map[string]interface{}{"type": "Point", "coordinates": []interface{}{-78.47, 38.03}}, first["geometry"])

	second := response.Parcels[1]
	assert.EqualValues(t, 5, second["sequence"])
	assert.Nil(t, second["geometry"])
	assert.Nil(t, second["owner"])

	assert.NotContains(t, w.Body.String(), "ownerId")
	service.AssertExpectations(t)
}

func TestParcelHandler_ListByProject_Empty(t *testing.T) {
	service := new(MockParcelService)
	handler := NewParcelHandler(service)
	router := setupParcelTestRouter(handler, testOwnerID)

	service.On("ListProjectParcels", mock.Anything, testProjectID, testOwnerID).
		Return(&services.ProjectParcels{Project: &models.Project{ID: testProjectID, Name: "Empty"}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects/"+testProjectID+"/parcels", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`{"project":{"id":"`+testProjectID+`","name":"Empty","parcelCount":0},"parcels":[],"count":0}`,
		w.Body.String())
}

func TestParcelHandler_ListByProject_Errors(t *testing.T) {
	tests := []struct {
		name           string
		ownerID        string
		projectID      string
		serviceErr     error
		callsService   bool
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "unauthenticated",
			ownerID:        "",
			projectID:      testProjectID,
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   apierrors.ErrUnauthorized,
		},
		{
			name:           "malformed project id",
			ownerID:        testOwnerID,
			projectID:      "route-29",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   apierrors.ErrValidation,
		},
		{
			name:           "project of another owner",
			ownerID:        testOwnerID,
			projectID:      testProjectID,
			serviceErr:     services.ErrProjectNotFound,
			callsService:   true,
			expectedStatus: http.StatusNotFound,
			expectedCode:   apierrors.ErrNotFound,
		},
		{
			name:           "store failure",
			ownerID:        testOwnerID,
			projectID:      testProjectID,
			serviceErr:     errors.New("failed to list parcels: connection reset"),
			callsService:   true,
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   apierrors.ErrInternalServer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockParcelService)
			handler := NewParcelHandler(service)
			router := setupParcelTestRouter(handler, tt.ownerID)

			if tt.callsService {
				service.On("ListProjectParcels", mock.Anything, tt.projectID, tt.ownerID).Return(nil, tt.serviceErr)
			}

			req := httptest.NewRequest(http.MethodGet, "/api/v1/projects/"+tt.projectID+"/parcels", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			response := decodeError(t, w)
			assert.Equal(t, tt.expectedCode, response.Error.Code)
			assert.NotEmpty(t, response.Error.RequestID)

			if tt.callsService {
				service.AssertExpectations(t)
			} else {
				service.AssertNotCalled(t, "ListProjectParcels", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestMapProjectToDTO(t *testing.T) {
	assert.Nil(t, mapProjectToDTO(nil))

	dto := mapProjectToDTO(&models.Project{ID: "p", OwnerID: "o", Name: "n", ParcelCount: 3, MaxSequence: 9})
	assert.Equal(t, &ProjectData{ID: "p", Name: "n", ParcelCount: 3}, dto)
}
