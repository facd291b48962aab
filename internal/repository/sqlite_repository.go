package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/stwalsh4118/rowtrack/api/internal/database"
	"github.com/stwalsh4118/rowtrack/api/internal/models"
)

// sqliteParcelRepository is the SQLite implementation of ParcelRepository.
type sqliteParcelRepository struct {
	db *database.SQLite
}

// NewSQLiteParcelRepository creates a SQLite backed ParcelRepository.
func NewSQLiteParcelRepository(db *database.SQLite) ParcelRepository {
	return &sqliteParcelRepository{
		db: db,
	}
}

func (r *sqliteParcelRepository) GetProjectWithParcelCount(ctx context.Context, projectID, ownerID string) (*models.Project, error) {
	var project models.Project
	err := r.db.GetContext(ctx, &project, r.db.Rebind(projectWithCountQuery), projectID, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query project %s: %w", projectID, err)
	}
	return &project, nil
}

func (r *sqliteParcelRepository) GetSubscriptionLimits(ctx context.Context, ownerID string) (*models.SubscriptionLimits, error) {
	var limits models.SubscriptionLimits
	err := r.db.GetContext(ctx, &limits, r.db.Rebind(subscriptionLimitsQuery), ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query subscription for owner %s: %w", ownerID, err)
	}
	return &limits, nil
}

func (r *sqliteParcelRepository) CreateParcel(ctx context.Context, parcel *models.Parcel) error {
	query := `
		INSERT INTO parcels (
			id, project_id, sequence, parcel_number, pin, owner, owner_address,
			owner_city, owner_state, owner_zip, legal_desc, county, acreage,
			status, geometry, created_at
		) VALUES (
			:id, :project_id, :sequence, :parcel_number, :pin, :owner, :owner_address,
			:owner_city, :owner_state, :owner_zip, :legal_desc, :county, :acreage,
			:status, :geometry, :created_at
		)
	`

	if _, err := r.db.NamedExecContext(ctx, query, parcel); err != nil {
		return fmt.Errorf("failed to insert parcel at sequence %d: %w", parcel.Sequence, err)
	}
	return nil
}

func (r *sqliteParcelRepository) ListByProject(ctx context.Context, projectID string) ([]models.Parcel, error) {
	parcels := []models.Parcel{}
	if err := r.db.SelectContext(ctx, &parcels, r.db.Rebind(listParcelsQuery), projectID); err != nil {
		return nil, fmt.Errorf("failed to query parcels for project %s: %w", projectID, err)
	}
	return parcels, nil
}
