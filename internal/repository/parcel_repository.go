package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stwalsh4118/rowtrack/api/internal/database"
	"github.com/stwalsh4118/rowtrack/api/internal/models"
)

// ProjectStore reads the project and quota state an import starts from.
type ProjectStore interface {
	// GetProjectWithParcelCount returns the project if it belongs to ownerID,
	// with its current parcel count and highest sequence.
	// Returns nil, nil if no such project exists for the owner.
	GetProjectWithParcelCount(ctx context.Context, projectID, ownerID string) (*models.Project, error)

	// GetSubscriptionLimits returns the owner's subscription tier limits.
	// Returns nil, nil if the owner has no subscription.
	GetSubscriptionLimits(ctx context.Context, ownerID string) (*models.SubscriptionLimits, error)
}

// ParcelStore writes and lists parcels.
type ParcelStore interface {
	// CreateParcel inserts one parcel.
	CreateParcel(ctx context.Context, parcel *models.Parcel) error

	// ListByProject returns a project's parcels ordered by sequence.
	// Returns an empty slice if there are none.
	ListByProject(ctx context.Context, projectID string) ([]models.Parcel, error)
}

// ParcelRepository is the full store used by the import and parcel services.
type ParcelRepository interface {
	ProjectStore
	ParcelStore
}

// Queries shared by both stores, written with ? placeholders.
const (
	projectWithCountQuery = `
		SELECT
			p.id,
			p.owner_id,
			p.name,
			COUNT(pa.id) AS parcel_count,
			COALESCE(MAX(pa.sequence), 0) AS max_sequence
		FROM projects p
		LEFT JOIN parcels pa ON pa.project_id = p.id
		WHERE p.id = ? AND p.owner_id = ?
		GROUP BY p.id, p.owner_id, p.name
	`

	subscriptionLimitsQuery = `
		SELECT t.tier, t.parcel_limit_per_project
		FROM subscriptions s
		JOIN subscription_tiers t ON t.tier = s.tier
		WHERE s.owner_id = ?
	`

	listParcelsQuery = `
		SELECT
			id,
			project_id,
			sequence,
			parcel_number,
			pin,
			owner,
			owner_address,
			owner_city,
			owner_state,
			owner_zip,
			legal_desc,
			county,
			acreage,
			status,
			geometry,
			created_at
		FROM parcels
		WHERE project_id = ?
		ORDER BY sequence, created_at
	`
)

var (
	pgProjectWithCountQuery   = sqlx.Rebind(sqlx.DOLLAR, projectWithCountQuery)
	pgSubscriptionLimitsQuery = sqlx.Rebind(sqlx.DOLLAR, subscriptionLimitsQuery)
	pgListParcelsQuery        = sqlx.Rebind(sqlx.DOLLAR, listParcelsQuery)
)

// parcelRepository is the PostgreSQL implementation of ParcelRepository.
type parcelRepository struct {
	db *database.Database
}

// NewParcelRepository creates a PostgreSQL backed ParcelRepository.
func NewParcelRepository(db *database.Database) ParcelRepository {
	return &parcelRepository{
		db: db,
	}
}

// GetProjectWithParcelCount queries the project and aggregates its parcel
// count and highest sequence in one round trip.
func (r *parcelRepository) GetProjectWithParcelCount(ctx context.Context, projectID, ownerID string) (*models.Project, error) {
	var project models.Project
	err := r.db.Pool.QueryRow(ctx, pgProjectWithCountQuery, projectID, ownerID).Scan(
		&project.ID,
		&project.OwnerID,
		&project.Name,
		&project.ParcelCount,
		&project.MaxSequence,
	)
	if err != nil {
		// Handle no rows found - this is not an error at the repository level
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query project %s: %w", projectID, err)
	}

	return &project, nil
}

// GetSubscriptionLimits joins the owner's subscription to its tier limits.
func (r *parcelRepository) GetSubscriptionLimits(ctx context.Context, ownerID string) (*models.SubscriptionLimits, error) {
	var limits models.SubscriptionLimits
	err := r.db.Pool.QueryRow(ctx, pgSubscriptionLimitsQuery, ownerID).Scan(
		&limits.Tier,
		&limits.ParcelLimitPerProject,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query subscription for owner %s: %w", ownerID, err)
	}

	return &limits, nil
}

// CreateParcel inserts one parcel row. Optional attributes are stored as NULL.
func (r *parcelRepository) CreateParcel(ctx context.Context, parcel *models.Parcel) error {
	query := `
		INSERT INTO parcels (
			id, project_id, sequence, parcel_number, pin, owner, owner_address,
			owner_city, owner_state, owner_zip, legal_desc, county, acreage,
			status, geometry, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15::jsonb, $16)
	`

	// Geometry goes over the wire as text and is cast to jsonb server side.
	var geometry *string
	if !parcel.Geometry.IsEmpty() {
		s := string(parcel.Geometry)
		geometry = &s
	}

	_, err := r.db.Pool.Exec(ctx, query,
		parcel.ID,
		parcel.ProjectID,
		parcel.Sequence,
		parcel.ParcelNumber,
		parcel.PIN,
		parcel.Owner,
		parcel.OwnerAddress,
		parcel.OwnerCity,
		parcel.OwnerState,
		parcel.OwnerZip,
		parcel.LegalDesc,
		parcel.County,
		parcel.Acreage,
		string(parcel.Status),
		geometry,
		parcel.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert parcel at sequence %d: %w", parcel.Sequence, err)
	}
	return nil
}

// ListByProject queries all parcels of a project ordered by sequence.
func (r *parcelRepository) ListByProject(ctx context.Context, projectID string) ([]models.Parcel, error) {
	rows, err := r.db.Pool.Query(ctx, pgListParcelsQuery, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query parcels for project %s: %w", projectID, err)
	}
	defer rows.Close()

	// Scan rows into parcels
	parcels := []models.Parcel{}
	for rows.Next() {
		var parcel models.Parcel
		var status string
		var geomJSON []byte

		err := rows.Scan(
			&parcel.ID,
			&parcel.ProjectID,
			&parcel.Sequence,
			&parcel.ParcelNumber,
			&parcel.PIN,
			&parcel.Owner,
			&parcel.OwnerAddress,
			&parcel.OwnerCity,
			&parcel.OwnerState,
			&parcel.OwnerZip,
			&parcel.LegalDesc,
			&parcel.County,
			&parcel.Acreage,
			&status,
			&geomJSON,
			&parcel.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan parcel row: %w", err)
		}
		parcel.Status = models.ParcelStatus(status)

		// Parse GeoJSON geometry
		if err := parcel.Geometry.Scan(geomJSON); err != nil {
			return nil, fmt.Errorf("failed to parse geometry for parcel %s: %w", parcel.ID, err)
		}

		parcels = append(parcels, parcel)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating parcel rows: %w", err)
	}

	return parcels, nil
}
