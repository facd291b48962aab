package models

import (
	"time"

	"github.com/google/uuid"
)

// ParcelStatus is the acquisition lifecycle state of a parcel.
type ParcelStatus string

// Parcel statuses. Imports always create parcels as StatusNotStarted;
// later transitions belong to the parcel management screens.
const (
	StatusNotStarted ParcelStatus = "NOT_STARTED"
	StatusInProgress ParcelStatus = "IN_PROGRESS"
	StatusAcquired   ParcelStatus = "ACQUIRED"
	StatusCondemned  ParcelStatus = "CONDEMNED"
	StatusRelocated  ParcelStatus = "RELOCATED"
)

// Parcel is the canonical right-of-way parcel record produced by an import.
// All nullable fields use pointers to distinguish between missing values and empty strings.
type Parcel struct {
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
	ParcelNumber *string      `db:"parcel_number" json:"parcelNumber"`
	PIN          *string      `db:"pin" json:"pin"`
	Owner        *string      `db:"owner" json:"owner"`
	OwnerAddress *string      `db:"owner_address" json:"ownerAddress"`
	OwnerCity    *string      `db:"owner_city" json:"ownerCity"`
	OwnerState   *string      `db:"owner_state" json:"ownerState"`
	OwnerZip     *string      `db:"owner_zip" json:"ownerZip"`
	LegalDesc    *string      `db:"legal_desc" json:"legalDesc"`
	County       *string      `db:"county" json:"county"`
	Acreage      *float64     `db:"acreage" json:"acreage"`
	ID           string       `db:"id" json:"id"`
	ProjectID    string       `db:"project_id" json:"projectId"`
	Status       ParcelStatus `db:"status" json:"status"`
	Geometry     Geometry     `db:"geometry" json:"geometry"`
	Sequence     int          `db:"sequence" json:"sequence"`
}

// NewParcel creates a parcel owned by projectID at the given sequence with a fresh ID
// and the default lifecycle status.
func NewParcel(projectID string, sequence int) *Parcel {
	return &Parcel{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Sequence:  sequence,
		Status:    StatusNotStarted,
		CreatedAt: time.Now().UTC(),
	}
}

// Project is the owning project of a set of parcels, with the aggregate figures
// needed for sequence numbering and quota checks.
type Project struct {
	ID          string `db:"id" json:"id"`
	OwnerID     string `db:"owner_id" json:"ownerId"`
	Name        string `db:"name" json:"name"`
	ParcelCount int    `db:"parcel_count" json:"parcelCount"`
	MaxSequence int    `db:"max_sequence" json:"maxSequence"`
}

// UnlimitedParcels marks a subscription tier without a per-project parcel cap.
const UnlimitedParcels = -1

// SubscriptionLimits holds the quota of the caller's subscription tier.
type SubscriptionLimits struct {
	Tier                  string `db:"tier" json:"tier"`
	ParcelLimitPerProject int    `db:"parcel_limit_per_project" json:"parcelLimitPerProject"`
}

// Reached reports whether a project holding count parcels has no room for another one.
func (l SubscriptionLimits) Reached(count int) bool {
	return l.ParcelLimitPerProject != UnlimitedParcels && count >= l.ParcelLimitPerProject
}
