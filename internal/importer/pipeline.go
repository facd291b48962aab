// Package importer turns decoded geospatial documents into parcels and runs
// whole import requests against the project and parcel stores.
package importer

import (
	"errors"
	"fmt"
	"sort"

	"github.com/paulmach/orb/geojson"
	"github.com/stwalsh4118/rowtrack/api/internal/geodoc"
	"github.com/stwalsh4118/rowtrack/api/internal/logger"
	"github.com/stwalsh4118/rowtrack/api/internal/models"
	"github.com/stwalsh4118/rowtrack/api/internal/normalize"
)

// Per-feature failures.
var (
	ErrNoGeometry      = errors.New("feature has no geometry")
	ErrInvalidGeometry = errors.New("feature geometry is not a GeoJSON geometry")
	ErrUnreadable      = errors.New("feature could not be read")
)

// Feature outcomes reported in the per-feature log event.
const (
	OutcomeExtracted     = "extracted"
	OutcomeSkipped       = "skipped"
	OutcomeQuotaExceeded = "quota_exceeded"
	OutcomeFailed        = "failed"
)

// Quota is the parcel allowance of the project being imported into.
type Quota struct {
	Limits models.SubscriptionLimits
	// Used is the number of parcels the project already holds.
	Used int
}

// Batch is the result of extracting every feature of a document.
type Batch struct {
	Parcels  []*models.Parcel
	Warnings []string
	Errors   []string
}

// Extractor builds canonical parcels from features.
type Extractor struct {
	catalog *normalize.Catalog
	profile normalize.Profile
	log     *logger.Logger
}

// NewExtractor creates an extractor resolving fields with catalog under profile.
func NewExtractor(catalog *normalize.Catalog, profile normalize.Profile, log *logger.Logger) *Extractor {
	return &Extractor{
		catalog: catalog,
		profile: profile,
		log:     log,
	}
}

// Extract builds the parcel for one feature at the given sequence.
// The geometry is carried over byte for byte.
func (e *Extractor) Extract(feature geodoc.Feature, projectID string, sequence int) (*models.Parcel, error) {
	parcel, _, err := e.extract(feature, projectID, sequence)
	return parcel, err
}

func (e *Extractor) extract(feature geodoc.Feature, projectID string, sequence int) (*models.Parcel, normalize.Expansion, error) {
	if feature.Err != nil {
		return nil, normalize.Expansion{}, fmt.Errorf("%w: %v", ErrUnreadable, feature.Err)
	}
	if !feature.HasGeometry() {
		return nil, normalize.Expansion{}, ErrNoGeometry
	}
	if _, err := geojson.UnmarshalGeometry(feature.Geometry); err != nil {
		return nil, normalize.Expansion{}, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}

	exp := normalize.Expand(feature.Properties, e.profile)
	if exp.Err != nil {
		e.log.Warn("Failed to unpack feature description", map[string]interface{}{
			"sequence": sequence,
			"error":    exp.Err.Error(),
		})
	}

	r := e.catalog.Resolve(exp.Properties)

	parcel := models.NewParcel(projectID, sequence)
	parcel.ParcelNumber = r.ParcelNumber
	parcel.PIN = r.PIN
	parcel.Owner = r.Owner
	parcel.OwnerAddress = r.OwnerAddress
	parcel.OwnerCity = r.OwnerCity
	parcel.OwnerState = r.OwnerState
	parcel.OwnerZip = r.OwnerZip
	parcel.LegalDesc = r.LegalDesc
	parcel.County = r.County
	parcel.Acreage = r.Acreage
	parcel.Geometry = append(models.Geometry(nil), feature.Geometry...)

	return parcel, exp, nil
}

// ExtractBatch extracts features in document order. The feature at 1-based
// position n gets sequence maxSequence+n whether or not it yields a parcel.
// Features without geometry are skipped with a warning; features that fail
// or no longer fit the quota are reported as errors and the batch goes on.
func (e *Extractor) ExtractBatch(features []geodoc.Feature, projectID string, maxSequence int, quota Quota) *Batch {
	batch := &Batch{
		Parcels:  []*models.Parcel{},
		Warnings: []string{},
		Errors:   []string{},
	}

	for i, feature := range features {
		n := i + 1
		sequence := maxSequence + n

		if feature.Err == nil && !feature.HasGeometry() {
			batch.Warnings = append(batch.Warnings, fmt.Sprintf("Feature %d: No geometry found, skipped", n))
			e.logFeature(n, sequence, OutcomeSkipped, feature, normalize.Expansion{}, nil, nil)
			continue
		}

		parcel, exp, err := e.safeExtract(feature, projectID, sequence)
		if err != nil {
			batch.Errors = append(batch.Errors, fmt.Sprintf("Feature %d: Failed to process", n))
			e.logFeature(n, sequence, OutcomeFailed, feature, exp, nil, err)
			continue
		}

		if quota.Limits.Reached(quota.Used + len(batch.Parcels)) {
			batch.Errors = append(batch.Errors, fmt.Sprintf(
				"Feature %d: Parcel limit reached. Your %s plan allows %d parcels per project.",
				n, quota.Limits.Tier, quota.Limits.ParcelLimitPerProject))
			e.logFeature(n, sequence, OutcomeQuotaExceeded, feature, exp, parcel, nil)
			continue
		}

		batch.Parcels = append(batch.Parcels, parcel)
		e.logFeature(n, sequence, OutcomeExtracted, feature, exp, parcel, nil)
	}

	return batch
}

// safeExtract turns a panic inside extraction into an error so one feature
// cannot take down the batch.
func (e *Extractor) safeExtract(feature geodoc.Feature, projectID string, sequence int) (parcel *models.Parcel, exp normalize.Expansion, err error) {
	defer func() {
		if r := recover(); r != nil {
			parcel = nil
			err = fmt.Errorf("panic during extraction: %v", r)
		}
	}()
	return e.extract(feature, projectID, sequence)
}

// logFeature emits the per-feature diagnostic event used to work out why a
// county's attributes did or did not map.
func (e *Extractor) logFeature(n, sequence int, outcome string, feature geodoc.Feature,
	exp normalize.Expansion, parcel *models.Parcel, err error) {
	keys := feature.Properties.Keys()
	sort.Strings(keys)

	fields := map[string]interface{}{
		"feature":       n,
		"sequence":      sequence,
		"outcome":       outcome,
		"property_keys": keys,
		"html_fields":   exp.HTMLFields,
		"profile":       e.profile.Name,
	}
	if parcel != nil {
		fields["geometry_type"] = parcel.Geometry.Type()
		fields["parcel_number"] = deref(parcel.ParcelNumber)
		fields["owner"] = deref(parcel.Owner)
		fields["county"] = deref(parcel.County)
		if parcel.Acreage != nil {
			fields["acreage"] = *parcel.Acreage
		}
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	if outcome == OutcomeExtracted {
		e.log.Debug("Feature processed", fields)
		return
	}
	e.log.Warn("Feature processed", fields)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
