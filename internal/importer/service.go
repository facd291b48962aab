package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stwalsh4118/rowtrack/api/internal/geodoc"
	"github.com/stwalsh4118/rowtrack/api/internal/logger"
	"github.com/stwalsh4118/rowtrack/api/internal/models"
	"github.com/stwalsh4118/rowtrack/api/internal/normalize"
	"github.com/stwalsh4118/rowtrack/api/internal/repository"
)

// Import-level errors. Any of them means no parcel was written.
var (
	ErrProjectNotFound = errors.New("project not found or unauthorized")
	ErrNoSubscription  = errors.New("no subscription found")
	ErrInvalidFile     = errors.New("invalid import file")
)

// Request is one uploaded file to import into a project.
type Request struct {
	Data      []byte
	FileName  string
	ProjectID string
	OwnerID   string
	// Profile names the import profile; empty selects the configured default.
	Profile string
}

// Service runs parcel imports.
type Service interface {
	// RunImport decodes the file, extracts a parcel per feature and persists
	// them. Returns ErrProjectNotFound, ErrNoSubscription or
	// normalize.ErrUnknownProfile before the file is read. Returns an error
	// wrapping ErrInvalidFile together with a failed report when the file
	// cannot be decoded. Per-feature and per-parcel problems never fail the
	// call; they are listed in the report.
	RunImport(ctx context.Context, req Request) (*models.ImportReport, error)
}

type service struct {
	repo           repository.ParcelRepository
	locker         ProjectLocker
	catalog        *normalize.Catalog
	defaultProfile string
	log            *logger.Logger
}

// NewService creates an import service.
func NewService(repo repository.ParcelRepository, locker ProjectLocker, catalog *normalize.Catalog,
	defaultProfile string, log *logger.Logger) Service {
	return &service{
		repo:           repo,
		locker:         locker,
		catalog:        catalog,
		defaultProfile: defaultProfile,
		log:            log,
	}
}

func (s *service) RunImport(ctx context.Context, req Request) (*models.ImportReport, error) {
	start := time.Now()

	profileName := req.Profile
	if profileName == "" {
		profileName = s.defaultProfile
	}
	profile, err := s.catalog.Profile(profileName)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.LockProject(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock project %s: %w", req.ProjectID, err)
	}
	defer unlock()

	project, err := s.repo.GetProjectWithParcelCount(ctx, req.ProjectID, req.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	if project == nil {
		s.log.Warn("Import into unknown project", map[string]interface{}{
			"project_id": req.ProjectID,
			"owner_id":   req.OwnerID,
		})
		return nil, ErrProjectNotFound
	}

	limits, err := s.repo.GetSubscriptionLimits(ctx, req.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	if limits == nil {
		return nil, ErrNoSubscription
	}

	doc, err := geodoc.Read(req.Data, req.FileName)
	if err != nil {
		s.log.Warn("Import file rejected", map[string]interface{}{
			"project_id": req.ProjectID,
			"file":       req.FileName,
			"error":      err.Error(),
		})
		report := models.FailedImportReport(geodoc.UserMessage(err), geodoc.Detail(err))
		return report, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	extractor := NewExtractor(s.catalog, profile, s.log.With(map[string]interface{}{
		"project_id": req.ProjectID,
		"file":       req.FileName,
	}))
	batch := extractor.ExtractBatch(doc.Features, req.ProjectID, project.MaxSequence, Quota{
		Limits: *limits,
		Used:   project.ParcelCount,
	})

	report := models.NewImportReport()
	report.Warnings = append(report.Warnings, batch.Warnings...)
	report.Errors = append(report.Errors, batch.Errors...)

	for _, parcel := range batch.Parcels {
		if err := s.repo.CreateParcel(ctx, parcel); err != nil {
			s.log.Error("Failed to create parcel", err, map[string]interface{}{
				"project_id": req.ProjectID,
				"sequence":   parcel.Sequence,
			})
			report.Errors = append(report.Errors, fmt.Sprintf("Failed to create parcel at sequence %d", parcel.Sequence))
			continue
		}
		report.ParcelsCreated++
	}

	report.Success = len(batch.Parcels) > 0
	if len(batch.Parcels) == 0 && len(report.Errors) == 0 {
		report.Errors = append(report.Errors, "No valid parcels found in file")
	}

	s.log.Info("Import completed", map[string]interface{}{
		"project_id":      req.ProjectID,
		"file":            req.FileName,
		"profile":         profile.Name,
		"archive_entry":   doc.Entry,
		"features":        len(doc.Features),
		"extracted":       len(batch.Parcels),
		"parcels_created": report.ParcelsCreated,
		"warnings":        len(report.Warnings),
		"errors":          len(report.Errors),
		"duration_ms":     time.Since(start).Milliseconds(),
	})

	return report, nil
}
