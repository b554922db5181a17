package pantry

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/colonyops/pantry/internal/core/config"
	"github.com/colonyops/pantry/internal/core/doctor"
	"github.com/colonyops/pantry/internal/core/kv"
)

// DoctorService runs health checks over the pantry setup.
type DoctorService struct {
	doc         *kv.Document
	maintenance *Maintenance
	config      *config.Config
	logger      zerolog.Logger
}

// NewDoctorService creates a new DoctorService.
func NewDoctorService(doc *kv.Document, maintenance *Maintenance, cfg *config.Config, logger zerolog.Logger) *DoctorService {
	return &DoctorService{
		doc:         doc,
		maintenance: maintenance,
		config:      cfg,
		logger:      logger,
	}
}

// RunChecks executes all doctor checks and returns results. With autofix,
// invalid images are removed before the images check runs.
func (d *DoctorService) RunChecks(ctx context.Context, configPath string, autofix bool) []doctor.Result {
	if autofix {
		res, err := d.maintenance.CleanupInvalidImages(ctx)
		if err != nil {
			d.logger.Warn().Err(err).Msg("doctor autofix: image cleanup failed")
		} else {
			d.logger.Info().Int("images_removed", res.ImagesRemoved).Msg("doctor autofix: image cleanup")
		}
	}

	checks := []doctor.Check{
		doctor.NewConfigCheck(d.config, configPath),
		doctor.NewStorageCheck(d.doc),
		doctor.NewImagesCheck(d.imageHealth),
	}
	return doctor.RunAll(ctx, checks)
}

func (d *DoctorService) imageHealth(ctx context.Context) (doctor.ImageHealth, error) {
	report, err := d.maintenance.HealthReport(ctx)
	if err != nil {
		return doctor.ImageHealth{}, err
	}
	return doctor.ImageHealth{
		Records:           report.TotalRecords,
		Images:            report.TotalImages,
		Invalid:           report.InvalidImages,
		RecordsWithIssues: report.RecordsWithIssues,
	}, nil
}
