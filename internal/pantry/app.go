package pantry

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/colonyops/pantry/internal/core/config"
	"github.com/colonyops/pantry/internal/core/imagecache"
	"github.com/colonyops/pantry/internal/core/kv"
	"github.com/colonyops/pantry/internal/core/logging"
	"github.com/colonyops/pantry/internal/data/db"
	"github.com/colonyops/pantry/internal/data/imgpipe"
	"github.com/colonyops/pantry/internal/data/stores"
)

// App is the central entry point for all pantry operations.
// Commands consume App instead of cherry-picking raw dependencies.
type App struct {
	Recipes     *Repository
	Images      *imagecache.Manager
	Pipeline    *imgpipe.Pipeline
	Maintenance *Maintenance
	Doctor      *DoctorService

	Config   *config.Config
	Document *kv.Document
	DB       *db.DB          // nil unless the sqlite backend is in use
	Watcher  *stores.Watcher // nil unless storage.watch is set on the file backend
}

// NewApp constructs an App from explicit dependencies.
func NewApp(
	repo *Repository,
	images *imagecache.Manager,
	pipeline *imgpipe.Pipeline,
	cfg *config.Config,
	doc *kv.Document,
	database *db.DB,
	logger zerolog.Logger,
) *App {
	maintenance := NewMaintenance(repo, images, MaintenanceOptions{
		Concurrency:     cfg.Maintenance.Concurrency,
		PlaceholderHost: cfg.Images.PlaceholderHost,
	}, logging.Sub(logger, "maintenance"))

	return &App{
		Recipes:     repo,
		Images:      images,
		Pipeline:    pipeline,
		Maintenance: maintenance,
		Doctor:      NewDoctorService(doc, maintenance, cfg, logging.Sub(logger, "doctor")),
		Config:      cfg,
		Document:    doc,
		DB:          database,
	}
}

// Open builds the storage medium selected by cfg and wires every service on
// top of it. Close releases what Open acquired.
func Open(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	medium, database, err := openMedium(cfg, logger)
	if err != nil {
		return nil, err
	}

	doc := kv.NewDocument(medium, cfg.Storage.Key)
	repo := NewRepository(doc, RepositoryOptions{CacheTTL: cfg.Cache.RecordTTL}, logging.Sub(logger, "repository"))

	pipelineLog := logging.Sub(logger, "imgpipe")
	pipeline, err := imgpipe.New(imgpipe.Options{
		Dir:           cfg.Images.CacheDir,
		MemoryEntries: cfg.Images.MemoryEntries,
		Concurrency:   cfg.Images.PreloadConcurrency,
		MaxBytes:      cfg.Images.MaxBytes,
		UserAgent:     cfg.Images.UserAgent,
		OnError: func(uri string, err error) {
			pipelineLog.Warn().Err(err).Str("uri", uri).Msg("image failed to load")
		},
	}, pipelineLog)
	if err != nil {
		closeDB(database)
		return nil, fmt.Errorf("open image pipeline: %w", err)
	}

	checker := imagecache.NewHeadChecker(cfg.Images.UserAgent, http.DefaultClient)
	images := imagecache.NewManager(imagecache.Config{
		TTL:            cfg.Images.ValidationTTL,
		Capacity:       cfg.Images.ValidationCapacity,
		CheckTimeout:   cfg.Images.CheckTimeout,
		TrustedDomains: cfg.Images.TrustedDomains,
	}, checker, pipeline, logging.Sub(logger, "imagecache"))

	app := NewApp(repo, images, pipeline, cfg, doc, database, logger)

	if fs, ok := medium.(*stores.FileStore); ok && cfg.Storage.Watch {
		w, err := stores.NewWatcher(fs, logging.Sub(logger, "watcher"))
		if err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("watch storage: %w", err)
		}
		w.OnChange(cfg.Storage.Key, repo.InvalidateCache)
		app.Watcher = w
	}

	return app, nil
}

// Close stops the watcher and closes the pipeline and database.
func (a *App) Close() error {
	var errs []error
	if a.Watcher != nil {
		errs = append(errs, a.Watcher.Close())
	}
	if a.Pipeline != nil {
		errs = append(errs, a.Pipeline.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func openMedium(cfg *config.Config, logger zerolog.Logger) (kv.Medium, *db.DB, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return stores.NewMemoryStore(), nil, nil
	case config.BackendSQLite:
		opts := db.OpenOptions{
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
			BusyTimeout:  cfg.Database.BusyTimeout,
		}

		database, err := db.Open(cfg.DataDir, opts)
		if err != nil && stores.IsCorruptionError(err) {
			logger.Warn().Err(err).Msg("database corrupted, moving it aside")
			if rerr := stores.RecoverFromCorruption(cfg.DataDir); rerr != nil {
				return nil, nil, fmt.Errorf("recover database: %w", rerr)
			}
			database, err = db.Open(cfg.DataDir, opts)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		return stores.NewKVStore(database), database, nil
	default:
		return stores.NewFileStore(cfg.StorageDir()), nil, nil
	}
}

func closeDB(database *db.DB) {
	if database != nil {
		_ = database.Close()
	}
}
