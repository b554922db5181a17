package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/pantry/internal/core/logging"
	"github.com/colonyops/pantry/internal/pantry"
	"github.com/colonyops/pantry/internal/pantry/sweep"
	"github.com/colonyops/pantry/pkg/profiler"
)

type MaintainCmd struct {
	flags *Flags
	app   *pantry.App

	once      bool
	debugAddr string
}

// NewMaintainCmd creates a new maintain command
func NewMaintainCmd(flags *Flags, app *pantry.App) *MaintainCmd {
	return &MaintainCmd{flags: flags, app: app}
}

// Register adds the maintain command to the application
func (cmd *MaintainCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "maintain",
		Usage:     "Run background maintenance until interrupted",
		UsageText: "pantry maintain [--once]",
		Description: `Every maintenance.interval the expired image validations are swept, and
when enabled in the config invalid images are cleaned up and random
placeholders migrated.

With storage.watch set, edits to the recipe file by other processes
invalidate the record cache as they happen.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "once",
				Usage:       "run every job once and exit",
				Destination: &cmd.once,
			},
			&cli.StringFlag{
				Name:        "debug-addr",
				Usage:       "serve pprof and /debug/status on this address (e.g. 127.0.0.1:6060)",
				Sources:     cli.EnvVars("PANTRY_DEBUG_ADDR"),
				Destination: &cmd.debugAddr,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *MaintainCmd) jobs() []sweep.Job {
	cfg := cmd.app.Config.Maintenance

	jobs := []sweep.Job{
		{
			Name: "validation-sweep",
			Run: func(context.Context) error {
				if n := cmd.app.Images.SweepExpired(); n > 0 {
					log.Debug().Int("removed", n).Msg("swept expired image validations")
				}
				return nil
			},
		},
	}

	if cfg.Cleanup {
		jobs = append(jobs, sweep.Job{
			Name: "image-cleanup",
			Run: func(ctx context.Context) error {
				res, err := cmd.app.Maintenance.CleanupInvalidImages(ctx)
				if err == nil && res.Failed() {
					err = fmt.Errorf("%d recipes failed cleanup", len(res.Failures))
				}
				return err
			},
		})
	}

	if cfg.Migrate {
		jobs = append(jobs, sweep.Job{
			Name: "placeholder-migrate",
			Run: func(ctx context.Context) error {
				res, err := cmd.app.Maintenance.MigratePlaceholderURLs(ctx)
				if err == nil && res.Failed() {
					err = fmt.Errorf("%d recipes failed migration", len(res.Failures))
				}
				return err
			},
		})
	}

	return jobs
}

func (cmd *MaintainCmd) run(ctx context.Context, _ *cli.Command) error {
	jobs := cmd.jobs()

	if cmd.once {
		var failed int
		for _, job := range jobs {
			if err := job.Run(ctx); err != nil {
				log.Error().Err(err).Str("job", job.Name).Msg("maintenance job failed")
				failed++
			}
		}
		if failed > 0 {
			return cli.Exit(fmt.Sprintf("%d maintenance jobs failed", failed), 1)
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cmd.debugAddr != "" {
		server := profiler.New(cmd.debugAddr, logging.Component("debug"))
		server.HandleJSON("/debug/status", cmd.status)
		if err := server.Start(ctx); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	log.Info().
		Dur("interval", cmd.app.Config.Maintenance.Interval).
		Int("jobs", len(jobs)).
		Bool("watching", cmd.app.Watcher != nil).
		Msg("maintenance started")
	_, _ = fmt.Fprintln(os.Stderr, "Maintenance running, press Ctrl+C to stop")

	sweep.Start(ctx, cmd.app.Config.Maintenance.Interval, jobs...)

	log.Info().Msg("maintenance stopped")
	return nil
}

// status is served at /debug/status while maintenance runs.
func (cmd *MaintainCmd) status(context.Context) any {
	return struct {
		Records    pantry.RepositoryStats `json:"records"`
		Validation any                    `json:"validation"`
		Cache      any                    `json:"cache"`
		Watching   bool                   `json:"watching"`
	}{
		Records:    cmd.app.Recipes.Stats(),
		Validation: cmd.app.Images.Stats(),
		Cache:      cmd.app.Pipeline.Stats(),
		Watching:   cmd.app.Watcher != nil,
	}
}
