package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/pantry/internal/commands"
	"github.com/colonyops/pantry/internal/core/config"
	"github.com/colonyops/pantry/internal/pantry"
	"github.com/colonyops/pantry/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	// Fall back to module build info for go install builds
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var (
		logCloser func()
		pantryApp = &pantry.App{}
	)

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "pantry",
		Usage:     "Keep a local recipe catalog and its images",
		UsageText: "pantry [global options] command [command options]",
		Description: `Pantry stores recipes locally, validates their image references and keeps
the images cached on disk.

Run 'pantry add' to save a recipe and 'pantry ls' to list them.
Run 'pantry doctor' to check storage and image health.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("PANTRY_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to <data-dir>/pantry.log, '-' for console)",
				Sources:     cli.EnvVars("PANTRY_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("PANTRY_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("PANTRY_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
			&cli.StringFlag{
				Name:        "storage",
				Usage:       "storage backend (file, sqlite, memory); overrides storage.backend",
				Destination: &flags.Storage,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logFile := flags.LogFile
			if logFile == "" {
				logFile = filepath.Join(flags.DataDir, "pantry.log")
			}

			logger, closer, err := logutils.New(flags.LogLevel, logFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			// Config-only commands report validation problems themselves.
			if !commands.NeedsApp(c.Args().First()) {
				cfg, err := config.Read(flags.ConfigPath, flags.DataDir)
				if err != nil {
					return ctx, fmt.Errorf("read config: %w", err)
				}
				if flags.Storage != "" {
					cfg.Storage.Backend = flags.Storage
				}
				flags.Config = cfg
				return ctx, nil
			}

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			if flags.Storage != "" {
				cfg.Storage.Backend = flags.Storage
				if err := cfg.Validate(); err != nil {
					return ctx, fmt.Errorf("invalid --storage: %w", err)
				}
			}
			flags.Config = cfg

			opened, err := pantry.Open(cfg, logger)
			if err != nil {
				return ctx, err
			}
			*pantryApp = *opened

			log.Debug().Str("backend", cfg.Storage.Backend).Str("data_dir", cfg.DataDir).Msg("pantry ready")
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if err := pantryApp.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close pantry")
				return err
			}

			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	app = commands.NewAddCmd(flags, pantryApp).Register(app)
	app = commands.NewLsCmd(flags, pantryApp).Register(app)
	app = commands.NewShowCmd(flags, pantryApp).Register(app)
	app = commands.NewSearchCmd(flags, pantryApp).Register(app)
	app = commands.NewUpdateCmd(flags, pantryApp).Register(app)
	app = commands.NewRmCmd(flags, pantryApp).Register(app)
	app = commands.NewClearCmd(flags, pantryApp).Register(app)
	app = commands.NewImagesCmd(flags, pantryApp).Register(app)
	app = commands.NewDoctorCmd(flags, pantryApp).Register(app)
	app = commands.NewMaintainCmd(flags, pantryApp).Register(app)
	app = commands.NewConfigValidateCmd(flags).Register(app)

	exitCode := 0
	runErr := app.Run(ctx, os.Args)
	if runErr != nil {
		fmt.Println()
		fmt.Println(runErr.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}
