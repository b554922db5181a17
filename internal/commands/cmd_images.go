package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/pantry/internal/core/doctor"
	"github.com/colonyops/pantry/internal/core/styles"
	"github.com/colonyops/pantry/internal/pantry"
	"github.com/colonyops/pantry/pkg/iojson"
)

type ImagesCmd struct {
	flags *Flags
	app   *pantry.App

	jsonOutput bool
	output     string
}

// NewImagesCmd creates a new images command
func NewImagesCmd(flags *Flags, app *pantry.App) *ImagesCmd {
	return &ImagesCmd{flags: flags, app: app}
}

// Register adds the images command and its subcommands to the application
func (cmd *ImagesCmd) Register(app *cli.Command) *cli.Command {
	jsonFlag := func() cli.Flag {
		return &cli.BoolFlag{
			Name:        "json",
			Usage:       "output as JSON",
			Destination: &cmd.jsonOutput,
		}
	}

	app.Commands = append(app.Commands, &cli.Command{
		Name:  "images",
		Usage: "Image validation and cache maintenance",
		Commands: []*cli.Command{
			{
				Name:        "cleanup",
				Usage:       "Remove invalid image references from every recipe",
				Description: "Validates every image and rewrites recipes that reference invalid ones. Recipes that fail to update are reported and the command exits non-zero.",
				Flags:       []cli.Flag{jsonFlag()},
				Action:      cmd.runCleanup,
			},
			{
				Name:   "health",
				Usage:  "Report image validity without changing anything",
				Flags:  []cli.Flag{jsonFlag()},
				Action: cmd.runHealth,
			},
			{
				Name:   "preload",
				Usage:  "Fetch every valid image into the local cache",
				Flags:  []cli.Flag{jsonFlag()},
				Action: cmd.runPreload,
			},
			{
				Name:   "refresh",
				Usage:  "Clear all image caches and preload again",
				Flags:  []cli.Flag{jsonFlag()},
				Action: cmd.runRefresh,
			},
			{
				Name:        "migrate",
				Usage:       "Replace random placeholder URLs with seeded ones",
				Description: "Random placeholder URLs show a different image on every load. Each is rewritten to a stable seeded URL with the same size.",
				Flags:       []cli.Flag{jsonFlag()},
				Action:      cmd.runMigrate,
			},
			{
				Name:        "get",
				Usage:       "Print an image through the cache",
				UsageText:   "pantry images get [-o file] <uri>",
				Description: "Validates the URI, then loads it from memory, disk or the network and caches it on the way.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "output",
						Aliases:     []string{"o"},
						Usage:       "write the image to this file instead of stdout",
						Destination: &cmd.output,
					},
				},
				Action: cmd.runGet,
			},
			{
				Name:   "stats",
				Usage:  "Show validation and cache statistics",
				Flags:  []cli.Flag{jsonFlag()},
				Action: cmd.runStats,
			},
		},
	})

	return app
}

func (cmd *ImagesCmd) runCleanup(ctx context.Context, c *cli.Command) error {
	res, err := cmd.app.Maintenance.CleanupInvalidImages(ctx)
	if err != nil {
		return fmt.Errorf("cleanup images: %w", err)
	}

	if cmd.jsonOutput {
		if err := iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, res); err != nil {
			return err
		}
	} else {
		w := c.Root().Writer
		_, _ = fmt.Fprintf(w, "Scanned %d recipes, updated %d, removed %d images\n",
			res.RecordsScanned, res.RecordsUpdated, res.ImagesRemoved)
		writeFailures(w, res.Failures)
	}

	if res.Failed() {
		return cli.Exit("", 1)
	}
	return nil
}

func (cmd *ImagesCmd) runHealth(ctx context.Context, c *cli.Command) error {
	report, err := cmd.app.Maintenance.HealthReport(ctx)
	if err != nil {
		return fmt.Errorf("image health: %w", err)
	}

	if cmd.jsonOutput {
		return iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, report)
	}

	w := c.Root().Writer
	for _, rec := range report.Records {
		if rec.Invalid == 0 {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s %s %s\n", statusIcon(doctor.StatusWarn), rec.Title, styles.TextMutedStyle.Render(rec.ID))
		for _, uri := range rec.InvalidURIs {
			_, _ = fmt.Fprintf(w, "    %s\n", uri)
		}
	}
	_, _ = fmt.Fprintf(w, "%d of %d images valid across %d recipes (%d with issues)\n",
		report.ValidImages, report.TotalImages, report.TotalRecords, report.RecordsWithIssues)
	return nil
}

func (cmd *ImagesCmd) runPreload(ctx context.Context, c *cli.Command) error {
	n, err := cmd.app.Maintenance.PreloadAll(ctx)
	return cmd.writeCount(c, "preloaded", n, err)
}

func (cmd *ImagesCmd) runRefresh(ctx context.Context, c *cli.Command) error {
	n, err := cmd.app.Maintenance.RefreshCache(ctx)
	return cmd.writeCount(c, "preloaded", n, err)
}

func (cmd *ImagesCmd) runMigrate(ctx context.Context, c *cli.Command) error {
	res, err := cmd.app.Maintenance.MigratePlaceholderURLs(ctx)
	if err != nil {
		return fmt.Errorf("migrate placeholders: %w", err)
	}

	if cmd.jsonOutput {
		if err := iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, res); err != nil {
			return err
		}
	} else {
		w := c.Root().Writer
		_, _ = fmt.Fprintf(w, "Scanned %d recipes, updated %d, migrated %d URLs\n",
			res.RecordsScanned, res.RecordsUpdated, res.URLsMigrated)
		writeFailures(w, res.Failures)
	}

	if res.Failed() {
		return cli.Exit("", 1)
	}
	return nil
}

func (cmd *ImagesCmd) runGet(ctx context.Context, c *cli.Command) error {
	uri := strings.TrimSpace(c.Args().First())
	if uri == "" {
		return cli.Exit("image uri is required", exitValidation)
	}
	if !cmd.app.Images.IsValid(ctx, uri) {
		return cli.Exit(fmt.Sprintf("invalid image uri %q", uri), exitValidation)
	}

	data, err := cmd.app.Pipeline.Load(ctx, uri)
	if err != nil {
		return fmt.Errorf("load image: %w", err)
	}

	if cmd.output == "" {
		_, err = c.Root().Writer.Write(data)
		return err
	}
	return os.WriteFile(cmd.output, data, 0o644)
}

func (cmd *ImagesCmd) runStats(_ context.Context, c *cli.Command) error {
	out := struct {
		Validation any `json:"validation"`
		Cache      any `json:"cache"`
		Records    any `json:"records"`
	}{
		Validation: cmd.app.Images.Stats(),
		Cache:      cmd.app.Pipeline.Stats(),
		Records:    cmd.app.Recipes.Stats(),
	}
	return iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, out)
}

func (cmd *ImagesCmd) writeCount(c *cli.Command, label string, n int, err error) error {
	if cmd.jsonOutput {
		out := map[string]any{label: n}
		if err != nil {
			out["error"] = err.Error()
		}
		if werr := iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, out); werr != nil {
			return werr
		}
	} else {
		_, _ = fmt.Fprintf(c.Root().Writer, "%s %d images\n", label, n)
	}

	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	return nil
}

func writeFailures(w io.Writer, failures []pantry.RecordFailure) {
	for _, f := range failures {
		_, _ = fmt.Fprintf(w, "  %s %s %s\n", styles.TextErrorStyle.Render(styles.IconFail), f.ID, styles.TextMutedStyle.Render(f.Err.Error()))
	}
}
