package commands

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/pantry/internal/core/validate"
	"github.com/colonyops/pantry/internal/pantry"
	"github.com/colonyops/pantry/pkg/iojson"
)

type UpdateCmd struct {
	flags *Flags
	app   *pantry.App

	title        string
	description  string
	images       []string
	addImages    []string
	removeImages []string
	jsonOutput   bool
}

// NewUpdateCmd creates a new update command
func NewUpdateCmd(flags *Flags, app *pantry.App) *UpdateCmd {
	return &UpdateCmd{flags: flags, app: app}
}

// Register adds the update command to the application
func (cmd *UpdateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:          "update",
		Usage:         "Update a recipe",
		UsageText:     "pantry update [options] <id>",
		Description:   "Changes the given fields of an existing recipe. Unset flags keep the stored value.",
		ShellComplete: RecipeIDCompleter(cmd.app),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "title",
				Aliases:     []string{"t"},
				Usage:       "new title",
				Destination: &cmd.title,
			},
			&cli.StringFlag{
				Name:        "description",
				Aliases:     []string{"d"},
				Usage:       "new description",
				Destination: &cmd.description,
			},
			&cli.StringSliceFlag{
				Name:        "image",
				Usage:       "replace all images (repeatable)",
				Destination: &cmd.images,
			},
			&cli.StringSliceFlag{
				Name:        "add-image",
				Usage:       "append an image (repeatable)",
				Destination: &cmd.addImages,
			},
			&cli.StringSliceFlag{
				Name:        "remove-image",
				Usage:       "remove an image (repeatable)",
				Destination: &cmd.removeImages,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the updated recipe as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *UpdateCmd) run(ctx context.Context, c *cli.Command) error {
	id := strings.TrimSpace(c.Args().First())
	if id == "" {
		return cli.Exit("recipe id is required", exitValidation)
	}

	rec, found, err := cmd.app.Recipes.GetRecipeByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get recipe: %w", err)
	}
	if !found {
		return cli.Exit(fmt.Sprintf("recipe %q not found", id), exitNotFound)
	}

	if c.IsSet("title") {
		rec.Title = strings.TrimSpace(cmd.title)
	}
	if c.IsSet("description") {
		rec.Description = strings.TrimSpace(cmd.description)
	}
	if c.IsSet("image") {
		rec.Images = trimAll(cmd.images)
	}
	for _, uri := range trimAll(cmd.addImages) {
		if !rec.HasImage(uri) {
			rec.Images = append(rec.Images, uri)
		}
	}
	if remove := trimAll(cmd.removeImages); len(remove) > 0 {
		rec.Images = slices.DeleteFunc(rec.Images, func(uri string) bool {
			return slices.Contains(remove, uri)
		})
	}

	if err := validate.Recipe(rec); err != nil {
		return cli.Exit(fmt.Sprintf("invalid recipe: %v", err), exitValidation)
	}

	updated, err := cmd.app.Recipes.UpdateRecipe(ctx, rec)
	if err != nil {
		return exitError(err)
	}

	if cmd.jsonOutput {
		return iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, updated)
	}
	_, _ = fmt.Fprintln(c.Root().Writer, updated.ID)
	return nil
}
