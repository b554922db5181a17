package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/pantry/internal/core/placeholder"
	"github.com/colonyops/pantry/internal/core/recipe"
	"github.com/colonyops/pantry/internal/core/validate"
	"github.com/colonyops/pantry/internal/pantry"
	"github.com/colonyops/pantry/pkg/iojson"
)

type AddCmd struct {
	flags *Flags
	app   *pantry.App

	// flags
	id          string
	description string
	images      []string
	placeholder bool
	fromJSON    bool
	jsonOutput  bool
	input       iojson.FileReader[recipe.Recipe]
}

// NewAddCmd creates a new add command
func NewAddCmd(flags *Flags, app *pantry.App) *AddCmd {
	return &AddCmd{flags: flags, app: app}
}

// Register adds the add command to the application
func (cmd *AddCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "add",
		Usage:     "Add a recipe",
		UsageText: "pantry add [options] <title>\n   pantry add --from-json [-f recipe.json]",
		Description: `Saves a new recipe. The id defaults to a random UUID.

With --from-json the whole recipe is read as JSON from --file or stdin and
the positional title is not used.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "id",
				Usage:       "recipe id (defaults to a random UUID)",
				Destination: &cmd.id,
			},
			&cli.StringFlag{
				Name:        "description",
				Aliases:     []string{"d"},
				Usage:       "recipe description",
				Destination: &cmd.description,
			},
			&cli.StringSliceFlag{
				Name:        "image",
				Aliases:     []string{"i"},
				Usage:       "image URI (repeatable)",
				Destination: &cmd.images,
			},
			&cli.BoolFlag{
				Name:        "placeholder",
				Usage:       "add a seeded placeholder image when no image is given",
				Destination: &cmd.placeholder,
			},
			&cli.BoolFlag{
				Name:        "from-json",
				Usage:       "read the recipe as JSON",
				Destination: &cmd.fromJSON,
			},
			cmd.input.Flag(),
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the saved recipe as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *AddCmd) run(ctx context.Context, c *cli.Command) error {
	rec, err := cmd.recipe(c)
	if err != nil {
		return err
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if len(rec.Images) == 0 && cmd.placeholder {
		rec.Images = []string{placeholder.ForRecipe(rec.ID, 800, 600, cmd.flags.Config.Images.PlaceholderHost)}
	}

	if err := validate.Recipe(rec); err != nil {
		return cli.Exit(fmt.Sprintf("invalid recipe: %v", err), exitValidation)
	}

	saved, err := cmd.app.Recipes.SaveRecipe(ctx, rec)
	if err != nil {
		return exitError(err)
	}

	if cmd.jsonOutput {
		return iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, saved)
	}
	_, _ = fmt.Fprintln(c.Root().Writer, saved.ID)
	return nil
}

func (cmd *AddCmd) recipe(c *cli.Command) (recipe.Recipe, error) {
	if cmd.fromJSON {
		rec, err := cmd.input.Read()
		if err != nil {
			return recipe.Recipe{}, cli.Exit(err.Error(), exitValidation)
		}
		rec.ID = strings.TrimSpace(rec.ID)
		rec.Images = trimAll(rec.Images)
		return rec, nil
	}

	title := strings.Join(c.Args().Slice(), " ")
	return recipe.Recipe{
		ID:          strings.TrimSpace(cmd.id),
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(cmd.description),
		Images:      trimAll(cmd.images),
	}, nil
}
