package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/pantry/internal/pantry"
	"github.com/colonyops/pantry/pkg/iojson"
)

type ShowCmd struct {
	flags *Flags
	app   *pantry.App

	jsonOutput bool
}

// NewShowCmd creates a new show command
func NewShowCmd(flags *Flags, app *pantry.App) *ShowCmd {
	return &ShowCmd{flags: flags, app: app}
}

// Register adds the show command to the application
func (cmd *ShowCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:          "show",
		Usage:         "Show one recipe",
		UsageText:     "pantry show [--json] <id>",
		ShellComplete: RecipeIDCompleter(cmd.app),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ShowCmd) run(ctx context.Context, c *cli.Command) error {
	id := c.Args().First()
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

	if cmd.jsonOutput {
		return iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, rec)
	}

	writeRecipe(c.Root().Writer, rec)
	return nil
}
