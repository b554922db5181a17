package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/pantry/internal/pantry"
)

type ClearCmd struct {
	flags *Flags
	app   *pantry.App

	yes bool
}

// NewClearCmd creates a new clear command
func NewClearCmd(flags *Flags, app *pantry.App) *ClearCmd {
	return &ClearCmd{flags: flags, app: app}
}

// Register adds the clear command to the application
func (cmd *ClearCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "clear",
		Usage:       "Delete every recipe",
		UsageText:   "pantry clear --yes",
		Description: "Removes the stored recipe document. Cached images are kept; use 'pantry images refresh' to drop them.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "yes",
				Aliases:     []string{"y"},
				Usage:       "confirm deletion",
				Destination: &cmd.yes,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ClearCmd) run(ctx context.Context, _ *cli.Command) error {
	if !cmd.yes {
		return cli.Exit("refusing to delete every recipe without --yes", exitValidation)
	}

	if err := cmd.app.Recipes.ClearAllRecipes(ctx); err != nil {
		return exitError(err)
	}
	_, _ = fmt.Fprintln(os.Stderr, "All recipes deleted")
	return nil
}
