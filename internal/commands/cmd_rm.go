package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/pantry/internal/pantry"
)

type RmCmd struct {
	flags *Flags
	app   *pantry.App
}

// NewRmCmd creates a new rm command
func NewRmCmd(flags *Flags, app *pantry.App) *RmCmd {
	return &RmCmd{flags: flags, app: app}
}

// Register adds the rm command to the application
func (cmd *RmCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "rm",
		Usage:     "Delete recipes",
		UsageText: "pantry rm <id> [id...]",
		Description: `Deletes one or more recipes.

With a single id an unknown recipe is an error. With several ids unknown
ones are skipped and the number removed is printed.`,
		ShellComplete: RecipeIDCompleter(cmd.app),
		Action:        cmd.run,
	})

	return app
}

func (cmd *RmCmd) run(ctx context.Context, c *cli.Command) error {
	ids := trimAll(c.Args().Slice())
	switch len(ids) {
	case 0:
		return cli.Exit("at least one recipe id is required", exitValidation)
	case 1:
		if err := cmd.app.Recipes.DeleteRecipe(ctx, ids[0]); err != nil {
			return exitError(err)
		}
		_, _ = fmt.Fprintf(os.Stderr, "Deleted %s\n", ids[0])
		return nil
	}

	removed, err := cmd.app.Recipes.DeleteRecipes(ctx, ids)
	if err != nil {
		return exitError(err)
	}
	_, _ = fmt.Fprintf(os.Stderr, "Deleted %d of %d recipes\n", removed, len(ids))
	return nil
}
