package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/pantry/internal/core/recipe"
	"github.com/colonyops/pantry/internal/pantry"
	"github.com/colonyops/pantry/pkg/iojson"
)

type SearchCmd struct {
	flags *Flags
	app   *pantry.App

	jsonOutput bool
	withImages bool
}

// NewSearchCmd creates a new search command
func NewSearchCmd(flags *Flags, app *pantry.App) *SearchCmd {
	return &SearchCmd{flags: flags, app: app}
}

// Register adds the search command to the application
func (cmd *SearchCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "search",
		Usage:       "Search recipes by title or description",
		UsageText:   "pantry search [--json] [--with-images] <query>",
		Description: "Matches the query case-insensitively against titles and descriptions.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
			&cli.BoolFlag{
				Name:        "with-images",
				Usage:       "only recipes that have at least one image",
				Destination: &cmd.withImages,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *SearchCmd) run(ctx context.Context, c *cli.Command) error {
	query := strings.Join(c.Args().Slice(), " ")

	recipes, err := cmd.app.Recipes.SearchRecipes(ctx, func(r recipe.Recipe) bool {
		return r.Matches(query) && (!cmd.withImages || len(r.Images) > 0)
	})
	if err != nil {
		return fmt.Errorf("search recipes: %w", err)
	}

	if cmd.jsonOutput {
		return iojson.WriteLines(c.Root().Writer, recipes)
	}

	if len(recipes) == 0 {
		_, _ = fmt.Fprintln(os.Stderr, "No matching recipes")
		return nil
	}

	writeRecipeTable(c.Root().Writer, recipes)
	return nil
}
