package commands

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/pantry/internal/core/recipe"
	"github.com/colonyops/pantry/internal/pantry"
	"github.com/colonyops/pantry/pkg/iojson"
)

type LsCmd struct {
	flags *Flags
	app   *pantry.App

	// flags
	jsonOutput bool
	sortBy     string
}

// NewLsCmd creates a new ls command
func NewLsCmd(flags *Flags, app *pantry.App) *LsCmd {
	return &LsCmd{flags: flags, app: app}
}

// Register adds the ls command to the application
func (cmd *LsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "ls",
		Usage:     "List all recipes",
		UsageText: "pantry ls [--json] [--sort title|updated|stored]",
		Description: `Displays a table of all recipes with their id, title, image count and last update.

Use --json for one JSON object per line.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
			&cli.StringFlag{
				Name:        "sort",
				Usage:       "sort order (title, updated, stored)",
				Value:       "stored",
				Destination: &cmd.sortBy,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *LsCmd) run(ctx context.Context, c *cli.Command) error {
	recipes, err := cmd.app.Recipes.GetRecipes(ctx)
	if err != nil {
		return fmt.Errorf("list recipes: %w", err)
	}

	if err := sortRecipes(recipes, cmd.sortBy); err != nil {
		return cli.Exit(err.Error(), exitValidation)
	}

	if cmd.jsonOutput {
		return iojson.WriteLines(c.Root().Writer, recipes)
	}

	if len(recipes) == 0 {
		_, _ = fmt.Fprintln(os.Stderr, "No recipes found")
		return nil
	}

	writeRecipeTable(c.Root().Writer, recipes)
	return nil
}

func sortRecipes(recipes []recipe.Recipe, by string) error {
	switch by {
	case "", "stored":
	case "title":
		slices.SortStableFunc(recipes, func(a, b recipe.Recipe) int {
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		})
	case "updated":
		slices.SortStableFunc(recipes, func(a, b recipe.Recipe) int {
			return b.UpdatedAt.Compare(a.UpdatedAt)
		})
	default:
		return fmt.Errorf("unknown sort order %q", by)
	}
	return nil
}
