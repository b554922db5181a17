package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/pantry/internal/pantry"
)

// RecipeIDCompleter returns a ShellCompleteFunc that suggests stored recipe
// ids as positional completions.
//
// When the user's last typed argument starts with "-", it falls back to the
// default flag completion behavior.
func RecipeIDCompleter(app *pantry.App) cli.ShellCompleteFunc {
	return func(ctx context.Context, cmd *cli.Command) {
		if args := cmd.Args(); args.Present() {
			last := args.Slice()[args.Len()-1]
			if len(last) > 0 && last[0] == '-' {
				cli.DefaultCompleteWithFlags(ctx, cmd)
				return
			}
		}

		// App is filled in by the root Before hook.
		if app == nil || app.Recipes == nil {
			return
		}

		recipes, err := app.Recipes.GetRecipes(ctx)
		if err != nil {
			return
		}

		w := cmd.Root().Writer
		for _, r := range recipes {
			_, _ = fmt.Fprintln(w, r.ID)
		}
	}
}
