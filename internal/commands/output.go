package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/pantry/internal/core/recipe"
	"github.com/colonyops/pantry/internal/core/styles"
)

// Exit codes for domain errors.
const (
	exitValidation = 2
	exitNotFound   = 3
	exitConflict   = 4
)

// exitError maps domain errors to exit codes. Other errors pass through.
func exitError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, recipe.ErrValidation):
		return cli.Exit(err.Error(), exitValidation)
	case errors.Is(err, recipe.ErrNotFound):
		return cli.Exit(err.Error(), exitNotFound)
	case errors.Is(err, recipe.ErrConflict):
		return cli.Exit(err.Error(), exitConflict)
	default:
		return err
	}
}

func writeRecipeTable(w io.Writer, recipes []recipe.Recipe) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tTITLE\tIMAGES\tUPDATED")
	for _, r := range recipes {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.ID, r.Title, len(r.Images), r.UpdatedAt.Local().Format(time.DateTime))
	}
	_ = tw.Flush()
}

func writeRecipe(w io.Writer, r recipe.Recipe) {
	_, _ = fmt.Fprintln(w, styles.TextPrimaryBoldStyle.Render(r.Title))
	_, _ = fmt.Fprintln(w, styles.TextMutedStyle.Render(r.ID))
	if r.Description != "" {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, r.Description)
	}
	_, _ = fmt.Fprintln(w)
	for _, uri := range r.Images {
		_, _ = fmt.Fprintf(w, "  %s\n", uri)
	}
	_, _ = fmt.Fprintf(w, "%s %s\n", styles.TextMutedStyle.Render("created"), r.CreatedAt.Local().Format(time.DateTime))
	_, _ = fmt.Fprintf(w, "%s %s\n", styles.TextMutedStyle.Render("updated"), r.UpdatedAt.Local().Format(time.DateTime))
}

// trimAll trims every value and drops the blank ones.
func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
