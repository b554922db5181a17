// Package validate provides shared validation functions for recipe input.
package validate

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/hay-kot/criterio"

	"github.com/colonyops/pantry/internal/core/recipe"
)

const (
	maxTitleLen = 200
	maxImages   = 50
)

var recipeIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Title validates a recipe title is non-empty after trimming whitespace.
func Title(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("title is required")
	}
	if len(title) > maxTitleLen {
		return fmt.Errorf("title must be at most %d characters", maxTitleLen)
	}
	return nil
}

// RecipeID validates a caller-supplied recipe id.
func RecipeID(id string) error {
	if id == "" {
		return fmt.Errorf("id is required")
	}
	if !recipeIDPattern.MatchString(id) {
		return fmt.Errorf("id must contain only letters, digits, '.', '_' or '-'")
	}
	return nil
}

// ImageURI validates that uri is an http(s) or file URI. It does not check
// that the image exists.
func ImageURI(uri string) error {
	u, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return fmt.Errorf("invalid uri: %w", err)
	}
	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return fmt.Errorf("uri %q has no host", uri)
		}
	case "file":
		if u.Path == "" {
			return fmt.Errorf("uri %q has no path", uri)
		}
	default:
		return fmt.Errorf("unsupported scheme in %q", uri)
	}
	return nil
}

// Recipe validates user input for a create or update.
func Recipe(r recipe.Recipe) error {
	var errs criterio.FieldErrorsBuilder

	if err := RecipeID(r.ID); err != nil {
		errs = errs.Append("id", err)
	}
	if err := Title(r.Title); err != nil {
		errs = errs.Append("title", err)
	}
	if len(r.Images) > maxImages {
		errs = errs.Append("images", fmt.Errorf("at most %d images allowed", maxImages))
	}
	for i, uri := range r.Images {
		if err := ImageURI(uri); err != nil {
			errs = errs.Append(fmt.Sprintf("images[%d]", i), err)
		}
	}

	return errs.ToError()
}

// TitleField returns a criterio validator for titles.
func TitleField(field, title string) error {
	return criterio.Run(field, title, Title)
}
