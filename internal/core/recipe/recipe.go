// Package recipe defines the recipe domain type, its persisted form and the
// errors returned by recipe storage.
package recipe

import (
	"slices"
	"strings"
	"time"
)

// Recipe is the unit of persistence.
//
// ID is assigned at creation and never changes. CreatedAt is set on first
// persistence and preserved across updates. UpdatedAt moves forward on every
// successful write.
type Recipe struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Images      []string  `json:"images"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Clone returns a deep copy.
func (r Recipe) Clone() Recipe {
	r.Images = slices.Clone(r.Images)
	if r.Images == nil {
		r.Images = []string{}
	}
	return r
}

// WithImages returns a copy of r holding the given images.
func (r Recipe) WithImages(images []string) Recipe {
	c := r.Clone()
	c.Images = slices.Clone(images)
	if c.Images == nil {
		c.Images = []string{}
	}
	return c
}

// HasImage reports whether uri is one of the recipe's images.
func (r Recipe) HasImage(uri string) bool {
	return slices.Contains(r.Images, uri)
}

// Matches reports whether query appears in the title or description,
// ignoring case. An empty query matches everything.
func (r Recipe) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.Title), q) ||
		strings.Contains(strings.ToLower(r.Description), q)
}

// Collection is the full ordered set of stored recipes.
type Collection []Recipe

// Index returns the position of the recipe with the given id, or -1.
func (c Collection) Index(id string) int {
	return slices.IndexFunc(c, func(r Recipe) bool { return r.ID == id })
}

// Clone deep-copies every recipe.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	for i, r := range c {
		out[i] = r.Clone()
	}
	return out
}

// ImageCount returns the total number of image references.
func (c Collection) ImageCount() int {
	n := 0
	for _, r := range c {
		n += len(r.Images)
	}
	return n
}

// UniqueImages returns every image URI across the collection, first
// occurrence order, without duplicates.
func (c Collection) UniqueImages() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range c {
		for _, uri := range r.Images {
			if _, ok := seen[uri]; ok {
				continue
			}
			seen[uri] = struct{}{}
			out = append(out, uri)
		}
	}
	return out
}
