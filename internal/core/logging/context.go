package logging

import "context"

type contextKey string

const (
	recipeIDKey contextKey = "recipe_id"
	jobKey      contextKey = "job"
)

// WithRecipeID adds a recipe ID to the context.
func WithRecipeID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, recipeIDKey, id)
}

// WithJob names the maintenance job running under ctx.
func WithJob(ctx context.Context, job string) context.Context {
	return context.WithValue(ctx, jobKey, job)
}

// GetRecipeID returns the recipe ID from ctx, or "".
func GetRecipeID(ctx context.Context) string {
	if id, ok := ctx.Value(recipeIDKey).(string); ok {
		return id
	}
	return ""
}

// GetJob returns the job name from ctx, or "".
func GetJob(ctx context.Context) string {
	if job, ok := ctx.Value(jobKey).(string); ok {
		return job
	}
	return ""
}
