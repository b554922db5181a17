package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// ContextHook copies recipe_id and job from the event's context onto the event.
type ContextHook struct{}

// Run adds contextual fields to the zerolog event.
func (h ContextHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == context.Background() || ctx == nil {
		return
	}

	if job := GetJob(ctx); job != "" {
		e.Str("job", job)
	}

	if id := GetRecipeID(ctx); id != "" {
		e.Str("recipe_id", id)
	}
}
