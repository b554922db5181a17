// Package sweep runs periodic background jobs.
package sweep

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Job is one periodic task.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Start runs every job once per interval until ctx is cancelled. Jobs run in
// order; a failing job is logged and does not stop the others. It blocks.
func Start(ctx context.Context, interval time.Duration, jobs ...Job) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, job := range jobs {
				if ctx.Err() != nil {
					return
				}
				if err := job.Run(ctx); err != nil {
					log.Debug().Err(err).Str("job", job.Name).Msg("sweep job failed")
				}
			}
		}
	}
}
