// Package logging holds the zerolog helpers shared by every component.
package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Component returns the global logger tagged with a "cmp" field.
func Component(name string) zerolog.Logger {
	return Sub(log.Logger, name)
}

// Sub tags base with a "cmp" field. Components constructed with an explicit
// logger use this instead of Component.
func Sub(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("cmp", name).Logger()
}
