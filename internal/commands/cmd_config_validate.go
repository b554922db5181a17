package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/pantry/internal/core/config"
	"github.com/colonyops/pantry/internal/core/styles"
)

type ConfigValidateCmd struct {
	flags  *Flags
	format string
}

// NewConfigValidateCmd creates a new config validate command.
func NewConfigValidateCmd(flags *Flags) *ConfigValidateCmd {
	return &ConfigValidateCmd{flags: flags}
}

// Register adds the config validate command to the application.
func (cmd *ConfigValidateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Validate configuration file",
				UsageText:   "pantry config validate [options]",
				Description: "Validates the configuration file, trusted domain patterns and directories.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       "text",
						Destination: &cmd.format,
					},
				},
				Action: cmd.run,
			},
		},
	})

	return app
}

type configError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (cmd *ConfigValidateCmd) run(_ context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config
	errs := fieldErrors(cfg.ValidateDeep(cmd.flags.ConfigPath))
	warnings := cfg.Warnings()

	if cmd.format == "json" {
		out := struct {
			Valid    bool                       `json:"valid"`
			Errors   []configError              `json:"errors,omitempty"`
			Warnings []config.ValidationWarning `json:"warnings,omitempty"`
		}{
			Valid:    len(errs) == 0,
			Errors:   errs,
			Warnings: warnings,
		}

		enc := json.NewEncoder(c.Root().Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	} else {
		w := os.Stderr
		for _, warn := range warnings {
			_, _ = fmt.Fprintf(w, "%s %s: %s\n", styles.TextWarningStyle.Render(styles.IconWarn), warn.Category, warn.Message)
			if warn.Item != "" {
				_, _ = fmt.Fprintf(w, "  Item: %s\n", warn.Item)
			}
		}
		for _, e := range errs {
			_, _ = fmt.Fprintf(w, "%s %s: %s\n", styles.TextErrorStyle.Render(styles.IconFail), e.Field, e.Message)
		}

		_, _ = fmt.Fprintln(w)
		if len(errs) == 0 {
			_, _ = fmt.Fprintln(w, styles.TextSuccessStyle.Render(styles.IconPass+" Configuration is valid"))
		} else {
			_, _ = fmt.Fprintln(w, styles.TextErrorStyle.Render(fmt.Sprintf("%d error(s) found", len(errs))))
		}
	}

	if len(errs) > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

// fieldErrors flattens criterio field errors. Other errors are reported
// under an empty field.
func fieldErrors(err error) []configError {
	if err == nil {
		return nil
	}

	var fe criterio.FieldErrors
	if !errors.As(err, &fe) {
		return []configError{{Message: err.Error()}}
	}

	out := make([]configError, 0, len(fe))
	for _, e := range fe {
		out = append(out, configError{Field: e.Field, Message: e.Err.Error()})
	}
	return out
}
