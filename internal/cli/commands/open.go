package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/labres-dev/labres/internal/views"
)

// maxNavigations bounds guard redirects followed by open; the guard never
// chains more than login -> dashboard
const maxNavigations = 4

// NewOpenCmd creates the open command
func NewOpenCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Navigate to a view and print its data",
		Long: `Navigate to a view and print its data as YAML.

Navigation goes through the same access rules as the web console, so
redirects (for example to /login) are followed and reported.

Examples:
  $ labres open /dashboard
  $ labres open /instrument/3
  $ labres open /admin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpen(cmd, app, args[0])
		},
	}
}

func runOpen(cmd *cobra.Command, app *App, path string) error {
	ctx := cmd.Context()

	for i := 0; i < maxNavigations; i++ {
		d, err := app.Guard.Navigate(ctx, path)
		if err != nil {
			return err
		}

		if !d.Allowed() {
			fmt.Fprintf(app.Err, "→ %s redirected to %s (%s)\n", d.Target.Path, d.Redirect, d.Reason)
			path = d.Redirect
			continue
		}

		view, err := views.Load(ctx, app.API, d.Target, app.Session.User(), views.Query{})
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return fmt.Errorf("failed to render view: %w", err)
		}
		return enc.Close()
	}

	return fmt.Errorf("too many redirects navigating to %s", path)
}
