package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/labres-dev/labres/internal/auth"
	"github.com/labres-dev/labres/internal/router"
)

// NewStatusCmd creates the status command
func NewStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:         "status",
		Short:       "Show the logged-in user and credential expiry",
		Annotations: routeAnnotation(router.DashboardPath),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, app, time.Now())
		},
	}
}

func runStatus(cmd *cobra.Command, app *App, now time.Time) error {
	out := cmd.OutOrStdout()
	snap := app.Session.Snapshot()

	fmt.Fprintf(out, "Server: %s\n", app.ServerURL)
	fmt.Fprintf(out, "User:   %s (%s)\n", snap.User.DisplayName(), snap.User.Email)
	fmt.Fprintf(out, "Role:   %s\n", snap.User.Role)
	if snap.IsAdmin {
		fmt.Fprintln(out, "Admin:  yes")
	}

	token, err := app.Tokens.LoadToken()
	if err != nil {
		return err
	}

	// Opaque tokens are fine; expiry is only shown when readable
	claims, err := auth.InspectToken(token)
	if err != nil {
		app.Logger.Debug().Err(err).Msg("Credential is not a readable JWT")
		return nil
	}
	if claims.ExpiresAt.IsZero() {
		return nil
	}

	if claims.Expired(now) {
		fmt.Fprintf(out, "Token:  expired at %s\n", claims.ExpiresAt.Local().Format(timeLayout))
	} else {
		fmt.Fprintf(out, "Token:  expires at %s (in %s)\n",
			claims.ExpiresAt.Local().Format(timeLayout),
			claims.ExpiresAt.Sub(now).Round(time.Minute))
	}
	return nil
}
