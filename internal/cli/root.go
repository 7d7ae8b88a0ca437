package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/labres-dev/labres/internal/cli/commands"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the command tree around app. Commands bound to a route are
// admitted by the navigation guard before they run.
func NewRootCmd(app *commands.App) *cobra.Command {
	var serverAlias string

	rootCmd := &cobra.Command{
		Use:   "labres",
		Short: "labres - Lab instrument reservations from the terminal",
		Long: `labres CLI - Reserve lab instruments and manage the reservation system.

Browse instruments, book and cancel time slots, and (as an administrator)
manage users, instruments and reservation permissions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, offline := cmd.Annotations[commands.AnnotationOffline]; offline {
				return app.LoadConfig()
			}

			if err := app.Init(serverAlias); err != nil {
				return err
			}
			return app.AdmitCommand(cmd, args)
		},
	}

	rootCmd.PersistentFlags().StringVar(&serverAlias, "server", "", "Server alias from labres.json (uses the selected server if not specified)")

	rootCmd.AddCommand(&cobra.Command{
		Use:         "version",
		Short:       "Print the version number",
		Annotations: map[string]string{commands.AnnotationOffline: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "labres version %s\n", version)
		},
	})

	rootCmd.AddCommand(
		commands.NewInitCmd(),
		commands.NewSelectServerCmd(),
		commands.NewLoginCmd(app),
		commands.NewLogoutCmd(app),
		commands.NewStatusCmd(app),
		commands.NewInstrumentsCmd(app),
		commands.NewReservationsCmd(app),
		commands.NewUsersCmd(app),
		commands.NewPermissionsCmd(app),
		commands.NewOpenCmd(app),
		commands.NewDashCmd(app),
	)

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	if err := NewRootCmd(&commands.App{}).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
