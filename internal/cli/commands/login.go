package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/labres-dev/labres/internal/router"
)

// NewLoginCmd creates the login command
func NewLoginCmd(app *App) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with a reservation server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, app, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set LABRES_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set LABRES_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(cmd *cobra.Command, app *App, email, password string) error {
	out := cmd.OutOrStdout()

	// The login view is closed to authenticated users
	if err := app.Admit(cmd.Context(), router.LoginPath); err != nil {
		if errors.Is(err, ErrAlreadyAuthenticated) {
			fmt.Fprintf(out, "Already logged in as %s. Run 'labres logout' to switch accounts.\n", app.Session.User().Email)
			return nil
		}
		return err
	}

	// Check for environment variables (useful for CI/CD)
	if email == "" {
		email = os.Getenv("LABRES_EMAIL")
	}
	if password == "" {
		password = os.Getenv("LABRES_PASSWORD")
	}

	if email == "" {
		return fmt.Errorf("email is required (use --email flag or LABRES_EMAIL env var)")
	}

	if password == "" {
		var err error
		if password, err = promptPassword(out); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "Logging in to %s...\n", app.ServerURL)

	token, err := app.API.Login(cmd.Context(), email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := app.Tokens.SaveToken(token.AccessToken); err != nil {
		return fmt.Errorf("failed to save authentication token: %w", err)
	}

	user, err := app.API.GetCurrentUser(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load user profile: %w", err)
	}
	app.Session.SetUser(user)

	fmt.Fprintln(out, "✓ Login successful!")
	fmt.Fprintf(out, "  User: %s (%s)\n", user.DisplayName(), user.Email)
	fmt.Fprintf(out, "  Role: %s\n", user.Role)

	return nil
}

func promptPassword(out io.Writer) (string, error) {
	// Check if stdin is a terminal (not piped)
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("password is required in non-interactive mode (use --password flag or LABRES_PASSWORD env var)")
	}

	fmt.Fprint(out, "Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(out) // New line after password input
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credential for the current server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Session.Logout(); err != nil {
				return fmt.Errorf("failed to remove stored credential: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Logged out")
			return nil
		},
	}
}
