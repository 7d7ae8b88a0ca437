package commands

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/labres-dev/labres/internal/router"
)

// NewDashCmd creates the dash command
func NewDashCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "dash",
		Short:       "Open the local web console in browser",
		Long:        "Open the local web console in browser. Start it first with labres-web.",
		Annotations: offlineAnnotation(),
		RunE: func(cmd *cobra.Command, args []string) error {
			dashboardURL := fmt.Sprintf("http://%s%s", app.Config.Web.Addr, router.DashboardPath)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Opening web console...")
			fmt.Fprintf(out, "URL: %s\n", dashboardURL)

			if err := openBrowser(dashboardURL); err != nil {
				return fmt.Errorf("failed to open browser: %w\nPlease visit: %s", err, dashboardURL)
			}
			return nil
		},
	}

	return cmd
}

// openBrowser opens the URL in the default browser
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
