package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/labres-dev/labres/internal/cli/config"
)

// NewInitCmd creates the init command
func NewInitCmd() *cobra.Command {
	var alias string

	cmd := &cobra.Command{
		Use:   "init <server-url>",
		Short: "Add a reservation server to ./labres.json",
		Long: `Add a reservation server to ./labres.json, creating the file if needed.

Examples:
  $ labres init 127.0.0.1:8000
  $ labres init https://lab.example.org --alias production`,
		Args:        cobra.ExactArgs(1),
		Annotations: offlineAnnotation(),
		RunE: func(cmd *cobra.Command, args []string) error {
			currentDir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get current directory: %w", err)
			}
			return runInit(cmd.OutOrStdout(), currentDir, args[0], alias)
		},
	}

	cmd.Flags().StringVar(&alias, "alias", "", "Name for the server (defaults to server-N)")

	return cmd
}

func runInit(out io.Writer, dir, rawURL, alias string) error {
	serverURL, err := config.NormalizeServerURL(rawURL)
	if err != nil {
		return err
	}

	configPath := filepath.Join(dir, config.ConfigFileName)

	var cfg *config.Config
	isNewConfig := false

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		fmt.Fprintf(out, "Found existing %s\n", config.ConfigFileName)
	} else {
		cfg = &config.Config{
			Servers: []config.Server{},
		}
		isNewConfig = true
	}

	for _, server := range cfg.Servers {
		if server.URL == serverURL {
			fmt.Fprintf(out, "Server %s already exists in %s (%s)\n", serverURL, config.ConfigFileName, server.Alias)
			return nil
		}
	}

	if alias == "" {
		alias = fmt.Sprintf("server-%d", len(cfg.Servers)+1)
	}
	if _, err := cfg.GetServerByAlias(alias); err == nil {
		return fmt.Errorf("alias '%s' is already used in %s", alias, config.ConfigFileName)
	}

	cfg.Servers = append(cfg.Servers, config.Server{
		URL:   serverURL,
		Alias: alias,
	})

	if err := config.Save(configPath, cfg); err != nil {
		return err
	}

	if isNewConfig {
		fmt.Fprintf(out, "✓ Created ./%s with server %s (%s)\n", config.ConfigFileName, serverURL, alias)
	} else {
		fmt.Fprintf(out, "✓ Added server %s (%s) to ./%s\n", serverURL, alias, config.ConfigFileName)
	}

	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  Run 'labres login' to authenticate")

	return nil
}
