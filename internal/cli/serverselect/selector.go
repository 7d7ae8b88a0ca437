package serverselect

import (
	"fmt"

	"github.com/labres-dev/labres/internal/cli/config"
	"github.com/labres-dev/labres/internal/cli/userconfig"
	"github.com/manifoldco/promptui"
	"github.com/rs/zerolog"
)

// ResolveServer determines which server to use based on the following priority:
// 1. If serverAlias flag is provided, use that server
// 2. If the user selected a server for this project, use that
// 3. If only one server in project config, use that
// 4. Otherwise, prompt user to select a server interactively
//
// Failing to remember a selection is logged, never fatal.
func ResolveServer(projectConfig *config.Config, serverAlias string, logger zerolog.Logger) (*config.Server, error) {
	if serverAlias != "" {
		return projectConfig.GetServerByAlias(serverAlias)
	}

	if projectConfig.Path != "" {
		selectedURL, err := userconfig.SelectedServer(projectConfig.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}

		if selectedURL != "" {
			server, err := projectConfig.GetServerByURLOrAlias(selectedURL)
			if err == nil {
				return server, nil
			}
			// The server was removed from this project's labres.json
			logger.Debug().Str("project", projectConfig.Path).Str("server", selectedURL).Msg("Selected server is gone, choosing again")
			if err := userconfig.ForgetServer(projectConfig.Path); err != nil {
				logger.Warn().Err(err).Msg("Failed to clear selected server")
			}
		}
	}

	var server *config.Server
	if len(projectConfig.Servers) == 1 {
		server = &projectConfig.Servers[0]
	} else {
		var err error
		server, err = PromptServerSelection(projectConfig)
		if err != nil {
			return nil, err
		}
	}

	remember(projectConfig, server, logger)
	return server, nil
}

func remember(projectConfig *config.Config, server *config.Server, logger zerolog.Logger) {
	if projectConfig.Path == "" {
		return
	}
	if err := userconfig.SelectServer(projectConfig.Path, server.URL); err != nil {
		logger.Warn().Err(err).Str("server", server.URL).Msg("Failed to save selected server")
	}
}

// PromptServerSelection shows an interactive prompt for the user to select a server
func PromptServerSelection(projectConfig *config.Config) (*config.Server, error) {
	if len(projectConfig.Servers) == 0 {
		return nil, fmt.Errorf("no servers configured in %s", config.ConfigFileName)
	}

	type serverOption struct {
		Label  string
		Server *config.Server
	}

	options := make([]serverOption, len(projectConfig.Servers))
	for i := range projectConfig.Servers {
		server := &projectConfig.Servers[i]
		options[i] = serverOption{
			Label:  fmt.Sprintf("%s (%s)", server.Alias, server.URL),
			Server: server,
		}
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "{{ .Label | green }}",
	}

	prompt := promptui.Select{
		Label:     "Select a server",
		Items:     options,
		Templates: templates,
		Size:      10,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return nil, fmt.Errorf("server selection cancelled: %w", err)
	}

	return options[index].Server, nil
}
