// Package userconfig keeps per-user CLI state in ~/.config/labres/config.json.
// A user can work in several projects, each with its own labres.json, so the
// selected backend is remembered per project file.
package userconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	configDirName  = "labres"
	configFileName = "config.json"
)

// Selection is the backend chosen for one project
type Selection struct {
	ServerURL  string    `json:"server_url"`
	SelectedAt time.Time `json:"selected_at"`
}

// UserConfig maps the absolute path of a labres.json to its selection
type UserConfig struct {
	Projects map[string]Selection `json:"projects,omitempty"`
}

// GetConfigPath returns the path to the user config file
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", configDirName, configFileName), nil
}

// Load reads the user config. A missing file is an empty config.
func Load() (*UserConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	cfg := &UserConfig{Projects: map[string]Selection{}}
	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config file %s: %w", configPath, err)
	}
	if cfg.Projects == nil {
		cfg.Projects = map[string]Selection{}
	}
	return cfg, nil
}

// Save writes the user config, replacing the previous file in one rename
func Save(cfg *UserConfig) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	tmp := configPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}
	if err := os.Rename(tmp, configPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace user config file: %w", err)
	}
	return nil
}

func projectKey(project string) (string, error) {
	if project == "" {
		return "", errors.New("project config path is empty")
	}
	return filepath.Abs(project)
}

// SelectedServer returns the backend selected for the project whose
// labres.json lives at project, or "" when none was selected
func SelectedServer(project string) (string, error) {
	key, err := projectKey(project)
	if err != nil {
		return "", err
	}
	cfg, err := Load()
	if err != nil {
		return "", err
	}
	return cfg.Projects[key].ServerURL, nil
}

// SelectServer remembers serverURL for project. Other projects keep their own
// selection.
func SelectServer(project, serverURL string) error {
	key, err := projectKey(project)
	if err != nil {
		return err
	}
	cfg, err := Load()
	if err != nil {
		return err
	}
	cfg.Projects[key] = Selection{ServerURL: serverURL, SelectedAt: time.Now().UTC()}
	return Save(cfg)
}

// ForgetServer drops the selection for project
func ForgetServer(project string) error {
	key, err := projectKey(project)
	if err != nil {
		return err
	}
	cfg, err := Load()
	if err != nil {
		return err
	}
	if _, ok := cfg.Projects[key]; !ok {
		return nil
	}
	delete(cfg.Projects, key)
	return Save(cfg)
}
