package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds CLI configuration
type Config struct {
	ServerURL       string
	CredentialsFile string
	Output          string

	// Credentials is loaded from CredentialsFile before each command
	Credentials Credentials
}

// Credentials identify this CLI as a participant in one game
type Credentials struct {
	Code          string `json:"code"`
	DisplayName   string `json:"display_name"`
	PlayerID      string `json:"player_id"`
	RecoveryToken string `json:"recovery_token"`
}

var errNoGame = errors.New("not in a game: run create or join first")

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:       getEnvOrDefault("PARTYCTL_SERVER", "http://localhost:8080"),
		CredentialsFile: getEnvOrDefault("PARTYCTL_CREDENTIALS", defaultCredentialsFile()),
		Output:          "text",
	}
}

// LoadCredentials reads saved credentials, if any
func (c *Config) LoadCredentials() error {
	data, err := os.ReadFile(c.CredentialsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No credentials file is fine
		}
		return err
	}

	if err := json.Unmarshal(data, &c.Credentials); err != nil {
		return fmt.Errorf("corrupt credentials file %s: %w", c.CredentialsFile, err)
	}
	return nil
}

// SaveCredentials writes credentials to the credentials file
func (c *Config) SaveCredentials(creds Credentials) error {
	c.Credentials = creds

	dir := filepath.Dir(c.CredentialsFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.CredentialsFile, data, 0600)
}

// ClearCredentials forgets the saved game
func (c *Config) ClearCredentials() error {
	c.Credentials = Credentials{}
	if err := os.Remove(c.CredentialsFile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// gameCode returns the explicit code argument, or the saved game's code
func (c *Config) gameCode(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if c.Credentials.Code == "" {
		return "", errNoGame
	}
	return c.Credentials.Code, nil
}

// requireGame returns the saved game's code for commands that act as the player
func (c *Config) requireGame() (string, error) {
	if c.Credentials.Code == "" || c.Credentials.PlayerID == "" {
		return "", errNoGame
	}
	return c.Credentials.Code, nil
}

func defaultCredentialsFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".partyctl/credentials.json"
	}
	return filepath.Join(home, ".partyctl", "credentials.json")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
