package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config is the CLI configuration: where the agent server lives and who is
// chatting with it.
type Config struct {
	ServerURL string `mapstructure:"server_url"`
	AppName   string `mapstructure:"app_name"`
	UserID    string `mapstructure:"user_id"`
	Verbose   bool   `mapstructure:"verbose"`
}

// Init loads (or creates) the config file at $HOME/.go-chat/config.yaml and
// sets defaults.
func Init() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("error getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".go-chat")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	configFile := filepath.Join(configDir, "config.yaml")
	viper.SetConfigFile(configFile)
	viper.SetConfigType("yaml")

	viper.SetDefault("server_url", "http://localhost:8000")
	viper.SetDefault("app_name", "")
	viper.SetDefault("user_id", "user")

	if err := viper.ReadInConfig(); err != nil {
		// Write defaults when no config exists yet.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
			if err := viper.WriteConfigAs(configFile); err != nil {
				return fmt.Errorf("error creating default config file: %w", err)
			}
		} else {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// Get unmarshals the loaded configuration.
func Get() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}
