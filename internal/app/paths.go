package app

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// DefaultDataDir returns the default data directory path.
// Uses ~/.siteback for user installations, /var/lib/siteback as fallback.
func DefaultDataDir() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".siteback")
	}
	return "/var/lib/siteback"
}

// ConfigureViper sets up viper with standard config file search paths.
// Config file: siteback.yaml
// Search paths (in order): /etc/siteback, ~/.config/siteback, current directory
func ConfigureViper(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("siteback")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/siteback")
		v.AddConfigPath("$HOME/.config/siteback")
		v.AddConfigPath(".")
	}
}
