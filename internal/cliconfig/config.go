package cliconfig

import "time"

// Config holds CLI configuration values.
type Config struct {
	ServerURL       string        `mapstructure:"server_url" yaml:"server_url"`
	Username        string        `mapstructure:"username" yaml:"username"`
	LogLevel        string        `mapstructure:"log_level" yaml:"log_level"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval" yaml:"refresh_interval"`
	IdentityFile    string        `mapstructure:"identity_file" yaml:"identity_file"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		ServerURL:       "ws://localhost:3132/ws",
		LogLevel:        "info",
		RefreshInterval: 30 * time.Second,
	}
}
