package config

import "os"

// Path returns the config path from FACERIG_CONFIG env var.
// Falls back to the provided default if not set.
func Path(defaultPath string) string {
	if p := os.Getenv("FACERIG_CONFIG"); p != "" {
		return p
	}
	return defaultPath
}

// applyEnv overrides file values with FACERIG_PORT and LOG_LEVEL
func applyEnv(c *Config) {
	if port := os.Getenv("FACERIG_PORT"); port != "" {
		c.Server.Port = port
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Server.LogLevel = level
	}
}
