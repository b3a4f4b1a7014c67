package config

import "os"

// SecretSource represents where a secret comes from.
type SecretSource string

const (
	SecretSourceEnv    SecretSource = "env"
	SecretSourceConfig SecretSource = "config"
	SecretSourceNone   SecretSource = "none"
)

// SecretStatus reports whether a secret is set without revealing it.
type SecretStatus struct {
	Name   string       `json:"name"`
	Source SecretSource `json:"source"`
	IsSet  bool         `json:"is_set"`
	Masked string       `json:"masked,omitempty"` // e.g., "hun...r42"
}

// CheckSecrets returns the status of every secret the config can carry.
func CheckSecrets(cfg *Config) []SecretStatus {
	return []SecretStatus{
		checkSecret("Redis password", cfg.Cache.RedisPassword, "REDIS_PASSWORD"),
	}
}

func checkSecret(name, value, envVar string) SecretStatus {
	status := SecretStatus{Name: name, IsSet: value != ""}
	if value == "" {
		status.Source = SecretSourceNone
		return status
	}
	if os.Getenv(envVar) == value {
		status.Source = SecretSourceEnv
	} else {
		status.Source = SecretSourceConfig
	}
	status.Masked = maskSecret(value)
	return status
}

// maskSecret shows only the first and last 3 characters.
func maskSecret(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:3] + "..." + s[len(s)-3:]
}
