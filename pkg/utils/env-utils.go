package utils

import (
	"log/slog"
	"os"
	"regexp"
	"strings"
)

var nonAlphanumeric = regexp.MustCompile(`[^A-Z0-9]+`)

// GenerateEnvVarName generates a standardized environment variable name from a given string.
// It converts the input to uppercase and replaces any non-alphanumeric characters with underscores.
func GenerateEnvVarName(input string) string {
	normalized := nonAlphanumeric.ReplaceAllString(strings.ToUpper(input), "_")
	return strings.Trim(normalized, "_")
}

// OverrideFromEnv replaces target with the value of envName when it is set and non-empty.
func OverrideFromEnv(target *string, envName string) {
	if v, ok := os.LookupEnv(envName); ok && v != "" {
		slog.Debug("config value overridden from environment", slog.String("env", envName))
		*target = v
	}
}

// CollaboratorAPIKeyEnvVarName gives the env var holding the API key of a named collaborator,
// e.g. "qa-service" becomes QA_SERVICE_API_KEY.
func CollaboratorAPIKeyEnvVarName(name string) string {
	return GenerateEnvVarName(name) + "_API_KEY"
}
