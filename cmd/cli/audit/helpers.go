package audit

import (
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider yields the loaded command configuration.
type ConfigurationProvider func() CommandConfiguration

// HTTPClient performs registry and snapshot requests.
type HTTPClient interface {
	Do(request *http.Request) (*http.Response, error)
}

func resolveLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func resolveConfiguration(provider ConfigurationProvider) CommandConfiguration {
	if provider == nil {
		return DefaultCommandConfiguration()
	}
	return provider().Sanitize()
}

func selectStringValue(command *cobra.Command, flagName string, configuredValue string) string {
	if command != nil && command.Flags().Changed(flagName) {
		flagValue, flagError := command.Flags().GetString(flagName)
		if flagError == nil {
			return flagValue
		}
	}
	return configuredValue
}

func selectBoolValue(command *cobra.Command, flagName string, configuredValue bool) bool {
	if command != nil && command.Flags().Changed(flagName) {
		flagValue, flagError := command.Flags().GetBool(flagName)
		if flagError == nil {
			return flagValue
		}
	}
	return configuredValue
}

func selectStringSliceValue(command *cobra.Command, flagName string, configuredValues []string) []string {
	if command != nil && command.Flags().Changed(flagName) {
		flagValues, flagError := command.Flags().GetStringSlice(flagName)
		if flagError == nil {
			return flagValues
		}
	}
	return configuredValues
}

func displayCommandHelp(command *cobra.Command) error {
	if command == nil {
		return nil
	}
	return command.Help()
}
