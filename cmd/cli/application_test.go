package cli_test

import (
	"bytes"
	"testing"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/temirov/distaudit/cmd/cli"
	auditcmd "github.com/temirov/distaudit/cmd/cli/audit"
)

func decodeEmbeddedApplicationConfiguration(testingInstance testing.TB) cli.ApplicationConfiguration {
	testingInstance.Helper()

	configurationData, configurationType := cli.EmbeddedDefaultConfiguration()
	viperInstance := viper.New()
	viperInstance.SetConfigType(configurationType)

	readError := viperInstance.ReadConfig(bytes.NewReader(configurationData))
	require.NoError(testingInstance, readError)

	var configuration cli.ApplicationConfiguration
	unmarshalError := viperInstance.Unmarshal(&configuration, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	require.NoError(testingInstance, unmarshalError)

	return configuration
}

func TestEmbeddedDefaultsMatchAuditCommandDefaults(testInstance *testing.T) {
	configuration := decodeEmbeddedApplicationConfiguration(testInstance)

	require.Equal(testInstance, "info", configuration.Common.LogLevel)
	require.Equal(testInstance, "structured", configuration.Common.LogFormat)
	require.Equal(testInstance, auditcmd.DefaultCommandConfiguration(), configuration.Tools.Audit)
}

func TestEmbeddedDefaultConfigurationReturnsCopy(testInstance *testing.T) {
	firstCopy, _ := cli.EmbeddedDefaultConfiguration()
	require.NotEmpty(testInstance, firstCopy)
	firstCopy[0] = '#'

	secondCopy, configurationType := cli.EmbeddedDefaultConfiguration()
	require.Equal(testInstance, "yaml", configurationType)
	require.NotEqual(testInstance, byte('#'), secondCopy[0])
}

func TestDefaultConfigurationValuesCoverEveryAuditKey(testInstance *testing.T) {
	defaults := auditcmd.DefaultConfigurationValues("tools.audit")
	expectedKeys := []string{
		"package", "repository", "verbose", "format", "source_root", "tag_prefixes",
		"repository_source", "distribution", "registry_url", "archive_url_template",
		"token_source", "timeout", "show_diff", "progress", "fail_on_differences", "include_matching",
		"token_hosts", "max_download_size", "max_extracted_size",
	}
	require.Len(testInstance, defaults, len(expectedKeys))
	for _, expectedKey := range expectedKeys {
		require.Contains(testInstance, defaults, "tools.audit."+expectedKey)
	}
}
