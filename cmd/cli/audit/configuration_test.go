package audit_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	auditcmd "github.com/temirov/distaudit/cmd/cli/audit"
	"github.com/temirov/distaudit/internal/archive"
	"github.com/temirov/distaudit/internal/registry"
)

func TestCommandConfigurationSanitize(testInstance *testing.T) {
	testCases := []struct {
		name                     string
		configuration            auditcmd.CommandConfiguration
		expectedTokenHosts       []string
		expectedTagPrefixes      []string
		expectedMaxDownloadSize  int64
		expectedMaxExtractedSize int64
	}{
		{
			name:                     "blank_values_use_defaults",
			configuration:            auditcmd.CommandConfiguration{MaxDownloadSize: -1},
			expectedTokenHosts:       []string{"github.com"},
			expectedTagPrefixes:      []string{"v"},
			expectedMaxDownloadSize:  registry.DefaultMaxResponseSize,
			expectedMaxExtractedSize: archive.DefaultMaxTotalSize,
		},
		{
			name: "explicit_values_are_normalized",
			configuration: auditcmd.CommandConfiguration{
				TokenHosts:       []string{" GitHub.com ", "git.corp.example", "github.com", " "},
				TagPrefixes:      []string{"release-", " release- ", "v"},
				MaxDownloadSize:  1024,
				MaxExtractedSize: 4096,
			},
			expectedTokenHosts:       []string{"github.com", "git.corp.example"},
			expectedTagPrefixes:      []string{"release-", "v"},
			expectedMaxDownloadSize:  1024,
			expectedMaxExtractedSize: 4096,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			sanitized := testCase.configuration.Sanitize()
			require.Equal(testInstance, testCase.expectedTokenHosts, sanitized.TokenHosts)
			require.Equal(testInstance, testCase.expectedTagPrefixes, sanitized.TagPrefixes)
			require.Equal(testInstance, testCase.expectedMaxDownloadSize, sanitized.MaxDownloadSize)
			require.Equal(testInstance, testCase.expectedMaxExtractedSize, sanitized.MaxExtractedSize)
		})
	}
}
