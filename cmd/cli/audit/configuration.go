package audit

import (
	"strings"
	"time"

	"github.com/temirov/distaudit/internal/archive"
	"github.com/temirov/distaudit/internal/gitrepo"
	"github.com/temirov/distaudit/internal/registry"
	"github.com/temirov/distaudit/internal/report"
)

// Repository backends.
const (
	RepositorySourceGit     = "git"
	RepositorySourceArchive = "archive"
)

const (
	configurationPackageKeyConstant            = "package"
	configurationRepositoryKeyConstant         = "repository"
	configurationVerboseKeyConstant            = "verbose"
	configurationFormatKeyConstant             = "format"
	configurationSourceRootKeyConstant         = "source_root"
	configurationTagPrefixesKeyConstant        = "tag_prefixes"
	configurationRepositorySourceKeyConstant   = "repository_source"
	configurationDistributionKeyConstant       = "distribution"
	configurationRegistryURLKeyConstant        = "registry_url"
	configurationArchiveURLTemplateKeyConstant = "archive_url_template"
	configurationTokenSourceKeyConstant        = "token_source"
	configurationTimeoutKeyConstant            = "timeout"
	configurationShowDiffKeyConstant           = "show_diff"
	configurationProgressKeyConstant           = "progress"
	configurationFailOnDifferencesKeyConstant  = "fail_on_differences"
	configurationIncludeMatchingKeyConstant    = "include_matching"
	configurationTokenHostsKeyConstant         = "token_hosts"
	configurationMaxDownloadSizeKeyConstant    = "max_download_size"
	configurationMaxExtractedSizeKeyConstant   = "max_extracted_size"
	configurationKeySeparatorConstant          = "."
)

// CommandConfiguration captures the persisted settings of the audit and versions commands.
type CommandConfiguration struct {
	Package            string        `mapstructure:"package"`
	Repository         string        `mapstructure:"repository"`
	Verbose            bool          `mapstructure:"verbose"`
	Format             string        `mapstructure:"format"`
	SourceRoot         string        `mapstructure:"source_root"`
	TagPrefixes        []string      `mapstructure:"tag_prefixes"`
	RepositorySource   string        `mapstructure:"repository_source"`
	Distribution       string        `mapstructure:"distribution"`
	RegistryURL        string        `mapstructure:"registry_url"`
	ArchiveURLTemplate string        `mapstructure:"archive_url_template"`
	TokenSource        string        `mapstructure:"token_source"`
	Timeout            time.Duration `mapstructure:"timeout"`
	ShowDiff           bool          `mapstructure:"show_diff"`
	Progress           bool          `mapstructure:"progress"`
	FailOnDifferences  bool          `mapstructure:"fail_on_differences"`
	IncludeMatching    bool          `mapstructure:"include_matching"`
	TokenHosts         []string      `mapstructure:"token_hosts"`
	MaxDownloadSize    int64         `mapstructure:"max_download_size"`
	MaxExtractedSize   int64         `mapstructure:"max_extracted_size"`
}

// DefaultCommandConfiguration provides the settings used when nothing is configured.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Verbose:            true,
		Format:             string(report.FormatText),
		TagPrefixes:        []string{"v"},
		RepositorySource:   RepositorySourceGit,
		Distribution:       string(registry.PreferenceAuto),
		RegistryURL:        registry.DefaultBaseURL,
		ArchiveURLTemplate: gitrepo.DefaultArchiveURLTemplate,
		Timeout:            registry.DefaultTimeout,
		TokenHosts:         []string{gitrepo.DefaultHost},
		MaxDownloadSize:    registry.DefaultMaxResponseSize,
		MaxExtractedSize:   archive.DefaultMaxTotalSize,
	}
}

// DefaultConfigurationValues returns the defaults keyed for the configuration loader under rootKey.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	prefixedKey := func(key string) string {
		return rootKey + configurationKeySeparatorConstant + key
	}
	return map[string]any{
		prefixedKey(configurationPackageKeyConstant):            defaults.Package,
		prefixedKey(configurationRepositoryKeyConstant):         defaults.Repository,
		prefixedKey(configurationVerboseKeyConstant):            defaults.Verbose,
		prefixedKey(configurationFormatKeyConstant):             defaults.Format,
		prefixedKey(configurationSourceRootKeyConstant):         defaults.SourceRoot,
		prefixedKey(configurationTagPrefixesKeyConstant):        defaults.TagPrefixes,
		prefixedKey(configurationRepositorySourceKeyConstant):   defaults.RepositorySource,
		prefixedKey(configurationDistributionKeyConstant):       defaults.Distribution,
		prefixedKey(configurationRegistryURLKeyConstant):        defaults.RegistryURL,
		prefixedKey(configurationArchiveURLTemplateKeyConstant): defaults.ArchiveURLTemplate,
		prefixedKey(configurationTokenSourceKeyConstant):        defaults.TokenSource,
		prefixedKey(configurationTimeoutKeyConstant):            defaults.Timeout,
		prefixedKey(configurationShowDiffKeyConstant):           defaults.ShowDiff,
		prefixedKey(configurationProgressKeyConstant):           defaults.Progress,
		prefixedKey(configurationFailOnDifferencesKeyConstant):  defaults.FailOnDifferences,
		prefixedKey(configurationIncludeMatchingKeyConstant):    defaults.IncludeMatching,
		prefixedKey(configurationTokenHostsKeyConstant):         defaults.TokenHosts,
		prefixedKey(configurationMaxDownloadSizeKeyConstant):    defaults.MaxDownloadSize,
		prefixedKey(configurationMaxExtractedSizeKeyConstant):   defaults.MaxExtractedSize,
	}
}

// Sanitize trims values and restores defaults for blank settings.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	sanitized := configuration

	sanitized.Package = strings.TrimSpace(configuration.Package)
	sanitized.Repository = strings.TrimSpace(configuration.Repository)
	sanitized.SourceRoot = strings.TrimSpace(configuration.SourceRoot)
	sanitized.TokenSource = strings.TrimSpace(configuration.TokenSource)
	sanitized.Format = valueOrDefault(strings.ToLower(configuration.Format), defaults.Format)
	sanitized.RepositorySource = valueOrDefault(strings.ToLower(configuration.RepositorySource), defaults.RepositorySource)
	sanitized.Distribution = valueOrDefault(strings.ToLower(configuration.Distribution), defaults.Distribution)
	sanitized.RegistryURL = valueOrDefault(configuration.RegistryURL, defaults.RegistryURL)
	sanitized.ArchiveURLTemplate = valueOrDefault(configuration.ArchiveURLTemplate, defaults.ArchiveURLTemplate)
	if sanitized.Timeout <= 0 {
		sanitized.Timeout = defaults.Timeout
	}
	if sanitized.MaxDownloadSize <= 0 {
		sanitized.MaxDownloadSize = defaults.MaxDownloadSize
	}
	if sanitized.MaxExtractedSize <= 0 {
		sanitized.MaxExtractedSize = defaults.MaxExtractedSize
	}

	sanitized.TokenHosts = sanitizeList(configuration.TokenHosts, strings.ToLower)
	if len(sanitized.TokenHosts) == 0 {
		sanitized.TokenHosts = append([]string{}, defaults.TokenHosts...)
	}

	sanitized.TagPrefixes = sanitizeList(configuration.TagPrefixes, nil)
	if len(sanitized.TagPrefixes) == 0 {
		sanitized.TagPrefixes = append([]string{}, defaults.TagPrefixes...)
	}

	return sanitized
}

func valueOrDefault(value string, defaultValue string) string {
	trimmedValue := strings.TrimSpace(value)
	if len(trimmedValue) == 0 {
		return defaultValue
	}
	return trimmedValue
}

// sanitizeList trims, optionally transforms and deduplicates values, dropping blanks.
func sanitizeList(rawValues []string, transform func(string) string) []string {
	sanitized := make([]string, 0, len(rawValues))
	seen := make(map[string]struct{}, len(rawValues))
	for _, rawValue := range rawValues {
		value := strings.TrimSpace(rawValue)
		if transform != nil {
			value = transform(value)
		}
		if len(value) == 0 {
			continue
		}
		if _, duplicate := seen[value]; duplicate {
			continue
		}
		seen[value] = struct{}{}
		sanitized = append(sanitized, value)
	}
	return sanitized
}
