package audit

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/distaudit/internal/githubauth"
	"github.com/temirov/distaudit/internal/utils"
	"github.com/temirov/distaudit/internal/versionmatch"
)

const (
	versionsCommandUseConstant              = "versions [package] [repository]"
	versionsCommandShortDescriptionConstant = "List published versions and their repository tags"
	versionsCommandLongDescriptionConstant  = "versions lists every published version of a package in publication order together with the repository tag it resolves to. No distribution is downloaded."
	versionsListingErrorTemplateConstant    = "unable to list versions of %s: %w"
	tagsListingErrorTemplateConstant        = "unable to list tags of %s: %w"
	versionsOutputErrorTemplateConstant     = "unable to write versions: %w"
	versionRowTemplateConstant              = "%s\t%s\n"
	versionOnlyRowTemplateConstant          = "%s\n"
	noMatchingTagLabelConstant              = "no match"
	tabwriterMinimumWidthConstant           = 0
	tabwriterTabWidthConstant               = 4
	tabwriterPaddingConstant                = 2
	tabwriterPaddingCharacterConstant       = ' '
	versionsListedLogMessageConstant        = "Versions listed"
	versionCountLogFieldConstant            = "version_count"
	tagCountLogFieldConstant                = "tag_count"
)

// VersionsCommandBuilder assembles the versions command.
type VersionsCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	HTTPClient            HTTPClient
	RegistryClient        RegistryLister
	RepositoryClient      TagLister
	EnvironmentLookup     githubauth.EnvironmentLookup
	FileReader            githubauth.FileReader
}

// RegistryLister lists published versions.
type RegistryLister interface {
	ListVersions(executionContext context.Context, project string) ([]string, error)
}

// TagLister lists repository tags.
type TagLister interface {
	ListTags(executionContext context.Context, repository string) ([]string, error)
}

// Build constructs the versions command.
func (builder *VersionsCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:          versionsCommandUseConstant,
		Short:        versionsCommandShortDescriptionConstant,
		Long:         versionsCommandLongDescriptionConstant,
		Args:         cobra.MaximumNArgs(maximumPositionalArgumentsConstant),
		RunE:         builder.run,
		SilenceUsage: true,
	}
	bindSourceFlags(command, DefaultCommandConfiguration())
	return command, nil
}

func (builder *VersionsCommandBuilder) run(command *cobra.Command, arguments []string) error {
	logger := resolveLogger(builder.LoggerProvider)
	configuration, configurationError := resolveCommandConfiguration(command, arguments, resolveConfiguration(builder.ConfigurationProvider), false)
	if configurationError != nil {
		return configurationError
	}
	if len(configuration.Package) == 0 {
		if helpError := displayCommandHelp(command); helpError != nil {
			return helpError
		}
		return errors.New(missingPackageMessageConstant)
	}

	executionContext := command.Context()
	if executionContext == nil {
		executionContext = context.Background()
	}

	auditBuilder := CommandBuilder{
		HTTPClient:        builder.HTTPClient,
		EnvironmentLookup: builder.EnvironmentLookup,
		FileReader:        builder.FileReader,
	}
	configuration.Repository = auditBuilder.resolveHomeExpander().ExpandIdentifier(configuration.Repository)

	registryClient := builder.RegistryClient
	if registryClient == nil {
		resolvedRegistryClient, registryError := auditBuilder.resolveRegistryClient(logger, configuration)
		if registryError != nil {
			return registryError
		}
		registryClient = resolvedRegistryClient
	}

	versions, versionsError := registryClient.ListVersions(executionContext, configuration.Package)
	if versionsError != nil {
		return fmt.Errorf(versionsListingErrorTemplateConstant, configuration.Package, versionsError)
	}

	var tags []string
	if len(configuration.Repository) > 0 && len(versions) > 0 {
		tagLister := builder.RepositoryClient
		if tagLister == nil {
			resolvedRepositoryClient, repositoryError := auditBuilder.resolveRepositoryClient(executionContext, logger, configuration)
			if repositoryError != nil {
				return repositoryError
			}
			tagLister = resolvedRepositoryClient
		}
		listedTags, tagsError := tagLister.ListTags(executionContext, configuration.Repository)
		if tagsError != nil {
			return fmt.Errorf(tagsListingErrorTemplateConstant, configuration.Repository, tagsError)
		}
		tags = listedTags
	}

	logger.Debug(versionsListedLogMessageConstant,
		zap.String(packageLogFieldConstant, configuration.Package),
		zap.Int(versionCountLogFieldConstant, len(versions)),
		zap.Int(tagCountLogFieldConstant, len(tags)),
	)

	output := tabwriter.NewWriter(utils.NewFlushingWriter(command.OutOrStdout()), tabwriterMinimumWidthConstant, tabwriterTabWidthConstant, tabwriterPaddingConstant, tabwriterPaddingCharacterConstant, 0)
	matcher := versionmatch.NewMatcher(configuration.TagPrefixes)
	for _, version := range versions {
		var writeError error
		if len(configuration.Repository) == 0 {
			_, writeError = fmt.Fprintf(output, versionOnlyRowTemplateConstant, version)
		} else {
			tagLabel := noMatchingTagLabelConstant
			if tag, matched := matcher.Match(version, tags); matched {
				tagLabel = tag
			}
			_, writeError = fmt.Fprintf(output, versionRowTemplateConstant, version, tagLabel)
		}
		if writeError != nil {
			return fmt.Errorf(versionsOutputErrorTemplateConstant, writeError)
		}
	}
	if flushError := output.Flush(); flushError != nil {
		return fmt.Errorf(versionsOutputErrorTemplateConstant, flushError)
	}
	return nil
}
