package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/distaudit/internal/archive"
	"github.com/temirov/distaudit/internal/audit"
	"github.com/temirov/distaudit/internal/githubauth"
	"github.com/temirov/distaudit/internal/registry"
	"github.com/temirov/distaudit/internal/report"
	"github.com/temirov/distaudit/internal/repository"
	"github.com/temirov/distaudit/internal/utils"
	flagutils "github.com/temirov/distaudit/internal/utils/flags"
	pathutils "github.com/temirov/distaudit/internal/utils/path"
)

const (
	auditCommandUseConstant                    = "audit [package] [repository]"
	auditCommandShortDescriptionConstant       = "Compare published distributions with tagged repository sources"
	auditCommandLongDescriptionConstant        = "audit downloads every published distribution of a package, matches each version to a repository tag, and reports the files whose lines differ."
	packageFlagNameConstant                    = "package"
	packageFlagUsageConstant                   = "Registry project name to audit"
	repositoryFlagNameConstant                 = "repository"
	repositoryFlagUsageConstant                = "Source repository (owner/name, git URL, or file:// path)"
	quietFlagNameConstant                      = "quiet"
	quietFlagShorthandConstant                 = "q"
	quietFlagUsageConstant                     = "Suppress the per-version lines printed while auditing"
	formatFlagNameConstant                     = "format"
	formatFlagUsageConstant                    = "Report format"
	sourceRootFlagNameConstant                 = "source-root"
	sourceRootFlagUsageConstant                = "Directory segment both file sets are compared under (\"/\" compares whole trees)"
	tagPrefixFlagNameConstant                  = "tag-prefix"
	tagPrefixFlagUsageConstant                 = "Tag prefix tried when matching versions to tags (repeatable)"
	repositorySourceFlagNameConstant           = "repository-source"
	repositorySourceFlagUsageConstant          = "How tagged files are retrieved"
	distributionFlagNameConstant               = "distribution"
	distributionFlagUsageConstant              = "Which distribution file is compared"
	tokenSourceFlagNameConstant                = "token-source"
	tokenSourceFlagUsageConstant               = "GitHub token source (env:NAME or file:PATH)"
	showDiffFlagNameConstant                   = "show-diff"
	showDiffFlagUsageConstant                  = "Print a unified diff for every differing file"
	progressFlagNameConstant                   = "progress"
	progressFlagUsageConstant                  = "Render a progress bar on standard error"
	failOnDifferencesFlagNameConstant          = "fail-on-differences"
	failOnDifferencesFlagUsageConstant         = "Exit with an error when any version differs or fails"
	allFlagNameConstant                        = "all"
	allFlagUsageConstant                       = "Include matching versions in the report"
	maximumPositionalArgumentsConstant         = 2
	missingPackageMessageConstant              = "package name required; provide a positional argument, --package flag, or configuration"
	missingRepositoryMessageConstant           = "repository required; provide a positional argument, --repository flag, or configuration"
	invalidFormatErrorTemplateConstant         = "invalid --format value: %w"
	invalidRepositorySourceErrorTemplate       = "invalid --repository-source value: %w"
	invalidDistributionErrorTemplateConstant   = "invalid --distribution value: %w"
	tokenSourceErrorTemplateConstant           = "unable to parse token source: %w"
	tokenResolutionErrorTemplateConstant       = "unable to resolve GitHub token: %w"
	registryClientErrorTemplateConstant        = "unable to construct registry client: %w"
	auditServiceErrorTemplateConstant          = "unable to construct audit service: %w"
	auditRunErrorTemplateConstant              = "audit of %s failed: %w"
	reportRenderErrorTemplateConstant          = "unable to render report: %w"
	auditCommandStartedLogMessageConstant      = "Audit command started"
	auditCommandCompletedLogMessageConstant    = "Audit command completed"
	packageLogFieldConstant                    = "package"
	repositoryLogFieldConstant                 = "repository"
	repositorySourceLogFieldConstant           = "repository_source"
	formatLogFieldConstant                     = "format"
	configurationFileLogFieldConstant          = "config_file"
	reportedResultsLogFieldConstant            = "reported_results"
	wholeTreeSourceRootDescriptionPlaceholder  = "<package>"
	sourceRootDefaultPlaceholderUsageTemplate  = "%s (default %s)"
	positionalPackageArgumentIndexConstant     = 0
	positionalRepositoryArgumentIndexConstant  = 1
	repositorySourceChoiceDescriptionConstant  = "git clones the tag, archive downloads the tag snapshot"
	distributionChoiceDescriptionConstant      = "auto prefers wheels"
	flagDescriptionSeparatorConstant           = ": "
	repositorySourceUsageWithDescriptionFormat = "%s%s%s"
)

// CommandBuilder assembles the audit command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	HTTPClient            HTTPClient
	RegistryClient        audit.RegistryClient
	RepositoryClient      audit.RepositoryClient
	EnvironmentLookup     githubauth.EnvironmentLookup
	FileReader            githubauth.FileReader
	HomeExpander          *pathutils.HomeExpander
}

// Build constructs the audit command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:          auditCommandUseConstant,
		Short:        auditCommandShortDescriptionConstant,
		Long:         auditCommandLongDescriptionConstant,
		Args:         cobra.MaximumNArgs(maximumPositionalArgumentsConstant),
		RunE:         builder.run,
		SilenceUsage: true,
	}

	defaults := DefaultCommandConfiguration()
	bindSourceFlags(command, defaults)
	command.Flags().BoolP(quietFlagNameConstant, quietFlagShorthandConstant, false, quietFlagUsageConstant)
	command.Flags().String(formatFlagNameConstant, defaults.Format, flagutils.FormatChoiceUsage(defaults.Format, report.Formats(), formatFlagUsageConstant))
	command.Flags().String(sourceRootFlagNameConstant, "", fmt.Sprintf(sourceRootDefaultPlaceholderUsageTemplate, sourceRootFlagUsageConstant, wholeTreeSourceRootDescriptionPlaceholder))
	command.Flags().String(distributionFlagNameConstant, defaults.Distribution, flagutils.FormatChoiceUsage(defaults.Distribution, registry.Preferences(), distributionFlagUsageConstant+flagDescriptionSeparatorConstant+distributionChoiceDescriptionConstant))
	command.Flags().Bool(showDiffFlagNameConstant, defaults.ShowDiff, showDiffFlagUsageConstant)
	command.Flags().Bool(progressFlagNameConstant, defaults.Progress, progressFlagUsageConstant)
	command.Flags().Bool(failOnDifferencesFlagNameConstant, defaults.FailOnDifferences, failOnDifferencesFlagUsageConstant)
	command.Flags().Bool(allFlagNameConstant, defaults.IncludeMatching, allFlagUsageConstant)

	return command, nil
}

func bindSourceFlags(command *cobra.Command, defaults CommandConfiguration) {
	command.Flags().String(packageFlagNameConstant, "", packageFlagUsageConstant)
	command.Flags().String(repositoryFlagNameConstant, "", repositoryFlagUsageConstant)
	command.Flags().StringSlice(tagPrefixFlagNameConstant, nil, tagPrefixFlagUsageConstant)
	command.Flags().String(tokenSourceFlagNameConstant, "", tokenSourceFlagUsageConstant)
	command.Flags().String(
		repositorySourceFlagNameConstant,
		defaults.RepositorySource,
		flagutils.FormatChoiceUsage(
			defaults.RepositorySource,
			[]string{RepositorySourceGit, RepositorySourceArchive},
			fmt.Sprintf(repositorySourceUsageWithDescriptionFormat, repositorySourceFlagUsageConstant, flagDescriptionSeparatorConstant, repositorySourceChoiceDescriptionConstant),
		),
	)
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	logger := resolveLogger(builder.LoggerProvider)
	configuration, configurationError := resolveCommandConfiguration(command, arguments, resolveConfiguration(builder.ConfigurationProvider), true)
	if configurationError != nil {
		return configurationError
	}

	if len(configuration.Package) == 0 {
		if helpError := displayCommandHelp(command); helpError != nil {
			return helpError
		}
		return errors.New(missingPackageMessageConstant)
	}
	if len(configuration.Repository) == 0 {
		if helpError := displayCommandHelp(command); helpError != nil {
			return helpError
		}
		return errors.New(missingRepositoryMessageConstant)
	}

	configuration.Repository = builder.resolveHomeExpander().ExpandIdentifier(configuration.Repository)

	executionContext := command.Context()
	if executionContext == nil {
		executionContext = context.Background()
	}

	contextAccessor := utils.NewCommandContextAccessor()
	configurationFilePath, _ := contextAccessor.ConfigurationFilePath(executionContext)
	logger.Info(auditCommandStartedLogMessageConstant,
		zap.String(packageLogFieldConstant, configuration.Package),
		zap.String(repositoryLogFieldConstant, configuration.Repository),
		zap.String(repositorySourceLogFieldConstant, configuration.RepositorySource),
		zap.String(formatLogFieldConstant, configuration.Format),
		zap.String(configurationFileLogFieldConstant, configurationFilePath),
	)

	registryClient, registryError := builder.resolveRegistryClient(logger, configuration)
	if registryError != nil {
		return registryError
	}
	repositoryClient, repositoryError := builder.resolveRepositoryClient(executionContext, logger, configuration)
	if repositoryError != nil {
		return repositoryError
	}

	output := utils.NewFlushingWriter(command.OutOrStdout())
	diagnostics := utils.NewFlushingWriter(command.ErrOrStderr())
	format := report.Format(configuration.Format)
	renderer := report.TextRenderer{ShowDiff: configuration.ShowDiff, Colorize: colorizeOutput(command.OutOrStdout())}

	observers := audit.ObserverGroup{}
	if configuration.Verbose {
		lineWriter := output
		if format != report.FormatText {
			lineWriter = diagnostics
		}
		observers = append(observers, report.NewLineObserver(lineWriter, renderer, logger))
	}
	if configuration.Progress {
		observers = append(observers, report.NewProgressObserver(diagnostics))
	}

	service, serviceError := audit.NewService(logger, registryClient, repositoryClient, newExtractor(configuration), observers)
	if serviceError != nil {
		return fmt.Errorf(auditServiceErrorTemplateConstant, serviceError)
	}
	if invocationIdentifier, identifierAvailable := contextAccessor.InvocationIdentifier(executionContext); identifierAvailable {
		service = service.WithRunIdentifierGenerator(func() string { return invocationIdentifier })
	}

	options := audit.Options{
		PackageName: configuration.Package,
		Repository:  configuration.Repository,
		SourceRoot:  configuration.SourceRoot,
		TagPrefixes: configuration.TagPrefixes,
	}

	var results []audit.Result
	var runError error
	if configuration.IncludeMatching {
		results, runError = service.RunAll(executionContext, options)
	} else {
		results, runError = service.Run(executionContext, options)
	}
	if runError != nil {
		return fmt.Errorf(auditRunErrorTemplateConstant, configuration.Package, runError)
	}

	document := report.Document{Package: configuration.Package, Repository: configuration.Repository, Results: results}
	var renderError error
	if format == report.FormatText && configuration.Verbose {
		renderError = renderer.RenderSummary(output, document)
	} else {
		renderError = report.Render(output, format, document, renderer)
	}
	if renderError != nil {
		return fmt.Errorf(reportRenderErrorTemplateConstant, renderError)
	}

	logger.Info(auditCommandCompletedLogMessageConstant,
		zap.String(packageLogFieldConstant, configuration.Package),
		zap.Int(reportedResultsLogFieldConstant, len(results)),
	)

	if configuration.FailOnDifferences && containsFailures(results) {
		return audit.ErrDifferencesDetected
	}
	return nil
}

// resolveCommandConfiguration applies positional arguments and flags over configuration and validates choices.
func resolveCommandConfiguration(command *cobra.Command, arguments []string, configuration CommandConfiguration, auditFlags bool) (CommandConfiguration, error) {
	resolved := configuration

	resolved.Package = selectStringValue(command, packageFlagNameConstant, resolved.Package)
	resolved.Repository = selectStringValue(command, repositoryFlagNameConstant, resolved.Repository)
	if len(arguments) > positionalPackageArgumentIndexConstant {
		resolved.Package = arguments[positionalPackageArgumentIndexConstant]
	}
	if len(arguments) > positionalRepositoryArgumentIndexConstant {
		resolved.Repository = arguments[positionalRepositoryArgumentIndexConstant]
	}
	resolved.TagPrefixes = selectStringSliceValue(command, tagPrefixFlagNameConstant, resolved.TagPrefixes)
	resolved.TokenSource = selectStringValue(command, tokenSourceFlagNameConstant, resolved.TokenSource)
	resolved.RepositorySource = selectStringValue(command, repositorySourceFlagNameConstant, resolved.RepositorySource)

	if auditFlags {
		resolved.Verbose = !selectBoolValue(command, quietFlagNameConstant, !resolved.Verbose)
		resolved.Format = selectStringValue(command, formatFlagNameConstant, resolved.Format)
		resolved.SourceRoot = selectStringValue(command, sourceRootFlagNameConstant, resolved.SourceRoot)
		resolved.Distribution = selectStringValue(command, distributionFlagNameConstant, resolved.Distribution)
		resolved.ShowDiff = selectBoolValue(command, showDiffFlagNameConstant, resolved.ShowDiff)
		resolved.Progress = selectBoolValue(command, progressFlagNameConstant, resolved.Progress)
		resolved.FailOnDifferences = selectBoolValue(command, failOnDifferencesFlagNameConstant, resolved.FailOnDifferences)
		resolved.IncludeMatching = selectBoolValue(command, allFlagNameConstant, resolved.IncludeMatching)
	}

	resolved = resolved.Sanitize()

	formatValue, formatError := flagutils.NormalizeChoice(resolved.Format, string(report.FormatText), report.Formats())
	if formatError != nil {
		return CommandConfiguration{}, fmt.Errorf(invalidFormatErrorTemplateConstant, formatError)
	}
	resolved.Format = formatValue

	repositorySource, repositorySourceError := flagutils.NormalizeChoice(resolved.RepositorySource, RepositorySourceGit, []string{RepositorySourceGit, RepositorySourceArchive})
	if repositorySourceError != nil {
		return CommandConfiguration{}, fmt.Errorf(invalidRepositorySourceErrorTemplate, repositorySourceError)
	}
	resolved.RepositorySource = repositorySource

	distribution, distributionError := flagutils.NormalizeChoice(resolved.Distribution, string(registry.PreferenceAuto), registry.Preferences())
	if distributionError != nil {
		return CommandConfiguration{}, fmt.Errorf(invalidDistributionErrorTemplateConstant, distributionError)
	}
	resolved.Distribution = distribution

	return resolved, nil
}

func (builder *CommandBuilder) resolveRegistryClient(logger *zap.Logger, configuration CommandConfiguration) (audit.RegistryClient, error) {
	if builder.RegistryClient != nil {
		return builder.RegistryClient, nil
	}
	registryClient, clientError := registry.NewClient(logger, builder.HTTPClient, registry.Configuration{
		BaseURL:         configuration.RegistryURL,
		Preference:      registry.Preference(configuration.Distribution),
		Timeout:         configuration.Timeout,
		MaxResponseSize: configuration.MaxDownloadSize,
	})
	if clientError != nil {
		return nil, fmt.Errorf(registryClientErrorTemplateConstant, clientError)
	}
	return registryClient, nil
}

func (builder *CommandBuilder) resolveRepositoryClient(executionContext context.Context, logger *zap.Logger, configuration CommandConfiguration) (audit.RepositoryClient, error) {
	if builder.RepositoryClient != nil {
		return builder.RepositoryClient, nil
	}

	tokenSource, parseError := githubauth.ParseSource(configuration.TokenSource)
	if parseError != nil {
		return nil, fmt.Errorf(tokenSourceErrorTemplateConstant, parseError)
	}
	homeExpander := builder.resolveHomeExpander()
	token, tokenError := githubauth.NewResolver(builder.EnvironmentLookup, builder.FileReader, homeExpander).Resolve(executionContext, tokenSource)
	if tokenError != nil {
		return nil, fmt.Errorf(tokenResolutionErrorTemplateConstant, tokenError)
	}

	gitClient := repository.NewGitClient(logger, token, configuration.TokenHosts...)
	if configuration.RepositorySource != RepositorySourceArchive {
		return gitClient, nil
	}
	return repository.NewArchiveClient(logger, builder.HTTPClient, newExtractor(configuration), gitClient, repository.ArchiveConfiguration{
		URLTemplate:     configuration.ArchiveURLTemplate,
		Token:           token,
		TokenHosts:      configuration.TokenHosts,
		Timeout:         configuration.Timeout,
		MaxDownloadSize: configuration.MaxDownloadSize,
	}), nil
}

func newExtractor(configuration CommandConfiguration) *archive.Extractor {
	return archive.NewExtractorWithLimits(archive.Limits{
		MaxFileSize:  min(archive.DefaultMaxFileSize, configuration.MaxExtractedSize),
		MaxTotalSize: configuration.MaxExtractedSize,
	})
}

func (builder *CommandBuilder) resolveHomeExpander() *pathutils.HomeExpander {
	if builder.HomeExpander != nil {
		return builder.HomeExpander
	}
	return pathutils.NewHomeExpander()
}

func containsFailures(results []audit.Result) bool {
	for _, result := range results {
		if result.Status != audit.StatusOK {
			return true
		}
	}
	return false
}

func colorizeOutput(writer io.Writer) bool {
	outputFile, isFile := writer.(*os.File)
	return isFile && outputFile == os.Stdout && !color.NoColor
}
