package audit

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/temirov/distaudit/internal/archive"
	"github.com/temirov/distaudit/internal/comparison"
	"github.com/temirov/distaudit/internal/fileset"
	"github.com/temirov/distaudit/internal/versionmatch"
)

const (
	missingRegistryMessageConstant           = "registry client must be provided"
	missingRepositoryClientMessageConstant   = "repository client must be provided"
	missingExtractorMessageConstant          = "archive extractor must be provided"
	missingPackageNameMessageConstant        = "package name must be provided"
	missingRepositoryMessageConstant         = "repository must be provided"
	runIDLogFieldConstant                    = "run_id"
	packageLogFieldConstant                  = "package"
	repositoryLogFieldConstant               = "repository"
	versionLogFieldConstant                  = "version"
	tagLogFieldConstant                      = "tag"
	statusLogFieldConstant                   = "status"
	failureLogFieldConstant                  = "failure"
	fileLogFieldConstant                     = "file"
	countLogFieldConstant                    = "count"
	sourceRootLogFieldConstant               = "source_root"
	mismatchCountLogFieldConstant            = "mismatches"
	auditStartedLogMessageConstant           = "Audit started"
	auditFinishedLogMessageConstant          = "Audit finished"
	versionsListedLogMessageConstant         = "Versions listed"
	tagsListedLogMessageConstant             = "Tags listed"
	distributionFetchedLogMessageConstant    = "Distribution extracted"
	tagResolvedLogMessageConstant            = "Tag resolved"
	repositoryFilesFetchedLogMessageConstant = "Repository files fetched"
	versionAuditedLogMessageConstant         = "Version audited"
	versionFailedLogMessageConstant          = "Version audit failed"
	auditCancelledLogMessageConstant         = "Audit cancelled"
	differingVersionsLogFieldConstant        = "non_matching"
	auditedVersionsCountLogFieldConstant     = "audited"
)

// RunIdentifierGenerator produces the identifier attached to every log line of a run.
type RunIdentifierGenerator func() string

// Service audits package versions against their repository tags.
type Service struct {
	logger             *zap.Logger
	registryClient     RegistryClient
	repositoryClient   RepositoryClient
	extractor          ArchiveExtractor
	observer           ResultObserver
	generateIdentifier RunIdentifierGenerator
}

// NewService constructs a Service. A nil logger or observer is replaced with a no-op implementation.
func NewService(logger *zap.Logger, registryClient RegistryClient, repositoryClient RepositoryClient, extractor ArchiveExtractor, observer ResultObserver) (*Service, error) {
	if registryClient == nil {
		return nil, InvalidInputError{Message: missingRegistryMessageConstant}
	}
	if repositoryClient == nil {
		return nil, InvalidInputError{Message: missingRepositoryClientMessageConstant}
	}
	if extractor == nil {
		return nil, InvalidInputError{Message: missingExtractorMessageConstant}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &Service{
		logger:             logger,
		registryClient:     registryClient,
		repositoryClient:   repositoryClient,
		extractor:          extractor,
		observer:           observer,
		generateIdentifier: uuid.NewString,
	}, nil
}

// WithRunIdentifierGenerator replaces the run identifier source.
func (service *Service) WithRunIdentifierGenerator(generator RunIdentifierGenerator) *Service {
	if generator != nil {
		service.generateIdentifier = generator
	}
	return service
}

// Run audits every version and returns the DIFFERS and ERROR results in publication order.
// A package whose versions all match yields an empty slice.
func (service *Service) Run(executionContext context.Context, options Options) ([]Result, error) {
	results, runError := service.RunAll(executionContext, options)
	if runError != nil {
		return nil, runError
	}

	nonMatching := make([]Result, 0, len(results))
	for _, result := range results {
		if result.Status != StatusOK {
			nonMatching = append(nonMatching, result)
		}
	}
	return nonMatching, nil
}

// RunAll audits every version and returns one result per version in publication order.
// Failures that prevent auditing anything, such as an unreadable version or tag list, are returned as errors.
func (service *Service) RunAll(executionContext context.Context, options Options) ([]Result, error) {
	plan, planError := newAuditPlan(options)
	if planError != nil {
		return nil, planError
	}

	runLogger := service.logger.With(
		zap.String(runIDLogFieldConstant, service.generateIdentifier()),
		zap.String(packageLogFieldConstant, plan.packageName),
		zap.String(repositoryLogFieldConstant, plan.repository),
	)
	runLogger.Info(auditStartedLogMessageConstant, zap.String(sourceRootLogFieldConstant, plan.normalizer.Root))

	versions, versionsError := service.registryClient.ListVersions(executionContext, plan.packageName)
	if versionsError != nil {
		return nil, VersionListingError{PackageName: plan.packageName, Cause: versionsError}
	}
	runLogger.Debug(versionsListedLogMessageConstant, zap.Int(countLogFieldConstant, len(versions)))

	var tags []string
	if len(versions) > 0 {
		listedTags, tagsError := service.repositoryClient.ListTags(executionContext, plan.repository)
		if tagsError != nil {
			return nil, TagListingError{Repository: plan.repository, Cause: tagsError}
		}
		tags = listedTags
		runLogger.Debug(tagsListedLogMessageConstant, zap.Int(countLogFieldConstant, len(tags)))
	}

	service.observer.AuditStarted(plan.packageName, versions)

	results := make([]Result, 0, len(versions))
	nonMatchingCount := 0
	for _, version := range versions {
		if contextError := executionContext.Err(); contextError != nil {
			runLogger.Warn(auditCancelledLogMessageConstant, zap.Error(contextError))
			service.observer.AuditFinished()
			return nil, contextError
		}

		result := service.auditVersion(executionContext, runLogger.With(zap.String(versionLogFieldConstant, version)), plan, tags, version)
		if result.Status != StatusOK {
			nonMatchingCount++
		}
		results = append(results, result)
		service.observer.VersionAudited(result)
	}

	service.observer.AuditFinished()
	runLogger.Info(auditFinishedLogMessageConstant,
		zap.Int(auditedVersionsCountLogFieldConstant, len(results)),
		zap.Int(differingVersionsLogFieldConstant, nonMatchingCount),
	)
	return results, nil
}

func (service *Service) auditVersion(executionContext context.Context, versionLogger *zap.Logger, plan auditPlan, tags []string, version string) Result {
	result := Result{Version: version}

	distribution, distributionError := service.registryClient.GetDistribution(executionContext, plan.packageName, version)
	if distributionError != nil {
		return service.fail(versionLogger, result, FailureKindNetwork, FetchError{Source: FetchSourceRegistry, Version: version, Cause: distributionError})
	}

	distributionFiles, extractionError := service.extractor.Extract(distribution.FileName, distribution.Data)
	if extractionError != nil {
		return service.fail(versionLogger, result, FailureKindExtraction, extractionError)
	}
	extractedCount := distributionFiles.Len()
	distributionFiles = plan.normalizer.Apply(distributionFiles)
	if extractedCount > 0 && distributionFiles.Len() == 0 {
		return service.fail(versionLogger, result, FailureKindExtraction, EmptySourceRootError{
			FileName:   distribution.FileName,
			FileCount:  extractedCount,
			SourceRoot: plan.normalizer.Root,
		})
	}
	versionLogger.Debug(distributionFetchedLogMessageConstant,
		zap.String(fileLogFieldConstant, distribution.FileName),
		zap.Int(countLogFieldConstant, distributionFiles.Len()),
	)

	tag, tagError := plan.matcher.Resolve(version, tags)
	if tagError != nil {
		return service.fail(versionLogger, result, FailureKindNoMatchingTag, tagError)
	}
	result.Tag = tag
	versionLogger.Debug(tagResolvedLogMessageConstant, zap.String(tagLogFieldConstant, tag))

	repositoryFiles, repositoryError := service.repositoryClient.FilesAtTag(executionContext, plan.repository, tag)
	if repositoryError != nil {
		failureKind := FailureKindNetwork
		var archiveError archive.ExtractionError
		if errors.As(repositoryError, &archiveError) {
			failureKind = FailureKindExtraction
		}
		return service.fail(versionLogger, result, failureKind, FetchError{Source: FetchSourceRepository, Version: version, Cause: repositoryError})
	}
	repositoryFiles = plan.normalizer.Apply(repositoryFiles)
	versionLogger.Debug(repositoryFilesFetchedLogMessageConstant,
		zap.String(tagLogFieldConstant, tag),
		zap.Int(countLogFieldConstant, repositoryFiles.Len()),
	)

	report := comparison.Compare(distributionFiles, repositoryFiles)
	result.Entries = report.Entries
	result.Status = StatusOK
	if report.Status != comparison.StatusOK {
		result.Status = StatusDiffers
	}

	versionLogger.Info(versionAuditedLogMessageConstant,
		zap.String(tagLogFieldConstant, tag),
		zap.String(statusLogFieldConstant, string(result.Status)),
		zap.Int(mismatchCountLogFieldConstant, len(report.Mismatches())),
	)
	return result
}

func (service *Service) fail(versionLogger *zap.Logger, result Result, failureKind FailureKind, failure error) Result {
	result.Status = StatusError
	result.FailureKind = failureKind
	result.Message = failure.Error()
	result.Err = failure
	result.Entries = nil

	versionLogger.Warn(versionFailedLogMessageConstant,
		zap.String(tagLogFieldConstant, result.Tag),
		zap.String(statusLogFieldConstant, string(result.Status)),
		zap.String(failureLogFieldConstant, string(failureKind)),
		zap.Error(failure),
	)
	return result
}

type auditPlan struct {
	packageName string
	repository  string
	normalizer  fileset.Normalizer
	matcher     versionmatch.Matcher
}

func newAuditPlan(options Options) (auditPlan, error) {
	packageName := strings.TrimSpace(options.PackageName)
	if len(packageName) == 0 {
		return auditPlan{}, InvalidInputError{Message: missingPackageNameMessageConstant}
	}
	repository := strings.TrimSpace(options.Repository)
	if len(repository) == 0 {
		return auditPlan{}, InvalidInputError{Message: missingRepositoryMessageConstant}
	}

	sourceRoot := strings.TrimSpace(options.SourceRoot)
	switch sourceRoot {
	case "":
		sourceRoot = fileset.DefaultRoot(packageName)
	case WholeTreeSourceRoot:
		sourceRoot = ""
	}

	return auditPlan{
		packageName: packageName,
		repository:  repository,
		normalizer:  fileset.Normalizer{Root: sourceRoot},
		matcher:     versionmatch.NewMatcher(options.TagPrefixes),
	}, nil
}
