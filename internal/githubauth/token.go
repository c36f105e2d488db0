package githubauth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	pathutils "github.com/temirov/distaudit/internal/utils/path"
)

// Environment variable names consulted when no explicit token source is configured.
const (
	EnvGitHubCLIToken = "GH_TOKEN"
	EnvGitHubToken    = "GITHUB_TOKEN"
	EnvGitHubAPIToken = "GITHUB_API_TOKEN"
)

const (
	tokenSourceSeparatorConstant               = ":"
	environmentTokenSourceTypeValueConstant    = "env"
	fileTokenSourceTypeValueConstant           = "file"
	environmentNameMissingErrorMessageConstant = "environment variable name must be provided"
	filePathMissingErrorMessageConstant        = "token file path must be provided"
	environmentTokenMissingTemplateConstant    = "environment variable %s is not set"
	fileReadErrorTemplateConstant              = "unable to read token file %s: %w"
	fileTokenEmptyErrorTemplateConstant        = "token file %s is empty"
	unsupportedTokenSourceTemplateConstant     = "unsupported token source type %q"
)

var tokenPreference = []string{
	EnvGitHubCLIToken,
	EnvGitHubToken,
	EnvGitHubAPIToken,
}

// SourceType enumerates the supported token retrieval mechanisms.
type SourceType string

// Token source types. SourceTypeDefault walks the GH_TOKEN, GITHUB_TOKEN and
// GITHUB_API_TOKEN variables and yields no token when all are unset.
const (
	SourceTypeDefault     SourceType = ""
	SourceTypeEnvironment SourceType = SourceType(environmentTokenSourceTypeValueConstant)
	SourceTypeFile        SourceType = SourceType(fileTokenSourceTypeValueConstant)
)

// Source specifies how to locate a token.
type Source struct {
	Type      SourceType
	Reference string
}

// EnvironmentLookup obtains an environment variable value.
type EnvironmentLookup func(key string) (string, bool)

// FileReader reads the contents of a file path.
type FileReader func(path string) ([]byte, error)

// ParseSource interprets "env:NAME", "file:/path" or a bare variable name.
// A blank value selects SourceTypeDefault.
func ParseSource(sourceValue string) (Source, error) {
	trimmedValue := strings.TrimSpace(sourceValue)
	if len(trimmedValue) == 0 {
		return Source{Type: SourceTypeDefault}, nil
	}

	components := strings.SplitN(trimmedValue, tokenSourceSeparatorConstant, 2)
	if len(components) == 1 {
		return Source{Type: SourceTypeEnvironment, Reference: trimmedValue}, nil
	}

	sourceType := strings.ToLower(strings.TrimSpace(components[0]))
	reference := strings.TrimSpace(components[1])

	switch sourceType {
	case environmentTokenSourceTypeValueConstant:
		if len(reference) == 0 {
			return Source{}, errors.New(environmentNameMissingErrorMessageConstant)
		}
		return Source{Type: SourceTypeEnvironment, Reference: reference}, nil
	case fileTokenSourceTypeValueConstant:
		if len(reference) == 0 {
			return Source{}, errors.New(filePathMissingErrorMessageConstant)
		}
		return Source{Type: SourceTypeFile, Reference: reference}, nil
	default:
		return Source{}, fmt.Errorf(unsupportedTokenSourceTemplateConstant, sourceType)
	}
}

// Resolver retrieves tokens from configured sources.
type Resolver struct {
	environmentLookup EnvironmentLookup
	fileReader        FileReader
	homeExpander      *pathutils.HomeExpander
}

// NewResolver creates a Resolver; nil collaborators fall back to the process environment and file system.
func NewResolver(environmentLookup EnvironmentLookup, fileReader FileReader, homeExpander *pathutils.HomeExpander) *Resolver {
	if environmentLookup == nil {
		environmentLookup = os.LookupEnv
	}
	if fileReader == nil {
		fileReader = os.ReadFile
	}
	if homeExpander == nil {
		homeExpander = pathutils.NewHomeExpander()
	}
	return &Resolver{environmentLookup: environmentLookup, fileReader: fileReader, homeExpander: homeExpander}
}

// Resolve returns the token described by source. An empty token with a nil
// error means anonymous access.
func (resolver *Resolver) Resolve(resolutionContext context.Context, source Source) (string, error) {
	_ = resolutionContext
	switch source.Type {
	case SourceTypeDefault:
		for _, key := range tokenPreference {
			if value, found := resolver.lookup(key); found {
				return value, nil
			}
		}
		return "", nil
	case SourceTypeEnvironment:
		value, found := resolver.lookup(source.Reference)
		if !found {
			return "", fmt.Errorf(environmentTokenMissingTemplateConstant, source.Reference)
		}
		return value, nil
	case SourceTypeFile:
		tokenPath := resolver.homeExpander.Expand(source.Reference)
		contents, readError := resolver.fileReader(tokenPath)
		if readError != nil {
			return "", fmt.Errorf(fileReadErrorTemplateConstant, tokenPath, readError)
		}
		trimmedValue := strings.TrimSpace(string(contents))
		if len(trimmedValue) == 0 {
			return "", fmt.Errorf(fileTokenEmptyErrorTemplateConstant, tokenPath)
		}
		return trimmedValue, nil
	default:
		return "", fmt.Errorf(unsupportedTokenSourceTemplateConstant, source.Type)
	}
}

func (resolver *Resolver) lookup(key string) (string, bool) {
	value, exists := resolver.environmentLookup(key)
	if !exists {
		return "", false
	}
	value = strings.TrimSpace(value)
	if len(value) == 0 {
		return "", false
	}
	return value, true
}
