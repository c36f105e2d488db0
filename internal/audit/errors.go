package audit

import (
	"errors"
	"fmt"
)

const (
	fetchErrorTemplateConstant           = "fetch %s for version %s: %v"
	versionListingErrorTemplateConstant  = "list versions of %s: %v"
	tagListingErrorTemplateConstant      = "list tags of %s: %v"
	invalidInputErrorTemplateConstant    = "invalid audit input: %s"
	differencesDetectedMessageConstant   = "differences detected"
	emptySourceRootErrorTemplateConstant = "%s contains %d files but none under source root %q"
)

// ErrDifferencesDetected signals that at least one version did not match.
var ErrDifferencesDetected = errors.New(differencesDetectedMessageConstant)

// FetchSource names the collaborator a fetch failed against.
type FetchSource string

// Fetch sources.
const (
	FetchSourceRegistry   FetchSource = "distribution"
	FetchSourceRepository FetchSource = "repository files"
)

// FetchError wraps a failed download from the registry or repository.
type FetchError struct {
	Source  FetchSource
	Version string
	Cause   error
}

// Error describes the fetch failure.
func (fetchError FetchError) Error() string {
	return fmt.Sprintf(fetchErrorTemplateConstant, fetchError.Source, fetchError.Version, fetchError.Cause)
}

// Unwrap exposes the collaborator error.
func (fetchError FetchError) Unwrap() error {
	return fetchError.Cause
}

// VersionListingError aborts a run whose version list cannot be read.
type VersionListingError struct {
	PackageName string
	Cause       error
}

// Error describes the listing failure.
func (listingError VersionListingError) Error() string {
	return fmt.Sprintf(versionListingErrorTemplateConstant, listingError.PackageName, listingError.Cause)
}

// Unwrap exposes the registry error.
func (listingError VersionListingError) Unwrap() error {
	return listingError.Cause
}

// TagListingError aborts a run whose repository tags cannot be read.
type TagListingError struct {
	Repository string
	Cause      error
}

// Error describes the listing failure.
func (listingError TagListingError) Error() string {
	return fmt.Sprintf(tagListingErrorTemplateConstant, listingError.Repository, listingError.Cause)
}

// Unwrap exposes the repository error.
func (listingError TagListingError) Unwrap() error {
	return listingError.Cause
}

// InvalidInputError reports missing options or collaborators.
type InvalidInputError struct {
	Message string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.Message)
}

// EmptySourceRootError reports a distribution with files none of which lie under the source root.
type EmptySourceRootError struct {
	FileName   string
	FileCount  int
	SourceRoot string
}

// Error describes the empty normalization.
func (rootError EmptySourceRootError) Error() string {
	return fmt.Sprintf(emptySourceRootErrorTemplateConstant, rootError.FileName, rootError.FileCount, rootError.SourceRoot)
}
