package repository

import (
	"fmt"
)

const (
	tagNotFoundErrorTemplateConstant   = "tag %s not found in %s"
	operationErrorTemplateConstant     = "%s %s: %v"
	httpStatusErrorTemplateConstant    = "archive request %s returned status %d"
	downloadTooLargeTemplateConstant   = "archive %s exceeds the %d byte limit"
	listTagsOperationNameConstant      = "list tags of"
	cloneOperationNameConstant         = "clone"
	readTreeOperationNameConstant      = "read tree of"
	openRepositoryOperationConstant    = "open"
	downloadArchiveOperationConstant   = "download"
	extractArchiveOperationConstant    = "extract snapshot of"
	resolveIdentifierOperationConstant = "resolve"
)

// TagNotFoundError indicates the requested tag does not exist.
type TagNotFoundError struct {
	Repository string
	Tag        string
}

// Error describes the missing tag.
func (notFoundError TagNotFoundError) Error() string {
	return fmt.Sprintf(tagNotFoundErrorTemplateConstant, notFoundError.Tag, notFoundError.Repository)
}

// OperationError wraps a failed repository operation with the repository it targeted.
type OperationError struct {
	Operation  string
	Repository string
	Cause      error
}

// Error describes the failed operation.
func (operationError OperationError) Error() string {
	return fmt.Sprintf(operationErrorTemplateConstant, operationError.Operation, operationError.Repository, operationError.Cause)
}

// Unwrap exposes the underlying failure.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// HTTPStatusError reports a non-success status while downloading a snapshot archive.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

// Error describes the status failure.
func (statusError HTTPStatusError) Error() string {
	return fmt.Sprintf(httpStatusErrorTemplateConstant, statusError.URL, statusError.StatusCode)
}

// DownloadTooLargeError reports a snapshot archive larger than the configured maximum.
type DownloadTooLargeError struct {
	URL   string
	Limit int64
}

// Error describes the oversized download.
func (sizeError DownloadTooLargeError) Error() string {
	return fmt.Sprintf(downloadTooLargeTemplateConstant, sizeError.URL, sizeError.Limit)
}
