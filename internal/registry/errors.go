package registry

import (
	"fmt"
)

const (
	httpStatusErrorTemplateConstant       = "registry request %s returned status %d"
	requestFailedErrorTemplateConstant    = "registry request %s failed: %v"
	responseDecodingErrorTemplateConstant = "decode registry response for %s: %v"
	distributionNotFoundTemplateConstant  = "no %s distribution published for %s %s"
	digestMismatchErrorTemplateConstant   = "distribution %s failed digest verification against %s"
	invalidInputErrorTemplateConstant     = "invalid registry input: %s"
	responseTooLargeErrorTemplateConstant = "registry response %s exceeds the %d byte limit"
)

// HTTPStatusError reports a non-success HTTP status from the registry or a file host.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

// Error describes the status failure.
func (statusError HTTPStatusError) Error() string {
	return fmt.Sprintf(httpStatusErrorTemplateConstant, statusError.URL, statusError.StatusCode)
}

// RequestError wraps a transport failure.
type RequestError struct {
	URL   string
	Cause error
}

// Error describes the transport failure.
func (requestError RequestError) Error() string {
	return fmt.Sprintf(requestFailedErrorTemplateConstant, requestError.URL, requestError.Cause)
}

// Unwrap exposes the transport error.
func (requestError RequestError) Unwrap() error {
	return requestError.Cause
}

// ResponseDecodingError indicates the registry returned a document that could not be decoded.
type ResponseDecodingError struct {
	URL   string
	Cause error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.URL, decodingError.Cause)
}

// Unwrap exposes the decoder error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

// DistributionNotFoundError indicates no file of the requested kind exists for a version.
type DistributionNotFoundError struct {
	Project    string
	Version    string
	Preference Preference
}

// Error describes the missing distribution.
func (notFoundError DistributionNotFoundError) Error() string {
	return fmt.Sprintf(distributionNotFoundTemplateConstant, notFoundError.Preference, notFoundError.Project, notFoundError.Version)
}

// DigestMismatchError indicates downloaded bytes do not match the published digest.
type DigestMismatchError struct {
	FileName string
	Expected string
}

// Error describes the digest mismatch.
func (mismatchError DigestMismatchError) Error() string {
	return fmt.Sprintf(digestMismatchErrorTemplateConstant, mismatchError.FileName, mismatchError.Expected)
}

// InvalidInputError reports missing or malformed arguments.
type InvalidInputError struct {
	Message string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.Message)
}

// ResponseTooLargeError reports a response body larger than the configured maximum.
type ResponseTooLargeError struct {
	URL   string
	Limit int64
}

// Error describes the oversized response.
func (sizeError ResponseTooLargeError) Error() string {
	return fmt.Sprintf(responseTooLargeErrorTemplateConstant, sizeError.URL, sizeError.Limit)
}
