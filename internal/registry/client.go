package registry

import (
	"context"
	_ "crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the public PyPI index.
	DefaultBaseURL = "https://pypi.org"
	// DefaultTimeout bounds each registry request when no HTTP client is supplied.
	DefaultTimeout = 60 * time.Second
	// DefaultMaxResponseSize bounds every registry response body, downloads included.
	DefaultMaxResponseSize int64 = 512 << 20

	projectDocumentPathTemplateConstant = "%s/pypi/%s/json"
	releaseDocumentPathTemplateConstant = "%s/pypi/%s/%s/json"
	acceptHeaderNameConstant            = "Accept"
	jsonMediaTypeConstant               = "application/json"
	wheelPackageTypeConstant            = "bdist_wheel"
	sourcePackageTypeConstant           = "sdist"
	universalWheelSuffixConstant        = "-none-any.whl"
	missingBaseURLMessageConstant       = "base url must be provided"
	missingProjectMessageConstant       = "project name must be provided"
	missingVersionMessageConstant       = "version must be provided"
	unsupportedPreferenceTemplate       = "unsupported distribution preference %q"
	digestParseTemplateConstant         = "published sha256 %q: %w"
	projectLogFieldConstant             = "project"
	versionLogFieldConstant             = "version"
	fileLogFieldConstant                = "file"
	urlLogFieldConstant                 = "url"
	countLogFieldConstant               = "count"
	sizeLogFieldConstant                = "bytes"
	listingVersionsLogMessageConstant   = "Listing registry versions"
	listedVersionsLogMessageConstant    = "Listed registry versions"
	downloadingLogMessageConstant       = "Downloading distribution"
	downloadedLogMessageConstant        = "Downloaded distribution"
	uploadTimeLayoutConstant            = "2006-01-02T15:04:05"
)

// Preference selects which published file represents a version.
type Preference string

// Supported distribution preferences.
const (
	PreferenceAuto  Preference = "auto"
	PreferenceWheel Preference = "wheel"
	PreferenceSdist Preference = "sdist"
)

// Preferences lists the accepted preference values in display order.
func Preferences() []string {
	return []string{string(PreferenceAuto), string(PreferenceWheel), string(PreferenceSdist)}
}

// HTTPClient executes registry requests.
type HTTPClient interface {
	Do(request *http.Request) (*http.Response, error)
}

// Configuration controls the registry endpoint and file selection.
type Configuration struct {
	BaseURL    string
	Preference Preference
	Timeout    time.Duration
	// MaxResponseSize defaults to DefaultMaxResponseSize when not positive.
	MaxResponseSize int64
}

// Distribution is a downloaded release file.
type Distribution struct {
	FileName    string
	URL         string
	PackageType string
	Data        []byte
}

// Client talks to the PyPI JSON API.
type Client struct {
	logger          *zap.Logger
	httpClient      HTTPClient
	baseURL         string
	preference      Preference
	maxResponseSize int64
}

type projectDocument struct {
	Releases map[string][]releaseFile `json:"releases"`
}

type releaseDocument struct {
	URLs []releaseFile `json:"urls"`
}

type releaseFile struct {
	FileName          string        `json:"filename"`
	URL               string        `json:"url"`
	PackageType       string        `json:"packagetype"`
	UploadTime        string        `json:"upload_time"`
	UploadTimeISO8601 string        `json:"upload_time_iso_8601"`
	Yanked            bool          `json:"yanked"`
	Digests           releaseDigest `json:"digests"`
}

type releaseDigest struct {
	SHA256 string `json:"sha256"`
}

// NewClient constructs a Client. A nil httpClient is replaced by an http.Client using the configured timeout.
func NewClient(logger *zap.Logger, httpClient HTTPClient, configuration Configuration) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(configuration.BaseURL), "/")
	if len(baseURL) == 0 {
		return nil, InvalidInputError{Message: missingBaseURLMessageConstant}
	}

	preference := Preference(strings.ToLower(strings.TrimSpace(string(configuration.Preference))))
	switch preference {
	case "":
		preference = PreferenceAuto
	case PreferenceAuto, PreferenceWheel, PreferenceSdist:
	default:
		return nil, InvalidInputError{Message: fmt.Sprintf(unsupportedPreferenceTemplate, configuration.Preference)}
	}

	if httpClient == nil {
		timeout := configuration.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	maxResponseSize := configuration.MaxResponseSize
	if maxResponseSize <= 0 {
		maxResponseSize = DefaultMaxResponseSize
	}

	return &Client{logger: logger, httpClient: httpClient, baseURL: baseURL, preference: preference, maxResponseSize: maxResponseSize}, nil
}

// ListVersions returns every published version of project ordered by the
// earliest upload time of its files. Versions without files come first and
// ties are broken by version string.
func (client *Client) ListVersions(executionContext context.Context, project string) ([]string, error) {
	trimmedProject := strings.TrimSpace(project)
	if len(trimmedProject) == 0 {
		return nil, InvalidInputError{Message: missingProjectMessageConstant}
	}

	client.logger.Debug(listingVersionsLogMessageConstant, zap.String(projectLogFieldConstant, trimmedProject))

	documentURL := fmt.Sprintf(projectDocumentPathTemplateConstant, client.baseURL, url.PathEscape(trimmedProject))
	var document projectDocument
	if fetchError := client.fetchJSON(executionContext, documentURL, &document); fetchError != nil {
		return nil, fetchError
	}

	type publishedVersion struct {
		version    string
		uploadTime time.Time
	}

	publishedVersions := make([]publishedVersion, 0, len(document.Releases))
	for version, files := range document.Releases {
		publishedVersions = append(publishedVersions, publishedVersion{version: version, uploadTime: earliestUpload(files)})
	}

	sort.Slice(publishedVersions, func(leftIndex int, rightIndex int) bool {
		left := publishedVersions[leftIndex]
		right := publishedVersions[rightIndex]
		if !left.uploadTime.Equal(right.uploadTime) {
			return left.uploadTime.Before(right.uploadTime)
		}
		return left.version < right.version
	})

	versions := make([]string, 0, len(publishedVersions))
	for _, published := range publishedVersions {
		versions = append(versions, published.version)
	}

	client.logger.Debug(listedVersionsLogMessageConstant,
		zap.String(projectLogFieldConstant, trimmedProject),
		zap.Int(countLogFieldConstant, len(versions)),
	)
	return versions, nil
}

// GetDistribution downloads the preferred file published for version and verifies its sha256 digest.
func (client *Client) GetDistribution(executionContext context.Context, project string, version string) (Distribution, error) {
	trimmedProject := strings.TrimSpace(project)
	if len(trimmedProject) == 0 {
		return Distribution{}, InvalidInputError{Message: missingProjectMessageConstant}
	}
	trimmedVersion := strings.TrimSpace(version)
	if len(trimmedVersion) == 0 {
		return Distribution{}, InvalidInputError{Message: missingVersionMessageConstant}
	}

	documentURL := fmt.Sprintf(releaseDocumentPathTemplateConstant, client.baseURL, url.PathEscape(trimmedProject), url.PathEscape(trimmedVersion))
	var document releaseDocument
	if fetchError := client.fetchJSON(executionContext, documentURL, &document); fetchError != nil {
		return Distribution{}, fetchError
	}

	selectedFile, found := selectFile(document.URLs, client.preference)
	if !found {
		return Distribution{}, DistributionNotFoundError{Project: trimmedProject, Version: trimmedVersion, Preference: client.preference}
	}

	client.logger.Debug(downloadingLogMessageConstant,
		zap.String(projectLogFieldConstant, trimmedProject),
		zap.String(versionLogFieldConstant, trimmedVersion),
		zap.String(fileLogFieldConstant, selectedFile.FileName),
		zap.String(urlLogFieldConstant, selectedFile.URL),
	)

	data, downloadError := client.fetch(executionContext, selectedFile.URL, "")
	if downloadError != nil {
		return Distribution{}, downloadError
	}

	if verificationError := verifyDigest(selectedFile, data); verificationError != nil {
		return Distribution{}, verificationError
	}

	client.logger.Debug(downloadedLogMessageConstant,
		zap.String(projectLogFieldConstant, trimmedProject),
		zap.String(versionLogFieldConstant, trimmedVersion),
		zap.String(fileLogFieldConstant, selectedFile.FileName),
		zap.Int(sizeLogFieldConstant, len(data)),
	)

	return Distribution{
		FileName:    selectedFile.FileName,
		URL:         selectedFile.URL,
		PackageType: selectedFile.PackageType,
		Data:        data,
	}, nil
}

func (client *Client) fetchJSON(executionContext context.Context, documentURL string, target any) error {
	payload, fetchError := client.fetch(executionContext, documentURL, jsonMediaTypeConstant)
	if fetchError != nil {
		return fetchError
	}
	if decodeError := json.Unmarshal(payload, target); decodeError != nil {
		return ResponseDecodingError{URL: documentURL, Cause: decodeError}
	}
	return nil
}

func (client *Client) fetch(executionContext context.Context, resourceURL string, accept string) ([]byte, error) {
	request, requestError := http.NewRequestWithContext(executionContext, http.MethodGet, resourceURL, nil)
	if requestError != nil {
		return nil, RequestError{URL: resourceURL, Cause: requestError}
	}
	if len(accept) > 0 {
		request.Header.Set(acceptHeaderNameConstant, accept)
	}

	response, responseError := client.httpClient.Do(request)
	if responseError != nil {
		return nil, RequestError{URL: resourceURL, Cause: responseError}
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil, HTTPStatusError{URL: resourceURL, StatusCode: response.StatusCode}
	}

	payload, readError := io.ReadAll(io.LimitReader(response.Body, client.maxResponseSize+1))
	if readError != nil {
		return nil, RequestError{URL: resourceURL, Cause: readError}
	}
	if int64(len(payload)) > client.maxResponseSize {
		return nil, ResponseTooLargeError{URL: resourceURL, Limit: client.maxResponseSize}
	}
	return payload, nil
}

func earliestUpload(files []releaseFile) time.Time {
	var earliest time.Time
	for _, file := range files {
		uploadTime, parsed := file.uploadTime()
		if !parsed {
			continue
		}
		if earliest.IsZero() || uploadTime.Before(earliest) {
			earliest = uploadTime
		}
	}
	return earliest
}

func (file releaseFile) uploadTime() (time.Time, bool) {
	if parsedTime, parseError := time.Parse(time.RFC3339Nano, file.UploadTimeISO8601); parseError == nil {
		return parsedTime.UTC(), true
	}
	if parsedTime, parseError := time.Parse(uploadTimeLayoutConstant, file.UploadTime); parseError == nil {
		return parsedTime.UTC(), true
	}
	return time.Time{}, false
}

func selectFile(files []releaseFile, preference Preference) (releaseFile, bool) {
	universalWheel, universalFound := firstFile(files, func(file releaseFile) bool {
		return file.PackageType == wheelPackageTypeConstant && strings.HasSuffix(strings.ToLower(file.FileName), universalWheelSuffixConstant)
	})
	anyWheel, wheelFound := firstFile(files, func(file releaseFile) bool {
		return file.PackageType == wheelPackageTypeConstant
	})
	sourceArchive, sourceFound := firstFile(files, func(file releaseFile) bool {
		return file.PackageType == sourcePackageTypeConstant
	})

	switch preference {
	case PreferenceSdist:
		return sourceArchive, sourceFound
	case PreferenceWheel:
		if universalFound {
			return universalWheel, true
		}
		return anyWheel, wheelFound
	default:
		if universalFound {
			return universalWheel, true
		}
		if wheelFound {
			return anyWheel, true
		}
		return sourceArchive, sourceFound
	}
}

func firstFile(files []releaseFile, predicate func(releaseFile) bool) (releaseFile, bool) {
	for _, file := range files {
		if predicate(file) {
			return file, true
		}
	}
	return releaseFile{}, false
}

func verifyDigest(file releaseFile, data []byte) error {
	encoded := strings.ToLower(strings.TrimSpace(file.Digests.SHA256))
	if len(encoded) == 0 {
		return nil
	}

	expectedDigest := digest.NewDigestFromEncoded(digest.SHA256, encoded)
	if validationError := expectedDigest.Validate(); validationError != nil {
		return ResponseDecodingError{URL: file.URL, Cause: fmt.Errorf(digestParseTemplateConstant, encoded, validationError)}
	}

	verifier := expectedDigest.Verifier()
	_, _ = verifier.Write(data)
	if !verifier.Verified() {
		return DigestMismatchError{FileName: file.FileName, Expected: expectedDigest.String()}
	}
	return nil
}
