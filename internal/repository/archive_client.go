package repository

import (
	"context"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/distaudit/internal/fileset"
	"github.com/temirov/distaudit/internal/gitrepo"
)

const (
	// DefaultDownloadTimeout bounds snapshot downloads when no HTTP client is supplied.
	DefaultDownloadTimeout = 120 * time.Second
	// DefaultMaxDownloadSize bounds a snapshot archive download.
	DefaultMaxDownloadSize int64 = 512 << 20

	authorizationHeaderConstant           = "Authorization"
	bearerPrefixConstant                  = "Bearer "
	snapshotTopLevelComponentsConstant    = 1
	urlLogFieldConstant                   = "url"
	downloadingSnapshotLogMessageConstant = "Downloading tag snapshot"
	extractedSnapshotLogMessageConstant   = "Extracted tag snapshot"
)

// HTTPClient executes snapshot downloads.
type HTTPClient interface {
	Do(request *http.Request) (*http.Response, error)
}

// ArchiveExtractor decodes downloaded snapshot archives.
type ArchiveExtractor interface {
	Extract(name string, data []byte) (fileset.FileSet, error)
}

// TagLister lists the tags of a repository.
type TagLister interface {
	ListTags(executionContext context.Context, repository string) ([]string, error)
}

// ArchiveConfiguration describes how tag snapshots are downloaded.
type ArchiveConfiguration struct {
	URLTemplate string
	// Token is sent as a bearer credential to https snapshot URLs on TokenHosts.
	Token string
	// TokenHosts defaults to gitrepo.DefaultHost.
	TokenHosts []string
	Timeout    time.Duration
	// MaxDownloadSize defaults to DefaultMaxDownloadSize when not positive.
	MaxDownloadSize int64
}

// ArchiveClient downloads tag snapshot archives instead of cloning.
type ArchiveClient struct {
	logger      *zap.Logger
	httpClient  HTTPClient
	extractor   ArchiveExtractor
	tagLister   TagLister
	urlTemplate string
	token       string
	tokenHosts  []string
	maxSize     int64
}

// NewArchiveClient constructs an ArchiveClient. Tags are listed through tagLister.
func NewArchiveClient(logger *zap.Logger, httpClient HTTPClient, extractor ArchiveExtractor, tagLister TagLister, configuration ArchiveConfiguration) *ArchiveClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		timeout := configuration.Timeout
		if timeout <= 0 {
			timeout = DefaultDownloadTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxSize := configuration.MaxDownloadSize
	if maxSize <= 0 {
		maxSize = DefaultMaxDownloadSize
	}
	if tagLister == nil {
		tagLister = NewGitClient(logger, configuration.Token, configuration.TokenHosts...)
	}
	return &ArchiveClient{
		logger:      logger,
		httpClient:  httpClient,
		extractor:   extractor,
		tagLister:   tagLister,
		urlTemplate: configuration.URLTemplate,
		token:       strings.TrimSpace(configuration.Token),
		tokenHosts:  normalizeTokenHosts(configuration.TokenHosts),
		maxSize:     maxSize,
	}
}

// ListTags delegates to the configured TagLister.
func (client *ArchiveClient) ListTags(executionContext context.Context, repository string) ([]string, error) {
	return client.tagLister.ListTags(executionContext, repository)
}

// FilesAtTag downloads the snapshot archive for tag and drops its top-level directory.
func (client *ArchiveClient) FilesAtTag(executionContext context.Context, repository string, tag string) (fileset.FileSet, error) {
	remote, parseError := gitrepo.ParseRemoteURL(repository)
	if parseError != nil {
		return fileset.FileSet{}, OperationError{Operation: resolveIdentifierOperationConstant, Repository: repository, Cause: parseError}
	}
	archiveURL, formatError := gitrepo.FormatArchiveURL(client.urlTemplate, remote, tag)
	if formatError != nil {
		return fileset.FileSet{}, OperationError{Operation: resolveIdentifierOperationConstant, Repository: repository, Cause: formatError}
	}

	client.logger.Debug(downloadingSnapshotLogMessageConstant,
		zap.String(repositoryLogFieldConstant, remote.FullName()),
		zap.String(tagLogFieldConstant, tag),
		zap.String(urlLogFieldConstant, archiveURL),
	)

	data, downloadError := client.download(executionContext, archiveURL)
	if downloadError != nil {
		return fileset.FileSet{}, OperationError{Operation: downloadArchiveOperationConstant, Repository: remote.FullName(), Cause: downloadError}
	}

	files, extractError := client.extractor.Extract(path.Base(archiveURL), data)
	if extractError != nil {
		return fileset.FileSet{}, OperationError{Operation: extractArchiveOperationConstant, Repository: remote.FullName(), Cause: extractError}
	}

	stripped := fileset.StripComponents(files, snapshotTopLevelComponentsConstant)
	client.logger.Debug(extractedSnapshotLogMessageConstant,
		zap.String(repositoryLogFieldConstant, remote.FullName()),
		zap.String(tagLogFieldConstant, tag),
		zap.Int(countLogFieldConstant, stripped.Len()),
	)
	return stripped, nil
}

func (client *ArchiveClient) download(executionContext context.Context, archiveURL string) ([]byte, error) {
	request, requestError := http.NewRequestWithContext(executionContext, http.MethodGet, archiveURL, nil)
	if requestError != nil {
		return nil, requestError
	}
	if len(client.token) > 0 && urlHostAllowed(client.tokenHosts, archiveURL) {
		request.Header.Set(authorizationHeaderConstant, bearerPrefixConstant+client.token)
	}

	response, responseError := client.httpClient.Do(request)
	if responseError != nil {
		return nil, responseError
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil, HTTPStatusError{URL: archiveURL, StatusCode: response.StatusCode}
	}

	data, readError := io.ReadAll(io.LimitReader(response.Body, client.maxSize+1))
	if readError != nil {
		return nil, readError
	}
	if int64(len(data)) > client.maxSize {
		return nil, DownloadTooLargeError{URL: archiveURL, Limit: client.maxSize}
	}
	return data, nil
}
