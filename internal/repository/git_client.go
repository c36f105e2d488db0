package repository

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
	"go.uber.org/zap"

	"github.com/temirov/distaudit/internal/fileset"
	"github.com/temirov/distaudit/internal/gitrepo"
)

const (
	remoteNameConstant             = "origin"
	peeledReferenceSuffixConstant  = "^{}"
	tokenUsernameConstant          = "x-access-token"
	repositoryLogFieldConstant     = "repository"
	tagLogFieldConstant            = "tag"
	countLogFieldConstant          = "count"
	listingTagsLogMessageConstant  = "Listing repository tags"
	listedTagsLogMessageConstant   = "Listed repository tags"
	cloningTagLogMessageConstant   = "Cloning repository tag"
	readTagFilesLogMessageConstant = "Read repository files at tag"
	openingLocalLogMessageConstant = "Opening local repository"
	shallowCloneDepthConstant      = 1
)

// GitClient reads repositories through go-git.
type GitClient struct {
	logger     *zap.Logger
	auth       transport.AuthMethod
	tokenHosts []string
}

// NewGitClient constructs a GitClient. A non-empty token is sent as HTTP basic
// credentials to https remotes on tokenHosts, which defaults to gitrepo.DefaultHost.
// Other remotes, ssh ones included, are contacted without it.
func NewGitClient(logger *zap.Logger, token string, tokenHosts ...string) *GitClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := &GitClient{logger: logger, tokenHosts: normalizeTokenHosts(tokenHosts)}
	if trimmedToken := strings.TrimSpace(token); len(trimmedToken) > 0 {
		client.auth = &githttp.BasicAuth{Username: tokenUsernameConstant, Password: trimmedToken}
	}
	return client
}

func (client *GitClient) authFor(remote gitrepo.RemoteURL) transport.AuthMethod {
	if client.auth == nil || remote.Protocol != gitrepo.RemoteProtocolHTTPS || !hostAllowed(client.tokenHosts, remote.Host) {
		return nil
	}
	return client.auth
}

// ListTags returns the tag names of repository sorted lexicographically.
func (client *GitClient) ListTags(executionContext context.Context, repository string) ([]string, error) {
	remote, cloneURL, resolveError := resolveRepository(repository)
	if resolveError != nil {
		return nil, resolveError
	}

	client.logger.Debug(listingTagsLogMessageConstant, zap.String(repositoryLogFieldConstant, cloneURL))

	var tags []string
	var listError error
	if remote.Protocol == gitrepo.RemoteProtocolFile {
		tags, listError = client.listLocalTags(executionContext, remote.Repository)
	} else {
		tags, listError = client.listRemoteTags(executionContext, cloneURL, client.authFor(remote))
	}
	if listError != nil {
		return nil, OperationError{Operation: listTagsOperationNameConstant, Repository: cloneURL, Cause: listError}
	}

	sort.Strings(tags)
	client.logger.Debug(listedTagsLogMessageConstant,
		zap.String(repositoryLogFieldConstant, cloneURL),
		zap.Int(countLogFieldConstant, len(tags)),
	)
	return tags, nil
}

// FilesAtTag returns every regular file committed at tag, in tree order.
func (client *GitClient) FilesAtTag(executionContext context.Context, repository string, tag string) (fileset.FileSet, error) {
	remote, cloneURL, resolveError := resolveRepository(repository)
	if resolveError != nil {
		return fileset.FileSet{}, resolveError
	}

	var gitRepository *git.Repository
	var revision plumbing.Hash
	if remote.Protocol == gitrepo.RemoteProtocolFile {
		client.logger.Debug(openingLocalLogMessageConstant,
			zap.String(repositoryLogFieldConstant, cloneURL),
			zap.String(tagLogFieldConstant, tag),
		)
		openedRepository, openError := git.PlainOpen(remote.Repository)
		if openError != nil {
			return fileset.FileSet{}, OperationError{Operation: openRepositoryOperationConstant, Repository: cloneURL, Cause: openError}
		}
		tagReference, referenceError := openedRepository.Tag(tag)
		if errors.Is(referenceError, git.ErrTagNotFound) {
			return fileset.FileSet{}, TagNotFoundError{Repository: cloneURL, Tag: tag}
		}
		if referenceError != nil {
			return fileset.FileSet{}, OperationError{Operation: openRepositoryOperationConstant, Repository: cloneURL, Cause: referenceError}
		}
		gitRepository = openedRepository
		revision = tagReference.Hash()
	} else {
		client.logger.Debug(cloningTagLogMessageConstant,
			zap.String(repositoryLogFieldConstant, cloneURL),
			zap.String(tagLogFieldConstant, tag),
		)
		clonedRepository, cloneError := git.CloneContext(executionContext, memory.NewStorage(), nil, &git.CloneOptions{
			URL:           cloneURL,
			Auth:          client.authFor(remote),
			ReferenceName: plumbing.NewTagReferenceName(tag),
			SingleBranch:  true,
			Depth:         shallowCloneDepthConstant,
			Tags:          git.NoTags,
		})
		if cloneError != nil {
			var noMatchingReferenceError git.NoMatchingRefSpecError
			if errors.Is(cloneError, plumbing.ErrReferenceNotFound) || errors.As(cloneError, &noMatchingReferenceError) {
				return fileset.FileSet{}, TagNotFoundError{Repository: cloneURL, Tag: tag}
			}
			return fileset.FileSet{}, OperationError{Operation: cloneOperationNameConstant, Repository: cloneURL, Cause: cloneError}
		}
		head, headError := clonedRepository.Head()
		if headError != nil {
			return fileset.FileSet{}, OperationError{Operation: cloneOperationNameConstant, Repository: cloneURL, Cause: headError}
		}
		gitRepository = clonedRepository
		revision = head.Hash()
	}

	files, readError := readTree(executionContext, gitRepository, revision)
	if readError != nil {
		return fileset.FileSet{}, OperationError{Operation: readTreeOperationNameConstant, Repository: cloneURL, Cause: readError}
	}

	client.logger.Debug(readTagFilesLogMessageConstant,
		zap.String(repositoryLogFieldConstant, cloneURL),
		zap.String(tagLogFieldConstant, tag),
		zap.Int(countLogFieldConstant, files.Len()),
	)
	return files, nil
}

func (client *GitClient) listRemoteTags(executionContext context.Context, cloneURL string, auth transport.AuthMethod) ([]string, error) {
	remote := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: remoteNameConstant,
		URLs: []string{cloneURL},
	})

	references, listError := remote.ListContext(executionContext, &git.ListOptions{
		Auth:          auth,
		PeelingOption: git.IgnorePeeled,
	})
	if errors.Is(listError, transport.ErrEmptyRemoteRepository) {
		return nil, nil
	}
	if listError != nil {
		return nil, listError
	}

	var tags []string
	for _, reference := range references {
		referenceName := reference.Name()
		if !referenceName.IsTag() || strings.HasSuffix(referenceName.String(), peeledReferenceSuffixConstant) {
			continue
		}
		tags = append(tags, referenceName.Short())
	}
	return tags, nil
}

func (client *GitClient) listLocalTags(executionContext context.Context, repositoryPath string) ([]string, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return nil, contextError
	}

	gitRepository, openError := git.PlainOpen(repositoryPath)
	if openError != nil {
		return nil, openError
	}

	tagReferences, iterationError := gitRepository.Tags()
	if iterationError != nil {
		return nil, iterationError
	}

	var tags []string
	forEachError := tagReferences.ForEach(func(reference *plumbing.Reference) error {
		tags = append(tags, reference.Name().Short())
		return nil
	})
	return tags, forEachError
}

func readTree(executionContext context.Context, gitRepository *git.Repository, revision plumbing.Hash) (fileset.FileSet, error) {
	commit, commitError := resolveCommit(gitRepository, revision)
	if commitError != nil {
		return fileset.FileSet{}, commitError
	}

	tree, treeError := commit.Tree()
	if treeError != nil {
		return fileset.FileSet{}, treeError
	}

	var files fileset.FileSet
	walkError := tree.Files().ForEach(func(file *object.File) error {
		if contextError := executionContext.Err(); contextError != nil {
			return contextError
		}
		if file.Mode != filemode.Regular && file.Mode != filemode.Executable && file.Mode != filemode.Deprecated {
			return nil
		}
		reader, readerError := file.Reader()
		if readerError != nil {
			return readerError
		}
		data, readError := io.ReadAll(reader)
		closeError := reader.Close()
		if readError != nil {
			return readError
		}
		if closeError != nil {
			return closeError
		}
		files.PutBytes(file.Name, data)
		return nil
	})
	if walkError != nil {
		return fileset.FileSet{}, walkError
	}
	return files, nil
}

// resolveCommit peels annotated tags down to their commit.
func resolveCommit(gitRepository *git.Repository, revision plumbing.Hash) (*object.Commit, error) {
	tagObject, tagError := gitRepository.TagObject(revision)
	if tagError == nil {
		return tagObject.Commit()
	}
	if !errors.Is(tagError, plumbing.ErrObjectNotFound) {
		return nil, tagError
	}
	return gitRepository.CommitObject(revision)
}

func resolveRepository(repository string) (gitrepo.RemoteURL, string, error) {
	remote, parseError := gitrepo.ParseRemoteURL(repository)
	if parseError != nil {
		return gitrepo.RemoteURL{}, "", OperationError{Operation: resolveIdentifierOperationConstant, Repository: repository, Cause: parseError}
	}
	cloneURL, formatError := gitrepo.FormatRemoteURL(remote)
	if formatError != nil {
		return gitrepo.RemoteURL{}, "", OperationError{Operation: resolveIdentifierOperationConstant, Repository: repository, Cause: formatError}
	}
	return remote, cloneURL, nil
}
