package gitrepo

import (
	"fmt"
	"strings"
)

const (
	// DefaultHost is assumed for owner/repository shorthand.
	DefaultHost = "github.com"
	// DefaultArchiveURLTemplate downloads a tag snapshot from GitHub.
	DefaultArchiveURLTemplate = "https://{host}/{owner}/{repository}/archive/refs/tags/{tag}.zip"

	sshProtocolPrefixConstant           = "ssh://"
	sshUserDelimiterConstant            = "@"
	sshPathDelimiterConstant            = ":"
	httpsProtocolPrefixConstant         = "https://"
	fileProtocolPrefixConstant          = "file://"
	gitUserPrefixConstant               = "git@"
	pathSeparatorConstant               = "/"
	gitSuffixConstant                   = ".git"
	remoteURLParseErrorTemplateConstant = "%s: %s"
	requiredValueMessageConstant        = "value required"
	invalidRemoteURLMessageConstant     = "invalid repository identifier"
	unknownProtocolMessageConstant      = "unsupported remote protocol"
	hostPlaceholderConstant             = "{host}"
	ownerPlaceholderConstant            = "{owner}"
	repositoryPlaceholderConstant       = "{repository}"
	tagPlaceholderConstant              = "{tag}"
)

// RemoteProtocol enumerates supported git remote protocols.
type RemoteProtocol string

// Supported remote protocols.
const (
	RemoteProtocolSSH   RemoteProtocol = RemoteProtocol("ssh")
	RemoteProtocolHTTPS RemoteProtocol = RemoteProtocol("https")
	RemoteProtocolFile  RemoteProtocol = RemoteProtocol("file")
)

// RemoteURL represents a structured repository location. File remotes carry
// their path in Repository and leave Host and Owner empty.
type RemoteURL struct {
	Protocol   RemoteProtocol
	Host       string
	Owner      string
	Repository string
}

// RemoteURLParseError indicates a repository identifier could not be parsed.
type RemoteURLParseError struct {
	Input   string
	Message string
}

// Error describes the parse failure.
func (parseError RemoteURLParseError) Error() string {
	return fmt.Sprintf(remoteURLParseErrorTemplateConstant, parseError.Input, parseError.Message)
}

// UnsupportedProtocolError indicates the provided protocol cannot be formatted.
type UnsupportedProtocolError struct {
	Protocol RemoteProtocol
}

// Error describes the unsupported protocol.
func (protocolError UnsupportedProtocolError) Error() string {
	return fmt.Sprintf(remoteURLParseErrorTemplateConstant, protocolError.Protocol, unknownProtocolMessageConstant)
}

// ParseRemoteURL converts a repository identifier into a structured representation.
// Bare "owner/repository" resolves to an https remote on DefaultHost.
func ParseRemoteURL(remote string) (RemoteURL, error) {
	trimmedRemote := strings.TrimSpace(remote)
	if len(trimmedRemote) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: requiredValueMessageConstant}
	}

	switch {
	case strings.HasPrefix(trimmedRemote, sshProtocolPrefixConstant):
		return parseSSHRemote(strings.TrimPrefix(trimmedRemote, sshProtocolPrefixConstant))
	case strings.HasPrefix(trimmedRemote, gitUserPrefixConstant):
		return parseSSHRemote(trimmedRemote)
	case strings.HasPrefix(trimmedRemote, httpsProtocolPrefixConstant):
		return parseHTTPSRemote(strings.TrimPrefix(trimmedRemote, httpsProtocolPrefixConstant))
	case strings.HasPrefix(trimmedRemote, fileProtocolPrefixConstant):
		repositoryPath := strings.TrimPrefix(trimmedRemote, fileProtocolPrefixConstant)
		if len(repositoryPath) == 0 {
			return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
		}
		return RemoteURL{Protocol: RemoteProtocolFile, Repository: repositoryPath}, nil
	case !strings.Contains(trimmedRemote, sshPathDelimiterConstant):
		owner, repository, parseError := splitOwnerAndRepository(trimmedRemote)
		if parseError != nil {
			return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
		}
		return RemoteURL{Protocol: RemoteProtocolHTTPS, Host: DefaultHost, Owner: owner, Repository: repository}, nil
	}

	return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
}

func parseSSHRemote(remote string) (RemoteURL, error) {
	userSplitIndex := strings.Index(remote, sshUserDelimiterConstant)
	if userSplitIndex == -1 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}
	hostAndPath := remote[userSplitIndex+1:]
	pathSplitIndex := strings.Index(hostAndPath, sshPathDelimiterConstant)
	var host string
	var path string
	if pathSplitIndex == -1 {
		slashIndex := strings.Index(hostAndPath, pathSeparatorConstant)
		if slashIndex == -1 {
			return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
		}
		host = hostAndPath[:slashIndex]
		path = hostAndPath[slashIndex+1:]
	} else {
		host = hostAndPath[:pathSplitIndex]
		path = hostAndPath[pathSplitIndex+1:]
	}
	owner, repository, parseError := splitOwnerAndRepository(path)
	if parseError != nil {
		return RemoteURL{}, parseError
	}
	return RemoteURL{Protocol: RemoteProtocolSSH, Host: host, Owner: owner, Repository: repository}, nil
}

func parseHTTPSRemote(remote string) (RemoteURL, error) {
	pathComponents := strings.SplitN(strings.TrimSuffix(remote, pathSeparatorConstant), pathSeparatorConstant, 2)
	if len(pathComponents) != 2 || len(pathComponents[0]) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}
	owner, repository, parseError := splitOwnerAndRepository(pathComponents[1])
	if parseError != nil {
		return RemoteURL{}, parseError
	}
	return RemoteURL{Protocol: RemoteProtocolHTTPS, Host: pathComponents[0], Owner: owner, Repository: repository}, nil
}

func splitOwnerAndRepository(path string) (string, string, error) {
	segments := strings.Split(strings.Trim(path, pathSeparatorConstant), pathSeparatorConstant)
	if len(segments) != 2 || len(segments[0]) == 0 {
		return "", "", RemoteURLParseError{Input: path, Message: invalidRemoteURLMessageConstant}
	}
	repository, parseError := normalizeRepositoryName(segments[1])
	if parseError != nil {
		return "", "", parseError
	}
	return segments[0], repository, nil
}

func normalizeRepositoryName(repository string) (string, error) {
	trimmed := strings.TrimSuffix(repository, gitSuffixConstant)
	if len(trimmed) == 0 {
		return "", RemoteURLParseError{Input: repository, Message: invalidRemoteURLMessageConstant}
	}
	return trimmed, nil
}

// FullName returns "owner/repository", or the path for file remotes.
func (remote RemoteURL) FullName() string {
	if remote.Protocol == RemoteProtocolFile {
		return remote.Repository
	}
	return remote.Owner + pathSeparatorConstant + remote.Repository
}

// FormatRemoteURL creates a clone URL from a structured representation.
func FormatRemoteURL(remote RemoteURL) (string, error) {
	if remote.Protocol == RemoteProtocolFile {
		if len(strings.TrimSpace(remote.Repository)) == 0 {
			return "", RemoteURLParseError{Input: remote.Repository, Message: requiredValueMessageConstant}
		}
		return fileProtocolPrefixConstant + remote.Repository, nil
	}
	if len(strings.TrimSpace(remote.Host)) == 0 {
		return "", RemoteURLParseError{Input: remote.Host, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(remote.Owner)) == 0 {
		return "", RemoteURLParseError{Input: remote.Owner, Message: requiredValueMessageConstant}
	}
	if len(strings.TrimSpace(remote.Repository)) == 0 {
		return "", RemoteURLParseError{Input: remote.Repository, Message: requiredValueMessageConstant}
	}

	switch remote.Protocol {
	case RemoteProtocolSSH:
		return fmt.Sprintf("%s%s%s%s%s%s", gitUserPrefixConstant, remote.Host, sshPathDelimiterConstant, remote.Owner, pathSeparatorConstant, remote.Repository+gitSuffixConstant), nil
	case RemoteProtocolHTTPS:
		return fmt.Sprintf("%s%s%s%s%s%s%s", httpsProtocolPrefixConstant, remote.Host, pathSeparatorConstant, remote.Owner, pathSeparatorConstant, remote.Repository, gitSuffixConstant), nil
	default:
		return "", UnsupportedProtocolError{Protocol: remote.Protocol}
	}
}

// FormatArchiveURL renders template for tag. The placeholders {host}, {owner},
// {repository} and {tag} are substituted; a blank template uses DefaultArchiveURLTemplate.
func FormatArchiveURL(template string, remote RemoteURL, tag string) (string, error) {
	if remote.Protocol == RemoteProtocolFile {
		return "", UnsupportedProtocolError{Protocol: remote.Protocol}
	}
	if len(strings.TrimSpace(tag)) == 0 {
		return "", RemoteURLParseError{Input: tag, Message: requiredValueMessageConstant}
	}
	resolvedTemplate := strings.TrimSpace(template)
	if len(resolvedTemplate) == 0 {
		resolvedTemplate = DefaultArchiveURLTemplate
	}
	replacer := strings.NewReplacer(
		hostPlaceholderConstant, remote.Host,
		ownerPlaceholderConstant, remote.Owner,
		repositoryPlaceholderConstant, remote.Repository,
		tagPlaceholderConstant, tag,
	)
	return replacer.Replace(resolvedTemplate), nil
}
