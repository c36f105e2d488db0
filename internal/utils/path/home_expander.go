package pathutils

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	tildeSymbolConstant             = "~"
	tildeForwardSlashPrefixConstant = "~/"
	fileURLPrefixConstant           = "file://"
)

var tildeWithPathSeparatorPrefix = tildeSymbolConstant + string(os.PathSeparator)

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// HomeExpander converts user home shortcuts in paths and file:// identifiers to absolute paths.
type HomeExpander struct {
	homeDirectoryProvider HomeDirectoryProvider
	homeDirectory         string
	homeDirectoryError    error
	initializationGuard   sync.Once
}

// NewHomeExpander constructs a HomeExpander using the operating system lookup.
func NewHomeExpander() *HomeExpander {
	return NewHomeExpanderWithProvider(os.UserHomeDir)
}

// NewHomeExpanderWithProvider constructs a HomeExpander with a custom provider.
func NewHomeExpanderWithProvider(provider HomeDirectoryProvider) *HomeExpander {
	if provider == nil {
		provider = os.UserHomeDir
	}
	return &HomeExpander{homeDirectoryProvider: provider}
}

// Expand resolves a leading "~" of candidatePath. Paths owned by other users ("~bob") are returned unchanged.
func (expander *HomeExpander) Expand(candidatePath string) string {
	if expander == nil || !strings.HasPrefix(candidatePath, tildeSymbolConstant) {
		return candidatePath
	}

	relativePath, isHomeRelative := trimHomePrefix(candidatePath)
	if !isHomeRelative {
		return candidatePath
	}

	homeDirectory := expander.resolveHomeDirectory()
	if len(homeDirectory) == 0 {
		return candidatePath
	}
	if len(relativePath) == 0 {
		return homeDirectory
	}
	return filepath.Join(homeDirectory, relativePath)
}

// ExpandIdentifier expands home shortcuts inside file:// repository identifiers.
// Any other identifier is returned unchanged.
func (expander *HomeExpander) ExpandIdentifier(identifier string) string {
	trimmedIdentifier := strings.TrimSpace(identifier)
	if !strings.HasPrefix(trimmedIdentifier, fileURLPrefixConstant) {
		return identifier
	}
	localPath := strings.TrimPrefix(trimmedIdentifier, fileURLPrefixConstant)
	return fileURLPrefixConstant + expander.Expand(localPath)
}

// ExpandAll expands every path of candidatePaths, dropping blank entries.
func (expander *HomeExpander) ExpandAll(candidatePaths []string) []string {
	expandedPaths := make([]string, 0, len(candidatePaths))
	for _, candidatePath := range candidatePaths {
		trimmedPath := strings.TrimSpace(candidatePath)
		if len(trimmedPath) == 0 {
			continue
		}
		expandedPaths = append(expandedPaths, expander.Expand(trimmedPath))
	}
	return expandedPaths
}

func trimHomePrefix(candidatePath string) (string, bool) {
	switch {
	case candidatePath == tildeSymbolConstant:
		return "", true
	case strings.HasPrefix(candidatePath, tildeForwardSlashPrefixConstant):
		return strings.TrimPrefix(candidatePath, tildeForwardSlashPrefixConstant), true
	case strings.HasPrefix(candidatePath, tildeWithPathSeparatorPrefix):
		return strings.TrimPrefix(candidatePath, tildeWithPathSeparatorPrefix), true
	default:
		return "", false
	}
}

func (expander *HomeExpander) resolveHomeDirectory() string {
	expander.initializationGuard.Do(func() {
		expander.homeDirectory, expander.homeDirectoryError = expander.homeDirectoryProvider()
	})
	if expander.homeDirectoryError != nil {
		return ""
	}
	return expander.homeDirectory
}
