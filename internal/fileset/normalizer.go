package fileset

import (
	"path"
	"strings"
)

const (
	pathSeparatorConstant       = "/"
	windowsSeparatorConstant    = "\\"
	currentDirectoryConstant    = "."
	parentDirectoryConstant     = ".."
	importNameSeparatorConstant = "_"
	moduleFileSuffixConstant    = ".py"
)

var importNameReplacer = strings.NewReplacer("-", importNameSeparatorConstant, ".", importNameSeparatorConstant)

// Normalizer maps archive and repository paths onto a shared source root so
// that a wheel's "pkg/x.py", an sdist's "pkg-1.0/pkg/x.py" and a repository's
// "src/pkg/x.py" all become "pkg/x.py".
type Normalizer struct {
	// Root is the directory name that anchors kept paths. Empty keeps every path.
	Root string
}

// DefaultRoot derives the import directory name conventionally used by a package:
// lowercased with dashes and dots replaced by underscores.
func DefaultRoot(packageName string) string {
	return importNameReplacer.Replace(strings.ToLower(strings.TrimSpace(packageName)))
}

// Normalize returns the path rewritten to start at the root segment, or false when the path is outside the root.
// A single-module file named "<root>.py" is kept as well.
func (normalizer Normalizer) Normalize(candidatePath string) (string, bool) {
	normalizedPath, _, kept := normalizer.anchor(candidatePath)
	return normalizedPath, kept
}

// Apply builds a new FileSet containing only normalized paths of source, in source order.
// When several source paths normalize to the same path the one with the fewest
// segments before the root wins, ties going to the earliest.
func (normalizer Normalizer) Apply(source FileSet) FileSet {
	sourcePaths := source.Paths()
	shallowestDepths := make(map[string]int, len(sourcePaths))
	for _, sourcePath := range sourcePaths {
		normalizedPath, depth, kept := normalizer.anchor(sourcePath)
		if !kept {
			continue
		}
		if currentDepth, seen := shallowestDepths[normalizedPath]; !seen || depth < currentDepth {
			shallowestDepths[normalizedPath] = depth
		}
	}

	var normalized FileSet
	for _, sourcePath := range sourcePaths {
		normalizedPath, depth, kept := normalizer.anchor(sourcePath)
		if !kept || depth != shallowestDepths[normalizedPath] || normalized.Contains(normalizedPath) {
			continue
		}
		content, _ := source.Content(sourcePath)
		normalized.Put(normalizedPath, content)
	}
	return normalized
}

func (normalizer Normalizer) anchor(candidatePath string) (string, int, bool) {
	cleanedPath := cleanPath(candidatePath)
	if len(cleanedPath) == 0 {
		return "", 0, false
	}

	root := strings.Trim(strings.TrimSpace(normalizer.Root), pathSeparatorConstant)
	if len(root) == 0 {
		return cleanedPath, 0, true
	}

	segments := strings.Split(cleanedPath, pathSeparatorConstant)
	lastIndex := len(segments) - 1
	for segmentIndex, segment := range segments[:lastIndex] {
		if segment == root {
			return strings.Join(segments[segmentIndex:], pathSeparatorConstant), segmentIndex, true
		}
	}
	if segments[lastIndex] == root+moduleFileSuffixConstant {
		return segments[lastIndex], lastIndex, true
	}

	return "", 0, false
}

// StripComponents removes the first count directory levels from every path,
// dropping entries that do not have enough levels.
func StripComponents(source FileSet, count int) FileSet {
	if count <= 0 {
		return source
	}

	var stripped FileSet
	for _, sourcePath := range source.Paths() {
		segments := strings.Split(cleanPath(sourcePath), pathSeparatorConstant)
		if len(segments) <= count {
			continue
		}
		strippedPath := strings.Join(segments[count:], pathSeparatorConstant)
		if stripped.Contains(strippedPath) {
			continue
		}
		content, _ := source.Content(sourcePath)
		stripped.Put(strippedPath, content)
	}
	return stripped
}

func cleanPath(candidatePath string) string {
	slashed := strings.ReplaceAll(strings.TrimSpace(candidatePath), windowsSeparatorConstant, pathSeparatorConstant)
	cleaned := strings.TrimPrefix(path.Clean(pathSeparatorConstant+slashed), pathSeparatorConstant)
	if cleaned == currentDirectoryConstant || cleaned == parentDirectoryConstant {
		return ""
	}
	return cleaned
}
