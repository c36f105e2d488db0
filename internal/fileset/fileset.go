package fileset

import (
	_ "crypto/sha256"
	"unicode/utf8"

	"github.com/opencontainers/go-digest"
)

const (
	binaryMarkerTemplatePrefixConstant = "<binary "
	binaryMarkerTemplateSuffixConstant = ">"
)

// FileSet is an insertion-ordered mapping from relative path to text content.
// The zero value is an empty set ready for use.
type FileSet struct {
	paths    []string
	contents map[string]string
}

// New builds a FileSet from entries, preserving their order.
func New(entries ...Entry) FileSet {
	var fileSet FileSet
	for _, entry := range entries {
		fileSet.Put(entry.Path, entry.Content)
	}
	return fileSet
}

// Entry is a single path and its content.
type Entry struct {
	Path    string
	Content string
}

// Put stores text content under path. Re-adding a path replaces its content and keeps its original position.
func (fileSet *FileSet) Put(path string, content string) {
	if fileSet.contents == nil {
		fileSet.contents = make(map[string]string)
	}
	if _, exists := fileSet.contents[path]; !exists {
		fileSet.paths = append(fileSet.paths, path)
	}
	fileSet.contents[path] = content
}

// PutBytes stores raw file data, substituting a digest marker when the data is not valid UTF-8.
func (fileSet *FileSet) PutBytes(path string, data []byte) {
	fileSet.Put(path, DecodeContent(data))
}

// Paths returns the stored paths in insertion order.
func (fileSet FileSet) Paths() []string {
	return append([]string(nil), fileSet.paths...)
}

// Content returns the content stored under path.
func (fileSet FileSet) Content(path string) (string, bool) {
	content, exists := fileSet.contents[path]
	return content, exists
}

// Contains reports whether path is present.
func (fileSet FileSet) Contains(path string) bool {
	_, exists := fileSet.contents[path]
	return exists
}

// Len returns the number of stored paths.
func (fileSet FileSet) Len() int {
	return len(fileSet.paths)
}

// DecodeContent converts file data to text. Data that is not valid UTF-8 becomes
// "<binary sha256:...>" so identical binaries still compare equal.
func DecodeContent(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return BinaryMarker(data)
}

// BinaryMarker renders the decoding-failure marker for data.
func BinaryMarker(data []byte) string {
	return binaryMarkerTemplatePrefixConstant + digest.FromBytes(data).String() + binaryMarkerTemplateSuffixConstant
}
