package archive

import (
	"archive/tar"
	"bytes"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/ulikunitz/xz"

	"github.com/temirov/distaudit/internal/fileset"
)

const (
	wheelSuffixConstant          = ".whl"
	zipSuffixConstant            = ".zip"
	eggSuffixConstant            = ".egg"
	tarGzipSuffixConstant        = ".tar.gz"
	tgzSuffixConstant            = ".tgz"
	tarBzip2SuffixConstant       = ".tar.bz2"
	tarXZSuffixConstant          = ".tar.xz"
	tarSuffixConstant            = ".tar"
	tarMagicOffsetConstant       = 257
	tarMagicConstant             = "ustar"
	extractionErrorTemplate      = "extract %s: %v"
	unknownFormatMessageConstant = "unrecognized archive format"
	emptyArchiveMessageConstant  = "archive is empty"
	entryReadErrorTemplate       = "read entry %s: %w"
	sizeLimitErrorTemplate       = "entry %s exceeds the %d byte limit"
	sizeLimitMessageConstant     = "archive size limit exceeded"

	// DefaultMaxFileSize bounds the uncompressed size of a single archive entry.
	DefaultMaxFileSize int64 = 256 << 20
	// DefaultMaxTotalSize bounds the uncompressed size of all entries of one archive.
	DefaultMaxTotalSize int64 = 2 << 30
)

// Format identifies a supported archive encoding.
type Format string

// Supported formats.
const (
	FormatZip      Format = "zip"
	FormatTarGzip  Format = "tar.gz"
	FormatTarBzip2 Format = "tar.bz2"
	FormatTarXZ    Format = "tar.xz"
	FormatTar      Format = "tar"
	FormatUnknown  Format = ""
)

var (
	zipMagic   = []byte("PK\x03\x04")
	gzipMagic  = []byte{0x1f, 0x8b}
	bzip2Magic = []byte("BZh")
	xzMagic    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}

	// ErrUnknownFormat indicates neither the file name nor the content identify a supported format.
	ErrUnknownFormat = errors.New(unknownFormatMessageConstant)
	// ErrEmptyArchive indicates the archive data is empty.
	ErrEmptyArchive = errors.New(emptyArchiveMessageConstant)
	// ErrSizeLimitExceeded is wrapped by SizeLimitError.
	ErrSizeLimitExceeded = errors.New(sizeLimitMessageConstant)
)

// SizeLimitError reports an entry whose uncompressed data exceeds the remaining budget.
type SizeLimitError struct {
	Entry string
	Limit int64
}

// Error describes the exceeded limit.
func (limitError SizeLimitError) Error() string {
	return fmt.Sprintf(sizeLimitErrorTemplate, limitError.Entry, limitError.Limit)
}

// Unwrap exposes ErrSizeLimitExceeded.
func (limitError SizeLimitError) Unwrap() error {
	return ErrSizeLimitExceeded
}

// Limits bound the uncompressed data a single extraction may produce.
// Non-positive values fall back to the defaults.
type Limits struct {
	MaxFileSize  int64
	MaxTotalSize int64
}

// DefaultLimits returns DefaultMaxFileSize and DefaultMaxTotalSize.
func DefaultLimits() Limits {
	return Limits{MaxFileSize: DefaultMaxFileSize, MaxTotalSize: DefaultMaxTotalSize}
}

func (limits Limits) sanitize() Limits {
	sanitized := limits
	if sanitized.MaxFileSize <= 0 {
		sanitized.MaxFileSize = DefaultMaxFileSize
	}
	if sanitized.MaxTotalSize <= 0 {
		sanitized.MaxTotalSize = DefaultMaxTotalSize
	}
	return sanitized
}

type readBudget struct {
	limits   Limits
	consumed int64
}

func (budget *readBudget) read(entryName string, reader io.Reader) ([]byte, error) {
	limit := budget.limits.MaxFileSize
	if remaining := budget.limits.MaxTotalSize - budget.consumed; remaining < limit {
		limit = remaining
	}
	content, readError := io.ReadAll(io.LimitReader(reader, limit+1))
	if readError != nil {
		return nil, fmt.Errorf(entryReadErrorTemplate, entryName, readError)
	}
	if int64(len(content)) > limit {
		return nil, SizeLimitError{Entry: entryName, Limit: limit}
	}
	budget.consumed += int64(len(content))
	return content, nil
}

// ExtractionError wraps any failure to decode an archive.
type ExtractionError struct {
	Name  string
	Cause error
}

// Error describes the extraction failure.
func (extractionError ExtractionError) Error() string {
	return fmt.Sprintf(extractionErrorTemplate, extractionError.Name, extractionError.Cause)
}

// Unwrap exposes the underlying cause.
func (extractionError ExtractionError) Unwrap() error {
	return extractionError.Cause
}

// Extractor turns archive bytes into a FileSet. Only regular files are kept,
// in archive order.
type Extractor struct {
	limits Limits
}

// NewExtractor constructs an Extractor bounded by DefaultLimits.
func NewExtractor() *Extractor {
	return NewExtractorWithLimits(DefaultLimits())
}

// NewExtractorWithLimits constructs an Extractor bounded by limits.
func NewExtractorWithLimits(limits Limits) *Extractor {
	return &Extractor{limits: limits.sanitize()}
}

// Extract decodes data, choosing the format from name and falling back to content sniffing.
func (extractor *Extractor) Extract(name string, data []byte) (fileset.FileSet, error) {
	if len(data) == 0 {
		return fileset.FileSet{}, ExtractionError{Name: name, Cause: ErrEmptyArchive}
	}

	format := DetectFormat(name, data)
	budget := &readBudget{limits: extractor.limits}

	var files fileset.FileSet
	var extractError error
	switch format {
	case FormatZip:
		files, extractError = extractZip(data, budget)
	case FormatTarGzip:
		files, extractError = extractCompressedTar(data, openGzip, budget)
	case FormatTarBzip2:
		files, extractError = extractCompressedTar(data, openBzip2, budget)
	case FormatTarXZ:
		files, extractError = extractCompressedTar(data, openXZ, budget)
	case FormatTar:
		files, extractError = extractTar(bytes.NewReader(data), budget)
	default:
		extractError = ErrUnknownFormat
	}

	if extractError != nil {
		return fileset.FileSet{}, ExtractionError{Name: name, Cause: extractError}
	}
	return files, nil
}

// DetectFormat identifies the archive format from the file name, then from magic bytes.
func DetectFormat(name string, data []byte) Format {
	lowerName := strings.ToLower(strings.TrimSpace(name))
	switch {
	case strings.HasSuffix(lowerName, wheelSuffixConstant),
		strings.HasSuffix(lowerName, zipSuffixConstant),
		strings.HasSuffix(lowerName, eggSuffixConstant):
		return FormatZip
	case strings.HasSuffix(lowerName, tarGzipSuffixConstant), strings.HasSuffix(lowerName, tgzSuffixConstant):
		return FormatTarGzip
	case strings.HasSuffix(lowerName, tarBzip2SuffixConstant):
		return FormatTarBzip2
	case strings.HasSuffix(lowerName, tarXZSuffixConstant):
		return FormatTarXZ
	case strings.HasSuffix(lowerName, tarSuffixConstant):
		return FormatTar
	}

	switch {
	case bytes.HasPrefix(data, zipMagic):
		return FormatZip
	case bytes.HasPrefix(data, gzipMagic):
		return FormatTarGzip
	case bytes.HasPrefix(data, bzip2Magic):
		return FormatTarBzip2
	case bytes.HasPrefix(data, xzMagic):
		return FormatTarXZ
	case len(data) >= tarMagicOffsetConstant+len(tarMagicConstant) &&
		string(data[tarMagicOffsetConstant:tarMagicOffsetConstant+len(tarMagicConstant)]) == tarMagicConstant:
		return FormatTar
	}

	return FormatUnknown
}

func extractZip(data []byte, budget *readBudget) (fileset.FileSet, error) {
	zipReader, openError := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if openError != nil {
		return fileset.FileSet{}, openError
	}

	var files fileset.FileSet
	for _, zipEntry := range zipReader.File {
		if !zipEntry.Mode().IsRegular() {
			continue
		}
		entryReader, entryOpenError := zipEntry.Open()
		if entryOpenError != nil {
			return fileset.FileSet{}, fmt.Errorf(entryReadErrorTemplate, zipEntry.Name, entryOpenError)
		}
		content, readError := budget.read(zipEntry.Name, entryReader)
		closeError := entryReader.Close()
		if readError != nil {
			return fileset.FileSet{}, readError
		}
		if closeError != nil {
			return fileset.FileSet{}, fmt.Errorf(entryReadErrorTemplate, zipEntry.Name, closeError)
		}
		files.PutBytes(zipEntry.Name, content)
	}
	return files, nil
}

type decompressorOpener func(io.Reader) (io.Reader, error)

func openGzip(compressed io.Reader) (io.Reader, error) {
	return gzip.NewReader(compressed)
}

func openBzip2(compressed io.Reader) (io.Reader, error) {
	return bzip2.NewReader(compressed), nil
}

func openXZ(compressed io.Reader) (io.Reader, error) {
	return xz.NewReader(compressed)
}

func extractCompressedTar(data []byte, opener decompressorOpener, budget *readBudget) (fileset.FileSet, error) {
	decompressed, openError := opener(bytes.NewReader(data))
	if openError != nil {
		return fileset.FileSet{}, openError
	}
	return extractTar(decompressed, budget)
}

func extractTar(source io.Reader, budget *readBudget) (fileset.FileSet, error) {
	tarReader := tar.NewReader(source)

	var files fileset.FileSet
	for {
		header, nextError := tarReader.Next()
		if errors.Is(nextError, io.EOF) {
			return files, nil
		}
		if nextError != nil {
			return fileset.FileSet{}, nextError
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		content, readError := budget.read(header.Name, tarReader)
		if readError != nil {
			return fileset.FileSet{}, readError
		}
		files.PutBytes(header.Name, content)
	}
}
