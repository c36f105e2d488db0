package archive_test

import (
	"archive/tar"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/temirov/distaudit/internal/archive"
)

type archiveEntry struct {
	name    string
	content string
	isDir   bool
}

var sampleEntries = []archiveEntry{
	{name: "pkg/", isDir: true},
	{name: "pkg/__init__.py", content: "VERSION = '1.0.0'\n"},
	{name: "pkg/utils.py", content: "def helper():\n    return 1\n"},
}

func buildZip(testInstance *testing.T, entries []archiveEntry) []byte {
	buffer := &bytes.Buffer{}
	zipWriter := zip.NewWriter(buffer)
	for _, entry := range entries {
		if entry.isDir {
			_, createError := zipWriter.Create(entry.name)
			require.NoError(testInstance, createError)
			continue
		}
		entryWriter, createError := zipWriter.Create(entry.name)
		require.NoError(testInstance, createError)
		_, writeError := entryWriter.Write([]byte(entry.content))
		require.NoError(testInstance, writeError)
	}
	require.NoError(testInstance, zipWriter.Close())
	return buffer.Bytes()
}

func buildTar(testInstance *testing.T, entries []archiveEntry) []byte {
	buffer := &bytes.Buffer{}
	tarWriter := tar.NewWriter(buffer)
	for _, entry := range entries {
		header := &tar.Header{Name: entry.name, Mode: 0o644, Size: int64(len(entry.content)), Typeflag: tar.TypeReg}
		if entry.isDir {
			header = &tar.Header{Name: entry.name, Mode: 0o755, Typeflag: tar.TypeDir}
		}
		require.NoError(testInstance, tarWriter.WriteHeader(header))
		if !entry.isDir {
			_, writeError := tarWriter.Write([]byte(entry.content))
			require.NoError(testInstance, writeError)
		}
	}
	require.NoError(testInstance, tarWriter.Close())
	return buffer.Bytes()
}

func gzipData(testInstance *testing.T, data []byte) []byte {
	buffer := &bytes.Buffer{}
	gzipWriter := gzip.NewWriter(buffer)
	_, writeError := gzipWriter.Write(data)
	require.NoError(testInstance, writeError)
	require.NoError(testInstance, gzipWriter.Close())
	return buffer.Bytes()
}

func xzData(testInstance *testing.T, data []byte) []byte {
	buffer := &bytes.Buffer{}
	xzWriter, creationError := xz.NewWriter(buffer)
	require.NoError(testInstance, creationError)
	_, writeError := xzWriter.Write(data)
	require.NoError(testInstance, writeError)
	require.NoError(testInstance, xzWriter.Close())
	return buffer.Bytes()
}

func TestExtractorExtract(testInstance *testing.T) {
	testCases := []struct {
		name     string
		fileName string
		data     func(testInstance *testing.T) []byte
	}{
		{name: "wheel", fileName: "pkg-1.0.0-py3-none-any.whl", data: func(testInstance *testing.T) []byte { return buildZip(testInstance, sampleEntries) }},
		{name: "tar_gz", fileName: "pkg-1.0.0.tar.gz", data: func(testInstance *testing.T) []byte {
			return gzipData(testInstance, buildTar(testInstance, sampleEntries))
		}},
		{name: "tar_xz", fileName: "pkg-1.0.0.tar.xz", data: func(testInstance *testing.T) []byte {
			return xzData(testInstance, buildTar(testInstance, sampleEntries))
		}},
		{name: "plain_tar", fileName: "pkg-1.0.0.tar", data: func(testInstance *testing.T) []byte { return buildTar(testInstance, sampleEntries) }},
		{name: "sniffed_zip", fileName: "download", data: func(testInstance *testing.T) []byte { return buildZip(testInstance, sampleEntries) }},
		{name: "sniffed_gzip", fileName: "download", data: func(testInstance *testing.T) []byte {
			return gzipData(testInstance, buildTar(testInstance, sampleEntries))
		}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			files, extractError := archive.NewExtractor().Extract(testCase.fileName, testCase.data(testInstance))
			require.NoError(testInstance, extractError)
			require.Equal(testInstance, []string{"pkg/__init__.py", "pkg/utils.py"}, files.Paths())

			content, exists := files.Content("pkg/utils.py")
			require.True(testInstance, exists)
			require.Equal(testInstance, "def helper():\n    return 1\n", content)
		})
	}
}

func TestExtractorMarksBinaryEntries(testInstance *testing.T) {
	data := buildZip(testInstance, []archiveEntry{{name: "pkg/_native.so", content: "\xff\xfe\x00binary"}})

	files, extractError := archive.NewExtractor().Extract("pkg.whl", data)
	require.NoError(testInstance, extractError)

	content, _ := files.Content("pkg/_native.so")
	require.Contains(testInstance, content, "<binary sha256:")
}

func TestExtractorFailures(testInstance *testing.T) {
	testCases := []struct {
		name          string
		fileName      string
		data          []byte
		expectedCause error
	}{
		{name: "empty", fileName: "pkg.whl", data: nil, expectedCause: archive.ErrEmptyArchive},
		{name: "unknown_format", fileName: "pkg.bin", data: []byte("plain text")},
		{name: "corrupt_zip", fileName: "pkg.whl", data: []byte("PK\x03\x04not really a zip")},
		{name: "corrupt_gzip", fileName: "pkg.tar.gz", data: []byte{0x1f, 0x8b, 0x00, 0x01}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			_, extractError := archive.NewExtractor().Extract(testCase.fileName, testCase.data)
			require.Error(testInstance, extractError)

			var extractionError archive.ExtractionError
			require.True(testInstance, errors.As(extractError, &extractionError))
			require.Equal(testInstance, testCase.fileName, extractionError.Name)
			if testCase.expectedCause != nil {
				require.ErrorIs(testInstance, extractError, testCase.expectedCause)
			}
		})
	}
}

func TestExtractorEnforcesSizeLimits(testInstance *testing.T) {
	largeEntries := []archiveEntry{
		{name: "pkg/__init__.py", content: "VERSION = '1.0.0'\n"},
		{name: "pkg/data.txt", content: strings.Repeat("a", 64)},
	}

	testCases := []struct {
		name          string
		fileName      string
		data          func(testInstance *testing.T) []byte
		limits        archive.Limits
		expectedEntry string
		expectedLimit int64
		expectError   bool
	}{
		{
			name:          "zip_entry_over_file_limit",
			fileName:      "pkg.whl",
			data:          func(testInstance *testing.T) []byte { return buildZip(testInstance, largeEntries) },
			limits:        archive.Limits{MaxFileSize: 32, MaxTotalSize: 1024},
			expectedEntry: "pkg/data.txt",
			expectedLimit: 32,
			expectError:   true,
		},
		{
			name:     "tar_gz_over_total_limit",
			fileName: "pkg.tar.gz",
			data: func(testInstance *testing.T) []byte {
				return gzipData(testInstance, buildTar(testInstance, largeEntries))
			},
			limits:        archive.Limits{MaxFileSize: 1024, MaxTotalSize: 40},
			expectedEntry: "pkg/data.txt",
			expectedLimit: 40 - int64(len("VERSION = '1.0.0'\n")),
			expectError:   true,
		},
		{
			name:     "within_limits",
			fileName: "pkg.tar",
			data:     func(testInstance *testing.T) []byte { return buildTar(testInstance, largeEntries) },
			limits:   archive.Limits{MaxFileSize: 64, MaxTotalSize: 82},
		},
		{
			name:     "non_positive_limits_use_defaults",
			fileName: "pkg.whl",
			data:     func(testInstance *testing.T) []byte { return buildZip(testInstance, largeEntries) },
			limits:   archive.Limits{MaxFileSize: -1},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			files, extractError := archive.NewExtractorWithLimits(testCase.limits).Extract(testCase.fileName, testCase.data(testInstance))
			if !testCase.expectError {
				require.NoError(testInstance, extractError)
				require.Equal(testInstance, []string{"pkg/__init__.py", "pkg/data.txt"}, files.Paths())
				return
			}

			require.ErrorIs(testInstance, extractError, archive.ErrSizeLimitExceeded)
			var extractionError archive.ExtractionError
			require.True(testInstance, errors.As(extractError, &extractionError))
			var limitError archive.SizeLimitError
			require.True(testInstance, errors.As(extractError, &limitError))
			require.Equal(testInstance, testCase.expectedEntry, limitError.Entry)
			require.Equal(testInstance, testCase.expectedLimit, limitError.Limit)
		})
	}
}

func TestDetectFormat(testInstance *testing.T) {
	testCases := []struct {
		name     string
		fileName string
		data     []byte
		expected archive.Format
	}{
		{name: "egg", fileName: "pkg-1.0-py2.7.egg", expected: archive.FormatZip},
		{name: "tgz", fileName: "PKG-1.0.TGZ", expected: archive.FormatTarGzip},
		{name: "bz2_name", fileName: "pkg-1.0.tar.bz2", expected: archive.FormatTarBzip2},
		{name: "bz2_magic", fileName: "blob", data: []byte("BZh91AY&SY"), expected: archive.FormatTarBzip2},
		{name: "xz_magic", fileName: "blob", data: []byte{0xfd, '7', 'z', 'X', 'Z', 0x00, 0x00}, expected: archive.FormatTarXZ},
		{name: "unknown", fileName: "blob", data: []byte("hello"), expected: archive.FormatUnknown},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, archive.DetectFormat(testCase.fileName, testCase.data))
		})
	}
}
