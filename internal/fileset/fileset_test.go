package fileset_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/distaudit/internal/fileset"
)

func TestFileSetPreservesInsertionOrder(testInstance *testing.T) {
	var files fileset.FileSet
	files.Put("pkg/b.py", "b")
	files.Put("pkg/a.py", "a")
	files.Put("pkg/b.py", "b2")

	require.Equal(testInstance, []string{"pkg/b.py", "pkg/a.py"}, files.Paths())
	require.Equal(testInstance, 2, files.Len())

	content, exists := files.Content("pkg/b.py")
	require.True(testInstance, exists)
	require.Equal(testInstance, "b2", content)

	_, exists = files.Content("pkg/missing.py")
	require.False(testInstance, exists)
}

func TestDecodeContent(testInstance *testing.T) {
	testCases := []struct {
		name           string
		data           []byte
		expectedPrefix string
		expectedText   string
	}{
		{name: "utf8_text", data: []byte("print('héllo')\n"), expectedText: "print('héllo')\n"},
		{name: "empty", data: []byte{}, expectedText: ""},
		{name: "binary", data: []byte{0xff, 0xfe, 0x00, 0x01}, expectedPrefix: "<binary sha256:"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			decoded := fileset.DecodeContent(testCase.data)
			if len(testCase.expectedPrefix) > 0 {
				require.True(testInstance, strings.HasPrefix(decoded, testCase.expectedPrefix))
				require.True(testInstance, strings.HasSuffix(decoded, ">"))
				require.Equal(testInstance, decoded, fileset.DecodeContent(append([]byte{}, testCase.data...)))
				return
			}
			require.Equal(testInstance, testCase.expectedText, decoded)
		})
	}
}

func TestBinaryMarkersDifferForDifferentData(testInstance *testing.T) {
	require.NotEqual(testInstance, fileset.BinaryMarker([]byte{0xff, 0x01}), fileset.BinaryMarker([]byte{0xff, 0x02}))
}

func TestNormalizerNormalize(testInstance *testing.T) {
	testCases := []struct {
		name         string
		root         string
		path         string
		expectedPath string
		expectedKept bool
	}{
		{name: "wheel_layout", root: "pkg", path: "pkg/utils.py", expectedPath: "pkg/utils.py", expectedKept: true},
		{name: "sdist_layout", root: "pkg", path: "pkg-1.0.0/pkg/utils.py", expectedPath: "pkg/utils.py", expectedKept: true},
		{name: "src_layout", root: "pkg", path: "src/pkg/sub/mod.py", expectedPath: "pkg/sub/mod.py", expectedKept: true},
		{name: "dist_info_dropped", root: "pkg", path: "pkg-1.0.0.dist-info/METADATA", expectedKept: false},
		{name: "file_named_like_root_dropped", root: "pkg", path: "docs/pkg", expectedKept: false},
		{name: "single_module_top_level", root: "pkg", path: "pkg.py", expectedPath: "pkg.py", expectedKept: true},
		{name: "single_module_in_sdist", root: "pkg", path: "pkg-1.0.0/pkg.py", expectedPath: "pkg.py", expectedKept: true},
		{name: "other_module_dropped", root: "pkg", path: "setup.py", expectedKept: false},
		{name: "empty_root_keeps_all", root: "", path: "setup.py", expectedPath: "setup.py", expectedKept: true},
		{name: "windows_separators", root: "pkg", path: "pkg\\win.py", expectedPath: "pkg/win.py", expectedKept: true},
		{name: "traversal_cleaned", root: "", path: "../../etc/passwd", expectedPath: "etc/passwd", expectedKept: true},
		{name: "blank_path", root: "", path: "  ", expectedKept: false},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			normalizer := fileset.Normalizer{Root: testCase.root}
			normalizedPath, kept := normalizer.Normalize(testCase.path)
			require.Equal(testInstance, testCase.expectedKept, kept)
			require.Equal(testInstance, testCase.expectedPath, normalizedPath)
		})
	}
}

func TestNormalizerApply(testInstance *testing.T) {
	source := fileset.New(
		fileset.Entry{Path: "pkg-1.0/PKG-INFO", Content: "meta"},
		fileset.Entry{Path: "pkg-1.0/pkg/__init__.py", Content: "init"},
		fileset.Entry{Path: "pkg-1.0/pkg/utils.py", Content: "utils"},
	)

	normalized := fileset.Normalizer{Root: "pkg"}.Apply(source)
	require.Equal(testInstance, []string{"pkg/__init__.py", "pkg/utils.py"}, normalized.Paths())

	content, _ := normalized.Content("pkg/utils.py")
	require.Equal(testInstance, "utils", content)
}

func TestNormalizerApplyPrefersShallowestRoot(testInstance *testing.T) {
	testCases := []struct {
		name            string
		source          fileset.FileSet
		expectedPaths   []string
		expectedContent string
	}{
		{
			name: "nested_copy_listed_first",
			source: fileset.New(
				fileset.Entry{Path: "docs/pkg/__init__.py", Content: "# docs copy"},
				fileset.Entry{Path: "pkg/__init__.py", Content: "VERSION = '1.0.0'"},
			),
			expectedPaths:   []string{"pkg/__init__.py"},
			expectedContent: "VERSION = '1.0.0'",
		},
		{
			name: "nested_copy_listed_last",
			source: fileset.New(
				fileset.Entry{Path: "pkg-1.0/pkg/__init__.py", Content: "VERSION = '1.0.0'"},
				fileset.Entry{Path: "pkg-1.0/tests/fixtures/pkg/__init__.py", Content: "# fixture"},
			),
			expectedPaths:   []string{"pkg/__init__.py"},
			expectedContent: "VERSION = '1.0.0'",
		},
		{
			name: "equal_depth_keeps_first",
			source: fileset.New(
				fileset.Entry{Path: "src/pkg/__init__.py", Content: "VERSION = '1.0.0'"},
				fileset.Entry{Path: "lib/pkg/__init__.py", Content: "# other"},
			),
			expectedPaths:   []string{"pkg/__init__.py"},
			expectedContent: "VERSION = '1.0.0'",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			normalized := fileset.Normalizer{Root: "pkg"}.Apply(testCase.source)
			require.Equal(testInstance, testCase.expectedPaths, normalized.Paths())
			content, _ := normalized.Content("pkg/__init__.py")
			require.Equal(testInstance, testCase.expectedContent, content)
		})
	}
}

func TestStripComponents(testInstance *testing.T) {
	source := fileset.New(
		fileset.Entry{Path: "repo-1.0.0/README.md", Content: "readme"},
		fileset.Entry{Path: "repo-1.0.0/pkg/utils.py", Content: "utils"},
		fileset.Entry{Path: "top-level-file", Content: "dropped"},
	)

	stripped := fileset.StripComponents(source, 1)
	require.Equal(testInstance, []string{"README.md", "pkg/utils.py"}, stripped.Paths())
	require.Equal(testInstance, source.Paths(), fileset.StripComponents(source, 0).Paths())
}

func TestDefaultRoot(testInstance *testing.T) {
	require.Equal(testInstance, "my_package", fileset.DefaultRoot(" My-Package "))
	require.Equal(testInstance, "zope_interface", fileset.DefaultRoot("zope.interface"))
	require.Equal(testInstance, "bittensor", fileset.DefaultRoot("bittensor"))
}
