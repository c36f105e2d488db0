package comparison_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/distaudit/internal/comparison"
	"github.com/temirov/distaudit/internal/fileset"
)

func files(pairs ...string) fileset.FileSet {
	var result fileset.FileSet
	for index := 0; index+1 < len(pairs); index += 2 {
		result.Put(pairs[index], pairs[index+1])
	}
	return result
}

func pathsOf(entries []comparison.Entry) []string {
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		paths = append(paths, entry.Path)
	}
	return paths
}

func stringPointer(value string) *string {
	return &value
}

func TestCompareIdenticalFileSets(testInstance *testing.T) {
	testCases := []struct {
		name  string
		files fileset.FileSet
	}{
		{name: "empty", files: files()},
		{name: "single", files: files("pkg/__init__.py", "VERSION = '1.0.0'\n")},
		{name: "several", files: files("pkg/a.py", "a = 1\n", "pkg/b.py", "", "pkg/c.py", "line1\nline2")},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			report := comparison.Compare(testCase.files, testCase.files)
			require.Equal(testInstance, comparison.StatusOK, report.Status)
			require.Len(testInstance, report.Entries, testCase.files.Len())
			for _, entry := range report.Entries {
				require.Equal(testInstance, comparison.EntryKindMatch, entry.Kind)
			}
			require.Empty(testInstance, report.Mismatches())
		})
	}
}

func TestCompareSingleFileContentDiffers(testInstance *testing.T) {
	repository := files("pkg/a.py", "a = 1\n", "pkg/b.py", "b = 2\nc = 3\n")
	distribution := files("pkg/a.py", "a = 1\n", "pkg/b.py", "b = 2\nc = 4\n")

	report := comparison.Compare(distribution, repository)
	require.Equal(testInstance, comparison.StatusDiffers, report.Status)

	mismatches := report.Mismatches()
	require.Len(testInstance, mismatches, 1)
	require.Equal(testInstance, comparison.EntryKindLineDiff, mismatches[0].Kind)
	require.Equal(testInstance, "pkg/b.py", mismatches[0].Path)
	require.Equal(testInstance, 2, mismatches[0].FirstDifference)
	require.Equal(testInstance, []comparison.LineDifference{
		{Number: 2, Distribution: stringPointer("c = 4"), Repository: stringPointer("c = 3")},
	}, mismatches[0].Differences)
	require.Equal(testInstance, []string{"b = 2", "c = 4"}, mismatches[0].DistributionLines)
	require.Equal(testInstance, []string{"b = 2", "c = 3"}, mismatches[0].RepositoryLines)
}

func TestCompareLineCountDiffers(testInstance *testing.T) {
	repository := files("pkg/a.py", "one\ntwo\nthree\n")
	distribution := files("pkg/a.py", "one\n")

	report := comparison.Compare(distribution, repository)
	require.Equal(testInstance, comparison.StatusDiffers, report.Status)
	require.Len(testInstance, report.Entries, 1)

	entry := report.Entries[0]
	require.Equal(testInstance, comparison.EntryKindLineDiff, entry.Kind)
	require.Equal(testInstance, 2, entry.FirstDifference)
	require.Equal(testInstance, []comparison.LineDifference{
		{Number: 2, Distribution: nil, Repository: stringPointer("two")},
		{Number: 3, Distribution: nil, Repository: stringPointer("three")},
	}, entry.Differences)
}

func TestCompareMissingPaths(testInstance *testing.T) {
	repository := files("pkg/__init__.py", "", "pkg/utils.py", "def helper():\n    pass\n")
	distribution := files("pkg/__init__.py", "", "pkg/generated.py", "GENERATED = True\n")

	report := comparison.Compare(distribution, repository)
	require.Equal(testInstance, comparison.StatusDiffers, report.Status)
	require.Equal(testInstance, []string{"pkg/__init__.py", "pkg/utils.py", "pkg/generated.py"}, pathsOf(report.Entries))
	require.Equal(testInstance, comparison.EntryKindMatch, report.Entries[0].Kind)
	require.Equal(testInstance, comparison.EntryKindMissingInDistribution, report.Entries[1].Kind)
	require.Equal(testInstance, comparison.EntryKindMissingInRepository, report.Entries[2].Kind)
}

func TestCompareCoversUnionWithoutDuplicates(testInstance *testing.T) {
	repository := files("c.py", "c", "a.py", "a", "b.py", "b")
	distribution := files("b.py", "b", "d.py", "d", "a.py", "changed", "e.py", "e")

	report := comparison.Compare(distribution, repository)
	require.Equal(testInstance, []string{"c.py", "a.py", "b.py", "d.py", "e.py"}, pathsOf(report.Entries))

	seen := make(map[string]int)
	for _, entry := range report.Entries {
		seen[entry.Path]++
	}
	for _, path := range append(repository.Paths(), distribution.Paths()...) {
		require.Equal(testInstance, 1, seen[path], path)
	}
}

func TestCompareIsDeterministic(testInstance *testing.T) {
	repository := files("pkg/a.py", "1\n2\n", "pkg/b.py", "x")
	distribution := files("pkg/a.py", "1\n3\n", "pkg/c.py", "y")

	require.Equal(testInstance, comparison.Compare(distribution, repository), comparison.Compare(distribution, repository))
}

func TestSplitLines(testInstance *testing.T) {
	testCases := []struct {
		name     string
		content  string
		expected []string
	}{
		{name: "empty", content: "", expected: nil},
		{name: "lone_newline", content: "\n", expected: nil},
		{name: "trailing_newline_ignored", content: "a\nb\n", expected: []string{"a", "b"}},
		{name: "no_trailing_newline", content: "a\nb", expected: []string{"a", "b"}},
		{name: "crlf_normalized", content: "a\r\nb\r\n", expected: []string{"a", "b"}},
		{name: "cr_normalized", content: "a\rb", expected: []string{"a", "b"}},
		{name: "blank_lines_kept", content: "a\n\n\n", expected: []string{"a", "", ""}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, comparison.SplitLines(testCase.content))
		})
	}
}

func TestCompareIgnoresLineTerminatorStyle(testInstance *testing.T) {
	repository := files("pkg/a.py", "x = 1\ny = 2\n")
	distribution := files("pkg/a.py", "x = 1\r\ny = 2")

	report := comparison.Compare(distribution, repository)
	require.Equal(testInstance, comparison.StatusOK, report.Status)
}
