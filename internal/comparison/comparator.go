package comparison

import (
	"strings"

	"github.com/temirov/distaudit/internal/fileset"
)

const (
	lineFeedConstant       = "\n"
	carriageReturnConstant = "\r"
	crlfConstant           = "\r\n"
)

var lineTerminatorReplacer = strings.NewReplacer(crlfConstant, lineFeedConstant, carriageReturnConstant, lineFeedConstant)

// Compare produces one entry per path in the union of both file sets. Paths are
// ordered by their position in the repository set, followed by distribution-only
// paths in distribution order. Compare is pure and never fails.
func Compare(distribution fileset.FileSet, repository fileset.FileSet) Report {
	report := Report{Status: StatusOK}

	for _, path := range repository.Paths() {
		repositoryContent, _ := repository.Content(path)
		distributionContent, inDistribution := distribution.Content(path)
		if !inDistribution {
			report.append(Entry{Kind: EntryKindMissingInDistribution, Path: path})
			continue
		}
		report.append(compareContents(path, distributionContent, repositoryContent))
	}

	for _, path := range distribution.Paths() {
		if repository.Contains(path) {
			continue
		}
		report.append(Entry{Kind: EntryKindMissingInRepository, Path: path})
	}

	return report
}

func (report *Report) append(entry Entry) {
	report.Entries = append(report.Entries, entry)
	if entry.Kind != EntryKindMatch {
		report.Status = StatusDiffers
	}
}

func compareContents(path string, distributionContent string, repositoryContent string) Entry {
	distributionLines := SplitLines(distributionContent)
	repositoryLines := SplitLines(repositoryContent)

	differences := diffLines(distributionLines, repositoryLines)
	if len(differences) == 0 {
		return Entry{Kind: EntryKindMatch, Path: path}
	}

	return Entry{
		Kind:              EntryKindLineDiff,
		Path:              path,
		FirstDifference:   differences[0].Number,
		Differences:       differences,
		DistributionLines: distributionLines,
		RepositoryLines:   repositoryLines,
	}
}

// SplitLines normalizes CRLF and CR terminators and splits content into lines.
// A single trailing newline does not produce an extra empty line and empty
// content has no lines.
func SplitLines(content string) []string {
	normalized := lineTerminatorReplacer.Replace(content)
	normalized = strings.TrimSuffix(normalized, lineFeedConstant)
	if len(normalized) == 0 {
		return nil
	}
	return strings.Split(normalized, lineFeedConstant)
}

// diffLines compares positionally; line numbers are 1-based.
func diffLines(distributionLines []string, repositoryLines []string) []LineDifference {
	longest := len(distributionLines)
	if len(repositoryLines) > longest {
		longest = len(repositoryLines)
	}

	var differences []LineDifference
	for lineIndex := 0; lineIndex < longest; lineIndex++ {
		distributionLine := lineAt(distributionLines, lineIndex)
		repositoryLine := lineAt(repositoryLines, lineIndex)
		if distributionLine != nil && repositoryLine != nil && *distributionLine == *repositoryLine {
			continue
		}
		differences = append(differences, LineDifference{
			Number:       lineIndex + 1,
			Distribution: distributionLine,
			Repository:   repositoryLine,
		})
	}
	return differences
}

func lineAt(lines []string, lineIndex int) *string {
	if lineIndex >= len(lines) {
		return nil
	}
	line := lines[lineIndex]
	return &line
}
