package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/temirov/distaudit/internal/audit"
	"github.com/temirov/distaudit/internal/comparison"
)

const (
	resultHeaderTemplateConstant       = "%s %s"
	taggedSuffixTemplateConstant       = " (tag %s)"
	failureSuffixTemplateConstant      = " [%s]: %s"
	entryLineTemplateConstant          = "  %s: %s"
	lineDiffDetailTemplateConstant     = " (first difference at line %d, %d differing lines)"
	summaryTemplateConstant            = "%s: %d versions reported, %d OK, %d DIFFERS, %d ERROR\n"
	diffIndentConstant                 = "    "
	diffFromFileTemplateConstant       = "repository/%s"
	diffToFileTemplateConstant         = "distribution/%s"
	diffContextLinesConstant           = 3
	newlineConstant                    = "\n"
	missingInDistributionLabelConstant = "missing in distribution"
	missingInRepositoryLabelConstant   = "missing in repository"
	linesDifferLabelConstant           = "lines differ"
	diffRenderErrorTemplateConstant    = "render diff for %s: %w"
	resultWriteErrorTemplateConstant   = "write result for %s: %w"
	summaryWriteErrorTemplateConstant  = "write summary: %w"
	emptyReportMessageTemplateConstant = "%s: every published version matches the repository\n"
	unknownPackagePlaceholderConstant  = "audit"
)

// TextRenderer formats results for terminals.
type TextRenderer struct {
	// ShowDiff appends a unified diff below every file whose lines differ.
	ShowDiff bool
	// Colorize enables ANSI colors for statuses.
	Colorize bool
}

func (renderer TextRenderer) statusColor(status audit.Status) *color.Color {
	var statusColor *color.Color
	switch status {
	case audit.StatusOK:
		statusColor = color.New(color.FgGreen, color.Bold)
	case audit.StatusDiffers:
		statusColor = color.New(color.FgYellow, color.Bold)
	default:
		statusColor = color.New(color.FgRed, color.Bold)
	}
	if !renderer.Colorize {
		statusColor.DisableColor()
	} else {
		statusColor.EnableColor()
	}
	return statusColor
}

// Render writes every result of document followed by a summary line.
func (renderer TextRenderer) Render(writer io.Writer, document Document) error {
	for _, result := range document.Results {
		if renderError := renderer.RenderResult(writer, result); renderError != nil {
			return renderError
		}
	}
	return renderer.RenderSummary(writer, document)
}

// RenderResult writes the status line of result and, for DIFFERS, one line per mismatching file.
func (renderer TextRenderer) RenderResult(writer io.Writer, result audit.Result) error {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf(resultHeaderTemplateConstant, result.Version, renderer.statusColor(result.Status).Sprint(string(result.Status))))
	if len(result.Tag) > 0 {
		builder.WriteString(fmt.Sprintf(taggedSuffixTemplateConstant, result.Tag))
	}
	if result.Status == audit.StatusError {
		builder.WriteString(fmt.Sprintf(failureSuffixTemplateConstant, result.FailureKind, result.Message))
	}
	builder.WriteString(newlineConstant)

	for _, entry := range result.Mismatches() {
		builder.WriteString(describeEntry(entry))
		builder.WriteString(newlineConstant)
		if renderer.ShowDiff && entry.Kind == comparison.EntryKindLineDiff {
			diffText, diffError := UnifiedDiff(entry)
			if diffError != nil {
				return fmt.Errorf(diffRenderErrorTemplateConstant, entry.Path, diffError)
			}
			builder.WriteString(indent(diffText))
		}
	}

	if _, writeError := io.WriteString(writer, builder.String()); writeError != nil {
		return fmt.Errorf(resultWriteErrorTemplateConstant, result.Version, writeError)
	}
	return nil
}

// RenderSummary writes the per-status counts of document.
func (renderer TextRenderer) RenderSummary(writer io.Writer, document Document) error {
	label := document.Package
	if len(label) == 0 {
		label = unknownPackagePlaceholderConstant
	}

	counts := map[audit.Status]int{}
	for _, result := range document.Results {
		counts[result.Status]++
	}

	var writeError error
	if len(document.Results) == 0 {
		_, writeError = fmt.Fprintf(writer, emptyReportMessageTemplateConstant, label)
	} else {
		_, writeError = fmt.Fprintf(writer, summaryTemplateConstant, label, len(document.Results), counts[audit.StatusOK], counts[audit.StatusDiffers], counts[audit.StatusError])
	}
	if writeError != nil {
		return fmt.Errorf(summaryWriteErrorTemplateConstant, writeError)
	}
	return nil
}

// UnifiedDiff renders the repository and distribution lines of entry as a unified diff.
func UnifiedDiff(entry comparison.Entry) (string, error) {
	unifiedDiff := difflib.UnifiedDiff{
		A:        terminateLines(entry.RepositoryLines),
		B:        terminateLines(entry.DistributionLines),
		FromFile: fmt.Sprintf(diffFromFileTemplateConstant, entry.Path),
		ToFile:   fmt.Sprintf(diffToFileTemplateConstant, entry.Path),
		Context:  diffContextLinesConstant,
	}
	return difflib.GetUnifiedDiffString(unifiedDiff)
}

func describeEntry(entry comparison.Entry) string {
	switch entry.Kind {
	case comparison.EntryKindMissingInDistribution:
		return fmt.Sprintf(entryLineTemplateConstant, missingInDistributionLabelConstant, entry.Path)
	case comparison.EntryKindMissingInRepository:
		return fmt.Sprintf(entryLineTemplateConstant, missingInRepositoryLabelConstant, entry.Path)
	default:
		return fmt.Sprintf(entryLineTemplateConstant, linesDifferLabelConstant, entry.Path) +
			fmt.Sprintf(lineDiffDetailTemplateConstant, entry.FirstDifference, len(entry.Differences))
	}
}

func terminateLines(lines []string) []string {
	terminated := make([]string, 0, len(lines))
	for _, line := range lines {
		terminated = append(terminated, line+newlineConstant)
	}
	return terminated
}

func indent(text string) string {
	if len(text) == 0 {
		return ""
	}
	lines := strings.SplitAfter(text, newlineConstant)
	var builder strings.Builder
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		builder.WriteString(diffIndentConstant)
		builder.WriteString(line)
	}
	return builder.String()
}
