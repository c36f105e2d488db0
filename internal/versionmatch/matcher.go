// Package versionmatch maps registry version identifiers to repository tags.
package versionmatch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const (
	defaultTagPrefixConstant           = "v"
	noMatchingTagErrorTemplateConstant = "no repository tag matches version %s"
)

// NoMatchingTagError reports a version for which no tag convention produced a known tag.
type NoMatchingTagError struct {
	Version string
}

// Error describes the missing tag.
func (matchError NoMatchingTagError) Error() string {
	return fmt.Sprintf(noMatchingTagErrorTemplateConstant, matchError.Version)
}

// DefaultPrefixes returns the prefixes tried after an exact match when none are configured.
func DefaultPrefixes() []string {
	return []string{defaultTagPrefixConstant}
}

// Matcher resolves tags by trying conventions in a fixed priority order:
// exact match, each prefix in order, then semantic version equivalence.
type Matcher struct {
	prefixes []string
}

// NewMatcher constructs a Matcher. Blank prefixes are ignored; a nil slice selects DefaultPrefixes.
func NewMatcher(prefixes []string) Matcher {
	if prefixes == nil {
		prefixes = DefaultPrefixes()
	}

	sanitized := make([]string, 0, len(prefixes))
	seen := make(map[string]struct{}, len(prefixes))
	for _, prefix := range prefixes {
		trimmed := strings.TrimSpace(prefix)
		if len(trimmed) == 0 {
			continue
		}
		if _, duplicate := seen[trimmed]; duplicate {
			continue
		}
		seen[trimmed] = struct{}{}
		sanitized = append(sanitized, trimmed)
	}

	return Matcher{prefixes: sanitized}
}

// Prefixes returns the configured prefixes in priority order.
func (matcher Matcher) Prefixes() []string {
	return append([]string(nil), matcher.prefixes...)
}

// Match returns the tag corresponding to version.
func (matcher Matcher) Match(version string, tags []string) (string, bool) {
	trimmedVersion := strings.TrimSpace(version)
	if len(trimmedVersion) == 0 {
		return "", false
	}

	knownTags := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		knownTags[tag] = struct{}{}
	}

	if _, exists := knownTags[trimmedVersion]; exists {
		return trimmedVersion, true
	}

	for _, prefix := range matcher.prefixes {
		candidate := prefix + trimmedVersion
		if _, exists := knownTags[candidate]; exists {
			return candidate, true
		}
	}

	return matcher.matchSemantically(trimmedVersion, tags)
}

// Resolve is Match returning NoMatchingTagError when nothing matches.
func (matcher Matcher) Resolve(version string, tags []string) (string, error) {
	tag, matched := matcher.Match(version, tags)
	if !matched {
		return "", NoMatchingTagError{Version: version}
	}
	return tag, nil
}

func (matcher Matcher) matchSemantically(version string, tags []string) (string, bool) {
	parsedVersion, parseError := semver.NewVersion(version)
	if parseError != nil {
		return "", false
	}

	var equivalentTags []string
	for _, tag := range tags {
		if matcher.equivalent(parsedVersion, tag) {
			equivalentTags = append(equivalentTags, tag)
		}
	}

	if len(equivalentTags) == 0 {
		return "", false
	}

	sort.Strings(equivalentTags)
	return equivalentTags[0], true
}

// equivalent tries the tag with every matching prefix removed, then the tag as is.
func (matcher Matcher) equivalent(parsedVersion *semver.Version, tag string) bool {
	candidates := make([]string, 0, len(matcher.prefixes)+1)
	for _, prefix := range matcher.prefixes {
		if strings.HasPrefix(tag, prefix) {
			candidates = append(candidates, strings.TrimPrefix(tag, prefix))
		}
	}
	candidates = append(candidates, tag)

	for _, candidate := range candidates {
		parsedTag, parseError := semver.NewVersion(candidate)
		if parseError == nil && parsedTag.Equal(parsedVersion) {
			return true
		}
	}
	return false
}
