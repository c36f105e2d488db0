package audit

import (
	"github.com/temirov/distaudit/internal/comparison"
)

// Status classifies the outcome of auditing one version.
type Status string

// Audit statuses.
const (
	StatusOK      Status = "OK"
	StatusDiffers Status = "DIFFERS"
	StatusError   Status = "ERROR"
)

// FailureKind classifies ERROR results.
type FailureKind string

// Failure kinds.
const (
	FailureKindNetwork       FailureKind = "network"
	FailureKindExtraction    FailureKind = "extraction"
	FailureKindNoMatchingTag FailureKind = "no_matching_tag"
)

// Options configures a single audit run.
type Options struct {
	// PackageName is the registry project name.
	PackageName string
	// Repository identifies the source repository (owner/repository, URL or file:// path).
	Repository string
	// SourceRoot is the directory segment both sides are normalized against.
	// Blank derives it from PackageName; WholeTreeSourceRoot compares complete trees.
	SourceRoot string
	// TagPrefixes are tried in order when matching versions to tags.
	TagPrefixes []string
}

// WholeTreeSourceRoot disables path normalization.
const WholeTreeSourceRoot = "/"

// Result is the outcome of auditing one version.
type Result struct {
	Version     string             `json:"version" yaml:"version"`
	Tag         string             `json:"tag,omitempty" yaml:"tag,omitempty"`
	Status      Status             `json:"status" yaml:"status"`
	FailureKind FailureKind        `json:"failure,omitempty" yaml:"failure,omitempty"`
	Message     string             `json:"error,omitempty" yaml:"error,omitempty"`
	Entries     []comparison.Entry `json:"entries,omitempty" yaml:"entries,omitempty"`
	Err         error              `json:"-" yaml:"-"`
}

// Mismatches returns the non-matching entries.
func (result Result) Mismatches() []comparison.Entry {
	return comparison.Report{Entries: result.Entries}.Mismatches()
}
