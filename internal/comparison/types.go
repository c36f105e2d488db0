package comparison

// EntryKind classifies the outcome for a single path.
type EntryKind string

// Supported entry kinds.
const (
	EntryKindMatch                 EntryKind = "match"
	EntryKindLineDiff              EntryKind = "line_diff"
	EntryKindMissingInDistribution EntryKind = "missing_in_distribution"
	EntryKindMissingInRepository   EntryKind = "missing_in_repository"
)

// Status summarizes a comparison.
type Status string

// Comparison statuses.
const (
	StatusOK      Status = "OK"
	StatusDiffers Status = "DIFFERS"
)

// LineDifference describes one differing line position. A nil side means the
// file has no line at that position.
type LineDifference struct {
	Number       int     `json:"line" yaml:"line"`
	Distribution *string `json:"distribution" yaml:"distribution"`
	Repository   *string `json:"repository" yaml:"repository"`
}

// Entry is the outcome for one path from the union of both file sets.
type Entry struct {
	Kind              EntryKind        `json:"kind" yaml:"kind"`
	Path              string           `json:"path" yaml:"path"`
	FirstDifference   int              `json:"first_difference,omitempty" yaml:"first_difference,omitempty"`
	Differences       []LineDifference `json:"differences,omitempty" yaml:"differences,omitempty"`
	DistributionLines []string         `json:"-" yaml:"-"`
	RepositoryLines   []string         `json:"-" yaml:"-"`
}

// Report is the ordered entry sequence for one version.
type Report struct {
	Entries []Entry
	Status  Status
}

// Mismatches returns the entries that are not matches, preserving order.
func (report Report) Mismatches() []Entry {
	var mismatches []Entry
	for _, entry := range report.Entries {
		if entry.Kind != EntryKindMatch {
			mismatches = append(mismatches, entry)
		}
	}
	return mismatches
}
