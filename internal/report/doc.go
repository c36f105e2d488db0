// Package report renders audit results as text, JSON or YAML and provides the
// observers that print per-version lines and drive the progress bar.
package report
