// Package fileset models one side of a source comparison: an ordered mapping
// from relative file path to text content.
//
// FileSet preserves insertion order so reports are reproducible, Normalizer
// aligns distribution and repository layouts on a shared source root, and
// undecodable content is replaced by a digest marker instead of failing.
package fileset
