// Package audit compares every published distribution of a package with the
// repository files at the matching tag.
//
// Service walks versions in publication order, converts per-version failures
// into ERROR results and reports progress to a ResultObserver.
package audit
