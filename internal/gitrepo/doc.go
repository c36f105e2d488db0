// Package gitrepo parses repository identifiers.
//
// It accepts "owner/repository" shorthand as well as https and ssh remotes and
// renders the clone URL and archive download URL used by repository backends.
package gitrepo
